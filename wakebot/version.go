package main

import (
	"fmt"
	"os/exec"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"
)

// Set at build time with -ldflags "-X main.Version=..."
var Version string
var Commit string

func init() {
	Cmd.AddCommand(versionCmd)
}

// getVersion returns the version string, using git describe if build-time version is not set
func getVersion() string {
	if Version != "" {
		return Version
	}

	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}

	cmd := exec.Command("git", "describe", "--always", "--tags", "--dirty")
	output, err := cmd.Output()
	if err == nil {
		return strings.TrimSpace(string(output))
	}

	if Commit != "" {
		return Commit
	}
	return "unknown"
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), getVersion())
	},
}

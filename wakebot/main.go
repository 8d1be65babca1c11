package main

import (
	"context"
	"fmt"
	"os"
	"runtime/pprof"

	"github.com/spf13/cobra"

	"github.com/k1sta/wakebot/hlog"
	"github.com/k1sta/wakebot/internal/debug"
	"github.com/k1sta/wakebot/internal/global"
	"github.com/k1sta/wakebot/wakebot/ctl"
	"github.com/k1sta/wakebot/wakebot/daemon"
	"github.com/k1sta/wakebot/wakebot/options"
)

var Cmd = &cobra.Command{
	Use:   "wakebot",
	Short: "Wake-on-LAN agent driven from a chat",
	Args:  cobra.NoArgs,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if isDaemon(cmd) {
			hlog.InitForDaemon(options.Flags.Verbose, options.Flags.Debug)
		} else {
			hlog.InitWithDebug(options.Flags.Verbose, options.Flags.Debug)
		}
		log := hlog.Logger
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		if debug.IsDebuggerAttached() {
			log.Info("Running under debugger, command timeout disabled")
			options.Flags.CommandTimeout = 0
		}

		if options.Flags.CpuProfile != "" {
			f, err := os.Create(options.Flags.CpuProfile)
			if err != nil {
				log.Error(err, "Failed to create CPU profile")
				return err
			}
			if err := pprof.StartCPUProfile(f); err != nil {
				f.Close()
				return err
			}
			ctx = context.WithValue(ctx, global.CpuProfileKey, f)
		}

		ctx = options.CommandLineContext(ctx, log, getVersion())
		cmd.SetContext(ctx)
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if f, ok := ctx.Value(global.CpuProfileKey).(*os.File); ok {
			pprof.StopCPUProfile()
			f.Close()
		}

		global.Cancel(ctx)
		return nil
	},
}

func isDaemon(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c == daemon.Cmd {
			return true
		}
	}
	return false
}

func init() {
	Cmd.PersistentFlags().StringVarP(&options.Flags.CpuProfile, "cpuprofile", "P", "", "write CPU profile to `file`")
	Cmd.PersistentFlags().BoolVarP(&options.Flags.Verbose, "verbose", "v", false, "verbose output")
	Cmd.PersistentFlags().BoolVarP(&options.Flags.Debug, "debug", "d", false, "debug output")
	Cmd.PersistentFlags().BoolVarP(&options.Flags.Json, "json", "j", false, "output in JSON format")
	Cmd.PersistentFlags().StringVarP(&options.Flags.ConfigFile, "config", "c", "", "configuration `file` (default: wakebot.yaml)")
	Cmd.PersistentFlags().DurationVarP(&options.Flags.CommandTimeout, "command-timeout", "C", options.COMMAND_DEFAULT_TIMEOUT, "timeout for the whole command")
	Cmd.AddCommand(daemon.Cmd)
	Cmd.AddCommand(ctl.HostsCmd)
	Cmd.AddCommand(ctl.WakeCmd)
}

func main() {
	cobra.EnableTraverseRunHooks = true
	err := Cmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

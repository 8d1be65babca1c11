package ctl

import (
	"context"
	"io"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/k1sta/wakebot/internal/engine"
	"github.com/k1sta/wakebot/internal/hosts"
	"github.com/k1sta/wakebot/internal/probe"
	"github.com/k1sta/wakebot/wakebot/options"
)

var probeHosts bool

var HostsCmd = &cobra.Command{
	Use:   "hosts",
	Short: "Manage the registered hosts",
	Args:  cobra.NoArgs,
}

func init() {
	listCmd.Flags().BoolVarP(&probeHosts, "probe", "p", false, "ping every host")
	HostsCmd.AddCommand(listCmd)
	HostsCmd.AddCommand(addCmd)
	HostsCmd.AddCommand(removeCmd)
}

// HostStatus is one line of "hosts list".
type HostStatus struct {
	hosts.Host `yaml:",inline"`
	Up         *bool `json:"up,omitempty" yaml:"up,omitempty"`
}

func withSession(cmd *cobra.Command, out io.Writer, fn func(ctx context.Context, s *session) error) error {
	ctx := cmd.Context()
	cfg, err := options.LoadConfig(logr.FromContextOrDiscard(ctx), options.Flags.ConfigFile, cmd.Flags())
	if err != nil {
		return err
	}
	s, err := open(ctx, cfg, out)
	if err != nil {
		return err
	}
	defer s.Close()
	// The arguments were fine, a failure from here on needs no usage.
	cmd.SilenceUsage = true
	return fn(ctx, s)
}

func listHosts(ctx context.Context, s *session, withProbe bool) []HostStatus {
	all := s.registry.List()
	out := make([]HostStatus, 0, len(all))
	var p *probe.Pinger
	if withProbe {
		p = probe.NewPinger(s.log, s.cfg.Probe.Timeout)
	}
	for _, h := range all {
		hs := HostStatus{Host: h}
		if p != nil {
			up := p.Probe(ctx, h.IP, s.cfg.Probe.Count)
			hs.Up = &up
		}
		out = append(out, hs)
	}
	return out
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered hosts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, cmd.OutOrStdout(), func(ctx context.Context, s *session) error {
			return options.PrintResult(listHosts(ctx, s, probeHosts))
		})
	},
}

var addCmd = &cobra.Command{
	Use:   "add <name> <ip> [mac]",
	Short: "Register a host; the MAC is looked up in the ARP cache when omitted",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, cmd.OutOrStdout(), func(ctx context.Context, s *session) error {
			return s.run(ctx, engine.CmdAdd, args...)
		})
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a host",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, cmd.OutOrStdout(), func(ctx context.Context, s *session) error {
			return s.run(ctx, engine.CmdRemove, args...)
		})
	},
}

package ctl

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/k1sta/wakebot/internal/engine"
	"github.com/k1sta/wakebot/pkg/addr"
)

var WakeCmd = &cobra.Command{
	Use:   "wake <name|mac>",
	Short: "Send a Wake-on-LAN packet to a registered host or a MAC address",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, cmd.OutOrStdout(), func(ctx context.Context, s *session) error {
			return wake(ctx, s, args[0])
		})
	},
}

func wake(ctx context.Context, s *session, target string) error {
	if _, ok := s.registry.FindByName(target); ok {
		return s.run(ctx, engine.CmdWake, target)
	}
	if mac := addr.NormalizeMAC(target); addr.ValidMAC(mac) {
		if h, ok := s.registry.FindByMAC(mac); ok {
			return s.run(ctx, engine.CmdWake, h.Name)
		}
		if err := newWaker(s.log, s.cfg).Wake(ctx, mac); err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Wake-on-LAN packet sent to %s.\n", mac)
		return nil
	}
	return s.run(ctx, engine.CmdWake, target)
}

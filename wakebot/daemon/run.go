package daemon

import (
	"github.com/go-logr/logr"
	"github.com/kardianos/service"
	"github.com/spf13/cobra"

	"github.com/k1sta/wakebot/wakebot/options"
)

func init() {
	Cmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the agent in the foreground, or under the service manager",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := logr.FromContextOrDiscard(ctx)

		cfg, err := options.LoadConfig(log, options.Flags.ConfigFile, cmd.Flags())
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		d := newDaemon(ctx, cfg)
		if service.Interactive() {
			return d.Run()
		}

		s, err := service.New(d, serviceConfig())
		if err != nil {
			log.Error(err, "Failed to create (background) service")
			return err
		}
		return s.Run()
	},
}

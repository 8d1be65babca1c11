package daemon

import (
	"context"

	"github.com/go-logr/logr"
	"github.com/kardianos/service"
	"github.com/spf13/cobra"

	"github.com/k1sta/wakebot/wakebot/options"
)

func init() {
	Cmd.AddCommand(installCmd)
	Cmd.AddCommand(uninstallCmd)
}

func serviceConfig() *service.Config {
	args := []string{"daemon", "run"}
	if options.Flags.ConfigFile != "" {
		args = append(args, "--config", options.Flags.ConfigFile)
	}
	return &service.Config{
		Name:        "wakebot",
		DisplayName: "Wakebot",
		Description: "Wake-on-LAN agent driven from a Telegram or MQTT chat",
		Arguments:   args,
		Option: service.KeyValue{
			"Restart": "on-failure",
		},
	}
}

func load(ctx context.Context) (service.Service, service.Logger, error) {
	log := logr.FromContextOrDiscard(ctx)

	s, err := service.New(newDaemon(ctx, nil), serviceConfig())
	if err != nil {
		log.Error(err, "Failed to create (background) service")
		return nil, nil, err
	}
	logger, err := s.Logger(nil)
	if err != nil {
		log.Error(err, "Failed to create (background) service logger")
		return nil, nil, err
	}
	return s, logger, nil
}

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install wakebot as a " + service.Platform() + " service",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, l, err := load(cmd.Context())
		if err != nil {
			return err
		}
		l.Info("Installing service")
		return s.Install()
	},
}

var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Uninstall wakebot as a " + service.Platform() + " service",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, l, err := load(cmd.Context())
		if err != nil {
			return err
		}
		l.Info("Uninstalling service")
		return s.Uninstall()
	},
}

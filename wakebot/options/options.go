package options

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"gopkg.in/yaml.v3"

	"github.com/k1sta/wakebot/internal/global"
)

const COMMAND_DEFAULT_TIMEOUT time.Duration = 0 // No timeout by default (wait indefinitely)

var Flags struct {
	CpuProfile     string
	Verbose        bool
	Debug          bool
	Json           bool
	ConfigFile     string        // the value taken by --config / -c
	CommandTimeout time.Duration // the value taken by --command-timeout / -C
}

// CommandLineContext returns the context of one command invocation. It is
// canceled on SIGINT/SIGTERM, after Flags.CommandTimeout, or through
// global.Cancel.
func CommandLineContext(ctx context.Context, log logr.Logger, version string) context.Context {
	var cancel context.CancelFunc

	ctx = logr.NewContext(ctx, log)
	if Flags.CommandTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, Flags.CommandTimeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	ctx = context.WithValue(ctx, global.CancelKey, cancel)
	ctx = context.WithValue(ctx, global.VersionKey, version)

	go func() {
		signals := make(chan os.Signal, 1)
		signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(signals)
		select {
		case <-signals:
			log.Info("Received signal")
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx
}

func PrintResult(out any) error {
	if Flags.Json {
		s, err := json.Marshal(out)
		if err != nil {
			return err
		}
		fmt.Println(string(s))
	} else {
		s, err := yaml.Marshal(out)
		if err != nil {
			return err
		}
		fmt.Print(string(s))
	}
	return nil
}

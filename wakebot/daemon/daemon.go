package daemon

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/go-logr/logr"
	"github.com/kardianos/service"

	"github.com/k1sta/wakebot/hlog"
	"github.com/k1sta/wakebot/internal/broker"
	"github.com/k1sta/wakebot/internal/engine"
	"github.com/k1sta/wakebot/internal/global"
	"github.com/k1sta/wakebot/internal/hosts"
	"github.com/k1sta/wakebot/internal/mynet"
	"github.com/k1sta/wakebot/internal/probe"
	"github.com/k1sta/wakebot/internal/storage"
	"github.com/k1sta/wakebot/internal/transport/mqtt"
	"github.com/k1sta/wakebot/internal/transport/telegram"
	"github.com/k1sta/wakebot/internal/wol"
	"github.com/k1sta/wakebot/wakebot/options"
)

type closableTransport interface {
	engine.Transport
	Close()
}

type daemon struct {
	ctx    context.Context
	cancel context.CancelFunc
	cfg    *options.Config
}

func newDaemon(ctx context.Context, cfg *options.Config) *daemon {
	ctx, cancel := context.WithCancel(ctx)
	return &daemon{
		ctx:    ctx,
		cancel: cancel,
		cfg:    cfg,
	}
}

// Start should not block. Do the actual work async.
func (d *daemon) Start(s service.Service) error {
	go func() {
		err := d.Run()
		hlog.ErrorIfNotCanceled(logr.FromContextOrDiscard(d.ctx), err, "Agent failed")
		if err != nil && !hlog.IsContextCancellation(err) && !service.Interactive() {
			// Let the service manager restart us.
			os.Exit(1)
		}
	}()
	return nil
}

func (d *daemon) Stop(s service.Service) error {
	d.cancel()
	return nil
}

// Run serves the operator until the context is canceled.
func (d *daemon) Run() error {
	log := logr.FromContextOrDiscard(d.ctx).WithName("daemon")
	ctx := d.ctx
	cfg := d.cfg
	log.Info("Starting wakebot", "version", global.Version(ctx), "transport", cfg.Transport, "storage", cfg.Storage.Backend)

	blob, err := storage.Open(log, cfg.Storage.Backend, cfg.Storage.Path)
	if err != nil {
		log.Error(err, "Failed to open storage", "backend", cfg.Storage.Backend, "path", cfg.Storage.Path)
		return err
	}
	defer blob.Close()

	store := hosts.NewStore(log, blob, hosts.DefaultPath)
	registry := hosts.NewRegistry(log, hosts.MaxHosts)
	store.LoadInto(ctx, registry)
	log.Info("Loaded hosts", "count", registry.Len(), "capacity", registry.Capacity())

	transport, err := openTransport(ctx, log, cfg)
	if err != nil {
		log.Error(err, "Failed to open transport", "transport", cfg.Transport)
		return err
	}
	defer transport.Close()

	broadcast := cfg.Wol.Broadcast
	if broadcast == "" {
		broadcast = mynet.LocalBroadcast(log).String()
	}
	waker := wol.NewSender(log, broadcast, cfg.Wol.Port)
	log.Info("Magic packets target", "address", waker.Target())

	e := engine.New(log, engine.Config{
		Operator:   cfg.Operator,
		ProbeCount: cfg.Probe.Count,
	}, transport, registry, engine.Capabilities{
		Store:    store,
		Resolver: mynet.NewArpCache(log),
		Prober:   probe.NewPinger(log, cfg.Probe.Timeout),
		Waker:    waker,
	})

	err = e.Run(ctx)
	log.Info("Shutting down")
	return err
}

func openTransport(ctx context.Context, log logr.Logger, cfg *options.Config) (closableTransport, error) {
	switch cfg.Transport {
	case options.TransportTelegram:
		return telegram.New(log, cfg.Telegram.Token)

	case options.TransportMqtt:
		where := cfg.Mqtt.Broker
		if cfg.Mqtt.Embedded {
			b, err := broker.Start(ctx, log, broker.Config{
				Address:  cfg.Mqtt.Listen,
				NoMdns:   cfg.Mqtt.NoMdns,
				Username: cfg.Mqtt.Username,
				Password: cfg.Mqtt.Password,
				Topic:    cfg.Mqtt.Topic,
				Operator: cfg.Operator,
			}, options.ViperConfig)
			if err != nil {
				return nil, err
			}
			// Connect to localhost when using embedded broker
			_, port, err := net.SplitHostPort(b.Addr())
			if err != nil {
				port = strconv.Itoa(mqtt.PrivatePort)
			}
			where = net.JoinHostPort("localhost", port)
		}
		return mqtt.New(ctx, log, mqtt.Options{
			Broker:   where,
			Topic:    cfg.Mqtt.Topic,
			Username: cfg.Mqtt.Username,
			Password: cfg.Mqtt.Password,
		})

	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.Transport)
	}
}

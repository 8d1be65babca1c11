// Package broker runs an embedded MQTT broker for the MQTT transport and
// publishes it over mDNS.
package broker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"sync"

	"github.com/go-logr/logr"
	"github.com/grandcat/zeroconf"
	mochi "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/hooks/debug"
	"github.com/mochi-mqtt/server/v2/listeners"
	"github.com/spf13/viper"

	"github.com/k1sta/wakebot/internal/mynet"
	"github.com/k1sta/wakebot/internal/transport/mqtt"
)

type Config struct {
	Address  string // listen address, 0.0.0.0:1883 when empty
	Instance string // mDNS instance name, the hostname when empty
	NoMdns   bool
	Username string // the only account admitted
	Password string
	Topic    string // topic prefix, mqtt.DefaultTopic when empty
	Operator string // the only sender the account may publish commands as
}

type Broker struct {
	log    logr.Logger
	server *mochi.Server
	mdns   *zeroconf.Server
	addr   string
	once   sync.Once
}

// Start serves MQTT until ctx is done or Close is called. The "mqtt.server"
// section of v, when present, is unmarshaled into the broker options.
func Start(ctx context.Context, log logr.Logger, cfg Config, v *viper.Viper) (*Broker, error) {
	log = log.WithName("MqttBroker")
	if cfg.Username == "" || cfg.Password == "" {
		return nil, errors.New("embedded broker requires a username and a password")
	}
	if cfg.Operator == "" {
		return nil, errors.New("embedded broker requires an operator")
	}
	if cfg.Topic == "" {
		cfg.Topic = mqtt.DefaultTopic
	}
	if cfg.Address == "" {
		cfg.Address = fmt.Sprintf("0.0.0.0:%d", mqtt.PrivatePort)
	}
	_, portStr, err := net.SplitHostPort(cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("invalid broker address %q: %w", cfg.Address, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid broker port %q: %w", portStr, err)
	}

	opts := loadOptions(log, v)
	opts.Logger = slog.New(logr.ToSlogHandler(log))
	server := mochi.New(opts)

	if log.V(2).Enabled() {
		err := server.AddHook(&debug.Hook{
			Log: slog.New(logr.ToSlogHandler(log)),
		}, &debug.Options{
			ShowPacketData: true,
			ShowPings:      true,
		})
		if err != nil {
			return nil, fmt.Errorf("error adding MQTT debug hook: %w", err)
		}
	}

	err = server.AddHook(new(auth.Hook), &auth.Options{Ledger: ledger(cfg)})
	if err != nil {
		return nil, fmt.Errorf("error adding MQTT auth hook: %w", err)
	}

	log.Info("Creating TCP listener", "address", cfg.Address)
	tcp := listeners.NewTCP(listeners.Config{
		ID:      "tcp",
		Address: cfg.Address,
	})
	if err := server.AddListener(tcp); err != nil {
		return nil, fmt.Errorf("error adding TCP listener: %w", err)
	}
	if err := server.Serve(); err != nil {
		return nil, fmt.Errorf("error starting MQTT server: %w", err)
	}
	log.Info("Now listening for MQTT connections", "address", cfg.Address)

	b := &Broker{
		log:    log,
		server: server,
		addr:   cfg.Address,
	}

	if !cfg.NoMdns {
		if err := b.publish(cfg.Instance, port); err != nil {
			// The broker is still reachable by address.
			log.Error(err, "Unable to publish MQTT broker over mDNS")
		}
	}

	go func() {
		<-ctx.Done()
		b.Close()
	}()
	return b, nil
}

// ledger admits the configured account only. It may read anything under the
// topic prefix but publish commands only on the operator's command topic, so
// a command received on <topic>/cmd/<sender> really comes from sender.
func ledger(cfg Config) *auth.Ledger {
	return &auth.Ledger{
		Auth: auth.AuthRules{
			{Username: auth.RString(cfg.Username), Password: auth.RString(cfg.Password), Allow: true},
		},
		ACL: auth.ACLRules{
			{
				Username: auth.RString(cfg.Username),
				Filters: auth.Filters{
					auth.RString(mqtt.CommandTopic(cfg.Topic, cfg.Operator)): auth.ReadWrite,
					auth.RString(cfg.Topic + "/reply/#"):                     auth.ReadWrite,
					auth.RString(cfg.Topic + "/#"):                           auth.ReadOnly,
				},
			},
			{
				Filters: auth.Filters{"#": auth.Deny},
			},
		},
	}
}

func (b *Broker) publish(instance string, port int) error {
	if instance == "" {
		host, err := os.Hostname()
		if err != nil {
			return fmt.Errorf("error finding current hostname: %w", err)
		}
		instance = host
	}

	var ifaces []net.Interface
	if iface, _, err := mynet.MainInterface(b.log); err == nil {
		ifaces = []net.Interface{*iface}
	}

	server, err := zeroconf.Register(instance, mqtt.ZeroconfService, "local.", port, []string{"wakebot"}, ifaces)
	if err != nil {
		return err
	}
	b.mdns = server
	b.log.Info("Published MQTT broker over mDNS", "instance", instance, "service", mqtt.ZeroconfService, "port", port)
	return nil
}

// Addr is the listen address of the broker.
func (b *Broker) Addr() string {
	return b.addr
}

func (b *Broker) Close() {
	b.once.Do(func() {
		b.log.Info("Shutting down MQTT broker")
		if b.mdns != nil {
			b.mdns.Shutdown()
		}
		b.server.Close()
	})
}

func loadOptions(log logr.Logger, v *viper.Viper) *mochi.Options {
	config := &mochi.Options{
		Capabilities: mochi.NewDefaultServerCapabilities(),
	}
	if v != nil && v.IsSet("mqtt.server") {
		if err := v.UnmarshalKey("mqtt.server", config); err != nil {
			log.Error(err, "Failed to unmarshal MQTT broker config, using defaults")
			return &mochi.Options{Capabilities: mochi.NewDefaultServerCapabilities()}
		}
		if config.Capabilities == nil {
			config.Capabilities = mochi.NewDefaultServerCapabilities()
		}
		log.Info("MQTT broker configuration loaded from config file")
	}
	log.V(1).Info("MQTT broker options",
		"client_net_write_buffer_size", config.ClientNetWriteBufferSize,
		"client_net_read_buffer_size", config.ClientNetReadBufferSize,
		"sys_topic_resend_interval", config.SysTopicResendInterval)
	return config
}

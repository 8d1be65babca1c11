package options

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/k1sta/wakebot/internal/storage"
	"github.com/k1sta/wakebot/internal/wol"
)

const (
	TransportTelegram = "telegram"
	TransportMqtt     = "mqtt"
)

type Config struct {
	Operator  string         `mapstructure:"operator" yaml:"operator"`
	Transport string         `mapstructure:"transport" yaml:"transport"`
	Telegram  TelegramConfig `mapstructure:"telegram" yaml:"telegram"`
	Mqtt      MqttConfig     `mapstructure:"mqtt" yaml:"mqtt"`
	Storage   StorageConfig  `mapstructure:"storage" yaml:"storage"`
	Probe     ProbeConfig    `mapstructure:"probe" yaml:"probe"`
	Wol       WolConfig      `mapstructure:"wol" yaml:"wol"`
}

type TelegramConfig struct {
	Token string `mapstructure:"token" yaml:"token"`
}

type MqttConfig struct {
	Broker   string `mapstructure:"broker" yaml:"broker"`
	Topic    string `mapstructure:"topic" yaml:"topic"`
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"password"`
	Embedded bool   `mapstructure:"embedded" yaml:"embedded"`
	Listen   string `mapstructure:"listen" yaml:"listen"`
	NoMdns   bool   `mapstructure:"no_mdns" yaml:"no_mdns"`
}

type StorageConfig struct {
	Backend string `mapstructure:"backend" yaml:"backend"`
	Path    string `mapstructure:"path" yaml:"path"`
}

type ProbeConfig struct {
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Count   int           `mapstructure:"count" yaml:"count"`
}

type WolConfig struct {
	Broadcast string `mapstructure:"broadcast" yaml:"broadcast"`
	Port      int    `mapstructure:"port" yaml:"port"`
}

// ViperConfig is the configuration loaded by the last LoadConfig call.
var ViperConfig *viper.Viper

var flagKeys = map[string]string{
	"operator":        "operator",
	"transport":       "transport",
	"telegram-token":  "telegram.token",
	"mqtt-broker":     "mqtt.broker",
	"mqtt-topic":      "mqtt.topic",
	"mqtt-embedded":   "mqtt.embedded",
	"storage-backend": "storage.backend",
	"storage-path":    "storage.path",
	"wol-broadcast":   "wol.broadcast",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("operator", "")
	v.SetDefault("transport", TransportTelegram)
	v.SetDefault("telegram.token", "")
	v.SetDefault("mqtt.broker", "")
	v.SetDefault("mqtt.topic", "wakebot")
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.embedded", false)
	v.SetDefault("mqtt.listen", "")
	v.SetDefault("mqtt.no_mdns", false)
	v.SetDefault("storage.backend", storage.BackendFile)
	v.SetDefault("storage.path", "")
	v.SetDefault("probe.timeout", time.Second)
	v.SetDefault("probe.count", 1)
	v.SetDefault("wol.broadcast", "")
	v.SetDefault("wol.port", wol.DefaultPort)
}

// LoadConfig reads wakebot.yaml (or file when not empty), WAKEBOT_* environment
// variables and the flags of fs that were set on the command line, in
// increasing order of precedence.
func LoadConfig(log logr.Logger, file string, fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("WAKEBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, err
				}
			}
		}
	}

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("wakebot")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/wakebot")
		v.AddConfigPath("/etc/wakebot")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		log.V(1).Info("No config file found, using defaults and environment")
	} else {
		log.Info("Loaded config", "file", v.ConfigFileUsed())
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if c.Storage.Path == "" {
		c.Storage.Path = DefaultDataPath(c.Storage.Backend)
	}
	ViperConfig = v
	return &c, nil
}

// Validate checks what the long-running agent needs.
func (c *Config) Validate() error {
	if c.Operator == "" {
		return errors.New("operator is not configured")
	}
	switch c.Transport {
	case TransportTelegram:
		if c.Telegram.Token == "" {
			return errors.New("telegram.token is not configured")
		}
	case TransportMqtt:
		// Anyone holding these credentials acts as the operator.
		if c.Mqtt.Username == "" || c.Mqtt.Password == "" {
			return errors.New("mqtt.username and mqtt.password are not configured")
		}
	default:
		return fmt.Errorf("unknown transport %q", c.Transport)
	}
	if c.Probe.Count < 1 {
		return fmt.Errorf("probe.count must be at least 1, got %d", c.Probe.Count)
	}
	return nil
}

// DefaultDataPath is where the host list is kept when storage.path is not set.
func DefaultDataPath(backend string) string {
	dir := dataDir()
	if backend == storage.BackendSQLite {
		return filepath.Join(dir, "wakebot.db")
	}
	return dir
}

func dataDir() string {
	if runtime.GOOS == "windows" {
		appData := os.Getenv("LOCALAPPDATA")
		if appData == "" {
			appData = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Local")
		}
		return filepath.Join(appData, "wakebot")
	}

	if os.Geteuid() == 0 {
		return "/var/lib/wakebot"
	}

	// XDG_DATA_HOME or ~/.local/share
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "wakebot")
}

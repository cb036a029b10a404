// Package config loads settings for the agent and relay binaries from
// defaults, an optional config file, BYTERACER_* environment variables,
// and command-line flags, in ascending priority.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "BYTERACER"

// Agent holds the operator-side settings.
type Agent struct {
	RelayURL        string        `mapstructure:"relay_url"`
	Role            string        `mapstructure:"role"`
	StorePath       string        `mapstructure:"store_path"`
	LogPath         string        `mapstructure:"log_path"`
	Device          string        `mapstructure:"device"`
	Target          string        `mapstructure:"target"`
	Tray            bool          `mapstructure:"tray"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	RescanInterval  time.Duration `mapstructure:"rescan_interval"`
	PingInterval    time.Duration `mapstructure:"ping_interval"`
	SendInterval    time.Duration `mapstructure:"send_interval"`
	MaxDevices      int           `mapstructure:"max_devices"`
	ButtonThreshold float64       `mapstructure:"button_threshold"`
	MoveThreshold   float64       `mapstructure:"move_threshold"`
	AxisActivate    float64       `mapstructure:"axis_activate"`
}

// Relay holds the relay server settings.
type Relay struct {
	Addr    string `mapstructure:"addr"`
	LogPath string `mapstructure:"log_path"`
}

// AgentFlags declares the agent's command-line flags on fs. Flag defaults
// are the canonical defaults for their keys.
func AgentFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to config file")
	fs.String("relay-url", "ws://127.0.0.1:3001/ws", "relay server websocket endpoint")
	fs.String("store-path", DefaultStorePath(), "mapping database path")
	fs.String("log-path", "", "log file path, empty logs to stderr")
	fs.String("device", "", "controller identity to select at startup")
	fs.String("target", "", "vehicle id to control at startup")
	fs.Bool("tray", true, "show the system tray icon")
}

// RelayFlags declares the relay server's command-line flags on fs.
func RelayFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to config file")
	fs.String("addr", ":3001", "listen address")
	fs.String("log-path", "", "log file path, empty logs to stderr")
}

var agentFlagKeys = map[string]string{
	"relay_url":  "relay-url",
	"store_path": "store-path",
	"log_path":   "log-path",
	"device":     "device",
	"target":     "target",
	"tray":       "tray",
}

var relayFlagKeys = map[string]string{
	"addr":     "addr",
	"log_path": "log-path",
}

// LoadAgent resolves the agent configuration. fs must carry the flags
// declared by AgentFlags; their declarations double as the defaults for
// the keys they bind.
func LoadAgent(file string, fs *pflag.FlagSet) (Agent, error) {
	v, err := newViper(file, fs, agentFlagKeys)
	if err != nil {
		return Agent{}, err
	}
	v.SetDefault("role", "controller")
	v.SetDefault("poll_interval", 20*time.Millisecond)
	v.SetDefault("rescan_interval", 2*time.Second)
	v.SetDefault("ping_interval", 500*time.Millisecond)
	v.SetDefault("send_interval", 50*time.Millisecond)
	v.SetDefault("max_devices", 8)
	v.SetDefault("button_threshold", 0.5)
	v.SetDefault("move_threshold", 0.7)
	v.SetDefault("axis_activate", 0.2)
	var cfg Agent
	if err := v.Unmarshal(&cfg); err != nil {
		return Agent{}, errors.Wrap(err, "decode agent config")
	}
	return cfg, nil
}

// LoadRelay resolves the relay server configuration.
func LoadRelay(file string, fs *pflag.FlagSet) (Relay, error) {
	v, err := newViper(file, fs, relayFlagKeys)
	if err != nil {
		return Relay{}, err
	}
	var cfg Relay
	if err := v.Unmarshal(&cfg); err != nil {
		return Relay{}, errors.Wrap(err, "decode relay config")
	}
	return cfg, nil
}

func newViper(file string, fs *pflag.FlagSet, keys map[string]string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if fs != nil {
		for key, name := range keys {
			f := fs.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, errors.Wrapf(err, "bind flag %s", name)
			}
		}
	}
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", file)
		}
	}
	return v, nil
}

// DefaultStorePath places the mapping database under the user's home
// directory, falling back to the working directory when home is unknown.
func DefaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "byteracer-mappings.db"
	}
	return filepath.Join(home, ".byteracer", "mappings.db")
}

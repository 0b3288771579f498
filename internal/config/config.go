// Package config loads the optional TOML defaults shared by the sample
// j2k-rtp-send and j2k-rtp-recv binaries. Command-line flags always take
// precedence over a value loaded here.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"
)

// Config holds the settings either binary may read from a TOML file.
type Config struct {
	Network NetworkConfig `toml:"network"`
	Session SessionConfig `toml:"session"`
}

// NetworkConfig holds transport settings.
type NetworkConfig struct {
	ListenAddr string `toml:"listen_addr"`
	DialAddr   string `toml:"dial_addr"`
	MTU        int    `toml:"mtu"`
}

// SessionConfig holds RTP session parameters.
type SessionConfig struct {
	PayloadType uint8  `toml:"payload_type"`
	ClockRate   uint32 `toml:"clock_rate"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Network: NetworkConfig{
			ListenAddr: "0.0.0.0:5004",
			DialAddr:   "127.0.0.1:5004",
			MTU:        1500,
		},
		Session: SessionConfig{
			PayloadType: 101,
			ClockRate:   90000,
		},
	}
}

// Load reads path into a Config seeded with Default's values. A missing
// file is not an error: the defaults are returned unchanged.
func Load(path string, logger *zap.Logger) (*Config, error) {
	cfg := Default()

	if path == "" {
		return cfg, nil
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			logger.Debug("config file not found, using defaults", zap.String("path", path))

			return cfg, nil
		}

		return nil, fmt.Errorf("stat config %s: %w", path, err)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}

	logger.Info("loaded config file", zap.String("path", path))

	return cfg, nil
}

package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	GrammarsPath string                     `toml:"grammars_path"`
	HistoryPath  string                     `toml:"history_path"`
	Verification Verification               `toml:"verification"`
	Watch        Watch                      `toml:"watch"`
	Exclude      Exclude                    `toml:"exclude"`
	Server       Server                     `toml:"server"`
	Tracing      Tracing                    `toml:"tracing"`
	Grammars     map[string]GrammarOverride `toml:"grammars"`
}

type Verification struct {
	VerifyArtifacts bool `toml:"verify_artifacts"`
	ProbeParse      bool `toml:"probe_parse"`
	MinABIVersion   int  `toml:"min_abi_version"`
	MaxABIVersion   int  `toml:"max_abi_version"`
}

type Watch struct {
	Debounce time.Duration `toml:"debounce"`
	Rate     float64       `toml:"rate"`  // re-verifications per second
	Burst    int           `toml:"burst"` // burst size for the limiter
}

type Exclude struct {
	Dirs  []string `toml:"dirs"`
	Files []string `toml:"files"`
}

type Server struct {
	Enabled bool   `toml:"enabled"`
	Addr    string `toml:"addr"`
}

type Tracing struct {
	Enabled  bool   `toml:"enabled"`
	Endpoint string `toml:"endpoint"`
}

type GrammarOverride struct {
	Enabled      *bool  `toml:"enabled"`
	SharedObject string `toml:"so_path"`
	Sample       string `toml:"sample"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a usable configuration when no config file exists.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.GrammarsPath == "" {
		cfg.GrammarsPath = "./grammars"
	}
	if cfg.HistoryPath == "" {
		cfg.HistoryPath = "./gramverify.db"
	}
	if cfg.Verification.MinABIVersion == 0 {
		cfg.Verification.MinABIVersion = 13
	}
	if cfg.Verification.MaxABIVersion == 0 {
		cfg.Verification.MaxABIVersion = 15
	}
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}
	if cfg.Watch.Rate == 0 {
		cfg.Watch.Rate = 2
	}
	if cfg.Watch.Burst == 0 {
		cfg.Watch.Burst = 1
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = "127.0.0.1:9614"
	}
}

func validate(cfg *Config) error {
	if cfg.Verification.MinABIVersion > cfg.Verification.MaxABIVersion {
		return fmt.Errorf(
			"min_abi_version %d exceeds max_abi_version %d",
			cfg.Verification.MinABIVersion,
			cfg.Verification.MaxABIVersion,
		)
	}
	if cfg.Watch.Rate < 0 {
		return fmt.Errorf("watch rate must not be negative")
	}
	return nil
}

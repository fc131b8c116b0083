// Package config loads the blackjackd HCL configuration file.
package config

import (
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/rs/zerolog"

	"github.com/MJE43/pf-blackjack/internal/session"
)

// Config is the complete daemon configuration.
type Config struct {
	Server  ServerSettings
	Storage StorageSettings
	Table   TableSettings
}

// ServerSettings contains HTTP and logging settings.
type ServerSettings struct {
	Address   string `hcl:"address,optional"`
	LogLevel  string `hcl:"log_level,optional"`
	LogFormat string `hcl:"log_format,optional"` // console or json
}

// StorageSettings points at the SQLite database.
type StorageSettings struct {
	Path string `hcl:"path,optional"`
}

// TableSettings holds table limits. Amounts are decimal wei strings,
// durations use time.ParseDuration syntax.
type TableSettings struct {
	MinBet              string `hcl:"min_bet,optional"`
	MaxBet              string `hcl:"max_bet,optional"`
	SessionTTL          string `hcl:"session_ttl,optional"`
	SweepInterval       string `hcl:"sweep_interval,optional"`
	InsuranceCapDivisor *int64 `hcl:"insurance_cap_divisor,optional"`
}

type fileConfig struct {
	Server  *ServerSettings  `hcl:"server,block"`
	Storage *StorageSettings `hcl:"storage,block"`
	Table   *TableSettings   `hcl:"table,block"`
}

// Default returns the built-in configuration.
func Default() *Config {
	divisor := int64(2)
	return &Config{
		Server: ServerSettings{
			Address:   "127.0.0.1:8080",
			LogLevel:  "info",
			LogFormat: "console",
		},
		Storage: StorageSettings{
			Path: "blackjack.db",
		},
		Table: TableSettings{
			MinBet:              "1",
			SessionTTL:          "30m",
			SweepInterval:       "1m",
			InsuranceCapDivisor: &divisor,
		},
	}
}

// Load reads configuration from an HCL file. A missing file yields the
// defaults; values absent from the file keep their default.
func Load(filename string) (*Config, error) {
	cfg := Default()
	if filename == "" {
		return cfg, nil
	}
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return cfg, nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var fc fileConfig
	diags = gohcl.DecodeBody(file.Body, nil, &fc)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	if s := fc.Server; s != nil {
		setString(&cfg.Server.Address, s.Address)
		setString(&cfg.Server.LogLevel, s.LogLevel)
		setString(&cfg.Server.LogFormat, s.LogFormat)
	}
	if s := fc.Storage; s != nil {
		setString(&cfg.Storage.Path, s.Path)
	}
	if t := fc.Table; t != nil {
		setString(&cfg.Table.MinBet, t.MinBet)
		setString(&cfg.Table.MaxBet, t.MaxBet)
		setString(&cfg.Table.SessionTTL, t.SessionTTL)
		setString(&cfg.Table.SweepInterval, t.SweepInterval)
		if t.InsuranceCapDivisor != nil {
			cfg.Table.InsuranceCapDivisor = t.InsuranceCapDivisor
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// Validate checks every setting.
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("server address is required")
	}
	if _, err := zerolog.ParseLevel(c.Server.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level %q: %w", c.Server.LogLevel, err)
	}
	if c.Server.LogFormat != "console" && c.Server.LogFormat != "json" {
		return fmt.Errorf("invalid log_format %q: want console or json", c.Server.LogFormat)
	}
	if c.Storage.Path == "" {
		return fmt.Errorf("storage path is required")
	}
	_, err := c.SessionConfig()
	return err
}

// SessionConfig converts the table block into session settings.
func (c *Config) SessionConfig() (session.Config, error) {
	out := session.DefaultConfig()

	minBet, err := parseWei("min_bet", c.Table.MinBet)
	if err != nil {
		return out, err
	}
	if minBet == nil || minBet.Sign() <= 0 {
		return out, fmt.Errorf("min_bet must be positive")
	}
	out.MinBet = minBet

	if out.MaxBet, err = parseWei("max_bet", c.Table.MaxBet); err != nil {
		return out, err
	}
	if out.MaxBet != nil && out.MaxBet.Cmp(out.MinBet) < 0 {
		return out, fmt.Errorf("max_bet %s is below min_bet %s", out.MaxBet, out.MinBet)
	}

	if out.SessionTTL, err = parseDuration("session_ttl", c.Table.SessionTTL); err != nil {
		return out, err
	}
	if out.SweepInterval, err = parseDuration("sweep_interval", c.Table.SweepInterval); err != nil {
		return out, err
	}

	if c.Table.InsuranceCapDivisor != nil {
		if *c.Table.InsuranceCapDivisor < 0 {
			return out, fmt.Errorf("insurance_cap_divisor must not be negative")
		}
		out.InsuranceCapDivisor = *c.Table.InsuranceCapDivisor
	}
	return out, nil
}

func parseWei(name, s string) (*big.Int, error) {
	if s == "" {
		return nil, nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("invalid %s %q: want a non-negative integer amount in wei", name, s)
	}
	return v, nil
}

func parseDuration(name, s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive", name)
	}
	return d, nil
}

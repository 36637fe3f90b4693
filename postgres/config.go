// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package postgres

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of the environment variables read by LoadConfig.
const EnvPrefix = "SQLQUERY_"

// Config holds the connection settings of a PostgreSQL database.
type Config struct {
	// DSN is a complete connection string. When set, the other connection
	// fields are ignored.
	DSN      string `koanf:"dsn"`
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Database string `koanf:"database"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	SSLMode  string `koanf:"sslmode"`

	// MaxConns bounds the size of the connection pool. Zero keeps the pgx
	// default.
	MaxConns int32 `koanf:"max_conns"`
	// StatementTimeout aborts statements running longer than this. Zero
	// disables the timeout.
	StatementTimeout time.Duration `koanf:"statement_timeout"`
}

var defaults = map[string]any{
	"host":    "localhost",
	"port":    5432,
	"sslmode": "disable",
}

// LoadConfig loads the configuration. Values are taken, from lowest to
// highest precedence, from the defaults, the YAML file at path if path is
// not empty, and SQLQUERY_* environment variables.
func LoadConfig(path string) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, fmt.Errorf("cannot load defaults: %w", err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("cannot load config file %q: %w", path, err)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("cannot load environment: %w", err)
	}
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the configuration can be used to connect.
func (c *Config) Validate() error {
	if c.DSN != "" {
		return nil
	}
	if c.Database == "" {
		return fmt.Errorf("invalid config: database is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid config: port %d out of range", c.Port)
	}
	if c.MaxConns < 0 {
		return fmt.Errorf("invalid config: max_conns cannot be negative")
	}
	return nil
}

// ConnString returns the connection string in URL form.
func (c *Config) ConnString() string {
	if c.DSN != "" {
		return c.DSN
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   c.Host + ":" + strconv.Itoa(c.Port),
		Path:   "/" + c.Database,
	}
	if c.User != "" {
		if c.Password != "" {
			u.User = url.UserPassword(c.User, c.Password)
		} else {
			u.User = url.User(c.User)
		}
	}
	q := url.Values{}
	if c.SSLMode != "" {
		q.Set("sslmode", c.SSLMode)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

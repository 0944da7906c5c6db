// Package config loads server configuration from the environment.
package config

import (
	"fmt"
	"net"

	"github.com/caarlos0/env/v11"
)

// Config is the server configuration. Command-line flags override it.
type Config struct {
	Host        string  `env:"HOST" envDefault:"0.0.0.0"`
	Port        int     `env:"PORT" envDefault:"8080"`
	GRPCPort    int     `env:"GRPC_PORT" envDefault:"8081"`
	ProblemsDir string  `env:"PROBLEMS_DIR"`
	Tolerance   float64 `env:"FORMULA_TOLERANCE" envDefault:"1e-6"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks ranges.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.GRPCPort <= 0 || c.GRPCPort > 65535 {
		return fmt.Errorf("invalid gRPC port %d", c.GRPCPort)
	}
	if c.Tolerance <= 0 || c.Tolerance >= 1 {
		return fmt.Errorf("tolerance must be in (0, 1), got %g", c.Tolerance)
	}
	return nil
}

// HTTPAddr is the REST listen address.
func (c Config) HTTPAddr() string {
	return net.JoinHostPort(c.Host, fmt.Sprint(c.Port))
}

// GRPCAddr is the gRPC listen address.
func (c Config) GRPCAddr() string {
	return net.JoinHostPort(c.Host, fmt.Sprint(c.GRPCPort))
}

package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Load fills cfg from the process environment using its `env` and
// `envDefault` struct tags.
//
//	type Config struct {
//	    HTTPPort    int    `env:"HTTP_PORT" envDefault:"8080"`
//	    GibrapayURL string `env:"GIBRAPAY_BASE_URL" envDefault:"https://gibrapay.online/api"`
//	}
func Load(cfg any) error {
	return LoadWithPrefix(cfg, "")
}

// LoadWithPrefix is Load with every variable name prefixed, e.g. "STOREFRONT_".
func LoadWithPrefix(cfg any, prefix string) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: prefix}); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

// Package config loads engine settings from the process environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Prefix is prepended to every variable name read by Load.
const Prefix = "RULESHEET_"

// Load parses environment variables into target with Prefix applied to every
// `env` tag, so structs can declare short names such as `env:"MAX_DEPTH"`.
func Load(target any) error {
	if err := env.ParseWithOptions(target, env.Options{Prefix: Prefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

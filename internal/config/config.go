// Package config loads the deployment configuration from the environment.
//
// Every knob is an environment variable (twelve-factor style). A local .env
// file is honoured when present — convenient in development, a no-op in
// production where the variables come from the process manager.
package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds every setting the server needs. envconfig fills it from the
// environment: the struct tag names the variable, `default` applies when it
// is unset.
type Config struct {
	Port       int    `envconfig:"PORT" default:"3000"`
	DataDir    string `envconfig:"DATA_DIR" default:"data"`
	PublicDir  string `envconfig:"PUBLIC_DIR" default:"public"`
	PrivateDir string `envconfig:"PRIVATE_DIR" default:"private"`

	// Access gate credentials. When both AdminUser and AdminPass are set the
	// gate runs in credential-pair (Basic auth) mode; otherwise AdminKey is
	// the shared secret. All empty → privileged routes are sealed.
	AdminUser string `envconfig:"ADMIN_USER"`
	AdminPass string `envconfig:"ADMIN_PASS"`
	AdminKey  string `envconfig:"ADMIN_KEY"`

	// SessionSecret enables the optional admin login sessions (JWT cookie).
	// Empty disables the /api/admin/login route entirely.
	SessionSecret string `envconfig:"ADMIN_SESSION_SECRET"`
}

// Load reads the optional .env file and then the environment.
// A missing .env is not an error; a malformed variable (e.g. PORT=abc) is.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parsing environment: %w", err)
	}
	return cfg, nil
}

package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/careops/measuresync/internal/db"
)

// Server carries the process-level settings. Loaded once at startup; the
// registry of system profiles is loaded separately and passed explicitly.
type Server struct {
	Addr        string
	Env         string
	ConfigDir   string
	Migrations  string
	CORSOrigins []string
	Database    db.Config
}

// Load reads config.yaml from configPath with environment overrides
// (MSYNC_SERVER_ADDR, MSYNC_DATABASE_HOST, ...).
func Load(configPath string) (Server, error) {
	cfg := Server{
		Addr:        ":8080",
		Env:         "development",
		ConfigDir:   "./configs",
		Migrations:  "./migrations",
		CORSOrigins: []string{"http://localhost:3000"},
		Database:    db.DefaultConfig(),
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AutomaticEnv()
	v.SetEnvPrefix("MSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.BindEnv("server.addr")
	v.BindEnv("server.env")
	v.BindEnv("server.config_dir")
	v.BindEnv("server.migrations")
	v.BindEnv("database.host")
	v.BindEnv("database.port")
	v.BindEnv("database.user")
	v.BindEnv("database.password")
	v.BindEnv("database.dbname")
	v.BindEnv("database.sslmode")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return cfg, fmt.Errorf("failed to read config: %w", err)
		}
		// No config.yaml: defaults plus env vars apply.
	}

	if v.IsSet("server.addr") {
		cfg.Addr = v.GetString("server.addr")
	}
	if v.IsSet("server.env") {
		cfg.Env = v.GetString("server.env")
	}
	if v.IsSet("server.config_dir") {
		cfg.ConfigDir = v.GetString("server.config_dir")
	}
	if v.IsSet("server.migrations") {
		cfg.Migrations = v.GetString("server.migrations")
	}
	if v.IsSet("server.cors_origins") {
		cfg.CORSOrigins = v.GetStringSlice("server.cors_origins")
	}
	if v.IsSet("database.host") {
		cfg.Database.Host = v.GetString("database.host")
	}
	if v.IsSet("database.port") {
		cfg.Database.Port = v.GetInt("database.port")
	}
	if v.IsSet("database.user") {
		cfg.Database.User = v.GetString("database.user")
	}
	if v.IsSet("database.password") {
		cfg.Database.Password = v.GetString("database.password")
	}
	if v.IsSet("database.dbname") {
		cfg.Database.DBName = v.GetString("database.dbname")
	}
	if v.IsSet("database.sslmode") {
		cfg.Database.SSLMode = v.GetString("database.sslmode")
	}

	return cfg, nil
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/org/svnportal/internal/api"
	"github.com/org/svnportal/internal/state"
	"github.com/org/svnportal/pkg/models"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

type config struct {
	ListenAddr    string `yaml:"listen_addr"`
	TLSCertFile   string `yaml:"tls_cert"`
	TLSKeyFile    string `yaml:"tls_key"`
	DBUrl         string `yaml:"db_url"`
	MigrationsDir string `yaml:"migrations_dir"`
	LogLevel      string `yaml:"log_level"`
	DefaultAccess string `yaml:"default_access"`
	AuthzFile     string `yaml:"authz_file"`
	SessionTTL    string `yaml:"session_ttl"`
	AdminUser     string `yaml:"admin_user"`
	AdminPassword string `yaml:"admin_password"`
}

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Load config
	cfgFile := "config.yaml"
	if v := os.Getenv("PORTAL_CONFIG"); v != "" {
		cfgFile = v
	}

	cfg := config{
		ListenAddr:    ":8480",
		MigrationsDir: "migrations",
		LogLevel:      "info",
		DefaultAccess: "none",
		AdminUser:     "admin",
	}

	if data, err := os.ReadFile(cfgFile); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Fatal().Err(err).Msg("failed to parse config")
		}
	} else {
		log.Warn().Str("file", cfgFile).Msg("config file not found, using defaults")
	}

	// Env overrides
	if v := os.Getenv("PORTAL_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DBUrl = v
	}
	if v := os.Getenv("PORTAL_ADMIN_PASSWORD"); v != "" {
		cfg.AdminPassword = v
	}

	// Set log level
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	defaultAccess, err := models.ParseAccessLevel(cfg.DefaultAccess)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid default_access")
	}

	var sessionTTL time.Duration
	if cfg.SessionTTL != "" {
		sessionTTL, err = time.ParseDuration(cfg.SessionTTL)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid session_ttl")
		}
	}

	if cfg.DBUrl == "" {
		log.Fatal().Msg("db_url must be configured (or DATABASE_URL env var)")
	}

	ctx := context.Background()

	// Connect to database
	store, err := state.NewPostgresStore(ctx, cfg.DBUrl)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer store.Close()

	// Run migrations
	if err := state.RunMigrations(cfg.DBUrl, cfg.MigrationsDir); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}
	log.Info().Msg("migrations applied")

	// Create server
	srv := api.NewServer(store, api.Config{
		ListenAddr:    cfg.ListenAddr,
		TLSCertFile:   cfg.TLSCertFile,
		TLSKeyFile:    cfg.TLSKeyFile,
		SessionTTL:    sessionTTL,
		DefaultAccess: defaultAccess,
		AuthzFilePath: cfg.AuthzFile,
	})

	// Bootstrap the first administrator account if the store is empty.
	if cfg.AdminPassword != "" {
		created, err := srv.Directory().EnsureAdmin(ctx, cfg.AdminUser, cfg.AdminPassword)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to bootstrap admin account")
		}
		if created {
			log.Info().Str("username", cfg.AdminUser).Msg("bootstrap admin account created")
		}
	}

	// Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	log.Info().Str("addr", cfg.ListenAddr).Msg("server started")
	<-quit

	log.Info().Msg("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
	log.Info().Msg("server stopped")
}

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"poem/internal/auth"
	"poem/internal/config"
	"poem/internal/database"
	"poem/internal/logging"
	"poem/internal/server"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
)

type cli struct {
	config.Config `embed:""`

	Serve   serveCmd   `cmd:"" default:"1" help:"Run the HTTP server."`
	Migrate migrateCmd `cmd:"" help:"Apply database migrations and exit."`
	Token   tokenCmd   `cmd:"" help:"Print an admin bearer token."`
}

type serveCmd struct{}

func (serveCmd) Run(cfg *config.Config, logger *log.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	s, err := server.Init(ctx, cfg, logger)
	cancel()
	if err != nil {
		return fmt.Errorf("❌ Server initialization failed: %w", err)
	}
	return s.Run()
}

type migrateCmd struct{}

func (migrateCmd) Run(cfg *config.Config, logger *log.Logger) error {
	changed, err := database.Migrate(context.Background(), cfg.DSN())
	if err != nil {
		return err
	}
	if changed {
		logger.Info("✅ Migrations applied")
	} else {
		logger.Info("✅ Schema is up to date")
	}
	return nil
}

type tokenCmd struct {
	Subject string `required:"" help:"Name recorded as the token subject."`
}

func (t tokenCmd) Run(cfg *config.Config) error {
	token, err := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTExpiry).GenerateToken(t.Subject, auth.RoleAdmin)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

func main() {
	// The level is not known before parsing; .env warnings go out at info.
	boot := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})
	config.LoadEnv(boot)

	var c cli
	kctx := kong.Parse(&c,
		kong.Name("poem"),
		kong.Description("Poem API server."),
		kong.UsageOnError(),
	)

	logger, err := logging.New(os.Stderr, c.LogLevel)
	if err != nil {
		boot.Fatal("❌ Invalid log level", "err", err)
	}

	err = kctx.Run(&c.Config, logger)
	kctx.FatalIfErrorf(err)
}

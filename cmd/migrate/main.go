package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/anavasquez/restyle-backend/pkg/config"
	"github.com/anavasquez/restyle-backend/pkg/db"
	"github.com/anavasquez/restyle-backend/pkg/logger"
	"github.com/anavasquez/restyle-backend/pkg/migrate"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "migrate"})

	_ = godotenv.Load()

	cmd := flag.String("cmd", "up", "migration command: up|down|status|version")
	dir := flag.String("dir", migrate.DefaultDir, "goose migrations directory")
	flag.Parse()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx = logg.WithFields(context.Background(), map[string]any{
		"env": cfg.App.Env,
		"cmd": *cmd,
		"dir": *dir,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	requireResource(ctx, logg, "sql database", err)

	switch *cmd {
	case "version":
		version, err := migrate.Version(sqlDB)
		requireResource(ctx, logg, "migration version", err)
		fmt.Println("current migration version:", version)
	case "up", "down", "status":
		err := migrate.Run(ctx, sqlDB, *dir, *cmd)
		requireResource(ctx, logg, "migration run", err)
		logg.Info(ctx, "migration command completed")
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", *cmd)
		os.Exit(1)
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, what string, err error) {
	if err != nil {
		logg.Error(ctx, "failed to acquire "+what, err)
		os.Exit(1)
	}
}

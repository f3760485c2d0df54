package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/ignite/salon-crm/internal/bootstrap"
	"github.com/ignite/salon-crm/internal/migrate"
	"github.com/ignite/salon-crm/internal/pkg/logger"
	"github.com/ignite/salon-crm/internal/repository/postgres"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config file")
	steps := flag.Int("steps", 1, "number of migrations to roll back with down")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: migrate [-config path] [-steps n] up|down|version\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	cmd := "up"
	if flag.NArg() > 0 {
		cmd = flag.Arg(0)
	}

	cfg, err := bootstrap.LoadConfig(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	db, err := postgres.Open(context.Background(), cfg.Database)
	if err != nil {
		logger.Error("failed to connect", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	switch cmd {
	case "up":
		err = migrate.Up(db)
	case "down":
		err = migrate.Down(db, *steps)
	case "version":
		var (
			v     uint
			dirty bool
		)
		v, dirty, err = migrate.Version(db)
		if err == nil {
			fmt.Printf("version %d dirty=%t\n", v, dirty)
		}
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		logger.Error("migration failed", "command", cmd, "error", err)
		db.Close()
		os.Exit(1)
	}
	logger.Info("migration finished", "command", cmd)
}

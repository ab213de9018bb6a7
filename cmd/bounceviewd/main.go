package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/emurenMRz/mboxbounce/internal/config"
	"github.com/emurenMRz/mboxbounce/internal/server"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to YAML configuration file (optional)")
		path       = flag.String("path", "", "path to mbox files (overrides config)")
		listen     = flag.String("listen", "", "listen address (overrides config)")
	)
	flag.Parse()

	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.LoadFromFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if *path != "" {
		cfg.Server.BasePath = *path
	}
	if *listen != "" {
		cfg.Server.Listen = *listen
	}

	log := config.NewLogger(cfg.Logging, os.Stdout)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	log.Info("listening", "addr", cfg.Server.Listen, "path", cfg.Server.BasePath)
	if err := server.New(cfg.Server.BasePath, log).ListenAndServe(ctx, cfg.Server.Listen); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	log.Info("stopped")
}

// Command bouncemail classifies the bounces in an IMAP mailbox or mbox file
// and deletes or files them according to the configured policy.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/emurenMRz/mboxbounce/internal/config"
	"github.com/emurenMRz/mboxbounce/internal/mailbox"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to YAML configuration file (optional)")
		testMode   = flag.Bool("test", false, "classify only, never change the mailbox")
		maxMsgs    = flag.Int("max", 0, "maximum number of messages to read (overrides config)")
		mboxPath   = flag.String("mbox", "", "read this mbox file instead of the configured mailbox")
		delBefore  = flag.String("delete-before", "", "purge mail dated before YYYY-MM-DD from every folder but sent ones (overrides config)")
	)
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if *testMode {
		cfg.Processing.TestMode = true
	}
	if *maxMsgs > 0 {
		cfg.Processing.MaxMessages = *maxMsgs
	}
	if *delBefore != "" {
		cfg.Processing.DeleteBefore = *delBefore
	}
	if *mboxPath != "" {
		cfg.Mailbox.Kind = config.KindMbox
		cfg.Mailbox.Path = *mboxPath
	}

	log := config.NewLogger(cfg.Logging, os.Stdout)
	slog.SetDefault(log)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	src, err := openSource(ctx, cfg)
	if err != nil {
		log.Error("failed to open mailbox", "kind", cfg.Mailbox.Kind, "error", err)
		os.Exit(1)
	}

	opts := cfg.ProcessorOptions()
	opts.Logger = log
	proc, err := mailbox.NewProcessor(opts, mailbox.LogHandler(log))
	if err != nil {
		log.Error("failed to create processor", "error", err)
		src.Close(ctx)
		os.Exit(1)
	}

	stats, runErr := proc.Run(ctx, src)
	// Marks already applied are committed even when the run was cut short.
	if err := src.Close(context.Background()); err != nil {
		log.Error("failed to close mailbox", "error", err)
		os.Exit(1)
	}
	if runErr != nil {
		log.Error("run aborted", "error", runErr, "read", stats.Fetched)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

func openSource(ctx context.Context, cfg *config.Config) (mailbox.Source, error) {
	if cfg.Mailbox.Kind == config.KindMbox {
		return mailbox.OpenMbox(cfg.Mailbox.Path, cfg.Processing.TestMode)
	}
	return mailbox.DialIMAP(ctx, cfg.IMAPOptions())
}

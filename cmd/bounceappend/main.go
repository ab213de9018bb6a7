// Command bounceappend is a delivery agent for bounce addresses. It reads
// one message on stdin, classifies it and appends it to an mbox file in the
// report directory: hard bounces to the hard mailbox, other recognized
// bounces to the soft mailbox and everything else to INBOX.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/emurenMRz/mboxbounce/internal/bounce"
	"github.com/emurenMRz/mboxbounce/internal/config"
	"github.com/emurenMRz/mboxbounce/internal/mailbox"
)

const exTempFail = 75

func main() {
	var (
		configPath = flag.String("config", "", "path to YAML configuration file (optional)")
		dir        = flag.String("dir", "", "directory of mbox files (overrides server.base_path)")
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
		fail("cannot load configuration: %v", err)
	}
	if *dir != "" {
		cfg.Server.BasePath = *dir
	}
	log := config.NewLogger(cfg.Logging, os.Stderr)

	raw, err := io.ReadAll(os.Stdin)
	if err != nil {
		fail("read error: %v", err)
	}

	msg := mailbox.ParseMessage(raw)
	res, _ := mailbox.Classify(msg)
	folder := folderFor(res, cfg.Processing)

	path, err := mailbox.FolderPath(cfg.Server.BasePath, folder)
	if err != nil {
		fail("bad folder %q: %v", folder, err)
	}
	if err := mailbox.AppendMbox(path, raw); err != nil {
		fail("cannot append to %s: %v", path, err)
	}
	log.Info("delivered",
		"folder", folder,
		"rule", res.RuleID,
		"category", res.Category,
		"bounce_type", res.BounceType,
		"email", res.Email,
	)
}

func folderFor(res bounce.Result, p config.ProcessingConfig) string {
	switch {
	case !res.Matched():
		return "INBOX"
	case res.BounceType == bounce.SeverityHard:
		return p.HardMailbox
	default:
		return p.SoftMailbox
	}
}

// fail exits with EX_TEMPFAIL so the MTA retries delivery later.
func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(exTempFail)
}

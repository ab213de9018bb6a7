// Package config loads the bounce processor configuration from YAML and
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/emurenMRz/mboxbounce/internal/mailbox"
)

// Mailbox kinds.
const (
	KindIMAP = "imap"
	KindMbox = "mbox"
)

// Config holds all configuration for the bounce tools.
type Config struct {
	Mailbox    MailboxConfig    `yaml:"mailbox"`
	Processing ProcessingConfig `yaml:"processing"`
	Logging    LoggingConfig    `yaml:"logging"`
	Server     ServerConfig     `yaml:"server"`
}

// MailboxConfig selects the mailbox to read bounces from.
type MailboxConfig struct {
	Kind     string `yaml:"kind"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	TLS      string `yaml:"tls"`
	Name     string `yaml:"name"`
	Path     string `yaml:"path"`
}

// ProcessingConfig controls what happens to classified messages.
type ProcessingConfig struct {
	MaxMessages      int    `yaml:"max_messages"`
	TestMode         bool   `yaml:"test_mode"`
	DisableDelete    bool   `yaml:"disable_delete"`
	PurgeUnprocessed bool   `yaml:"purge_unprocessed"`
	MoveHard         bool   `yaml:"move_hard"`
	HardMailbox      string `yaml:"hard_mailbox"`
	MoveSoft         bool   `yaml:"move_soft"`
	SoftMailbox      string `yaml:"soft_mailbox"`
	// DeleteBefore is a YYYY-MM-DD date; older mail is purged from every
	// folder except sent ones.
	DeleteBefore string `yaml:"delete_before"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ServerConfig holds the report service settings.
type ServerConfig struct {
	Listen   string `yaml:"listen"`
	BasePath string `yaml:"base_path"`
}

// Load builds configuration from defaults and environment variables only.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()
	if err := cfg.applyEnvVars(); err != nil {
		return nil, err
	}
	cfg.normalize()
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file as the base layer,
// then overrides with environment variables.
func LoadFromFile(path string) (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.applyEnvVars(); err != nil {
		return nil, err
	}
	cfg.normalize()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	c.Mailbox.Kind = KindIMAP
	c.Mailbox.Port = 143
	c.Mailbox.TLS = mailbox.SecurityNone
	c.Mailbox.Name = "INBOX"
	c.Processing.MaxMessages = mailbox.DefaultMaxMessages
	c.Processing.HardMailbox = "INBOX.hard"
	c.Processing.SoftMailbox = "INBOX.soft"
	c.Logging.Level = "info"
	c.Logging.Format = "json"
	c.Server.Listen = ":8080"
	c.Server.BasePath = "."
}

// applyEnvVars overrides configuration with environment variable values.
// Only non-empty variables are applied; malformed numbers and booleans are
// reported.
func (c *Config) applyEnvVars() error {
	var errs []error

	str := func(name string, dst *string) {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
	num := func(name string, dst *int) {
		if v := os.Getenv(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = n
		}
	}
	flag := func(name string, dst *bool) {
		if v := os.Getenv(name); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = b
		}
	}

	str("BOUNCE_MAILBOX_KIND", &c.Mailbox.Kind)
	str("BOUNCE_MAILBOX_HOST", &c.Mailbox.Host)
	num("BOUNCE_MAILBOX_PORT", &c.Mailbox.Port)
	str("BOUNCE_MAILBOX_USERNAME", &c.Mailbox.Username)
	str("BOUNCE_MAILBOX_PASSWORD", &c.Mailbox.Password)
	str("BOUNCE_MAILBOX_TLS", &c.Mailbox.TLS)
	str("BOUNCE_MAILBOX_NAME", &c.Mailbox.Name)
	str("BOUNCE_MAILBOX_PATH", &c.Mailbox.Path)

	num("BOUNCE_MAX_MESSAGES", &c.Processing.MaxMessages)
	flag("BOUNCE_TEST_MODE", &c.Processing.TestMode)
	flag("BOUNCE_DISABLE_DELETE", &c.Processing.DisableDelete)
	flag("BOUNCE_PURGE_UNPROCESSED", &c.Processing.PurgeUnprocessed)
	flag("BOUNCE_MOVE_HARD", &c.Processing.MoveHard)
	str("BOUNCE_HARD_MAILBOX", &c.Processing.HardMailbox)
	flag("BOUNCE_MOVE_SOFT", &c.Processing.MoveSoft)
	str("BOUNCE_SOFT_MAILBOX", &c.Processing.SoftMailbox)
	str("BOUNCE_DELETE_BEFORE", &c.Processing.DeleteBefore)

	str("LOG_LEVEL", &c.Logging.Level)
	str("LOG_FORMAT", &c.Logging.Format)

	str("BOUNCE_LISTEN", &c.Server.Listen)
	str("BOUNCE_BASE_PATH", &c.Server.BasePath)

	return errors.Join(errs...)
}

// normalize lowercases enumerations and applies the mailbox rules: moving
// hard bounces keeps them out of deletion, and Gmail has no folder moves.
func (c *Config) normalize() {
	c.Mailbox.Kind = strings.ToLower(c.Mailbox.Kind)
	c.Mailbox.TLS = strings.ToLower(c.Mailbox.TLS)
	c.Logging.Level = strings.ToLower(c.Logging.Level)
	c.Logging.Format = strings.ToLower(c.Logging.Format)

	if c.Processing.MoveHard {
		c.Processing.DisableDelete = true
	}
	if strings.Contains(strings.ToLower(c.Mailbox.Host), "gmail") {
		c.Processing.MoveHard = false
		c.Processing.MoveSoft = false
	}
}

// Validate reports every invalid field.
func (c *Config) Validate() error {
	var errs []error

	switch c.Mailbox.Kind {
	case KindIMAP:
		if c.Mailbox.Host == "" {
			errs = append(errs, errors.New("mailbox.host is required for imap"))
		}
		if c.Mailbox.Port <= 0 || c.Mailbox.Port > 65535 {
			errs = append(errs, fmt.Errorf("mailbox.port %d out of range", c.Mailbox.Port))
		}
		if c.Mailbox.Username == "" {
			errs = append(errs, errors.New("mailbox.username is required for imap"))
		}
		switch c.Mailbox.TLS {
		case mailbox.SecurityNone, mailbox.SecurityStartTLS, mailbox.SecurityTLS:
		default:
			errs = append(errs, fmt.Errorf("mailbox.tls %q must be none, starttls or tls", c.Mailbox.TLS))
		}
	case KindMbox:
		if c.Mailbox.Path == "" {
			errs = append(errs, errors.New("mailbox.path is required for mbox"))
		}
	default:
		errs = append(errs, fmt.Errorf("mailbox.kind %q must be imap or mbox", c.Mailbox.Kind))
	}

	if c.Processing.MaxMessages < 0 {
		errs = append(errs, errors.New("processing.max_messages must not be negative"))
	}
	if c.Processing.MoveHard {
		if err := mailbox.ValidateFolder(c.Processing.HardMailbox); err != nil {
			errs = append(errs, fmt.Errorf("processing.hard_mailbox: %w", err))
		}
	}
	if c.Processing.MoveSoft {
		if err := mailbox.ValidateFolder(c.Processing.SoftMailbox); err != nil {
			errs = append(errs, fmt.Errorf("processing.soft_mailbox: %w", err))
		}
	}
	if _, err := c.Processing.deleteBefore(); err != nil {
		errs = append(errs, fmt.Errorf("processing.delete_before %q must be a YYYY-MM-DD date", c.Processing.DeleteBefore))
	}

	if _, ok := levels[c.Logging.Level]; !ok {
		errs = append(errs, fmt.Errorf("logging.level %q is unknown", c.Logging.Level))
	}
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		errs = append(errs, fmt.Errorf("logging.format %q must be json or text", c.Logging.Format))
	}

	return errors.Join(errs...)
}

// ProcessorOptions converts the processing section for mailbox.NewProcessor.
// An invalid delete_before, which Validate reports, leaves the purge off.
func (c *Config) ProcessorOptions() mailbox.Options {
	p := c.Processing
	deleteBefore, _ := p.deleteBefore()
	return mailbox.Options{
		MaxMessages:      p.MaxMessages,
		TestMode:         p.TestMode,
		DisableDelete:    p.DisableDelete,
		PurgeUnprocessed: p.PurgeUnprocessed,
		MoveHard:         p.MoveHard,
		HardMailbox:      p.HardMailbox,
		MoveSoft:         p.MoveSoft,
		SoftMailbox:      p.SoftMailbox,
		DeleteBefore:     deleteBefore,
	}
}

// deleteBefore is local midnight of the delete_before date, zero when unset.
func (p ProcessingConfig) deleteBefore() (time.Time, error) {
	if p.DeleteBefore == "" {
		return time.Time{}, nil
	}
	return time.ParseInLocation(time.DateOnly, p.DeleteBefore, time.Local)
}

// IMAPOptions converts the mailbox section for mailbox.DialIMAP. Test mode
// opens the mailbox read-only.
func (c *Config) IMAPOptions() mailbox.IMAPOptions {
	m := c.Mailbox
	return mailbox.IMAPOptions{
		Host:     m.Host,
		Port:     m.Port,
		Username: m.Username,
		Password: m.Password,
		Security: m.TLS,
		Mailbox:  m.Name,
		ReadOnly: c.Processing.TestMode,
	}
}

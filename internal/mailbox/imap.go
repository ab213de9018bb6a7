package mailbox

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"slices"
	"strconv"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
)

// Connection security for IMAPOptions.Security.
const (
	SecurityNone     = "none"
	SecurityStartTLS = "starttls"
	SecurityTLS      = "tls"
)

type IMAPOptions struct {
	Host     string
	Port     int
	Username string
	Password string
	Security string
	Mailbox  string
	// ReadOnly selects the mailbox with EXAMINE; nothing is flagged or expunged.
	ReadOnly  bool
	TLSConfig *tls.Config
	Timeout   time.Duration
}

// IMAPSource is a selected IMAP mailbox.
type IMAPSource struct {
	c        *client.Client
	mailbox  string
	status   *imap.MailboxStatus
	readOnly bool
	folders  map[string]bool // known to exist
}

// DialIMAP connects, logs in and selects opts.Mailbox.
func DialIMAP(ctx context.Context, opts IMAPOptions) (*IMAPSource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	addr := net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port))
	tlsConfig := opts.TLSConfig
	if tlsConfig == nil {
		tlsConfig = &tls.Config{ServerName: opts.Host}
	}

	var (
		c   *client.Client
		err error
	)
	switch opts.Security {
	case SecurityTLS:
		c, err = client.DialTLS(addr, tlsConfig)
	case SecurityNone, SecurityStartTLS, "":
		c, err = client.Dial(addr)
	default:
		return nil, fmt.Errorf("unknown IMAP security %q", opts.Security)
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", addr, err)
	}
	if opts.Timeout > 0 {
		c.Timeout = opts.Timeout
	}

	if opts.Security == SecurityStartTLS {
		if err := c.StartTLS(tlsConfig); err != nil {
			c.Logout()
			return nil, fmt.Errorf("starttls: %w", err)
		}
	}
	if err := c.Login(opts.Username, opts.Password); err != nil {
		c.Logout()
		return nil, fmt.Errorf("login as %s: %w", opts.Username, err)
	}

	name := opts.Mailbox
	if name == "" {
		name = "INBOX"
	}
	status, err := c.Select(name, opts.ReadOnly)
	if err != nil {
		c.Logout()
		return nil, fmt.Errorf("selecting %s: %w", name, err)
	}
	return &IMAPSource{c: c, mailbox: name, status: status, readOnly: opts.ReadOnly, folders: map[string]bool{}}, nil
}

func (s *IMAPSource) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return int(s.status.Messages), nil
}

func seq(n int) *imap.SeqSet {
	set := new(imap.SeqSet)
	set.AddNum(uint32(n))
	return set
}

// Fetch reads the full message with BODY.PEEK[] so the \Seen flag is left
// alone.
func (s *IMAPSource) Fetch(ctx context.Context, n int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{section.FetchItem()}

	messages := make(chan *imap.Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- s.c.Fetch(seq(n), items, messages)
	}()

	var raw []byte
	var readErr error
	for msg := range messages {
		if raw != nil || readErr != nil {
			continue
		}
		body := msg.GetBody(section)
		if body == nil {
			readErr = errors.New("server returned no body")
			continue
		}
		raw, readErr = io.ReadAll(body)
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("fetching message %d: %w", n, err)
	}
	if readErr != nil {
		return nil, fmt.Errorf("fetching message %d: %w", n, readErr)
	}
	if raw == nil {
		return nil, fmt.Errorf("fetching message %d: no such message", n)
	}
	return raw, nil
}

func (s *IMAPSource) Delete(ctx context.Context, n int) error {
	if s.readOnly {
		return ErrReadOnly
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	item := imap.FormatFlagsOp(imap.AddFlags, true)
	if err := s.c.Store(seq(n), item, []interface{}{imap.DeletedFlag}, nil); err != nil {
		return fmt.Errorf("flagging message %d deleted: %w", n, err)
	}
	return nil
}

// Move copies message n into folder, creating it when missing, and flags the
// original deleted.
func (s *IMAPSource) Move(ctx context.Context, n int, folder string) error {
	if s.readOnly {
		return ErrReadOnly
	}
	if err := ValidateFolder(folder); err != nil {
		return err
	}
	if err := s.ensureFolder(ctx, folder); err != nil {
		return err
	}
	if err := s.c.Copy(seq(n), folder); err != nil {
		return fmt.Errorf("copying message %d to %s: %w", n, folder, err)
	}
	return s.Delete(ctx, n)
}

func (s *IMAPSource) ensureFolder(ctx context.Context, folder string) error {
	if s.folders[folder] {
		return nil
	}
	mailboxes, err := s.list(ctx, folder)
	if err != nil {
		return err
	}
	found := slices.ContainsFunc(mailboxes, func(m *imap.MailboxInfo) bool { return m.Name == folder })
	if !found {
		if err := s.c.Create(folder); err != nil {
			return fmt.Errorf("creating %s: %w", folder, err)
		}
	}
	s.folders[folder] = true
	return nil
}

func (s *IMAPSource) list(ctx context.Context, pattern string) ([]*imap.MailboxInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	mailboxes := make(chan *imap.MailboxInfo, 10)
	done := make(chan error, 1)
	go func() {
		done <- s.c.List("", pattern, mailboxes)
	}()
	var out []*imap.MailboxInfo
	for m := range mailboxes {
		out = append(out, m)
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("listing %s: %w", pattern, err)
	}
	return out, nil
}

// PurgeBefore expunges the messages with an internal date before before from
// every selectable folder, then selects the opened mailbox again. Marks
// already set on the opened mailbox are expunged with it, so call it before
// processing.
func (s *IMAPSource) PurgeBefore(ctx context.Context, before time.Time) (map[string]int, error) {
	if s.readOnly {
		return nil, ErrReadOnly
	}
	mailboxes, err := s.list(ctx, "*")
	if err != nil {
		return nil, err
	}

	purged := map[string]int{}
	var errs []error
	for _, m := range mailboxes {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if slices.Contains(m.Attributes, imap.NoSelectAttr) || !purgeable(m.Name) {
			continue
		}
		n, err := s.purgeFolder(m.Name, before)
		if err != nil {
			errs = append(errs, fmt.Errorf("purging %s: %w", m.Name, err))
			continue
		}
		if n > 0 {
			purged[m.Name] = n
		}
	}

	status, err := s.c.Select(s.mailbox, false)
	if err != nil {
		errs = append(errs, fmt.Errorf("selecting %s: %w", s.mailbox, err))
	} else {
		s.status = status
	}
	return purged, errors.Join(errs...)
}

func (s *IMAPSource) purgeFolder(folder string, before time.Time) (int, error) {
	if _, err := s.c.Select(folder, false); err != nil {
		return 0, err
	}
	criteria := imap.NewSearchCriteria()
	criteria.Before = before
	ids, err := s.c.Search(criteria)
	if err != nil {
		return 0, fmt.Errorf("search: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	set := new(imap.SeqSet)
	set.AddNum(ids...)
	item := imap.FormatFlagsOp(imap.AddFlags, true)
	if err := s.c.Store(set, item, []interface{}{imap.DeletedFlag}, nil); err != nil {
		return 0, fmt.Errorf("flagging deleted: %w", err)
	}
	if err := s.c.Expunge(nil); err != nil {
		return 0, fmt.Errorf("expunge: %w", err)
	}
	return len(ids), nil
}

// Close expunges flagged messages unless read-only, then logs out.
func (s *IMAPSource) Close(context.Context) error {
	var errs []error
	if !s.readOnly {
		if err := s.c.Expunge(nil); err != nil {
			errs = append(errs, fmt.Errorf("expunge: %w", err))
		}
	}
	if err := s.c.Logout(); err != nil {
		errs = append(errs, fmt.Errorf("logout: %w", err))
	}
	return errors.Join(errs...)
}

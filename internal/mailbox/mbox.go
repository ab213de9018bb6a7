package mailbox

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/emersion/go-imap/utf7"
	"github.com/emersion/go-mbox"
	"github.com/emersion/go-message/textproto"
)

// MboxSource is a local mbox file held in memory. Folders for moved
// messages are mbox files next to it, named in IMAP-UTF7.
type MboxSource struct {
	path     string
	readOnly bool
	messages [][]byte
	deleted  map[int]bool
	purged   bool // messages dropped since the last rewrite
}

// OpenMbox reads every message of the mbox file at path.
func OpenMbox(path string, readOnly bool) (*MboxSource, error) {
	messages, err := readMbox(path)
	if err != nil {
		return nil, err
	}
	return &MboxSource{path: path, readOnly: readOnly, messages: messages, deleted: map[int]bool{}}, nil
}

func readMbox(path string) ([][]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening mbox: %w", err)
	}
	defer f.Close()

	var messages [][]byte
	reader := mbox.NewReader(f)
	for {
		mr, err := reader.NextMessage()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		raw, err := io.ReadAll(mr)
		if err != nil {
			return nil, fmt.Errorf("reading message %d of %s: %w", len(messages)+1, path, err)
		}
		messages = append(messages, raw)
	}
	return messages, nil
}

func (s *MboxSource) Path() string { return s.path }

func (s *MboxSource) Count(context.Context) (int, error) {
	return len(s.messages), nil
}

func (s *MboxSource) Fetch(_ context.Context, n int) ([]byte, error) {
	if err := s.checkNum(n); err != nil {
		return nil, err
	}
	return s.messages[n-1], nil
}

func (s *MboxSource) Delete(_ context.Context, n int) error {
	if s.readOnly {
		return ErrReadOnly
	}
	if err := s.checkNum(n); err != nil {
		return err
	}
	s.deleted[n] = true
	return nil
}

// Move appends message n to the folder file and marks it deleted.
func (s *MboxSource) Move(_ context.Context, n int, folder string) error {
	if s.readOnly {
		return ErrReadOnly
	}
	if err := s.checkNum(n); err != nil {
		return err
	}
	if err := ValidateFolder(folder); err != nil {
		return err
	}
	path, err := FolderPath(filepath.Dir(s.path), folder)
	if err != nil {
		return err
	}
	if err := AppendMbox(path, s.messages[n-1]); err != nil {
		return fmt.Errorf("moving to folder %s: %w", folder, err)
	}
	s.deleted[n] = true
	return nil
}

// FolderPath is the mbox file for folder inside dir, named in IMAP-UTF7.
func FolderPath(dir, folder string) (string, error) {
	name, err := utf7.Encoding.NewEncoder().String(folder)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidFolder, err)
	}
	return filepath.Join(dir, name), nil
}

// AppendMbox adds raw as a new message at the end of the mbox file at path,
// creating the file if needed.
func AppendMbox(path string, raw []byte) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0660)
	if err != nil {
		return err
	}
	defer f.Close()

	w := mbox.NewWriter(f)
	if err := writeMessage(w, raw); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return f.Close()
}

// Close rewrites the mbox without the marked messages.
func (s *MboxSource) Close(context.Context) error {
	if s.readOnly || (len(s.deleted) == 0 && !s.purged) {
		return nil
	}
	var kept [][]byte
	for i, raw := range s.messages {
		if !s.deleted[i+1] {
			kept = append(kept, raw)
		}
	}
	if err := rewriteMbox(s.path, kept); err != nil {
		return err
	}
	s.messages = kept
	s.deleted = map[int]bool{}
	s.purged = false
	return nil
}

// PurgeBefore drops the messages dated before before from this mailbox and
// from every other mbox file in its directory. Messages without a usable
// Date header are kept. Other files are rewritten at once, this one by
// Close. Call it before reading messages: it renumbers them.
func (s *MboxSource) PurgeBefore(ctx context.Context, before time.Time) (map[string]int, error) {
	if s.readOnly {
		return nil, ErrReadOnly
	}
	dir := filepath.Dir(s.path)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}

	purged := map[string]int{}
	var errs []error
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		folder := folderName(e.Name())
		if !e.Type().IsRegular() || !purgeable(folder) {
			continue
		}
		if e.Name() == filepath.Base(s.path) {
			if n := s.dropBefore(before); n > 0 {
				purged[folder] = n
			}
			continue
		}
		path := filepath.Join(dir, e.Name())
		if !isMbox(path) {
			continue
		}
		n, err := purgeMbox(path, before)
		if err != nil {
			errs = append(errs, fmt.Errorf("purging %s: %w", folder, err))
			continue
		}
		if n > 0 {
			purged[folder] = n
		}
	}
	return purged, errors.Join(errs...)
}

func (s *MboxSource) dropBefore(before time.Time) int {
	var kept [][]byte
	deleted := map[int]bool{}
	for i, raw := range s.messages {
		if datedBefore(raw, before) {
			continue
		}
		kept = append(kept, raw)
		if s.deleted[i+1] {
			deleted[len(kept)] = true
		}
	}
	n := len(s.messages) - len(kept)
	if n > 0 {
		s.messages, s.deleted, s.purged = kept, deleted, true
	}
	return n
}

func purgeMbox(path string, before time.Time) (int, error) {
	messages, err := readMbox(path)
	if err != nil {
		return 0, err
	}
	var kept [][]byte
	for _, raw := range messages {
		if !datedBefore(raw, before) {
			kept = append(kept, raw)
		}
	}
	n := len(messages) - len(kept)
	if n == 0 {
		return 0, nil
	}
	return n, rewriteMbox(path, kept)
}

// rewriteMbox replaces the file at path with messages. The new content goes
// to a temp file first and replaces the original with a rename.
func rewriteMbox(path string, messages [][]byte) error {
	tempFile, err := os.CreateTemp(filepath.Dir(path), "mboxbounce-rewrite-*.mbox")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tempFile.Name())
	defer tempFile.Close()

	w := mbox.NewWriter(tempFile)
	for _, raw := range messages {
		if err := writeMessage(w, raw); err != nil {
			return fmt.Errorf("writing temp file: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(filepath.Clean(tempFile.Name()), path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

// isMbox reports whether the file at path starts like an mbox file.
func isMbox(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	head := make([]byte, 5)
	if _, err := io.ReadFull(f, head); err != nil {
		return false
	}
	return string(head) == "From "
}

// folderName decodes an IMAP-UTF7 file name, keeping it as is when invalid.
func folderName(file string) string {
	if name, err := utf7.Encoding.NewDecoder().String(file); err == nil {
		return name
	}
	return file
}

func datedBefore(raw []byte, before time.Time) bool {
	h, err := textproto.ReadHeader(bufio.NewReader(bytes.NewReader(raw)))
	if err != nil {
		return false
	}
	date := parseDate(h.Get("Date"))
	return !date.IsZero() && date.Before(before)
}

func (s *MboxSource) checkNum(n int) error {
	if n < 1 || n > len(s.messages) {
		return fmt.Errorf("message %d out of range 1..%d", n, len(s.messages))
	}
	return nil
}

// writeMessage starts a new mbox entry for raw. The envelope line takes the
// sender and date from the message header.
func writeMessage(w *mbox.Writer, raw []byte) error {
	from, date := envelope(raw)
	mw, err := w.CreateMessage(from, date)
	if err != nil {
		return err
	}
	_, err = mw.Write(raw)
	return err
}

func envelope(raw []byte) (string, time.Time) {
	from, date := "MAILER-DAEMON", time.Now()
	h, err := textproto.ReadHeader(bufio.NewReader(bytes.NewReader(raw)))
	if err != nil {
		return from, date
	}
	if addr := senderAddress(h.Get("Return-Path")); addr != "" {
		from = addr
	} else if addr := senderAddress(h.Get("From")); addr != "" {
		from = addr
	}
	if t := parseDate(h.Get("Date")); !t.IsZero() {
		date = t
	}
	return from, date
}

// Package mailbox runs the bounce classifier over a mailbox: it reads each
// message from a Source, classifies it, reports it to a Handler and then
// deletes or files it away according to the configured policy.
package mailbox

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNoHandler     = errors.New("no bounce handler")
	ErrInvalidFolder = errors.New("invalid folder name")
	ErrReadOnly      = errors.New("mailbox opened read-only")
)

// Source is a mailbox whose messages are numbered from 1. Delete and Move
// only mark messages; numbering stays stable until Close applies the marks.
type Source interface {
	Count(ctx context.Context) (int, error)
	Fetch(ctx context.Context, n int) ([]byte, error)
	Delete(ctx context.Context, n int) error
	Move(ctx context.Context, n int, folder string) error
	Close(ctx context.Context) error
}

// Purger deletes old mail from every folder of the account a Source belongs
// to, not only from the opened mailbox. It runs before processing and
// reports how many messages each folder lost.
type Purger interface {
	PurgeBefore(ctx context.Context, before time.Time) (map[string]int, error)
}

// purgeable keeps sent mail out of the date purge.
func purgeable(folder string) bool {
	return !strings.Contains(strings.ToLower(folder), "sent")
}

const folderPrefix = "INBOX."

// ValidateFolder checks a move target. Targets live under INBOX.
func ValidateFolder(name string) error {
	if len(name) <= len(folderPrefix) || !strings.EqualFold(name[:len(folderPrefix)], folderPrefix) {
		return fmt.Errorf("%w: %q must start with %s", ErrInvalidFolder, name, folderPrefix)
	}
	return nil
}

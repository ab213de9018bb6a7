package mailbox

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/emurenMRz/mboxbounce/internal/bounce"
)

const DefaultMaxMessages = 3000

// Options control a processing run.
type Options struct {
	// MaxMessages caps how many messages are read; 0 means DefaultMaxMessages.
	MaxMessages int
	// TestMode classifies and reports but never changes the mailbox.
	TestMode bool
	// DisableDelete keeps every message. MoveHard implies it.
	DisableDelete bool
	// PurgeUnprocessed deletes messages no rule recognized.
	PurgeUnprocessed bool

	MoveHard    bool
	HardMailbox string
	MoveSoft    bool
	SoftMailbox string

	// DeleteBefore, when set, purges older mail from every folder of the
	// account before the run. Sources that are not a Purger skip it.
	DeleteBefore time.Time

	Logger *slog.Logger
}

// Disposition is what happens to a message after classification.
type Disposition string

const (
	DispositionNone     Disposition = "none"
	DispositionDelete   Disposition = "delete"
	DispositionMoveHard Disposition = "move_hard"
	DispositionMoveSoft Disposition = "move_soft"
)

// Stats summarizes a run. Deleted and Moved count decisions, so they are
// filled in test mode as well.
type Stats struct {
	Total       int
	Fetched     int
	Processed   int
	Unprocessed int
	Deleted     int
	Moved       int
	Purged      int
}

// Processor classifies the messages of a Source one by one.
type Processor struct {
	opts    Options
	handler Handler
	log     *slog.Logger
}

func NewProcessor(opts Options, h Handler) (*Processor, error) {
	if h == nil {
		return nil, ErrNoHandler
	}
	if opts.MaxMessages <= 0 {
		opts.MaxMessages = DefaultMaxMessages
	}
	if opts.MoveHard {
		opts.DisableDelete = true
		if err := ValidateFolder(opts.HardMailbox); err != nil {
			return nil, err
		}
	}
	if opts.MoveSoft {
		if err := ValidateFolder(opts.SoftMailbox); err != nil {
			return nil, err
		}
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Processor{opts: opts, handler: h, log: log}, nil
}

// Classify runs the engine that fits msg. An unrecognized result carries
// the sender of msg as its email.
func Classify(msg *Message) (bounce.Result, error) {
	var (
		res bounce.Result
		err error
	)
	switch msg.Kind {
	case KindDSN:
		res = bounce.ClassifyDSN(msg.Explanation, msg.StatusBlock)
	case KindBody:
		res, err = bounce.ClassifyBody(msg.Body, msg.ContentType, &msg.Header)
	default:
		res = bounce.Unrecognized()
		err = fmt.Errorf("%w: %s", bounce.ErrUnsupportedContentType, msg.MediaType)
	}
	if !res.Matched() && res.Email == "" {
		res.Email = msg.From
	}
	return res, err
}

// Run processes messages 1..min(count, MaxMessages) in order. Per-message
// failures are logged and counted as unprocessed; only a cancelled context
// or an unreadable message count stops the run.
func (p *Processor) Run(ctx context.Context, src Source) (Stats, error) {
	var stats Stats
	log := p.log.With("run_id", uuid.NewString())

	if !p.opts.DeleteBefore.IsZero() {
		stats.Purged = p.purge(ctx, src, log)
	}

	total, err := src.Count(ctx)
	if err != nil {
		return stats, fmt.Errorf("counting messages: %w", err)
	}
	stats.Total = total
	fetch := min(total, p.opts.MaxMessages)
	log.Info("processing mailbox",
		"total", total,
		"fetch", fetch,
		"test_mode", p.opts.TestMode,
		"disable_delete", p.opts.DisableDelete,
	)

	for n := 1; n <= fetch; n++ {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		stats.Fetched++

		raw, err := src.Fetch(ctx, n)
		if err != nil {
			log.Warn("fetch failed", "seq", n, "error", err)
			messagesTotal.WithLabelValues("fetch_error").Inc()
			stats.Unprocessed++
			continue
		}

		msg := ParseMessage(raw)
		res, err := Classify(msg)
		if err != nil {
			log.Debug("skipping message", "seq", n, "kind", msg.Kind, "error", err)
		}

		accepted := false
		if err == nil {
			ev := Event{
				Seq:     n,
				Total:   total,
				Subject: msg.Subject,
				From:    msg.From,
				Kind:    msg.Kind,
				Result:  res,
				Remove:  res.Remove && !p.opts.DisableDelete,
			}
			accepted, err = p.handler.HandleBounce(ctx, ev)
			if err != nil {
				log.Warn("handler failed", "seq", n, "error", err)
				accepted = false
			}
		}

		processed := accepted && res.Matched()
		if processed {
			stats.Processed++
			messagesTotal.WithLabelValues("processed").Inc()
			classificationsTotal.WithLabelValues(string(res.Category), string(res.BounceType)).Inc()
		} else {
			stats.Unprocessed++
			messagesTotal.WithLabelValues("unprocessed").Inc()
		}

		disp := p.disposition(res, processed)
		log.Debug("classified",
			"seq", n,
			"kind", msg.Kind.String(),
			"rule", res.RuleID,
			"category", res.Category,
			"bounce_type", res.BounceType,
			"email", res.Email,
			"disposition", disp,
		)
		if disp == DispositionNone {
			continue
		}
		if err := p.apply(ctx, src, n, disp); err != nil {
			log.Warn("mailbox action failed", "seq", n, "disposition", disp, "error", err)
			continue
		}
		dispositionsTotal.WithLabelValues(string(disp)).Inc()
		if disp == DispositionDelete {
			stats.Deleted++
		} else {
			stats.Moved++
		}
	}

	log.Info("mailbox processed",
		"read", stats.Fetched,
		"processed", stats.Processed,
		"unprocessed", stats.Unprocessed,
		"deleted", stats.Deleted,
		"moved", stats.Moved,
		"purged", stats.Purged,
	)
	return stats, nil
}

// purge runs the date purge. Failures are logged and the run goes on.
func (p *Processor) purge(ctx context.Context, src Source, log *slog.Logger) int {
	before := p.opts.DeleteBefore.Format(time.DateOnly)
	purger, ok := src.(Purger)
	switch {
	case p.opts.TestMode:
		log.Info("skipping date purge in test mode", "before", before)
		return 0
	case !ok:
		log.Warn("mailbox cannot purge by date", "before", before)
		return 0
	}

	purged, err := purger.PurgeBefore(ctx, p.opts.DeleteBefore)
	if err != nil {
		log.Warn("date purge failed", "before", before, "error", err)
	}
	total := 0
	for folder, n := range purged {
		log.Info("purged folder", "folder", folder, "deleted", n, "before", before)
		total += n
	}
	purgedTotal.Add(float64(total))
	return total
}

func (p *Processor) disposition(res bounce.Result, processed bool) Disposition {
	if !processed {
		if p.opts.PurgeUnprocessed && !p.opts.DisableDelete {
			return DispositionDelete
		}
		return DispositionNone
	}
	switch {
	case p.opts.MoveHard && res.BounceType == bounce.SeverityHard:
		return DispositionMoveHard
	case p.opts.MoveSoft && res.BounceType != bounce.SeverityHard:
		return DispositionMoveSoft
	case res.Remove && !p.opts.DisableDelete:
		return DispositionDelete
	}
	return DispositionNone
}

func (p *Processor) apply(ctx context.Context, src Source, n int, disp Disposition) error {
	if p.opts.TestMode {
		return nil
	}
	switch disp {
	case DispositionDelete:
		return src.Delete(ctx, n)
	case DispositionMoveHard:
		return src.Move(ctx, n, p.opts.HardMailbox)
	case DispositionMoveSoft:
		return src.Move(ctx, n, p.opts.SoftMailbox)
	}
	return nil
}

package mailbox

import (
	"context"
	"log/slog"

	"github.com/emurenMRz/mboxbounce/internal/bounce"
)

// Event describes one classified message.
type Event struct {
	Seq     int // message number in the source
	Total   int // messages in the source
	Subject string
	From    string
	Kind    Kind
	Result  bounce.Result
	// Remove is Result.Remove unless deletion is disabled for the run.
	Remove bool
}

// Handler receives every classified message, recognized or not. Returning
// false keeps the message where it is.
type Handler interface {
	HandleBounce(ctx context.Context, ev Event) (bool, error)
}

type HandlerFunc func(ctx context.Context, ev Event) (bool, error)

func (f HandlerFunc) HandleBounce(ctx context.Context, ev Event) (bool, error) {
	return f(ctx, ev)
}

// AcceptAll accepts every message.
func AcceptAll() Handler {
	return HandlerFunc(func(context.Context, Event) (bool, error) { return true, nil })
}

// LogHandler logs each event at info and accepts it.
func LogHandler(log *slog.Logger) Handler {
	return HandlerFunc(func(ctx context.Context, ev Event) (bool, error) {
		log.InfoContext(ctx, "bounce",
			"seq", ev.Seq,
			"total", ev.Total,
			"rule", ev.Result.RuleID,
			"category", ev.Result.Category,
			"bounce_type", ev.Result.BounceType,
			"email", ev.Result.Email,
			"remove", ev.Remove,
			"subject", ev.Subject,
		)
		return true, nil
	})
}

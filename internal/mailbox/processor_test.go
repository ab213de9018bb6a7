package mailbox

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emurenMRz/mboxbounce/internal/bounce"
)

type memSource struct {
	msgs     []string
	fetchErr map[int]error
	deleted  map[int]bool
	moved    map[int]string
}

func newMemSource(msgs ...string) *memSource {
	return &memSource{msgs: msgs, fetchErr: map[int]error{}, deleted: map[int]bool{}, moved: map[int]string{}}
}

func (s *memSource) Count(context.Context) (int, error) { return len(s.msgs), nil }

func (s *memSource) Fetch(_ context.Context, n int) ([]byte, error) {
	if err := s.fetchErr[n]; err != nil {
		return nil, err
	}
	return []byte(s.msgs[n-1]), nil
}

func (s *memSource) Delete(_ context.Context, n int) error {
	s.deleted[n] = true
	return nil
}

func (s *memSource) Move(_ context.Context, n int, folder string) error {
	s.moved[n] = folder
	return nil
}

func (s *memSource) Close(context.Context) error { return nil }

// purgingSource is a memSource that also takes part in the date purge.
type purgingSource struct {
	*memSource
	before time.Time
	purged map[string]int
	err    error
}

func (s *purgingSource) PurgeBefore(_ context.Context, before time.Time) (map[string]int, error) {
	s.before = before
	return s.purged, s.err
}

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// The standard mailbox: hard DSN, soft body bounce, auto-reply, an ordinary
// message and an unsupported one.
func standardSource() *memSource {
	return newMemSource(dsnUnknownUser, bodyMailboxFull, autoReply, plainMessage, pdfMessage)
}

func TestProcessorRun(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		stats   Stats
		deleted []int
		moved   map[int]string
	}{
		{
			name:    "defaults",
			stats:   Stats{Total: 5, Fetched: 5, Processed: 3, Unprocessed: 2, Deleted: 2},
			deleted: []int{1, 2},
			moved:   map[int]string{},
		},
		{
			name:    "disable delete",
			opts:    Options{DisableDelete: true, PurgeUnprocessed: true},
			stats:   Stats{Total: 5, Fetched: 5, Processed: 3, Unprocessed: 2},
			deleted: nil,
			moved:   map[int]string{},
		},
		{
			name:    "purge unprocessed",
			opts:    Options{PurgeUnprocessed: true},
			stats:   Stats{Total: 5, Fetched: 5, Processed: 3, Unprocessed: 2, Deleted: 4},
			deleted: []int{1, 2, 4, 5},
			moved:   map[int]string{},
		},
		{
			name:    "move hard disables delete",
			opts:    Options{MoveHard: true, HardMailbox: "INBOX.hard"},
			stats:   Stats{Total: 5, Fetched: 5, Processed: 3, Unprocessed: 2, Moved: 1},
			deleted: nil,
			moved:   map[int]string{1: "INBOX.hard"},
		},
		{
			name:    "move hard and soft",
			opts:    Options{MoveHard: true, HardMailbox: "INBOX.hard", MoveSoft: true, SoftMailbox: "INBOX.soft"},
			stats:   Stats{Total: 5, Fetched: 5, Processed: 3, Unprocessed: 2, Moved: 3},
			deleted: nil,
			moved:   map[int]string{1: "INBOX.hard", 2: "INBOX.soft", 3: "INBOX.soft"},
		},
		{
			name:    "test mode counts but does not touch",
			opts:    Options{TestMode: true, PurgeUnprocessed: true},
			stats:   Stats{Total: 5, Fetched: 5, Processed: 3, Unprocessed: 2, Deleted: 4},
			deleted: nil,
			moved:   map[int]string{},
		},
		{
			name:    "max messages",
			opts:    Options{MaxMessages: 2},
			stats:   Stats{Total: 5, Fetched: 2, Processed: 2, Deleted: 2},
			deleted: []int{1, 2},
			moved:   map[int]string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.opts.Logger = quietLogger
			p, err := NewProcessor(tt.opts, AcceptAll())
			require.NoError(t, err)
			src := standardSource()

			stats, err := p.Run(context.Background(), src)
			require.NoError(t, err)
			assert.Equal(t, tt.stats, stats)

			var deleted []int
			for n := 1; n <= len(src.msgs); n++ {
				if src.deleted[n] {
					deleted = append(deleted, n)
				}
			}
			assert.Equal(t, tt.deleted, deleted)
			assert.Equal(t, tt.moved, src.moved)
		})
	}
}

func TestProcessorEvents(t *testing.T) {
	var events []Event
	h := HandlerFunc(func(_ context.Context, ev Event) (bool, error) {
		events = append(events, ev)
		return true, nil
	})
	p, err := NewProcessor(Options{Logger: quietLogger}, h)
	require.NoError(t, err)

	_, err = p.Run(context.Background(), standardSource())
	require.NoError(t, err)

	// the unsupported message never reaches the handler
	require.Len(t, events, 4)

	assert.Equal(t, 1, events[0].Seq)
	assert.Equal(t, 5, events[0].Total)
	assert.Equal(t, KindDSN, events[0].Kind)
	assert.Equal(t, "john@example.com", events[0].Result.Email)
	assert.True(t, events[0].Remove)

	assert.Equal(t, bounce.CategoryFull, events[1].Result.Category)
	assert.Equal(t, "bob@example.com", events[1].Result.Email)

	assert.Equal(t, bounce.CategoryAutoreply, events[2].Result.Category)
	assert.False(t, events[2].Remove)

	unrecognized := events[3]
	assert.Equal(t, bounce.UnrecognizedRuleID, unrecognized.Result.RuleID)
	assert.Equal(t, "alice@example.org", unrecognized.Result.Email)
	assert.Equal(t, "lunch", unrecognized.Subject)
}

func TestProcessorRemoveFlagFollowsDisableDelete(t *testing.T) {
	var removes []bool
	h := HandlerFunc(func(_ context.Context, ev Event) (bool, error) {
		removes = append(removes, ev.Remove)
		return true, nil
	})
	p, err := NewProcessor(Options{DisableDelete: true, Logger: quietLogger}, h)
	require.NoError(t, err)

	_, err = p.Run(context.Background(), newMemSource(dsnUnknownUser))
	require.NoError(t, err)
	assert.Equal(t, []bool{false}, removes)
}

func TestProcessorHandlerDeclines(t *testing.T) {
	for _, h := range []Handler{
		HandlerFunc(func(context.Context, Event) (bool, error) { return false, nil }),
		HandlerFunc(func(context.Context, Event) (bool, error) { return true, errors.New("boom") }),
	} {
		p, err := NewProcessor(Options{Logger: quietLogger}, h)
		require.NoError(t, err)
		src := standardSource()

		stats, err := p.Run(context.Background(), src)
		require.NoError(t, err)
		assert.Equal(t, Stats{Total: 5, Fetched: 5, Unprocessed: 5}, stats)
		assert.Empty(t, src.deleted)
	}
}

func TestProcessorFetchError(t *testing.T) {
	p, err := NewProcessor(Options{Logger: quietLogger}, AcceptAll())
	require.NoError(t, err)
	src := newMemSource(dsnUnknownUser, bodyMailboxFull)
	src.fetchErr[1] = errors.New("connection reset")

	stats, err := p.Run(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, Stats{Total: 2, Fetched: 2, Processed: 1, Unprocessed: 1, Deleted: 1}, stats)
	assert.True(t, src.deleted[2])
}

func TestProcessorCancelled(t *testing.T) {
	p, err := NewProcessor(Options{Logger: quietLogger}, AcceptAll())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stats, err := p.Run(ctx, standardSource())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, stats.Fetched)
}

func TestNewProcessor(t *testing.T) {
	_, err := NewProcessor(Options{}, nil)
	assert.ErrorIs(t, err, ErrNoHandler)

	_, err = NewProcessor(Options{MoveHard: true, HardMailbox: "hard"}, AcceptAll())
	assert.ErrorIs(t, err, ErrInvalidFolder)

	_, err = NewProcessor(Options{MoveSoft: true}, AcceptAll())
	assert.ErrorIs(t, err, ErrInvalidFolder)
}

func TestProcessorWithMbox(t *testing.T) {
	path := writeMbox(t)
	src, err := OpenMbox(path, false)
	require.NoError(t, err)
	p, err := NewProcessor(Options{Logger: quietLogger}, AcceptAll())
	require.NoError(t, err)

	stats, err := p.Run(context.Background(), src)
	require.NoError(t, err)
	require.NoError(t, src.Close(context.Background()))

	assert.Equal(t, 2, stats.Deleted)
	reopened, err := OpenMbox(path, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"second"}, subjects(t, reopened))
}

func TestProcessorDeleteBefore(t *testing.T) {
	before := time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC)
	ctx := context.Background()

	tests := []struct {
		name   string
		opts   Options
		purged map[string]int
		err    error
		called bool
		want   int
	}{
		{
			name:   "purges before processing",
			opts:   Options{DeleteBefore: before},
			purged: map[string]int{"INBOX": 2, "INBOX.hard": 1},
			called: true,
			want:   3,
		},
		{
			name:   "failure keeps what was purged",
			opts:   Options{DeleteBefore: before},
			purged: map[string]int{"INBOX": 1},
			err:    errors.New("connection reset"),
			called: true,
			want:   1,
		},
		{
			name: "test mode",
			opts: Options{DeleteBefore: before, TestMode: true},
		},
		{
			name: "unset",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &purgingSource{memSource: newMemSource(bodyMailboxFull), purged: tt.purged, err: tt.err}
			tt.opts.Logger = quietLogger
			p, err := NewProcessor(tt.opts, AcceptAll())
			require.NoError(t, err)
			start := testutil.ToFloat64(purgedTotal)

			stats, err := p.Run(ctx, src)
			require.NoError(t, err)
			assert.Equal(t, tt.want, stats.Purged)
			assert.Equal(t, 1, stats.Processed)
			assert.Equal(t, tt.called, !src.before.IsZero())
			assert.Equal(t, start+float64(tt.want), testutil.ToFloat64(purgedTotal))
		})
	}
}

func TestProcessorDeleteBeforeWithoutPurger(t *testing.T) {
	p, err := NewProcessor(Options{Logger: quietLogger, DeleteBefore: time.Now()}, AcceptAll())
	require.NoError(t, err)

	stats, err := p.Run(context.Background(), newMemSource(bodyMailboxFull))
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Purged)
	assert.Equal(t, 1, stats.Processed)
}

package timeline

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"sync"
	"time"

	"github.com/anatolykoptev/go-timeline/snowflake"
)

// maxStepsPerNext bounds the pagination steps a single Next may perform.
const maxStepsPerNext = 2

// gmtLayout is the search operator datetime format, e.g. 2020-01-01_00:00:00_GMT.
const gmtLayout = "2006-01-02_15:04:05_GMT"

// pager is the per-kind part of a session.
type pager interface {
	// fetchPage returns the next page below the session's cursor.
	fetchPage(ctx context.Context, s *Session) ([]*Tweet, error)
	// exhausted is called on an empty page.
	exhausted(s *Session)
}

// Session is one resumable pagination walk, newest first, over a timeline.
// It is safe for concurrent use. Next calls are serialized; the accessors do
// not wait for a pending step.
type Session struct {
	client   *Client
	kind     Kind
	apiInUse Kind
	pager    pager

	// stepMu serializes Next. State fields are written only while holding both
	// stepMu and mu, so a step may read them holding stepMu alone.
	stepMu  sync.Mutex
	mu      sync.Mutex
	status  Status
	buffer  []*Tweet
	cursor  string
	maxTime time.Time
	err     error
}

// SessionOptions bound where a walk starts. MaxID wins over MaxTime; with
// neither the walk starts at the newest item.
type SessionOptions struct {
	MaxID   string
	MaxTime time.Time
}

func (s *Session) init(c *Client, kind Kind, p pager, opts SessionOptions) {
	s.client = c
	s.kind = kind
	s.apiInUse = kind
	s.pager = p
	s.status = StatusInit
	s.maxTime = opts.MaxTime
	switch {
	case opts.MaxID != "":
		s.cursor = opts.MaxID
	case !opts.MaxTime.IsZero():
		// empty when MaxTime predates the snowflake epoch
		s.cursor, _ = snowflake.FromTime(opts.MaxTime)
	default:
		s.cursor = defaultCursor()
	}
}

// defaultCursor is just below the far-future DefaultMaxID, i.e. "newest".
func defaultCursor() string {
	return snowflake.MustNew(snowflake.DefaultMaxID).Sub(1).String()
}

// Kind is the logical timeline the session walks.
func (s *Session) Kind() Kind { return s.kind }

// APIInUse is the endpoint the next step will call. It differs from Kind only
// after a user timeline has fallen back to search.
func (s *Session) APIInUse() Kind {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apiInUse
}

// Status returns the lifecycle state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Err returns why the session failed, or the context error of an interrupted
// step. It is nil for a healthy or cleanly exhausted session.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Cursor returns the current upper-bound id; empty while the walk is bounded
// by time only.
func (s *Session) Cursor() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

// Done reports whether the buffer is drained and the status terminal.
func (s *Session) Done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buffer) == 0 && s.status.Terminal()
}

// Next returns the next tweet in upstream order. When the buffer is empty it
// paginates at most twice; false with a non-terminal Status means the caller
// may simply call again. Next never fails: inspect Status and Err instead.
func (s *Session) Next(ctx context.Context) (*Tweet, bool) {
	s.stepMu.Lock()
	defer s.stepMu.Unlock()

	for steps := 0; ; steps++ {
		if t, ok, stop := s.pop(steps); ok || stop {
			return t, ok
		}
		if err := ctx.Err(); err != nil {
			s.mu.Lock()
			s.err = err
			s.mu.Unlock()
			return nil, false
		}
		s.step(ctx)
		if ctx.Err() != nil {
			return nil, false
		}
	}
}

// pop returns the front of the buffer, or stop when no further step is allowed.
func (s *Session) pop(steps int) (t *Tweet, ok, stop bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.buffer) > 0 {
		t = s.buffer[0]
		s.buffer[0] = nil
		s.buffer = s.buffer[1:]
		return t, true, false
	}
	return nil, false, s.status.Terminal() || steps == maxStepsPerNext
}

// step performs exactly one pagination step. It must either fill the buffer,
// change the endpoint, or set a terminal status. The fetch runs without mu.
func (s *Session) step(ctx context.Context) {
	tweets, err := s.pager.fetchPage(ctx, s)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			// interrupted, not failed: the next call resumes from the same cursor
			s.err = ctxErr
			return
		}
		s.fail(err)
		return
	}
	s.err = nil
	if len(tweets) == 0 {
		s.pager.exhausted(s)
		return
	}
	if err := s.advance(tweets[len(tweets)-1].ID); err != nil {
		s.fail(err)
		return
	}
	s.buffer = append(s.buffer, tweets...)
}

// advance moves the cursor just below the last id seen.
func (s *Session) advance(lastID string) error {
	next, err := snowflake.Prev(lastID)
	if err != nil {
		return &StructuralError{Endpoint: s.apiInUse, Reason: fmt.Sprintf("tweet id %q is not a number", lastID)}
	}
	if s.cursor != "" && snowflake.Compare(next, s.cursor) >= 0 {
		return &StructuralError{Endpoint: s.apiInUse, Reason: fmt.Sprintf("cursor did not advance: %s -> %s", s.cursor, next)}
	}
	s.cursor = next
	return nil
}

func (s *Session) fail(err error) {
	slog.Warn("session failed",
		slog.String("kind", string(s.kind)),
		slog.String("api", string(s.apiInUse)),
		slog.String("cursor", s.cursor),
		slog.Any("error", err))
	s.status = StatusError
	s.err = err
}

// end marks a clean exhaustion.
func (s *Session) end() {
	slog.Debug("session exhausted", slog.String("kind", string(s.kind)), slog.String("cursor", s.cursor))
	s.status = StatusEnd
}

// rangeClause is the search operator bounding the next page.
func (s *Session) rangeClause() string {
	if s.cursor != "" {
		return "max_id:" + s.cursor
	}
	return "until:" + s.maxTime.Add(time.Millisecond).UTC().Format(gmtLayout)
}

// pageSize is the largest page the endpoint serves.
func (s *Session) pageSize(kind Kind) int {
	ep, err := s.client.Endpoint(kind)
	if err != nil {
		return 0
	}
	return ep.MaxCount
}

// All iterates over the remaining tweets until the session is terminal or ctx
// is done.
func (s *Session) All(ctx context.Context) iter.Seq[*Tweet] {
	return func(yield func(*Tweet) bool) {
		for {
			t, ok := s.Next(ctx)
			if !ok {
				if s.Status().Terminal() || ctx.Err() != nil {
					return
				}
				continue
			}
			if !yield(t) {
				return
			}
		}
	}
}

// Collect gathers up to limit tweets; limit <= 0 means no limit. The error is
// the session's failure or the context error, if any.
func (s *Session) Collect(ctx context.Context, limit int) ([]*Tweet, error) {
	var tweets []*Tweet
	for t := range s.All(ctx) {
		tweets = append(tweets, t)
		if limit > 0 && len(tweets) >= limit {
			break
		}
	}
	if err := ctx.Err(); err != nil {
		return tweets, err
	}
	if s.Status() == StatusError {
		return tweets, s.Err()
	}
	return tweets, nil
}

package timeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/anatolykoptev/go-timeline/snowflake"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/errgroup"
)

// Timeline is the pull interface every session implements.
type Timeline interface {
	Next(ctx context.Context) (*Tweet, bool)
	Status() Status
	Err() error
}

// Source opens a fresh newest-first walk for each polling round.
type Source interface {
	Name() string
	Open(c *Client) (Timeline, error)
}

// UserSource watches an account's timeline.
type UserSource struct {
	UserID string
	Handle string
}

// Name implements Source.
func (u UserSource) Name() string { return "user:" + u.Handle }

// Open implements Source.
func (u UserSource) Open(c *Client) (Timeline, error) {
	return NewUserSession(c, UserSessionOptions{UserID: u.UserID, Handle: u.Handle})
}

// SearchSource watches a search query.
type SearchSource struct {
	Query  string
	Filter MediaFilter
}

// Name implements Source.
func (q SearchSource) Name() string { return "search:" + q.Query }

// Open implements Source.
func (q SearchSource) Open(c *Client) (Timeline, error) {
	return NewSearchSession(c, SearchSessionOptions{Query: q.Query, Filter: q.Filter})
}

// NotificationsSource watches the logged-in account's notifications.
type NotificationsSource struct{}

// Name implements Source.
func (NotificationsSource) Name() string { return "notifications" }

// Open implements Source.
func (NotificationsSource) Open(c *Client) (Timeline, error) {
	return NewNotificationsSession(c, SessionOptions{})
}

// Handler receives new tweets, oldest first within a round. Calls are
// serialized across sources.
type Handler func(ctx context.Context, source string, t *Tweet) error

// WatcherConfig configures NewWatcher.
type WatcherConfig struct {
	Client   *Client
	Sources  []Source
	Handler  Handler
	Interval time.Duration
	// Backfill caps the tweets pulled per source in the first round, and in any
	// round where the previous high-water mark is not reached.
	Backfill int
	// SeenSize and SeenTTL bound the cross-source duplicate filter.
	SeenSize int
	SeenTTL  time.Duration
	// OnGap, if set, is told when Backfill stopped a round before the previous
	// high-water mark: tweets with ids between after and before were not pulled.
	// Calls are serialized with Handler.
	OnGap func(source, after, before string)
}

func (cfg *WatcherConfig) defaults() {
	if cfg.Interval == 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.Backfill == 0 {
		cfg.Backfill = 40
	}
	if cfg.SeenSize == 0 {
		cfg.SeenSize = 10000
	}
	if cfg.SeenTTL == 0 {
		cfg.SeenTTL = 24 * time.Hour
	}
}

// Watcher polls sources and hands each new tweet to a Handler exactly once.
type Watcher struct {
	cfg  WatcherConfig
	seen *expirable.LRU[string, struct{}]

	mu        sync.Mutex
	highWater map[string]string
	emitMu    sync.Mutex
}

// NewWatcher creates a watcher. Client, Sources and Handler are required.
func NewWatcher(cfg WatcherConfig) (*Watcher, error) {
	if cfg.Client == nil || cfg.Handler == nil {
		return nil, errors.New("watcher: client and handler are required")
	}
	if len(cfg.Sources) == 0 {
		return nil, errors.New("watcher: no sources")
	}
	cfg.defaults()
	return &Watcher{
		cfg:       cfg,
		seen:      expirable.NewLRU[string, struct{}](cfg.SeenSize, nil, cfg.SeenTTL),
		highWater: make(map[string]string, len(cfg.Sources)),
	}, nil
}

// Run polls until ctx is done or the handler fails.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		if err := w.Poll(ctx); err != nil {
			return err
		}
		select {
		case <-time.After(w.cfg.Interval):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Poll runs one round over every source concurrently. A failing source is
// logged and retried next round; only handler errors and ctx end the round.
func (w *Watcher) Poll(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, src := range w.cfg.Sources {
		g.Go(func() error {
			return w.pollSource(ctx, src)
		})
	}
	return g.Wait()
}

// HighWater returns the newest id emitted for a source.
func (w *Watcher) HighWater(source string) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.highWater[source]
}

func (w *Watcher) pollSource(ctx context.Context, src Source) error {
	name := src.Name()
	tl, err := src.Open(w.cfg.Client)
	if err != nil {
		slog.Warn("watch source open failed", slog.String("source", name), slog.Any("error", err))
		return nil
	}

	mark := w.HighWater(name)
	var fresh []*Tweet
	reached := false
	for len(fresh) < w.cfg.Backfill {
		t, ok := tl.Next(ctx)
		if !ok {
			if tl.Status().Terminal() || ctx.Err() != nil {
				break
			}
			continue
		}
		if mark != "" && snowflake.Compare(t.ID, mark) <= 0 {
			reached = true
			break
		}
		fresh = append(fresh, t)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if tl.Status() == StatusError {
		slog.Warn("watch source failed", slog.String("source", name), slog.Any("error", tl.Err()))
	}
	if len(fresh) == 0 {
		return nil
	}

	newest, oldest := fresh[0].ID, fresh[0].ID
	for _, t := range fresh[1:] {
		if snowflake.Compare(t.ID, newest) > 0 {
			newest = t.ID
		}
		if snowflake.Compare(t.ID, oldest) < 0 {
			oldest = t.ID
		}
	}
	gap := mark != "" && !reached && len(fresh) >= w.cfg.Backfill
	w.mu.Lock()
	if snowflake.Compare(newest, w.highWater[name]) > 0 {
		w.highWater[name] = newest
	}
	w.mu.Unlock()

	slices.Reverse(fresh)
	w.emitMu.Lock()
	defer w.emitMu.Unlock()
	if gap {
		slog.Warn("watch backfill limit reached before previous high-water mark",
			slog.String("source", name),
			slog.String("after", mark),
			slog.String("before", oldest))
		if w.cfg.OnGap != nil {
			w.cfg.OnGap(name, mark, oldest)
		}
	}
	emitted := 0
	for _, t := range fresh {
		if _, dup := w.seen.Get(t.ID); dup {
			continue
		}
		w.seen.Add(t.ID, struct{}{})
		if err := w.cfg.Handler(ctx, name, t); err != nil {
			return fmt.Errorf("watch handler %s: %w", name, err)
		}
		emitted++
	}
	slog.Debug("watch round", slog.String("source", name), slog.Int("fresh", len(fresh)), slog.Int("emitted", emitted))
	return nil
}

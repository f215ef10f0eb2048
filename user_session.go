package timeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/anatolykoptev/go-timeline/snowflake"
)

// UserSessionOptions selects the account whose timeline is walked.
type UserSessionOptions struct {
	// UserID is preferred over Handle for the direct endpoint when set.
	UserID string
	// Handle is required: the search fallback can only query by screen name.
	Handle  string
	MaxID   string
	MaxTime time.Time
}

// UserSession walks one account's tweets and retweets. It starts on the
// user_timeline endpoint and falls back to from: search once that endpoint
// returns an empty page, since user_timeline stops short of old tweets.
type UserSession struct {
	Session
	userID string
	handle string
}

// NewUserSession creates a user timeline session. Without a usable id cursor
// (MaxTime before the snowflake epoch) it goes straight to search.
func NewUserSession(c *Client, opts UserSessionOptions) (*UserSession, error) {
	if opts.Handle == "" {
		return nil, errors.New("user session: handle is required")
	}
	if err := validateMaxID(opts.MaxID); err != nil {
		return nil, fmt.Errorf("user session: %w", err)
	}
	s := &UserSession{userID: opts.UserID, handle: opts.Handle}
	s.init(c, KindUser, s, SessionOptions{MaxID: opts.MaxID, MaxTime: opts.MaxTime})
	if s.cursor == "" {
		s.apiInUse = KindSearch
	}
	s.status = StatusSearch
	return s, nil
}

// Handle returns the walked account's screen name.
func (s *UserSession) Handle() string { return s.handle }

func (s *UserSession) fetchPage(ctx context.Context, _ *Session) ([]*Tweet, error) {
	if s.apiInUse == KindSearch {
		return s.client.SearchTweets(ctx, s.searchQuery(), s.pageSize(KindSearch))
	}
	return s.client.GetUserTweets(ctx, UserQuery{
		UserID: s.userID,
		Handle: s.handle,
		MaxID:  s.cursor,
		Count:  s.pageSize(KindUser),
	})
}

func (s *UserSession) exhausted(_ *Session) {
	if s.apiInUse == KindUser {
		slog.Info("user timeline exhausted, falling back to search",
			slog.String("handle", s.handle),
			slog.String("cursor", s.cursor))
		s.apiInUse = KindSearch
		return
	}
	s.end()
}

func (s *UserSession) searchQuery() string {
	return "from:" + s.handle + " include:retweets include:nativeretweets " + s.rangeClause()
}

func validateMaxID(id string) error {
	if id != "" && !snowflake.IsID(id) {
		return fmt.Errorf("max id %q is not a decimal id", id)
	}
	return nil
}

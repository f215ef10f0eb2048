package timeline

import (
	"context"
	"fmt"
	"time"
)

// NotificationsSession walks the logged-in account's mentions and replies.
type NotificationsSession struct {
	Session
}

// NewNotificationsSession creates a notifications session bounded by opts.
func NewNotificationsSession(c *Client, opts SessionOptions) (*NotificationsSession, error) {
	if err := validateMaxID(opts.MaxID); err != nil {
		return nil, fmt.Errorf("notifications session: %w", err)
	}
	s := &NotificationsSession{}
	s.init(c, KindNotifications, s, opts)
	if s.cursor == "" {
		// about_me has no time operator; start from the newest and let the
		// caller stop at MaxTime.
		s.cursor = defaultCursor()
		s.maxTime = time.Time{}
	}
	s.status = StatusSearch
	return s, nil
}

func (s *NotificationsSession) fetchPage(ctx context.Context, _ *Session) ([]*Tweet, error) {
	return s.client.GetNotifications(ctx, s.cursor, s.pageSize(KindNotifications))
}

func (s *NotificationsSession) exhausted(_ *Session) { s.end() }

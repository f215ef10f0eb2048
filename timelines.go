package timeline

import (
	"context"
	"encoding/json"
	"fmt"
)

// UserQuery selects a page of a user's timeline.
type UserQuery struct {
	// UserID wins over Handle when both are set.
	UserID string
	Handle string
	MaxID  string
	Count  int
}

// FetchUserTimeline fetches one raw statuses/user_timeline page.
func (c *Client) FetchUserTimeline(ctx context.Context, q UserQuery) (json.RawMessage, error) {
	ep, err := c.registry.Endpoint(KindUser)
	if err != nil {
		return nil, err
	}
	return c.Call(ctx, KindUser, ep.UserTimelineURL(q.UserID, q.Handle, q.MaxID, q.Count))
}

// FetchSearchTimeline fetches one raw search/universal page for a full query,
// including any max_id: or until: clause.
func (c *Client) FetchSearchTimeline(ctx context.Context, query string, count int) (json.RawMessage, error) {
	ep, err := c.registry.Endpoint(KindSearch)
	if err != nil {
		return nil, err
	}
	return c.Call(ctx, KindSearch, ep.SearchURL(query, count))
}

// FetchNotificationsTimeline fetches one raw activity/about_me page.
func (c *Client) FetchNotificationsTimeline(ctx context.Context, maxID string, count int) (json.RawMessage, error) {
	ep, err := c.registry.Endpoint(KindNotifications)
	if err != nil {
		return nil, err
	}
	return c.Call(ctx, KindNotifications, ep.NotificationsURL(maxID, count))
}

// GetUserTweets fetches and normalizes one page of a user's timeline.
func (c *Client) GetUserTweets(ctx context.Context, q UserQuery) ([]*Tweet, error) {
	body, err := c.FetchUserTimeline(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("user timeline: %w", err)
	}
	return c.normalizer.ParseUserTimeline(body)
}

// SearchTweets fetches and normalizes one page of search results.
func (c *Client) SearchTweets(ctx context.Context, query string, count int) ([]*Tweet, error) {
	body, err := c.FetchSearchTimeline(ctx, query, count)
	if err != nil {
		return nil, fmt.Errorf("search timeline: %w", err)
	}
	return c.normalizer.ParseSearchTimeline(body)
}

// GetNotifications fetches and normalizes one page of notifications.
func (c *Client) GetNotifications(ctx context.Context, maxID string, count int) ([]*Tweet, error) {
	body, err := c.FetchNotificationsTimeline(ctx, maxID, count)
	if err != nil {
		return nil, fmt.Errorf("notifications timeline: %w", err)
	}
	return c.normalizer.ParseNotifications(body)
}

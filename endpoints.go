package timeline

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/anatolykoptev/go-timeline/snowflake"
)

const twitterAPIURL = "https://api.twitter.com"

// BearerToken is the public bearer token the Twitter web app sends with REST calls.
var BearerToken = "AAAAAAAAAAAAAAAAAAAAANRILgAAAAAAnNwIzUejRCOuH5E6I8xnZz4puTs%3D1Zv7ttfk8LF81IUq16cHjhLTvJu4FA33AGWWjCpTnA"

// Kind names a logical timeline and the upstream endpoint that serves it.
type Kind string

const (
	KindUser          Kind = "user"
	KindSearch        Kind = "search"
	KindNotifications Kind = "notifications"
)

// Upstream spacing; the REST quota resets every 15 minutes
// (900 calls for user_timeline and search, 180 for about_me).
const (
	DelayShort = 1100 * time.Millisecond
	DelayLong  = 5100 * time.Millisecond
)

// Endpoint describes one upstream REST operation and its call policy.
type Endpoint struct {
	Kind         Kind
	URLTemplate  string
	DefaultCount int
	MaxCount     int
	MinDelay     time.Duration
	MaxRetry     int

	// WindowQuota calls are allowed per Window. Zero disables the quota.
	WindowQuota int
	Window      time.Duration
}

const commonParams = "cards_platform=Web-13&include_entities=1&include_user_entities=1&include_cards=1&send_error_codes=1&tweet_mode=extended&include_ext_alt_text=true&include_reply_count=true"

// DefaultEndpoints returns a fresh copy of the built-in endpoint table.
func DefaultEndpoints() map[Kind]Endpoint {
	return map[Kind]Endpoint{
		KindUser: {
			Kind:         KindUser,
			URLTemplate:  twitterAPIURL + "/1.1/statuses/user_timeline.json?count=#COUNT#&include_my_retweet=1&include_rts=1&" + commonParams,
			DefaultCount: 20,
			MaxCount:     40,
			MinDelay:     DelayShort,
			MaxRetry:     3,
			WindowQuota:  900,
			Window:       15 * time.Minute,
		},
		KindSearch: {
			Kind:         KindSearch,
			URLTemplate:  twitterAPIURL + "/1.1/search/universal.json?q=#QUERY#&count=#COUNT#&modules=status&result_type=recent&pc=false&" + commonParams,
			DefaultCount: 20,
			MaxCount:     40,
			MinDelay:     DelayShort,
			MaxRetry:     3,
			WindowQuota:  900,
			Window:       15 * time.Minute,
		},
		KindNotifications: {
			Kind:         KindNotifications,
			URLTemplate:  twitterAPIURL + "/1.1/activity/about_me.json?model_version=7&count=#COUNT#&skip_aggregation=true&" + commonParams,
			DefaultCount: 20,
			MaxCount:     40,
			MinDelay:     DelayLong,
			MaxRetry:     3,
			WindowQuota:  180,
			Window:       15 * time.Minute,
		},
	}
}

// clampCount falls back to the default for unset or oversized page sizes.
func (e Endpoint) clampCount(count int) int {
	if count <= 0 || count > e.MaxCount {
		return e.DefaultCount
	}
	return count
}

func (e Endpoint) expand(count int, query string) string {
	u := strings.ReplaceAll(e.URLTemplate, "#COUNT#", strconv.Itoa(e.clampCount(count)))
	return strings.ReplaceAll(u, "#QUERY#", escapeComponent(query))
}

// escapeComponent percent-encodes spaces as %20 rather than '+'.
func escapeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// UserTimelineURL builds a user_timeline URL. userID wins over handle when set;
// maxID is appended only when it is a plain decimal id.
func (e Endpoint) UserTimelineURL(userID, handle, maxID string, count int) string {
	u := e.expand(count, "")
	if userID != "" {
		u += "&user_id=" + escapeComponent(userID)
	} else {
		u += "&screen_name=" + escapeComponent(handle)
	}
	if snowflake.IsID(maxID) {
		u += "&max_id=" + maxID
	}
	return u
}

// SearchURL builds a search/universal URL for a raw query string.
func (e Endpoint) SearchURL(query string, count int) string {
	return e.expand(count, query)
}

// NotificationsURL builds an activity/about_me URL.
func (e Endpoint) NotificationsURL(maxID string, count int) string {
	u := e.expand(count, "")
	if snowflake.IsID(maxID) {
		u += "&max_id=" + maxID
	}
	return u
}

// lookupEndpoint returns the endpoint for a kind, or an error if unknown.
func lookupEndpoint(endpoints map[Kind]Endpoint, kind Kind) (Endpoint, error) {
	ep, ok := endpoints[kind]
	if !ok {
		return Endpoint{}, fmt.Errorf("unknown endpoint: %s", kind)
	}
	return ep, nil
}

package timeline

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// MediaFilter restricts search results by attachment type.
type MediaFilter struct {
	// UseMediaFilter enables the filter; the other fields are ignored without it.
	UseMediaFilter bool
	Image          bool
	GIF            bool
	Video          bool
	// NoMedia keeps tweets without media too, which disables the type filters
	// while still stripping the caller's own media operators.
	NoMedia bool
}

// SearchSessionOptions configures NewSearchSession.
type SearchSessionOptions struct {
	Query   string
	Filter  MediaFilter
	MaxID   string
	MaxTime time.Time
}

// SearchSession walks the results of a search query, newest first. Range
// operators in the caller's query are dropped: the session owns the cursor.
type SearchSession struct {
	Session
	queryBase string
}

var (
	rangeOperatorRe = regexp.MustCompile(`-?(?:since|until|since_id|max_id):[^\s]+(?:\s+OR\s+)?`)
	mediaOperatorRe = []*regexp.Regexp{
		regexp.MustCompile(`-?filter:(?:media|periscope)(?:\s+OR\s+)?`),
		regexp.MustCompile(`-?filter:(?:images)(?:\s+OR\s+)?`),
		regexp.MustCompile(`-?card_name:animated_gif(?:\s+OR\s+)?`),
		regexp.MustCompile(`-?filter:(?:videos|native_video|vine)(?:\s+OR\s+)?`),
	}
	spaceRe = regexp.MustCompile(`\s+`)
)

// SanitizeQuery removes range operators and, with a media filter, replaces the
// caller's media operators with the filter's own.
func SanitizeQuery(query string, f MediaFilter) string {
	q := rangeOperatorRe.ReplaceAllString(query, " ")
	if f.UseMediaFilter {
		for _, re := range mediaOperatorRe {
			q = re.ReplaceAllString(q, " ")
		}
		if !f.NoMedia {
			var filters []string
			if f.Image {
				filters = append(filters, "filter:images")
			}
			if f.GIF {
				filters = append(filters, "card_name:animated_gif")
			}
			if f.Video {
				filters = append(filters, "filter:videos", "filter:native_video", "filter:vine")
			}
			q += " " + strings.Join(filters, " OR ")
		}
	}
	return strings.TrimSpace(spaceRe.ReplaceAllString(q, " "))
}

// NewSearchSession creates a search session. It never falls back to another
// endpoint: an empty page ends it.
func NewSearchSession(c *Client, opts SearchSessionOptions) (*SearchSession, error) {
	if err := validateMaxID(opts.MaxID); err != nil {
		return nil, fmt.Errorf("search session: %w", err)
	}
	s := &SearchSession{queryBase: SanitizeQuery(opts.Query, opts.Filter)}
	s.init(c, KindSearch, s, SessionOptions{MaxID: opts.MaxID, MaxTime: opts.MaxTime})
	s.status = StatusSearch
	return s, nil
}

// QueryBase is the sanitized query the cursor clause is appended to.
func (s *SearchSession) QueryBase() string { return s.queryBase }

func (s *SearchSession) fetchPage(ctx context.Context, _ *Session) ([]*Tweet, error) {
	return s.client.SearchTweets(ctx, s.queryBase+" "+s.rangeClause(), s.pageSize(KindSearch))
}

func (s *SearchSession) exhausted(_ *Session) { s.end() }

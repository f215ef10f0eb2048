package timeline

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"time"
)

const (
	twitterTimeLayout = "Mon Jan 02 15:04:05 +0000 2006"
	datetimeLayout    = "2006/01/02 15:04:05"
)

// photoExtRe turns ".../name.jpg" into ".../name?format=jpg&name=orig".
var photoExtRe = regexp.MustCompile(`\.([^.]+)$`)

type rawUser struct {
	IDStr           string `json:"id_str"`
	ScreenName      string `json:"screen_name"`
	Name            string `json:"name"`
	ProfileImageURL string `json:"profile_image_url_https"`
}

type rawVariant struct {
	ContentType string `json:"content_type"`
	Bitrate     *int   `json:"bitrate"`
	URL         string `json:"url"`
}

type rawMedia struct {
	Type          string `json:"type"`
	MediaURLHTTPS string `json:"media_url_https"`
	VideoInfo     *struct {
		Variants []rawVariant `json:"variants"`
	} `json:"video_info"`
}

type rawEntities struct {
	Media []rawMedia `json:"media"`
}

type rawStatus struct {
	IDStr            string       `json:"id_str"`
	CreatedAt        string       `json:"created_at"`
	FullText         string       `json:"full_text"`
	User             *rawUser     `json:"user"`
	Entities         *rawEntities `json:"entities"`
	ExtendedEntities *rawEntities `json:"extended_entities"`
	ReplyCount       int          `json:"reply_count"`
	RetweetCount     int          `json:"retweet_count"`
	FavoriteCount    int          `json:"favorite_count"`
	RetweetedStatus  *rawStatus   `json:"retweeted_status"`
}

// Normalizer turns upstream status objects into Tweet records.
type Normalizer struct {
	// KeepRaw retains the upstream status on each record.
	KeepRaw bool
}

// Normalize converts one unwrapped status object. It fails with ErrItem when the
// object is not a status or lacks an id or author.
func (n Normalizer) Normalize(raw json.RawMessage) (*Tweet, error) {
	var st rawStatus
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrItem, err)
	}
	if st.IDStr == "" {
		return nil, fmt.Errorf("%w: empty id_str", ErrItem)
	}
	if st.User == nil {
		return nil, fmt.Errorf("%w: status %s has no user", ErrItem, st.IDStr)
	}

	t := &Tweet{
		Post:     buildPost(&st),
		Reaction: Reaction{Kind: ReactionNone},
	}
	if rt := st.RetweetedStatus; rt != nil && rt.IDStr != "" {
		p := buildPost(rt)
		t.Reaction = Reaction{Kind: ReactionRetweet, Post: &p}
	}
	if n.KeepRaw {
		t.Raw = append(json.RawMessage(nil), raw...)
	}
	return t, nil
}

func buildPost(st *rawStatus) Post {
	var u rawUser
	if st.User != nil {
		u = *st.User
	}
	p := Post{
		ID: st.IDStr,
		Author: Author{
			ID:          u.IDStr,
			Handle:      u.ScreenName,
			DisplayName: u.Name,
			AvatarURL:   u.ProfileImageURL,
		},
		Text: st.FullText,
		Counts: Counts{
			Replies:  st.ReplyCount,
			Retweets: st.RetweetCount,
			Likes:    st.FavoriteCount,
		},
		URL: Permalink(u.ScreenName, st.IDStr),
	}
	if st.CreatedAt != "" {
		if ts, err := time.Parse(twitterTimeLayout, st.CreatedAt); err == nil {
			p.CreatedAt = ts
			p.Datetime = ts.Local().Format(datetimeLayout)
		}
	}
	p.Media = mediaList(st)
	p.MediaKind = MediaNone
	if len(p.Media) > 0 {
		p.MediaKind = p.Media[0].Kind
	}
	return p
}

// Permalink is the canonical status URL; upstream URLs are never used.
func Permalink(handle, id string) string {
	return "https://twitter.com/" + handle + "/status/" + id
}

// mediaList prefers extended_entities over entities and drops anything that
// does not resolve to a URL.
func mediaList(st *rawStatus) []MediaItem {
	var source []rawMedia
	switch {
	case st.ExtendedEntities != nil && st.ExtendedEntities.Media != nil:
		source = st.ExtendedEntities.Media
	case st.Entities != nil && st.Entities.Media != nil:
		source = st.Entities.Media
	}

	var items []MediaItem
	for _, m := range source {
		var item MediaItem
		switch m.Type {
		case "photo":
			item = MediaItem{Kind: MediaImage, URL: originalPhotoURL(m.MediaURLHTTPS)}
		case "animated_gif":
			item = MediaItem{Kind: MediaGIF, URL: bestMP4(m)}
		case "video":
			item = MediaItem{Kind: MediaVideo, URL: bestMP4(m)}
		default:
			slog.Debug("skip unknown media type", slog.String("type", m.Type))
			continue
		}
		if item.URL == "" {
			continue
		}
		items = append(items, item)
	}
	return items
}

func originalPhotoURL(u string) string {
	if u == "" {
		return ""
	}
	return photoExtRe.ReplaceAllString(u, "?format=$1&name=orig")
}

// bestMP4 picks the highest-bitrate video/mp4 variant. Variants without a
// bitrate never win; on a tie the first one is kept.
func bestMP4(m rawMedia) string {
	if m.VideoInfo == nil {
		return ""
	}
	best, bestRate := "", -1
	for _, v := range m.VideoInfo.Variants {
		if v.ContentType != "video/mp4" || v.Bitrate == nil {
			continue
		}
		if bestRate < *v.Bitrate {
			best, bestRate = v.URL, *v.Bitrate
		}
	}
	return best
}

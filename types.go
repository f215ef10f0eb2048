package timeline

import (
	"encoding/json"
	"time"
)

// MediaKind classifies an attachment.
type MediaKind string

const (
	MediaNone  MediaKind = "nomedia"
	MediaImage MediaKind = "image"
	MediaGIF   MediaKind = "gif"
	MediaVideo MediaKind = "video"
)

// MediaItem is one resolved attachment.
type MediaItem struct {
	Kind MediaKind `json:"kind" yaml:"kind"`
	URL  string    `json:"url" yaml:"url"`
}

// ReactionKind tags what the timeline owner did to produce an item.
type ReactionKind string

const (
	ReactionNone    ReactionKind = "none"
	ReactionRetweet ReactionKind = "retweet"
)

// Author identifies a tweet's account.
type Author struct {
	ID          string `json:"id" yaml:"id"`
	Handle      string `json:"handle" yaml:"handle"`
	DisplayName string `json:"display_name" yaml:"display_name"`
	AvatarURL   string `json:"avatar_url" yaml:"avatar_url"`
}

// Counts are engagement totals at fetch time.
type Counts struct {
	Replies  int `json:"replies" yaml:"replies"`
	Retweets int `json:"retweets" yaml:"retweets"`
	Likes    int `json:"likes" yaml:"likes"`
}

// Post is the part shared by a tweet and the status it reacts to.
type Post struct {
	ID        string      `json:"id" yaml:"id"`
	Author    Author      `json:"author" yaml:"author"`
	CreatedAt time.Time   `json:"created_at" yaml:"created_at"`
	Datetime  string      `json:"datetime" yaml:"datetime"`
	Text      string      `json:"text" yaml:"text"`
	MediaKind MediaKind   `json:"media_kind" yaml:"media_kind"`
	Media     []MediaItem `json:"media,omitempty" yaml:"media,omitempty"`
	Counts    Counts      `json:"counts" yaml:"counts"`
	URL       string      `json:"url" yaml:"url"`
}

// Reaction is either none or a retweet carrying the original status.
type Reaction struct {
	Kind ReactionKind `json:"kind" yaml:"kind"`
	Post *Post        `json:"post,omitempty" yaml:"post,omitempty"`
}

// Tweet is the canonical timeline record.
type Tweet struct {
	Post     `yaml:",inline"`
	Reaction Reaction `json:"reaction" yaml:"reaction"`

	// Metadata is the search module's status metadata, when the tweet came from search.
	Metadata json.RawMessage `json:"metadata,omitempty" yaml:"-"`
	// Raw is the upstream status, kept only when the client is configured to.
	Raw json.RawMessage `json:"raw,omitempty" yaml:"-"`
}

// Status is a session's lifecycle state.
type Status string

const (
	StatusInit   Status = "init"
	StatusSearch Status = "search"
	StatusEnd    Status = "end"
	StatusError  Status = "error"
)

// Terminal reports whether no further pagination will happen.
func (s Status) Terminal() bool {
	return s == StatusEnd || s == StatusError
}

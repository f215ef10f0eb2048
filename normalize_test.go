package timeline

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleStatus = `{
	"id_str": "1212161512043446272",
	"created_at": "Wed Jan 01 00:00:00 +0000 2020",
	"full_text": "happy new year",
	"reply_count": 3,
	"retweet_count": 5,
	"favorite_count": 8,
	"user": {
		"id_str": "12",
		"screen_name": "jack",
		"name": "jack",
		"profile_image_url_https": "https://pbs.twimg.com/profile_images/1/a_normal.jpg"
	},
	"entities": {
		"media": [{"type": "photo", "media_url_https": "https://pbs.twimg.com/media/entities.png"}]
	},
	"extended_entities": {
		"media": [
			{"type": "photo", "media_url_https": "https://pbs.twimg.com/media/first.jpg"},
			{"type": "photo", "media_url_https": "https://pbs.twimg.com/media/second.png"}
		]
	}
}`

func TestNormalize(t *testing.T) {
	tw, err := Normalizer{}.Normalize(json.RawMessage(sampleStatus))
	require.NoError(t, err)

	assert.Equal(t, "1212161512043446272", tw.ID)
	assert.Equal(t, Author{
		ID:          "12",
		Handle:      "jack",
		DisplayName: "jack",
		AvatarURL:   "https://pbs.twimg.com/profile_images/1/a_normal.jpg",
	}, tw.Author)
	assert.Equal(t, "happy new year", tw.Text)
	assert.Equal(t, Counts{Replies: 3, Retweets: 5, Likes: 8}, tw.Counts)
	assert.True(t, tw.CreatedAt.Equal(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, tw.CreatedAt.Local().Format("2006/01/02 15:04:05"), tw.Datetime)
	assert.Equal(t, "https://twitter.com/jack/status/1212161512043446272", tw.URL)
	assert.Equal(t, ReactionNone, tw.Reaction.Kind)
	assert.Nil(t, tw.Reaction.Post)
	assert.Nil(t, tw.Raw)
}

func TestNormalizePrefersExtendedEntities(t *testing.T) {
	tw, err := Normalizer{}.Normalize(json.RawMessage(sampleStatus))
	require.NoError(t, err)

	assert.Equal(t, MediaImage, tw.MediaKind)
	assert.Equal(t, []MediaItem{
		{Kind: MediaImage, URL: "https://pbs.twimg.com/media/first?format=jpg&name=orig"},
		{Kind: MediaImage, URL: "https://pbs.twimg.com/media/second?format=png&name=orig"},
	}, tw.Media)
}

func TestNormalizeFallsBackToEntities(t *testing.T) {
	raw := `{"id_str":"1","user":{"screen_name":"a"},
		"entities":{"media":[{"type":"photo","media_url_https":"https://pbs.twimg.com/media/x.jpg"}]}}`
	tw, err := Normalizer{}.Normalize(json.RawMessage(raw))
	require.NoError(t, err)
	require.Len(t, tw.Media, 1)
	assert.Equal(t, "https://pbs.twimg.com/media/x?format=jpg&name=orig", tw.Media[0].URL)
}

func TestNormalizeVideoPicksHighestBitrateMP4(t *testing.T) {
	raw := `{"id_str":"2","user":{"screen_name":"a"},
		"extended_entities":{"media":[{"type":"video","video_info":{"variants":[
			{"content_type":"video/mp4","bitrate":100,"url":"https://video.twimg.com/100.mp4"},
			{"content_type":"video/mp4","bitrate":800,"url":"https://video.twimg.com/800.mp4"},
			{"content_type":"video/webm","bitrate":999,"url":"https://video.twimg.com/999.webm"},
			{"content_type":"application/x-mpegURL","url":"https://video.twimg.com/pl.m3u8"}
		]}}]}}`
	tw, err := Normalizer{}.Normalize(json.RawMessage(raw))
	require.NoError(t, err)

	assert.Equal(t, MediaVideo, tw.MediaKind)
	assert.Equal(t, []MediaItem{{Kind: MediaVideo, URL: "https://video.twimg.com/800.mp4"}}, tw.Media)
}

func TestNormalizeDropsUnresolvableMedia(t *testing.T) {
	raw := `{"id_str":"3","user":{"screen_name":"a"},
		"extended_entities":{"media":[
			{"type":"animated_gif","video_info":{"variants":[{"content_type":"video/webm","bitrate":1,"url":"x"}]}},
			{"type":"video","video_info":{"variants":[{"content_type":"video/mp4","url":"no-bitrate.mp4"}]}},
			{"type":"photo"}
		]}}`
	tw, err := Normalizer{}.Normalize(json.RawMessage(raw))
	require.NoError(t, err)

	assert.Empty(t, tw.Media)
	assert.Equal(t, MediaNone, tw.MediaKind)
}

func TestNormalizeGIFKindFromFirstItem(t *testing.T) {
	raw := `{"id_str":"4","user":{"screen_name":"a"},
		"extended_entities":{"media":[
			{"type":"animated_gif","video_info":{"variants":[{"content_type":"video/mp4","bitrate":0,"url":"https://video.twimg.com/g.mp4"}]}},
			{"type":"photo","media_url_https":"https://pbs.twimg.com/media/p.jpg"}
		]}}`
	tw, err := Normalizer{}.Normalize(json.RawMessage(raw))
	require.NoError(t, err)

	assert.Equal(t, MediaGIF, tw.MediaKind)
	require.Len(t, tw.Media, 2)
	assert.Equal(t, "https://video.twimg.com/g.mp4", tw.Media[0].URL)
}

func TestNormalizeRetweet(t *testing.T) {
	raw := `{"id_str":"20","full_text":"RT @orig: hello","user":{"id_str":"1","screen_name":"rter"},
		"retweeted_status":{"id_str":"10","full_text":"hello","favorite_count":42,
			"created_at":"Wed Jan 01 00:00:00 +0000 2020",
			"user":{"id_str":"2","screen_name":"orig"},
			"extended_entities":{"media":[{"type":"photo","media_url_https":"https://pbs.twimg.com/media/o.jpg"}]}}}`
	tw, err := Normalizer{}.Normalize(json.RawMessage(raw))
	require.NoError(t, err)

	assert.Equal(t, ReactionRetweet, tw.Reaction.Kind)
	require.NotNil(t, tw.Reaction.Post)
	rt := tw.Reaction.Post
	assert.Equal(t, "10", rt.ID)
	assert.Equal(t, "orig", rt.Author.Handle)
	assert.Equal(t, 42, rt.Counts.Likes)
	assert.Equal(t, "https://twitter.com/orig/status/10", rt.URL)
	assert.Equal(t, MediaImage, rt.MediaKind)
	assert.Equal(t, "https://twitter.com/rter/status/20", tw.URL)
}

func TestNormalizeRetweetWithoutIDIsNone(t *testing.T) {
	raw := `{"id_str":"20","user":{"screen_name":"a"},"retweeted_status":{"full_text":"x"}}`
	tw, err := Normalizer{}.Normalize(json.RawMessage(raw))
	require.NoError(t, err)
	assert.Equal(t, ReactionNone, tw.Reaction.Kind)
	assert.Nil(t, tw.Reaction.Post)
}

func TestNormalizeKeepRaw(t *testing.T) {
	tw, err := Normalizer{KeepRaw: true}.Normalize(json.RawMessage(sampleStatus))
	require.NoError(t, err)
	assert.JSONEq(t, sampleStatus, string(tw.Raw))
}

func TestNormalizeRejectsMalformedItem(t *testing.T) {
	for _, raw := range []string{`{"user":{"screen_name":"a"}}`, `{"id_str":"1"}`, `[1,2]`} {
		_, err := Normalizer{}.Normalize(json.RawMessage(raw))
		assert.True(t, errors.Is(err, ErrItem), "input %s", raw)
	}
}

func TestParseUserTimelineSkipsBadItems(t *testing.T) {
	body := `[` + sampleStatus + `, {"id_str": ""}, {"id_str":"5","user":{"screen_name":"b"}}]`
	tweets, err := Normalizer{}.ParseUserTimeline([]byte(body))
	require.NoError(t, err)
	require.Len(t, tweets, 2)
	assert.Equal(t, "1212161512043446272", tweets[0].ID)
	assert.Equal(t, "5", tweets[1].ID)
}

func TestParseUserTimelineRejectsObject(t *testing.T) {
	_, err := Normalizer{}.ParseUserTimeline([]byte(`{"errors":[{"code":34}]}`))
	var se *StructuralError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, KindUser, se.Endpoint)
	assert.JSONEq(t, `{"errors":[{"code":34}]}`, string(se.Payload))
}

func TestParseNotificationsEmpty(t *testing.T) {
	tweets, err := Normalizer{}.ParseNotifications([]byte(` [] `))
	require.NoError(t, err)
	assert.Empty(t, tweets)
}

func TestParseSearchTimeline(t *testing.T) {
	body := `{"modules":[
		{"status":{"data":` + sampleStatus + `,"metadata":{"result_type":"recent"}}},
		{"user_gallery":{"data":{}}},
		{"status":{"data":"not an object"}},
		{"status":{"data":{"id_str":"7","user":{"screen_name":"c"}}}}
	]}`
	tweets, err := Normalizer{}.ParseSearchTimeline([]byte(body))
	require.NoError(t, err)
	require.Len(t, tweets, 2)
	assert.Equal(t, "1212161512043446272", tweets[0].ID)
	assert.JSONEq(t, `{"result_type":"recent"}`, string(tweets[0].Metadata))
	assert.Equal(t, "7", tweets[1].ID)
	assert.Nil(t, tweets[1].Metadata)
}

func TestParseSearchTimelineStructuralErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"array", `[]`},
		{"no modules", `{"metadata":{}}`},
		{"modules not array", `{"modules":{"status":{}}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalizer{}.ParseSearchTimeline([]byte(tt.body))
			var se *StructuralError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, KindSearch, se.Endpoint)
		})
	}
}

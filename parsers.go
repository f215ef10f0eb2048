package timeline

import (
	"encoding/json"
	"log/slog"
)

// parseStatusArray parses the flat-array shape returned by the user and
// notifications endpoints.
func (n Normalizer) parseStatusArray(kind Kind, body []byte) ([]*Tweet, error) {
	var items []json.RawMessage
	if firstByte(body) != '[' || json.Unmarshal(body, &items) != nil {
		return nil, &StructuralError{Endpoint: kind, Reason: "expected array of statuses", Payload: cloneRaw(body)}
	}
	return n.normalizeAll(kind, items), nil
}

// ParseUserTimeline parses a statuses/user_timeline response.
func (n Normalizer) ParseUserTimeline(body []byte) ([]*Tweet, error) {
	return n.parseStatusArray(KindUser, body)
}

// ParseNotifications parses an activity/about_me response.
func (n Normalizer) ParseNotifications(body []byte) ([]*Tweet, error) {
	return n.parseStatusArray(KindNotifications, body)
}

// ParseSearchTimeline parses a search/universal response, unwrapping each
// module's status and attaching its metadata.
func (n Normalizer) ParseSearchTimeline(body []byte) ([]*Tweet, error) {
	var raw struct {
		Modules json.RawMessage `json:"modules"`
	}
	if firstByte(body) != '{' || json.Unmarshal(body, &raw) != nil {
		return nil, &StructuralError{Endpoint: KindSearch, Reason: "expected object", Payload: cloneRaw(body)}
	}
	var modules []json.RawMessage
	if firstByte(raw.Modules) != '[' || json.Unmarshal(raw.Modules, &modules) != nil {
		return nil, &StructuralError{Endpoint: KindSearch, Reason: "expected modules array", Payload: cloneRaw(body)}
	}

	var tweets []*Tweet
	for i, m := range modules {
		var module struct {
			Status *struct {
				Data     json.RawMessage `json:"data"`
				Metadata json.RawMessage `json:"metadata"`
			} `json:"status"`
		}
		if err := json.Unmarshal(m, &module); err != nil || module.Status == nil || firstByte(module.Status.Data) != '{' {
			slog.Debug("skip search module without status", slog.Int("index", i))
			continue
		}
		t, err := n.Normalize(module.Status.Data)
		if err != nil {
			slog.Debug("skip tweet parse error", slog.String("endpoint", string(KindSearch)), slog.Any("error", err))
			continue
		}
		if len(module.Status.Metadata) > 0 && string(module.Status.Metadata) != "null" {
			t.Metadata = cloneRaw(module.Status.Metadata)
		}
		tweets = append(tweets, t)
	}
	return tweets, nil
}

// parse dispatches on the endpoint's response shape.
func (n Normalizer) parse(kind Kind, body []byte) ([]*Tweet, error) {
	switch kind {
	case KindSearch:
		return n.ParseSearchTimeline(body)
	case KindNotifications:
		return n.ParseNotifications(body)
	default:
		return n.ParseUserTimeline(body)
	}
}

func (n Normalizer) normalizeAll(kind Kind, items []json.RawMessage) []*Tweet {
	tweets := make([]*Tweet, 0, len(items))
	for _, item := range items {
		t, err := n.Normalize(item)
		if err != nil {
			slog.Debug("skip tweet parse error", slog.String("endpoint", string(kind)), slog.Any("error", err))
			continue
		}
		tweets = append(tweets, t)
	}
	return tweets
}

func cloneRaw(b []byte) json.RawMessage {
	if b == nil {
		return nil
	}
	return append(json.RawMessage(nil), b...)
}

package timeline

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeResponse is one scripted bridge result.
type fakeResponse struct {
	body string
	err  error
}

// fakeCall is one request seen by the fake.
type fakeCall struct {
	kind Kind
	url  *url.URL
	req  Request
	at   time.Time
}

// fakeAPI scripts responses per endpoint. An exhausted script answers with
// an empty page.
type fakeAPI struct {
	mu      sync.Mutex
	scripts map[Kind][]fakeResponse
	calls   []fakeCall
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{scripts: make(map[Kind][]fakeResponse)}
}

func (f *fakeAPI) push(kind Kind, responses ...fakeResponse) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scripts[kind] = append(f.scripts[kind], responses...)
}

func (f *fakeAPI) Fetch(ctx context.Context, req Request) (json.RawMessage, error) {
	u, err := url.Parse(req.URL)
	if err != nil {
		return nil, err
	}
	kind := kindOfPath(u.Path)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fakeCall{kind: kind, url: u, req: req, at: time.Now()})
	script := f.scripts[kind]
	if len(script) == 0 {
		if kind == KindSearch {
			return json.RawMessage(`{"modules":[]}`), nil
		}
		return json.RawMessage(`[]`), nil
	}
	r := script[0]
	f.scripts[kind] = script[1:]
	if r.err != nil {
		return nil, r.err
	}
	return json.RawMessage(r.body), nil
}

func (f *fakeAPI) callsFor(kind Kind) []fakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []fakeCall
	for _, c := range f.calls {
		if c.kind == kind {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeAPI) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func kindOfPath(path string) Kind {
	switch {
	case strings.Contains(path, "user_timeline"):
		return KindUser
	case strings.Contains(path, "universal"):
		return KindSearch
	case strings.Contains(path, "about_me"):
		return KindNotifications
	}
	return Kind(path)
}

func statusJSON(id, handle string) string {
	return fmt.Sprintf(`{"id_str":%q,"full_text":"tweet %s","created_at":"Wed Jan 01 00:00:00 +0000 2020","user":{"id_str":"1","screen_name":%q}}`, id, id, handle)
}

// userPage is a flat status array, as served by user_timeline and about_me.
func userPage(ids ...string) fakeResponse {
	items := make([]string, len(ids))
	for i, id := range ids {
		items[i] = statusJSON(id, "jack")
	}
	return fakeResponse{body: "[" + strings.Join(items, ",") + "]"}
}

// searchPage wraps statuses in search modules.
func searchPage(ids ...string) fakeResponse {
	modules := make([]string, len(ids))
	for i, id := range ids {
		modules[i] = `{"status":{"data":` + statusJSON(id, "jack") + `,"metadata":{"result_type":"recent"}}}`
	}
	return fakeResponse{body: `{"modules":[` + strings.Join(modules, ",") + `]}`}
}

// testEndpoints returns the default table with a fixed spacing and no window quota.
func testEndpoints(minDelay time.Duration) map[Kind]Endpoint {
	eps := DefaultEndpoints()
	for k, ep := range eps {
		ep.MinDelay = minDelay
		ep.WindowQuota = 0
		eps[k] = ep
	}
	return eps
}

func newTestClient(t *testing.T, bridge Bridge, minDelay time.Duration, mutate ...func(*ClientConfig)) *Client {
	t.Helper()
	cfg := ClientConfig{
		Bridge:       bridge,
		Context:      StaticContext{AuthToken: "tok", CSRFToken: "csrf", Language: "en"},
		Registry:     NewRegistry(testEndpoints(minDelay)),
		MinDelayLong: time.Millisecond,
	}
	for _, m := range mutate {
		m(&cfg)
	}
	c, err := NewClient(cfg)
	require.NoError(t, err)
	return c
}

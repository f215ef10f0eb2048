package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHookOutcomes(t *testing.T) {
	c, err := NewCollector()
	require.NoError(t, err)

	c.Hook("user", true, false)
	c.Hook("user", true, false)
	c.Hook("user", false, true)
	c.Hook("search", false, false)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.calls.WithLabelValues("user", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.calls.WithLabelValues("user", OutcomeRateLimited)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.calls.WithLabelValues("search", OutcomeFailure)))
}

func TestRecordTweet(t *testing.T) {
	c, err := NewCollector()
	require.NoError(t, err)

	c.RecordTweet("user:jack")
	c.RecordTweet("user:jack")
	assert.Equal(t, 2.0, testutil.ToFloat64(c.tweets.WithLabelValues("user:jack")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	c, err := NewCollector()
	require.NoError(t, err)
	c.Hook("notifications", true, false)
	c.WaitHook("notifications", 1500*time.Millisecond)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, string(body), `timeline_api_calls_total{endpoint="notifications",outcome="success"} 1`)
	assert.Contains(t, string(body), `timeline_api_wait_seconds_count{endpoint="notifications"} 1`)
}

package timeline

import (
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected errorClass
	}{
		{"rate limited 88", `{"errors":[{"code":88,"message":"Rate limit exceeded"}]}`, errRateLimited},
		{"suspended 64", `{"errors":[{"code":64}]}`, errSuspended},
		{"locked 326", `{"errors":[{"code":326}]}`, errLocked},
		{"csrf 353", `{"errors":[{"code":353}]}`, errCSRF},
		{"auth expired 32", `{"errors":[{"code":32}]}`, errAuthExpired},
		{"blocked 161", `{"errors":[{"code":161}]}`, errBlocked},
		{"not authorized 179", `{"errors":[{"code":179}]}`, errNotAuthorized},
		{"not authorized 219", `{"errors":[{"code":219}]}`, errNotAuthorized},
		{"internal 131", `{"errors":[{"code":131}]}`, errInternal},
		{"unknown code", `{"errors":[{"code":999}]}`, errOther},
		{"leading whitespace", " \n{\"errors\":[{\"code\":88}]}", errRateLimited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apiErr := classifyError([]byte(tt.body))
			require.NotNil(t, apiErr)
			assert.Equal(t, tt.expected, apiErr.class)
		})
	}
}

func TestClassifyErrorNoErrorList(t *testing.T) {
	for _, body := range []string{
		`[]`,
		`[{"id_str":"1"}]`,
		`{"modules":[]}`,
		`{"errors":[]}`,
		`{invalid`,
		``,
	} {
		assert.Nil(t, classifyError([]byte(body)), "body %q", body)
	}
}

func TestAPIError(t *testing.T) {
	apiErr := classifyError([]byte(`{"errors":[{"code":88,"message":"Rate limit exceeded"}]}`))
	require.NotNil(t, apiErr)
	assert.True(t, apiErr.RateLimited())
	assert.False(t, apiErr.authFailure())
	assert.Equal(t, 88, apiErr.Code)
	assert.Equal(t, "twitter API error 88: Rate limit exceeded", apiErr.Error())

	assert.True(t, classifyError([]byte(`{"errors":[{"code":32}]}`)).authFailure())
}

func TestParseRateLimitReset(t *testing.T) {
	at := time.Now().Add(3 * time.Minute).Truncate(time.Second)
	assert.True(t, parseRateLimitReset(strconv.FormatInt(at.Unix(), 10)).Equal(at))

	for _, v := range []string{"", "not-a-number"} {
		result := parseRateLimitReset(v)
		assert.Greater(t, time.Until(result), 14*time.Minute, "fallback for %q", v)
	}
}

func TestErrorWrapping(t *testing.T) {
	se := &HTTPError{Status: 503, Body: []byte("unavailable")}
	assert.True(t, errors.Is(se, ErrTransport))
	assert.Equal(t, "HTTP 503: unavailable", se.Error())

	exhausted := &RetryExhaustedError{Endpoint: KindSearch, Attempts: 4, Last: se}
	assert.True(t, errors.Is(exhausted, ErrTransport))
	var got *HTTPError
	require.ErrorAs(t, exhausted, &got)
	assert.Equal(t, 503, got.Status)
	assert.Contains(t, exhausted.Error(), "search failed after 4 attempts")
}

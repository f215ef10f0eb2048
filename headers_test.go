package timeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIHeadersFull(t *testing.T) {
	h := apiHeaders(Credentials{AuthToken: "tok", CSRFToken: "csrf", Language: "ja", UserAgent: "ua/1"})

	assert.Equal(t, "Bearer "+BearerToken, h["authorization"])
	assert.Equal(t, "yes", h["x-twitter-active-user"])
	assert.Equal(t, "OAuth2Session", h["x-twitter-auth-type"])
	assert.Equal(t, "csrf", h["x-csrf-token"])
	assert.Equal(t, "ja", h["x-twitter-client-language"])
	assert.Equal(t, "auth_token=tok; ct0=csrf", h["cookie"])
	assert.Equal(t, "ua/1", h["user-agent"])
}

func TestAPIHeadersDegraded(t *testing.T) {
	h := apiHeaders(Credentials{})

	assert.Contains(t, h, "authorization")
	for _, k := range []string{"x-csrf-token", "x-twitter-client-language", "cookie", "user-agent"} {
		assert.NotContains(t, h, k)
	}
}

func TestBrowserHeadersKeepsExplicitValues(t *testing.T) {
	h := browserHeaders(map[string]string{"accept": "application/json", "user-agent": "ua/1"})

	assert.Equal(t, "application/json", h["accept"])
	assert.Equal(t, "ua/1", h["user-agent"])
	assert.Equal(t, "cors", h["sec-fetch-mode"])

	h = browserHeaders(nil)
	assert.Equal(t, defaultUserAgent, h["user-agent"])
}

func TestCookieContext(t *testing.T) {
	c, err := CookieContext{Cookie: "guest_id=v1; auth_token=abc; ct0=def; lang=fr"}.Credentials(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc", c.AuthToken)
	assert.Equal(t, "def", c.CSRFToken)
	assert.Equal(t, "fr", c.Language)

	c, err = CookieContext{Cookie: "ct0=def", Language: "en"}.Credentials(context.Background())
	require.NoError(t, err)
	assert.Empty(t, c.AuthToken)
	assert.Equal(t, "en", c.Language)
}

func TestEnvContext(t *testing.T) {
	t.Setenv("TIMELINE_AUTH_TOKEN", "a")
	t.Setenv("TIMELINE_CT0", "b")
	t.Setenv("TIMELINE_LANG", "")

	c, err := EnvContext().Credentials(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "a", c.AuthToken)
	assert.Equal(t, "b", c.CSRFToken)
	assert.Empty(t, c.Language)
}

func TestGenerateCT0(t *testing.T) {
	a, b := GenerateCT0(), GenerateCT0()
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
}

func TestParseAccounts(t *testing.T) {
	accounts := ParseAccounts("alice:tok1:ct1, bob:tok2:ct2:ja ,broken, carol::x")
	require.Len(t, accounts, 2)

	assert.Equal(t, "alice", accounts[0].Username)
	assert.Equal(t, "ct1", accounts[0].CT0)
	assert.Equal(t, "ja", accounts[1].Language)
	assert.NotEmpty(t, accounts[0].UserAgent)
	assert.True(t, accounts[0].IsActive())
}

func TestNewAccountGeneratesCT0(t *testing.T) {
	acc := NewAccount("dave", "tok", "")
	assert.Len(t, acc.CT0, 64)
	assert.Less(t, acc.CT0Age(), ct0MaxAge)
}

func TestAccountPoolRotatesCT0OnCSRF(t *testing.T) {
	acc := NewAccount("erin", "tok", "old")
	p := NewAccountPool([]*Account{acc}, AccountPoolConfig{})

	c, err := p.Credentials(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "old", c.CSRFToken)
	assert.Equal(t, "tok", c.AuthToken)

	p.ReportOutcome(c, classifyError([]byte(`{"errors":[{"code":353}]}`)))
	assert.NotEqual(t, "old", acc.CT0)
	assert.True(t, acc.IsActive())
}

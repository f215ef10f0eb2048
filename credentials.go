package timeline

import (
	"context"
	"os"
)

// Credentials are what a call needs from the hosting session. Any field may be
// empty; the corresponding header is then omitted.
type Credentials struct {
	AuthToken string
	CSRFToken string
	Language  string
	UserAgent string

	account *Account
}

// SessionContext supplies credentials, once per call attempt.
type SessionContext interface {
	Credentials(ctx context.Context) (Credentials, error)
}

// OutcomeReporter is implemented by contexts that want to hear how a call made
// with their credentials went. err is nil on success.
type OutcomeReporter interface {
	ReportOutcome(c Credentials, err error)
}

// StaticContext always returns the same credentials.
type StaticContext Credentials

// Credentials implements SessionContext.
func (s StaticContext) Credentials(context.Context) (Credentials, error) {
	return Credentials(s), nil
}

// CookieContext reads auth_token, ct0 and lang out of a browser cookie string,
// e.g. a copied "Cookie:" request header.
type CookieContext struct {
	Cookie    string
	Language  string
	UserAgent string
}

// Credentials implements SessionContext.
func (c CookieContext) Credentials(context.Context) (Credentials, error) {
	lang := c.Language
	if lang == "" {
		lang = cookieValue(c.Cookie, "lang")
	}
	return Credentials{
		AuthToken: cookieValue(c.Cookie, "auth_token"),
		CSRFToken: cookieValue(c.Cookie, "ct0"),
		Language:  lang,
		UserAgent: c.UserAgent,
	}, nil
}

// EnvContext builds credentials from TIMELINE_AUTH_TOKEN, TIMELINE_CT0 and
// TIMELINE_LANG.
func EnvContext() StaticContext {
	return StaticContext{
		AuthToken: os.Getenv("TIMELINE_AUTH_TOKEN"),
		CSRFToken: os.Getenv("TIMELINE_CT0"),
		Language:  os.Getenv("TIMELINE_LANG"),
	}
}

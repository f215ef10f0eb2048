package timeline

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"
)

// GenerateCT0 generates a random 32-byte hex string for use as a ct0 CSRF token.
// The API only checks that the x-csrf-token header matches the ct0 cookie.
func GenerateCT0() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "0000000000000000000000000000000000000000000000000000000000000000"
	}
	return hex.EncodeToString(b)
}

// ct0MaxAge is the maximum age of a ct0 token before proactive rotation.
const ct0MaxAge = 4 * time.Hour

// cookieValue returns the value of name in a "k=v; k2=v2" cookie string.
func cookieValue(cookie, name string) string {
	for _, part := range strings.Split(cookie, ";") {
		part = strings.TrimSpace(part)
		if v, ok := strings.CutPrefix(part, name+"="); ok && v != "" {
			return v
		}
	}
	return ""
}

package timeline

import stealth "github.com/anatolykoptev/go-stealth"

// defaultUserAgent is the fallback User-Agent when the context supplies none.
const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// apiHeaders returns the headers the REST API expects from the web app.
// Optional headers are left out when the context could not supply them.
func apiHeaders(c Credentials) map[string]string {
	h := map[string]string{
		"authorization":         "Bearer " + BearerToken,
		"x-twitter-active-user": "yes",
		"x-twitter-auth-type":   "OAuth2Session",
	}
	if c.CSRFToken != "" {
		h["x-csrf-token"] = c.CSRFToken
	}
	if c.Language != "" {
		h["x-twitter-client-language"] = c.Language
	}
	if cookie := sessionCookie(c); cookie != "" {
		h["cookie"] = cookie
	}
	if c.UserAgent != "" {
		h["user-agent"] = c.UserAgent
	}
	return h
}

func sessionCookie(c Credentials) string {
	var cookie string
	if c.AuthToken != "" {
		cookie = "auth_token=" + c.AuthToken
	}
	if c.CSRFToken != "" {
		if cookie != "" {
			cookie += "; "
		}
		cookie += "ct0=" + c.CSRFToken
	}
	return cookie
}

// browserHeaders fills in what a browser would add on its own.
func browserHeaders(h map[string]string) map[string]string {
	out := make(map[string]string, len(h)+10)
	for k, v := range h {
		out[k] = v
	}
	ua := out["user-agent"]
	if ua == "" {
		ua = defaultUserAgent
		out["user-agent"] = ua
	}
	defaults := map[string]string{
		"accept":          "*/*",
		"accept-language": "en-US,en;q=0.9",
		"accept-encoding": "gzip, deflate, br",
		"referer":         "https://twitter.com/",
		"origin":          "https://twitter.com",
		"sec-fetch-dest":  "empty",
		"sec-fetch-mode":  "cors",
		"sec-fetch-site":  "same-site",
	}
	for k, v := range defaults {
		if _, ok := out[k]; !ok {
			out[k] = v
		}
	}
	if ch := stealth.ClientHintsHeaders(ua); ch != nil {
		for k, v := range ch {
			out[k] = v
		}
	}
	return out
}

// twitterHeaderOrder is the header order for TLS fingerprint consistency.
var twitterHeaderOrder = []string{
	"authorization",
	"content-type",
	"x-csrf-token",
	"x-twitter-active-user",
	"x-twitter-auth-type",
	"x-twitter-client-language",
	"sec-ch-ua",
	"sec-ch-ua-mobile",
	"sec-ch-ua-platform",
	"sec-fetch-dest",
	"sec-fetch-mode",
	"sec-fetch-site",
	"cookie",
	"user-agent",
	"accept",
	"accept-language",
	"accept-encoding",
	"referer",
	"origin",
}

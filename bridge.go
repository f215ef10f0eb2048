package timeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	stealth "github.com/anatolykoptev/go-stealth"
)

// Request is what the client hands to a Bridge.
type Request struct {
	URL     string
	Method  string
	Headers map[string]string
	// Credentials mirrors the fetch credentials mode; "include" sends cookies.
	Credentials string
}

// Bridge performs the network fetch. It resolves to either a JSON body or an
// error; HTTP failures should be reported as *HTTPError.
type Bridge interface {
	Fetch(ctx context.Context, req Request) (json.RawMessage, error)
}

// BridgeFunc adapts a function to Bridge.
type BridgeFunc func(ctx context.Context, req Request) (json.RawMessage, error)

// Fetch implements Bridge.
func (f BridgeFunc) Fetch(ctx context.Context, req Request) (json.RawMessage, error) {
	return f(ctx, req)
}

// StealthBridge fetches through a browser-fingerprinted HTTP client.
type StealthBridge struct {
	client *stealth.BrowserClient
	jitter bool
}

// StealthOptions configures NewStealthBridge.
type StealthOptions struct {
	Proxy string
	// Jitter adds go-stealth's anti-fingerprint pause before each request.
	Jitter bool
}

// NewStealthBridge creates a bridge backed by a go-stealth BrowserClient.
func NewStealthBridge(opts StealthOptions) (*StealthBridge, error) {
	clientOpts := []stealth.ClientOption{
		stealth.WithHeaderOrder(twitterHeaderOrder),
	}
	if opts.Proxy != "" {
		clientOpts = append(clientOpts, stealth.WithProxy(opts.Proxy))
		slog.Info("stealth bridge using proxy", slog.String("proxy", stealth.MaskProxy(opts.Proxy)))
	}
	bc, err := stealth.NewClient(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("stealth client: %w", err)
	}
	return &StealthBridge{client: bc, jitter: opts.Jitter}, nil
}

// Fetch implements Bridge.
func (b *StealthBridge) Fetch(ctx context.Context, req Request) (json.RawMessage, error) {
	if b.jitter {
		if err := stealth.DefaultJitter.Sleep(ctx); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	method := req.Method
	if method == "" {
		method = "GET"
	}
	headers := browserHeaders(req.Headers)
	if req.Credentials != "include" {
		delete(headers, "cookie")
	}

	body, respHdrs, status, err := b.client.DoWithHeaderOrder(method, req.URL, headers, nil, twitterHeaderOrder)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	if status < 200 || status > 299 {
		// the body usually carries an {"errors":[...]} list the client classifies
		return nil, &HTTPError{Status: status, Body: body, Reset: parseRateLimitReset(respHdrs["x-rate-limit-reset"])}
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: invalid JSON body: %s", ErrTransport, truncateBytes(body, 200))
	}
	return body, nil
}

package timeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Call issues a GET against kind's endpoint with spacing, cooldown handling and
// retry. It returns the raw JSON body, or *RetryExhaustedError once the initial
// attempt and every re-attempt have failed. A cancelled ctx aborts the call
// with ctx.Err().
func (c *Client) Call(ctx context.Context, kind Kind, url string) (json.RawMessage, error) {
	ep, err := c.registry.Endpoint(kind)
	if err != nil {
		return nil, err
	}

	var lastErr error
	var lastPayload json.RawMessage
	attempts := 0
	for attempt := 0; attempt <= ep.MaxRetry; attempt++ {
		if attempt > 0 {
			delay := c.cfg.MinDelayLong * time.Duration(attempt)
			slog.Warn("call failed, backing off",
				slog.String("endpoint", string(kind)),
				slog.Int("attempt", attempt),
				slog.Duration("delay", delay),
				slog.Any("error", lastErr))
			if err := sleepCtx(ctx, delay); err != nil {
				return nil, err
			}
		}

		waited, err := c.registry.acquire(ctx, kind, c.cfg.MaxCooldownWait)
		c.recordWait(kind, waited)
		if err != nil {
			if errors.Is(err, ErrRateLimited) {
				c.recordAPICall(kind, false, true)
				return nil, &RetryExhaustedError{Endpoint: kind, Attempts: attempts, Last: err, Payload: lastPayload}
			}
			return nil, err
		}
		attempts++

		creds, credErr := c.sctx.Credentials(ctx)
		if credErr != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			slog.Warn("credentials unavailable, sending degraded headers", slog.Any("error", credErr))
			creds = Credentials{}
		}

		slog.Debug("api call", slog.String("endpoint", string(kind)), slog.Int("attempt", attempt+1))
		body, err := c.bridge.Fetch(ctx, Request{
			URL:         url,
			Method:      "GET",
			Headers:     apiHeaders(creds),
			Credentials: "include",
		})
		if err != nil && ctx.Err() != nil {
			return nil, ctx.Err()
		}

		payload, rateLimited, reset, err := inspectResponse(body, err)
		c.registry.record(kind, err, payload)
		if r, ok := c.sctx.(OutcomeReporter); ok {
			r.ReportOutcome(creds, err)
		}
		c.recordAPICall(kind, err == nil, rateLimited)
		if err == nil {
			return body, nil
		}

		if rateLimited {
			slog.Warn("endpoint rate limited", slog.String("endpoint", string(kind)), slog.Time("until", reset))
			c.registry.markRateLimited(kind, reset)
		}
		lastErr = err
		if payload != nil {
			lastPayload = payload
		}
	}
	return nil, &RetryExhaustedError{Endpoint: kind, Attempts: attempts, Last: lastErr, Payload: lastPayload}
}

// inspectResponse turns a bridge result into the error the retry loop acts on.
// An {"errors":[...]} body is an *APIError even when delivered with HTTP 200.
// An empty, null or malformed body is a transport failure and is retried.
func inspectResponse(body json.RawMessage, fetchErr error) (payload json.RawMessage, rateLimited bool, reset time.Time, err error) {
	var he *HTTPError
	if errors.As(fetchErr, &he) {
		payload = cloneRaw(he.Body)
		reset = he.Reset
		rateLimited = he.Status == 429
		if apiErr := classifyError(he.Body); apiErr != nil {
			rateLimited = rateLimited || apiErr.RateLimited()
			return payload, rateLimited, reset, fmt.Errorf("%w: %w", apiErr, he)
		}
		return payload, rateLimited, reset, fetchErr
	}
	if fetchErr != nil {
		return nil, false, time.Time{}, fetchErr
	}
	if !json.Valid(body) || firstByte(body) == 'n' {
		return cloneRaw(body), false, time.Time{}, fmt.Errorf("%w: malformed response body %q", ErrTransport, truncateBytes(body, 80))
	}
	if apiErr := classifyError(body); apiErr != nil {
		return cloneRaw(body), apiErr.RateLimited(), parseRateLimitReset(""), apiErr
	}
	return nil, false, time.Time{}, nil
}

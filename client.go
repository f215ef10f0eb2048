package timeline

import (
	"fmt"
	"time"
)

// Client is the rate-limited REST client behind every session.
type Client struct {
	bridge     Bridge
	sctx       SessionContext
	registry   *Registry
	normalizer Normalizer
	cfg        ClientConfig
}

// NewClient creates a fully-wired timeline client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("timeline client: %w", err)
	}
	return &Client{
		bridge:     cfg.Bridge,
		sctx:       cfg.Context,
		registry:   cfg.Registry,
		normalizer: Normalizer{KeepRaw: cfg.KeepRaw},
		cfg:        cfg,
	}, nil
}

// Registry returns the call-state registry the client spaces its calls with.
func (c *Client) Registry() *Registry {
	return c.registry
}

// Endpoint returns the client's policy for kind.
func (c *Client) Endpoint(kind Kind) (Endpoint, error) {
	return c.registry.Endpoint(kind)
}

// recordAPICall calls the metrics hook if configured.
func (c *Client) recordAPICall(kind Kind, success, rateLimited bool) {
	if c.cfg.MetricsHook != nil {
		c.cfg.MetricsHook(string(kind), success, rateLimited)
	}
}

func (c *Client) recordWait(kind Kind, waited time.Duration) {
	if c.cfg.WaitHook != nil {
		c.cfg.WaitHook(string(kind), waited)
	}
}

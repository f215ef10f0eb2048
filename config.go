package timeline

import "time"

// ClientConfig holds all configuration for the timeline client.
type ClientConfig struct {
	// Bridge performs the network fetch. Default: a StealthBridge without proxy.
	Bridge Bridge

	// Context supplies per-call credentials. Default: EnvContext().
	Context SessionContext

	// Registry is the shared per-endpoint call state. Clients that draw on the
	// same account quota must share one. Default: NewRegistry(Endpoints).
	Registry *Registry

	// Endpoints overrides the endpoint table when Registry is nil.
	Endpoints map[Kind]Endpoint

	// MinDelayLong is the retry backoff unit; re-attempt n waits n times this.
	MinDelayLong time.Duration

	// MaxCooldownWait caps how long a call waits out a server-announced cooldown
	// before failing with ErrRateLimited.
	MaxCooldownWait time.Duration

	// KeepRaw retains the upstream status JSON on each Tweet.
	KeepRaw bool

	// MetricsHook is called on each call attempt for external metrics collection.
	// endpoint is the timeline kind, success and rateLimited indicate the outcome.
	MetricsHook func(endpoint string, success, rateLimited bool)

	// WaitHook is called with the time each attempt spent in the spacing,
	// cooldown and quota waits.
	WaitHook func(endpoint string, waited time.Duration)
}

// defaults fills in zero-value config fields with sensible defaults.
func (cfg *ClientConfig) defaults() error {
	if cfg.MinDelayLong == 0 {
		cfg.MinDelayLong = DelayLong
	}
	if cfg.MaxCooldownWait == 0 {
		cfg.MaxCooldownWait = 15 * time.Minute
	}
	if cfg.Registry == nil {
		cfg.Registry = NewRegistry(cfg.Endpoints)
	}
	if cfg.Context == nil {
		cfg.Context = EnvContext()
	}
	if cfg.Bridge == nil {
		b, err := NewStealthBridge(StealthOptions{})
		if err != nil {
			return err
		}
		cfg.Bridge = b
	}
	return nil
}

package timeline

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/anatolykoptev/go-stealth/ratelimit"
	"golang.org/x/time/rate"
)

// CallState is the process-wide call history of one endpoint.
type CallState struct {
	Count       int
	LastCall    time.Time
	LastErr     error
	LastPayload json.RawMessage
}

type endpointState struct {
	// gate admits one caller at a time into the spacing wait.
	gate  chan struct{}
	quota *rate.Limiter

	mu    sync.Mutex
	state CallState
}

// Registry owns the call state of every endpoint. Share one Registry between
// all clients and sessions that draw on the same account quota.
type Registry struct {
	endpoints map[Kind]Endpoint
	states    map[Kind]*endpointState
	cooldown  *ratelimit.Limiter
}

// NewRegistry creates call state for each endpoint. A nil map means
// DefaultEndpoints. The spacing clock starts now, as if a call had just been made.
func NewRegistry(endpoints map[Kind]Endpoint) *Registry {
	if endpoints == nil {
		endpoints = DefaultEndpoints()
	}
	now := time.Now()
	r := &Registry{
		endpoints: make(map[Kind]Endpoint, len(endpoints)),
		states:    make(map[Kind]*endpointState, len(endpoints)),
		cooldown:  ratelimit.NewLimiter(ratelimit.DefaultConfig),
	}
	for kind, ep := range endpoints {
		ep.Kind = kind
		r.endpoints[kind] = ep
		st := &endpointState{
			gate:  make(chan struct{}, 1),
			state: CallState{LastCall: now},
		}
		if ep.WindowQuota > 0 && ep.Window > 0 {
			st.quota = rate.NewLimiter(rate.Every(ep.Window/time.Duration(ep.WindowQuota)), ep.WindowQuota)
		}
		r.states[kind] = st
	}
	return r
}

// Endpoint returns the registered endpoint for kind.
func (r *Registry) Endpoint(kind Kind) (Endpoint, error) {
	return lookupEndpoint(r.endpoints, kind)
}

// Snapshot returns a copy of kind's call state.
func (r *Registry) Snapshot(kind Kind) (CallState, bool) {
	st, ok := r.states[kind]
	if !ok {
		return CallState{}, false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.state, true
}

// acquire blocks until a call to kind may be issued, then stamps it as issued.
// Callers are admitted one at a time, so no two calls to the same endpoint are
// ever stamped less than MinDelay apart. It returns how long the caller waited.
func (r *Registry) acquire(ctx context.Context, kind Kind, maxCooldown time.Duration) (time.Duration, error) {
	ep, err := r.Endpoint(kind)
	if err != nil {
		return 0, err
	}
	st := r.states[kind]
	start := time.Now()

	select {
	case st.gate <- struct{}{}:
	case <-ctx.Done():
		return 0, ctx.Err()
	}
	defer func() { <-st.gate }()

	st.mu.Lock()
	wait := time.Until(st.state.LastCall.Add(ep.MinDelay))
	st.mu.Unlock()

	if r.cooldown.IsRateLimited(string(kind)) {
		until := r.cooldown.AvailableAt(string(kind))
		if d := time.Until(until); d > wait {
			if d > maxCooldown {
				return time.Since(start), fmt.Errorf("%w until %s", ErrRateLimited, until.Format(time.RFC3339))
			}
			wait = d
		}
	}
	if err := sleepCtx(ctx, wait); err != nil {
		return time.Since(start), err
	}
	if st.quota != nil {
		if err := st.quota.Wait(ctx); err != nil {
			return time.Since(start), err
		}
	}

	st.mu.Lock()
	st.state.Count++
	st.state.LastCall = time.Now()
	st.mu.Unlock()
	return time.Since(start), nil
}

// record stores the outcome of the latest attempt.
func (r *Registry) record(kind Kind, err error, payload json.RawMessage) {
	st, ok := r.states[kind]
	if !ok {
		return
	}
	st.mu.Lock()
	st.state.LastErr = err
	st.state.LastPayload = payload
	st.mu.Unlock()
}

// markRateLimited blocks kind until the upstream quota resets.
func (r *Registry) markRateLimited(kind Kind, until time.Time) {
	r.cooldown.MarkRateLimited(string(kind), until)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

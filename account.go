package timeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	stealth "github.com/anatolykoptev/go-stealth"
	"github.com/anatolykoptev/go-stealth/pool"
)

// Account is a logged-in browser session whose cookies are lent to the client.
type Account struct {
	Username  string
	AuthToken string
	CT0       string
	Language  string
	UserAgent string

	active       bool
	reactivateAt time.Time

	mu             sync.Mutex
	ct0RefreshedAt time.Time

	pool.HealthTracker
}

// ID implements pool.Identity.
func (a *Account) ID() string { return a.Username }

// IsActive implements pool.Identity.
func (a *Account) IsActive() bool { return a.active }

// SetActive implements pool.Identity.
func (a *Account) SetActive(v bool) { a.active = v }

// ReactivateAt implements pool.Identity.
func (a *Account) ReactivateAt() time.Time { return a.reactivateAt }

// SetReactivateAt implements pool.Identity.
func (a *Account) SetReactivateAt(t time.Time) { a.reactivateAt = t }

// CT0Age returns the time since the ct0 token was last refreshed.
func (a *Account) CT0Age() time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ct0RefreshedAt.IsZero() {
		return 24 * time.Hour
	}
	return time.Since(a.ct0RefreshedAt)
}

// RotateCT0 generates a fresh ct0 token and updates the refresh timestamp.
func (a *Account) RotateCT0() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.CT0 = GenerateCT0()
	a.ct0RefreshedAt = time.Now()
}

// credentials returns a snapshot under lock.
func (a *Account) credentials() Credentials {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Credentials{
		AuthToken: a.AuthToken,
		CSRFToken: a.CT0,
		Language:  a.Language,
		UserAgent: a.UserAgent,
		account:   a,
	}
}

// AssignBrowserProfile gives the account a built-in browser User-Agent.
func AssignBrowserProfile(acc *Account, idx int) {
	p := stealth.BuiltinProfiles[idx%len(stealth.BuiltinProfiles)]
	acc.UserAgent = p.UserAgent
}

// ParseAccounts parses a comma-separated list of accounts.
// Format: "name:auth_token:ct0" or "name:auth_token:ct0:lang".
func ParseAccounts(raw string) []*Account {
	var accounts []*Account
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, ":", 4)
		if len(parts) < 3 || parts[1] == "" {
			slog.Warn("invalid account entry, skipping", slog.String("entry", parts[0]))
			continue
		}
		acc := NewAccount(parts[0], parts[1], parts[2])
		if len(parts) == 4 {
			acc.Language = parts[3]
		}
		AssignBrowserProfile(acc, len(accounts))
		accounts = append(accounts, acc)
	}
	return accounts
}

// NewAccount returns an active account. An empty ct0 is generated.
func NewAccount(username, authToken, ct0 string) *Account {
	acc := &Account{
		Username:      username,
		AuthToken:     authToken,
		CT0:           ct0,
		active:        true,
		HealthTracker: pool.DefaultHealthTracker(),
	}
	if ct0 == "" {
		acc.CT0 = GenerateCT0()
	}
	acc.ct0RefreshedAt = time.Now()
	return acc
}

// AccountPoolConfig tunes how misbehaving accounts are benched.
type AccountPoolConfig struct {
	// AuthCooldown is the soft-deactivation duration for auth errors.
	AuthCooldown time.Duration
	// BanCooldown is the soft-deactivation duration for locked accounts.
	BanCooldown time.Duration
}

// AccountPool is a SessionContext that rotates over several accounts and
// benches the ones the API rejects.
type AccountPool struct {
	pool *pool.Pool[*Account]
	cfg  AccountPoolConfig
}

// NewAccountPool wraps accounts in a rotating pool.
func NewAccountPool(accounts []*Account, cfg AccountPoolConfig) *AccountPool {
	if cfg.AuthCooldown == 0 {
		cfg.AuthCooldown = 1 * time.Hour
	}
	if cfg.BanCooldown == 0 {
		cfg.BanCooldown = 6 * time.Hour
	}
	for _, acc := range accounts {
		acc.HealthTracker = pool.DefaultHealthTracker()
	}
	p := pool.New(accounts, pool.Config{
		AlertHook: func(topic string, payload any) {
			slog.Warn("account pool alert", slog.String("topic", topic), slog.Any("payload", payload))
		},
	})
	return &AccountPool{pool: p, cfg: cfg}
}

// Credentials implements SessionContext.
func (p *AccountPool) Credentials(ctx context.Context) (Credentials, error) {
	if err := ctx.Err(); err != nil {
		return Credentials{}, err
	}
	acc, err := p.pool.Next(func(a *Account) bool { return true })
	if err != nil {
		return Credentials{}, fmt.Errorf("account pool: %w", err)
	}
	if acc.CT0Age() > ct0MaxAge {
		acc.RotateCT0()
		slog.Info("ct0 rotated (proactive)", slog.String("user", acc.Username))
	}
	return acc.credentials(), nil
}

// ReportOutcome implements OutcomeReporter.
func (p *AccountPool) ReportOutcome(c Credentials, err error) {
	acc := c.account
	if acc == nil {
		return
	}
	if err == nil {
		acc.RecordSuccess()
		return
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		acc.RecordFailure()
		return
	}
	switch apiErr.class {
	case errRateLimited, errInternal:
		// endpoint-wide conditions, not the account's fault
	case errCSRF:
		slog.Warn("CSRF error 353, rotating ct0", slog.String("user", acc.Username))
		acc.RotateCT0()
	case errAuthExpired, errBlocked, errNotAuthorized:
		slog.Warn("account rejected, soft-deactivating", slog.String("user", acc.Username), slog.Int("code", apiErr.Code))
		p.pool.SoftDeactivate(acc, p.cfg.AuthCooldown)
	case errLocked:
		slog.Warn("account locked (code 326)", slog.String("user", acc.Username))
		p.pool.SoftDeactivate(acc, p.cfg.BanCooldown)
	case errSuspended:
		slog.Warn("account suspended (code 64), permanently deactivating", slog.String("user", acc.Username))
		p.pool.DeactivateItem(acc)
	default:
		if shouldDeactivate := acc.RecordFailure(); shouldDeactivate {
			total, failed, consec := acc.Stats()
			slog.Warn("account unhealthy, deactivating",
				slog.String("user", acc.Username),
				slog.Int("total", total),
				slog.Int("failed", failed),
				slog.Int("consec", consec))
			p.pool.DeactivateItem(acc)
		}
	}
}

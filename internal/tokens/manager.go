// Package tokens rotates API credentials and tracks per-credential quota.
// It is a policy-free resource: it never sleeps or retries, it only hands
// out the next usable credential and reports when none exists so callers
// can choose their own backoff strategy.
package tokens

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"signalhub.app/correlator/internal/faults"
)

// resetWindow is how far the optimistic reset pushes resetAt forward when
// a credential's window has elapsed without an authoritative response.
const resetWindow = time.Hour

// appRefreshBuffer is the safety margin before an app token's expiry at
// which it is refreshed.
const appRefreshBuffer = 5 * time.Minute

// defaultLimit is assumed until a response reports the real quota.
const defaultLimit = 5000

// Token is one rotatable credential. Remaining is optimistically assumed
// at the full limit until an authoritative response updates it.
type Token struct {
	Secret    string
	Remaining int
	Limit     int
	ResetAt   time.Time
	LastUsed  time.Time
	IsApp     bool

	expiresAt time.Time // app tokens only
}

// AppTokenSource fetches short-lived app-style credentials via a separate
// auth exchange.
type AppTokenSource interface {
	Fetch(ctx context.Context) (secret string, expiresAt time.Time, err error)
}

// Manager rotates among configured credentials. State is process-local and
// intentionally not synchronized across processes; multiple pipeline
// instances either use disjoint pools or accept uncoordinated rotation.
type Manager struct {
	mu           sync.Mutex
	tokens       []*Token
	appToken     *Token
	appSource    AppTokenSource
	currentIndex int
	limit        int
	window       time.Duration
	logger       *slog.Logger
	now          func() time.Time
}

// Config holds the credential pool. At least one personal token or an app
// source must be configured. Limit and ResetWindow override the assumed
// quota until authoritative headers arrive.
type Config struct {
	Tokens      []string
	AppSource   AppTokenSource
	Limit       int
	ResetWindow time.Duration
}

func NewManager(cfg Config, logger *slog.Logger) (*Manager, error) {
	if len(cfg.Tokens) == 0 && cfg.AppSource == nil {
		return nil, &faults.ConfigError{Subsystem: "tokens", Reason: "no credentials configured"}
	}
	if logger == nil {
		logger = slog.Default()
	}

	m := &Manager{
		appSource: cfg.AppSource,
		limit:     cfg.Limit,
		window:    cfg.ResetWindow,
		logger:    logger,
		now:       time.Now,
	}
	if m.limit <= 0 {
		m.limit = defaultLimit
	}
	if m.window <= 0 {
		m.window = resetWindow
	}
	for _, secret := range cfg.Tokens {
		m.tokens = append(m.tokens, &Token{
			Secret:    secret,
			Remaining: m.limit,
			Limit:     m.limit,
			ResetAt:   time.Now().Add(m.window),
		})
	}
	return m, nil
}

// Next returns the next usable credential. App tokens are always tried
// first and refreshed transparently near expiry. Personal tokens rotate
// round-robin from the current index, skipping exhausted ones. When every
// credential is exhausted, the returned NoTokenError carries the earliest
// known reset time.
func (m *Manager) Next(ctx context.Context) (*Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.appSource != nil {
		token, err := m.appTokenLocked(ctx)
		if err == nil && m.usableLocked(token) {
			token.LastUsed = m.now()
			return token, nil
		}
		if err != nil {
			m.logger.WarnContext(ctx, "app token refresh failed, falling back to personal tokens", "error", err)
		}
	}

	n := len(m.tokens)
	for i := 0; i < n; i++ {
		idx := (m.currentIndex + i) % n
		token := m.tokens[idx]
		if m.usableLocked(token) {
			m.currentIndex = (idx + 1) % n
			token.LastUsed = m.now()
			return token, nil
		}
	}

	return nil, &faults.NoTokenError{EarliestReset: m.earliestResetLocked()}
}

// usableLocked reports whether the token has quota, applying the
// optimistic reset: once now >= resetAt, quota is treated as replenished
// without waiting for confirmation. This avoids a thundering-herd stall
// when the availability check races ahead of the provider's reset.
func (m *Manager) usableLocked(t *Token) bool {
	now := m.now()
	if !t.ResetAt.IsZero() && !now.Before(t.ResetAt) {
		t.Remaining = t.Limit
		t.ResetAt = now.Add(m.window)
	}
	return t.Remaining > 0
}

func (m *Manager) appTokenLocked(ctx context.Context) (*Token, error) {
	now := m.now()
	if m.appToken != nil && now.Before(m.appToken.expiresAt.Add(-appRefreshBuffer)) {
		return m.appToken, nil
	}

	secret, expiresAt, err := m.appSource.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	m.appToken = &Token{
		Secret:    secret,
		Remaining: m.limit,
		Limit:     m.limit,
		ResetAt:   now.Add(m.window),
		IsApp:     true,
		expiresAt: expiresAt,
	}
	m.logger.DebugContext(ctx, "app token refreshed", "expires_at", expiresAt)
	return m.appToken, nil
}

func (m *Manager) earliestResetLocked() time.Time {
	var earliest time.Time
	for _, t := range m.tokens {
		if earliest.IsZero() || t.ResetAt.Before(earliest) {
			earliest = t.ResetAt
		}
	}
	if m.appToken != nil && (earliest.IsZero() || m.appToken.ResetAt.Before(earliest)) {
		earliest = m.appToken.ResetAt
	}
	return earliest
}

// UpdateFromHeaders applies authoritative quota counters from a provider
// response. Both the GitHub (X-RateLimit-*) and OpenAI
// (x-ratelimit-*-requests) header families are understood.
func (m *Manager) UpdateFromHeaders(t *Token, headers http.Header) {
	if t == nil || headers == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if v := firstHeader(headers, "X-RateLimit-Remaining", "x-ratelimit-remaining-requests"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			t.Remaining = n
		}
	}
	if v := firstHeader(headers, "X-RateLimit-Limit", "x-ratelimit-limit-requests"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			t.Limit = n
		}
	}
	if v := headers.Get("X-RateLimit-Reset"); v != "" {
		if epoch, err := strconv.ParseInt(v, 10, 64); err == nil {
			t.ResetAt = time.Unix(epoch, 0)
		}
	}
}

// MarkExhausted zeroes the credential's quota until resetAt. Used when a
// quota error arrives without usable headers.
func (m *Manager) MarkExhausted(t *Token, resetAt time.Time) {
	if t == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	t.Remaining = 0
	if !resetAt.IsZero() {
		t.ResetAt = resetAt
	}
}

func firstHeader(h http.Header, names ...string) string {
	for _, name := range names {
		if v := h.Get(name); v != "" {
			return v
		}
	}
	return ""
}

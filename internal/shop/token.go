package shop

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// refreshMargin renews the token well before the platform's 2h expiry so
// an upload never races the deadline.
const refreshMargin = 20 * time.Minute

type fetchTokenFunc func(ctx context.Context) (token string, expiresIn time.Duration, err error)

// tokenSource caches the access token and refreshes it lazily. The mutex
// is held across the refresh call so at most one refresh is in flight;
// concurrent callers block and reuse its result.
type tokenSource struct {
	mu     sync.Mutex
	token  string
	expiry time.Time
	fetch  fetchTokenFunc
	now    func() time.Time
}

func newTokenSource(fetch fetchTokenFunc) *tokenSource {
	return &tokenSource{
		fetch: fetch,
		now:   time.Now,
	}
}

// Token returns a valid access token, refreshing it if missing or close
// to expiry.
func (t *tokenSource) Token(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.token != "" && t.now().Before(t.expiry) {
		return t.token, nil
	}

	token, expiresIn, err := t.fetch(ctx)
	if err != nil {
		return "", err
	}

	t.token = token
	t.expiry = t.now().Add(expiresIn - refreshMargin)
	slog.Debug("Access token refreshed", "valid_until", t.expiry)

	return t.token, nil
}

// Invalidate drops the cached token so the next Token call refreshes.
// Called when the API rejects a token the cache still considered valid.
func (t *tokenSource) Invalidate() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.token = ""
	t.expiry = time.Time{}
}

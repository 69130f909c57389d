package pesapal

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"launchpad_backend/internal/logger"
)

// Credential is the cached bearer token.
type Credential struct {
	Token     string
	ExpiresAt time.Time
}

const (
	defaultTokenMargin   = 60 * time.Second
	defaultTokenLifetime = 5 * time.Minute
	refreshTimeout       = 30 * time.Second
)

// TokenManager owns the process-wide credential and the IPN registrations.
// Concurrent callers that miss the cache share one outbound request.
type TokenManager struct {
	client *Client
	margin time.Duration
	now    func() time.Time

	mu       sync.RWMutex
	cred     *Credential
	channels map[string]string

	group singleflight.Group
}

func NewTokenManager(client *Client, margin time.Duration) *TokenManager {
	if margin <= 0 {
		margin = defaultTokenMargin
	}
	return &TokenManager{
		client:   client,
		margin:   margin,
		now:      time.Now,
		channels: make(map[string]string),
	}
}

func (m *TokenManager) cached() (Credential, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.cred == nil || !m.now().Before(m.cred.ExpiresAt.Add(-m.margin)) {
		return Credential{}, false
	}
	return *m.cred, true
}

// GetToken returns a valid credential, authenticating at most once for any
// number of concurrent callers. ErrAuth is never retried.
func (m *TokenManager) GetToken(ctx context.Context) (Credential, error) {
	if cred, ok := m.cached(); ok {
		return cred, nil
	}

	ch := m.group.DoChan("token", func() (interface{}, error) {
		if cred, ok := m.cached(); ok {
			return cred, nil
		}
		// the shared refresh must outlive any single caller's cancellation
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()

		resp, err := m.client.requestToken(rctx)
		if err != nil {
			return Credential{}, err
		}
		cred := Credential{Token: resp.Token, ExpiresAt: m.parseExpiry(resp.ExpiryDate)}

		m.mu.Lock()
		m.cred = &cred
		m.mu.Unlock()

		logger.Info("gateway token refreshed", "expires_at", cred.ExpiresAt)
		return cred, nil
	})

	select {
	case <-ctx.Done():
		return Credential{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Credential{}, res.Err
		}
		return res.Val.(Credential), nil
	}
}

// Invalidate drops the cached credential if it is still token.
func (m *TokenManager) Invalidate(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cred != nil && m.cred.Token == token {
		m.cred = nil
	}
}

// EnsureNotificationChannel registers ipnURL once per process and returns the
// gateway's notification id for it.
func (m *TokenManager) EnsureNotificationChannel(ctx context.Context, ipnURL string) (string, error) {
	m.mu.RLock()
	id, ok := m.channels[ipnURL]
	m.mu.RUnlock()
	if ok {
		return id, nil
	}

	ch := m.group.DoChan("ipn:"+ipnURL, func() (interface{}, error) {
		m.mu.RLock()
		id, ok := m.channels[ipnURL]
		m.mu.RUnlock()
		if ok {
			return id, nil
		}

		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()

		v, err := m.withToken(rctx, func(token string) (interface{}, error) {
			return m.client.registerIPN(rctx, token, ipnURL)
		})
		if err != nil {
			return "", err
		}
		id = v.(string)

		m.mu.Lock()
		m.channels[ipnURL] = id
		m.mu.Unlock()

		logger.Info("gateway notification channel registered", "url", ipnURL, "ipn_id", id)
		return id, nil
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// withToken runs fn with the current token. A refused token is dropped and
// fn runs once more with a fresh one.
func (m *TokenManager) withToken(ctx context.Context, fn func(token string) (interface{}, error)) (interface{}, error) {
	for attempt := 0; attempt < 2; attempt++ {
		cred, err := m.GetToken(ctx)
		if err != nil {
			return nil, err
		}
		v, err := fn(cred.Token)
		if !errors.Is(err, errTokenRefused) {
			return v, err
		}
		logger.Warn("gateway refused cached token, refreshing")
		m.Invalidate(cred.Token)
	}
	return nil, ErrAuth
}

func (m *TokenManager) parseExpiry(raw string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.9999999", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	return m.now().Add(defaultTokenLifetime).UTC()
}

package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"golang.org/x/sync/singleflight"

	"resume-builder/internal/shared/telemetry"
)

var errUnknownKey = errors.New("unknown signing key")

// KeySource resolves a key id to a public verification key.
type KeySource interface {
	Key(ctx context.Context, kid string) (any, error)
}

// JWKSOptions configures a JWKSSource.
type JWKSOptions struct {
	URL string
	// TTL is how long a fetched set is trusted before refetching.
	TTL time.Duration
	// MinRefresh throttles refetches triggered by unknown key ids.
	MinRefresh time.Duration
	// FetchTimeout bounds a single key set download.
	FetchTimeout time.Duration
	Client       *http.Client
	Now          func() time.Time
}

// JWKSSource caches the provider's published key set and refreshes it
// when stale or when a token names a key id it has not seen.
type JWKSSource struct {
	opts JWKSOptions

	mu        sync.RWMutex
	set       jwk.Set
	fetchedAt time.Time

	group singleflight.Group
}

// NewJWKSSource returns a key source backed by the JWKS document at opts.URL.
func NewJWKSSource(opts JWKSOptions) *JWKSSource {
	if opts.TTL <= 0 {
		opts.TTL = time.Hour
	}
	if opts.MinRefresh <= 0 {
		opts.MinRefresh = time.Minute
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 10 * time.Second
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: 10 * time.Second}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &JWKSSource{opts: opts}
}

// NewStaticKeySource wraps a fixed key set that is never refreshed.
func NewStaticKeySource(set jwk.Set) *JWKSSource {
	src := NewJWKSSource(JWKSOptions{TTL: 100 * 365 * 24 * time.Hour, MinRefresh: 100 * 365 * 24 * time.Hour})
	src.set = set
	src.fetchedAt = src.opts.Now()
	return src
}

func (s *JWKSSource) Key(ctx context.Context, kid string) (any, error) {
	set, fetchedAt := s.current()
	now := s.opts.Now()

	if set == nil || now.Sub(fetchedAt) >= s.opts.TTL {
		fresh, err := s.refresh(ctx)
		if err != nil {
			if set == nil {
				return nil, err
			}
			// Keep serving the stale set; the provider rotates keys slowly.
			telemetry.Warn("identity.jwks_refresh_failed", map[string]any{"url": s.opts.URL, "err": err})
		} else {
			set = fresh
		}
	}

	if key, err := lookup(set, kid); err == nil {
		return key, nil
	}

	_, fetchedAt = s.current()
	if now.Sub(fetchedAt) < s.opts.MinRefresh {
		return nil, fmt.Errorf("%w: %s", errUnknownKey, kid)
	}
	fresh, err := s.refresh(ctx)
	if err != nil {
		return nil, err
	}
	return lookup(fresh, kid)
}

func (s *JWKSSource) current() (jwk.Set, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.set, s.fetchedAt
}

// refresh fetches the set once for all concurrent callers, on a context
// detached from any one of them. Each caller stops waiting when its ctx ends.
func (s *JWKSSource) refresh(ctx context.Context) (jwk.Set, error) {
	ch := s.group.DoChan("jwks", func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.FetchTimeout)
		defer cancel()
		set, err := jwk.Fetch(fetchCtx, s.opts.URL, jwk.WithHTTPClient(s.opts.Client))
		if err != nil {
			return nil, fmt.Errorf("fetch jwks: %w", err)
		}
		s.mu.Lock()
		s.set = set
		s.fetchedAt = s.opts.Now()
		s.mu.Unlock()
		telemetry.Debug("identity.jwks_refreshed", map[string]any{"url": s.opts.URL, "keys": set.Len()})
		return set, nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("fetch jwks: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(jwk.Set), nil
	}
}

func lookup(set jwk.Set, kid string) (any, error) {
	if set == nil {
		return nil, fmt.Errorf("%w: %s", errUnknownKey, kid)
	}
	key, ok := set.LookupKeyID(kid)
	if !ok {
		return nil, fmt.Errorf("%w: %s", errUnknownKey, kid)
	}
	var raw any
	if err := key.Raw(&raw); err != nil {
		return nil, fmt.Errorf("decode key %s: %w", kid, err)
	}
	return raw, nil
}

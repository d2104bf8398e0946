// Package admission implements the auth/rate-limit gate that sits in front
// of the search engine and MCP/HTTP surfaces: it authenticates a caller and
// then admits or rejects the request against a per-caller token bucket.
package admission

import (
	"context"
	"crypto/subtle"
	"sync"

	amerrors "github.com/moabualruz/ricegrep/internal/errors"
	"golang.org/x/time/rate"
)

// Principal identifies an authenticated caller.
type Principal struct {
	ID string
}

// Authenticator validates a caller-supplied credential and returns the
// resulting Principal.
type Authenticator interface {
	Authenticate(ctx context.Context, credential string) (Principal, error)
}

// NoneAuthenticator admits every caller as the anonymous principal. This is
// the default for local/offline use where the MCP transport is the only
// surface.
type NoneAuthenticator struct{}

func (NoneAuthenticator) Authenticate(context.Context, string) (Principal, error) {
	return Principal{ID: "anonymous"}, nil
}

// BearerAuthenticator checks a single shared-secret bearer token, used for
// the HTTP gateway when it is exposed beyond localhost.
type BearerAuthenticator struct {
	Token string
}

func (a BearerAuthenticator) Authenticate(_ context.Context, credential string) (Principal, error) {
	if a.Token == "" {
		return Principal{}, amerrors.AdmissionError(amerrors.ErrCodeAuthRequired, "bearer token not configured", nil)
	}
	if subtle.ConstantTimeCompare([]byte(credential), []byte(a.Token)) != 1 {
		return Principal{}, amerrors.AdmissionError(amerrors.ErrCodeAuthInvalid, "invalid bearer token", nil)
	}
	return Principal{ID: "bearer"}, nil
}

// TokenListAuthenticator accepts any credential present in a fixed set of
// per-caller tokens, each mapped to its own principal ID so rate limits can
// be tracked per caller rather than globally.
type TokenListAuthenticator struct {
	Tokens map[string]string // token -> principal ID
}

func (a TokenListAuthenticator) Authenticate(_ context.Context, credential string) (Principal, error) {
	if id, ok := a.Tokens[credential]; ok {
		return Principal{ID: id}, nil
	}
	return Principal{}, amerrors.AdmissionError(amerrors.ErrCodeAuthInvalid, "unrecognized token", nil)
}

// Limits configures the token-bucket rate limiter.
type Limits struct {
	// RequestsPerSecond is the sustained rate each principal is allowed.
	RequestsPerSecond float64
	// Burst is the maximum number of requests admitted in a single instant.
	Burst int
}

// DefaultLimits matches the spec's default admission posture: generous
// enough not to interfere with interactive MCP usage, tight enough to cap a
// runaway client.
func DefaultLimits() Limits {
	return Limits{RequestsPerSecond: 10, Burst: 20}
}

// Gate authenticates and rate-limits requests per principal.
type Gate struct {
	auth    Authenticator
	limits  Limits
	buckets map[string]*rate.Limiter
	mu      sync.Mutex
}

// NewGate builds an admission Gate with the given authenticator and limits.
func NewGate(auth Authenticator, limits Limits) *Gate {
	if auth == nil {
		auth = NoneAuthenticator{}
	}
	return &Gate{
		auth:    auth,
		limits:  limits,
		buckets: make(map[string]*rate.Limiter),
	}
}

// Admit authenticates credential and, if admitted, consumes one token from
// that principal's bucket. It returns an AmanError in the Admission category
// on either failure.
func (g *Gate) Admit(ctx context.Context, credential string) (Principal, error) {
	p, err := g.auth.Authenticate(ctx, credential)
	if err != nil {
		return Principal{}, err
	}

	limiter := g.limiterFor(p.ID)
	if !limiter.Allow() {
		return p, amerrors.AdmissionError(amerrors.ErrCodeRateLimited,
			"rate limit exceeded for "+p.ID, nil)
	}
	return p, nil
}

func (g *Gate) limiterFor(id string) *rate.Limiter {
	g.mu.Lock()
	defer g.mu.Unlock()
	l, ok := g.buckets[id]
	if !ok {
		l = rate.NewLimiter(rate.Limit(g.limits.RequestsPerSecond), g.limits.Burst)
		g.buckets[id] = l
	}
	return l
}

package admission

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoneAuthenticator_AlwaysAdmits(t *testing.T) {
	gate := NewGate(NoneAuthenticator{}, Limits{RequestsPerSecond: 100, Burst: 100})
	p, err := gate.Admit(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "anonymous", p.ID)
}

func TestBearerAuthenticator_RejectsWrongToken(t *testing.T) {
	gate := NewGate(BearerAuthenticator{Token: "secret"}, DefaultLimits())
	_, err := gate.Admit(context.Background(), "wrong")
	require.Error(t, err)
}

func TestBearerAuthenticator_AcceptsCorrectToken(t *testing.T) {
	gate := NewGate(BearerAuthenticator{Token: "secret"}, DefaultLimits())
	p, err := gate.Admit(context.Background(), "secret")
	require.NoError(t, err)
	assert.Equal(t, "bearer", p.ID)
}

func TestTokenListAuthenticator_PerCallerPrincipal(t *testing.T) {
	auth := TokenListAuthenticator{Tokens: map[string]string{"tok-a": "caller-a", "tok-b": "caller-b"}}
	gate := NewGate(auth, DefaultLimits())

	p1, err := gate.Admit(context.Background(), "tok-a")
	require.NoError(t, err)
	assert.Equal(t, "caller-a", p1.ID)

	_, err = gate.Admit(context.Background(), "unknown")
	require.Error(t, err)
}

func TestGate_RateLimitsBurst(t *testing.T) {
	gate := NewGate(NoneAuthenticator{}, Limits{RequestsPerSecond: 1, Burst: 1})

	_, err := gate.Admit(context.Background(), "")
	require.NoError(t, err)

	_, err = gate.Admit(context.Background(), "")
	require.Error(t, err)
}

package auth

import (
	"testing"
	"time"

	"github.com/erp/purchasing/internal/infrastructure/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-at-least-32-chars"

func newTestJWTService() *JWTService {
	return NewJWTService(config.JWTConfig{Enabled: true, Secret: testSecret, Issuer: "purchasing"})
}

func TestIssueAndValidate(t *testing.T) {
	svc := newTestJWTService()

	token, expires, err := svc.Issue(IssueInput{
		Subject: "buyer-1",
		Name:    "Jane Buyer",
		Scopes:  []string{ScopeRead, ScopeWrite},
		TTL:     15 * time.Minute,
	})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), expires, 5*time.Second)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "buyer-1", claims.Subject)
	assert.Equal(t, "Jane Buyer", claims.Name)
	assert.Equal(t, "purchasing", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
	assert.True(t, claims.HasScope(ScopeWrite))
	assert.False(t, claims.HasScope(ScopeAdmin))
	assert.Equal(t, expires.Unix(), claims.GetExpiresAtTime().Unix())
}

func TestIssue_DefaultTTLAndSubject(t *testing.T) {
	svc := newTestJWTService()

	_, _, err := svc.Issue(IssueInput{})
	assert.ErrorIs(t, err, ErrMissingSubject)

	_, expires, err := svc.Issue(IssueInput{Subject: "svc"})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, 5*time.Second)
}

func TestValidate_Errors(t *testing.T) {
	svc := newTestJWTService()

	t.Run("expired", func(t *testing.T) {
		past := newTestJWTService()
		past.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		token, _, err := past.Issue(IssueInput{Subject: "buyer", TTL: time.Minute})
		require.NoError(t, err)

		_, err = svc.Validate(token)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewJWTService(config.JWTConfig{Secret: "another-secret-key-of-32-characters", Issuer: "purchasing"})
		token, _, err := other.Issue(IssueInput{Subject: "buyer"})
		require.NoError(t, err)

		_, err = svc.Validate(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other := NewJWTService(config.JWTConfig{Secret: testSecret, Issuer: "someone-else"})
		token, _, err := other.Issue(IssueInput{Subject: "buyer"})
		require.NoError(t, err)

		_, err = svc.Validate(token)
		assert.ErrorIs(t, err, ErrInvalidIssuer)
	})

	t.Run("not yet valid", func(t *testing.T) {
		future := newTestJWTService()
		future.now = func() time.Time { return time.Now().Add(time.Hour) }
		token, _, err := future.Issue(IssueInput{Subject: "buyer"})
		require.NoError(t, err)

		_, err = svc.Validate(token)
		assert.ErrorIs(t, err, ErrTokenNotYetValid)
	})

	t.Run("unsigned", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "buyer", Issuer: "purchasing"},
		}).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = svc.Validate(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.Validate("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("missing subject", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
			RegisteredClaims: jwt.RegisteredClaims{Issuer: "purchasing"},
		}).SignedString([]byte(testSecret))
		require.NoError(t, err)

		_, err = svc.Validate(token)
		assert.ErrorIs(t, err, ErrMissingSubject)
	})
}

func TestClaims_Scopes(t *testing.T) {
	admin := &Claims{Scopes: []string{ScopeAdmin}}
	assert.True(t, admin.HasScope(ScopeRead))
	assert.True(t, admin.HasScope(ScopeWrite))

	reader := &Claims{Scopes: []string{ScopeRead}}
	assert.True(t, reader.HasAnyScope(ScopeWrite, ScopeRead))
	assert.False(t, reader.HasAnyScope(ScopeWrite, ScopeAdmin))
	assert.False(t, (&Claims{}).HasScope(ScopeRead))
}

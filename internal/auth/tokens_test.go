package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/librarydesk/librarydesk/internal/config"
	"github.com/librarydesk/librarydesk/internal/entities"
)

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer, err := NewTokenIssuer(config.Auth{JWTSecret: "test-secret", TokenExpiry: time.Hour})
	require.NoError(t, err)

	token, err := issuer.Issue(&entities.User{UserID: "A001", Role: entities.UserRoleAdmin})
	require.NoError(t, err)

	claims, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "A001", claims.Subject)
	assert.Equal(t, entities.UserRoleAdmin, claims.Role)
}

func TestTokenIssuer_Rejects(t *testing.T) {
	issuer, err := NewTokenIssuer(config.Auth{JWTSecret: "test-secret", TokenExpiry: time.Hour})
	require.NoError(t, err)
	token, err := issuer.Issue(&entities.User{UserID: "S1", Role: entities.UserRoleStudent})
	require.NoError(t, err)

	t.Run("other secret", func(t *testing.T) {
		other, err := NewTokenIssuer(config.Auth{JWTSecret: "another-secret"})
		require.NoError(t, err)
		_, err = other.Parse(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		issuer.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		defer func() { issuer.now = time.Now }()
		_, err := issuer.Parse(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := issuer.Parse("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
		_, err = issuer.Parse("")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestNewTokenIssuer_GeneratesSecret(t *testing.T) {
	a, err := NewTokenIssuer(config.Auth{})
	require.NoError(t, err)
	b, err := NewTokenIssuer(config.Auth{})
	require.NoError(t, err)

	token, err := a.Issue(&entities.User{UserID: "S1"})
	require.NoError(t, err)
	_, err = b.Parse(token)
	assert.Error(t, err)
}

package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appctx "stockflow/internal/core/context"
)

const testSecret = "test-secret-0123456789"

func testUser() *appctx.UserContext {
	return &appctx.UserContext{
		UserID:          "user-1",
		CompanyID:       "01900000-0000-7000-8000-000000000001",
		Roles:           []string{"picker"},
		Permissions:     []string{"pick_list:*"},
		BusinessUnitID:  "01900000-0000-7000-8000-000000000002",
		BusinessUnitIDs: []string{"01900000-0000-7000-8000-000000000002"},
	}
}

func TestJWTService_RoundTrip(t *testing.T) {
	svc := NewJWTService(DefaultJWTConfig(testSecret))

	token, expiresAt, err := svc.GenerateAccessToken(testUser())
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), expiresAt, time.Minute)

	user, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, testUser(), user)
}

func TestJWTService_Rejects(t *testing.T) {
	svc := NewJWTService(DefaultJWTConfig(testSecret))

	t.Run("wrong secret", func(t *testing.T) {
		other := NewJWTService(DefaultJWTConfig("another-secret-0123456789"))
		token, _, err := other.GenerateAccessToken(testUser())
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		cfg := DefaultJWTConfig(testSecret)
		cfg.AccessTokenTTL = -time.Minute
		token, _, err := NewJWTService(cfg).GenerateAccessToken(testUser())
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		assert.ErrorIs(t, err, jwt.ErrTokenExpired)
	})

	t.Run("foreign issuer", func(t *testing.T) {
		cfg := DefaultJWTConfig(testSecret)
		cfg.Issuer = "someone-else"
		token, _, err := NewJWTService(cfg).GenerateAccessToken(testUser())
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		assert.ErrorIs(t, err, jwt.ErrTokenInvalidIssuer)
	})

	t.Run("none algorithm", func(t *testing.T) {
		claims := Claims{UserID: "u", CompanyID: "c"}
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(time.Hour))
		claims.Issuer = "stockflow"
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("missing company", func(t *testing.T) {
		u := testUser()
		u.CompanyID = ""
		token, _, err := svc.GenerateAccessToken(u)
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		assert.Error(t, err)
	})
}

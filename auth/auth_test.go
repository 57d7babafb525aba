package auth

import (
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIssuer(t *testing.T) *Issuer {
	t.Helper()
	hash, err := HashPassword("s3cret-pass")
	require.NoError(t, err)

	return NewIssuer(Config{
		Username:     "admin",
		PasswordHash: hash,
		Secret:       "test-signing-key",
		TTL:          time.Hour,
	})
}

func TestLogin(t *testing.T) {
	t.Parallel()

	i := newTestIssuer(t)
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	i.now = func() time.Time { return now }

	t.Run("valid credentials", func(t *testing.T) {
		token, expiresAt, err := i.Login("admin", "s3cret-pass")
		require.NoError(t, err)
		assert.NotEmpty(t, token)
		assert.Equal(t, now.Add(time.Hour), expiresAt)

		claims, err := i.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, RoleAdmin, claims.Role)
		assert.Equal(t, "admin", claims.Subject)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, _, err := i.Login("admin", "guess")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("wrong username", func(t *testing.T) {
		_, _, err := i.Login("root", "s3cret-pass")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("disabled", func(t *testing.T) {
		_, _, err := NewIssuer(Config{Username: "admin"}).Login("admin", "")
		require.ErrorIs(t, err, ErrDisabled)

		_, err = NewIssuer(Config{}).Verify("anything")
		require.ErrorIs(t, err, ErrDisabled)
	})
}

func TestVerify(t *testing.T) {
	t.Parallel()

	i := newTestIssuer(t)
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	i.now = func() time.Time { return now }

	sign := func(t *testing.T, claims Claims, method jwt.SigningMethod, key any) string {
		t.Helper()
		token, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return token
	}
	adminClaims := func(expiresAt time.Time) Claims {
		return Claims{
			Role: RoleAdmin,
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "admin",
				ExpiresAt: jwt.NewNumericDate(expiresAt),
			},
		}
	}

	t.Run("expired", func(t *testing.T) {
		token := sign(t, adminClaims(now.Add(-time.Minute)), jwt.SigningMethodHS256, []byte("test-signing-key"))
		_, err := i.Verify(token)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("missing expiry", func(t *testing.T) {
		token := sign(t, Claims{Role: RoleAdmin}, jwt.SigningMethodHS256, []byte("test-signing-key"))
		_, err := i.Verify(token)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("other key", func(t *testing.T) {
		token := sign(t, adminClaims(now.Add(time.Hour)), jwt.SigningMethodHS256, []byte("someone-else"))
		_, err := i.Verify(token)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("other algorithm", func(t *testing.T) {
		token := sign(t, adminClaims(now.Add(time.Hour)), jwt.SigningMethodHS512, []byte("test-signing-key"))
		_, err := i.Verify(token)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("not an admin", func(t *testing.T) {
		claims := adminClaims(now.Add(time.Hour))
		claims.Role = "guest"
		token := sign(t, claims, jwt.SigningMethodHS256, []byte("test-signing-key"))
		_, err := i.Verify(token)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := i.Verify("not.a.token")
		require.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestHashPassword(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("s3cret-pass")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-pass", hash)

	other, err := HashPassword("s3cret-pass")
	require.NoError(t, err)
	assert.NotEqual(t, hash, other)
}

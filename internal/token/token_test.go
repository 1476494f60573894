package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-labs/inkwell-back/internal/config"
)

func newManager(secret string) *Manager {
	return NewManager(&config.Config{JWTSecret: secret})
}

func TestIssueAndVerify(t *testing.T) {
	m := newManager("test-secret")

	raw, err := m.Issue(42)
	require.NoError(t, err)
	require.NotEmpty(t, raw)

	claims, err := m.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), claims.UserID)
	assert.NotEmpty(t, claims.ID)

	exp := claims.ExpiresAt.Time
	iat := claims.IssuedAt.Time
	assert.Equal(t, Lifetime, exp.Sub(iat))
}

func TestVerifyRejectsMissingToken(t *testing.T) {
	m := newManager("test-secret")

	_, err := m.Verify("")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	m := newManager("test-secret")

	_, err := m.Verify("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	raw, err := newManager("correct-secret").Issue(42)
	require.NoError(t, err)

	_, err = newManager("wrong-secret").Verify(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsExpired(t *testing.T) {
	m := newManager("test-secret")

	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now.Add(-2 * Lifetime)),
			ExpiresAt: jwt.NewNumericDate(now.Add(-Lifetime)),
		},
		UserID: 42,
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	require.NoError(t, err)

	_, err = m.Verify(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsWrongSigningMethod(t *testing.T) {
	m := newManager("test-secret")

	raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: 42}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = m.Verify(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

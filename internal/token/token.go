package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/inkwell-labs/inkwell-back/internal/config"
)

// Lifetime is fixed at issuance; there is no refresh or rotation, and no
// server-side blacklist. A token stays valid until it expires.
const Lifetime = 7 * 24 * time.Hour

var ErrInvalidToken = errors.New("invalid or expired token")

type (
	Claims struct {
		jwt.RegisteredClaims
		UserID uint64 `json:"id"`
	}

	Manager struct {
		secret []byte
	}
)

func NewManager(cfg *config.Config) *Manager {
	return &Manager{
		secret: []byte(cfg.JWTSecret),
	}
}

func (m *Manager) Issue(userID uint64) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(Lifetime)),
		},
		UserID: userID,
	}

	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", errors.Wrap(err, "sign token")
	}
	return raw, nil
}

// Verify is pure: the embedded identity is trusted from the signature
// alone, without a database round trip.
func (m *Manager) Verify(raw string) (*Claims, error) {
	if raw == "" {
		return nil, ErrInvalidToken
	}

	parsed, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

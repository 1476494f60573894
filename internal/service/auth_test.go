package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-labs/inkwell-back/internal/db"
)

func TestRegister(t *testing.T) {
	conn := newTestDB(t)
	svc := NewAuth(conn, newTestLogger())

	user, err := svc.Register("alice", "alice@example.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.NotEqual(t, "hunter22", user.Password)

	stored := db.User{}
	require.NoError(t, conn.First(&stored, user.ID).Error)
	assert.Equal(t, user.Email, stored.Email)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	conn := newTestDB(t)
	svc := NewAuth(conn, newTestLogger())

	_, err := svc.Register("alice", "alice@example.com", "hunter22")
	require.NoError(t, err)

	_, err = svc.Register("alice2", "alice@example.com", "hunter33")
	assert.ErrorIs(t, err, ErrDuplicateUser)

	var count int64
	require.NoError(t, conn.Model(&db.User{}).Where("email = ?", "alice@example.com").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestLogin(t *testing.T) {
	conn := newTestDB(t)
	svc := NewAuth(conn, newTestLogger())

	registered, err := svc.Register("alice", "alice@example.com", "hunter22")
	require.NoError(t, err)

	t.Run("correct password", func(t *testing.T) {
		user, err := svc.Login("alice@example.com", "hunter22")
		require.NoError(t, err)
		assert.Equal(t, registered.ID, user.ID)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login("alice@example.com", "wrong")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := svc.Login("nobody@example.com", "hunter22")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown email and wrong password are indistinguishable", func(t *testing.T) {
		_, errUnknown := svc.Login("nobody@example.com", "hunter22")
		_, errWrongPass := svc.Login("alice@example.com", "wrong")
		assert.Equal(t, errUnknown, errWrongPass)
	})
}

func TestMe(t *testing.T) {
	conn := newTestDB(t)
	svc := NewAuth(conn, newTestLogger())

	seeded := mustCreateUser(t, conn, "alice", "alice@example.com")

	user, err := svc.Me(seeded.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)

	_, err = svc.Me(seeded.ID + 1000)
	assert.ErrorIs(t, err, ErrNotFound)
}

package service

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/inkwell-labs/inkwell-back/internal/db"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// A second pooled connection would see its own empty in-memory DB.
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.Migrate(conn))

	return conn
}

func newTestLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

// mustCreateUser seeds a user directly, skipping the expensive bcrypt
// round the register path does.
func mustCreateUser(t *testing.T, conn *gorm.DB, username, email string) *db.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)
	require.NoError(t, err)

	user := db.User{
		Username: username,
		Email:    email,
		Password: string(hash),
	}
	require.NoError(t, conn.Create(&user).Error)
	return &user
}

func mustCreatePost(t *testing.T, conn *gorm.DB, authorID uint64, title, content string) *db.Post {
	t.Helper()

	post := db.Post{
		Title:    title,
		Content:  content,
		AuthorID: authorID,
	}
	require.NoError(t, conn.Create(&post).Error)
	return &post
}

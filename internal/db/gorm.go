package db

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/inkwell-labs/inkwell-back/internal/config"
)

type (
	GormForkedModel struct {
		ID        uint64 `gorm:"primarykey"`
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	User struct {
		GormForkedModel
		Username  string `gorm:"not null"`
		Email     string `gorm:"unique;not null"`
		Password  string `gorm:"not null"`
		Posts     []Post `gorm:"foreignKey:AuthorID"`
		Bookmarks []Bookmark
	}

	Post struct {
		GormForkedModel
		Title    string `gorm:"not null"`
		Content  string `gorm:"not null"`
		AuthorID uint64 `gorm:"not null"`
		Author   User
	}

	// Bookmark rows are not cascade-deleted with their post; stale rows
	// are swept on the next read of the owner's list.
	Bookmark struct {
		GormForkedModel
		UserID uint64 `gorm:"not null;uniqueIndex:uidx_user_post"`
		PostID uint64 `gorm:"not null;uniqueIndex:uidx_user_post"`
		User   User
	}
)

func NewGormClient(cfg *config.Config) (*gorm.DB, error) {
	newLogger := logger.New(log.New(os.Stdout, "\r\n", log.LstdFlags), logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  logger.Info,
		Colorful:                  true,
		IgnoreRecordNotFoundError: false,
	})

	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort, cfg.DBSSLMode)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: newLogger,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect database")
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&User{}); err != nil {
		return errors.Wrap(err, "migrate user")
	}
	if err := db.AutoMigrate(&Post{}); err != nil {
		return errors.Wrap(err, "migrate post")
	}
	if err := db.AutoMigrate(&Bookmark{}); err != nil {
		return errors.Wrap(err, "migrate bookmark")
	}
	return nil
}

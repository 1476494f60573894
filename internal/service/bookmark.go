package service

import (
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/inkwell-labs/inkwell-back/internal/db"
)

type (
	Bookmark struct {
		db     *gorm.DB
		logger *zap.SugaredLogger
	}

	// BookmarkWithPost is a bookmark expanded with its referenced post
	// and the post author's public fields.
	BookmarkWithPost struct {
		ID        uint64
		CreatedAt time.Time
		Post      db.Post
	}

	bookmarkRow struct {
		ID             uint64
		CreatedAt      time.Time
		PostID         uint64
		JoinedPostID   *uint64
		Title          string
		Content        string
		PostCreatedAt  time.Time
		PostUpdatedAt  time.Time
		JoinedAuthorID *uint64
		Username       string
	}
)

func NewBookmark(db *gorm.DB, l *zap.SugaredLogger) *Bookmark {
	return &Bookmark{
		db:     db,
		logger: l,
	}
}

// Add does not require the post to still exist; a dangling reference is
// cleaned up by the next ListForUser call.
func (s *Bookmark) Add(userID, postID uint64) (*db.Bookmark, error) {
	existing := db.Bookmark{}
	res := s.db.Where("user_id = ? AND post_id = ?", userID, postID).First(&existing)
	if res.Error == nil {
		return nil, ErrDuplicateBookmark
	}
	if !errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return nil, errors.Wrap(res.Error, "lookup existing bookmark")
	}

	model := db.Bookmark{
		UserID: userID,
		PostID: postID,
	}
	res = s.db.Create(&model)
	if res.Error != nil {
		// The composite unique index serializes two racing Adds for
		// the same pair.
		return nil, errors.Wrap(res.Error, "create bookmark")
	}

	return &model, nil
}

func (s *Bookmark) Remove(userID, postID uint64) error {
	res := s.db.Where("user_id = ? AND post_id = ?", userID, postID).Delete(&db.Bookmark{})
	if res.Error != nil {
		return errors.Wrap(res.Error, "delete bookmark")
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListForUser reconciles on read: bookmarks whose post or post author no
// longer resolve are deleted from storage and omitted from the result.
// The cleanup is not atomic with the read that discovered the orphans;
// losing that race only re-deletes rows that are already gone.
func (s *Bookmark) ListForUser(userID uint64) ([]BookmarkWithPost, error) {
	sql, args, err := squirrel.
		Select(
			"b.id", "b.created_at", "b.post_id",
			"p.id AS joined_post_id", "p.title", "p.content",
			"p.created_at AS post_created_at", "p.updated_at AS post_updated_at",
			"u.id AS joined_author_id", "u.username",
		).
		From("bookmarks b").
		LeftJoin("posts p ON p.id = b.post_id").
		LeftJoin("users u ON u.id = p.author_id").
		Where(squirrel.Eq{"b.user_id": userID}).
		OrderBy("b.created_at DESC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build sql")
	}

	rows := make([]bookmarkRow, 0)
	res := s.db.Raw(sql, args...).Scan(&rows)
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "scan")
	}

	valid := make([]BookmarkWithPost, 0, len(rows))
	orphaned := make([]uint64, 0)
	for i := range rows {
		if rows[i].JoinedPostID == nil || rows[i].JoinedAuthorID == nil {
			orphaned = append(orphaned, rows[i].ID)
			continue
		}
		valid = append(valid, BookmarkWithPost{
			ID:        rows[i].ID,
			CreatedAt: rows[i].CreatedAt,
			Post: db.Post{
				GormForkedModel: db.GormForkedModel{
					ID:        *rows[i].JoinedPostID,
					CreatedAt: rows[i].PostCreatedAt,
					UpdatedAt: rows[i].PostUpdatedAt,
				},
				Title:    rows[i].Title,
				Content:  rows[i].Content,
				AuthorID: *rows[i].JoinedAuthorID,
				Author: db.User{
					GormForkedModel: db.GormForkedModel{ID: *rows[i].JoinedAuthorID},
					Username:        rows[i].Username,
				},
			},
		})
	}

	if len(orphaned) > 0 {
		res := s.db.Delete(&db.Bookmark{}, orphaned)
		if res.Error != nil {
			return nil, errors.Wrap(res.Error, "delete orphaned bookmarks")
		}
		s.logger.Infow("removed orphaned bookmarks", "user_id", userID, "count", len(orphaned))
	}

	return valid, nil
}

package service

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/inkwell-labs/inkwell-back/internal/db"
)

type Post struct {
	db     *gorm.DB
	logger *zap.SugaredLogger
}

func NewPost(db *gorm.DB, l *zap.SugaredLogger) *Post {
	return &Post{
		db:     db,
		logger: l,
	}
}

func (s *Post) Create(authorID uint64, title, content string) (*db.Post, error) {
	model := db.Post{
		Title:    title,
		Content:  content,
		AuthorID: authorID,
	}

	res := s.db.Create(&model)
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "create post")
	}

	res = s.db.Preload("Author").First(&model, model.ID)
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "reload post")
	}

	return &model, nil
}

func (s *Post) List() ([]db.Post, error) {
	posts := make([]db.Post, 0)
	res := s.db.Preload("Author").Order("created_at DESC").Find(&posts)
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "list posts")
	}
	return posts, nil
}

func (s *Post) ListByAuthor(authorID uint64) ([]db.Post, error) {
	posts := make([]db.Post, 0)
	res := s.db.Preload("Author").Where("author_id = ?", authorID).Order("created_at DESC").Find(&posts)
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "list posts by author")
	}
	return posts, nil
}

func (s *Post) Get(id uint64) (*db.Post, error) {
	post := db.Post{}
	res := s.db.Preload("Author").First(&post, id)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(res.Error, "get post")
	}
	return &post, nil
}

func (s *Post) Update(id, requesterID uint64, title, content string) (*db.Post, error) {
	post := db.Post{}
	res := s.db.First(&post, id)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(res.Error, "get post")
	}

	if post.AuthorID != requesterID {
		return nil, ErrForbidden
	}

	res = s.db.Model(&post).Updates(map[string]interface{}{
		"title":   title,
		"content": content,
	})
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "update post")
	}

	res = s.db.Preload("Author").First(&post, id)
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "reload post")
	}

	return &post, nil
}

// Delete removes the post only. Bookmarks pointing at it are left behind
// and reconciled on the next read of their owner's list.
func (s *Post) Delete(id, requesterID uint64) error {
	post := db.Post{}
	res := s.db.First(&post, id)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return errors.Wrap(res.Error, "get post")
	}

	if post.AuthorID != requesterID {
		return ErrForbidden
	}

	res = s.db.Delete(&post)
	if res.Error != nil {
		return errors.Wrap(res.Error, "delete post")
	}
	return nil
}

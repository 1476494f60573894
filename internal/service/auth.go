package service

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/inkwell-labs/inkwell-back/internal/db"
)

type Auth struct {
	db     *gorm.DB
	logger *zap.SugaredLogger
}

func NewAuth(db *gorm.DB, l *zap.SugaredLogger) *Auth {
	return &Auth{
		db:     db,
		logger: l,
	}
}

func (s *Auth) Register(username, email, password string) (*db.User, error) {
	existing := db.User{}
	res := s.db.Where("email = ?", email).First(&existing)
	if res.Error == nil {
		return nil, ErrDuplicateUser
	}
	if !errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return nil, errors.Wrap(res.Error, "lookup existing user")
	}

	hash, err := s.bcryptGen(password)
	if err != nil {
		return nil, errors.Wrap(err, "bcryptGen")
	}

	user := db.User{
		Username: username,
		Email:    email,
		Password: hash,
	}
	res = s.db.Create(&user)
	if res.Error != nil {
		// The unique index on email backs the check above under
		// concurrent registrations.
		return nil, errors.Wrap(res.Error, "create user")
	}

	return &user, nil
}

// Login returns ErrInvalidCredentials for both an unknown email and a
// wrong password, so responses cannot be used to enumerate accounts.
func (s *Auth) Login(email, password string) (*db.User, error) {
	user := db.User{}
	res := s.db.Where("email = ?", email).First(&user)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, errors.Wrap(res.Error, "lookup user")
	}

	if err := s.bcryptCheck(user.Password, password); err != nil {
		return nil, ErrInvalidCredentials
	}

	return &user, nil
}

func (s *Auth) Me(userID uint64) (*db.User, error) {
	user := db.User{}
	res := s.db.First(&user, userID)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(res.Error, "lookup user")
	}
	return &user, nil
}

func (s *Auth) bcryptGen(pass string) (string, error) {
	passwordHashB, err := bcrypt.GenerateFromPassword([]byte(pass), 14)
	if err != nil {
		return "", errors.Wrap(err, "generate password hash")
	}
	return string(passwordHashB), nil
}

func (s *Auth) bcryptCheck(hash, pass string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pass))
}

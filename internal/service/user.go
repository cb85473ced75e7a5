package service

import (
	"context"
	"regexp"
	"strings"

	"meal-planner/internal/apperr"
	"meal-planner/internal/logger"
	"meal-planner/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// UserService 注册用户、修改密码，供 HTTP 和命令行共用
type UserService struct {
	db         *gorm.DB
	log        *logger.Logger
	bcryptCost int
}

func NewUserService(db *gorm.DB, log *logger.Logger, bcryptCost int) *UserService {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = 12
	}
	return &UserService{db: db, log: log, bcryptCost: bcryptCost}
}

type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if len(email) > 180 || !emailRe.MatchString(email) {
		return nil, apperr.Validation("Adresse e-mail invalide")
	}
	if !IsStrongPassword(in.Password) {
		return nil, apperr.Validation("Le mot de passe doit contenir 8 à 64 caractères, dont une majuscule, une minuscule et un chiffre")
	}

	db := s.db.WithContext(ctx)
	var count int64
	if err := db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, apperr.Internal("count users", err)
	}
	if count > 0 {
		return nil, apperr.Conflict("Cette adresse e-mail est déjà utilisée")
	}

	hash, err := s.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
	}
	if err := db.Create(user).Error; err != nil {
		return nil, apperr.Internal("create user", err)
	}
	s.log.Info("user registered", "user_id", user.ID)
	return user, nil
}

// ChangePassword checks the old password then stores the new hash.
func (s *UserService) ChangePassword(ctx context.Context, user *models.User, oldPassword, newPassword string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)); err != nil {
		return apperr.Validation("Ancien mot de passe incorrect")
	}
	if !IsStrongPassword(newPassword) {
		return apperr.Validation("Le mot de passe doit contenir 8 à 64 caractères, dont une majuscule, une minuscule et un chiffre")
	}
	hash, err := s.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", user.ID).Update("password_hash", hash).Error; err != nil {
		return apperr.Internal("update password", err)
	}
	user.PasswordHash = hash
	return nil
}

func (s *UserService) HashPassword(pwd string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), s.bcryptCost)
	if err != nil {
		return "", apperr.Internal("hash password", err)
	}
	return string(hash), nil
}

// IsStrongPassword 8-64 位，包含大小写字母和数字
func IsStrongPassword(pwd string) bool {
	if len(pwd) < 8 || len(pwd) > 64 {
		return false
	}
	var hasUpper, hasLower, hasDigit bool
	for _, ch := range pwd {
		switch {
		case ch >= 'A' && ch <= 'Z':
			hasUpper = true
		case ch >= 'a' && ch <= 'z':
			hasLower = true
		case ch >= '0' && ch <= '9':
			hasDigit = true
		}
	}
	return hasUpper && hasLower && hasDigit
}

package service

import (
	"context"
	"errors"
	"focusmath_backend/internal/config"
	"focusmath_backend/internal/model"
	"focusmath_backend/internal/repository"
	"focusmath_backend/internal/util"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type RegisterRequest struct {
	Name     string `json:"name" binding:"required,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"`
	Grade    int    `json:"grade" binding:"omitempty,oneof=11 12"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type AuthService struct {
	UserRepo *repository.UserRepository
	Cfg      *config.Config
}

func NewAuthService(userRepo *repository.UserRepository, cfg *config.Config) *AuthService {
	return &AuthService{
		UserRepo: userRepo,
		Cfg:      cfg,
	}
}

func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*model.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	_, err := s.UserRepo.FindByEmail(ctx, email)
	if err == nil {
		return nil, util.ErrEmailRegistered
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	grade := req.Grade
	if grade == 0 {
		grade = 11
	}
	user := &model.User{
		Name:     strings.TrimSpace(req.Name),
		Email:    email,
		Password: string(hashedPassword),
		Role:     model.Student,
		Grade:    grade,
	}
	if err := s.UserRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, req LoginRequest) (string, *model.User, error) {
	user, err := s.UserRepo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, util.ErrInvalidCredentials
		}
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return "", nil, util.ErrInvalidCredentials
	}

	token, err := util.GenerateJWT(user, s.Cfg.JWT.Secret, s.Cfg.JWT.ExpireTime)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

func (s *AuthService) Profile(ctx context.Context, userID uint) (*model.User, error) {
	user, err := s.UserRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

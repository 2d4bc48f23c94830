package handler

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"inspectra-system/internal/apperr"
	"inspectra-system/internal/database/models"
	"inspectra-system/internal/utils"
)

// UserHandler is the identity boundary: it registers inspector accounts
// and issues the JWTs the engine reads the creator id from.
type UserHandler struct {
	db       *gorm.DB
	redis    *redis.Client
	log      *zap.Logger
	tokenTTL time.Duration
}

func NewUserHandler(db *gorm.DB, redisClient *redis.Client, log *zap.Logger, tokenTTL time.Duration) *UserHandler {
	return &UserHandler{
		db:       db,
		redis:    redisClient,
		log:      log,
		tokenTTL: tokenTTL,
	}
}

type RegisterInput struct {
	Username  string
	Email     string
	Password  string
	Firstname string
	Lastname  string
}

func (s *UserHandler) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if in.Username == "" || in.Email == "" || in.Password == "" {
		return nil, apperr.Validation("username, email and password are required")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Dependency("password hashing", err)
	}

	user := models.User{
		Username:  in.Username,
		Email:     in.Email,
		Password:  string(hashed),
		Firstname: in.Firstname,
		Lastname:  in.Lastname,
		IsActive:  true,
	}

	if err := s.db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Validation("username or email already taken")
		}
		return nil, apperr.Dependency("user store", err)
	}

	user.Password = ""
	return &user, nil
}

type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      models.User
}

func (s *UserHandler) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	if username == "" || password == "" {
		return nil, apperr.Validation("username and password are required")
	}

	var user models.User
	if err := s.db.Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.AuthRequired("invalid credentials")
		}
		return nil, apperr.Dependency("user store", err)
	}

	if !user.IsActive {
		return nil, apperr.AuthRequired("account is disabled")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, apperr.AuthRequired("invalid credentials")
	}

	token, exp, err := utils.GenerateToken(user.ID, user.Username, s.tokenTTL)
	if err != nil {
		return nil, apperr.Dependency("token signing", err)
	}

	now := time.Now()
	user.LastLogin = &now
	if err := s.db.Model(&models.User{}).Where("id = ?", user.ID).Update("last_login", now).Error; err != nil {
		s.log.Warn("failed to stamp last login", zap.Int64("user_id", user.ID), zap.Error(err))
	}

	user.Password = ""
	return &LoginResult{Token: token, ExpiresAt: exp, User: user}, nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/config"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/dto"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/models"
	"github.com/ahmetcoskunkizilkaya/character-dashboard/internal/session"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrEmailTaken         = apperr.New(apperr.ErrInvalidRequest, "email already registered")
	ErrInvalidCredentials = apperr.New(apperr.ErrUnauthenticated, "invalid email or password")
	ErrUserNotFound       = apperr.New(apperr.ErrUnauthenticated, "user not found")
)

// Session is a signed token plus the facts needed to set and later revoke it.
type Session struct {
	Token     string
	ID        string
	ExpiresAt time.Time
}

type AuthService struct {
	db       *gorm.DB
	cfg      *config.Config
	sessions session.Store
	now      func() time.Time
}

func NewAuthService(db *gorm.DB, cfg *config.Config, sessions session.Store) *AuthService {
	return &AuthService{db: db, cfg: cfg, sessions: sessions, now: time.Now}
}

// CreateUser registers a dashboard operator. Used by the admin CLI.
func (s *AuthService) CreateUser(ctx context.Context, email, password, role string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || len(password) < 8 {
		return nil, apperr.Invalid("email required and password must be at least 8 characters")
	}
	if role == "" {
		role = "user"
	}

	var existing models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&existing).Error; err == nil {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{Email: email, Password: string(hash), Role: role}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, apperr.Store("failed to create user", err)
	}
	return &user, nil
}

func (s *AuthService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, *Session, error) {
	var user models.User
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, apperr.Store("failed to load user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	sess, err := s.issue(&user)
	if err != nil {
		return nil, nil, err
	}

	return &dto.LoginResponse{User: userResponse(&user), ExpiresAt: sess.ExpiresAt}, sess, nil
}

// Logout revokes the token until it would have expired anyway.
func (s *AuthService) Logout(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if tokenID == "" {
		return nil
	}
	ttl := expiresAt.Sub(s.now())
	if err := s.sessions.Revoke(ctx, tokenID, ttl); err != nil {
		return apperr.Store("failed to revoke session", err)
	}
	return nil
}

func (s *AuthService) Me(ctx context.Context, userID uuid.UUID) (*dto.UserResponse, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, apperr.Store("failed to load user", err)
	}
	resp := userResponse(&user)
	return &resp, nil
}

func (s *AuthService) issue(user *models.User) (*Session, error) {
	now := s.now()
	expiresAt := now.Add(s.cfg.SessionTTL)
	jti := uuid.NewString()

	claims := jwt.MapClaims{
		"sub":   user.ID.String(),
		"email": user.Email,
		"role":  user.Role,
		"jti":   jti,
		"iat":   now.Unix(),
		"exp":   expiresAt.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return &Session{Token: signed, ID: jti, ExpiresAt: expiresAt}, nil
}

func userResponse(u *models.User) dto.UserResponse {
	return dto.UserResponse{ID: u.ID, Email: u.Email, Role: u.Role}
}

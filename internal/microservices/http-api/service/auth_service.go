package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"chatdesk/internal/config"
	"chatdesk/internal/middleware/auth"
	"chatdesk/internal/microservices/http-api/models"
	"chatdesk/internal/microservices/http-api/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrNameInUse          = errors.New("username already in use")
	ErrEmailInUse         = errors.New("email already in use")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
)

// Claims is the identity carried by a validated access token.
type Claims struct {
	UserID   string
	Username string
	Email    string
}

// Caller converts validated claims into the identity every chat operation
// is gated on. One resolution path for all handlers: nothing but the token.
func (c *Claims) Caller() Caller {
	return Caller{UserID: c.UserID, DisplayName: c.Username, Email: c.Email}
}

// IdentityCreatedHook fires exactly once per successfully created identity,
// before Register returns. Used to provision the user's application profile.
type IdentityCreatedHook func(ctx context.Context, userID, name, email string)

// AuthService is the identity-provider boundary: it issues and validates
// credentials but owns no chat semantics.
type AuthService interface {
	Register(ctx context.Context, username, password, email string) (*models.User, error)
	Login(username, password string) (accessToken, refreshToken string, user *models.User, err error)
	RefreshAccessToken(refreshToken string) (newAccessToken string, err error)
	ValidateToken(tokenString string) (*Claims, error)
}

type authService struct {
	userRepo          repository.UserRepository
	refreshTokenRepo  repository.RefreshTokenRepository
	onIdentityCreated IdentityCreatedHook
	jwtSecret         string
	accessTokenTTL    time.Duration
	refreshTokenTTL   time.Duration
}

func NewAuthService(
	userRepo repository.UserRepository,
	refreshTokenRepo repository.RefreshTokenRepository,
	onIdentityCreated IdentityCreatedHook,
	cfg *config.Config,
) AuthService {
	return &authService{
		userRepo:          userRepo,
		refreshTokenRepo:  refreshTokenRepo,
		onIdentityCreated: onIdentityCreated,
		jwtSecret:         cfg.JWTSecret,
		accessTokenTTL:    cfg.AccessTokenTTL,
		refreshTokenTTL:   cfg.RefreshTokenTTL,
	}
}

// Register creates a new identity and fires the identity-created hook.
func (s *authService) Register(ctx context.Context, username, password, email string) (*models.User, error) {
	// Check if user exists
	if _, err := s.userRepo.FindByUsername(username); err == nil {
		return nil, ErrNameInUse
	}
	if _, err := s.userRepo.FindByEmail(email); err == nil {
		return nil, ErrEmailInUse
	}

	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:       uuid.New().String(),
		Username: username,
		Email:    email,
		Password: hashedPassword,
	}
	if err := s.userRepo.Create(user); err != nil {
		return nil, err
	}

	// every identity gets its profile before it can join rooms or send
	if s.onIdentityCreated != nil {
		s.onIdentityCreated(ctx, user.ID, user.Username, user.Email)
	}
	return user, nil
}

// Login authenticates a user and returns access and refresh tokens.
func (s *authService) Login(username, password string) (string, string, *models.User, error) {
	user, err := s.userRepo.FindByUsername(username)
	if err != nil {
		// dummy compare to keep the timing of the failure path constant
		auth.VerifyPassword("$2a$10$7EqJtq98hPqEX7fNZaFWoOHi6VbU5h6K9v8u5rO0m3j0h6dX5r8e", password)
		return "", "", nil, ErrInvalidCredentials
	}

	if err := auth.VerifyPassword(user.Password, password); err != nil {
		return "", "", nil, ErrInvalidCredentials
	}

	accessToken, err := s.generateAccessToken(user)
	if err != nil {
		return "", "", nil, err
	}
	refreshToken, err := s.generateRefreshToken(user)
	if err != nil {
		return "", "", nil, err
	}
	return accessToken, refreshToken, user, nil
}

func (s *authService) generateAccessToken(user *models.User) (string, error) {
	claims := jwt.MapClaims{
		"user_id":  user.ID,
		"username": user.Username,
		"email":    user.Email,
		"exp":      time.Now().Add(s.accessTokenTTL).Unix(),
		"iat":      time.Now().Unix(),
		"type":     "access",
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

func (s *authService) generateRefreshToken(user *models.User) (string, error) {
	refreshToken := &models.RefreshToken{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		Token:     uuid.New().String(),
		ExpiresAt: time.Now().Add(s.refreshTokenTTL),
	}
	if err := s.refreshTokenRepo.Create(refreshToken); err != nil {
		return "", err
	}
	return refreshToken.Token, nil
}

func (s *authService) RefreshAccessToken(refreshTokenString string) (string, error) {
	refreshToken, err := s.refreshTokenRepo.FindByToken(refreshTokenString)
	if err != nil || refreshToken.Revoked {
		return "", ErrInvalidToken
	}

	if time.Now().After(refreshToken.ExpiresAt) {
		if err := s.refreshTokenRepo.Delete(refreshToken.ID); err != nil {
			slog.Warn("failed to delete expired refresh token", "error", err)
		}
		return "", ErrInvalidToken
	}

	user, err := s.userRepo.FindByID(refreshToken.UserID)
	if err != nil {
		return "", err
	}
	return s.generateAccessToken(user)
}

// ValidateToken parses the bearer token and extracts the caller claims.
func (s *authService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	claims := &Claims{}
	claims.UserID, _ = mapClaims["user_id"].(string)
	claims.Username, _ = mapClaims["username"].(string)
	claims.Email, _ = mapClaims["email"].(string)
	if claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

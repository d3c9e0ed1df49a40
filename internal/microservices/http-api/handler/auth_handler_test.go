package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"chatdesk/internal/microservices/http-api/dto"
	"chatdesk/internal/microservices/http-api/models"
	"chatdesk/internal/microservices/http-api/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockAuthService mocks the AuthService interface
type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Register(ctx context.Context, username, password, email string) (*models.User, error) {
	args := m.Called(ctx, username, password, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockAuthService) Login(username, password string) (string, string, *models.User, error) {
	args := m.Called(username, password)
	if args.Get(2) == nil {
		return "", "", nil, args.Error(3)
	}
	return args.String(0), args.String(1), args.Get(2).(*models.User), args.Error(3)
}

func (m *MockAuthService) RefreshAccessToken(refreshToken string) (string, error) {
	args := m.Called(refreshToken)
	return args.String(0), args.Error(1)
}

func (m *MockAuthService) ValidateToken(tokenString string) (*service.Claims, error) {
	args := m.Called(tokenString)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Claims), args.Error(1)
}

func setupAuthRouter(mockService *MockAuthService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewAuthHandler(mockService, 900)

	rg := r.Group("/api/auth")
	{
		rg.POST("/register", h.Register)
		rg.POST("/login", h.Login)
		rg.POST("/refresh", h.RefreshToken)
	}
	return r
}

func TestAuthHandler_Register(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		mockService := new(MockAuthService)
		r := setupAuthRouter(mockService)

		user := &models.User{ID: "user-1", Username: "alice", Email: "alice@example.com"}
		mockService.On("Register", mock.Anything, "alice", "supersecret", "alice@example.com").
			Return(user, nil).Once()

		body, _ := json.Marshal(dto.RegisterRequest{Username: "alice", Password: "supersecret", Email: "alice@example.com"})
		req, _ := http.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		var response map[string]string
		json.Unmarshal(w.Body.Bytes(), &response)
		assert.Equal(t, "user-1", response["user_id"])
		assert.Equal(t, "alice", response["username"])
		mockService.AssertExpectations(t)
	})

	t.Run("DuplicateName", func(t *testing.T) {
		mockService := new(MockAuthService)
		r := setupAuthRouter(mockService)

		mockService.On("Register", mock.Anything, "alice", "supersecret", "alice@example.com").
			Return(nil, service.ErrNameInUse).Once()

		body, _ := json.Marshal(dto.RegisterRequest{Username: "alice", Password: "supersecret", Email: "alice@example.com"})
		req, _ := http.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("ValidationError", func(t *testing.T) {
		mockService := new(MockAuthService)
		r := setupAuthRouter(mockService)

		// password below the minimum length never reaches the service
		body, _ := json.Marshal(dto.RegisterRequest{Username: "alice", Password: "short", Email: "alice@example.com"})
		req, _ := http.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		mockService.AssertNotCalled(t, "Register")
	})
}

func TestAuthHandler_Login(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		mockService := new(MockAuthService)
		r := setupAuthRouter(mockService)

		user := &models.User{ID: "user-1", Username: "alice"}
		mockService.On("Login", "alice", "supersecret").
			Return("access-token", "refresh-token", user, nil).Once()

		body, _ := json.Marshal(dto.LoginRequest{Username: "alice", Password: "supersecret"})
		req, _ := http.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var response dto.AuthResponse
		json.Unmarshal(w.Body.Bytes(), &response)
		assert.Equal(t, "access-token", response.AccessToken)
		assert.Equal(t, "refresh-token", response.RefreshToken)
		assert.Equal(t, "user-1", response.UserID)
		assert.Equal(t, int64(900), response.ExpiresIn)
	})

	t.Run("BadCredentials", func(t *testing.T) {
		mockService := new(MockAuthService)
		r := setupAuthRouter(mockService)

		mockService.On("Login", "alice", "wrong").
			Return("", "", nil, service.ErrInvalidCredentials).Once()

		body, _ := json.Marshal(dto.LoginRequest{Username: "alice", Password: "wrong"})
		req, _ := http.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestAuthHandler_RefreshToken(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		mockService := new(MockAuthService)
		r := setupAuthRouter(mockService)

		mockService.On("RefreshAccessToken", "valid-refresh").Return("new-access", nil).Once()

		body, _ := json.Marshal(dto.RefreshTokenRequest{RefreshToken: "valid-refresh"})
		req, _ := http.NewRequest(http.MethodPost, "/api/auth/refresh", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var response dto.RefreshResponse
		json.Unmarshal(w.Body.Bytes(), &response)
		assert.Equal(t, "new-access", response.AccessToken)
		assert.Equal(t, "Bearer", response.TokenType)
	})

	t.Run("Invalid", func(t *testing.T) {
		mockService := new(MockAuthService)
		r := setupAuthRouter(mockService)

		mockService.On("RefreshAccessToken", "revoked").
			Return("", service.ErrInvalidCredentials).Once()

		body, _ := json.Marshal(dto.RefreshTokenRequest{RefreshToken: "revoked"})
		req, _ := http.NewRequest(http.MethodPost, "/api/auth/refresh", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

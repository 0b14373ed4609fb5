package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"skillswap-hub/internal/auth"
	"skillswap-hub/internal/mocks"
	"skillswap-hub/internal/models"
	"skillswap-hub/internal/repositories"
)

func setupAuthRouter(users repositories.UserRepository) (*gin.Engine, *auth.Authenticator) {
	gin.SetMode(gin.TestMode)
	authenticator := auth.NewAuthenticator("test-secret", "skillswap-hub", time.Hour)
	handler := NewAuthHandler(users, authenticator)
	r := gin.New()
	r.POST("/api/auth/register", handler.Register)
	r.POST("/api/auth/login", handler.Login)
	return r, authenticator
}

func TestRegisterIssuesToken(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	router, authenticator := setupAuthRouter(users)

	users.On("Create", mock.Anything, "Alice", "alice@example.com", mock.Anything).
		Return(models.User{ID: 11, Name: "Alice", Email: "alice@example.com"}, nil).Once()

	body, _ := json.Marshal(map[string]any{
		"name":     "Alice",
		"email":    "alice@example.com",
		"password": "hunter22",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotEmpty(t, resp.Token)
	assert.Equal(t, int64(11), resp.User.ID)

	userID, err := authenticator.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, int64(11), userID)

	users.AssertExpectations(t)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	router, _ := setupAuthRouter(users)

	users.On("Create", mock.Anything, "Alice", "alice@example.com", mock.Anything).
		Return(models.User{}, repositories.ErrEmailTaken).Once()

	body, _ := json.Marshal(map[string]any{
		"name":     "Alice",
		"email":    "alice@example.com",
		"password": "hunter22",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginSuccess(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	router, _ := setupAuthRouter(users)

	hash, err := auth.HashPassword("correct horse")
	require.NoError(t, err)
	users.On("GetByEmail", mock.Anything, "bob@example.com").
		Return(models.User{ID: 2, Email: "bob@example.com", PasswordHash: hash}, nil).Once()

	body, _ := json.Marshal(map[string]any{"email": "bob@example.com", "password": "correct horse"})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.NotEmpty(t, resp["token"])
}

func TestLoginWrongPassword(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	router, _ := setupAuthRouter(users)

	hash, err := auth.HashPassword("correct horse")
	require.NoError(t, err)
	users.On("GetByEmail", mock.Anything, "bob@example.com").
		Return(models.User{ID: 2, Email: "bob@example.com", PasswordHash: hash}, nil).Once()

	body, _ := json.Marshal(map[string]any{"email": "bob@example.com", "password": "wrong"})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginUnknownEmail(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	router, _ := setupAuthRouter(users)

	users.On("GetByEmail", mock.Anything, "ghost@example.com").
		Return(models.User{}, repositories.ErrUserNotFound).Once()

	body, _ := json.Marshal(map[string]any{"email": "ghost@example.com", "password": "whatever"})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

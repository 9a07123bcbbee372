package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onlinekart/backend/internal/infrastructure/auth"
	"github.com/onlinekart/backend/internal/infrastructure/config"
)

func newTestJWTService() *auth.JWTService {
	return auth.NewJWTService(config.JWTConfig{
		Secret:                 "test-secret-for-middleware",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 24 * time.Hour,
		Issuer:                 "onlinekart-test",
		MaxRefreshCount:        10,
	})
}

func issueTestToken(t *testing.T, svc *auth.JWTService, isStaff bool) string {
	t.Helper()
	pair, err := svc.GenerateTokenPair(auth.GenerateTokenInput{
		UserID:   uuid.New(),
		Username: "jdoe",
		IsStaff:  isStaff,
	})
	require.NoError(t, err)
	return pair.AccessToken
}

// failingBlacklist always returns an error from IsBlacklisted
type failingBlacklist struct{}

func (failingBlacklist) AddToBlacklist(context.Context, string, time.Duration) error {
	return nil
}

func (failingBlacklist) IsBlacklisted(context.Context, string) (bool, error) {
	return false, errors.New("redis unavailable")
}

func setupJWTRouter(cfg JWTMiddlewareConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(JWTAuthMiddlewareWithConfig(cfg))
	r.GET("/api/cart/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id":  GetJWTUserID(c),
			"username": GetJWTUsername(c),
			"is_staff": GetJWTIsStaff(c),
		})
	})
	r.GET("/api/health/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Server is up!"})
	})
	return r
}

func TestJWTAuthMiddleware_MissingHeader(t *testing.T) {
	svc := newTestJWTService()
	router := setupJWTRouter(DefaultJWTConfig(svc))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/cart/", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "ERR_TOKEN_INVALID")
}

func TestJWTAuthMiddleware_SkipPath(t *testing.T) {
	svc := newTestJWTService()
	router := setupJWTRouter(DefaultJWTConfig(svc))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/health/", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestJWTAuthMiddleware_InvalidToken(t *testing.T) {
	svc := newTestJWTService()
	router := setupJWTRouter(DefaultJWTConfig(svc))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/cart/", nil)
	req.Header.Set(AuthHeaderKey, "Bearer not-a-token")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTAuthMiddleware_ValidToken(t *testing.T) {
	svc := newTestJWTService()
	router := setupJWTRouter(DefaultJWTConfig(svc))

	token := issueTestToken(t, svc, true)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/cart/", nil)
	req.Header.Set(AuthHeaderKey, BearerPrefix+token)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"jdoe"`)
	assert.Contains(t, w.Body.String(), `"is_staff":true`)
}

func TestJWTAuthMiddleware_BlacklistedToken(t *testing.T) {
	svc := newTestJWTService()
	blacklist := auth.NewInMemoryTokenBlacklist()

	cfg := DefaultJWTConfig(svc)
	cfg.TokenBlacklist = blacklist
	router := setupJWTRouter(cfg)

	token := issueTestToken(t, svc, false)
	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)
	require.NoError(t, blacklist.AddToBlacklist(context.Background(), claims.ID, time.Minute))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/cart/", nil)
	req.Header.Set(AuthHeaderKey, BearerPrefix+token)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "ERR_TOKEN_REVOKED")
}

func TestJWTAuthMiddleware_BlacklistErrorFailsOpen(t *testing.T) {
	svc := newTestJWTService()

	cfg := DefaultJWTConfig(svc)
	cfg.TokenBlacklist = failingBlacklist{}
	router := setupJWTRouter(cfg)

	token := issueTestToken(t, svc, false)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/cart/", nil)
	req.Header.Set(AuthHeaderKey, BearerPrefix+token)
	router.ServeHTTP(w, req)

	// A blacklist lookup failure must not reject valid tokens
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestStaffOnly(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := newTestJWTService()

	router := gin.New()
	router.Use(JWTAuthMiddlewareWithConfig(DefaultJWTConfig(svc)))
	router.POST("/api/products/", StaffOnly(), func(c *gin.Context) {
		c.JSON(http.StatusCreated, gin.H{"ok": true})
	})

	t.Run("staff allowed", func(t *testing.T) {
		token := issueTestToken(t, svc, true)
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/products/", nil)
		req.Header.Set(AuthHeaderKey, BearerPrefix+token)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("non-staff forbidden", func(t *testing.T) {
		token := issueTestToken(t, svc, false)
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/products/", nil)
		req.Header.Set(AuthHeaderKey, BearerPrefix+token)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), "ERR_FORBIDDEN")
	})
}

func TestOptionalJWTAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := newTestJWTService()

	router := gin.New()
	router.Use(OptionalJWTAuthMiddleware(svc))
	router.GET("/api/products/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"is_staff": GetJWTIsStaff(c)})
	})

	t.Run("no token passes through", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/products/", nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"is_staff":false`)
	})

	t.Run("invalid token passes through without claims", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/products/", nil)
		req.Header.Set(AuthHeaderKey, "Bearer garbage")
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"is_staff":false`)
	})

	t.Run("valid token populates claims", func(t *testing.T) {
		token := issueTestToken(t, svc, true)
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/products/", nil)
		req.Header.Set(AuthHeaderKey, BearerPrefix+token)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"is_staff":true`)
	})
}

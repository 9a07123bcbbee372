package handler

import (
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

// stubPinger fakes the database health check
type stubPinger struct {
	err error
}

func (s stubPinger) Ping() error { return s.err }

func setupSystemRouter(db DBPinger) *gin.Engine {
	r := gin.New()
	h := NewSystemHandler(db)
	r.GET("/api/health/", h.Health)
	r.GET("/api/system/info/", h.GetSystemInfo)
	return r
}

func TestHealth_Up(t *testing.T) {
	router := setupSystemRouter(stubPinger{})

	w := performRequest(t, router, http.MethodGet, "/api/health/", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message": "Server is up!"}`, w.Body.String())
}

func TestHealth_DatabaseDown(t *testing.T) {
	router := setupSystemRouter(stubPinger{err: errors.New("connection refused")})

	w := performRequest(t, router, http.MethodGet, "/api/health/", nil)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"message": "Server is down!", "database": "error"}`, w.Body.String())
}

func TestGetSystemInfo(t *testing.T) {
	router := setupSystemRouter(stubPinger{})

	w := performRequest(t, router, http.MethodGet, "/api/system/info/", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeResponse(t, w)
	assert.Equal(t, true, body["success"])
	data := body["data"].(map[string]any)
	assert.Equal(t, "Online Kart API", data["name"])
	assert.NotEmpty(t, data["go_version"])
}

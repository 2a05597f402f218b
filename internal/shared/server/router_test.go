package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"resume-builder/internal/identity"
	"resume-builder/internal/shared/config"
)

type allowAll struct{}

func (allowAll) Verify(_ context.Context, token string) (identity.Identity, error) {
	if token == "" {
		return identity.Identity{}, identity.ErrMissingToken
	}
	return identity.Identity{SubjectID: token, Email: token + "@example.com"}, nil
}

type whoami struct{}

func (whoami) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/whoami", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("userId"))
	})
}

func testRouter(cfg config.Config) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewRouter(RouterDeps{
		Config:   config.Normalize(cfg),
		Verifier: allowAll{},
		Handlers: []RouteRegistrar{whoami{}},
	})
}

func get(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestRouterMountsHandlersBehindAuth(t *testing.T) {
	r := testRouter(config.Config{})

	require.Equal(t, http.StatusUnauthorized, get(r, "/api/whoami", "").Code)

	resp := get(r, "/api/whoami", "u-1")
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, "u-1", resp.Body.String())
	require.NotEmpty(t, resp.Header().Get("X-Request-Id"))
}

func TestRouterPublicRoutes(t *testing.T) {
	r := testRouter(config.Config{})

	resp := get(r, "/", "")
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, bannerText, resp.Body.String())
	require.Equal(t, http.StatusOK, get(r, "/health", "").Code)
	require.Equal(t, http.StatusNotFound, get(r, "/api/nope", "u-1").Code)
}

func TestRouterRateLimitsPerSubject(t *testing.T) {
	r := testRouter(config.Config{RateLimitRPS: 0.001, RateLimitBurst: 1})

	require.Equal(t, http.StatusOK, get(r, "/api/whoami", "u-1").Code)
	require.Equal(t, http.StatusTooManyRequests, get(r, "/api/whoami", "u-1").Code)
	require.Equal(t, http.StatusOK, get(r, "/api/whoami", "u-2").Code)
}

func TestAddr(t *testing.T) {
	require.Equal(t, ":8080", Addr(""))
	require.Equal(t, ":9000", Addr("9000"))
	require.Equal(t, ":9000", Addr(":9000"))
}

package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusmatch/campusmatch/internal/middleware"
)

const testSecret = "test-secret"

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/whoami", middleware.Auth(testSecret), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"actor": middleware.ActorID(c)})
	})
	return r
}

func TestAuthBearerHeader(t *testing.T) {
	r := newRouter()

	token, err := middleware.IssueToken(testSecret, 42, nil)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"actor":42}`, w.Body.String())
}

func TestAuthQueryParamFallback(t *testing.T) {
	r := newRouter()

	token, err := middleware.IssueToken(testSecret, 7, nil)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/whoami?token="+token, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"actor":7}`, w.Body.String())
}

func TestAuthRejections(t *testing.T) {
	r := newRouter()

	cases := []struct {
		name  string
		token string
	}{
		{"missing", ""},
		{"garbage", "not-a-jwt"},
		{"wrong secret", mustToken(t, "other-secret", 42, nil)},
		{"expired", mustToken(t, testSecret, 42, jwt.MapClaims{"exp": time.Now().Add(-time.Hour).Unix()})},
		{"zero subject", mustToken(t, testSecret, 0, nil)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tc.token != "" {
				req.Header.Set("Authorization", "Bearer "+tc.token)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func mustToken(t *testing.T, secret string, profileID uint64, claims jwt.MapClaims) string {
	t.Helper()
	token, err := middleware.IssueToken(secret, profileID, claims)
	require.NoError(t, err)
	return token
}

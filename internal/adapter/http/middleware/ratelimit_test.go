package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	redisStore "procure-pay/internal/adapter/storage/redis"
	"procure-pay/pkg/response"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func newRateLimitedRouter(t *testing.T, rule RateLimitRule) *gin.Engine {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := redisStore.NewRateLimitStore(client)
	r := gin.New()
	r.POST("/probe", RateLimiter(store, "probe", rule, zerolog.Nop()), func(c *gin.Context) {
		response.OK(c, gin.H{"ok": true})
	})
	return r
}

func TestRateLimiter_AllowsUnderLimit(t *testing.T) {
	r := newRateLimitedRouter(t, RateLimitRule{Limit: 3, Window: time.Minute})

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/probe", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestRateLimiter_BlocksOverLimit(t *testing.T) {
	r := newRateLimitedRouter(t, RateLimitRule{Limit: 2, Window: time.Minute})

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/probe", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/probe", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "RATE_001")
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestRateLimiter_SetsHeaders(t *testing.T) {
	r := newRateLimitedRouter(t, RateLimitRule{Limit: 5, Window: time.Minute})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/probe", nil))

	assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "4", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
}

func TestRateLimiter_DegradedModeAllowsOnStoreError(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := redisStore.NewRateLimitStore(client)
	r := gin.New()
	r.POST("/probe", RateLimiter(store, "probe", RateLimitRule{Limit: 1, Window: time.Minute}, zerolog.Nop()), func(c *gin.Context) {
		response.OK(c, gin.H{"ok": true})
	})

	mr.Close()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/probe", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prohmpiriya/rail-booking/pkg/logger"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeRedis struct {
	mu   sync.Mutex
	data map[string]string
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}}
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value.(string)
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) SetNX(ctx context.Context, key string, value interface{}, _ time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.data[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.data[key] = value.(string)
	return redis.NewBoolResult(true, nil)
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func TestRequestID_GeneratesNew(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, GetRequestID(c))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	headerID := w.Header().Get(RequestIDHeader)
	assert.NotEmpty(t, headerID)
	assert.Equal(t, headerID, w.Body.String())
}

func TestRequestID_UsesExisting(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, GetRequestID(c))
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(RequestIDHeader, "existing-request-id-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "existing-request-id-123", w.Body.String())
}

func TestRequestID_ReplacesMalformed(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, logger.RequestIDFromContext(c.Request.Context()))
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(RequestIDHeader, "has spaces\tand tabs")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	id := w.Header().Get(RequestIDHeader)
	assert.NotEqual(t, "has spaces\tand tabs", id)
	assert.Len(t, id, 36)
	assert.Equal(t, id, w.Body.String())
}

func setupIdempotentRouter(rdb RedisClient, calls *int) *gin.Engine {
	r := gin.New()
	r.POST("/sessions/:id/payment/confirm", Idempotency(&IdempotencyConfig{Redis: rdb}), func(c *gin.Context) {
		*calls++
		c.JSON(http.StatusOK, gin.H{"call": *calls})
	})
	return r
}

func TestIdempotency_ReplaysCompletedResponse(t *testing.T) {
	calls := 0
	r := setupIdempotentRouter(newFakeRedis(), &calls)

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/sessions/s1/payment/confirm", strings.NewReader(`{}`))
		req.Header.Set(IdempotencyKeyHeader, "key-1")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	first := send()
	second := send()

	assert.Equal(t, 1, calls)
	assert.Equal(t, http.StatusOK, second.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())
}

func TestIdempotency_KeyReusedWithDifferentRequest(t *testing.T) {
	calls := 0
	r := setupIdempotentRouter(newFakeRedis(), &calls)

	for _, body := range []string{`{"a":1}`, `{"a":2}`} {
		req := httptest.NewRequest(http.MethodPost, "/sessions/s1/payment/confirm", strings.NewReader(body))
		req.Header.Set(IdempotencyKeyHeader, "key-2")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if body == `{"a":2}` {
			assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		}
	}
	assert.Equal(t, 1, calls)
}

func TestIdempotency_InFlightRequestConflicts(t *testing.T) {
	rdb := newFakeRedis()
	hash, err := requestFingerprint(httptest.NewRequest(http.MethodPost, "/sessions/s1/payment/confirm", strings.NewReader(`{}`)))
	assert.NoError(t, err)
	rdb.data[IdempotencyKeyPrefix+"key-3"] = `{"key":"key-3","status":"processing","request_hash":"` + hash + `"}`

	calls := 0
	r := setupIdempotentRouter(rdb, &calls)

	req := httptest.NewRequest(http.MethodPost, "/sessions/s1/payment/confirm", strings.NewReader(`{}`))
	req.Header.Set(IdempotencyKeyHeader, "key-3")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, 0, calls)
}

func TestIdempotency_NoHeaderPassesThrough(t *testing.T) {
	calls := 0
	r := setupIdempotentRouter(newFakeRedis(), &calls)

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/sessions/s1/payment/confirm", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
	assert.Equal(t, 2, calls)
}

func TestIdempotency_ServerErrorReleasesKey(t *testing.T) {
	rdb := newFakeRedis()
	calls := 0
	r := gin.New()
	r.POST("/sessions/:id/payment/confirm", Idempotency(&IdempotencyConfig{Redis: rdb}), func(c *gin.Context) {
		calls++
		if calls == 1 {
			c.JSON(http.StatusInternalServerError, gin.H{"call": calls})
			return
		}
		c.JSON(http.StatusOK, gin.H{"call": calls})
	})

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/sessions/s1/payment/confirm", strings.NewReader(`{}`))
		req.Header.Set(IdempotencyKeyHeader, "key-5")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusInternalServerError, send().Code)
	assert.NotContains(t, rdb.data, IdempotencyKeyPrefix+"key-5")

	assert.Equal(t, http.StatusOK, send().Code)
	assert.Equal(t, http.StatusOK, send().Code)
	assert.Equal(t, 2, calls)
}

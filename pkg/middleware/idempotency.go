package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prohmpiriya/rail-booking/pkg/response"
	"github.com/redis/go-redis/v9"
)

const (
	// IdempotencyKeyHeader carries the client-chosen key of a settlement attempt
	IdempotencyKeyHeader = "X-Idempotency-Key"
	// DefaultIdempotencyTTL keeps completed records long enough to absorb client retries
	DefaultIdempotencyTTL = 10 * time.Minute
	// IdempotencyKeyPrefix namespaces idempotency records in Redis
	IdempotencyKeyPrefix = "rail:idempotency:"

	defaultProcessingTTL = time.Minute
)

// IdempotencyStatus is the lifecycle of a stored record
type IdempotencyStatus string

const (
	StatusProcessing IdempotencyStatus = "processing"
	StatusCompleted  IdempotencyStatus = "completed"
)

// IdempotencyRecord is what Redis holds per key
type IdempotencyRecord struct {
	Key          string            `json:"key"`
	Status       IdempotencyStatus `json:"status"`
	RequestHash  string            `json:"request_hash"`
	ResponseCode int               `json:"response_code"`
	ResponseBody string            `json:"response_body"`
	CreatedAt    time.Time         `json:"created_at"`
}

// RedisClient is the subset of Redis used for idempotency records
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// IdempotencyConfig holds configuration for idempotency middleware
type IdempotencyConfig struct {
	Redis RedisClient
	// TTL for completed records
	TTL time.Duration
	// ProcessingTTL bounds how long an in-flight marker blocks retries.
	// It must outlast the slowest settlement.
	ProcessingTTL time.Duration
}

// Idempotency replays the stored response for a repeated X-Idempotency-Key,
// so a retried settlement or OTP submission never charges twice.
// Requests without the header pass through. Redis errors fail open.
// Server errors release the key so the client may retry.
func Idempotency(config *IdempotencyConfig) gin.HandlerFunc {
	store := &idempotencyStore{
		rdb:           config.Redis,
		ttl:           config.TTL,
		processingTTL: config.ProcessingTTL,
	}
	if store.ttl <= 0 {
		store.ttl = DefaultIdempotencyTTL
	}
	if store.processingTTL <= 0 {
		store.processingTTL = defaultProcessingTTL
	}

	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyKeyHeader)
		if key == "" || store.rdb == nil {
			c.Next()
			return
		}

		hash, err := requestFingerprint(c.Request)
		if err != nil {
			response.BadRequest(c, "unreadable request body")
			c.Abort()
			return
		}
		ctx := c.Request.Context()

		existing, err := store.load(ctx, key)
		switch {
		case err != nil:
			c.Next()
			return
		case existing != nil:
			replay(c, existing, hash)
			return
		}

		record := &IdempotencyRecord{
			Key:         key,
			Status:      StatusProcessing,
			RequestHash: hash,
			CreatedAt:   time.Now(),
		}
		if !store.claim(ctx, record) {
			// lost the race to a concurrent request with the same key
			if existing, _ := store.load(ctx, key); existing != nil {
				replay(c, existing, hash)
				return
			}
		}

		rec := &recordingWriter{ResponseWriter: c.Writer, status: http.StatusOK}
		c.Writer = rec
		c.Next()

		bg := context.WithoutCancel(ctx)
		if rec.status >= http.StatusInternalServerError {
			store.release(bg, key)
			return
		}
		record.Status = StatusCompleted
		record.ResponseCode = rec.status
		record.ResponseBody = rec.body.String()
		store.complete(bg, record)
	}
}

func replay(c *gin.Context, record *IdempotencyRecord, hash string) {
	defer c.Abort()

	switch {
	case record.RequestHash != hash:
		response.Error(c, http.StatusUnprocessableEntity, "IDEMPOTENCY_KEY_REUSED",
			"Idempotency key already used with a different request")
	case record.Status == StatusProcessing:
		response.Error(c, http.StatusConflict, "REQUEST_IN_PROGRESS",
			"A request with this idempotency key is already being processed")
	default:
		c.Data(record.ResponseCode, "application/json; charset=utf-8", []byte(record.ResponseBody))
	}
}

// requestFingerprint hashes method, path and body, restoring the body for the handler
func requestFingerprint(r *http.Request) (string, error) {
	var body []byte
	if r.Body != nil {
		var err error
		if body, err = io.ReadAll(r.Body); err != nil {
			return "", err
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
	}

	h := sha256.New()
	for _, part := range [][]byte{[]byte(r.Method), []byte(r.URL.Path), body} {
		h.Write(part)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// recordingWriter tees the response so it can be stored
type recordingWriter struct {
	gin.ResponseWriter
	body   bytes.Buffer
	status int
}

func (w *recordingWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *recordingWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

type idempotencyStore struct {
	rdb           RedisClient
	ttl           time.Duration
	processingTTL time.Duration
}

func redisKey(key string) string {
	return IdempotencyKeyPrefix + key
}

// load returns nil, nil for an unknown key
func (s *idempotencyStore) load(ctx context.Context, key string) (*IdempotencyRecord, error) {
	raw, err := s.rdb.Get(ctx, redisKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var record IdempotencyRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// claim writes the in-flight marker unless the key already exists
func (s *idempotencyStore) claim(ctx context.Context, record *IdempotencyRecord) bool {
	data, err := json.Marshal(record)
	if err != nil {
		return false
	}
	ok, err := s.rdb.SetNX(ctx, redisKey(record.Key), string(data), s.processingTTL).Result()
	return err == nil && ok
}

func (s *idempotencyStore) complete(ctx context.Context, record *IdempotencyRecord) {
	data, err := json.Marshal(record)
	if err != nil {
		return
	}
	_ = s.rdb.Set(ctx, redisKey(record.Key), string(data), s.ttl).Err()
}

func (s *idempotencyStore) release(ctx context.Context, key string) {
	_ = s.rdb.Del(ctx, redisKey(key)).Err()
}

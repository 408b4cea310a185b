package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/infrastructure/cache"
	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// IdempotencyKeyHeader is the request header naming a retry-safe request
	IdempotencyKeyHeader = "Idempotency-Key"
	// IdempotentReplayHeader is set on responses replayed from the store
	IdempotentReplayHeader = "Idempotent-Replayed"

	maxIdempotencyKeyLength = 128
	defaultIdempotencyTTL   = 24 * time.Hour
)

// IdempotencyConfig configures the Idempotency middleware
type IdempotencyConfig struct {
	Store  cache.IdempotencyStore
	TTL    time.Duration
	Logger *zap.Logger
}

// captureWriter tees the response body so it can be stored
type captureWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *captureWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Idempotency replays the stored response of a mutating request whose
// Idempotency-Key was seen before. The first request runs the handler; its
// response is stored once it finishes. Server errors release the key so the
// client can retry.
func Idempotency(cfg IdempotencyConfig) gin.HandlerFunc {
	if cfg.TTL <= 0 {
		cfg.TTL = defaultIdempotencyTTL
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		default:
			c.Next()
			return
		}

		key := strings.TrimSpace(c.GetHeader(IdempotencyKeyHeader))
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxIdempotencyKeyLength {
			c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeBadRequest, "Idempotency-Key too long", GetRequestID(c)))
			return
		}

		body, err := readBody(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeBadRequest, "Failed to read request body", GetRequestID(c)))
			return
		}
		reqHash := requestHash(c.Request.Method, c.Request.URL.RequestURI(), body)

		ctx := c.Request.Context()
		existing, reserved, err := cfg.Store.Begin(ctx, key, reqHash, cfg.TTL)
		if err != nil {
			// Store outage degrades to plain request handling
			cfg.Logger.Warn("Idempotency store unavailable", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}

		if !reserved {
			switch {
			case existing.RequestHash != reqHash:
				c.AbortWithStatusJSON(http.StatusUnprocessableEntity, dto.NewErrorResponseWithRequestID(
					dto.ErrCodeIdempotencyMismatch, "Idempotency-Key reused with a different request", GetRequestID(c)))
			case !existing.Completed():
				c.AbortWithStatusJSON(http.StatusConflict, dto.NewErrorResponseWithRequestID(
					dto.ErrCodeIdempotencyInProgress, "A request with this Idempotency-Key is still in progress", GetRequestID(c)))
			default:
				contentType := existing.ContentType
				if contentType == "" {
					contentType = "application/json; charset=utf-8"
				}
				c.Header(IdempotentReplayHeader, "true")
				c.Data(existing.Status, contentType, existing.Body)
				c.Abort()
			}
			return
		}

		w := &captureWriter{ResponseWriter: c.Writer}
		c.Writer = w
		c.Next()

		status := w.Status()
		if status >= http.StatusInternalServerError {
			if err := cfg.Store.Release(ctx, key); err != nil {
				cfg.Logger.Warn("Failed to release idempotency key", zap.String("key", key), zap.Error(err))
			}
			return
		}

		record := cache.IdempotencyRecord{
			RequestHash: reqHash,
			Status:      status,
			Body:        w.body.Bytes(),
			ContentType: w.Header().Get("Content-Type"),
		}
		if err := cfg.Store.Complete(ctx, key, record, cfg.TTL); err != nil {
			cfg.Logger.Warn("Failed to store idempotent response", zap.String("key", key), zap.Error(err))
		}
	}
}

func readBody(c *gin.Context) ([]byte, error) {
	if c.Request.Body == nil {
		return nil, nil
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, err
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(body))
	return body, nil
}

func requestHash(method, path string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte{'\n'})
	h.Write([]byte(path))
	h.Write([]byte{'\n'})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

package middleware

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"samanvay/internal/domain/access"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// a claim left behind by a crashed request expires after this
	provisionalLockTTL = 60 * time.Second
	// allowed client/server clock skew for X-Request-At
	maxClockSkew = 10 * time.Minute

	HeaderRequestID = "X-Request-Id"
	HeaderRequestAt = "X-Request-At"
	// set on responses served from the store
	HeaderReplayed = "X-Idempotent-Replay"
)

// requestMeta is what the client sends to make a mutation retryable.
type requestMeta struct {
	ID string
	At time.Time
}

func readRequestMeta(h http.Header, now time.Time) (requestMeta, error) {
	id := strings.TrimSpace(h.Get(HeaderRequestID))
	if id == "" {
		return requestMeta{}, errors.New("missing " + HeaderRequestID)
	}
	if !validReqID(id) {
		return requestMeta{}, errors.New("invalid " + HeaderRequestID + " format")
	}
	at, err := parseRequestAt(h.Get(HeaderRequestAt))
	if err != nil {
		return requestMeta{}, err
	}
	if at.Before(now.Add(-maxClockSkew)) || at.After(now.Add(maxClockSkew)) {
		return requestMeta{}, errors.New(HeaderRequestAt + " too skewed")
	}
	return requestMeta{ID: id, At: at}, nil
}

// captureWriter tees the response body so it can be stored for replays.
type captureWriter struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *captureWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// IdempotencyMiddleware makes POST/PUT/PATCH/DELETE safe to retry.
// key = method + route + actor + request id, so it must run after Auth and a
// stored response is only ever replayed to the caller that produced it.
// Responses below 500 are stored for ttl; a 5xx releases the key so the same
// request id can be retried.
func IdempotencyMiddleware(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) echo.MiddlewareFunc {
	store := &idempStore{rdb: rdb, ttl: ttl}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			switch req.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				return next(c)
			}

			meta, err := readRequestMeta(req.Header, nowUTC())
			if err != nil {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
			}
			caller, ok := access.FromContext(req.Context())
			if !ok || caller.Subject == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthenticated"})
			}

			var body []byte
			if req.Body != nil {
				body, _ = io.ReadAll(req.Body)
			}
			req.Body = io.NopCloser(bytes.NewReader(body))
			bhash := bodyHash(body)

			key := buildKey(req.Method, c.Path(), caller.Subject, meta.ID)
			ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
			defer cancel()

			claimed, err := store.claim(ctx, key, idempEntry{
				InProgress:  true,
				BodySHA256:  bhash,
				RequestID:   meta.ID,
				RequestAtMS: meta.At.UnixMilli(),
				CreatedAt:   nowUTC(),
			})
			if err != nil {
				logger.Warn("idempotency claim failed", zap.String("key", key), zap.Error(err))
				return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "idempotency store unavailable"})
			}
			if !claimed {
				prev, err := store.load(ctx, key)
				if err != nil && !errors.Is(err, redis.Nil) {
					logger.Warn("idempotency load failed", zap.String("key", key), zap.Error(err))
				}
				switch {
				case prev.BodySHA256 != "" && prev.BodySHA256 != bhash:
					return c.JSON(http.StatusConflict, map[string]string{"error": HeaderRequestID + " reused with different body"})
				case !prev.InProgress && prev.Code != 0 && len(prev.Body) > 0:
					c.Response().Header().Set(HeaderReplayed, "true")
					return c.Blob(prev.Code, echo.MIMEApplicationJSON, prev.Body)
				}
				return c.JSON(http.StatusConflict, map[string]string{"error": "request is already in progress"})
			}

			w := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK}
			c.Response().Writer = w
			if err := next(c); err != nil {
				c.Error(err)
			}

			// the request context may be gone by now
			saveCtx, saveCancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer saveCancel()
			if w.status >= http.StatusInternalServerError {
				if err := store.release(saveCtx, key); err != nil {
					logger.Warn("idempotency release failed", zap.String("key", key), zap.Error(err))
				}
				return nil
			}
			err = store.finish(saveCtx, key, idempEntry{
				Code:        w.status,
				Body:        w.body.Bytes(),
				BodySHA256:  bhash,
				RequestID:   meta.ID,
				RequestAtMS: meta.At.UnixMilli(),
				CreatedAt:   nowUTC(),
			})
			if err != nil {
				logger.Warn("idempotency save failed", zap.String("key", key), zap.Error(err))
			}
			return nil
		}
	}
}

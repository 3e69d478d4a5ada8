package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/fieldops/fieldops/internal/dto"
)

const (
	idempotencyKeyHeader    = "Idempotency-Key"
	idempotencyReplayHeader = "Idempotent-Replayed"
	idempotencyPrefix       = "idempotency:v2:"
	inProgressMarker        = "__in_progress__"
	maxIdempotencyKeyLen    = 128
	idempotencyStoreTimeout = 2 * time.Second
)

type storedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// Idempotency replays the stored response of a mutation whose
// Idempotency-Key was already seen from the same caller. Requests without
// the header pass through. Only completed responses below 500 are stored;
// a rejected or failed request releases its key so the client can retry.
//
// The caller is identified by the session token (cookie or bearer), so two
// users sending the same key never share a response.
func Idempotency(cache *redis.Client, ttl time.Duration, sessionCookie string, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		switch c.Method() {
		case fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions:
			return c.Next()
		}

		key := strings.TrimSpace(c.Get(idempotencyKeyHeader))
		if key == "" {
			return c.Next()
		}
		if len(key) > maxIdempotencyKeyLen {
			return NewError(fiber.StatusBadRequest, dto.CodeValidation, "Idempotency-Key is too long")
		}
		cacheKey := idempotencyPrefix + callerScope(c, sessionCookie) + ":" + c.Method() + ":" + c.Path() + ":" + key
		log := logger.With(slog.String("idempotency_key", key), slog.String("request_id", RequestIDFrom(c)))

		ctx, cancel := context.WithTimeout(c.UserContext(), idempotencyStoreTimeout)
		reserved, err := cache.SetNX(ctx, cacheKey, inProgressMarker, ttl).Result()
		cancel()
		if err != nil {
			log.Error("idempotency reservation failed", slog.Any("error", err))
			return fiber.NewError(fiber.StatusInternalServerError, "idempotency store failure")
		}
		if !reserved {
			return replay(c, cache, cacheKey, log)
		}

		err = c.Next()
		if err != nil || c.Response().StatusCode() >= fiber.StatusInternalServerError {
			release(cache, cacheKey, log)
			return err
		}

		payload, merr := json.Marshal(storedResponse{
			Status:      c.Response().StatusCode(),
			ContentType: string(c.Response().Header.ContentType()),
			Body:        append([]byte(nil), c.Response().Body()...),
		})
		if merr != nil {
			log.Error("idempotent response encoding failed", slog.Any("error", merr))
			release(cache, cacheKey, log)
			return nil
		}
		persistCtx, persistCancel := context.WithTimeout(context.Background(), idempotencyStoreTimeout)
		defer persistCancel()
		if err := cache.Set(persistCtx, cacheKey, payload, ttl).Err(); err != nil {
			// The mutation already happened; the client gets its response and
			// a retry would run it again.
			log.Error("idempotent response persistence failed", slog.Any("error", err))
			release(cache, cacheKey, log)
		}
		return nil
	}
}

func replay(c *fiber.Ctx, cache *redis.Client, cacheKey string, log *slog.Logger) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), idempotencyStoreTimeout)
	defer cancel()

	raw, err := cache.Get(ctx, cacheKey).Bytes()
	if errors.Is(err, redis.Nil) || (err == nil && string(raw) == inProgressMarker) {
		return NewError(fiber.StatusConflict, dto.CodeConflict, "duplicate request currently processing")
	}
	if err != nil {
		log.Error("idempotency lookup failed", slog.Any("error", err))
		return fiber.NewError(fiber.StatusInternalServerError, "idempotency store failure")
	}

	var stored storedResponse
	if err := json.Unmarshal(raw, &stored); err != nil {
		log.Warn("stored idempotent response is unreadable", slog.Any("error", err))
		return NewError(fiber.StatusConflict, dto.CodeConflict, "duplicate request")
	}
	if stored.ContentType != "" {
		c.Set(fiber.HeaderContentType, stored.ContentType)
	}
	c.Set(idempotencyReplayHeader, "true")
	return c.Status(stored.Status).Send(stored.Body)
}

func release(cache *redis.Client, cacheKey string, log *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), idempotencyStoreTimeout)
	defer cancel()
	if err := cache.Del(ctx, cacheKey).Err(); err != nil {
		log.Warn("idempotency release failed", slog.Any("error", err))
	}
}

// callerScope names the caller by a digest of its session token.
func callerScope(c *fiber.Ctx, sessionCookie string) string {
	token := c.Cookies(sessionCookie)
	if token == "" {
		token = bearerToken(c)
	}
	if token == "" {
		return "anon"
	}
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:8])
}

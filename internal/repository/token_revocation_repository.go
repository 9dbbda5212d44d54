package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/training-api/pkg/errors"
)

const (
	revokedTokenPrefix = "training:revoked:jti:"
	revokedUserPrefix  = "training:revoked:user:"
)

// RedisRevocationRepository remembers logged-out token ids and per-user
// cutoffs in Redis until the tokens would have expired anyway.
type RedisRevocationRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisRevocationRepository constructs a Redis-backed revocation store.
func NewRedisRevocationRepository(client *redis.Client, logger *zap.Logger) *RedisRevocationRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisRevocationRepository{client: client, logger: logger}
}

// RevokeToken marks the token id as revoked for ttl.
func (r *RedisRevocationRepository) RevokeToken(ctx context.Context, jti string, ttl time.Duration) error {
	if r.client == nil || ttl <= 0 || jti == "" {
		return nil
	}
	if err := r.client.Set(ctx, revokedTokenPrefix+jti, "1", ttl).Err(); err != nil {
		return fmt.Errorf("redis revoke token %s: %w", jti, err)
	}
	return nil
}

// IsTokenRevoked reports whether the token id was revoked.
func (r *RedisRevocationRepository) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	if r.client == nil || jti == "" {
		return false, nil
	}
	n, err := r.client.Exists(ctx, revokedTokenPrefix+jti).Result()
	if err != nil {
		return false, fmt.Errorf("redis check token %s: %w", jti, err)
	}
	return n > 0, nil
}

// RevokeUser rejects every token of the user issued before cutoff. The cutoff
// is stored in Unix milliseconds. Older cutoffs never replace newer ones.
func (r *RedisRevocationRepository) RevokeUser(ctx context.Context, userID string, cutoff time.Time, ttl time.Duration) error {
	if r.client == nil || ttl <= 0 {
		return nil
	}
	current, err := r.RevokedBefore(ctx, userID)
	if err != nil && !errors.Is(err, appErrors.ErrCacheMiss) {
		return err
	}
	if err == nil && !cutoff.After(current) {
		return nil
	}
	key := revokedUserPrefix + userID
	if err := r.client.Set(ctx, key, strconv.FormatInt(cutoff.UnixMilli(), 10), ttl).Err(); err != nil {
		return fmt.Errorf("redis revoke user %s: %w", userID, err)
	}
	return nil
}

// RevokedBefore returns the user's cutoff or ErrCacheMiss when none is set.
func (r *RedisRevocationRepository) RevokedBefore(ctx context.Context, userID string) (time.Time, error) {
	if r.client == nil {
		return time.Time{}, appErrors.ErrCacheMiss
	}
	raw, err := r.client.Get(ctx, revokedUserPrefix+userID).Result()
	if err != nil {
		if err == redis.Nil {
			return time.Time{}, appErrors.ErrCacheMiss
		}
		return time.Time{}, fmt.Errorf("redis get user cutoff %s: %w", userID, err)
	}
	millis, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		r.logger.Warn("discarding malformed revocation cutoff", zap.String("user_id", userID), zap.String("value", raw))
		return time.Time{}, appErrors.ErrCacheMiss
	}
	return time.UnixMilli(millis).UTC(), nil
}

// MemoryRevocationRepository keeps revocations in-process for single-instance
// deployments and tests.
type MemoryRevocationRepository struct {
	mu      sync.Mutex
	tokens  map[string]time.Time
	cutoffs map[string]memoryCutoff
	now     func() time.Time
}

type memoryCutoff struct {
	at      time.Time
	expires time.Time
}

// NewMemoryRevocationRepository builds an empty in-memory store.
func NewMemoryRevocationRepository() *MemoryRevocationRepository {
	return &MemoryRevocationRepository{
		tokens:  make(map[string]time.Time),
		cutoffs: make(map[string]memoryCutoff),
		now:     time.Now,
	}
}

// RevokeToken marks the token id as revoked for ttl.
func (r *MemoryRevocationRepository) RevokeToken(_ context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 || jti == "" {
		return nil
	}
	r.mu.Lock()
	r.tokens[jti] = r.now().Add(ttl)
	r.mu.Unlock()
	return nil
}

// IsTokenRevoked reports whether the token id was revoked.
func (r *MemoryRevocationRepository) IsTokenRevoked(_ context.Context, jti string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	expiry, ok := r.tokens[jti]
	if !ok {
		return false, nil
	}
	if r.now().After(expiry) {
		delete(r.tokens, jti)
		return false, nil
	}
	return true, nil
}

// RevokeUser rejects every token of the user issued before cutoff.
func (r *MemoryRevocationRepository) RevokeUser(_ context.Context, userID string, cutoff time.Time, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	cutoff = cutoff.Truncate(time.Millisecond).UTC()
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.cutoffs[userID]; ok && r.now().Before(existing.expires) && !cutoff.After(existing.at) {
		return nil
	}
	r.cutoffs[userID] = memoryCutoff{at: cutoff, expires: r.now().Add(ttl)}
	return nil
}

// RevokedBefore returns the user's cutoff or ErrCacheMiss when none is set.
func (r *MemoryRevocationRepository) RevokedBefore(_ context.Context, userID string) (time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.cutoffs[userID]
	if !ok {
		return time.Time{}, appErrors.ErrCacheMiss
	}
	if r.now().After(entry.expires) {
		delete(r.cutoffs, userID)
		return time.Time{}, appErrors.ErrCacheMiss
	}
	return entry.at, nil
}

// Package storageref turns opaque document storage keys into expiring,
// HMAC-signed download URLs. The object store itself is outside this core;
// the resolver only mints references to it.
package storageref

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	redisplatform "leaselab/internal/platform/redis"
	"leaselab/pkg/apperrors"
	"leaselab/pkg/requestcontext"
)

// Resolver mints signed URLs for storage keys. When a redis client is
// attached, minted URLs are cached with a TTL kept under the URL expiry so a
// cached URL is never handed out already stale.
type Resolver struct {
	baseURL string
	secret  []byte
	ttl     time.Duration
	cache   *redisplatform.Client
	logger  *slog.Logger
}

// Option configures optional collaborators.
type Option func(*Resolver)

// WithCache attaches a redis-backed URL cache. A nil client disables caching.
func WithCache(cache *redisplatform.Client) Option {
	return func(r *Resolver) { r.cache = cache }
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) { r.logger = logger }
}

// New constructs a resolver. baseURL is the document download endpoint,
// secret signs the URLs and ttl bounds their validity.
func New(baseURL, secret string, ttl time.Duration, opts ...Option) *Resolver {
	r := &Resolver{baseURL: baseURL, secret: []byte(secret), ttl: ttl}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SignedURL returns an expiring download URL for the storage key.
func (r *Resolver) SignedURL(ctx context.Context, storageKey string) (string, error) {
	if storageKey == "" {
		return "", apperrors.New(apperrors.CodeValidation, "storage key is required")
	}

	if cached, ok := r.fromCache(ctx, storageKey); ok {
		return cached, nil
	}

	expires := requestcontext.Now(ctx).Add(r.ttl).Unix()
	signed := r.sign(storageKey, expires)

	r.toCache(ctx, storageKey, signed)
	return signed, nil
}

func (r *Resolver) sign(storageKey string, expires int64) string {
	mac := hmac.New(sha256.New, r.secret)
	fmt.Fprintf(mac, "%s:%d", storageKey, expires)
	signature := hex.EncodeToString(mac.Sum(nil))

	values := url.Values{}
	values.Set("key", storageKey)
	values.Set("expires", strconv.FormatInt(expires, 10))
	values.Set("signature", signature)
	return r.baseURL + "?" + values.Encode()
}

// Verify checks a signature produced by SignedURL and that it has not
// expired at the given instant.
func (r *Resolver) Verify(storageKey string, expires int64, signature string, now time.Time) bool {
	if now.Unix() > expires {
		return false
	}
	mac := hmac.New(sha256.New, r.secret)
	fmt.Fprintf(mac, "%s:%d", storageKey, expires)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// Cache failures degrade to re-signing, so they are logged and swallowed.
func (r *Resolver) fromCache(ctx context.Context, storageKey string) (string, bool) {
	if r.cache == nil {
		return "", false
	}
	cached, err := r.cache.Get(ctx, cacheKey(storageKey)).Result()
	if err != nil {
		return "", false
	}
	return cached, true
}

func (r *Resolver) toCache(ctx context.Context, storageKey, signed string) {
	if r.cache == nil {
		return
	}
	// Cache for 90% of the URL lifetime so entries expire before the URLs
	// they hold do.
	cacheTTL := r.ttl * 9 / 10
	if err := r.cache.Set(ctx, cacheKey(storageKey), signed, cacheTTL).Err(); err != nil && r.logger != nil {
		r.logger.WarnContext(ctx, "signed URL cache write failed",
			"storage_key", storageKey, "error", err)
	}
}

func cacheKey(storageKey string) string {
	return "leaselab:signed-url:" + storageKey
}

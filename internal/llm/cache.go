package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"go.uber.org/zap"
)

// Cache stores completions keyed by a prompt digest.
type Cache interface {
	GetCompletion(ctx context.Context, key string) (string, bool, error)
	PutCompletion(ctx context.Context, key, response string) error
}

// CacheKey derives the cache key for a prompt sent to a given provider/model.
func CacheKey(namespace, prompt string) string {
	h := sha256.New()
	h.Write([]byte(namespace))
	h.Write([]byte{0})
	h.Write([]byte(prompt))
	return hex.EncodeToString(h.Sum(nil))
}

type cachedBackend struct {
	next      Backend
	cache     Cache
	namespace string
	logger    *zap.Logger
}

// NewCachedBackend answers repeated prompts from cache. Cache failures are
// logged and fall through to the wrapped backend; failed completions are
// never cached.
func NewCachedBackend(b Backend, cache Cache, namespace string, logger *zap.Logger) Backend {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &cachedBackend{next: b, cache: cache, namespace: namespace, logger: logger}
}

func (c *cachedBackend) Complete(ctx context.Context, prompt string) (string, error) {
	key := CacheKey(c.namespace, prompt)

	if hit, ok, err := c.cache.GetCompletion(ctx, key); err != nil {
		c.logger.Warn("completion cache read failed", zap.Error(err))
	} else if ok {
		c.logger.Debug("completion cache hit", zap.String("key", key[:12]))
		return hit, nil
	}

	out, err := c.next.Complete(ctx, prompt)
	if err != nil {
		return "", err
	}
	if err := c.cache.PutCompletion(ctx, key, out); err != nil {
		c.logger.Warn("completion cache write failed", zap.Error(err))
	}
	return out, nil
}

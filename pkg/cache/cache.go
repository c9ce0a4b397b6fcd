// Package cache holds the read-through cache for book data. Redis backs it in
// production; an in-process store is used when no Redis address is
// configured.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/booklook/booklook/pkg/config"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
)

const keyPrefix = "booklook:"

// Cache stores JSON-encoded values under string keys.
type Cache interface {
	// Get decodes the value stored under key into dest. It reports false
	// when the key is missing or expired.
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	// DeletePrefix removes every key that starts with prefix.
	DeletePrefix(ctx context.Context, prefix string) error
	Close() error
}

// New returns the cache selected by cfg. Errors from the returned cache are
// logged and swallowed so callers can treat it as best-effort.
func New(ctx context.Context, cfg *config.Config) (Cache, error) {
	if cfg.RedisAddr == "" {
		return Logged(NewMemory()), nil
	}

	r, err := NewRedis(ctx, cfg)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return Logged(r), nil
}

// BookKey is where a book's detail is cached.
func BookKey(bookID int) string {
	return fmt.Sprintf("%sbook:%d", keyPrefix, bookID)
}

// PageKey is where a single page of one version of a book's content is
// cached. A page cached after its content was replaced lands under the old
// version and is never read again.
func PageKey(bookID, contentVersion, pageNumber int) string {
	return fmt.Sprintf("%s:v%d:page:%d", BookKey(bookID), contentVersion, pageNumber)
}

// BookPrefix matches every derived key of a book, but not BookKey itself.
func BookPrefix(bookID int) string {
	return BookKey(bookID) + ":"
}

// InvalidateBook drops a book's detail and all of its derived keys.
func InvalidateBook(ctx context.Context, c Cache, bookID int) error {
	if err := c.Delete(ctx, BookKey(bookID)); err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(c.DeletePrefix(ctx, BookPrefix(bookID)))
}

type loggedCache struct {
	Cache
}

// Logged wraps c so that failures are logged and reported as misses.
func Logged(c Cache) Cache {
	return &loggedCache{c}
}

func (l *loggedCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	ok, err := l.Cache.Get(ctx, key, dest)
	if err != nil {
		logger.FromContext(ctx).Warn("cache get failed", logger.Data{"key": key, "error": err.Error()})
		return false, nil
	}
	return ok, nil
}

func (l *loggedCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if err := l.Cache.Set(ctx, key, value, ttl); err != nil {
		logger.FromContext(ctx).Warn("cache set failed", logger.Data{"key": key, "error": err.Error()})
	}
	return nil
}

func (l *loggedCache) Delete(ctx context.Context, keys ...string) error {
	if err := l.Cache.Delete(ctx, keys...); err != nil {
		logger.FromContext(ctx).Warn("cache delete failed", logger.Data{"keys": keys, "error": err.Error()})
	}
	return nil
}

func (l *loggedCache) DeletePrefix(ctx context.Context, prefix string) error {
	if err := l.Cache.DeletePrefix(ctx, prefix); err != nil {
		logger.FromContext(ctx).Warn("cache prefix delete failed", logger.Data{"prefix": prefix, "error": err.Error()})
	}
	return nil
}

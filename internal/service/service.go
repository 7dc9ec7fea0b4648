package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bryan-kier/productivity/internal/cache"
	"github.com/bryan-kier/productivity/internal/repo"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// mapRepoErr translates accessor errors into service errors.
func mapRepoErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repo.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repo.ErrInvalidReference):
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return err
}

func requireText(field, v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", invalid("%s is required", field)
	}
	return v, nil
}

// lists wraps the optional Redis list cache. A nil cache disables caching.
type lists struct {
	cache *cache.ListCache
	sf    singleflight.Group
	log   *zap.Logger
}

func newLists(c *cache.ListCache, log *zap.Logger) *lists {
	if log == nil {
		log = zap.NewNop()
	}
	return &lists{cache: c, log: log}
}

func cachedList[T any](ctx context.Context, l *lists, owner, kind string, load func() ([]T, error)) ([]T, error) {
	if l.cache == nil {
		return load()
	}
	v, err, _ := l.sf.Do(kind+":"+owner, func() (interface{}, error) {
		var list []T
		if ok, err := l.cache.Get(ctx, owner, kind, &list); err == nil && ok {
			return list, nil
		} else if err != nil {
			l.log.Warn("list cache read failed", zap.String("owner", owner), zap.String("kind", kind), zap.Error(err))
		}
		list, err := load()
		if err != nil {
			return nil, err
		}
		if err := l.cache.Set(ctx, owner, kind, list); err != nil {
			l.log.Warn("list cache write failed", zap.String("owner", owner), zap.String("kind", kind), zap.Error(err))
		}
		return list, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]T), nil
}

func (l *lists) invalidate(ctx context.Context, owner string, kinds ...string) {
	if l.cache == nil {
		return
	}
	if err := l.cache.Invalidate(ctx, owner, kinds...); err != nil {
		l.log.Warn("list cache invalidation failed", zap.String("owner", owner), zap.Error(err))
	}
}

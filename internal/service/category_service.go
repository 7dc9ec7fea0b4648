package service

import (
	"context"

	"github.com/bryan-kier/productivity/internal/cache"
	dom "github.com/bryan-kier/productivity/internal/domain"
	"github.com/bryan-kier/productivity/internal/repo"

	"go.uber.org/zap"
)

type CategoryService struct {
	store repo.Store
	lists *lists
}

// NewCategoryService creates a CategoryService. If c is nil, caching is disabled.
func NewCategoryService(s repo.Store, c *cache.ListCache, log *zap.Logger) *CategoryService {
	return &CategoryService{store: s, lists: newLists(c, log)}
}

func (s *CategoryService) List(ctx context.Context, owner string) ([]dom.Category, error) {
	return cachedList(ctx, s.lists, owner, cache.KindCategories, func() ([]dom.Category, error) {
		return s.store.ForOwner(owner).ListCategories(ctx)
	})
}

func (s *CategoryService) Create(ctx context.Context, owner, name string) (dom.Category, error) {
	name, err := requireText("name", name)
	if err != nil {
		return dom.Category{}, err
	}
	c, err := s.store.ForOwner(owner).CreateCategory(ctx, name)
	if err != nil {
		return dom.Category{}, mapRepoErr(err)
	}
	s.lists.invalidate(ctx, owner, cache.KindCategories)
	return c, nil
}

func (s *CategoryService) Rename(ctx context.Context, owner, id, name string) (dom.Category, error) {
	name, err := requireText("name", name)
	if err != nil {
		return dom.Category{}, err
	}
	c, err := s.store.ForOwner(owner).UpdateCategory(ctx, id, name)
	if err != nil {
		return dom.Category{}, mapRepoErr(err)
	}
	s.lists.invalidate(ctx, owner, cache.KindCategories, cache.KindTasks, cache.KindNotes)
	return c, nil
}

// Delete detaches the category from tasks and notes; it never deletes them.
func (s *CategoryService) Delete(ctx context.Context, owner, id string) error {
	if err := s.store.ForOwner(owner).DeleteCategory(ctx, id); err != nil {
		return err
	}
	s.lists.invalidate(ctx, owner, cache.KindCategories, cache.KindTasks, cache.KindNotes)
	return nil
}

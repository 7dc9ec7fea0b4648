package service

import (
	"context"
	"strings"

	"github.com/bryan-kier/productivity/internal/cache"
	dom "github.com/bryan-kier/productivity/internal/domain"
	"github.com/bryan-kier/productivity/internal/repo"

	"go.uber.org/zap"
)

// TaskService covers tasks and their subtasks.
type TaskService struct {
	store repo.Store
	lists *lists
}

// NewTaskService creates a TaskService. If c is nil, caching is disabled.
func NewTaskService(s repo.Store, c *cache.ListCache, log *zap.Logger) *TaskService {
	return &TaskService{store: s, lists: newLists(c, log)}
}

func (s *TaskService) List(ctx context.Context, owner string) ([]dom.Task, error) {
	return cachedList(ctx, s.lists, owner, cache.KindTasks, func() ([]dom.Task, error) {
		return s.store.ForOwner(owner).ListTasks(ctx)
	})
}

func (s *TaskService) Get(ctx context.Context, owner, id string) (dom.Task, error) {
	t, err := s.store.ForOwner(owner).GetTask(ctx, id)
	return t, mapRepoErr(err)
}

func (s *TaskService) Create(ctx context.Context, owner string, in repo.NewTask) (dom.Task, error) {
	title, err := requireText("title", in.Title)
	if err != nil {
		return dom.Task{}, err
	}
	in.Title = title
	if in.RefreshType == "" {
		in.RefreshType = dom.RefreshNone
	}
	if !in.RefreshType.Valid() {
		return dom.Task{}, invalid("refreshType must be one of none, daily, weekly")
	}
	in.CategoryID = blankToNil(in.CategoryID)
	t, err := s.store.ForOwner(owner).CreateTask(ctx, in)
	if err != nil {
		return dom.Task{}, mapRepoErr(err)
	}
	s.lists.invalidate(ctx, owner, cache.KindTasks)
	return t, nil
}

// Update applies a partial update. Completing a task stamps completedAt,
// un-completing clears it.
func (s *TaskService) Update(ctx context.Context, owner, id string, p repo.TaskPatch) (dom.Task, error) {
	if p.Title != nil {
		title, err := requireText("title", *p.Title)
		if err != nil {
			return dom.Task{}, err
		}
		p.Title = &title
	}
	if p.RefreshType != nil && !p.RefreshType.Valid() {
		return dom.Task{}, invalid("refreshType must be one of none, daily, weekly")
	}
	if p.CategoryID.Set {
		p.CategoryID.Value = blankToNil(p.CategoryID.Value)
	}
	t, err := s.store.ForOwner(owner).UpdateTask(ctx, id, p)
	if err != nil {
		return dom.Task{}, mapRepoErr(err)
	}
	s.lists.invalidate(ctx, owner, cache.KindTasks)
	return t, nil
}

// Delete is idempotent.
func (s *TaskService) Delete(ctx context.Context, owner, id string) error {
	if err := s.store.ForOwner(owner).DeleteTask(ctx, id); err != nil {
		return err
	}
	s.lists.invalidate(ctx, owner, cache.KindTasks)
	return nil
}

func (s *TaskService) Reorder(ctx context.Context, owner string, ids []string) error {
	if err := s.store.ForOwner(owner).ReorderTasks(ctx, ids); err != nil {
		return err
	}
	s.lists.invalidate(ctx, owner, cache.KindTasks)
	return nil
}

func (s *TaskService) ListSubtasks(ctx context.Context, owner, taskID string) ([]dom.Subtask, error) {
	return s.store.ForOwner(owner).ListSubtasks(ctx, taskID)
}

func (s *TaskService) CreateSubtask(ctx context.Context, owner string, in repo.NewSubtask) (dom.Subtask, error) {
	title, err := requireText("title", in.Title)
	if err != nil {
		return dom.Subtask{}, err
	}
	if strings.TrimSpace(in.TaskID) == "" {
		return dom.Subtask{}, invalid("taskId is required")
	}
	in.Title = title
	st, err := s.store.ForOwner(owner).CreateSubtask(ctx, in)
	if err != nil {
		return dom.Subtask{}, mapRepoErr(err)
	}
	s.lists.invalidate(ctx, owner, cache.KindTasks)
	return st, nil
}

func (s *TaskService) UpdateSubtask(ctx context.Context, owner, id string, p repo.SubtaskPatch) (dom.Subtask, error) {
	if p.Title != nil {
		title, err := requireText("title", *p.Title)
		if err != nil {
			return dom.Subtask{}, err
		}
		p.Title = &title
	}
	st, err := s.store.ForOwner(owner).UpdateSubtask(ctx, id, p)
	if err != nil {
		return dom.Subtask{}, mapRepoErr(err)
	}
	s.lists.invalidate(ctx, owner, cache.KindTasks)
	return st, nil
}

func (s *TaskService) DeleteSubtask(ctx context.Context, owner, id string) error {
	if err := s.store.ForOwner(owner).DeleteSubtask(ctx, id); err != nil {
		return err
	}
	s.lists.invalidate(ctx, owner, cache.KindTasks)
	return nil
}

func blankToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}

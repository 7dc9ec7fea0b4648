package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bryan-kier/productivity/internal/cache"
	dom "github.com/bryan-kier/productivity/internal/domain"
	"github.com/bryan-kier/productivity/internal/repo"

	"go.uber.org/zap"
)

// DefaultRetention is how long completed tasks and subtasks are kept.
const DefaultRetention = 7 * 24 * time.Hour

// Report summarises one maintenance run across owners.
type Report struct {
	Owners   int   `json:"owners"`
	Failed   int   `json:"failed"`
	Tasks    int64 `json:"tasksReset"`
	Subtasks int64 `json:"subtasksReset"`
	Purged   int64 `json:"purged"`
}

// MaintenanceService runs the recurring resets and the purge of old
// completed rows, for one owner or for every owner.
type MaintenanceService struct {
	store     repo.Store
	lists     *lists
	log       *zap.Logger
	retention time.Duration
	now       func() time.Time
}

// NewMaintenanceService creates a MaintenanceService; retention <= 0 means DefaultRetention.
func NewMaintenanceService(s repo.Store, c *cache.ListCache, log *zap.Logger, retention time.Duration) *MaintenanceService {
	if log == nil {
		log = zap.NewNop()
	}
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &MaintenanceService{store: s, lists: newLists(c, log), log: log, retention: retention, now: time.Now}
}

// WithClock replaces the time source; used by tests.
func (s *MaintenanceService) WithClock(now func() time.Time) *MaintenanceService {
	s.now = now
	return s
}

func (s *MaintenanceService) ResetDaily(ctx context.Context, owner string) (repo.ResetResult, error) {
	return s.reset(ctx, owner, dom.RefreshDaily)
}

func (s *MaintenanceService) ResetWeekly(ctx context.Context, owner string) (repo.ResetResult, error) {
	return s.reset(ctx, owner, dom.RefreshWeekly)
}

func (s *MaintenanceService) reset(ctx context.Context, owner string, rt dom.RefreshType) (repo.ResetResult, error) {
	res, err := s.store.ForOwner(owner).ResetTasks(ctx, rt, s.now().UTC())
	if err != nil {
		return repo.ResetResult{}, err
	}
	s.lists.invalidate(ctx, owner, cache.KindTasks)
	return res, nil
}

// PurgeCompleted hard-deletes the owner's tasks and subtasks completed
// before now minus the retention window. Both statements are attempted.
func (s *MaintenanceService) PurgeCompleted(ctx context.Context, owner string) (int64, error) {
	cutoff := s.now().UTC().Add(-s.retention)
	acc := s.store.ForOwner(owner)
	tasks, taskErr := acc.DeleteCompletedTasksBefore(ctx, cutoff)
	subtasks, subErr := acc.DeleteCompletedSubtasksBefore(ctx, cutoff)
	if tasks+subtasks > 0 {
		s.lists.invalidate(ctx, owner, cache.KindTasks)
	}
	if taskErr != nil {
		return tasks + subtasks, taskErr
	}
	return tasks + subtasks, subErr
}

// RunDaily resets daily tasks for every owner that has one at call time.
// A failing owner is logged and skipped.
func (s *MaintenanceService) RunDaily(ctx context.Context) (Report, error) {
	return s.resetAll(ctx, dom.RefreshDaily)
}

// RunWeekly resets weekly tasks, then purges old completed rows for every owner.
func (s *MaintenanceService) RunWeekly(ctx context.Context) (Report, error) {
	rep, err := s.resetAll(ctx, dom.RefreshWeekly)
	if err != nil {
		return rep, err
	}
	owners, err := s.store.Owners(ctx)
	if err != nil {
		return rep, fmt.Errorf("enumerate owners: %w", err)
	}
	for _, owner := range owners {
		n, err := s.PurgeCompleted(ctx, owner)
		rep.Purged += n
		if err != nil {
			rep.Failed++
			s.log.Error("purge completed failed", zap.String("owner", owner), zap.Error(err))
		}
	}
	s.log.Info("weekly maintenance done",
		zap.Int("owners", rep.Owners), zap.Int("failed", rep.Failed), zap.Int64("purged", rep.Purged))
	return rep, nil
}

func (s *MaintenanceService) resetAll(ctx context.Context, rt dom.RefreshType) (Report, error) {
	var rep Report
	owners, err := s.store.OwnersWithRefresh(ctx, rt)
	if err != nil {
		return rep, fmt.Errorf("enumerate %s owners: %w", rt, err)
	}
	rep.Owners = len(owners)
	for _, owner := range owners {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		res, err := s.reset(ctx, owner, rt)
		if err != nil {
			rep.Failed++
			s.log.Error("reset failed", zap.String("refresh", string(rt)), zap.String("owner", owner), zap.Error(err))
			continue
		}
		rep.Tasks += res.Tasks
		rep.Subtasks += res.Subtasks
	}
	s.log.Info("reset done", zap.String("refresh", string(rt)),
		zap.Int("owners", rep.Owners), zap.Int("failed", rep.Failed), zap.Int64("tasks", rep.Tasks))
	return rep, nil
}

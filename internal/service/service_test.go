package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bryan-kier/productivity/internal/cache"
	dom "github.com/bryan-kier/productivity/internal/domain"
	"github.com/bryan-kier/productivity/internal/repo"
	"github.com/bryan-kier/productivity/internal/repo/repotest"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store *repotest.MemStore
	tasks *TaskService
	notes *NoteService
	cats  *CategoryService
	maint *MaintenanceService
	now   time.Time
}

func newFixture(t *testing.T, lists *cache.ListCache) *fixture {
	t.Helper()
	f := &fixture{store: repotest.NewMemStore(), now: time.Date(2026, 10, 18, 7, 0, 0, 0, time.UTC)}
	f.store.Now = func() time.Time { return f.now }
	f.tasks = NewTaskService(f.store, lists, nil)
	f.notes = NewNoteService(f.store, lists, nil)
	f.cats = NewCategoryService(f.store, lists, nil)
	f.maint = NewMaintenanceService(f.store, lists, nil, 0).WithClock(func() time.Time { return f.now })
	return f
}

func ptr[T any](v T) *T { return &v }

func TestCreateTaskDefaultsAndOrder(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	first, err := f.tasks.Create(ctx, "alice", repo.NewTask{Title: "  Buy milk  "})
	require.NoError(t, err)
	assert.Equal(t, "Buy milk", first.Title)
	assert.Equal(t, dom.RefreshNone, first.RefreshType)
	assert.Equal(t, 0, first.Order)
	assert.False(t, first.Completed)

	second, err := f.tasks.Create(ctx, "alice", repo.NewTask{Title: "Walk dog"})
	require.NoError(t, err)
	assert.Equal(t, 1, second.Order)

	other, err := f.tasks.Create(ctx, "bob", repo.NewTask{Title: "Bob's first"})
	require.NoError(t, err)
	assert.Equal(t, 0, other.Order)
}

func TestCreateTaskValidation(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.tasks.Create(ctx, "alice", repo.NewTask{Title: " "})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.tasks.Create(ctx, "alice", repo.NewTask{Title: "x", RefreshType: "hourly"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.tasks.Create(ctx, "alice", repo.NewTask{Title: "x", CategoryID: ptr("missing")})
	assert.ErrorIs(t, err, ErrValidation)

	task, err := f.tasks.Create(ctx, "alice", repo.NewTask{Title: "x", CategoryID: ptr("  ")})
	require.NoError(t, err)
	assert.Nil(t, task.CategoryID)
}

func TestCompletionStamps(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	task, err := f.tasks.Create(ctx, "alice", repo.NewTask{Title: "Buy milk"})
	require.NoError(t, err)

	done, err := f.tasks.Update(ctx, "alice", task.ID, repo.TaskPatch{Completed: ptr(true)})
	require.NoError(t, err)
	require.NotNil(t, done.CompletedAt)
	stamped := *done.CompletedAt
	assert.Equal(t, f.now, stamped)

	// true -> true keeps the original stamp
	f.now = f.now.Add(time.Hour)
	again, err := f.tasks.Update(ctx, "alice", task.ID, repo.TaskPatch{Completed: ptr(true)})
	require.NoError(t, err)
	assert.Equal(t, stamped, *again.CompletedAt)

	// unrelated patch leaves completion alone
	renamed, err := f.tasks.Update(ctx, "alice", task.ID, repo.TaskPatch{Title: ptr("Buy oat milk")})
	require.NoError(t, err)
	assert.True(t, renamed.Completed)
	assert.Equal(t, stamped, *renamed.CompletedAt)

	undone, err := f.tasks.Update(ctx, "alice", task.ID, repo.TaskPatch{Completed: ptr(false)})
	require.NoError(t, err)
	assert.False(t, undone.Completed)
	assert.Nil(t, undone.CompletedAt)
}

func TestUpdateTaskPatchSemantics(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	cat, err := f.cats.Create(ctx, "alice", "Home")
	require.NoError(t, err)
	deadline := time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)
	task, err := f.tasks.Create(ctx, "alice", repo.NewTask{Title: "Fix sink", CategoryID: &cat.ID, Deadline: &deadline})
	require.NoError(t, err)

	got, err := f.tasks.Update(ctx, "alice", task.ID, repo.TaskPatch{RefreshType: ptr(dom.RefreshWeekly)})
	require.NoError(t, err)
	assert.Equal(t, dom.RefreshWeekly, got.RefreshType)
	assert.Equal(t, &cat.ID, got.CategoryID)
	assert.Equal(t, &deadline, got.Deadline)

	got, err = f.tasks.Update(ctx, "alice", task.ID, repo.TaskPatch{
		CategoryID: repo.Null[string](),
		Deadline:   repo.Null[time.Time](),
	})
	require.NoError(t, err)
	assert.Nil(t, got.CategoryID)
	assert.Nil(t, got.Deadline)
	assert.Equal(t, "Fix sink", got.Title)

	_, err = f.tasks.Update(ctx, "alice", task.ID, repo.TaskPatch{Title: ptr("")})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.tasks.Update(ctx, "alice", "missing", repo.TaskPatch{Title: ptr("x")})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.tasks.Update(ctx, "bob", task.ID, repo.TaskPatch{Title: ptr("x")})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteTaskCascadesAndIsIdempotent(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	task, err := f.tasks.Create(ctx, "alice", repo.NewTask{Title: "Move"})
	require.NoError(t, err)
	sub, err := f.tasks.CreateSubtask(ctx, "alice", repo.NewSubtask{TaskID: task.ID, Title: "Pack"})
	require.NoError(t, err)

	require.NoError(t, f.tasks.Delete(ctx, "alice", task.ID))
	require.NoError(t, f.tasks.Delete(ctx, "alice", task.ID))
	require.NoError(t, f.tasks.Delete(ctx, "alice", "nonexistent-id"))

	_, ok := f.store.Subtask(sub.ID)
	assert.False(t, ok)
}

func TestSubtaskOwnership(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	task, err := f.tasks.Create(ctx, "alice", repo.NewTask{Title: "Trip"})
	require.NoError(t, err)

	_, err = f.tasks.CreateSubtask(ctx, "bob", repo.NewSubtask{TaskID: task.ID, Title: "x"})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.tasks.CreateSubtask(ctx, "alice", repo.NewSubtask{TaskID: "", Title: "x"})
	assert.ErrorIs(t, err, ErrValidation)

	sub, err := f.tasks.CreateSubtask(ctx, "alice", repo.NewSubtask{TaskID: task.ID, Title: "Book hotel"})
	require.NoError(t, err)

	_, err = f.tasks.UpdateSubtask(ctx, "bob", sub.ID, repo.SubtaskPatch{Completed: ptr(true)})
	assert.ErrorIs(t, err, ErrNotFound)

	list, err := f.tasks.ListSubtasks(ctx, "bob", task.ID)
	require.NoError(t, err)
	assert.Empty(t, list)

	done, err := f.tasks.UpdateSubtask(ctx, "alice", sub.ID, repo.SubtaskPatch{Completed: ptr(true)})
	require.NoError(t, err)
	assert.NotNil(t, done.CompletedAt)
}

func TestDeleteCategoryDetaches(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	cat, err := f.cats.Create(ctx, "alice", "Errands")
	require.NoError(t, err)
	task, err := f.tasks.Create(ctx, "alice", repo.NewTask{Title: "Post office", CategoryID: &cat.ID})
	require.NoError(t, err)
	note, err := f.notes.Create(ctx, "alice", repo.NewNote{Title: "Stamps", CategoryID: &cat.ID})
	require.NoError(t, err)

	require.NoError(t, f.cats.Delete(ctx, "alice", cat.ID))

	got, err := f.tasks.Get(ctx, "alice", task.ID)
	require.NoError(t, err)
	assert.Nil(t, got.CategoryID)

	notes, err := f.notes.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, note.ID, notes[0].ID)
	assert.Nil(t, notes[0].CategoryID)
}

func TestCategoryValidation(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	_, err := f.cats.Create(ctx, "alice", "   ")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.cats.Rename(ctx, "alice", "missing", "Work")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNotesOrderAndReorder(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	var ids []string
	for _, title := range []string{"one", "two", "three"} {
		n, err := f.notes.Create(ctx, "alice", repo.NewNote{Title: title})
		require.NoError(t, err)
		ids = append(ids, n.ID)
	}
	require.NoError(t, f.notes.Reorder(ctx, "alice", []string{ids[1], ids[0]}))

	list, err := f.notes.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, ids[1], list[0].ID)
	assert.Equal(t, 0, list[0].Order)
	assert.Equal(t, ids[0], list[1].ID)
	// untouched by the partial reorder
	assert.Equal(t, ids[2], list[2].ID)
	assert.Equal(t, 2, list[2].Order)
}

func TestAnnouncement(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	a, err := f.notes.Announcement(ctx, "alice")
	require.NoError(t, err)
	assert.Nil(t, a)

	set, err := f.notes.SetAnnouncement(ctx, "alice", "Hello")
	require.NoError(t, err)
	assert.Equal(t, f.now, set.UpdatedAt)

	a, err = f.notes.Announcement(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, "Hello", a.Message)
}

func TestResetDailyIsIdempotent(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	daily, err := f.tasks.Create(ctx, "alice", repo.NewTask{Title: "Stretch", RefreshType: dom.RefreshDaily})
	require.NoError(t, err)
	weekly, err := f.tasks.Create(ctx, "alice", repo.NewTask{Title: "Review", RefreshType: dom.RefreshWeekly})
	require.NoError(t, err)
	sub, err := f.tasks.CreateSubtask(ctx, "alice", repo.NewSubtask{TaskID: daily.ID, Title: "Neck"})
	require.NoError(t, err)

	_, err = f.tasks.Update(ctx, "alice", daily.ID, repo.TaskPatch{Completed: ptr(true)})
	require.NoError(t, err)
	_, err = f.tasks.Update(ctx, "alice", weekly.ID, repo.TaskPatch{Completed: ptr(true)})
	require.NoError(t, err)
	_, err = f.tasks.UpdateSubtask(ctx, "alice", sub.ID, repo.SubtaskPatch{Completed: ptr(true)})
	require.NoError(t, err)

	res, err := f.maint.ResetDaily(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Tasks)
	assert.Equal(t, int64(1), res.Subtasks)

	first, err := f.tasks.Get(ctx, "alice", daily.ID)
	require.NoError(t, err)

	_, err = f.maint.ResetDaily(ctx, "alice")
	require.NoError(t, err)
	second, err := f.tasks.Get(ctx, "alice", daily.ID)
	require.NoError(t, err)

	assert.False(t, second.Completed)
	assert.Nil(t, second.CompletedAt)
	assert.Equal(t, first.Completed, second.Completed)
	assert.Equal(t, first.Title, second.Title)

	st, _ := f.store.Subtask(sub.ID)
	assert.False(t, st.Completed)
	assert.Nil(t, st.CompletedAt)

	w, err := f.tasks.Get(ctx, "alice", weekly.ID)
	require.NoError(t, err)
	assert.True(t, w.Completed, "weekly task untouched by daily reset")
}

func TestPurgeRespectsRetentionAndOwner(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	old, err := f.tasks.Create(ctx, "alice", repo.NewTask{Title: "old"})
	require.NoError(t, err)
	recent, err := f.tasks.Create(ctx, "alice", repo.NewTask{Title: "recent"})
	require.NoError(t, err)
	open, err := f.tasks.Create(ctx, "alice", repo.NewTask{Title: "open"})
	require.NoError(t, err)
	bobs, err := f.tasks.Create(ctx, "bob", repo.NewTask{Title: "bob old"})
	require.NoError(t, err)
	sub, err := f.tasks.CreateSubtask(ctx, "alice", repo.NewSubtask{TaskID: open.ID, Title: "old step"})
	require.NoError(t, err)

	f.store.SetCompletedAt(old.ID, f.now.Add(-8*24*time.Hour))
	f.store.SetCompletedAt(recent.ID, f.now.Add(-6*24*time.Hour))
	f.store.SetCompletedAt(bobs.ID, f.now.Add(-30*24*time.Hour))
	f.store.SetSubtaskCompletedAt(sub.ID, f.now.Add(-10*24*time.Hour))

	n, err := f.maint.PurgeCompleted(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, ok := f.store.Task(old.ID)
	assert.False(t, ok)
	_, ok = f.store.Task(recent.ID)
	assert.True(t, ok)
	_, ok = f.store.Task(open.ID)
	assert.True(t, ok)
	_, ok = f.store.Subtask(sub.ID)
	assert.False(t, ok)
	_, ok = f.store.Task(bobs.ID)
	assert.True(t, ok, "other owners are not purged")
}

func TestRunDailyToleratesOwnerFailure(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	for _, owner := range []string{"alice", "bob", "carol"} {
		task, err := f.tasks.Create(ctx, owner, repo.NewTask{Title: "Stretch", RefreshType: dom.RefreshDaily})
		require.NoError(t, err)
		_, err = f.tasks.Update(ctx, owner, task.ID, repo.TaskPatch{Completed: ptr(true)})
		require.NoError(t, err)
	}
	_, err := f.tasks.Create(ctx, "dave", repo.NewTask{Title: "Weekly only", RefreshType: dom.RefreshWeekly})
	require.NoError(t, err)

	f.store.Fail["bob"] = errors.New("connection reset")
	rep, err := f.maint.RunDaily(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, rep.Owners)
	assert.Equal(t, 1, rep.Failed)
	assert.Equal(t, int64(2), rep.Tasks)

	delete(f.store.Fail, "bob")
	for owner, want := range map[string]bool{"alice": false, "bob": true, "carol": false} {
		list, err := f.tasks.List(ctx, owner)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, want, list[0].Completed, owner)
	}
}

func TestRunWeeklyResetsThenPurges(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	weekly, err := f.tasks.Create(ctx, "alice", repo.NewTask{Title: "Review", RefreshType: dom.RefreshWeekly})
	require.NoError(t, err)
	oneOff, err := f.tasks.Create(ctx, "bob", repo.NewTask{Title: "Taxes"})
	require.NoError(t, err)

	// a long-completed weekly task is reset before the purge sees it
	f.store.SetCompletedAt(weekly.ID, f.now.Add(-9*24*time.Hour))
	f.store.SetCompletedAt(oneOff.ID, f.now.Add(-9*24*time.Hour))

	rep, err := f.maint.RunWeekly(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Owners)
	assert.Equal(t, int64(1), rep.Tasks)
	assert.Equal(t, int64(1), rep.Purged)

	_, ok := f.store.Task(weekly.ID)
	assert.True(t, ok)
	_, ok = f.store.Task(oneOff.ID)
	assert.False(t, ok)
}

func TestListCacheInvalidatedOnWrite(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	f := newFixture(t, cache.NewListCache(rdb, time.Minute))
	ctx := context.Background()

	cat, err := f.cats.Create(ctx, "alice", "Home")
	require.NoError(t, err)
	task, err := f.tasks.Create(ctx, "alice", repo.NewTask{Title: "Vacuum", CategoryID: &cat.ID})
	require.NoError(t, err)

	list, err := f.tasks.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, mr.Exists("taskflow:list:alice:tasks"))

	// renaming the category must refresh the cached categoryName
	_, err = f.cats.Rename(ctx, "alice", cat.ID, "House")
	require.NoError(t, err)
	assert.False(t, mr.Exists("taskflow:list:alice:tasks"))

	list, err = f.tasks.List(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, list[0].CategoryName)
	assert.Equal(t, "House", *list[0].CategoryName)

	_, err = f.tasks.Update(ctx, "alice", task.ID, repo.TaskPatch{Completed: ptr(true)})
	require.NoError(t, err)
	list, err = f.tasks.List(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, list[0].Completed)

	_, err = f.maint.ResetDaily(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, mr.Exists("taskflow:list:alice:tasks"))
}

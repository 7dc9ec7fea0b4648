package repo

import (
	"context"
	"fmt"
	"regexp"
	"testing"
	"time"

	dom "github.com/bryan-kier/productivity/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (pgxmock.PgxPoolIface, *PGStore) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	n := 0
	return mock, NewPGStore(mock, func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	})
}

var taskCols = []string{"id", "user_id", "title", "completed", "completed_at", "refresh_type",
	"category_id", "last_refreshed", "deadline", "order"}

func taskRow(id, owner, title string, completed bool, completedAt *time.Time, order int) []any {
	return []any{id, owner, title, completed, completedAt, "none",
		(*string)(nil), (*time.Time)(nil), (*time.Time)(nil), order}
}

func q(s string) string { return regexp.QuoteMeta(s) }

func TestCreateTaskAppendsAfterMaxOrder(t *testing.T) {
	mock, store := newMockStore(t)
	mock.ExpectQuery(q(`INSERT INTO tasks`) + `(?s).*` + q(`(SELECT COALESCE(MAX("order"), -1) + 1 FROM tasks WHERE user_id = $6), $6)`)).
		WithArgs("id-1", "Buy milk", "none", pgxmock.AnyArg(), pgxmock.AnyArg(), "alice").
		WillReturnRows(pgxmock.NewRows(taskCols).AddRow(taskRow("id-1", "alice", "Buy milk", false, nil, 3)...))

	task, err := store.ForOwner("alice").CreateTask(context.Background(), NewTask{Title: "Buy milk", RefreshType: dom.RefreshNone})
	require.NoError(t, err)
	assert.Equal(t, "id-1", task.ID)
	assert.Equal(t, 3, task.Order)
	assert.Equal(t, dom.RefreshNone, task.RefreshType)
}

var categoryCols = []string{"id", "user_id", "name"}

func TestCreateTaskRejectsForeignCategory(t *testing.T) {
	mock, store := newMockStore(t)
	mock.ExpectQuery(q(`FROM categories WHERE id = $1 AND user_id = $2`)).
		WithArgs("cat-of-bob", "alice").
		WillReturnError(pgx.ErrNoRows)

	cat := "cat-of-bob"
	_, err := store.ForOwner("alice").CreateTask(context.Background(), NewTask{Title: "x", RefreshType: dom.RefreshNone, CategoryID: &cat})
	assert.ErrorIs(t, err, ErrInvalidReference)
}

func TestCreateTaskCategoryDeletedMeanwhile(t *testing.T) {
	mock, store := newMockStore(t)
	mock.ExpectQuery(q(`FROM categories WHERE id = $1 AND user_id = $2`)).
		WithArgs("cat-1", "alice").
		WillReturnRows(pgxmock.NewRows(categoryCols).AddRow("cat-1", "alice", "Home"))
	mock.ExpectQuery(q(`INSERT INTO tasks`)).
		WillReturnError(&pgconn.PgError{Code: "23503", ConstraintName: "tasks_category_id_fkey"})

	cat := "cat-1"
	_, err := store.ForOwner("alice").CreateTask(context.Background(), NewTask{Title: "x", RefreshType: dom.RefreshNone, CategoryID: &cat})
	assert.ErrorIs(t, err, ErrInvalidReference)
}

func TestUpdateNoteRejectsForeignCategory(t *testing.T) {
	mock, store := newMockStore(t)
	mock.ExpectQuery(q(`FROM categories WHERE id = $1 AND user_id = $2`)).
		WithArgs("cat-of-bob", "alice").
		WillReturnError(pgx.ErrNoRows)

	_, err := store.ForOwner("alice").UpdateNote(context.Background(), "note-1", NotePatch{CategoryID: Some("cat-of-bob")})
	assert.ErrorIs(t, err, ErrInvalidReference)
}

func TestUpdateTaskCompletionIsAtomic(t *testing.T) {
	mock, store := newMockStore(t)
	at := time.Date(2026, 10, 18, 7, 0, 0, 0, time.UTC)
	mock.ExpectQuery(q(`UPDATE tasks SET completed = $1, completed_at = CASE WHEN NOT $1::boolean THEN NULL WHEN completed THEN completed_at ELSE NOW() END WHERE id = $2 AND user_id = $3 RETURNING`)).
		WithArgs(true, "task-1", "alice").
		WillReturnRows(pgxmock.NewRows(taskCols).AddRow(taskRow("task-1", "alice", "Buy milk", true, &at, 0)...))

	done := true
	task, err := store.ForOwner("alice").UpdateTask(context.Background(), "task-1", TaskPatch{Completed: &done})
	require.NoError(t, err)
	assert.True(t, task.Completed)
	assert.Equal(t, &at, task.CompletedAt)
}

func TestUpdateTaskPartialFields(t *testing.T) {
	mock, store := newMockStore(t)
	mock.ExpectQuery(q(`UPDATE tasks SET title = $1, category_id = $2, deadline = $3 WHERE id = $4 AND user_id = $5 RETURNING`)).
		WithArgs("New title", pgxmock.AnyArg(), pgxmock.AnyArg(), "task-1", "alice").
		WillReturnRows(pgxmock.NewRows(taskCols).AddRow(taskRow("task-1", "alice", "New title", false, nil, 0)...))

	title := "New title"
	_, err := store.ForOwner("alice").UpdateTask(context.Background(), "task-1", TaskPatch{
		Title:      &title,
		CategoryID: Null[string](),
		Deadline:   Null[time.Time](),
	})
	require.NoError(t, err)
}

func TestUpdateTaskMissingRow(t *testing.T) {
	mock, store := newMockStore(t)
	mock.ExpectQuery(q(`UPDATE tasks SET title = $1`)).
		WithArgs("x", "task-9", "bob").
		WillReturnError(pgx.ErrNoRows)

	title := "x"
	_, err := store.ForOwner("bob").UpdateTask(context.Background(), "task-9", TaskPatch{Title: &title})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEmptyPatchReadsRow(t *testing.T) {
	mock, store := newMockStore(t)
	mock.ExpectQuery(q(`FROM tasks WHERE id = $1 AND user_id = $2`)).
		WithArgs("task-1", "alice").
		WillReturnRows(pgxmock.NewRows(taskCols).AddRow(taskRow("task-1", "alice", "Same", false, nil, 0)...))

	task, err := store.ForOwner("alice").UpdateTask(context.Background(), "task-1", TaskPatch{})
	require.NoError(t, err)
	assert.Equal(t, "Same", task.Title)
}

func TestDeleteTaskIsOwnerScoped(t *testing.T) {
	mock, store := newMockStore(t)
	mock.ExpectExec(q(`DELETE FROM tasks WHERE id = $1 AND user_id = $2`)).
		WithArgs("nonexistent-id", "alice").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	require.NoError(t, store.ForOwner("alice").DeleteTask(context.Background(), "nonexistent-id"))
}

func TestReorderTasksUsesPositions(t *testing.T) {
	mock, store := newMockStore(t)
	ids := []string{"t3", "t1", "t2"}
	mock.ExpectExec(q(`FROM unnest($1::text[]) WITH ORDINALITY AS v(id, pos)`)).
		WithArgs(ids, "alice").
		WillReturnResult(pgxmock.NewResult("UPDATE", 3))

	require.NoError(t, store.ForOwner("alice").ReorderTasks(context.Background(), ids))
	// nothing to do
	require.NoError(t, store.ForOwner("alice").ReorderTasks(context.Background(), nil))
}

func TestListTasksGroupsSubtasks(t *testing.T) {
	mock, store := newMockStore(t)
	home := "Home"
	mock.ExpectQuery(q(`ORDER BY (t.refresh_type = 'daily') DESC, t."order" ASC, t.id ASC`)).
		WithArgs("alice").
		WillReturnRows(pgxmock.NewRows(append(taskCols, "name")).
			AddRow(append(taskRow("t1", "alice", "Stretch", false, nil, 1), &home)...).
			AddRow(append(taskRow("t2", "alice", "Read", false, nil, 0), (*string)(nil))...))
	mock.ExpectQuery(q(`FROM subtasks s`)).
		WithArgs("alice").
		WillReturnRows(pgxmock.NewRows([]string{"id", "task_id", "title", "completed", "completed_at", "deadline"}).
			AddRow("s1", "t2", "Chapter 1", false, (*time.Time)(nil), (*time.Time)(nil)).
			AddRow("s2", "t2", "Chapter 2", false, (*time.Time)(nil), (*time.Time)(nil)))

	list, err := store.ForOwner("alice").ListTasks(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Home", *list[0].CategoryName)
	assert.Empty(t, list[0].Subtasks)
	assert.Nil(t, list[1].CategoryName)
	require.Len(t, list[1].Subtasks, 2)
	assert.Equal(t, "s1", list[1].Subtasks[0].ID)
}

func TestCreateSubtaskForeignTask(t *testing.T) {
	mock, store := newMockStore(t)
	mock.ExpectQuery(q(`SELECT $1, $2, t.id, $3 FROM tasks t WHERE t.id = $4 AND t.user_id = $5`)).
		WithArgs("id-1", "Step", pgxmock.AnyArg(), "task-of-bob", "alice").
		WillReturnError(pgx.ErrNoRows)

	_, err := store.ForOwner("alice").CreateSubtask(context.Background(), NewSubtask{TaskID: "task-of-bob", Title: "Step"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPurgeStatements(t *testing.T) {
	mock, store := newMockStore(t)
	cutoff := time.Date(2026, 10, 11, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(q(`DELETE FROM tasks`) + `(?s).*` + q(`completed = TRUE AND completed_at < $2`)).
		WithArgs("alice", cutoff).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mock.ExpectExec(q(`DELETE FROM subtasks`) + `(?s).*` + q(`task_id IN (SELECT id FROM tasks WHERE user_id = $1)`)).
		WithArgs("alice", cutoff).
		WillReturnResult(pgxmock.NewResult("DELETE", 5))

	acc := store.ForOwner("alice")
	n, err := acc.DeleteCompletedTasksBefore(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	n, err = acc.DeleteCompletedSubtasksBefore(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
}

func TestOwnersWithRefresh(t *testing.T) {
	mock, store := newMockStore(t)
	mock.ExpectQuery(q(`SELECT DISTINCT user_id FROM tasks WHERE refresh_type = $1`)).
		WithArgs("daily").
		WillReturnRows(pgxmock.NewRows([]string{"user_id"}).AddRow("alice").AddRow("bob"))

	owners, err := store.OwnersWithRefresh(context.Background(), dom.RefreshDaily)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, owners)
}

func TestGetAnnouncementNone(t *testing.T) {
	mock, store := newMockStore(t)
	mock.ExpectQuery(q(`FROM announcements WHERE user_id = $1`)).
		WithArgs("alice").
		WillReturnError(pgx.ErrNoRows)

	_, err := store.ForOwner("alice").GetAnnouncement(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateCategoryMissing(t *testing.T) {
	mock, store := newMockStore(t)
	mock.ExpectQuery(q(`UPDATE categories SET name = $3`)).
		WithArgs("cat-1", "bob", "Work").
		WillReturnError(pgx.ErrNoRows)

	_, err := store.ForOwner("bob").UpdateCategory(context.Background(), "cat-1", "Work")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResetTasksCommits(t *testing.T) {
	mock, store := newMockStore(t)
	now := time.Date(2026, 10, 18, 7, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectExec(q(`UPDATE tasks SET completed = FALSE, completed_at = NULL, last_refreshed = $1`)).
		WithArgs(now, "alice", "daily").
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))
	mock.ExpectExec(q(`UPDATE subtasks SET completed = FALSE, completed_at = NULL`)).
		WithArgs("alice", "daily").
		WillReturnResult(pgxmock.NewResult("UPDATE", 3))
	mock.ExpectCommit()
	// pgx.BeginFunc always rolls back on exit; after a commit pgx reports ErrTxClosed.
	mock.ExpectRollback().WillReturnError(pgx.ErrTxClosed)

	res, err := store.ForOwner("alice").ResetTasks(context.Background(), dom.RefreshDaily, now)
	require.NoError(t, err)
	assert.Equal(t, ResetResult{Tasks: 2, Subtasks: 3}, res)
}

func TestResetTasksRollsBackOnSubtaskFailure(t *testing.T) {
	mock, store := newMockStore(t)
	now := time.Date(2026, 10, 18, 7, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectExec(q(`UPDATE tasks SET completed = FALSE`)).
		WithArgs(now, "alice", "weekly").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(q(`UPDATE subtasks SET completed = FALSE`)).
		WithArgs("alice", "weekly").
		WillReturnError(fmt.Errorf("connection reset"))
	mock.ExpectRollback()
	mock.ExpectRollback().WillReturnError(pgx.ErrTxClosed)

	res, err := store.ForOwner("alice").ResetTasks(context.Background(), dom.RefreshWeekly, now)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reset subtasks")
	assert.Equal(t, ResetResult{}, res)
}

func TestResetTasksSkipsSubtasksWhenNothingReset(t *testing.T) {
	mock, store := newMockStore(t)
	now := time.Date(2026, 10, 18, 7, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectExec(q(`UPDATE tasks SET completed = FALSE`)).
		WithArgs(now, "bob", "daily").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectCommit()
	mock.ExpectRollback().WillReturnError(pgx.ErrTxClosed)

	res, err := store.ForOwner("bob").ResetTasks(context.Background(), dom.RefreshDaily, now)
	require.NoError(t, err)
	assert.Equal(t, ResetResult{}, res)
}

func TestUpsertAnnouncementInsertsOnFirstUse(t *testing.T) {
	mock, store := newMockStore(t)
	at := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery(q(`UPDATE announcements SET message = $1, updated_at = NOW()`)).
		WithArgs("Gym closed", "alice").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(q(`INSERT INTO announcements (id, message, user_id, updated_at)`)).
		WithArgs("id-1", "Gym closed", "alice").
		WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "message", "updated_at"}).
			AddRow("id-1", "alice", "Gym closed", at))
	mock.ExpectCommit()
	mock.ExpectRollback().WillReturnError(pgx.ErrTxClosed)

	a, err := store.ForOwner("alice").UpsertAnnouncement(context.Background(), "Gym closed")
	require.NoError(t, err)
	assert.Equal(t, "id-1", a.ID)
	assert.Equal(t, "Gym closed", a.Message)
	assert.Equal(t, at, a.UpdatedAt)
}

func TestUpsertAnnouncementUpdatesExisting(t *testing.T) {
	mock, store := newMockStore(t)
	at := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery(q(`UPDATE announcements SET message = $1`)).
		WithArgs("Pool open", "alice").
		WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "message", "updated_at"}).
			AddRow("ann-1", "alice", "Pool open", at))
	mock.ExpectCommit()
	mock.ExpectRollback().WillReturnError(pgx.ErrTxClosed)

	a, err := store.ForOwner("alice").UpsertAnnouncement(context.Background(), "Pool open")
	require.NoError(t, err)
	assert.Equal(t, "ann-1", a.ID)
}

func TestReorderNotesUsesPositions(t *testing.T) {
	mock, store := newMockStore(t)
	ids := []string{"n2", "n1"}
	mock.ExpectExec(q(`UPDATE notes n SET "order" = v.pos - 1`) + `(?s).*` +
		q(`FROM unnest($1::text[]) WITH ORDINALITY AS v(id, pos)`) + `(?s).*` +
		q(`WHERE n.id = v.id AND n.user_id = $2`)).
		WithArgs(ids, "alice").
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))

	require.NoError(t, store.ForOwner("alice").ReorderNotes(context.Background(), ids))
}

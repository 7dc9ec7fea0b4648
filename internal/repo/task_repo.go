package repo

import (
	"context"
	"fmt"
	"time"

	dom "github.com/bryan-kier/productivity/internal/domain"

	"github.com/jackc/pgx/v5"
)

const taskColumns = `id, user_id, title, completed, completed_at, refresh_type, category_id, last_refreshed, deadline, "order"`

func scanTask(row rowScanner, extra ...any) (dom.Task, error) {
	var (
		t  dom.Task
		rt string
	)
	dest := []any{&t.ID, &t.UserID, &t.Title, &t.Completed, &t.CompletedAt, &rt,
		&t.CategoryID, &t.LastRefreshed, &t.Deadline, &t.Order}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return dom.Task{}, err
	}
	t.RefreshType = dom.RefreshType(rt)
	return t, nil
}

// ListTasks returns the owner's tasks with daily tasks first, then by display
// order. Each task carries its category name and subtasks.
func (r *pgScope) ListTasks(ctx context.Context) ([]dom.Task, error) {
	rows, err := r.db.Query(ctx, `
		SELECT t.id, t.user_id, t.title, t.completed, t.completed_at, t.refresh_type,
		       t.category_id, t.last_refreshed, t.deadline, t."order", c.name
		FROM tasks t
		LEFT JOIN categories c ON c.id = t.category_id AND c.user_id = t.user_id
		WHERE t.user_id = $1
		ORDER BY (t.refresh_type = 'daily') DESC, t."order" ASC, t.id ASC`, r.owner)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	list := []dom.Task{}
	index := map[string]int{}
	for rows.Next() {
		var name *string
		t, err := scanTask(rows, &name)
		if err != nil {
			rows.Close()
			return nil, err
		}
		t.CategoryName = name
		t.Subtasks = []dom.Subtask{}
		index[t.ID] = len(list)
		list = append(list, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return list, nil
	}

	subRows, err := r.db.Query(ctx, `
		SELECT s.id, s.task_id, s.title, s.completed, s.completed_at, s.deadline
		FROM subtasks s
		JOIN tasks t ON t.id = s.task_id
		WHERE t.user_id = $1
		ORDER BY s.created_at ASC, s.id ASC`, r.owner)
	if err != nil {
		return nil, fmt.Errorf("list subtasks: %w", err)
	}
	defer subRows.Close()
	for subRows.Next() {
		s, err := scanSubtask(subRows)
		if err != nil {
			return nil, err
		}
		if i, ok := index[s.TaskID]; ok {
			list[i].Subtasks = append(list[i].Subtasks, s)
		}
	}
	return list, subRows.Err()
}

func (r *pgScope) GetTask(ctx context.Context, id string) (dom.Task, error) {
	t, err := scanTask(r.db.QueryRow(ctx, `
		SELECT `+taskColumns+`
		FROM tasks WHERE id = $1 AND user_id = $2`, id, r.owner))
	return t, notFound(err)
}

// CreateTask appends the task after the owner's current maximum display order.
func (r *pgScope) CreateTask(ctx context.Context, in NewTask) (dom.Task, error) {
	if err := r.ownCategory(ctx, in.CategoryID); err != nil {
		return dom.Task{}, err
	}
	t, err := scanTask(r.db.QueryRow(ctx, `
		INSERT INTO tasks (id, title, refresh_type, category_id, deadline, "order", user_id)
		VALUES ($1, $2, $3, $4, $5,
		        (SELECT COALESCE(MAX("order"), -1) + 1 FROM tasks WHERE user_id = $6), $6)
		RETURNING `+taskColumns,
		r.id(), in.Title, string(in.RefreshType), in.CategoryID, in.Deadline, r.owner))
	if err != nil {
		return dom.Task{}, wrapWrite("create task", err)
	}
	return t, nil
}

func (r *pgScope) UpdateTask(ctx context.Context, id string, p TaskPatch) (dom.Task, error) {
	if p.CategoryID.Set {
		if err := r.ownCategory(ctx, p.CategoryID.Value); err != nil {
			return dom.Task{}, err
		}
	}
	var b setBuilder
	if p.Title != nil {
		b.add("title", *p.Title)
	}
	if p.RefreshType != nil {
		b.add("refresh_type", string(*p.RefreshType))
	}
	if p.CategoryID.Set {
		b.add("category_id", p.CategoryID.Value)
	}
	if p.Deadline.Set {
		b.add("deadline", p.Deadline.Value)
	}
	if p.Completed != nil {
		b.addCompleted(*p.Completed)
	}
	if b.empty() {
		return r.GetTask(ctx, id)
	}
	query := `UPDATE tasks SET ` + b.clause() +
		` WHERE id = ` + b.next(id) + ` AND user_id = ` + b.next(r.owner) +
		` RETURNING ` + taskColumns
	t, err := scanTask(r.db.QueryRow(ctx, query, b.args...))
	if err != nil {
		return dom.Task{}, wrapWrite("update task", err)
	}
	return t, nil
}

// DeleteTask is idempotent; subtasks go with the task (ON DELETE CASCADE).
func (r *pgScope) DeleteTask(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM tasks WHERE id = $1 AND user_id = $2`, id, r.owner)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

// ReorderTasks rewrites the display order of exactly the given ids to their
// position in the slice.
func (r *pgScope) ReorderTasks(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.db.Exec(ctx, `
		UPDATE tasks t SET "order" = v.pos - 1
		FROM unnest($1::text[]) WITH ORDINALITY AS v(id, pos)
		WHERE t.id = v.id AND t.user_id = $2`, ids, r.owner)
	if err != nil {
		return fmt.Errorf("reorder tasks: %w", err)
	}
	return nil
}

// ResetTasks un-completes every task of the refresh mode and their subtasks
// in one transaction.
func (r *pgScope) ResetTasks(ctx context.Context, rt dom.RefreshType, now time.Time) (ResetResult, error) {
	var res ResetResult
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE tasks SET completed = FALSE, completed_at = NULL, last_refreshed = $1
			WHERE user_id = $2 AND refresh_type = $3`, now, r.owner, string(rt))
		if err != nil {
			return fmt.Errorf("reset tasks: %w", err)
		}
		res.Tasks = tag.RowsAffected()
		if res.Tasks == 0 {
			return nil
		}
		tag, err = tx.Exec(ctx, `
			UPDATE subtasks SET completed = FALSE, completed_at = NULL
			WHERE task_id IN (SELECT id FROM tasks WHERE user_id = $1 AND refresh_type = $2)`,
			r.owner, string(rt))
		if err != nil {
			return fmt.Errorf("reset subtasks: %w", err)
		}
		res.Subtasks = tag.RowsAffected()
		return nil
	})
	if err != nil {
		return ResetResult{}, err
	}
	return res, nil
}

// DeleteCompletedTasksBefore hard-deletes completed tasks stamped before cutoff.
func (r *pgScope) DeleteCompletedTasksBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM tasks
		WHERE user_id = $1 AND completed = TRUE AND completed_at < $2`, r.owner, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge tasks: %w", err)
	}
	return tag.RowsAffected(), nil
}

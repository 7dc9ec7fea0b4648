package repo

import (
	"context"
	"fmt"
	"time"

	dom "github.com/bryan-kier/productivity/internal/domain"
)

const subtaskColumns = `id, task_id, title, completed, completed_at, deadline`

// ownedTasks restricts subtask statements to tasks of the owner bound at $n.
func ownedTasks(n string) string {
	return `task_id IN (SELECT id FROM tasks WHERE user_id = ` + n + `)`
}

func scanSubtask(row rowScanner) (dom.Subtask, error) {
	var s dom.Subtask
	err := row.Scan(&s.ID, &s.TaskID, &s.Title, &s.Completed, &s.CompletedAt, &s.Deadline)
	return s, err
}

// ListSubtasks returns an empty list when the task is not the owner's.
func (r *pgScope) ListSubtasks(ctx context.Context, taskID string) ([]dom.Subtask, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+subtaskColumns+`
		FROM subtasks
		WHERE task_id = $1 AND `+ownedTasks("$2")+`
		ORDER BY created_at ASC, id ASC`, taskID, r.owner)
	if err != nil {
		return nil, fmt.Errorf("list subtasks: %w", err)
	}
	defer rows.Close()
	list := []dom.Subtask{}
	for rows.Next() {
		s, err := scanSubtask(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

// CreateSubtask inserts only when the parent task belongs to the owner,
// otherwise ErrNotFound.
func (r *pgScope) CreateSubtask(ctx context.Context, in NewSubtask) (dom.Subtask, error) {
	s, err := scanSubtask(r.db.QueryRow(ctx, `
		INSERT INTO subtasks (id, title, task_id, deadline)
		SELECT $1, $2, t.id, $3 FROM tasks t WHERE t.id = $4 AND t.user_id = $5
		RETURNING `+subtaskColumns,
		r.id(), in.Title, in.Deadline, in.TaskID, r.owner))
	if err != nil {
		return dom.Subtask{}, wrapWrite("create subtask", err)
	}
	return s, nil
}

func (r *pgScope) UpdateSubtask(ctx context.Context, id string, p SubtaskPatch) (dom.Subtask, error) {
	var b setBuilder
	if p.Title != nil {
		b.add("title", *p.Title)
	}
	if p.Deadline.Set {
		b.add("deadline", p.Deadline.Value)
	}
	if p.Completed != nil {
		b.addCompleted(*p.Completed)
	}
	if b.empty() {
		s, err := scanSubtask(r.db.QueryRow(ctx, `
			SELECT `+subtaskColumns+` FROM subtasks
			WHERE id = $1 AND `+ownedTasks("$2"), id, r.owner))
		return s, notFound(err)
	}
	query := `UPDATE subtasks SET ` + b.clause() +
		` WHERE id = ` + b.next(id) + ` AND ` + ownedTasks(b.next(r.owner)) +
		` RETURNING ` + subtaskColumns
	s, err := scanSubtask(r.db.QueryRow(ctx, query, b.args...))
	if err != nil {
		return dom.Subtask{}, wrapWrite("update subtask", err)
	}
	return s, nil
}

func (r *pgScope) DeleteSubtask(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM subtasks WHERE id = $1 AND `+ownedTasks("$2"), id, r.owner)
	if err != nil {
		return fmt.Errorf("delete subtask: %w", err)
	}
	return nil
}

func (r *pgScope) DeleteCompletedSubtasksBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM subtasks
		WHERE completed = TRUE AND completed_at < $2 AND `+ownedTasks("$1"), r.owner, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge subtasks: %w", err)
	}
	return tag.RowsAffected(), nil
}

package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	dom "github.com/bryan-kier/productivity/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrInvalidReference is returned when a row points at a category or task that does not exist.
	ErrInvalidReference = errors.New("invalid reference")
)

// DB is the subset of *pgxpool.Pool used by the repositories.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
}

// Store hands out owner-scoped accessors and answers the cross-owner
// questions the scheduler needs.
type Store interface {
	ForOwner(owner string) Accessor
	Owners(ctx context.Context) ([]string, error)
	OwnersWithRefresh(ctx context.Context, rt dom.RefreshType) ([]string, error)
	Ping(ctx context.Context) error
}

// Accessor reads and writes the rows of a single owner. Every query it
// issues carries the owner filter.
type Accessor interface {
	ListCategories(ctx context.Context) ([]dom.Category, error)
	GetCategory(ctx context.Context, id string) (dom.Category, error)
	CreateCategory(ctx context.Context, name string) (dom.Category, error)
	UpdateCategory(ctx context.Context, id, name string) (dom.Category, error)
	DeleteCategory(ctx context.Context, id string) error

	ListTasks(ctx context.Context) ([]dom.Task, error)
	GetTask(ctx context.Context, id string) (dom.Task, error)
	CreateTask(ctx context.Context, t NewTask) (dom.Task, error)
	UpdateTask(ctx context.Context, id string, p TaskPatch) (dom.Task, error)
	DeleteTask(ctx context.Context, id string) error
	ReorderTasks(ctx context.Context, ids []string) error

	ListSubtasks(ctx context.Context, taskID string) ([]dom.Subtask, error)
	CreateSubtask(ctx context.Context, s NewSubtask) (dom.Subtask, error)
	UpdateSubtask(ctx context.Context, id string, p SubtaskPatch) (dom.Subtask, error)
	DeleteSubtask(ctx context.Context, id string) error

	ListNotes(ctx context.Context) ([]dom.Note, error)
	GetNote(ctx context.Context, id string) (dom.Note, error)
	CreateNote(ctx context.Context, n NewNote) (dom.Note, error)
	UpdateNote(ctx context.Context, id string, p NotePatch) (dom.Note, error)
	DeleteNote(ctx context.Context, id string) error
	ReorderNotes(ctx context.Context, ids []string) error

	GetAnnouncement(ctx context.Context) (dom.Announcement, error)
	UpsertAnnouncement(ctx context.Context, message string) (dom.Announcement, error)

	ResetTasks(ctx context.Context, rt dom.RefreshType, now time.Time) (ResetResult, error)
	DeleteCompletedTasksBefore(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteCompletedSubtasksBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Nullable is a patch field: Set marks presence, a nil Value clears the column.
type Nullable[T any] struct {
	Set   bool
	Value *T
}

// Some returns a Nullable that sets the column to v.
func Some[T any](v T) Nullable[T] { return Nullable[T]{Set: true, Value: &v} }

// Null returns a Nullable that clears the column.
func Null[T any]() Nullable[T] { return Nullable[T]{Set: true} }

type NewTask struct {
	Title       string
	RefreshType dom.RefreshType
	CategoryID  *string
	Deadline    *time.Time
}

type TaskPatch struct {
	Title       *string
	Completed   *bool
	RefreshType *dom.RefreshType
	CategoryID  Nullable[string]
	Deadline    Nullable[time.Time]
}

type NewSubtask struct {
	TaskID   string
	Title    string
	Deadline *time.Time
}

type SubtaskPatch struct {
	Title     *string
	Completed *bool
	Deadline  Nullable[time.Time]
}

type NewNote struct {
	Title      string
	Content    string
	CategoryID *string
}

type NotePatch struct {
	Title      *string
	Content    *string
	CategoryID Nullable[string]
}

// ResetResult counts the rows touched by a recurring reset.
type ResetResult struct {
	Tasks    int64
	Subtasks int64
}

// PGStore implements Store with Postgres.
type PGStore struct {
	db DB
	id func() string
}

// NewPGStore returns a Store backed by db.
func NewPGStore(db DB, newID func() string) *PGStore {
	return &PGStore{db: db, id: newID}
}

func (s *PGStore) ForOwner(owner string) Accessor {
	return &pgScope{db: s.db, owner: owner, id: s.id}
}

func (s *PGStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Owners returns every distinct owner that has at least one task.
func (s *PGStore) Owners(ctx context.Context) ([]string, error) {
	return s.owners(ctx, `SELECT DISTINCT user_id FROM tasks ORDER BY user_id`)
}

// OwnersWithRefresh returns the owners that have at least one task of the given refresh mode.
func (s *PGStore) OwnersWithRefresh(ctx context.Context, rt dom.RefreshType) ([]string, error) {
	return s.owners(ctx, `SELECT DISTINCT user_id FROM tasks WHERE refresh_type = $1 ORDER BY user_id`, string(rt))
}

func (s *PGStore) owners(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list owners: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var owner string
		if err := rows.Scan(&owner); err != nil {
			return nil, err
		}
		out = append(out, owner)
	}
	return out, rows.Err()
}

// pgScope is the owner-bound Accessor.
type pgScope struct {
	db    DB
	owner string
	id    func() string
}

type rowScanner interface {
	Scan(dest ...any) error
}

// setBuilder collects "col = $n" clauses for partial updates.
type setBuilder struct {
	sets []string
	args []any
}

func (b *setBuilder) add(col string, v any) int {
	b.args = append(b.args, v)
	n := len(b.args)
	b.sets = append(b.sets, fmt.Sprintf("%s = $%d", col, n))
	return n
}

// addCompleted sets completed and stamps or clears completed_at in the same
// statement. The right-hand side sees the pre-update row, so a true->true
// update keeps the original stamp.
func (b *setBuilder) addCompleted(v bool) {
	n := b.add("completed", v)
	b.sets = append(b.sets, fmt.Sprintf(
		"completed_at = CASE WHEN NOT $%d::boolean THEN NULL WHEN completed THEN completed_at ELSE NOW() END", n))
}

func (b *setBuilder) empty() bool { return len(b.sets) == 0 }

func (b *setBuilder) clause() string { return strings.Join(b.sets, ", ") }

// next returns the placeholder index for the argument appended after the SET list.
func (b *setBuilder) next(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

// ownCategory rejects a category id that is not one of the owner's. The
// foreign key alone accepts any owner's category.
func (r *pgScope) ownCategory(ctx context.Context, id *string) error {
	if id == nil {
		return nil
	}
	_, err := r.GetCategory(ctx, *id)
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("category %s: %w", *id, ErrInvalidReference)
	}
	if err != nil {
		return fmt.Errorf("check category: %w", err)
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// wrapWrite maps foreign key violations (SQLSTATE 23503) to ErrInvalidReference.
func wrapWrite(op string, err error) error {
	var pge *pgconn.PgError
	if errors.As(err, &pge) && pge.Code == "23503" {
		return fmt.Errorf("%s: %w: %s", op, ErrInvalidReference, pge.ConstraintName)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

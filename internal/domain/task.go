package domain

import "time"

// RefreshType is a task's recurrence class.
type RefreshType string

const (
	RefreshNone   RefreshType = "none"
	RefreshDaily  RefreshType = "daily"
	RefreshWeekly RefreshType = "weekly"
)

// Valid reports whether r is one of the known refresh modes.
func (r RefreshType) Valid() bool {
	switch r {
	case RefreshNone, RefreshDaily, RefreshWeekly:
		return true
	}
	return false
}

// Domain entity: recurring or one-off task owned by a single user.
// completed_at is set only while Completed is true.
type Task struct {
	ID            string
	UserID        string
	Title         string
	Completed     bool
	CompletedAt   *time.Time
	RefreshType   RefreshType
	CategoryID    *string
	LastRefreshed *time.Time
	Deadline      *time.Time
	Order         int

	// Filled on list reads only.
	CategoryName *string
	Subtasks     []Subtask
}

type Subtask struct {
	ID          string
	TaskID      string
	Title       string
	Completed   bool
	CompletedAt *time.Time
	Deadline    *time.Time
}

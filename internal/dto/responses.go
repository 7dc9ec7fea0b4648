package dto

import "time"

type CategoryResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	UserID string `json:"userId"`
}

type TaskResponse struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Completed     bool       `json:"completed"`
	CompletedAt   *time.Time `json:"completedAt"`
	RefreshType   string     `json:"refreshType"`
	CategoryID    *string    `json:"categoryId"`
	LastRefreshed *time.Time `json:"lastRefreshed"`
	Deadline      *time.Time `json:"deadline"`
	Order         int        `json:"order"`
	UserID        string     `json:"userId"`
}

// TaskListItem is a task as returned by GET /tasks.
type TaskListItem struct {
	TaskResponse
	CategoryName *string           `json:"categoryName,omitempty"`
	Subtasks     []SubtaskResponse `json:"subtasks"`
}

type SubtaskResponse struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completedAt"`
	TaskID      string     `json:"taskId"`
	Deadline    *time.Time `json:"deadline"`
}

type NoteResponse struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Content      string  `json:"content"`
	CategoryID   *string `json:"categoryId"`
	Order        int     `json:"order"`
	UserID       string  `json:"userId"`
	CategoryName *string `json:"categoryName,omitempty"`
}

type AnnouncementResponse struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	UpdatedAt time.Time `json:"updatedAt"`
	UserID    string    `json:"userId"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type DatabaseHealth struct {
	Connected bool   `json:"connected"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

type HealthResponse struct {
	Status    string         `json:"status"`
	Timestamp time.Time      `json:"timestamp"`
	Uptime    float64        `json:"uptime"`
	Database  DatabaseHealth `json:"database"`
}

// CronResponse is returned by the cron entry points.
type CronResponse struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Owners    int       `json:"owners"`
	Failed    int       `json:"failed"`
	Purged    int64     `json:"purged,omitempty"`
}

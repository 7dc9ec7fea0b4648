package dto

type CategoryRequest struct {
	Name *string `json:"name"`
}

type CreateTaskRequest struct {
	Title       string   `json:"title" binding:"required"`
	RefreshType string   `json:"refreshType"`
	CategoryID  *string  `json:"categoryId"`
	Deadline    Deadline `json:"deadline" swaggertype:"string" example:"2026-02-19"`
}

type UpdateTaskRequest struct {
	Title       *string          `json:"title"`
	Completed   *bool            `json:"completed"`
	RefreshType *string          `json:"refreshType"`
	CategoryID  Optional[string] `json:"categoryId" swaggertype:"string"`
	Deadline    Deadline         `json:"deadline" swaggertype:"string" example:"2026-02-19T09:00:00Z"`
}

type CreateSubtaskRequest struct {
	TaskID   string   `json:"taskId" binding:"required"`
	Title    string   `json:"title" binding:"required"`
	Deadline Deadline `json:"deadline" swaggertype:"string"`
}

type UpdateSubtaskRequest struct {
	Title     *string  `json:"title"`
	Completed *bool    `json:"completed"`
	Deadline  Deadline `json:"deadline" swaggertype:"string"`
}

type CreateNoteRequest struct {
	Title      string  `json:"title" binding:"required"`
	Content    string  `json:"content"`
	CategoryID *string `json:"categoryId"`
}

type UpdateNoteRequest struct {
	Title      *string          `json:"title"`
	Content    *string          `json:"content"`
	CategoryID Optional[string] `json:"categoryId" swaggertype:"string"`
}

// ReorderRequest lists ids in their new display order.
type ReorderRequest struct {
	IDs []string `json:"ids" binding:"required"`
}

type AnnouncementRequest struct {
	Message *string `json:"message"`
}

package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/bryan-kier/productivity/internal/dto"
)

// Result is a decoded response. Value is the zero value when Queued.
type Result[T any] struct {
	Value  T
	Queued bool
	Stale  bool
}

func decodeInto[T any](resp *Response) (Result[T], error) {
	res := Result[T]{Queued: resp.Queued, Stale: resp.Stale}
	if resp.Queued || resp.Status == http.StatusNoContent || len(resp.Body) == 0 {
		return res, nil
	}
	if err := json.Unmarshal(resp.Body, &res.Value); err != nil {
		return res, fmt.Errorf("decode response: %w", err)
	}
	return res, nil
}

func call[T any](ctx context.Context, c *Client, method, path string, body any) (Result[T], error) {
	resp, err := c.Request(ctx, method, path, body)
	if err != nil {
		return Result[T]{}, err
	}
	return decodeInto[T](resp)
}

func escape(id string) string { return url.PathEscape(id) }

// Patch is a partial update body. Present keys are applied; a nil value
// clears a nullable field.
type Patch map[string]any

type NewTask struct {
	Title       string  `json:"title"`
	RefreshType string  `json:"refreshType,omitempty"`
	CategoryID  *string `json:"categoryId,omitempty"`
	Deadline    string  `json:"deadline,omitempty"`
}

type NewSubtask struct {
	TaskID   string `json:"taskId"`
	Title    string `json:"title"`
	Deadline string `json:"deadline,omitempty"`
}

type NewNote struct {
	Title      string  `json:"title"`
	Content    string  `json:"content"`
	CategoryID *string `json:"categoryId,omitempty"`
}

type named struct {
	Name string `json:"name"`
}

type reorder struct {
	IDs []string `json:"ids"`
}

type message struct {
	Message string `json:"message"`
}

func (c *Client) ListCategories(ctx context.Context) (Result[[]dto.CategoryResponse], error) {
	return call[[]dto.CategoryResponse](ctx, c, http.MethodGet, "/api/categories", nil)
}

func (c *Client) CreateCategory(ctx context.Context, name string) (Result[dto.CategoryResponse], error) {
	return call[dto.CategoryResponse](ctx, c, http.MethodPost, "/api/categories", named{Name: name})
}

func (c *Client) RenameCategory(ctx context.Context, id, name string) (Result[dto.CategoryResponse], error) {
	return call[dto.CategoryResponse](ctx, c, http.MethodPatch, "/api/categories/"+escape(id), named{Name: name})
}

func (c *Client) DeleteCategory(ctx context.Context, id string) (Result[struct{}], error) {
	return call[struct{}](ctx, c, http.MethodDelete, "/api/categories/"+escape(id), nil)
}

func (c *Client) ListTasks(ctx context.Context) (Result[[]dto.TaskListItem], error) {
	return call[[]dto.TaskListItem](ctx, c, http.MethodGet, "/api/tasks", nil)
}

func (c *Client) CreateTask(ctx context.Context, in NewTask) (Result[dto.TaskResponse], error) {
	return call[dto.TaskResponse](ctx, c, http.MethodPost, "/api/tasks", in)
}

func (c *Client) UpdateTask(ctx context.Context, id string, p Patch) (Result[dto.TaskResponse], error) {
	return call[dto.TaskResponse](ctx, c, http.MethodPatch, "/api/tasks/"+escape(id), p)
}

func (c *Client) SetTaskCompleted(ctx context.Context, id string, done bool) (Result[dto.TaskResponse], error) {
	return c.UpdateTask(ctx, id, Patch{"completed": done})
}

func (c *Client) DeleteTask(ctx context.Context, id string) (Result[struct{}], error) {
	return call[struct{}](ctx, c, http.MethodDelete, "/api/tasks/"+escape(id), nil)
}

func (c *Client) ReorderTasks(ctx context.Context, ids []string) (Result[struct{}], error) {
	return call[struct{}](ctx, c, http.MethodPatch, "/api/tasks/reorder", reorder{IDs: ids})
}

func (c *Client) RefreshDaily(ctx context.Context) (Result[dto.MessageResponse], error) {
	return call[dto.MessageResponse](ctx, c, http.MethodPost, "/api/tasks/refresh/daily", nil)
}

func (c *Client) RefreshWeekly(ctx context.Context) (Result[dto.MessageResponse], error) {
	return call[dto.MessageResponse](ctx, c, http.MethodPost, "/api/tasks/refresh/weekly", nil)
}

func (c *Client) CleanupCompleted(ctx context.Context) (Result[dto.MessageResponse], error) {
	return call[dto.MessageResponse](ctx, c, http.MethodPost, "/api/tasks/cleanup/completed", nil)
}

func (c *Client) ListSubtasks(ctx context.Context, taskID string) (Result[[]dto.SubtaskResponse], error) {
	return call[[]dto.SubtaskResponse](ctx, c, http.MethodGet, "/api/tasks/"+escape(taskID)+"/subtasks", nil)
}

func (c *Client) CreateSubtask(ctx context.Context, in NewSubtask) (Result[dto.SubtaskResponse], error) {
	return call[dto.SubtaskResponse](ctx, c, http.MethodPost, "/api/subtasks", in)
}

func (c *Client) UpdateSubtask(ctx context.Context, id string, p Patch) (Result[dto.SubtaskResponse], error) {
	return call[dto.SubtaskResponse](ctx, c, http.MethodPatch, "/api/subtasks/"+escape(id), p)
}

func (c *Client) SetSubtaskCompleted(ctx context.Context, id string, done bool) (Result[dto.SubtaskResponse], error) {
	return c.UpdateSubtask(ctx, id, Patch{"completed": done})
}

func (c *Client) DeleteSubtask(ctx context.Context, id string) (Result[struct{}], error) {
	return call[struct{}](ctx, c, http.MethodDelete, "/api/subtasks/"+escape(id), nil)
}

func (c *Client) ListNotes(ctx context.Context) (Result[[]dto.NoteResponse], error) {
	return call[[]dto.NoteResponse](ctx, c, http.MethodGet, "/api/notes", nil)
}

func (c *Client) CreateNote(ctx context.Context, in NewNote) (Result[dto.NoteResponse], error) {
	return call[dto.NoteResponse](ctx, c, http.MethodPost, "/api/notes", in)
}

func (c *Client) UpdateNote(ctx context.Context, id string, p Patch) (Result[dto.NoteResponse], error) {
	return call[dto.NoteResponse](ctx, c, http.MethodPatch, "/api/notes/"+escape(id), p)
}

func (c *Client) DeleteNote(ctx context.Context, id string) (Result[struct{}], error) {
	return call[struct{}](ctx, c, http.MethodDelete, "/api/notes/"+escape(id), nil)
}

func (c *Client) ReorderNotes(ctx context.Context, ids []string) (Result[struct{}], error) {
	return call[struct{}](ctx, c, http.MethodPatch, "/api/notes/reorder", reorder{IDs: ids})
}

// GetAnnouncement returns a nil Value when the owner has none.
func (c *Client) GetAnnouncement(ctx context.Context) (Result[*dto.AnnouncementResponse], error) {
	return call[*dto.AnnouncementResponse](ctx, c, http.MethodGet, "/api/announcement", nil)
}

func (c *Client) SetAnnouncement(ctx context.Context, msg string) (Result[dto.AnnouncementResponse], error) {
	return call[dto.AnnouncementResponse](ctx, c, http.MethodPut, "/api/announcement", message{Message: msg})
}

package handlers

import (
	dom "github.com/bryan-kier/productivity/internal/domain"
	"github.com/bryan-kier/productivity/internal/dto"
)

func categoryToResponse(c dom.Category) dto.CategoryResponse {
	return dto.CategoryResponse{ID: c.ID, Name: c.Name, UserID: c.UserID}
}

func taskToResponse(t dom.Task) dto.TaskResponse {
	return dto.TaskResponse{
		ID:            t.ID,
		Title:         t.Title,
		Completed:     t.Completed,
		CompletedAt:   t.CompletedAt,
		RefreshType:   string(t.RefreshType),
		CategoryID:    t.CategoryID,
		LastRefreshed: t.LastRefreshed,
		Deadline:      t.Deadline,
		Order:         t.Order,
		UserID:        t.UserID,
	}
}

func taskToListItem(t dom.Task) dto.TaskListItem {
	subs := make([]dto.SubtaskResponse, 0, len(t.Subtasks))
	for _, s := range t.Subtasks {
		subs = append(subs, subtaskToResponse(s))
	}
	return dto.TaskListItem{TaskResponse: taskToResponse(t), CategoryName: t.CategoryName, Subtasks: subs}
}

func subtaskToResponse(s dom.Subtask) dto.SubtaskResponse {
	return dto.SubtaskResponse{
		ID:          s.ID,
		Title:       s.Title,
		Completed:   s.Completed,
		CompletedAt: s.CompletedAt,
		TaskID:      s.TaskID,
		Deadline:    s.Deadline,
	}
}

func noteToResponse(n dom.Note) dto.NoteResponse {
	return dto.NoteResponse{
		ID:           n.ID,
		Title:        n.Title,
		Content:      n.Content,
		CategoryID:   n.CategoryID,
		Order:        n.Order,
		UserID:       n.UserID,
		CategoryName: n.CategoryName,
	}
}

func announcementToResponse(a dom.Announcement) dto.AnnouncementResponse {
	return dto.AnnouncementResponse{ID: a.ID, Message: a.Message, UpdatedAt: a.UpdatedAt, UserID: a.UserID}
}

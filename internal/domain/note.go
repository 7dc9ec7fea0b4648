package domain

import "time"

type Category struct {
	ID     string
	UserID string
	Name   string
}

type Note struct {
	ID         string
	UserID     string
	Title      string
	Content    string
	CategoryID *string
	Order      int

	CategoryName *string
}

// Announcement is the single banner message of an owner; the newest row wins.
type Announcement struct {
	ID        string
	UserID    string
	Message   string
	UpdatedAt time.Time
}

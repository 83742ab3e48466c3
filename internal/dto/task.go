package dto

import (
	"time"

	dom "Tasklist/internal/domain"
)

// TaskRequest is the JSON body for creating, updating or submitting a task.
// Emptiness and the date format are checked by the task store, after trimming.
type TaskRequest struct {
	Text string `json:"text"`
	Date string `json:"date"`
}

// FilterRequest is the JSON body for PUT /filter.
type FilterRequest struct {
	Filter string `json:"filter" binding:"required"`
}

type TaskResponse struct {
	ID        dom.TaskID `json:"id"`
	Text      string     `json:"text"`
	Date      string     `json:"date"`
	Completed bool       `json:"completed"`
	CreatedAt time.Time  `json:"createdAt"`
	Editing   bool       `json:"editing"`
}

type CountsResponse struct {
	Total     int `json:"total"`
	Active    int `json:"active"`
	Completed int `json:"completed"`
}

type ListTasksResponse struct {
	Filter  string         `json:"filter"`
	Editing *dom.TaskID    `json:"editing"`
	Counts  CountsResponse `json:"counts"`
	Items   []TaskResponse `json:"items"`
}

type FilterResponse struct {
	Filter string `json:"filter"`
}

type ClearResponse struct {
	Removed int `json:"removed"`
}

func NewTaskResponse(t dom.Task, editing bool) TaskResponse {
	return TaskResponse{
		ID:        t.ID,
		Text:      t.Text,
		Date:      t.Date,
		Completed: t.Completed,
		CreatedAt: t.CreatedAt,
		Editing:   editing,
	}
}

func NewCountsResponse(c dom.Counts) CountsResponse {
	return CountsResponse{Total: c.Total, Active: c.Active, Completed: c.Completed}
}

package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// DateLayout is the calendar date format of Task.Date.
const DateLayout = "2006-01-02"

// TaskID identifies a task. It is encoded as a JSON number and decoded
// from either a number or a numeric string.
type TaskID int64

func (id *TaskID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("task id %q: %w", s, err)
		}
		*id = TaskID(n)
		return nil
	}
	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("task id: %w", err)
	}
	*id = TaskID(n)
	return nil
}

func (id TaskID) String() string { return strconv.FormatInt(int64(id), 10) }

// ParseTaskID parses the decimal form produced by TaskID.String.
func ParseTaskID(s string) (TaskID, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid task id %q", s)
	}
	return TaskID(n), nil
}

// Task is a single to-do item.
// Text and Date change only through an update, Completed only through a toggle.
type Task struct {
	ID        TaskID    `json:"id"`
	Text      string    `json:"text"`
	Date      string    `json:"date"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"createdAt"`
}

// Valid reports whether t satisfies the stored-task invariants.
func (t Task) Valid() bool {
	return t.ID > 0 && t.Text != "" && ValidDate(t.Date)
}

// ValidDate reports whether s is a YYYY-MM-DD calendar date.
func ValidDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

// Counts summarizes a task sequence. Active+Completed always equals Total.
type Counts struct {
	Total     int `json:"total"`
	Active    int `json:"active"`
	Completed int `json:"completed"`
}

// CountTasks scans tasks once.
func CountTasks(tasks []Task) Counts {
	c := Counts{Total: len(tasks)}
	for _, t := range tasks {
		if t.Completed {
			c.Completed++
		} else {
			c.Active++
		}
	}
	return c
}

package tasks

import (
	"time"

	gtasks "google.golang.org/api/tasks/v1"
)

// Task statuses used by the API.
const (
	StatusNeedsAction = "needsAction"
	StatusCompleted   = "completed"
)

// TaskList describes one task list.
type TaskList struct {
	ID      string
	Title   string
	Updated time.Time
}

// Task is the flattened view of a task returned by reads.
type Task struct {
	ID        string
	Title     string
	Notes     string
	Status    string // "needsAction" or "completed"
	Due       time.Time
	Completed time.Time
	Parent    string
	Position  string
}

// TaskInput carries the fields for creating a task.
type TaskInput struct {
	Title  string
	Notes  string
	Due    time.Time
	Parent string // parent task ID, for subtasks
}

// toAPITask builds the wire representation of a task from input.
func toAPITask(input TaskInput) *gtasks.Task {
	t := &gtasks.Task{
		Title:  input.Title,
		Notes:  input.Notes,
		Parent: input.Parent,
	}
	if !input.Due.IsZero() {
		t.Due = input.Due.Format(time.RFC3339)
	}
	return t
}

// toTaskList converts a wire task list to TaskList.
func toTaskList(tl *gtasks.TaskList) TaskList {
	if tl == nil {
		return TaskList{}
	}

	result := TaskList{
		ID:    tl.Id,
		Title: tl.Title,
	}
	if tl.Updated != "" {
		if t, err := time.Parse(time.RFC3339, tl.Updated); err == nil {
			result.Updated = t
		}
	}
	return result
}

// toTask converts a wire task to Task.
func toTask(t *gtasks.Task) Task {
	if t == nil {
		return Task{}
	}

	result := Task{
		ID:       t.Id,
		Title:    t.Title,
		Notes:    t.Notes,
		Status:   t.Status,
		Parent:   t.Parent,
		Position: t.Position,
	}
	if t.Due != "" {
		if due, err := time.Parse(time.RFC3339, t.Due); err == nil {
			result.Due = due
		}
	}
	if t.Completed != nil && *t.Completed != "" {
		if completed, err := time.Parse(time.RFC3339, *t.Completed); err == nil {
			result.Completed = completed
		}
	}
	return result
}

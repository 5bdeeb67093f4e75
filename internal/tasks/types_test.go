package tasks

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	gtasks "google.golang.org/api/tasks/v1"
)

func TestToTaskNil(t *testing.T) {
	assert.Equal(t, Task{}, toTask(nil))
	assert.Equal(t, TaskList{}, toTaskList(nil))
}

func TestToTask(t *testing.T) {
	completed := "2026-08-25T12:00:00.000Z"
	task := toTask(&gtasks.Task{
		Id:        "task-1",
		Title:     "write report",
		Notes:     "due friday",
		Status:    StatusCompleted,
		Due:       "2026-08-28T00:00:00.000Z",
		Completed: &completed,
		Parent:    "task-0",
	})

	assert.Equal(t, "task-1", task.ID)
	assert.Equal(t, StatusCompleted, task.Status)
	assert.Equal(t, "task-0", task.Parent)
	assert.Equal(t, time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC), task.Due)
	assert.Equal(t, time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC), task.Completed)
}

func TestToTaskMalformedDatesIgnored(t *testing.T) {
	task := toTask(&gtasks.Task{Id: "task-1", Due: "not-a-date"})
	assert.True(t, task.Due.IsZero())
}

func TestToAPITask(t *testing.T) {
	wire := toAPITask(TaskInput{
		Title: "buy milk",
		Notes: "2 liters",
		Due:   time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC),
	})

	assert.Equal(t, "buy milk", wire.Title)
	assert.Equal(t, "2026-08-26T00:00:00Z", wire.Due)

	wire = toAPITask(TaskInput{Title: "no due date"})
	assert.Empty(t, wire.Due)
}

func TestToTaskList(t *testing.T) {
	tl := toTaskList(&gtasks.TaskList{
		Id:      "list-1",
		Title:   "Inbox",
		Updated: "2026-08-25T08:00:00.000Z",
	})

	assert.Equal(t, "list-1", tl.ID)
	assert.Equal(t, "Inbox", tl.Title)
	assert.Equal(t, time.Date(2026, 8, 25, 8, 0, 0, 0, time.UTC), tl.Updated)
}

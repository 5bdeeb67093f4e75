package tasks_tools

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/calbridge/calbridge/internal/server"
	"github.com/calbridge/calbridge/internal/tasks"
	"github.com/calbridge/calbridge/internal/tools/batch"
	"github.com/calbridge/calbridge/internal/tools/common"
)

// RegisterTasksTools registers all Tasks-related tools with the MCP
// server. With readOnly set, mutating tools are left unregistered.
func RegisterTasksTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	listTaskListsTool := mcp.NewTool("tasks_list_task_lists",
		mcp.WithDescription("List all task lists of the account"),
	)

	s.AddTool(listTaskListsTool, common.InstrumentedToolHandler("tasks_list_task_lists", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleListTaskLists(ctx, request, sc)
		}))

	listTasksTool := mcp.NewTool("tasks_list_tasks",
		mcp.WithDescription("List tasks in a task list"),
		mcp.WithString("taskListId",
			mcp.Required(),
			mcp.Description("The ID of the task list"),
		),
		mcp.WithBoolean("showCompleted",
			mcp.Description("Include completed and hidden tasks"),
		),
	)

	s.AddTool(listTasksTool, common.InstrumentedToolHandler("tasks_list_tasks", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleListTasks(ctx, request, sc)
		}))

	if readOnly {
		return nil
	}

	ensureTaskListTool := mcp.NewTool("tasks_ensure_task_list",
		mcp.WithDescription("Find a task list by its title, creating it when missing, and return its ID"),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("The task list title to look up or create"),
		),
	)

	s.AddTool(ensureTaskListTool, common.InstrumentedToolHandler("tasks_ensure_task_list", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleEnsureTaskList(ctx, request, sc)
		}))

	createTaskTool := mcp.NewTool("tasks_create_task",
		mcp.WithDescription("Create a new task in a task list"),
		mcp.WithString("taskListId",
			mcp.Required(),
			mcp.Description("The ID of the task list"),
		),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Task title"),
		),
		mcp.WithString("notes",
			mcp.Description("Task notes"),
		),
		mcp.WithString("due",
			mcp.Description("Due date (RFC3339 format; only the date portion is significant)"),
		),
		mcp.WithString("parent",
			mcp.Description("Parent task ID, to create a subtask"),
		),
	)

	s.AddTool(createTaskTool, common.InstrumentedToolHandler("tasks_create_task", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleCreateTask(ctx, request, sc)
		}))

	completeTaskTool := mcp.NewTool("tasks_complete_task",
		mcp.WithDescription("Mark one or more tasks as completed"),
		mcp.WithString("taskListId",
			mcp.Required(),
			mcp.Description("The ID of the task list"),
		),
		mcp.WithString("taskId",
			mcp.Required(),
			mcp.Description("Task ID, or a JSON array of task IDs to complete in one call"),
		),
	)

	s.AddTool(completeTaskTool, common.InstrumentedToolHandler("tasks_complete_task", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleCompleteTask(ctx, request, sc)
		}))

	deleteTaskTool := mcp.NewTool("tasks_delete_task",
		mcp.WithDescription("Delete one or more tasks"),
		mcp.WithString("taskListId",
			mcp.Required(),
			mcp.Description("The ID of the task list"),
		),
		mcp.WithString("taskId",
			mcp.Required(),
			mcp.Description("Task ID, or a JSON array of task IDs to delete in one call"),
		),
	)

	s.AddTool(deleteTaskTool, common.InstrumentedToolHandler("tasks_delete_task", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleDeleteTask(ctx, request, sc)
		}))

	return nil
}

func handleListTaskLists(ctx context.Context, _ mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	lists, err := sc.TasksClient().ListTaskLists(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list task lists: %v", err)), nil
	}

	result := fmt.Sprintf("Found %d task lists:\n\n", len(lists))
	for i, list := range lists {
		result += fmt.Sprintf("%d. %s\n", i+1, list.Title)
		result += fmt.Sprintf("   ID: %s\n", list.ID)
		if !list.Updated.IsZero() {
			result += fmt.Sprintf("   Updated: %s\n", list.Updated.Format(time.RFC3339))
		}
		result += "\n"
	}

	return mcp.NewToolResultText(result), nil
}

func handleListTasks(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	listID, ok := common.StringArg(args, "taskListId")
	if !ok {
		return mcp.NewToolResultError("taskListId is required"), nil
	}
	showCompleted := common.BoolArg(args, "showCompleted")

	taskItems, err := sc.TasksClient().ListTasks(ctx, listID, showCompleted)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list tasks: %v", err)), nil
	}

	result := fmt.Sprintf("Found %d tasks:\n\n", len(taskItems))
	for i, task := range taskItems {
		result += fmt.Sprintf("%d. %s\n", i+1, task.Title)
		result += fmt.Sprintf("   ID: %s\n", task.ID)
		result += fmt.Sprintf("   Status: %s\n", task.Status)
		if task.Notes != "" {
			result += fmt.Sprintf("   Notes: %s\n", task.Notes)
		}
		if !task.Due.IsZero() {
			result += fmt.Sprintf("   Due: %s\n", task.Due.Format("2006-01-02"))
		}
		if !task.Completed.IsZero() {
			result += fmt.Sprintf("   Completed: %s\n", task.Completed.Format(time.RFC3339))
		}
		if task.Parent != "" {
			result += fmt.Sprintf("   Parent: %s\n", task.Parent)
		}
		result += "\n"
	}

	return mcp.NewToolResultText(result), nil
}

func handleEnsureTaskList(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	title, ok := common.StringArg(args, "title")
	if !ok {
		return mcp.NewToolResultError("title is required"), nil
	}

	id, err := sc.TasksClient().GetOrCreateTaskList(ctx, title)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to ensure task list: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Task list %q has ID %s", title, id)), nil
}

func handleCreateTask(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	listID, ok := common.StringArg(args, "taskListId")
	if !ok {
		return mcp.NewToolResultError("taskListId is required"), nil
	}
	title, ok := common.StringArg(args, "title")
	if !ok {
		return mcp.NewToolResultError("title is required"), nil
	}

	due, err := common.TimeArg(args, "due")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid due format: %v", err)), nil
	}

	input := tasks.TaskInput{
		Title:  title,
		Notes:  common.StringArgOrDefault(args, "notes", ""),
		Due:    due,
		Parent: common.StringArgOrDefault(args, "parent", ""),
	}

	task, err := sc.TasksClient().CreateTask(ctx, listID, input)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to create task: %v", err)), nil
	}

	result := fmt.Sprintf("Successfully created task: %s\n", task.Title)
	result += fmt.Sprintf("ID: %s\n", task.ID)
	if !task.Due.IsZero() {
		result += fmt.Sprintf("Due: %s\n", task.Due.Format("2006-01-02"))
	}

	return mcp.NewToolResultText(result), nil
}

func handleCompleteTask(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	listID, ok := common.StringArg(args, "taskListId")
	if !ok {
		return mcp.NewToolResultError("taskListId is required"), nil
	}

	taskIDs, err := batch.ParseStringOrArray(args["taskId"], "taskId")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	results := batch.Process(ctx, taskIDs, func(ctx context.Context, taskID string) (string, error) {
		task, err := sc.TasksClient().CompleteTask(ctx, listID, taskID)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("completed %q", task.Title), nil
	})

	return mcp.NewToolResultText(batch.FormatResults(results)), nil
}

func handleDeleteTask(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	listID, ok := common.StringArg(args, "taskListId")
	if !ok {
		return mcp.NewToolResultError("taskListId is required"), nil
	}

	taskIDs, err := batch.ParseStringOrArray(args["taskId"], "taskId")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	results := batch.Process(ctx, taskIDs, func(ctx context.Context, taskID string) (string, error) {
		if err := sc.TasksClient().DeleteTask(ctx, listID, taskID); err != nil {
			return "", err
		}
		return "deleted", nil
	})

	return mcp.NewToolResultText(batch.FormatResults(results)), nil
}

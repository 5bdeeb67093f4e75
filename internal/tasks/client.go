package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/option"
	gtasks "google.golang.org/api/tasks/v1"

	"github.com/calbridge/calbridge/internal/apierr"
	"github.com/calbridge/calbridge/internal/batch"
	"github.com/calbridge/calbridge/internal/cache"
	"github.com/calbridge/calbridge/internal/coalesce"
	"github.com/calbridge/calbridge/internal/config"
	"github.com/calbridge/calbridge/internal/instrumentation"
	"github.com/calbridge/calbridge/internal/logging"
	"github.com/calbridge/calbridge/internal/retry"
)

// Scope required for tasks operations.
const Scope = gtasks.TasksScope

// Operation names used for cache keys, logging and metrics.
const (
	opListTaskLists   = "tasks.listTaskLists"
	opListTasks       = "tasks.listTasks"
	opInsertTaskList  = "tasks.insertTaskList"
	opTaskListByTitle = "tasks.taskListByTitle"
	opCreateTask      = "tasks.createTask"
	opCompleteTask    = "tasks.completeTask"
	opDeleteTask      = "tasks.deleteTask"
)

const (
	cacheHit  = "hit"
	cacheMiss = "miss"
)

// Deps bundles the resilience core a Client routes through. Coalescer,
// Executor and Batch are required; the rest default sensibly.
type Deps struct {
	Coalescer *coalesce.Group
	Executor  *retry.Executor
	Batch     *batch.Queue
	Metrics   *instrumentation.Metrics
	Logger    *slog.Logger

	// ListTTL caches task reads; LookupTTL caches the task-list index.
	ListTTL   time.Duration
	LookupTTL time.Duration
}

func (d *Deps) normalize() error {
	if d.Coalescer == nil || d.Executor == nil || d.Batch == nil {
		return fmt.Errorf("tasks client requires coalescer, executor and batch queue")
	}
	if d.Metrics == nil {
		d.Metrics = &instrumentation.Metrics{}
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.ListTTL <= 0 {
		d.ListTTL = config.DefaultListTTL
	}
	if d.LookupTTL <= 0 {
		d.LookupTTL = config.DefaultLookupTTL
	}
	return nil
}

// Client routes Google Tasks operations through the resilience core.
type Client struct {
	svc  *gtasks.Service
	deps Deps
}

// New creates a Client authenticated by ts. Extra client options are
// appended after the token source, so tests can point the service at a
// local server.
func New(ctx context.Context, ts oauth2.TokenSource, deps Deps, extra ...option.ClientOption) (*Client, error) {
	if err := deps.normalize(); err != nil {
		return nil, err
	}

	var opts []option.ClientOption
	if ts != nil {
		opts = append(opts, option.WithTokenSource(ts))
	}
	opts = append(opts, extra...)

	svc, err := gtasks.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Tasks service: %w", err)
	}

	return &Client{
		svc:  svc,
		deps: deps,
	}, nil
}

func (c *Client) observe(ctx context.Context, op string, start time.Time, err error) {
	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
	}
	c.deps.Metrics.RecordAPIOperation(ctx, instrumentation.ServiceTasks, op, status, time.Since(start))
}

// ListTaskLists returns the account's task lists, cached with the
// lookup TTL.
func (c *Client) ListTaskLists(ctx context.Context) ([]TaskList, error) {
	key := cache.Key(opListTaskLists)

	if v, ok := c.deps.Coalescer.Cache().Get(key); ok {
		c.deps.Metrics.RecordCacheLookup(ctx, opListTaskLists, cacheHit)
		return v.([]TaskList), nil
	}
	c.deps.Metrics.RecordCacheLookup(ctx, opListTaskLists, cacheMiss)

	return coalesce.Do(c.deps.Coalescer, ctx, key, c.deps.LookupTTL, func(ctx context.Context) ([]TaskList, error) {
		return retry.RunValue(c.deps.Executor, ctx, opListTaskLists, func(ctx context.Context) ([]TaskList, error) {
			start := time.Now()
			result, err := c.svc.Tasklists.List().Context(ctx).Do()
			c.observe(ctx, opListTaskLists, start, err)
			if err != nil {
				return nil, fmt.Errorf("failed to list task lists: %w", err)
			}

			lists := make([]TaskList, 0, len(result.Items))
			for _, tl := range result.Items {
				lists = append(lists, toTaskList(tl))
			}
			return lists, nil
		})
	})
}

// ListTasks returns the pending tasks of listID, cached with the list
// TTL. Completed tasks are included when showCompleted is set.
func (c *Client) ListTasks(ctx context.Context, listID string, showCompleted bool) ([]Task, error) {
	key := cache.Key(opListTasks, listID, fmt.Sprintf("completed=%t", showCompleted))

	if v, ok := c.deps.Coalescer.Cache().Get(key); ok {
		c.deps.Metrics.RecordCacheLookup(ctx, opListTasks, cacheHit)
		return v.([]Task), nil
	}
	c.deps.Metrics.RecordCacheLookup(ctx, opListTasks, cacheMiss)

	return coalesce.Do(c.deps.Coalescer, ctx, key, c.deps.ListTTL, func(ctx context.Context) ([]Task, error) {
		return retry.RunValue(c.deps.Executor, ctx, opListTasks, func(ctx context.Context) ([]Task, error) {
			start := time.Now()
			call := c.svc.Tasks.List(listID)
			if showCompleted {
				call = call.ShowCompleted(true).ShowHidden(true)
			}
			result, err := call.Context(ctx).Do()
			c.observe(ctx, opListTasks, start, err)
			if err != nil {
				return nil, fmt.Errorf("failed to list tasks: %w", err)
			}

			items := make([]Task, 0, len(result.Items))
			for _, t := range result.Items {
				items = append(items, toTask(t))
			}
			return items, nil
		})
	})
}

// GetOrCreateTaskList resolves a task list by title, inserting a new
// list when none matches. The resolved ID is cached without expiry.
func (c *Client) GetOrCreateTaskList(ctx context.Context, title string) (string, error) {
	key := cache.Key(opTaskListByTitle, title)
	if v, ok := c.deps.Coalescer.Cache().Get(key); ok {
		c.deps.Metrics.RecordCacheLookup(ctx, opTaskListByTitle, cacheHit)
		return v.(string), nil
	}
	c.deps.Metrics.RecordCacheLookup(ctx, opTaskListByTitle, cacheMiss)

	lists, err := c.ListTaskLists(ctx)
	if err != nil {
		return "", err
	}
	for _, tl := range lists {
		if tl.Title == title {
			c.deps.Coalescer.Cache().Set(key, tl.ID, 0)
			return tl.ID, nil
		}
	}

	created, err := retry.RunValue(c.deps.Executor, ctx, opInsertTaskList, func(ctx context.Context) (*gtasks.TaskList, error) {
		start := time.Now()
		tl, err := c.svc.Tasklists.Insert(&gtasks.TaskList{Title: title}).Context(ctx).Do()
		c.observe(ctx, opInsertTaskList, start, err)
		if err != nil {
			return nil, fmt.Errorf("failed to insert task list: %w", err)
		}
		return tl, nil
	})
	if err != nil {
		return "", err
	}

	c.deps.Coalescer.Cache().Set(key, created.Id, 0)
	c.deps.Coalescer.Cache().Invalidate(cache.Key(opListTaskLists))
	c.deps.Logger.Info("created task list",
		logging.Operation(opInsertTaskList),
		slog.String(logging.KeyTaskList, created.Id),
	)
	return created.Id, nil
}

// CreateTask creates a task through the write batch. On success the
// cached task reads for listID are invalidated.
func (c *Client) CreateTask(ctx context.Context, listID string, input TaskInput) (*Task, error) {
	result := c.deps.Batch.Enqueue(opCreateTask, func(ctx context.Context) (any, error) {
		start := time.Now()
		call := c.svc.Tasks.Insert(listID, toAPITask(input))
		if input.Parent != "" {
			call = call.Parent(input.Parent)
		}
		created, err := call.Context(ctx).Do()
		c.observe(ctx, opCreateTask, start, err)
		if err != nil {
			return nil, fmt.Errorf("failed to create task: %w", err)
		}
		t := toTask(created)
		return &t, nil
	})

	res, err := c.await(ctx, result)
	if err != nil {
		return nil, err
	}
	c.invalidateTasks(listID)
	return res.(*Task), nil
}

// CompleteTask marks a task completed through the write batch.
func (c *Client) CompleteTask(ctx context.Context, listID, taskID string) (*Task, error) {
	result := c.deps.Batch.Enqueue(opCompleteTask, func(ctx context.Context) (any, error) {
		start := time.Now()
		existing, err := c.svc.Tasks.Get(listID, taskID).Context(ctx).Do()
		if err != nil {
			c.observe(ctx, opCompleteTask, start, err)
			return nil, fmt.Errorf("failed to get task: %w", err)
		}

		existing.Status = StatusCompleted
		updated, err := c.svc.Tasks.Update(listID, taskID, existing).Context(ctx).Do()
		c.observe(ctx, opCompleteTask, start, err)
		if err != nil {
			return nil, fmt.Errorf("failed to complete task: %w", err)
		}
		t := toTask(updated)
		return &t, nil
	})

	res, err := c.await(ctx, result)
	if err != nil {
		return nil, err
	}
	c.invalidateTasks(listID)
	return res.(*Task), nil
}

// DeleteTask deletes a task through the write batch. Deleting a task
// that does not exist is not an error.
func (c *Client) DeleteTask(ctx context.Context, listID, taskID string) error {
	result := c.deps.Batch.Enqueue(opDeleteTask, func(ctx context.Context) (any, error) {
		start := time.Now()
		err := c.svc.Tasks.Delete(listID, taskID).Context(ctx).Do()
		c.observe(ctx, opDeleteTask, start, err)
		if err != nil {
			return nil, fmt.Errorf("failed to delete task: %w", err)
		}
		return nil, nil
	})

	_, err := c.await(ctx, result)
	if err != nil && !apierr.IsNotFound(err) {
		return err
	}
	c.invalidateTasks(listID)
	return nil
}

func (c *Client) await(ctx context.Context, result <-chan batch.Result) (any, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-result:
		return res.Value, res.Err
	}
}

func (c *Client) invalidateTasks(listID string) {
	c.deps.Coalescer.Cache().Invalidate(cache.Key(opListTasks, listID))
}

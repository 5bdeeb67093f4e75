package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/calbridge/calbridge/internal/apierr"
	"github.com/calbridge/calbridge/internal/batch"
	"github.com/calbridge/calbridge/internal/cache"
	"github.com/calbridge/calbridge/internal/coalesce"
	"github.com/calbridge/calbridge/internal/config"
	"github.com/calbridge/calbridge/internal/instrumentation"
	"github.com/calbridge/calbridge/internal/logging"
	"github.com/calbridge/calbridge/internal/retry"
)

// Scope required for calendar operations.
const Scope = gcal.CalendarScope

// Operation names used for cache keys, logging and metrics.
const (
	opListEvents        = "calendar.listEvents"
	opGetEvent          = "calendar.getEvent"
	opCreateEvent       = "calendar.createEvent"
	opUpdateEvent       = "calendar.updateEvent"
	opDeleteEvent       = "calendar.deleteEvent"
	opListCalendars     = "calendar.listCalendars"
	opInsertCalendar    = "calendar.insertCalendar"
	opCalendarBySummary = "calendar.calendarBySummary"
	opQueryFreeBusy     = "calendar.queryFreeBusy"
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

	// ListTTL caches event lists; LookupTTL caches the calendar list.
	ListTTL   time.Duration
	LookupTTL time.Duration
}

func (d *Deps) normalize() error {
	if d.Coalescer == nil || d.Executor == nil || d.Batch == nil {
		return fmt.Errorf("calendar client requires coalescer, executor and batch queue")
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

// Client routes Google Calendar operations through the resilience core.
type Client struct {
	svc  *gcal.Service
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

	svc, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}

	return &Client{
		svc:  svc,
		deps: deps,
	}, nil
}

// observe records one finished API call.
func (c *Client) observe(ctx context.Context, op string, start time.Time, err error) {
	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
	}
	c.deps.Metrics.RecordAPIOperation(ctx, instrumentation.ServiceCalendar, op, status, time.Since(start))
}

// ListEvents returns the events of calendarID between timeMin and
// timeMax, expanded to single instances and ordered by start time.
// Results are cached and concurrent identical calls share one fetch.
func (c *Client) ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]EventSummary, error) {
	key := cache.Key(opListEvents, calendarID,
		timeMin.UTC().Format(time.RFC3339), timeMax.UTC().Format(time.RFC3339))

	if v, ok := c.deps.Coalescer.Cache().Get(key); ok {
		c.deps.Metrics.RecordCacheLookup(ctx, opListEvents, cacheHit)
		return v.([]EventSummary), nil
	}
	c.deps.Metrics.RecordCacheLookup(ctx, opListEvents, cacheMiss)

	return coalesce.Do(c.deps.Coalescer, ctx, key, c.deps.ListTTL, func(ctx context.Context) ([]EventSummary, error) {
		return retry.RunValue(c.deps.Executor, ctx, opListEvents, func(ctx context.Context) ([]EventSummary, error) {
			start := time.Now()
			events, err := c.svc.Events.List(calendarID).
				TimeMin(timeMin.Format(time.RFC3339)).
				TimeMax(timeMax.Format(time.RFC3339)).
				SingleEvents(true).
				OrderBy("startTime").
				Context(ctx).
				Do()
			c.observe(ctx, opListEvents, start, err)
			if err != nil {
				return nil, fmt.Errorf("failed to list events: %w", err)
			}

			summaries := make([]EventSummary, 0, len(events.Items))
			for _, event := range events.Items {
				summaries = append(summaries, toEventSummary(event))
			}
			return summaries, nil
		})
	})
}

// GetEvent retrieves a single event. A missing event returns (nil, nil).
func (c *Client) GetEvent(ctx context.Context, calendarID, eventID string) (*EventSummary, error) {
	key := cache.Key(opGetEvent, calendarID, eventID)

	if v, ok := c.deps.Coalescer.Cache().Get(key); ok {
		c.deps.Metrics.RecordCacheLookup(ctx, opGetEvent, cacheHit)
		return v.(*EventSummary), nil
	}
	c.deps.Metrics.RecordCacheLookup(ctx, opGetEvent, cacheMiss)

	summary, err := coalesce.Do(c.deps.Coalescer, ctx, key, c.deps.ListTTL, func(ctx context.Context) (*EventSummary, error) {
		return retry.RunValue(c.deps.Executor, ctx, opGetEvent, func(ctx context.Context) (*EventSummary, error) {
			start := time.Now()
			event, err := c.svc.Events.Get(calendarID, eventID).Context(ctx).Do()
			c.observe(ctx, opGetEvent, start, err)
			if err != nil {
				return nil, fmt.Errorf("failed to get event: %w", err)
			}
			s := toEventSummary(event)
			return &s, nil
		})
	})
	if apierr.IsNotFound(err) {
		return nil, nil
	}
	return summary, err
}

// CreateEvent creates an event through the write batch. On success the
// cached event lists for calendarID are invalidated.
func (c *Client) CreateEvent(ctx context.Context, calendarID string, input EventInput) (*EventSummary, error) {
	result := c.deps.Batch.Enqueue(opCreateEvent, func(ctx context.Context) (any, error) {
		start := time.Now()
		created, err := c.svc.Events.Insert(calendarID, toAPIEvent(input)).Context(ctx).Do()
		c.observe(ctx, opCreateEvent, start, err)
		if err != nil {
			return nil, fmt.Errorf("failed to create event: %w", err)
		}
		s := toEventSummary(created)
		return &s, nil
	})

	res, err := c.await(ctx, result)
	if err != nil {
		return nil, err
	}
	c.invalidateEvents(calendarID)
	c.deps.Logger.Debug("event created",
		logging.Operation(opCreateEvent),
		slog.String(logging.KeyCalendar, calendarID),
	)
	return res.(*EventSummary), nil
}

// UpdateEvent applies the non-zero fields of input to an existing event
// through the write batch.
func (c *Client) UpdateEvent(ctx context.Context, calendarID, eventID string, input EventInput) (*EventSummary, error) {
	result := c.deps.Batch.Enqueue(opUpdateEvent, func(ctx context.Context) (any, error) {
		start := time.Now()
		existing, err := c.svc.Events.Get(calendarID, eventID).Context(ctx).Do()
		if err != nil {
			c.observe(ctx, opUpdateEvent, start, err)
			return nil, fmt.Errorf("failed to get existing event: %w", err)
		}
		applyEventInput(existing, input)

		updated, err := c.svc.Events.Update(calendarID, eventID, existing).Context(ctx).Do()
		c.observe(ctx, opUpdateEvent, start, err)
		if err != nil {
			return nil, fmt.Errorf("failed to update event: %w", err)
		}
		s := toEventSummary(updated)
		return &s, nil
	})

	res, err := c.await(ctx, result)
	if err != nil {
		return nil, err
	}
	c.invalidateEvents(calendarID)
	return res.(*EventSummary), nil
}

// DeleteEvent deletes an event through the write batch. Deleting an
// event that does not exist is not an error.
func (c *Client) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	result := c.deps.Batch.Enqueue(opDeleteEvent, func(ctx context.Context) (any, error) {
		start := time.Now()
		err := c.svc.Events.Delete(calendarID, eventID).Context(ctx).Do()
		c.observe(ctx, opDeleteEvent, start, err)
		if err != nil {
			return nil, fmt.Errorf("failed to delete event: %w", err)
		}
		return nil, nil
	})

	_, err := c.await(ctx, result)
	if err != nil && !apierr.IsNotFound(err) {
		return err
	}
	c.invalidateEvents(calendarID)
	return nil
}

// ListCalendars returns the calendars visible to the account, cached
// with the lookup TTL.
func (c *Client) ListCalendars(ctx context.Context) ([]CalendarInfo, error) {
	key := cache.Key(opListCalendars)

	if v, ok := c.deps.Coalescer.Cache().Get(key); ok {
		c.deps.Metrics.RecordCacheLookup(ctx, opListCalendars, cacheHit)
		return v.([]CalendarInfo), nil
	}
	c.deps.Metrics.RecordCacheLookup(ctx, opListCalendars, cacheMiss)

	return coalesce.Do(c.deps.Coalescer, ctx, key, c.deps.LookupTTL, func(ctx context.Context) ([]CalendarInfo, error) {
		return retry.RunValue(c.deps.Executor, ctx, opListCalendars, func(ctx context.Context) ([]CalendarInfo, error) {
			start := time.Now()
			list, err := c.svc.CalendarList.List().Context(ctx).Do()
			c.observe(ctx, opListCalendars, start, err)
			if err != nil {
				return nil, fmt.Errorf("failed to list calendars: %w", err)
			}

			calendars := make([]CalendarInfo, 0, len(list.Items))
			for _, entry := range list.Items {
				calendars = append(calendars, toCalendarInfo(entry))
			}
			return calendars, nil
		})
	})
}

// GetOrCreateCalendar resolves a calendar by its summary, inserting a
// new secondary calendar when none matches. The resolved ID is cached
// without expiry; only an explicit invalidation drops it.
func (c *Client) GetOrCreateCalendar(ctx context.Context, summary string) (string, error) {
	key := cache.Key(opCalendarBySummary, summary)
	if v, ok := c.deps.Coalescer.Cache().Get(key); ok {
		c.deps.Metrics.RecordCacheLookup(ctx, opCalendarBySummary, cacheHit)
		return v.(string), nil
	}
	c.deps.Metrics.RecordCacheLookup(ctx, opCalendarBySummary, cacheMiss)

	calendars, err := c.ListCalendars(ctx)
	if err != nil {
		return "", err
	}
	for _, cal := range calendars {
		if cal.Summary == summary {
			c.deps.Coalescer.Cache().Set(key, cal.ID, 0)
			return cal.ID, nil
		}
	}

	created, err := retry.RunValue(c.deps.Executor, ctx, opInsertCalendar, func(ctx context.Context) (*gcal.Calendar, error) {
		start := time.Now()
		cal, err := c.svc.Calendars.Insert(&gcal.Calendar{Summary: summary}).Context(ctx).Do()
		c.observe(ctx, opInsertCalendar, start, err)
		if err != nil {
			return nil, fmt.Errorf("failed to insert calendar: %w", err)
		}
		return cal, nil
	})
	if err != nil {
		return "", err
	}

	c.deps.Coalescer.Cache().Set(key, created.Id, 0)
	c.deps.Coalescer.Cache().Invalidate(cache.Key(opListCalendars))
	c.deps.Logger.Info("created calendar",
		logging.Operation(opInsertCalendar),
		slog.String(logging.KeyCalendar, created.Id),
	)
	return created.Id, nil
}

// QueryFreeBusy returns the busy intervals of the given calendars in
// [timeMin, timeMax].
func (c *Client) QueryFreeBusy(ctx context.Context, timeMin, timeMax time.Time, calendarIDs []string) ([]FreeBusyInfo, error) {
	items := make([]*gcal.FreeBusyRequestItem, len(calendarIDs))
	for i, id := range calendarIDs {
		items[i] = &gcal.FreeBusyRequestItem{Id: id}
	}
	query := &gcal.FreeBusyRequest{
		TimeMin: timeMin.Format(time.RFC3339),
		TimeMax: timeMax.Format(time.RFC3339),
		Items:   items,
	}

	return retry.RunValue(c.deps.Executor, ctx, opQueryFreeBusy, func(ctx context.Context) ([]FreeBusyInfo, error) {
		start := time.Now()
		result, err := c.svc.Freebusy.Query(query).Context(ctx).Do()
		c.observe(ctx, opQueryFreeBusy, start, err)
		if err != nil {
			return nil, fmt.Errorf("failed to query freebusy: %w", err)
		}

		var infos []FreeBusyInfo
		for calID, cal := range result.Calendars {
			info := FreeBusyInfo{Calendar: calID}
			for _, busy := range cal.Busy {
				s, _ := time.Parse(time.RFC3339, busy.Start)
				e, _ := time.Parse(time.RFC3339, busy.End)
				info.Busy = append(info.Busy, TimeRange{Start: s, End: e})
			}
			for _, calErr := range cal.Errors {
				info.Errors = append(info.Errors, calErr.Reason)
			}
			infos = append(infos, info)
		}
		return infos, nil
	})
}

// await blocks until a batched operation settles or ctx is cancelled.
func (c *Client) await(ctx context.Context, result <-chan batch.Result) (any, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-result:
		return res.Value, res.Err
	}
}

// invalidateEvents drops every cached read for calendarID.
func (c *Client) invalidateEvents(calendarID string) {
	c.deps.Coalescer.Cache().Invalidate(cache.Key(opListEvents, calendarID))
	c.deps.Coalescer.Cache().Invalidate(cache.Key(opGetEvent, calendarID))
}

package calendar

import (
	"time"

	gcal "google.golang.org/api/calendar/v3"
)

const allDayFormat = "2006-01-02"

// EventInput carries the fields for creating or updating an event.
// Zero-valued fields are left untouched on update.
type EventInput struct {
	Summary     string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
	TimeZone    string
	AllDay      bool
	Attendees   []string
	Recurrence  []string // RRULE, EXRULE, RDATE, EXDATE
}

// EventSummary is the flattened view of a calendar event returned by
// reads.
type EventSummary struct {
	ID          string
	Summary     string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
	AllDay      bool
	Status      string
	Creator     string
	Organizer   string
	Attendees   []AttendeeInfo
	HTMLLink    string
}

// AttendeeInfo describes one event attendee.
type AttendeeInfo struct {
	Email          string
	DisplayName    string
	ResponseStatus string // "needsAction", "declined", "tentative", "accepted"
	Optional       bool
	Organizer      bool
}

// CalendarInfo describes a calendar visible to the account.
type CalendarInfo struct {
	ID          string
	Summary     string
	Description string
	TimeZone    string
	Primary     bool
	AccessRole  string // "owner", "writer", "reader", "freeBusyReader"
}

// FreeBusyInfo holds the busy intervals reported for one calendar.
type FreeBusyInfo struct {
	Calendar string
	Busy     []TimeRange
	Errors   []string
}

// TimeRange is a half-open [Start, End) interval.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// toAPIEvent builds the wire representation of an event from input.
func toAPIEvent(input EventInput) *gcal.Event {
	event := &gcal.Event{
		Summary:     input.Summary,
		Description: input.Description,
		Location:    input.Location,
	}
	setEventTimes(event, input)

	for _, email := range input.Attendees {
		event.Attendees = append(event.Attendees, &gcal.EventAttendee{Email: email})
	}
	if len(input.Recurrence) > 0 {
		event.Recurrence = input.Recurrence
	}
	return event
}

// applyEventInput copies the non-zero fields of input onto an existing
// wire event, for updates.
func applyEventInput(event *gcal.Event, input EventInput) {
	if input.Summary != "" {
		event.Summary = input.Summary
	}
	if input.Description != "" {
		event.Description = input.Description
	}
	if input.Location != "" {
		event.Location = input.Location
	}
	if !input.Start.IsZero() || !input.End.IsZero() {
		setEventTimes(event, input)
	}
	if len(input.Attendees) > 0 {
		event.Attendees = nil
		for _, email := range input.Attendees {
			event.Attendees = append(event.Attendees, &gcal.EventAttendee{Email: email})
		}
	}
	if len(input.Recurrence) > 0 {
		event.Recurrence = input.Recurrence
	}
}

func setEventTimes(event *gcal.Event, input EventInput) {
	if input.AllDay {
		if !input.Start.IsZero() {
			event.Start = &gcal.EventDateTime{Date: input.Start.Format(allDayFormat)}
		}
		if !input.End.IsZero() {
			event.End = &gcal.EventDateTime{Date: input.End.Format(allDayFormat)}
		}
		return
	}

	tz := input.TimeZone
	if tz == "" {
		tz = "UTC"
	}
	if !input.Start.IsZero() {
		event.Start = &gcal.EventDateTime{
			DateTime: input.Start.Format(time.RFC3339),
			TimeZone: tz,
		}
	}
	if !input.End.IsZero() {
		event.End = &gcal.EventDateTime{
			DateTime: input.End.Format(time.RFC3339),
			TimeZone: tz,
		}
	}
}

// toEventSummary converts a wire event to an EventSummary.
func toEventSummary(event *gcal.Event) EventSummary {
	if event == nil {
		return EventSummary{}
	}

	summary := EventSummary{
		ID:          event.Id,
		Summary:     event.Summary,
		Description: event.Description,
		Location:    event.Location,
		Status:      event.Status,
		HTMLLink:    event.HtmlLink,
	}

	if event.Start != nil {
		summary.Start, summary.AllDay = parseEventTime(event.Start)
	}
	if event.End != nil {
		summary.End, _ = parseEventTime(event.End)
	}

	if event.Creator != nil {
		summary.Creator = event.Creator.Email
	}
	if event.Organizer != nil {
		summary.Organizer = event.Organizer.Email
	}

	for _, att := range event.Attendees {
		summary.Attendees = append(summary.Attendees, AttendeeInfo{
			Email:          att.Email,
			DisplayName:    att.DisplayName,
			ResponseStatus: att.ResponseStatus,
			Optional:       att.Optional,
			Organizer:      att.Organizer,
		})
	}

	return summary
}

func parseEventTime(edt *gcal.EventDateTime) (t time.Time, allDay bool) {
	if edt.DateTime != "" {
		parsed, err := time.Parse(time.RFC3339, edt.DateTime)
		if err == nil {
			return parsed, false
		}
		return time.Time{}, false
	}
	if edt.Date != "" {
		parsed, err := time.Parse(allDayFormat, edt.Date)
		if err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

// toCalendarInfo converts a calendar list entry to CalendarInfo.
func toCalendarInfo(entry *gcal.CalendarListEntry) CalendarInfo {
	if entry == nil {
		return CalendarInfo{}
	}
	return CalendarInfo{
		ID:          entry.Id,
		Summary:     entry.Summary,
		Description: entry.Description,
		TimeZone:    entry.TimeZone,
		Primary:     entry.Primary,
		AccessRole:  entry.AccessRole,
	}
}

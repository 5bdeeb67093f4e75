package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gcal "google.golang.org/api/calendar/v3"
)

func TestToEventSummaryNil(t *testing.T) {
	assert.Equal(t, EventSummary{}, toEventSummary(nil))
}

func TestToEventSummaryTimedEvent(t *testing.T) {
	summary := toEventSummary(&gcal.Event{
		Id:      "evt-1",
		Summary: "standup",
		Status:  "confirmed",
		Start:   &gcal.EventDateTime{DateTime: "2026-08-25T09:00:00Z"},
		End:     &gcal.EventDateTime{DateTime: "2026-08-25T09:15:00Z"},
		Creator: &gcal.EventCreator{Email: "alice@example.com"},
		Attendees: []*gcal.EventAttendee{
			{Email: "bob@example.com", ResponseStatus: "accepted"},
		},
	})

	assert.Equal(t, "evt-1", summary.ID)
	assert.False(t, summary.AllDay)
	assert.Equal(t, time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC), summary.Start)
	assert.Equal(t, time.Date(2026, 8, 25, 9, 15, 0, 0, time.UTC), summary.End)
	assert.Equal(t, "alice@example.com", summary.Creator)
	require.Len(t, summary.Attendees, 1)
	assert.Equal(t, "accepted", summary.Attendees[0].ResponseStatus)
}

func TestToEventSummaryAllDayEvent(t *testing.T) {
	summary := toEventSummary(&gcal.Event{
		Id:    "evt-2",
		Start: &gcal.EventDateTime{Date: "2026-08-25"},
		End:   &gcal.EventDateTime{Date: "2026-08-26"},
	})

	assert.True(t, summary.AllDay)
	assert.Equal(t, time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC), summary.Start)
}

func TestToAPIEvent(t *testing.T) {
	event := toAPIEvent(EventInput{
		Summary:   "planning",
		Start:     time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC),
		End:       time.Date(2026, 8, 26, 11, 0, 0, 0, time.UTC),
		Attendees: []string{"carol@example.com"},
	})

	require.NotNil(t, event.Start)
	assert.Equal(t, "2026-08-26T10:00:00Z", event.Start.DateTime)
	assert.Equal(t, "UTC", event.Start.TimeZone)
	require.Len(t, event.Attendees, 1)
	assert.Equal(t, "carol@example.com", event.Attendees[0].Email)
}

func TestToAPIEventAllDay(t *testing.T) {
	event := toAPIEvent(EventInput{
		Summary: "offsite",
		AllDay:  true,
		Start:   time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC),
		End:     time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC),
	})

	require.NotNil(t, event.Start)
	assert.Equal(t, "2026-08-26", event.Start.Date)
	assert.Empty(t, event.Start.DateTime)
}

func TestApplyEventInputLeavesZeroFields(t *testing.T) {
	existing := &gcal.Event{
		Summary:     "old title",
		Description: "old description",
		Location:    "room 1",
	}

	applyEventInput(existing, EventInput{Summary: "new title"})

	assert.Equal(t, "new title", existing.Summary)
	assert.Equal(t, "old description", existing.Description)
	assert.Equal(t, "room 1", existing.Location)
	assert.Nil(t, existing.Start, "times not provided, must stay unset")
}

func TestToCalendarInfo(t *testing.T) {
	assert.Equal(t, CalendarInfo{}, toCalendarInfo(nil))

	info := toCalendarInfo(&gcal.CalendarListEntry{
		Id:         "cal-1",
		Summary:    "Work",
		Primary:    true,
		AccessRole: "owner",
	})
	assert.Equal(t, "cal-1", info.ID)
	assert.True(t, info.Primary)
	assert.Equal(t, "owner", info.AccessRole)
}

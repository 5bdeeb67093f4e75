package common

import (
	"testing"
	"time"
)

func TestStringArg(t *testing.T) {
	args := map[string]interface{}{
		"calendarId": "primary",
		"empty":      "",
		"number":     42,
	}

	if v, ok := StringArg(args, "calendarId"); !ok || v != "primary" {
		t.Errorf("StringArg(calendarId) = %q, %v", v, ok)
	}
	if _, ok := StringArg(args, "empty"); ok {
		t.Error("expected empty string to report absent")
	}
	if _, ok := StringArg(args, "number"); ok {
		t.Error("expected non-string to report absent")
	}
	if _, ok := StringArg(args, "missing"); ok {
		t.Error("expected missing key to report absent")
	}
}

func TestStringArgOrDefault(t *testing.T) {
	args := map[string]interface{}{"calendarId": "work"}

	if v := StringArgOrDefault(args, "calendarId", "primary"); v != "work" {
		t.Errorf("expected work, got %s", v)
	}
	if v := StringArgOrDefault(args, "missing", "primary"); v != "primary" {
		t.Errorf("expected primary, got %s", v)
	}
}

func TestBoolArg(t *testing.T) {
	args := map[string]interface{}{"allDay": true, "str": "true"}

	if !BoolArg(args, "allDay") {
		t.Error("expected true")
	}
	if BoolArg(args, "str") {
		t.Error("expected non-bool to report false")
	}
	if BoolArg(args, "missing") {
		t.Error("expected missing key to report false")
	}
}

func TestTimeArg(t *testing.T) {
	args := map[string]interface{}{
		"start": "2026-08-25T09:00:00Z",
		"bad":   "yesterday",
	}

	ts, err := TimeArg(args, "start")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC)
	if !ts.Equal(want) {
		t.Errorf("expected %v, got %v", want, ts)
	}

	if _, err := TimeArg(args, "bad"); err == nil {
		t.Error("expected parse error")
	}

	ts, err = TimeArg(args, "missing")
	if err != nil || !ts.IsZero() {
		t.Errorf("expected zero time without error, got %v, %v", ts, err)
	}
}

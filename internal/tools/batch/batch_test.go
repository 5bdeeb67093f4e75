package batch

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestParseStringOrArray(t *testing.T) {
	tests := []struct {
		name    string
		param   interface{}
		want    []string
		wantErr bool
	}{
		{"single string", "task-1", []string{"task-1"}, false},
		{"array", []interface{}{"a", "b"}, []string{"a", "b"}, false},
		{"nil", nil, nil, true},
		{"empty string", "", nil, true},
		{"empty array", []interface{}{}, nil, true},
		{"non-string element", []interface{}{"a", 42}, nil, true},
		{"empty element", []interface{}{"a", ""}, nil, true},
		{"wrong type", 42, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStringOrArray(tt.param, "taskId")
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				if !strings.Contains(err.Error(), "taskId") {
					t.Errorf("error should name the parameter: %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("expected %v, got %v", tt.want, got)
				}
			}
		})
	}
}

func TestFormatResults(t *testing.T) {
	results := []Result{
		{ID: "a", Status: "success", Result: "done"},
		{ID: "b", Status: "error", Error: "not found"},
		{ID: "c", Status: "success", Result: "done"},
	}

	var s Summary
	if err := json.Unmarshal([]byte(FormatResults(results)), &s); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}

	if s.Total != 3 {
		t.Errorf("expected total 3, got %d", s.Total)
	}
	if s.Successful != 2 {
		t.Errorf("expected 2 successful, got %d", s.Successful)
	}
	if s.Failed != 1 {
		t.Errorf("expected 1 failed, got %d", s.Failed)
	}
	if len(s.Results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(s.Results))
	}
	if s.Results[1].Error != "not found" {
		t.Errorf("expected error message preserved, got %q", s.Results[1].Error)
	}
}

func TestProcess(t *testing.T) {
	ids := []string{"ok-1", "fail", "ok-2"}

	results := Process(context.Background(), ids, func(_ context.Context, id string) (string, error) {
		if id == "fail" {
			return "", errors.New("boom")
		}
		return "completed " + id, nil
	})

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	// Results come back in input order regardless of completion order.
	for i, id := range ids {
		if results[i].ID != id {
			t.Errorf("result %d: expected id %s, got %s", i, id, results[i].ID)
		}
	}
	if results[0].Status != "success" || results[0].Result != "completed ok-1" {
		t.Errorf("unexpected first result: %+v", results[0])
	}
	if results[1].Status != "error" || results[1].Error != "boom" {
		t.Errorf("unexpected second result: %+v", results[1])
	}
}

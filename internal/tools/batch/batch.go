package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Result represents the outcome of a single item in a multi-item call.
type Result struct {
	ID     string `json:"id"`
	Status string `json:"status"` // "success" or "error"
	Result string `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Summary aggregates the results of a multi-item call.
type Summary struct {
	Total      int      `json:"total"`
	Successful int      `json:"successful"`
	Failed     int      `json:"failed"`
	Results    []Result `json:"results"`
}

// ParseStringOrArray parses a parameter that can be either a single
// string or an array of strings.
func ParseStringOrArray(param interface{}, paramName string) ([]string, error) {
	if param == nil {
		return nil, fmt.Errorf("%s is required", paramName)
	}

	var result []string

	switch v := param.(type) {
	case string:
		if v == "" {
			return nil, fmt.Errorf("%s cannot be empty", paramName)
		}
		result = []string{v}
	case []interface{}:
		if len(v) == 0 {
			return nil, fmt.Errorf("%s cannot be empty", paramName)
		}
		for i, item := range v {
			str, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s[%d] must be a string", paramName, i)
			}
			if str == "" {
				return nil, fmt.Errorf("%s[%d] cannot be empty", paramName, i)
			}
			result = append(result, str)
		}
	default:
		return nil, fmt.Errorf("%s must be a string or array of strings", paramName)
	}

	return result, nil
}

// FormatResults creates a formatted JSON string from batch results.
func FormatResults(results []Result) string {
	s := Summary{
		Total:   len(results),
		Results: results,
	}
	for _, r := range results {
		if r.Status == "success" {
			s.Successful++
		} else {
			s.Failed++
		}
	}

	jsonBytes, _ := json.MarshalIndent(s, "", "  ")
	return string(jsonBytes)
}

// Process runs fn for every id concurrently and collects the results in
// input order. The underlying write queue coalesces the calls into
// flushes, so firing them together is what lets one batch window absorb
// the whole set.
func Process(ctx context.Context, ids []string, fn func(ctx context.Context, id string) (string, error)) []Result {
	results := make([]Result, len(ids))

	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			res, err := fn(ctx, id)
			if err != nil {
				results[i] = Result{ID: id, Status: "error", Error: err.Error()}
			} else {
				results[i] = Result{ID: id, Status: "success", Result: res}
			}
		}(i, id)
	}
	wg.Wait()

	return results
}

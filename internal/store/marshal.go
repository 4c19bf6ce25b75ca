package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/wodrun/internal/ir"
)

// marshalRecordParts converts the list-valued parts of a record to
// canonical JSON TEXT for storage.
func marshalRecordParts(rec ir.ExecutionRecord) (sourceIDs, spans, metrics string, err error) {
	m := ir.RecordMap(rec)

	ids := rec.SourceIDs
	if ids == nil {
		ids = []int{}
	}
	if sourceIDs, err = marshalCanonical(ids); err != nil {
		return "", "", "", fmt.Errorf("marshal source ids: %w", err)
	}

	spanList, ok := m["spans"]
	if !ok {
		spanList = []any{}
	}
	if spans, err = marshalCanonical(spanList); err != nil {
		return "", "", "", fmt.Errorf("marshal spans: %w", err)
	}

	metricList, ok := m["metrics"]
	if !ok {
		metricList = []any{}
	}
	if metrics, err = marshalCanonical(metricList); err != nil {
		return "", "", "", fmt.Errorf("marshal metrics: %w", err)
	}
	return sourceIDs, spans, metrics, nil
}

func marshalCanonical(v any) (string, error) {
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func unmarshalSourceIDs(data string) ([]int, error) {
	ids := []int{}
	if data == "" {
		return ids, nil
	}
	if err := json.Unmarshal([]byte(data), &ids); err != nil {
		return nil, fmt.Errorf("unmarshal source ids: %w", err)
	}
	return ids, nil
}

// unmarshalSpans parses span JSON. An empty list reads back as nil so a
// stored record compares equal to the one that was written.
func unmarshalSpans(data string) ([]ir.TimeSpan, error) {
	if data == "" || data == "[]" {
		return nil, nil
	}
	var spans []ir.TimeSpan
	if err := json.Unmarshal([]byte(data), &spans); err != nil {
		return nil, fmt.Errorf("unmarshal spans: %w", err)
	}
	return spans, nil
}

func unmarshalMetrics(data string) ([]ir.Metric, error) {
	if data == "" || data == "[]" {
		return nil, nil
	}
	var metrics []ir.Metric
	if err := json.Unmarshal([]byte(data), &metrics); err != nil {
		return nil, fmt.Errorf("unmarshal metrics: %w", err)
	}
	return metrics, nil
}

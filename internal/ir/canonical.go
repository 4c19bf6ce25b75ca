package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"time"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces deterministic JSON for traces, golden files and
// stored metrics.
//
// Differences from json.Marshal:
//   - object keys sorted by UTF-16 code units
//   - no HTML escaping
//   - strings NFC normalized
//   - floats rejected (durations are integer milliseconds)
//   - time.Time rendered as RFC 3339 UTC with millisecond precision
func MarshalCanonical(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeCanonical(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// FormatTime is the timestamp layout used by canonical output and the store.
func FormatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

func writeCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
	case string:
		return writeCanonicalString(buf, val)
	case FragmentType:
		return writeCanonicalString(buf, string(val))
	case BehaviorClass:
		return writeCanonicalString(buf, string(val))
	case SpanKind:
		return writeCanonicalString(buf, string(val))
	case bool:
		buf.WriteString(strconv.FormatBool(val))
	case int:
		buf.WriteString(strconv.Itoa(val))
	case int64:
		buf.WriteString(strconv.FormatInt(val, 10))
	case uint64:
		buf.WriteString(strconv.FormatUint(val, 10))
	case time.Duration:
		buf.WriteString(strconv.FormatInt(val.Milliseconds(), 10))
	case time.Time:
		return writeCanonicalString(buf, FormatTime(val))
	case float32, float64:
		return fmt.Errorf("floats are forbidden in canonical JSON: %v", val)
	case []any:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, elem); err != nil {
				return fmt.Errorf("array[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
	case []int:
		return writeCanonical(buf, toAnySlice(val))
	case []int64:
		return writeCanonical(buf, toAnySlice(val))
	case []string:
		return writeCanonical(buf, toAnySlice(val))
	case map[string]any:
		return writeCanonicalObject(buf, val)
	case map[string]string:
		obj := make(map[string]any, len(val))
		for k, s := range val {
			obj[k] = s
		}
		return writeCanonicalObject(buf, obj)
	default:
		return fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
	return nil
}

func toAnySlice[T any](in []T) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}

func writeCanonicalObject(buf *bytes.Buffer, obj map[string]any) error {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareUTF16)

	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeCanonicalString(buf, k); err != nil {
			return fmt.Errorf("key %q: %w", k, err)
		}
		buf.WriteByte(':')
		if err := writeCanonical(buf, obj[k]); err != nil {
			return fmt.Errorf("value for key %q: %w", k, err)
		}
	}
	buf.WriteByte('}')
	return nil
}

func writeCanonicalString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(norm.NFC.String(s)); err != nil {
		return err
	}
	buf.Write(bytes.TrimSuffix(tmp.Bytes(), []byte("\n")))
	return nil
}

// compareUTF16 orders strings by UTF-16 code units.
func compareUTF16(a, b string) int {
	ua := utf16.Encode([]rune(a))
	ub := utf16.Encode([]rune(b))
	return slices.Compare(ua, ub)
}

// RecordMap converts a record into the generic form accepted by
// MarshalCanonical.
func RecordMap(r ExecutionRecord) map[string]any {
	m := map[string]any{
		"id":         r.ID,
		"label":      r.Label,
		"kind":       r.Kind,
		"source_ids": r.SourceIDs,
		"start_time": r.StartTime,
		"end_time":   r.EndTime,
	}
	if r.ParentID != "" {
		m["parent_id"] = r.ParentID
	}
	if len(r.Spans) > 0 {
		spans := make([]any, len(r.Spans))
		for i, s := range r.Spans {
			sm := map[string]any{"start": s.Start, "kind": s.Kind}
			if s.Stop != nil {
				sm["stop"] = *s.Stop
			}
			spans[i] = sm
		}
		m["spans"] = spans
	}
	if len(r.Metrics) > 0 {
		metrics := make([]any, len(r.Metrics))
		for i, mt := range r.Metrics {
			mm := map[string]any{"type": mt.Type, "value": mt.Value, "class": mt.Class}
			if mt.Unit != "" {
				mm["unit"] = mt.Unit
			}
			if mt.Label != "" {
				mm["label"] = mt.Label
			}
			metrics[i] = mm
		}
		m["metrics"] = metrics
	}
	return m
}

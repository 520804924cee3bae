package field

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// Normalize type-checks and coerces a raw value for this field.
// The returned value is what gets persisted in the entry data map:
// string/text → string, number → float64, boolean → bool,
// date/datetime → RFC3339 UTC string, enum → string or []string,
// ref/media → string or []string, geojson → map[string]any.
func (f Field) Normalize(raw any) (any, error) {
	switch f.fieldType {
	case String, Text:
		return normalizeString(raw)
	case Number:
		return normalizeNumber(raw)
	case Boolean:
		return normalizeBoolean(raw)
	case Date:
		t, err := ParseTime(raw)
		if err != nil {
			return nil, err
		}
		return t.UTC().Truncate(24 * time.Hour).Format(time.RFC3339), nil
	case DateTime:
		t, err := ParseTime(raw)
		if err != nil {
			return nil, err
		}
		return t.UTC().Format(time.RFC3339), nil
	case Enum:
		return f.normalizeEnum(raw)
	case Ref, Media:
		return f.normalizeReference(raw)
	case GeoJSON:
		return normalizeGeoJSON(raw)
	default:
		return nil, fmt.Errorf("unsupported field type %q", f.fieldType)
	}
}

func normalizeString(raw any) (any, error) {
	s, ok := stringify(raw)
	if !ok {
		return nil, fmt.Errorf("expected a string value")
	}
	return s, nil
}

func normalizeNumber(raw any) (any, error) {
	n, ok := numify(raw)
	if !ok {
		return nil, fmt.Errorf("expected a numeric value")
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return nil, fmt.Errorf("number must be finite")
	}
	return n, nil
}

func normalizeBoolean(raw any) (any, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		if v == "true" {
			return true, nil
		}
		if v == "false" {
			return false, nil
		}
	}
	return nil, fmt.Errorf("expected a boolean value")
}

// dateLayouts are accepted on input; output is always RFC3339 UTC.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseTime interprets a raw value as a point in time.
// Accepts time.Time, RFC3339 (with or without fraction/zone), date-only
// strings, and unix milliseconds as a number.
func ParseTime(raw any) (time.Time, error) {
	switch v := raw.(type) {
	case time.Time:
		return v, nil
	case string:
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("invalid date %q", v)
	default:
		if n, ok := numify(raw); ok {
			if math.IsNaN(n) || math.IsInf(n, 0) {
				return time.Time{}, fmt.Errorf("invalid date timestamp")
			}
			return time.UnixMilli(int64(n)), nil
		}
	}
	return time.Time{}, fmt.Errorf("expected a date value")
}

func (f Field) normalizeEnum(raw any) (any, error) {
	allowed := make(map[string]bool, len(f.options))
	for _, o := range f.options {
		allowed[o.Value] = true
	}

	if f.multiple {
		values := asList(raw)
		// Invalid members of a multi-valued enum are filtered, not rejected.
		out := make([]string, 0, len(values))
		seen := make(map[string]bool, len(values))
		for _, v := range values {
			s, ok := stringify(v)
			if !ok || !allowed[s] || seen[s] {
				continue
			}
			seen[s] = true
			out = append(out, s)
		}
		return out, nil
	}

	s, ok := stringify(raw)
	if !ok {
		return nil, fmt.Errorf("expected an enum value")
	}
	if !allowed[s] {
		return nil, fmt.Errorf("value %q is not an allowed option", s)
	}
	return s, nil
}

func (f Field) normalizeReference(raw any) (any, error) {
	if f.multiple {
		values := asList(raw)
		out := make([]string, 0, len(values))
		seen := make(map[string]bool, len(values))
		for _, v := range values {
			s, ok := stringify(v)
			if !ok || s == "" || seen[s] {
				continue
			}
			seen[s] = true
			out = append(out, s)
		}
		return out, nil
	}

	s, ok := stringify(raw)
	if !ok || s == "" {
		return nil, fmt.Errorf("expected a reference identifier")
	}
	return s, nil
}

func normalizeGeoJSON(raw any) (any, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected a GeoJSON object")
	}
	if _, ok := m["type"].(string); !ok {
		return nil, fmt.Errorf("GeoJSON object requires a type string")
	}
	if _, ok := m["coordinates"].([]any); !ok {
		return nil, fmt.Errorf("GeoJSON object requires a coordinates array")
	}
	return m, nil
}

// stringify renders a scalar as a string. Maps, slices and nil do not stringify.
func stringify(raw any) (string, bool) {
	switch v := raw.(type) {
	case string:
		return v, true
	case bool:
		return strconv.FormatBool(v), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), true
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case json.Number:
		return v.String(), true
	}
	return "", false
}

// numify interprets a scalar as a float64.
func numify(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	}
	return 0, false
}

// asList wraps a scalar into a one-element list; lists pass through.
func asList(raw any) []any {
	switch v := raw.(type) {
	case []any:
		return v
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out
	case nil:
		return nil
	default:
		return []any{raw}
	}
}

package qbrules

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/shopspring/decimal"
)

// parseTemporal parses a date/time string in whatever common format the rule
// builder or its users produce. Ambiguous numeric dates ("01.02.2016") are
// read day-first, matching the locale the original rule corpus was written
// in.
func parseTemporal(s string) (time.Time, error) {
	t, err := dateparse.ParseAny(strings.TrimSpace(s), dateparse.PreferMonthFirst(false))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q as date/time: %v", ErrCoercion, s, err)
	}
	return t, nil
}

var clockLayouts = []string{"15:04:05", "15:04"}

func parseClock(v any) (Clock, error) {
	switch t := v.(type) {
	case Clock:
		return t, nil
	case time.Time:
		return ClockOf(t), nil
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range clockLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return ClockOf(parsed), nil
			}
		}
		parsed, err := parseTemporal(s)
		if err != nil {
			return Clock{}, err
		}
		return ClockOf(parsed), nil
	}
	return Clock{}, fmt.Errorf("%w: %v (%T) as time", ErrCoercion, v, v)
}

func parseDate(v any) (Date, error) {
	switch t := v.(type) {
	case Date:
		return t, nil
	case time.Time:
		return DateOf(t), nil
	case string:
		parsed, err := parseTemporal(t)
		if err != nil {
			return Date{}, err
		}
		return DateOf(parsed), nil
	}
	return Date{}, fmt.Errorf("%w: %v (%T) as date", ErrCoercion, v, v)
}

func parseDatetime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case Date:
		return t.Time(), nil
	case string:
		return parseTemporal(t)
	}
	return time.Time{}, fmt.Errorf("%w: %v (%T) as datetime", ErrCoercion, v, v)
}

func parseInt(v any) (int, error) {
	switch t := v.(type) {
	case int:
		return t, nil
	case int64:
		return int(t), nil
	case float64:
		return int(t), nil
	case decimal.Decimal:
		return int(t.IntPart()), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0, fmt.Errorf("%w: %q as integer", ErrCoercion, t)
		}
		return n, nil
	}
	return 0, fmt.Errorf("%w: %v (%T) as integer", ErrCoercion, v, v)
}

func parseFloat(v any) (float64, error) {
	switch t := v.(type) {
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case float64:
		return t, nil
	case decimal.Decimal:
		return t.InexactFloat64(), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q as double", ErrCoercion, t)
		}
		return f, nil
	}
	return 0, fmt.Errorf("%w: %v (%T) as double", ErrCoercion, v, v)
}

func stringify(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

// coerceBool converts anything to a boolean the way the original rule engine
// did: real booleans pass through, numeric strings count as their value,
// JSON literal strings ("true", `"1"`) are honored, and any other non-empty
// string is true. A list degrades to its first element, or false when empty.
// The list behavior is a known quirk, preserved pending a product decision.
func coerceBool(v any) bool {
	if list, ok := toList(v); ok {
		if len(list) == 0 {
			return false
		}
		v = list[0]
	}
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case int:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return int64(t) != 0
	case string:
		s := strings.ToLower(strings.TrimSpace(t))
		if s == "" {
			return false
		}
		lit := strings.Trim(s, `"`)
		if n, err := strconv.ParseFloat(lit, 64); err == nil {
			return int64(n) != 0
		}
		switch lit {
		case "true":
			return true
		case "false":
			return false
		}
		return true
	}
	return true
}

// toList normalizes the slice shapes a JSON-ish rule tree can carry.
func toList(v any) ([]any, bool) {
	switch t := v.(type) {
	case []any:
		return t, true
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out, true
	}
	return nil, false
}

// coerceField converts a single literal to the declared leaf field type.
func coerceField(ft FieldType, v any) (any, error) {
	switch ft {
	case FieldString:
		return stringify(v), nil
	case FieldInteger:
		return parseInt(v)
	case FieldDouble:
		return parseFloat(v)
	case FieldDate:
		return parseDate(v)
	case FieldTime:
		return parseClock(v)
	case FieldDatetime:
		return parseDatetime(v)
	case FieldBoolean:
		return coerceBool(v), nil
	}
	return nil, fmt.Errorf("%w: unknown field type %q", ErrCoercion, ft)
}

package qbrules

import (
	"fmt"
	"strings"
	"time"
)

// OptionValue is an immutable pairing of a raw input value with its declared
// ValueType. Construction normalizes the raw value (parsing dates, coercing
// booleans, trimming text) and records whether it is empty. An empty value
// produces a single {value: nil} snapshot and an empty unit range.
type OptionValue struct {
	raw   any
	typ   ValueType
	val   any
	empty bool
}

type dateRange struct {
	start, end Date
}

type datetimeRange struct {
	start, end time.Time
}

// NewOptionValue normalizes raw according to typ. It fails only when a
// non-empty input cannot be parsed as its declared type.
func NewOptionValue(raw any, typ ValueType) (OptionValue, error) {
	v := OptionValue{raw: raw, typ: typ}
	val, err := normalize(raw, typ)
	if err != nil {
		return OptionValue{}, err
	}
	v.val = val
	if typ == TypeBool {
		b, _ := val.(bool)
		v.empty = !b
	} else {
		v.empty = checkEmpty(val)
	}
	return v, nil
}

// Raw returns the value as it was received.
func (v OptionValue) Raw() any { return v.raw }

// Type returns the declared value type.
func (v OptionValue) Type() ValueType { return v.typ }

// Value returns the normalized value, or nil when the input was empty.
func (v OptionValue) Value() any { return v.val }

// IsEmpty reports whether the input was blank: nil, empty or whitespace
// strings, zero quantities, false booleans, or a range with a blank bound.
func (v OptionValue) IsEmpty() bool { return v.empty }

// checkEmpty is the blankness test applied to raw inputs and normalized
// values alike. A list is blank if any of its elements is.
func checkEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case bool:
		return !t
	case int:
		return t == 0
	case int64:
		return t == 0
	case float64:
		return t == 0
	}
	if list, ok := toList(v); ok {
		if len(list) == 0 {
			return true
		}
		for _, item := range list {
			if checkEmpty(item) {
				return true
			}
		}
		return false
	}
	return false
}

func normalize(raw any, typ ValueType) (any, error) {
	if typ != TypeBool && checkEmpty(raw) {
		return nil, nil
	}

	switch typ {
	case TypeQuantity:
		return parseInt(raw)

	case TypeDateRange:
		start, end, err := rangeBounds(raw, typ)
		if err != nil {
			return nil, err
		}
		s, err := parseDate(start)
		if err != nil {
			return nil, err
		}
		e, err := parseDate(end)
		if err != nil {
			return nil, err
		}
		return dateRange{start: s, end: e}, nil

	case TypeDatetimeRangeDay, TypeDatetimeRangeHour:
		start, end, err := rangeBounds(raw, typ)
		if err != nil {
			return nil, err
		}
		s, err := parseDatetime(start)
		if err != nil {
			return nil, err
		}
		e, err := parseDatetime(end)
		if err != nil {
			return nil, err
		}
		return datetimeRange{start: s, end: e}, nil

	case TypeDate:
		return parseDate(raw)

	case TypeTime:
		return parseClock(raw)

	case TypeDatetime:
		return parseDatetime(raw)

	case TypeBool:
		return coerceBool(raw), nil

	case TypeText:
		return stringify(raw), nil

	case TypeSelect:
		if m, ok := raw.(map[string]any); ok {
			if v, ok := m["value"]; ok && v != nil {
				return v, nil
			}
			return m["label"], nil
		}
		return raw, nil
	}
	return raw, nil
}

func rangeBounds(raw any, typ ValueType) (any, any, error) {
	list, ok := toList(raw)
	if !ok || len(list) != 2 {
		return nil, nil, fmt.Errorf("%w: %v as %s: need [start, end]", ErrCoercion, raw, typ)
	}
	return list[0], list[1], nil
}

// Snapshot builds the aggregate context for the value: one map describing
// the whole value, used for validation, param rules and group pricing. For
// range types the snapshot's value field is the range start.
func (v OptionValue) Snapshot() Context {
	return v.snapshot(v.val, true)
}

// snapshot builds the context for val, which is either the normalized value
// or a sub-range of it during unit expansion. Group snapshots represent a
// range by its start, unit snapshots by the end of the covered sub-range.
func (v OptionValue) snapshot(val any, group bool) Context {
	if v.empty && v.typ != TypeBool {
		return Context{"value": nil}
	}

	switch v.typ {
	case TypeDateRange:
		r := val.(dateRange)
		span := r.end.Time().Sub(r.start.Time())
		focus := r.end
		if group {
			focus = r.start
		}
		return Context{
			"value":      focus,
			"date":       focus,
			"start_date": r.start,
			"end_date":   r.end,
			"days":       int(span.Hours()/24) + 1,
			"hours":      ceilHours(span) + 24,
		}

	case TypeDatetimeRangeDay, TypeDatetimeRangeHour:
		r := val.(datetimeRange)
		span := r.end.Sub(r.start)
		focus := r.end
		if group {
			focus = r.start
		}
		return Context{
			"value":          focus,
			"datetime":       focus,
			"time":           ClockOf(focus),
			"date":           DateOf(focus),
			"days":           floorDays(span),
			"hours":          floorHours(span),
			"start_datetime": r.start,
			"end_datetime":   r.end,
		}

	case TypeDate:
		return Context{"value": val, "date": val}

	case TypeTime:
		return Context{"value": val, "time": val}

	case TypeDatetime:
		t := val.(time.Time)
		return Context{
			"value":    t,
			"datetime": t,
			"time":     ClockOf(t),
			"date":     DateOf(t),
		}
	}
	return Context{"value": val}
}

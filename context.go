package qbrules

import (
	"strings"
	"time"
)

// Presence is the tri-state outcome of a context lookup.
type Presence int

const (
	// Missing means the path did not resolve to anything.
	Missing Presence = iota
	// Null means the path resolved to an explicit nil.
	Null
	// Present means the path resolved to a concrete value.
	Present
)

// Value is the result of resolving a field path against a Context. Lookups
// never fail; Missing and Null values are falsy in every comparison, so a
// rule referencing an absent field simply does not match.
type Value struct {
	Presence Presence
	Val      any
}

// truthy reports the boolean weight of a value: Missing, Null, false, zero
// numbers, empty strings and empty collections are all false.
func (v Value) truthy() bool {
	if v.Presence != Present {
		return false
	}
	switch t := v.Val.(type) {
	case bool:
		return t
	case string:
		return t != ""
	case int:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0
	case []any:
		return len(t) > 0
	case nil:
		return false
	}
	return true
}

// Context is the data a compiled condition is evaluated against: an ordered
// set of fields produced by expanding an option value, possibly nested.
type Context map[string]any

// Merge copies the entries of extra into the context, overwriting existing
// keys.
func (c Context) Merge(extra map[string]any) {
	for k, v := range extra {
		c[k] = v
	}
}

// Get resolves a dotted path ("a.b.c") against the context. Each segment
// descends into a nested map, or into a derived attribute of a temporal
// value ("date.isoweekday", "time.hour"). Get never fails: an unresolvable
// path yields a Missing value, an explicit nil yields Null.
func (c Context) Get(path string) Value {
	var cur any = map[string]any(c)
	for _, seg := range strings.Split(path, ".") {
		next, ok := step(cur, seg)
		if !ok {
			return Value{Presence: Missing}
		}
		cur = next
	}
	if cur == nil {
		return Value{Presence: Null}
	}
	return Value{Presence: Present, Val: cur}
}

func step(v any, key string) (any, bool) {
	switch t := v.(type) {
	case Context:
		val, ok := t[key]
		return val, ok
	case map[string]any:
		val, ok := t[key]
		return val, ok
	case Date:
		return dateAttr(t, key)
	case Clock:
		return clockAttr(t, key)
	case time.Time:
		return timeAttr(t, key)
	}
	return nil, false
}

func dateAttr(d Date, key string) (any, bool) {
	switch key {
	case "day":
		return d.Day, true
	case "month":
		return int(d.Month), true
	case "year":
		return d.Year, true
	case "isoweekday":
		return d.ISOWeekday(), true
	case "weekday":
		return int(d.Time().Weekday()), true
	}
	return nil, false
}

func clockAttr(c Clock, key string) (any, bool) {
	switch key {
	case "hour":
		return c.Hour, true
	case "minute":
		return c.Minute, true
	case "second":
		return c.Second, true
	}
	return nil, false
}

func timeAttr(t time.Time, key string) (any, bool) {
	switch key {
	case "date":
		return DateOf(t), true
	case "time":
		return ClockOf(t), true
	case "hour":
		return t.Hour(), true
	case "minute":
		return t.Minute(), true
	default:
		return dateAttr(DateOf(t), key)
	}
}

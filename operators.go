package qbrules

import (
	"fmt"
	"reflect"
	"strings"
	"time"
)

// Operator tests a resolved context value against the coerced literal
// arguments captured at compile time. Operators never fail: anything they
// cannot compare is a non-match.
type Operator func(v Value, args []any) bool

// operators is the generic operator table. Built once at package init and
// never mutated; the engines only read it.
var operators = map[string]Operator{
	"equal":            opEqual,
	"not_equal":        negate(opEqual),
	"in":               opIn,
	"not_in":           negate(opIn),
	"greater":          ordered(func(c int) bool { return c > 0 }),
	"less":             ordered(func(c int) bool { return c < 0 }),
	"greater_or_equal": ordered(func(c int) bool { return c >= 0 }),
	"less_or_equal":    ordered(func(c int) bool { return c <= 0 }),
	"between":          opBetween,
	"not_between":      negate(opBetween),
	"is_empty":         opIsEmpty,
	"is_not_empty":     negate(opIsEmpty),
}

// typeOperators overrides the generic table for specific declared types:
// time gets the midnight-aware between, boolean gets a truthiness equal.
var typeOperators = map[FieldType]map[string]Operator{
	FieldTime: {
		"between":     opClockBetween,
		"not_between": negate(opClockBetween),
	},
	FieldBoolean: {
		"equal": opBoolEqual,
	},
}

func init() {
	operators["is_null"] = operators["is_empty"]
	operators["is_not_null"] = operators["is_not_empty"]
}

// lookupOperator resolves an operator by declared type and name: the
// per-type override table wins, then the generic table. For temporal
// declared types every non-is_* operator is wrapped so that a non-temporal
// left operand (Missing, Null, or a stray string) yields false instead of a
// bogus comparison.
func lookupOperator(ft FieldType, name string) (Operator, error) {
	op, ok := typeOperators[ft][name]
	if !ok {
		op, ok = operators[name]
	}
	if !ok {
		return nil, fmt.Errorf("unknown operator %q", name)
	}
	if ft.temporal() && !strings.HasPrefix(name, "is_") {
		op = temporalGuard(op)
	}
	return op, nil
}

func negate(op Operator) Operator {
	return func(v Value, args []any) bool { return !op(v, args) }
}

func temporalGuard(op Operator) Operator {
	return func(v Value, args []any) bool {
		switch v.Val.(type) {
		case Date, Clock, time.Time:
			return op(v, args)
		}
		return false
	}
}

func opEqual(v Value, args []any) bool {
	if v.Presence != Present || len(args) < 1 {
		return false
	}
	return equalValues(v.Val, args[0])
}

func opBoolEqual(v Value, args []any) bool {
	if len(args) < 1 {
		return false
	}
	return v.truthy() == coerceBool(args[0])
}

func opIn(v Value, args []any) bool {
	if v.Presence != Present || len(args) < 1 {
		return false
	}
	list, ok := toList(args[0])
	if !ok {
		return false
	}
	for _, item := range list {
		if equalValues(v.Val, item) {
			return true
		}
	}
	return false
}

func ordered(match func(c int) bool) Operator {
	return func(v Value, args []any) bool {
		if v.Presence != Present || len(args) < 1 {
			return false
		}
		c, ok := compareValues(v.Val, args[0])
		return ok && match(c)
	}
}

func opBetween(v Value, args []any) bool {
	if v.Presence != Present || len(args) < 2 {
		return false
	}
	lo, okLo := compareValues(v.Val, args[0])
	hi, okHi := compareValues(v.Val, args[1])
	return okLo && okHi && lo >= 0 && hi <= 0
}

func opClockBetween(v Value, args []any) bool {
	if len(args) < 2 {
		return false
	}
	c, ok := v.Val.(Clock)
	if !ok {
		return false
	}
	start, okStart := args[0].(Clock)
	end, okEnd := args[1].(Clock)
	if !okStart || !okEnd {
		return false
	}
	return clockBetween(c, start, end)
}

func opIsEmpty(v Value, _ []any) bool {
	return !v.truthy()
}

// compareValues orders two values of the closed context value domain.
// Numbers compare across int/float, everything else only against its own
// kind. The second return is false when the pair is not comparable.
func compareValues(a, b any) (int, bool) {
	if af, ok := toFloat(a); ok {
		if bf, ok := toFloat(b); ok {
			switch {
			case af < bf:
				return -1, true
			case af > bf:
				return 1, true
			}
			return 0, true
		}
		return 0, false
	}
	switch at := a.(type) {
	case string:
		if bt, ok := b.(string); ok {
			return strings.Compare(at, bt), true
		}
	case Clock:
		if bt, ok := b.(Clock); ok {
			return at.Compare(bt), true
		}
	case Date:
		if bt, ok := b.(Date); ok {
			return at.Compare(bt), true
		}
	case time.Time:
		if bt, ok := b.(time.Time); ok {
			return at.Compare(bt), true
		}
	}
	return 0, false
}

func equalValues(a, b any) bool {
	if c, ok := compareValues(a, b); ok {
		return c == 0
	}
	if at, ok := a.(bool); ok {
		bt, ok := b.(bool)
		return ok && at == bt
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case float64:
		return t, true
	}
	return 0, false
}

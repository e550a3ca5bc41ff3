package qbrules

import "errors"

// ValueType identifies the kind of an option value. It determines how the
// raw input is normalized, the shape of the context snapshot built from it,
// and how the value expands into a unit range.
//
// The set is closed; the wire names match the rule-builder grammar.
type ValueType string

const (
	TypeQuantity          ValueType = "quantity"
	TypeTime              ValueType = "time"
	TypeDate              ValueType = "date"
	TypeDatetime          ValueType = "datetime"
	TypeDateRange         ValueType = "date_range"
	TypeDatetimeRangeDay  ValueType = "datetime_range_day"
	TypeDatetimeRangeHour ValueType = "datetime_range_hour"
	TypeBool              ValueType = "bool"
	TypeText              ValueType = "text"
	TypeSelect            ValueType = "select"
)

// FieldType is the type declared on a condition leaf. It selects the coercer
// applied to the leaf's literal value and the operator override table.
type FieldType string

const (
	FieldString   FieldType = "string"
	FieldInteger  FieldType = "integer"
	FieldDouble   FieldType = "double"
	FieldDate     FieldType = "date"
	FieldTime     FieldType = "time"
	FieldDatetime FieldType = "datetime"
	FieldBoolean  FieldType = "boolean"
)

// temporal reports whether literals of the field type parse to a calendar or
// clock value. Comparisons for these types are guarded: unless the context
// value is itself temporal, the comparison is false rather than an error.
func (t FieldType) temporal() bool {
	return t == FieldDate || t == FieldTime || t == FieldDatetime
}

var (
	// ErrCoercion reports a literal or input value that cannot be converted
	// to its declared type, such as an unparsable date string. Recoverable:
	// reject the rule or the input, not the process.
	ErrCoercion = errors.New("cannot coerce value")

	// ErrFormula reports a price formula the formula evaluator cannot parse
	// or evaluate. It indicates a broken rule definition, not an unmatched
	// context, and is never silently swallowed.
	ErrFormula = errors.New("price formula error")
)

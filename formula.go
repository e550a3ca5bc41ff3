package qbrules

// Formula is a parsed price expression, ready to be evaluated against a set
// of variable bindings.
type Formula interface {
	// Eval substitutes the bindings into the expression and returns the
	// numeric result.
	Eval(bindings map[string]any) (float64, error)
}

// FormulaEvaluator parses price formulas. The price engine parses every
// rule's formula once at construction and evaluates it per unit. The expr
// subpackage provides the standard implementation; the interface exists so
// the expression language stays replaceable and out of this package's
// scope.
type FormulaEvaluator interface {
	Parse(text string) (Formula, error)
}

// Package expr provides a price formula evaluator backed by the
// expr-lang/expr expression language.
//
// Formulas are arithmetic expressions over the bindings the price engine
// supplies: bp (the original base price), nbp (the prevailing base price
// after backward overrides), and o_<field> snapshot maps during group
// calculations. Examples:
//
//	"bp"
//	"bp - 42"
//	"nbp * 1.5"
//	"o_11.days * 250"
//
// Formulas are compiled once, when the engine is constructed, and the
// compiled program is safe for concurrent evaluation.
package expr

import (
	"fmt"
	"sync"

	exprlang "github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/pkg/errors"

	"github.com/qbrules/qbrules"
)

// Evaluator implements qbrules.FormulaEvaluator. Compiled programs are
// cached by formula text, so rulesets sharing formulas compile each one
// once. The zero value is ready to use and safe for concurrent callers.
type Evaluator struct {
	mu    sync.Mutex
	cache map[string]*formula
}

// NewEvaluator returns a formula evaluator.
func NewEvaluator() *Evaluator { return &Evaluator{} }

// Parse compiles the formula text. Undefined variables are allowed at
// compile time since the o_<field> bindings are only known per evaluation;
// referencing a binding that is absent at run time is an evaluation error.
func (e *Evaluator) Parse(text string) (qbrules.Formula, error) {
	if text == "" {
		return nil, errors.Wrap(qbrules.ErrFormula, "empty formula")
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if f, ok := e.cache[text]; ok {
		return f, nil
	}

	prg, err := exprlang.Compile(text, exprlang.AllowUndefinedVariables())
	if err != nil {
		return nil, errors.Wrapf(qbrules.ErrFormula, "compiling %q: %v", text, err)
	}
	f := &formula{prg: prg, text: text}
	if e.cache == nil {
		e.cache = map[string]*formula{}
	}
	e.cache[text] = f
	return f, nil
}

type formula struct {
	prg  *vm.Program
	text string
}

// Eval runs the compiled program against the bindings and converts the
// result to a float64.
func (f *formula) Eval(bindings map[string]any) (float64, error) {
	out, err := exprlang.Run(f.prg, bindings)
	if err != nil {
		return 0, errors.Wrapf(qbrules.ErrFormula, "evaluating %q: %v", f.text, err)
	}
	n, err := toFloat(out)
	if err != nil {
		return 0, errors.Wrapf(qbrules.ErrFormula, "evaluating %q: %v", f.text, err)
	}
	return n, nil
}

func (f *formula) String() string { return f.text }

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	}
	return 0, fmt.Errorf("non-numeric result %v (%T)", v, v)
}

package qbrules_test

import (
	"strconv"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/qbrules/qbrules"
)

// Condition and rule construction shorthand shared by the engine tests.

func leaf(id string, ft qbrules.FieldType, op string, value any) *qbrules.ConditionNode {
	return &qbrules.ConditionNode{ID: id, Type: ft, Operator: op, Value: value}
}

func allOf(rules ...*qbrules.ConditionNode) *qbrules.ConditionNode {
	return &qbrules.ConditionNode{Condition: qbrules.And, Rules: rules}
}

func anyOf(rules ...*qbrules.ConditionNode) *qbrules.ConditionNode {
	return &qbrules.ConditionNode{Condition: qbrules.Or, Rules: rules}
}

func priceRule(cond *qbrules.ConditionNode, price, toOption string) qbrules.Rule {
	return qbrules.Rule{Rule: cond, Price: price, ToOption: toOption}
}

func validationRule(cond *qbrules.ConditionNode, message string, toOptions ...string) qbrules.Rule {
	return qbrules.Rule{Rule: cond, Message: message, ToOptions: toOptions}
}

func fv(value any, typ qbrules.ValueType) qbrules.FieldValue {
	return qbrules.FieldValue{Value: value, Type: typ}
}

func assertAmount(t *testing.T, got decimal.Decimal, want string) {
	t.Helper()
	if got.String() != want {
		t.Fatalf("amount = %s, want %s", got, want)
	}
}

func assertPriceMap(t *testing.T, got qbrules.PriceMap, want map[string]string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("price map %v, want %v", got, want)
	}
	for field, amount := range want {
		if got[field].String() != amount {
			t.Fatalf("price map %v, want %v (field %q)", got, want, field)
		}
	}
}

// -------------------------------------------------- MOCK EVALUATOR
// constEvaluator is a minimal FormulaEvaluator accepting only numeric
// literals. It pins the evaluator seam without pulling in the expression
// backend.
type constEvaluator struct{}

type constFormula float64

func (constEvaluator) Parse(text string) (qbrules.Formula, error) {
	n, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, err
	}
	return constFormula(n), nil
}

func (f constFormula) Eval(map[string]any) (float64, error) {
	return float64(f), nil
}

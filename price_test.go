package qbrules_test

import (
	"strings"
	"testing"

	"github.com/matryer/is"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/qbrules/qbrules"
	"github.com/qbrules/qbrules/expr"
)

func calculate(t *testing.T, rules []qbrules.Rule, value any, typ qbrules.ValueType, basePrice int64) decimal.Decimal {
	t.Helper()
	engine, err := qbrules.NewPriceEngine(rules, expr.NewEvaluator())
	if err != nil {
		t.Fatalf("building engine: %v", err)
	}
	total, _, err := engine.Calculate(value, typ, decimal.NewFromInt(basePrice))
	if err != nil {
		t.Fatalf("calculating: %v", err)
	}
	return total
}

// Marginal quantity tariff: up to 10 pieces the base price applies, then
// cheaper tiers kick in per piece.
func TestQuantityTiers(t *testing.T) {
	rules := []qbrules.Rule{
		priceRule(allOf(leaf("value", qbrules.FieldInteger, "between", []any{"11", "50"})), "200", ""),
		priceRule(allOf(leaf("value", qbrules.FieldInteger, "between", []any{"51", "100"})), "100", ""),
		priceRule(allOf(leaf("value", qbrules.FieldInteger, "greater", "100")), "50", ""),
	}

	total := calculate(t, rules, 150, qbrules.TypeQuantity, 250)
	// 10*250 + 40*200 + 50*100 + 50*50
	assertAmount(t, total, "18000")
}

func TestFormulaOverBasePrice(t *testing.T) {
	rules := []qbrules.Rule{
		priceRule(allOf(leaf("value", qbrules.FieldInteger, "greater", 0)), "bp - 42", ""),
	}
	total := calculate(t, rules, 150, qbrules.TypeQuantity, 250)
	assertAmount(t, total, "31200") // 150 * (250 - 42)
}

// A rule on total_value is a volume discount: it rewrites the base price
// instead of charging its unit.
func TestBackwardsBasePriceChange(t *testing.T) {
	rules := []qbrules.Rule{
		priceRule(allOf(&qbrules.ConditionNode{
			ID: "total_value", Field: "total_value", Type: qbrules.FieldInteger, Operator: "greater", Value: 100,
		}), "bp - 42", ""),
	}
	total := calculate(t, rules, 150, qbrules.TypeQuantity, 250)
	assertAmount(t, total, "31200")
}

func TestEmptyRuleset(t *testing.T) {
	total := calculate(t, nil, 150, qbrules.TypeQuantity, 250)
	assertAmount(t, total, "37500")

	total = calculate(t, nil, []any{"2016-01-01 09:00", "2016-01-02 19:00"}, qbrules.TypeDatetimeRangeHour, 250)
	assertAmount(t, total, "8500") // 34 started hours
}

func TestNonISODatetimeRange(t *testing.T) {
	total := calculate(t, nil, []any{"01.01.2016 09:00", "02.01.2016 19:00"}, qbrules.TypeDatetimeRangeHour, 250)
	assertAmount(t, total, "8500")
}

func TestEmptyOptionCostsNothing(t *testing.T) {
	total := calculate(t, nil, false, qbrules.TypeBool, 100500)
	assertAmount(t, total, "0")

	total = calculate(t, nil, nil, qbrules.TypeDateRange, 100500)
	assertAmount(t, total, "0")
}

// Hourly car rental: day tariff 400 between 09:01 and 18:00, night tariff
// 600 otherwise. Each started hour is priced by the tariff its end falls in.
func TestHourlyDayNightTariff(t *testing.T) {
	rules := []qbrules.Rule{
		priceRule(allOf(leaf("time", qbrules.FieldTime, "between", []any{"09:01", "18:00"})), "400", ""),
		priceRule(allOf(leaf("time", qbrules.FieldTime, "not_between", []any{"09:01", "18:00"})), "600", ""),
	}

	cases := []struct {
		name  string
		value []any
		want  string
	}{
		{"one day hour", []any{"2016-01-01 09:00", "2016-01-01 10:00"}, "400"},
		{"full working day", []any{"2016-01-01 09:00", "2016-01-01 18:00"}, "3600"},
		{"working day plus one", []any{"2016-01-01 09:00", "2016-01-01 19:00"}, "4200"},
		// 18:00 -> 09:00 is 15 started hours, all ending in the night tariff
		{"overnight", []any{"2016-01-01 18:00", "2016-01-02 09:00"}, "9000"},
		// 9 day + 15 night + 9 day + 1 night
		{"day and a half", []any{"2016-01-01 09:00", "2016-01-02 19:00"}, "16800"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			total := calculate(t, rules, c.value, qbrules.TypeDatetimeRangeHour, 0)
			assertAmount(t, total, c.want)
		})
	}
}

// A backward match mid-sequence reprices only the base-rate units; additive
// contributions collected before it stay as they were.
func TestBackwardsMidSequence(t *testing.T) {
	rules := []qbrules.Rule{
		priceRule(allOf(
			leaf("total_value", qbrules.FieldInteger, "greater", 0),
			leaf("value", qbrules.FieldInteger, "equal", 5),
		), "7", ""),
		priceRule(allOf(leaf("value", qbrules.FieldInteger, "less_or_equal", 3)), "bp * 2", "x"),
	}

	engine, err := qbrules.NewPriceEngine(rules, expr.NewEvaluator())
	if err != nil {
		t.Fatalf("building engine: %v", err)
	}
	total, _, err := engine.Calculate(10, qbrules.TypeQuantity, decimal.NewFromInt(100))
	if err != nil {
		t.Fatalf("calculating: %v", err)
	}
	// units 1-3 match the additive rule (3 * 200); unit 5 rewrites the base
	// price to 7; units 4..10 are base-priced at the new rate (7 * 7)
	assertAmount(t, total, "649")
}

func TestReplacePrice(t *testing.T) {
	is := is.New(t)

	replace := priceRule(allOf(leaf("value", qbrules.FieldInteger, "equal", 2)), "100", "f")
	replace.ReplacePrice = true

	rules := []qbrules.Rule{
		priceRule(allOf(leaf("value", qbrules.FieldInteger, "equal", 1)), "10", "f"),
		replace,
		priceRule(allOf(leaf("value", qbrules.FieldInteger, "equal", 3)), "10", "f"),
	}
	total := calculate(t, rules, 3, qbrules.TypeQuantity, 0)
	is.True(total.Equal(decimal.NewFromInt(100))) // replace overwrites the prior 10 and blocks the later one

	// replace first: later additive matches stay blocked
	first := priceRule(allOf(leaf("value", qbrules.FieldInteger, "equal", 1)), "40", "f")
	first.ReplacePrice = true
	rules = []qbrules.Rule{
		first,
		priceRule(allOf(leaf("value", qbrules.FieldInteger, "greater", 1)), "10", "f"),
	}
	total = calculate(t, rules, 3, qbrules.TypeQuantity, 0)
	is.True(total.Equal(decimal.NewFromInt(40)))
}

func TestAdditiveMatchesSum(t *testing.T) {
	rules := []qbrules.Rule{
		priceRule(allOf(leaf("value", qbrules.FieldInteger, "greater", 0)), "10", "f"),
	}
	total := calculate(t, rules, 4, qbrules.TypeQuantity, 0)
	assertAmount(t, total, "40")
}

func TestExtraContextInMatchingAndFormulas(t *testing.T) {
	rules := []qbrules.Rule{
		priceRule(allOf(
			leaf("value", qbrules.FieldInteger, "greater", 0),
			leaf("opt.value", qbrules.FieldBoolean, "equal", "true"),
		), "o_opt.days * 2", ""),
	}
	engine, err := qbrules.NewPriceEngine(rules, expr.NewEvaluator(),
		qbrules.WithExtraContext(map[string]any{"opt": map[string]any{"value": true, "days": 3}}))
	if err != nil {
		t.Fatalf("building engine: %v", err)
	}
	total, _, err := engine.Calculate(2, qbrules.TypeQuantity, decimal.Zero)
	if err != nil {
		t.Fatalf("calculating: %v", err)
	}
	assertAmount(t, total, "12")
}

func TestFormulaParseErrorSurfaces(t *testing.T) {
	is := is.New(t)

	rules := []qbrules.Rule{
		priceRule(allOf(leaf("value", qbrules.FieldInteger, "greater", 0)), "bp +", ""),
	}
	_, err := qbrules.NewPriceEngine(rules, expr.NewEvaluator())
	is.True(err != nil)
	is.True(errors.Is(err, qbrules.ErrFormula))
}

func TestFormulaEvalErrorSurfaces(t *testing.T) {
	is := is.New(t)

	rules := []qbrules.Rule{
		priceRule(allOf(leaf("value", qbrules.FieldInteger, "greater", 0)), "bp / 0", ""),
	}
	engine, err := qbrules.NewPriceEngine(rules, expr.NewEvaluator())
	is.NoErr(err)
	_, _, err = engine.Calculate(1, qbrules.TypeQuantity, decimal.NewFromInt(10))
	is.True(err != nil)
	is.True(errors.Is(err, qbrules.ErrFormula))
}

func TestPriceEngineWithConstantEvaluator(t *testing.T) {
	rules := []qbrules.Rule{
		priceRule(allOf(leaf("value", qbrules.FieldInteger, "greater", 2)), "7", ""),
	}
	engine, err := qbrules.NewPriceEngine(rules, constEvaluator{})
	if err != nil {
		t.Fatalf("building engine: %v", err)
	}
	total, _, err := engine.Calculate(4, qbrules.TypeQuantity, decimal.NewFromInt(5))
	if err != nil {
		t.Fatalf("calculating: %v", err)
	}
	assertAmount(t, total, "24") // 2*5 base + 2*7 matched
}

func TestExplainTrace(t *testing.T) {
	is := is.New(t)

	rules := []qbrules.Rule{
		{
			Title:    "first unit",
			Rule:     allOf(leaf("value", qbrules.FieldInteger, "equal", 1)),
			Price:    "10",
			ToOption: "f",
		},
	}
	engine, err := qbrules.NewPriceEngine(rules, expr.NewEvaluator(), qbrules.WithExplain())
	is.NoErr(err)

	total, explain, err := engine.Calculate(2, qbrules.TypeQuantity, decimal.NewFromInt(3))
	is.NoErr(err)
	assertAmount(t, total, "13")

	is.True(explain != nil)
	is.Equal(len(explain.Parts["f"]), 1)
	is.Equal(len(explain.Parts[qbrules.Unassigned]), 1) // the unmatched unit
	part := explain.Parts["f"][0]
	is.True(part.Matched)
	is.Equal(part.Rule.Title, "first unit")
	is.Equal(part.Bindings["bp"], 3.0)
	is.True(part.Value.Equal(decimal.NewFromInt(10)))

	rendered := explain.String()
	is.True(strings.Contains(rendered, "first unit"))
	is.True(strings.Contains(rendered, "base"))
}

func TestExplainDisabledByDefault(t *testing.T) {
	is := is.New(t)

	engine, err := qbrules.NewPriceEngine(nil, expr.NewEvaluator())
	is.NoErr(err)
	_, explain, err := engine.Calculate(2, qbrules.TypeQuantity, decimal.NewFromInt(3))
	is.NoErr(err)
	is.True(explain == nil)
}

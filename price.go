package qbrules

import (
	"iter"
	"math"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Unassigned is the PriceMap key of the base bucket: amounts not assigned to
// any target field, including base-priced units.
const Unassigned = ""

// PriceMap holds accumulated amounts per target field.
type PriceMap map[string]decimal.Decimal

// Total sums all buckets.
func (m PriceMap) Total() decimal.Decimal {
	total := decimal.Zero
	for _, v := range m {
		total = total.Add(v)
	}
	return total
}

// PriceEngine applies a pricing ruleset to option values. It walks the
// value's unit range, prices each unit with the first matching rule (or the
// prevailing base price when none matches), and accumulates per-field
// totals.
//
// A rule whose condition references a backward field (total_days,
// total_hours, total_value) does not charge its unit; its formula result
// becomes the new base price used for base-priced units. The bp binding
// always carries the original base price, nbp the latest override.
type PriceEngine struct {
	set      *ruleSet
	formulas []Formula
	explain  bool
}

// NewPriceEngine compiles the ruleset's conditions and parses every price
// formula with the evaluator. Rules are applied in slice order; order them
// upstream (the rule builder emits them sorted by their order attribute).
func NewPriceEngine(rules []Rule, eval FormulaEvaluator, opts ...EngineOption) (*PriceEngine, error) {
	o := applyEngineOptions(opts)
	set, err := newRuleSet(rules, o.extra)
	if err != nil {
		return nil, err
	}
	e := &PriceEngine{set: set, explain: o.explain}
	for i, r := range rules {
		f, err := eval.Parse(r.Price)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing price of rule %d (%s)", i, ruleLabel(r))
		}
		e.formulas = append(e.formulas, f)
	}
	return e, nil
}

// Calculate prices a single option value. The value is expanded into its
// unit range and each unit is priced independently, so marginal tariffs
// (different rates per quantity tier, per day, per hour of day) come out of
// plain per-unit rules. The Explain trace is nil unless the engine was
// built with WithExplain.
func (e *PriceEngine) Calculate(value any, typ ValueType, basePrice decimal.Decimal) (decimal.Decimal, *Explain, error) {
	ov, err := NewOptionValue(value, typ)
	if err != nil {
		return decimal.Zero, nil, err
	}
	bindings := namespaceBindings(nil, e.set.extra)
	prices, explain, err := e.run(ov.UnitRange(), basePrice, bindings)
	if err != nil {
		return decimal.Zero, nil, err
	}
	return prices.Total(), explain, nil
}

// CalculateGroup prices a set of option values as one aggregate context in
// a single pass: no unit expansion, one snapshot per field, and formulas
// can reference any field's snapshot as o_<field>. Every matching rule is
// considered, so one pass prices several target fields at once; per field
// the first matching rule wins. A backward rule still only updates nbp
// within the pass. The result is the per-field price map rather than a
// grand total.
func (e *PriceEngine) CalculateGroup(values map[string]FieldValue, breakdown *OrderBreakdown) (PriceMap, *Explain, error) {
	ctx, err := buildGroupContext(values, breakdown)
	if err != nil {
		return nil, nil, err
	}
	bindings := namespaceBindings(ctx, e.set.extra)
	return e.runGroup(ctx, bindings)
}

// namespaceBindings exposes group snapshots and extra static values to
// formulas under o_<field> names.
func namespaceBindings(group Context, extra map[string]any) map[string]any {
	bindings := make(map[string]any, len(group)+len(extra))
	for field, snap := range group {
		bindings["o_"+field] = snap
	}
	for field, v := range extra {
		bindings["o_"+field] = v
	}
	return bindings
}

// runGroup is the single-pass group loop. It differs from the per-unit walk
// in taking every matching rule rather than the first: one pass can price
// several independent target fields. Within one field the first match wins,
// except for the unassigned bucket, which accumulates.
func (e *PriceEngine) runGroup(ctx Context, extraBindings map[string]any) (PriceMap, *Explain, error) {
	var explain *Explain
	if e.explain {
		explain = newExplain(extraBindings)
	}

	amounts := PriceMap{}
	newBasePrice := decimal.Zero
	matched := false
	written := map[string]bool{}

	e.set.prepare(ctx)
	for i, entry := range e.set.matches(ctx) {
		bindings := formulaBindings(decimal.Zero, newBasePrice, extraBindings)
		price, err := e.evalFormula(i, entry.rule, bindings)
		if err != nil {
			return nil, nil, err
		}

		if entry.cond.HasBackwards() {
			newBasePrice = price
			explain.add(entry.rule.ToOption, PricePart{
				Rule:      &entry.rule,
				Unit:      ctx,
				Bindings:  bindings,
				Value:     price,
				Matched:   true,
				Backwards: true,
			})
			continue
		}

		field := entry.rule.ToOption
		if field != Unassigned && written[field] {
			continue
		}
		written[field] = true
		matched = true
		amounts[field] = amounts[field].Add(price)
		explain.add(field, PricePart{
			Rule:     &entry.rule,
			Unit:     ctx,
			Bindings: bindings,
			Value:    price,
			Matched:  true,
			Replace:  entry.rule.ReplacePrice,
		})
	}

	if !matched {
		explain.add(Unassigned, PricePart{Unit: ctx})
		amounts[Unassigned] = amounts[Unassigned].Add(newBasePrice)
	}
	return amounts, explain, nil
}

// run is the per-unit accumulation loop behind Calculate.
func (e *PriceEngine) run(units iter.Seq[Context], basePrice decimal.Decimal, extraBindings map[string]any) (PriceMap, *Explain, error) {
	basePriceUnits := 0
	newBasePrice := basePrice
	amounts := PriceMap{}
	replaced := map[string]bool{}

	var explain *Explain
	if e.explain {
		explain = newExplain(extraBindings)
	}

	for unit := range units {
		e.set.prepare(unit)

		matched := false
		for i, entry := range e.set.matches(unit) {
			bindings := formulaBindings(basePrice, newBasePrice, extraBindings)
			price, err := e.evalFormula(i, entry.rule, bindings)
			if err != nil {
				return nil, nil, err
			}

			if entry.cond.HasBackwards() {
				// The rule result is a base-price override for the rest of
				// the walk; the unit itself is priced at the base rate.
				newBasePrice = price
				explain.add(entry.rule.ToOption, PricePart{
					Rule:      &entry.rule,
					Unit:      unit,
					Bindings:  bindings,
					Value:     price,
					Matched:   true,
					Backwards: true,
				})
				break
			}

			matched = true
			field := entry.rule.ToOption
			switch {
			case replaced[field]:
				// Locked by an earlier replace-flagged rule.
			case entry.rule.ReplacePrice:
				amounts[field] = price
				replaced[field] = true
			default:
				amounts[field] = amounts[field].Add(price)
			}
			explain.add(field, PricePart{
				Rule:     &entry.rule,
				Unit:     unit,
				Bindings: bindings,
				Value:    price,
				Matched:  true,
				Replace:  entry.rule.ReplacePrice,
			})
			break
		}

		if !matched {
			basePriceUnits++
			explain.add(Unassigned, PricePart{Unit: unit})
		}
	}

	if basePriceUnits > 0 {
		base := newBasePrice.Mul(decimal.NewFromInt(int64(basePriceUnits)))
		amounts[Unassigned] = amounts[Unassigned].Add(base)
	}
	return amounts, explain, nil
}

// evalFormula evaluates one parsed formula and converts the result to a
// decimal, rejecting NaN and infinities.
func (e *PriceEngine) evalFormula(i int, r Rule, bindings map[string]any) (decimal.Decimal, error) {
	raw, err := e.formulas[i].Eval(bindings)
	if err != nil {
		return decimal.Zero, errors.Wrapf(ErrFormula, "rule %s: %v", ruleLabel(r), err)
	}
	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		return decimal.Zero, errors.Wrapf(ErrFormula, "rule %s: result %v is not a number", ruleLabel(r), raw)
	}
	return decimal.NewFromFloat(raw), nil
}

func formulaBindings(basePrice, newBasePrice decimal.Decimal, extra map[string]any) map[string]any {
	bindings := make(map[string]any, len(extra)+2)
	for k, v := range extra {
		bindings[k] = v
	}
	bindings["bp"] = basePrice.InexactFloat64()
	bindings["nbp"] = newBasePrice.InexactFloat64()
	return bindings
}

package qbrules

import (
	"iter"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Rule is one entry of a ruleset: a condition tree plus the payload of the
// engine it is meant for. Pricing rules carry Price/ToOption/ReplacePrice,
// validation rules carry Message/ToOptions, param rules carry
// ParamType/Params. The other fields are ignored by engines they do not
// concern.
type Rule struct {
	ID    string         `json:"id,omitempty"`
	Title string         `json:"title,omitempty"`
	Order int            `json:"order,omitempty"`
	Rule  *ConditionNode `json:"rule"`

	// Pricing payload. Price is a formula over bp, nbp and the injected
	// o_<field> values. ToOption assigns the result to a target field;
	// empty means the unassigned/base bucket. ReplacePrice stores the
	// result exclusively instead of accumulating.
	Price        string `json:"price,omitempty"`
	ToOption     string `json:"to_option,omitempty"`
	ReplacePrice bool   `json:"replace_price,omitempty"`

	// Validation payload.
	Message   string   `json:"message,omitempty"`
	ToOptions []string `json:"to_options,omitempty"`

	// Param payload.
	ParamType string         `json:"param_type,omitempty"`
	Params    map[string]any `json:"params,omitempty"`
}

// ruleEntry pairs a rule with its compiled condition.
type ruleEntry struct {
	rule Rule
	cond *CompiledCondition
}

// ruleSet is the shared engine core: a list of compiled rules and the extra
// static context merged into every evaluated context. It is immutable after
// construction.
type ruleSet struct {
	entries []ruleEntry
	extra   map[string]any
}

func newRuleSet(rules []Rule, extra map[string]any) (*ruleSet, error) {
	s := &ruleSet{extra: extra}
	for i, r := range rules {
		cond, err := CompileCondition(r.Rule)
		if err != nil {
			return nil, errors.Wrapf(err, "compiling rule %d (%s)", i, ruleLabel(r))
		}
		s.entries = append(s.entries, ruleEntry{rule: r, cond: cond})
	}
	return s, nil
}

func ruleLabel(r Rule) string {
	switch {
	case r.Title != "":
		return r.Title
	case r.ID != "":
		return r.ID
	}
	return "untitled"
}

// prepare merges the static extra context into ctx before matching.
func (s *ruleSet) prepare(ctx Context) Context {
	if len(s.extra) > 0 {
		ctx.Merge(s.extra)
	}
	return ctx
}

// matches yields the rules whose conditions hold for the context, in
// ruleset order, together with their position. The sequence is lazy;
// callers that only need the first match stop early.
func (s *ruleSet) matches(ctx Context) iter.Seq2[int, *ruleEntry] {
	return func(yield func(int, *ruleEntry) bool) {
		for i := range s.entries {
			e := &s.entries[i]
			if !e.cond.Evaluate(ctx) {
				continue
			}
			if !yield(i, e) {
				return
			}
		}
	}
}

// FieldValue is one option's raw value and type, as submitted for a group
// evaluation.
type FieldValue struct {
	Value any       `json:"value"`
	Type  ValueType `json:"type"`
}

// OrderBreakdown carries per-field totals from a prior order-level price
// calculation. When supplied to a group evaluation, each field's snapshot is
// extended with its own total and order_total (the grand total minus the
// field's share), so rules can price an option relative to the rest of the
// order.
type OrderBreakdown struct {
	Total  decimal.Decimal
	Fields map[string]decimal.Decimal
}

// buildGroupContext builds the aggregate context for a group evaluation:
// one snapshot per field, keyed by field id.
func buildGroupContext(values map[string]FieldValue, breakdown *OrderBreakdown) (Context, error) {
	ctx := Context{}
	for field, fv := range values {
		ov, err := NewOptionValue(fv.Value, fv.Type)
		if err != nil {
			return nil, errors.Wrapf(err, "field %s", field)
		}
		snap := ov.Snapshot()
		if breakdown != nil {
			fieldTotal := breakdown.Fields[field]
			snap["total"] = fieldTotal.InexactFloat64()
			snap["order_total"] = breakdown.Total.Sub(fieldTotal).InexactFloat64()
		}
		ctx[field] = snap
	}
	return ctx, nil
}

// EngineOption configures an engine at construction time.
type EngineOption func(*engineOptions)

type engineOptions struct {
	extra   map[string]any
	explain bool
}

func applyEngineOptions(opts []EngineOption) engineOptions {
	var o engineOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithExtraContext merges the given static values into every context before
// rules are matched. Pricing engines additionally expose each entry to
// formulas under the o_<field> namespace.
func WithExtraContext(extra map[string]any) EngineOption {
	return func(o *engineOptions) {
		o.extra = extra
	}
}

// WithExplain makes the price engine record an explain trace of every unit
// evaluation alongside the computed price.
func WithExplain() EngineOption {
	return func(o *engineOptions) {
		o.explain = true
	}
}

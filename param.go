package qbrules

// ParamPayload is the payload of a matched param rule: a free-form params
// map tagged with the consumer it is meant for.
type ParamPayload struct {
	ParamType string         `json:"param_type"`
	Params    map[string]any `json:"params"`
}

// ParamEngine applies a param ruleset to option values. Param rules attach
// arbitrary payloads (rendering hints, fulfillment directives, downstream
// configuration) to values that satisfy their conditions. Like validation,
// matching runs against the value's single snapshot and all matching rules
// contribute.
type ParamEngine struct {
	set *ruleSet
}

// NewParamEngine compiles the ruleset's conditions once.
func NewParamEngine(rules []Rule, opts ...EngineOption) (*ParamEngine, error) {
	o := applyEngineOptions(opts)
	set, err := newRuleSet(rules, o.extra)
	if err != nil {
		return nil, err
	}
	return &ParamEngine{set: set}, nil
}

// Run returns the payloads of every rule matching the value, in rule order.
func (e *ParamEngine) Run(value any, typ ValueType) ([]ParamPayload, error) {
	ov, err := NewOptionValue(value, typ)
	if err != nil {
		return nil, err
	}
	ctx := e.set.prepare(ov.Snapshot())
	return e.collect(ctx), nil
}

// RunGroup matches the ruleset against the aggregate context of a set of
// option values.
func (e *ParamEngine) RunGroup(values map[string]FieldValue) ([]ParamPayload, error) {
	ctx, err := buildGroupContext(values, nil)
	if err != nil {
		return nil, err
	}
	e.set.prepare(ctx)
	return e.collect(ctx), nil
}

func (e *ParamEngine) collect(ctx Context) []ParamPayload {
	var out []ParamPayload
	for _, entry := range e.set.matches(ctx) {
		out = append(out, ParamPayload{
			ParamType: entry.rule.ParamType,
			Params:    entry.rule.Params,
		})
	}
	return out
}

package qbrules

// AllFields is the message-map key for validation messages not directed at
// any particular field.
const AllFields = "__all__"

// Validator applies a validation ruleset to option values. Unlike pricing,
// validation does not walk the unit range: the value's single snapshot is
// matched against every rule, and each matching rule contributes its
// message.
type Validator struct {
	set *ruleSet
}

// NewValidator compiles the ruleset's conditions once.
func NewValidator(rules []Rule, opts ...EngineOption) (*Validator, error) {
	o := applyEngineOptions(opts)
	set, err := newRuleSet(rules, o.extra)
	if err != nil {
		return nil, err
	}
	return &Validator{set: set}, nil
}

// Validate returns the messages of every rule matching the value, in rule
// order, with duplicates dropped. An empty slice means the value passed.
func (v *Validator) Validate(value any, typ ValueType) ([]string, error) {
	ov, err := NewOptionValue(value, typ)
	if err != nil {
		return nil, err
	}
	ctx := v.set.prepare(ov.Snapshot())
	return v.collect(ctx, nil), nil
}

// ValidateGroup validates a set of option values against one aggregate
// context. Each matching rule's message is attributed to the fields in its
// ToOptions list, or to AllFields when the list is empty.
func (v *Validator) ValidateGroup(values map[string]FieldValue) (map[string][]string, error) {
	ctx, err := buildGroupContext(values, nil)
	if err != nil {
		return nil, err
	}
	v.set.prepare(ctx)

	out := map[string][]string{}
	for _, entry := range v.set.matches(ctx) {
		targets := entry.rule.ToOptions
		if len(targets) == 0 {
			targets = []string{AllFields}
		}
		for _, field := range targets {
			out[field] = appendUnique(out[field], entry.rule.Message)
		}
	}
	return out, nil
}

func (v *Validator) collect(ctx Context, msgs []string) []string {
	for _, entry := range v.set.matches(ctx) {
		msgs = appendUnique(msgs, entry.rule.Message)
	}
	return msgs
}

func appendUnique(msgs []string, m string) []string {
	for _, existing := range msgs {
		if existing == m {
			return msgs
		}
	}
	return append(msgs, m)
}

package qbrules

import (
	"fmt"

	"github.com/pkg/errors"
)

// Combinators accepted in a condition group.
const (
	And = "AND"
	Or  = "OR"
)

// backwardsFields are the reserved field names that turn a rule into a
// base-price override: a rule whose condition tests one of these yields a
// new base price for the remaining units instead of an additive charge.
var backwardsFields = map[string]bool{
	"total_hours": true,
	"total_days":  true,
	"total_value": true,
}

// ConditionNode is one node of the rule-builder condition tree. A node with
// a Condition combinator is a group over Rules; otherwise it is a leaf
// comparing a context field against a literal. The JSON shape matches the
// builder grammar, which is validated upstream.
type ConditionNode struct {
	Condition string           `json:"condition,omitempty"`
	Rules     []*ConditionNode `json:"rules,omitempty"`

	ID       string    `json:"id,omitempty"`
	Field    string    `json:"field,omitempty"`
	Type     FieldType `json:"type,omitempty"`
	Operator string    `json:"operator,omitempty"`
	Value    any       `json:"value,omitempty"`
}

func (n *ConditionNode) group() bool { return n != nil && n.Condition != "" }

// predicate is the compiled form of a condition node.
type predicate interface {
	eval(Context) bool
	backwards() bool
}

type leafPredicate struct {
	field string
	op    Operator
	args  []any
	back  bool
}

func (p *leafPredicate) eval(ctx Context) bool { return p.op(ctx.Get(p.field), p.args) }
func (p *leafPredicate) backwards() bool       { return p.back }

type groupPredicate struct {
	or       bool
	children []predicate
	back     bool
}

func (p *groupPredicate) backwards() bool { return p.back }

func (p *groupPredicate) eval(ctx Context) bool {
	if len(p.children) == 0 {
		return false
	}
	res := p.children[0].eval(ctx)
	for _, child := range p.children[1:] {
		if p.or {
			if res {
				return true
			}
			res = child.eval(ctx)
		} else {
			if !res {
				return false
			}
			res = child.eval(ctx)
		}
	}
	return res
}

// CompiledCondition is a condition tree compiled into a reusable evaluator.
// Compilation happens once; Evaluate never recompiles, and HasBackwards is
// computed at compile time and cached.
type CompiledCondition struct {
	root predicate
}

// CompileCondition compiles the condition tree into an evaluator. Literal
// values are coerced to their declared types now, so a malformed literal is
// rejected here rather than at evaluation time.
func CompileCondition(tree *ConditionNode) (*CompiledCondition, error) {
	if tree == nil {
		return nil, fmt.Errorf("nil condition tree")
	}
	root, err := compileNode(tree)
	if err != nil {
		return nil, err
	}
	return &CompiledCondition{root: root}, nil
}

// Evaluate runs the compiled condition against the context.
func (c *CompiledCondition) Evaluate(ctx Context) bool {
	return c.root.eval(ctx)
}

// HasBackwards reports whether any leaf of the condition references a
// reserved backward field.
func (c *CompiledCondition) HasBackwards() bool {
	return c.root.backwards()
}

func compileNode(n *ConditionNode) (predicate, error) {
	if n.group() {
		return compileGroup(n)
	}
	return compileLeaf(n)
}

func compileGroup(n *ConditionNode) (predicate, error) {
	if n.Condition != And && n.Condition != Or {
		return nil, fmt.Errorf("unknown combinator %q", n.Condition)
	}
	g := &groupPredicate{or: n.Condition == Or}
	for i, child := range n.Rules {
		p, err := compileNode(child)
		if err != nil {
			return nil, errors.Wrapf(err, "rule %d of %s group", i, n.Condition)
		}
		g.children = append(g.children, p)
		g.back = g.back || p.backwards()
	}
	return g, nil
}

func compileLeaf(n *ConditionNode) (predicate, error) {
	op, err := lookupOperator(n.Type, n.Operator)
	if err != nil {
		return nil, err
	}

	field := n.Field
	if field == "" {
		field = n.ID
	}

	args, err := leafArgs(n)
	if err != nil {
		return nil, errors.Wrapf(err, "field %s", field)
	}

	return &leafPredicate{
		field: field,
		op:    op,
		args:  args,
		back:  backwardsFields[field],
	}, nil
}

// leafArgs coerces the leaf literal and fixes the operator arity:
// between/not_between spread two bounds, in/not_in take the whole list as
// one collection, everything else takes the first coerced element.
func leafArgs(n *ConditionNode) ([]any, error) {
	if n.Value == nil {
		return nil, nil
	}

	if list, ok := toList(n.Value); ok {
		coerced := make([]any, len(list))
		for i, item := range list {
			c, err := coerceField(n.Type, item)
			if err != nil {
				return nil, err
			}
			coerced[i] = c
		}
		switch n.Operator {
		case "between", "not_between":
			if len(coerced) < 2 {
				return nil, fmt.Errorf("%s requires two values, got %d", n.Operator, len(coerced))
			}
			return coerced[:2], nil
		case "in", "not_in":
			return []any{coerced}, nil
		default:
			if len(coerced) == 0 {
				return nil, nil
			}
			return coerced[:1], nil
		}
	}

	c, err := coerceField(n.Type, n.Value)
	if err != nil {
		return nil, err
	}
	return []any{c}, nil
}

// Package qbrules compiles declarative, tree-shaped rule descriptions
// (the kind produced by a visual query/rule builder) into executable
// evaluators, and applies them to typed option values.
//
// Three engines share the same compiled condition machinery:
//
//  1. PriceEngine computes a decimal price by walking an option value's
//     unit range (per item, per day, per hour) and accumulating the
//     price of each unit from the first matching rule.
//  2. Validator collects error messages from matching validation rules.
//  3. ParamEngine returns the parameter payloads of matching rules.
//
// Typical use:
//
//  1. Receive a ruleset (a slice of Rule) from the rule builder. The
//     ruleset is assumed to be structurally valid; validate it upstream.
//  2. Construct an engine, which compiles every condition tree once.
//  3. Evaluate values against the engine. Engines are immutable after
//     construction and safe for concurrent use.
//
// Rule conditions reference fields of a Context by dotted path
// ("27253.datetime", "date.isoweekday"). A missing or null field never
// causes an error; every comparison against it is simply false.
//
// Price formulas ("bp - 42", "300 * o_27253.days") are not interpreted by
// this package. They are handed to a FormulaEvaluator; the expr
// subpackage provides an implementation backed by expr-lang.
package qbrules

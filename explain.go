package qbrules

import (
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/shopspring/decimal"
)

// PricePart records one unit evaluation in an explain trace. A part with a
// nil Rule is a unit no rule matched, priced at the prevailing base rate.
type PricePart struct {
	Rule     *Rule
	Unit     Context
	Bindings map[string]any
	Value    decimal.Decimal

	Matched   bool
	Backwards bool
	Replace   bool
}

// Explain is the trace of a price calculation: the static formula bindings
// plus every unit evaluation, grouped by the target field the amount was
// assigned to.
type Explain struct {
	Bindings map[string]any
	Parts    map[string][]PricePart
}

func newExplain(bindings map[string]any) *Explain {
	return &Explain{
		Bindings: bindings,
		Parts:    map[string][]PricePart{},
	}
}

// add is nil-safe so the engine can record parts unconditionally.
func (x *Explain) add(field string, p PricePart) {
	if x == nil {
		return
	}
	x.Parts[field] = append(x.Parts[field], p)
}

// String renders the trace as a table, one row per unit evaluation, grouped
// by target field. Useful in test failures and debug logs.
func (x *Explain) String() string {
	if x == nil {
		return ""
	}

	fields := make([]string, 0, len(x.Parts))
	for f := range x.Parts {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.Style().Options.SeparateRows = false
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMax: 20},
		{Number: 2, WidthMax: 30},
		{Number: 3, Align: text.AlignRight},
	})
	t.AppendHeader(table.Row{"Field", "Rule", "Amount", "Kind", "Unit"})

	for _, f := range fields {
		name := f
		if name == Unassigned {
			name = "(base)"
		}
		for _, p := range x.Parts[f] {
			t.AppendRow(table.Row{
				name,
				partRuleLabel(p),
				humanize.CommafWithDigits(p.Value.InexactFloat64(), 2),
				partKind(p),
				summarizeUnit(p.Unit),
			})
		}
	}
	return t.Render()
}

func partRuleLabel(p PricePart) string {
	if p.Rule == nil {
		return "(no match)"
	}
	return ruleLabel(*p.Rule)
}

func partKind(p PricePart) string {
	switch {
	case p.Backwards:
		return "base override"
	case p.Replace:
		return "replace"
	case p.Matched:
		return "add"
	}
	return "base"
}

// summarizeUnit keeps the trace table readable: a few scalar keys of the
// unit context, in stable order.
func summarizeUnit(unit Context) string {
	keys := make([]string, 0, len(unit))
	for k, v := range unit {
		if _, nested := v.(Context); nested {
			continue
		}
		if _, nested := v.(map[string]any); nested {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteString(" ")
		}
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(stringify(unit[k]))
	}
	return b.String()
}

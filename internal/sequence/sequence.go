package sequence

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/verte-zerg/stroopread/internal/model"
	"github.com/verte-zerg/stroopread/internal/stimulus"
)

// ErrUnknownPhase reports a sequence entry naming no defined phase.
var ErrUnknownPhase = errors.New("unknown phase")

// Template binds a templated phase to its stimulus table.
type Template struct {
	Name  string
	Table *stimulus.Table

	// Partition names a column splitting the table into blocks.
	Partition string
	// PartitionOrder fixes block order; empty means first appearance.
	PartitionOrder []string
	// Rest names the fixed phase shown between blocks.
	Rest string
}

// Phases is the set of phases a sequence may reference.
type Phases struct {
	Fixed     map[string]struct{}
	Templates map[string]Template
}

// NewPhases builds a phase set from fixed names and templates.
func NewPhases(fixed []string, templates ...Template) Phases {
	p := Phases{Fixed: map[string]struct{}{}, Templates: map[string]Template{}}
	for _, name := range fixed {
		p.Fixed[name] = struct{}{}
	}
	for _, t := range templates {
		p.Templates[t.Name] = t
	}
	return p
}

// Build expands entries into trial references. Fixed phases yield one
// trial each; templates yield one trial per row, in table order unless the
// entry is randomized, in which case only that span is permuted.
func Build(entries []Entry, phases Phases, rnd *rand.Rand) ([]model.TrialRef, error) {
	var refs []model.TrialRef
	for _, e := range entries {
		if _, ok := phases.Fixed[e.Name]; ok {
			if e.Randomize {
				return nil, fmt.Errorf("%w: cannot randomize fixed phase %q", ErrBadEntry, e.Name)
			}
			refs = append(refs, model.TrialRef{Phase: e.Name, Index: -1})
			continue
		}
		tmpl, ok := phases.Templates[e.Name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownPhase, e.Name)
		}
		if e.Randomize && rnd == nil {
			return nil, fmt.Errorf("randomize(%s) needs a random source", e.Name)
		}
		expanded, err := expand(tmpl, e.Randomize, phases, rnd)
		if err != nil {
			return nil, err
		}
		refs = append(refs, expanded...)
	}
	return refs, nil
}

func expand(tmpl Template, randomize bool, phases Phases, rnd *rand.Rand) ([]model.TrialRef, error) {
	if tmpl.Table == nil {
		return nil, fmt.Errorf("template %q has no table", tmpl.Name)
	}
	if tmpl.Partition == "" {
		return span(tmpl, tmpl.Table, "", randomize, rnd), nil
	}
	if err := tmpl.Table.Require(tmpl.Partition); err != nil {
		return nil, err
	}
	if tmpl.Rest != "" {
		if _, ok := phases.Fixed[tmpl.Rest]; !ok {
			return nil, fmt.Errorf("%w: rest phase %q of template %q", ErrUnknownPhase, tmpl.Rest, tmpl.Name)
		}
	}

	values, err := BlockOrder(tmpl)
	if err != nil {
		return nil, err
	}
	var refs []model.TrialRef
	for i, value := range values {
		if i > 0 && tmpl.Rest != "" {
			refs = append(refs, model.TrialRef{Phase: tmpl.Rest, Index: -1})
		}
		block := tmpl.Table.Filter(tmpl.Partition, value)
		refs = append(refs, span(tmpl, block, value, randomize, rnd)...)
	}
	return refs, nil
}

// BlockOrder returns the partition values of tmpl in presentation order. A
// declared order must list every value present in the table exactly once
// and nothing else.
func BlockOrder(tmpl Template) ([]string, error) {
	present := tmpl.Table.PartitionValues(tmpl.Partition)
	if len(tmpl.PartitionOrder) == 0 {
		return present, nil
	}
	rows := make(map[string]struct{}, len(present))
	for _, v := range present {
		rows[v] = struct{}{}
	}
	listed := make(map[string]struct{}, len(tmpl.PartitionOrder))
	for _, v := range tmpl.PartitionOrder {
		if _, ok := listed[v]; ok {
			return nil, orderError(tmpl, fmt.Sprintf("partition order lists %q twice", v))
		}
		listed[v] = struct{}{}
		if _, ok := rows[v]; !ok {
			return nil, orderError(tmpl, fmt.Sprintf("partition order names %q, which has no rows", v))
		}
	}
	for _, v := range present {
		if _, ok := listed[v]; !ok {
			return nil, orderError(tmpl, fmt.Sprintf("partition order omits %q", v))
		}
	}
	return tmpl.PartitionOrder, nil
}

func orderError(tmpl Template, reason string) error {
	return fmt.Errorf("template %q: %w", tmpl.Name, &stimulus.DataError{
		Table:  tmpl.Table.Name,
		Column: tmpl.Partition,
		Reason: reason,
	})
}

func span(tmpl Template, table *stimulus.Table, partition string, randomize bool, rnd *rand.Rand) []model.TrialRef {
	rows := table.Rows()
	refs := make([]model.TrialRef, 0, len(rows))
	for _, row := range rows {
		refs = append(refs, model.TrialRef{
			Phase:      tmpl.Name,
			Index:      row.Index,
			Partition:  partition,
			Randomized: randomize,
		})
	}
	if randomize {
		shuffle(rnd, refs)
	}
	return refs
}

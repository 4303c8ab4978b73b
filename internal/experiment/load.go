package experiment

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/verte-zerg/stroopread/internal/gate"
	"github.com/verte-zerg/stroopread/internal/sequence"
	"github.com/verte-zerg/stroopread/internal/stimulus"
)

// Load reads an experiment definition from a TOML file.
func Load(path string) (*Definition, error) {
	if path == "" {
		return nil, fmt.Errorf("experiment path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to stat experiment: %w", err)
	}
	var def Definition
	md, err := toml.DecodeFile(path, &def)
	if err != nil {
		return nil, fmt.Errorf("failed to decode experiment: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown experiment keys: %v", undecoded)
	}
	if !md.IsDefined("delay-ms") {
		def.DelayMs = DefaultDelayMs
	}
	def.Gate.Thresholds = mergeThresholds(def.Gate.Thresholds)
	for i := range def.Templates {
		if def.Templates[i].Feedback && def.Templates[i].FeedbackMs == 0 {
			def.Templates[i].FeedbackMs = DefaultFeedbackMs
		}
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// mergeThresholds fills counters missing from set with the built-in criteria.
func mergeThresholds(set map[string]int) map[string]int {
	merged := Default().Gate.Thresholds
	for counter, t := range set {
		merged[counter] = t
	}
	return merged
}

// TableLoader opens a stimulus table by path.
type TableLoader func(path string) (*stimulus.Table, error)

// Bound is a definition whose templates are attached to loaded tables.
type Bound struct {
	Def     *Definition
	Mode    gate.Mode
	Entries []sequence.Entry
	Phases  sequence.Phases
	Tables  map[string]*stimulus.Table
}

// Bind loads every template table from dir and checks its columns.
func Bind(def *Definition, dir string, load TableLoader) (*Bound, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	if load == nil {
		load = stimulus.Load
	}
	mode, err := gate.ParseMode(def.Gate.Mode)
	if err != nil {
		return nil, err
	}
	entries, err := def.Entries()
	if err != nil {
		return nil, err
	}

	fixed := make([]string, 0, len(def.Phases))
	for _, p := range def.Phases {
		fixed = append(fixed, p.Name)
	}
	tables := map[string]*stimulus.Table{}
	templates := make([]sequence.Template, 0, len(def.Templates))
	for _, t := range def.Templates {
		path := t.Table
		if !filepath.IsAbs(path) && dir != "" {
			path = filepath.Join(dir, path)
		}
		table, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("template %q: %w", t.Name, err)
		}
		if err := table.Require(RequiredColumns(t)...); err != nil {
			return nil, fmt.Errorf("template %q: %w", t.Name, err)
		}
		bound := sequence.Template{
			Name:           t.Name,
			Table:          table,
			Partition:      t.Partition,
			PartitionOrder: t.PartitionOrder,
			Rest:           t.Rest,
		}
		if t.Partition != "" {
			if _, err := sequence.BlockOrder(bound); err != nil {
				return nil, err
			}
		}
		tables[t.Name] = table
		templates = append(templates, bound)
	}
	return &Bound{
		Def:     def,
		Mode:    mode,
		Entries: entries,
		Phases:  sequence.NewPhases(fixed, templates...),
		Tables:  tables,
	}, nil
}

// RequiredColumns lists the columns a template reads.
func RequiredColumns(t Template) []string {
	var cols []string
	switch t.Kind {
	case TemplateMatching, TemplateStroop:
		cols = []string{stimulus.ColWord, stimulus.ColFontColourCode, stimulus.ColButton}
	case TemplateCombined:
		cols = []string{
			stimulus.ColWord,
			stimulus.ColFontColourCode,
			stimulus.ColTrialType,
			stimulus.ColSentence,
			stimulus.ColQuestion,
		}
	}
	if t.Partition != "" {
		cols = append(cols, t.Partition)
	}
	return cols
}

// Package experiment describes an experiment: its phases, templates,
// practice criteria and declared sequence.
package experiment

import (
	"fmt"
	"strings"

	"github.com/verte-zerg/stroopread/internal/gate"
	"github.com/verte-zerg/stroopread/internal/sequence"
)

// PhaseKind identifies a fixed phase.
type PhaseKind string

// Fixed phase kinds.
const (
	PhaseIntro        PhaseKind = "intro"
	PhaseInstructions PhaseKind = "instructions"
	PhaseBreak        PhaseKind = "break"
	PhaseSendResults  PhaseKind = "send_results"
	PhaseFarewell     PhaseKind = "farewell"
)

// TemplateKind identifies how a templated trial runs.
type TemplateKind string

// Template kinds.
const (
	// TemplateMatching shows a colour patch word and scores the key.
	TemplateMatching TemplateKind = "matching"
	// TemplateStroop shows a colour word in a conflicting ink.
	TemplateStroop TemplateKind = "stroop"
	// TemplateCombined runs a Stroop word and a self-paced sentence in the
	// order picked by the row's trial type.
	TemplateCombined TemplateKind = "combined"
)

// Phase is a fixed, single-trial phase.
type Phase struct {
	Name        string    `toml:"name"`
	Kind        PhaseKind `toml:"kind"`
	Text        string    `toml:"text"`
	Keys        string    `toml:"keys"`
	Consent     string    `toml:"consent"`
	Demographic string    `toml:"demographic"`
	IDPrompt    string    `toml:"id-prompt"`
	Counted     *bool     `toml:"counts-for-progress"`
}

// CountsForProgress reports whether the phase is included in progress totals.
func (p Phase) CountsForProgress() bool {
	if p.Counted != nil {
		return *p.Counted
	}
	return p.Kind != PhaseFarewell && p.Kind != PhaseSendResults
}

// Template is a phase instantiated once per stimulus row.
type Template struct {
	Name           string       `toml:"name"`
	Kind           TemplateKind `toml:"kind"`
	Table          string       `toml:"table"`
	Keys           string       `toml:"keys"`
	Counter        string       `toml:"counter"`
	Feedback       bool         `toml:"feedback"`
	FeedbackMs     int          `toml:"feedback-ms"`
	DeadlineMs     int          `toml:"deadline-ms"`
	FixationMs     int          `toml:"fixation-ms"`
	Partition      string       `toml:"partition"`
	PartitionOrder []string     `toml:"partition-order"`
	Rest           string       `toml:"rest"`
	Log            []string     `toml:"log"`
}

// GateConfig configures practice scoring.
type GateConfig struct {
	Mode       string         `toml:"mode"`
	Thresholds map[string]int `toml:"thresholds"`
}

// Definition is a complete experiment description.
type Definition struct {
	Sequence  []string   `toml:"sequence"`
	DelayMs   int        `toml:"delay-ms"`
	Gate      GateConfig `toml:"gate"`
	Phases    []Phase    `toml:"phase"`
	Templates []Template `toml:"template"`
}

// Phase looks up a fixed phase by name.
func (d *Definition) Phase(name string) (Phase, bool) {
	for _, p := range d.Phases {
		if p.Name == name {
			return p, true
		}
	}
	return Phase{}, false
}

// Template looks up a template by name.
func (d *Definition) Template(name string) (Template, bool) {
	for _, t := range d.Templates {
		if t.Name == name {
			return t, true
		}
	}
	return Template{}, false
}

// Entries parses the declared sequence.
func (d *Definition) Entries() ([]sequence.Entry, error) {
	return sequence.ParseEntries(d.Sequence)
}

// Validate checks names, kinds and references.
func (d *Definition) Validate() error {
	if len(d.Sequence) == 0 {
		return fmt.Errorf("experiment sequence is empty")
	}
	if d.DelayMs < 0 {
		return fmt.Errorf("delay-ms must be >= 0")
	}
	if _, err := gate.ParseMode(d.Gate.Mode); err != nil {
		return err
	}
	for name, t := range d.Gate.Thresholds {
		if t < 0 {
			return fmt.Errorf("gate threshold %q must be >= 0", name)
		}
	}

	names := map[string]struct{}{}
	claim := func(name string) error {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("phase name must not be empty")
		}
		if _, ok := names[name]; ok {
			return fmt.Errorf("duplicate phase name %q", name)
		}
		names[name] = struct{}{}
		return nil
	}
	for _, p := range d.Phases {
		if err := claim(p.Name); err != nil {
			return err
		}
		switch p.Kind {
		case PhaseIntro, PhaseInstructions, PhaseBreak, PhaseSendResults, PhaseFarewell:
		default:
			return fmt.Errorf("phase %q: unknown kind %q", p.Name, p.Kind)
		}
	}
	for _, t := range d.Templates {
		if err := claim(t.Name); err != nil {
			return err
		}
		switch t.Kind {
		case TemplateMatching, TemplateStroop, TemplateCombined:
		default:
			return fmt.Errorf("template %q: unknown kind %q", t.Name, t.Kind)
		}
		if t.Table == "" {
			return fmt.Errorf("template %q: table is required", t.Name)
		}
		if t.FeedbackMs < 0 || t.DeadlineMs < 0 || t.FixationMs < 0 {
			return fmt.Errorf("template %q: durations must be >= 0", t.Name)
		}
		if t.Rest != "" {
			rest, ok := d.Phase(t.Rest)
			if !ok {
				return fmt.Errorf("template %q: rest phase %q is not defined", t.Name, t.Rest)
			}
			if rest.Kind != PhaseBreak && rest.Kind != PhaseInstructions {
				return fmt.Errorf("template %q: rest phase %q must be a break", t.Name, t.Rest)
			}
		}
	}

	entries, err := d.Entries()
	if err != nil {
		return err
	}
	used := map[string]struct{}{}
	for _, e := range entries {
		if _, ok := names[e.Name]; !ok {
			return fmt.Errorf("%w: %q", sequence.ErrUnknownPhase, e.Name)
		}
		if _, ok := d.Template(e.Name); !ok {
			continue
		}
		// Trial IDs derive from template and row, so a template may run once.
		if _, ok := used[e.Name]; ok {
			return fmt.Errorf("%w: template %q appears more than once in the sequence", sequence.ErrBadEntry, e.Name)
		}
		used[e.Name] = struct{}{}
	}
	return nil
}

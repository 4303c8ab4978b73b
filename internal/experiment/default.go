package experiment

import (
	"time"

	"github.com/verte-zerg/stroopread/internal/branch"
	"github.com/verte-zerg/stroopread/internal/gate"
)

// Default table file names, resolved against the stimuli directory.
const (
	DefaultMatchingTable = "practice_matching_ibex.csv"
	DefaultStroopTable   = "practice_stroop_ibex.csv"
	DefaultCombinedTable = "practice_combined_ibex.csv"
	DefaultStimuliTable  = "stimuli_ibex.csv"
)

// DefaultDelayMs is the pause before every trial.
const DefaultDelayMs = 250

// DefaultFeedbackMs is how long practice feedback stays on screen.
const DefaultFeedbackMs = 1000

const responseKeys = "QWE"

var defaultFixationMs = int(branch.DefaultTiming().Fixation / time.Millisecond)

// Default returns the standard Stroop and reading experiment.
func Default() *Definition {
	counted := false
	return &Definition{
		Sequence: []string{
			"intro",
			"practice_color",
			"color_matching",
			"practice_stroop",
			"stroop",
			"practice_combined",
			"practice",
			"exp_instru",
			"randomize(experiment)",
			"send_results",
			"bye",
		},
		DelayMs: DefaultDelayMs,
		Gate: GateConfig{
			Mode: string(gate.Ungated),
			Thresholds: map[string]int{
				gate.CounterColor:  gate.DefaultColorThreshold,
				gate.CounterStroop: gate.DefaultStroopThreshold,
			},
		},
		Phases: []Phase{
			{
				Name: "intro",
				Kind: PhaseIntro,
				Text: "Welcome. This study combines a colour naming task with sentence reading.\n" +
					"It takes about 20 minutes.",
				Consent: "I have read the information above and agree to take part.",
				Demographic: "I have completed the demographic questionnaire " +
					"(age, gender, native language).",
				IDPrompt: "Almost there! Please enter your Prolific ID and press Enter:",
			},
			{
				Name: "practice_color",
				Kind: PhaseInstructions,
				Text: "First, practise matching colours to keys.\n" +
					"Press Q for red, W for blue and E for green.\n\n" +
					"Press space to start.",
				Keys: " ",
			},
			{
				Name: "practice_stroop",
				Kind: PhaseInstructions,
				Text: "Then we'll print colour names in different inks.\n" +
					"Respond to the ink colour, not the word.\n\n" +
					"Press space to start practice.",
				Keys: " ",
			},
			{
				Name: "practice_combined",
				Kind: PhaseInstructions,
				Text: "Now we'll combine colour matching with some reading.\n" +
					"Sentences appear as dashes; press space to reveal each word.\n" +
					"Answer the question that follows with Y or N.\n\n" +
					"Press space to start.",
				Keys: " ",
			},
			{
				Name: "exp_instru",
				Kind: PhaseInstructions,
				Text: "Practice done! Here is a quick review:\n" +
					"Q red, W blue, E green. Space reveals the next word. Y or N answers questions.\n\n" +
					"Press space to begin the experiment.",
				Keys: " ",
			},
			{
				Name: "break",
				Kind: PhaseBreak,
				Text: "Take a short break. Press space when you are ready to continue.",
				Keys: " ",
			},
			{
				Name:    "send_results",
				Kind:    PhaseSendResults,
				Counted: &counted,
			},
			{
				Name: "bye",
				Kind: PhaseFarewell,
				Text: "This is the end of the experiment.\n\n" +
					"Well done! Thanks for your participation.\n\n" +
					"Press space to validate your participation.",
				Keys:    " ",
				Counted: &counted,
			},
		},
		Templates: []Template{
			{
				Name:       "color_matching",
				Kind:       TemplateMatching,
				Table:      DefaultMatchingTable,
				Keys:       responseKeys,
				Counter:    gate.CounterColor,
				Feedback:   true,
				FeedbackMs: DefaultFeedbackMs,
			},
			{
				Name:       "stroop",
				Kind:       TemplateStroop,
				Table:      DefaultStroopTable,
				Keys:       responseKeys,
				Counter:    gate.CounterStroop,
				Feedback:   true,
				FeedbackMs: DefaultFeedbackMs,
			},
			{
				Name:       "practice",
				Kind:       TemplateCombined,
				Table:      DefaultCombinedTable,
				Keys:       responseKeys,
				FixationMs: defaultFixationMs,
			},
			{
				Name:       "experiment",
				Kind:       TemplateCombined,
				Table:      DefaultStimuliTable,
				Keys:       responseKeys,
				FixationMs: defaultFixationMs,
				Log:        []string{"Group", "Condition", "Block", "Item"},
			},
		},
	}
}

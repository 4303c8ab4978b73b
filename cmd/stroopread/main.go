// Package main provides the CLI entrypoint for stroopread.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/verte-zerg/stroopread/internal/config"
	"github.com/verte-zerg/stroopread/internal/experiment"
	"github.com/verte-zerg/stroopread/internal/gate"
	"github.com/verte-zerg/stroopread/internal/logging"
	"github.com/verte-zerg/stroopread/internal/model"
	"github.com/verte-zerg/stroopread/internal/present"
	"github.com/verte-zerg/stroopread/internal/session"
	"github.com/verte-zerg/stroopread/internal/stats"
	"github.com/verte-zerg/stroopread/internal/statsui"
	"github.com/verte-zerg/stroopread/internal/stimulus"
	"github.com/verte-zerg/stroopread/internal/store"
	"github.com/verte-zerg/stroopread/internal/tui"
)

const (
	defaultLogLevel    = logging.LevelInfo
	defaultCurveWindow = 10
)

var (
	runStimuliDir string
	runExperiment string
	runGateMode   string
	runSeed       int64
	runLogLevel   string
	runLogFile    string
	runDB         string

	statsParticipant string
	statsSince       string
	statsLast        int
	statsCurveWindow int
	statsPlain       bool

	exportOutput string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "stroopread",
		Short:         "Stroop and self-paced reading experiment runner",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runSessionCmd,
	}

	addExperimentFlags(rootCmd)
	rootCmd.Flags().StringVar(&runLogLevel, "log-level", defaultLogLevel, "log level (debug, info, warn, error)")
	rootCmd.Flags().StringVar(&runLogFile, "log-file", config.DefaultLogPath(), "session log file")
	rootCmd.Flags().StringVar(&runDB, "db", config.DefaultDBPath(), "results database")

	rootCmd.AddCommand(newSequenceCmd())
	rootCmd.AddCommand(newCheckCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

func addExperimentFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&runStimuliDir, "stimuli-dir", config.DefaultStimuliDir(), "directory containing the stimulus tables")
	cmd.Flags().StringVar(&runExperiment, "experiment", "", "experiment definition (TOML); built-in experiment when empty")
	cmd.Flags().StringVar(&runGateMode, "gate-mode", "", "practice gate mode (gated, ungated); experiment setting when empty")
	cmd.Flags().Int64Var(&runSeed, "seed", 0, "randomization seed; 0 picks one from the clock")
}

// loadRunConfig applies the [run] table to flags the user did not set.
func loadRunConfig(cmd *cobra.Command) (model.Config, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return model.Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "stimuli-dir", &runStimuliDir, fileCfg.Run.StimuliDir)
	applyStringConfig(cmd, "experiment", &runExperiment, fileCfg.Run.Experiment)
	applyStringConfig(cmd, "gate-mode", &runGateMode, fileCfg.Run.GateMode)
	applyInt64Config(cmd, "seed", &runSeed, fileCfg.Run.Seed)
	applyStringConfig(cmd, "log-level", &runLogLevel, fileCfg.Run.LogLevel)
	applyStringConfig(cmd, "log-file", &runLogFile, fileCfg.Run.LogFile)
	applyStringConfig(cmd, "db", &runDB, fileCfg.Run.DB)

	cfg := model.Config{
		StimuliDir:     runStimuliDir,
		ExperimentPath: runExperiment,
		GateMode:       runGateMode,
		Seed:           runSeed,
		LogLevel:       runLogLevel,
	}
	if err := validateConfig(cfg); err != nil {
		return model.Config{}, err
	}
	return cfg, nil
}

func loadExperiment(cfg model.Config) (*experiment.Bound, error) {
	def := experiment.Default()
	if cfg.ExperimentPath != "" {
		loaded, err := experiment.Load(cfg.ExperimentPath)
		if err != nil {
			return nil, err
		}
		def = loaded
	}
	if cfg.GateMode != "" {
		def.Gate.Mode = cfg.GateMode
	}
	bound, err := experiment.Bind(def, cfg.StimuliDir, stimulus.Load)
	if err != nil {
		var dataErr *stimulus.DataError
		if errors.As(err, &dataErr) {
			return nil, fmt.Errorf("invalid stimulus table: %w", err)
		}
		return nil, fmt.Errorf("failed to load experiment: %w", err)
	}
	return bound, nil
}

func runSessionCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadRunConfig(cmd)
	if err != nil {
		return err
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("stroopread needs an interactive terminal")
	}
	bound, err := loadExperiment(cfg)
	if err != nil {
		return err
	}

	logger, closeLog, err := logging.Open(runLogFile, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to open log: %w", err)
	}
	defer func() {
		if cerr := closeLog(); cerr != nil {
			logErrf("failed to close log: %v\n", cerr)
		}
	}()

	st, err := store.Open(runDB)
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	presenter := tui.NewPresenter()
	runner, err := session.New(bound, presenter, session.Options{Seed: cfg.Seed, Sink: st, Logger: logger})
	if err != nil {
		return err
	}
	presenter.Start()
	go func() {
		select {
		case <-presenter.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	summary, runErr := runner.Run(ctx)
	if err := presenter.Stop(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		logErrf("failed to restore terminal: %v\n", err)
	}
	if runErr != nil && !summary.Aborted {
		return fmt.Errorf("session failed: %w", runErr)
	}

	state := "finished"
	if summary.Aborted {
		state = "aborted"
	}
	logErrf("Session %s: participant %q, seed %d, %d trials, scores %s\n",
		state, summary.Participant, summary.Seed, len(summary.Results), formatScores(summary.Scores))
	if summary.Saved && summary.Aborted {
		logErrf("Partial results saved as session %d in %s\n", summary.SessionID, runDB)
	} else if summary.Saved {
		logErrf("Results saved as session %d in %s\n", summary.SessionID, runDB)
	}
	return nil
}

func newSequenceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sequence",
		Short: "Print the trial order for a seed without running it",
		Args:  cobra.NoArgs,
		RunE:  runSequenceCmd,
	}
	addExperimentFlags(cmd)
	return cmd
}

func runSequenceCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadRunConfig(cmd)
	if err != nil {
		return err
	}
	bound, err := loadExperiment(cfg)
	if err != nil {
		return err
	}
	runner, err := session.New(bound, &present.Script{}, session.Options{Seed: cfg.Seed})
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if _, err := fmt.Fprintf(out, "# seed %d, gate %s\n", runner.Seed(), bound.Mode); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	for i, ref := range runner.Sequence() {
		line := fmt.Sprintf("%4d  %s", i, ref.Phase)
		if ref.Templated() {
			row, _ := bound.Tables[ref.Phase].Row(ref.Index)
			line += fmt.Sprintf("  row=%d", ref.Index)
			if ref.Partition != "" {
				line += "  block=" + ref.Partition
			}
			if row.Item != "" {
				line += "  item=" + row.Item
			}
			if row.TrialType != "" {
				line += "  type=" + row.TrialType
			}
		}
		if _, err := fmt.Fprintln(out, line); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the experiment and its stimulus tables",
		Args:  cobra.NoArgs,
		RunE:  runCheckCmd,
	}
	addExperimentFlags(cmd)
	return cmd
}

func runCheckCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadRunConfig(cmd)
	if err != nil {
		return err
	}
	bound, err := loadExperiment(cfg)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, tmpl := range bound.Def.Templates {
		table := bound.Tables[tmpl.Name]
		line := fmt.Sprintf("%-16s %-10s %-32s %d rows", tmpl.Name, tmpl.Kind, table.Name, table.Len())
		if tmpl.Partition != "" {
			line += fmt.Sprintf(", %s %s", tmpl.Partition, strings.Join(table.PartitionValues(tmpl.Partition), "/"))
		}
		if _, err := fmt.Fprintln(out, line); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	thresholds := make([]string, 0, 2)
	for _, counter := range []string{gate.CounterColor, gate.CounterStroop} {
		if t, ok := bound.Def.Gate.Thresholds[counter]; ok {
			thresholds = append(thresholds, fmt.Sprintf("%s=%d", counter, t))
		}
	}
	if _, err := fmt.Fprintf(out, "gate %s (%s), %d sequence entries\n", bound.Mode, strings.Join(thresholds, " "), len(bound.Entries)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func addStatsFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&statsParticipant, "participant", "", "participant ID filter")
	cmd.Flags().StringVar(&statsSince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&statsLast, "last", 0, "limit to last N sessions")
	cmd.Flags().StringVar(&runDB, "db", config.DefaultDBPath(), "results database")
}

func statsConfig(cmd *cobra.Command) (model.StatsConfig, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return model.StatsConfig{}, fmt.Errorf("failed to load config: %w", err)
	}
	applyIntConfig(cmd, "last", &statsLast, fileCfg.Stats.Last)
	applyIntConfig(cmd, "curve-window", &statsCurveWindow, fileCfg.Stats.CurveWindow)
	applyStringConfig(cmd, "db", &runDB, fileCfg.Run.DB)

	var sinceTime *time.Time
	if statsSince != "" {
		parsed, err := time.ParseInLocation("2006-01-02", statsSince, time.Local)
		if err != nil {
			return model.StatsConfig{}, fmt.Errorf("invalid --since value: %w", err)
		}
		sinceTime = &parsed
	}
	if statsLast < 0 {
		return model.StatsConfig{}, fmt.Errorf("--last must be >= 0")
	}
	return model.StatsConfig{
		Participant: statsParticipant,
		Since:       sinceTime,
		Last:        statsLast,
		CurveWindow: statsCurveWindow,
	}, nil
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show stats of stored sessions",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	addStatsFlags(cmd)
	cmd.Flags().IntVar(&statsCurveWindow, "curve-window", defaultCurveWindow, "moving average window")
	cmd.Flags().BoolVar(&statsPlain, "plain", false, "print a text report instead of the interactive view")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := statsConfig(cmd)
	if err != nil {
		return err
	}
	st, err := store.Open(runDB)
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	if statsPlain || !term.IsTerminal(int(os.Stdout.Fd())) {
		report, err := stats.BuildReport(context.Background(), st, cfg)
		if err != nil {
			return fmt.Errorf("failed to build report: %w", err)
		}
		return report.Render(cmd.OutOrStdout(), cfg.CurveWindow)
	}

	program := tea.NewProgram(statsui.NewModel(st, cfg), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run stats TUI: %w", err)
	}
	return nil
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export stored trial results as CSV",
		Args:  cobra.NoArgs,
		RunE:  runExportCmd,
	}
	addStatsFlags(cmd)
	cmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default: stdout)")
	return cmd
}

func runExportCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := statsConfig(cmd)
	if err != nil {
		return err
	}
	st, err := store.Open(runDB)
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	var out io.Writer = cmd.OutOrStdout()
	if exportOutput != "" {
		f, err := os.Create(exportOutput)
		if err != nil {
			return fmt.Errorf("failed to create output: %w", err)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil {
				logErrf("failed to close output: %v\n", cerr)
			}
		}()
		out = f
	}
	n, err := stats.Export(context.Background(), st, cfg, out)
	if err != nil {
		return fmt.Errorf("failed to export results: %w", err)
	}
	if exportOutput != "" {
		logErrf("Wrote %d trials to %s\n", n, exportOutput)
	}
	return nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyInt64Config(cmd *cobra.Command, name string, target, value *int64) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# stroopread configuration
# Uncomment a value to enable it. CLI flags override config values.

[run]
# stimuli-dir = %q   # Directory with the stimulus CSV tables
# experiment = ""        # Experiment definition (TOML); built-in when empty
# gate-mode = "ungated"  # Practice gate: gated or ungated
# seed = 0               # Randomization seed; 0 picks one per session
# log-level = %q       # debug, info, warn, error
# log-file = %q
# db = %q

[stats]
# last = 0               # Limit reports to the last N sessions
# curve-window = %d      # Moving average window for learning curves
`,
		config.DefaultStimuliDir(),
		defaultLogLevel,
		config.DefaultLogPath(),
		config.DefaultDBPath(),
		defaultCurveWindow,
	)
}

func validateConfig(cfg model.Config) error {
	if cfg.GateMode != "" {
		if _, err := gate.ParseMode(cfg.GateMode); err != nil {
			return fmt.Errorf("--gate-mode: %w", err)
		}
	}
	if cfg.Seed < 0 {
		return fmt.Errorf("--seed must be >= 0")
	}
	switch strings.ToUpper(cfg.LogLevel) {
	case "", logging.LevelDebug, logging.LevelInfo, logging.LevelWarn, logging.LevelError:
	default:
		return fmt.Errorf("--log-level must be one of debug, info, warn, error")
	}
	if cfg.StimuliDir == "" {
		return fmt.Errorf("--stimuli-dir must not be empty")
	}
	return nil
}

func formatScores(scores map[string]int) string {
	if len(scores) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(scores))
	for _, counter := range []string{gate.CounterColor, gate.CounterStroop} {
		if v, ok := scores[counter]; ok {
			parts = append(parts, fmt.Sprintf("%s=%d", counter, v))
		}
	}
	return strings.Join(parts, " ")
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

// Package main is the entry point for the Socratic CLI application.
// Socratic is a local-first text-clarification assistant that detects
// ambiguity and bias in statements, renders paradigm-shaped reasoning, and
// asks follow-up questions that improve with feedback.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/normanking/socratic/internal/config"
	"github.com/normanking/socratic/internal/detect"
	"github.com/normanking/socratic/internal/ecosystem"
	"github.com/normanking/socratic/internal/llm"
	"github.com/normanking/socratic/internal/logging"
	"github.com/normanking/socratic/internal/questions"
	"github.com/normanking/socratic/internal/reasoner"
	"github.com/normanking/socratic/internal/sot"
	"github.com/normanking/socratic/internal/state"
)

var (
	version  = "0.1.0"
	cfgPath  string
	provider string
	verbose  bool
	noModel  bool
	noColor  bool
	log      *logging.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "socratic",
		Short: "Socratic - Text clarification with learned reasoning paradigms",
		Long: `Socratic is a text-clarification assistant that combines:
  • Ambiguity and bias detection over plain statements
  • Reasoning-paradigm classification (model-backed with heuristic fallback)
  • Structured reasoning rendered per paradigm
  • Socratic follow-up questions that sharpen with feedback
  • A reflective ecosystem that learns which paradigms work

Analyze a statement:     socratic analyze "All developers love debugging."
Rate a question:         socratic feedback "<question>" helpful
Inspect learning:        socratic report`,
		PersistentPreRunE: initLogging,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file path (default ~/.socratic/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&provider, "provider", "", "LLM provider override (ollama or lmstudio)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&noModel, "no-model", false, "skip model calls, use heuristics and templates only")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	// Version command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Socratic v%s\n", version)
		},
	})

	// Core analysis commands
	rootCmd.AddCommand(analyzeCmd())
	rootCmd.AddCommand(detectCmd())
	rootCmd.AddCommand(feedbackCmd())

	// Learning inspection
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(historyCmd())

	// State management
	rootCmd.AddCommand(stateCmd())

	// Config command group
	rootCmd.AddCommand(configCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// LOGGING INITIALIZATION
// ═══════════════════════════════════════════════════════════════════════════════

func initLogging(cmd *cobra.Command, args []string) error {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	logDir := filepath.Join(home, ".socratic", "logs")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to create log directory: %v\n", err)
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	logFile := filepath.Join(logDir, fmt.Sprintf("socratic_%s.log", timestamp))

	var cfg *logging.Config
	if verbose {
		cfg = logging.VerboseConfig()
	} else {
		cfg = logging.DefaultConfig()
	}
	cfg.FilePath = logFile
	cfg.Colored = !noColor

	log = logging.New(cfg)
	logging.SetGlobal(log)

	if noColor {
		lipgloss.SetColorProfile(termenv.Ascii)
	}

	log.Debug("Socratic session started - logging to %s", logFile)
	return nil
}

// ═══════════════════════════════════════════════════════════════════════════════
// STYLES
// ═══════════════════════════════════════════════════════════════════════════════

var (
	primaryColor = lipgloss.Color("#7C3AED") // Purple
	accentColor  = lipgloss.Color("#10B981") // Green
	warnColor    = lipgloss.Color("#F59E0B") // Amber
	dimColor     = lipgloss.Color("#6B7280") // Gray

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	labelStyle = lipgloss.NewStyle().
			Foreground(dimColor)

	questionStyle = lipgloss.NewStyle().
			Foreground(accentColor)

	issueStyle = lipgloss.NewStyle().
			Foreground(warnColor)

	reasoningStyle = lipgloss.NewStyle().
			Foreground(dimColor).
			PaddingLeft(2)
)

// ═══════════════════════════════════════════════════════════════════════════════
// ENGINE CONSTRUCTION
// ═══════════════════════════════════════════════════════════════════════════════

func loadConfig() (*config.Config, error) {
	if cfgPath != "" {
		return config.LoadFromPath(cfgPath)
	}
	return config.Load()
}

// buildProvider creates the configured LLM provider and probes it. A nil
// return keeps every model-backed path on its fallback.
func buildProvider(cfg *config.Config) llm.Provider {
	if noModel {
		log.Debug("model calls disabled by flag")
		return nil
	}

	name := cfg.LLM.DefaultProvider
	if provider != "" {
		name = provider
	}

	section, ok := cfg.LLM.Providers[name]
	if !ok {
		log.Warn("provider %q not configured, using heuristics and templates", name)
		return nil
	}

	pc := section.ToProviderConfig(name)
	p := llm.New(pc)
	if !p.Available() {
		log.Warn("provider %q unreachable at %s, using heuristics and templates", name, pc.Endpoint)
		return nil
	}

	log.Debug("using provider %s", p.Name())
	return p
}

// buildEngine wires detector, classifier, generator, ecosystem, and store
// into a ready engine. The returned cleanup closes the archive and store.
func buildEngine() (*reasoner.Engine, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, nil, err
	}

	prov := buildProvider(cfg)

	var classifierOpts []sot.ClassifierOption
	if cfg.Classifier.UseModel && prov != nil {
		classifierOpts = append(classifierOpts, sot.WithProvider(prov))
	}
	if cfg.Classifier.Model != "" {
		classifierOpts = append(classifierOpts, sot.WithModel(cfg.Classifier.Model))
	}
	classifier := sot.NewClassifier(classifierOpts...)

	generatorOpts := []questions.Option{questions.WithCount(cfg.Questions.Count)}
	if cfg.Questions.UseModel && prov != nil {
		generatorOpts = append(generatorOpts, questions.WithProvider(prov))
	}
	if cfg.Questions.Model != "" {
		generatorOpts = append(generatorOpts, questions.WithModel(cfg.Questions.Model))
	}
	generator := questions.NewGenerator(generatorOpts...)

	history := ecosystem.NewHistory(cfg.Ecosystem.HistoryLimit)

	var archive *state.HistoryArchive
	if cfg.Ecosystem.ArchiveEnabled {
		archive, err = state.NewHistoryArchive(cfg.Ecosystem.ArchivePath())
		if err != nil {
			log.Warn("history archive unavailable: %v", err)
		} else {
			history.SetArchive(func(evicted []ecosystem.QuestionHistoryEntry) {
				if err := archive.Append(evicted); err != nil {
					log.Warn("history archive append failed: %v", err)
				}
			})
		}
	}

	store, err := state.NewFileStore(cfg.Ecosystem.StatePath())
	if err != nil {
		if archive != nil {
			archive.Close()
		}
		return nil, nil, fmt.Errorf("open state store: %w", err)
	}

	engine := reasoner.New(reasoner.Options{
		Classifier: classifier,
		Generator:  generator,
		History:    history,
		Store:      store,
		SaveEvery:  cfg.Ecosystem.SaveEvery,
	})
	engine.LoadState()

	cleanup := func() {
		if archive != nil {
			archive.Close()
		}
		store.Close()
	}
	return engine, cleanup, nil
}

// readInput resolves the statement to analyze: the joined args, or stdin
// when no args were given.
func readInput(args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// ═══════════════════════════════════════════════════════════════════════════════
// ANALYZE COMMAND
// ═══════════════════════════════════════════════════════════════════════════════

func analyzeCmd() *cobra.Command {
	var (
		paradigmOverride string
		minConfidence    float64
		jsonOutput       bool
	)

	cmd := &cobra.Command{
		Use:   "analyze [text]",
		Short: "Detect issues, render reasoning, and generate Socratic questions",
		Long: `Analyze detects clarity issues in the statement, classifies it into a
reasoning paradigm, renders the paradigm's structured reasoning, and
generates Socratic follow-up questions. Reads stdin when no text is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(args)
			if err != nil {
				return err
			}

			engine, cleanup, err := buildEngine()
			if err != nil {
				return err
			}
			defer cleanup()

			detector := detect.NewDetector()
			if minConfidence > 0 {
				detector = detector.WithMinConfidence(minConfidence)
			}
			issues := detector.Detect(text)

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()

			analysis, err := engine.Analyze(ctx, text, issues, sot.Paradigm(paradigmOverride))
			if err != nil {
				return err
			}

			// Persist so a later feedback invocation can find the questions.
			if err := engine.SaveState(); err != nil {
				log.Warn("state save failed: %v", err)
			}

			if jsonOutput {
				return printJSON(analysis)
			}
			printAnalysis(analysis)
			return nil
		},
	}

	cmd.Flags().StringVarP(&paradigmOverride, "paradigm", "p", "", "skip classification and use this paradigm")
	cmd.Flags().Float64Var(&minConfidence, "min-confidence", 0, "drop issues below this confidence")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print the analysis as JSON")
	return cmd
}

func printAnalysis(a *reasoner.Analysis) {
	if len(a.Issues) == 0 {
		fmt.Println(labelStyle.Render("No clarity issues detected."))
		return
	}

	fmt.Println(titleStyle.Render(fmt.Sprintf("Issues (%d)", len(a.Issues))))
	for _, issue := range a.Issues {
		fmt.Printf("  %s %s\n",
			issueStyle.Render(fmt.Sprintf("%q [%s]", issue.Term, issue.Kind)),
			labelStyle.Render(fmt.Sprintf("%.2f, %s", issue.Confidence, issue.Description)))
	}

	fmt.Println()
	source := string(a.ParadigmSource)
	if a.WeightOverrode() {
		source = fmt.Sprintf("%s, reweighted from %s", source, a.Classified)
	}
	fmt.Printf("%s %s %s\n", titleStyle.Render("Paradigm:"), a.Paradigm, labelStyle.Render("("+source+")"))

	if a.HasReasoning {
		fmt.Println(titleStyle.Render("Reasoning:"))
		fmt.Println(reasoningStyle.Render(a.Reasoning))
	}

	if len(a.Questions) > 0 {
		fmt.Println(titleStyle.Render("Questions:"))
		for i, q := range a.Questions {
			fmt.Printf("  %d. %s\n", i+1, questionStyle.Render(q.Text))
		}
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// DETECT COMMAND
// ═══════════════════════════════════════════════════════════════════════════════

func detectCmd() *cobra.Command {
	var (
		minConfidence float64
		jsonOutput    bool
	)

	cmd := &cobra.Command{
		Use:   "detect [text]",
		Short: "Show detected clarity issues without analysis",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(args)
			if err != nil {
				return err
			}

			detector := detect.NewDetector()
			if minConfidence > 0 {
				detector = detector.WithMinConfidence(minConfidence)
			}
			issues := detector.Detect(text)

			if jsonOutput {
				return printJSON(issues)
			}

			if len(issues) == 0 {
				fmt.Println(labelStyle.Render("No clarity issues detected."))
				return nil
			}
			for _, issue := range issues {
				fmt.Printf("%s %s\n",
					issueStyle.Render(fmt.Sprintf("%q [%s]", issue.Term, issue.Kind)),
					labelStyle.Render(fmt.Sprintf("%.2f, %s", issue.Confidence, issue.Description)))
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&minConfidence, "min-confidence", 0, "drop issues below this confidence")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print issues as JSON")
	return cmd
}

// ═══════════════════════════════════════════════════════════════════════════════
// FEEDBACK COMMAND
// ═══════════════════════════════════════════════════════════════════════════════

func feedbackCmd() *cobra.Command {
	var paradigm string

	cmd := &cobra.Command{
		Use:   "feedback <question> <helpful|unhelpful>",
		Short: "Rate a generated question so future analyses improve",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			helpful, err := parseHelpful(args[1])
			if err != nil {
				return err
			}

			engine, cleanup, err := buildEngine()
			if err != nil {
				return err
			}
			defer cleanup()

			if err := engine.SubmitFeedback(args[0], helpful, sot.Paradigm(paradigm)); err != nil {
				return err
			}
			if err := engine.SaveState(); err != nil {
				log.Warn("state save failed: %v", err)
			}

			report := engine.PerformanceReport()
			fmt.Printf("%s global coherence now %.3f\n",
				titleStyle.Render("Feedback recorded."),
				report.GlobalCoherence)
			return nil
		},
	}

	cmd.Flags().StringVarP(&paradigm, "paradigm", "p", "", "credit this paradigm when the question is no longer in history")
	return cmd
}

func parseHelpful(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "helpful", "yes", "y", "true", "1":
		return true, nil
	case "unhelpful", "no", "n", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("expected helpful or unhelpful, got %q", s)
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// REPORT COMMAND
// ═══════════════════════════════════════════════════════════════════════════════

func reportCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show the ecosystem's learning progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, cleanup, err := buildEngine()
			if err != nil {
				return err
			}
			defer cleanup()

			report := engine.PerformanceReport()
			if jsonOutput {
				return printJSON(report)
			}
			printReport(report)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print the report as JSON")
	return cmd
}

func printReport(r reasoner.Report) {
	fmt.Println(titleStyle.Render("Ecosystem Performance"))
	fmt.Println(labelStyle.Render("─────────────────────"))
	fmt.Printf("Global coherence: %.3f\n", r.GlobalCoherence)
	fmt.Printf("Questions:        %d generated, %d rated\n", r.QuestionsGenerated, r.QuestionsRated)

	if len(r.Nodes) > 0 {
		fmt.Println()
		fmt.Println(titleStyle.Render("Paradigm weights"))
		paradigms := make([]sot.Paradigm, 0, len(r.Nodes))
		for p := range r.Nodes {
			paradigms = append(paradigms, p)
		}
		sort.Slice(paradigms, func(i, j int) bool { return paradigms[i] < paradigms[j] })
		for _, p := range paradigms {
			n := r.Nodes[p]
			fmt.Printf("  %-22s %.3f %s\n", p, n.Weight,
				labelStyle.Render(fmt.Sprintf("(%d/%d)", n.SuccessCount, n.UsageCount)))
		}
	}

	fmt.Println()
	fmt.Println(titleStyle.Render("Feedback loops"))
	names := make([]string, 0, len(r.Loops))
	for name := range r.Loops {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %-22s %.3f\n", name, r.Loops[name])
	}

	m := r.AdvancementMetrics
	fmt.Println()
	fmt.Println(titleStyle.Render("Advancement"))
	fmt.Printf("  truth %.3f  scrutiny %.3f  improvement %.3f  %s\n",
		m.TruthValue, m.ScrutinyValue, m.ImprovementValue,
		labelStyle.Render(fmt.Sprintf("→ %.3f", m.Advancement)))
}

// ═══════════════════════════════════════════════════════════════════════════════
// HISTORY COMMAND
// ═══════════════════════════════════════════════════════════════════════════════

func historyCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent generated questions and their ratings",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, cleanup, err := buildEngine()
			if err != nil {
				return err
			}
			defer cleanup()

			entries := engine.History()
			if len(entries) == 0 {
				fmt.Println(labelStyle.Render("No questions recorded yet."))
				return nil
			}
			if limit > 0 && len(entries) > limit {
				entries = entries[len(entries)-limit:]
			}

			for _, e := range entries {
				rating := labelStyle.Render("unrated")
				if e.Helpful != nil {
					if *e.Helpful {
						rating = questionStyle.Render("helpful")
					} else {
						rating = issueStyle.Render("unhelpful")
					}
				}
				fmt.Printf("%s  %s %s\n", rating, e.Question, labelStyle.Render("["+string(e.Paradigm)+"]"))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "show at most this many entries")
	return cmd
}

// ═══════════════════════════════════════════════════════════════════════════════
// STATE COMMANDS
// ═══════════════════════════════════════════════════════════════════════════════

func stateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Manage the persisted ecosystem state",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the persisted state snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			data, err := os.ReadFile(cfg.Ecosystem.StatePath())
			if err != nil {
				if os.IsNotExist(err) {
					fmt.Println(labelStyle.Render("No saved state yet."))
					return nil
				}
				return err
			}
			fmt.Println(string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "save",
		Short: "Snapshot the current ecosystem state",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, cleanup, err := buildEngine()
			if err != nil {
				return err
			}
			defer cleanup()

			if err := engine.SaveState(); err != nil {
				return err
			}
			fmt.Println("State saved.")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the state file location",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			fmt.Println(cfg.Ecosystem.StatePath())
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Delete the persisted state and start fresh",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			path := cfg.Ecosystem.StatePath()
			if err := os.Remove(path); err != nil {
				if os.IsNotExist(err) {
					fmt.Println(labelStyle.Render("No saved state to remove."))
					return nil
				}
				return err
			}
			fmt.Printf("Removed %s\n", path)
			return nil
		},
	})

	return cmd
}

// ═══════════════════════════════════════════════════════════════════════════════
// CONFIG COMMANDS
// ═══════════════════════════════════════════════════════════════════════════════

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			fmt.Println("Socratic Configuration:")
			fmt.Println("───────────────────────")
			fmt.Printf("Default Provider: %s\n", cfg.LLM.DefaultProvider)
			if section, ok := cfg.LLM.Providers[cfg.LLM.DefaultProvider]; ok {
				fmt.Printf("Endpoint:         %s\n", section.Endpoint)
				fmt.Printf("Model:            %s\n", section.Model)
			}
			fmt.Printf("State Directory:  %s\n", cfg.Ecosystem.StateDir)
			fmt.Printf("History Limit:    %d\n", cfg.Ecosystem.HistoryLimit)
			fmt.Printf("Save Every:       %d feedback events\n", cfg.Ecosystem.SaveEvery)
			fmt.Printf("Log Level:        %s\n", cfg.Logging.Level)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			fmt.Println(cfg.GetConfigPath())
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			path := cfg.GetConfigPath()
			if cfgPath != "" {
				path = cfgPath
			}
			if err := cfg.SaveToPath(path); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", path)
			return nil
		},
	})

	return cmd
}

// ═══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ═══════════════════════════════════════════════════════════════════════════════

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

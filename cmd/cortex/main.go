// Command cortex is the composition root for the self-improving agent
// harness: it wires config, the domain registry, the three LLM tiers, the
// lesson store, and the event bus together, then drives one or more task
// sessions through internal/agentloop.Run. Grounded on the teacher's
// cmd/agsh/main.go composition root — tiered LLM client construction, .env
// loading, readline REPL shape — generalized from agsh's multi-role bus
// pipeline to a single linear agent loop per session.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cortexmemory/cortex/internal/agentloop"
	"github.com/cortexmemory/cortex/internal/config"
	"github.com/cortexmemory/cortex/internal/domain"
	"github.com/cortexmemory/cortex/internal/eventbus"
	"github.com/cortexmemory/cortex/internal/knowledge"
	"github.com/cortexmemory/cortex/internal/lessonstore"
	"github.com/cortexmemory/cortex/internal/llm"
	"github.com/cortexmemory/cortex/internal/types"
)

// runFlags mirrors config.Config's CLI-overridable fields plus the
// session-selection flags that aren't part of Config itself.
type runFlags struct {
	taskID       string
	taskText     string
	taskDir      string
	session      int
	maxSteps     int
	domainName   string
	learningMode string
	archMode     string
	bootstrap    bool
	cryptic      bool
	semiHelpful  bool
	mixed        bool
	enableXfer   bool
	xferMax      int
	xferWeight   float64
	demoMode     bool
	posttask     string
	legacyPath   string
}

func main() {
	config.LoadDotEnv(".env")
	log := config.NewLogger()
	slog.SetDefault(log)

	root := &cobra.Command{
		Use:   "cortex",
		Short: "self-improving tool-using agent harness",
	}

	var f runFlags
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run one task session to completion",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd.Context(), f)
		},
	}
	bindRunFlags(runCmd, &f)
	root.AddCommand(runCmd)

	var replFlags runFlags
	replCmd := &cobra.Command{
		Use:   "repl",
		Short: "interactively select and run task sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runREPL(cmd.Context(), replFlags)
		},
	}
	bindRunFlags(replCmd, &replFlags)
	root.AddCommand(replCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func bindRunFlags(cmd *cobra.Command, f *runFlags) {
	def := config.FromEnv()
	flags := cmd.Flags()
	flags.StringVar(&f.taskID, "task-id", "", "task contract id (required)")
	flags.StringVar(&f.taskText, "task", "", "literal task instruction; falls back to <task-dir>/task.txt")
	flags.StringVar(&f.taskDir, "task-dir", "", "directory holding the task's seed fixtures")
	flags.IntVar(&f.session, "session", 0, "session id; 0 auto-assigns the next free id")
	flags.IntVar(&f.maxSteps, "max-steps", def.MaxSteps, "step budget for the session")
	flags.StringVar(&f.domainName, "domain", "sqlite", "domain adapter: sqlite, gridtool, fluxtool, shell, artic")
	flags.StringVar(&f.learningMode, "learning-mode", string(def.LearningMode), "legacy or strict")
	flags.StringVar(&f.archMode, "architecture-mode", string(def.ArchitectureMode), "full or simplified")
	flags.BoolVar(&f.bootstrap, "bootstrap", def.Bootstrap, "seed the lesson store from legacy memory before running")
	flags.BoolVar(&f.cryptic, "cryptic-errors", false, "rewrite adapter errors as cryptic prose")
	flags.BoolVar(&f.semiHelpful, "semi-helpful-errors", false, "rewrite adapter errors as semi-helpful prose")
	flags.BoolVar(&f.mixed, "mixed-errors", false, "rewrite adapter errors as a mix of both")
	flags.BoolVar(&f.enableXfer, "enable-transfer-retrieval", def.EnableTransferRetrieval, "allow cross-domain lesson retrieval")
	flags.IntVar(&f.xferMax, "transfer-retrieval-max-results", def.TransferRetrievalMaxResults, "max transfer-lane matches per error")
	flags.Float64Var(&f.xferWeight, "transfer-retrieval-score-weight", def.TransferRetrievalScoreWeight, "score multiplier applied to transfer-lane matches")
	flags.BoolVar(&f.demoMode, "memory-v2-demo-mode", def.MemoryV2DemoMode, "suppress legacy skill-file patching for demo runs")
	flags.StringVar(&f.posttask, "posttask-mode", string(def.PosttaskMode), "candidate or direct")
	flags.StringVar(&f.legacyPath, "legacy-memory-path", "./memory/legacy_memory.json", "pre-V2 memory file to migrate from when --bootstrap is set")
}

func resolveConfig(f runFlags) config.Config {
	cfg := config.FromEnv()
	cfg.TaskID = f.taskID
	cfg.MaxSteps = f.maxSteps
	cfg.Domain = f.domainName
	cfg.LearningMode = types.LearningMode(f.learningMode)
	cfg.ArchitectureMode = types.ArchitectureMode(f.archMode)
	cfg.Bootstrap = f.bootstrap
	cfg.EnableTransferRetrieval = f.enableXfer
	cfg.TransferRetrievalMaxResults = f.xferMax
	cfg.TransferRetrievalScoreWeight = f.xferWeight
	cfg.MemoryV2DemoMode = f.demoMode
	cfg.PosttaskMode = types.PosttaskMode(f.posttask)
	cfg.ErrorMode = resolveErrorMode(f)
	cfg.SessionID = f.session
	return cfg
}

func resolveErrorMode(f runFlags) types.ErrorModeFlag {
	switch {
	case f.mixed:
		return types.ErrorModeMixed
	case f.semiHelpful:
		return types.ErrorModeSemiHelpful
	case f.cryptic:
		return types.ErrorModeCryptic
	default:
		return types.ErrorModeNone
	}
}

// buildDeps wires one process's worth of shared infrastructure: the three
// LLM tiers, the lesson store, the event bus, and the knowledge cache.
// Callers select a fresh domain.Adapter per session (adapters carry
// per-run ErrorMode state).
func buildDeps(cfg config.Config, adapter domain.Adapter) (agentloop.Deps, func(), error) {
	if cfg.APIKey == "" {
		slog.Warn("ANTHROPIC_API_KEY is unset; LLM calls will fail")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.LessonStorePath), 0o755); err != nil {
		return agentloop.Deps{}, nil, fmt.Errorf("cortex: prepare lesson store dir: %w", err)
	}
	store := lessonstore.New(cfg.LessonStorePath)

	cacheDir := filepath.Join(filepath.Dir(cfg.LessonStorePath), "knowledge_cache")
	cache, err := knowledge.OpenChunkCache(cacheDir)
	if err != nil {
		slog.Warn("cortex: knowledge cache unavailable, reading docs fresh every run", "error", err)
		cache = nil
	}
	closer := func() {
		if cache != nil {
			_ = cache.Close()
		}
	}

	deps := agentloop.Deps{
		Cfg:            cfg,
		Adapter:        adapter,
		Executor:       llm.NewTier("EXECUTOR", cfg.ExecutorModel),
		Critic:         llm.NewTier("CRITIC", cfg.CriticModel),
		Judge:          llm.NewTier("JUDGE", cfg.JudgeModel),
		Store:          store,
		Bus:            eventbus.New(),
		KnowledgeCache: cache,
	}
	return deps, closer, nil
}

func resolveAdapter(name string, errMode types.ErrorModeFlag) (domain.Adapter, error) {
	switch name {
	case "sqlite":
		return &domain.SQLiteAdapter{ErrorMode: errMode}, nil
	case "gridtool":
		a := domain.NewGridtoolAdapter()
		a.ErrorMode = errMode
		return a, nil
	case "fluxtool":
		a := domain.NewFluxtoolAdapter()
		a.ErrorMode = errMode
		return a, nil
	case "shell":
		return &domain.ShellAdapter{ErrorMode: errMode}, nil
	case "artic":
		return &domain.ArticAdapter{ErrorMode: errMode}, nil
	default:
		return nil, fmt.Errorf("cortex: unknown domain %q", name)
	}
}

func resolveTaskText(f runFlags) (string, error) {
	if f.taskText != "" {
		return f.taskText, nil
	}
	if f.taskDir == "" {
		return "", fmt.Errorf("cortex: one of --task or --task-dir (with task.txt) is required")
	}
	data, err := os.ReadFile(filepath.Join(f.taskDir, "task.txt"))
	if err != nil {
		return "", fmt.Errorf("cortex: read task text: %w", err)
	}
	return string(data), nil
}

func nextSessionID(sessionsRoot string) int {
	entries, err := os.ReadDir(sessionsRoot)
	if err != nil {
		return 1
	}
	max := 0
	for _, e := range entries {
		var n int
		if _, err := fmt.Sscanf(e.Name(), "%d", &n); err == nil && n > max {
			max = n
		}
	}
	return max + 1
}

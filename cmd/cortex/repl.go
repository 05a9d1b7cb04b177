package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"

	"github.com/cortexmemory/cortex/internal/cliui"
	"github.com/cortexmemory/cortex/internal/lessonstore"
	"github.com/cortexmemory/cortex/internal/skills"
)

// runREPL lets an operator step through sessions interactively: enter a
// task id and instruction, watch it run, then inspect the lesson store or
// the scanned skill manifest before the next one. Grounded on the teacher's
// cmd/agsh/main.go runREPL — readline setup, Ctrl+C/Ctrl+D handling — with
// the multi-role chat turn replaced by one task-session prompt per line.
func runREPL(ctx context.Context, base runFlags) error {
	homeDir, _ := os.UserHomeDir()
	cacheDir := filepath.Join(homeDir, ".cache", "cortex")
	_ = os.MkdirAll(cacheDir, 0o755)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            "\033[36mcortex>\033[0m ",
		HistoryFile:       filepath.Join(cacheDir, "history"),
		HistorySearchFold: true,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
	})
	if err != nil {
		return fmt.Errorf("cortex: readline init: %w", err)
	}
	defer rl.Close()

	fmt.Println("\033[1mcortex\033[0m — self-improving agent harness  \033[2m(exit/Ctrl-D to quit)\033[0m")
	fmt.Println("commands: run <task-id> <task-dir> <instruction...> | /lessons | /skills | exit")

	cfg := resolveConfig(base)

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err != nil {
			return nil
		}
		input := strings.TrimSpace(line)
		switch {
		case input == "":
			continue
		case input == "exit" || input == "quit":
			return nil
		case input == "/lessons":
			store := lessonstore.New(cfg.LessonStorePath)
			records, err := store.Load()
			if err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				continue
			}
			cliui.RenderLessonSummary(records)
		case input == "/skills":
			manifest, err := skills.Scan(cfg.SkillsDir)
			if err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				continue
			}
			cliui.RenderRoutedSkills(manifest)
		case strings.HasPrefix(input, "run "):
			if err := replRun(ctx, base, strings.TrimPrefix(input, "run ")); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
			}
		default:
			fmt.Println("unrecognized command; try: run <task-id> <task-dir> <instruction...> | /lessons | /skills | exit")
		}
	}
}

// replRun parses "<task-id> <task-dir> <instruction...>" and runs it with
// the REPL's base flags, so every repl-driven session shares one domain,
// error mode, and learning mode unless the operator restarts the process.
func replRun(ctx context.Context, base runFlags, rest string) error {
	parts := strings.SplitN(rest, " ", 3)
	if len(parts) < 3 {
		return fmt.Errorf("usage: run <task-id> <task-dir> <instruction...>")
	}
	f := base
	f.taskID = parts[0]
	f.taskDir = parts[1]
	f.taskText = parts[2]
	f.session = 0
	return runOnce(ctx, f)
}

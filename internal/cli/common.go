package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/mvp-joe/codesweep/internal/analyze"
	"github.com/mvp-joe/codesweep/internal/cache"
	"github.com/mvp-joe/codesweep/internal/config"
	"github.com/mvp-joe/codesweep/internal/graph"
	"github.com/mvp-joe/codesweep/internal/lang"
	"github.com/mvp-joe/codesweep/internal/plan"
	"github.com/mvp-joe/codesweep/internal/snapshot"
)

const fileLineCacheSize = 512

// app wires the configured components together for one command invocation.
type app struct {
	rootDir    string
	cfg        *config.Config
	classifier *lang.Classifier
	store      *cache.Store
	lines      *graph.FileLines
}

// newApp loads configuration from the working directory and opens the
// shared resources. noCache skips the scan cache entirely.
func newApp(noCache bool) (*app, error) {
	rootDir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}

	cfg, err := config.LoadConfigFromDir(rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	classifier, err := lang.NewClassifier(cfg.Scan.Languages)
	if err != nil {
		return nil, err
	}

	a := &app{rootDir: rootDir, cfg: cfg, classifier: classifier}

	if !noCache {
		cachePath := filepath.Join(rootDir, cfg.Storage.CacheLocation)
		if err := os.MkdirAll(filepath.Dir(cachePath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
		store, err := cache.Open(cachePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open scan cache: %w", err)
		}
		a.store = store
	}

	lines, err := graph.NewFileLines(rootDir, fileLineCacheSize)
	if err != nil {
		return nil, err
	}
	a.lines = lines
	return a, nil
}

func (a *app) Close() {
	if a.store != nil {
		a.store.Close()
	}
	if a.lines != nil {
		a.lines.Close()
	}
}

// scan builds the import graph with the configured roots and patterns.
func (a *app) scan(ctx context.Context, progress graph.ProgressReporter) (*graph.ScanResult, error) {
	opts := []graph.BuilderOption{graph.WithWorkers(a.cfg.Scan.Workers)}
	if a.store != nil {
		opts = append(opts, graph.WithCache(a.store))
	}
	if progress != nil {
		opts = append(opts, graph.WithProgress(progress))
	}

	builder, err := graph.NewBuilder(a.rootDir, a.classifier,
		a.cfg.Scan.Roots, a.cfg.Scan.ExcludedDirs, a.cfg.Scan.SkipPatterns, opts...)
	if err != nil {
		return nil, err
	}
	return builder.Build(ctx)
}

// analyzeGraph runs dead-file analysis with the configured entry points
// and exemptions.
func (a *app) analyzeGraph(result *graph.ScanResult) (*analyze.Report, error) {
	rules, err := analyze.NewRules(a.cfg.Analyze.ExemptPatterns)
	if err != nil {
		return nil, err
	}
	return analyze.Analyze(result.Graph, a.cfg.Analyze.EntryPoints, rules)
}

func (a *app) planner(result *graph.ScanResult) *plan.Planner {
	return plan.NewPlanner(result.Graph, result.Resolver, a.lines)
}

func (a *app) manager() (*snapshot.Manager, error) {
	return snapshot.NewManager(a.rootDir,
		filepath.Join(a.rootDir, a.cfg.Storage.SnapshotLocation),
		snapshot.WithDepth(a.cfg.Mutate.UndoDepth),
		snapshot.WithLineCache(a.lines))
}

// rewriteMode returns the configured mode unless overridden by flag.
func (a *app) rewriteMode(override string) (plan.RewriteMode, error) {
	mode := a.cfg.Mutate.Mode
	if override != "" {
		mode = override
	}
	switch strings.ToLower(mode) {
	case "comment":
		return plan.ModeComment, nil
	case "remove":
		return plan.ModeRemove, nil
	default:
		return "", fmt.Errorf("invalid mode %q: must be 'comment' or 'remove'", mode)
	}
}

// interruptibleContext returns a context cancelled on Ctrl+C.
func interruptibleContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nInterrupted! Cancelling scan...")
		cancel()
	}()
	return ctx, cancel
}

// printPlan shows the plan preview: every operation plus anything flagged
// for manual review.
func printPlan(p *plan.MutationPlan) {
	fmt.Printf("Plan: %s\n", p.Description)
	for _, op := range p.Ops {
		switch op.Kind {
		case plan.OpDeleteFile:
			fmt.Printf("  delete %s\n", op.Path)
		case plan.OpMoveFile:
			fmt.Printf("  move   %s -> %s\n", op.Path, op.NewPath)
		case plan.OpEditFile:
			fmt.Printf("  edit   %s (%d lines)\n", op.Path, len(op.Edits))
			for _, e := range op.Edits {
				if e.Delete {
					fmt.Printf("    -%d: %s\n", e.Line, e.Old)
				} else {
					fmt.Printf("    ~%d: %s\n", e.Line, e.New)
				}
			}
		}
	}
	for _, f := range p.Flagged {
		fmt.Printf("  ! %s:%d needs manual review: %s\n", f.File, f.Line, f.Reason)
	}
}

// confirm asks for interactive confirmation unless yes is set.
func confirm(prompt string, yes bool) bool {
	if yes {
		return true
	}
	fmt.Printf("%s [y/N]: ", prompt)
	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

// executePlan runs the preview/confirm/execute flow shared by all
// mutation commands.
func executePlan(a *app, p *plan.MutationPlan, dryRun, yes bool) error {
	printPlan(p)
	if p.Empty() {
		fmt.Println("Nothing to do.")
		return nil
	}
	if dryRun {
		fmt.Println("Dry run: no changes made.")
		return nil
	}
	if !confirm("Apply these changes?", yes) {
		fmt.Println("Aborted.")
		return nil
	}

	mgr, err := a.manager()
	if err != nil {
		return err
	}
	entry, err := mgr.Execute(p)
	if err != nil {
		return err
	}
	fmt.Printf("✓ Applied. Undo with 'codesweep undo' (entry %s)\n", entry.ID)
	return nil
}

// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dbuild-io/dbuild/internal/core/config"
	"github.com/dbuild-io/dbuild/internal/core/plan"
	"github.com/dbuild-io/dbuild/internal/core/verb"
	"github.com/dbuild-io/dbuild/internal/exec"
	"github.com/dbuild-io/dbuild/internal/output"
	"github.com/dbuild-io/dbuild/internal/tasks"
	"github.com/dbuild-io/dbuild/internal/version"
)

var (
	basePath    string
	debug       bool
	workers     int
	showPlans   bool
	buildLog    bool
	buildLogDir string
)

var rootCmd = &cobra.Command{
	Use:   "dbuild [verbs] [modules] [arguments]",
	Short: "Multi-module container image build orchestrator",
	Long: `Dbuild discovers the buildable modules of a directory tree and runs
the requested verbs (build, push, resolve, info, readme) against them
concurrently. Verbs, module names, and verb arguments are all given as
positional tokens and sorted out by shape.`,
	Version:       version.Version,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.Flags().BoolVarP(&debug, "debug", "d", false, "verbose logging instead of progress bars")
	rootCmd.Flags().IntVarP(&workers, "workers", "w", 1, "number of plans executed concurrently")
	rootCmd.Flags().BoolVarP(&showPlans, "show-plans", "s", false, "print the constructed plan tree before executing")
	rootCmd.Flags().BoolVar(&buildLog, "build-log", false, "stream docker build output through the logger")
	rootCmd.Flags().StringVar(&buildLogDir, "build-log-dir", "", "write one docker build log file per plan into this directory")
	rootCmd.Flags().StringVarP(&basePath, "path", "p", "", "directory to discover modules in (default is current directory)")
}

func run(cmd *cobra.Command, args []string) error {
	output.Setup(debug)

	var err error
	if basePath == "" {
		basePath, err = os.Getwd()
		if err != nil {
			return fmt.Errorf("determining working directory: %w", err)
		}
	} else {
		basePath, err = filepath.Abs(basePath)
		if err != nil {
			return fmt.Errorf("resolving path: %w", err)
		}
	}
	if workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", workers)
	}

	available, err := config.ListModules(basePath)
	if err != nil {
		return fmt.Errorf("discovering modules: %w", err)
	}
	if len(available) == 0 {
		return fmt.Errorf("no modules found under %s", basePath)
	}

	registry := verb.NewRegistry()
	deps := tasks.NewDeps(basePath)
	if err := deps.Register(registry); err != nil {
		return err
	}

	verbNames, modules, rest := partition(args, registry, available)
	if len(verbNames) == 0 {
		return fmt.Errorf("no verbs given, known verbs: %s", strings.Join(verbList(registry), ", "))
	}
	if len(modules) == 0 {
		modules = available
	}

	active := registry.Active(verbNames)
	verbArgs, err := verb.Classify(rest, active)
	if err != nil {
		return err
	}

	if buildLogDir != "" {
		if err := os.MkdirAll(buildLogDir, 0o755); err != nil {
			return fmt.Errorf("creating build log directory: %w", err)
		}
	}

	rc := &config.RunConfig{
		BasePath:    basePath,
		Workers:     workers,
		ShowPlans:   showPlans,
		Debug:       debug,
		BuildLog:    buildLog,
		BuildLogDir: buildLogDir,
	}

	ctx := cmd.Context()
	arena := plan.NewArena()
	roots := make(map[string][]int, len(modules))
	var allRoots []int
	for _, module := range modules {
		ids, err := verb.BuildTree(ctx, arena, rc, active, module, verbArgs, nil)
		if err != nil {
			return err
		}
		roots[module] = ids
		allRoots = append(allRoots, ids...)
	}

	steps := 0
	for _, id := range allRoots {
		steps += arena.Steps(id)
	}
	output.Debug("constructed execution plan", "plans", arena.Len(), "steps", steps)

	if showPlans {
		printTree(arena, modules, roots)
	}
	if len(allRoots) == 0 {
		output.Info("nothing to execute")
		return nil
	}

	flat := arena.Flatten(allRoots)
	sched := exec.New(arena, flat, workers, exec.DefaultInterval)

	// First Ctrl-C stops scheduling new plans, second one kills running plans.
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signals)
	go func() {
		for range signals {
			sched.Signal()
		}
	}()

	var renderer *exec.Renderer
	if !debug {
		renderer = exec.NewRenderer(arena, modules, roots, os.Stdout, exec.DefaultInterval)
		renderer.Start()
	}

	summary := sched.Run(ctx)
	if renderer != nil {
		renderer.Stop()
	}

	output.Info("all tasks completed",
		"success", summary.Success,
		"failed", summary.Failed,
		"cancelled", summary.Cancelled)
	if summary.Failed > 0 {
		return fmt.Errorf("%d plans failed", summary.Failed)
	}
	return nil
}

// partition splits the positional tokens into verb names, module names, and
// verb arguments. Verbs win over modules on a name clash, first mention wins
// over repeats.
func partition(tokens []string, registry *verb.Registry, available []string) (verbs, modules, rest []string) {
	moduleSet := make(map[string]struct{}, len(available))
	for _, m := range available {
		moduleSet[m] = struct{}{}
	}

	seenVerbs := make(map[string]struct{})
	seenModules := make(map[string]struct{})
	for _, token := range tokens {
		if registry.Has(token) {
			if _, ok := seenVerbs[token]; !ok {
				seenVerbs[token] = struct{}{}
				verbs = append(verbs, token)
			}
			continue
		}
		if _, ok := moduleSet[token]; ok {
			if _, dup := seenModules[token]; !dup {
				seenModules[token] = struct{}{}
				modules = append(modules, token)
			}
			continue
		}
		rest = append(rest, token)
	}
	return verbs, modules, rest
}

func verbList(registry *verb.Registry) []string {
	defs := registry.Definitions()
	names := make([]string, 0, len(defs))
	for _, d := range defs {
		names = append(names, d.Name)
	}
	return names
}

func printTree(arena *plan.Arena, modules []string, roots map[string][]int) {
	for _, module := range modules {
		fmt.Printf("%s:\n", module)
		for _, id := range roots[module] {
			printPlan(arena, id, 1)
		}
	}
}

func printPlan(arena *plan.Arena, id, depth int) {
	p := arena.Get(id)
	fmt.Printf("%s%s\n", strings.Repeat("  ", depth), p)
	for _, child := range p.Children {
		printPlan(arena, child, depth+1)
	}
}

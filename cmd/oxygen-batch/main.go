// Copyright 2023 Gustavo C. Viegas. All rights reserved.

// Command oxygen-batch cooks a manifest of asset sources through the
// same import Plan/Pipeline/WorkDispatcher machinery the engine uses at
// runtime, without a running Coordinator (spec.md §6 "Import batch
// CLI"). It is a thin driver: cooking itself uses a placeholder
// CookFunc, since a concrete graphics backend is out of scope for the
// core.
package main

import (
	"context"
	"fmt"
	"hash/fnv"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"oxygen/asset"
	"oxygen/resource"
	"oxygen/telemetry/log"
)

type flags struct {
	manifest    string
	root        string
	dryRun      bool
	failFast    bool
	verbose     bool
	report      string
	maxInFlight int
	noTUI       bool
}

func main() {
	os.Exit(mainE(os.Args[1:], os.Stdout, os.Stderr))
}

func mainE(args []string, stdout, stderr *os.File) int {
	var f flags
	cmd := &cobra.Command{
		Use:           "oxygen-batch",
		Short:         "Cook a manifest of asset sources outside the engine's frame loop",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := log.Nop()
			if f.verbose {
				logger = log.New(nil)
			}
			report, err := execute(cmd.Context(), f, logger)
			if f.report != "" {
				if werr := writeReport(f.report, report); werr != nil {
					fmt.Fprintf(stderr, "oxygen-batch: write report: %v\n", werr)
				}
			}
			printSummary(stdout, report)
			return err
		},
	}
	cmd.Flags().StringVar(&f.manifest, "manifest", "", "path to the batch manifest (required)")
	cmd.Flags().StringVar(&f.root, "root", "", "root directory source paths are resolved against")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "build the import plan without cooking")
	cmd.Flags().BoolVar(&f.failFast, "fail-fast", false, "cancel the run at the first item failure")
	cmd.Flags().BoolVar(&f.verbose, "verbose", false, "log every item's completion")
	cmd.Flags().StringVar(&f.report, "report", "", "write a JSON cook report to this path")
	cmd.Flags().IntVar(&f.maxInFlight, "max-in-flight", 8, "maximum concurrently cooking items")
	cmd.Flags().BoolVar(&f.noTUI, "no-tui", false, "accepted for compatibility; this build never draws a TUI")
	_ = cmd.MarkFlagRequired("manifest")
	cmd.SetArgs(args)

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(stderr, "oxygen-batch: %v\n", err)
		return 2
	}
	return 0
}

// execute runs one batch job: load the manifest, discover emissions,
// build the import plan, and (unless --dry-run) drive it to completion
// through a WorkDispatcher. It always returns a Report reflecting
// whatever progress was made, even when it also returns an error.
func execute(ctx context.Context, f flags, logger *log.Logger) (Report, error) {
	runId := uuid.New().String()
	report := Report{SchemaVersion: reportSchemaVersion, RunId: runId, Manifest: f.manifest, DryRun: f.dryRun}

	m, err := loadManifest(f.manifest, f.root)
	if err != nil {
		return report, err
	}

	reg := adapters()
	items, err := discoverAll(ctx, reg, m.Sources)
	if err != nil {
		return report, err
	}
	plan, byId, warnings := buildPlan(items)
	report.Warnings = warnings

	if f.dryRun {
		logger.Info("oxygen-batch: dry run", log.Int("items", plan.Len()))
		for _, d := range byId {
			report.Items = append(report.Items, ItemReport{DebugName: d.emission.DebugName, Kind: d.kind.String()})
		}
		report.Succeeded = len(report.Items)
		return report, nil
	}

	cache := resource.NewAnyCache(0)
	views := resource.NewRegistry(cache)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var mu sync.Mutex
	failed := 0

	emit := func(item asset.Item, res asset.Result) {
		mu.Lock()
		defer mu.Unlock()

		ir := ItemReport{DebugName: item.DebugName, Kind: item.Kind.String(), Canceled: res.Canceled, UsedFallback: res.UsedFallback}
		if res.Err != nil {
			ir.Error = res.Err.Error()
		}
		for _, d := range res.Diagnostics {
			ir.Diagnostics = append(ir.Diagnostics, d.Severity.String()+": "+d.Message)
		}
		report.Items = append(report.Items, ir)

		if res.Err != nil || res.Canceled {
			failed++
			logger.Warn("oxygen-batch: item failed", log.String("item", item.DebugName), log.Error(res.Err))
			if f.failFast {
				cancel()
			}
			return
		}
		logger.Info("oxygen-batch: item cooked", log.String("item", item.DebugName))
		views.Register(debugNameKey(item.DebugName), res.Payload, uint64(item.Kind), 1)
	}

	session := buildSession(byId, f.maxInFlight)
	dispatcher := asset.NewWorkDispatcher(plan, session, resolvePayload(byId), emit, logger)
	runErr := dispatcher.Run(runCtx)

	report.Failed = failed
	report.Succeeded = len(report.Items) - failed

	if runErr != nil {
		return report, runErr
	}
	if failed > 0 {
		return report, fmt.Errorf("oxygen-batch: %d item(s) failed", failed)
	}
	return report, nil
}

func debugNameKey(name string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	return h.Sum64()
}

func printSummary(w *os.File, r Report) {
	fmt.Fprintf(w, "oxygen-batch run %s: %d succeeded, %d failed\n", r.RunId, r.Succeeded, r.Failed)
	for _, warn := range r.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warn)
	}
}

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/spf13/cobra"

	"wiser/scope/internal/db"
	"wiser/scope/internal/scope"
)

var (
	rerunJSON     bool
	rerunNoCache  bool
	rerunNoRecord bool
	rerunCutoff   float64
	rerunQuiet    bool
)

// rerunResult compares a fresh analysis with the recorded one.
type rerunResult struct {
	Original *db.Run        `json:"original"`
	Current  analysisResult `json:"current"`
	Drift    []string       `json:"drift"`
}

var rerunCmd = &cobra.Command{
	Use:   "rerun <run-id>",
	Short: "Repeat a recorded analysis and report what changed",
	Long: `Resolves a run from its ID (prefix or full) and analyzes the same product
against the current inventory with the run's method, amount, cutoff, maxCalc
and Scope 2 activities, reapplying any user data it was recorded with. The
scopes are then compared with the recorded ones.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := OpenDatabase()
		if err != nil {
			return err
		}
		defer d.Close()

		run, err := ResolveRun(d, args[0])
		if err != nil {
			return fmt.Errorf("cannot find run: %w", err)
		}

		cutoff := run.Cutoff
		if rerunCutoff != 0 {
			cutoff = rerunCutoff
		}

		if !rerunQuiet && !rerunJSON {
			fmt.Printf("[rerun] Original run: %s (%s)\n", truncID(run.ID), run.ActivityName)
			fmt.Printf("[rerun] method=%s amount=%g cutoff=%g\n", run.Method, run.Amount, cutoff)
			if len(run.Overrides) > 0 {
				fmt.Println("[rerun] Reapplying the run's user data")
			}
		}

		result, err := repeatRun(cmd.Context(), d, run, cutoff, rerunNoCache, !rerunNoRecord)
		if err != nil {
			return err
		}

		if rerunJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}

		if !rerunQuiet {
			printAnalysis(result.Current, analyzeRows, false)
		}
		if len(result.Drift) == 0 {
			fmt.Println("Result: unchanged")
			return nil
		}
		fmt.Println("Result: changed")
		for _, line := range result.Drift {
			fmt.Printf("  %s\n", line)
		}
		return nil
	},
}

// repeatRun analyzes the run's product again with the settings it was
// recorded with, reapplying its overrides. Runs recorded before the settings
// were stored (MaxCalc 0) use the current scope.yml for maxCalc and Scope 2.
func repeatRun(ctx context.Context, d *db.DB, run *db.Run, cutoff float64, noCache, record bool) (*rerunResult, error) {
	flags := sessionFlags{
		method:  run.Method,
		amount:  run.Amount,
		noCache: noCache,
	}
	if run.MaxCalc != 0 {
		flags.maxCalc = run.MaxCalc
		flags.scope2 = append([]int64{}, run.Scope2Refs...)
	}

	var overrides []scope.Override
	if len(run.Overrides) > 0 {
		if err := json.Unmarshal(run.Overrides, &overrides); err != nil {
			return nil, fmt.Errorf("run %s: decoding overrides: %w", truncID(run.ID), err)
		}
	}

	sess, err := newSession(d, flags)
	if err != nil {
		return nil, err
	}
	results, err := runAnalysis(ctx, sess, run.ActivityID, []float64{cutoff}, overrides, record)
	if err != nil {
		return nil, err
	}
	return &rerunResult{
		Original: run,
		Current:  results[0],
		Drift:    describeDrift(*run, results[0]),
	}, nil
}

// ResolveRun finds a run by full ID or ID prefix (≥6 hex/dash chars).
func ResolveRun(d *db.DB, reference string) (*db.Run, error) {
	// 1. Exact ID match
	run, err := d.GetRun(reference)
	if err == nil {
		return run, nil
	}

	// 2. ID prefix match
	if len(reference) >= 6 && isHexDash(reference) {
		matches, err := d.SearchRunsByIDPrefix(reference, 10)
		if err != nil {
			return nil, err
		}
		switch len(matches) {
		case 1:
			return &matches[0], nil
		case 0:
			// fall through to not found
		default:
			lines := make([]string, len(matches))
			for i, m := range matches {
				lines[i] = fmt.Sprintf("  %s %s", truncID(m.ID), m.ActivityName)
			}
			return nil, fmt.Errorf("ambiguous reference '%s'. %d matches:\n%s\nUse a full run ID instead.",
				reference, len(matches), joinLines(lines))
		}
	}

	return nil, fmt.Errorf("run not found: %s", reference)
}

// describeDrift lists the differences between a recorded run and a fresh
// analysis, one line per changed quantity. Values within a relative 1e-9
// of each other count as equal.
func describeDrift(prev db.Run, cur analysisResult) []string {
	var lines []string
	if cur.Cutoff != prev.Cutoff {
		lines = append(lines, fmt.Sprintf("cutoff: %g -> %g", prev.Cutoff, cur.Cutoff))
	}
	compare := func(label string, before, after float64) {
		if !closeEnough(before, after) {
			lines = append(lines, fmt.Sprintf("%s: %.6g -> %.6g (%+.2f%%)", label, before, after, percentChange(before, after)))
		}
	}
	compare("total", prev.Score, cur.Attribution.Total())
	compare("Scope 1", prev.Scope1, cur.Attribution.Scope1)
	compare("Scope 2", prev.Scope2, cur.Attribution.Scope2)
	compare("Scope 3", prev.Scope3, cur.Attribution.Scope3)
	return lines
}

func closeEnough(a, b float64) bool {
	scale := math.Max(math.Abs(a), math.Abs(b))
	return math.Abs(a-b) <= 1e-9*scale
}

func percentChange(before, after float64) float64 {
	if before == 0 {
		if after == 0 {
			return 0
		}
		return math.Copysign(100, after)
	}
	return (after - before) / math.Abs(before) * 100
}

func isHexDash(s string) bool {
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F') || c == '-') {
			return false
		}
	}
	return true
}

func init() {
	rerunCmd.Flags().BoolVar(&rerunJSON, "json", false, "Output as JSON")
	rerunCmd.Flags().BoolVar(&rerunNoCache, "no-cache", false, "Bypass the traversal cache")
	rerunCmd.Flags().BoolVar(&rerunNoRecord, "no-record", false, "Do not record the repeated run")
	rerunCmd.Flags().Float64Var(&rerunCutoff, "cutoff", 0, "Use a different cutoff than the recorded one")
	rerunCmd.Flags().BoolVar(&rerunQuiet, "quiet", false, "Suppress non-essential output")
	rootCmd.AddCommand(rerunCmd)
}

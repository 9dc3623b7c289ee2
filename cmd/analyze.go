package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"wiser/scope/internal/db"
	"wiser/scope/internal/export"
	"wiser/scope/internal/lca"
	"wiser/scope/internal/scope"
	"wiser/scope/internal/session"
)

var (
	analyzeJSON       bool
	analyzeMethod     string
	analyzeAmount     float64
	analyzeCutoffs    []float64
	analyzeScope2     []int64
	analyzeOverrides  string
	analyzeExport     string
	analyzeAllColumns bool
	analyzeNoCache    bool
	analyzeNoRecord   bool
	analyzeRows       int
)

// analysisResult is one attribution at one cutoff.
type analysisResult struct {
	RunID       string            `json:"run_id,omitempty"`
	Activity    *db.Activity      `json:"activity"`
	Method      string            `json:"method"`
	Amount      float64           `json:"amount"`
	Cutoff      float64           `json:"cutoff"`
	Score       float64           `json:"score"`
	Reused      bool              `json:"reused"`
	Overridden  bool              `json:"overridden"`
	Attribution scope.Attribution `json:"attribution"`
	Table       scope.NodeTable   `json:"table"`
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <product>",
	Short: "Split the impact of a product into Scope 1, 2 and 3",
	Long: `Solves the LCA of the product, expands its supply chain down to the cutoff,
and attributes the score to Scope 1 (the product's own process), Scope 2
(purchased electricity) and Scope 3 (everything else upstream).

The product may be given as an activity ID, a code, a code prefix or a name.
Several --cutoff values analyze the same solve at each cutoff in turn.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := OpenDatabase()
		if err != nil {
			return err
		}
		defer d.Close()

		activity, err := ResolveActivity(d, args[0])
		if err != nil {
			return err
		}

		var overrides []scope.Override
		if analyzeOverrides != "" {
			overrides, err = loadOverrides(analyzeOverrides)
			if err != nil {
				return err
			}
		}

		sess, err := newSession(d, sessionFlags{
			method:  analyzeMethod,
			amount:  analyzeAmount,
			scope2:  analyzeScope2,
			noCache: analyzeNoCache,
		})
		if err != nil {
			return err
		}

		cutoffs := analyzeCutoffs
		if len(cutoffs) == 0 {
			cutoffs = []float64{appConfig.Cutoff}
		}
		results, err := runAnalysis(cmd.Context(), sess, activity.ID, cutoffs, overrides, !analyzeNoRecord)
		if err != nil {
			return err
		}

		if analyzeExport != "" {
			last := results[len(results)-1]
			if err := export.WriteFile(analyzeExport, last.Table, export.Options{IncludeHidden: analyzeAllColumns}); err != nil {
				return err
			}
		}

		if analyzeJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(results)
		}

		for _, r := range results {
			printAnalysis(r, analyzeRows, analyzeAllColumns)
		}
		if analyzeExport != "" {
			fmt.Printf("  Table written to %s\n\n", analyzeExport)
		}
		return nil
	},
}

// sessionFlags are command-line overrides of the session options. Zero
// values fall back to scope.yml; a nil scope2 does too, an empty one does not.
type sessionFlags struct {
	method  string
	amount  float64
	maxCalc int
	scope2  []int64
	noCache bool
}

func newSession(d *db.DB, f sessionFlags) (*session.Session, error) {
	opts := session.Options{
		Method:  appConfig.Method,
		Amount:  appConfig.Amount,
		MaxCalc: appConfig.MaxCalc,
		Scope2:  scope.NewScopeSet(appConfig.Scope2Activities...),
		NoCache: f.noCache,
	}
	if f.method != "" {
		opts.Method = f.method
	}
	if f.amount != 0 {
		opts.Amount = f.amount
	}
	if f.maxCalc != 0 {
		opts.MaxCalc = f.maxCalc
	}
	if f.scope2 != nil {
		opts.Scope2 = scope.NewScopeSet(f.scope2...)
	}
	return session.New(d, lca.NewEngine(d), opts)
}

// runAnalysis solves once and attributes at every cutoff. Overrides, when
// given, are applied to each table before recording.
func runAnalysis(ctx context.Context, sess *session.Session, activityID int64, cutoffs []float64, overrides []scope.Override, record bool) ([]analysisResult, error) {
	if err := sess.SelectProduct(activityID); err != nil {
		return nil, err
	}
	score, err := sess.Solve(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]analysisResult, 0, len(cutoffs))
	for _, cutoff := range cutoffs {
		changed, err := sess.Traverse(ctx, cutoff)
		if err != nil {
			return nil, err
		}
		a, err := sess.Attribute(ctx)
		if err != nil {
			return nil, err
		}
		if len(overrides) > 0 {
			if a, err = sess.ApplyOverrides(ctx, overrides); err != nil {
				return nil, err
			}
		}

		r := analysisResult{
			Activity:    sess.Activity(),
			Method:      sess.Method().Code,
			Amount:      sess.Amount(),
			Cutoff:      sess.Cutoff(),
			Score:       score,
			Reused:      !changed,
			Overridden:  sess.Overridden(),
			Attribution: a,
			Table:       sess.Table(),
		}
		if record {
			if r.RunID, err = sess.Record(ctx); err != nil {
				return nil, err
			}
		}
		results = append(results, r)
	}
	return results, nil
}

// overrideFile is the YAML layout of an --overrides file.
type overrideFile struct {
	Overrides []scope.Override `yaml:"overrides"`
}

func loadOverrides(path string) ([]scope.Override, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading overrides: %w", err)
	}
	return parseOverrides(data)
}

func parseOverrides(data []byte) ([]scope.Override, error) {
	var f overrideFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing overrides: %w", err)
	}
	for i, o := range f.Overrides {
		if o.SupplyAmount == nil && o.BurdenIntensity == nil {
			return nil, fmt.Errorf("override %d (uid %d) sets no value", i+1, o.UID)
		}
	}
	return f.Overrides, nil
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "Output as JSON")
	analyzeCmd.Flags().StringVar(&analyzeMethod, "method", "", "Impact method code (default from scope.yml, else GCC)")
	analyzeCmd.Flags().Float64Var(&analyzeAmount, "amount", 0, "Functional unit amount (default from scope.yml, else 1)")
	analyzeCmd.Flags().Float64SliceVar(&analyzeCutoffs, "cutoff", nil, "Traversal cutoff in (0, 1]; repeatable")
	analyzeCmd.Flags().Int64SliceVar(&analyzeScope2, "scope2", nil, "Activity IDs counted as Scope 2 (default from scope.yml)")
	analyzeCmd.Flags().StringVar(&analyzeOverrides, "overrides", "", "YAML file of user supply amounts and burden intensities")
	analyzeCmd.Flags().StringVar(&analyzeExport, "export", "", "Write the (last) analysis table as CSV; .zst compresses")
	analyzeCmd.Flags().BoolVar(&analyzeAllColumns, "all-columns", false, "Include hidden columns in table output and export")
	analyzeCmd.Flags().BoolVar(&analyzeNoCache, "no-cache", false, "Bypass the traversal cache")
	analyzeCmd.Flags().BoolVar(&analyzeNoRecord, "no-record", false, "Do not record the run in the history")
	analyzeCmd.Flags().IntVar(&analyzeRows, "rows", 20, "Maximum table rows to print (0 = all)")
	rootCmd.AddCommand(analyzeCmd)
}

func printAnalysis(r analysisResult, maxRows int, allColumns bool) {
	fmt.Printf("\n  %s  (%g × activity %d, %s)\n", r.Activity.Name, r.Amount, r.Activity.ID, r.Method)
	status := ""
	if r.Reused {
		status = " (reused)"
	}
	if r.Overridden {
		status += " (user data)"
	}
	fmt.Printf("  score: %.6g  cutoff: %g%s\n", r.Score, r.Cutoff, status)
	if r.RunID != "" {
		fmt.Printf("  run: %s\n", truncID(r.RunID))
	}

	fmt.Println("\n  SCOPES")
	fmt.Println("  ────────────────────────────────────────")
	shares := r.Attribution.Share()
	for i, label := range r.Attribution.Labels() {
		barLen := int(shares[i] * 20)
		if barLen > 20 {
			barLen = 20
		}
		if barLen < 0 {
			barLen = 0
		}
		bar := strings.Repeat("█", barLen) + strings.Repeat("░", 20-barLen)
		fmt.Printf("  %s  %12.6g  %5.1f%%  [%s]\n", label, r.Attribution.Values()[i], shares[i]*100, bar)
	}

	fmt.Println("\n  SUPPLY CHAIN")
	fmt.Println("  ────────────────────────────────────────")
	hidden := ""
	if allColumns {
		hidden = "      Ref"
	}
	fmt.Printf("  %4s %5s %-40s %12s %12s %12s %5s%s  %s\n",
		"UID", "Scope", "Name", "Supply", "Direct", "Cumulative", "Depth", hidden, "Branch")
	rows := r.Table.Rows
	if maxRows > 0 && len(rows) > maxRows {
		rows = rows[:maxRows]
	}
	for _, row := range rows {
		name := truncTitle(row.Name, 37)
		if row.Edited {
			name = "*" + name
		}
		ref := ""
		if allColumns {
			ref = fmt.Sprintf(" %8d", row.ActivityRef)
		}
		fmt.Printf("  %4d %5d %-40s %12.4g %12.4g %12.4g %5d%s  %s\n",
			row.UID, row.Scope, name, row.SupplyAmount, row.Direct, row.Cumulative, row.Depth, ref, formatBranch(row.Branch))
	}
	if len(rows) < len(r.Table.Rows) {
		fmt.Printf("  ... and %d more\n", len(r.Table.Rows)-len(rows))
	}
	fmt.Println()
}

func formatBranch(branch []int) string {
	if len(branch) == 0 {
		return "-"
	}
	parts := make([]string, len(branch))
	for i, uid := range branch {
		parts[i] = fmt.Sprint(uid)
	}
	return strings.Join(parts, "→")
}

func truncID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncTitle(s string, max int) string {
	if len(s) <= max {
		return s
	}
	// Cut on a rune boundary
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max] + "..."
}

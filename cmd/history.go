package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	historyJSON  bool
	historyLimit int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded analyses, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := OpenDatabase()
		if err != nil {
			return err
		}
		defer d.Close()

		runs, err := d.ListRuns(historyLimit)
		if err != nil {
			return fmt.Errorf("listing runs: %w", err)
		}

		if historyJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(runs)
		}

		if len(runs) == 0 {
			fmt.Println("No runs recorded yet.")
			return nil
		}
		fmt.Printf("%-8s  %-16s  %-6s  %8s  %7s  %12s  %12s  %12s  %s\n",
			"RUN", "WHEN", "METHOD", "AMOUNT", "CUTOFF", "SCOPE 1", "SCOPE 2", "SCOPE 3", "PRODUCT")
		for _, r := range runs {
			when := time.UnixMilli(r.CreatedAt).Format("2006-01-02 15:04")
			fmt.Printf("%-8s  %-16s  %-6s  %8g  %7g  %12.5g  %12.5g  %12.5g  %s\n",
				truncID(r.ID), when, r.Method, r.Amount, r.Cutoff, r.Scope1, r.Scope2, r.Scope3, truncTitle(r.ActivityName, 40))
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "Output as JSON")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of runs")
	rootCmd.AddCommand(historyCmd)
}

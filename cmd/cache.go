package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var cacheOlderThan time.Duration

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the traversal cache",
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete cached traversals older than --older-than",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := OpenDatabase()
		if err != nil {
			return err
		}
		defer d.Close()

		n, err := d.PruneTraversals(cacheOlderThan)
		if err != nil {
			return fmt.Errorf("pruning cache: %w", err)
		}
		fmt.Printf("Removed %d cached traversal(s)\n", n)
		return nil
	},
}

func init() {
	cachePruneCmd.Flags().DurationVar(&cacheOlderThan, "older-than", 30*24*time.Hour, "Age threshold (0 removes everything)")
	cacheCmd.AddCommand(cachePruneCmd)
	rootCmd.AddCommand(cacheCmd)
}

package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"wiser/scope/internal/db"
)

var (
	productsJSON  bool
	productsLimit int
)

var productsCmd = &cobra.Command{
	Use:   "products [query]",
	Short: "List products, or search activities by name",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := OpenDatabase()
		if err != nil {
			return err
		}
		defer d.Close()

		var found []db.Activity
		if len(args) == 1 {
			found, err = d.SearchActivities(args[0], productsLimit)
		} else {
			found, err = d.ListProducts()
			if productsLimit > 0 && len(found) > productsLimit {
				found = found[:productsLimit]
			}
		}
		if err != nil {
			return err
		}

		if productsJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(found)
		}

		if len(found) == 0 {
			fmt.Println("No matching activities.")
			return nil
		}
		for _, a := range found {
			fmt.Printf("%5d  %-12s  %-8s  %s\n", a.ID, truncTitle(a.Code, 12), a.Type, truncTitle(a.Name, 60))
		}
		return nil
	},
}

func init() {
	productsCmd.Flags().BoolVar(&productsJSON, "json", false, "Output as JSON")
	productsCmd.Flags().IntVar(&productsLimit, "limit", 50, "Maximum number of results")
	rootCmd.AddCommand(productsCmd)
}

package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"wiser/scope/internal/catalog"
)

var (
	methodsJSON bool
	methodsAll  bool
)

var methodsCmd = &cobra.Command{
	Use:   "methods",
	Short: "List impact methods that have characterization factors",
	Long:  "Lists the catalog methods for which the inventory holds characterization factors. --all lists the whole catalog without opening the database.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var methods []catalog.Method
		if methodsAll {
			methods = catalog.Builtin().All()
		} else {
			d, err := OpenDatabase()
			if err != nil {
				return err
			}
			defer d.Close()

			codes, err := d.Methods()
			if err != nil {
				return fmt.Errorf("listing methods: %w", err)
			}
			methods = catalog.Builtin().Available(codes)
		}

		if methodsJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(methods)
		}

		if len(methods) == 0 {
			fmt.Println("No characterized methods. Import factors or use --all.")
			return nil
		}
		def, _ := catalog.Builtin().Default()
		for _, m := range methods {
			marker := " "
			if m.Code == def.Code {
				marker = "*"
			}
			fmt.Printf("%s %-6s %s\n", marker, m.Code, m.Label())
		}
		return nil
	},
}

func init() {
	methodsCmd.Flags().BoolVar(&methodsJSON, "json", false, "Output as JSON")
	methodsCmd.Flags().BoolVar(&methodsAll, "all", false, "List every catalog method")
	rootCmd.AddCommand(methodsCmd)
}

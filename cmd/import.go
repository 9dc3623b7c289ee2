package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"wiser/scope/internal/inventory"
	"wiser/scope/internal/sparql"
)

var (
	importJSON     bool
	importDir      string
	importEndpoint string
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Load inventory data into the database",
}

var importFilesCmd = &cobra.Command{
	Use:   "files <pattern>...",
	Short: "Import activities and factors from YAML files",
	Long:  "Reads every YAML inventory file under --dir matching one of the patterns. Patterns may use ** to match at any depth, e.g. 'inventory/**/*.yml'.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := inventory.LoadFS(os.DirFS(importDir), args...)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			return fmt.Errorf("no files in %s match %s", importDir, strings.Join(args, ", "))
		}

		d, err := OpenDatabase()
		if err != nil {
			return err
		}
		defer d.Close()

		stats, err := inventory.Apply(d, files)
		if err != nil {
			return err
		}

		if importJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(stats)
		}
		fmt.Printf("Imported %d file(s): %d new activities, %d exchanges, %d factors\n",
			stats.Files, stats.Activities, stats.Exchanges, stats.Factors)
		return nil
	},
}

var importSparqlCmd = &cobra.Command{
	Use:   "sparql <activity>",
	Short: "Import an activity and its sub-tree from a SPARQL endpoint",
	Long:  "The activity is an IRI, or a label matched against the endpoint's activity list (case-insensitive, must be unique).",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		client, err := sparqlClient()
		if err != nil {
			return err
		}

		src := args[0]
		if !strings.Contains(src, "://") {
			labels, err := client.ActivityLabels(ctx)
			if err != nil {
				return err
			}
			if src, err = matchLabel(labels, args[0]); err != nil {
				return err
			}
		}

		d, err := OpenDatabase()
		if err != nil {
			return err
		}
		defer d.Close()

		root, stats, err := sparql.NewImporter(d, client).Import(ctx, src)
		if err != nil {
			return err
		}

		if importJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{"activity": root, "stats": stats})
		}
		fmt.Printf("Imported %s (id %d, code %s)\n", root.Name, root.ID, root.Code)
		fmt.Printf("  %d new activities, %d new flows, %d exchanges, %d rows skipped\n",
			stats.Activities, stats.Flows, stats.Exchanges, stats.Skipped)
		return nil
	},
}

var importLabelsCmd = &cobra.Command{
	Use:   "labels [filter]",
	Short: "List the activities a SPARQL endpoint offers",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := sparqlClient()
		if err != nil {
			return err
		}
		labels, err := client.ActivityLabels(cmd.Context())
		if err != nil {
			return err
		}
		if len(args) == 1 {
			filter := strings.ToLower(args[0])
			kept := labels[:0]
			for _, l := range labels {
				if strings.Contains(strings.ToLower(l.Label), filter) {
					kept = append(kept, l)
				}
			}
			labels = kept
		}

		if importJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(labels)
		}
		for _, l := range labels {
			fmt.Printf("%-50s  %s\n", truncTitle(l.Label, 50), l.Src)
		}
		return nil
	},
}

func sparqlClient() (*sparql.Client, error) {
	endpoint := importEndpoint
	if endpoint == "" {
		endpoint = appConfig.SPARQLEndpoint
	}
	if endpoint == "" {
		return nil, fmt.Errorf("no SPARQL endpoint (use --endpoint or set sparqlEndpoint in scope.yml)")
	}
	return sparql.NewClient(endpoint, sparql.WithTimeout(appConfig.SPARQLTimeout)), nil
}

// matchLabel returns the IRI of the activity whose label equals name,
// ignoring case.
func matchLabel(labels []sparql.ActivityLabel, name string) (string, error) {
	var matches []sparql.ActivityLabel
	for _, l := range labels {
		if strings.EqualFold(l.Label, name) {
			matches = append(matches, l)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0].Src, nil
	case 0:
		return "", fmt.Errorf("no activity labelled '%s' at the endpoint", name)
	}
	lines := make([]string, len(matches))
	for i, m := range matches {
		lines[i] = fmt.Sprintf("  %s", m.Src)
	}
	return "", fmt.Errorf("ambiguous label '%s'. %d matches:\n%s\nUse the activity IRI instead.",
		name, len(matches), joinLines(lines))
}

func init() {
	importCmd.PersistentFlags().BoolVar(&importJSON, "json", false, "Output as JSON")
	importFilesCmd.Flags().StringVar(&importDir, "dir", ".", "Directory the patterns are relative to")
	importSparqlCmd.Flags().StringVar(&importEndpoint, "endpoint", "", "SPARQL endpoint URL (default from scope.yml)")
	importLabelsCmd.Flags().StringVar(&importEndpoint, "endpoint", "", "SPARQL endpoint URL (default from scope.yml)")
	importCmd.AddCommand(importFilesCmd, importSparqlCmd, importLabelsCmd)
	rootCmd.AddCommand(importCmd)
}

package cmd

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"wiser/scope/internal/graph"
)

var (
	inspectJSON         bool
	inspectProduct      string
	inspectTopN         int
	inspectHubThreshold int
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Inspect inventory structure: components, orphans, hub suppliers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := OpenDatabase()
		if err != nil {
			return err
		}
		defer d.Close()

		snap, err := graph.SnapshotFromDB(d)
		if err != nil {
			return fmt.Errorf("loading inventory: %w", err)
		}

		if inspectProduct != "" {
			a, err := ResolveActivity(d, inspectProduct)
			if err != nil {
				return err
			}
			snap = snap.Upstream(a.ID)
		}

		report := graph.ComputeTopology(snap, inspectHubThreshold, inspectTopN)

		if inspectJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}

		printTopology(report, snap)
		return nil
	},
}

func init() {
	inspectCmd.Flags().BoolVar(&inspectJSON, "json", false, "Output as JSON")
	inspectCmd.Flags().StringVar(&inspectProduct, "product", "", "Limit to the supply chain of this product")
	inspectCmd.Flags().IntVar(&inspectTopN, "top-n", 10, "Number of top items to show")
	inspectCmd.Flags().IntVar(&inspectHubThreshold, "hub-threshold", 10, "Minimum degree for hub detection")
	rootCmd.AddCommand(inspectCmd)
}

func printTopology(t *graph.TopologyReport, snap *graph.GraphSnapshot) {
	fmt.Println("\n  TOPOLOGY")
	fmt.Println("  ────────────────────────────────────────")
	fmt.Printf("  Activities: %d  Exchanges: %d  Components: %d\n", t.TotalNodes, t.TotalEdges, t.NumComponents)
	fmt.Printf("  Largest component: %d  Smallest: %d\n", t.LargestComponent, t.SmallestComponent)
	fmt.Printf("  Leaves (no inputs): %d\n", t.LeafCount)

	if t.OrphanCount > 0 {
		fmt.Printf("  Orphans: %d unconnected activities\n", t.OrphanCount)
		limit := 5
		if len(t.OrphanIDs) < limit {
			limit = len(t.OrphanIDs)
		}
		for _, id := range t.OrphanIDs[:limit] {
			name := "?"
			if node := snap.Nodes[id]; node != nil {
				name = truncTitle(node.Name, 50)
			}
			fmt.Printf("    - %5d (%s)\n", id, name)
		}
		if t.OrphanCount > 5 {
			fmt.Printf("    ... and %d more\n", t.OrphanCount-5)
		}
	}

	// Degree distribution
	fmt.Println("\n  Degree distribution:")
	for _, b := range t.DegreeHistogram {
		if b.Count > 0 {
			barWidth := int(math.Log2(float64(b.Count))) + 2
			if barWidth < 1 {
				barWidth = 1
			}
			fmt.Printf("    %5s: %4d  %s\n", b.Label, b.Count, strings.Repeat("=", barWidth))
		}
	}

	if len(t.Hubs) > 0 {
		fmt.Println("\n  Hub suppliers (degree > threshold):")
		for _, hub := range t.Hubs {
			fmt.Printf("    %5d degree=%d (consumers=%d, inputs=%d)  %s\n",
				hub.ID, hub.Degree, hub.Consumers, hub.Inputs, truncTitle(hub.Name, 40))
		}
	}

	fmt.Println()
}

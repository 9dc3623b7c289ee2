// Package export writes the analysis table as CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"

	"wiser/scope/internal/scope"
)

// Options control which columns are written.
type Options struct {
	// IncludeHidden adds the ActivityRef column, which the table view hides.
	IncludeHidden bool
}

func header(opts Options) []string {
	cols := []string{"UID", "Scope", "Name", "SupplyAmount", "BurdenIntensity",
		"Burden(Direct)", "Cumulative", "Depth", "Branch", "Edited"}
	if opts.IncludeHidden {
		cols = append(cols, "ActivityRef")
	}
	return cols
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatBranch(branch []int) string {
	parts := make([]string, len(branch))
	for i, n := range branch {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, " ")
}

// WriteCSV writes the table to w, one row per node, with a header row.
func WriteCSV(w io.Writer, table scope.NodeTable, opts Options) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header(opts)); err != nil {
		return err
	}
	for _, r := range table.Rows {
		record := []string{
			strconv.Itoa(r.UID),
			strconv.Itoa(r.Scope),
			r.Name,
			formatFloat(r.SupplyAmount),
			formatFloat(r.BurdenIntensity),
			formatFloat(r.Direct),
			formatFloat(r.Cumulative),
			strconv.Itoa(r.Depth),
			formatBranch(r.Branch),
			strconv.FormatBool(r.Edited),
		}
		if opts.IncludeHidden {
			record = append(record, strconv.FormatInt(r.ActivityRef, 10))
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile writes the table as CSV to path. A ".zst" suffix produces a
// zstd-compressed file.
func WriteFile(path string, table scope.NodeTable, opts Options) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	if !strings.HasSuffix(path, ".zst") {
		return WriteCSV(f, table, opts)
	}

	encoder, err := zstd.NewWriter(f)
	if err != nil {
		return fmt.Errorf("creating zstd encoder: %w", err)
	}
	if err := WriteCSV(encoder, table, opts); err != nil {
		encoder.Close()
		return err
	}
	return encoder.Close()
}

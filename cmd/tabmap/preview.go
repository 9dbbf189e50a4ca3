package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/user/tabmap/pkg/evaluator"
	"github.com/user/tabmap/pkg/mapping"
)

var (
	mappingPath string
	previewJSON bool
)

func init() {
	rootCmd.AddCommand(previewCmd)
	previewCmd.Flags().StringVarP(&mappingPath, "mapping", "m", "mapping.yaml", "mapping document")
	previewCmd.Flags().StringVarP(&sourcePath, "source", "s", "", "source workbook")
	previewCmd.Flags().Int("max-rows", 0, "rows per sheet (default from config)")
	previewCmd.Flags().BoolVar(&previewJSON, "json", false, "print JSON instead of tables")
	previewCmd.MarkFlagRequired("source")
	bindFlag("preview.max_rows", previewCmd.Flags().Lookup("max-rows"))
}

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Show the first transformed rows of every target sheet",
	RunE: func(cmd *cobra.Command, args []string) error {
		spec, err := loadSpec()
		if err != nil {
			return err
		}
		p, err := newEngine().Preview(cmd.Context(), spec, cfg.Preview.MaxRows)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if previewJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(p)
		}
		for _, sp := range p.Sheets {
			status := fmt.Sprintf("%d row(s)", len(sp.Rows))
			if sp.Truncated {
				status += ", truncated"
			}
			if sp.Err != nil {
				status += ", error: " + sp.Err.Error()
			}
			fmt.Fprintf(out, "== %s (%s)\n", sp.Sheet, status)

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, strings.Join(sp.Headers, "\t"))
			for _, row := range sp.Rows {
				cells := make([]string, len(row))
				for i, v := range row {
					cells[i] = evaluator.ToDisplayString(v)
				}
				fmt.Fprintln(tw, strings.Join(cells, "\t"))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
		}
		return nil
	},
}

// loadSpec reads the mapping document and attaches the source path, which is
// not persisted.
func loadSpec() (*mapping.MappingSpec, error) {
	spec, err := mapping.LoadFile(mappingPath, mapping.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	spec.SourcePath = sourcePath
	return spec, nil
}

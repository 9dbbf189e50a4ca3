package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/user/tabmap/pkg/mapping"
)

var (
	templatePath string
	sourcePath   string
	mappingOut   string
	overwrite    bool
)

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(suggestCmd)

	initCmd.Flags().StringVarP(&templatePath, "template", "t", "", "template workbook")
	initCmd.Flags().StringVarP(&sourcePath, "source", "s", "", "source workbook (optional)")
	initCmd.Flags().StringVarP(&mappingOut, "output", "o", "mapping.yaml", "mapping document to write (.yaml or .json)")
	initCmd.Flags().BoolVar(&overwrite, "force", false, "overwrite an existing mapping document")
	initCmd.MarkFlagRequired("template")

	suggestCmd.Flags().StringVarP(&templatePath, "template", "t", "", "template workbook")
	suggestCmd.Flags().StringVarP(&sourcePath, "source", "s", "", "source workbook")
	suggestCmd.MarkFlagRequired("template")
	suggestCmd.MarkFlagRequired("source")
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Build an initial mapping document from a template and a source workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !overwrite {
			if _, err := os.Stat(mappingOut); err == nil {
				return fmt.Errorf("%s already exists, use --force to overwrite", mappingOut)
			} else if !errors.Is(err, os.ErrNotExist) {
				return err
			}
		}
		spec, err := newEngine().BuildSpec(cmd.Context(), templatePath, sourcePath)
		if err != nil {
			return err
		}
		if err := mapping.WriteFile(mappingOut, spec); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s with %d sheet(s)\n", mappingOut, len(spec.Sheets))
		return nil
	},
}

var suggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Print the proposed source column for every template column",
	RunE: func(cmd *cobra.Command, args []string) error {
		spec, err := newEngine().BuildSpec(cmd.Context(), templatePath, sourcePath)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "SHEET\tSOURCE SHEET\tTARGET\tSOURCE")
		for _, sheet := range spec.Sheets {
			for _, col := range sheet.Columns {
				source := col.Source
				if source == "" {
					source = "-"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", sheet.TargetSheet, sheet.SourceSheet, col.Target, source)
			}
		}
		return tw.Flush()
	},
}

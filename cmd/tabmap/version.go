package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/user/tabmap/internal/config"
)

var version = "dev"

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of tabmap",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "tabmap %s\n", version)
	},
}

var configCmd = &cobra.Command{
	Use:   "config [path]",
	Short: "Print the effective configuration, or save it to path",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			return config.Save(args[0], cfg)
		}
		shown := *cfg
		if shown.Storage.S3.SecretAccessKey != "" {
			shown.Storage.S3.SecretAccessKey = "********"
		}
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(&shown)
	},
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentstation/anchor/yaml"
)

func newVersionCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Example: `  # Show version
  anchor version

  # Show version in JSON format
  anchor version --output json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.output != yaml.FormatText {
				return yaml.Render(cmd.OutOrStdout(), map[string]string{
					"version":   version,
					"commit":    commit,
					"buildDate": buildDate,
					"goVersion": goVersion,
				}, flags.output)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "anchor version %s\n", version)
			if version != "dev" {
				fmt.Fprintf(w, "  commit:     %s\n", commit)
				fmt.Fprintf(w, "  built:      %s\n", buildDate)
				fmt.Fprintf(w, "  go version: %s\n", goVersion)
			}
			return nil
		},
	}
}

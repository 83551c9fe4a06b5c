package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentstation/anchor/log"
	"github.com/agentstation/anchor/yaml"
)

// globalFlags holds the persistent flags shared by all commands.
type globalFlags struct {
	verbose  bool
	logLevel string
	output   string
}

// logger returns a logger writing to the command's error stream.
func (g *globalFlags) logger(cmd *cobra.Command) *log.Logger {
	level := g.logLevel
	if g.verbose {
		level = log.LevelDebug
	}
	return log.NewWithWriter(cmd.ErrOrStderr(), level)
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "anchor",
		Short: "Run typed LLM chains",
		Long: `Anchor builds chains of processing stages, from prompt templates to
model calls, and runs them from YAML definitions.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch flags.output {
			case yaml.FormatText, yaml.FormatJSON, yaml.FormatYAML:
				return nil
			default:
				return fmt.Errorf("unknown output format %q", flags.output)
			}
		},
	}

	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", log.LevelWarn, "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVarP(&flags.output, "output", "o", yaml.FormatText, "Output format (text, json, yaml)")

	// Disable default completion command
	root.CompletionOptions.DisableDefaultCmd = true

	root.AddCommand(newRunCmd(flags), newNodesCmd(flags), newVersionCmd(flags))
	return root
}

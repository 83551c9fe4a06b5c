package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentstation/anchor"
	"github.com/agentstation/anchor/builtin"
	"github.com/agentstation/anchor/yaml"
)

// runConfig holds configuration for the run command.
type runConfig struct {
	filePath  string
	input     string
	jsonInput bool
	dryRun    bool
	trace     bool
	timeout   time.Duration
}

func newRunCmd(flags *globalFlags) *cobra.Command {
	cfg := &runConfig{}

	cmd := &cobra.Command{
		Use:   "run <file.yaml>",
		Short: "Run a chain from a YAML file",
		Example: `  # Run with an inline input
  anchor run summarize.yaml --input "long text"

  # Read the input from stdin and print JSON
  cat article.txt | anchor run summarize.yaml --input - --output json

  # Only check the definition
  anchor run summarize.yaml --dry-run`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.filePath = args[0]
			return runChain(cmd, flags, cfg)
		},
	}

	cmd.Flags().StringVarP(&cfg.input, "input", "i", "", `Chain input, "-" reads stdin`)
	cmd.Flags().BoolVar(&cfg.jsonInput, "json", false, "Decode the input as JSON before running")
	cmd.Flags().BoolVar(&cfg.dryRun, "dry-run", false, "Validate and build the chain without running it")
	cmd.Flags().BoolVar(&cfg.trace, "trace", false, "Trace every stage")
	cmd.Flags().DurationVar(&cfg.timeout, "timeout", 0, "Abort the run after this duration (0 = no limit)")
	return cmd
}

func runChain(cmd *cobra.Command, flags *globalFlags, cfg *runConfig) error {
	logger := flags.logger(cmd)
	defer func() { _ = logger.Sync() }()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	absPath, err := resolveChainFile(cfg.filePath)
	if err != nil {
		return err
	}
	logger.Debug(ctx, "loading chain", "path", absPath)

	def, err := yaml.NewParser().ParseFile(absPath)
	if err != nil {
		return err
	}

	var opts []anchor.Option
	if cfg.trace {
		opts = append(opts, anchor.WithTrace())
	}
	chain, err := builtin.Load(def, builtin.Default(builtin.WithLogger(logger)), opts...)
	if err != nil {
		return fmt.Errorf("load chain: %w", err)
	}
	logger.Debug(ctx, "chain loaded", "chain", chain.String())

	if cfg.dryRun {
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "chain %s is valid: %s\n", def.Name, chain)
		return err
	}

	input, err := readInput(cmd.InOrStdin(), cfg)
	if err != nil {
		return err
	}

	if cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := chain.Process(ctx, input)
	if err != nil {
		logger.Error(ctx, "chain failed", "chain", def.Name, "error", err)
		return err
	}
	logger.Info(ctx, "chain completed", "chain", def.Name, "duration", time.Since(start))

	return yaml.Render(cmd.OutOrStdout(), result, flags.output)
}

func readInput(stdin io.Reader, cfg *runConfig) (any, error) {
	text := cfg.input
	if text == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		text = string(data)
	}
	if !cfg.jsonInput {
		return text, nil
	}

	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil, anchor.Errorf(anchor.KindInvalidInput, "decode input: %w", err)
	}
	return v, nil
}

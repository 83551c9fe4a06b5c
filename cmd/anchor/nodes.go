package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	goyaml "github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/agentstation/anchor/builtin"
	"github.com/agentstation/anchor/yaml"
)

func newNodesCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nodes",
		Short: "List available stage types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listNodes(cmd.OutOrStdout(), builtin.Default(), flags.output)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "info <type>",
		Short: "Show details about a stage type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return nodeInfo(cmd.OutOrStdout(), builtin.Default(), args[0], flags.output)
		},
	})
	return cmd
}

func metadata(reg *builtin.Registry) []builtin.NodeMetadata {
	types := reg.Types()
	nodes := make([]builtin.NodeMetadata, 0, len(types))
	for _, t := range types {
		b, _ := reg.Get(t)
		nodes = append(nodes, b.Metadata())
	}
	sort.SliceStable(nodes, func(i, j int) bool {
		return nodes[i].Category < nodes[j].Category
	})
	return nodes
}

func listNodes(w io.Writer, reg *builtin.Registry, format string) error {
	nodes := metadata(reg)
	if format != yaml.FormatText {
		summary := make([]map[string]any, len(nodes))
		for i, n := range nodes {
			summary[i] = map[string]any{
				"type":        n.Type,
				"category":    n.Category,
				"description": n.Description,
				"input":       n.Input,
				"output":      n.Output,
			}
		}
		return yaml.Render(w, summary, format)
	}
	return outputTable(w, nodes)
}

// outputTable prints nodes grouped by category.
func outputTable(w io.Writer, nodes []builtin.NodeMetadata) error {
	categories := make(map[string][]builtin.NodeMetadata)
	for _, node := range nodes {
		categories[node.Category] = append(categories[node.Category], node)
	}

	categoryNames := make([]string, 0, len(categories))
	for cat := range categories {
		categoryNames = append(categoryNames, cat)
	}
	sort.Strings(categoryNames)

	for _, cat := range categoryNames {
		fmt.Fprintf(w, "\n%s:\n", strings.ToUpper(cat[:1])+cat[1:])
		fmt.Fprintln(w, strings.Repeat("-", len(cat)+1))
		for _, node := range categories[cat] {
			fmt.Fprintf(w, "  %-12s %-8s -> %-8s %s\n", node.Type, node.Input, shortType(node.Output), node.Description)
		}
	}

	fmt.Fprintf(w, "\nTotal: %d stage types\n", len(nodes))
	_, err := fmt.Fprintln(w, "\nUse 'anchor nodes info <type>' for detailed information about a specific stage.")
	return err
}

func shortType(s string) string {
	if i := strings.IndexByte(s, ' '); i > 0 {
		return s[:i]
	}
	return s
}

func nodeInfo(w io.Writer, reg *builtin.Registry, nodeType, format string) error {
	b, ok := reg.Get(nodeType)
	if !ok {
		return fmt.Errorf("stage type '%s' not found", nodeType)
	}
	node := b.Metadata()
	if format != yaml.FormatText {
		return yaml.Render(w, node, format)
	}

	fmt.Fprintf(w, "Stage Type: %s\n", node.Type)
	fmt.Fprintf(w, "Category: %s\n", node.Category)
	fmt.Fprintf(w, "Description: %s\n", node.Description)
	fmt.Fprintf(w, "Input: %s\nOutput: %s\n", node.Input, node.Output)
	if node.Since != "" {
		fmt.Fprintf(w, "Since: %s\n", node.Since)
	}
	fmt.Fprintln(w)

	if len(node.ConfigSchema) > 0 {
		fmt.Fprintln(w, "Configuration:")
		schemaJSON, err := json.MarshalIndent(node.ConfigSchema, "  ", "  ")
		if err != nil {
			return fmt.Errorf("marshal schema: %w", err)
		}
		fmt.Fprintf(w, "  %s\n\n", schemaJSON)
	}

	if len(node.Examples) > 0 {
		fmt.Fprintln(w, "Examples:")
		for i, example := range node.Examples {
			fmt.Fprintf(w, "  %d. %s\n", i+1, example.Name)
			if example.Description != "" {
				fmt.Fprintf(w, "     %s\n", example.Description)
			}
			if len(example.Config) > 0 {
				configYAML, err := goyaml.Marshal(example.Config)
				if err != nil {
					return fmt.Errorf("marshal example config: %w", err)
				}
				fmt.Fprintf(w, "     Config:\n")
				for _, line := range strings.Split(string(configYAML), "\n") {
					if line != "" {
						fmt.Fprintf(w, "       %s\n", line)
					}
				}
			}
		}
	}

	return nil
}

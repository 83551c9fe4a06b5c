package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// resolveChainFile turns a user supplied definition path into an absolute
// path to an existing YAML file. A leading ~ is expanded.
func resolveChainFile(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("expand path: %w", err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("get absolute path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("open file: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("open file: %s is a directory", abs)
	}
	switch filepath.Ext(abs) {
	case ".yaml", ".yml":
		return abs, nil
	default:
		return "", fmt.Errorf("chain definition %s must be a .yaml or .yml file", abs)
	}
}

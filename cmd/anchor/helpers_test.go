package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestResolveChainFile(t *testing.T) {
	dir := t.TempDir()
	chain := filepath.Join(dir, "chain.yml")
	notes := filepath.Join(dir, "notes.txt")
	for _, p := range []string{chain, notes} {
		if err := os.WriteFile(p, []byte("name: x\n"), 0o600); err != nil {
			t.Fatal(err)
		}
	}

	got, err := resolveChainFile(chain)
	if err != nil || got != chain {
		t.Errorf("resolveChainFile(%q) = %q, %v", chain, got, err)
	}

	tests := []struct {
		name    string
		path    string
		wantErr string
	}{
		{"missing", filepath.Join(dir, "none.yaml"), "open file"},
		{"directory", dir, "is a directory"},
		{"wrong extension", notes, "must be a .yaml or .yml file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := resolveChainFile(tt.path)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("resolveChainFile() error = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestResolveChainFileHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	path := filepath.Join(home, "chains", "a.yaml")
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("name: a\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	got, err := resolveChainFile("~/chains/a.yaml")
	if err != nil || got != path {
		t.Errorf("resolveChainFile(~) = %q, %v, want %q", got, err, path)
	}
}

package yaml

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestParseExample(t *testing.T) {
	def, err := NewParser().ParseString(Example())
	if err != nil {
		t.Fatalf("ParseString() error = %v", err)
	}

	if def.Name != "summarize" || !def.Trace {
		t.Errorf("def = %q trace=%v", def.Name, def.Trace)
	}
	names := make([]string, 0, len(def.Stages))
	for _, s := range def.Stages {
		names = append(names, s.StageName())
	}
	if diff := cmp.Diff([]string{"render", "ask", "trim"}, names); diff != "" {
		t.Errorf("stage names mismatch (-want +got):\n%s", diff)
	}

	ask := def.Stages[1]
	if ask.Combine != "join" || len(ask.Branches) != 2 {
		t.Fatalf("ask = %+v", ask)
	}
	careful := ask.Branches[1].Stages[0]
	if careful.Config["model"] != "gpt-4o" {
		t.Errorf("model = %v", careful.Config["model"])
	}
	if timeout, _ := careful.GetTimeout(); timeout != 30*time.Second {
		t.Errorf("GetTimeout() = %v", timeout)
	}
	if careful.Retry == nil || careful.Retry.MaxAttempts != 3 {
		t.Errorf("Retry = %+v", careful.Retry)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"missing name", "stages:\n  - type: upper\n", "chain name is required"},
		{"no stages", "name: x\n", "at least one stage"},
		{"missing type", "name: x\nstages:\n  - name: a\n", "stage type is required"},
		{"unknown field", "name: x\nunknown: 1\nstages:\n  - type: upper\n", "unknown"},
		{"parallel without branches", "name: x\nstages:\n  - type: parallel\n", "at least one branch"},
		{"branches on plain stage", "name: x\nstages:\n  - type: upper\n    combine: join\n", "only valid for parallel"},
		{"empty branch", "name: x\nstages:\n  - type: parallel\n    branches:\n      - name: a\n        stages: []\n", "branch 0 has no stages"},
		{"bad timeout", "name: x\nstages:\n  - type: upper\n    timeout: soon\n", "invalid timeout"},
		{"bad retry", "name: x\nstages:\n  - type: upper\n    retry:\n      max_attempts: 0\n      delay: 1s\n", "max_attempts"},
		{"nested error", "name: x\nstages:\n  - type: parallel\n    branches:\n      - stages:\n          - name: inner\n", "branch 0: stage 0 (inner)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewParser().ParseString(tt.yaml)
			if err == nil {
				t.Fatal("ParseString() error = nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("ParseString() error = %q, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestLenientParser(t *testing.T) {
	_, err := NewLenientParser().ParseString("name: x\nextra: true\nstages:\n  - type: upper\n")
	if err != nil {
		t.Errorf("ParseString() error = %v", err)
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	p := NewParser()
	def, err := p.ParseString(Example())
	if err != nil {
		t.Fatal(err)
	}
	data, err := p.Marshal(def)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	again, err := p.Parse(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if diff := cmp.Diff(def, again); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestRender(t *testing.T) {
	tests := []struct {
		format string
		value  any
		want   string
	}{
		{FormatText, "hello", "hello\n"},
		{FormatText, 42, "42\n"},
		{FormatJSON, map[string]any{"a": 1}, "{\n  \"a\": 1\n}\n"},
		{FormatYAML, map[string]any{"a": 1}, "a: 1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			if err := Render(&buf, tt.value, tt.format); err != nil {
				t.Fatalf("Render() error = %v", err)
			}
			if buf.String() != tt.want {
				t.Errorf("Render() = %q, want %q", buf.String(), tt.want)
			}
		})
	}

	if err := Render(&bytes.Buffer{}, "x", "xml"); err == nil {
		t.Error("Render(xml) error = nil")
	}
}

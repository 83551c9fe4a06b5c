package anchor_test

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/agentstation/anchor"
)

func TestDynamicChain(t *testing.T) {
	parse := anchor.Erase("parse", anchor.Func("parse", func(ctx context.Context, s string) (int, error) {
		return strconv.Atoi(s)
	}))
	double := anchor.Erase("double", anchor.Func("double", func(ctx context.Context, n int) (int, error) {
		return n * 2, nil
	}))
	format := anchor.Erase("format", anchor.Func("format", func(ctx context.Context, n int) (string, error) {
		return fmt.Sprintf("=%d", n), nil
	}))

	chain, err := anchor.NewDynamicBuilder(parse).Then(double).Then(format).Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	got, err := chain.Process(context.Background(), "21")
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if got != "=42" {
		t.Errorf("Process() = %v, want =42", got)
	}
}

func TestDynamicChainTypeMismatch(t *testing.T) {
	upper := anchor.Erase("upper", anchor.Func("upper", func(ctx context.Context, s string) (string, error) {
		return strings.ToUpper(s), nil
	}))
	double := anchor.Erase("double", anchor.Func("double", func(ctx context.Context, n int) (int, error) {
		return n * 2, nil
	}))

	_, err := anchor.NewDynamicBuilder(upper).Then(double).Build()
	if !errors.Is(err, anchor.ErrTypeMismatch) {
		t.Fatalf("Build() error = %v, want ErrTypeMismatch", err)
	}
	if !strings.Contains(err.Error(), `"upper"`) || !strings.Contains(err.Error(), `"double"`) {
		t.Errorf("error %q does not name both stages", err)
	}
}

type stringer interface{ String() string }

type label string

func (l label) String() string { return string(l) }

func TestValidateStages(t *testing.T) {
	toLabel := anchor.Erase("label", anchor.Func("label", func(ctx context.Context, s string) (label, error) {
		return label(s), nil
	}))
	describe := anchor.Erase("describe", anchor.Func("describe", func(ctx context.Context, s stringer) (string, error) {
		return s.String(), nil
	}))
	anyIn := anchor.Erase[any, any]("any", anchor.Passthrough[any]{})
	count := anchor.Erase("count", anchor.Func("count", func(ctx context.Context, n int) (int, error) { return n, nil }))

	tests := []struct {
		name    string
		stages  []anchor.Stage
		wantErr bool
	}{
		{"interface satisfaction", []anchor.Stage{toLabel, describe}, false},
		{"dynamic input", []anchor.Stage{toLabel, anyIn, count}, false},
		{"concrete mismatch", []anchor.Stage{toLabel, count}, true},
		{"single stage", []anchor.Stage{count}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := anchor.ValidateStages(tt.stages)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateStages() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDynamicChainRuntimeInputCheck(t *testing.T) {
	anyOut := anchor.Erase[any, any]("any", anchor.Passthrough[any]{})
	count := anchor.Erase("count", anchor.Func("count", func(ctx context.Context, n int) (int, error) { return n + 1, nil }))

	chain, err := anchor.Dynamic([]anchor.Stage{anyOut, count})
	if err != nil {
		t.Fatalf("Dynamic() error = %v", err)
	}

	if got, err := chain.Process(context.Background(), 1); err != nil || got != 2 {
		t.Errorf("Process(1) = %v, %v, want 2, nil", got, err)
	}
	_, err = chain.Process(context.Background(), "one")
	if !errors.Is(err, anchor.ErrInvalidInput) {
		t.Errorf("Process(\"one\") error = %v, want invalid input", err)
	}
}

func TestDynamicEmpty(t *testing.T) {
	if _, err := anchor.Dynamic(nil); !errors.Is(err, anchor.ErrEmptyChain) {
		t.Errorf("Dynamic(nil) error = %v, want ErrEmptyChain", err)
	}
	if _, err := anchor.NewDynamicBuilder(anchor.Stage{}).Build(); !errors.Is(err, anchor.ErrEmptyChain) {
		t.Errorf("Build() error = %v, want ErrEmptyChain", err)
	}
}

package anchor_test

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/agentstation/anchor"
)

func ExampleThen() {
	upper := anchor.Func("upper", func(ctx context.Context, s string) (string, error) {
		return strings.ToUpper(s), nil
	})
	exclaim := anchor.Func("exclaim", func(ctx context.Context, s string) (string, error) {
		return s + "!", nil
	})

	chain := anchor.Then(anchor.NewBuilder(upper), exclaim).Build()

	out, err := chain.Process(context.Background(), "hello")
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(out)
	fmt.Println(chain)
	// Output:
	// HELLO!
	// chain(upper -> exclaim)
}

func ExampleNewParallelNode() {
	times := func(by int) anchor.Node[int, int] {
		return anchor.Func(fmt.Sprintf("x%d", by), func(ctx context.Context, n int) (int, error) {
			return n * by, nil
		})
	}

	node := anchor.NewParallelNode(
		[]anchor.Node[int, int]{times(2), times(3), times(4)},
		anchor.Combine(func(parts []int) (int, error) {
			total := 0
			for _, p := range parts {
				total += p
			}
			return total, nil
		}),
	)

	out, _ := node.Process(context.Background(), 5)
	fmt.Println(out)
	// Output: 45
}

func ExampleStageError() {
	validate := anchor.Func("validate", func(ctx context.Context, s string) (string, error) {
		if s == "" {
			return "", anchor.NewError(anchor.KindInvalidInput, "prompt is empty")
		}
		return s, nil
	})

	chain := anchor.NewBuilder(validate).Build()
	_, err := chain.Process(context.Background(), "")

	var stageErr *anchor.StageError
	if errors.As(err, &stageErr) {
		fmt.Println(stageErr.Index, stageErr.Name)
	}
	fmt.Println(errors.Is(err, anchor.ErrInvalidInput))
	fmt.Println(err)
	// Output:
	// 0 validate
	// true
	// stage 0 (validate): invalid input: prompt is empty
}

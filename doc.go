/*
Package anchor provides typed processing chains for LLM applications.

A Node turns an input into an output or fails. Nodes are composed into a
Chain with a Builder; the compiler checks that the output type of each
stage matches the input type of the next:

	b := anchor.NewBuilder(prompt)
	b2 := anchor.Then(b, model)
	chain := anchor.Then(b2, anchor.Func("upper", upper)).Build()

	out, err := chain.Process(ctx, map[string]any{"topic": "rust"})

A Chain stops at the first failing stage. The returned error is a
*StageError naming the stage, wrapping an *Error whose Kind places the
failure in a closed taxonomy:

	if errors.Is(err, anchor.ErrInvalidInput) {
		// ...
	}

A ParallelNode runs siblings concurrently on the same input and combines
their outputs in registration order:

	sum := anchor.NewParallelNode(
		[]anchor.Node[int, int]{double, triple, quadruple},
		anchor.Combine(func(parts []int) (int, error) { ... }),
	)

Chains built with WithTrace wrap every stage in a TraceNode that records
an OpenTelemetry span and logs the stage duration.

Chains assembled at runtime, such as those loaded from YAML, use Stage and
DynamicBuilder. Their types are checked once at Build.
*/
package anchor

package nodes

import (
	"context"
	"fmt"

	"github.com/Shopify/go-lua"

	"github.com/agentstation/anchor"
)

// Lua runs a sandboxed Lua script. The script must define a global
// function exec(input) whose return value becomes the node output. Each
// call runs in a fresh interpreter, so a Lua node is safe for concurrent
// use.
type Lua struct {
	name   string
	script string
}

// NewLua checks that script compiles.
func NewLua(name, script string) (*Lua, error) {
	l := lua.NewState()
	if err := lua.LoadString(l, script); err != nil {
		return nil, anchor.Errorf(anchor.KindInvalidInput, "lua %s: %w", name, err)
	}
	return &Lua{name: name, script: script}, nil
}

// Name implements anchor.Named.
func (n *Lua) Name() string { return n.name }

// Process calls exec(input).
func (n *Lua) Process(ctx context.Context, input any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l := lua.NewState()
	setupSandbox(l)

	if err := lua.DoString(l, n.script); err != nil {
		return nil, anchor.Errorf(anchor.KindModel, "lua %s: %w", n.name, err)
	}

	l.Global("exec")
	if l.TypeOf(-1) != lua.TypeFunction {
		return nil, anchor.NewError(anchor.KindInvalidInput, fmt.Sprintf("lua %s: exec is not defined", n.name))
	}
	pushValue(l, input)
	if err := l.ProtectedCall(1, 1, 0); err != nil {
		return nil, anchor.Errorf(anchor.KindModel, "lua %s: %w", n.name, err)
	}
	result := pullValue(l, -1)
	l.Pop(1)
	return result, nil
}

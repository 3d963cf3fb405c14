package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/xieshanrong/dify200/schema"
)

// InvokeMeta is timing and outcome metadata for one dispatch, surfaced to
// event sinks and persistence but never to the model.
type InvokeMeta struct {
	Elapsed time.Duration

	// Err is the underlying failure when the observation reports one:
	// unknown tool, schema rejection, tool error or recovered panic.
	Err error
}

// DispatchResult is the outcome of routing one action to a tool.
//
// Dispatch always produces a result. Failures of any kind are folded into
// Observation so the model can read about them and recover on the next
// iteration.
type DispatchResult struct {
	Observation string
	FileIDs     []string
	Meta        InvokeMeta
}

// Dispatcher routes actions to registered tools.
//
// Registration happens before the run starts; Dispatch and Specs are then
// called from the reasoning loop goroutine only.
type Dispatcher struct {
	tools   []Tool
	byName  map[string]Tool
	schemas map[string]*schema.Schema
}

// NewDispatcher returns a dispatcher with the given tools registered.
// It panics on a duplicate name or an invalid parameter schema, both of
// which are programming errors.
func NewDispatcher(tools ...Tool) *Dispatcher {
	d := &Dispatcher{
		byName:  make(map[string]Tool, len(tools)),
		schemas: make(map[string]*schema.Schema, len(tools)),
	}
	for _, t := range tools {
		if err := d.Register(t); err != nil {
			panic(err)
		}
	}
	return d
}

// Register adds a tool. The parameter schema is compiled once here; tools
// implementing RuntimeParameterProvider are re-read every Specs call but
// validated against this compiled form.
func (d *Dispatcher) Register(t Tool) error {
	name := t.Name()
	if _, ok := d.byName[name]; ok {
		return fmt.Errorf("agent: duplicate tool %q", name)
	}
	compiled, err := schema.Compile(t.ParameterSchema())
	if err != nil {
		return fmt.Errorf("agent: tool %q: %w", name, err)
	}
	d.tools = append(d.tools, t)
	d.byName[name] = t
	d.schemas[name] = compiled
	return nil
}

// Names returns registered tool names in registration order.
func (d *Dispatcher) Names() []string {
	names := make([]string, len(d.tools))
	for i, t := range d.tools {
		names[i] = t.Name()
	}
	return names
}

// Specs returns the current tool specifications. Tools exposing runtime
// schemas are re-read so specs refreshed between iterations stay current.
func (d *Dispatcher) Specs(ctx context.Context) []ToolSpec {
	specs := make([]ToolSpec, len(d.tools))
	for i, t := range d.tools {
		params := t.ParameterSchema()
		if rp, ok := t.(RuntimeParameterProvider); ok {
			params = rp.RuntimeParameterSchema(ctx)
		}
		specs[i] = ToolSpec{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  params,
		}
	}
	return specs
}

// Dispatch routes an action to its tool and returns the observation. It
// never returns an error: an unknown tool, invalid arguments, a tool error
// or a tool panic all become observation text with Meta.Err set.
func (d *Dispatcher) Dispatch(ctx context.Context, action *Action) *DispatchResult {
	tool, ok := d.byName[action.Name]
	if !ok {
		err := fmt.Errorf("there is not a tool named %s", action.Name)
		return &DispatchResult{Observation: err.Error(), Meta: InvokeMeta{Err: err}}
	}

	args := decodeArgs(action.Input)
	if err := d.schemas[action.Name].Validate(args); err != nil {
		obs := fmt.Sprintf("tool %s rejected the arguments: %v", action.Name, err)
		return &DispatchResult{Observation: obs, Meta: InvokeMeta{Err: err}}
	}

	start := time.Now()
	out, err := d.invoke(ctx, tool, args)
	meta := InvokeMeta{Elapsed: time.Since(start), Err: err}
	if err != nil {
		obs := fmt.Sprintf("tool %s failed: %v", action.Name, err)
		return &DispatchResult{Observation: obs, Meta: meta}
	}
	return &DispatchResult{Observation: out.Text, FileIDs: out.FileIDs, Meta: meta}
}

// invoke runs the tool with panic recovery. A panicking tool must not take
// the reasoning loop down with it.
func (d *Dispatcher) invoke(ctx context.Context, tool Tool, args any) (out *ToolOutput, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	out, err = tool.Invoke(ctx, args)
	if err == nil && out == nil {
		out = &ToolOutput{}
	}
	return out, err
}

// decodeArgs opportunistically decodes string inputs that hold a JSON
// object. Anything that does not decode to an object is passed through as
// the original string.
func decodeArgs(input any) any {
	s, ok := input.(string)
	if !ok {
		return input
	}
	var decoded any
	if err := json.Unmarshal([]byte(s), &decoded); err != nil {
		return s
	}
	if obj, ok := decoded.(map[string]any); ok {
		return obj
	}
	return s
}

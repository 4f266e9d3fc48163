package agentloop

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Tool is a capability the model may call by name.
type Tool interface {
	Name() string
	Description() string
	Args() []ArgSchema
	// Run executes the tool. args is the JSON object the model supplied.
	Run(ctx context.Context, args json.RawMessage) (string, error)
}

// registeredTool pairs a tool with the validator compiled from its
// declared arguments.
type registeredTool struct {
	tool      Tool
	validator *jsonschema.Schema
	schemaErr error
}

// ToolRegistry manages tool registration and lookup. Lookups and
// invocations are safe for concurrent use; registering while other
// goroutines invoke is serialized against them.
type ToolRegistry struct {
	tools map[string]*registeredTool
	mu    sync.RWMutex
}

// NewToolRegistry creates an empty ToolRegistry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{
		tools: make(map[string]*registeredTool),
	}
}

// Register adds or replaces a tool. An empty name registers the tool under
// its own Name.
func (r *ToolRegistry) Register(name string, t Tool) {
	if name == "" {
		name = t.Name()
	}
	entry := &registeredTool{tool: t}
	entry.validator, entry.schemaErr = compileArgs(t.Args())

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[name] = entry
}

// Unregister removes a tool from the registry.
func (r *ToolRegistry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tools, name)
}

// Get returns the tool registered under name. Names match case-sensitively.
func (r *ToolRegistry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.tools[name]
	if !ok {
		return nil, false
	}
	return entry.tool, true
}

// Describe returns the schema of every tool, ordered by name.
func (r *ToolRegistry) Describe() []ToolSchema {
	r.mu.RLock()
	defer r.mu.RUnlock()
	schemas := make([]ToolSchema, 0, len(r.tools))
	for _, name := range r.sortedNames() {
		schemas = append(schemas, DescribeTool(name, r.tools[name].tool))
	}
	return schemas
}

// Names returns the names of all registered tools in sorted order.
func (r *ToolRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedNames()
}

func (r *ToolRegistry) sortedNames() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered tools.
func (r *ToolRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Clone returns a copy of the registry that shares the tools themselves.
func (r *ToolRegistry) Clone() *ToolRegistry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	clone := NewToolRegistry()
	for name, entry := range r.tools {
		cloned := *entry
		clone.tools[name] = &cloned
	}
	return clone
}

// Invoke validates args against the tool's declared arguments and runs it.
// Arguments that do not fit surface as a ToolExecutionError wrapping a
// ParamsNotMatchedError. Empty args are treated as {}.
func (r *ToolRegistry) Invoke(ctx context.Context, name string, args json.RawMessage) (string, error) {
	r.mu.RLock()
	entry, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return "", &ToolNotFoundError{Name: name}
	}

	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}
	if entry.schemaErr != nil {
		return "", newToolExecutionError(name, entry.schemaErr)
	}
	if err := validateArgs(entry.validator, args); err != nil {
		return "", newToolExecutionError(name, &ParamsNotMatchedError{Tool: name, Cause: err})
	}

	out, err := entry.tool.Run(ctx, args)
	if err != nil {
		var execErr *ToolExecutionError
		if errors.As(err, &execErr) {
			return "", err
		}
		return "", newToolExecutionError(name, err)
	}
	return out, nil
}

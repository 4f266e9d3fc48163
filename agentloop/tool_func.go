package agentloop

import (
	"context"
	"encoding/json"
	"slices"

	"github.com/invopop/jsonschema"
)

// FuncTool is a Tool backed by a function.
type FuncTool struct {
	name        string
	description string
	args        []ArgSchema
	run         func(ctx context.Context, args json.RawMessage) (string, error)
}

// NewFuncTool builds a tool from explicit argument descriptors and a
// handler that receives the raw JSON arguments.
func NewFuncTool(name, description string, args []ArgSchema, run func(ctx context.Context, args json.RawMessage) (string, error)) *FuncTool {
	return &FuncTool{name: name, description: description, args: args, run: run}
}

func (t *FuncTool) Name() string        { return t.name }
func (t *FuncTool) Description() string { return t.description }
func (t *FuncTool) Args() []ArgSchema   { return t.args }

func (t *FuncTool) Run(ctx context.Context, args json.RawMessage) (string, error) {
	return t.run(ctx, args)
}

// NewTool builds a tool whose arguments are the fields of struct T. The
// argument list is reflected from T's json and jsonschema tags: a field
// without omitempty is required, and
//
//	City string `json:"city" jsonschema:"description=City to look up"`
//
// documents it. Arguments that do not decode into T fail with a
// ParamsNotMatchedError.
func NewTool[T any](name, description string, handler func(ctx context.Context, input T) (string, error)) *FuncTool {
	var zero T
	return NewFuncTool(name, description, reflectArgs(zero), func(ctx context.Context, raw json.RawMessage) (string, error) {
		var input T
		if err := json.Unmarshal(raw, &input); err != nil {
			return "", &ParamsNotMatchedError{Tool: name, Cause: err}
		}
		return handler(ctx, input)
	})
}

func reflectArgs(v any) []ArgSchema {
	reflector := jsonschema.Reflector{
		DoNotReference: true,
	}
	schema := reflector.Reflect(v)

	args := []ArgSchema{}
	if schema.Properties == nil {
		return args
	}
	for pair := schema.Properties.Oldest(); pair != nil; pair = pair.Next() {
		args = append(args, ArgSchema{
			Name:        pair.Key,
			ArgType:     argTypeOf(pair.Value),
			Description: pair.Value.Description,
			Required:    slices.Contains(schema.Required, pair.Key),
		})
	}
	return args
}

// argTypeOf maps a reflected property onto the argument type vocabulary.
// Untyped values such as interface{} fields are reported as objects.
func argTypeOf(s *jsonschema.Schema) ArgType {
	if t := ArgType(s.Type); t.Valid() {
		return t
	}
	return ArgObject
}

package agentloop

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// compileArgs builds a validator for a tool's declared arguments.
func compileArgs(args []ArgSchema) (*jsonschema.Schema, error) {
	for _, a := range args {
		if !a.ArgType.Valid() {
			return nil, fmt.Errorf("argument %q has unknown type %q", a.Name, a.ArgType)
		}
	}

	raw, err := json.Marshal(jsonSchema(args))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal argument schema: %w", err)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse argument schema: %w", err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource("args.json", doc); err != nil {
		return nil, fmt.Errorf("failed to add argument schema: %w", err)
	}
	compiled, err := c.Compile("args.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile argument schema: %w", err)
	}
	return compiled, nil
}

// validateArgs checks raw model-supplied arguments against a compiled schema.
func validateArgs(schema *jsonschema.Schema, args json.RawMessage) error {
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(args))
	if err != nil {
		return fmt.Errorf("arguments are not valid JSON: %w", err)
	}
	return schema.Validate(inst)
}

package agentloop

import "encoding/json"

// ArgType is the JSON type of a tool argument as shown to the model.
type ArgType string

const (
	ArgString  ArgType = "string"
	ArgInteger ArgType = "integer"
	ArgNumber  ArgType = "number"
	ArgBoolean ArgType = "boolean"
	ArgArray   ArgType = "array"
	ArgObject  ArgType = "object"
)

// Valid reports whether t is one of the known argument types.
func (t ArgType) Valid() bool {
	switch t {
	case ArgString, ArgInteger, ArgNumber, ArgBoolean, ArgArray, ArgObject:
		return true
	}
	return false
}

// ArgSchema describes one tool argument.
type ArgSchema struct {
	Name        string  `json:"name"`
	ArgType     ArgType `json:"arg_type"`
	Description string  `json:"description"`
	Required    bool    `json:"required"`
}

// ToolSchema is the machine-readable description of a tool placed in the
// prompt, one message per tool.
type ToolSchema struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Args        []ArgSchema `json:"args"`
}

// DescribeTool renders t as registered under name.
func DescribeTool(name string, t Tool) ToolSchema {
	args := t.Args()
	if args == nil {
		args = []ArgSchema{}
	}
	return ToolSchema{Name: name, Description: t.Description(), Args: args}
}

// JSON encodes the schema as it is sent to the model.
func (s ToolSchema) JSON() (string, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// jsonSchema converts argument descriptors into an object JSON Schema used
// to check model-supplied arguments.
func jsonSchema(args []ArgSchema) map[string]any {
	props := make(map[string]any, len(args))
	required := []string{}
	for _, a := range args {
		prop := map[string]any{"type": string(a.ArgType)}
		if a.Description != "" {
			prop["description"] = a.Description
		}
		props[a.Name] = prop
		if a.Required {
			required = append(required, a.Name)
		}
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

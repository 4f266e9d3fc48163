// Package tools provides ready-made tools for agents: a canned weather
// lookup used by the examples and read-only file access confined to a
// directory.
package tools

import (
	"context"
	"fmt"

	"github.com/martinemde/minichain/agentloop"
)

// WeatherInput is the argument object of the get_weather tool.
type WeatherInput struct {
	City string `json:"city" jsonschema:"description=City name such as San Francisco"`
}

// Weather returns the get_weather demo tool. It always reports sunshine.
func Weather() agentloop.Tool {
	return agentloop.NewTool("get_weather", "Get weather for a given city",
		func(_ context.Context, in WeatherInput) (string, error) {
			return fmt.Sprintf("It's always sunny in %s!", in.City), nil
		})
}

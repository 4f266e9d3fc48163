package agentloop

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type searchInput struct {
	Query   string   `json:"query" jsonschema:"description=Search terms"`
	Limit   int      `json:"limit,omitempty" jsonschema:"description=Maximum results"`
	Score   float64  `json:"score,omitempty"`
	Exact   bool     `json:"exact,omitempty"`
	Tags    []string `json:"tags,omitempty"`
	Filters any      `json:"filters,omitempty"`
}

func TestNewToolReflectsArgs(t *testing.T) {
	tool := NewTool("search", "Search the index", func(_ context.Context, in searchInput) (string, error) {
		return in.Query, nil
	})

	assert.Equal(t, "search", tool.Name())
	assert.Equal(t, "Search the index", tool.Description())
	assert.Equal(t, []ArgSchema{
		{Name: "query", ArgType: ArgString, Description: "Search terms", Required: true},
		{Name: "limit", ArgType: ArgInteger, Description: "Maximum results"},
		{Name: "score", ArgType: ArgNumber},
		{Name: "exact", ArgType: ArgBoolean},
		{Name: "tags", ArgType: ArgArray},
		{Name: "filters", ArgType: ArgObject},
	}, tool.Args())
}

func TestNewToolDecodesArgs(t *testing.T) {
	tool := NewTool("search", "Search", func(_ context.Context, in searchInput) (string, error) {
		return fmt.Sprintf("%s/%d/%v", in.Query, in.Limit, in.Tags), nil
	})

	out, err := tool.Run(context.Background(), json.RawMessage(`{"query":"go","limit":3,"tags":["a","b"]}`))
	require.NoError(t, err)
	assert.Equal(t, "go/3/[a b]", out)
}

func TestNewToolDecodeFailure(t *testing.T) {
	tool := NewTool("search", "Search", func(_ context.Context, in searchInput) (string, error) {
		return "unreachable", nil
	})

	_, err := tool.Run(context.Background(), json.RawMessage(`{"query":["not","a","string"]}`))
	var params *ParamsNotMatchedError
	require.ErrorAs(t, err, &params)
	assert.Equal(t, "search", params.Tool)
	assert.ErrorIs(t, err, ErrParamsNotMatched)
}

func TestNewToolThroughRegistry(t *testing.T) {
	reg := NewToolRegistry()
	reg.Register("", NewTool("search", "Search", func(_ context.Context, in searchInput) (string, error) {
		return "found " + in.Query, nil
	}))

	out, err := reg.Invoke(context.Background(), "search", json.RawMessage(`{"query":"llama"}`))
	require.NoError(t, err)
	assert.Equal(t, "found llama", out)

	_, err = reg.Invoke(context.Background(), "search", json.RawMessage(`{"limit":2}`))
	assert.ErrorIs(t, err, ErrParamsNotMatched)
}

func TestNewToolWithoutFields(t *testing.T) {
	tool := NewTool("ping", "Ping", func(context.Context, struct{}) (string, error) {
		return "pong", nil
	})
	assert.Empty(t, tool.Args())

	out, err := tool.Run(context.Background(), json.RawMessage(`{}`))
	require.NoError(t, err)
	assert.Equal(t, "pong", out)
}

package unifiedllm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetModelInfo(t *testing.T) {
	info := GetModelInfo("claude-sonnet-4-5")
	require.NotNil(t, info)
	assert.Equal(t, "anthropic", info.Provider)
	assert.Equal(t, 200000, info.ContextWindow)

	info = GetModelInfo("llama3")
	require.NotNil(t, info, "lookup by alias")
	assert.Equal(t, "llama3.1", info.ID)

	assert.Nil(t, GetModelInfo("nonexistent-model"))
}

func TestListModels(t *testing.T) {
	assert.Len(t, ListModels(""), len(Models))

	ollama := ListModels("ollama")
	require.NotEmpty(t, ollama)
	for _, m := range ollama {
		assert.Equal(t, "ollama", m.Provider)
	}

	assert.Empty(t, ListModels("nonexistent"))
}

func TestListModelsReturnsCopy(t *testing.T) {
	all := ListModels("")
	all[0].ID = "mutated"
	assert.NotEqual(t, "mutated", Models[0].ID)
}

func TestDefaultModel(t *testing.T) {
	assert.Equal(t, "llama3.2", DefaultModel("ollama"))
	assert.Equal(t, "gpt-4o-mini", DefaultModel("openai"))
	assert.Equal(t, "claude-sonnet-4-5", DefaultModel("anthropic"))
	assert.Empty(t, DefaultModel("unknown"))
}

func TestResolveModel(t *testing.T) {
	assert.Equal(t, "claude-haiku-4-5", ResolveModel("haiku"))
	assert.Equal(t, "my-finetune", ResolveModel("my-finetune"))
}

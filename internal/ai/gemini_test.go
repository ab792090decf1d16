package ai

import (
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJSON(t *testing.T) {
	var out struct {
		IDs []string `json:"ids"`
	}

	require.NoError(t, DecodeJSON("```json\n{\"ids\": [\"a\", \"b\"]}\n```", &out))
	assert.Equal(t, []string{"a", "b"}, out.IDs)

	assert.ErrorIs(t, DecodeJSON("Sure! Here are your picks.", &out), ErrInvalidResponse)
	assert.ErrorIs(t, DecodeJSON("   ", &out), ErrInvalidResponse)
}

func TestToGenaiSchema(t *testing.T) {
	s := Object(map[string]*Schema{
		"ids":    ArrayOf(String("venue id")),
		"score":  Number(""),
		"bucket": Enum("", "trails", "culture"),
	}, "ids")

	g := toGenaiSchema(s)
	require.NotNil(t, g)
	assert.Equal(t, genai.TypeObject, g.Type)
	assert.Equal(t, []string{"ids"}, g.Required)
	assert.Equal(t, genai.TypeArray, g.Properties["ids"].Type)
	assert.Equal(t, genai.TypeString, g.Properties["ids"].Items.Type)
	assert.Equal(t, genai.TypeNumber, g.Properties["score"].Type)
	assert.Equal(t, "enum", g.Properties["bucket"].Format)
	assert.Nil(t, toGenaiSchema(nil))
}

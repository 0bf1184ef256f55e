package tool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoSpec(name string) Spec {
	return Spec{
		Name:        name,
		Description: "echoes its input",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"text": map[string]any{"type": "string"},
			},
		},
	}
}

func TestDispatchUnknownTool(t *testing.T) {
	r := NewRegistry()

	res := r.Dispatch("does_not_exist", map[string]any{})
	assert.False(t, res.OK)
	assert.Equal(t, "unknown tool: does_not_exist", res.Error)
}

func TestDispatchRecoversFromPanic(t *testing.T) {
	r := NewRegistry()
	r.Register(echoSpec("boom"), func(args map[string]any) Result {
		panic("handler exploded")
	})

	res := r.Dispatch("boom", nil)
	assert.False(t, res.OK)
	assert.Contains(t, res.Error, "handler exploded")
}

func TestDispatchNilArgsBecomeEmptyMap(t *testing.T) {
	r := NewRegistry()
	r.Register(echoSpec("probe"), func(args map[string]any) Result {
		require.NotNil(t, args)
		return Ok("done")
	})

	res := r.Dispatch("probe", nil)
	assert.True(t, res.OK)
}

func TestRegisterOverwrites(t *testing.T) {
	r := NewRegistry()
	r.Register(echoSpec("dup"), func(map[string]any) Result { return Ok("old") })
	r.Register(echoSpec("dup"), func(map[string]any) Result { return Ok("new") })

	res := r.Dispatch("dup", nil)
	require.True(t, res.OK)
	assert.Equal(t, "new", res.Result)
	assert.Len(t, r.Catalog(), 1)
}

func TestRegisterStrictRejectsCollision(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.RegisterStrict(echoSpec("once"), func(map[string]any) Result { return Ok(nil) }))

	err := r.RegisterStrict(echoSpec("once"), func(map[string]any) Result { return Ok(nil) })
	assert.ErrorContains(t, err, "already registered: once")
}

func TestCatalogNormalizesSchema(t *testing.T) {
	r := NewRegistry()
	r.Register(Spec{
		Name:        "goto",
		Description: "navigate",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"url":     map[string]any{"type": "string"},
				"timeout": map[string]any{"type": "integer"},
			},
		},
	}, func(map[string]any) Result { return Ok(nil) })

	catalog := r.Catalog()
	require.Len(t, catalog, 1)
	assert.Equal(t, "function", catalog[0].Type)

	params := catalog[0].Function.Parameters
	assert.Equal(t, "object", params["type"])
	assert.Equal(t, false, params["additionalProperties"])
	assert.ElementsMatch(t, []string{"timeout", "url"}, params["required"])
}

func TestCatalogEmptyProperties(t *testing.T) {
	r := NewRegistry()
	r.Register(Spec{
		Name:        "reload",
		Description: "reload the page",
		Parameters:  map[string]any{"type": "object", "properties": map[string]any{}},
	}, func(map[string]any) Result { return Ok(nil) })

	params := r.Catalog()[0].Function.Parameters
	assert.Empty(t, params["required"])
	assert.NotNil(t, params["properties"])
}

func TestDecodeArgsRequired(t *testing.T) {
	var out struct {
		URL string `json:"url"`
	}

	err := DecodeArgs(map[string]any{}, &out, "url")
	assert.ErrorContains(t, err, "'url' parameter is required")

	err = DecodeArgs(map[string]any{"url": "   "}, &out, "url")
	assert.ErrorContains(t, err, "'url' parameter is required")

	err = DecodeArgs(map[string]any{"url": "https://example.com"}, &out, "url")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", out.URL)
}

func TestDecodeArgsWeakTyping(t *testing.T) {
	var out struct {
		Timeout int `json:"timeout"`
	}

	// JSON numbers arrive as float64
	err := DecodeArgs(map[string]any{"timeout": float64(15000)}, &out)
	require.NoError(t, err)
	assert.Equal(t, 15000, out.Timeout)
}

func TestResultJSON(t *testing.T) {
	assert.JSONEq(t, `{"ok":true,"result":{"status":"clicked"}}`, Ok(map[string]any{"status": "clicked"}).JSON())
	assert.JSONEq(t, `{"ok":false,"error":"no session"}`, Errorf("no session").JSON())
}

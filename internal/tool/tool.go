// Package tool holds the registry the conversation loop dispatches through:
// named, schema-described handlers whose failures are always captured as
// results, never as faults.
package tool

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Spec is the LLM-facing metadata for one tool. Immutable once registered.
type Spec struct {
	Name        string
	Description string
	// Parameters is a JSON-Schema-like object: {"type":"object","properties":{...}}.
	Parameters map[string]any
}

// Handler executes one tool call. Implementations must not panic on bad
// input; the registry converts panics into error results regardless.
type Handler func(args map[string]any) Result

// Result is the single wire shape every handler returns:
// {ok:true, result:...} or {ok:false, error:"..."}.
type Result struct {
	OK     bool   `json:"ok"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Ok wraps a successful result value.
func Ok(value any) Result {
	return Result{OK: true, Result: value}
}

// Errorf wraps a failure message.
func Errorf(format string, args ...any) Result {
	return Result{OK: false, Error: fmt.Sprintf(format, args...)}
}

// JSON renders the result for a tool-result message. Marshal failures fall
// back to a plain error payload so the conversation loop always gets valid
// JSON back.
func (r Result) JSON() string {
	b, err := json.Marshal(r)
	if err != nil {
		return `{"ok":false,"error":"unencodable tool result"}`
	}
	return string(b)
}

// CatalogEntry is the wire shape of one tool in the catalog handed to the
// model: {type:"function", function:{name, description, parameters}}.
type CatalogEntry struct {
	Type     string       `json:"type"`
	Function FunctionSpec `json:"function"`
}

type FunctionSpec struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// normalizeSchema converts a loose parameter schema into the strict form
// the model is held to: every declared property required, no undeclared
// fields allowed.
func normalizeSchema(params map[string]any) map[string]any {
	props, _ := params["properties"].(map[string]any)
	if props == nil {
		props = map[string]any{}
	}

	required := make([]string, 0, len(props))
	for name := range props {
		required = append(required, name)
	}
	sort.Strings(required)

	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             required,
		"additionalProperties": false,
	}
}

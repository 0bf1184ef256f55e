package tool

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// DecodeArgs validates and decodes a raw argument map into a typed struct.
// Required keys must be present and non-empty; the error names the first
// missing one so the model can correct itself. Decoding is weakly typed
// because models frequently send numbers where integers are declared.
func DecodeArgs(args map[string]any, out any, required ...string) error {
	for _, key := range required {
		v, ok := args[key]
		if !ok || v == nil {
			return fmt.Errorf("'%s' parameter is required", key)
		}
		if s, isString := v.(string); isString && strings.TrimSpace(s) == "" {
			return fmt.Errorf("'%s' parameter is required", key)
		}
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		TagName:          "json",
	})
	if err != nil {
		return fmt.Errorf("build argument decoder: %w", err)
	}
	if err := dec.Decode(args); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

package browser

import "encoding/json"

// quoteJS renders s as a JS string literal safe to splice into a script.
func quoteJS(s string) string {
	b, err := json.Marshal(s)
	if err != nil {
		return `""`
	}
	return string(b)
}

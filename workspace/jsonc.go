package workspace

import (
	"strings"

	"github.com/tailscale/hujson"
)

// standardizeJSONC turns deno.jsonc text (comments, trailing commas) into
// plain JSON.
func standardizeJSONC(s string) ([]byte, error) {
	return hujson.Standardize([]byte(strings.TrimPrefix(s, "\uFEFF")))
}

package importmap

import "strings"

// ExpandImports adds the trailing-slash entry deno.json implies for jsr: and
// npm: addresses, so "@std/path": "jsr:@std/path@1" also maps
// "@std/path/" to "jsr:/@std/path@1/". Explicit entries win.
func ExpandImports(imports map[string]any) map[string]any {
	out := make(map[string]any, len(imports))
	for k, v := range imports {
		out[k] = v
	}
	for key, value := range imports {
		if strings.HasSuffix(key, "/") {
			continue
		}
		s, ok := value.(string)
		if !ok || strings.HasSuffix(s, "/") {
			continue
		}
		if !strings.HasPrefix(s, "jsr:") && !strings.HasPrefix(s, "npm:") {
			continue
		}
		slashKey := key + "/"
		if _, exists := out[slashKey]; exists {
			continue
		}
		out[slashKey] = s[:4] + "/" + strings.TrimPrefix(s[4:], "/") + "/"
	}
	return out
}

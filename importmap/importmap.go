// Package importmap implements WHATWG import maps with the deno.json
// extensions for jsr: and npm: addresses.
//
// Keys and addresses are normalised against the base URL at parse time.
// Invalid addresses do not fail the parse: the entry is kept as a blocked
// entry and a warning is recorded, so a specifier hitting it fails instead
// of silently falling through.
package importmap

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/lucacasonato/esbuild-deno-loader/errors"
)

// ImportMap is an immutable parsed import map.
type ImportMap struct {
	baseURL  *url.URL
	imports  specifierMap
	scopes   []scope
	warnings []string
}

type entry struct {
	key     string
	address *url.URL // nil when blocked
}

// specifierMap is sorted by key in descending code unit order so the longest
// matching prefix is found first.
type specifierMap []entry

type scope struct {
	prefix  string
	imports specifierMap
}

// Parse parses import map JSON relative to baseURL.
func Parse(baseURL *url.URL, data []byte) (*ImportMap, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, errors.New(errors.PhaseImportMap, errors.KindInvalidData).
			Subject(baseURL.String()).
			Cause(err).
			Detail("invalid import map JSON").
			Build()
	}
	return FromValue(baseURL, v)
}

// FromValue builds an import map from an already decoded JSON value.
func FromValue(baseURL *url.URL, v any) (*ImportMap, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, invalidShape(baseURL, "import map must be a JSON object")
	}
	m := &ImportMap{baseURL: baseURL}

	if raw, ok := obj["imports"]; ok {
		imports, ok := raw.(map[string]any)
		if !ok {
			return nil, invalidShape(baseURL, `"imports" must be a JSON object`)
		}
		m.imports = m.parseSpecifierMap(imports, baseURL)
	}

	if raw, ok := obj["scopes"]; ok {
		scopes, ok := raw.(map[string]any)
		if !ok {
			return nil, invalidShape(baseURL, `"scopes" must be a JSON object`)
		}
		for prefix, rawImports := range scopes {
			imports, ok := rawImports.(map[string]any)
			if !ok {
				return nil, invalidShape(baseURL, fmt.Sprintf("scope %q must be a JSON object", prefix))
			}
			prefixURL, err := baseURL.Parse(prefix)
			if err != nil {
				m.warn("invalid scope %q: %v", prefix, err)
				continue
			}
			m.scopes = append(m.scopes, scope{
				prefix:  prefixURL.String(),
				imports: m.parseSpecifierMap(imports, baseURL),
			})
		}
		sort.Slice(m.scopes, func(i, j int) bool { return m.scopes[i].prefix > m.scopes[j].prefix })
	}

	for key := range obj {
		if key != "imports" && key != "scopes" {
			m.warn("invalid top-level key %q; only \"imports\" and \"scopes\" are present", key)
		}
	}
	return m, nil
}

func (m *ImportMap) parseSpecifierMap(raw map[string]any, base *url.URL) specifierMap {
	out := make(specifierMap, 0, len(raw))
	for key, value := range raw {
		normalizedKey := normalizeKey(key, base)
		if normalizedKey == "" {
			m.warn("invalid empty specifier key")
			continue
		}
		s, ok := value.(string)
		if !ok {
			m.warn("invalid address %v for specifier key %q; addresses must be strings", value, key)
			out = append(out, entry{key: normalizedKey})
			continue
		}
		address := resolveURLLike(s, base)
		if address == nil {
			m.warn("invalid address %q for specifier key %q", s, key)
			out = append(out, entry{key: normalizedKey})
			continue
		}
		if strings.HasSuffix(key, "/") && !strings.HasSuffix(address.String(), "/") {
			m.warn("invalid target address %q for package specifier %q; package addresses must end with \"/\"", s, key)
			out = append(out, entry{key: normalizedKey})
			continue
		}
		out = append(out, entry{key: normalizedKey, address: address})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].key > out[j].key })
	return out
}

// Resolve maps specifier through the import map. The boolean reports whether
// an entry matched; when it is false the caller falls back to its own rules.
// A matching blocked entry or a prefix match escaping its address is an
// error.
func (m *ImportMap) Resolve(specifier string, referrer *url.URL) (*url.URL, bool, error) {
	asURL := resolveURLLike(specifier, referrer)
	normalized := specifier
	if asURL != nil {
		normalized = asURL.String()
	}
	ref := referrer.String()

	for _, sc := range m.scopes {
		if sc.prefix == ref || (strings.HasSuffix(sc.prefix, "/") && strings.HasPrefix(ref, sc.prefix)) {
			u, ok, err := resolveImportsMatch(sc.imports, normalized, asURL)
			if err != nil || ok {
				return u, ok, err
			}
		}
	}
	return resolveImportsMatch(m.imports, normalized, asURL)
}

func resolveImportsMatch(imports specifierMap, normalized string, asURL *url.URL) (*url.URL, bool, error) {
	for _, e := range imports {
		if e.key == normalized {
			if e.address == nil {
				return nil, false, blocked(normalized)
			}
			return e.address, true, nil
		}
		if !strings.HasSuffix(e.key, "/") || !strings.HasPrefix(normalized, e.key) {
			continue
		}
		if asURL != nil && !isSpecial(asURL) {
			continue
		}
		if e.address == nil {
			return nil, false, blocked(normalized)
		}
		after := normalized[len(e.key):]
		rel, err := url.Parse(after)
		if err != nil {
			return nil, false, resolveFailed(normalized, err)
		}
		if e.address.Opaque != "" {
			return nil, false, resolveFailed(normalized, fmt.Errorf("address %q cannot be a base URL", String(e.address)))
		}
		u := e.address.ResolveReference(rel)
		if !isSpecial(e.address) && e.address.Host == "" {
			u.OmitHost = true
		}
		if !strings.HasPrefix(u.String(), e.address.String()) {
			return nil, false, errors.New(errors.PhaseImportMap, errors.KindInvalidInput).
				Subject(normalized).
				Detail("specifier %q backtracks above its prefix %q", normalized, e.key).
				Build()
		}
		return u, true, nil
	}
	return nil, false, nil
}

// Warnings returns the diagnostics collected while parsing.
func (m *ImportMap) Warnings() []string { return m.warnings }

// BaseURL returns the URL keys and addresses were resolved against.
func (m *ImportMap) BaseURL() *url.URL { return m.baseURL }

// Imports returns the top-level entries as normalized key to address, with
// blocked entries mapped to "".
func (m *ImportMap) Imports() map[string]string {
	return m.imports.toMap()
}

// Scopes returns every scope's entries keyed by scope prefix.
func (m *ImportMap) Scopes() map[string]map[string]string {
	out := make(map[string]map[string]string, len(m.scopes))
	for _, sc := range m.scopes {
		out[sc.prefix] = sc.imports.toMap()
	}
	return out
}

func (sm specifierMap) toMap() map[string]string {
	out := make(map[string]string, len(sm))
	for _, e := range sm {
		if e.address == nil {
			out[e.key] = ""
			continue
		}
		out[e.key] = String(e.address)
	}
	return out
}

func (m *ImportMap) warn(format string, args ...any) {
	m.warnings = append(m.warnings, fmt.Sprintf(format, args...))
}

func normalizeKey(key string, base *url.URL) string {
	if key == "" {
		return ""
	}
	if u := resolveURLLike(key, base); u != nil {
		return u.String()
	}
	return key
}

// resolveURLLike parses s as a URL when it is relative ("/", "./", "../")
// or absolute; bare specifiers yield nil.
func resolveURLLike(s string, base *url.URL) *url.URL {
	if strings.HasPrefix(s, "/") || strings.HasPrefix(s, "./") || strings.HasPrefix(s, "../") {
		if base == nil {
			return nil
		}
		u, err := base.Parse(s)
		if err != nil {
			return nil
		}
		return u
	}
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" {
		return nil
	}
	return u
}

var specialSchemes = map[string]bool{
	"ftp": true, "file": true, "http": true, "https": true, "ws": true, "wss": true,
}

func isSpecial(u *url.URL) bool {
	return specialSchemes[u.Scheme]
}

// String renders u like a WHATWG URL serializer. Non-special schemes such as
// jsr: and npm: keep their path unescaped, so "jsr:/@std/path@^1/join" stays
// as written.
func String(u *url.URL) string {
	if isSpecial(u) || u.Opaque != "" || u.Host != "" {
		return u.String()
	}
	path, err := url.PathUnescape(u.EscapedPath())
	if err != nil {
		return u.String()
	}
	s := u.Scheme + ":" + path
	if u.RawQuery != "" {
		s += "?" + u.RawQuery
	}
	if u.Fragment != "" {
		s += "#" + u.EscapedFragment()
	}
	return s
}

func invalidShape(base *url.URL, detail string) *errors.Error {
	return errors.New(errors.PhaseImportMap, errors.KindInvalidData).
		Subject(base.String()).
		Detail("%s", detail).
		Build()
}

func blocked(specifier string) *errors.Error {
	return errors.New(errors.PhaseImportMap, errors.KindInvalidInput).
		Subject(specifier).
		Detail("import map entry for %q is blocked by an invalid address", specifier).
		Build()
}

func resolveFailed(specifier string, cause error) *errors.Error {
	return errors.New(errors.PhaseImportMap, errors.KindInvalidInput).
		Subject(specifier).
		Cause(cause).
		Detail("cannot resolve %q against its import map prefix", specifier).
		Build()
}

package resolver

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	denoloader "github.com/lucacasonato/esbuild-deno-loader"
	"github.com/lucacasonato/esbuild-deno-loader/importmap"
	"github.com/lucacasonato/esbuild-deno-loader/specifier"
	"github.com/lucacasonato/esbuild-deno-loader/workspace"
)

// SpecifiedImportMap is an import map supplied by the caller instead of the
// one configured in the workspace.
type SpecifiedImportMap struct {
	BaseURL *url.URL
	Value   any
}

// buildImportMap picks the effective import map: the specified one, the
// root's "importMap" file, or the inline imports and scopes of the root and
// members. It returns nil when none applies.
func buildImportMap(ws *workspace.Workspace, fs denoloader.ReadTextFS, specified *SpecifiedImportMap) (*importmap.ImportMap, error) {
	if specified != nil {
		return importmap.FromValue(specified.BaseURL, specified.Value)
	}

	root := ws.Root()
	if root.Deno != nil && root.Deno.ImportMap != "" {
		return readImportMapFile(root, fs)
	}

	imports := map[string]any{}
	scopes := map[string]any{}
	found := false
	for _, m := range ws.Members() {
		if m.Deno == nil || (m.Deno.Imports == nil && m.Deno.Scopes == nil) {
			continue
		}
		found = true
		configURL, err := specifier.FromPath(m.Deno.Path)
		if err != nil {
			return nil, err
		}
		memberImports := absolutize(importmap.ExpandImports(m.Deno.Imports), configURL)
		if m == root {
			imports = memberImports
		} else if len(memberImports) > 0 {
			scopes[m.DirURL.String()] = memberImports
		}
		for prefix, raw := range m.Deno.Scopes {
			scopeImports, ok := raw.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("invalid scope %q in %s: expected an object", prefix, m.Deno.Path)
			}
			scopeURL, err := configURL.Parse(prefix)
			if err != nil {
				return nil, fmt.Errorf("invalid scope %q in %s: %w", prefix, m.Deno.Path, err)
			}
			scopes[scopeURL.String()] = absolutize(scopeImports, configURL)
		}
	}
	if !found {
		return nil, nil
	}
	rootURL, err := configOrDirURL(root)
	if err != nil {
		return nil, err
	}
	return importmap.FromValue(rootURL, map[string]any{"imports": imports, "scopes": scopes})
}

func readImportMapFile(root *workspace.Member, fs denoloader.ReadTextFS) (*importmap.ImportMap, error) {
	ref := root.Deno.ImportMap
	if u, err := url.Parse(ref); err == nil && u.Scheme != "" && u.Scheme != "file" && len(u.Scheme) > 1 {
		return nil, fmt.Errorf("import map %q in %s: only local import maps are supported", ref, root.Deno.Path)
	}
	var file string
	switch {
	case strings.HasPrefix(ref, "file:"):
		u, err := url.Parse(ref)
		if err != nil {
			return nil, err
		}
		if file, err = specifier.ToPath(u); err != nil {
			return nil, err
		}
	case isAbsPath(ref):
		file = strings.ReplaceAll(ref, "\\", "/")
	default:
		file = path.Join(root.Dir, ref)
	}
	text, err := fs.ReadText(file)
	if err != nil {
		return nil, fmt.Errorf("reading import map %s: %w", file, err)
	}
	base, err := specifier.FromPath(file)
	if err != nil {
		return nil, err
	}
	return importmap.Parse(base, []byte(text))
}

// absolutize resolves relative addresses against the config that declared
// them so member imports keep their meaning once merged into the root map.
func absolutize(imports map[string]any, base *url.URL) map[string]any {
	out := make(map[string]any, len(imports))
	for k, v := range imports {
		s, ok := v.(string)
		if ok && (strings.HasPrefix(s, "./") || strings.HasPrefix(s, "../") || strings.HasPrefix(s, "/")) {
			if u, err := base.Parse(s); err == nil {
				v = u.String()
			}
		}
		out[k] = v
	}
	return out
}

func isAbsPath(p string) bool {
	_, err := specifier.FromPath(p)
	return err == nil
}

func configOrDirURL(m *workspace.Member) (*url.URL, error) {
	if m.Deno != nil {
		return specifier.FromPath(m.Deno.Path)
	}
	return m.DirURL, nil
}

package resolver

import (
	"encoding/json"
	"fmt"
	"strings"

	denoloader "github.com/lucacasonato/esbuild-deno-loader"
	"github.com/lucacasonato/esbuild-deno-loader/depreq"
	"github.com/lucacasonato/esbuild-deno-loader/workspace"
)

// pkgDeps holds the parsed dependencies of one package.json.
type pkgDeps struct {
	dir  string
	deps map[string]depEntry
}

type depEntry struct {
	dep PackageJSONDep
	err error
}

type pkgDepsFile struct {
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

// readPackageDeps reads and parses the dependencies of a manifest.
// dependencies take precedence over devDependencies.
func readPackageDeps(fs denoloader.ReadTextFS, pkg *workspace.PackageJSON, ws *workspace.Workspace) (*pkgDeps, error) {
	text, err := fs.ReadText(pkg.Path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", pkg.Path, err)
	}
	var f pkgDepsFile
	if err := json.Unmarshal([]byte(strings.TrimPrefix(text, "\uFEFF")), &f); err != nil {
		return nil, fmt.Errorf("invalid dependencies in %s: %w", pkg.Path, err)
	}
	out := &pkgDeps{dir: pkg.Dir(), deps: make(map[string]depEntry)}
	for alias, value := range f.DevDependencies {
		out.deps[alias] = parseDepValue(alias, value, ws)
	}
	for alias, value := range f.Dependencies {
		out.deps[alias] = parseDepValue(alias, value, ws)
	}
	return out, nil
}

var unsupportedSchemes = []string{"file:", "link:", "git:", "git+", "github:", "http:", "https:", "portal:", "patch:"}

func parseDepValue(alias, value string, ws *workspace.Workspace) depEntry {
	value = strings.TrimSpace(value)
	if rest, ok := strings.CutPrefix(value, "workspace:"); ok {
		member := npmMember(ws, alias)
		if member == nil {
			return depEntry{err: fmt.Errorf("could not find workspace member %q for %q", alias, value)}
		}
		return depEntry{dep: DepWorkspace{VersionReq: rest, Member: member}}
	}
	for _, scheme := range unsupportedSchemes {
		if strings.HasPrefix(value, scheme) {
			return depEntry{err: fmt.Errorf("not implemented scheme %q in dependency %q", strings.TrimSuffix(strings.TrimSuffix(scheme, ":"), "+"), alias)}
		}
	}

	name, versionReq := alias, value
	if rest, ok := strings.CutPrefix(value, "npm:"); ok {
		req, err := depreq.Parse("npm:" + rest)
		if err != nil {
			return depEntry{err: fmt.Errorf("invalid npm alias %q for dependency %q: %w", value, alias, err)}
		}
		name, versionReq = req.Name, req.VersionReq
	} else {
		if versionReq == "" {
			versionReq = depreq.AnyVersion
		}
		if !depreq.ValidVersionReq(versionReq) {
			return depEntry{err: fmt.Errorf("invalid version requirement %q for dependency %q", value, alias)}
		}
	}

	if member := npmMember(ws, name); member != nil && member.PackageJSON.Version != "" {
		req := depreq.Req{Kind: depreq.KindNpm, Name: name, VersionReq: versionReq}
		if !req.IsTag() && req.Matches(member.PackageJSON.Version) {
			return depEntry{dep: DepWorkspace{VersionReq: versionReq, Member: member}}
		}
	}
	return depEntry{dep: DepReq{Req: depreq.PackageReq{Name: name, VersionReq: versionReq}}}
}

func npmMember(ws *workspace.Workspace, name string) *workspace.Member {
	for _, m := range ws.NpmPackages() {
		if m.PackageJSON.Name == name {
			return m
		}
	}
	return nil
}

// splitBare splits a bare specifier into package name and sub-path:
// "@scope/pkg/sub/mod.js" -> ("@scope/pkg", "sub/mod.js").
func splitBare(s string) (name, subPath string, ok bool) {
	if s == "" || strings.HasPrefix(s, ".") || strings.HasPrefix(s, "/") {
		return "", "", false
	}
	parts := strings.SplitN(s, "/", 3)
	if strings.HasPrefix(s, "@") {
		if len(parts) < 2 || parts[0] == "@" || parts[1] == "" {
			return "", "", false
		}
		name = parts[0] + "/" + parts[1]
		if len(parts) == 3 {
			subPath = parts[2]
		}
		return name, subPath, true
	}
	name, subPath, _ = strings.Cut(s, "/")
	return name, subPath, name != ""
}

// Package workspace discovers Deno and npm workspaces through a capability
// filesystem.
//
// Discovery walks upward from the entrypoints looking for deno.json,
// deno.jsonc and package.json files. The nearest directory with a config is
// the start member; a config further up whose workspace lists that member
// becomes the root. The resulting tree is immutable and may be shared.
package workspace

import (
	"fmt"
	"net/url"
	"path"
	"sort"
	"strings"

	"github.com/lucacasonato/esbuild-deno-loader/specifier"
)

// Member is one directory of a workspace together with its configs.
type Member struct {
	Dir         string
	DirURL      *url.URL
	Deno        *DenoConfig
	PackageJSON *PackageJSON
}

// HasConfig reports whether the member has any config file.
func (m *Member) HasConfig() bool {
	return m.Deno != nil || m.PackageJSON != nil
}

// Contains reports whether the slash path p lies in the member directory.
func (m *Member) Contains(p string) bool {
	dir := strings.TrimSuffix(m.Dir, "/")
	return p == dir || strings.HasPrefix(p, dir+"/")
}

// Workspace is a discovered, immutable workspace tree.
type Workspace struct {
	root    *Member
	members []*Member
}

// Root returns the root member.
func (w *Workspace) Root() *Member { return w.root }

// Members returns the root followed by the other members ordered by
// directory.
func (w *Workspace) Members() []*Member {
	out := make([]*Member, 0, len(w.members)+1)
	out = append(out, w.root)
	return append(out, w.members...)
}

// MemberFor returns the deepest member whose directory contains the file
// URL u, falling back to the root.
func (w *Workspace) MemberFor(u *url.URL) *Member {
	p, err := specifier.ToPath(u)
	if err != nil {
		return w.root
	}
	best := w.root
	for _, m := range w.members {
		if m.Contains(p) && len(m.Dir) > len(best.Dir) {
			best = m
		}
	}
	return best
}

// LockfilePath returns where the workspace lockfile lives. The boolean is
// false when locking is disabled or the root has no config at all.
func (w *Workspace) LockfilePath() (string, bool, error) {
	root := w.root
	if root.Deno != nil && !isAbsent(root.Deno.lock) {
		p, set, err := parseLock(root.Deno.lock)
		if err != nil {
			return "", false, fmt.Errorf("invalid \"lock\" in %s: %w", root.Deno.Path, err)
		}
		switch {
		case set && p == "":
			return "", false, nil
		case p != "":
			if path.IsAbs(p) || hasDrive(p) {
				return p, true, nil
			}
			return path.Join(root.Dir, p), true, nil
		}
	}
	if !root.HasConfig() {
		return "", false, nil
	}
	return path.Join(root.Dir, "deno.lock"), true, nil
}

// NodeModulesDirMode returns the root's explicit node_modules mode.
func (w *Workspace) NodeModulesDirMode() (NodeModulesDirMode, bool) {
	if w.root.Deno == nil {
		return "", false
	}
	return w.root.Deno.NodeModulesDir()
}

// RootHasPackageJSON reports whether the root directory has a package.json.
func (w *Workspace) RootHasPackageJSON() bool {
	return w.root.PackageJSON != nil
}

// Vendor reports whether the root enables vendoring of remote modules.
func (w *Workspace) Vendor() bool {
	return w.root.Deno != nil && w.root.Deno.Vendor
}

// JsrPackages returns the members publishing a jsr package (a deno.json with
// name and exports), ordered by name.
func (w *Workspace) JsrPackages() []*Member {
	var out []*Member
	for _, m := range w.Members() {
		if m.Deno != nil && m.Deno.Name != "" && len(m.Deno.Exports) > 0 {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Deno.Name < out[j].Deno.Name })
	return out
}

// NpmPackages returns the members with a named package.json, ordered by
// name.
func (w *Workspace) NpmPackages() []*Member {
	var out []*Member
	for _, m := range w.Members() {
		if m.PackageJSON != nil && m.PackageJSON.Name != "" {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].PackageJSON.Name < out[j].PackageJSON.Name })
	return out
}

func hasDrive(p string) bool {
	return len(p) >= 3 && p[1] == ':' && p[2] == '/'
}

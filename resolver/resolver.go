// Package resolver maps module specifiers to their targets using a
// workspace's import map, its jsr and npm members and package.json
// dependencies.
//
// Resolve tries, in order: the import map, relative and absolute URLs,
// workspace jsr packages, package.json dependencies (nearest manifest, then
// the root) and workspace npm packages. Everything else is an error.
package resolver

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	denoloader "github.com/lucacasonato/esbuild-deno-loader"
	"github.com/lucacasonato/esbuild-deno-loader/depreq"
	"github.com/lucacasonato/esbuild-deno-loader/errors"
	"github.com/lucacasonato/esbuild-deno-loader/importmap"
	"github.com/lucacasonato/esbuild-deno-loader/specifier"
	"github.com/lucacasonato/esbuild-deno-loader/workspace"
)

// Options configure New.
type Options struct {
	// SpecifiedImportMap replaces the workspace import map when set.
	SpecifiedImportMap *SpecifiedImportMap
	// PackageJSONDeps enables resolving bare specifiers through
	// package.json dependencies.
	PackageJSONDeps bool
}

// Resolver is immutable after New and safe for concurrent use.
type Resolver struct {
	ws        *workspace.Workspace
	importMap *importmap.ImportMap
	pkgDeps   []*pkgDeps // deepest directory first
}

// New builds a resolver for ws. Member manifests and the import map file are
// read through fs.
func New(ws *workspace.Workspace, fs denoloader.ReadTextFS, opts Options) (*Resolver, error) {
	im, err := buildImportMap(ws, fs, opts.SpecifiedImportMap)
	if err != nil {
		return nil, err
	}
	r := &Resolver{ws: ws, importMap: im}

	if opts.PackageJSONDeps {
		for _, m := range ws.Members() {
			if m.PackageJSON == nil {
				continue
			}
			deps, err := readPackageDeps(fs, m.PackageJSON, ws)
			if err != nil {
				return nil, err
			}
			r.pkgDeps = append(r.pkgDeps, deps)
		}
		sort.SliceStable(r.pkgDeps, func(i, j int) bool { return len(r.pkgDeps[i].dir) > len(r.pkgDeps[j].dir) })
	}
	return r, nil
}

// ImportMap returns the effective import map, or nil.
func (r *Resolver) ImportMap() *importmap.ImportMap { return r.importMap }

// Diagnostics returns the warnings produced while parsing the import map.
func (r *Resolver) Diagnostics() []string {
	if r.importMap == nil {
		return nil
	}
	return r.importMap.Warnings()
}

// Resolve resolves specifier relative to referrer.
func (r *Resolver) Resolve(spec string, referrer *url.URL) (MappedResolution, error) {
	if r.importMap != nil {
		u, ok, err := r.importMap.Resolve(spec, referrer)
		if err != nil {
			return nil, err
		}
		if ok {
			if res, matched, err := r.jsrMemberForURL(u); matched || err != nil {
				return res, err
			}
			return ImportMap{Specifier: u}, nil
		}
	}

	if u, ok := resolveURLSpecifier(spec, referrer); ok {
		if res, matched, err := r.jsrMemberForURL(u); matched || err != nil {
			return res, err
		}
		return Normal{Specifier: u}, nil
	}

	name, subPath, bare := splitBare(spec)
	if bare {
		for _, m := range r.ws.JsrPackages() {
			if m.Deno.Name != name {
				continue
			}
			ref := depreq.Reference{
				Req:     depreq.Req{Kind: depreq.KindJsr, Name: name, VersionReq: depreq.AnyVersion},
				SubPath: subPath,
			}
			return r.workspaceJsr(m, ref)
		}

		if res, ok := r.resolvePackageJSON(name, subPath, referrer); ok {
			return res, nil
		}

		for _, m := range r.ws.NpmPackages() {
			if m.PackageJSON.Name == name {
				return WorkspaceNpmPackage{Member: m, PkgName: name, SubPath: subPath}, nil
			}
		}
	}

	detail := fmt.Sprintf("Relative import path %q not prefixed with / or ./ or ../", spec)
	if r.importMap != nil {
		detail += fmt.Sprintf(" and not in import map from %q", referrer.String())
	}
	return nil, errors.New(errors.PhaseResolve, errors.KindInvalidInput).
		Subject(spec).
		Detail("%s", detail).
		Build()
}

// jsrMemberForURL maps a jsr: URL onto a workspace member publishing that
// package when the member version satisfies the requirement.
func (r *Resolver) jsrMemberForURL(u *url.URL) (MappedResolution, bool, error) {
	if u.Scheme != "jsr" {
		return nil, false, nil
	}
	ref, err := depreq.ParseReference(importmap.String(u))
	if err != nil {
		return nil, false, err
	}
	for _, m := range r.ws.JsrPackages() {
		if m.Deno.Name != ref.Req.Name {
			continue
		}
		if m.Deno.Version != "" && !ref.Req.Matches(m.Deno.Version) {
			continue
		}
		res, err := r.workspaceJsr(m, ref)
		return res, true, err
	}
	return nil, false, nil
}

func (r *Resolver) workspaceJsr(m *workspace.Member, ref depreq.Reference) (MappedResolution, error) {
	exportName := "."
	if ref.SubPath != "" {
		exportName = "./" + ref.SubPath
	}
	target, ok := m.Deno.Exports[exportName]
	if !ok {
		return nil, errors.New(errors.PhaseResolve, errors.KindNotFound).
			Subject(ref.String()).
			Detail("unknown export %q for %q. Package exports: %s",
				exportName, m.Deno.Name, strings.Join(m.Deno.ExportNames(), ", ")).
			Build()
	}
	u, err := m.DirURL.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("invalid export %q in %s: %w", target, m.Deno.Path, err)
	}
	return WorkspaceJsrPackage{Specifier: u, Member: m, PkgReqRef: ref}, nil
}

// resolvePackageJSON looks the package name up in the nearest manifest
// containing the referrer, then in the root manifest.
func (r *Resolver) resolvePackageJSON(name, subPath string, referrer *url.URL) (MappedResolution, bool) {
	if len(r.pkgDeps) == 0 {
		return nil, false
	}
	referrerPath, err := specifier.ToPath(referrer)
	if err != nil {
		referrerPath = ""
	}
	rootDir := r.ws.Root().Dir

	var candidates []*pkgDeps
	for _, deps := range r.pkgDeps {
		if referrerPath != "" && within(referrerPath, deps.dir) {
			candidates = append(candidates, deps)
			break
		}
	}
	for _, deps := range r.pkgDeps {
		if deps.dir == rootDir {
			candidates = append(candidates, deps)
		}
	}

	for _, deps := range candidates {
		entry, ok := deps.deps[name]
		if !ok {
			continue
		}
		return PackageJSON{Dep: entry.dep, DepErr: entry.err, Alias: name, SubPath: subPath}, true
	}
	return nil, false
}

// resolveURLSpecifier resolves relative ("./", "../", "/") and absolute URL
// specifiers. Bare specifiers report false.
func resolveURLSpecifier(spec string, referrer *url.URL) (*url.URL, bool) {
	if strings.HasPrefix(spec, "./") || strings.HasPrefix(spec, "../") || strings.HasPrefix(spec, "/") {
		u, err := referrer.Parse(spec)
		if err != nil {
			return nil, false
		}
		return u, true
	}
	u, err := url.Parse(spec)
	if err != nil || u.Scheme == "" || strings.HasPrefix(spec, "@") {
		return nil, false
	}
	return u, true
}

func within(p, dir string) bool {
	dir = strings.TrimSuffix(dir, "/")
	return p == dir || strings.HasPrefix(p, dir+"/")
}

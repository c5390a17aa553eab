package resolver

import (
	"net/url"

	"github.com/lucacasonato/esbuild-deno-loader/depreq"
	"github.com/lucacasonato/esbuild-deno-loader/workspace"
)

// MappedResolution is the outcome of Resolve. The variant set is closed:
// Normal, ImportMap, WorkspaceJsrPackage, WorkspaceNpmPackage and
// PackageJSON.
type MappedResolution interface {
	mappedResolution()
}

// Normal is a relative or absolute URL specifier resolved against the
// referrer.
type Normal struct {
	Specifier *url.URL
}

// ImportMap is a specifier mapped by the import map.
type ImportMap struct {
	Specifier *url.URL
}

// WorkspaceJsrPackage is a specifier naming a jsr package published by a
// workspace member, resolved to the member's export module.
type WorkspaceJsrPackage struct {
	Specifier *url.URL
	Member    *workspace.Member
	PkgReqRef depreq.Reference
}

// WorkspaceNpmPackage is a bare specifier naming an npm package that is a
// workspace member.
type WorkspaceNpmPackage struct {
	Member  *workspace.Member
	PkgName string
	SubPath string
}

// PackageJSON is a bare specifier matching a package.json dependency. Exactly
// one of Dep and DepErr is set.
type PackageJSON struct {
	Dep     PackageJSONDep
	DepErr  error
	Alias   string
	SubPath string
}

func (Normal) mappedResolution()              {}
func (ImportMap) mappedResolution()           {}
func (WorkspaceJsrPackage) mappedResolution() {}
func (WorkspaceNpmPackage) mappedResolution() {}
func (PackageJSON) mappedResolution()         {}

// PackageJSONDep is a parsed package.json dependency value: DepReq or
// DepWorkspace.
type PackageJSONDep interface {
	packageJSONDep()
}

// DepReq is a dependency on a registry package.
type DepReq struct {
	Req depreq.PackageReq
}

// DepWorkspace is a dependency satisfied by a workspace member.
type DepWorkspace struct {
	VersionReq string
	Member     *workspace.Member
}

func (DepReq) packageJSONDep()       {}
func (DepWorkspace) packageJSONDep() {}

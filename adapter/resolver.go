package adapter

import (
	"net/url"

	"go.uber.org/zap"

	"github.com/lucacasonato/esbuild-deno-loader/errors"
	"github.com/lucacasonato/esbuild-deno-loader/importmap"
	"github.com/lucacasonato/esbuild-deno-loader/resolver"
)

var (
	// ErrWorkspaceNpmPackage is returned when a specifier resolves to an npm
	// package that is a workspace member.
	ErrWorkspaceNpmPackage = errors.Unsupported(errors.PhaseResolve,
		"Resolving to a workspace npm package is not supported")
	// ErrWorkspacePackageJSONDep is returned when a package.json dependency
	// points at another workspace member.
	ErrWorkspacePackageJSONDep = errors.Unsupported(errors.PhaseResolve,
		"Resolving to a workspace package.json dependency is not supported")
)

// Resolver is a resolver handle.
type Resolver struct {
	r *resolver.Resolver
}

// Resolve resolves specifier against referrer, which must be an absolute
// URL, and projects the outcome to a single specifier string.
func (r *Resolver) Resolve(specifier, referrer string) (string, error) {
	ref, err := url.Parse(referrer)
	if err != nil || !ref.IsAbs() {
		return "", errors.New(errors.PhaseResolve, errors.KindInvalidInput).
			Subject(referrer).
			Detail("referrer must be an absolute URL").
			Build()
	}
	res, err := r.r.Resolve(specifier, ref)
	if err != nil {
		return "", errors.Flatten(errors.PhaseResolve, err)
	}
	out, err := Project(res)
	if err != nil {
		Logger().Debug("resolution not representable",
			zap.String("specifier", specifier),
			zap.String("referrer", referrer),
			zap.Error(err))
		return "", err
	}
	return out, nil
}

// Project maps a resolution outcome to the specifier string the host
// loads. Workspace npm packages and package.json dependencies on workspace
// members are rejected; a dependency that failed to parse reports its
// message.
func Project(res resolver.MappedResolution) (string, error) {
	switch res := res.(type) {
	case resolver.Normal:
		return importmap.String(res.Specifier), nil
	case resolver.ImportMap:
		return importmap.String(res.Specifier), nil
	case resolver.WorkspaceJsrPackage:
		return importmap.String(res.Specifier), nil
	case resolver.WorkspaceNpmPackage:
		return "", ErrWorkspaceNpmPackage
	case resolver.PackageJSON:
		if res.DepErr != nil {
			return "", errors.Flatten(errors.PhaseResolve, res.DepErr)
		}
		switch dep := res.Dep.(type) {
		case resolver.DepReq:
			out := "npm:" + dep.Req.Name + "@" + dep.Req.VersionReq
			if res.SubPath != "" {
				out += "/" + res.SubPath
			}
			return out, nil
		case resolver.DepWorkspace:
			return "", ErrWorkspacePackageJSONDep
		default:
			panic("adapter: unhandled package.json dependency variant")
		}
	default:
		panic("adapter: unhandled resolution variant")
	}
}

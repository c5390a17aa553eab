package exports

import (
	"encoding/json"

	"github.com/lucacasonato/esbuild-deno-loader/adapter"
	"github.com/lucacasonato/esbuild-deno-loader/errors"
	"github.com/lucacasonato/esbuild-deno-loader/resource"
)

type handleArgs struct {
	Handle resource.Handle `json:"handle"`
}

type handleResult struct {
	Handle resource.Handle `json:"handle"`
}

func (x *Exports) lockfileNew(args json.RawMessage) (any, error) {
	var a struct {
		FilePath string `json:"file_path"`
		Content  string `json:"content"`
	}
	if err := decode(args, &a); err != nil {
		return nil, err
	}
	l, err := adapter.NewLockfile(a.FilePath, a.Content)
	if err != nil {
		return nil, err
	}
	return x.insert(resource.KindLockfile, l)
}

func (x *Exports) lockfilePackageVersion(args json.RawMessage) (any, error) {
	var a struct {
		handleArgs
		Specifier string `json:"specifier"`
	}
	if err := decode(args, &a); err != nil {
		return nil, err
	}
	l, err := lookup[*adapter.Lockfile](x, a.Handle, resource.KindLockfile)
	if err != nil {
		return nil, err
	}
	v, ok, err := l.PackageVersion(a.Specifier)
	if err != nil {
		return nil, err
	}
	return struct {
		Version *string `json:"version"`
	}{optional(v, ok)}, nil
}

func (x *Exports) workspaceDiscover(args json.RawMessage) (any, error) {
	var a struct {
		Entrypoints  []string `json:"entrypoints"`
		IsConfigFile bool     `json:"is_config_file"`
	}
	if err := decode(args, &a); err != nil {
		return nil, err
	}
	ws, err := adapter.Discover(x.host, a.Entrypoints, a.IsConfigFile)
	if err != nil {
		return nil, err
	}
	return x.insert(resource.KindWorkspace, ws)
}

func (x *Exports) workspaceLockPath(args json.RawMessage) (any, error) {
	var a handleArgs
	if err := decode(args, &a); err != nil {
		return nil, err
	}
	ws, err := lookup[*adapter.Workspace](x, a.Handle, resource.KindWorkspace)
	if err != nil {
		return nil, err
	}
	p, ok, err := ws.LockPath()
	if err != nil {
		return nil, err
	}
	return struct {
		Path *string `json:"path"`
	}{optional(p, ok)}, nil
}

func (x *Exports) workspaceNodeModulesDir(args json.RawMessage) (any, error) {
	var a handleArgs
	if err := decode(args, &a); err != nil {
		return nil, err
	}
	ws, err := lookup[*adapter.Workspace](x, a.Handle, resource.KindWorkspace)
	if err != nil {
		return nil, err
	}
	return struct {
		Mode string `json:"mode"`
	}{ws.NodeModulesDir()}, nil
}

func (x *Exports) workspaceResolver(args json.RawMessage) (any, error) {
	var a struct {
		handleArgs
		ImportMapURL   *string         `json:"import_map_url"`
		ImportMapValue json.RawMessage `json:"import_map_value"`
	}
	if err := decode(args, &a); err != nil {
		return nil, err
	}
	ws, err := lookup[*adapter.Workspace](x, a.Handle, resource.KindWorkspace)
	if err != nil {
		return nil, err
	}

	var (
		mapURL   string
		mapValue any
	)
	if a.ImportMapURL != nil {
		if *a.ImportMapURL == "" {
			return nil, errors.InvalidInput(errors.PhaseImportMap, "import_map_url must not be empty")
		}
		mapURL = *a.ImportMapURL
		if len(a.ImportMapValue) > 0 {
			mapValue = a.ImportMapValue
		}
	}
	r, err := ws.Resolver(x.host, mapURL, mapValue)
	if err != nil {
		return nil, err
	}
	return x.insert(resource.KindResolver, r)
}

func (x *Exports) resolverResolve(args json.RawMessage) (any, error) {
	var a struct {
		handleArgs
		Specifier string `json:"specifier"`
		Referrer  string `json:"referrer"`
	}
	if err := decode(args, &a); err != nil {
		return nil, err
	}
	r, err := lookup[*adapter.Resolver](x, a.Handle, resource.KindResolver)
	if err != nil {
		return nil, err
	}
	resolved, err := r.Resolve(a.Specifier, a.Referrer)
	if err != nil {
		return nil, err
	}
	return struct {
		Resolved string `json:"resolved"`
	}{resolved}, nil
}

func (x *Exports) free(args json.RawMessage) (any, error) {
	var a handleArgs
	if err := decode(args, &a); err != nil {
		return nil, err
	}
	if _, ok := x.table.Remove(a.Handle); !ok {
		return nil, errors.InvalidInput(errors.PhaseRuntime, "free of a handle that is not live")
	}
	return struct{}{}, nil
}

func optional(s string, ok bool) *string {
	if !ok {
		return nil
	}
	return &s
}

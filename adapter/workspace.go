package adapter

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/lucacasonato/esbuild-deno-loader/bridge"
	"github.com/lucacasonato/esbuild-deno-loader/errors"
	"github.com/lucacasonato/esbuild-deno-loader/hostfs"
	"github.com/lucacasonato/esbuild-deno-loader/resolver"
	"github.com/lucacasonato/esbuild-deno-loader/workspace"
)

// Node modules modes reported by NodeModulesDir.
const (
	NodeModulesAuto   = "auto"
	NodeModulesManual = "manual"
	NodeModulesNone   = "none"
)

// Workspace is a discovered workspace handle. The tree is shared by every
// resolver built from it and never changes.
type Workspace struct {
	ws *workspace.Workspace
}

// Discover finds the workspace for entrypoints through host. With
// isConfigFile, exactly one entrypoint naming a config file is required.
func Discover(host hostfs.Host, entrypoints []string, isConfigFile bool) (*Workspace, error) {
	if isConfigFile && len(entrypoints) != 1 {
		return nil, errors.InvalidInput(errors.PhaseDiscover,
			fmt.Sprintf("expected exactly one config file entrypoint, got %d", len(entrypoints)))
	}
	normalized := make([]string, len(entrypoints))
	for i, ep := range entrypoints {
		normalized[i] = strings.ReplaceAll(ep, "\\", "/")
	}

	ws, err := workspace.Discover(bridge.New(host), workspace.Options{
		Entrypoints: normalized,
		ConfigFile:  isConfigFile,
	})
	if err != nil {
		Logger().Debug("workspace discovery failed",
			zap.Strings("entrypoints", normalized),
			zap.Error(err))
		return nil, errors.Flatten(errors.PhaseDiscover, err)
	}
	Logger().Debug("workspace discovered",
		zap.String("root", ws.Root().Dir),
		zap.Int("members", len(ws.Members())))
	return &Workspace{ws: ws}, nil
}

// Root returns the workspace root directory.
func (w *Workspace) Root() string { return w.ws.Root().Dir }

// Members returns the member directories, root first.
func (w *Workspace) Members() []string {
	members := w.ws.Members()
	out := make([]string, len(members))
	for i, m := range members {
		out[i] = m.Dir
	}
	return out
}

// LockPath returns the workspace lockfile path. The boolean is false when
// no lockfile is configured.
func (w *Workspace) LockPath() (string, bool, error) {
	p, ok, err := w.ws.LockfilePath()
	if err != nil {
		return "", false, errors.Flatten(errors.PhaseDiscover, err)
	}
	return p, ok, nil
}

// NodeModulesDir returns the node_modules mode. Without an explicit setting
// it is "manual" when the root has a package.json and "none" otherwise.
func (w *Workspace) NodeModulesDir() string {
	if mode, ok := w.ws.NodeModulesDirMode(); ok {
		return string(mode)
	}
	if w.ws.RootHasPackageJSON() {
		return NodeModulesManual
	}
	return NodeModulesNone
}

// Resolver builds a resolver handle. When importMapURL is non-empty,
// importMapValue is the import map relative to it: a decoded JSON value, or
// JSON text as string, []byte or json.RawMessage. Package.json dependency
// resolution is always enabled.
func (w *Workspace) Resolver(host hostfs.Host, importMapURL string, importMapValue any) (*Resolver, error) {
	opts := resolver.Options{PackageJSONDeps: true}

	if importMapURL != "" {
		base, err := url.Parse(importMapURL)
		if err != nil || !base.IsAbs() {
			return nil, errors.New(errors.PhaseImportMap, errors.KindInvalidInput).
				Subject(importMapURL).
				Detail("import map URL must be absolute").
				Build()
		}
		value, err := decodeImportMapValue(importMapValue)
		if err != nil {
			return nil, errors.New(errors.PhaseImportMap, errors.KindInvalidInput).
				Subject(importMapURL).
				Detail("invalid import map value: %v", err).
				Build()
		}
		opts.SpecifiedImportMap = &resolver.SpecifiedImportMap{BaseURL: base, Value: value}
	}

	r, err := resolver.New(w.ws, bridge.New(host), opts)
	if err != nil {
		Logger().Debug("resolver construction failed", zap.Error(err))
		return nil, errors.Flatten(errors.PhaseResolve, err)
	}
	for _, d := range r.Diagnostics() {
		Logger().Warn("import map", zap.String("diagnostic", d))
	}
	return &Resolver{r: r}, nil
}

func decodeImportMapValue(v any) (any, error) {
	var data []byte
	switch raw := v.(type) {
	case nil:
		return nil, fmt.Errorf("missing value")
	case json.RawMessage:
		data = raw
	case []byte:
		data = raw
	case string:
		data = []byte(raw)
	default:
		return v, nil
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	if out == nil {
		return nil, fmt.Errorf("missing value")
	}
	return out, nil
}

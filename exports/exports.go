package exports

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/lucacasonato/esbuild-deno-loader/adapter"
	"github.com/lucacasonato/esbuild-deno-loader/errors"
	"github.com/lucacasonato/esbuild-deno-loader/hostfs"
	"github.com/lucacasonato/esbuild-deno-loader/resource"
)

// Operation names.
const (
	OpLockfileNew            = "lockfile.new"
	OpLockfilePackageVersion = "lockfile.package_version"
	OpWorkspaceDiscover      = "workspace.discover"
	OpWorkspaceLockPath      = "workspace.lock_path"
	OpWorkspaceNodeModules   = "workspace.node_modules_dir"
	OpWorkspaceResolver      = "workspace.resolver"
	OpResolverResolve        = "resolver.resolve"
	OpFree                   = "free"
)

// Exports dispatches operations against one host capability and one handle
// table.
type Exports struct {
	host  hostfs.Host
	table *resource.Table
	ops   map[string]func(json.RawMessage) (any, error)
}

// New creates an Exports whose workspaces read through host.
func New(host hostfs.Host) *Exports {
	x := &Exports{
		host:  host,
		table: resource.NewTable(),
	}
	x.ops = map[string]func(json.RawMessage) (any, error){
		OpLockfileNew:            x.lockfileNew,
		OpLockfilePackageVersion: x.lockfilePackageVersion,
		OpWorkspaceDiscover:      x.workspaceDiscover,
		OpWorkspaceLockPath:      x.workspaceLockPath,
		OpWorkspaceNodeModules:   x.workspaceNodeModulesDir,
		OpWorkspaceResolver:      x.workspaceResolver,
		OpResolverResolve:        x.resolverResolve,
		OpFree:                   x.free,
	}
	x.table.Subscribe(resource.ObserverFunc(func(e resource.Event) {
		switch e.Type {
		case resource.EventCreated:
			adapter.Logger().Debug("handle created", zap.Uint32("handle", uint32(e.Handle)), zap.Stringer("kind", e.Kind))
		case resource.EventDropped:
			adapter.Logger().Debug("handle freed", zap.Uint32("handle", uint32(e.Handle)), zap.Stringer("kind", e.Kind))
		}
	}))
	return x
}

// Call runs op with JSON args and returns the JSON result.
func (x *Exports) Call(op string, args json.RawMessage) (json.RawMessage, error) {
	fn, ok := x.ops[op]
	if !ok {
		return nil, errors.New(errors.PhaseRuntime, errors.KindInvalidInput).
			Subject(op).
			Detail("unknown operation").
			Build()
	}
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}
	v, err := fn(args)
	if err != nil {
		return nil, err
	}
	return json.Marshal(v)
}

// Request is the framed form of a call.
type Request struct {
	Op   string          `json:"op"`
	Args json.RawMessage `json:"args,omitempty"`
}

// Dispatch runs a framed request and returns the result envelope,
// {"ok": result} or {"err": {"message": ...}}. It never fails.
func (x *Exports) Dispatch(request []byte) []byte {
	var req Request
	if err := json.Unmarshal(request, &req); err != nil {
		return hostfs.EncodeResult(nil, &hostfs.Error{Message: "malformed request: " + err.Error()})
	}
	out, err := x.Call(req.Op, req.Args)
	if err != nil {
		return hostfs.EncodeResult(nil, &hostfs.Error{Message: adapter.Message(err)})
	}
	return hostfs.EncodeResult(out, nil)
}

// Len returns the number of live handles.
func (x *Exports) Len() int { return x.table.Len() }

// Close frees every live handle.
func (x *Exports) Close() error { return x.table.Close() }

func decode(args json.RawMessage, out any) error {
	if err := json.Unmarshal(args, out); err != nil {
		return errors.New(errors.PhaseRuntime, errors.KindInvalidInput).
			Detail("invalid arguments: %v", err).
			Build()
	}
	return nil
}

func (x *Exports) insert(kind resource.Kind, v any) (any, error) {
	h, err := x.table.Insert(kind, v)
	if err != nil {
		return nil, errors.New(errors.PhaseRuntime, errors.KindOther).Cause(err).Build()
	}
	return handleResult{Handle: h}, nil
}

func lookup[T any](x *Exports, h resource.Handle, kind resource.Kind) (T, error) {
	var zero T
	v, ok := x.table.GetTyped(h, kind)
	if !ok {
		return zero, errors.New(errors.PhaseRuntime, errors.KindInvalidInput).
			Subject(fmt.Sprint(uint32(h))).
			Detail("not a live %s handle", kind).
			Build()
	}
	return v.(T), nil
}

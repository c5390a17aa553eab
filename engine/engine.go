package engine

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"

	"github.com/lucacasonato/esbuild-deno-loader/errors"
	"github.com/lucacasonato/esbuild-deno-loader/hostfs"
)

// DefaultHostModule is the import module name of the capability functions.
const DefaultHostModule = "deno_fs"

// Config holds configuration for engine creation
type Config struct {
	// Stdout and Stderr receive guest WASI output. Nil discards it.
	Stdout io.Writer
	Stderr io.Writer

	// HostModule overrides the capability import module name.
	HostModule string

	// MemoryLimitPages sets the maximum memory per guest in pages (64KB each).
	// 0 means default (65536 pages = 4GB).
	// 256 = 16MB, 1024 = 64MB, 4096 = 256MB
	MemoryLimitPages uint32
}

// Engine owns a wazero runtime shared by every guest it loads.
type Engine struct {
	runtime  wazero.Runtime
	cfg      Config
	bindings sync.Map // guest module name -> *binding
	nextID   atomic.Uint64
}

// New creates an engine with WASI preview1 and the capability host module
// instantiated. A nil cfg uses defaults.
func New(ctx context.Context, cfg *Config) (*Engine, error) {
	e := &Engine{}
	if cfg != nil {
		e.cfg = *cfg
	}
	if e.cfg.HostModule == "" {
		e.cfg.HostModule = DefaultHostModule
	}

	runtimeCfg := wazero.NewRuntimeConfig()
	if e.cfg.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(e.cfg.MemoryLimitPages)
	}
	e.runtime = wazero.NewRuntimeWithConfig(ctx, runtimeCfg)

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, e.runtime); err != nil {
		e.runtime.Close(ctx)
		return nil, errors.Wrap(errors.PhaseLoad, errors.KindInstantiation, err, "instantiate WASI")
	}
	if err := e.instantiateHostModule(ctx); err != nil {
		e.runtime.Close(ctx)
		return nil, errors.Registration(errors.PhaseLoad, e.cfg.HostModule, "*", err)
	}
	return e, nil
}

// Load compiles and instantiates a guest whose capability calls are answered
// by host.
func (e *Engine) Load(ctx context.Context, wasm []byte, host hostfs.Host) (*Guest, error) {
	compiled, err := e.runtime.CompileModule(ctx, wasm)
	if err != nil {
		return nil, errors.Load("compile guest", err)
	}

	name := fmt.Sprintf("guest-%d", e.nextID.Add(1))
	b := &binding{host: host}
	e.bindings.Store(name, b)

	modConfig := wazero.NewModuleConfig().
		WithName(name).
		WithStartFunctions()
	if e.cfg.Stdout != nil {
		modConfig = modConfig.WithStdout(e.cfg.Stdout)
	}
	if e.cfg.Stderr != nil {
		modConfig = modConfig.WithStderr(e.cfg.Stderr)
	}

	mod, err := e.runtime.InstantiateModule(ctx, compiled, modConfig)
	if err != nil {
		e.bindings.Delete(name)
		compiled.Close(ctx)
		return nil, errors.Instantiation(err)
	}

	g, err := newGuest(ctx, e, name, mod, compiled)
	if err != nil {
		mod.Close(ctx)
		e.bindings.Delete(name)
		compiled.Close(ctx)
		return nil, err
	}
	Logger().Debug("guest loaded", zap.String("name", name), zap.Int("size", len(wasm)))
	return g, nil
}

// Close releases the runtime and every guest loaded from it.
func (e *Engine) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}

func (e *Engine) bindingFor(mod api.Module) *binding {
	v, ok := e.bindings.Load(mod.Name())
	if !ok {
		panic(fmt.Sprintf("engine: capability call from unknown module %q", mod.Name()))
	}
	return v.(*binding)
}

// initialize runs the reactor initializer of a wasip1 guest, if it has one.
func initialize(ctx context.Context, mod api.Module) error {
	fn := mod.ExportedFunction("_initialize")
	if fn == nil {
		return nil
	}
	if _, err := fn.Call(ctx); err != nil {
		return errors.Wrap(errors.PhaseLoad, errors.KindInstantiation, err, "_initialize")
	}
	return nil
}

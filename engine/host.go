package engine

import (
	"context"
	"sync"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/lucacasonato/esbuild-deno-loader/hostfs"
)

// binding pairs a guest with its capability host and parked result.
type binding struct {
	host   hostfs.Host
	parked []byte
	mu     sync.Mutex
}

func (b *binding) park(result []byte) uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.parked = result
	return uint32(len(result))
}

func (b *binding) take() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.parked
	b.parked = nil
	return out
}

var (
	pathParams  = []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}
	lenResults  = []api.ValueType{api.ValueTypeI32}
	takeParams  = []api.ValueType{api.ValueTypeI32}
	noneResults = []api.ValueType{}
)

func (e *Engine) instantiateHostModule(ctx context.Context) error {
	builder := e.runtime.NewHostModuleBuilder(e.cfg.HostModule)

	builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(e.statSync), pathParams, lenResults).
		WithParameterNames("path_ptr", "path_len").
		Export("stat_sync")
	builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(e.readToStringLossy), pathParams, lenResults).
		WithParameterNames("path_ptr", "path_len").
		Export("read_to_string_lossy")
	builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(e.readDir), pathParams, lenResults).
		WithParameterNames("path_ptr", "path_len").
		Export("read_dir")
	builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(e.takeResult), takeParams, noneResults).
		WithParameterNames("out_ptr").
		Export("take_result")

	_, err := builder.Instantiate(ctx)
	return err
}

func (e *Engine) statSync(_ context.Context, mod api.Module, stack []uint64) {
	b := e.bindingFor(mod)
	path := readString(mod, stack[0], stack[1])
	meta, err := b.host.StatSync(path)
	logHostError("stat_sync", path, err)
	stack[0] = uint64(b.park(hostfs.EncodeResult(meta, err)))
}

func (e *Engine) readToStringLossy(_ context.Context, mod api.Module, stack []uint64) {
	b := e.bindingFor(mod)
	path := readString(mod, stack[0], stack[1])
	text, err := b.host.ReadToStringLossy(path)
	logHostError("read_to_string_lossy", path, err)
	stack[0] = uint64(b.park(hostfs.EncodeResult(text, err)))
}

func (e *Engine) readDir(_ context.Context, mod api.Module, stack []uint64) {
	b := e.bindingFor(mod)
	path := readString(mod, stack[0], stack[1])
	entries, err := b.host.ReadDir(path)
	logHostError("read_dir", path, err)
	if err == nil && entries == nil {
		entries = []hostfs.DirEntry{}
	}
	stack[0] = uint64(b.park(hostfs.EncodeResult(entries, err)))
}

func (e *Engine) takeResult(_ context.Context, mod api.Module, stack []uint64) {
	b := e.bindingFor(mod)
	writeBytes(mod, stack[0], b.take())
}

func logHostError(fn, path string, err error) {
	if err == nil {
		return
	}
	we := hostfs.ToWire(err)
	debugf("%s(%s): %s", fn, path, we.Message)
	Logger().Debug("capability call failed",
		zap.String("func", fn),
		zap.String("path", path),
		zap.String("code", we.Code))
}

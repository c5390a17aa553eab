package engine

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/lucacasonato/esbuild-deno-loader/errors"
	"github.com/lucacasonato/esbuild-deno-loader/hostfs"
)

// Guest is an instantiated guest module.
type Guest struct {
	engine   *Engine
	mod      api.Module
	compiled wazero.CompiledModule
	alloc    api.Function
	call     api.Function
	take     api.Function
	name     string
	mu       sync.Mutex
}

func newGuest(ctx context.Context, e *Engine, name string, mod api.Module, compiled wazero.CompiledModule) (*Guest, error) {
	if mod.Memory() == nil {
		return nil, errors.Load("guest does not export memory", nil)
	}
	g := &Guest{
		engine:   e,
		mod:      mod,
		compiled: compiled,
		name:     name,
	}
	for _, f := range []struct {
		name string
		dst  *api.Function
	}{
		{"guest_alloc", &g.alloc},
		{"guest_call", &g.call},
		{"guest_take", &g.take},
	} {
		fn := mod.ExportedFunction(f.name)
		if fn == nil {
			return nil, errors.Load("guest does not export "+f.name, nil)
		}
		*f.dst = fn
	}
	if err := initialize(ctx, mod); err != nil {
		return nil, err
	}
	return g, nil
}

// Name returns the guest's module name within the engine.
func (g *Guest) Name() string { return g.name }

// Call sends a raw request to the guest and returns its raw response.
func (g *Guest) Call(ctx context.Context, request []byte) ([]byte, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	reqPtr, err := g.allocate(ctx, uint32(len(request)))
	if err != nil {
		return nil, err
	}
	if !g.mod.Memory().Write(reqPtr, request) {
		return nil, errors.New(errors.PhaseRuntime, errors.KindOther).
			Detail("guest_alloc returned out-of-bounds pointer %#x", reqPtr).
			Build()
	}

	res, err := g.call.Call(ctx, uint64(reqPtr), uint64(len(request)))
	if err != nil {
		return nil, errors.Wrap(errors.PhaseRuntime, errors.KindOther, err, "guest_call")
	}
	n := uint32(res[0])
	if n == 0 {
		return nil, errors.New(errors.PhaseRuntime, errors.KindInvalidData).
			Detail("guest_call returned an empty response").
			Build()
	}

	outPtr, err := g.allocate(ctx, n)
	if err != nil {
		return nil, err
	}
	if _, err := g.take.Call(ctx, uint64(outPtr)); err != nil {
		return nil, errors.Wrap(errors.PhaseRuntime, errors.KindOther, err, "guest_take")
	}
	data, ok := g.mod.Memory().Read(outPtr, n)
	if !ok {
		return nil, errors.New(errors.PhaseRuntime, errors.KindOther).
			Detail("guest response at %#x out of bounds", outPtr).
			Build()
	}
	out := make([]byte, n)
	copy(out, data)
	return out, nil
}

func (g *Guest) allocate(ctx context.Context, size uint32) (uint32, error) {
	res, err := g.alloc.Call(ctx, uint64(size))
	if err != nil {
		return 0, errors.Wrap(errors.PhaseRuntime, errors.KindOther, err, "guest_alloc")
	}
	return uint32(res[0]), nil
}

// Invoke runs one operation on the guest and decodes its result envelope.
// A failed operation returns the guest's *hostfs.Error.
func (g *Guest) Invoke(ctx context.Context, op string, args any) (json.RawMessage, error) {
	rawArgs, err := json.Marshal(args)
	if err != nil {
		return nil, errors.New(errors.PhaseRuntime, errors.KindInvalidInput).
			Subject(op).
			Cause(err).
			Build()
	}
	request, err := json.Marshal(struct {
		Op   string          `json:"op"`
		Args json.RawMessage `json:"args"`
	}{op, rawArgs})
	if err != nil {
		return nil, err
	}

	response, err := g.Call(ctx, request)
	if err != nil {
		return nil, err
	}
	var out json.RawMessage
	if err := decodeResponse(response, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func decodeResponse(data []byte, out *json.RawMessage) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.New(errors.PhaseRuntime, errors.KindInvalidData).
				Detail("malformed guest response: %v", r).
				Build()
		}
	}()
	return hostfs.DecodeResult(data, out)
}

// Close closes the guest module and forgets its capability binding.
func (g *Guest) Close(ctx context.Context) error {
	err := g.mod.Close(ctx)
	g.engine.bindings.Delete(g.name)
	if cerr := g.compiled.Close(ctx); err == nil {
		err = cerr
	}
	return err
}

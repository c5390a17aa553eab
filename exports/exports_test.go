package exports

import (
	"encoding/json"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/lucacasonato/esbuild-deno-loader/adapter"
	lerrors "github.com/lucacasonato/esbuild-deno-loader/errors"
	"github.com/lucacasonato/esbuild-deno-loader/hostfs"
	"github.com/lucacasonato/esbuild-deno-loader/resource"
)

var files = map[string]string{
	"/proj/deno.json": `{
		"workspace": ["./b"],
		"imports": {"@std/path": "jsr:@std/path@^1.0.0"}
	}`,
	"/proj/package.json":   `{"dependencies": {"left-pad": "1.3.0", "b": "workspace:*"}}`,
	"/proj/b/package.json": `{"name": "b", "version": "0.1.0"}`,
	"/proj/deno.lock":      `{"version": "4", "specifiers": {"npm:left-pad@1.3.0": "1.3.0"}}`,
}

func newExports(t *testing.T) *Exports {
	t.Helper()
	m := fstest.MapFS{}
	for name, content := range files {
		m[strings.TrimPrefix(name, "/")] = &fstest.MapFile{Data: []byte(content)}
	}
	x := New(hostfs.IOFS{FS: m})
	t.Cleanup(func() { x.Close() })
	return x
}

func call(t *testing.T, x *Exports, op string, args any) map[string]any {
	t.Helper()
	raw, err := json.Marshal(args)
	if err != nil {
		t.Fatal(err)
	}
	out, err := x.Call(op, raw)
	if err != nil {
		t.Fatalf("%s: %v", op, err)
	}
	var res map[string]any
	if err := json.Unmarshal(out, &res); err != nil {
		t.Fatalf("%s: decode %s: %v", op, out, err)
	}
	return res
}

func handle(t *testing.T, res map[string]any) resource.Handle {
	t.Helper()
	h, ok := res["handle"].(float64)
	if !ok || h == 0 {
		t.Fatalf("no handle in %v", res)
	}
	return resource.Handle(h)
}

func TestCall_Workflow(t *testing.T) {
	x := newExports(t)

	ws := handle(t, call(t, x, OpWorkspaceDiscover, map[string]any{"entrypoints": []string{"/proj"}}))
	if got := call(t, x, OpWorkspaceLockPath, map[string]any{"handle": ws}); got["path"] != "/proj/deno.lock" {
		t.Errorf("lock_path = %v", got)
	}
	if got := call(t, x, OpWorkspaceNodeModules, map[string]any{"handle": ws}); got["mode"] != "manual" {
		t.Errorf("node_modules_dir = %v", got)
	}

	r := handle(t, call(t, x, OpWorkspaceResolver, map[string]any{"handle": ws}))
	tests := []struct {
		spec string
		want string
	}{
		{"@std/path", "jsr:@std/path@^1.0.0"},
		{"left-pad", "npm:left-pad@1.3.0"},
		{"left-pad/index", "npm:left-pad@1.3.0/index"},
		{"./mod.ts", "file:///proj/mod.ts"},
	}
	for _, tt := range tests {
		got := call(t, x, OpResolverResolve, map[string]any{
			"handle":    r,
			"specifier": tt.spec,
			"referrer":  "file:///proj/main.ts",
		})
		if got["resolved"] != tt.want {
			t.Errorf("resolve(%q) = %v, want %s", tt.spec, got["resolved"], tt.want)
		}
	}

	l := handle(t, call(t, x, OpLockfileNew, map[string]any{"file_path": "/proj/deno.lock", "content": files["/proj/deno.lock"]}))
	if got := call(t, x, OpLockfilePackageVersion, map[string]any{"handle": l, "specifier": "npm:left-pad@1.3.0"}); got["version"] != "1.3.0" {
		t.Errorf("package_version = %v", got)
	}
	got := call(t, x, OpLockfilePackageVersion, map[string]any{"handle": l, "specifier": "npm:chalk@5"})
	if v, present := got["version"]; !present || v != nil {
		t.Errorf("absent package_version = %v", got)
	}

	if x.Len() != 3 {
		t.Errorf("Len() = %d, want 3", x.Len())
	}
	for _, h := range []resource.Handle{r, ws, l} {
		call(t, x, OpFree, map[string]any{"handle": h})
	}
	if x.Len() != 0 {
		t.Errorf("Len() = %d after free", x.Len())
	}
}

func TestCall_ResolverOutlivesFreedWorkspace(t *testing.T) {
	x := newExports(t)
	ws := handle(t, call(t, x, OpWorkspaceDiscover, map[string]any{"entrypoints": []string{"/proj"}}))
	r := handle(t, call(t, x, OpWorkspaceResolver, map[string]any{"handle": ws}))
	call(t, x, OpFree, map[string]any{"handle": ws})

	got := call(t, x, OpResolverResolve, map[string]any{"handle": r, "specifier": "./a.ts", "referrer": "file:///proj/main.ts"})
	if got["resolved"] != "file:///proj/a.ts" {
		t.Errorf("resolve = %v", got)
	}
}

func TestCall_HandleChecks(t *testing.T) {
	x := newExports(t)
	ws := handle(t, call(t, x, OpWorkspaceDiscover, map[string]any{"entrypoints": []string{"/proj"}}))
	r := handle(t, call(t, x, OpWorkspaceResolver, map[string]any{"handle": ws}))

	tests := []struct {
		name string
		op   string
		args map[string]any
	}{
		{"resolver as lockfile", OpLockfilePackageVersion, map[string]any{"handle": r, "specifier": "npm:a@1"}},
		{"workspace as resolver", OpResolverResolve, map[string]any{"handle": ws, "specifier": "./a.ts", "referrer": "file:///a.ts"}},
		{"zero handle", OpWorkspaceLockPath, map[string]any{"handle": 0}},
		{"unknown handle", OpWorkspaceNodeModules, map[string]any{"handle": 999}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, _ := json.Marshal(tt.args)
			_, err := x.Call(tt.op, raw)
			if lerrors.KindOf(err) != lerrors.KindInvalidInput {
				t.Errorf("err = %v, want invalid input", err)
			}
		})
	}

	call(t, x, OpFree, map[string]any{"handle": r})
	raw, _ := json.Marshal(map[string]any{"handle": r, "specifier": "./a.ts", "referrer": "file:///a.ts"})
	if _, err := x.Call(OpResolverResolve, raw); lerrors.KindOf(err) != lerrors.KindInvalidInput {
		t.Errorf("stale handle err = %v", err)
	}
	raw, _ = json.Marshal(map[string]any{"handle": r})
	if _, err := x.Call(OpFree, raw); err == nil {
		t.Error("double free should fail")
	}
}

func TestCall_Errors(t *testing.T) {
	x := newExports(t)

	if _, err := x.Call("nope", nil); lerrors.KindOf(err) != lerrors.KindInvalidInput {
		t.Errorf("unknown op err = %v", err)
	}
	if _, err := x.Call(OpLockfileNew, json.RawMessage(`[1]`)); lerrors.KindOf(err) != lerrors.KindInvalidInput {
		t.Errorf("bad args err = %v", err)
	}
	raw, _ := json.Marshal(map[string]any{"entrypoints": []string{"/a/deno.json", "/b/deno.json"}, "is_config_file": true})
	if _, err := x.Call(OpWorkspaceDiscover, raw); lerrors.KindOf(err) != lerrors.KindInvalidInput {
		t.Errorf("config precondition err = %v", err)
	}
	raw, _ = json.Marshal(map[string]any{"file_path": "/x", "content": "{"})
	if _, err := x.Call(OpLockfileNew, raw); err == nil {
		t.Error("invalid lockfile accepted")
	}
}

func TestCall_SpecifiedImportMap(t *testing.T) {
	x := newExports(t)
	ws := handle(t, call(t, x, OpWorkspaceDiscover, map[string]any{"entrypoints": []string{"/proj"}}))
	r := handle(t, call(t, x, OpWorkspaceResolver, map[string]any{
		"handle":           ws,
		"import_map_url":   "file:///proj/import_map.json",
		"import_map_value": map[string]any{"imports": map[string]any{"x": "./vendor/x.ts"}},
	}))
	got := call(t, x, OpResolverResolve, map[string]any{"handle": r, "specifier": "x", "referrer": "file:///proj/main.ts"})
	if got["resolved"] != "file:///proj/vendor/x.ts" {
		t.Errorf("resolve = %v", got)
	}

	for _, args := range []map[string]any{
		{"handle": ws, "import_map_url": "file:///proj/import_map.json"},
		{"handle": ws, "import_map_url": "file:///proj/import_map.json", "import_map_value": nil},
		{"handle": ws, "import_map_url": ""},
	} {
		raw, _ := json.Marshal(args)
		if _, err := x.Call(OpWorkspaceResolver, raw); lerrors.KindOf(err) != lerrors.KindInvalidInput {
			t.Errorf("Call(%v) err = %v, want invalid input", args, err)
		}
	}
}

func TestDispatch(t *testing.T) {
	x := newExports(t)

	out := x.Dispatch([]byte(`{"op": "workspace.discover", "args": {"entrypoints": ["/proj"]}}`))
	var disc handleResult
	if err := hostfs.DecodeResult(out, &disc); err != nil || disc.Handle == 0 {
		t.Fatalf("discover = %s, %v", out, err)
	}
	out = x.Dispatch([]byte(`{"op": "workspace.resolver", "args": {"handle": ` + jsonNumber(disc.Handle) + `}}`))
	var res handleResult
	if err := hostfs.DecodeResult(out, &res); err != nil {
		t.Fatalf("resolver = %s, %v", out, err)
	}

	out = x.Dispatch([]byte(`{"op": "resolver.resolve", "args": {"handle": ` + jsonNumber(res.Handle) + `, "specifier": "b", "referrer": "file:///proj/main.ts"}}`))
	var ignored any
	err := hostfs.DecodeResult(out, &ignored)
	if err == nil || err.Error() != adapter.ErrWorkspacePackageJSONDep.Detail {
		t.Errorf("workspace dep = %v, want %q", err, adapter.ErrWorkspacePackageJSONDep.Detail)
	}

	out = x.Dispatch([]byte(`not json`))
	if err := hostfs.DecodeResult(out, &ignored); err == nil || !strings.HasPrefix(err.Error(), "malformed request") {
		t.Errorf("malformed request = %v", err)
	}
}

func jsonNumber(h resource.Handle) string {
	b, _ := json.Marshal(h)
	return string(b)
}

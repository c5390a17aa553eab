package adapter

import (
	"encoding/json"
	"net/url"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/lucacasonato/esbuild-deno-loader/depreq"
	lerrors "github.com/lucacasonato/esbuild-deno-loader/errors"
	"github.com/lucacasonato/esbuild-deno-loader/hostfs"
	"github.com/lucacasonato/esbuild-deno-loader/resolver"
	"github.com/lucacasonato/esbuild-deno-loader/workspace"
)

func memHost(files map[string]string) hostfs.Host {
	m := fstest.MapFS{}
	for name, content := range files {
		m[strings.TrimPrefix(name, "/")] = &fstest.MapFile{Data: []byte(content)}
	}
	return hostfs.IOFS{FS: m}
}

func mustURL(t *testing.T, s string) *url.URL {
	t.Helper()
	u, err := url.Parse(s)
	if err != nil {
		t.Fatal(err)
	}
	return u
}

const lock = `{
  "version": "4",
  "specifiers": {
    "jsr:@std/path@^1.0.0": "1.0.8",
    "npm:left-pad@1.3.0": "1.3.0"
  }
}`

func TestLockfile(t *testing.T) {
	l, err := NewLockfile("/proj/deno.lock", lock)
	if err != nil {
		t.Fatalf("NewLockfile: %v", err)
	}
	if l.FilePath() != "/proj/deno.lock" || l.Content() != lock {
		t.Errorf("identity = %q", l.FilePath())
	}

	tests := []struct {
		name    string
		spec    string
		want    string
		found   bool
		wantErr bool
	}{
		{"jsr entry", "jsr:@std/path@^1.0.0", "1.0.8", true, false},
		{"npm entry", "npm:left-pad@1.3.0", "1.3.0", true, false},
		{"valid but absent", "npm:chalk@5", "", false, false},
		{"empty specifier", "", "", false, true},
		{"no package name", "npm:", "", false, true},
		{"unknown scheme", "left-pad@1.3.0", "", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found, err := l.PackageVersion(tt.spec)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want || found != tt.found {
				t.Errorf("PackageVersion(%q) = %q, %v", tt.spec, got, found)
			}
		})
	}
}

func TestNewLockfile_Invalid(t *testing.T) {
	for _, content := range []string{`{`, `{"version": "99"}`, `[]`} {
		if _, err := NewLockfile("/proj/deno.lock", content); err == nil {
			t.Errorf("NewLockfile(%q) succeeded", content)
		}
	}
	l, err := NewLockfile("/proj/deno.lock", "")
	if err != nil {
		t.Fatalf("empty content: %v", err)
	}
	if _, found, err := l.PackageVersion("npm:left-pad@1.3.0"); found || err != nil {
		t.Errorf("empty lockfile lookup = %v, %v", found, err)
	}
}

func TestDiscover_ConfigFilePrecondition(t *testing.T) {
	host := hostfs.Funcs{
		Stat: func(string) (hostfs.Metadata, error) {
			t.Fatal("host must not be called")
			return hostfs.Metadata{}, nil
		},
		ReadText: func(string) (string, error) {
			t.Fatal("host must not be called")
			return "", nil
		},
	}
	for _, eps := range [][]string{nil, {"/a/deno.json", "/b/deno.json"}} {
		_, err := Discover(host, eps, true)
		if lerrors.KindOf(err) != lerrors.KindInvalidInput {
			t.Errorf("Discover(%v) err = %v, want invalid input", eps, err)
		}
	}
}

func TestDiscover_BackslashNormalization(t *testing.T) {
	host := memHost(map[string]string{
		"C:/proj/deno.json":   `{"lock": "./my.lock"}`,
		"C:/proj/src/main.ts": ``,
	})
	back, err := Discover(host, []string{`C:\proj\src`}, false)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	fwd, err := Discover(host, []string{"C:/proj/src"}, false)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if back.Root() != fwd.Root() || back.Root() != "C:/proj" {
		t.Errorf("roots = %q, %q", back.Root(), fwd.Root())
	}
	p, ok, err := back.LockPath()
	if err != nil || !ok || p != "C:/proj/my.lock" {
		t.Errorf("LockPath = %q, %v, %v", p, ok, err)
	}
}

func TestDiscover_EngineFailureFlattened(t *testing.T) {
	host := hostfs.Funcs{
		Stat: func(string) (hostfs.Metadata, error) {
			return hostfs.Metadata{}, &hostfs.Error{Message: "permission denied", Code: "EACCES"}
		},
		ReadText: func(string) (string, error) {
			return "", &hostfs.Error{Message: "permission denied", Code: "EACCES"}
		},
		List: func(string) ([]hostfs.DirEntry, error) {
			return nil, &hostfs.Error{Message: "permission denied", Code: "EACCES"}
		},
	}
	_, err := Discover(host, []string{"/proj"}, false)
	if lerrors.KindOf(err) != lerrors.KindEngine {
		t.Fatalf("err = %v, want engine kind", err)
	}
	if !strings.Contains(Message(err), "permission denied") {
		t.Errorf("Message = %q", Message(err))
	}
}

func TestNodeModulesDir(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
		want  string
	}{
		{"package.json fallback", map[string]string{"/proj/package.json": `{"name": "p"}`}, NodeModulesManual},
		{"no manifest", map[string]string{"/proj/deno.json": `{}`}, NodeModulesNone},
		{"nothing at all", map[string]string{"/proj/main.ts": ``}, NodeModulesNone},
		{"explicit wins", map[string]string{
			"/proj/deno.json":    `{"nodeModulesDir": "auto"}`,
			"/proj/package.json": `{}`,
		}, NodeModulesAuto},
		{"legacy bool", map[string]string{"/proj/deno.json": `{"nodeModulesDir": false}`}, NodeModulesNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ws, err := Discover(memHost(tt.files), []string{"/proj"}, false)
			if err != nil {
				t.Fatalf("Discover: %v", err)
			}
			if got := ws.NodeModulesDir(); got != tt.want {
				t.Errorf("NodeModulesDir() = %q, want %q", got, tt.want)
			}
		})
	}
}

var projectFiles = map[string]string{
	"/proj/deno.json": `{
		"workspace": ["./a", "./b"],
		"imports": {"@std/path": "jsr:@std/path@^1.0.0"}
	}`,
	"/proj/package.json": `{
		"dependencies": {"left-pad": "1.3.0", "b": "workspace:*", "local": "file:../local"}
	}`,
	"/proj/a/deno.json":    `{"name": "@scope/a", "version": "1.0.0", "exports": "./mod.ts"}`,
	"/proj/b/package.json": `{"name": "b", "version": "0.1.0"}`,
}

func newResolver(t *testing.T) *Resolver {
	t.Helper()
	host := memHost(projectFiles)
	ws, err := Discover(host, []string{"/proj"}, false)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	r, err := ws.Resolver(host, "", nil)
	if err != nil {
		t.Fatalf("Resolver: %v", err)
	}
	return r
}

func TestResolve(t *testing.T) {
	r := newResolver(t)
	const main = "file:///proj/src/main.ts"

	tests := []struct {
		spec string
		want string
	}{
		{"./util.ts", "file:///proj/src/util.ts"},
		{"@std/path", "jsr:@std/path@^1.0.0"},
		{"@std/path/join", "jsr:/@std/path@^1.0.0/join"},
		{"@scope/a", "file:///proj/a/mod.ts"},
		{"left-pad", "npm:left-pad@1.3.0"},
		{"left-pad/index", "npm:left-pad@1.3.0/index"},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			got, err := r.Resolve(tt.spec, main)
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.spec, got, tt.want)
			}
		})
	}
}

func TestResolve_Rejections(t *testing.T) {
	r := newResolver(t)
	const main = "file:///proj/src/main.ts"

	if _, err := r.Resolve("b", main); err != ErrWorkspacePackageJSONDep {
		t.Errorf("workspace dep err = %v", err)
	}
	_, err := r.Resolve("local", main)
	if err == nil || err == ErrWorkspacePackageJSONDep || lerrors.KindOf(err) != lerrors.KindEngine {
		t.Errorf("dep error err = %v", err)
	}
	_, err = r.Resolve("nope", main)
	if err == nil || !strings.Contains(Message(err), "not prefixed with / or ./ or ../") {
		t.Errorf("unresolvable err = %v", err)
	}
	for _, referrer := range []string{"", "src/main.ts", "::"} {
		_, err := r.Resolve("./x.ts", referrer)
		if lerrors.KindOf(err) != lerrors.KindInvalidInput {
			t.Errorf("referrer %q err = %v", referrer, err)
		}
	}
}

func TestResolve_SpecifiedImportMap(t *testing.T) {
	host := memHost(projectFiles)
	ws, err := Discover(host, []string{"/proj"}, false)
	if err != nil {
		t.Fatal(err)
	}
	values := []any{
		`{"imports": {"x": "./x.ts"}}`,
		[]byte(`{"imports": {"x": "./x.ts"}}`),
		json.RawMessage(`{"imports": {"x": "./x.ts"}}`),
		map[string]any{"imports": map[string]any{"x": "./x.ts"}},
	}
	for _, v := range values {
		r, err := ws.Resolver(host, "file:///maps/import_map.json", v)
		if err != nil {
			t.Fatalf("Resolver(%T): %v", v, err)
		}
		got, err := r.Resolve("x", "file:///proj/main.ts")
		if err != nil || got != "file:///maps/x.ts" {
			t.Errorf("Resolve(x) with %T = %q, %v", v, got, err)
		}
	}

	for _, v := range []any{nil, `{`, []byte(`nope`)} {
		if _, err := ws.Resolver(host, "file:///maps/import_map.json", v); lerrors.KindOf(err) != lerrors.KindInvalidInput {
			t.Errorf("Resolver(%v) err = %v, want invalid input", v, err)
		}
	}
	if _, err := ws.Resolver(host, "maps/import_map.json", `{}`); lerrors.KindOf(err) != lerrors.KindInvalidInput {
		t.Errorf("relative import map URL err = %v", err)
	}
}

func TestResolver_MalformedMemberManifest(t *testing.T) {
	host := memHost(map[string]string{
		"/proj/deno.json":      `{"workspace": ["./m"]}`,
		"/proj/m/package.json": `{"name": "m", "dependencies": {"x": 5}}`,
	})
	ws, err := Discover(host, []string{"/proj"}, false)
	if err != nil {
		t.Fatal(err)
	}
	_, err = ws.Resolver(host, "", nil)
	if lerrors.KindOf(err) != lerrors.KindEngine || !strings.Contains(Message(err), "/proj/m/package.json") {
		t.Errorf("err = %v", err)
	}
}

func TestProject(t *testing.T) {
	member := &workspace.Member{Dir: "/proj/b"}
	leftPad := resolver.DepReq{Req: depreq.PackageReq{Name: "left-pad", VersionReq: "1.3.0"}}

	tests := []struct {
		name    string
		res     resolver.MappedResolution
		want    string
		wantErr error
	}{
		{"normal", resolver.Normal{Specifier: mustURL(t, "file:///proj/a.ts")}, "file:///proj/a.ts", nil},
		{"import map", resolver.ImportMap{Specifier: mustURL(t, "jsr:@std/path@^1.0.0")}, "jsr:@std/path@^1.0.0", nil},
		{"workspace jsr", resolver.WorkspaceJsrPackage{Specifier: mustURL(t, "file:///proj/a/mod.ts")}, "file:///proj/a/mod.ts", nil},
		{"registry dep", resolver.PackageJSON{Dep: leftPad, Alias: "left-pad"}, "npm:left-pad@1.3.0", nil},
		{"registry dep with sub path", resolver.PackageJSON{Dep: leftPad, Alias: "left-pad", SubPath: "index"}, "npm:left-pad@1.3.0/index", nil},
		{"workspace npm", resolver.WorkspaceNpmPackage{Member: member, PkgName: "b"}, "", ErrWorkspaceNpmPackage},
		{"workspace npm with sub path", resolver.WorkspaceNpmPackage{Member: member, PkgName: "b", SubPath: "x.js"}, "", ErrWorkspaceNpmPackage},
		{"workspace npm without member", resolver.WorkspaceNpmPackage{}, "", ErrWorkspaceNpmPackage},
		{"workspace dep", resolver.PackageJSON{Dep: resolver.DepWorkspace{VersionReq: "*", Member: member}}, "", ErrWorkspacePackageJSONDep},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Project(tt.res)
			if err != tt.wantErr {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Project() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestProject_DepErr(t *testing.T) {
	depErr := lerrors.New(lerrors.PhaseParse, lerrors.KindInvalidInput).
		Detail("unsupported dependency value \"file:../x\"").
		Build()
	_, err := Project(resolver.PackageJSON{DepErr: depErr, Alias: "x"})
	if err == nil || err == ErrWorkspacePackageJSONDep {
		t.Fatalf("err = %v", err)
	}
	if Message(err) != depErr.Error() {
		t.Errorf("Message = %q, want %q", Message(err), depErr.Error())
	}
}

func TestMessage(t *testing.T) {
	if got := Message(ErrWorkspaceNpmPackage); got != "Resolving to a workspace npm package is not supported" {
		t.Errorf("Message = %q", got)
	}
	if got := Message(ErrWorkspacePackageJSONDep); got != "Resolving to a workspace package.json dependency is not supported" {
		t.Errorf("Message = %q", got)
	}
	invalid := lerrors.InvalidInput(lerrors.PhaseResolve, "bad referrer")
	if got := Message(invalid); got != invalid.Error() {
		t.Errorf("Message = %q", got)
	}
	if Message(nil) != "" {
		t.Error("Message(nil) should be empty")
	}
}

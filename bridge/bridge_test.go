package bridge

import (
	"errors"
	"testing"
	"testing/fstest"

	lerrors "github.com/lucacasonato/esbuild-deno-loader/errors"
	"github.com/lucacasonato/esbuild-deno-loader/hostfs"
)

func TestProject(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind lerrors.Kind
		code string
	}{
		{"not found code", &hostfs.Error{Message: "missing", Code: "ENOENT"}, lerrors.KindNotFound, "ENOENT"},
		{"other code", &hostfs.Error{Message: "denied", Code: "EACCES"}, lerrors.KindOther, "EACCES"},
		{"lowercase code is not canonical", &hostfs.Error{Message: "missing", Code: "enoent"}, lerrors.KindOther, "enoent"},
		{"no code", &hostfs.Error{Message: "boom"}, lerrors.KindOther, ""},
		{"plain error", errors.New("boom"), lerrors.KindOther, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Project("/p", tt.err)
			if got.Kind != tt.kind {
				t.Errorf("kind = %s, want %s", got.Kind, tt.kind)
			}
			if got.Code != tt.code {
				t.Errorf("code = %q, want %q", got.Code, tt.code)
			}
			if got.Phase != lerrors.PhaseHost || got.Subject != "/p" {
				t.Errorf("phase/subject = %s/%s", got.Phase, got.Subject)
			}
			if got.Cause != nil {
				t.Errorf("projection must not keep a cause, got %v", got.Cause)
			}
		})
	}

	if Project("/p", nil) != nil {
		t.Error("Project(nil) should be nil")
	}

	verbatim := Project("/p", &hostfs.Error{Message: "disk 100% full: %s %d", Code: "ENOSPC"})
	if verbatim.Detail != "disk 100% full: %s %d" {
		t.Errorf("detail = %q, want the host message verbatim", verbatim.Detail)
	}
}

func TestProjectPayload(t *testing.T) {
	got := ProjectPayload("/a", []byte(`{"message":"no such file","code":"ENOENT"}`))
	if !lerrors.IsNotFound(got) || got.Detail != "no such file" {
		t.Errorf("got %+v", got)
	}

	got = ProjectPayload("/a", []byte(`{"message":"odd"}`))
	if got.Kind != lerrors.KindOther || got.Code != "" {
		t.Errorf("got %+v", got)
	}

	for _, payload := range []string{`nope`, `{"code":"ENOENT"}`, `{"message":1}`} {
		t.Run(payload, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("expected panic for malformed payload")
				}
			}()
			ProjectPayload("/a", []byte(payload))
		})
	}
}

func TestJoin(t *testing.T) {
	tests := []struct {
		dir, name, want string
	}{
		{"/proj", "deno.json", "/proj/deno.json"},
		{"/proj/", "deno.json", "/proj/deno.json"},
		{"/", "etc", "/etc"},
		{"C:/proj", "src", "C:/proj/src"},
		{"", "a", "a"},
	}
	for _, tt := range tests {
		if got := Join(tt.dir, tt.name); got != tt.want {
			t.Errorf("Join(%q, %q) = %q, want %q", tt.dir, tt.name, got, tt.want)
		}
	}
}

func TestFS_ForwardsToHost(t *testing.T) {
	mapfs := fstest.MapFS{
		"proj/deno.json":   {Data: []byte(`{"imports":{}}`)},
		"proj/src/main.ts": {Data: []byte("export {};\n")},
	}
	fs := New(hostfs.IOFS{FS: mapfs})

	md, err := fs.Stat("/proj/deno.json")
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if !md.IsFile || md.IsDirectory {
		t.Errorf("metadata = %+v", md)
	}

	_, err = fs.Stat("/proj/missing.json")
	if !lerrors.IsNotFound(err) {
		t.Errorf("Stat missing: got %v, want not found", err)
	}

	text, err := fs.ReadText("/proj/deno.json")
	if err != nil || text != `{"imports":{}}` {
		t.Errorf("ReadText = %q, %v", text, err)
	}
}

// Every listed path must be accepted verbatim by Stat and ReadText.
func TestFS_ListDirRoundTrip(t *testing.T) {
	mapfs := fstest.MapFS{
		"proj/deno.json":     {Data: []byte(`{}`)},
		"proj/package.json":  {Data: []byte(`{}`)},
		"proj/src/mod.ts":    {Data: []byte("export {};\n")},
		"proj/src/nested/x":  {Data: []byte("x")},
		"other/unrelated.ts": {Data: []byte("")},
	}
	fs := New(hostfs.IOFS{FS: mapfs})

	var walk func(dir string)
	walk = func(dir string) {
		entries, err := fs.ListDir(dir)
		if err != nil {
			t.Fatalf("ListDir(%q): %v", dir, err)
		}
		for _, e := range entries {
			if e.Path != Join(dir, e.Name) {
				t.Errorf("entry path %q is not %q joined with %q", e.Path, dir, e.Name)
			}
			md, err := fs.Stat(e.Path)
			if err != nil {
				t.Fatalf("Stat(%q): %v", e.Path, err)
			}
			if md != e.Metadata {
				t.Errorf("Stat(%q) = %+v, listing said %+v", e.Path, md, e.Metadata)
			}
			if md.IsDirectory {
				walk(e.Path)
				continue
			}
			if _, err := fs.ReadText(e.Path); err != nil {
				t.Errorf("ReadText(%q): %v", e.Path, err)
			}
		}
	}
	walk("/proj")
	walk("/proj/")
}

func TestFS_HostErrorsAreProjected(t *testing.T) {
	calls := 0
	host := hostfs.Funcs{
		Stat: func(path string) (hostfs.Metadata, error) {
			calls++
			return hostfs.Metadata{}, &hostfs.Error{Message: "denied", Code: "EACCES"}
		},
	}
	fs := New(host)

	_, err := fs.Stat("/x")
	if lerrors.KindOf(err) != lerrors.KindOther {
		t.Errorf("kind = %s, want other", lerrors.KindOf(err))
	}
	if calls != 1 {
		t.Errorf("host called %d times, want exactly once", calls)
	}

	if _, err := fs.ListDir("/x"); lerrors.KindOf(err) != lerrors.KindOther {
		t.Errorf("ListDir without host function: kind = %s", lerrors.KindOf(err))
	}
}

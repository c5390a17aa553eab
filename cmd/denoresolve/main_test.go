package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv(logEnv, "")
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

var projectFiles = map[string]string{
	"deno.json":    `{"imports": {"@std/path": "jsr:@std/path@^1.0.0"}}`,
	"package.json": `{"dependencies": {"left-pad": "1.3.0"}}`,
	"deno.lock":    `{"version": "4", "specifiers": {"npm:left-pad@1.3.0": "1.3.0"}}`,
}

func TestResolveCmd_JSON(t *testing.T) {
	dir := writeFiles(t, projectFiles)
	out, err := runCmd(t, "resolve", "--cwd", dir, "--json", "@std/path", "left-pad/index", "./a.ts")
	if err != nil {
		t.Fatalf("resolve: %v\n%s", err, out)
	}
	var records []record
	if err := json.Unmarshal([]byte(out), &records); err != nil {
		t.Fatalf("decode %s: %v", out, err)
	}
	if len(records) != 3 {
		t.Fatalf("records = %+v", records)
	}

	if r := records[0]; r.Resolved != "jsr:@std/path@^1.0.0" || r.Namespace != "jsr" || r.Path != "@std/path@^1.0.0" {
		t.Errorf("@std/path = %+v", r)
	}
	if r := records[1]; r.Resolved != "npm:left-pad@1.3.0/index" || r.Namespace != "npm" {
		t.Errorf("left-pad/index = %+v", r)
	}
	slashDir := filepath.ToSlash(dir)
	if r := records[2]; r.Namespace != "file" || r.Path != slashDir+"/a.ts" || r.MediaType != "TypeScript" || r.Loader != "ts" {
		t.Errorf("./a.ts = %+v", r)
	}
}

func TestResolveCmd_Failures(t *testing.T) {
	dir := writeFiles(t, projectFiles)
	out, err := runCmd(t, "resolve", "--cwd", dir, "left-pad", "nope")
	if err == nil || !strings.Contains(err.Error(), "1 of 2") {
		t.Fatalf("err = %v", err)
	}
	if !strings.Contains(out, "left-pad -> npm:left-pad@1.3.0") || !strings.Contains(out, "nope: error:") {
		t.Errorf("output = %s", out)
	}

	if _, err := runCmd(t, "resolve", "--cwd", dir); err == nil {
		t.Error("resolve without specifiers should fail")
	}
}

func TestResolveCmd_Batch(t *testing.T) {
	dir := writeFiles(t, projectFiles)
	batch := filepath.Join(dir, "batch.yaml")
	content := "referrer: file:///elsewhere/main.ts\nspecifiers:\n  - left-pad\n  - specifier: ./b.ts\n    referrer: file:///other/x.ts\n  - ./c.ts\n"
	if err := os.WriteFile(batch, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	out, err := runCmd(t, "resolve", "--cwd", dir, "--json", "--batch", batch)
	if err != nil {
		t.Fatalf("resolve: %v\n%s", err, out)
	}
	var records []record
	if err := json.Unmarshal([]byte(out), &records); err != nil {
		t.Fatal(err)
	}
	want := []string{"npm:left-pad@1.3.0", "file:///other/b.ts", "file:///elsewhere/c.ts"}
	if len(records) != len(want) {
		t.Fatalf("records = %+v", records)
	}
	for i, w := range want {
		if records[i].Resolved != w {
			t.Errorf("record %d = %+v, want %s", i, records[i], w)
		}
	}
}

func TestLoadBatch(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []batchEntry
		wantErr bool
	}{
		{"strings", "specifiers: [a, b]", []batchEntry{{Specifier: "a"}, {Specifier: "b"}}, false},
		{"objects", "specifiers:\n  - {specifier: a, referrer: 'file:///r.ts'}", []batchEntry{{Specifier: "a", Referrer: "file:///r.ts"}}, false},
		{"unknown field", "specifiers: []\nextra: 1", nil, true},
		{"missing specifier", "specifiers:\n  - {referrer: 'file:///r.ts'}", nil, true},
		{"not yaml", "specifiers: [", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := loadBatch(strings.NewReader(tt.input))
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if len(b.Specifiers) != len(tt.want) {
				t.Fatalf("entries = %+v", b.Specifiers)
			}
			for i := range tt.want {
				if b.Specifiers[i] != tt.want[i] {
					t.Errorf("entry %d = %+v, want %+v", i, b.Specifiers[i], tt.want[i])
				}
			}
		})
	}
}

func TestLockCmd(t *testing.T) {
	dir := writeFiles(t, projectFiles)
	out, err := runCmd(t, "lock", "--cwd", dir, "npm:left-pad@1.3.0", "npm:chalk@5", "bogus")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	for _, want := range []string{"npm:left-pad@1.3.0: 1.3.0", "npm:chalk@5: not locked", "bogus: error:"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	out, err = runCmd(t, "lock", "--lock", filepath.Join(dir, "missing.lock"), "--json", "npm:left-pad@1.3.0")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	var records []lockRecord
	if err := json.Unmarshal([]byte(out), &records); err != nil || len(records) != 1 || records[0].Version != nil {
		t.Errorf("missing lockfile records = %s, %v", out, err)
	}
}

func TestInfoCmd(t *testing.T) {
	dir := writeFiles(t, projectFiles)
	out, err := runCmd(t, "info", "--cwd", dir, "--json")
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	var info workspaceInfo
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		t.Fatal(err)
	}
	slashDir := filepath.ToSlash(dir)
	if info.Root != slashDir || info.NodeModulesDir != "manual" {
		t.Errorf("info = %+v", info)
	}
	if info.LockPath == nil || *info.LockPath != slashDir+"/deno.lock" {
		t.Errorf("lock path = %v", info.LockPath)
	}
}

func TestConfigFlag(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"sub/deno.json": `{"imports": {"x": "./x.ts"}}`,
	})
	out, err := runCmd(t, "resolve", "--config", filepath.Join(dir, "sub", "deno.json"), "--referrer", "file:///a/main.ts", "x")
	if err != nil {
		t.Fatalf("resolve: %v\n%s", err, out)
	}
	want := "file://" + filepath.ToSlash(filepath.Join(dir, "sub", "x.ts"))
	if !strings.Contains(out, want) {
		t.Errorf("output = %q, want %s", out, want)
	}
}

func TestWatchSet(t *testing.T) {
	s := newWatchSet("/proj/maps/import_map.json", "")
	tests := []struct {
		name string
		want bool
	}{
		{"/proj/deno.json", true},
		{"/proj/a/deno.jsonc", true},
		{"/proj/package.json", true},
		{"/proj/deno.lock", true},
		{"/proj/maps/import_map.json", true},
		{"/proj/maps/../maps/import_map.json", true},
		{"/proj/main.ts", false},
		{"/proj/other.json", false},
	}
	for _, tt := range tests {
		if got := s.matches(filepath.FromSlash(tt.name)); got != tt.want {
			t.Errorf("matches(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestNewLogger(t *testing.T) {
	for _, tc := range []struct {
		verbose bool
		level   string
		wantErr bool
	}{
		{false, "", false},
		{true, "", false},
		{false, "debug", false},
		{false, "loud", true},
	} {
		l, err := newLogger(tc.verbose, tc.level)
		if (err != nil) != tc.wantErr {
			t.Errorf("newLogger(%v, %q) err = %v", tc.verbose, tc.level, err)
		}
		if l != nil {
			_ = l.Sync()
		}
	}
}

type fakeSession map[string]string

func (f fakeSession) Resolve(spec, referrer string) (string, error) {
	if out, ok := f[spec]; ok {
		return out, nil
	}
	return "", errors.New("not found")
}

func (f fakeSession) Close() error { return nil }

func TestInteractiveModel(t *testing.T) {
	m := newInteractiveModel("file:///proj/")
	if !strings.Contains(m.View(), "Discovering") {
		t.Errorf("initial view = %q", m.View())
	}

	m.Update(sessionMsg{session: fakeSession{"x": "file:///proj/x.ts"}, root: "/proj"})
	m.inputs[0].SetValue("x")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("enter should resolve")
	}
	m.Update(cmd())
	m.inputs[0].SetValue("y")
	m.Update(m.resolve())

	view := m.View()
	for _, want := range []string{"file:///proj/x.ts", "TypeScript", "error: not found"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
	if m.inputs[0].Value() != "" {
		t.Error("specifier input should be cleared")
	}
	if len(m.history) != 2 || m.history[0].Specifier != "y" {
		t.Errorf("history = %+v", m.history)
	}
}

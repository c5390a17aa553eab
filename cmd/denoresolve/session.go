package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lucacasonato/esbuild-deno-loader/adapter"
	"github.com/lucacasonato/esbuild-deno-loader/engine"
	"github.com/lucacasonato/esbuild-deno-loader/exports"
	"github.com/lucacasonato/esbuild-deno-loader/hostfs"
	"github.com/lucacasonato/esbuild-deno-loader/specifier"
)

// resolverSession resolves specifiers against one discovered workspace.
type resolverSession interface {
	Resolve(spec, referrer string) (string, error)
	Close() error
}

// target is what discovery starts from, derived from the global flags.
type target struct {
	cwd          string
	entrypoints  []string
	isConfigFile bool
	importMapURL string
	importMap    json.RawMessage
}

func resolveTarget() (*target, error) {
	cwd := cwdFlag
	if cwd == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		cwd = wd
	}
	cwd, err := filepath.Abs(cwd)
	if err != nil {
		return nil, err
	}
	t := &target{cwd: filepath.ToSlash(cwd)}

	switch {
	case configFlag != "":
		p, err := filepath.Abs(configFlag)
		if err != nil {
			return nil, err
		}
		t.entrypoints = []string{filepath.ToSlash(p)}
		t.isConfigFile = true
	default:
		dirs, err := specifier.EntrypointDirs(t.cwd, entryFlags)
		if err != nil {
			return nil, err
		}
		t.entrypoints = dirs
	}

	if importMapFlag != "" {
		p, err := filepath.Abs(importMapFlag)
		if err != nil {
			return nil, err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read import map: %w", err)
		}
		if !json.Valid(data) {
			return nil, fmt.Errorf("import map %s is not valid JSON", p)
		}
		u, err := specifier.FromPath(filepath.ToSlash(p))
		if err != nil {
			return nil, err
		}
		t.importMapURL = u.String()
		t.importMap = data
	}
	return t, nil
}

// defaultReferrer is the referrer used when none is given: the working
// directory as a file URL.
func (t *target) defaultReferrer() string {
	u, err := specifier.DirURL(t.cwd)
	if err != nil {
		return ""
	}
	return u.String()
}

func (t *target) discover(host hostfs.Host) (*adapter.Workspace, error) {
	return adapter.Discover(host, t.entrypoints, t.isConfigFile)
}

type nativeSession struct {
	resolver *adapter.Resolver
}

func openNative(t *target, host hostfs.Host) (*nativeSession, error) {
	ws, err := t.discover(host)
	if err != nil {
		return nil, fmt.Errorf("discover: %s", adapter.Message(err))
	}
	var value any
	if t.importMapURL != "" {
		value = t.importMap
	}
	r, err := ws.Resolver(host, t.importMapURL, value)
	if err != nil {
		return nil, fmt.Errorf("resolver: %s", adapter.Message(err))
	}
	return &nativeSession{resolver: r}, nil
}

func (s *nativeSession) Resolve(spec, referrer string) (string, error) {
	out, err := s.resolver.Resolve(spec, referrer)
	if err != nil {
		return "", fmt.Errorf("%s", adapter.Message(err))
	}
	return out, nil
}

func (s *nativeSession) Close() error { return nil }

// guestSession drives the same operations through a wasm guest.
type guestSession struct {
	ctx      context.Context
	eng      *engine.Engine
	guest    *engine.Guest
	resolver uint32
}

type handleResult struct {
	Handle uint32 `json:"handle"`
}

func openGuest(ctx context.Context, t *target, wasmPath string, host hostfs.Host) (*guestSession, error) {
	wasm, err := os.ReadFile(wasmPath)
	if err != nil {
		return nil, err
	}
	eng, err := engine.New(ctx, &engine.Config{Stderr: os.Stderr})
	if err != nil {
		return nil, err
	}
	g, err := eng.Load(ctx, wasm, host)
	if err != nil {
		eng.Close(ctx)
		return nil, err
	}
	s := &guestSession{ctx: ctx, eng: eng, guest: g}

	var ws handleResult
	if err := s.invoke(exports.OpWorkspaceDiscover, map[string]any{
		"entrypoints":    t.entrypoints,
		"is_config_file": t.isConfigFile,
	}, &ws); err != nil {
		s.Close()
		return nil, fmt.Errorf("discover: %w", err)
	}
	args := map[string]any{"handle": ws.Handle}
	if t.importMapURL != "" {
		args["import_map_url"] = t.importMapURL
		args["import_map_value"] = t.importMap
	}
	var r handleResult
	if err := s.invoke(exports.OpWorkspaceResolver, args, &r); err != nil {
		s.Close()
		return nil, fmt.Errorf("resolver: %w", err)
	}
	s.resolver = r.Handle
	return s, nil
}

func (s *guestSession) invoke(op string, args any, out any) error {
	raw, err := s.guest.Invoke(s.ctx, op, args)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func (s *guestSession) Resolve(spec, referrer string) (string, error) {
	var res struct {
		Resolved string `json:"resolved"`
	}
	err := s.invoke(exports.OpResolverResolve, map[string]any{
		"handle":    s.resolver,
		"specifier": spec,
		"referrer":  referrer,
	}, &res)
	return res.Resolved, err
}

func (s *guestSession) Close() error {
	s.guest.Close(s.ctx)
	return s.eng.Close(s.ctx)
}

func openSession(ctx context.Context, t *target) (resolverSession, error) {
	host := hostfs.OS{}
	if guestFlag != "" {
		return openGuest(ctx, t, guestFlag, host)
	}
	return openNative(t, host)
}

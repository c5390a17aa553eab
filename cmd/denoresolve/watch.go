package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"path"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lucacasonato/esbuild-deno-loader/adapter"
	"github.com/lucacasonato/esbuild-deno-loader/hostfs"
)

const watchDebounce = 100 * time.Millisecond

var watchedNames = map[string]bool{
	"deno.json":    true,
	"deno.jsonc":   true,
	"package.json": true,
	"deno.lock":    true,
}

// watchSet decides which changed files trigger a re-resolve.
type watchSet struct {
	extra map[string]bool
}

func newWatchSet(paths ...string) *watchSet {
	s := &watchSet{extra: make(map[string]bool)}
	for _, p := range paths {
		if p == "" {
			continue
		}
		if abs, err := filepath.Abs(p); err == nil {
			p = abs
		}
		s.extra[filepath.ToSlash(p)] = true
	}
	return s
}

func (s *watchSet) matches(name string) bool {
	name = filepath.ToSlash(filepath.Clean(name))
	return watchedNames[path.Base(name)] || s.extra[name]
}

func newWatchCmd() *cobra.Command {
	var referrer string

	cmd := &cobra.Command{
		Use:   "watch <specifier>...",
		Short: "Re-resolve specifiers whenever workspace configuration changes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			t, err := resolveTarget()
			if err != nil {
				return err
			}
			if referrer == "" {
				referrer = t.defaultReferrer()
			}
			entries := make([]batchEntry, 0, len(args))
			for _, a := range args {
				entries = append(entries, batchEntry{Specifier: a})
			}
			return watch(ctx, cmd.OutOrStdout(), entries, referrer)
		},
	}
	cmd.Flags().StringVar(&referrer, "referrer", "", "Referrer URL (default: the working directory)")
	return cmd
}

func watch(ctx context.Context, w io.Writer, entries []batchEntry, referrer string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	set := newWatchSet(lockFlag, importMapFlag, configFlag)
	run := func() {
		dirs, err := resolveRound(ctx, w, entries, referrer)
		if err != nil {
			fmt.Fprintf(w, "error: %v\n", err)
		}
		for _, d := range dirs {
			if err := watcher.Add(d); err != nil {
				adapter.Logger().Warn("watch directory", zap.String("dir", d), zap.Error(err))
			}
		}
	}
	run()

	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 || !set.matches(ev.Name) {
				continue
			}
			adapter.Logger().Debug("workspace file changed", zap.String("path", ev.Name), zap.Stringer("op", ev.Op))
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
			} else {
				timer.Reset(watchDebounce)
			}
			timerC = timer.C
		case <-timerC:
			timerC = nil
			fmt.Fprintln(w, "---")
			run()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			adapter.Logger().Warn("watcher error", zap.Error(err))
		}
	}
}

// resolveRound rediscovers the workspace, prints one round of resolutions
// and returns the directories to watch.
func resolveRound(ctx context.Context, w io.Writer, entries []batchEntry, referrer string) ([]string, error) {
	t, err := resolveTarget()
	if err != nil {
		return nil, err
	}
	dirs := append([]string(nil), t.entrypoints...)
	if t.isConfigFile {
		dirs = []string{path.Dir(t.entrypoints[0])}
	}

	ws, err := t.discover(hostfs.OS{})
	if err != nil {
		return dirs, fmt.Errorf("discover: %s", adapter.Message(err))
	}
	dirs = append(dirs, ws.Members()...)
	for _, extra := range []string{lockFlag, importMapFlag} {
		if extra != "" {
			if abs, err := filepath.Abs(extra); err == nil {
				dirs = append(dirs, filepath.Dir(abs))
			}
		}
	}

	s, err := openSession(ctx, t)
	if err != nil {
		return dirs, err
	}
	defer s.Close()
	return dirs, writeRecords(w, resolveAll(s, entries, referrer))
}

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/lucacasonato/esbuild-deno-loader/adapter"
	"github.com/lucacasonato/esbuild-deno-loader/hostfs"
)

type lockRecord struct {
	Specifier string  `json:"specifier"`
	Version   *string `json:"version"`
	Error     string  `json:"error,omitempty"`
}

func newLockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lock <specifier>...",
		Short: "Print locked versions of jsr: and npm: specifiers",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := lockfilePath()
			if err != nil {
				return err
			}
			l, err := openLockfile(path)
			if err != nil {
				return err
			}

			records := make([]lockRecord, 0, len(args))
			for _, spec := range args {
				rec := lockRecord{Specifier: spec}
				v, ok, err := l.PackageVersion(spec)
				switch {
				case err != nil:
					rec.Error = adapter.Message(err)
				case ok:
					rec.Version = &v
				}
				records = append(records, rec)
			}

			w := cmd.OutOrStdout()
			if outputJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(records)
			}
			for _, r := range records {
				switch {
				case r.Error != "":
					fmt.Fprintf(w, "%s: error: %s\n", r.Specifier, r.Error)
				case r.Version == nil:
					fmt.Fprintf(w, "%s: not locked\n", r.Specifier)
				default:
					fmt.Fprintf(w, "%s: %s\n", r.Specifier, *r.Version)
				}
			}
			return nil
		},
	}
}

func lockfilePath() (string, error) {
	if lockFlag != "" {
		p, err := filepath.Abs(lockFlag)
		return filepath.ToSlash(p), err
	}
	t, err := resolveTarget()
	if err != nil {
		return "", err
	}
	ws, err := t.discover(hostfs.OS{})
	if err != nil {
		return "", fmt.Errorf("discover: %s", adapter.Message(err))
	}
	p, ok, err := ws.LockPath()
	if err != nil {
		return "", fmt.Errorf("%s", adapter.Message(err))
	}
	if !ok {
		return "", fmt.Errorf("workspace has no lockfile configured")
	}
	return p, nil
}

// openLockfile reads path; a missing file is an empty lockfile.
func openLockfile(path string) (*adapter.Lockfile, error) {
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	l, err := adapter.NewLockfile(path, hostfs.Lossy(data))
	if err != nil {
		return nil, fmt.Errorf("%s", adapter.Message(err))
	}
	return l, nil
}

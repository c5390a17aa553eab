package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lucacasonato/esbuild-deno-loader/adapter"
	"github.com/lucacasonato/esbuild-deno-loader/hostfs"
)

type workspaceInfo struct {
	Root           string   `json:"root"`
	Members        []string `json:"members"`
	LockPath       *string  `json:"lock_path"`
	NodeModulesDir string   `json:"node_modules_dir"`
}

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show the discovered workspace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := resolveTarget()
			if err != nil {
				return err
			}
			ws, err := t.discover(hostfs.OS{})
			if err != nil {
				return fmt.Errorf("discover: %s", adapter.Message(err))
			}
			info, err := describe(ws)
			if err != nil {
				return err
			}
			return writeInfo(cmd.OutOrStdout(), info)
		},
	}
}

func describe(ws *adapter.Workspace) (workspaceInfo, error) {
	info := workspaceInfo{
		Root:           ws.Root(),
		Members:        ws.Members(),
		NodeModulesDir: ws.NodeModulesDir(),
	}
	p, ok, err := ws.LockPath()
	if err != nil {
		return info, fmt.Errorf("%s", adapter.Message(err))
	}
	if ok {
		info.LockPath = &p
	}
	return info, nil
}

func writeInfo(w io.Writer, info workspaceInfo) error {
	if outputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}
	lock := "(none)"
	if info.LockPath != nil {
		lock = *info.LockPath
	}
	fmt.Fprintf(w, "root:             %s\n", info.Root)
	fmt.Fprintf(w, "members:          %s\n", strings.Join(info.Members, ", "))
	fmt.Fprintf(w, "lockfile:         %s\n", lock)
	fmt.Fprintf(w, "node_modules_dir: %s\n", info.NodeModulesDir)
	return nil
}

package workspace

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/lucacasonato/esbuild-deno-loader/specifier"
)

// NodeModulesDirMode is how a workspace manages its node_modules directory.
type NodeModulesDirMode string

const (
	NodeModulesAuto   NodeModulesDirMode = "auto"
	NodeModulesManual NodeModulesDirMode = "manual"
	NodeModulesNone   NodeModulesDirMode = "none"
)

// DenoConfig is the subset of deno.json the loader understands.
type DenoConfig struct {
	Path    string
	Name    string
	Version string
	// Exports maps export names (".", "./mod") to module paths relative to
	// the config directory.
	Exports   map[string]string
	Imports   map[string]any
	Scopes    map[string]any
	ImportMap string
	Vendor    bool
	// Workspace lists member patterns relative to the config directory.
	// Nil when the config declares no workspace.
	Workspace []string

	lock           json.RawMessage
	nodeModulesDir NodeModulesDirMode
}

type denoConfigFile struct {
	Name           string          `json:"name"`
	Version        string          `json:"version"`
	Exports        json.RawMessage `json:"exports"`
	Imports        map[string]any  `json:"imports"`
	Scopes         map[string]any  `json:"scopes"`
	ImportMap      string          `json:"importMap"`
	Lock           json.RawMessage `json:"lock"`
	NodeModulesDir json.RawMessage `json:"nodeModulesDir"`
	Vendor         bool            `json:"vendor"`
	Workspace      json.RawMessage `json:"workspace"`
}

func parseDenoConfig(filePath, text string) (*DenoConfig, error) {
	data, err := standardizeJSONC(text)
	if err != nil {
		return nil, fmt.Errorf("unable to parse config file JSON %s: %w", filePath, err)
	}
	var f denoConfigFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("unable to parse config file JSON %s: %w", filePath, err)
	}
	cfg := &DenoConfig{
		Path:      filePath,
		Name:      f.Name,
		Version:   f.Version,
		Imports:   f.Imports,
		Scopes:    f.Scopes,
		ImportMap: f.ImportMap,
		Vendor:    f.Vendor,
		lock:      f.Lock,
	}

	exports, err := parseExports(f.Exports)
	if err != nil {
		return nil, fmt.Errorf("invalid \"exports\" in %s: %w", filePath, err)
	}
	cfg.Exports = exports

	mode, err := parseNodeModulesDir(f.NodeModulesDir)
	if err != nil {
		return nil, fmt.Errorf("invalid \"nodeModulesDir\" in %s: %w", filePath, err)
	}
	cfg.nodeModulesDir = mode

	members, err := parseMemberList(f.Workspace, "members")
	if err != nil {
		return nil, fmt.Errorf("invalid \"workspace\" in %s: %w", filePath, err)
	}
	cfg.Workspace = members
	return cfg, nil
}

// Dir returns the directory containing the config file.
func (c *DenoConfig) Dir() string { return specifier.Dir(c.Path) }

// NodeModulesDir returns the explicit node_modules mode, if any.
func (c *DenoConfig) NodeModulesDir() (NodeModulesDirMode, bool) {
	return c.nodeModulesDir, c.nodeModulesDir != ""
}

// ExportNames returns the export names in lexical order.
func (c *DenoConfig) ExportNames() []string {
	names := make([]string, 0, len(c.Exports))
	for k := range c.Exports {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func parseExports(raw json.RawMessage) (map[string]string, error) {
	if isAbsent(raw) {
		return nil, nil
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return map[string]string{".": single}, nil
	}
	var byName map[string]string
	if err := json.Unmarshal(raw, &byName); err != nil {
		return nil, fmt.Errorf("expected a string or an object of strings")
	}
	out := make(map[string]string, len(byName))
	for k, v := range byName {
		switch {
		case k == ".":
		case strings.HasPrefix(k, "./"):
		default:
			k = "./" + k
		}
		out[k] = v
	}
	return out, nil
}

func parseNodeModulesDir(raw json.RawMessage) (NodeModulesDirMode, error) {
	if isAbsent(raw) {
		return "", nil
	}
	var legacy bool
	if err := json.Unmarshal(raw, &legacy); err == nil {
		if legacy {
			return NodeModulesAuto, nil
		}
		return NodeModulesNone, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("expected \"auto\", \"manual\", \"none\" or a boolean")
	}
	switch mode := NodeModulesDirMode(s); mode {
	case NodeModulesAuto, NodeModulesManual, NodeModulesNone:
		return mode, nil
	}
	return "", fmt.Errorf("unknown mode %q", s)
}

// parseMemberList accepts either an array of patterns or an object holding
// the array under key.
func parseMemberList(raw json.RawMessage, key string) ([]string, error) {
	if isAbsent(raw) {
		return nil, nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		if list == nil {
			list = []string{}
		}
		return list, nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("expected an array of strings or an object with %q", key)
	}
	if err := json.Unmarshal(obj[key], &list); err != nil || list == nil {
		return nil, fmt.Errorf("expected %q to be an array of strings", key)
	}
	return list, nil
}

func isAbsent(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

// PackageJSON is the part of package.json discovery needs. Dependencies are
// read later by the resolver.
type PackageJSON struct {
	Path    string
	Name    string
	Version string
	// Workspaces lists member patterns; nil when absent.
	Workspaces []string
}

type packageJSONFile struct {
	Name       string          `json:"name"`
	Version    string          `json:"version"`
	Workspaces json.RawMessage `json:"workspaces"`
}

func parsePackageJSON(filePath, text string) (*PackageJSON, error) {
	var f packageJSONFile
	if err := json.Unmarshal([]byte(strings.TrimPrefix(text, "\uFEFF")), &f); err != nil {
		return nil, fmt.Errorf("unable to parse package.json %s: %w", filePath, err)
	}
	workspaces, err := parseMemberList(f.Workspaces, "packages")
	if err != nil {
		return nil, fmt.Errorf("invalid \"workspaces\" in %s: %w", filePath, err)
	}
	return &PackageJSON{
		Path:       filePath,
		Name:       f.Name,
		Version:    f.Version,
		Workspaces: workspaces,
	}, nil
}

// Dir returns the directory containing the manifest.
func (p *PackageJSON) Dir() string { return specifier.Dir(p.Path) }

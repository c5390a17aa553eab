package workspace

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar"

	denoloader "github.com/lucacasonato/esbuild-deno-loader"
	"github.com/lucacasonato/esbuild-deno-loader/errors"
	"github.com/lucacasonato/esbuild-deno-loader/specifier"
)

// Options configure Discover.
type Options struct {
	// Entrypoints are absolute slash paths of start directories, or of
	// exactly one config file when ConfigFile is set.
	Entrypoints []string
	ConfigFile  bool
}

// maxGlobDepth bounds the directory walk for "**" member patterns.
const maxGlobDepth = 8

// Discover builds a workspace from the entrypoints. Missing files are
// treated as absent; every other filesystem failure aborts discovery.
func Discover(fs denoloader.FS, opts Options) (*Workspace, error) {
	d := &discoverer{fs: fs, loaded: make(map[string]*Member)}

	var start *Member
	if opts.ConfigFile {
		if len(opts.Entrypoints) != 1 {
			return nil, errors.InvalidInput(errors.PhaseDiscover,
				fmt.Sprintf("config file discovery takes exactly one path, got %d", len(opts.Entrypoints)))
		}
		m, err := d.loadConfigFile(cleanPath(opts.Entrypoints[0]))
		if err != nil {
			return nil, err
		}
		start = m
	} else {
		if len(opts.Entrypoints) == 0 {
			return nil, errors.InvalidInput(errors.PhaseDiscover, "no entrypoints given")
		}
		dir, err := commonAncestor(opts.Entrypoints)
		if err != nil {
			return nil, err
		}
		start, err = d.findStart(dir)
		if err != nil {
			return nil, err
		}
	}

	root, err := d.findRoot(start)
	if err != nil {
		return nil, err
	}
	ws := &Workspace{root: root}
	if root == start && len(rootPatterns(root)) == 0 {
		return ws, nil
	}

	dirs, err := d.expandMembers(root)
	if err != nil {
		return nil, err
	}
	for _, dir := range dirs {
		if dir == root.Dir {
			continue
		}
		m, err := d.load(dir)
		if err != nil {
			return nil, err
		}
		if !m.HasConfig() {
			continue
		}
		ws.members = append(ws.members, m)
	}
	sort.Slice(ws.members, func(i, j int) bool { return ws.members[i].Dir < ws.members[j].Dir })
	return ws, nil
}

type discoverer struct {
	fs     denoloader.FS
	loaded map[string]*Member
}

// findStart walks upward from dir to the nearest directory with a config.
// Without any config, dir itself becomes a config-less start member.
func (d *discoverer) findStart(dir string) (*Member, error) {
	for current := dir; ; {
		m, err := d.load(current)
		if err != nil {
			return nil, err
		}
		if m.HasConfig() {
			return m, nil
		}
		parent := specifier.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}
	return d.load(dir)
}

// findRoot walks upward from start looking for a workspace that lists it.
func (d *discoverer) findRoot(start *Member) (*Member, error) {
	if len(rootPatterns(start)) > 0 {
		return start, nil
	}
	for current := specifier.Dir(start.Dir); ; current = specifier.Dir(current) {
		m, err := d.load(current)
		if err != nil {
			return nil, err
		}
		if len(rootPatterns(m)) > 0 {
			dirs, err := d.expandMembers(m)
			if err != nil {
				return nil, err
			}
			if containsDir(dirs, start.Dir) {
				return m, nil
			}
			if m.Deno != nil && m.Deno.Workspace != nil {
				return nil, fmt.Errorf("config file must be a member of the workspace\n  Config: %s\n  Member: %s",
					configPath(start), m.Deno.Path)
			}
		}
		if specifier.Dir(current) == current {
			return start, nil
		}
	}
}

func (d *discoverer) load(dir string) (*Member, error) {
	if m, ok := d.loaded[dir]; ok {
		return m, nil
	}
	dirURL, err := specifier.DirURL(dir)
	if err != nil {
		return nil, err
	}
	m := &Member{Dir: dir, DirURL: dirURL}

	for _, name := range []string{"deno.json", "deno.jsonc"} {
		cfg, err := d.readDenoConfig(path.Join(dir, name))
		if err != nil {
			return nil, err
		}
		if cfg != nil {
			m.Deno = cfg
			break
		}
	}
	pkg, err := d.readPackageJSON(path.Join(dir, "package.json"))
	if err != nil {
		return nil, err
	}
	m.PackageJSON = pkg

	d.loaded[dir] = m
	return m, nil
}

// loadConfigFile loads an explicitly named config file. Unlike probing, a
// missing file is an error.
func (d *discoverer) loadConfigFile(file string) (*Member, error) {
	dir := specifier.Dir(file)
	dirURL, err := specifier.DirURL(dir)
	if err != nil {
		return nil, err
	}
	m := &Member{Dir: dir, DirURL: dirURL}

	if path.Base(file) == "package.json" {
		pkg, err := d.readPackageJSON(file)
		if err != nil {
			return nil, err
		}
		if pkg == nil {
			return nil, fmt.Errorf("config file not found: %s", file)
		}
		m.PackageJSON = pkg
	} else {
		cfg, err := d.readDenoConfig(file)
		if err != nil {
			return nil, err
		}
		if cfg == nil {
			return nil, fmt.Errorf("config file not found: %s", file)
		}
		m.Deno = cfg
		pkg, err := d.readPackageJSON(path.Join(dir, "package.json"))
		if err != nil {
			return nil, err
		}
		m.PackageJSON = pkg
	}
	d.loaded[dir] = m
	return m, nil
}

func (d *discoverer) readDenoConfig(file string) (*DenoConfig, error) {
	text, ok, err := d.readOptional(file)
	if err != nil || !ok {
		return nil, err
	}
	return parseDenoConfig(file, text)
}

func (d *discoverer) readPackageJSON(file string) (*PackageJSON, error) {
	text, ok, err := d.readOptional(file)
	if err != nil || !ok {
		return nil, err
	}
	return parsePackageJSON(file, text)
}

func (d *discoverer) readOptional(file string) (string, bool, error) {
	text, err := d.fs.ReadText(file)
	if err != nil {
		if errors.IsNotFound(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("reading %s: %w", file, err)
	}
	return text, true, nil
}

// expandMembers resolves the member patterns of a workspace root into
// directories. Literal members must exist; glob matches are filtered by the
// caller to directories with a config.
func (d *discoverer) expandMembers(root *Member) ([]string, error) {
	var include []string
	var exclude []string
	for _, pattern := range rootPatterns(root) {
		negated := strings.HasPrefix(pattern, "!")
		pattern = strings.TrimPrefix(pattern, "!")
		abs := path.Join(root.Dir, pattern)
		if !strings.HasPrefix(abs+"/", strings.TrimSuffix(root.Dir, "/")+"/") {
			return nil, fmt.Errorf("workspace member %q is outside the workspace root %s", pattern, root.Dir)
		}
		if negated {
			exclude = append(exclude, abs)
			continue
		}
		if !hasGlobMeta(pattern) {
			m, err := d.load(abs)
			if err != nil {
				return nil, err
			}
			if !m.HasConfig() {
				return nil, fmt.Errorf("could not find config file for workspace member in %s", abs)
			}
			include = append(include, abs)
			continue
		}
		matches, err := d.glob(abs)
		if err != nil {
			return nil, err
		}
		include = append(include, matches...)
	}

	seen := make(map[string]bool)
	var out []string
	for _, dir := range include {
		if seen[dir] || matchesAny(exclude, dir) {
			continue
		}
		seen[dir] = true
		out = append(out, dir)
	}
	sort.Strings(out)
	return out, nil
}

// glob lists the directories matching an absolute pattern by walking the
// static prefix of the pattern with ListDir.
func (d *discoverer) glob(pattern string) ([]string, error) {
	segments := strings.Split(pattern, "/")
	static := 0
	for static < len(segments) && !hasGlobMeta(segments[static]) {
		static++
	}
	base := strings.Join(segments[:static], "/")
	if base == "" {
		base = "/"
	}
	depth := len(segments) - static
	if strings.Contains(pattern, "**") {
		depth = maxGlobDepth
	}

	var out []string
	var walk func(dir string, remaining int) error
	walk = func(dir string, remaining int) error {
		if remaining == 0 {
			return nil
		}
		entries, err := d.fs.ListDir(dir)
		if err != nil {
			if errors.IsNotFound(err) {
				return nil
			}
			return fmt.Errorf("listing %s: %w", dir, err)
		}
		for _, e := range entries {
			if !e.Metadata.IsDirectory || e.Name == "node_modules" || strings.HasPrefix(e.Name, ".") {
				continue
			}
			ok, err := doublestar.Match(pattern, e.Path)
			if err != nil {
				return fmt.Errorf("invalid workspace member pattern %q: %w", pattern, err)
			}
			if ok {
				m, err := d.load(e.Path)
				if err != nil {
					return err
				}
				if m.HasConfig() {
					out = append(out, e.Path)
				}
			}
			if err := walk(e.Path, remaining-1); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(base, depth); err != nil {
		return nil, err
	}
	return out, nil
}

// rootPatterns returns the member patterns a directory declares, deno.json
// taking precedence over package.json.
func rootPatterns(m *Member) []string {
	if m.Deno != nil && m.Deno.Workspace != nil {
		return m.Deno.Workspace
	}
	if m.PackageJSON != nil {
		return m.PackageJSON.Workspaces
	}
	return nil
}

func configPath(m *Member) string {
	if m.Deno != nil {
		return m.Deno.Path
	}
	if m.PackageJSON != nil {
		return m.PackageJSON.Path
	}
	return m.Dir
}

func hasGlobMeta(s string) bool {
	return strings.ContainsAny(s, "*?[{")
}

func matchesAny(patterns []string, dir string) bool {
	for _, p := range patterns {
		if p == dir {
			return true
		}
		if ok, _ := doublestar.Match(p, dir); ok {
			return true
		}
	}
	return false
}

func containsDir(dirs []string, dir string) bool {
	for _, d := range dirs {
		if d == dir {
			return true
		}
	}
	return false
}

func cleanPath(p string) string {
	p = path.Clean(p)
	if len(p) == 2 && p[1] == ':' {
		p += "/"
	}
	return p
}

// commonAncestor returns the deepest directory containing every path.
func commonAncestor(paths []string) (string, error) {
	first := cleanPath(paths[0])
	common := strings.Split(strings.TrimSuffix(first, "/"), "/")
	for _, p := range paths[1:] {
		segs := strings.Split(strings.TrimSuffix(cleanPath(p), "/"), "/")
		n := 0
		for n < len(common) && n < len(segs) && common[n] == segs[n] {
			n++
		}
		common = common[:n]
	}
	switch {
	case len(common) == 0:
		return "", fmt.Errorf("entrypoints %v share no common directory", paths)
	case len(common) == 1 && common[0] == "":
		return "/", nil
	}
	return cleanPath(strings.Join(common, "/")), nil
}

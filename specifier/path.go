package specifier

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

// FromPath returns the file URL of an absolute slash-separated path.
// Backslashes are treated as separators.
func FromPath(p string) (*url.URL, error) {
	p = strings.ReplaceAll(p, "\\", "/")
	switch {
	case strings.HasPrefix(p, "/"):
	case hasDriveLetter(p):
		p = "/" + p
	default:
		return nil, fmt.Errorf("path %q is not absolute", p)
	}
	return &url.URL{Scheme: "file", Path: p}, nil
}

// DirURL is FromPath with a trailing slash, suitable as a base URL.
func DirURL(dir string) (*url.URL, error) {
	u, err := FromPath(dir)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u, nil
}

// ToPath returns the slash-separated path of a file URL.
func ToPath(u *url.URL) (string, error) {
	if u.Scheme != "file" {
		return "", fmt.Errorf("%s is not a file URL", u)
	}
	if u.Host != "" && u.Host != "localhost" {
		return "//" + u.Host + u.Path, nil
	}
	p := u.Path
	if len(p) >= 3 && p[0] == '/' && hasDriveLetter(p[1:]) {
		p = p[1:]
	}
	return p, nil
}

// Dir returns the parent directory of a slash path, keeping drive roots.
func Dir(p string) string {
	d := path.Dir(p)
	if hasDriveLetter(p) && len(d) == 2 {
		return d + "/"
	}
	return d
}

// IsInNodeModules reports whether a slash path lies inside a node_modules
// directory.
func IsInNodeModules(p string) bool {
	p = strings.ReplaceAll(p, "\\", "/")
	return strings.Contains(p, "/node_modules/") || strings.HasSuffix(p, "/node_modules")
}

func hasDriveLetter(p string) bool {
	if len(p) < 2 || p[1] != ':' {
		return false
	}
	c := p[0]
	if !('a' <= c && c <= 'z' || 'A' <= c && c <= 'Z') {
		return false
	}
	return len(p) == 2 || p[2] == '/'
}

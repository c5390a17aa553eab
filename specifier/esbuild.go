package specifier

import (
	"net/url"
	"strings"
)

// Resolution is esbuild's representation of a module specifier. For the
// "file" namespace Path is a file path; otherwise it is everything after the
// scheme's colon.
type Resolution struct {
	Namespace string `json:"namespace"`
	Path      string `json:"path"`
}

// ToEsbuild splits u into a namespace and path.
func ToEsbuild(u *url.URL) (Resolution, error) {
	if u.Scheme == "file" {
		p, err := ToPath(u)
		if err != nil {
			return Resolution{}, err
		}
		return Resolution{Namespace: "file", Path: p}, nil
	}
	s := u.String()
	return Resolution{Namespace: u.Scheme, Path: strings.TrimPrefix(s, u.Scheme+":")}, nil
}

// FromEsbuild joins a namespace and path back into a URL.
func FromEsbuild(r Resolution) (*url.URL, error) {
	if r.Namespace == "file" {
		return FromPath(r.Path)
	}
	return url.Parse(r.Namespace + ":" + r.Path)
}

// EntrypointDirs reduces build entry points to the directories workspace
// discovery starts from. Entry points are resolved against cwd; non-file
// URLs are skipped. When nothing remains, cwd itself is returned.
func EntrypointDirs(cwd string, entryPoints []string) ([]string, error) {
	base, err := DirURL(cwd)
	if err != nil {
		return nil, err
	}
	var dirs []string
	for _, ep := range entryPoints {
		var u *url.URL
		if hasDriveLetter(strings.ReplaceAll(ep, "\\", "/")) {
			u, err = FromPath(ep)
		} else {
			u, err = base.Parse(ep)
		}
		if err != nil {
			return nil, err
		}
		if u.Scheme != "file" {
			continue
		}
		p, err := ToPath(u)
		if err != nil {
			return nil, err
		}
		dirs = append(dirs, Dir(p))
	}
	if len(dirs) == 0 {
		dirs = []string{strings.ReplaceAll(cwd, "\\", "/")}
	}
	return dirs, nil
}

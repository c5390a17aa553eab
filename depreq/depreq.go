// Package depreq parses package-registry dependency descriptors such as
// "jsr:@std/path@^1.0.0" and "npm:left-pad@1.3.0".
//
// A descriptor is (kind, name, version requirement). A missing requirement
// normalises to "*". Requirements are validated as semver ranges or accepted
// as dist-tags ("latest", "next"). Descriptors compare structurally and are
// usable as map keys.
package depreq

import (
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/lucacasonato/esbuild-deno-loader/errors"
)

// Kind is the registry a descriptor points at.
type Kind string

const (
	KindJsr Kind = "jsr"
	KindNpm Kind = "npm"
)

// AnyVersion is the requirement used when none is written.
const AnyVersion = "*"

var distTagRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9._-]*$`)

// Req is a dependency descriptor.
type Req struct {
	Kind       Kind
	Name       string
	VersionReq string
}

// PackageReq is a descriptor without its registry kind.
type PackageReq struct {
	Name       string
	VersionReq string
}

func (p PackageReq) String() string {
	return p.Name + "@" + p.VersionReq
}

func (r Req) String() string {
	return string(r.Kind) + ":" + r.Name + "@" + r.VersionReq
}

// PackageReq drops the registry kind.
func (r Req) PackageReq() PackageReq {
	return PackageReq{Name: r.Name, VersionReq: r.VersionReq}
}

// IsTag reports whether the requirement is a dist-tag rather than a range.
func (r Req) IsTag() bool {
	return IsTag(r.VersionReq)
}

// Matches reports whether version satisfies the requirement. Dist-tags and
// "*" match every version; an unparsable version never matches.
func (r Req) Matches(version string) bool {
	if r.VersionReq == AnyVersion || r.IsTag() {
		return true
	}
	c, err := semver.NewConstraint(r.VersionReq)
	if err != nil {
		return false
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return false
	}
	return c.Check(v)
}

// Reference is a descriptor followed by an optional sub-path, such as
// "npm:preact@10/hooks".
type Reference struct {
	Req     Req
	SubPath string
}

func (r Reference) String() string {
	if r.SubPath == "" {
		return r.Req.String()
	}
	return r.Req.String() + "/" + r.SubPath
}

// Parse parses a descriptor. Sub-paths are rejected.
func Parse(s string) (Req, error) {
	kind, rest, err := splitKind(s)
	if err != nil {
		return Req{}, err
	}
	name, version, err := splitName(s, rest)
	if err != nil {
		return Req{}, err
	}
	req, err := newReq(s, kind, name, version)
	if err != nil {
		return Req{}, err
	}
	return req, nil
}

// ParseReference parses a descriptor with an optional trailing sub-path.
func ParseReference(s string) (Reference, error) {
	kind, rest, err := splitKind(s)
	if err != nil {
		return Reference{}, err
	}
	rest = strings.TrimPrefix(rest, "/")

	nameEnd := len(rest)
	start := 0
	if strings.HasPrefix(rest, "@") {
		slash := strings.IndexByte(rest, '/')
		if slash < 0 {
			return Reference{}, invalid(s, "scoped package name is missing a slash")
		}
		start = slash + 1
	}
	if i := strings.IndexAny(rest[start:], "@/"); i >= 0 {
		nameEnd = start + i
	}
	name := rest[:nameEnd]
	rest = rest[nameEnd:]

	version := ""
	if strings.HasPrefix(rest, "@") {
		rest = rest[1:]
		end := strings.IndexByte(rest, '/')
		if end < 0 {
			end = len(rest)
		}
		version = rest[:end]
		if version == "" {
			return Reference{}, invalid(s, "empty version requirement")
		}
		rest = rest[end:]
	}

	subPath := strings.TrimPrefix(rest, "/")
	if strings.HasPrefix(rest, "/") && subPath == "" {
		return Reference{}, invalid(s, "empty sub-path")
	}

	req, err := newReq(s, kind, name, version)
	if err != nil {
		return Reference{}, err
	}
	return Reference{Req: req, SubPath: subPath}, nil
}

// ValidVersionReq reports whether v is an accepted version requirement.
func ValidVersionReq(v string) bool {
	if v == AnyVersion || IsTag(v) {
		return true
	}
	_, err := semver.NewConstraint(v)
	return err == nil
}

// IsTag reports whether v has the shape of a dist-tag.
func IsTag(v string) bool {
	if !distTagRe.MatchString(v) {
		return false
	}
	// "x" and "X" are wildcard ranges, and a leading "v" may start a version.
	if v == "x" || v == "X" {
		return false
	}
	if _, err := semver.NewVersion(v); err == nil {
		return false
	}
	return true
}

func splitKind(s string) (Kind, string, error) {
	switch {
	case strings.HasPrefix(s, "jsr:"):
		return KindJsr, s[len("jsr:"):], nil
	case strings.HasPrefix(s, "npm:"):
		return KindNpm, s[len("npm:"):], nil
	case s == "":
		return "", "", invalid(s, "empty specifier")
	}
	return "", "", invalid(s, "expected a jsr: or npm: prefix")
}

// splitName separates name and version of a sub-path free descriptor. The
// version starts at the first '@' after the optional scope.
func splitName(s, rest string) (string, string, error) {
	rest = strings.TrimPrefix(rest, "/")
	start := 0
	if strings.HasPrefix(rest, "@") {
		start = 1
	}
	at := strings.IndexByte(rest[start:], '@')
	if at < 0 {
		return rest, "", nil
	}
	at += start
	version := rest[at+1:]
	if version == "" {
		return "", "", invalid(s, "empty version requirement")
	}
	return rest[:at], version, nil
}

func newReq(s string, kind Kind, name, version string) (Req, error) {
	if err := validateName(s, kind, name); err != nil {
		return Req{}, err
	}
	version = strings.TrimSpace(version)
	if version == "" {
		version = AnyVersion
	}
	if !ValidVersionReq(version) {
		return Req{}, invalid(s, "invalid version requirement "+version)
	}
	return Req{Kind: kind, Name: name, VersionReq: version}, nil
}

func validateName(s string, kind Kind, name string) error {
	if name == "" {
		return invalid(s, "missing package name")
	}
	if strings.ContainsAny(name, " \t\r\n\\%") {
		return invalid(s, "package name contains invalid characters")
	}
	scoped := strings.HasPrefix(name, "@")
	if scoped {
		scope, pkg, ok := strings.Cut(name[1:], "/")
		if !ok || scope == "" || pkg == "" || strings.Contains(pkg, "/") {
			return invalid(s, "invalid scoped package name "+name)
		}
		return nil
	}
	if kind == KindJsr {
		return invalid(s, "jsr package names must be scoped (@scope/name)")
	}
	if strings.Contains(name, "/") || strings.HasPrefix(name, ".") {
		return invalid(s, "invalid package name "+name)
	}
	return nil
}

func invalid(s, reason string) *errors.Error {
	return errors.New(errors.PhaseParse, errors.KindInvalidInput).
		Subject(s).
		Value(s).
		Detail("invalid dependency specifier: %s", reason).
		Build()
}

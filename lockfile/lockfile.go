// Package lockfile reads deno.lock documents.
//
// Versions "3", "4" and "5" are understood. Construction is purely in-memory:
// nothing is written back, and whitespace-only content produces an empty
// document as if the lockfile did not exist yet.
package lockfile

import (
	"encoding/json"
	"maps"
	"sort"
	"strings"

	"github.com/lucacasonato/esbuild-deno-loader/depreq"
	"github.com/lucacasonato/esbuild-deno-loader/errors"
)

// CurrentVersion is the version given to new documents.
const CurrentVersion = "5"

// Options configure New.
type Options struct {
	// FilePath is the identity of the document. It is never opened.
	FilePath string
	// Content is the raw document text.
	Content string
	// Overwrite discards Content and starts from an empty document.
	Overwrite bool
}

// Package is one locked package entry.
type Package struct {
	Integrity    string       `json:"integrity,omitempty"`
	Dependencies Dependencies `json:"dependencies,omitempty"`
}

// Dependencies lists the "name@version" entries a package depends on.
// Version 3 documents store npm dependencies as an object keyed by alias;
// only the values are kept, in key order.
type Dependencies []string

func (d *Dependencies) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*d = list
		return nil
	}
	var byAlias map[string]string
	if err := json.Unmarshal(data, &byAlias); err != nil {
		return err
	}
	keys := make([]string, 0, len(byAlias))
	for k := range byAlias {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, byAlias[k])
	}
	*d = out
	return nil
}

// Document is a parsed lockfile. It is immutable after New returns.
type Document struct {
	filePath   string
	version    string
	specifiers map[depreq.Req]string
	jsr        map[string]Package
	npm        map[string]Package
	redirects  map[string]string
	remote     map[string]string
}

type v3File struct {
	Version  string `json:"version"`
	Packages *struct {
		Specifiers map[string]string  `json:"specifiers"`
		Jsr        map[string]Package `json:"jsr"`
		Npm        map[string]Package `json:"npm"`
	} `json:"packages"`
	Redirects map[string]string `json:"redirects"`
	Remote    map[string]string `json:"remote"`
}

type v4File struct {
	Version    string             `json:"version"`
	Specifiers map[string]string  `json:"specifiers"`
	Jsr        map[string]Package `json:"jsr"`
	Npm        map[string]Package `json:"npm"`
	Redirects  map[string]string  `json:"redirects"`
	Remote     map[string]string  `json:"remote"`
}

// New parses a lockfile.
func New(opts Options) (*Document, error) {
	doc := &Document{
		filePath:   opts.FilePath,
		version:    CurrentVersion,
		specifiers: make(map[depreq.Req]string),
		jsr:        make(map[string]Package),
		npm:        make(map[string]Package),
		redirects:  make(map[string]string),
		remote:     make(map[string]string),
	}
	if opts.Overwrite || strings.TrimSpace(opts.Content) == "" {
		return doc, nil
	}

	var head struct {
		Version *string `json:"version"`
	}
	if err := json.Unmarshal([]byte(opts.Content), &head); err != nil {
		return nil, invalid(opts.FilePath, err, "invalid lockfile JSON")
	}
	if head.Version == nil {
		return nil, invalid(opts.FilePath, nil, "missing lockfile version")
	}

	switch *head.Version {
	case "3":
		if err := doc.loadV3(opts.Content); err != nil {
			return nil, err
		}
	case "4", "5":
		if err := doc.loadV4(opts.Content); err != nil {
			return nil, err
		}
	default:
		return nil, invalid(opts.FilePath, nil, "unsupported lockfile version "+*head.Version)
	}
	doc.version = *head.Version
	return doc, nil
}

func (d *Document) loadV3(content string) error {
	var f v3File
	if err := json.Unmarshal([]byte(content), &f); err != nil {
		return invalid(d.filePath, err, "invalid version 3 lockfile")
	}
	if f.Packages != nil {
		for key, value := range f.Packages.Specifiers {
			req, err := depreq.Parse(key)
			if err != nil {
				return invalid(d.filePath, err, "invalid specifier key "+key)
			}
			d.specifiers[req] = stripPackagePrefix(value)
		}
		maps.Copy(d.jsr, f.Packages.Jsr)
		maps.Copy(d.npm, f.Packages.Npm)
	}
	maps.Copy(d.redirects, f.Redirects)
	maps.Copy(d.remote, f.Remote)
	return nil
}

func (d *Document) loadV4(content string) error {
	var f v4File
	if err := json.Unmarshal([]byte(content), &f); err != nil {
		return invalid(d.filePath, err, "invalid lockfile")
	}
	for key, value := range f.Specifiers {
		req, err := depreq.Parse(key)
		if err != nil {
			return invalid(d.filePath, err, "invalid specifier key "+key)
		}
		d.specifiers[req] = value
	}
	maps.Copy(d.jsr, f.Jsr)
	maps.Copy(d.npm, f.Npm)
	maps.Copy(d.redirects, f.Redirects)
	maps.Copy(d.remote, f.Remote)
	return nil
}

// stripPackagePrefix turns a version 3 value such as "npm:@types/node@20.1.0"
// into "20.1.0".
func stripPackagePrefix(value string) string {
	rest := value
	if i := strings.IndexByte(rest, ':'); i >= 0 {
		rest = rest[i+1:]
	}
	start := 0
	if strings.HasPrefix(rest, "@") {
		start = 1
	}
	at := strings.IndexByte(rest[start:], '@')
	if at < 0 {
		return value
	}
	return rest[start+at+1:]
}

// FilePath returns the identity the document was constructed with.
func (d *Document) FilePath() string { return d.filePath }

// Version returns the document format version.
func (d *Document) Version() string { return d.version }

// PackageVersion returns the locked version for req. Absence is reported
// through the boolean and is not an error.
func (d *Document) PackageVersion(req depreq.Req) (string, bool) {
	v, ok := d.specifiers[req]
	return v, ok
}

// Specifiers returns the specifier table keys in lexical order.
func (d *Document) Specifiers() []depreq.Req {
	out := make([]depreq.Req, 0, len(d.specifiers))
	for req := range d.specifiers {
		out = append(out, req)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// JsrPackage returns the locked entry for "name@version".
func (d *Document) JsrPackage(nv string) (Package, bool) {
	p, ok := d.jsr[nv]
	return p, ok
}

// NpmPackage returns the locked entry for "name@version".
func (d *Document) NpmPackage(nv string) (Package, bool) {
	p, ok := d.npm[nv]
	return p, ok
}

// Redirect returns the recorded redirect target of a remote URL.
func (d *Document) Redirect(from string) (string, bool) {
	to, ok := d.redirects[from]
	return to, ok
}

// RemoteChecksum returns the recorded checksum of a remote module.
func (d *Document) RemoteChecksum(url string) (string, bool) {
	sum, ok := d.remote[url]
	return sum, ok
}

func invalid(path string, cause error, detail string) *errors.Error {
	err := errors.InvalidData(errors.PhaseLockfile, path, detail)
	err.Cause = cause
	return err
}

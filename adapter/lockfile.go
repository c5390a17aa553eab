package adapter

import (
	"github.com/lucacasonato/esbuild-deno-loader/depreq"
	"github.com/lucacasonato/esbuild-deno-loader/lockfile"
)

// Lockfile is a read-only lock document handle.
type Lockfile struct {
	doc     *lockfile.Document
	content string
}

// NewLockfile parses content as the lockfile at filePath. Nothing is read
// from or written to filePath.
func NewLockfile(filePath, content string) (*Lockfile, error) {
	doc, err := lockfile.New(lockfile.Options{
		FilePath:  filePath,
		Content:   content,
		Overwrite: false,
	})
	if err != nil {
		return nil, err
	}
	return &Lockfile{doc: doc, content: content}, nil
}

// PackageVersion returns the locked version of a "jsr:" or "npm:"
// specifier. The boolean is false when the lockfile has no entry. An
// unparsable specifier is an error.
func (l *Lockfile) PackageVersion(specifier string) (string, bool, error) {
	req, err := depreq.Parse(specifier)
	if err != nil {
		return "", false, err
	}
	v, ok := l.doc.PackageVersion(req)
	return v, ok, nil
}

// FilePath returns the path the lockfile was constructed with.
func (l *Lockfile) FilePath() string { return l.doc.FilePath() }

// Content returns the raw text the lockfile was constructed from.
func (l *Lockfile) Content() string { return l.content }

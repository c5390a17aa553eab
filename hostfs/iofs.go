package hostfs

import (
	"errors"
	"io/fs"
	"strings"
)

// IOFS is a Host backed by an io/fs.FS. Host paths are absolute and
// slash-separated; the leading slash is dropped before the lookup, so
// "/proj/deno.json" is served from "proj/deno.json".
//
// Wrapping a testing/fstest.MapFS gives a deterministic in-memory host.
type IOFS struct {
	FS fs.FS
}

func (h IOFS) StatSync(path string) (Metadata, error) {
	name, err := fsName(path)
	if err != nil {
		return Metadata{}, err
	}
	info, serr := fs.Stat(h.FS, name)
	if serr != nil {
		return Metadata{}, mapFSError("stat", path, serr)
	}
	return metadataFromMode(info.Mode()), nil
}

func (h IOFS) ReadToStringLossy(path string) (string, error) {
	name, err := fsName(path)
	if err != nil {
		return "", err
	}
	data, rerr := fs.ReadFile(h.FS, name)
	if rerr != nil {
		return "", mapFSError("read", path, rerr)
	}
	return Lossy(data), nil
}

func (h IOFS) ReadDir(path string) ([]DirEntry, error) {
	name, err := fsName(path)
	if err != nil {
		return nil, err
	}
	entries, rerr := fs.ReadDir(h.FS, name)
	if rerr != nil {
		return nil, mapFSError("readdir", path, rerr)
	}
	out := make([]DirEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, DirEntry{Name: e.Name(), Metadata: metadataFromMode(e.Type())})
	}
	return out, nil
}

func fsName(path string) (string, *Error) {
	name := strings.TrimPrefix(path, "/")
	name = strings.TrimSuffix(name, "/")
	if name == "" {
		name = "."
	}
	if !fs.ValidPath(name) {
		return "", &Error{Message: "invalid path " + path, Code: "EINVAL"}
	}
	return name, nil
}

func mapFSError(op, path string, err error) *Error {
	msg := op + " " + path + ": "
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		msg += pathErr.Err.Error()
	} else {
		msg += err.Error()
	}
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return &Error{Message: msg, Code: CodeNotFound}
	case errors.Is(err, fs.ErrPermission):
		return &Error{Message: msg, Code: "EACCES"}
	}
	return &Error{Message: msg}
}

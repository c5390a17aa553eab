package hostfs

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"
)

// OS is a Host backed by the operating system filesystem. Stat follows
// symlinks; directory entries report symlinks as such.
type OS struct{}

func (OS) StatSync(path string) (Metadata, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Metadata{}, mapOSError(err)
	}
	return metadataFromMode(info.Mode()), nil
}

func (OS) ReadToStringLossy(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", mapOSError(err)
	}
	return Lossy(data), nil
}

func (OS) ReadDir(path string) ([]DirEntry, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, mapOSError(err)
	}
	out := make([]DirEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, DirEntry{Name: e.Name(), Metadata: metadataFromMode(e.Type())})
	}
	return out, nil
}

func metadataFromMode(mode fs.FileMode) Metadata {
	return Metadata{
		IsFile:      mode.IsRegular(),
		IsDirectory: mode.IsDir(),
		IsSymlink:   mode&fs.ModeSymlink != 0,
	}
}

func mapOSError(err error) *Error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		msg = pathErr.Op + " " + filepath.ToSlash(pathErr.Path) + ": " + pathErr.Err.Error()
	}
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return &Error{Message: msg, Code: CodeNotFound}
	case errors.Is(err, fs.ErrPermission):
		return &Error{Message: msg, Code: "EACCES"}
	case errors.Is(err, fs.ErrExist):
		return &Error{Message: msg, Code: "EEXIST"}
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return &Error{Message: msg, Code: errnoCode(errno)}
	}
	return &Error{Message: msg}
}

func errnoCode(errno syscall.Errno) string {
	switch errno {
	case syscall.ENOENT:
		return CodeNotFound
	case syscall.EACCES, syscall.EPERM:
		return "EACCES"
	case syscall.EEXIST:
		return "EEXIST"
	case syscall.ENOTDIR:
		return "ENOTDIR"
	case syscall.EISDIR:
		return "EISDIR"
	case syscall.ENAMETOOLONG:
		return "ENAMETOOLONG"
	case syscall.ELOOP:
		return "ELOOP"
	case syscall.EBUSY:
		return "EBUSY"
	case syscall.EINVAL:
		return "EINVAL"
	default:
		return "EIO"
	}
}

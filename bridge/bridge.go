package bridge

import (
	denoloader "github.com/lucacasonato/esbuild-deno-loader"
	"github.com/lucacasonato/esbuild-deno-loader/hostfs"
)

// FS forwards capability filesystem calls to a host.
type FS struct {
	host hostfs.Host
}

// New returns an FS forwarding to host.
func New(host hostfs.Host) *FS {
	return &FS{host: host}
}

func (f *FS) Stat(path string) (denoloader.Metadata, error) {
	md, err := f.host.StatSync(path)
	if err != nil {
		return denoloader.Metadata{}, Project(path, err)
	}
	return convertMetadata(md), nil
}

func (f *FS) ReadText(path string) (string, error) {
	text, err := f.host.ReadToStringLossy(path)
	if err != nil {
		return "", Project(path, err)
	}
	return text, nil
}

func (f *FS) ListDir(path string) ([]denoloader.DirEntry, error) {
	entries, err := f.host.ReadDir(path)
	if err != nil {
		return nil, Project(path, err)
	}
	out := make([]denoloader.DirEntry, len(entries))
	for i, e := range entries {
		out[i] = denoloader.DirEntry{
			Name:     e.Name,
			Path:     Join(path, e.Name),
			Metadata: convertMetadata(e.Metadata),
		}
	}
	return out, nil
}

// Join appends a single path component to dir with a forward slash.
func Join(dir, name string) string {
	if dir == "" {
		return name
	}
	if dir[len(dir)-1] == '/' {
		return dir + name
	}
	return dir + "/" + name
}

func convertMetadata(md hostfs.Metadata) denoloader.Metadata {
	return denoloader.Metadata{
		IsFile:      md.IsFile,
		IsDirectory: md.IsDirectory,
		IsSymlink:   md.IsSymlink,
	}
}

var (
	_ denoloader.FS         = (*FS)(nil)
	_ denoloader.ReadTextFS = (*FS)(nil)
)

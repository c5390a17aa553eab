package denoloader

// Metadata describes the kind of a filesystem entry.
// A path is expected to be exactly one kind.
type Metadata struct {
	IsFile      bool
	IsDirectory bool
	IsSymlink   bool
}

// DirEntry is a single directory listing entry.
// Name is the bare component, Path is Name joined onto the listed directory.
type DirEntry struct {
	Name     string
	Path     string
	Metadata Metadata
}

// FS is the synchronous filesystem capability the resolution engine is
// written against. Implementations must not suspend; each call either
// returns or fails.
type FS interface {
	Stat(path string) (Metadata, error)
	ReadText(path string) (string, error)
	ListDir(path string) ([]DirEntry, error)
}

// ReadTextFS is the text-read subset of FS needed after discovery.
type ReadTextFS interface {
	ReadText(path string) (string, error)
}

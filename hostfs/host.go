package hostfs

// Host answers capability filesystem calls on behalf of a guest.
// Method names follow the host function names stat_sync,
// read_to_string_lossy and read_dir.
type Host interface {
	StatSync(path string) (Metadata, error)
	ReadToStringLossy(path string) (string, error)
	ReadDir(path string) ([]DirEntry, error)
}

// Funcs is a Host built from function values. A nil function fails every
// call with a generic error.
type Funcs struct {
	Stat     func(path string) (Metadata, error)
	ReadText func(path string) (string, error)
	List     func(path string) ([]DirEntry, error)
}

func (f Funcs) StatSync(path string) (Metadata, error) {
	if f.Stat == nil {
		return Metadata{}, missingFunc("stat_sync")
	}
	return f.Stat(path)
}

func (f Funcs) ReadToStringLossy(path string) (string, error) {
	if f.ReadText == nil {
		return "", missingFunc("read_to_string_lossy")
	}
	return f.ReadText(path)
}

func (f Funcs) ReadDir(path string) ([]DirEntry, error) {
	if f.List == nil {
		return nil, missingFunc("read_dir")
	}
	return f.List(path)
}

func missingFunc(name string) *Error {
	return &Error{Message: "host function " + name + " is not provided"}
}

var (
	_ Host = Funcs{}
	_ Host = OS{}
	_ Host = IOFS{}
)

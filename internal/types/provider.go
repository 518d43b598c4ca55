package types

// Provider is the read-only view of a scan root or project root that
// discovery and resolvers work through. Paths are slash separated and
// relative to the base path; "." is the base itself.
type Provider interface {
	ListDir(path string) ([]File, error)
	ReadFile(path string) ([]byte, error)
	Exists(path string) bool
	GetBasePath() string
}

// FileKind tells directories, regular files and symbolic links apart
type FileKind int

const (
	KindFile FileKind = iota
	KindDir
	// KindSymlinkDir is a symbolic link to a directory. Package managers
	// such as pnpm link workspace members into node_modules, so following
	// these can loop.
	KindSymlinkDir
)

// File is one directory entry
type File struct {
	Name string
	Path string // relative to the provider base, slash separated
	Kind FileKind
}

// IsDir reports whether the entry is a real directory
func (f File) IsDir() bool {
	return f.Kind == KindDir
}

package provider

import (
	"fmt"
	"io/fs"
	"path"
	"sort"

	"github.com/petrarca/dependency-resolver/internal/types"
)

// FakeProvider implements the Provider interface in memory for tests
type FakeProvider struct {
	basePath string
	dirs     map[string]map[string]types.File
	content  map[string]string
	failing  map[string]bool
}

// NewFakeProvider creates an empty fake file system reporting basePath as its root
func NewFakeProvider(basePath string) *FakeProvider {
	p := &FakeProvider{
		basePath: basePath,
		dirs:     make(map[string]map[string]types.File),
		content:  make(map[string]string),
		failing:  make(map[string]bool),
	}
	p.dirs["."] = make(map[string]types.File)
	return p
}

// AddFile adds a file and every missing parent directory
func (p *FakeProvider) AddFile(filePath, content string) {
	filePath = path.Clean(filePath)
	dir := path.Dir(filePath)
	p.AddDir(dir)
	p.dirs[dir][path.Base(filePath)] = types.File{
		Name: path.Base(filePath),
		Path: filePath,
		Kind: types.KindFile,
	}
	p.content[filePath] = content
}

// AddDir adds a directory and every missing parent directory
func (p *FakeProvider) AddDir(dirPath string) {
	dirPath = path.Clean(dirPath)
	if _, ok := p.dirs[dirPath]; ok {
		return
	}
	p.dirs[dirPath] = make(map[string]types.File)
	if dirPath == "." {
		return
	}
	parent := path.Dir(dirPath)
	p.AddDir(parent)
	p.dirs[parent][path.Base(dirPath)] = types.File{
		Name: path.Base(dirPath),
		Path: dirPath,
		Kind: types.KindDir,
	}
}

// AddDirLink adds a symbolic link to a directory at linkPath
func (p *FakeProvider) AddDirLink(linkPath string) {
	linkPath = path.Clean(linkPath)
	parent := path.Dir(linkPath)
	p.AddDir(parent)
	p.dirs[parent][path.Base(linkPath)] = types.File{
		Name: path.Base(linkPath),
		Path: linkPath,
		Kind: types.KindSymlinkDir,
	}
}

// FailDir makes listing dirPath return a permission error
func (p *FakeProvider) FailDir(dirPath string) {
	p.failing[path.Clean(dirPath)] = true
}

// ListDir returns the contents of a directory in name order
func (p *FakeProvider) ListDir(dirPath string) ([]types.File, error) {
	dirPath = path.Clean(dirPath)
	if p.failing[dirPath] {
		return nil, &fs.PathError{Op: "open", Path: dirPath, Err: fs.ErrPermission}
	}
	entries, ok := p.dirs[dirPath]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: dirPath, Err: fs.ErrNotExist}
	}

	files := make([]types.File, 0, len(entries))
	for _, f := range entries {
		files = append(files, f)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// ReadFile returns the content registered with AddFile
func (p *FakeProvider) ReadFile(filePath string) ([]byte, error) {
	content, ok := p.content[path.Clean(filePath)]
	if !ok {
		return nil, fmt.Errorf("read %s: %w", filePath, fs.ErrNotExist)
	}
	return []byte(content), nil
}

// Exists checks if a file or directory exists
func (p *FakeProvider) Exists(filePath string) bool {
	filePath = path.Clean(filePath)
	_, isFile := p.content[filePath]
	_, isDir := p.dirs[filePath]
	return isFile || isDir
}

// GetBasePath returns the base path reported for this provider
func (p *FakeProvider) GetBasePath() string {
	return p.basePath
}

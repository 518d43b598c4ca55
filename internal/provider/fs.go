package provider

import (
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/petrarca/dependency-resolver/internal/types"
)

// FSProvider reads from the local file system below rootPath
type FSProvider struct {
	rootPath string
}

// NewFSProvider creates a provider rooted at rootPath
func NewFSProvider(rootPath string) *FSProvider {
	return &FSProvider{rootPath: filepath.Clean(rootPath)}
}

// ListDir returns the entries of dir. Symbolic links to directories are
// reported as KindSymlinkDir and never resolved further.
func (p *FSProvider) ListDir(dir string) ([]types.File, error) {
	entries, err := os.ReadDir(p.fullPath(dir))
	if err != nil {
		return nil, err
	}

	base := cleanRel(dir)
	files := make([]types.File, 0, len(entries))
	for _, entry := range entries {
		kind, ok := p.kindOf(dir, entry)
		if !ok {
			continue
		}
		rel := entry.Name()
		if base != "." {
			rel = path.Join(base, entry.Name())
		}
		files = append(files, types.File{Name: entry.Name(), Path: rel, Kind: kind})
	}
	return files, nil
}

// kindOf classifies entry; false means it vanished or is a dangling link
func (p *FSProvider) kindOf(dir string, entry fs.DirEntry) (types.FileKind, bool) {
	mode := entry.Type()
	switch {
	case mode.IsDir():
		return types.KindDir, true
	case mode&fs.ModeSymlink != 0:
		target, err := os.Stat(filepath.Join(p.fullPath(dir), entry.Name()))
		if err != nil {
			return 0, false
		}
		if target.IsDir() {
			return types.KindSymlinkDir, true
		}
		return types.KindFile, true
	case mode.IsRegular():
		return types.KindFile, true
	}
	// sockets, devices and pipes never hold manifests
	return 0, false
}

// ReadFile reads file content as bytes
func (p *FSProvider) ReadFile(file string) ([]byte, error) {
	return os.ReadFile(p.fullPath(file))
}

// Exists checks if a file or directory exists
func (p *FSProvider) Exists(file string) bool {
	_, err := os.Stat(p.fullPath(file))
	return err == nil
}

// GetBasePath returns the absolute root of this provider
func (p *FSProvider) GetBasePath() string {
	return p.rootPath
}

func (p *FSProvider) fullPath(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	rel = cleanRel(rel)
	if rel == "." {
		return p.rootPath
	}
	return filepath.Join(p.rootPath, filepath.FromSlash(rel))
}

// cleanRel normalizes a relative path to slash form without a leading "./"
func cleanRel(rel string) string {
	rel = filepath.ToSlash(rel)
	rel = strings.TrimPrefix(rel, "./")
	if rel == "" {
		return "."
	}
	return path.Clean(rel)
}

package resolver

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Session scopes the temporary files of one scan. Every resolver invocation
// gets its own folder inside the session folder, so parallel invocations
// never share paths.
type Session struct {
	ID     string
	dir    string
	logger *slog.Logger
}

// NewSession creates the session folder below baseDir (the system temp
// folder when empty)
func NewSession(baseDir string, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if baseDir == "" {
		baseDir = os.TempDir()
	}

	id := uuid.NewString()
	dir := filepath.Join(baseDir, "dep-resolver-"+id)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}
	logger.Debug("Created scan session", "id", id, "dir", dir)
	return &Session{ID: id, dir: dir, logger: logger}, nil
}

// Dir returns the session folder
func (s *Session) Dir() string {
	return s.dir
}

// TempDir creates a fresh folder for one invocation. The returned cleanup
// removes it and is safe to call more than once.
func (s *Session) TempDir(prefix string) (string, func(), error) {
	dir, err := os.MkdirTemp(s.dir, prefix+"-")
	if err != nil {
		return "", func() {}, fmt.Errorf("failed to create temp directory: %w", err)
	}
	cleanup := func() {
		if err := os.RemoveAll(dir); err != nil {
			s.logger.Warn("Failed to remove temp directory", "dir", dir, "error", err)
		}
	}
	return dir, cleanup, nil
}

// Close removes the session folder and everything left in it
func (s *Session) Close() error {
	if err := os.RemoveAll(s.dir); err != nil {
		return fmt.Errorf("failed to remove session directory: %w", err)
	}
	return nil
}

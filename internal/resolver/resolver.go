// Package resolver defines the contract every ecosystem resolver implements and
// the per-invocation context handed to it.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/petrarca/dependency-resolver/internal/execx"
	"github.com/petrarca/dependency-resolver/internal/glob"
	"github.com/petrarca/dependency-resolver/internal/hashing"
	"github.com/petrarca/dependency-resolver/internal/types"
)

var (
	// ErrToolFailed is returned when a build tool ran but did not produce usable output
	ErrToolFailed = errors.New("build tool failed")
	// ErrNoManifest is returned when a project root owns none of the files a resolver reads
	ErrNoManifest = errors.New("no supported manifest")
)

// Resolver turns the manifests of one project root into dependency forests
type Resolver interface {
	// Name returns the ecosystem id (e.g., "maven", "npm")
	Name() string

	// DependencyType returns the tag put on every node this resolver produces
	DependencyType() types.DependencyType

	// Resolve builds the result for one project root. Returning an error means
	// nothing usable was produced; partial problems belong in the result's warnings.
	Resolve(ctx context.Context, req *Request) (*types.ResolutionResult, error)
}

// Options carries the tool related settings resolvers read
type Options struct {
	RunTools            bool
	GradleConfiguration string
	MavenCommand        string
	GradleCommand       string
	GoCommand           string
	PythonCommand       string
	SbtCommand          string
	BundleCommand       string
	DotnetCommand       string
}

// DefaultOptions returns the options used when nothing is configured
func DefaultOptions() Options {
	return Options{
		RunTools:            true,
		GradleConfiguration: "runtimeClasspath",
		MavenCommand:        "mvn",
		GradleCommand:       "gradle",
		GoCommand:           "go",
		PythonCommand:       "python3",
		SbtCommand:          "sbt",
		BundleCommand:       "bundle",
		DotnetCommand:       "dotnet",
	}
}

// Request is everything a resolver needs for one project root
type Request struct {
	Root    types.ProjectRoot
	FS      types.Provider // rooted at Root.Path
	Exec    execx.Executor
	Hasher  hashing.Hasher
	Session *Session
	Options Options
	Logger  *slog.Logger
}

// Log returns the request logger, never nil
func (r *Request) Log() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}

// Manifests returns the owned manifests whose file name ends with one of
// suffixes, compared case-insensitively
func (r *Request) Manifests(suffixes ...string) []string {
	var out []string
	for _, m := range r.Root.Manifests {
		name := strings.ToLower(filepath.Base(m))
		for _, suffix := range suffixes {
			if strings.HasSuffix(name, strings.ToLower(suffix)) {
				out = append(out, m)
				break
			}
		}
	}
	return out
}

// Rel returns path relative to the project root with forward slashes
func (r *Request) Rel(path string) string {
	rel, err := filepath.Rel(r.Root.Path, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// ReadFile reads a file below the project root; path may be absolute or relative
func (r *Request) ReadFile(path string) ([]byte, error) {
	if filepath.IsAbs(path) {
		path = r.Rel(path)
	}
	return r.FS.ReadFile(path)
}

// Exists reports whether a file below the project root exists
func (r *Request) Exists(path string) bool {
	if filepath.IsAbs(path) {
		path = r.Rel(path)
	}
	return r.FS.Exists(path)
}

// Glob returns the files below dir whose path relative to dir matches
// pattern. Both dir and the returned paths are relative to the project root.
func (r *Request) Glob(dir, pattern string) ([]string, error) {
	matcher, err := glob.NewMatcher([]string{pattern}, nil, true)
	if err != nil {
		return nil, err
	}
	dir = filepath.ToSlash(filepath.Clean(dir))

	var found []string
	var visit func(rel string)
	visit = func(rel string) {
		entries, err := r.FS.ListDir(rel)
		if err != nil {
			return
		}
		for _, entry := range entries {
			child := entry.Path
			if entry.IsDir() {
				visit(child)
				continue
			}
			sub := child
			if dir != "." {
				sub = strings.TrimPrefix(child, dir+"/")
			}
			if matcher.Match(sub) {
				found = append(found, child)
			}
		}
	}
	visit(dir)
	sort.Strings(found)
	return found, nil
}

// Run executes a build tool in dir. A non-zero exit is turned into an error
// wrapping ErrToolFailed that carries the last lines of stderr.
func (r *Request) Run(ctx context.Context, dir string, argv ...string) (*execx.Result, error) {
	if r.Exec == nil {
		return nil, fmt.Errorf("%s: %w", argv[0], execx.ErrNotFound)
	}
	result, err := r.Exec.Execute(ctx, dir, argv...)
	if err != nil {
		return nil, err
	}
	if !result.Success() {
		return result, fmt.Errorf("%s exited with status %d: %w%s", argv[0], result.ExitCode, ErrToolFailed, stderrTail(result.Stderr))
	}
	return result, nil
}

// RunFirst runs the first available command of candidates. Only a missing
// binary moves on to the next candidate; any other failure is returned as is.
func (r *Request) RunFirst(ctx context.Context, dir string, candidates ...[]string) (*execx.Result, error) {
	err := fmt.Errorf("no build tool available: %w", execx.ErrNotFound)
	for _, argv := range candidates {
		if len(argv) == 0 {
			continue
		}
		result, runErr := r.Run(ctx, dir, argv...)
		if runErr == nil {
			return result, nil
		}
		if !errors.Is(runErr, execx.ErrNotFound) {
			return result, runErr
		}
		err = runErr
	}
	return nil, err
}

// Wrapper returns the command line invoking a wrapper script (mvnw, gradlew)
// of the project root with args, or nil when the project has no such script
func (r *Request) Wrapper(name string, args ...string) []string {
	if !r.Exists(name) {
		return nil
	}
	return append([]string{filepath.Join(r.Root.Path, name)}, args...)
}

// Digest returns the SHA-1 of a file if a hasher is configured and the file
// exists; otherwise it returns an empty string
func (r *Request) Digest(path string) string {
	if r.Hasher == nil {
		return ""
	}
	digest, err := r.Hasher.SHA1(path)
	if err != nil {
		r.Log().Debug("Cannot hash artifact", "path", path, "error", err)
		return ""
	}
	return digest
}

func stderrTail(lines []string) string {
	const max = 3
	var kept []string
	for i := len(lines) - 1; i >= 0 && len(kept) < max; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			kept = append([]string{line}, kept...)
		}
	}
	if len(kept) == 0 {
		return ""
	}
	return ": " + strings.Join(kept, " | ")
}

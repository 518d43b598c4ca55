package git

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

var commitRefRegex = regexp.MustCompile(`^[0-9a-f]{7,40}$`)

// GitInfo contains git repository information
type GitInfo struct {
	Branch    string `json:"branch,omitempty" yaml:"branch,omitempty"`
	Commit    string `json:"commit,omitempty" yaml:"commit,omitempty"`
	IsDirty   bool   `json:"is_dirty" yaml:"is_dirty"`
	RemoteURL string `json:"remote_url,omitempty" yaml:"remote_url,omitempty"`
}

// GetGitInfo retrieves repository information for the given path.
// Returns nil when path is not inside a git working tree.
func GetGitInfo(path string) *GitInfo {
	info, _ := GetGitInfoWithRoot(path)
	return info
}

// GetGitInfoWithRoot retrieves git info and returns the repository root path
func GetGitInfoWithRoot(path string) (*GitInfo, string) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, ""
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return nil, ""
	}
	repoRoot := worktree.Filesystem.Root()

	gitInfo := &GitInfo{}

	head, err := repo.Head()
	if err == nil {
		gitInfo.Commit = head.Hash().String()[:7]
		if head.Name().IsBranch() {
			gitInfo.Branch = head.Name().Short()
		} else {
			gitInfo.Branch = "HEAD"
		}
	}

	if status, err := worktree.Status(); err == nil {
		gitInfo.IsDirty = !status.IsClean()
	}

	if remoteConfig, err := repo.Config(); err == nil {
		if origin := remoteConfig.Remotes["origin"]; origin != nil && len(origin.URLs) > 0 {
			gitInfo.RemoteURL = sanitizeRemoteURL(origin.URLs[0])
		}
	}

	return gitInfo, repoRoot
}

// CloneOptions describes a repository to check out for scanning
type CloneOptions struct {
	URL    string
	Ref    string // branch, tag or commit; empty means the remote HEAD
	Dest   string
	Logger *slog.Logger
}

// Clone checks out a repository into opts.Dest. The resulting folder is scanned
// like any other scan root.
func Clone(ctx context.Context, opts CloneOptions) error {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("Cloning repository", "url", sanitizeRemoteURL(opts.URL), "ref", opts.Ref, "dest", opts.Dest)

	if opts.Ref != "" && commitRefRegex.MatchString(opts.Ref) {
		return cloneAtCommit(ctx, opts)
	}

	cloneOpts := &git.CloneOptions{
		URL:          opts.URL,
		Depth:        1,
		SingleBranch: true,
	}
	if opts.Ref == "" {
		_, err := git.PlainCloneContext(ctx, opts.Dest, false, cloneOpts)
		if err != nil {
			return fmt.Errorf("failed to clone %s: %w", sanitizeRemoteURL(opts.URL), err)
		}
		return nil
	}

	cloneOpts.ReferenceName = plumbing.NewBranchReferenceName(opts.Ref)
	_, err := git.PlainCloneContext(ctx, opts.Dest, false, cloneOpts)
	if err == nil {
		return nil
	}

	logger.Debug("Branch clone failed, trying tag", "ref", opts.Ref, "error", err)
	if err := os.RemoveAll(opts.Dest); err != nil {
		return err
	}
	cloneOpts.ReferenceName = plumbing.NewTagReferenceName(opts.Ref)
	if _, err := git.PlainCloneContext(ctx, opts.Dest, false, cloneOpts); err != nil {
		return fmt.Errorf("failed to clone %s at %s: %w", sanitizeRemoteURL(opts.URL), opts.Ref, err)
	}
	return nil
}

func cloneAtCommit(ctx context.Context, opts CloneOptions) error {
	repo, err := git.PlainCloneContext(ctx, opts.Dest, false, &git.CloneOptions{URL: opts.URL})
	if err != nil {
		return fmt.Errorf("failed to clone %s: %w", sanitizeRemoteURL(opts.URL), err)
	}

	hash, err := repo.ResolveRevision(plumbing.Revision(opts.Ref))
	if err != nil {
		return fmt.Errorf("failed to resolve commit %s: %w", opts.Ref, err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return err
	}
	if err := worktree.Checkout(&git.CheckoutOptions{Hash: *hash}); err != nil {
		return fmt.Errorf("failed to check out %s: %w", opts.Ref, err)
	}
	return nil
}

// sanitizeRemoteURL strips credentials from http(s) remote URLs
func sanitizeRemoteURL(raw string) string {
	if raw == "" {
		return ""
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	u.User = nil
	return u.String()
}

// normalizeRemoteURL converts various git URL formats to a consistent format
func normalizeRemoteURL(url string) string {
	url = strings.TrimPrefix(url, "https://")
	url = strings.TrimPrefix(url, "http://")
	url = strings.TrimPrefix(url, "git@")
	url = strings.TrimPrefix(url, "git://")
	url = strings.TrimSuffix(url, ".git")

	if strings.Contains(url, ":") && strings.Contains(url, "@") {
		url = strings.Replace(url, ":", "/", 1)
	}

	return strings.TrimSuffix(url, "/")
}

// SourceID derives a stable identifier for a scan from its roots: the
// normalized remote URL when the first root is in a repository with an origin,
// the cleaned path otherwise, followed by the sorted remaining roots.
func SourceID(roots []string) string {
	if len(roots) == 0 {
		return ""
	}

	base := filepath.Clean(roots[0])
	if info, repoRoot := GetGitInfoWithRoot(roots[0]); info != nil && info.RemoteURL != "" {
		base = normalizeRemoteURL(info.RemoteURL)
		if rel, err := filepath.Rel(repoRoot, roots[0]); err == nil && rel != "." {
			base += ":" + filepath.ToSlash(rel)
		}
	}

	rest := make([]string, 0, len(roots)-1)
	for _, r := range roots[1:] {
		rest = append(rest, filepath.ToSlash(filepath.Clean(r)))
	}
	sort.Strings(rest)

	content := strings.Join(append([]string{base}, rest...), ":")
	hash := sha256.Sum256([]byte(content))
	return hex.EncodeToString(hash[:])[:20]
}

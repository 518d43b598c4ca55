package dispatch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petrarca/dependency-resolver/internal/catalog"
	"github.com/petrarca/dependency-resolver/internal/execx"
	"github.com/petrarca/dependency-resolver/internal/resolver"
	"github.com/petrarca/dependency-resolver/internal/types"
)

type fakeResolver struct {
	name    string
	resolve func(ctx context.Context, req *resolver.Request) (*types.ResolutionResult, error)
}

func (f *fakeResolver) Name() string                         { return f.name }
func (f *fakeResolver) DependencyType() types.DependencyType { return types.DependencyTypeMaven }
func (f *fakeResolver) Resolve(ctx context.Context, req *resolver.Request) (*types.ResolutionResult, error) {
	return f.resolve(ctx, req)
}

// resolveOne returns a single dependency named after the project folder
func resolveOne(_ context.Context, req *resolver.Request) (*types.ResolutionResult, error) {
	res := types.NewResolutionResult(types.DependencyTypeMaven, req.Root)
	res.AddProject("main", []*types.DependencyNode{{
		GroupID:    "org.example",
		ArtifactID: filepath.Base(req.Root.Path),
		Version:    "1.0",
		Type:       types.DependencyTypeMaven,
	}})
	return res, nil
}

func lookup(resolvers ...*fakeResolver) func(string) (resolver.Resolver, bool) {
	byName := make(map[string]resolver.Resolver)
	for _, r := range resolvers {
		byName[r.name] = r
	}
	return func(id string) (resolver.Resolver, bool) {
		r, ok := byName[id]
		return r, ok
	}
}

func ecosystem(id string, patterns ...string) catalog.Ecosystem {
	return catalog.Ecosystem{ID: id, Type: "maven", Patterns: patterns}
}

func writeTree(t *testing.T, files ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, f := range files {
		path := filepath.Join(root, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	}
	return root
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestResolve_FailureIsolation(t *testing.T) {
	root := writeTree(t, "a/pom.xml", "b/pom.xml", "c/pom.xml")

	good := &fakeResolver{name: "good", resolve: resolveOne}
	bad := &fakeResolver{name: "bad", resolve: func(ctx context.Context, req *resolver.Request) (*types.ResolutionResult, error) {
		if filepath.Base(req.Root.Path) == "b" {
			return nil, errors.New("mvn exited with status 1")
		}
		return resolveOne(ctx, req)
	}}
	panicky := &fakeResolver{name: "panicky", resolve: func(context.Context, *resolver.Request) (*types.ResolutionResult, error) {
		panic("index out of range")
	}}

	d := New(Options{
		Ecosystems: []catalog.Ecosystem{
			ecosystem("bad", "**/pom.xml"),
			ecosystem("panicky", "**/pom.xml"),
			ecosystem("good", "**/pom.xml"),
		},
		Workers: 4,
		Lookup:  lookup(good, bad, panicky),
		Logger:  quietLogger(),
	})

	results, err := d.Resolve(context.Background(), []string{root}, nil)
	require.NoError(t, err)
	require.Len(t, results, 9)

	// bad: b failed, a and c resolved
	assert.False(t, results[0].IsEmpty())
	assert.True(t, results[1].IsEmpty())
	require.Len(t, results[1].Warnings, 1)
	assert.Contains(t, results[1].Warnings[0], "mvn exited with status 1")
	assert.False(t, results[2].IsEmpty())

	// panicky: every root failed without taking the scan down
	for _, res := range results[3:6] {
		assert.True(t, res.IsEmpty())
		require.Len(t, res.Warnings, 1)
		assert.Contains(t, res.Warnings[0], "panicked")
	}

	// good is unaffected by the others
	for i, name := range []string{"a", "b", "c"} {
		res := results[6+i]
		assert.Equal(t, filepath.Join(root, name), res.ProjectRoot)
		assert.Equal(t, 1, res.DependencyCount())
		assert.Empty(t, res.Warnings)
	}
}

func TestResolve_FailingBuildToolIsIsolated(t *testing.T) {
	root := t.TempDir()
	pom := func(artifact string) string {
		return `<project>
  <groupId>com.example</groupId>
  <artifactId>` + artifact + `</artifactId>
  <version>1.0.0</version>
  <dependencies>
    <dependency><groupId>org.slf4j</groupId><artifactId>slf4j-api</artifactId><version>2.0.9</version></dependency>
  </dependencies>
</project>`
	}
	for _, name := range []string{"billing", "payments"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, name), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(root, name, "pom.xml"), []byte(pom(name)), 0o644))
	}
	billing, payments := filepath.Join(root, "billing"), filepath.Join(root, "payments")

	fake := execx.NewFakeExecutor().
		OnResultIn(billing, "mvn -B dependency:tree", &execx.Result{
			ExitCode: 1,
			Stderr:   []string{"[ERROR] Failed to execute goal on project billing: Could not resolve dependencies"},
		}).
		On("mvn -B dependency:tree", strings.Split(`[INFO] --- dependency:3.6.1:tree (default-cli) @ payments ---
[INFO] com.example:payments:jar:1.0.0
[INFO] \- org.slf4j:slf4j-api:jar:2.0.9:compile
[INFO] BUILD SUCCESS`, "\n")...)

	d := New(Options{
		Ecosystems: []catalog.Ecosystem{ecosystem("maven", "**/pom.xml")},
		Workers:    2,
		Resolver:   resolver.DefaultOptions(),
		Exec:       fake,
		Logger:     quietLogger(),
	})

	results, err := d.Resolve(context.Background(), []string{root}, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)

	failed, ok := results[0], results[1]
	assert.Equal(t, billing, failed.ProjectRoot)
	require.Len(t, failed.Warnings, 1)
	assert.Contains(t, failed.Warnings[0], "status 1")
	assert.Contains(t, failed.Warnings[0], "Could not resolve dependencies")
	assert.Equal(t, []string{"com.example:billing"}, failed.ProjectNames(), "declared dependencies are used")

	assert.Equal(t, payments, ok.ProjectRoot)
	assert.Empty(t, ok.Warnings)
	require.Len(t, ok.Projects["com.example:payments"], 1)
	assert.Equal(t, "slf4j-api", ok.Projects["com.example:payments"][0].ArtifactID)

	assert.Len(t, fake.Calls(), 2)
}

func TestResolve_DeterministicOrder(t *testing.T) {
	var files []string
	for _, name := range []string{"e", "b", "d", "a", "c"} {
		files = append(files, name+"/pom.xml")
	}
	root := writeTree(t, files...)

	d := New(Options{
		Ecosystems: []catalog.Ecosystem{ecosystem("good", "**/pom.xml")},
		Workers:    3,
		Lookup:     lookup(&fakeResolver{name: "good", resolve: resolveOne}),
		Logger:     quietLogger(),
	})

	for i := 0; i < 3; i++ {
		results, err := d.Resolve(context.Background(), []string{root}, nil)
		require.NoError(t, err)

		var got []string
		for _, res := range results {
			got = append(got, filepath.Base(res.ProjectRoot))
		}
		assert.Equal(t, []string{"a", "b", "c", "d", "e"}, got)
	}
}

func TestResolve_TopFolderAbsorbsNestedManifests(t *testing.T) {
	root := writeTree(t, "a/pom.xml", "a/b/pom.xml", "c/pom.xml")

	d := New(Options{
		Ecosystems: []catalog.Ecosystem{ecosystem("good", "**/pom.xml")},
		Workers:    1,
		Lookup:     lookup(&fakeResolver{name: "good", resolve: resolveOne}),
		Logger:     quietLogger(),
	})

	results, err := d.Resolve(context.Background(), []string{root}, nil)
	require.NoError(t, err)

	var seen []types.ProjectRoot
	for _, res := range results {
		seen = append(seen, types.ProjectRoot{Path: res.ProjectRoot, Manifests: res.Manifests})
	}

	require.Len(t, seen, 2)
	assert.Equal(t, filepath.Join(root, "a"), seen[0].Path)
	assert.ElementsMatch(t, []string{
		filepath.Join(root, "a", "pom.xml"),
		filepath.Join(root, "a", "b", "pom.xml"),
	}, seen[0].Manifests)
	assert.Equal(t, filepath.Join(root, "c"), seen[1].Path)
}

func TestResolve_ExcludesAreRelativeToScanRoot(t *testing.T) {
	root := writeTree(t, "pom.xml", "services/api/pom.xml")

	d := New(Options{
		Ecosystems: []catalog.Ecosystem{
			{ID: "good", Type: "maven", Patterns: []string{"**/pom.xml"}, ScanAllFolders: true},
		},
		Lookup: lookup(&fakeResolver{name: "good", resolve: resolveOne}),
		Logger: quietLogger(),
	})

	results, err := d.Resolve(context.Background(), []string{root}, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, []string{"**/pom.xml"}, results[0].Excludes)
	assert.Equal(t, []string{"services/api/**/pom.xml"}, results[1].Excludes)
}

func TestResolve_IgnoreSourceFiles(t *testing.T) {
	root := writeTree(t, "app/pom.xml")

	d := New(Options{
		Ecosystems: []catalog.Ecosystem{
			{ID: "good", Type: "maven", Patterns: []string{"**/pom.xml"}, Extensions: []string{".java"}},
		},
		IgnoreSourceFiles: true,
		Lookup:            lookup(&fakeResolver{name: "good", resolve: resolveOne}),
		Logger:            quietLogger(),
	})

	results, err := d.Resolve(context.Background(), []string{root}, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, []string{"app/**/pom.xml", "app/**/*.java"}, results[0].Excludes)
}

func TestResolve_GlobalExcludes(t *testing.T) {
	root := writeTree(t, "a/pom.xml", "vendor/x/pom.xml")

	d := New(Options{
		Ecosystems: []catalog.Ecosystem{ecosystem("good", "**/pom.xml")},
		Lookup:     lookup(&fakeResolver{name: "good", resolve: resolveOne}),
		Logger:     quietLogger(),
	})

	results, err := d.Resolve(context.Background(), []string{root}, []string{"**/vendor/**"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, filepath.Join(root, "a"), results[0].ProjectRoot)
}

func TestResolve_ResultsAreNotMutated(t *testing.T) {
	root := writeTree(t, "a/pom.xml")

	var produced *types.ResolutionResult
	r := &fakeResolver{name: "good", resolve: func(ctx context.Context, req *resolver.Request) (*types.ResolutionResult, error) {
		res, err := resolveOne(ctx, req)
		produced = res
		return res, err
	}}
	d := New(Options{
		Ecosystems: []catalog.Ecosystem{ecosystem("good", "**/pom.xml")},
		Lookup:     lookup(r),
		Logger:     quietLogger(),
	})

	results, err := d.Resolve(context.Background(), []string{root}, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.NotEmpty(t, results[0].Excludes)
	assert.Empty(t, produced.Excludes)
}

func TestResolve_CancellationDiscardsResults(t *testing.T) {
	root := writeTree(t, "a/pom.xml", "b/pom.xml")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := &fakeResolver{name: "good", resolve: func(ctx context.Context, req *resolver.Request) (*types.ResolutionResult, error) {
		cancel()
		return resolveOne(ctx, req)
	}}
	d := New(Options{
		Ecosystems: []catalog.Ecosystem{ecosystem("good", "**/pom.xml")},
		Workers:    1,
		Lookup:     lookup(r),
		Logger:     quietLogger(),
	})

	results, err := d.Resolve(ctx, []string{root}, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, results)
}

func TestResolve_UnknownResolverAndNoManifests(t *testing.T) {
	root := writeTree(t, "a/pom.xml")

	d := New(Options{
		Ecosystems: []catalog.Ecosystem{
			ecosystem("missing", "**/pom.xml"),
			ecosystem("good", "**/package.json"),
		},
		Lookup: lookup(&fakeResolver{name: "good", resolve: resolveOne}),
		Logger: quietLogger(),
	})

	results, err := d.Resolve(context.Background(), []string{root}, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestResolve_SessionIsRemoved(t *testing.T) {
	root := writeTree(t, "a/pom.xml")
	base := t.TempDir()

	var sessionDir string
	r := &fakeResolver{name: "good", resolve: func(ctx context.Context, req *resolver.Request) (*types.ResolutionResult, error) {
		sessionDir = req.Session.Dir()
		dir, cleanup, err := req.Session.TempDir("work")
		if err != nil {
			return nil, err
		}
		defer cleanup()
		if err := os.WriteFile(filepath.Join(dir, "out.txt"), []byte("x"), 0o644); err != nil {
			return nil, err
		}
		return resolveOne(ctx, req)
	}}
	d := New(Options{
		Ecosystems: []catalog.Ecosystem{ecosystem("good", "**/pom.xml")},
		TempDir:    base,
		Lookup:     lookup(r),
		Logger:     quietLogger(),
	})

	_, err := d.Resolve(context.Background(), []string{root}, nil)
	require.NoError(t, err)
	require.NotEmpty(t, sessionDir)
	assert.NoDirExists(t, sessionDir)
}

func TestRegisteredResolversCoverCatalog(t *testing.T) {
	ecosystems, err := catalog.Load()
	require.NoError(t, err)

	var ids []string
	for _, eco := range ecosystems {
		ids = append(ids, eco.ID)
	}
	sort.Strings(ids)
	assert.Equal(t, ids, resolver.Registered())
}

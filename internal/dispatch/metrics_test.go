package dispatch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petrarca/dependency-resolver/internal/catalog"
	"github.com/petrarca/dependency-resolver/internal/resolver"
	"github.com/petrarca/dependency-resolver/internal/types"
)

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.Observe("npm", time.Second, true)
	assert.NoError(t, m.WriteFile(filepath.Join(t.TempDir(), "metrics.prom")))
}

func TestMetrics_RecordedByDispatcher(t *testing.T) {
	root := writeTree(t, "a/pom.xml", "b/pom.xml")
	r := &fakeResolver{name: "maven", resolve: func(ctx context.Context, req *resolver.Request) (*types.ResolutionResult, error) {
		if filepath.Base(req.Root.Path) == "b" {
			return nil, errors.New("boom")
		}
		return resolveOne(ctx, req)
	}}

	metrics := NewMetrics()
	d := New(Options{
		Ecosystems: []catalog.Ecosystem{ecosystem("maven", "**/pom.xml")},
		Metrics:    metrics,
		Lookup:     lookup(r),
		Logger:     quietLogger(),
	})
	_, err := d.Resolve(context.Background(), []string{root}, nil)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "metrics.prom")
	require.NoError(t, metrics.WriteFile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	text := string(data)
	assert.Contains(t, text, `dep_resolver_resolutions_total{ecosystem="maven"} 2`)
	assert.Contains(t, text, `dep_resolver_resolution_failures_total{ecosystem="maven"} 1`)
	assert.Contains(t, text, `dep_resolver_resolution_duration_seconds_count{ecosystem="maven"} 2`)
}

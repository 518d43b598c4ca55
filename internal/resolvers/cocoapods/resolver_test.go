package cocoapods

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petrarca/dependency-resolver/internal/resolver/resolvertest"
)

const podfileLockFile = `PODS:
  - Alamofire (5.8.0)
  - Firebase/Analytics (10.15.0):
    - Firebase/Core
    - FirebaseAnalytics (~> 10.15.0)
  - Firebase/Core (10.15.0):
    - FirebaseCore (= 10.15.0)
  - FirebaseAnalytics (10.15.0)
  - FirebaseCore (10.15.0)
  - Toolkit (1.2.0)

DEPENDENCIES:
  - Firebase/Analytics
  - Alamofire (~> 5.8)
  - Toolkit (from ` + "`https://github.com/acme/toolkit.git`" + `, commit ` + "`9f8e7d6`" + `)

SPEC REPOS:
  trunk:
    - Alamofire
    - Firebase

EXTERNAL SOURCES:
  Toolkit:
    :git: https://github.com/acme/toolkit.git

CHECKOUT OPTIONS:
  Toolkit:
    :commit: 9f8e7d6
    :git: https://github.com/acme/toolkit.git

SPEC CHECKSUMS:
  Alamofire: 3ca42e259043ee0dc5c0cdd76c4bc568b8e42af7
  Firebase: 66043bd4579e5b73811f96829c694c7af8d67435

PODFILE CHECKSUM: 4bb3a6d0a7d2a8f0e7b7c2fba4c1d9e0a1b2c3d4

COCOAPODS: 1.12.1
`

func TestParseLock(t *testing.T) {
	built, err := parseLock([]byte(podfileLockFile), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"Alamofire", "Firebase/Analytics", "Toolkit"}, resolvertest.Names(built.Roots))
	alamofire, analytics, toolkit := built.Roots[0], built.Roots[1], built.Roots[2]

	assert.Equal(t, "3ca42e259043ee0dc5c0cdd76c4bc568b8e42af7", alamofire.SHA1)
	assert.Equal(t, "66043bd4579e5b73811f96829c694c7af8d67435", analytics.SHA1, "subspecs carry the pod checksum")
	assert.Equal(t, []string{"Firebase/Core", "FirebaseAnalytics"}, resolvertest.Names(analytics.Children))
	assert.Equal(t, []string{"FirebaseCore"}, resolvertest.Names(analytics.Children[0].Children))

	assert.Equal(t, "9f8e7d6", toolkit.Commit)
	assert.Equal(t, "https://github.com/acme/toolkit.git", toolkit.SCMPath)
	assert.Empty(t, built.Warnings)
}

func TestResolve(t *testing.T) {
	req := resolvertest.Request(map[string]string{
		"ios/Podfile.lock":               podfileLockFile,
		"ios/Pods/Manifest/Podfile.lock": podfileLockFile,
	}, nil, "Podfile.lock")

	result, err := (&Resolver{}).Resolve(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []string{"ios/Podfile.lock"}, result.ProjectNames())
}

func TestResolve_BrokenLock(t *testing.T) {
	req := resolvertest.Request(map[string]string{"Podfile.lock": "PODS: [\n"}, nil, "Podfile.lock")

	result, err := (&Resolver{}).Resolve(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, result.IsEmpty())
	assert.Len(t, result.Warnings, 1)
}

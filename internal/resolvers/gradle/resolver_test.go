package gradle

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petrarca/dependency-resolver/internal/execx"
	"github.com/petrarca/dependency-resolver/internal/resolver"
	"github.com/petrarca/dependency-resolver/internal/resolver/resolvertest"
	"github.com/petrarca/dependency-resolver/internal/types"
)

const dependenciesOutput = `
------------------------------------------------------------
Root project 'demo'
------------------------------------------------------------

runtimeClasspath - Runtime classpath of source set 'main'.
+--- com.google.guava:guava:23.0
|    \--- com.google.code.findbugs:jsr305:1.3.9
+--- org.slf4j:slf4j-api:1.7.25 -> 1.7.36
+--- project :core
|    \--- org.apache.commons:commons-lang3:3.12.0
+--- com.fasterxml.jackson.core:jackson-databind:2.15.0
|    +--- com.fasterxml.jackson.core:jackson-annotations:2.15.0
|    \--- com.fasterxml.jackson:jackson-bom:2.15.0 (c)
+--- com.google.code.findbugs:jsr305:1.3.9 (*)
\--- junit:junit:4.12
     \--- org.hamcrest:hamcrest-core:1.3

(*) - dependencies omitted (listed previously)
`

func lines(s string) []string {
	return strings.Split(s, "\n")
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		version string
		ok      bool
	}{
		{"com.google.guava:guava:23.0", "com.google.guava:guava", "23.0", true},
		{"org.slf4j:slf4j-api:1.7.25 -> 1.7.36", "org.slf4j:slf4j-api", "1.7.36", true},
		{"org.slf4j:slf4j-api -> 1.7.36 (*)", "org.slf4j:slf4j-api", "1.7.36", true},
		{"com.fasterxml.jackson:jackson-bom:2.15.0 (c)", "com.fasterxml.jackson:jackson-bom", "2.15.0", true},
		{"org.example:lib:{strictly 1.2.0} -> 1.2.0 (n)", "org.example:lib", "1.2.0", true},
		{"org.example:missing:1.0 FAILED", "org.example:missing", "1.0", true},
		{"org.example:noversion", "", "", false},
		{"Could not resolve all dependencies", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			node, ok := parseLine(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, node.GroupID+":"+node.ArtifactID)
				assert.Equal(t, tt.version, node.Version)
				assert.Equal(t, types.DependencyTypeGradle, node.Type)
			}
		})
	}
}

func TestResolve_DependenciesTask(t *testing.T) {
	fake := execx.NewFakeExecutor().On("gradle -q dependencies --configuration runtimeClasspath", lines(dependenciesOutput)...)
	req := resolvertest.Request(map[string]string{"build.gradle": "plugins { id 'java' }"}, fake, "build.gradle")

	result, err := (&Resolver{}).Resolve(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, result.Warnings)

	roots := result.Projects[":"]
	assert.Equal(t, []string{
		"com.google.guava:guava",
		"org.slf4j:slf4j-api",
		"org.apache.commons:commons-lang3",
		"com.fasterxml.jackson.core:jackson-databind",
		"com.google.code.findbugs:jsr305",
		"junit:junit",
	}, resolvertest.Names(roots))

	guava := roots[0]
	require.Len(t, guava.Children, 1)
	assert.Same(t, guava.Children[0], roots[4], "repeated coordinate is the same node")
	assert.Equal(t, "1.7.36", roots[1].Version)
	assert.Len(t, roots[3].Children, 2)
	assert.Equal(t, "hamcrest-core", roots[5].Children[0].ArtifactID)
}

func TestResolve_SubprojectsAndWrapperFallback(t *testing.T) {
	fake := execx.NewFakeExecutor().
		On("/project/gradlew -q dependencies --configuration runtimeClasspath", "\\--- a:root-dep:1.0").
		On("/project/gradlew -q :app:core:dependencies --configuration runtimeClasspath", "\\--- a:core-dep:2.0")
	req := resolvertest.Request(map[string]string{
		"build.gradle":              "",
		"gradlew":                   "#!/bin/sh",
		"app/core/build.gradle.kts": "",
	}, fake, "build.gradle", "build.gradle.kts")

	result, err := (&Resolver{}).Resolve(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []string{":", ":app:core"}, result.ProjectNames())
	assert.Equal(t, []string{"a:root-dep"}, resolvertest.Names(result.Projects[":"]))
	assert.Equal(t, []string{"a:core-dep"}, resolvertest.Names(result.Projects[":app:core"]))
}

func TestResolve_ToolFailureFallsBackToBuildScript(t *testing.T) {
	fake := execx.NewFakeExecutor().OnResult("gradle -q dependencies --configuration runtimeClasspath", &execx.Result{
		ExitCode: 1,
		Stderr:   []string{"FAILURE: Build failed with an exception."},
	})
	script := `
dependencies {
    // a comment with implementation 'x:y:1'
    implementation 'com.google.guava:guava:32.1.2-jre'
    testImplementation "junit:junit:4.13.2"
    api group: 'org.slf4j', name: 'slf4j-api', version: '2.0.9'
    implementation "org.example:templated:$exampleVersion"
}
`
	req := resolvertest.Request(map[string]string{"build.gradle": script}, fake, "build.gradle")

	result, err := (&Resolver{}).Resolve(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "gradle failed")

	roots := result.Projects[":"]
	assert.Equal(t, []string{"com.google.guava:guava", "junit:junit", "org.slf4j:slf4j-api", "org.example:templated"}, resolvertest.Names(roots))
	assert.Equal(t, "2.0.9", roots[2].Version)
	assert.Empty(t, roots[3].Version)
}

func TestResolve_ErrorBannerYieldsEmptyForest(t *testing.T) {
	fake := execx.NewFakeExecutor().On("gradle -q dependencies --configuration runtimeClasspath",
		"FAILURE: Could not determine the dependencies of task",
		"* What went wrong:",
	)
	req := resolvertest.Request(map[string]string{"build.gradle": ""}, fake, "build.gradle")

	result, err := (&Resolver{}).Resolve(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, result.IsEmpty())
	assert.Contains(t, result.Projects, ":")
}

func TestResolve_NoManifest(t *testing.T) {
	req := resolvertest.Request(map[string]string{"settings.gradle": ""}, nil, "build.gradle")
	_, err := (&Resolver{}).Resolve(context.Background(), req)
	assert.ErrorIs(t, err, resolver.ErrNoManifest)
}

func TestProjectPath(t *testing.T) {
	assert.Equal(t, ":", projectPath("."))
	assert.Equal(t, ":app", projectPath("app"))
	assert.Equal(t, ":app:core", projectPath("app/core/"))
}

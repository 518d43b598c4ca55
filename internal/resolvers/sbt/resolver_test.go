package sbt

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petrarca/dependency-resolver/internal/execx"
	"github.com/petrarca/dependency-resolver/internal/resolver/resolvertest"
)

const compileReport = `<?xml version="1.0" encoding="UTF-8"?>
<ivy-report version="1.0">
  <info organisation="com.acme" module="shop_2.13" revision="0.1.0" conf="compile" confs="compile, runtime, test" date="20231002101500"/>
  <dependencies>
    <module organisation="org.typelevel" name="cats-core_2.13">
      <revision name="2.10.0" status="release" pubdate="20230822" resolver="sbt-chain" artresolver="sbt-chain" homepage="" downloaded="false" searched="false" default="false" conf="compile" position="0">
        <caller organisation="com.acme" name="shop_2.13" conf="compile" rev="2.10.0" rev-constraint-default="2.10.0" rev-constraint-dynamic="2.10.0" callerrev="0.1.0"/>
        <artifacts>
          <artifact name="cats-core_2.13" type="jar" ext="jar" status="no" details="" size="6032117" time="0" location="/home/dev/.ivy2/cache/cats-core_2.13-2.10.0.jar"/>
        </artifacts>
      </revision>
    </module>
    <module organisation="org.typelevel" name="cats-kernel_2.13">
      <revision name="2.10.0" status="release" conf="compile" position="1">
        <caller organisation="org.typelevel" name="cats-core_2.13" conf="compile" rev="2.10.0" callerrev="2.10.0"/>
      </revision>
      <revision name="2.9.0" status="release" evicted="latest-revision" evicted-reason="" conf="" position="2">
        <caller organisation="com.acme" name="legacy_2.13" conf="compile" rev="2.9.0" callerrev="1.0.0"/>
      </revision>
    </module>
    <module organisation="org.scala-lang" name="scala-library">
      <revision name="2.13.12" status="release" conf="compile" position="3">
        <caller organisation="com.acme" name="shop_2.13" conf="compile" rev="2.13.12" callerrev="0.1.0"/>
        <caller organisation="org.typelevel" name="cats-core_2.13" conf="compile" rev="2.13.11" callerrev="2.10.0"/>
        <caller organisation="org.typelevel" name="cats-kernel_2.13" conf="compile" rev="2.13.11" callerrev="2.10.0"/>
      </revision>
    </module>
  </dependencies>
</ivy-report>`

type stubHasher map[string]string

func (h stubHasher) SHA1(path string) (string, error) {
	if digest, ok := h[path]; ok {
		return digest, nil
	}
	return "", errors.New("not cached")
}

func TestBuildReport(t *testing.T) {
	report, err := parseReport([]byte(compileReport))
	require.NoError(t, err)
	assert.Equal(t, "com.acme:shop_2.13", report.project())

	built := buildReport(report, func(p string) string {
		if p == "/home/dev/.ivy2/cache/cats-core_2.13-2.10.0.jar" {
			return "c0ffee"
		}
		return ""
	}, nil)

	assert.Equal(t, []string{"org.typelevel:cats-core_2.13", "org.scala-lang:scala-library"}, resolvertest.Names(built.Roots))
	cats := built.Roots[0]
	assert.Equal(t, "c0ffee", cats.SHA1)
	assert.Equal(t, []string{"org.typelevel:cats-kernel_2.13", "org.scala-lang:scala-library"}, resolvertest.Names(cats.Children))
	assert.Equal(t, "2.10.0", cats.Children[0].Version, "evicted revision is skipped")
	assert.Same(t, built.Roots[1], cats.Children[1])
	assert.Equal(t, 3, built.Nodes)
}

func TestResolve_Reports(t *testing.T) {
	req := resolvertest.Request(map[string]string{
		"build.sbt": `lazy val shop = (project in file("."))`,
		"target/scala-2.13/resolution-cache/reports/com.acme-shop_2.13-compile.xml": compileReport,
		"target/scala-2.13/resolution-cache/reports/com.acme-shop_2.13-test.xml":    compileReport,
	}, nil, "build.sbt")
	req.Hasher = stubHasher{"/home/dev/.ivy2/cache/cats-core_2.13-2.10.0.jar": "c0ffee"}

	result, err := (&Resolver{}).Resolve(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []string{"com.acme:shop_2.13"}, result.ProjectNames())
	roots := result.Projects["com.acme:shop_2.13"]
	require.Len(t, roots, 2)
	assert.Equal(t, "c0ffee", roots[0].SHA1)
}

func TestResolve_UpdateFailsFallsBackToDeclared(t *testing.T) {
	fake := execx.NewFakeExecutor().OnResult("sbt -batch update", &execx.Result{ExitCode: 1, Stderr: []string{"[error] unresolved dependency"}})
	req := resolvertest.Request(map[string]string{
		"build.sbt": `
libraryDependencies ++= Seq(
  "org.typelevel" %% "cats-core" % "2.10.0",
  "org.scalatest" %% "scalatest" % "3.2.17" % Test,
  "com.typesafe" % "config" % "1.4.3"
)
`,
	}, fake, "build.sbt")

	result, err := (&Resolver{}).Resolve(context.Background(), req)
	require.NoError(t, err)

	nodes := result.Projects["build.sbt"]
	assert.Equal(t, []string{"org.typelevel:cats-core", "org.scalatest:scalatest", "com.typesafe:config"}, resolvertest.Names(nodes))
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "unresolved dependency")
	assert.Equal(t, "/project", fake.Calls()[0].Dir)
}

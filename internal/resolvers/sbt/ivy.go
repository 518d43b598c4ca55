package sbt

import (
	"encoding/xml"
	"fmt"
	"log/slog"
	"strings"

	"github.com/petrarca/dependency-resolver/internal/tree"
	"github.com/petrarca/dependency-resolver/internal/types"
)

// ivyReport is the resolution report Ivy writes per configuration
type ivyReport struct {
	Info struct {
		Organisation string `xml:"organisation,attr"`
		Module       string `xml:"module,attr"`
		Revision     string `xml:"revision,attr"`
		Conf         string `xml:"conf,attr"`
	} `xml:"info"`
	Modules []ivyModule `xml:"dependencies>module"`
}

type ivyModule struct {
	Organisation string        `xml:"organisation,attr"`
	Name         string        `xml:"name,attr"`
	Revisions    []ivyRevision `xml:"revision"`
}

type ivyRevision struct {
	Name      string        `xml:"name,attr"`
	Evicted   string        `xml:"evicted,attr"`
	Callers   []ivyCaller   `xml:"caller"`
	Artifacts []ivyArtifact `xml:"artifacts>artifact"`
}

type ivyCaller struct {
	Organisation string `xml:"organisation,attr"`
	Name         string `xml:"name,attr"`
	CallerRev    string `xml:"callerrev,attr"`
}

type ivyArtifact struct {
	Ext      string `xml:"ext,attr"`
	Location string `xml:"location,attr"`
}

// project returns the "organisation:module" name of the reported project
func (r *ivyReport) project() string {
	return tree.RefName(r.Info.Organisation, r.Info.Module)
}

func parseReport(content []byte) (*ivyReport, error) {
	var report ivyReport
	if err := xml.Unmarshal(content, &report); err != nil {
		return nil, fmt.Errorf("failed to parse ivy report: %w", err)
	}
	if report.Info.Module == "" {
		return nil, fmt.Errorf("ivy report names no module")
	}
	return &report, nil
}

// buildReport joins the report's modules through their callers. Callers
// naming the project itself make the module a root. Evicted revisions lost
// conflict resolution and are left out.
func buildReport(report *ivyReport, digest func(string) string, logger *slog.Logger) tree.Result {
	builder := tree.NewReferenceBuilder(types.DependencyTypeSBT, logger)
	builder.Project = report.project()

	for _, module := range report.Modules {
		for _, rev := range module.Revisions {
			if rev.Evicted != "" {
				continue
			}
			node := types.DependencyNode{
				GroupID:    module.Organisation,
				ArtifactID: module.Name,
				Version:    rev.Name,
				Type:       types.DependencyTypeSBT,
			}
			if digest != nil {
				node.SHA1 = jarDigest(rev.Artifacts, digest)
			}
			builder.Declare(node)
		}
	}

	for _, module := range report.Modules {
		child := tree.RefName(module.Organisation, module.Name)
		for _, rev := range module.Revisions {
			if rev.Evicted != "" {
				continue
			}
			for _, caller := range rev.Callers {
				builder.Require(
					tree.Ref{Name: tree.RefName(caller.Organisation, caller.Name), Version: caller.CallerRev},
					tree.Ref{Name: child, Version: rev.Name},
				)
			}
		}
	}
	return builder.Build()
}

func jarDigest(artifacts []ivyArtifact, digest func(string) string) string {
	for _, a := range artifacts {
		if a.Location != "" && strings.EqualFold(a.Ext, "jar") {
			if sum := digest(a.Location); sum != "" {
				return sum
			}
		}
	}
	return ""
}

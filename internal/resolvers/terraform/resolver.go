// Package terraform resolves the providers pinned in .terraform.lock.hcl.
package terraform

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/petrarca/dependency-resolver/internal/resolver"
	"github.com/petrarca/dependency-resolver/internal/types"
)

func init() {
	resolver.Register(&Resolver{})
}

var lockSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "provider", LabelNames: []string{"source"}},
	},
}

// Resolver implements resolver.Resolver for Terraform provider locks
type Resolver struct{}

func (r *Resolver) Name() string { return "terraform" }

func (r *Resolver) DependencyType() types.DependencyType { return types.DependencyTypeTerraform }

// Resolve produces one flat unit per lock file, named by its path
func (r *Resolver) Resolve(ctx context.Context, req *resolver.Request) (*types.ResolutionResult, error) {
	locks := req.Manifests(".terraform.lock.hcl")
	if len(locks) == 0 {
		return nil, resolver.ErrNoManifest
	}

	result := types.NewResolutionResult(r.DependencyType(), req.Root)
	for _, lock := range locks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rel := req.Rel(lock)
		content, err := req.ReadFile(rel)
		if err != nil {
			result.AddWarnings(fmt.Sprintf("%s: %v", rel, err))
			continue
		}
		nodes, warnings := parseLock(content, rel)
		result.AddProject(rel, nodes)
		for _, w := range warnings {
			result.AddWarnings(rel + ": " + w)
		}
	}
	return result, nil
}

// parseLock reads the provider blocks. The block label is the provider source
// address "host/namespace/type"; host and namespace become the group.
func parseLock(content []byte, filename string) ([]*types.DependencyNode, []string) {
	file, diags := hclparse.NewParser().ParseHCL(content, filename)
	if diags.HasErrors() {
		return nil, []string{diags.Error()}
	}

	body, _, diags := file.Body.PartialContent(lockSchema)
	if diags.HasErrors() {
		return nil, []string{diags.Error()}
	}

	var nodes []*types.DependencyNode
	var warnings []string
	for _, block := range body.Blocks.OfType("provider") {
		source := block.Labels[0]
		node := &types.DependencyNode{Type: types.DependencyTypeTerraform}
		if idx := strings.LastIndex(source, "/"); idx >= 0 {
			node.GroupID, node.ArtifactID = source[:idx], source[idx+1:]
		} else {
			node.ArtifactID = source
		}

		attrs, _ := block.Body.JustAttributes()
		if attr, ok := attrs["version"]; ok {
			val, diags := attr.Expr.Value(nil)
			if !diags.HasErrors() && val.Type() == cty.String {
				node.Version = val.AsString()
			}
		}
		if node.Version == "" {
			warnings = append(warnings, fmt.Sprintf("provider %s has no version", source))
		}
		nodes = append(nodes, node)
	}
	return nodes, warnings
}

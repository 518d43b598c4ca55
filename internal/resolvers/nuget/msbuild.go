package nuget

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/petrarca/dependency-resolver/internal/tree"
	"github.com/petrarca/dependency-resolver/internal/types"
)

type msbuildProject struct {
	XMLName        xml.Name               `xml:"Project"`
	PropertyGroups []msbuildPropertyGroup `xml:"PropertyGroup"`
	ItemGroups     []msbuildItemGroup     `xml:"ItemGroup"`
}

type msbuildPropertyGroup struct {
	AssemblyName string `xml:"AssemblyName"`
}

type msbuildItemGroup struct {
	PackageReferences []packageReference `xml:"PackageReference"`
}

type packageReference struct {
	Include        string `xml:"Include,attr"`
	Update         string `xml:"Update,attr"`
	Version        string `xml:"Version,attr"`
	VersionElement string `xml:"Version"`
}

// csproj is a parsed project file
type csproj struct {
	name       string
	references []*types.DependencyNode
}

func parseCsproj(rel string, content []byte) (csproj, error) {
	var project msbuildProject
	if err := xml.Unmarshal(content, &project); err != nil {
		return csproj{}, fmt.Errorf("failed to parse %s: %w", rel, err)
	}

	result := csproj{name: strings.TrimSuffix(path.Base(rel), path.Ext(rel))}
	for _, pg := range project.PropertyGroups {
		if pg.AssemblyName != "" {
			result.name = pg.AssemblyName
		}
	}

	for _, ig := range project.ItemGroups {
		for _, ref := range ig.PackageReferences {
			if ref.Include == "" {
				continue
			}
			version := ref.Version
			if version == "" {
				version = strings.TrimSpace(ref.VersionElement)
			}
			result.references = append(result.references, &types.DependencyNode{
				ArtifactID: ref.Include,
				Version:    version,
				Type:       types.DependencyTypeNuGet,
			})
		}
	}
	return result, nil
}

// assetsFile is the restore output obj/project.assets.json
type assetsFile struct {
	Targets        map[string]map[string]assetsTarget `json:"targets"`
	Libraries      map[string]assetsLibrary           `json:"libraries"`
	PackageFolders map[string]json.RawMessage         `json:"packageFolders"`
	Project        struct {
		Frameworks map[string]struct {
			Dependencies map[string]json.RawMessage `json:"dependencies"`
		} `json:"frameworks"`
	} `json:"project"`
}

type assetsTarget struct {
	Type         string            `json:"type"`
	Dependencies map[string]string `json:"dependencies"`
}

type assetsLibrary struct {
	Type string `json:"type"`
	Path string `json:"path"`
}

// digestFunc returns the SHA-1 of an absolute path or ""
type digestFunc func(path string) string

// parseAssets rebuilds the restored graph of the first target framework.
// Library entries are "Name/Version"; dependencies name packages with a version range.
func parseAssets(content []byte, digest digestFunc, logger *slog.Logger) (tree.Result, error) {
	var assets assetsFile
	if err := json.Unmarshal(content, &assets); err != nil {
		return tree.Result{}, fmt.Errorf("failed to parse project.assets.json: %w", err)
	}

	frameworks := make([]string, 0, len(assets.Targets))
	for fw := range assets.Targets {
		frameworks = append(frameworks, fw)
	}
	sort.Strings(frameworks)
	if len(frameworks) == 0 {
		return tree.Result{}, nil
	}
	target := assets.Targets[frameworks[0]]

	folders := make([]string, 0, len(assets.PackageFolders))
	for folder := range assets.PackageFolders {
		folders = append(folders, folder)
	}
	sort.Strings(folders)

	builder := tree.NewReferenceBuilder(types.DependencyTypeNuGet, logger)
	libraries := make([]string, 0, len(target))
	for lib := range target {
		libraries = append(libraries, lib)
	}
	sort.Strings(libraries)

	for _, lib := range libraries {
		if target[lib].Type != "package" {
			continue
		}
		name, version, ok := strings.Cut(lib, "/")
		if !ok {
			continue
		}
		node := types.DependencyNode{ArtifactID: name, Version: version, Type: types.DependencyTypeNuGet}
		if info, ok := assets.Libraries[lib]; ok && info.Path != "" && digest != nil {
			node.SHA1 = nupkgDigest(folders, info.Path, digest)
		}
		builder.Declare(node)
	}
	for _, lib := range libraries {
		name, _, _ := strings.Cut(lib, "/")
		deps := target[lib].Dependencies
		childNames := make([]string, 0, len(deps))
		for child := range deps {
			childNames = append(childNames, child)
		}
		sort.Strings(childNames)
		for _, child := range childNames {
			builder.Require(tree.Ref{Name: name}, tree.Ref{Name: child, Version: deps[child]})
		}
	}

	seen := make(map[string]bool)
	var direct []string
	for _, spec := range assets.Project.Frameworks {
		for name := range spec.Dependencies {
			if !seen[name] {
				seen[name] = true
				direct = append(direct, name)
			}
		}
	}
	sort.Strings(direct)
	for _, name := range direct {
		builder.Direct(tree.Ref{Name: name})
	}
	builder.InferRoots = true

	return builder.Build(), nil
}

// nupkgDigest hashes the cached package archive, e.g.
// <folder>/newtonsoft.json/13.0.1/newtonsoft.json.13.0.1.nupkg
func nupkgDigest(folders []string, libPath string, digest digestFunc) string {
	archive := strings.ReplaceAll(strings.Trim(libPath, "/"), "/", ".") + ".nupkg"
	for _, folder := range folders {
		if sum := digest(filepath.Join(folder, filepath.FromSlash(libPath), archive)); sum != "" {
			return sum
		}
	}
	return ""
}

type packagesConfig struct {
	Packages []struct {
		ID      string `xml:"id,attr"`
		Version string `xml:"version,attr"`
	} `xml:"package"`
}

// parsePackagesConfig reads a legacy packages.config. Archives restored to
// the solution's packages folder are hashed.
func parsePackagesConfig(content []byte, packagesDir string, digest digestFunc) ([]*types.DependencyNode, error) {
	var config packagesConfig
	if err := xml.Unmarshal(content, &config); err != nil {
		return nil, fmt.Errorf("failed to parse packages.config: %w", err)
	}

	nodes := make([]*types.DependencyNode, 0, len(config.Packages))
	for _, pkg := range config.Packages {
		if pkg.ID == "" {
			continue
		}
		node := &types.DependencyNode{ArtifactID: pkg.ID, Version: pkg.Version, Type: types.DependencyTypeNuGet}
		if digest != nil {
			folder := pkg.ID + "." + pkg.Version
			node.SHA1 = digest(filepath.Join(packagesDir, folder, folder+".nupkg"))
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

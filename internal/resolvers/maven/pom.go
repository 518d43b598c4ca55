package maven

import (
	"encoding/xml"
	"path"
	"regexp"
	"strings"

	"github.com/petrarca/dependency-resolver/internal/types"
)

var (
	propertiesSectionRegex = regexp.MustCompile(`(?s)<properties>(.*?)</properties>`)
	propertyTagRegex       = regexp.MustCompile(`(?s)<([^>]+)>([^<]*)</([^>]+)>`)
	propertyRefRegex       = regexp.MustCompile(`\$\{([^}]+)\}`)
)

// maxParentDepth bounds the walk up the parent chain
const maxParentDepth = 10

type pomProject struct {
	XMLName      xml.Name        `xml:"project"`
	GroupID      string          `xml:"groupId"`
	ArtifactID   string          `xml:"artifactId"`
	Version      string          `xml:"version"`
	Parent       pomParent       `xml:"parent"`
	Dependencies []pomDependency `xml:"dependencies>dependency"`
	Managed      []pomDependency `xml:"dependencyManagement>dependencies>dependency"`
}

type pomDependency struct {
	GroupID    string `xml:"groupId"`
	ArtifactID string `xml:"artifactId"`
	Version    string `xml:"version"`
	Scope      string `xml:"scope"`
	Optional   string `xml:"optional"`
}

type pomParent struct {
	GroupID      string `xml:"groupId"`
	ArtifactID   string `xml:"artifactId"`
	Version      string `xml:"version"`
	RelativePath string `xml:"relativePath"`
}

// fileReader reads a file relative to the project root
type fileReader func(rel string) ([]byte, error)

// pomReader resolves the direct dependencies declared in pom.xml files,
// substituting properties inherited from local parent poms.
type pomReader struct {
	read fileReader
}

// name returns the group:artifact of the pom, inheriting the group from the parent
func (p pomProject) name() string {
	group := p.GroupID
	if group == "" {
		group = p.Parent.GroupID
	}
	return group + ":" + p.ArtifactID
}

// declared parses the pom at rel and returns its direct dependencies.
// Test scoped dependencies are left out, as are dependencies whose version
// cannot be determined from the pom chain.
func (r pomReader) declared(rel string) (string, []*types.DependencyNode, error) {
	content, err := r.read(rel)
	if err != nil {
		return "", nil, err
	}

	var project pomProject
	if err := xml.Unmarshal(content, &project); err != nil {
		return "", nil, err
	}

	properties, managedVersions := r.inherited(project, path.Dir(rel), 0)
	for k, v := range extractProperties(string(content)) {
		properties[k] = v
	}
	addProjectCoordinates(properties, project)
	for _, dep := range project.Managed {
		managedVersions[dep.GroupID+":"+dep.ArtifactID] = dep.Version
	}

	managed := make(map[string]string, len(managedVersions))
	for name, version := range managedVersions {
		managed[name] = resolvePropertyRefs(version, properties, make(map[string]bool))
	}

	var nodes []*types.DependencyNode
	seen := make(map[string]bool)
	for _, dep := range project.Dependencies {
		if dep.GroupID == "" || dep.ArtifactID == "" || dep.Scope == "test" {
			continue
		}
		group := resolvePropertyRefs(dep.GroupID, properties, make(map[string]bool))
		version := resolvePropertyRefs(dep.Version, properties, make(map[string]bool))
		if version == "" {
			version = managed[dep.GroupID+":"+dep.ArtifactID]
		}
		if strings.Contains(version, "${") {
			version = ""
		}

		node := &types.DependencyNode{GroupID: group, ArtifactID: dep.ArtifactID, Version: version, Type: types.DependencyTypeMaven}
		if seen[node.Key()] {
			continue
		}
		seen[node.Key()] = true
		nodes = append(nodes, node)
	}

	return project.name(), nodes, nil
}

// inherited collects properties and managed versions from the local parent
// chain; nearer poms win
func (r pomReader) inherited(project pomProject, dir string, depth int) (map[string]string, map[string]string) {
	properties := make(map[string]string)
	managed := make(map[string]string)
	if depth >= maxParentDepth || project.Parent.ArtifactID == "" {
		return properties, managed
	}

	parentRel := parentPath(dir, project.Parent.RelativePath)
	content, err := r.read(parentRel)
	if err != nil {
		// parent lives in a repository, only its coordinates are known
		setParentCoordinates(properties, project.Parent.GroupID, project.Parent.ArtifactID, project.Parent.Version)
		return properties, managed
	}

	var parent pomProject
	if err := xml.Unmarshal(content, &parent); err != nil {
		return properties, managed
	}

	properties, managed = r.inherited(parent, path.Dir(parentRel), depth+1)
	for k, v := range extractProperties(string(content)) {
		properties[k] = v
	}
	for _, dep := range parent.Managed {
		managed[dep.GroupID+":"+dep.ArtifactID] = dep.Version
	}
	group := parent.GroupID
	if group == "" {
		group = parent.Parent.GroupID
	}
	version := parent.Version
	if version == "" {
		version = parent.Parent.Version
	}
	setParentCoordinates(properties, group, parent.ArtifactID, version)
	return properties, managed
}

func setParentCoordinates(properties map[string]string, group, artifact, version string) {
	if group != "" {
		properties["project.parent.groupId"] = group
		properties["parent.groupId"] = group
	}
	if artifact != "" {
		properties["project.parent.artifactId"] = artifact
		properties["parent.artifactId"] = artifact
	}
	if version != "" {
		properties["project.parent.version"] = version
		properties["parent.version"] = version
	}
}

// addProjectCoordinates sets project.* and pom.* properties, inheriting from the parent
func addProjectCoordinates(properties map[string]string, project pomProject) {
	group, version := project.GroupID, project.Version
	if group == "" {
		group = project.Parent.GroupID
	}
	if version == "" {
		version = project.Parent.Version
	}

	for key, value := range map[string]string{"groupId": group, "artifactId": project.ArtifactID, "version": version} {
		if value != "" {
			properties["project."+key] = value
			properties["pom."+key] = value
		}
	}
}

func extractProperties(content string) map[string]string {
	properties := make(map[string]string)

	section := propertiesSectionRegex.FindStringSubmatch(content)
	if len(section) < 2 {
		return properties
	}

	for _, match := range propertyTagRegex.FindAllStringSubmatch(section[1], -1) {
		if len(match) >= 4 && match[1] == match[3] {
			name := strings.TrimSpace(match[1])
			value := strings.TrimSpace(match[2])
			if name != "" && value != "" {
				properties[name] = value
			}
		}
	}
	return properties
}

// resolvePropertyRefs substitutes ${...} references recursively; cycles and
// unknown properties are left as written
func resolvePropertyRefs(value string, properties map[string]string, seen map[string]bool) string {
	if !strings.Contains(value, "${") {
		return value
	}

	return propertyRefRegex.ReplaceAllStringFunc(value, func(match string) string {
		name := match[2 : len(match)-1]
		if seen[name] {
			return match
		}
		resolved, ok := properties[name]
		if !ok {
			return match
		}
		seen[name] = true
		result := resolvePropertyRefs(resolved, properties, seen)
		delete(seen, name)
		return result
	})
}

// parentPath returns the parent pom location relative to the project root
func parentPath(dir, relativePath string) string {
	if relativePath == "" {
		relativePath = "../pom.xml"
	} else if !strings.HasSuffix(relativePath, ".xml") {
		relativePath = path.Join(relativePath, "pom.xml")
	}
	return path.Clean(path.Join(dir, relativePath))
}

package cargo

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/rios0rios0/bom/internal/domain/entities"
)

// defaultVersion is what Cargo assumes when [package] omits the version.
const defaultVersion = "0.0.0"

// cargoManifest is the subset of Cargo.toml the resolver reads.
type cargoManifest struct {
	Package           *packageSection          `toml:"package"`
	Workspace         *workspaceSection        `toml:"workspace"`
	Dependencies      map[string]any           `toml:"dependencies"`
	DevDependencies   map[string]any           `toml:"dev-dependencies"`
	BuildDependencies map[string]any           `toml:"build-dependencies"`
	Target            map[string]targetSection `toml:"target"`
}

// packageSection fields are `any` because they may be inherited with
// `field.workspace = true`.
type packageSection struct {
	Name        string `toml:"name"`
	Version     any    `toml:"version"`
	License     any    `toml:"license"`
	LicenseFile any    `toml:"license-file"`
}

type workspaceSection struct {
	Root         string         `toml:"-"` // directory of the workspace Cargo.toml
	Members      []string       `toml:"members"`
	Exclude      []string       `toml:"exclude"`
	Package      map[string]any `toml:"package"`
	Dependencies map[string]any `toml:"dependencies"`
}

type targetSection struct {
	Dependencies      map[string]any `toml:"dependencies"`
	DevDependencies   map[string]any `toml:"dev-dependencies"`
	BuildDependencies map[string]any `toml:"build-dependencies"`
}

// manifest is a parsed Cargo.toml with workspace inheritance applied.
type manifest struct {
	Dir          string
	Name         string
	Version      string
	License      string
	LicenseFile  string
	Dependencies []entities.DependencyEdge
	PathDeps     []string // absolute directories of `path = "..."` dependencies
	Workspace    *workspaceSection
}

func readManifest(path string, root *workspaceSection) (*manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &entities.FilesystemError{Path: path, Err: err}
	}

	var raw cargoManifest
	if unmarshalErr := toml.Unmarshal(data, &raw); unmarshalErr != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, unmarshalErr)
	}

	result := &manifest{
		Dir:       filepath.Dir(path),
		Workspace: raw.Workspace,
	}

	if raw.Workspace != nil {
		raw.Workspace.Root = result.Dir
	}
	if root == nil {
		root = raw.Workspace
	}

	if raw.Package != nil {
		result.Name = raw.Package.Name
		result.Version = inheritString(raw.Package.Version, "version", root)
		result.License = inheritString(raw.Package.License, "license", root)
		result.LicenseFile = inheritString(raw.Package.LicenseFile, "license-file", root)
		if result.Version == "" {
			result.Version = defaultVersion
		}
	}

	collect := func(table map[string]any, kind entities.DependencyKind) {
		for _, key := range sortedKeys(table) {
			edge, depDir := dependencyEdge(key, table[key], kind, result.Dir, root)
			result.Dependencies = append(result.Dependencies, edge)
			if depDir != "" && !slices.Contains(result.PathDeps, depDir) {
				result.PathDeps = append(result.PathDeps, depDir)
			}
		}
	}

	collect(raw.Dependencies, entities.KindNormal)
	collect(raw.BuildDependencies, entities.KindBuild)
	collect(raw.DevDependencies, entities.KindDevelopment)
	for _, target := range sortedKeys(raw.Target) {
		section := raw.Target[target]
		collect(section.Dependencies, entities.KindNormal)
		collect(section.BuildDependencies, entities.KindBuild)
		collect(section.DevDependencies, entities.KindDevelopment)
	}

	return result, nil
}

// dependencyEdge turns one entry of a dependency table into an edge. The
// second return value is the directory of a local `path` dependency,
// resolved against dir or, for `workspace = true` entries, against the
// workspace root.
func dependencyEdge(
	key string,
	value any,
	kind entities.DependencyKind,
	dir string,
	root *workspaceSection,
) (entities.DependencyEdge, string) {
	edge := entities.DependencyEdge{Name: key, Kind: kind}

	switch typed := value.(type) {
	case string:
		edge.Requirement = cargoRequirement(typed)
		return edge, ""
	case map[string]any:
		var depDir string
		if inherited, _ := typed["workspace"].(bool); inherited && root != nil {
			if shared, ok := root.Dependencies[key]; ok {
				inheritedEdge, inheritedDir := dependencyEdge(key, shared, kind, root.Root, nil)
				edge.Name = inheritedEdge.Name
				edge.Requirement = inheritedEdge.Requirement
				depDir = inheritedDir
			}
		}
		if renamed, ok := typed["package"].(string); ok && renamed != "" {
			edge.Name = renamed
		}
		if version, ok := typed["version"].(string); ok {
			edge.Requirement = cargoRequirement(version)
		}
		if path, ok := typed["path"].(string); ok && path != "" {
			depDir = filepath.Join(dir, path)
		}
		return edge, depDir
	default:
		return edge, ""
	}
}

// cargoRequirement spells out the caret Cargo implies for a bare version:
// "1.2" means "^1.2". Every comma-separated part is handled on its own.
func cargoRequirement(requirement string) string {
	parts := strings.Split(requirement, ",")
	for idx, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" && part[0] >= '0' && part[0] <= '9' {
			part = "^" + part
		}
		parts[idx] = part
	}
	return strings.Join(parts, ", ")
}

// inheritString returns a string manifest field, following
// `field.workspace = true` into [workspace.package].
func inheritString(value any, field string, root *workspaceSection) string {
	switch typed := value.(type) {
	case string:
		return typed
	case map[string]any:
		if inherited, _ := typed["workspace"].(bool); inherited && root != nil {
			if shared, ok := root.Package[field].(string); ok {
				return shared
			}
		}
	}
	return ""
}

// memberDirs expands the workspace member globs of the root manifest.
func memberDirs(rootDir string, workspace *workspaceSection) ([]string, error) {
	if workspace == nil {
		return nil, nil
	}

	excluded := make(map[string]struct{}, len(workspace.Exclude))
	for _, pattern := range workspace.Exclude {
		excluded[filepath.Join(rootDir, pattern)] = struct{}{}
	}

	var dirs []string
	for _, pattern := range workspace.Members {
		matches, err := filepath.Glob(filepath.Join(rootDir, pattern))
		if err != nil {
			return nil, fmt.Errorf("invalid workspace member pattern %q: %w", pattern, err)
		}
		for _, match := range matches {
			if _, skip := excluded[match]; skip {
				continue
			}
			if _, statErr := os.Stat(filepath.Join(match, manifestName)); statErr != nil {
				continue
			}
			if !slices.Contains(dirs, match) {
				dirs = append(dirs, match)
			}
		}
	}
	slices.Sort(dirs)
	return dirs, nil
}

func sortedKeys[V any](table map[string]V) []string {
	keys := make([]string, 0, len(table))
	for key := range table {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}

// lockDependency splits a Cargo.lock dependency reference, which is one of
// "name", "name version" or "name version (source)".
func lockDependency(ref string) (string, string) {
	fields := strings.Fields(ref)
	switch len(fields) {
	case 0:
		return "", ""
	case 1:
		return fields[0], ""
	default:
		return fields[0], fields[1]
	}
}

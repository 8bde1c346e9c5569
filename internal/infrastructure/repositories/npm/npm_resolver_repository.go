package npm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/bom/internal/domain/entities"
	"github.com/rios0rios0/bom/internal/domain/repositories"
)

const (
	resolverName   = "npm"
	manifestName   = "package.json"
	lockfileName   = "package-lock.json"
	nodeModulesDir = "node_modules"

	// seeLicenseIn is the npm convention for pointing at a license file.
	seeLicenseIn = "SEE LICENSE IN "
	// minLockfileVersion is the first lockfile format with a `packages` map.
	minLockfileVersion = 2
)

// lockfile is the subset of package-lock.json (v2 and v3) the resolver reads.
type lockfile struct {
	LockfileVersion int                     `json:"lockfileVersion"`
	Packages        map[string]lockedModule `json:"packages"`
}

type lockedModule struct {
	Name                 string            `json:"name"`
	Version              string            `json:"version"`
	License              json.RawMessage   `json:"license"`
	Licenses             json.RawMessage   `json:"licenses"`
	Link                 bool              `json:"link"`
	Optional             bool              `json:"optional"`
	Resolved             string            `json:"resolved"`
	Dependencies         map[string]string `json:"dependencies"`
	OptionalDependencies map[string]string `json:"optionalDependencies"`
	PeerDependencies     map[string]string `json:"peerDependencies"`
	DevDependencies      map[string]string `json:"devDependencies"`
}

// NpmResolverRepository implements repositories.ResolverRepository for
// Node.js projects installed with npm (lockfile v2 or later).
type NpmResolverRepository struct{}

// NewResolverRepository creates a new npm resolver.
func NewResolverRepository() repositories.ResolverRepository {
	return &NpmResolverRepository{}
}

func (it *NpmResolverRepository) Name() string { return resolverName }

func (it *NpmResolverRepository) Manifest() string { return manifestName }

// Detect returns true if the directory has a package.json file.
func (it *NpmResolverRepository) Detect(projectDir string) bool {
	_, err := os.Stat(filepath.Join(projectDir, manifestName))
	return err == nil
}

// Resolve reads package-lock.json next to the manifest.
func (it *NpmResolverRepository) Resolve(
	_ context.Context,
	manifestPath string,
	opts entities.ResolveOptions,
) (*entities.Resolution, error) {
	resolution, err := resolve(filepath.Dir(manifestPath), opts)
	if err != nil {
		return nil, entities.NewResolutionError(resolverName, err)
	}
	return resolution, nil
}

func resolve(projectDir string, opts entities.ResolveOptions) (*entities.Resolution, error) {
	lock, err := readLockfile(filepath.Join(projectDir, lockfileName), opts)
	if err != nil {
		return nil, err
	}

	resolution := entities.NewResolution()
	ids := make(map[string]entities.PackageID, len(lock.Packages))

	for _, key := range sortedKeys(lock.Packages) {
		entry := lock.Packages[key]
		if entry.Link {
			continue
		}

		id := entities.PackageID{Name: packageName(key, entry), Version: entry.Version}
		dir := filepath.Join(projectDir, filepath.FromSlash(key))
		if entry.Optional && isInstalled(key) && !dirExists(dir) {
			logger.Debugf("[npm] optional dependency %s is not installed on this platform, skipping", id)
			continue
		}
		ids[key] = id

		license, licenseFile := parseLicense(entry.License, entry.Licenses)
		resolution.AddPackage(&entities.Package{
			ID:           id,
			ManifestDir:  dir,
			License:      license,
			LicenseFile:  licenseFile,
			Dependencies: dependencyEdges(entry),
		})

		if !isInstalled(key) {
			resolution.AddMember(id)
		}
	}

	for _, key := range sortedKeys(lock.Packages) {
		entry := lock.Packages[key]
		from, ok := ids[key]
		if !ok {
			continue
		}
		for _, edge := range dependencyEdges(entry) {
			targetKey, found := locate(lock.Packages, key, edge.Name)
			if !found {
				logger.Debugf("[npm] %s: %s dependency %s is not installed", from, edge.Kind, edge.Name)
				continue
			}
			to, resolved := ids[followLink(lock.Packages, targetKey)]
			if !resolved {
				continue
			}
			resolution.Link(from, to)
		}
	}

	return resolution, nil
}

func readLockfile(lockPath string, opts entities.ResolveOptions) (*lockfile, error) {
	data, err := os.ReadFile(lockPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			hint := "run `npm install` first"
			if opts.Locked {
				hint = "a lockfile is required with --locked"
			}
			return nil, fmt.Errorf("%w: %s (%s)", entities.ErrLockfileMissing, lockPath, hint)
		}
		return nil, &entities.FilesystemError{Path: lockPath, Err: err}
	}

	var lock lockfile
	if unmarshalErr := json.Unmarshal(data, &lock); unmarshalErr != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", lockPath, unmarshalErr)
	}
	if lock.LockfileVersion < minLockfileVersion {
		return nil, fmt.Errorf("%s has lockfileVersion %d; regenerate it with npm 7 or later",
			lockPath, lock.LockfileVersion)
	}
	return &lock, nil
}

// packageName returns the name of the package stored at key. Installed
// packages are named by the last node_modules segment of their key.
func packageName(key string, entry lockedModule) string {
	if idx := strings.LastIndex(key, nodeModulesDir+"/"); idx >= 0 {
		return key[idx+len(nodeModulesDir)+1:]
	}
	if entry.Name != "" {
		return entry.Name
	}
	if key == "" {
		return "(root)"
	}
	return path.Base(key)
}

// isInstalled reports whether key is a dependency installed below node_modules,
// as opposed to the root project or one of its workspaces.
func isInstalled(key string) bool {
	return strings.HasPrefix(key, nodeModulesDir+"/") || strings.Contains(key, "/"+nodeModulesDir+"/")
}

func dirExists(dir string) bool {
	info, err := os.Stat(dir)
	return err == nil && info.IsDir()
}

// locate implements the node_modules lookup: starting at the directory of
// key, look for node_modules/<name> and walk up to the project root.
func locate(packages map[string]lockedModule, key, name string) (string, bool) {
	current := key
	for {
		candidate := nodeModulesDir + "/" + name
		if current != "" {
			candidate = current + "/" + candidate
		}
		if _, ok := packages[candidate]; ok {
			return candidate, true
		}
		if current == "" {
			return "", false
		}
		current = parentKey(current)
	}
}

// parentKey returns the key of the package whose node_modules holds key.
// Top-level packages and workspaces resolve from the project root.
func parentKey(key string) string {
	if idx := strings.LastIndex(key, "/"+nodeModulesDir+"/"); idx >= 0 {
		return key[:idx]
	}
	return ""
}

// followLink returns the target of a workspace link entry.
func followLink(packages map[string]lockedModule, key string) string {
	entry := packages[key]
	if entry.Link && entry.Resolved != "" {
		return entry.Resolved
	}
	return key
}

func dependencyEdges(entry lockedModule) []entities.DependencyEdge {
	var edges []entities.DependencyEdge
	add := func(table map[string]string, kind entities.DependencyKind) {
		for _, name := range sortedKeys(table) {
			edges = append(edges, entities.DependencyEdge{Name: name, Requirement: table[name], Kind: kind})
		}
	}
	add(entry.Dependencies, entities.KindNormal)
	add(entry.OptionalDependencies, entities.KindNormal)
	add(entry.PeerDependencies, entities.KindNormal)
	add(entry.DevDependencies, entities.KindDevelopment)
	return edges
}

// parseLicense reads the `license` field (a string, or the legacy
// {"type": ...} object) and the legacy `licenses` array. A
// "SEE LICENSE IN <file>" value declares a license file instead.
func parseLicense(license, legacy json.RawMessage) (string, string) {
	var expression string
	if len(license) > 0 {
		if err := json.Unmarshal(license, &expression); err != nil {
			var typed struct {
				Type string `json:"type"`
			}
			if json.Unmarshal(license, &typed) == nil {
				expression = typed.Type
			}
		}
	}

	if expression == "" && len(legacy) > 0 {
		var entries []struct {
			Type string `json:"type"`
		}
		if json.Unmarshal(legacy, &entries) == nil {
			types := make([]string, 0, len(entries))
			for _, entry := range entries {
				if entry.Type != "" {
					types = append(types, entry.Type)
				}
			}
			expression = strings.Join(types, " OR ")
		}
	}

	if file, found := strings.CutPrefix(expression, seeLicenseIn); found {
		return "", strings.TrimSpace(file)
	}
	return expression, ""
}

func sortedKeys[V any](table map[string]V) []string {
	keys := make([]string, 0, len(table))
	for key := range table {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}

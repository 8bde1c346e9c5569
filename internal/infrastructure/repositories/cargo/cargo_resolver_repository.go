package cargo

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pelletier/go-toml/v2"
	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/bom/internal/domain/entities"
	"github.com/rios0rios0/bom/internal/domain/repositories"
)

const (
	resolverName = "cargo"
	manifestName = "Cargo.toml"
	lockfileName = "Cargo.lock"

	registrySourcePrefix = "registry+"
	sparseSourcePrefix   = "sparse+"
	gitSourcePrefix      = "git+"
	shortRevLength       = 7
)

// lockfile is the subset of Cargo.lock the resolver reads.
type lockfile struct {
	Version  int           `toml:"version"`
	Packages []lockPackage `toml:"package"`
}

type lockPackage struct {
	Name         string   `toml:"name"`
	Version      string   `toml:"version"`
	Source       string   `toml:"source"`
	Dependencies []string `toml:"dependencies"`
}

// CargoResolverRepository implements repositories.ResolverRepository for
// Rust projects. It reads Cargo.lock and the Cargo.toml of every locked
// package from the workspace and from $CARGO_HOME.
type CargoResolverRepository struct {
	cargoHome string
}

// NewResolverRepository creates a Cargo resolver using the default CARGO_HOME.
func NewResolverRepository() repositories.ResolverRepository {
	return &CargoResolverRepository{}
}

// NewResolverRepositoryWithHome creates a Cargo resolver reading sources from cargoHome.
func NewResolverRepositoryWithHome(cargoHome string) repositories.ResolverRepository {
	return &CargoResolverRepository{cargoHome: cargoHome}
}

func (it *CargoResolverRepository) Name() string { return resolverName }

func (it *CargoResolverRepository) Manifest() string { return manifestName }

// Detect returns true if the directory has a Cargo.toml file.
func (it *CargoResolverRepository) Detect(projectDir string) bool {
	_, err := os.Stat(filepath.Join(projectDir, manifestName))
	return err == nil
}

// Resolve reads the workspace, its lockfile and the manifests of all locked packages.
func (it *CargoResolverRepository) Resolve(
	_ context.Context,
	manifestPath string,
	opts entities.ResolveOptions,
) (*entities.Resolution, error) {
	resolution, err := it.resolve(manifestPath, opts)
	if err != nil {
		return nil, entities.NewResolutionError(resolverName, err)
	}
	return resolution, nil
}

func (it *CargoResolverRepository) resolve(
	manifestPath string,
	opts entities.ResolveOptions,
) (*entities.Resolution, error) {
	root, err := readManifest(manifestPath, nil)
	if err != nil {
		return nil, err
	}

	lockPath, err := findLockfile(root.Dir)
	if err != nil {
		if opts.Locked {
			return nil, fmt.Errorf("%w: the lock file needs to be updated but --locked was passed", err)
		}
		return nil, fmt.Errorf("%w: run `cargo generate-lockfile` first", err)
	}
	logger.Debugf("[cargo] Using lockfile %s", lockPath)

	lock, err := readLockfile(lockPath)
	if err != nil {
		return nil, err
	}

	local, members, err := loadLocalManifests(root)
	if err != nil {
		return nil, err
	}

	index := newLockIndex(lock.Packages)
	resolution := entities.NewResolution()
	cargoHome := it.resolveCargoHome(opts)

	for _, locked := range lock.Packages {
		id := entities.PackageID{Name: locked.Name, Version: locked.Version}

		pkgManifest, manifestErr := manifestFor(locked, local, cargoHome, root.Workspace, opts)
		if manifestErr != nil {
			return nil, manifestErr
		}

		resolution.AddPackage(&entities.Package{
			ID:           id,
			ManifestDir:  pkgManifest.Dir,
			License:      pkgManifest.License,
			LicenseFile:  pkgManifest.LicenseFile,
			Dependencies: pkgManifest.Dependencies,
		})

		for _, ref := range locked.Dependencies {
			target, ok := index.lookup(ref)
			if !ok {
				return nil, fmt.Errorf("%s depends on %q which is not in %s", id, ref, lockfileName)
			}
			resolution.Link(id, target)
		}
	}

	for _, member := range members {
		if _, ok := resolution.Packages[member]; !ok {
			return nil, fmt.Errorf("workspace member %s is not in %s; the lock file is out of date", member, lockfileName)
		}
		resolution.AddMember(member)
	}

	return resolution, nil
}

func (it *CargoResolverRepository) resolveCargoHome(opts entities.ResolveOptions) string {
	if opts.ToolHome != "" {
		return opts.ToolHome
	}
	if it.cargoHome != "" {
		return it.cargoHome
	}
	if env := os.Getenv("CARGO_HOME"); env != "" {
		return env
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".cargo"
	}
	return filepath.Join(home, ".cargo")
}

// findLockfile looks for Cargo.lock next to the manifest and then in every
// parent directory, the way a workspace member shares its root lockfile.
func findLockfile(dir string) (string, error) {
	current := dir
	for {
		candidate := filepath.Join(current, lockfileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", fmt.Errorf("%w: %s in %s or any parent directory", entities.ErrLockfileMissing, lockfileName, dir)
		}
		current = parent
	}
}

func readLockfile(path string) (*lockfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &entities.FilesystemError{Path: path, Err: err}
	}
	var lock lockfile
	if unmarshalErr := toml.Unmarshal(data, &lock); unmarshalErr != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, unmarshalErr)
	}
	return &lock, nil
}

// loadLocalManifests reads the root manifest, every workspace member and
// every path dependency reachable from them. It returns the manifests keyed
// by package ID together with the workspace member IDs.
func loadLocalManifests(root *manifest) (map[entities.PackageID]*manifest, []entities.PackageID, error) {
	local := make(map[entities.PackageID]*manifest)
	var members []entities.PackageID

	dirs, err := memberDirs(root.Dir, root.Workspace)
	if err != nil {
		return nil, nil, err
	}
	if root.Name != "" && !slices.Contains(dirs, root.Dir) {
		dirs = append([]string{root.Dir}, dirs...)
	}

	visited := make(map[string]struct{})
	queue := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		visited[dir] = struct{}{}
		queue = append(queue, dir)
	}
	memberSet := make(map[string]struct{}, len(dirs))
	for _, dir := range dirs {
		memberSet[dir] = struct{}{}
	}

	for len(queue) > 0 {
		dir := queue[0]
		queue = queue[1:]

		m := root
		if dir != root.Dir {
			m, err = readManifest(filepath.Join(dir, manifestName), root.Workspace)
			if err != nil {
				return nil, nil, err
			}
		}
		if m.Name == "" {
			continue
		}

		id := entities.PackageID{Name: m.Name, Version: m.Version}
		local[id] = m
		if _, isMember := memberSet[dir]; isMember {
			members = append(members, id)
		}

		for _, depDir := range m.PathDeps {
			if _, seen := visited[depDir]; seen {
				continue
			}
			visited[depDir] = struct{}{}
			queue = append(queue, depDir)
		}
	}

	return local, members, nil
}

// manifestFor finds and reads the Cargo.toml of a locked package.
func manifestFor(
	locked lockPackage,
	local map[entities.PackageID]*manifest,
	cargoHome string,
	workspace *workspaceSection,
	opts entities.ResolveOptions,
) (*manifest, error) {
	id := entities.PackageID{Name: locked.Name, Version: locked.Version}

	if locked.Source == "" {
		if m, ok := local[id]; ok {
			return m, nil
		}
		return nil, fmt.Errorf("local package %s is locked but no workspace or path manifest declares it", id)
	}

	dir, err := sourceDir(locked, cargoHome)
	if err != nil {
		return nil, err
	}
	if dir == "" {
		hint := "run `cargo fetch`"
		if opts.Offline {
			hint = "fetch it before running offline"
		}
		return nil, fmt.Errorf("sources of %s (%s) are not available under %s; %s",
			id, locked.Source, cargoHome, hint)
	}

	return readManifest(filepath.Join(dir, manifestName), workspace)
}

// sourceDir returns the unpacked source directory of a registry or git
// package, or an empty string when it has not been downloaded.
func sourceDir(locked lockPackage, cargoHome string) (string, error) {
	switch {
	case strings.HasPrefix(locked.Source, registrySourcePrefix),
		strings.HasPrefix(locked.Source, sparseSourcePrefix):
		matches, err := filepath.Glob(filepath.Join(
			cargoHome, "registry", "src", "*", locked.Name+"-"+locked.Version,
		))
		if err != nil {
			return "", err
		}
		slices.Sort(matches)
		for _, match := range matches {
			if _, statErr := os.Stat(filepath.Join(match, manifestName)); statErr == nil {
				return match, nil
			}
		}
		return "", nil

	case strings.HasPrefix(locked.Source, gitSourcePrefix):
		return gitCheckoutDir(locked, cargoHome)

	default:
		return "", fmt.Errorf("unsupported source %q for %s %s", locked.Source, locked.Name, locked.Version)
	}
}

// gitCheckoutDir searches $CARGO_HOME/git/checkouts/*/<short rev> for the
// manifest declaring the locked package.
func gitCheckoutDir(locked lockPackage, cargoHome string) (string, error) {
	_, rev, found := strings.Cut(locked.Source, "#")
	if !found || len(rev) < shortRevLength {
		return "", fmt.Errorf("git source %q of %s has no revision", locked.Source, locked.Name)
	}

	checkouts, err := filepath.Glob(filepath.Join(cargoHome, "git", "checkouts", "*", rev[:shortRevLength]+"*"))
	if err != nil {
		return "", err
	}
	slices.Sort(checkouts)

	for _, checkout := range checkouts {
		var result string
		walkErr := filepath.WalkDir(checkout, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() && (d.Name() == ".git" || d.Name() == "target") {
				return filepath.SkipDir
			}
			if d.IsDir() || d.Name() != manifestName {
				return nil
			}
			m, readErr := readManifest(path, nil)
			if readErr != nil {
				logger.Debugf("[cargo] Skipping unreadable manifest %s: %v", path, readErr)
				return nil
			}
			if m.Name == locked.Name {
				result = m.Dir
				return fs.SkipAll
			}
			return nil
		})
		if walkErr != nil && !errors.Is(walkErr, fs.SkipAll) {
			return "", walkErr
		}
		if result != "" {
			return result, nil
		}
	}
	return "", nil
}

// lockIndex resolves Cargo.lock dependency references to package IDs.
type lockIndex struct {
	byName map[string][]entities.PackageID
}

func newLockIndex(packages []lockPackage) *lockIndex {
	index := &lockIndex{byName: make(map[string][]entities.PackageID)}
	for _, p := range packages {
		index.byName[p.Name] = append(index.byName[p.Name], entities.PackageID{Name: p.Name, Version: p.Version})
	}
	return index
}

func (it *lockIndex) lookup(ref string) (entities.PackageID, bool) {
	name, version := lockDependency(ref)
	candidates := it.byName[name]
	if version == "" {
		if len(candidates) == 1 {
			return candidates[0], true
		}
		return entities.PackageID{}, false
	}
	for _, candidate := range candidates {
		if candidate.Version == version {
			return candidate, true
		}
	}
	return entities.PackageID{}, false
}

package terraform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/go-git/go-git/v5"
	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/bom/internal/domain/entities"
	"github.com/rios0rios0/bom/internal/domain/repositories"
)

const (
	resolverName  = "terraform"
	manifestName  = "main.tf"
	lockfileName  = ".terraform.lock.hcl"
	dataDir       = ".terraform"
	rootVersion   = "root"
	shortHashSize = 12
)

// modulesManifest is .terraform/modules/modules.json as written by `terraform init`.
type modulesManifest struct {
	Modules []installedModule `json:"Modules"`
}

type installedModule struct {
	Key     string `json:"Key"`
	Source  string `json:"Source"`
	Version string `json:"Version"`
	Dir     string `json:"Dir"`
}

// TerraformResolverRepository implements repositories.ResolverRepository
// for Terraform root modules initialised with `terraform init`. Modules come
// from .terraform/modules/modules.json and providers from .terraform.lock.hcl.
type TerraformResolverRepository struct{}

// NewResolverRepository creates a new Terraform resolver.
func NewResolverRepository() repositories.ResolverRepository {
	return &TerraformResolverRepository{}
}

func (it *TerraformResolverRepository) Name() string { return resolverName }

func (it *TerraformResolverRepository) Manifest() string { return manifestName }

// Detect returns true if the directory holds at least one *.tf file.
func (it *TerraformResolverRepository) Detect(projectDir string) bool {
	matches, err := filepath.Glob(filepath.Join(projectDir, "*.tf"))
	return err == nil && len(matches) > 0
}

// Resolve reads the installed modules and locked providers of the root module.
func (it *TerraformResolverRepository) Resolve(
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
	resolution := entities.NewResolution()
	root := &entities.Package{
		ID:          entities.PackageID{Name: filepath.Base(projectDir), Version: rootVersion},
		ManifestDir: projectDir,
	}
	resolution.AddPackage(root)
	resolution.AddMember(root.ID)

	if err := addModules(resolution, root, projectDir); err != nil {
		return nil, err
	}
	if err := addProviders(resolution, root, projectDir, opts); err != nil {
		return nil, err
	}
	return resolution, nil
}

// addModules maps every installed remote module to a package. Local modules
// (./ or ../ sources) belong to the package that calls them.
func addModules(resolution *entities.Resolution, root *entities.Package, projectDir string) error {
	calls, err := scanModuleCalls(projectDir)
	if err != nil {
		return err
	}

	manifestPath := filepath.Join(projectDir, dataDir, "modules", "modules.json")
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if len(calls) == 0 {
				return nil
			}
			return fmt.Errorf("%w: %s; run `terraform init` first", entities.ErrLockfileMissing, manifestPath)
		}
		return &entities.FilesystemError{Path: manifestPath, Err: err}
	}

	var installed modulesManifest
	if unmarshalErr := json.Unmarshal(data, &installed); unmarshalErr != nil {
		return fmt.Errorf("failed to parse %s: %w", manifestPath, unmarshalErr)
	}

	byKey := make(map[string]installedModule, len(installed.Modules))
	for _, mod := range installed.Modules {
		byKey[mod.Key] = mod
	}

	for _, call := range calls {
		mod, ok := byKey[call.Name]
		if !ok {
			return fmt.Errorf("%s: module %q is not installed; run `terraform init` first",
				call.position(), call.Name)
		}
		if !call.installedFrom(mod.Source) {
			return fmt.Errorf("%s: source of module %q changed from %q to %q; run `terraform init` again",
				call.position(), call.Name, mod.Source, call.Source)
		}
	}

	owners := map[string]*entities.Package{"": root}
	keys := make([]string, 0, len(byKey))
	for key := range byKey {
		if key != "" {
			keys = append(keys, key)
		}
	}
	// parents sort before their children
	slices.SortFunc(keys, func(a, b string) int {
		if depth := strings.Count(a, ".") - strings.Count(b, "."); depth != 0 {
			return depth
		}
		return strings.Compare(a, b)
	})

	for _, key := range keys {
		mod := byKey[key]
		parent := owners[parentKey(key)]
		if parent == nil {
			return fmt.Errorf("module %q has no installed parent", key)
		}

		if isLocalSource(mod.Source) {
			owners[key] = parent
			continue
		}

		pkg := &entities.Package{
			ID: entities.PackageID{
				Name:    cleanSource(mod.Source),
				Version: moduleVersion(projectDir, mod),
			},
			ManifestDir: filepath.Join(projectDir, mod.Dir),
		}
		if existing, ok := resolution.Packages[pkg.ID]; ok {
			pkg = existing
		} else {
			resolution.AddPackage(pkg)
		}
		owners[key] = pkg

		parent.Dependencies = append(parent.Dependencies, entities.DependencyEdge{
			Name:        pkg.ID.Name,
			Requirement: mod.Version,
			Kind:        entities.KindNormal,
		})
		resolution.Link(parent.ID, pkg.ID)
	}
	return nil
}

// addProviders links every provider of the dependency lock file to the root module.
func addProviders(
	resolution *entities.Resolution,
	root *entities.Package,
	projectDir string,
	opts entities.ResolveOptions,
) error {
	lockPath := filepath.Join(projectDir, lockfileName)
	providers, err := parseLockfile(lockPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		if opts.Locked {
			return fmt.Errorf("%w: %s is required with --locked", entities.ErrLockfileMissing, lockPath)
		}
		logger.Warnf("[terraform] %s not found, providers are not reported", lockPath)
		return nil
	}

	for _, provider := range providers {
		dir, dirErr := providerDir(projectDir, provider)
		if dirErr != nil {
			return dirErr
		}

		pkg := &entities.Package{
			ID:          entities.PackageID{Name: provider.Address, Version: provider.Version},
			ManifestDir: dir,
		}
		resolution.AddPackage(pkg)
		root.Dependencies = append(root.Dependencies, entities.DependencyEdge{
			Name:        provider.Address,
			Requirement: provider.Constraints,
			Kind:        entities.KindNormal,
		})
		resolution.Link(root.ID, pkg.ID)
	}
	return nil
}

// providerDir returns the unpacked plugin directory of a provider:
// .terraform/providers/<address>/<version>/<os_arch>.
func providerDir(projectDir string, provider lockedProvider) (string, error) {
	pattern := filepath.Join(
		projectDir, dataDir, "providers", filepath.FromSlash(provider.Address), provider.Version, "*",
	)
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return "", err
	}
	slices.Sort(matches)
	for _, match := range matches {
		if info, statErr := os.Stat(match); statErr == nil && info.IsDir() {
			return match, nil
		}
	}
	return "", fmt.Errorf("provider %s %s is not installed; run `terraform init` first",
		provider.Address, provider.Version)
}

// moduleVersion prefers the registry version, then the ?ref= of a git
// source, then the HEAD commit of the checked out module.
func moduleVersion(projectDir string, mod installedModule) string {
	if mod.Version != "" {
		return mod.Version
	}
	if ref := extractRef(mod.Source); ref != "" {
		return ref
	}
	if hash := headCommit(projectDir, mod.Dir); hash != "" {
		return hash
	}
	return "unknown"
}

// headCommit opens the git checkout holding a module directory, looking
// upward no further than .terraform/modules.
func headCommit(projectDir, moduleDir string) string {
	boundary := filepath.Join(projectDir, dataDir, "modules")
	current := filepath.Join(projectDir, moduleDir)

	for strings.HasPrefix(current, boundary+string(filepath.Separator)) {
		if _, err := os.Stat(filepath.Join(current, git.GitDirName)); err == nil {
			repo, openErr := git.PlainOpen(current)
			if openErr != nil {
				logger.Debugf("[terraform] Failed to open %s: %v", current, openErr)
				return ""
			}
			head, headErr := repo.Head()
			if headErr != nil {
				logger.Debugf("[terraform] Failed to read HEAD of %s: %v", current, headErr)
				return ""
			}
			return head.Hash().String()[:shortHashSize]
		}
		current = filepath.Dir(current)
	}
	return ""
}

func parentKey(key string) string {
	if idx := strings.LastIndex(key, "."); idx >= 0 {
		return key[:idx]
	}
	return ""
}

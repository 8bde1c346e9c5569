package golang

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	logger "github.com/sirupsen/logrus"
	"golang.org/x/mod/modfile"
	"golang.org/x/mod/module"

	"github.com/rios0rios0/bom/internal/domain/entities"
	"github.com/rios0rios0/bom/internal/domain/repositories"
)

const (
	resolverName  = "golang"
	manifestName  = "go.mod"
	workspaceName = "go.work"
)

// CommandRunner runs an external command in dir and returns its standard output.
type CommandRunner func(ctx context.Context, dir string, env []string, name string, args ...string) ([]byte, error)

// listedModule is one object of the `go list -m -json all` stream.
type listedModule struct {
	Path    string
	Version string
	Main    bool
	Dir     string
	Replace *listedModule
	Error   *struct {
		Err string
	}
}

// GolangResolverRepository implements repositories.ResolverRepository for
// Go modules. The Go toolchain already resolved the build list; the resolver
// asks it through `go list -m -json all` and `go mod graph`.
type GolangResolverRepository struct {
	run CommandRunner
}

// NewResolverRepository creates a Go modules resolver running the local go binary.
func NewResolverRepository() repositories.ResolverRepository {
	return &GolangResolverRepository{run: execRunner}
}

// NewResolverRepositoryWithRunner creates a Go modules resolver using the given runner.
func NewResolverRepositoryWithRunner(runner CommandRunner) repositories.ResolverRepository {
	return &GolangResolverRepository{run: runner}
}

func (it *GolangResolverRepository) Name() string { return resolverName }

func (it *GolangResolverRepository) Manifest() string { return manifestName }

// Detect returns true if the directory has a go.mod or go.work file.
func (it *GolangResolverRepository) Detect(projectDir string) bool {
	for _, name := range []string{manifestName, workspaceName} {
		if _, err := os.Stat(filepath.Join(projectDir, name)); err == nil {
			return true
		}
	}
	return false
}

// Resolve builds the resolution from the selected build list and module graph.
func (it *GolangResolverRepository) Resolve(
	ctx context.Context,
	manifestPath string,
	opts entities.ResolveOptions,
) (*entities.Resolution, error) {
	resolution, err := it.resolve(ctx, manifestPath, opts)
	if err != nil {
		return nil, entities.NewResolutionError(resolverName, err)
	}
	return resolution, nil
}

func (it *GolangResolverRepository) resolve(
	ctx context.Context,
	manifestPath string,
	opts entities.ResolveOptions,
) (*entities.Resolution, error) {
	projectDir := filepath.Dir(manifestPath)
	env := goEnv(opts)

	listOutput, err := it.run(ctx, projectDir, env, "go", "list", "-m", "-json", "all")
	if err != nil {
		return nil, fmt.Errorf("go list -m -json all: %w", err)
	}
	modules, err := parseModuleList(listOutput)
	if err != nil {
		return nil, err
	}

	graphOutput, err := it.run(ctx, projectDir, env, "go", "mod", "graph")
	if err != nil {
		return nil, fmt.Errorf("go mod graph: %w", err)
	}
	edges, err := parseModuleGraph(graphOutput)
	if err != nil {
		return nil, err
	}

	resolution := entities.NewResolution()
	selected := make(map[string]entities.PackageID, len(modules))

	for _, mod := range modules {
		if mod.Error != nil {
			return nil, fmt.Errorf("module %s: %s", mod.Path, mod.Error.Err)
		}

		id := entities.PackageID{Name: mod.Path, Version: mod.Version}
		selected[mod.Path] = id

		dir := mod.Dir
		if mod.Replace != nil && mod.Replace.Dir != "" {
			dir = mod.Replace.Dir
		}

		pkg := &entities.Package{ID: id, ManifestDir: dir}
		if mod.Main {
			direct, directErr := directRequirements(filepath.Join(dir, manifestName))
			if directErr != nil {
				return nil, directErr
			}
			pkg.Dependencies = direct
		}
		resolution.AddPackage(pkg)
		if mod.Main {
			resolution.AddMember(id)
		}
	}

	for _, edge := range edges {
		from, fromSelected := selected[edge.from.Path]
		to, toSelected := selected[edge.to.Path]
		if !fromSelected || !toSelected || from.Version != edge.from.Version {
			continue
		}
		resolution.Link(from, to)
	}

	for id, pkg := range resolution.Packages {
		if pkg.ManifestDir != "" || resolution.IsMember(id) {
			continue
		}
		hint := "run `go mod download`"
		if opts.Offline {
			hint = "download it before running offline"
		}
		if isReachable(resolution, id) {
			return nil, fmt.Errorf("module %s is not in the module cache; %s", id, hint)
		}
		logger.Debugf("[golang] %s has no module directory and is unreachable, ignoring", id)
	}

	return resolution, nil
}

// goEnv maps the resolver options onto Go toolchain environment variables.
func goEnv(opts entities.ResolveOptions) []string {
	var env []string
	switch {
	case opts.Locked || opts.Frozen:
		env = append(env, "GOFLAGS=-mod=readonly")
	case opts.Offline:
		env = append(env, "GOFLAGS=-mod=mod")
	}
	if opts.Offline || opts.Frozen {
		env = append(env, "GOPROXY=off")
	}
	return env
}

func parseModuleList(output []byte) ([]listedModule, error) {
	decoder := json.NewDecoder(bytes.NewReader(output))
	var modules []listedModule
	for {
		var mod listedModule
		if err := decoder.Decode(&mod); err != nil {
			if errors.Is(err, io.EOF) {
				return modules, nil
			}
			return nil, fmt.Errorf("failed to decode go list output: %w", err)
		}
		modules = append(modules, mod)
	}
}

type graphEdge struct {
	from module.Version
	to   module.Version
}

// parseModuleGraph parses `go mod graph` output. Toolchain pseudo-modules
// (go, toolchain) are skipped.
func parseModuleGraph(output []byte) ([]graphEdge, error) {
	var edges []graphEdge
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 2 { //nolint:mnd // "from to"
			return nil, fmt.Errorf("unexpected go mod graph line %q", scanner.Text())
		}
		from, to := splitModuleVersion(fields[0]), splitModuleVersion(fields[1])
		if isToolchain(from.Path) || isToolchain(to.Path) {
			continue
		}
		edges = append(edges, graphEdge{from: from, to: to})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read go mod graph output: %w", err)
	}
	return edges, nil
}

func splitModuleVersion(node string) module.Version {
	path, version, _ := strings.Cut(node, "@")
	return module.Version{Path: path, Version: version}
}

func isToolchain(path string) bool {
	return path == "go" || path == "toolchain"
}

// directRequirements returns the requirements of a main module that are
// not marked `// indirect` as normal edges.
func directRequirements(goModPath string) ([]entities.DependencyEdge, error) {
	data, err := os.ReadFile(goModPath)
	if err != nil {
		return nil, &entities.FilesystemError{Path: goModPath, Err: err}
	}

	file, err := modfile.ParseLax(goModPath, data, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", goModPath, err)
	}

	edges := make([]entities.DependencyEdge, 0, len(file.Require))
	for _, req := range file.Require {
		if req.Indirect {
			continue
		}
		edges = append(edges, entities.DependencyEdge{
			Name:        req.Mod.Path,
			Requirement: req.Mod.Version,
			Kind:        entities.KindNormal,
		})
	}
	return edges, nil
}

func isReachable(resolution *entities.Resolution, target entities.PackageID) bool {
	visited := make(map[entities.PackageID]struct{})
	queue := append([]entities.PackageID(nil), resolution.Members...)
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, next := range resolution.Graph[current] {
			if next == target {
				return true
			}
			if _, seen := visited[next]; seen {
				continue
			}
			visited[next] = struct{}{}
			queue = append(queue, next)
		}
	}
	return false
}

func execRunner(ctx context.Context, dir string, env []string, name string, args ...string) ([]byte, error) {
	if name == "go" {
		binary, err := findGoBinary()
		if err != nil {
			return nil, err
		}
		name = binary
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), env...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return output, nil
}

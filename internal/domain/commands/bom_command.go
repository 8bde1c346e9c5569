package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/bom/internal/domain/entities"
	"github.com/rios0rios0/bom/internal/domain/repositories"
	infraRepos "github.com/rios0rios0/bom/internal/infrastructure/repositories"
)

// Bom is the interface for the bill-of-materials command.
type Bom interface {
	Execute(ctx context.Context, settings *entities.Settings, opts BomOptions) error
}

// BomOptions holds runtime options for a single report.
type BomOptions struct {
	ManifestPath string    // Manifest file or project directory; empty = working directory
	Output       io.Writer // Destination of the report; nil = stdout
	Color        bool      // Resolved colour decision for the table
}

// BomCommand resolves the project's dependencies and writes the BOM:
// resolve -> enumerate -> classify & locate -> render.
type BomCommand struct {
	resolverRegistry *infraRepos.ResolverRegistry
	reportRepository repositories.ReportRepository
}

// NewBomCommand creates a new BomCommand with the given resolver registry and report writer.
func NewBomCommand(
	resolverRegistry *infraRepos.ResolverRegistry,
	reportRepository repositories.ReportRepository,
) *BomCommand {
	return &BomCommand{
		resolverRegistry: resolverRegistry,
		reportRepository: reportRepository,
	}
}

// Execute produces the full report or returns the first fatal error.
func (it *BomCommand) Execute(ctx context.Context, settings *entities.Settings, opts BomOptions) error {
	if settings == nil {
		settings = entities.DefaultSettings()
	}

	resolver, manifestPath, err := it.selectResolver(settings.Ecosystem, opts.ManifestPath)
	if err != nil {
		return err
	}
	logger.Infof("Resolving %s dependencies from %s", resolver.Name(), manifestPath)

	resolution, err := resolver.Resolve(ctx, manifestPath, settings.ResolveOptions())
	if err != nil {
		return entities.NewResolutionError(resolver.Name(), err)
	}
	logger.Debugf("Resolved %d packages, %d workspace members",
		len(resolution.Packages), len(resolution.Members))

	mode := entities.EnumerateTopLevel
	if settings.AllDependencies {
		mode = entities.EnumerateAll
	}

	packages, err := entities.Enumerate(resolution, mode)
	if err != nil {
		return entities.NewResolutionError(resolver.Name(), err)
	}

	report, err := buildReport(packages, settings)
	if err != nil {
		return err
	}

	output := opts.Output
	if output == nil {
		output = os.Stdout
	}

	return it.reportRepository.Render(output, report, repositories.RenderOptions{
		Format: settings.Format,
		Color:  opts.Color,
	})
}

// selectResolver picks the resolver named in the settings or detects one
// from the project directory, and returns the manifest path to resolve.
func (it *BomCommand) selectResolver(
	ecosystem, manifestPath string,
) (repositories.ResolverRepository, string, error) {
	projectDir, manifestFile, err := splitManifestPath(manifestPath)
	if err != nil {
		return nil, "", err
	}

	var resolver repositories.ResolverRepository
	if ecosystem != "" {
		resolver = it.resolverRegistry.Get(ecosystem)
		if resolver == nil {
			return nil, "", fmt.Errorf("%w %q (available: %s)",
				entities.ErrUnknownResolver, ecosystem, strings.Join(it.resolverRegistry.Names(), ", "))
		}
	} else {
		resolver = it.resolverRegistry.Detect(projectDir)
		if resolver == nil {
			return nil, "", fmt.Errorf("%w in %s (supported: %s)",
				entities.ErrNoResolver, projectDir, strings.Join(it.resolverRegistry.Names(), ", "))
		}
	}

	if manifestFile == "" {
		manifestFile = filepath.Join(projectDir, resolver.Manifest())
	}
	return resolver, manifestFile, nil
}

// splitManifestPath turns the --manifest-path value into an absolute
// project directory and, when a file was given, the manifest file itself.
func splitManifestPath(manifestPath string) (string, string, error) {
	if manifestPath == "" {
		manifestPath = "."
	}

	absPath, err := filepath.Abs(manifestPath)
	if err != nil {
		return "", "", fmt.Errorf("invalid manifest path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return "", "", &entities.FilesystemError{Path: absPath, Err: err}
	}
	if info.IsDir() {
		return absPath, "", nil
	}
	return filepath.Dir(absPath), absPath, nil
}

// buildReport classifies and locates license files for every package, in order.
func buildReport(packages []*entities.Package, settings *entities.Settings) (*entities.Report, error) {
	report := &entities.Report{}

	for _, pkg := range packages {
		if settings.IsExcluded(pkg.ID.Name) {
			logger.Debugf("Excluding %s by configuration", pkg.ID)
			continue
		}

		classification := entities.ClassifyLicense(pkg.License, pkg.LicenseFile)
		files, err := entities.LocateLicenseFiles(pkg.ManifestDir, pkg.LicenseFile)
		if err != nil {
			return nil, fmt.Errorf("failed to locate license files of %s: %w", pkg.ID, err)
		}

		logger.Tracef("%s: %s, %d license file(s)", pkg.ID, classification, len(files))
		report.Add(pkg.ID, classification, files)
	}

	report.Sort()
	return report, nil
}

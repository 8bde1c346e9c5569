//go:build integration || unit || test

package repositorydoubles //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"context"

	"github.com/rios0rios0/bom/internal/domain/entities"
	"github.com/rios0rios0/bom/internal/domain/repositories"
)

// SpyResolverRepository implements repositories.ResolverRepository as a configurable spy.
type SpyResolverRepository struct {
	// --- identity ---
	ResolverName string
	ManifestName string

	// --- Detect ---
	DetectResult bool
	DetectedDirs []string

	// --- Resolve ---
	Resolution   *entities.Resolution
	ResolveErr   error
	ResolveCalls []ResolveCall
}

// ResolveCall records a single invocation of Resolve.
type ResolveCall struct {
	ManifestPath string
	Opts         entities.ResolveOptions
}

var _ repositories.ResolverRepository = (*SpyResolverRepository)(nil)

func (r *SpyResolverRepository) Name() string { return r.ResolverName }

func (r *SpyResolverRepository) Manifest() string { return r.ManifestName }

func (r *SpyResolverRepository) Detect(projectDir string) bool {
	r.DetectedDirs = append(r.DetectedDirs, projectDir)
	return r.DetectResult
}

func (r *SpyResolverRepository) Resolve(
	_ context.Context,
	manifestPath string,
	opts entities.ResolveOptions,
) (*entities.Resolution, error) {
	r.ResolveCalls = append(r.ResolveCalls, ResolveCall{ManifestPath: manifestPath, Opts: opts})
	return r.Resolution, r.ResolveErr
}

// DummyResolverRepository is a no-op implementation of repositories.ResolverRepository.
type DummyResolverRepository struct{}

var _ repositories.ResolverRepository = (*DummyResolverRepository)(nil)

func (d *DummyResolverRepository) Name() string { return "dummy" }

func (d *DummyResolverRepository) Manifest() string { return "dummy.toml" }

func (d *DummyResolverRepository) Detect(_ string) bool { return false }

func (d *DummyResolverRepository) Resolve(
	_ context.Context,
	_ string,
	_ entities.ResolveOptions,
) (*entities.Resolution, error) {
	return entities.NewResolution(), nil
}

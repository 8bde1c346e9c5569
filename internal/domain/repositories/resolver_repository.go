package repositories

import (
	"context"

	"github.com/rios0rios0/bom/internal/domain/entities"
)

// ResolverRepository abstracts the package manager that already resolved a
// project's dependency graph (Cargo, Go modules, npm, Terraform, ...).
// Implementations only read what the host tool left on disk; they never
// resolve versions themselves.
type ResolverRepository interface {
	// Name returns the resolver identifier (e.g. "cargo", "golang").
	Name() string

	// Manifest returns the manifest file name looked up in a project directory.
	Manifest() string

	// Detect returns true if the given directory holds a project of this ecosystem.
	Detect(projectDir string) bool

	// Resolve reads the resolved dependency graph of the project whose manifest
	// lives at manifestPath. Any failure is returned as *entities.ResolutionError.
	Resolve(
		ctx context.Context,
		manifestPath string,
		opts entities.ResolveOptions,
	) (*entities.Resolution, error)
}

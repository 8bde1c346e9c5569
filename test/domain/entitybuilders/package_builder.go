//go:build integration || unit || test

package entitybuilders //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"slices"

	"github.com/rios0rios0/bom/internal/domain/entities"
	testkit "github.com/rios0rios0/testkit/pkg/test"
)

// PackageBuilder helps create test packages with a fluent interface.
type PackageBuilder struct {
	*testkit.BaseBuilder
	name         string
	version      string
	manifestDir  string
	license      string
	licenseFile  string
	dependencies []entities.DependencyEdge
}

// NewPackageBuilder creates a new package builder with sensible defaults.
func NewPackageBuilder() *PackageBuilder {
	return &PackageBuilder{
		BaseBuilder: testkit.NewBaseBuilder(),
		name:        "test-package",
		version:     "1.0.0",
		license:     "MIT",
	}
}

// WithName sets the package name.
func (b *PackageBuilder) WithName(name string) *PackageBuilder {
	b.name = name
	return b
}

// WithVersion sets the package version.
func (b *PackageBuilder) WithVersion(version string) *PackageBuilder {
	b.version = version
	return b
}

// WithManifestDir sets the directory holding the package manifest.
func (b *PackageBuilder) WithManifestDir(dir string) *PackageBuilder {
	b.manifestDir = dir
	return b
}

// WithLicense sets the declared license expression.
func (b *PackageBuilder) WithLicense(license string) *PackageBuilder {
	b.license = license
	return b
}

// WithLicenseFile sets the declared license file.
func (b *PackageBuilder) WithLicenseFile(path string) *PackageBuilder {
	b.licenseFile = path
	return b
}

// WithDependency adds a declared dependency edge.
func (b *PackageBuilder) WithDependency(name string, kind entities.DependencyKind) *PackageBuilder {
	b.dependencies = append(b.dependencies, entities.DependencyEdge{Name: name, Requirement: "*", Kind: kind})
	return b
}

// WithRequirement adds a declared dependency edge with a version requirement.
func (b *PackageBuilder) WithRequirement(
	name, requirement string, kind entities.DependencyKind,
) *PackageBuilder {
	b.dependencies = append(b.dependencies, entities.DependencyEdge{Name: name, Requirement: requirement, Kind: kind})
	return b
}

// Build creates the package (satisfies testkit.Builder interface).
func (b *PackageBuilder) Build() interface{} {
	return b.BuildPackage()
}

// BuildPackage creates the package with a concrete return type.
func (b *PackageBuilder) BuildPackage() *entities.Package {
	return &entities.Package{
		ID:           entities.PackageID{Name: b.name, Version: b.version},
		ManifestDir:  b.manifestDir,
		License:      b.license,
		LicenseFile:  b.licenseFile,
		Dependencies: slices.Clone(b.dependencies),
	}
}

// Reset clears the builder state, allowing it to be reused.
func (b *PackageBuilder) Reset() testkit.Builder {
	b.BaseBuilder.Reset()
	b.name = "test-package"
	b.version = "1.0.0"
	b.manifestDir = ""
	b.license = "MIT"
	b.licenseFile = ""
	b.dependencies = nil
	return b
}

// Clone creates a deep copy of the PackageBuilder.
func (b *PackageBuilder) Clone() testkit.Builder {
	return &PackageBuilder{
		BaseBuilder:  b.BaseBuilder.Clone().(*testkit.BaseBuilder),
		name:         b.name,
		version:      b.version,
		manifestDir:  b.manifestDir,
		license:      b.license,
		licenseFile:  b.licenseFile,
		dependencies: slices.Clone(b.dependencies),
	}
}

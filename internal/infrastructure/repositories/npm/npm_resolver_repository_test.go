//go:build unit

package npm_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rios0rios0/bom/internal/domain/entities"
	"github.com/rios0rios0/bom/internal/infrastructure/repositories/npm"
)

const lockfileV3 = `{
  "name": "web",
  "version": "1.0.0",
  "lockfileVersion": 3,
  "packages": {
    "": {
      "name": "web",
      "version": "1.0.0",
      "workspaces": ["packages/*"],
      "dependencies": { "left-pad": "^1.3.0", "@scope/ui": "^2.0.0" },
      "devDependencies": { "jest": "^29.0.0" }
    },
    "node_modules/left-pad": {
      "version": "1.3.0",
      "license": "WTFPL",
      "dependencies": { "tiny": "^2.0.0" }
    },
    "node_modules/left-pad/node_modules/tiny": {
      "version": "2.0.0",
      "license": { "type": "MIT" }
    },
    "node_modules/tiny": {
      "version": "1.0.0",
      "licenses": [ { "type": "MIT" }, { "type": "Apache-2.0" } ]
    },
    "node_modules/@scope/ui": {
      "version": "2.1.0",
      "license": "SEE LICENSE IN LICENSE.md"
    },
    "node_modules/jest": {
      "version": "29.7.0",
      "dev": true,
      "license": "MIT"
    },
    "node_modules/shared": {
      "resolved": "packages/shared",
      "link": true
    },
    "packages/shared": {
      "name": "shared",
      "version": "0.0.1",
      "dependencies": { "tiny": "^1.0.0" }
    }
  }
}`

func newNpmProject(t *testing.T, lockContent string) string {
	t.Helper()
	projectDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(projectDir, "package.json"), []byte(`{"name":"web"}`), 0o600))
	if lockContent != "" {
		require.NoError(t, os.WriteFile(filepath.Join(projectDir, "package-lock.json"), []byte(lockContent), 0o600))
	}
	return projectDir
}

func TestNpmResolverRepository_Resolve(t *testing.T) {
	t.Parallel()

	t.Run("should treat the root and workspaces as members", func(t *testing.T) {
		t.Parallel()

		// given
		projectDir := newNpmProject(t, lockfileV3)
		resolver := npm.NewResolverRepository()

		// when
		resolution, err := resolver.Resolve(
			context.Background(), filepath.Join(projectDir, "package.json"), entities.ResolveOptions{},
		)

		// then
		require.NoError(t, err)
		assert.ElementsMatch(t, []entities.PackageID{
			{Name: "web", Version: "1.0.0"},
			{Name: "shared", Version: "0.0.1"},
		}, resolution.Members)
	})

	t.Run("should follow nested node_modules before hoisted ones", func(t *testing.T) {
		t.Parallel()

		// given
		projectDir := newNpmProject(t, lockfileV3)
		resolver := npm.NewResolverRepository()

		// when
		resolution, err := resolver.Resolve(
			context.Background(), filepath.Join(projectDir, "package.json"), entities.ResolveOptions{},
		)

		// then
		require.NoError(t, err)
		leftPad := entities.PackageID{Name: "left-pad", Version: "1.3.0"}
		shared := entities.PackageID{Name: "shared", Version: "0.0.1"}
		assert.Equal(t, []entities.PackageID{{Name: "tiny", Version: "2.0.0"}}, resolution.Graph[leftPad])
		assert.Equal(t, []entities.PackageID{{Name: "tiny", Version: "1.0.0"}}, resolution.Graph[shared])
		assert.Equal(t,
			filepath.Join(projectDir, "node_modules", "left-pad", "node_modules", "tiny"),
			resolution.Packages[entities.PackageID{Name: "tiny", Version: "2.0.0"}].ManifestDir,
		)
	})

	t.Run("should read every license notation", func(t *testing.T) {
		t.Parallel()

		// given
		projectDir := newNpmProject(t, lockfileV3)
		resolver := npm.NewResolverRepository()

		// when
		resolution, err := resolver.Resolve(
			context.Background(), filepath.Join(projectDir, "package.json"), entities.ResolveOptions{},
		)

		// then
		require.NoError(t, err)
		packages := resolution.Packages
		assert.Equal(t, "WTFPL", packages[entities.PackageID{Name: "left-pad", Version: "1.3.0"}].License)
		assert.Equal(t, "MIT", packages[entities.PackageID{Name: "tiny", Version: "2.0.0"}].License)
		assert.Equal(t, "MIT OR Apache-2.0", packages[entities.PackageID{Name: "tiny", Version: "1.0.0"}].License)

		ui := packages[entities.PackageID{Name: "@scope/ui", Version: "2.1.0"}]
		assert.Empty(t, ui.License)
		assert.Equal(t, "LICENSE.md", ui.LicenseFile)
	})

	t.Run("should leave dev dependencies and workspaces out of the top-level report", func(t *testing.T) {
		t.Parallel()

		// given
		projectDir := newNpmProject(t, lockfileV3)
		resolver := npm.NewResolverRepository()
		resolution, err := resolver.Resolve(
			context.Background(), filepath.Join(projectDir, "package.json"), entities.ResolveOptions{},
		)
		require.NoError(t, err)

		// when
		packages, enumErr := entities.Enumerate(resolution, entities.EnumerateTopLevel)

		// then
		require.NoError(t, enumErr)
		names := make([]string, 0, len(packages))
		for _, pkg := range packages {
			names = append(names, pkg.ID.String())
		}
		assert.Equal(t, []string{"@scope/ui 2.1.0", "left-pad 1.3.0", "tiny 1.0.0"}, names)
	})

	t.Run("should fail without a lockfile", func(t *testing.T) {
		t.Parallel()

		// given
		projectDir := newNpmProject(t, "")
		resolver := npm.NewResolverRepository()

		// when
		_, err := resolver.Resolve(
			context.Background(), filepath.Join(projectDir, "package.json"), entities.ResolveOptions{Locked: true},
		)

		// then
		require.Error(t, err)
		assert.ErrorIs(t, err, entities.ErrLockfileMissing)
		var resolutionErr *entities.ResolutionError
		assert.ErrorAs(t, err, &resolutionErr)
	})

	t.Run("should reject lockfile version 1", func(t *testing.T) {
		t.Parallel()

		// given
		projectDir := newNpmProject(t, `{"lockfileVersion": 1, "dependencies": {}}`)
		resolver := npm.NewResolverRepository()

		// when
		_, err := resolver.Resolve(
			context.Background(), filepath.Join(projectDir, "package.json"), entities.ResolveOptions{},
		)

		// then
		require.Error(t, err)
		assert.Contains(t, err.Error(), "lockfileVersion 1")
	})
}

const lockfileOptional = `{
  "name": "watcher",
  "version": "1.0.0",
  "lockfileVersion": 3,
  "packages": {
    "": {
      "name": "watcher",
      "version": "1.0.0",
      "dependencies": { "chokidar": "^3.6.0" }
    },
    "node_modules/chokidar": {
      "version": "3.6.0",
      "license": "MIT",
      "optionalDependencies": { "fsevents": "~2.3.2" }
    },
    "node_modules/fsevents": {
      "version": "2.3.3",
      "license": "MIT",
      "optional": true,
      "os": ["darwin"]
    }
  }
}`

func TestNpmResolverRepository_OptionalDependencies(t *testing.T) {
	t.Parallel()

	t.Run("should skip an optional dependency that is not installed on this platform", func(t *testing.T) {
		t.Parallel()

		// given
		projectDir := newNpmProject(t, lockfileOptional)
		chokidarDir := filepath.Join(projectDir, "node_modules", "chokidar")
		require.NoError(t, os.MkdirAll(chokidarDir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(chokidarDir, "LICENSE"), []byte("MIT"), 0o600))
		resolver := npm.NewResolverRepository()

		// when
		resolution, err := resolver.Resolve(
			context.Background(), filepath.Join(projectDir, "package.json"), entities.ResolveOptions{},
		)

		// then
		require.NoError(t, err)
		chokidar := entities.PackageID{Name: "chokidar", Version: "3.6.0"}
		assert.NotContains(t, resolution.Packages, entities.PackageID{Name: "fsevents", Version: "2.3.3"})
		assert.Empty(t, resolution.Graph[chokidar])

		packages, enumErr := entities.Enumerate(resolution, entities.EnumerateAll)
		require.NoError(t, enumErr)
		require.Len(t, packages, 1)
		assert.Equal(t, chokidar, packages[0].ID)
		files, locateErr := entities.LocateLicenseFiles(packages[0].ManifestDir, packages[0].LicenseFile)
		require.NoError(t, locateErr)
		assert.Equal(t, entities.LicenseFileSet{filepath.Join(chokidarDir, "LICENSE")}, files)
	})

	t.Run("should keep an optional dependency that is installed", func(t *testing.T) {
		t.Parallel()

		// given
		projectDir := newNpmProject(t, lockfileOptional)
		require.NoError(t, os.MkdirAll(filepath.Join(projectDir, "node_modules", "fsevents"), 0o755))
		resolver := npm.NewResolverRepository()

		// when
		resolution, err := resolver.Resolve(
			context.Background(), filepath.Join(projectDir, "package.json"), entities.ResolveOptions{},
		)

		// then
		require.NoError(t, err)
		fsevents := entities.PackageID{Name: "fsevents", Version: "2.3.3"}
		assert.Contains(t, resolution.Packages, fsevents)
		assert.Equal(t, []entities.PackageID{fsevents},
			resolution.Graph[entities.PackageID{Name: "chokidar", Version: "3.6.0"}])
	})
}

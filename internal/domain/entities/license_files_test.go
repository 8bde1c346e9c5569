//go:build unit

package entities_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rios0rios0/bom/internal/domain/entities"
)

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(name), 0o600))
	}
}

func TestLocateLicenseFiles(t *testing.T) {
	t.Parallel()

	t.Run("should collect every prefixed file in sorted order", func(t *testing.T) {
		t.Parallel()

		// given
		dir := t.TempDir()
		touch(t, dir, "LICENSE-MIT", "COPYRIGHT", "UNLICENSE", "LICENSE-APACHE", "README.md", "license.txt")
		require.NoError(t, os.Mkdir(filepath.Join(dir, "LICENSES"), 0o755))

		// when
		files, err := entities.LocateLicenseFiles(dir, "")

		// then
		require.NoError(t, err)
		assert.Equal(t, entities.LicenseFileSet{
			filepath.Join(dir, "COPYRIGHT"),
			filepath.Join(dir, "LICENSE-APACHE"),
			filepath.Join(dir, "LICENSE-MIT"),
			filepath.Join(dir, "UNLICENSE"),
		}, files, "matching is case-sensitive and skips directories")
	})

	t.Run("should add the declared file once", func(t *testing.T) {
		t.Parallel()

		// given
		dir := t.TempDir()
		touch(t, dir, "LICENSE", "NOTICE")

		// when
		files, err := entities.LocateLicenseFiles(dir, "./LICENSE")
		withNotice, noticeErr := entities.LocateLicenseFiles(dir, "NOTICE")

		// then
		require.NoError(t, err)
		require.NoError(t, noticeErr)
		assert.Equal(t, entities.LicenseFileSet{filepath.Join(dir, "LICENSE")}, files)
		assert.Equal(t, entities.LicenseFileSet{
			filepath.Join(dir, "LICENSE"),
			filepath.Join(dir, "NOTICE"),
		}, withNotice)
	})

	t.Run("should ignore a declared file that does not exist", func(t *testing.T) {
		t.Parallel()

		// given
		dir := t.TempDir()

		// when
		files, err := entities.LocateLicenseFiles(dir, "docs/LICENSE.md")

		// then
		require.NoError(t, err)
		assert.Empty(t, files)
	})

	t.Run("should fail when the directory cannot be listed", func(t *testing.T) {
		t.Parallel()

		// given
		dir := filepath.Join(t.TempDir(), "gone")

		// when
		files, err := entities.LocateLicenseFiles(dir, "")

		// then
		require.Error(t, err)
		assert.Nil(t, files)
		var fsErr *entities.FilesystemError
		require.ErrorAs(t, err, &fsErr)
		assert.Equal(t, dir, fsErr.Path)
	})

	t.Run("should skip symlinks that do not lead to a regular file", func(t *testing.T) {
		t.Parallel()

		// given
		dir := t.TempDir()
		touch(t, dir, "LICENSE-MIT")
		require.NoError(t, os.Mkdir(filepath.Join(dir, "legal"), 0o755))
		require.NoError(t, os.Symlink(filepath.Join(dir, "gone"), filepath.Join(dir, "LICENSE-DANGLING")))
		require.NoError(t, os.Symlink(filepath.Join(dir, "legal"), filepath.Join(dir, "LICENSES")))
		require.NoError(t, os.Symlink(filepath.Join(dir, "LICENSE-MIT"), filepath.Join(dir, "LICENSE")))

		// when
		files, err := entities.LocateLicenseFiles(dir, "")

		// then
		require.NoError(t, err)
		assert.Equal(t, entities.LicenseFileSet{
			filepath.Join(dir, "LICENSE"),
			filepath.Join(dir, "LICENSE-MIT"),
		}, files, "a symlink to a regular file is kept")
	})

	t.Run("should ignore a declared license file that is a directory", func(t *testing.T) {
		t.Parallel()

		// given
		dir := t.TempDir()
		require.NoError(t, os.Mkdir(filepath.Join(dir, "legal"), 0o755))

		// when
		files, err := entities.LocateLicenseFiles(dir, "legal")

		// then
		require.NoError(t, err)
		assert.Empty(t, files)
	})
}

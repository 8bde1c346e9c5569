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

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestNewSettings(t *testing.T) {
	t.Run("should parse every key and expand environment variables", func(t *testing.T) {
		// given
		t.Setenv("BOM_TEST_CARGO_HOME", "/opt/cargo")
		path := writeConfig(t, t.TempDir(), ".bom.yaml", `
ecosystem: cargo
all_dependencies: true
color: never
format: json
offline: true
locked: true
cargo_home: ${BOM_TEST_CARGO_HOME}
exclude:
  - internal-crate
`)

		// when
		settings, err := entities.NewSettings(path)

		// then
		require.NoError(t, err)
		assert.Equal(t, "cargo", settings.Ecosystem)
		assert.True(t, settings.AllDependencies)
		assert.Equal(t, entities.ColorNever, settings.Color)
		assert.Equal(t, entities.FormatJSON, settings.Format)
		assert.Equal(t, "/opt/cargo", settings.CargoHome)
		assert.True(t, settings.IsExcluded("internal-crate"))
		assert.False(t, settings.IsExcluded("serde"))
	})

	t.Run("should fill defaults for an empty file", func(t *testing.T) {
		// given
		path := writeConfig(t, t.TempDir(), "bom.yaml", "")

		// when
		settings, err := entities.NewSettings(path)

		// then
		require.NoError(t, err)
		assert.Equal(t, entities.DefaultSettings(), settings)
	})

	t.Run("should reject an unknown colour mode", func(t *testing.T) {
		// given
		path := writeConfig(t, t.TempDir(), "bom.yaml", "color: rainbow\n")

		// when
		settings, err := entities.NewSettings(path)

		// then
		require.Error(t, err)
		assert.Nil(t, settings)
	})

	t.Run("should reject malformed YAML", func(t *testing.T) {
		// given
		path := writeConfig(t, t.TempDir(), "bom.yaml", "exclude: [unterminated\n")

		// when
		_, err := entities.NewSettings(path)

		// then
		require.ErrorContains(t, err, "failed to parse config file")
	})
}

func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("should prefer the hidden file in the project directory", func(t *testing.T) {
		t.Parallel()

		// given
		dir := t.TempDir()
		hidden := writeConfig(t, dir, ".bom.yaml", "")
		writeConfig(t, dir, "bom.yaml", "")

		// when
		path, err := entities.FindConfigFile(dir)

		// then
		require.NoError(t, err)
		assert.Equal(t, hidden, path)
	})

	t.Run("should look into the .config directory of the project", func(t *testing.T) {
		t.Parallel()

		// given
		dir := t.TempDir()
		nested := writeConfig(t, dir, filepath.Join(".config", "bom.yml"), "")

		// when
		path, err := entities.FindConfigFile(dir)

		// then
		require.NoError(t, err)
		assert.Equal(t, nested, path)
	})
}

func TestSettings_ResolveOptions(t *testing.T) {
	t.Parallel()

	t.Run("should make frozen imply offline and locked", func(t *testing.T) {
		t.Parallel()

		// given
		settings := entities.DefaultSettings()
		settings.Frozen = true
		settings.CargoHome = "/cache"

		// when
		opts := settings.ResolveOptions()

		// then
		assert.Equal(t, entities.ResolveOptions{
			Offline: true, Locked: true, Frozen: true, ToolHome: "/cache",
		}, opts)
	})
}

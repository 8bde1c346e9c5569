//go:build unit

package terminal_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rios0rios0/bom/internal/domain/entities"
	"github.com/rios0rios0/bom/internal/domain/repositories"
	"github.com/rios0rios0/bom/internal/infrastructure/repositories/terminal"
)

func newReport(t *testing.T) (*entities.Report, string) {
	t.Helper()
	dir := t.TempDir()
	apache := filepath.Join(dir, "LICENSE-APACHE")
	mit := filepath.Join(dir, "LICENSE-MIT")
	require.NoError(t, os.WriteFile(apache, []byte("Apache License\n"), 0o600))
	require.NoError(t, os.WriteFile(mit, []byte("MIT License"), 0o600))

	report := &entities.Report{}
	report.Add(
		entities.PackageID{Name: "foo", Version: "1.0.0"},
		entities.ClassifyLicense("MIT/Apache-2.0", ""),
		entities.LicenseFileSet{apache, mit},
	)
	report.Add(
		entities.PackageID{Name: "bar", Version: "0.1.0"},
		entities.ClassifyLicense("", ""),
		nil,
	)
	report.Sort()
	return report, dir
}

func TestTerminalReportRepository_Render(t *testing.T) {
	t.Parallel()

	t.Run("should print the table followed by the license texts", func(t *testing.T) {
		t.Parallel()

		// given
		report, _ := newReport(t)
		var out bytes.Buffer

		// when
		err := terminal.NewReportRepository().Render(&out, report, repositories.RenderOptions{
			Format: entities.FormatTable,
		})

		// then
		require.NoError(t, err)
		text := out.String()
		assert.NotContains(t, text, "\x1b[", "no escape sequences without colour")

		lines := strings.Split(text, "\n")
		assert.Regexp(t, `^Name +\| Version +\| Licenses$`, lines[0])
		assert.Regexp(t, `^-+\+-+\+-+$`, lines[1])
		assert.Regexp(t, `^bar +\| 0\.1\.0 +\| Missing$`, lines[2])
		assert.Regexp(t, `^foo +\| 1\.0\.0 +\| Apache-2\.0, MIT$`, lines[3])

		assert.Contains(t, text, "-----BEGIN foo 1.0.0 LICENSES-----\n"+
			"Apache License\n"+
			"-----NEXT LICENSE-----\n"+
			"MIT License\n"+
			"-----END foo 1.0.0 LICENSES-----\n\n")
		assert.NotContains(t, text, "BEGIN bar")
	})

	t.Run("should not print a separator for a single license file", func(t *testing.T) {
		t.Parallel()

		// given
		dir := t.TempDir()
		license := filepath.Join(dir, "LICENSE")
		require.NoError(t, os.WriteFile(license, []byte("ISC License\n"), 0o600))
		report := &entities.Report{}
		report.Add(entities.PackageID{Name: "once", Version: "1.0.4"},
			entities.ClassifyLicense("ISC", ""), entities.LicenseFileSet{license})
		var out bytes.Buffer

		// when
		err := terminal.NewReportRepository().Render(&out, report, repositories.RenderOptions{})

		// then
		require.NoError(t, err)
		text := out.String()
		assert.Equal(t, 0, strings.Count(text, "-----NEXT LICENSE-----"))
		assert.Equal(t, 1, strings.Count(text, "-----BEGIN once 1.0.4 LICENSES-----"))
		assert.Contains(t, text, "-----BEGIN once 1.0.4 LICENSES-----\n"+
			"ISC License\n"+
			"-----END once 1.0.4 LICENSES-----\n\n")
	})

	t.Run("should report an unreadable license file", func(t *testing.T) {
		t.Parallel()

		// given
		report, dir := newReport(t)
		require.NoError(t, os.Remove(filepath.Join(dir, "LICENSE-MIT")))
		var out bytes.Buffer

		// when
		err := terminal.NewReportRepository().Render(&out, report, repositories.RenderOptions{})

		// then
		require.Error(t, err)
		var fsErr *entities.FilesystemError
		require.ErrorAs(t, err, &fsErr)
		assert.Equal(t, filepath.Join(dir, "LICENSE-MIT"), fsErr.Path)
	})

	t.Run("should print the summary as JSON", func(t *testing.T) {
		t.Parallel()

		// given
		report, dir := newReport(t)
		var out bytes.Buffer

		// when
		err := terminal.NewReportRepository().Render(&out, report, repositories.RenderOptions{
			Format: entities.FormatJSON,
		})

		// then
		require.NoError(t, err)
		var document struct {
			Dependencies []struct {
				Name         string   `json:"name"`
				Version      string   `json:"version"`
				Licenses     string   `json:"licenses"`
				LicenseFiles []string `json:"license_files"`
			} `json:"dependencies"`
		}
		require.NoError(t, json.Unmarshal(out.Bytes(), &document))
		require.Len(t, document.Dependencies, 2)
		assert.Equal(t, "bar", document.Dependencies[0].Name)
		assert.Empty(t, document.Dependencies[0].LicenseFiles)
		assert.Equal(t, "Apache-2.0, MIT", document.Dependencies[1].Licenses)
		assert.Equal(t, []string{
			filepath.Join(dir, "LICENSE-APACHE"),
			filepath.Join(dir, "LICENSE-MIT"),
		}, document.Dependencies[1].LicenseFiles)
	})

	t.Run("should reject an unknown format", func(t *testing.T) {
		t.Parallel()

		// given
		report, _ := newReport(t)

		// when
		err := terminal.NewReportRepository().Render(&bytes.Buffer{}, report, repositories.RenderOptions{
			Format: "xml",
		})

		// then
		require.Error(t, err)
	})
}

//go:build unit

package controllers_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rios0rios0/bom/internal/domain/entities"
	"github.com/rios0rios0/bom/internal/infrastructure/controllers"
	"github.com/rios0rios0/bom/test/domain/commanddoubles"
)

func newCommand(t *testing.T, controller *controllers.BomController, flags map[string]string) (*cobra.Command, *bytes.Buffer) {
	t.Helper()
	//nolint:exhaustruct // Minimal Command initialization with required fields only
	cmd := &cobra.Command{Use: "bom"}
	controller.AddFlags(cmd)
	for name, value := range flags {
		require.NoError(t, cmd.Flags().Set(name, value))
	}
	var out bytes.Buffer
	cmd.SetOut(&out)
	return cmd, &out
}

func TestBomController_Execute(t *testing.T) {
	t.Parallel()

	t.Run("should run the command with defaults when no config file exists", func(t *testing.T) {
		t.Parallel()

		// given
		projectDir := t.TempDir()
		stub := &commanddoubles.StubBomCommand{}
		controller := controllers.NewBomController(stub)
		cmd, out := newCommand(t, controller, map[string]string{"manifest-path": projectDir})

		// when
		err := controller.Execute(cmd, nil)

		// then
		require.NoError(t, err)
		assert.Equal(t, 1, stub.ExecuteCallCount)
		assert.Equal(t, projectDir, stub.LastOpts.ManifestPath)
		assert.Same(t, out, stub.LastOpts.Output)
		assert.False(t, stub.LastOpts.Color, "a buffer is not a terminal")
		assert.False(t, stub.LastSettings.AllDependencies)
		assert.Equal(t, entities.FormatTable, stub.LastSettings.Format)
	})

	t.Run("should let flags override the config file", func(t *testing.T) {
		t.Parallel()

		// given
		projectDir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(projectDir, ".bom.yaml"), []byte(
			"ecosystem: npm\nformat: json\nexclude: [internal-tool]\n",
		), 0o600))
		stub := &commanddoubles.StubBomCommand{}
		controller := controllers.NewBomController(stub)
		cmd, _ := newCommand(t, controller, map[string]string{
			"manifest-path": projectDir,
			"ecosystem":     "cargo",
			"all":           "true",
			"frozen":        "true",
			"color":         "always",
		})

		// when
		err := controller.Execute(cmd, nil)

		// then
		require.NoError(t, err)
		settings := stub.LastSettings
		assert.Equal(t, "cargo", settings.Ecosystem)
		assert.Equal(t, entities.FormatJSON, settings.Format)
		assert.Equal(t, []string{"internal-tool"}, settings.Exclude)
		assert.True(t, settings.AllDependencies)
		assert.True(t, settings.Frozen)
		assert.True(t, stub.LastOpts.Color)
	})

	t.Run("should reject an invalid format before running the command", func(t *testing.T) {
		t.Parallel()

		// given
		stub := &commanddoubles.StubBomCommand{}
		controller := controllers.NewBomController(stub)
		cmd, _ := newCommand(t, controller, map[string]string{
			"manifest-path": t.TempDir(),
			"format":        "xml",
		})

		// when
		err := controller.Execute(cmd, nil)

		// then
		require.Error(t, err)
		assert.Zero(t, stub.ExecuteCallCount)
	})

	t.Run("should fail on an unreadable explicit config file", func(t *testing.T) {
		t.Parallel()

		// given
		stub := &commanddoubles.StubBomCommand{}
		controller := controllers.NewBomController(stub)
		cmd, _ := newCommand(t, controller, map[string]string{
			"config": filepath.Join(t.TempDir(), "missing.yaml"),
		})

		// when
		err := controller.Execute(cmd, nil)

		// then
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to load config")
	})

	t.Run("should return the command failure", func(t *testing.T) {
		t.Parallel()

		// given
		stub := &commanddoubles.StubBomCommand{ExecuteErr: errors.New("boom")}
		controller := controllers.NewBomController(stub)
		cmd, _ := newCommand(t, controller, map[string]string{"manifest-path": t.TempDir()})

		// when
		err := controller.Execute(cmd, nil)

		// then
		require.ErrorContains(t, err, "boom")
	})
}

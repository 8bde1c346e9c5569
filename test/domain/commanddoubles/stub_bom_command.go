//go:build integration || unit || test

package commanddoubles //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"context"

	"github.com/rios0rios0/bom/internal/domain/commands"
	"github.com/rios0rios0/bom/internal/domain/entities"
)

// StubBomCommand is a stub implementation of commands.Bom.
type StubBomCommand struct {
	ExecuteCallCount int
	ExecuteErr       error
	LastSettings     *entities.Settings
	LastOpts         commands.BomOptions
}

var _ commands.Bom = (*StubBomCommand)(nil)

func (s *StubBomCommand) Execute(
	_ context.Context,
	settings *entities.Settings,
	opts commands.BomOptions,
) error {
	s.ExecuteCallCount++
	s.LastSettings = settings
	s.LastOpts = opts
	return s.ExecuteErr
}

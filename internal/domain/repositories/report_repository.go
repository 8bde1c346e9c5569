package repositories

import (
	"io"

	"github.com/rios0rios0/bom/internal/domain/entities"
)

// RenderOptions controls how a report is written.
type RenderOptions struct {
	Format string // entities.FormatTable or entities.FormatJSON
	Color  bool
}

// ReportRepository writes a finished report to an output stream.
type ReportRepository interface {
	Render(w io.Writer, report *entities.Report, opts RenderOptions) error
}

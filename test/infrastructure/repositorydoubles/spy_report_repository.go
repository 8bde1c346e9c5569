//go:build integration || unit || test

package repositorydoubles //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"io"

	"github.com/rios0rios0/bom/internal/domain/entities"
	"github.com/rios0rios0/bom/internal/domain/repositories"
)

// SpyReportRepository implements repositories.ReportRepository and records
// every report it was asked to render.
type SpyReportRepository struct {
	RenderErr   error
	Reports     []*entities.Report
	RenderOpts  []repositories.RenderOptions
	LastWritten io.Writer
}

var _ repositories.ReportRepository = (*SpyReportRepository)(nil)

func (s *SpyReportRepository) Render(
	w io.Writer,
	report *entities.Report,
	opts repositories.RenderOptions,
) error {
	s.Reports = append(s.Reports, report)
	s.RenderOpts = append(s.RenderOpts, opts)
	s.LastWritten = w
	return s.RenderErr
}

// LastReport returns the most recent rendered report, or nil.
func (s *SpyReportRepository) LastReport() *entities.Report {
	if len(s.Reports) == 0 {
		return nil
	}
	return s.Reports[len(s.Reports)-1]
}

package terminal

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/muesli/termenv"

	"github.com/rios0rios0/bom/internal/domain/entities"
	"github.com/rios0rios0/bom/internal/domain/repositories"
)

const (
	colorHeader = lipgloss.Color("#7C3AED")
	colorMuted  = lipgloss.Color("#6B7280")

	nextLicenseMarker = "-----NEXT LICENSE-----"
)

// TerminalReportRepository implements repositories.ReportRepository. The
// table format prints a summary table followed by the license texts, the
// json format prints the summary only.
type TerminalReportRepository struct{}

// NewReportRepository creates a new TerminalReportRepository.
func NewReportRepository() repositories.ReportRepository {
	return &TerminalReportRepository{}
}

// Render writes the report to w in the requested format.
func (it *TerminalReportRepository) Render(
	w io.Writer,
	report *entities.Report,
	opts repositories.RenderOptions,
) error {
	switch opts.Format {
	case entities.FormatJSON:
		return renderJSON(w, report)
	case entities.FormatTable, "":
		if err := renderTable(w, report, opts.Color); err != nil {
			return err
		}
		return renderLicenses(w, report)
	default:
		return fmt.Errorf("unsupported output format %q", opts.Format)
	}
}

func renderTable(w io.Writer, report *entities.Report, color bool) error {
	renderer := lipgloss.NewRenderer(w)
	if !color {
		renderer.SetColorProfile(termenv.Ascii)
	}

	cellStyle := renderer.NewStyle().Padding(0, 1)
	headerStyle := cellStyle
	borderStyle := renderer.NewStyle()
	if color {
		headerStyle = cellStyle.Bold(true).Foreground(colorHeader)
		borderStyle = borderStyle.Foreground(colorMuted)
	}

	rows := make([][]string, 0, len(report.Rows))
	for _, row := range report.Rows {
		rows = append(rows, []string{row.Name, row.Version, row.Licenses})
	}

	summary := table.New().
		Border(lipgloss.ASCIIBorder()).
		BorderStyle(borderStyle).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderColumn(true).
		BorderHeader(true).
		Headers("Name", "Version", "Licenses").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	if _, err := fmt.Fprintf(w, "%s\n\n", trimLines(summary.Render())); err != nil {
		return fmt.Errorf("failed to write report table: %w", err)
	}
	return nil
}

// renderLicenses dumps every license file between BEGIN and END markers.
func renderLicenses(w io.Writer, report *entities.Report) error {
	for _, bundle := range report.NonEmptyBundles() {
		var builder strings.Builder
		fmt.Fprintf(&builder, "-----BEGIN %s %s LICENSES-----\n", bundle.Name, bundle.Version)

		for idx, path := range bundle.Files {
			if idx > 0 {
				builder.WriteString(nextLicenseMarker + "\n")
			}
			content, err := os.ReadFile(path)
			if err != nil {
				return &entities.FilesystemError{Path: path, Err: err}
			}
			builder.Write(content)
			if len(content) == 0 || content[len(content)-1] != '\n' {
				builder.WriteByte('\n')
			}
		}

		fmt.Fprintf(&builder, "-----END %s %s LICENSES-----\n\n", bundle.Name, bundle.Version)
		if _, err := io.WriteString(w, builder.String()); err != nil {
			return fmt.Errorf("failed to write licenses of %s %s: %w", bundle.Name, bundle.Version, err)
		}
	}
	return nil
}

type jsonReport struct {
	Dependencies []jsonDependency `json:"dependencies"`
}

type jsonDependency struct {
	Name         string   `json:"name"`
	Version      string   `json:"version"`
	Licenses     string   `json:"licenses"`
	LicenseFiles []string `json:"license_files"`
}

func renderJSON(w io.Writer, report *entities.Report) error {
	files := make(map[entities.PackageID][]string, len(report.Bundles))
	for _, bundle := range report.Bundles {
		id := entities.PackageID{Name: bundle.Name, Version: bundle.Version}
		files[id] = append(files[id], bundle.Files...)
	}

	document := jsonReport{Dependencies: make([]jsonDependency, 0, len(report.Rows))}
	for _, row := range report.Rows {
		licenseFiles := files[entities.PackageID{Name: row.Name, Version: row.Version}]
		if licenseFiles == nil {
			licenseFiles = []string{}
		}
		document.Dependencies = append(document.Dependencies, jsonDependency{
			Name:         row.Name,
			Version:      row.Version,
			Licenses:     row.Licenses,
			LicenseFiles: licenseFiles,
		})
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(document); err != nil {
		return fmt.Errorf("failed to write JSON report: %w", err)
	}
	return nil
}

// trimLines drops the trailing padding lipgloss leaves on every line.
func trimLines(rendered string) string {
	lines := strings.Split(rendered, "\n")
	for idx, line := range lines {
		lines[idx] = strings.Trim(line, " ")
	}
	return strings.Join(lines, "\n")
}

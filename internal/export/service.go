package export

import (
	"fmt"
	"time"
)

// Service renders task exports. Rows arrive pre-scoped: the caller is
// responsible for only passing tasks the requester may see.
type Service struct {
	now func() time.Time
}

// NewService creates a new export service
func NewService() *Service {
	return &Service{now: time.Now}
}

// Export generates an export in the requested format
func (s *Service) Export(req Request, rows []TaskRow) (*Result, error) {
	title := req.Title
	if title == "" {
		title = "Task Report"
	}

	switch req.Format {
	case FormatCSV:
		return exportCSV(rows, title)
	case FormatPDF:
		html, err := RenderReportHTML(TemplateData{
			Title:       title,
			Requester:   req.Requester,
			GeneratedAt: s.now(),
			Rows:        rows,
		})
		if err != nil {
			return nil, fmt.Errorf("render template: %w", err)
		}
		return exportPDF(html, title)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, req.Format)
	}
}

// Package export renders task reports as CSV or PDF downloads.
package export

import (
	"errors"
	"time"
)

// Format represents the export output format
type Format string

const (
	FormatCSV Format = "csv"
	FormatPDF Format = "pdf"
)

// Request contains parameters for an export operation
type Request struct {
	Format    Format
	Title     string
	Requester string
}

// TaskRow is one task as it appears in an export, with IDs already
// resolved to display names.
type TaskRow struct {
	ID          string
	Title       string
	Description string
	Status      string
	Priority    string
	Creator     string
	Assignee    string
	Project     string
	DueDate     *time.Time
	CompletedAt *time.Time
	Tags        []string
	TimeSpent   int // minutes
	CreatedAt   time.Time
}

// Result contains the export output
type Result struct {
	Data     []byte
	Filename string
	MimeType string
}

var (
	// ErrPDFDependencyMissing indicates PDF export runtime dependencies are unavailable.
	ErrPDFDependencyMissing = errors.New("export pdf dependency missing")
	// ErrUnsupportedFormat indicates the requested format is not csv or pdf.
	ErrUnsupportedFormat = errors.New("unsupported export format")
)

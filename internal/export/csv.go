package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var csvHeader = []string{
	"ID", "Title", "Description", "Status", "Priority",
	"Creator", "Assignee", "Project", "Due Date", "Completed At",
	"Tags", "Time Spent (min)", "Created At",
}

func exportCSV(rows []TaskRow, title string) (*Result, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range rows {
		record := []string{
			row.ID,
			row.Title,
			row.Description,
			row.Status,
			row.Priority,
			row.Creator,
			row.Assignee,
			row.Project,
			formatDatePtr(row.DueDate),
			formatDatePtr(row.CompletedAt),
			strings.Join(row.Tags, "; "),
			strconv.Itoa(row.TimeSpent),
			row.CreatedAt.Format("2006-01-02"),
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}

	return &Result{
		Data:     buf.Bytes(),
		Filename: sanitizeFilename(title) + ".csv",
		MimeType: "text/csv",
	}, nil
}

func formatDatePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

package export

import (
	"bytes"
	"html/template"
	"time"
)

var reportTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"formatDate": func(t *time.Time) string {
		if t == nil {
			return "—"
		}
		return t.Format("Jan 2, 2006")
	},
}).Parse(reportTemplateHTML))

// TemplateData holds data for the task report template.
type TemplateData struct {
	Title       string
	Requester   string
	GeneratedAt time.Time
	Rows        []TaskRow
}

// RenderReportHTML renders the task report template with provided data.
func RenderReportHTML(data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const reportTemplateHTML = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>{{.Title}}</title>
  <style>
    body { font-family: Arial, sans-serif; line-height: 1.5; margin: 2rem; }
    h1 { border-bottom: 2px solid #333; padding-bottom: 0.5rem; }
    .meta { color: #666; font-size: 0.9em; margin-bottom: 1.5rem; }
    table { width: 100%; border-collapse: collapse; font-size: 0.85em; }
    th, td { border: 1px solid #ccc; padding: 0.4rem 0.6rem; text-align: left; }
    th { background: #f0f0f0; }
    .status-COMPLETED { color: #2a7; }
    .priority-URGENT { color: #c22; font-weight: bold; }
  </style>
</head>
<body>
  <h1>{{.Title}}</h1>
  <div class="meta">Generated for {{.Requester}} on {{.GeneratedAt.Format "Jan 2, 2006 15:04"}} · {{len .Rows}} tasks</div>
  <table>
    <tr>
      <th>Title</th><th>Status</th><th>Priority</th><th>Assignee</th>
      <th>Project</th><th>Due</th><th>Completed</th>
    </tr>
    {{range .Rows}}
    <tr>
      <td>{{.Title}}</td>
      <td class="status-{{.Status}}">{{.Status}}</td>
      <td class="priority-{{.Priority}}">{{.Priority}}</td>
      <td>{{.Assignee}}</td>
      <td>{{.Project}}</td>
      <td>{{formatDate .DueDate}}</td>
      <td>{{formatDate .CompletedAt}}</td>
    </tr>
    {{end}}
  </table>
</body>
</html>`

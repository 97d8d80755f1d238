package search

import (
	"database/sql"
	"fmt"
	"strings"
)

// PgSearch implements Searcher with ILIKE matching over tasks and notes
// as a fallback when Meilisearch is down.
type PgSearch struct {
	db *sql.DB
}

func NewPgSearch(db *sql.DB) *PgSearch {
	return &PgSearch{db: db}
}

// Healthy always returns true. If Postgres is down, the whole app is down.
func (p *PgSearch) Healthy() bool {
	return true
}

func (p *PgSearch) Search(q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	pattern := "%" + q.Text + "%"
	var subQueries []string
	args := []any{pattern}
	argN := 2

	if q.FilterType == "" || q.FilterType == ResultTask {
		where := `(t.title ILIKE $1 OR t.description ILIKE $1)`
		if !q.ScopeAll {
			where += fmt.Sprintf(` AND (t.creator_id = $%d OR t.assignee_id = $%[1]d)`, argN)
			args = append(args, q.UserID)
			argN++
		}
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'task'::text AS type, t.id, t.title,
				LEFT(t.description, 200) AS snippet,
				t.status, t.priority, t.updated_at
			FROM tasks t
			WHERE %s`, where))
	}

	if q.FilterType == "" || q.FilterType == ResultNote {
		where := fmt.Sprintf(`(n.title ILIKE $1 OR n.content ILIKE $1) AND n.author_id = $%d`, argN)
		args = append(args, q.UserID)
		argN++
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'note'::text AS type, n.id, n.title,
				LEFT(n.content, 200) AS snippet,
				''::text AS status, ''::text AS priority, n.updated_at
			FROM notes n
			WHERE %s`, where))
	}

	if len(subQueries) == 0 {
		return nil, 0, nil
	}

	query := `SELECT type, id, title, snippet, status, priority FROM (` +
		strings.Join(subQueries, " UNION ALL ") +
		fmt.Sprintf(`) hits ORDER BY updated_at DESC LIMIT $%d OFFSET $%d`, argN, argN+1)
	args = append(args, limit, offset)

	rows, err := p.db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pg search: %w", err)
	}
	defer rows.Close()

	results := make([]Result, 0)
	for rows.Next() {
		var r Result
		var typ string
		if err := rows.Scan(&typ, &r.ID, &r.Title, &r.Snippet, &r.Status, &r.Priority); err != nil {
			return nil, 0, fmt.Errorf("scan search hit: %w", err)
		}
		r.Type = ResultType(typ)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate search hits: %w", err)
	}
	return results, len(results), nil
}

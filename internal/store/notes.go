package store

import (
	"context"
	"fmt"
)

// ListAllNotes returns every note regardless of author, used when
// rebuilding the search index.
func (s *PostgresStore) ListAllNotes(ctx context.Context) ([]Note, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, author_id, title, content, created_at, updated_at
		FROM notes
		ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list all notes: %w", err)
	}
	defer rows.Close()

	items := make([]Note, 0)
	for rows.Next() {
		var item Note
		if err := rows.Scan(&item.ID, &item.AuthorID, &item.Title, &item.Content, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notes: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) ListNotes(ctx context.Context, authorID string) ([]Note, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, author_id, title, content, created_at, updated_at
		FROM notes
		WHERE author_id=$1
		ORDER BY updated_at DESC
	`, authorID)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	items := make([]Note, 0)
	for rows.Next() {
		var item Note
		if err := rows.Scan(&item.ID, &item.AuthorID, &item.Title, &item.Content, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notes: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetNote(ctx context.Context, noteID string) (Note, error) {
	var item Note
	err := s.db.QueryRowContext(ctx, `
		SELECT id, author_id, title, content, created_at, updated_at
		FROM notes
		WHERE id=$1
	`, noteID).Scan(&item.ID, &item.AuthorID, &item.Title, &item.Content, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return Note{}, err
	}
	return item, nil
}

func (s *PostgresStore) CreateNote(ctx context.Context, note Note) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notes (id, author_id, title, content)
		VALUES ($1, $2, $3, $4)
	`, note.ID, note.AuthorID, note.Title, note.Content)
	if err != nil {
		return fmt.Errorf("create note: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateNote(ctx context.Context, note Note) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE notes SET title=$2, content=$3, updated_at=NOW() WHERE id=$1
	`, note.ID, note.Title, note.Content)
	if err != nil {
		return fmt.Errorf("update note: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteNote(ctx context.Context, noteID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM notes WHERE id=$1`, noteID)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListProjects(ctx context.Context) ([]Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, owner_id, is_active, created_at, updated_at
		FROM projects
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	items := make([]Project, 0)
	for rows.Next() {
		var item Project
		if err := rows.Scan(&item.ID, &item.Name, &item.Description, &item.OwnerID, &item.IsActive, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetProject(ctx context.Context, projectID string) (Project, error) {
	var item Project
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, owner_id, is_active, created_at, updated_at
		FROM projects
		WHERE id=$1
	`, projectID).Scan(&item.ID, &item.Name, &item.Description, &item.OwnerID, &item.IsActive, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return Project{}, err
	}
	return item, nil
}

func (s *PostgresStore) CreateProject(ctx context.Context, project Project) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (id, name, description, owner_id, is_active)
		VALUES ($1, $2, $3, $4, $5)
	`, project.ID, project.Name, project.Description, project.OwnerID, project.IsActive)
	if err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateProject(ctx context.Context, project Project) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE projects
		SET name=$2, description=$3, is_active=$4, updated_at=NOW()
		WHERE id=$1
	`, project.ID, project.Name, project.Description, project.IsActive)
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListTags(ctx context.Context) ([]Tag, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, color FROM tags ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	items := make([]Tag, 0)
	for rows.Next() {
		var item Tag
		if err := rows.Scan(&item.ID, &item.Name, &item.Color); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tags: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) CreateTag(ctx context.Context, tag Tag) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tags (id, name, color)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE SET color=EXCLUDED.color
	`, tag.ID, tag.Name, tag.Color)
	if err != nil {
		return fmt.Errorf("create tag: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteTag(ctx context.Context, tagID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM tags WHERE id=$1`, tagID)
	if err != nil {
		return fmt.Errorf("delete tag: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListTimeEntries(ctx context.Context, taskID string) ([]TimeEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, task_id, user_id, minutes, entry_date, note, created_at
		FROM time_entries
		WHERE task_id=$1
		ORDER BY entry_date DESC, created_at DESC
	`, taskID)
	if err != nil {
		return nil, fmt.Errorf("list time entries: %w", err)
	}
	defer rows.Close()

	items := make([]TimeEntry, 0)
	for rows.Next() {
		var item TimeEntry
		if err := rows.Scan(&item.ID, &item.TaskID, &item.UserID, &item.Minutes, &item.EntryDate, &item.Note, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan time entry: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate time entries: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) CreateTimeEntry(ctx context.Context, entry TimeEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO time_entries (id, task_id, user_id, minutes, entry_date, note)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, entry.ID, entry.TaskID, entry.UserID, entry.Minutes, entry.EntryDate, entry.Note)
	if err != nil {
		return fmt.Errorf("create time entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) SumTimeEntries(ctx context.Context, taskID string) (int, error) {
	var total int
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(minutes), 0) FROM time_entries WHERE task_id=$1
	`, taskID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum time entries: %w", err)
	}
	return total, nil
}

package store

import (
	"context"
	"fmt"
	"strings"

	"taskflow/api/internal/access"
)

// TaskQuery carries the optional list filters parsed from the request.
// Empty fields are ignored.
type TaskQuery struct {
	Status     string
	Priority   string
	AssigneeID string
	ProjectID  string
	Search     string
}

const taskColumns = `id, creator_id, assignee_id, project_id, title, description, status, priority, due_date, completed_at, department_id, module_id, task_type_id, array_to_string(tags, ','), created_at, updated_at`

func scanTask(row interface{ Scan(...any) error }) (Task, error) {
	var task Task
	var tags string
	err := row.Scan(
		&task.ID,
		&task.CreatorID,
		&task.AssigneeID,
		&task.ProjectID,
		&task.Title,
		&task.Description,
		&task.Status,
		&task.Priority,
		&task.DueDate,
		&task.CompletedAt,
		&task.DepartmentID,
		&task.ModuleID,
		&task.TaskTypeID,
		&tags,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return Task{}, err
	}
	task.Tags = splitTags(tags)
	return task, nil
}

func splitTags(joined string) []string {
	if joined == "" {
		return []string{}
	}
	return strings.Split(joined, ",")
}

func joinTags(tags []string) string {
	return strings.Join(tags, ",")
}

func (s *PostgresStore) GetTask(ctx context.Context, taskID string) (Task, error) {
	return scanTask(s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id=$1`, taskID))
}

func (s *PostgresStore) CreateTask(ctx context.Context, task Task) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, creator_id, assignee_id, project_id, title, description, status, priority, due_date, department_id, module_id, task_type_id, tags)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, string_to_array(NULLIF($13, ''), ','))
	`, task.ID, task.CreatorID, task.AssigneeID, task.ProjectID, task.Title, task.Description, task.Status, task.Priority, task.DueDate, task.DepartmentID, task.ModuleID, task.TaskTypeID, joinTags(task.Tags))
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateTask(ctx context.Context, task Task) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE tasks
		SET assignee_id=$2, project_id=$3, title=$4, description=$5, status=$6, priority=$7,
		    due_date=$8, completed_at=$9, department_id=$10, module_id=$11, task_type_id=$12,
		    tags=COALESCE(string_to_array(NULLIF($13, ''), ','), '{}'), updated_at=NOW()
		WHERE id=$1
	`, task.ID, task.AssigneeID, task.ProjectID, task.Title, task.Description, task.Status, task.Priority,
		task.DueDate, task.CompletedAt, task.DepartmentID, task.ModuleID, task.TaskTypeID, joinTags(task.Tags))
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteTask(ctx context.Context, taskID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id=$1`, taskID)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

// ListTasks returns tasks visible under the given scope filter. Managers
// and admins pass an all-scope filter; everyone else only sees tasks they
// created or are assigned to.
func (s *PostgresStore) ListTasks(ctx context.Context, filter access.Filter, q TaskQuery) ([]Task, error) {
	var (
		clauses []string
		args    []any
	)
	add := func(clause string, value any) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}

	if !filter.All {
		add(`(creator_id=$%d OR assignee_id=$%[1]d)`, filter.UserID)
	}
	if q.Status != "" {
		add(`status=$%d`, q.Status)
	}
	if q.Priority != "" {
		add(`priority=$%d`, q.Priority)
	}
	if q.AssigneeID != "" {
		add(`assignee_id=$%d`, q.AssigneeID)
	}
	if q.ProjectID != "" {
		add(`project_id=$%d`, q.ProjectID)
	}
	if q.Search != "" {
		add(`(title ILIKE '%%'||$%d||'%%' OR description ILIKE '%%'||$%[1]d||'%%')`, q.Search)
	}

	query := `SELECT ` + taskColumns + ` FROM tasks`
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	items := make([]Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		items = append(items, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return items, nil
}

// ListOpenTasksForUser feeds the notification builder: every non-terminal
// task the user created or is assigned to.
func (s *PostgresStore) ListOpenTasksForUser(ctx context.Context, userID string) ([]Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE (creator_id=$1 OR assignee_id=$1)
		  AND status NOT IN ('COMPLETED', 'CANCELLED')
		ORDER BY due_date ASC NULLS LAST
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list open tasks: %w", err)
	}
	defer rows.Close()

	items := make([]Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		items = append(items, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate open tasks: %w", err)
	}
	return items, nil
}

package app

import (
	"context"
	"strings"
	"time"

	"taskflow/api/internal/access"
	"taskflow/api/internal/export"
	"taskflow/api/internal/search"
	"taskflow/api/internal/store"
	"taskflow/api/internal/util"
)

var allowedTaskStatuses = map[string]struct{}{
	"TODO":        {},
	"IN_PROGRESS": {},
	"IN_REVIEW":   {},
	"COMPLETED":   {},
	"CANCELLED":   {},
}

var allowedTaskPriorities = map[string]struct{}{
	"LOW":    {},
	"MEDIUM": {},
	"HIGH":   {},
	"URGENT": {},
}

// TaskInput carries the client-supplied task fields. Name and Comments
// are legacy aliases for Title and Description kept for older clients.
type TaskInput struct {
	Title        string     `json:"title"`
	Name         string     `json:"name"`
	Description  string     `json:"description"`
	Comments     string     `json:"comments"`
	Status       string     `json:"status"`
	Priority     string     `json:"priority"`
	AssigneeID   *string    `json:"assigneeId"`
	ProjectID    *string    `json:"projectId"`
	DueDate      *time.Time `json:"dueDate"`
	DepartmentID *string    `json:"departmentId"`
	ModuleID     *string    `json:"moduleId"`
	TaskTypeID   *string    `json:"taskTypeId"`
	Tags         []string   `json:"tags"`
}

func (in TaskInput) title() string {
	if t := strings.TrimSpace(in.Title); t != "" {
		return t
	}
	return strings.TrimSpace(in.Name)
}

func (in TaskInput) description() string {
	if in.Description != "" {
		return in.Description
	}
	return in.Comments
}

// TaskPayload is the wire shape of a task. Name and Comments mirror
// Title and Description for older clients; the stored model carries only
// the canonical pair.
type TaskPayload struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Name         string     `json:"name"`
	Description  string     `json:"description"`
	Comments     string     `json:"comments"`
	Status       string     `json:"status"`
	Priority     string     `json:"priority"`
	CreatorID    string     `json:"creatorId"`
	AssigneeID   *string    `json:"assigneeId"`
	ProjectID    *string    `json:"projectId"`
	DueDate      *time.Time `json:"dueDate"`
	CompletedAt  *time.Time `json:"completedAt"`
	DepartmentID *string    `json:"departmentId"`
	ModuleID     *string    `json:"moduleId"`
	TaskTypeID   *string    `json:"taskTypeId"`
	Tags         []string   `json:"tags"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

func taskPayload(t store.Task) TaskPayload {
	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}
	return TaskPayload{
		ID:           t.ID,
		Title:        t.Title,
		Name:         t.Title,
		Description:  t.Description,
		Comments:     t.Description,
		Status:       t.Status,
		Priority:     t.Priority,
		CreatorID:    t.CreatorID,
		AssigneeID:   t.AssigneeID,
		ProjectID:    t.ProjectID,
		DueDate:      t.DueDate,
		CompletedAt:  t.CompletedAt,
		DepartmentID: t.DepartmentID,
		ModuleID:     t.ModuleID,
		TaskTypeID:   t.TaskTypeID,
		Tags:         tags,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}

func taskRef(t store.Task) access.TaskRef {
	ref := access.TaskRef{CreatorID: t.CreatorID}
	if t.AssigneeID != nil {
		ref.AssigneeID = *t.AssigneeID
	}
	return ref
}

func (s *Service) ListTasks(ctx context.Context, session Session, q store.TaskQuery) ([]TaskPayload, error) {
	filter := access.ScopeFilter(session.Principal())
	tasks, err := s.store.ListTasks(ctx, filter, q)
	if err != nil {
		return nil, err
	}
	payloads := make([]TaskPayload, 0, len(tasks))
	for _, t := range tasks {
		payloads = append(payloads, taskPayload(t))
	}
	return payloads, nil
}

func (s *Service) GetTask(ctx context.Context, session Session, taskID string) (TaskPayload, error) {
	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		if store.IsNotFound(err) {
			return TaskPayload{}, notFound("Task not found")
		}
		return TaskPayload{}, err
	}
	if !access.CanViewTask(session.Principal(), taskRef(task)) {
		return TaskPayload{}, forbidden()
	}
	return taskPayload(task), nil
}

func (s *Service) CreateTask(ctx context.Context, session Session, in TaskInput) (TaskPayload, error) {
	title := in.title()
	if title == "" {
		return TaskPayload{}, validationError("title is required")
	}

	status := in.Status
	if status == "" {
		status = "TODO"
	}
	if _, ok := allowedTaskStatuses[status]; !ok {
		return TaskPayload{}, validationError("invalid status")
	}
	priority := in.Priority
	if priority == "" {
		priority = "MEDIUM"
	}
	if _, ok := allowedTaskPriorities[priority]; !ok {
		return TaskPayload{}, validationError("invalid priority")
	}

	now := time.Now()
	task := store.Task{
		ID:           util.NewID("task"),
		CreatorID:    session.UserID,
		AssigneeID:   in.AssigneeID,
		ProjectID:    in.ProjectID,
		Title:        title,
		Description:  in.description(),
		Status:       status,
		Priority:     priority,
		DueDate:      in.DueDate,
		DepartmentID: in.DepartmentID,
		ModuleID:     in.ModuleID,
		TaskTypeID:   in.TaskTypeID,
		Tags:         in.Tags,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if status == "COMPLETED" {
		task.CompletedAt = &now
	}

	if err := s.store.CreateTask(ctx, task); err != nil {
		return TaskPayload{}, err
	}

	s.indexTask(task)
	s.notifyAssignee(ctx, session, task)
	return taskPayload(task), nil
}

func (s *Service) UpdateTask(ctx context.Context, session Session, taskID string, in TaskInput) (TaskPayload, error) {
	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		if store.IsNotFound(err) {
			return TaskPayload{}, notFound("Task not found")
		}
		return TaskPayload{}, err
	}
	if !access.CanEditTask(session.Principal(), taskRef(task)) {
		return TaskPayload{}, forbidden()
	}

	previousAssignee := ""
	if task.AssigneeID != nil {
		previousAssignee = *task.AssigneeID
	}

	if title := in.title(); title != "" {
		task.Title = title
	}
	if desc := in.description(); desc != "" {
		task.Description = desc
	}
	if in.Priority != "" {
		if _, ok := allowedTaskPriorities[in.Priority]; !ok {
			return TaskPayload{}, validationError("invalid priority")
		}
		task.Priority = in.Priority
	}
	if in.AssigneeID != nil {
		task.AssigneeID = in.AssigneeID
	}
	if in.ProjectID != nil {
		task.ProjectID = in.ProjectID
	}
	if in.DueDate != nil {
		task.DueDate = in.DueDate
	}
	if in.DepartmentID != nil {
		task.DepartmentID = in.DepartmentID
	}
	if in.ModuleID != nil {
		task.ModuleID = in.ModuleID
	}
	if in.TaskTypeID != nil {
		task.TaskTypeID = in.TaskTypeID
	}
	if in.Tags != nil {
		task.Tags = in.Tags
	}

	if in.Status != "" {
		if _, ok := allowedTaskStatuses[in.Status]; !ok {
			return TaskPayload{}, validationError("invalid status")
		}
		// Completing stamps completedAt; leaving COMPLETED clears it.
		if in.Status == "COMPLETED" && task.Status != "COMPLETED" {
			now := time.Now()
			task.CompletedAt = &now
		}
		if in.Status != "COMPLETED" {
			task.CompletedAt = nil
		}
		task.Status = in.Status
	}
	task.UpdatedAt = time.Now()

	if err := s.store.UpdateTask(ctx, task); err != nil {
		return TaskPayload{}, err
	}

	s.indexTask(task)
	if in.AssigneeID != nil && *in.AssigneeID != "" && *in.AssigneeID != previousAssignee {
		s.notifyAssignee(ctx, session, task)
	}
	return taskPayload(task), nil
}

func (s *Service) DeleteTask(ctx context.Context, session Session, taskID string) error {
	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		if store.IsNotFound(err) {
			return notFound("Task not found")
		}
		return err
	}
	if !access.CanDeleteTask(session.Principal(), taskRef(task)) {
		return forbidden()
	}
	if err := s.store.DeleteTask(ctx, taskID); err != nil {
		return err
	}
	s.search.DeleteTask(taskID)
	return nil
}

func (s *Service) ListTimeEntries(ctx context.Context, session Session, taskID string) ([]store.TimeEntry, int, error) {
	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, 0, notFound("Task not found")
		}
		return nil, 0, err
	}
	if !access.CanViewTask(session.Principal(), taskRef(task)) {
		return nil, 0, forbidden()
	}
	entries, err := s.store.ListTimeEntries(ctx, taskID)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.store.SumTimeEntries(ctx, taskID)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func (s *Service) CreateTimeEntry(ctx context.Context, session Session, taskID string, minutes int, entryDate time.Time, note string) (store.TimeEntry, error) {
	if minutes <= 0 {
		return store.TimeEntry{}, validationError("minutes must be positive")
	}
	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		if store.IsNotFound(err) {
			return store.TimeEntry{}, notFound("Task not found")
		}
		return store.TimeEntry{}, err
	}
	if !access.CanViewTask(session.Principal(), taskRef(task)) {
		return store.TimeEntry{}, forbidden()
	}

	if entryDate.IsZero() {
		entryDate = time.Now()
	}
	entry := store.TimeEntry{
		ID:        util.NewID("te"),
		TaskID:    taskID,
		UserID:    session.UserID,
		Minutes:   minutes,
		EntryDate: entryDate,
		Note:      note,
		CreatedAt: time.Now(),
	}
	if err := s.store.CreateTimeEntry(ctx, entry); err != nil {
		return store.TimeEntry{}, err
	}
	return entry, nil
}

// ExportTasks renders the caller's visible tasks (optionally filtered by
// status) as a downloadable report.
func (s *Service) ExportTasks(ctx context.Context, session Session, format, status string) (*export.Result, error) {
	f := export.Format(format)
	if f != export.FormatCSV && f != export.FormatPDF {
		return nil, validationError("format must be 'csv' or 'pdf'")
	}
	if status != "" {
		if _, ok := allowedTaskStatuses[status]; !ok {
			return nil, validationError("invalid status")
		}
	}

	filter := access.ScopeFilter(session.Principal())
	tasks, err := s.store.ListTasks(ctx, filter, store.TaskQuery{Status: status})
	if err != nil {
		return nil, err
	}

	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(users))
	for _, u := range users {
		names[u.ID] = u.DisplayName
	}
	projects, err := s.store.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	projectNames := make(map[string]string, len(projects))
	for _, p := range projects {
		projectNames[p.ID] = p.Name
	}

	rows := make([]export.TaskRow, 0, len(tasks))
	for _, t := range tasks {
		row := export.TaskRow{
			ID:          t.ID,
			Title:       t.Title,
			Description: t.Description,
			Status:      t.Status,
			Priority:    t.Priority,
			Creator:     names[t.CreatorID],
			DueDate:     t.DueDate,
			CompletedAt: t.CompletedAt,
			Tags:        t.Tags,
			CreatedAt:   t.CreatedAt,
		}
		if t.AssigneeID != nil {
			row.Assignee = names[*t.AssigneeID]
		}
		if t.ProjectID != nil {
			row.Project = projectNames[*t.ProjectID]
		}
		if total, err := s.store.SumTimeEntries(ctx, t.ID); err == nil {
			row.TimeSpent = total
		}
		rows = append(rows, row)
	}

	return s.export.Export(export.Request{
		Format:    f,
		Title:     "Task Report",
		Requester: session.UserName,
	}, rows)
}

func taskSearchRecord(t store.Task) search.TaskRecord {
	rec := search.TaskRecord{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		Priority:    t.Priority,
		CreatorID:   t.CreatorID,
		Tags:        t.Tags,
	}
	if t.AssigneeID != nil {
		rec.AssigneeID = *t.AssigneeID
	}
	return rec
}

func (s *Service) indexTask(t store.Task) {
	s.search.IndexTask(taskSearchRecord(t))
}

// notifyAssignee emails the assignee about a new assignment, unless they
// assigned it to themselves.
func (s *Service) notifyAssignee(ctx context.Context, session Session, task store.Task) {
	if s.email == nil || !s.email.IsConfigured() {
		return
	}
	if task.AssigneeID == nil || *task.AssigneeID == "" || *task.AssigneeID == session.UserID {
		return
	}
	assignee, err := s.store.GetUserByID(ctx, *task.AssigneeID)
	if err != nil {
		return
	}
	dueDate := ""
	if task.DueDate != nil {
		dueDate = task.DueDate.Format("Jan 2, 2006")
	}
	taskURL := s.cfg.AppURL + "/tasks/" + task.ID
	go func() {
		_ = s.email.SendAssignmentEmail(assignee.Email, assignee.DisplayName, task.Title, session.UserName, task.Priority, dueDate, taskURL)
	}()
}

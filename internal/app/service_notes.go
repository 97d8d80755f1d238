package app

import (
	"context"
	"strings"
	"time"

	"taskflow/api/internal/access"
	"taskflow/api/internal/search"
	"taskflow/api/internal/store"
	"taskflow/api/internal/util"
)

// Notes are strictly author-scoped: nobody else can read them, not even
// admins, because suggestion analysis runs over their raw text.

func (s *Service) ListNotes(ctx context.Context, session Session) ([]store.Note, error) {
	notes, err := s.store.ListNotes(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	if notes == nil {
		notes = []store.Note{}
	}
	return notes, nil
}

func (s *Service) GetNote(ctx context.Context, session Session, noteID string) (store.Note, error) {
	note, err := s.store.GetNote(ctx, noteID)
	if err != nil {
		if store.IsNotFound(err) {
			return store.Note{}, notFound("Note not found")
		}
		return store.Note{}, err
	}
	if note.AuthorID != session.UserID {
		return store.Note{}, forbidden()
	}
	return note, nil
}

func (s *Service) CreateNote(ctx context.Context, session Session, title, content string) (store.Note, error) {
	now := time.Now()
	note := store.Note{
		ID:        util.NewID("note"),
		AuthorID:  session.UserID,
		Title:     strings.TrimSpace(title),
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if note.Title == "" && strings.TrimSpace(note.Content) == "" {
		return store.Note{}, validationError("note needs a title or content")
	}
	if err := s.store.CreateNote(ctx, note); err != nil {
		return store.Note{}, err
	}
	s.indexNote(note)
	return note, nil
}

func (s *Service) UpdateNote(ctx context.Context, session Session, noteID, title, content string) (store.Note, error) {
	note, err := s.GetNote(ctx, session, noteID)
	if err != nil {
		return store.Note{}, err
	}
	note.Title = strings.TrimSpace(title)
	note.Content = content
	note.UpdatedAt = time.Now()
	if err := s.store.UpdateNote(ctx, note); err != nil {
		return store.Note{}, err
	}
	s.indexNote(note)
	return note, nil
}

func (s *Service) DeleteNote(ctx context.Context, session Session, noteID string) error {
	if _, err := s.GetNote(ctx, session, noteID); err != nil {
		return err
	}
	if err := s.store.DeleteNote(ctx, noteID); err != nil {
		return err
	}
	s.search.DeleteNote(noteID)
	return nil
}

func noteSearchRecord(n store.Note) search.NoteRecord {
	return search.NoteRecord{
		ID:       n.ID,
		Title:    n.Title,
		Content:  n.Content,
		AuthorID: n.AuthorID,
	}
}

func (s *Service) indexNote(n store.Note) {
	s.search.IndexNote(noteSearchRecord(n))
}

func (s *Service) ListProjects(ctx context.Context) ([]store.Project, error) {
	projects, err := s.store.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	if projects == nil {
		projects = []store.Project{}
	}
	return projects, nil
}

func (s *Service) CreateProject(ctx context.Context, session Session, name, description string) (store.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return store.Project{}, validationError("name is required")
	}
	now := time.Now()
	project := store.Project{
		ID:          util.NewID("proj"),
		Name:        name,
		Description: description,
		OwnerID:     session.UserID,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateProject(ctx, project); err != nil {
		return store.Project{}, err
	}
	return project, nil
}

func (s *Service) UpdateProject(ctx context.Context, session Session, projectID, name, description string, isActive *bool) (store.Project, error) {
	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		if store.IsNotFound(err) {
			return store.Project{}, notFound("Project not found")
		}
		return store.Project{}, err
	}

	p := session.Principal()
	if project.OwnerID != session.UserID && p.Role != access.RoleAdmin && p.Role != access.RoleManager {
		return store.Project{}, forbidden()
	}

	if name = strings.TrimSpace(name); name != "" {
		project.Name = name
	}
	if description != "" {
		project.Description = description
	}
	if isActive != nil {
		project.IsActive = *isActive
	}
	project.UpdatedAt = time.Now()

	if err := s.store.UpdateProject(ctx, project); err != nil {
		return store.Project{}, err
	}
	return project, nil
}

func (s *Service) ListTags(ctx context.Context) ([]store.Tag, error) {
	tags, err := s.store.ListTags(ctx)
	if err != nil {
		return nil, err
	}
	if tags == nil {
		tags = []store.Tag{}
	}
	return tags, nil
}

func (s *Service) CreateTag(ctx context.Context, name, color string) (store.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return store.Tag{}, validationError("name is required")
	}

	existing, err := s.store.ListTags(ctx)
	if err != nil {
		return store.Tag{}, err
	}
	for _, t := range existing {
		if strings.EqualFold(t.Name, name) {
			return store.Tag{}, validationError("tag name already exists")
		}
	}

	tag := store.Tag{ID: util.NewID("tag"), Name: name, Color: color}
	if err := s.store.CreateTag(ctx, tag); err != nil {
		return store.Tag{}, err
	}
	return tag, nil
}

func (s *Service) DeleteTag(ctx context.Context, session Session, tagID string) error {
	p := session.Principal()
	if p.Role != access.RoleAdmin && p.Role != access.RoleManager {
		return forbidden()
	}
	return s.store.DeleteTag(ctx, tagID)
}

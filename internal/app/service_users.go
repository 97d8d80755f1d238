package app

import (
	"context"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"taskflow/api/internal/access"
	"taskflow/api/internal/store"
	"taskflow/api/internal/util"
)

// UserPayload is the wire shape of a user; the password hash never
// leaves the service.
type UserPayload struct {
	ID              string     `json:"id"`
	Email           string     `json:"email"`
	DisplayName     string     `json:"displayName"`
	Role            string     `json:"role"`
	IsActive        bool       `json:"isActive"`
	IsEmailVerified bool       `json:"isEmailVerified"`
	DeactivatedAt   *time.Time `json:"deactivatedAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}

func userPayload(u store.User) UserPayload {
	return UserPayload{
		ID:              u.ID,
		Email:           u.Email,
		DisplayName:     u.DisplayName,
		Role:            u.Role,
		IsActive:        u.IsActive,
		IsEmailVerified: u.IsEmailVerified,
		DeactivatedAt:   u.DeactivatedAt,
		CreatedAt:       u.CreatedAt,
	}
}

func (s *Service) ListUsers(ctx context.Context, session Session) ([]UserPayload, error) {
	if !access.CanManageUsers(session.Principal()) {
		return nil, forbidden()
	}
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	payloads := make([]UserPayload, 0, len(users))
	for _, u := range users {
		payloads = append(payloads, userPayload(u))
	}
	return payloads, nil
}

// AdminCreateUser creates a pre-verified account with an explicit role.
func (s *Service) AdminCreateUser(ctx context.Context, session Session, email, displayName, password, role string) (UserPayload, error) {
	if !access.CanManageUsers(session.Principal()) {
		return UserPayload{}, forbidden()
	}

	email = strings.TrimSpace(strings.ToLower(email))
	displayName = strings.TrimSpace(displayName)
	if email == "" || displayName == "" {
		return UserPayload{}, validationError("email and displayName are required")
	}
	if len(password) < 8 {
		return UserPayload{}, validationError("password must be at least 8 characters")
	}
	if role == "" {
		role = "user"
	}
	if access.NormalizeRole(role) != access.Role(role) {
		return UserPayload{}, validationError("invalid role")
	}

	if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
		return UserPayload{}, domainError(409, "EMAIL_EXISTS", "Email already registered", nil)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return UserPayload{}, err
	}

	user := store.User{
		ID:              util.NewID("usr"),
		Email:           email,
		DisplayName:     displayName,
		PasswordHash:    string(hash),
		Role:            role,
		IsActive:        true,
		IsEmailVerified: true,
		CreatedAt:       time.Now(),
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return UserPayload{}, err
	}
	s.enrollDefaultChatRoom(ctx, user.ID)
	return userPayload(user), nil
}

func (s *Service) UpdateUserRole(ctx context.Context, session Session, userID, role string) (UserPayload, error) {
	// Existence is resolved before authorization, same as the task handlers.
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if store.IsNotFound(err) {
			return UserPayload{}, notFound("User not found")
		}
		return UserPayload{}, err
	}
	if !access.CanManageUsers(session.Principal()) {
		return UserPayload{}, forbidden()
	}
	if access.NormalizeRole(role) != access.Role(role) {
		return UserPayload{}, validationError("invalid role")
	}
	if err := s.store.UpdateUserRole(ctx, userID, role); err != nil {
		return UserPayload{}, err
	}
	user.Role = role
	return userPayload(user), nil
}

// DeleteUser deactivates an account. Accounts are never hard-deleted so
// historical task attribution stays intact, and admins cannot remove
// themselves.
func (s *Service) DeleteUser(ctx context.Context, session Session, userID string) error {
	if _, err := s.store.GetUserByID(ctx, userID); err != nil {
		if store.IsNotFound(err) {
			return notFound("User not found")
		}
		return err
	}
	if !access.CanDeleteUser(session.Principal(), userID) {
		return forbidden()
	}
	return s.store.DeactivateUser(ctx, userID)
}

var lookupKindAliases = map[string]string{
	"departments": "departments",
	"modules":     "modules",
	"task-types":  "task_types",
	"task_types":  "task_types",
}

func (s *Service) ListLookups(ctx context.Context, kind string) ([]store.LookupItem, error) {
	stored, ok := lookupKindAliases[kind]
	if !ok {
		return nil, notFound("Unknown lookup kind")
	}
	items, err := s.store.ListLookups(ctx, stored)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []store.LookupItem{}
	}
	return items, nil
}

// LookupItemInput is one row of a lookup bulk upsert. Clients flag
// freshly added rows with isNew; their placeholder ids are replaced
// server-side. An empty id is treated the same way.
type LookupItemInput struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IsActive  *bool  `json:"isActive"`
	IsNew     bool   `json:"isNew"`
	SortOrder int    `json:"sortOrder"`
}

// ReplaceLookups applies full-replace semantics for one lookup kind:
// rows not in the payload end up inactive, new rows get fresh ids.
func (s *Service) ReplaceLookups(ctx context.Context, session Session, kind string, inputs []LookupItemInput) ([]store.LookupItem, error) {
	if !access.CanManageUsers(session.Principal()) {
		return nil, forbidden()
	}
	stored, ok := lookupKindAliases[kind]
	if !ok {
		return nil, notFound("Unknown lookup kind")
	}

	items := make([]store.LookupItem, 0, len(inputs))
	for i, in := range inputs {
		name := strings.TrimSpace(in.Name)
		if name == "" {
			return nil, validationError("every item needs a name")
		}
		id := in.ID
		if in.IsNew || id == "" {
			id = util.NewID("lk")
		}
		active := true
		if in.IsActive != nil {
			active = *in.IsActive
		}
		sortOrder := in.SortOrder
		if sortOrder == 0 {
			sortOrder = i
		}
		items = append(items, store.LookupItem{
			ID:        id,
			Kind:      stored,
			Name:      name,
			IsActive:  active,
			SortOrder: sortOrder,
		})
	}

	if err := s.store.ReplaceLookups(ctx, stored, items); err != nil {
		return nil, err
	}
	return s.store.ListLookups(ctx, stored)
}

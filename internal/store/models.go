package store

import "time"

type User struct {
	ID                    string
	Email                 string
	DisplayName           string
	PasswordHash          string
	Role                  string
	IsActive              bool
	IsEmailVerified       bool
	VerificationToken     string
	VerificationExpiresAt *time.Time
	DeactivatedAt         *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

type Task struct {
	ID           string
	CreatorID    string
	AssigneeID   *string
	ProjectID    *string
	Title        string
	Description  string
	Status       string
	Priority     string
	DueDate      *time.Time
	CompletedAt  *time.Time
	DepartmentID *string
	ModuleID     *string
	TaskTypeID   *string
	Tags         []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Project struct {
	ID          string
	Name        string
	Description string
	OwnerID     string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Tag struct {
	ID    string
	Name  string
	Color string
}

type Note struct {
	ID        string
	AuthorID  string
	Title     string
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type TimeEntry struct {
	ID        string
	TaskID    string
	UserID    string
	Minutes   int
	EntryDate time.Time
	Note      string
	CreatedAt time.Time
}

// ChatRoomMembership tracks one user's unread state in a room. The chat
// message store itself lives elsewhere; this is only the badge state.
type ChatRoomMembership struct {
	UserID        string
	RoomID        string
	RoomName      string
	UnreadCount   int
	LastReadAt    *time.Time
	LastMessageAt time.Time
	IsActive      bool
}

// LookupItem is a row in one of the admin-managed lookup tables
// (departments, modules, task_types), keyed by kind.
type LookupItem struct {
	ID        string
	Kind      string
	Name      string
	IsActive  bool
	SortOrder int
}

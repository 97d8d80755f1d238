// Package access decides what a principal may do with tasks and users.
// Every predicate is a pure function of the principal and the already
// loaded entity; the only storage-aware piece is ScopeFilter, which the
// store translates into the list query.
package access

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleEmployee Role = "employee"
	RoleUser     Role = "user"
)

// Principal is the authenticated identity attached to a request.
type Principal struct {
	ID    string
	Email string
	Role  Role
}

// TaskRef carries the ownership fields a predicate needs; callers pass
// the loaded task, never an ID.
type TaskRef struct {
	CreatorID  string
	AssigneeID string
}

// Filter scopes a task list query. All=true matches every row; otherwise
// rows where the user is creator or assignee.
type Filter struct {
	All    bool
	UserID string
}

func NormalizeRole(role string) Role {
	switch Role(role) {
	case RoleAdmin, RoleManager, RoleEmployee, RoleUser:
		return Role(role)
	default:
		return RoleUser
	}
}

func CanViewAllTasks(p Principal) bool {
	return p.Role == RoleAdmin
}

func CanViewTask(p Principal, t TaskRef) bool {
	if p.Role == RoleAdmin {
		return true
	}
	return p.ID == t.CreatorID || (t.AssigneeID != "" && p.ID == t.AssigneeID)
}

func CanEditTask(p Principal, t TaskRef) bool {
	if p.Role == RoleAdmin {
		return true
	}
	return p.ID == t.CreatorID || (t.AssigneeID != "" && p.ID == t.AssigneeID)
}

// CanDeleteTask is stricter than edit: the assignee alone may not delete.
func CanDeleteTask(p Principal, t TaskRef) bool {
	if p.Role == RoleAdmin {
		return true
	}
	return p.ID == t.CreatorID
}

func CanManageUsers(p Principal) bool {
	return p.Role == RoleAdmin
}

// CanDeleteUser forbids self-deletion regardless of role; admins
// deactivate other accounts, nobody deletes their own.
func CanDeleteUser(p Principal, targetID string) bool {
	if p.ID == targetID {
		return false
	}
	return p.Role == RoleAdmin
}

func ScopeFilter(p Principal) Filter {
	if p.Role == RoleAdmin {
		return Filter{All: true}
	}
	return Filter{UserID: p.ID}
}

// Matches reports whether a task would be included by the filter. The
// store pushes the same condition into SQL; this form exists so the
// contract is testable without a database.
func (f Filter) Matches(t TaskRef) bool {
	if f.All {
		return true
	}
	return t.CreatorID == f.UserID || (t.AssigneeID != "" && t.AssigneeID == f.UserID)
}

package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"taskflow/api/internal/store"
)

func TestUserAdminRoutesForbiddenForNonAdmins(t *testing.T) {
	fs := &fakeStore{}
	svc := newTestService(fs)
	server := NewHTTPServer(svc, "*")

	for _, role := range []string{"manager", "employee", "user"} {
		session := sessionFor(t, svc, fs, store.User{ID: "usr_" + role, Email: role + "@x.c", DisplayName: role, Role: role})

		rr := getJSON(t, server.Handler(), "/api/users", session.Token)
		if rr.Code != http.StatusForbidden {
			t.Fatalf("%s: expected 403 listing users, got %d", role, rr.Code)
		}

		rr = postJSON(t, server.Handler(), "/api/users",
			`{"email":"new@x.c","displayName":"New","password":"longenough"}`, session.Token)
		if rr.Code != http.StatusForbidden {
			t.Fatalf("%s: expected 403 creating user, got %d", role, rr.Code)
		}
	}
}

func TestAdminCreateUserIsPreVerified(t *testing.T) {
	var created store.User
	fs := &fakeStore{
		createUserFn: func(_ context.Context, user store.User) error {
			created = user
			return nil
		},
	}
	svc := newTestService(fs)
	session := sessionFor(t, svc, fs, store.User{ID: "usr_adm", Email: "a@x.c", DisplayName: "Ad", Role: "admin"})
	server := NewHTTPServer(svc, "*")

	rr := postJSON(t, server.Handler(), "/api/users",
		`{"email":"New@X.c","displayName":"New Person","password":"longenough","role":"manager"}`, session.Token)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	if !created.IsEmailVerified || !created.IsActive {
		t.Fatalf("admin-created accounts are pre-verified and active, got %+v", created)
	}
	if created.Email != "new@x.c" {
		t.Fatalf("expected lowercased email, got %q", created.Email)
	}
	if created.Role != "manager" {
		t.Fatalf("expected manager role, got %q", created.Role)
	}
	if strings.Contains(rr.Body.String(), created.PasswordHash) {
		t.Fatalf("password hash leaked into response")
	}
}

func TestAdminCreateUserRejectsUnknownRole(t *testing.T) {
	fs := &fakeStore{}
	svc := newTestService(fs)
	session := sessionFor(t, svc, fs, store.User{ID: "usr_adm", Email: "a@x.c", DisplayName: "Ad", Role: "admin"})
	server := NewHTTPServer(svc, "*")

	rr := postJSON(t, server.Handler(), "/api/users",
		`{"email":"new@x.c","displayName":"New","password":"longenough","role":"superuser"}`, session.Token)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestUpdateUserRole(t *testing.T) {
	var gotUser, gotRole string
	fs := &fakeStore{
		updateUserRoleFn: func(_ context.Context, userID, role string) error {
			gotUser, gotRole = userID, role
			return nil
		},
	}
	svc := newTestService(fs)
	session := sessionFor(t, svc, fs, store.User{ID: "usr_adm", Email: "a@x.c", DisplayName: "Ad", Role: "admin"})

	// The target lookup goes through the same stub as the session user.
	prev := fs.getUserByIDFn
	fs.getUserByIDFn = func(ctx context.Context, id string) (store.User, error) {
		if id == "usr_emp" {
			return store.User{ID: "usr_emp", Role: "employee", IsActive: true}, nil
		}
		return prev(ctx, id)
	}
	server := NewHTTPServer(svc, "*")

	req := httptest.NewRequest(http.MethodPut, "/api/users/usr_emp/role", strings.NewReader(`{"role":"manager"}`))
	req.Header.Set("Authorization", "Bearer "+session.Token)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	if gotUser != "usr_emp" || gotRole != "manager" {
		t.Fatalf("unexpected role update %s=%s", gotUser, gotRole)
	}
}

func TestDeleteUserDeactivatesAndForbidsSelf(t *testing.T) {
	var deactivated string
	fs := &fakeStore{
		deactivateUserFn: func(_ context.Context, userID string) error {
			deactivated = userID
			return nil
		},
	}
	svc := newTestService(fs)
	session := sessionFor(t, svc, fs, store.User{ID: "usr_adm", Email: "a@x.c", DisplayName: "Ad", Role: "admin"})
	prev := fs.getUserByIDFn
	fs.getUserByIDFn = func(ctx context.Context, id string) (store.User, error) {
		if id == "usr_emp" {
			return store.User{ID: "usr_emp", IsActive: true}, nil
		}
		return prev(ctx, id)
	}
	server := NewHTTPServer(svc, "*")

	req := httptest.NewRequest(http.MethodDelete, "/api/users/usr_emp", nil)
	req.Header.Set("Authorization", "Bearer "+session.Token)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	if deactivated != "usr_emp" {
		t.Fatalf("expected deactivation, got %q", deactivated)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/users/usr_adm", nil)
	req.Header.Set("Authorization", "Bearer "+session.Token)
	rr = httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for self-delete, got %d", rr.Code)
	}
}

func TestUserAdminUnknownTargetNotFound(t *testing.T) {
	fs := &fakeStore{}
	svc := newTestService(fs)
	server := NewHTTPServer(svc, "*")

	// Missing targets resolve before the role check, for admins and
	// non-admins alike.
	for _, role := range []string{"admin", "employee"} {
		session := sessionFor(t, svc, fs, store.User{ID: "usr_" + role, Email: role + "@x.c", DisplayName: "U", Role: role})

		req := httptest.NewRequest(http.MethodDelete, "/api/users/usr_ghost", nil)
		req.Header.Set("Authorization", "Bearer "+session.Token)
		rr := httptest.NewRecorder()
		server.Handler().ServeHTTP(rr, req)
		if rr.Code != http.StatusNotFound {
			t.Fatalf("role %s: expected 404 deleting unknown user, got %d body=%s", role, rr.Code, rr.Body.String())
		}

		req = httptest.NewRequest(http.MethodPut, "/api/users/usr_ghost/role", strings.NewReader(`{"role":"manager"}`))
		req.Header.Set("Authorization", "Bearer "+session.Token)
		rr = httptest.NewRecorder()
		server.Handler().ServeHTTP(rr, req)
		if rr.Code != http.StatusNotFound {
			t.Fatalf("role %s: expected 404 updating unknown user, got %d body=%s", role, rr.Code, rr.Body.String())
		}
	}
}

func TestReplaceLookupsFullReplace(t *testing.T) {
	var gotKind string
	var gotItems []store.LookupItem
	fs := &fakeStore{
		replaceLookupsFn: func(_ context.Context, kind string, items []store.LookupItem) error {
			gotKind = kind
			gotItems = items
			return nil
		},
		listLookupsFn: func(_ context.Context, kind string) ([]store.LookupItem, error) {
			return gotItems, nil
		},
	}
	svc := newTestService(fs)
	session := sessionFor(t, svc, fs, store.User{ID: "usr_adm", Email: "a@x.c", DisplayName: "Ad", Role: "admin"})
	server := NewHTTPServer(svc, "*")

	req := httptest.NewRequest(http.MethodPut, "/api/admin/lookups/task-types",
		strings.NewReader(`{"items":[{"id":"lk_1","name":"Bug"},{"name":"Research"},{"id":"tmp-1","isNew":true,"name":"Design"}]}`))
	req.Header.Set("Authorization", "Bearer "+session.Token)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	if gotKind != "task_types" {
		t.Fatalf("expected task-types to map to task_types, got %q", gotKind)
	}
	if len(gotItems) != 3 {
		t.Fatalf("expected 3 items, got %d", len(gotItems))
	}
	if gotItems[0].ID != "lk_1" {
		t.Fatalf("existing id must be preserved, got %q", gotItems[0].ID)
	}
	if gotItems[1].ID == "" {
		t.Fatalf("new rows get fresh ids")
	}
	if gotItems[2].ID == "tmp-1" || gotItems[2].ID == "" {
		t.Fatalf("isNew rows must get server ids, got %q", gotItems[2].ID)
	}
	if !gotItems[0].IsActive || !gotItems[1].IsActive || !gotItems[2].IsActive {
		t.Fatalf("items default to active, got %+v", gotItems)
	}
}

func TestReplaceLookupsNonAdminForbidden(t *testing.T) {
	fs := &fakeStore{}
	svc := newTestService(fs)
	session := sessionFor(t, svc, fs, store.User{ID: "usr_mgr", Email: "m@x.c", DisplayName: "Mg", Role: "manager"})
	server := NewHTTPServer(svc, "*")

	req := httptest.NewRequest(http.MethodPut, "/api/admin/lookups/departments",
		strings.NewReader(`{"items":[{"name":"Core"}]}`))
	req.Header.Set("Authorization", "Bearer "+session.Token)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestLookupsUnknownKindNotFound(t *testing.T) {
	fs := &fakeStore{}
	svc := newTestService(fs)
	session := sessionFor(t, svc, fs, store.User{ID: "usr_adm", Email: "a@x.c", DisplayName: "Ad", Role: "admin"})
	server := NewHTTPServer(svc, "*")

	rr := getJSON(t, server.Handler(), "/api/admin/lookups/colors", session.Token)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d body=%s", rr.Code, rr.Body.String())
	}
}

package app

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"taskflow/api/internal/access"
	"taskflow/api/internal/authpw"
	"taskflow/api/internal/config"
	"taskflow/api/internal/export"
	"taskflow/api/internal/search"
	"taskflow/api/internal/store"
)

type fakeStore struct {
	getUserByIDFn          func(context.Context, string) (store.User, error)
	getUserByEmailFn       func(context.Context, string) (store.User, error)
	createUserFn           func(context.Context, store.User) error
	listUsersFn            func(context.Context) ([]store.User, error)
	updateUserRoleFn       func(context.Context, string, string) error
	deactivateUserFn       func(context.Context, string) error
	markEmailVerifiedFn    func(context.Context, string) (store.User, error)
	setUserPasswordFn      func(context.Context, string, string) error
	savePasswordResetFn    func(context.Context, string, string, time.Time) error
	consumePasswordResetFn func(context.Context, string) (string, error)
	isAccessTokenRevokedFn func(context.Context, string) (bool, error)
	getTaskFn              func(context.Context, string) (store.Task, error)
	createTaskFn           func(context.Context, store.Task) error
	updateTaskFn           func(context.Context, store.Task) error
	deleteTaskFn           func(context.Context, string) error
	listTasksFn            func(context.Context, access.Filter, store.TaskQuery) ([]store.Task, error)
	listOpenTasksFn        func(context.Context, string) ([]store.Task, error)
	listRoomMembershipsFn  func(context.Context, string) ([]store.ChatRoomMembership, error)
	upsertRoomMembershipFn func(context.Context, store.ChatRoomMembership) error
	markRoomReadFn         func(context.Context, string, string) error
	markAllRoomsReadFn     func(context.Context, string) error
	listLookupsFn          func(context.Context, string) ([]store.LookupItem, error)
	replaceLookupsFn       func(context.Context, string, []store.LookupItem) error
	listNotesFn            func(context.Context, string) ([]store.Note, error)
	listAllNotesFn         func(context.Context) ([]store.Note, error)
	getNoteFn              func(context.Context, string) (store.Note, error)
	createNoteFn           func(context.Context, store.Note) error
	updateNoteFn           func(context.Context, store.Note) error
	deleteNoteFn           func(context.Context, string) error
	listProjectsFn         func(context.Context) ([]store.Project, error)
	getProjectFn           func(context.Context, string) (store.Project, error)
	createProjectFn        func(context.Context, store.Project) error
	updateProjectFn        func(context.Context, store.Project) error
	listTagsFn             func(context.Context) ([]store.Tag, error)
	createTagFn            func(context.Context, store.Tag) error
	deleteTagFn            func(context.Context, string) error
	listTimeEntriesFn      func(context.Context, string) ([]store.TimeEntry, error)
	createTimeEntryFn      func(context.Context, store.TimeEntry) error
	sumTimeEntriesFn       func(context.Context, string) (int, error)
}

func (f *fakeStore) Ping(context.Context) error { return nil }
func (f *fakeStore) GetUserByID(ctx context.Context, id string) (store.User, error) {
	if f.getUserByIDFn != nil {
		return f.getUserByIDFn(ctx, id)
	}
	return store.User{}, sql.ErrNoRows
}
func (f *fakeStore) GetUserByEmail(ctx context.Context, email string) (store.User, error) {
	if f.getUserByEmailFn != nil {
		return f.getUserByEmailFn(ctx, email)
	}
	return store.User{}, sql.ErrNoRows
}
func (f *fakeStore) CreateUser(ctx context.Context, user store.User) error {
	if f.createUserFn != nil {
		return f.createUserFn(ctx, user)
	}
	return nil
}
func (f *fakeStore) ListUsers(ctx context.Context) ([]store.User, error) {
	if f.listUsersFn != nil {
		return f.listUsersFn(ctx)
	}
	return nil, nil
}
func (f *fakeStore) UpdateUserRole(ctx context.Context, userID, role string) error {
	if f.updateUserRoleFn != nil {
		return f.updateUserRoleFn(ctx, userID, role)
	}
	return nil
}
func (f *fakeStore) DeactivateUser(ctx context.Context, userID string) error {
	if f.deactivateUserFn != nil {
		return f.deactivateUserFn(ctx, userID)
	}
	return nil
}
func (f *fakeStore) MarkEmailVerified(ctx context.Context, token string) (store.User, error) {
	if f.markEmailVerifiedFn != nil {
		return f.markEmailVerifiedFn(ctx, token)
	}
	return store.User{}, sql.ErrNoRows
}
func (f *fakeStore) SetUserPassword(ctx context.Context, userID, hash string) error {
	if f.setUserPasswordFn != nil {
		return f.setUserPasswordFn(ctx, userID, hash)
	}
	return nil
}
func (f *fakeStore) SavePasswordReset(ctx context.Context, token, userID string, expiresAt time.Time) error {
	if f.savePasswordResetFn != nil {
		return f.savePasswordResetFn(ctx, token, userID, expiresAt)
	}
	return nil
}
func (f *fakeStore) ConsumePasswordReset(ctx context.Context, token string) (string, error) {
	if f.consumePasswordResetFn != nil {
		return f.consumePasswordResetFn(ctx, token)
	}
	return "", sql.ErrNoRows
}
func (f *fakeStore) RevokeAccessToken(context.Context, string, time.Time) error { return nil }
func (f *fakeStore) IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error) {
	if f.isAccessTokenRevokedFn != nil {
		return f.isAccessTokenRevokedFn(ctx, jti)
	}
	return false, nil
}
func (f *fakeStore) GetTask(ctx context.Context, id string) (store.Task, error) {
	if f.getTaskFn != nil {
		return f.getTaskFn(ctx, id)
	}
	return store.Task{}, sql.ErrNoRows
}
func (f *fakeStore) CreateTask(ctx context.Context, task store.Task) error {
	if f.createTaskFn != nil {
		return f.createTaskFn(ctx, task)
	}
	return nil
}
func (f *fakeStore) UpdateTask(ctx context.Context, task store.Task) error {
	if f.updateTaskFn != nil {
		return f.updateTaskFn(ctx, task)
	}
	return nil
}
func (f *fakeStore) DeleteTask(ctx context.Context, id string) error {
	if f.deleteTaskFn != nil {
		return f.deleteTaskFn(ctx, id)
	}
	return nil
}
func (f *fakeStore) ListTasks(ctx context.Context, filter access.Filter, q store.TaskQuery) ([]store.Task, error) {
	if f.listTasksFn != nil {
		return f.listTasksFn(ctx, filter, q)
	}
	return nil, nil
}
func (f *fakeStore) ListOpenTasksForUser(ctx context.Context, userID string) ([]store.Task, error) {
	if f.listOpenTasksFn != nil {
		return f.listOpenTasksFn(ctx, userID)
	}
	return nil, nil
}
func (f *fakeStore) ListRoomMemberships(ctx context.Context, userID string) ([]store.ChatRoomMembership, error) {
	if f.listRoomMembershipsFn != nil {
		return f.listRoomMembershipsFn(ctx, userID)
	}
	return nil, nil
}
func (f *fakeStore) UpsertRoomMembership(ctx context.Context, m store.ChatRoomMembership) error {
	if f.upsertRoomMembershipFn != nil {
		return f.upsertRoomMembershipFn(ctx, m)
	}
	return nil
}
func (f *fakeStore) MarkRoomRead(ctx context.Context, userID, roomID string) error {
	if f.markRoomReadFn != nil {
		return f.markRoomReadFn(ctx, userID, roomID)
	}
	return nil
}
func (f *fakeStore) MarkAllRoomsRead(ctx context.Context, userID string) error {
	if f.markAllRoomsReadFn != nil {
		return f.markAllRoomsReadFn(ctx, userID)
	}
	return nil
}
func (f *fakeStore) ListLookups(ctx context.Context, kind string) ([]store.LookupItem, error) {
	if f.listLookupsFn != nil {
		return f.listLookupsFn(ctx, kind)
	}
	return nil, nil
}
func (f *fakeStore) ReplaceLookups(ctx context.Context, kind string, items []store.LookupItem) error {
	if f.replaceLookupsFn != nil {
		return f.replaceLookupsFn(ctx, kind, items)
	}
	return nil
}
func (f *fakeStore) ListNotes(ctx context.Context, authorID string) ([]store.Note, error) {
	if f.listNotesFn != nil {
		return f.listNotesFn(ctx, authorID)
	}
	return nil, nil
}
func (f *fakeStore) ListAllNotes(ctx context.Context) ([]store.Note, error) {
	if f.listAllNotesFn != nil {
		return f.listAllNotesFn(ctx)
	}
	return nil, nil
}
func (f *fakeStore) GetNote(ctx context.Context, id string) (store.Note, error) {
	if f.getNoteFn != nil {
		return f.getNoteFn(ctx, id)
	}
	return store.Note{}, sql.ErrNoRows
}
func (f *fakeStore) CreateNote(ctx context.Context, note store.Note) error {
	if f.createNoteFn != nil {
		return f.createNoteFn(ctx, note)
	}
	return nil
}
func (f *fakeStore) UpdateNote(ctx context.Context, note store.Note) error {
	if f.updateNoteFn != nil {
		return f.updateNoteFn(ctx, note)
	}
	return nil
}
func (f *fakeStore) DeleteNote(ctx context.Context, id string) error {
	if f.deleteNoteFn != nil {
		return f.deleteNoteFn(ctx, id)
	}
	return nil
}
func (f *fakeStore) ListProjects(ctx context.Context) ([]store.Project, error) {
	if f.listProjectsFn != nil {
		return f.listProjectsFn(ctx)
	}
	return nil, nil
}
func (f *fakeStore) GetProject(ctx context.Context, id string) (store.Project, error) {
	if f.getProjectFn != nil {
		return f.getProjectFn(ctx, id)
	}
	return store.Project{}, sql.ErrNoRows
}
func (f *fakeStore) CreateProject(ctx context.Context, project store.Project) error {
	if f.createProjectFn != nil {
		return f.createProjectFn(ctx, project)
	}
	return nil
}
func (f *fakeStore) UpdateProject(ctx context.Context, project store.Project) error {
	if f.updateProjectFn != nil {
		return f.updateProjectFn(ctx, project)
	}
	return nil
}
func (f *fakeStore) ListTags(ctx context.Context) ([]store.Tag, error) {
	if f.listTagsFn != nil {
		return f.listTagsFn(ctx)
	}
	return nil, nil
}
func (f *fakeStore) CreateTag(ctx context.Context, tag store.Tag) error {
	if f.createTagFn != nil {
		return f.createTagFn(ctx, tag)
	}
	return nil
}
func (f *fakeStore) DeleteTag(ctx context.Context, id string) error {
	if f.deleteTagFn != nil {
		return f.deleteTagFn(ctx, id)
	}
	return nil
}
func (f *fakeStore) ListTimeEntries(ctx context.Context, taskID string) ([]store.TimeEntry, error) {
	if f.listTimeEntriesFn != nil {
		return f.listTimeEntriesFn(ctx, taskID)
	}
	return nil, nil
}
func (f *fakeStore) CreateTimeEntry(ctx context.Context, entry store.TimeEntry) error {
	if f.createTimeEntryFn != nil {
		return f.createTimeEntryFn(ctx, entry)
	}
	return nil
}
func (f *fakeStore) SumTimeEntries(ctx context.Context, taskID string) (int, error) {
	if f.sumTimeEntriesFn != nil {
		return f.sumTimeEntriesFn(ctx, taskID)
	}
	return 0, nil
}

// fakeSessions is an in-memory refresh token store.
type fakeSessions struct {
	saved map[string]store.User
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{saved: make(map[string]store.User)}
}

func (f *fakeSessions) SaveRefreshSession(_ context.Context, tokenHash string, user store.User, _ time.Time) error {
	f.saved[tokenHash] = user
	return nil
}
func (f *fakeSessions) LookupRefreshSession(_ context.Context, tokenHash string) (store.User, error) {
	user, ok := f.saved[tokenHash]
	if !ok {
		return store.User{}, sql.ErrNoRows
	}
	return user, nil
}
func (f *fakeSessions) RevokeRefreshSession(_ context.Context, tokenHash string) error {
	delete(f.saved, tokenHash)
	return nil
}

type fakeSearch struct {
	searchFn  func(search.Query) search.Response
	indexed   []search.TaskRecord
	deleted   []string
	reindexed [][2]int
}

func (f *fakeSearch) Search(q search.Query) search.Response {
	if f.searchFn != nil {
		return f.searchFn(q)
	}
	return search.Response{Results: []search.Result{}, Query: q.Text}
}
func (f *fakeSearch) IndexTask(t search.TaskRecord) { f.indexed = append(f.indexed, t) }
func (f *fakeSearch) IndexNote(search.NoteRecord)   {}
func (f *fakeSearch) DeleteTask(id string)          { f.deleted = append(f.deleted, id) }
func (f *fakeSearch) DeleteNote(string)             {}
func (f *fakeSearch) ReindexAll(tasks []search.TaskRecord, notes []search.NoteRecord) {
	f.reindexed = append(f.reindexed, [2]int{len(tasks), len(notes)})
}

type fakePresence struct {
	heartbeats []string
	online     []string
}

func (f *fakePresence) Heartbeat(_ context.Context, userID string) error {
	f.heartbeats = append(f.heartbeats, userID)
	return nil
}
func (f *fakePresence) OnlineUsers(context.Context) ([]string, error) { return f.online, nil }
func (f *fakePresence) Disconnect(context.Context, string) error      { return nil }

func newTestService(fs *fakeStore) *Service {
	cfg := config.Config{
		JWTSecret:  "test-secret",
		AccessTTL:  time.Hour,
		RefreshTTL: 24 * time.Hour,
		AppURL:     "http://localhost:5173",
	}
	return New(cfg, Deps{
		Store:    fs,
		Sessions: newFakeSessions(),
		AuthPW:   authpw.NewService(fs),
		Search:   &fakeSearch{},
		Export:   export.NewService(),
		Presence: &fakePresence{},
	})
}

// sessionFor stubs GetUserByID on the fake and mints a real token pair,
// so handler tests go through the same verification path as production.
func sessionFor(t *testing.T, svc *Service, fs *fakeStore, user store.User) Session {
	t.Helper()
	if user.Role == "" {
		user.Role = "user"
	}
	user.IsActive = true
	prev := fs.getUserByIDFn
	fs.getUserByIDFn = func(ctx context.Context, id string) (store.User, error) {
		if id == user.ID {
			return user, nil
		}
		if prev != nil {
			return prev(ctx, id)
		}
		return store.User{}, sql.ErrNoRows
	}
	session, err := svc.CreateSession(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	return session
}

func TestCreateSessionRoundTrip(t *testing.T) {
	fs := &fakeStore{}
	svc := newTestService(fs)
	session := sessionFor(t, svc, fs, store.User{ID: "usr_1", Email: "a@b.c", DisplayName: "Avery", Role: "manager"})

	parsed, err := svc.SessionFromToken(context.Background(), session.Token)
	if err != nil {
		t.Fatalf("SessionFromToken: %v", err)
	}
	if parsed.UserID != "usr_1" || parsed.Role != "manager" {
		t.Fatalf("unexpected session %+v", parsed)
	}
}

func TestSessionFromTokenRejectsDeactivatedUser(t *testing.T) {
	fs := &fakeStore{}
	svc := newTestService(fs)
	session := sessionFor(t, svc, fs, store.User{ID: "usr_1", Email: "a@b.c", DisplayName: "Avery"})

	fs.getUserByIDFn = func(context.Context, string) (store.User, error) {
		return store.User{ID: "usr_1", IsActive: false}, nil
	}
	if _, err := svc.SessionFromToken(context.Background(), session.Token); err == nil {
		t.Fatalf("expected error for deactivated user")
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	fs := &fakeStore{}
	svc := newTestService(fs)
	session := sessionFor(t, svc, fs, store.User{ID: "usr_1", Email: "a@b.c", DisplayName: "Avery"})

	next, err := svc.Refresh(context.Background(), session.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if next.RefreshToken == session.RefreshToken {
		t.Fatalf("expected a rotated refresh token")
	}
	if _, err := svc.Refresh(context.Background(), session.RefreshToken); err == nil {
		t.Fatalf("expected old refresh token to be revoked")
	}
}

// The Postgres store doubles as the refresh session backend when Redis
// is not configured.
var _ refreshStore = (*store.PostgresStore)(nil)

func TestReindexSearchPushesAllRecords(t *testing.T) {
	var gotFilter access.Filter
	fs := &fakeStore{
		listTasksFn: func(_ context.Context, filter access.Filter, _ store.TaskQuery) ([]store.Task, error) {
			gotFilter = filter
			return []store.Task{{ID: "task_1", Title: "A"}, {ID: "task_2", Title: "B"}}, nil
		},
		listAllNotesFn: func(context.Context) ([]store.Note, error) {
			return []store.Note{{ID: "note_1", Title: "N"}}, nil
		},
	}
	svc := newTestService(fs)

	if err := svc.ReindexSearch(context.Background()); err != nil {
		t.Fatalf("ReindexSearch: %v", err)
	}
	if !gotFilter.All {
		t.Fatalf("reindex must load every task, got %+v", gotFilter)
	}
	fsSearch := svc.search.(*fakeSearch)
	if len(fsSearch.reindexed) != 1 || fsSearch.reindexed[0] != [2]int{2, 1} {
		t.Fatalf("expected one bulk push of 2 tasks and 1 note, got %v", fsSearch.reindexed)
	}
}

package app

import (
	"context"
	"fmt"
	"time"

	"taskflow/api/internal/access"
	"taskflow/api/internal/auth"
	"taskflow/api/internal/authpw"
	"taskflow/api/internal/config"
	"taskflow/api/internal/email"
	"taskflow/api/internal/export"
	"taskflow/api/internal/search"
	"taskflow/api/internal/store"
	"taskflow/api/internal/util"
)

type Session struct {
	Token        string
	RefreshToken string
	UserID       string
	UserName     string
	Email        string
	Role         string
	JTI          string
	ExpiresAt    time.Time
}

// Principal derives the access-control view of the session.
func (s Session) Principal() access.Principal {
	return access.Principal{
		ID:    s.UserID,
		Email: s.Email,
		Role:  access.NormalizeRole(s.Role),
	}
}

// dataStore is the Postgres surface the service depends on. Tests swap
// in a fake with per-method function fields.
type dataStore interface {
	Ping(ctx context.Context) error

	GetUserByID(context.Context, string) (store.User, error)
	GetUserByEmail(context.Context, string) (store.User, error)
	CreateUser(context.Context, store.User) error
	ListUsers(context.Context) ([]store.User, error)
	UpdateUserRole(context.Context, string, string) error
	DeactivateUser(context.Context, string) error

	RevokeAccessToken(context.Context, string, time.Time) error
	IsAccessTokenRevoked(context.Context, string) (bool, error)

	GetTask(context.Context, string) (store.Task, error)
	CreateTask(context.Context, store.Task) error
	UpdateTask(context.Context, store.Task) error
	DeleteTask(context.Context, string) error
	ListTasks(context.Context, access.Filter, store.TaskQuery) ([]store.Task, error)
	ListOpenTasksForUser(context.Context, string) ([]store.Task, error)

	ListRoomMemberships(context.Context, string) ([]store.ChatRoomMembership, error)
	UpsertRoomMembership(context.Context, store.ChatRoomMembership) error
	MarkRoomRead(context.Context, string, string) error
	MarkAllRoomsRead(context.Context, string) error

	ListLookups(context.Context, string) ([]store.LookupItem, error)
	ReplaceLookups(context.Context, string, []store.LookupItem) error

	ListNotes(context.Context, string) ([]store.Note, error)
	ListAllNotes(context.Context) ([]store.Note, error)
	GetNote(context.Context, string) (store.Note, error)
	CreateNote(context.Context, store.Note) error
	UpdateNote(context.Context, store.Note) error
	DeleteNote(context.Context, string) error

	ListProjects(context.Context) ([]store.Project, error)
	GetProject(context.Context, string) (store.Project, error)
	CreateProject(context.Context, store.Project) error
	UpdateProject(context.Context, store.Project) error

	ListTags(context.Context) ([]store.Tag, error)
	CreateTag(context.Context, store.Tag) error
	DeleteTag(context.Context, string) error

	ListTimeEntries(context.Context, string) ([]store.TimeEntry, error)
	CreateTimeEntry(context.Context, store.TimeEntry) error
	SumTimeEntries(context.Context, string) (int, error)
}

// refreshStore holds refresh sessions, normally Redis.
type refreshStore interface {
	SaveRefreshSession(ctx context.Context, tokenHash string, user store.User, expiresAt time.Time) error
	LookupRefreshSession(ctx context.Context, tokenHash string) (store.User, error)
	RevokeRefreshSession(ctx context.Context, tokenHash string) error
}

// searchService is the slice of the search facade the app uses.
type searchService interface {
	Search(q search.Query) search.Response
	IndexTask(t search.TaskRecord)
	IndexNote(n search.NoteRecord)
	DeleteTask(id string)
	DeleteNote(id string)
	ReindexAll(tasks []search.TaskRecord, notes []search.NoteRecord)
}

// presenceTracker is the Redis heartbeat surface.
type presenceTracker interface {
	Heartbeat(ctx context.Context, userID string) error
	OnlineUsers(ctx context.Context) ([]string, error)
	Disconnect(ctx context.Context, userID string) error
}

type Service struct {
	cfg      config.Config
	store    dataStore
	sessions refreshStore
	authpw   *authpw.Service
	email    *email.Service
	search   searchService
	export   *export.Service
	presence presenceTracker

	suggestions *suggestionHub
}

type Deps struct {
	Store    dataStore
	Sessions refreshStore
	AuthPW   *authpw.Service
	Email    *email.Service
	Search   searchService
	Export   *export.Service
	Presence presenceTracker
}

func New(cfg config.Config, deps Deps) *Service {
	return &Service{
		cfg:         cfg,
		store:       deps.Store,
		sessions:    deps.Sessions,
		authpw:      deps.AuthPW,
		email:       deps.Email,
		search:      deps.Search,
		export:      deps.Export,
		presence:    deps.Presence,
		suggestions: newSuggestionHub(15 * time.Minute),
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// AuthPasswordService exposes the email/password auth flow to handlers.
func (s *Service) AuthPasswordService() *authpw.Service {
	return s.authpw
}

// SMTPConfigured reports whether outbound email works; when it does not,
// auth handlers fall back to returning tokens in the response body.
func (s *Service) SMTPConfigured() bool {
	return s.email != nil && s.email.IsConfigured()
}

// CreateSession issues access and refresh tokens for a signed-in user.
func (s *Service) CreateSession(ctx context.Context, userID string) (Session, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	tokenHash := auth.HashToken(refreshToken)
	user, err := s.sessions.LookupRefreshSession(ctx, tokenHash)
	if err != nil {
		return Session{}, err
	}
	if err := s.sessions.RevokeRefreshSession(ctx, tokenHash); err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) issueSession(ctx context.Context, user store.User) (Session, error) {
	now := time.Now()
	expiresAt := now.Add(s.cfg.AccessTTL)
	jti := util.NewID("jti")

	token, err := auth.IssueToken([]byte(s.cfg.JWTSecret), auth.Claims{
		Sub:   user.ID,
		Email: user.Email,
		Role:  user.Role,
		JTI:   jti,
		Exp:   expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, err
	}

	refresh := util.NewID("rft") + util.NewID("")
	refreshExpires := now.Add(s.cfg.RefreshTTL)
	if err := s.sessions.SaveRefreshSession(ctx, auth.HashToken(refresh), user, refreshExpires); err != nil {
		return Session{}, err
	}

	return Session{
		Token:        token,
		RefreshToken: refresh,
		UserID:       user.ID,
		UserName:     user.DisplayName,
		Email:        user.Email,
		Role:         user.Role,
		JTI:          jti,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}
	revoked, err := s.store.IsAccessTokenRevoked(ctx, claims.JTI)
	if err != nil {
		return Session{}, err
	}
	if revoked {
		return Session{}, auth.ErrInvalidToken
	}

	user, err := s.store.GetUserByID(ctx, claims.Sub)
	if err != nil {
		return Session{}, err
	}
	if !user.IsActive {
		return Session{}, auth.ErrInvalidToken
	}

	return Session{
		Token:     token,
		UserID:    user.ID,
		UserName:  user.DisplayName,
		Email:     user.Email,
		Role:      user.Role,
		JTI:       claims.JTI,
		ExpiresAt: time.Unix(claims.Exp, 0),
	}, nil
}

func (s *Service) Logout(ctx context.Context, session Session, refreshToken string) error {
	if session.JTI != "" {
		_ = s.store.RevokeAccessToken(ctx, session.JTI, session.ExpiresAt)
	}
	if refreshToken != "" {
		_ = s.sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken))
	}
	if s.presence != nil && session.UserID != "" {
		_ = s.presence.Disconnect(ctx, session.UserID)
	}
	return nil
}

// Heartbeat records the caller as online.
func (s *Service) Heartbeat(ctx context.Context, session Session) error {
	if s.presence == nil {
		return nil
	}
	return s.presence.Heartbeat(ctx, session.UserID)
}

// OnlineUsers lists the ids of currently online users.
func (s *Service) OnlineUsers(ctx context.Context) ([]string, error) {
	if s.presence == nil {
		return []string{}, nil
	}
	ids, err := s.presence.OnlineUsers(ctx)
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// Search runs a scoped full-text query for the session.
func (s *Service) Search(session Session, q string, filterType string, limit, offset int) search.Response {
	filter := access.ScopeFilter(session.Principal())
	return s.search.Search(search.Query{
		Text:       q,
		FilterType: search.ResultType(filterType),
		UserID:     session.UserID,
		ScopeAll:   filter.All,
		Limit:      limit,
		Offset:     offset,
	})
}

// ReindexSearch bulk-pushes every task and note into the search index,
// called at startup to catch up after index downtime.
func (s *Service) ReindexSearch(ctx context.Context) error {
	tasks, err := s.store.ListTasks(ctx, access.Filter{All: true}, store.TaskQuery{})
	if err != nil {
		return fmt.Errorf("load tasks for reindex: %w", err)
	}
	notes, err := s.store.ListAllNotes(ctx)
	if err != nil {
		return fmt.Errorf("load notes for reindex: %w", err)
	}

	taskRecords := make([]search.TaskRecord, 0, len(tasks))
	for _, t := range tasks {
		taskRecords = append(taskRecords, taskSearchRecord(t))
	}
	noteRecords := make([]search.NoteRecord, 0, len(notes))
	for _, n := range notes {
		noteRecords = append(noteRecords, noteSearchRecord(n))
	}
	s.search.ReindexAll(taskRecords, noteRecords)
	return nil
}

func sendVerificationEmail(svc *email.Service, appURL, to, userName, token string) {
	if svc == nil || !svc.IsConfigured() {
		return
	}
	go func() {
		_ = svc.SendVerificationEmail(to, userName, appURL+"/verify-email?token="+token)
	}()
}

func sendPasswordResetEmail(svc *email.Service, appURL, to, userName, token string) {
	if svc == nil || !svc.IsConfigured() {
		return
	}
	go func() {
		_ = svc.SendPasswordResetEmail(to, userName, appURL+"/reset-password?token="+token)
	}()
}

package app

import (
	"context"
	"sync"
	"time"

	"taskflow/api/internal/suggest"
)

// suggestionHub keeps per-user analysis sessions alive between requests.
// Entries expire on access after the TTL, the same lazy sweep the sync
// session cache uses.
type suggestionHub struct {
	mu        sync.Mutex
	ttl       time.Duration
	sessions  map[string]*suggest.Session
	debouncer *suggest.Debouncer
}

func newSuggestionHub(ttl time.Duration) *suggestionHub {
	return &suggestionHub{
		ttl:       ttl,
		sessions:  make(map[string]*suggest.Session),
		debouncer: suggest.NewDebouncer(),
	}
}

func (h *suggestionHub) sweepLocked(now time.Time) {
	for key, sess := range h.sessions {
		if now.Sub(sess.TouchedAt()) > h.ttl {
			delete(h.sessions, key)
		}
	}
}

// get returns the session for (userID, sessionID), creating it when the
// id is empty or unknown. Keys are user-scoped so one user can never
// address another's session.
func (h *suggestionHub) get(userID, sessionID string) *suggest.Session {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sweepLocked(time.Now())

	if sessionID != "" {
		if sess, ok := h.sessions[userID+":"+sessionID]; ok {
			return sess
		}
	}
	sess := suggest.NewSession()
	h.sessions[userID+":"+sess.ID] = sess
	return sess
}

// lookup returns an existing session or nil, without creating one.
func (h *suggestionHub) lookup(userID, sessionID string) *suggest.Session {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sweepLocked(time.Now())
	return h.sessions[userID+":"+sessionID]
}

func (h *suggestionHub) close() {
	h.debouncer.Close()
}

func (s *Service) suggestLookups(ctx context.Context) suggest.Lookups {
	var lookups suggest.Lookups
	assign := func(kind string, dst *[]suggest.LookupRow) {
		items, err := s.store.ListLookups(ctx, kind)
		if err != nil {
			return
		}
		for _, item := range items {
			if !item.IsActive {
				continue
			}
			*dst = append(*dst, suggest.LookupRow{ID: item.ID, Name: item.Name})
		}
	}
	assign("departments", &lookups.Departments)
	assign("modules", &lookups.Modules)
	assign("task_types", &lookups.TaskTypes)
	return lookups
}

// AnalyzeSuggestions runs the heuristic over note text and stores the
// results in the caller's session. Previously dismissed suggestions stay
// gone even when the same text reproduces them.
func (s *Service) AnalyzeSuggestions(ctx context.Context, session Session, sessionID, title, content string) (string, []suggest.Suggestion, error) {
	sess := s.suggestions.get(session.UserID, sessionID)

	analyzer := suggest.NewAnalyzer(s.suggestLookups(ctx))
	sess.SetResults(analyzer.Analyze(title, content))
	return sess.ID, sess.Active(), nil
}

// QueueAnalysis debounces a mid-typing analysis and returns whatever the
// session currently holds. The settled result lands in the session and
// is picked up by the next call.
func (s *Service) QueueAnalysis(session Session, sessionID, title, content, changed string) (string, []suggest.Suggestion) {
	sess := s.suggestions.get(session.UserID, sessionID)
	s.scheduleReanalysis(session, sess.ID, title, content, changed == "title")
	return sess.ID, sess.Active()
}

// scheduleReanalysis coalesces rapid note edits into one background
// analysis per settled input. Title edits settle faster than content.
func (s *Service) scheduleReanalysis(session Session, sessionID, title, content string, titleChanged bool) {
	settle := suggest.ContentSettle
	key := "content:" + session.UserID + ":" + sessionID
	if titleChanged {
		settle = suggest.TitleSettle
		key = "title:" + session.UserID + ":" + sessionID
	}
	s.suggestions.debouncer.Trigger(key, settle, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_, _, _ = s.AnalyzeSuggestions(ctx, session, sessionID, title, content)
	})
}

func (s *Service) DismissSuggestion(session Session, sessionID, suggestionID string) error {
	sess := s.suggestions.lookup(session.UserID, sessionID)
	if sess == nil {
		return notFound("Suggestion session not found")
	}
	sess.Dismiss(suggestionID)
	return nil
}

// AcceptSuggestion converts a suggestion into a real task. The
// suggestion is only consumed after the create succeeds, so a storage
// failure leaves it available for retry.
func (s *Service) AcceptSuggestion(ctx context.Context, session Session, sessionID, suggestionID string) (TaskPayload, error) {
	sess := s.suggestions.lookup(session.UserID, sessionID)
	if sess == nil {
		return TaskPayload{}, notFound("Suggestion session not found")
	}
	sg, err := sess.Take(suggestionID)
	if err != nil {
		return TaskPayload{}, notFound("Suggestion not found")
	}

	in := TaskInput{
		Title:       sg.Title,
		Description: sg.Description,
		Status:      "TODO",
		Priority:    sg.Priority,
		Tags:        sg.Tags,
	}
	if sg.DepartmentID != "" {
		in.DepartmentID = &sg.DepartmentID
	}
	if sg.ModuleID != "" {
		in.ModuleID = &sg.ModuleID
	}
	if sg.TaskTypeID != "" {
		in.TaskTypeID = &sg.TaskTypeID
	}

	task, err := s.CreateTask(ctx, session, in)
	if err != nil {
		return TaskPayload{}, err
	}
	sess.Remove(suggestionID)
	return task, nil
}

// RefreshSuggestions clears the session's results and dismissal set.
func (s *Service) RefreshSuggestions(session Session, sessionID string) error {
	sess := s.suggestions.lookup(session.UserID, sessionID)
	if sess == nil {
		return notFound("Suggestion session not found")
	}
	sess.Refresh()
	return nil
}

// Close releases background resources, currently the debounce timers.
func (s *Service) Close() {
	s.suggestions.close()
}

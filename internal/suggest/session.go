package suggest

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrUnknownSuggestion = errors.New("unknown suggestion")

// Session holds the active suggestions for one note-editing session and
// the set of dismissed ids. Dismissals survive re-analysis of the same
// content and are only cleared by an explicit Refresh.
type Session struct {
	ID        string
	mu        sync.Mutex
	active    map[string]Suggestion
	order     []string
	dismissed map[string]struct{}
	touchedAt time.Time
}

func NewSession() *Session {
	return &Session{
		ID:        uuid.NewString(),
		active:    make(map[string]Suggestion),
		dismissed: make(map[string]struct{}),
		touchedAt: time.Now(),
	}
}

// SetResults replaces the active list with a fresh analysis, dropping
// anything the user already dismissed.
func (s *Session) SetResults(suggestions []Suggestion) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchedAt = time.Now()
	s.active = make(map[string]Suggestion, len(suggestions))
	s.order = s.order[:0]
	for _, sg := range suggestions {
		if _, gone := s.dismissed[sg.ID]; gone {
			continue
		}
		if _, dup := s.active[sg.ID]; dup {
			continue
		}
		s.active[sg.ID] = sg
		s.order = append(s.order, sg.ID)
	}
}

// Active returns the current suggestions in analysis order.
func (s *Session) Active() []Suggestion {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Suggestion, 0, len(s.order))
	for _, id := range s.order {
		if sg, ok := s.active[id]; ok {
			out = append(out, sg)
		}
	}
	return out
}

// Dismiss removes a suggestion and pins its id so re-analysis cannot
// bring it back.
func (s *Session) Dismiss(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchedAt = time.Now()
	s.dismissed[id] = struct{}{}
	delete(s.active, id)
}

// Take returns the suggestion for acceptance without removing it; the
// caller removes it with Remove only after the task create succeeded, so
// a failed create leaves the suggestion active.
func (s *Session) Take(id string) (Suggestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sg, ok := s.active[id]
	if !ok {
		return Suggestion{}, ErrUnknownSuggestion
	}
	return sg, nil
}

func (s *Session) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchedAt = time.Now()
	delete(s.active, id)
}

// Refresh clears the dismissal set and the active list.
func (s *Session) Refresh() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchedAt = time.Now()
	s.active = make(map[string]Suggestion)
	s.order = s.order[:0]
	s.dismissed = make(map[string]struct{})
}

func (s *Session) TouchedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touchedAt
}

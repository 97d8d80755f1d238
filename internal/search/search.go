package search

// ResultType identifies the kind of entity in a search result.
type ResultType string

const (
	ResultTask ResultType = "task"
	ResultNote ResultType = "note"
)

// Result is a single search hit returned to the caller.
type Result struct {
	Type     ResultType `json:"type"`
	ID       string     `json:"id"`
	Title    string     `json:"title"`
	Snippet  string     `json:"snippet"`
	Status   string     `json:"status,omitempty"`
	Priority string     `json:"priority,omitempty"`
}

// Query describes a search request. UserID and ScopeAll come from the
// caller's access filter: when ScopeAll is false only tasks the user
// created or is assigned to match, and notes are always author-scoped.
type Query struct {
	Text       string
	FilterType ResultType // empty = all types
	UserID     string
	ScopeAll   bool
	Limit      int
	Offset     int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// TaskRecord is the data we index for a task.
type TaskRecord struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Status      string   `json:"status"`
	Priority    string   `json:"priority"`
	CreatorID   string   `json:"creatorId"`
	AssigneeID  string   `json:"assigneeId"`
	Tags        []string `json:"tags"`
}

// NoteRecord is the data we index for a note.
type NoteRecord struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Content  string `json:"content"`
	AuthorID string `json:"authorId"`
}

// Package suggest scans free-form note text for task-worthy intents and
// proposes candidate tasks. It is rule-based keyword matching, not a
// model: scores grow monotonically with match strength and nothing here
// is ever persisted.
package suggest

import (
	"crypto/sha1"
	"encoding/hex"
	"sort"
	"strings"
)

// MinContentLength is the threshold below which analysis does not run.
const MinContentLength = 50

// HighConfidence is the score consumers treat as actionable.
const HighConfidence = 70

// Suggestion is an ephemeral task candidate. It exists only inside an
// analysis session until dismissed or accepted.
type Suggestion struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Category     string   `json:"category"`
	Confidence   int      `json:"confidence"`
	Priority     string   `json:"priority"`
	Tags         []string `json:"tags"`
	DepartmentID string   `json:"departmentId,omitempty"`
	ModuleID     string   `json:"moduleId,omitempty"`
	TaskTypeID   string   `json:"taskTypeId,omitempty"`
}

// LookupRow is a snapshot row from one of the admin lookup tables, used
// to resolve names detected in the text to valid foreign keys.
type LookupRow struct {
	ID   string
	Name string
}

// Lookups is the snapshot handed to the analyzer per request.
type Lookups struct {
	Departments []LookupRow
	Modules     []LookupRow
	TaskTypes   []LookupRow
}

type category struct {
	name         string
	keywords     []string
	priority     string
	taskTypeHint string
	tags         []string
}

// categories is deliberately a small fixed table; match weight, not
// vocabulary size, drives the score.
var categories = []category{
	{
		name:         "bugfix",
		keywords:     []string{"bug", "fix", "broken", "crash", "error", "regression", "fails"},
		priority:     "HIGH",
		taskTypeHint: "Bug",
		tags:         []string{"bug"},
	},
	{
		name:         "feature",
		keywords:     []string{"implement", "add", "build", "feature", "support", "create"},
		priority:     "MEDIUM",
		taskTypeHint: "Feature",
		tags:         []string{"feature"},
	},
	{
		name:         "review",
		keywords:     []string{"review", "feedback", "approve", "check", "verify"},
		priority:     "MEDIUM",
		taskTypeHint: "Review",
		tags:         []string{"review"},
	},
	{
		name:         "meeting",
		keywords:     []string{"meeting", "schedule", "call", "discuss", "sync", "agenda"},
		priority:     "LOW",
		taskTypeHint: "Meeting",
		tags:         []string{"meeting"},
	},
	{
		name:         "deadline",
		keywords:     []string{"deadline", "due", "urgent", "asap", "today", "tomorrow"},
		priority:     "URGENT",
		taskTypeHint: "Task",
		tags:         []string{"deadline"},
	},
	{
		name:         "research",
		keywords:     []string{"research", "investigate", "explore", "compare", "evaluate"},
		priority:     "LOW",
		taskTypeHint: "Research",
		tags:         []string{"research"},
	},
}

const (
	contentHitWeight = 12
	titleHitWeight   = 24
	maxConfidence    = 100
)

// Analyzer turns note text into suggestions against a lookup snapshot.
type Analyzer struct {
	lookups Lookups
}

func NewAnalyzer(lookups Lookups) *Analyzer {
	return &Analyzer{lookups: lookups}
}

// Analyze scores every category against the note and returns the
// matches, strongest first. Content shorter than MinContentLength yields
// nothing; that gate belongs to the analyzer, not its callers.
func (a *Analyzer) Analyze(title, content string) []Suggestion {
	if len(strings.TrimSpace(content)) < MinContentLength {
		return nil
	}

	contentWords := tokenize(content)
	titleWords := tokenize(title)

	var suggestions []Suggestion
	for _, cat := range categories {
		contentHits, topKeyword := countHits(contentWords, cat.keywords)
		titleHits, titleKeyword := countHits(titleWords, cat.keywords)
		if contentHits == 0 && titleHits == 0 {
			continue
		}
		if topKeyword == "" {
			topKeyword = titleKeyword
		}

		confidence := contentHits*contentHitWeight + titleHits*titleHitWeight
		if confidence > maxConfidence {
			confidence = maxConfidence
		}

		suggestion := Suggestion{
			ID:          suggestionID(cat.name, topKeyword),
			Title:       suggestionTitle(title, cat, topKeyword),
			Description: firstSentence(content),
			Category:    cat.name,
			Confidence:  confidence,
			Priority:    cat.priority,
			Tags:        append([]string(nil), cat.tags...),
			TaskTypeID:  matchLookup(a.lookups.TaskTypes, cat.taskTypeHint),
		}
		suggestion.DepartmentID = findLookupInText(a.lookups.Departments, contentWords)
		suggestion.ModuleID = findLookupInText(a.lookups.Modules, contentWords)
		suggestions = append(suggestions, suggestion)
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		if suggestions[i].Confidence != suggestions[j].Confidence {
			return suggestions[i].Confidence > suggestions[j].Confidence
		}
		return suggestions[i].ID < suggestions[j].ID
	})
	return suggestions
}

// suggestionID is stable for a given category and dominant keyword so
// re-analysis of the same content reproduces the same ids, which is what
// makes the dismissal set effective.
func suggestionID(categoryName, keyword string) string {
	sum := sha1.Sum([]byte(categoryName + ":" + keyword))
	return "sug_" + hex.EncodeToString(sum[:8])
}

func suggestionTitle(noteTitle string, cat category, keyword string) string {
	trimmed := strings.TrimSpace(noteTitle)
	if trimmed != "" {
		return strings.ToUpper(cat.name[:1]) + cat.name[1:] + ": " + trimmed
	}
	return strings.ToUpper(cat.name[:1]) + cat.name[1:] + " task (" + keyword + ")"
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
}

func countHits(words []string, keywords []string) (int, string) {
	index := make(map[string]int, len(words))
	for _, w := range words {
		index[w]++
	}
	hits := 0
	top := ""
	topCount := 0
	for _, kw := range keywords {
		if c := index[kw]; c > 0 {
			hits += c
			if c > topCount {
				topCount = c
				top = kw
			}
		}
	}
	return hits, top
}

func firstSentence(content string) string {
	trimmed := strings.TrimSpace(content)
	if idx := strings.IndexAny(trimmed, ".!?\n"); idx > 0 {
		trimmed = trimmed[:idx+1]
	}
	if len(trimmed) > 200 {
		trimmed = trimmed[:200]
	}
	return strings.TrimSpace(trimmed)
}

func matchLookup(rows []LookupRow, name string) string {
	for _, row := range rows {
		if strings.EqualFold(row.Name, name) {
			return row.ID
		}
	}
	return ""
}

// findLookupInText resolves the first lookup row whose name appears as a
// word in the note, so "the billing module keeps crashing" binds the
// Billing module FK.
func findLookupInText(rows []LookupRow, words []string) string {
	index := make(map[string]struct{}, len(words))
	for _, w := range words {
		index[w] = struct{}{}
	}
	for _, row := range rows {
		if _, ok := index[strings.ToLower(row.Name)]; ok {
			return row.ID
		}
	}
	return ""
}

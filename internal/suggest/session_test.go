package suggest

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func sampleSuggestions() []Suggestion {
	return []Suggestion{
		{ID: "sug_a", Title: "A", Category: "bugfix", Confidence: 90},
		{ID: "sug_b", Title: "B", Category: "feature", Confidence: 60},
	}
}

func TestDismissSurvivesReanalysis(t *testing.T) {
	session := NewSession()
	session.SetResults(sampleSuggestions())
	session.Dismiss("sug_a")

	if got := session.Active(); len(got) != 1 || got[0].ID != "sug_b" {
		t.Fatalf("after dismiss, active = %+v", got)
	}

	// Same content re-analyzed produces the same ids; the dismissed one
	// must not come back.
	session.SetResults(sampleSuggestions())
	if got := session.Active(); len(got) != 1 || got[0].ID != "sug_b" {
		t.Fatalf("dismissed suggestion reappeared: %+v", got)
	}
}

func TestRefreshClearsDismissals(t *testing.T) {
	session := NewSession()
	session.SetResults(sampleSuggestions())
	session.Dismiss("sug_a")
	session.Refresh()
	session.SetResults(sampleSuggestions())
	if got := session.Active(); len(got) != 2 {
		t.Fatalf("after refresh, active = %+v", got)
	}
}

func TestAcceptContract(t *testing.T) {
	session := NewSession()
	session.SetResults(sampleSuggestions())

	sg, err := session.Take("sug_a")
	if err != nil {
		t.Fatalf("Take: %v", err)
	}
	if sg.Title != "A" {
		t.Fatalf("Take returned wrong suggestion: %+v", sg)
	}

	// Simulated create failure: suggestion stays active.
	if got := session.Active(); len(got) != 2 {
		t.Fatalf("suggestion must stay active until create succeeds: %+v", got)
	}

	// Simulated create success.
	session.Remove("sug_a")
	if got := session.Active(); len(got) != 1 || got[0].ID != "sug_b" {
		t.Fatalf("after successful accept, active = %+v", got)
	}

	if _, err := session.Take("sug_missing"); err == nil {
		t.Fatal("Take of unknown id should fail")
	}
}

func TestDebouncerCoalescesRapidInput(t *testing.T) {
	d := NewDebouncer()
	defer d.Close()

	var runs atomic.Int32
	for i := 0; i < 10; i++ {
		d.Trigger("content", 30*time.Millisecond, func() { runs.Add(1) })
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(100 * time.Millisecond)

	if got := runs.Load(); got != 1 {
		t.Fatalf("expected exactly 1 run after settle, got %d", got)
	}
}

func TestDebouncerKeysAreIndependent(t *testing.T) {
	d := NewDebouncer()
	defer d.Close()

	var mu sync.Mutex
	fired := map[string]int{}
	record := func(key string) func() {
		return func() {
			mu.Lock()
			fired[key]++
			mu.Unlock()
		}
	}

	d.Trigger("title", 10*time.Millisecond, record("title"))
	d.Trigger("content", 10*time.Millisecond, record("content"))
	time.Sleep(60 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if fired["title"] != 1 || fired["content"] != 1 {
		t.Fatalf("expected one run per key, got %+v", fired)
	}
}

func TestDebouncerCancelAndClose(t *testing.T) {
	d := NewDebouncer()

	var runs atomic.Int32
	d.Trigger("content", 20*time.Millisecond, func() { runs.Add(1) })
	d.Cancel("content")

	d.Trigger("title", 20*time.Millisecond, func() { runs.Add(1) })
	d.Close()

	d.Trigger("late", time.Millisecond, func() { runs.Add(1) })
	time.Sleep(60 * time.Millisecond)

	if got := runs.Load(); got != 0 {
		t.Fatalf("cancelled/closed debouncer must not fire, got %d runs", got)
	}
}

// Package notify builds the notification feed a client polls for. A
// notification is a projection over live chat-membership and task state,
// computed fresh per request and never stored.
package notify

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

type Type string

const (
	TypeChatUnread  Type = "chat_unread"
	TypeTaskOverdue Type = "task_overdue"
	TypeTaskUrgent  Type = "task_urgent"
	TypeTaskDueSoon Type = "task_due_soon"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

const (
	// FeedLimit caps the emitted feed at the most recent entries.
	FeedLimit = 20
	// chat rooms with more unread than this are bumped to high priority.
	highUnreadThreshold = 5
	// tasks due within this window are surfaced as due-soon.
	dueSoonWindow = 24 * time.Hour
)

type Notification struct {
	ID        string    `json:"id"`
	Type      Type      `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Priority  Priority  `json:"priority"`
	ActionURL string    `json:"actionUrl"`
}

type Counts struct {
	Total          int `json:"total"`
	Chat           int `json:"chat"`
	Tasks          int `json:"tasks"`
	Urgent         int `json:"urgent"`
	Overdue        int `json:"overdue"`
	UnreadMessages int `json:"unreadMessages"`
}

type Feed struct {
	Notifications []Notification `json:"notifications"`
	Counts        Counts         `json:"counts"`
	Degraded      bool           `json:"degraded,omitempty"`
}

// Membership is the unread-state row for one chat room.
type Membership struct {
	RoomID        string
	RoomName      string
	UnreadCount   int
	LastMessageAt time.Time
	IsActive      bool
}

// TaskState is the slice of a task the aggregator needs. The fetch query
// is a lenient creator-or-assignee OR filter that may return tasks which
// classify to nothing; those are dropped here, not in SQL.
type TaskState struct {
	ID       string
	Title    string
	Status   string
	Priority string
	DueDate  *time.Time
}

// BuildFeed merges chat and task notifications, newest first, capped at
// FeedLimit. Counts are computed over the full qualifying set, before
// truncation.
func BuildFeed(memberships []Membership, tasks []TaskState, now time.Time) Feed {
	var all []Notification
	counts := Counts{}

	for _, m := range memberships {
		if !m.IsActive || m.UnreadCount <= 0 {
			continue
		}
		priority := PriorityMedium
		if m.UnreadCount > highUnreadThreshold {
			priority = PriorityHigh
		}
		counts.Chat += m.UnreadCount
		counts.UnreadMessages += m.UnreadCount
		all = append(all, Notification{
			ID:        ChatNotificationID(m.RoomID),
			Type:      TypeChatUnread,
			Title:     m.RoomName,
			Message:   unreadMessage(m.UnreadCount),
			Timestamp: m.LastMessageAt,
			Priority:  priority,
			ActionURL: "/chat/" + m.RoomID,
		})
	}

	for _, task := range tasks {
		n, ok := classifyTask(task, now)
		if !ok {
			continue
		}
		counts.Tasks++
		if n.Type == TypeTaskOverdue {
			counts.Overdue++
		}
		all = append(all, n)
	}

	for _, n := range all {
		if n.Priority == PriorityUrgent {
			counts.Urgent++
		}
	}
	counts.Total = len(all)

	sort.SliceStable(all, func(i, j int) bool {
		if !all[i].Timestamp.Equal(all[j].Timestamp) {
			return all[i].Timestamp.After(all[j].Timestamp)
		}
		return all[i].ID < all[j].ID
	})
	if len(all) > FeedLimit {
		all = all[:FeedLimit]
	}
	if all == nil {
		all = []Notification{}
	}

	return Feed{Notifications: all, Counts: counts}
}

// classifyTask applies the precedence overdue > urgent-priority > due-soon.
// Completed tasks never reach here; the caller filters them out of the
// fetch. A task matching no rule emits nothing.
func classifyTask(task TaskState, now time.Time) (Notification, bool) {
	if task.Status == "COMPLETED" || task.Status == "CANCELLED" {
		return Notification{}, false
	}

	base := Notification{
		ID:        TaskNotificationID(task.ID),
		Title:     task.Title,
		Timestamp: now,
		ActionURL: "/tasks/" + task.ID,
	}
	if task.DueDate != nil {
		base.Timestamp = *task.DueDate
	}

	switch {
	case task.DueDate != nil && task.DueDate.Before(now):
		base.Type = TypeTaskOverdue
		base.Priority = PriorityUrgent
		base.Message = "Task is overdue"
	case task.Priority == "URGENT":
		base.Type = TypeTaskUrgent
		base.Priority = PriorityHigh
		base.Message = "Urgent task needs attention"
	case task.DueDate != nil && task.DueDate.Sub(now) <= dueSoonWindow:
		base.Type = TypeTaskDueSoon
		base.Priority = PriorityHigh
		base.Message = "Task is due within 24 hours"
	default:
		return Notification{}, false
	}
	return base, true
}

func unreadMessage(count int) string {
	if count == 1 {
		return "1 unread message"
	}
	return strconv.Itoa(count) + " unread messages"
}

func ChatNotificationID(roomID string) string {
	return "chat_" + roomID
}

func TaskNotificationID(taskID string) string {
	return "task_" + taskID
}

// RoomIDFromNotification extracts the room ID from a chat notification
// id. Task-origin ids (and anything else) return false: task
// notifications carry no read state and mark-read treats them as no-ops.
func RoomIDFromNotification(notificationID string) (string, bool) {
	roomID, ok := strings.CutPrefix(notificationID, "chat_")
	if !ok || roomID == "" {
		return "", false
	}
	return roomID, true
}

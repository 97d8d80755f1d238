package app

import (
	"context"
	"errors"
	"log"
	"time"

	"taskflow/api/internal/notify"
	"taskflow/api/internal/store"
)

// NotificationFeed assembles the caller's feed from chat memberships and
// open tasks. Either source failing degrades the feed instead of
// failing the request.
func (s *Service) NotificationFeed(ctx context.Context, session Session) notify.Feed {
	degraded := false

	memberships := []notify.Membership{}
	rows, err := s.store.ListRoomMemberships(ctx, session.UserID)
	if err != nil {
		log.Printf("notifications: chat source failed for %s: %v", session.UserID, err)
		degraded = true
	} else {
		for _, m := range rows {
			memberships = append(memberships, notify.Membership{
				RoomID:        m.RoomID,
				RoomName:      m.RoomName,
				UnreadCount:   m.UnreadCount,
				LastMessageAt: m.LastMessageAt,
				IsActive:      m.IsActive,
			})
		}
	}

	tasks := []notify.TaskState{}
	taskRows, err := s.store.ListOpenTasksForUser(ctx, session.UserID)
	if err != nil {
		log.Printf("notifications: task source failed for %s: %v", session.UserID, err)
		degraded = true
	} else {
		for _, t := range taskRows {
			tasks = append(tasks, notify.TaskState{
				ID:       t.ID,
				Title:    t.Title,
				Status:   t.Status,
				Priority: t.Priority,
				DueDate:  t.DueDate,
			})
		}
	}

	feed := notify.BuildFeed(memberships, tasks, time.Now())
	feed.Degraded = degraded
	return feed
}

// MarkNotificationsRead resets unread state. With All set every active
// membership is reset; otherwise chat_* ids resolve to rooms and task_*
// ids are accepted as no-ops.
func (s *Service) MarkNotificationsRead(ctx context.Context, session Session, all bool, ids []string) error {
	if all {
		return s.store.MarkAllRoomsRead(ctx, session.UserID)
	}
	for _, id := range ids {
		roomID, ok := notify.RoomIDFromNotification(id)
		if !ok {
			continue
		}
		if err := s.store.MarkRoomRead(ctx, session.UserID, roomID); err != nil {
			if errors.Is(err, store.ErrNoMembership) {
				continue
			}
			return err
		}
	}
	return nil
}

// Every account is enrolled in the company-wide room so the feed has a
// chat surface from day one. The chat service takes over the row once
// the user first appears there.
const (
	defaultChatRoomID   = "general"
	defaultChatRoomName = "General"
)

func (s *Service) enrollDefaultChatRoom(ctx context.Context, userID string) {
	err := s.store.UpsertRoomMembership(ctx, store.ChatRoomMembership{
		UserID:        userID,
		RoomID:        defaultChatRoomID,
		RoomName:      defaultChatRoomName,
		LastMessageAt: time.Now(),
		IsActive:      true,
	})
	if err != nil {
		log.Printf("notifications: enroll %s in %s: %v", userID, defaultChatRoomID, err)
	}
}

// ChatRooms lists the caller's memberships for the badge UI.
func (s *Service) ChatRooms(ctx context.Context, session Session) ([]store.ChatRoomMembership, error) {
	rows, err := s.store.ListRoomMemberships(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []store.ChatRoomMembership{}
	}
	return rows, nil
}

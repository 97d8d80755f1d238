package store

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoMembership is returned when a read-marker update targets a room
// the user is not a member of.
var ErrNoMembership = errors.New("no room membership")

func (s *PostgresStore) ListRoomMemberships(ctx context.Context, userID string) ([]ChatRoomMembership, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, room_id, room_name, unread_count, last_read_at, last_message_at, is_active
		FROM chat_room_memberships
		WHERE user_id=$1
		ORDER BY last_message_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list room memberships: %w", err)
	}
	defer rows.Close()

	items := make([]ChatRoomMembership, 0)
	for rows.Next() {
		var item ChatRoomMembership
		if err := rows.Scan(
			&item.UserID,
			&item.RoomID,
			&item.RoomName,
			&item.UnreadCount,
			&item.LastReadAt,
			&item.LastMessageAt,
			&item.IsActive,
		); err != nil {
			return nil, fmt.Errorf("scan room membership: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate room memberships: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) MarkRoomRead(ctx context.Context, userID, roomID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE chat_room_memberships
		SET unread_count=0, last_read_at=NOW()
		WHERE user_id=$1 AND room_id=$2
	`, userID, roomID)
	if err != nil {
		return fmt.Errorf("mark room read: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark room read: %w", err)
	}
	if affected == 0 {
		return ErrNoMembership
	}
	return nil
}

func (s *PostgresStore) MarkAllRoomsRead(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE chat_room_memberships
		SET unread_count=0, last_read_at=NOW()
		WHERE user_id=$1
	`, userID)
	if err != nil {
		return fmt.Errorf("mark all rooms read: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpsertRoomMembership(ctx context.Context, m ChatRoomMembership) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_room_memberships (user_id, room_id, room_name, unread_count, last_message_at, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, room_id) DO UPDATE
		SET room_name=EXCLUDED.room_name, unread_count=EXCLUDED.unread_count,
		    last_message_at=EXCLUDED.last_message_at, is_active=EXCLUDED.is_active
	`, m.UserID, m.RoomID, m.RoomName, m.UnreadCount, m.LastMessageAt, m.IsActive)
	if err != nil {
		return fmt.Errorf("upsert room membership: %w", err)
	}
	return nil
}

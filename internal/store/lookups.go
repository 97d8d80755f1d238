package store

import (
	"context"
	"fmt"
)

// LookupKinds are the admin-managed classification tables.
var LookupKinds = []string{"departments", "modules", "task_types"}

func ValidLookupKind(kind string) bool {
	for _, k := range LookupKinds {
		if k == kind {
			return true
		}
	}
	return false
}

func (s *PostgresStore) ListLookups(ctx context.Context, kind string) ([]LookupItem, error) {
	if !ValidLookupKind(kind) {
		return nil, fmt.Errorf("unknown lookup kind %q", kind)
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, name, is_active, sort_order
		FROM lookup_items
		WHERE kind=$1
		ORDER BY sort_order ASC, name ASC
	`, kind)
	if err != nil {
		return nil, fmt.Errorf("list lookups: %w", err)
	}
	defer rows.Close()

	items := make([]LookupItem, 0)
	for rows.Next() {
		var item LookupItem
		if err := rows.Scan(&item.ID, &item.Kind, &item.Name, &item.IsActive, &item.SortOrder); err != nil {
			return nil, fmt.Errorf("scan lookup: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lookups: %w", err)
	}
	return items, nil
}

// ReplaceLookups swaps the full set of items for one kind in a single
// transaction: every existing row of the kind is deactivated, then each
// provided row is created or updated. Rows absent from the new set stay
// around inactive so task foreign keys keep resolving.
func (s *PostgresStore) ReplaceLookups(ctx context.Context, kind string, items []LookupItem) error {
	if !ValidLookupKind(kind) {
		return fmt.Errorf("unknown lookup kind %q", kind)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace lookups: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE lookup_items SET is_active=FALSE WHERE kind=$1`, kind); err != nil {
		return fmt.Errorf("deactivate lookups: %w", err)
	}

	for _, item := range items {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO lookup_items (id, kind, name, is_active, sort_order)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO UPDATE
			SET kind=EXCLUDED.kind, name=EXCLUDED.name, is_active=EXCLUDED.is_active, sort_order=EXCLUDED.sort_order
		`, item.ID, kind, item.Name, item.IsActive, item.SortOrder); err != nil {
			return fmt.Errorf("upsert lookup: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace lookups: %w", err)
	}
	return nil
}

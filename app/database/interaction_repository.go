package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// InteractionRepositoryImpl handles database operations for entry interactions
type InteractionRepositoryImpl struct {
	db *DB
}

var _ InteractionRepository = (*InteractionRepositoryImpl)(nil)

func NewInteractionRepository(db *DB) *InteractionRepositoryImpl {
	return &InteractionRepositoryImpl{db: db}
}

func (r *InteractionRepositoryImpl) GetInteraction(userID, entryID string) (*Interaction, error) {
	var interaction Interaction
	err := r.db.QueryRow(`
		SELECT user_id, entry_id, read_at, starred_at, archived_at, filtered_at
		FROM entry_interactions
		WHERE user_id = $1 AND entry_id = $2
	`, userID, entryID).Scan(
		&interaction.UserID, &interaction.EntryID,
		&interaction.ReadAt, &interaction.StarredAt,
		&interaction.ArchivedAt, &interaction.FilteredAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get interaction: %w", err)
	}

	return &interaction, nil
}

// ApplyFilterState performs both halves of a reconcile in one transaction so
// a partially applied filter state is never observable.
//
// The upsert intentionally resets read_at, starred_at and archived_at for
// entries that become filtered: filtering wipes prior interaction state.
func (r *InteractionRepositoryImpl) ApplyFilterState(userID string, filteredIDs, unfilteredIDs []string, at time.Time) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if len(filteredIDs) > 0 {
		_, err = tx.Exec(`
			INSERT INTO entry_interactions (user_id, entry_id, filtered_at)
			SELECT $1, unnest($2::uuid[]), $3
			ON CONFLICT (user_id, entry_id) DO UPDATE SET
				filtered_at = EXCLUDED.filtered_at,
				read_at = NULL,
				starred_at = NULL,
				archived_at = NULL
		`, userID, pq.Array(filteredIDs), at)
		if err != nil {
			return fmt.Errorf("failed to set filtered state: %w", err)
		}
	}

	if len(unfilteredIDs) > 0 {
		_, err = tx.Exec(`
			UPDATE entry_interactions
			SET filtered_at = NULL
			WHERE user_id = $1
			  AND entry_id = ANY($2::uuid[])
			  AND filtered_at IS NOT NULL
		`, userID, pq.Array(unfilteredIDs))
		if err != nil {
			return fmt.Errorf("failed to clear filtered state: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit filter state: %w", err)
	}

	return nil
}

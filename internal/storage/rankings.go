package storage

import (
	"context"
	"time"

	"github.com/meur/residency/internal/board"
	"github.com/meur/residency/internal/models"
)

// ReplaceRanking swaps an owner's saved ranking for orderedIDs, best first.
// The delete and the inserts commit together, so a failed save leaves the
// previous ranking intact.
func (s *Store) ReplaceRanking(ctx context.Context, kind models.RankingKind, ownerID int64, orderedIDs []int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, s.rebind(`DELETE FROM rankings WHERE kind = ? AND owner_id = ?`), string(kind), ownerID)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, s.rebind(`
		INSERT INTO rankings (kind, owner_id, item_id, rank, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`))
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, row := range board.Rows(ownerID, orderedIDs) {
		if _, err := stmt.ExecContext(ctx, string(kind), row.OwnerID, row.ItemID, row.Rank, now); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetRanking returns an owner's saved ranking ordered by rank
func (s *Store) GetRanking(ctx context.Context, kind models.RankingKind, ownerID int64) ([]board.RankRow, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT owner_id, item_id, rank FROM rankings
		WHERE kind = ? AND owner_id = ?
		ORDER BY rank
	`), string(kind), ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ranking := []board.RankRow{}
	for rows.Next() {
		var r board.RankRow
		if err := rows.Scan(&r.OwnerID, &r.ItemID, &r.Rank); err != nil {
			return nil, err
		}
		ranking = append(ranking, r)
	}
	return ranking, rows.Err()
}

// AllRankings returns every saved ranking of a kind, keyed by owner, best first
func (s *Store) AllRankings(ctx context.Context, kind models.RankingKind) (map[int64][]int64, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT owner_id, item_id FROM rankings
		WHERE kind = ?
		ORDER BY owner_id, rank
	`), string(kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rankings := make(map[int64][]int64)
	for rows.Next() {
		var owner, item int64
		if err := rows.Scan(&owner, &item); err != nil {
			return nil, err
		}
		rankings[owner] = append(rankings[owner], item)
	}
	return rankings, rows.Err()
}

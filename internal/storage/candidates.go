package storage

import (
	"context"
	"fmt"

	"github.com/meur/residency/internal/board"
	"github.com/meur/residency/internal/models"
)

// Candidates returns what an owner may rank for a kind. Companies are labelled by
// name and grouped by the term of their first posting; students are labelled
// "First Surname" and carry no group.
func (s *Store) Candidates(ctx context.Context, kind models.RankingKind, ownerID int64) ([]models.Candidate, error) {
	var query string
	var args []any

	switch kind {
	case models.KindStudentInitial:
		query = `
			SELECT c.id, c.name,
			       COALESCE((SELECT p.residency_term FROM positions p
			                 WHERE p.company_id = c.id ORDER BY p.id LIMIT 1), '')
			FROM companies c ORDER BY c.name, c.id`
	case models.KindStudentInterview:
		query = `
			SELECT c.id, c.name,
			       COALESCE((SELECT p.residency_term FROM positions p
			                 WHERE p.company_id = c.id ORDER BY p.id LIMIT 1), '')
			FROM interview_allocations ia JOIN companies c ON c.id = ia.company_id
			WHERE ia.student_id = ?
			ORDER BY c.name, c.id`
		args = append(args, ownerID)
	case models.KindCompanyInterview:
		query = `
			SELECT s.id, s.first_name || ' ' || s.surname, ''
			FROM interview_allocations ia JOIN students s ON s.id = ia.student_id
			WHERE ia.company_id = ?
			ORDER BY s.first_name, s.surname, s.id`
		args = append(args, ownerID)
	default:
		return nil, fmt.Errorf("ranking kind %q is not stored", kind)
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	candidates := []models.Candidate{}
	for rows.Next() {
		var c models.Candidate
		if err := rows.Scan(&c.ID, &c.DisplayLabel, &c.Group); err != nil {
			return nil, err
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

// RankingAdapter backs a ranking board with the database
type RankingAdapter struct {
	store *Store
	kind  models.RankingKind
}

// NewRankingAdapter creates an adapter for one persisted ranking kind
func NewRankingAdapter(store *Store, kind models.RankingKind) *RankingAdapter {
	return &RankingAdapter{store: store, kind: kind}
}

var _ board.Adapter[models.Candidate] = (*RankingAdapter)(nil)

// LoadCandidates splits the owner's candidates into the pool and the saved ranking.
// Saved entries for candidates that are no longer eligible are dropped.
func (a *RankingAdapter) LoadCandidates(ctx context.Context, ownerID int64) ([]models.Candidate, []models.Candidate, error) {
	candidates, err := a.store.Candidates(ctx, a.kind, ownerID)
	if err != nil {
		return nil, nil, err
	}
	if len(candidates) == 0 {
		return nil, nil, board.ErrNotFound
	}

	saved, err := a.store.GetRanking(ctx, a.kind, ownerID)
	if err != nil {
		return nil, nil, err
	}
	keys := make([]int64, len(saved))
	for i, r := range saved {
		keys[i] = r.ItemID
	}

	b := board.New(candidates, nil)
	b.Rearrange(keys)
	return b.Pool(), b.Ranked(), nil
}

// SaveRanking replaces the owner's ranking. Every id must be one of the owner's candidates.
func (a *RankingAdapter) SaveRanking(ctx context.Context, ownerID int64, orderedIDs []int64) error {
	candidates, err := a.store.Candidates(ctx, a.kind, ownerID)
	if err != nil {
		return err
	}
	eligible := make(map[int64]bool, len(candidates))
	for _, c := range candidates {
		eligible[c.ID] = true
	}
	for _, id := range orderedIDs {
		if !eligible[id] {
			return fmt.Errorf("%w: %d for owner %d", board.ErrNotCandidate, id, ownerID)
		}
	}

	return a.store.ReplaceRanking(ctx, a.kind, ownerID, orderedIDs)
}

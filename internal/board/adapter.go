package board

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
)

var (
	// ErrNotFound means the owner has no eligible candidates. Callers render an
	// empty state; it is not a failure.
	ErrNotFound = errors.New("no candidates available")

	// ErrEmptyRanking rejects a submit with nothing ranked, before any persistence call.
	ErrEmptyRanking = errors.New("ranking is empty")

	// ErrSubmitInProgress rejects a second submit while one is outstanding.
	ErrSubmitInProgress = errors.New("a submit is already in progress")

	// ErrRankingLocked rejects a submit once the ranking has been submitted under a
	// locking policy.
	ErrRankingLocked = errors.New("ranking already submitted")

	// ErrNotReady rejects a submit while candidates are still loading.
	ErrNotReady = errors.New("board is still loading")

	// ErrNotCandidate rejects a saved ranking holding an item the owner may not rank.
	ErrNotCandidate = errors.New("item is not a candidate")
)

// PersistenceError reports a failed load or save against the backing store
type PersistenceError struct {
	Op  string // "load" or "save"
	Err error
}

func (e *PersistenceError) Error() string {
	if e.Timeout() {
		return fmt.Sprintf("%s ranking timed out", e.Op)
	}
	return fmt.Sprintf("%s ranking: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the store call ran past its deadline
func (e *PersistenceError) Timeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}

// IsValidation reports whether err is a user-correctable validation error
func IsValidation(err error) bool {
	return errors.Is(err, ErrEmptyRanking) || errors.Is(err, ErrNotCandidate)
}

func persistenceError(op string, err error) error {
	var perr *PersistenceError
	if errors.As(err, &perr) {
		return perr
	}
	return &PersistenceError{Op: op, Err: err}
}

// Adapter loads and saves the candidates of one ranking kind.
type Adapter[T Item] interface {
	// LoadCandidates returns the unranked pool and the previously saved ranking, best
	// first. It returns ErrNotFound when the owner has nothing to rank.
	LoadCandidates(ctx context.Context, ownerID int64) (pool []T, ranked []T, err error)

	// SaveRanking replaces the owner's saved ranking with orderedIDs, best first.
	SaveRanking(ctx context.Context, ownerID int64, orderedIDs []int64) error
}

// RankRow is one persisted ranking row. Ranks start at 1 and have no gaps.
type RankRow struct {
	OwnerID int64 `json:"owner_id"`
	ItemID  int64 `json:"item_id"`
	Rank    int   `json:"rank"`
}

// Rows converts an ordered list of item ids into rank rows
func Rows(ownerID int64, orderedIDs []int64) []RankRow {
	rows := make([]RankRow, len(orderedIDs))
	for i, id := range orderedIDs {
		rows[i] = RankRow{OwnerID: ownerID, ItemID: id, Rank: i + 1}
	}
	return rows
}

// MemoryAdapter serves a fixed universe of items and keeps saved rankings in memory.
// Every owner sees the same universe.
type MemoryAdapter[T Item] struct {
	mu       sync.RWMutex
	universe []T
	saved    map[int64][]int64
}

// NewMemoryAdapter creates an adapter over universe
func NewMemoryAdapter[T Item](universe []T) *MemoryAdapter[T] {
	return &MemoryAdapter[T]{
		universe: slices.Clone(universe),
		saved:    make(map[int64][]int64),
	}
}

func (m *MemoryAdapter[T]) LoadCandidates(ctx context.Context, ownerID int64) ([]T, []T, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.universe) == 0 {
		return nil, nil, ErrNotFound
	}

	b := New(m.universe, nil)
	b.Rearrange(m.saved[ownerID])
	return b.Pool(), b.Ranked(), nil
}

func (m *MemoryAdapter[T]) SaveRanking(ctx context.Context, ownerID int64, orderedIDs []int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved[ownerID] = slices.Clone(orderedIDs)
	return nil
}

// Saved returns the ranking last saved for ownerID
func (m *MemoryAdapter[T]) Saved(ownerID int64) []int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.saved[ownerID])
}

package board

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Status is the lifecycle state of a ranking page
type Status string

const (
	StatusLoading    Status = "loading"
	StatusReady      Status = "ready"
	StatusSubmitting Status = "submitting"
	StatusSubmitted  Status = "submitted"
	StatusError      Status = "ready-with-error"
)

// SubmitPolicy decides what "submitted" means for a page.
type SubmitPolicy struct {
	// LockAfterSubmit makes submitted terminal: later submits fail with ErrRankingLocked.
	LockAfterSubmit bool
	// RevertAfter returns an unlocked page to ready this long after a successful submit.
	// Zero keeps it submitted until the next submit.
	RevertAfter time.Duration
}

// DefaultSaveTimeout bounds each store call when Options.SaveTimeout is unset
const DefaultSaveTimeout = 10 * time.Second

// Options configure a Session
type Options struct {
	Policy      SubmitPolicy
	SaveTimeout time.Duration
	Now         func() time.Time
}

// Snapshot is a point-in-time view of a session for rendering
type Snapshot[T Item] struct {
	OwnerID    int64    `json:"owner_id"`
	Status     Status   `json:"status"`
	Empty      bool     `json:"empty"`
	Pool       []T      `json:"pool"`
	PoolTotal  int      `json:"pool_total"`
	Ranked     []T      `json:"ranked"`
	Filter     string   `json:"filter,omitempty"`
	Categories []string `json:"categories"`
	Dragging   *int64   `json:"dragging,omitempty"`
	CanSubmit  bool     `json:"can_submit"`
	Error      string   `json:"error,omitempty"`
}

// Session is one owner's ranking page: a board, its drag coordinator and the
// loading/submitting state machine. All methods are safe for concurrent use and each
// interaction runs to completion before the next one starts.
type Session[T Item] struct {
	mu          sync.Mutex
	ownerID     int64
	adapter     Adapter[T]
	opts        Options
	board       *Board[T]
	coord       *Coordinator[T]
	status      Status
	empty       bool
	lastErr     error
	submittedAt time.Time
}

// NewSession creates a session in the loading state. Call Load before use.
func NewSession[T Item](ownerID int64, adapter Adapter[T], opts Options) *Session[T] {
	if opts.SaveTimeout <= 0 {
		opts.SaveTimeout = DefaultSaveTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	b := New[T](nil, nil)
	return &Session[T]{
		ownerID: ownerID,
		adapter: adapter,
		opts:    opts,
		board:   b,
		coord:   NewCoordinator(b),
		status:  StatusLoading,
	}
}

// OwnerID returns the owner whose ranking this session edits
func (s *Session[T]) OwnerID() int64 {
	return s.ownerID
}

// Load fetches the candidates and resets the board. An owner with nothing to rank ends
// up ready with an empty board; only store failures are returned.
func (s *Session[T]) Load(ctx context.Context) error {
	s.mu.Lock()
	s.status = StatusLoading
	s.mu.Unlock()

	loadCtx, cancel := context.WithTimeout(ctx, s.opts.SaveTimeout)
	defer cancel()
	pool, ranked, err := s.adapter.LoadCandidates(loadCtx, s.ownerID)

	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case errors.Is(err, ErrNotFound):
		s.board.Reset(nil, nil)
		s.empty = true
		s.lastErr = nil
		s.status = StatusReady
		return nil
	case err != nil:
		s.lastErr = persistenceError("load", err)
		s.status = StatusError
		return s.lastErr
	}

	s.board.Reset(pool, ranked)
	s.empty = len(pool) == 0 && len(ranked) == 0
	s.lastErr = nil
	s.status = StatusReady
	// a saved ranking under a locking policy was submitted in an earlier session
	if s.opts.Policy.LockAfterSubmit && len(ranked) > 0 {
		s.status = StatusSubmitted
	}
	return nil
}

// Apply handles one drag-and-drop event. Nothing is applied while a submit is in
// flight or once the ranking is locked.
func (s *Session[T]) Apply(ev Event) Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frozen() != nil {
		return Outcome{}
	}
	return s.coord.Handle(ev)
}

// Rearrange restores a saved ordering, e.g. an unsubmitted draft
func (s *Session[T]) Rearrange(keys []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.frozen(); err != nil {
		return err
	}
	s.board.Rearrange(keys)
	return nil
}

// SetFilter changes the visible pool category. A locked ranking keeps its view.
func (s *Session[T]) SetFilter(category string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.locked() {
		return ErrRankingLocked
	}
	s.board.SetFilter(category)
	return nil
}

// Empty reports whether the last load found nothing to rank
func (s *Session[T]) Empty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.empty
}

// Keys returns the ranked keys, best first
func (s *Session[T]) Keys() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.board.Keys()
}

// Submit persists the ranked list as rank rows. A failed save leaves the board as it
// was so the user can retry.
func (s *Session[T]) Submit(ctx context.Context) ([]RankRow, error) {
	s.mu.Lock()
	switch s.currentStatus() {
	case StatusLoading:
		s.mu.Unlock()
		return nil, ErrNotReady
	case StatusSubmitting:
		s.mu.Unlock()
		return nil, ErrSubmitInProgress
	case StatusSubmitted:
		if s.locked() {
			s.mu.Unlock()
			return nil, ErrRankingLocked
		}
	}
	keys := s.board.Keys()
	if len(keys) == 0 {
		s.mu.Unlock()
		return nil, ErrEmptyRanking
	}
	s.status = StatusSubmitting
	s.mu.Unlock()

	saveCtx, cancel := context.WithTimeout(ctx, s.opts.SaveTimeout)
	defer cancel()
	err := s.adapter.SaveRanking(saveCtx, s.ownerID, keys)
	if err == nil && saveCtx.Err() != nil {
		err = saveCtx.Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case IsValidation(err):
		s.lastErr = err
		s.status = StatusError
		return nil, err
	case err != nil:
		s.lastErr = persistenceError("save", err)
		s.status = StatusError
		return nil, s.lastErr
	}
	s.lastErr = nil
	s.status = StatusSubmitted
	s.submittedAt = s.opts.Now()
	return Rows(s.ownerID, keys), nil
}

// Status returns the current lifecycle state
func (s *Session[T]) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentStatus()
}

// Snapshot returns the current view of the session
func (s *Session[T]) Snapshot() Snapshot[T] {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := s.currentStatus()
	snap := Snapshot[T]{
		OwnerID:    s.ownerID,
		Status:     status,
		Empty:      s.empty,
		Pool:       s.board.Visible(),
		PoolTotal:  len(s.board.pool),
		Ranked:     s.board.Ranked(),
		Filter:     s.board.Filter(),
		Categories: s.board.Categories(),
	}
	if item, ok := s.coord.Dragging(); ok {
		key := item.Key()
		snap.Dragging = &key
	}
	if s.lastErr != nil {
		snap.Error = s.lastErr.Error()
	}
	snap.CanSubmit = len(snap.Ranked) > 0 && status != StatusSubmitting && status != StatusLoading && !s.locked()
	return snap
}

// currentStatus applies the revert policy. Callers hold s.mu.
func (s *Session[T]) currentStatus() Status {
	p := s.opts.Policy
	if s.status == StatusSubmitted && !p.LockAfterSubmit && p.RevertAfter > 0 &&
		s.opts.Now().Sub(s.submittedAt) >= p.RevertAfter {
		s.status = StatusReady
	}
	return s.status
}

// locked reports whether the ranking was submitted under a locking policy. Callers hold s.mu.
func (s *Session[T]) locked() bool {
	return s.opts.Policy.LockAfterSubmit && s.currentStatus() == StatusSubmitted
}

// frozen returns why the board may not change right now, or nil. Callers hold s.mu.
func (s *Session[T]) frozen() error {
	if s.locked() {
		return ErrRankingLocked
	}
	if s.currentStatus() == StatusSubmitting {
		return ErrSubmitInProgress
	}
	return nil
}

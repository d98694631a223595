package board

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubAdapter records calls and lets tests inject failures
type stubAdapter struct {
	mu       sync.Mutex
	pool     []card
	ranked   []card
	loadErr  error
	saveErr  error
	block    chan struct{}
	saves    [][]int64
	loadHits int
}

func (s *stubAdapter) LoadCandidates(ctx context.Context, ownerID int64) ([]card, []card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadHits++
	return s.pool, s.ranked, s.loadErr
}

func (s *stubAdapter) SaveRanking(ctx context.Context, ownerID int64, ids []int64) error {
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saves = append(s.saves, ids)
	return nil
}

func (s *stubAdapter) saveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saves)
}

func TestSessionEndToEnd(t *testing.T) {
	adapter := &stubAdapter{pool: []card{cardA, cardB, cardC}}
	s := NewSession[card](7, adapter, Options{})

	assert.Equal(t, StatusLoading, s.Status())
	require.NoError(t, s.Load(context.Background()))
	assert.Equal(t, StatusReady, s.Status())

	out := s.Apply(Event{Type: EventDragStart, ItemID: cardB.id})
	require.True(t, out.Applied)
	s.Apply(Event{Type: EventDrop, Region: RegionList, Payload: out.Payload})

	snap := s.Snapshot()
	assert.Equal(t, []string{"A", "C"}, labels(snap.Pool))
	assert.Equal(t, []string{"B"}, labels(snap.Ranked))

	out = s.Apply(Event{Type: EventDragStart, ItemID: cardA.id})
	s.Apply(Event{Type: EventDrop, Region: RegionRow, Payload: out.Payload, TargetID: cardB.id})
	assert.Equal(t, []string{"A", "B"}, labels(s.Snapshot().Ranked))

	rows, err := s.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []RankRow{{7, 1, 1}, {7, 2, 2}}, rows)
	assert.Equal(t, [][]int64{{1, 2}}, adapter.saves)
	assert.Equal(t, StatusSubmitted, s.Status())
}

func TestSubmitEmptyRankingNeverCallsStore(t *testing.T) {
	adapter := &stubAdapter{pool: []card{cardA}}
	s := NewSession[card](1, adapter, Options{})
	require.NoError(t, s.Load(context.Background()))

	_, err := s.Submit(context.Background())
	require.ErrorIs(t, err, ErrEmptyRanking)
	assert.True(t, IsValidation(err))
	assert.Zero(t, adapter.saveCount())
	assert.Equal(t, StatusReady, s.Status())
}

func TestLoadNotFoundIsEmptyState(t *testing.T) {
	adapter := &stubAdapter{loadErr: ErrNotFound}
	s := NewSession[card](1, adapter, Options{})

	require.NoError(t, s.Load(context.Background()))
	snap := s.Snapshot()
	assert.True(t, snap.Empty)
	assert.Empty(t, snap.Pool)
	assert.Empty(t, snap.Ranked)
	assert.Equal(t, StatusReady, snap.Status)
	assert.Empty(t, snap.Error)
	assert.False(t, snap.CanSubmit)
}

func TestLoadFailure(t *testing.T) {
	adapter := &stubAdapter{loadErr: errors.New("connection refused")}
	s := NewSession[card](1, adapter, Options{})

	err := s.Load(context.Background())
	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "load", perr.Op)
	assert.Equal(t, StatusError, s.Status())
	assert.Contains(t, s.Snapshot().Error, "connection refused")
}

func TestFailedSaveKeepsBoardForRetry(t *testing.T) {
	adapter := &stubAdapter{pool: []card{cardA, cardB}, saveErr: errors.New("insert failed")}
	s := NewSession[card](3, adapter, Options{})
	require.NoError(t, s.Load(context.Background()))
	s.Apply(Event{Type: EventDrop, Region: RegionList, Payload: "2"})
	s.Apply(Event{Type: EventDrop, Region: RegionList, Payload: "1"})

	_, err := s.Submit(context.Background())
	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, StatusError, s.Status())
	assert.Equal(t, []string{"B", "A"}, labels(s.Snapshot().Ranked))

	adapter.mu.Lock()
	adapter.saveErr = nil
	adapter.mu.Unlock()

	rows, err := s.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []RankRow{{3, 2, 1}, {3, 1, 2}}, rows)
	assert.Empty(t, s.Snapshot().Error)
}

func TestSubmitTimeout(t *testing.T) {
	adapter := &stubAdapter{pool: []card{cardA}, block: make(chan struct{})}
	s := NewSession[card](1, adapter, Options{SaveTimeout: 20 * time.Millisecond})
	require.NoError(t, s.Load(context.Background()))
	s.Apply(Event{Type: EventDrop, Region: RegionList, Payload: "1"})

	_, err := s.Submit(context.Background())
	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.True(t, perr.Timeout())
	assert.Equal(t, "save ranking timed out", perr.Error())
	assert.Equal(t, StatusError, s.Status())
}

func TestSecondSubmitWhileInFlight(t *testing.T) {
	adapter := &stubAdapter{pool: []card{cardA}, block: make(chan struct{})}
	s := NewSession[card](1, adapter, Options{})
	require.NoError(t, s.Load(context.Background()))
	s.Apply(Event{Type: EventDrop, Region: RegionList, Payload: "1"})

	done := make(chan error, 1)
	go func() {
		_, err := s.Submit(context.Background())
		done <- err
	}()

	require.Eventually(t, func() bool { return s.Status() == StatusSubmitting }, time.Second, time.Millisecond)
	_, err := s.Submit(context.Background())
	assert.ErrorIs(t, err, ErrSubmitInProgress)
	assert.False(t, s.Snapshot().CanSubmit)

	close(adapter.block)
	require.NoError(t, <-done)
	assert.Equal(t, 1, adapter.saveCount())
}

func TestSubmitPolicies(t *testing.T) {
	now := time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	t.Run("locked", func(t *testing.T) {
		adapter := &stubAdapter{pool: []card{cardA}}
		s := NewSession[card](1, adapter, Options{Policy: SubmitPolicy{LockAfterSubmit: true}, Now: clock})
		require.NoError(t, s.Load(context.Background()))
		s.Apply(Event{Type: EventDrop, Region: RegionList, Payload: "1"})

		_, err := s.Submit(context.Background())
		require.NoError(t, err)
		_, err = s.Submit(context.Background())
		assert.ErrorIs(t, err, ErrRankingLocked)
		assert.False(t, s.Snapshot().CanSubmit)
		assert.Equal(t, 1, adapter.saveCount())
	})

	t.Run("reverts", func(t *testing.T) {
		adapter := &stubAdapter{pool: []card{cardA}}
		s := NewSession[card](1, adapter, Options{Policy: SubmitPolicy{RevertAfter: 3 * time.Second}, Now: func() time.Time { return now }})
		require.NoError(t, s.Load(context.Background()))
		s.Apply(Event{Type: EventDrop, Region: RegionList, Payload: "1"})

		_, err := s.Submit(context.Background())
		require.NoError(t, err)
		assert.Equal(t, StatusSubmitted, s.Status())

		now = now.Add(3 * time.Second)
		assert.Equal(t, StatusReady, s.Status())

		_, err = s.Submit(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 2, adapter.saveCount())
	})
}

func TestSubmitBeforeLoad(t *testing.T) {
	s := NewSession[card](1, &stubAdapter{}, Options{})
	_, err := s.Submit(context.Background())
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestMemoryAdapter(t *testing.T) {
	m := NewMemoryAdapter([]card{cardA, cardB, cardC})
	ctx := context.Background()

	pool, ranked, err := m.LoadCandidates(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, labels(pool))
	assert.Empty(t, ranked)

	require.NoError(t, m.SaveRanking(ctx, 1, []int64{3, 1}))
	pool, ranked, err = m.LoadCandidates(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, labels(pool))
	assert.Equal(t, []string{"C", "A"}, labels(ranked))

	_, ranked, err = m.LoadCandidates(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, ranked, "rankings are per owner")

	_, _, err = NewMemoryAdapter[card](nil).LoadCandidates(ctx, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBoardFrozenWhileSubmitting(t *testing.T) {
	adapter := &stubAdapter{pool: []card{cardA, cardB}, block: make(chan struct{})}
	s := NewSession[card](1, adapter, Options{})
	require.NoError(t, s.Load(context.Background()))
	s.Apply(Event{Type: EventDrop, Region: RegionList, Payload: "1"})

	done := make(chan error, 1)
	go func() {
		_, err := s.Submit(context.Background())
		done <- err
	}()
	require.Eventually(t, func() bool { return s.Status() == StatusSubmitting }, time.Second, time.Millisecond)

	out := s.Apply(Event{Type: EventDrop, Region: RegionList, Payload: "2"})
	assert.False(t, out.Applied)
	assert.ErrorIs(t, s.Rearrange([]int64{2, 1}), ErrSubmitInProgress)
	require.NoError(t, s.SetFilter("R2"), "the filter only changes the view")

	close(adapter.block)
	require.NoError(t, <-done)
	assert.Equal(t, [][]int64{{1}}, adapter.saves)
	assert.Equal(t, []string{"A"}, labels(s.Snapshot().Ranked), "board matches what was saved")
	assert.Equal(t, StatusSubmitted, s.Status())
}

func TestLockedRankingRejectsChanges(t *testing.T) {
	adapter := &stubAdapter{pool: []card{cardA, cardB}}
	s := NewSession[card](1, adapter, Options{Policy: SubmitPolicy{LockAfterSubmit: true}})
	require.NoError(t, s.Load(context.Background()))
	s.Apply(Event{Type: EventDrop, Region: RegionList, Payload: "1"})
	_, err := s.Submit(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Outcome{}, s.Apply(Event{Type: EventDragStart, ItemID: 2}))
	assert.Equal(t, Outcome{}, s.Apply(Event{Type: EventDrop, Region: RegionList, Payload: "2"}))
	assert.ErrorIs(t, s.Rearrange([]int64{2, 1}), ErrRankingLocked)
	assert.ErrorIs(t, s.SetFilter("R2"), ErrRankingLocked)
	assert.Equal(t, []string{"A"}, labels(s.Snapshot().Ranked))
}

func TestLoadSavedRankingUnderLock(t *testing.T) {
	tests := []struct {
		name       string
		policy     SubmitPolicy
		ranked     []card
		wantStatus Status
	}{
		{"saved ranking is locked", SubmitPolicy{LockAfterSubmit: true}, []card{cardA}, StatusSubmitted},
		{"nothing saved yet", SubmitPolicy{LockAfterSubmit: true}, nil, StatusReady},
		{"unlocked policy", SubmitPolicy{RevertAfter: time.Second}, []card{cardA}, StatusReady},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapter := &stubAdapter{pool: []card{cardB}, ranked: tt.ranked}
			s := NewSession[card](1, adapter, Options{Policy: tt.policy})
			require.NoError(t, s.Load(context.Background()))
			assert.Equal(t, tt.wantStatus, s.Status())

			if tt.wantStatus == StatusSubmitted {
				_, err := s.Submit(context.Background())
				assert.ErrorIs(t, err, ErrRankingLocked)
				assert.False(t, s.Snapshot().CanSubmit)
				assert.Zero(t, adapter.saveCount())
			}
		})
	}
}

func TestIneligibleItemIsValidation(t *testing.T) {
	adapter := &stubAdapter{pool: []card{cardA}, saveErr: fmt.Errorf("%w: 9", ErrNotCandidate)}
	s := NewSession[card](1, adapter, Options{})
	require.NoError(t, s.Load(context.Background()))
	s.Apply(Event{Type: EventDrop, Region: RegionList, Payload: "1"})

	_, err := s.Submit(context.Background())
	assert.ErrorIs(t, err, ErrNotCandidate)
	assert.True(t, IsValidation(err))
	var perr *PersistenceError
	assert.False(t, errors.As(err, &perr))
	assert.Equal(t, StatusError, s.Status())
}

// Package rankings holds the live ranking boards, one per ranking kind and owner,
// and connects them to the database, the draft store and metrics.
package rankings

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/meur/residency/internal/board"
	"github.com/meur/residency/internal/drafts"
	"github.com/meur/residency/internal/metrics"
	"github.com/meur/residency/internal/models"
	"github.com/meur/residency/internal/storage"
)

// DemoSize is the number of companies on the demo board
const DemoSize = 25

var (
	// ErrUnknownOwner means the student or company owning the board does not exist
	ErrUnknownOwner = errors.New("owner not found")

	// ErrKindUnavailable means the kind needs a database and none is configured
	ErrKindUnavailable = errors.New("ranking kind is not available")
)

// Session is a ranking board over candidates
type Session = board.Session[models.Candidate]

// Snapshot is a rendered ranking board
type Snapshot = board.Snapshot[models.Candidate]

type sessionKey struct {
	kind  models.RankingKind
	owner int64
}

type cachedSession struct {
	session  *Session
	loadedAt time.Time
}

// Manager creates, caches and drives ranking sessions
type Manager struct {
	store   *storage.Store
	drafts  drafts.Store
	metrics *metrics.Metrics
	log     *zap.Logger
	opts    board.Options
	demo    *board.MemoryAdapter[models.Candidate]
	refresh time.Duration

	mu       sync.Mutex
	sessions map[sessionKey]cachedSession
}

// NewManager creates a manager. store may be nil, in which case only the demo kind works.
func NewManager(store *storage.Store, draftStore drafts.Store, m *metrics.Metrics, log *zap.Logger, opts board.Options) *Manager {
	if draftStore == nil {
		draftStore = drafts.NewMemoryStore()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		store:    store,
		drafts:   draftStore,
		metrics:  m,
		log:      log,
		opts:     opts,
		demo:     board.NewMemoryAdapter(DemoCompanies()),
		sessions: make(map[sessionKey]cachedSession),
	}
}

// SetRefreshInterval makes Open reload a stored board once it is older than d, so
// companies, positions and allocations written elsewhere reach open boards. The draft
// is laid over the reloaded candidates. Zero disables the timed reload.
func (m *Manager) SetRefreshInterval(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refresh = d
}

func (m *Manager) now() time.Time {
	if m.opts.Now != nil {
		return m.opts.Now()
	}
	return time.Now()
}

// DemoCompanies returns the fixed universe of the demo board
func DemoCompanies() []models.Candidate {
	companies := make([]models.Candidate, DemoSize)
	for i := range companies {
		companies[i] = models.Candidate{ID: int64(i + 1), DisplayLabel: fmt.Sprintf("Company %d", i+1)}
	}
	return companies
}

// Open returns the owner's board, loading it on first use. A draft saved by an
// earlier visit is laid over the freshly loaded candidates. Empty boards and boards
// past the refresh interval are reloaded.
func (m *Manager) Open(ctx context.Context, kind models.RankingKind, ownerID int64) (*Session, error) {
	key := sessionKey{kind, ownerID}

	m.mu.Lock()
	cached, ok := m.sessions[key]
	refresh := m.refresh
	m.mu.Unlock()
	if ok && !m.stale(kind, cached, refresh) {
		return cached.session, nil
	}

	adapter, err := m.adapter(ctx, kind, ownerID)
	if err != nil {
		return nil, err
	}

	s := board.NewSession[models.Candidate](ownerID, adapter, m.opts)
	if err := s.Load(ctx); err != nil {
		// keep nothing cached so the next open retries the load
		return nil, err
	}
	m.restoreDraft(ctx, kind, s)

	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.sessions[key]
	if ok && existing.session != cached.session {
		return existing.session, nil
	}
	if !ok {
		m.metrics.SessionOpened()
	}
	m.sessions[key] = cachedSession{session: s, loadedAt: m.now()}
	m.log.Debug("board loaded",
		zap.String("kind", string(kind)),
		zap.Int64("owner_id", ownerID),
		zap.Bool("reload", ok),
		zap.Int("ranked", len(s.Keys())),
	)
	return s, nil
}

// stale reports whether a cached board should be loaded again. A board with a save in
// flight is never replaced.
func (m *Manager) stale(kind models.RankingKind, c cachedSession, refresh time.Duration) bool {
	if !kind.Persisted() || c.session.Status() == board.StatusSubmitting {
		return false
	}
	if c.session.Empty() {
		return true
	}
	return refresh > 0 && m.now().Sub(c.loadedAt) >= refresh
}

func (m *Manager) adapter(ctx context.Context, kind models.RankingKind, ownerID int64) (board.Adapter[models.Candidate], error) {
	if kind == models.KindDemo {
		return m.demo, nil
	}
	if m.store == nil {
		return nil, ErrKindUnavailable
	}

	var exists bool
	switch kind {
	case models.KindStudentInitial, models.KindStudentInterview:
		st, err := m.store.GetStudent(ctx, ownerID)
		if err != nil {
			return nil, &board.PersistenceError{Op: "load", Err: err}
		}
		exists = st != nil
	case models.KindCompanyInterview:
		c, err := m.store.GetCompany(ctx, ownerID)
		if err != nil {
			return nil, &board.PersistenceError{Op: "load", Err: err}
		}
		exists = c != nil
	default:
		return nil, ErrKindUnavailable
	}
	if !exists {
		return nil, ErrUnknownOwner
	}
	return storage.NewRankingAdapter(m.store, kind), nil
}

func (m *Manager) restoreDraft(ctx context.Context, kind models.RankingKind, s *Session) {
	d, err := m.drafts.Load(ctx, kind, s.OwnerID())
	if err != nil {
		m.log.Warn("failed to load draft", zap.String("kind", string(kind)), zap.Int64("owner_id", s.OwnerID()), zap.Error(err))
		return
	}
	if d == nil {
		return
	}
	if err := s.Rearrange(d.Ranked); err != nil {
		// the ranking was locked by a submit after this draft was written
		m.log.Debug("draft not applied", zap.String("kind", string(kind)), zap.Int64("owner_id", s.OwnerID()), zap.Error(err))
		return
	}
	s.SetFilter(d.Filter)
}

func (m *Manager) saveDraft(ctx context.Context, kind models.RankingKind, s *Session) {
	d := drafts.Draft{
		Ranked:  s.Keys(),
		Filter:  s.Snapshot().Filter,
		SavedAt: time.Now().UTC(),
	}
	if err := m.drafts.Save(ctx, kind, s.OwnerID(), d); err != nil {
		m.log.Warn("failed to save draft", zap.String("kind", string(kind)), zap.Int64("owner_id", s.OwnerID()), zap.Error(err))
	}
}

// Snapshot opens the board and renders it
func (m *Manager) Snapshot(ctx context.Context, kind models.RankingKind, ownerID int64) (Snapshot, error) {
	s, err := m.Open(ctx, kind, ownerID)
	if err != nil {
		return Snapshot{}, err
	}
	return s.Snapshot(), nil
}

// Apply runs one drag-and-drop event against the owner's board
func (m *Manager) Apply(ctx context.Context, kind models.RankingKind, ownerID int64, ev board.Event) (board.Outcome, Snapshot, error) {
	s, err := m.Open(ctx, kind, ownerID)
	if err != nil {
		return board.Outcome{}, Snapshot{}, err
	}

	out := s.Apply(ev)
	m.metrics.ObserveDragEvent(string(kind), out.Action, out.Applied)
	if out.Applied && ev.Type == board.EventDrop {
		m.saveDraft(ctx, kind, s)
	}
	return out, s.Snapshot(), nil
}

// Rearrange sets the ranked order directly, e.g. from a keyboard reorder
func (m *Manager) Rearrange(ctx context.Context, kind models.RankingKind, ownerID int64, keys []int64) (Snapshot, error) {
	s, err := m.Open(ctx, kind, ownerID)
	if err != nil {
		return Snapshot{}, err
	}
	if err := s.Rearrange(keys); err != nil {
		return s.Snapshot(), err
	}
	m.saveDraft(ctx, kind, s)
	return s.Snapshot(), nil
}

// SetFilter changes which pool category is visible
func (m *Manager) SetFilter(ctx context.Context, kind models.RankingKind, ownerID int64, category string) (Snapshot, error) {
	s, err := m.Open(ctx, kind, ownerID)
	if err != nil {
		return Snapshot{}, err
	}
	if err := s.SetFilter(category); err != nil {
		return s.Snapshot(), err
	}
	m.saveDraft(ctx, kind, s)
	return s.Snapshot(), nil
}

// Submit persists the owner's ranking and drops their draft
func (m *Manager) Submit(ctx context.Context, kind models.RankingKind, ownerID int64) ([]board.RankRow, Snapshot, error) {
	s, err := m.Open(ctx, kind, ownerID)
	if err != nil {
		return nil, Snapshot{}, err
	}

	start := time.Now()
	rows, err := s.Submit(ctx)
	elapsed := time.Since(start)

	var perr *board.PersistenceError
	switch {
	case err == nil:
		m.metrics.ObserveSubmission(string(kind), metrics.ResultSuccess, elapsed)
		if derr := m.drafts.Delete(ctx, kind, ownerID); derr != nil {
			m.log.Warn("failed to delete draft", zap.String("kind", string(kind)), zap.Int64("owner_id", ownerID), zap.Error(derr))
		}
		m.log.Info("ranking submitted",
			zap.String("kind", string(kind)),
			zap.Int64("owner_id", ownerID),
			zap.Int("ranked", len(rows)),
			zap.Duration("elapsed", elapsed),
		)
	case errors.As(err, &perr):
		m.metrics.ObserveSubmission(string(kind), metrics.ResultFailure, elapsed)
		m.log.Error("ranking save failed",
			zap.String("kind", string(kind)),
			zap.Int64("owner_id", ownerID),
			zap.Bool("timeout", perr.Timeout()),
			zap.Error(err),
		)
	default:
		m.metrics.ObserveSubmission(string(kind), metrics.ResultRejected, elapsed)
	}
	return rows, s.Snapshot(), err
}

// Discard throws away the owner's draft and reloads the board from the last submit
func (m *Manager) Discard(ctx context.Context, kind models.RankingKind, ownerID int64) (Snapshot, error) {
	if err := m.drafts.Delete(ctx, kind, ownerID); err != nil {
		m.log.Warn("failed to delete draft", zap.String("kind", string(kind)), zap.Int64("owner_id", ownerID), zap.Error(err))
	}
	m.Forget(kind, ownerID)
	return m.Snapshot(ctx, kind, ownerID)
}

// Forget drops a cached board so the next Open reloads it
func (m *Manager) Forget(kind models.RankingKind, ownerID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := sessionKey{kind, ownerID}
	if _, ok := m.sessions[key]; ok {
		delete(m.sessions, key)
		m.metrics.SessionClosed()
	}
}

// ForgetKind drops every cached board of a kind. Allocation runs and directory changes
// call this after changing who may rank whom.
func (m *Manager) ForgetKind(kind models.RankingKind) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.sessions {
		if k.kind == kind {
			delete(m.sessions, k)
			m.metrics.SessionClosed()
		}
	}
}

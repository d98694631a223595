package allocation

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/meur/residency/internal/metrics"
	"github.com/meur/residency/internal/models"
	"github.com/meur/residency/internal/storage"
)

// Run names used in logs and metrics
const (
	RunAllocate = "allocate"
	RunMatch    = "match"
)

// Runner executes allocation passes against the database
type Runner struct {
	store   *storage.Store
	limits  Limits
	metrics *metrics.Metrics
	log     *zap.Logger
}

// NewRunner creates a runner. m may be nil.
func NewRunner(store *storage.Store, limits Limits, m *metrics.Metrics, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{store: store, limits: limits, metrics: m, log: log}
}

// AllocateInterviews assigns interviews from the students' initial rankings
func (r *Runner) AllocateInterviews(ctx context.Context) (models.RunSummary, error) {
	runID := uuid.NewString()
	log := r.log.With(zap.String("run", RunAllocate), zap.String("run_id", runID))

	var (
		students []models.Student
		rankings map[int64][]int64
		existing []models.Allocation
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		students, err = r.store.GetStudents(gctx)
		return err
	})
	g.Go(func() (err error) {
		rankings, err = r.store.AllRankings(gctx, models.KindStudentInitial)
		return err
	})
	g.Go(func() (err error) {
		existing, err = r.store.GetAllocations(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		r.metrics.ObserveRun(RunAllocate, metrics.ResultFailure)
		return models.RunSummary{}, fmt.Errorf("load allocation inputs: %w", err)
	}

	allocations := AllocateInterviews(students, rankings, existing, r.limits)
	created, err := r.store.CreateAllocations(ctx, allocations)
	if err != nil {
		r.metrics.ObserveRun(RunAllocate, metrics.ResultFailure)
		return models.RunSummary{}, fmt.Errorf("save allocations: %w", err)
	}

	r.metrics.ObserveRun(RunAllocate, metrics.ResultSuccess)
	log.Info("interviews allocated", zap.Int("students", len(students)), zap.Int("created", created))
	return models.RunSummary{RunID: runID, Created: created}, nil
}

// Match places students from the interview rankings, replacing any earlier result
func (r *Runner) Match(ctx context.Context) (models.RunSummary, error) {
	runID := uuid.NewString()
	log := r.log.With(zap.String("run", RunMatch), zap.String("run_id", runID))

	var (
		interviews   []models.Allocation
		studentRanks map[int64][]int64
		companyRanks map[int64][]int64
		students     []models.Student
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		interviews, err = r.store.GetAllocations(gctx)
		return err
	})
	g.Go(func() (err error) {
		studentRanks, err = r.store.AllRankings(gctx, models.KindStudentInterview)
		return err
	})
	g.Go(func() (err error) {
		companyRanks, err = r.store.AllRankings(gctx, models.KindCompanyInterview)
		return err
	})
	g.Go(func() (err error) {
		students, err = r.store.GetStudents(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		r.metrics.ObserveRun(RunMatch, metrics.ResultFailure)
		return models.RunSummary{}, fmt.Errorf("load matching inputs: %w", err)
	}

	qca := make(map[int64]float64, len(students))
	for _, st := range students {
		qca[st.ID] = st.QCA
	}

	matches := Match(Score(interviews, studentRanks, companyRanks, qca), r.limits)
	for i := range matches {
		matches[i].RunID = runID
	}
	if err := r.store.ReplaceFinalMatches(ctx, matches); err != nil {
		r.metrics.ObserveRun(RunMatch, metrics.ResultFailure)
		return models.RunSummary{}, fmt.Errorf("save final matches: %w", err)
	}

	r.metrics.ObserveRun(RunMatch, metrics.ResultSuccess)
	log.Info("final matches placed", zap.Int("interviews", len(interviews)), zap.Int("placed", len(matches)))
	return models.RunSummary{RunID: runID, Created: len(matches)}, nil
}

package allocation

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meur/residency/internal/metrics"
	"github.com/meur/residency/internal/models"
	"github.com/meur/residency/internal/storage"
)

func student(id int64, qca float64) models.Student {
	return models.Student{ID: id, QCA: qca}
}

func pairs(allocs []models.Allocation) [][2]int64 {
	out := make([][2]int64, len(allocs))
	for i, a := range allocs {
		out[i] = [2]int64{a.StudentID, a.CompanyID}
	}
	return out
}

func TestAllocateInterviews(t *testing.T) {
	tests := []struct {
		name     string
		students []models.Student
		rankings map[int64][]int64
		existing []models.Allocation
		limits   Limits
		want     [][2]int64
	}{
		{
			name:     "highest QCA picks first",
			students: []models.Student{student(1, 3.0), student(2, 3.9)},
			rankings: map[int64][]int64{1: {10}, 2: {10}},
			limits:   Limits{InterviewsPerStudent: 3, InterviewsPerCompany: 1},
			want:     [][2]int64{{2, 10}},
		},
		{
			name:     "student cap stops after three",
			students: []models.Student{student(1, 3.0)},
			rankings: map[int64][]int64{1: {10, 11, 12, 13}},
			limits:   DefaultLimits,
			want:     [][2]int64{{1, 10}, {1, 11}, {1, 12}},
		},
		{
			name:     "full companies are skipped",
			students: []models.Student{student(1, 4.0), student(2, 3.0)},
			rankings: map[int64][]int64{1: {10}, 2: {10, 11}},
			limits:   Limits{InterviewsPerStudent: 3, InterviewsPerCompany: 1},
			want:     [][2]int64{{1, 10}, {2, 11}},
		},
		{
			name:     "existing allocations count and are not repeated",
			students: []models.Student{student(1, 4.0), student(2, 3.0)},
			rankings: map[int64][]int64{1: {10, 11}, 2: {10, 11}},
			existing: []models.Allocation{{StudentID: 1, CompanyID: 10}, {StudentID: 3, CompanyID: 11}},
			limits:   Limits{InterviewsPerStudent: 2, InterviewsPerCompany: 2},
			want:     [][2]int64{{1, 11}, {2, 10}},
		},
		{
			name:     "equal QCA goes by id",
			students: []models.Student{student(5, 3.5), student(4, 3.5)},
			rankings: map[int64][]int64{4: {10}, 5: {10}},
			limits:   Limits{InterviewsPerStudent: 1, InterviewsPerCompany: 1},
			want:     [][2]int64{{4, 10}},
		},
		{
			name:     "students without a ranking get nothing",
			students: []models.Student{student(1, 3.0)},
			limits:   DefaultLimits,
			want:     [][2]int64{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AllocateInterviews(tt.students, tt.rankings, tt.existing, tt.limits)
			assert.Equal(t, tt.want, pairs(got))
		})
	}
}

func TestScoreDropsOneSidedPairs(t *testing.T) {
	interviews := []models.Allocation{
		{StudentID: 1, CompanyID: 10},
		{StudentID: 1, CompanyID: 11},
		{StudentID: 2, CompanyID: 10},
	}
	studentRanks := map[int64][]int64{1: {11, 10}, 2: {10}}
	companyRanks := map[int64][]int64{10: {2, 1}}

	got := Score(interviews, studentRanks, companyRanks, map[int64]float64{1: 3.1, 2: 3.6})
	assert.Equal(t, []Candidate{
		{StudentID: 1, CompanyID: 10, CombinedScore: 4, QCA: 3.1},
		{StudentID: 2, CompanyID: 10, CombinedScore: 2, QCA: 3.6},
	}, got)
}

func TestMatch(t *testing.T) {
	candidates := []Candidate{
		{StudentID: 1, CompanyID: 10, CombinedScore: 2, QCA: 3.0},
		{StudentID: 2, CompanyID: 10, CombinedScore: 2, QCA: 3.8},
		{StudentID: 3, CompanyID: 10, CombinedScore: 3, QCA: 4.0},
		{StudentID: 3, CompanyID: 11, CombinedScore: 5, QCA: 4.0},
		{StudentID: 1, CompanyID: 11, CombinedScore: 4, QCA: 3.0},
	}

	got := Match(candidates, Limits{PositionsPerCompany: 2})

	var placed [][2]int64
	for _, m := range got {
		placed = append(placed, [2]int64{m.StudentID, m.CompanyID})
	}
	// company 10 fills with 2 then 1 (tie broken by QCA); 3 falls through to 11
	assert.Equal(t, [][2]int64{{2, 10}, {1, 10}, {3, 11}}, placed)
	assert.Equal(t, 5, got[2].CombinedScore)
}

func newStore(t *testing.T) *storage.Store {
	t.Helper()
	s, err := storage.New(storage.DriverSQLite, filepath.Join(t.TempDir(), "residency.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRunnerEndToEnd(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	var companies []int64
	for _, name := range []string{"Acme", "Globex"} {
		c, err := store.CreateCompany(ctx, &models.CompanyCreate{Name: name, Email: name + "@example.com"})
		require.NoError(t, err)
		companies = append(companies, c.ID)
	}
	acme, globex := companies[0], companies[1]

	ada, err := store.CreateStudent(ctx, &models.StudentCreate{FirstName: "Ada", Surname: "Byrne", Email: "ada@example.com", QCA: 3.9})
	require.NoError(t, err)
	cian, err := store.CreateStudent(ctx, &models.StudentCreate{FirstName: "Cian", Surname: "Walsh", Email: "cian@example.com", QCA: 3.2})
	require.NoError(t, err)

	require.NoError(t, store.ReplaceRanking(ctx, models.KindStudentInitial, ada.ID, []int64{acme, globex}))
	require.NoError(t, store.ReplaceRanking(ctx, models.KindStudentInitial, cian.ID, []int64{acme}))

	runner := NewRunner(store, DefaultLimits, metrics.NewMetrics(), nil)

	summary, err := runner.AllocateInterviews(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Created)
	assert.NotEmpty(t, summary.RunID)

	again, err := runner.AllocateInterviews(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, again.Created, "rerun adds nothing")

	require.NoError(t, store.ReplaceRanking(ctx, models.KindStudentInterview, ada.ID, []int64{acme, globex}))
	require.NoError(t, store.ReplaceRanking(ctx, models.KindStudentInterview, cian.ID, []int64{acme}))
	require.NoError(t, store.ReplaceRanking(ctx, models.KindCompanyInterview, acme, []int64{cian.ID, ada.ID}))
	require.NoError(t, store.ReplaceRanking(ctx, models.KindCompanyInterview, globex, []int64{ada.ID}))

	summary, err = runner.Match(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Created)

	matches, err := store.GetFinalMatches(ctx)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	// cian/acme scores 2; ada/acme and ada/globex tie on 3 and company id decides
	assert.Equal(t, cian.ID, matches[0].StudentID)
	assert.Equal(t, 2, matches[0].CombinedScore)
	assert.Equal(t, ada.ID, matches[1].StudentID)
	assert.Equal(t, acme, matches[1].CompanyID)
	assert.Equal(t, summary.RunID, matches[0].RunID)
}

// Package allocation assigns interview slots from students' initial rankings and
// places students with companies once both sides have ranked their interviews.
package allocation

import (
	"cmp"
	"slices"

	"github.com/meur/residency/internal/models"
)

// Limits caps how many interviews and placements each side receives
type Limits struct {
	InterviewsPerStudent int
	InterviewsPerCompany int
	PositionsPerCompany  int
}

// DefaultLimits are three interviews per student and company, and two placements per company
var DefaultLimits = Limits{InterviewsPerStudent: 3, InterviewsPerCompany: 3, PositionsPerCompany: 2}

type pair struct{ student, company int64 }

// AllocateInterviews walks students from the highest QCA down and gives each one
// interviews with the companies they ranked first, skipping full companies.
// existing allocations count toward both caps and are never repeated.
// Equal QCAs are broken by student id. Only new allocations are returned.
func AllocateInterviews(students []models.Student, rankings map[int64][]int64, existing []models.Allocation, limits Limits) []models.Allocation {
	order := slices.Clone(students)
	slices.SortStableFunc(order, func(a, b models.Student) int {
		if c := cmp.Compare(b.QCA, a.QCA); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	taken := make(map[pair]bool, len(existing))
	perCompany := make(map[int64]int)
	perStudent := make(map[int64]int)
	for _, a := range existing {
		taken[pair{a.StudentID, a.CompanyID}] = true
		perCompany[a.CompanyID]++
		perStudent[a.StudentID]++
	}

	allocations := []models.Allocation{}
	for _, st := range order {
		for _, companyID := range rankings[st.ID] {
			if perStudent[st.ID] >= limits.InterviewsPerStudent {
				break
			}
			p := pair{st.ID, companyID}
			if taken[p] || perCompany[companyID] >= limits.InterviewsPerCompany {
				continue
			}
			taken[p] = true
			perCompany[companyID]++
			perStudent[st.ID]++
			allocations = append(allocations, models.Allocation{StudentID: st.ID, CompanyID: companyID})
		}
	}
	return allocations
}

// Candidate is an interviewed pair that both sides ranked
type Candidate struct {
	StudentID     int64
	CompanyID     int64
	CombinedScore int
	QCA           float64
}

// Score pairs every interview with the ranks both sides gave it. Pairs missing a rank
// on either side are dropped. Ranks are 1-based positions in the ranking lists.
func Score(interviews []models.Allocation, studentRanks, companyRanks map[int64][]int64, qca map[int64]float64) []Candidate {
	candidates := []Candidate{}
	for _, a := range interviews {
		sRank := slices.Index(studentRanks[a.StudentID], a.CompanyID)
		cRank := slices.Index(companyRanks[a.CompanyID], a.StudentID)
		if sRank < 0 || cRank < 0 {
			continue
		}
		candidates = append(candidates, Candidate{
			StudentID:     a.StudentID,
			CompanyID:     a.CompanyID,
			CombinedScore: sRank + 1 + cRank + 1,
			QCA:           qca[a.StudentID],
		})
	}
	return candidates
}

// Match places students greedily: lowest combined score first, higher QCA breaking
// ties. Each student is placed at most once and each company takes at most
// limits.PositionsPerCompany students.
func Match(candidates []Candidate, limits Limits) []models.FinalMatch {
	order := slices.Clone(candidates)
	slices.SortStableFunc(order, func(a, b Candidate) int {
		if c := cmp.Compare(a.CombinedScore, b.CombinedScore); c != 0 {
			return c
		}
		if c := cmp.Compare(b.QCA, a.QCA); c != 0 {
			return c
		}
		if c := cmp.Compare(a.StudentID, b.StudentID); c != 0 {
			return c
		}
		return cmp.Compare(a.CompanyID, b.CompanyID)
	})

	placed := make(map[int64]bool)
	perCompany := make(map[int64]int)
	matches := []models.FinalMatch{}
	for _, c := range order {
		if placed[c.StudentID] || perCompany[c.CompanyID] >= limits.PositionsPerCompany {
			continue
		}
		placed[c.StudentID] = true
		perCompany[c.CompanyID]++
		matches = append(matches, models.FinalMatch{
			StudentID:     c.StudentID,
			CompanyID:     c.CompanyID,
			CombinedScore: c.CombinedScore,
			QCA:           c.QCA,
		})
	}
	return matches
}

package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGroupByTerm(t *testing.T) {
	positions := []Position{
		{ID: 1, ResidencyTerm: "R2"},
		{ID: 2, ResidencyTerm: "R1"},
		{ID: 3, ResidencyTerm: "R1+R2"},
		{ID: 4, ResidencyTerm: "R1"},
		{ID: 5, ResidencyTerm: "R9"},
	}

	groups := GroupByTerm(positions)
	assert.Len(t, groups, 3)
	assert.Equal(t, "R1", groups[0].Term)
	assert.Len(t, groups[0].Positions, 2)
	assert.Equal(t, "R1+R2", groups[1].Term)
	assert.Equal(t, "R2", groups[2].Term)
	assert.Empty(t, GroupByTerm(nil))
}

func TestParseKind(t *testing.T) {
	k, ok := ParseKind("company-interview")
	assert.True(t, ok)
	assert.Equal(t, KindCompanyInterview, k)
	assert.True(t, k.Persisted())

	_, ok = ParseKind("StudentRank1")
	assert.False(t, ok)
	assert.False(t, KindDemo.Persisted())
}

func TestStudentDisplayName(t *testing.T) {
	s := Student{FirstName: "Aoife", Surname: "Byrne"}
	assert.Equal(t, "Aoife Byrne", s.DisplayName())
	assert.Equal(t, Candidate{ID: 4, DisplayLabel: "x", Group: "R1"}.Category(), "R1")
}

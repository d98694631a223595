package models

// Candidate is an item that can be ranked: a company for students, a student for companies
type Candidate struct {
	ID           int64  `json:"id"`
	DisplayLabel string `json:"label"`
	Group        string `json:"category,omitempty"` // residency term, used by the pool filter
}

func (c Candidate) Key() int64       { return c.ID }
func (c Candidate) Label() string    { return c.DisplayLabel }
func (c Candidate) Category() string { return c.Group }

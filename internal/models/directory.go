package models

import (
	"fmt"
	"time"
)

// Company is a placement partner
type Company struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
}

// Student is a candidate for residency
type Student struct {
	ID          int64     `json:"id"`
	FirstName   string    `json:"first_name"`
	Surname     string    `json:"surname"`
	Email       string    `json:"email"`
	QCA         float64   `json:"qca"`
	YearOfStudy int       `json:"year_of_study"`
	GitHub      string    `json:"github,omitempty"`
	LinkedIn    string    `json:"linkedin,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// DisplayName is how a student appears on a company's ranking board
func (s Student) DisplayName() string {
	return fmt.Sprintf("%s %s", s.FirstName, s.Surname)
}

// Position is a job posting for one residency term
type Position struct {
	ID            int64     `json:"id"`
	CompanyID     int64     `json:"company_id"`
	CompanyName   string    `json:"company_name,omitempty"`
	Title         string    `json:"title"`
	Salary        string    `json:"salary"`
	Location      string    `json:"location"`
	DaysInPerson  int       `json:"days_in_person"`
	Description   string    `json:"description"`
	ResidencyTerm string    `json:"residency_term"`
	CreatedAt     time.Time `json:"created_at"`
}

// ResidencyTerms lists the terms in jobs board order
var ResidencyTerms = []string{"R1", "R1+R2", "R2", "R3", "R4", "R5"}

// ValidTerm reports whether term is a known residency term
func ValidTerm(term string) bool {
	for _, t := range ResidencyTerms {
		if t == term {
			return true
		}
	}
	return false
}

// TermGroup is one section of the jobs board
type TermGroup struct {
	Term      string     `json:"term"`
	Positions []Position `json:"positions"`
}

// GroupByTerm groups positions by residency term in jobs board order, skipping empty terms
func GroupByTerm(positions []Position) []TermGroup {
	groups := []TermGroup{}
	for _, term := range ResidencyTerms {
		var matched []Position
		for _, p := range positions {
			if p.ResidencyTerm == term {
				matched = append(matched, p)
			}
		}
		if len(matched) > 0 {
			groups = append(groups, TermGroup{Term: term, Positions: matched})
		}
	}
	return groups
}

// CompanyCreate is the request body for registering a company
type CompanyCreate struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Address string `json:"address"`
}

// StudentCreate is the request body for registering a student
type StudentCreate struct {
	FirstName   string  `json:"first_name"`
	Surname     string  `json:"surname"`
	Email       string  `json:"email"`
	QCA         float64 `json:"qca"`
	YearOfStudy int     `json:"year_of_study"`
	GitHub      string  `json:"github"`
	LinkedIn    string  `json:"linkedin"`
}

// PositionCreate is the request body for posting a job
type PositionCreate struct {
	Title         string `json:"title"`
	Salary        string `json:"salary"`
	Location      string `json:"location"`
	DaysInPerson  int    `json:"days_in_person"`
	Description   string `json:"description"`
	ResidencyTerm string `json:"residency_term"`
}

// Seed is the layout of a seed file
type Seed struct {
	Companies []SeedCompany   `json:"companies"`
	Students  []StudentCreate `json:"students"`
}

// SeedCompany is a company with its postings
type SeedCompany struct {
	CompanyCreate
	Positions []PositionCreate `json:"positions"`
}

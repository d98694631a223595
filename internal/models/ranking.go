package models

import (
	"time"
)

// RankingKind identifies which ranking a board edits
type RankingKind string

const (
	// KindStudentInitial: a student ranks every company before interviews
	KindStudentInitial RankingKind = "student-initial"
	// KindStudentInterview: a student ranks the companies that interviewed them
	KindStudentInterview RankingKind = "student-interview"
	// KindCompanyInterview: a company ranks the students it interviewed
	KindCompanyInterview RankingKind = "company-interview"
	// KindDemo is an in-memory practice board that is never persisted
	KindDemo RankingKind = "demo"
)

// Kinds lists every ranking kind
var Kinds = []RankingKind{KindStudentInitial, KindStudentInterview, KindCompanyInterview, KindDemo}

// ParseKind validates a kind from a URL segment
func ParseKind(s string) (RankingKind, bool) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// Persisted reports whether rankings of this kind are written to the database
func (k RankingKind) Persisted() bool {
	return k != KindDemo
}

// Allocation is an interview slot between a student and a company
type Allocation struct {
	StudentID int64     `json:"student_id"`
	CompanyID int64     `json:"company_id"`
	CreatedAt time.Time `json:"created_at"`
}

// FinalMatch is a student placed with a company by the final matching pass
type FinalMatch struct {
	StudentID     int64     `json:"student_id"`
	CompanyID     int64     `json:"company_id"`
	CombinedScore int       `json:"combined_score"`
	QCA           float64   `json:"qca"`
	RunID         string    `json:"run_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// MatchedStudent is a final match as shown on the company dashboard
type MatchedStudent struct {
	StudentID int64   `json:"student_id"`
	Name      string  `json:"name"`
	Email     string  `json:"email"`
	QCA       float64 `json:"qca"`
}

// FilterRequest is the request body for changing a board's pool filter
type FilterRequest struct {
	Category string `json:"category"`
}

// RunSummary reports the result of an allocation or matching pass
type RunSummary struct {
	RunID   string `json:"run_id"`
	Created int    `json:"created"`
}

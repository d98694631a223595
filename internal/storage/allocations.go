package storage

import (
	"context"
	"time"

	"github.com/meur/residency/internal/models"
)

// --- Interview allocations ---

// CreateAllocations records interview slots. Pairs that already exist are skipped.
// Returns the number of new rows.
func (s *Store) CreateAllocations(ctx context.Context, allocations []models.Allocation) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, s.rebind(`
		INSERT INTO interview_allocations (student_id, company_id, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT (student_id, company_id) DO NOTHING
	`))
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	now := time.Now().UTC()
	created := 0
	for _, a := range allocations {
		res, err := stmt.ExecContext(ctx, a.StudentID, a.CompanyID, now)
		if err != nil {
			return 0, err
		}
		if n, err := res.RowsAffected(); err == nil {
			created += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return created, nil
}

// GetAllocations returns every interview slot
func (s *Store) GetAllocations(ctx context.Context) ([]models.Allocation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT student_id, company_id, created_at
		FROM interview_allocations ORDER BY student_id, company_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	allocations := []models.Allocation{}
	for rows.Next() {
		var a models.Allocation
		if err := rows.Scan(&a.StudentID, &a.CompanyID, &a.CreatedAt); err != nil {
			return nil, err
		}
		allocations = append(allocations, a)
	}
	return allocations, rows.Err()
}

// --- Final matches ---

// ReplaceFinalMatches clears the previous matching run and stores matches
func (s *Store) ReplaceFinalMatches(ctx context.Context, matches []models.FinalMatch) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM final_matches`); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, s.rebind(`
		INSERT INTO final_matches (student_id, company_id, combined_score, qca, run_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`))
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, m := range matches {
		if _, err := stmt.ExecContext(ctx, m.StudentID, m.CompanyID, m.CombinedScore, m.QCA, m.RunID, now); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetFinalMatches returns the latest matching run, best score first
func (s *Store) GetFinalMatches(ctx context.Context) ([]models.FinalMatch, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT student_id, company_id, combined_score, qca, run_id, created_at
		FROM final_matches ORDER BY combined_score, qca DESC, student_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matches := []models.FinalMatch{}
	for rows.Next() {
		var m models.FinalMatch
		if err := rows.Scan(&m.StudentID, &m.CompanyID, &m.CombinedScore, &m.QCA, &m.RunID, &m.CreatedAt); err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// GetMatchedStudents returns the students placed with a company
func (s *Store) GetMatchedStudents(ctx context.Context, companyID int64) ([]models.MatchedStudent, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT s.id, s.first_name, s.surname, s.email, fm.qca
		FROM final_matches fm JOIN students s ON s.id = fm.student_id
		WHERE fm.company_id = ?
		ORDER BY fm.combined_score, fm.qca DESC
	`), companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	students := []models.MatchedStudent{}
	for rows.Next() {
		var m models.MatchedStudent
		var first, surname string
		if err := rows.Scan(&m.StudentID, &first, &surname, &m.Email, &m.QCA); err != nil {
			return nil, err
		}
		m.Name = first + " " + surname
		students = append(students, m)
	}
	return students, rows.Err()
}

// GetInterviewees returns the students allocated to interview with a company
func (s *Store) GetInterviewees(ctx context.Context, companyID int64) ([]models.Student, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT s.id, s.first_name, s.surname, s.email, s.qca, s.year_of_study, s.github, s.linkedin, s.created_at
		FROM interview_allocations ia JOIN students s ON s.id = ia.student_id
		WHERE ia.company_id = ?
		ORDER BY s.qca DESC, s.id
	`), companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	students := []models.Student{}
	for rows.Next() {
		var st models.Student
		if err := scanStudent(rows, &st); err != nil {
			return nil, err
		}
		students = append(students, st)
	}
	return students, rows.Err()
}

// GetInterviewCompanies returns the companies a student is allocated to interview with
func (s *Store) GetInterviewCompanies(ctx context.Context, studentID int64) ([]models.Company, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT c.id, c.name, c.email, c.address, c.created_at
		FROM interview_allocations ia JOIN companies c ON c.id = ia.company_id
		WHERE ia.student_id = ?
		ORDER BY c.name, c.id
	`), studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	companies := []models.Company{}
	for rows.Next() {
		var c models.Company
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Address, &c.CreatedAt); err != nil {
			return nil, err
		}
		companies = append(companies, c)
	}
	return companies, rows.Err()
}

package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/meur/residency/internal/models"
)

// --- Companies ---

// CreateCompany registers a company
func (s *Store) CreateCompany(ctx context.Context, c *models.CompanyCreate) (*models.Company, error) {
	now := time.Now().UTC()
	var id int64
	err := s.db.QueryRowContext(ctx, s.rebind(`
		INSERT INTO companies (name, email, address, created_at)
		VALUES (?, ?, ?, ?) RETURNING id
	`), c.Name, c.Email, c.Address, now).Scan(&id)
	if err != nil {
		return nil, err
	}

	return &models.Company{ID: id, Name: c.Name, Email: c.Email, Address: c.Address, CreatedAt: now}, nil
}

// GetCompanies returns all companies ordered by name
func (s *Store) GetCompanies(ctx context.Context) ([]models.Company, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, email, address, created_at
		FROM companies ORDER BY name, id
	`)
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

// GetCompany returns a company by ID, or nil if it does not exist
func (s *Store) GetCompany(ctx context.Context, id int64) (*models.Company, error) {
	var c models.Company
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT id, name, email, address, created_at
		FROM companies WHERE id = ?
	`), id).Scan(&c.ID, &c.Name, &c.Email, &c.Address, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// --- Students ---

// CreateStudent registers a student
func (s *Store) CreateStudent(ctx context.Context, st *models.StudentCreate) (*models.Student, error) {
	now := time.Now().UTC()
	var id int64
	err := s.db.QueryRowContext(ctx, s.rebind(`
		INSERT INTO students (first_name, surname, email, qca, year_of_study, github, linkedin, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING id
	`), st.FirstName, st.Surname, st.Email, st.QCA, st.YearOfStudy, st.GitHub, st.LinkedIn, now).Scan(&id)
	if err != nil {
		return nil, err
	}

	return &models.Student{
		ID:          id,
		FirstName:   st.FirstName,
		Surname:     st.Surname,
		Email:       st.Email,
		QCA:         st.QCA,
		YearOfStudy: st.YearOfStudy,
		GitHub:      st.GitHub,
		LinkedIn:    st.LinkedIn,
		CreatedAt:   now,
	}, nil
}

const studentColumns = `id, first_name, surname, email, qca, year_of_study, github, linkedin, created_at`

func scanStudent(row interface{ Scan(...any) error }, st *models.Student) error {
	return row.Scan(&st.ID, &st.FirstName, &st.Surname, &st.Email, &st.QCA,
		&st.YearOfStudy, &st.GitHub, &st.LinkedIn, &st.CreatedAt)
}

// GetStudent returns a student by ID, or nil if it does not exist
func (s *Store) GetStudent(ctx context.Context, id int64) (*models.Student, error) {
	var st models.Student
	err := scanStudent(s.db.QueryRowContext(ctx, s.rebind(`
		SELECT `+studentColumns+` FROM students WHERE id = ?
	`), id), &st)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// GetStudents returns all students, highest QCA first
func (s *Store) GetStudents(ctx context.Context) ([]models.Student, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+studentColumns+` FROM students ORDER BY qca DESC, id
	`)
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

// --- Positions ---

// CreatePosition posts a job for a company
func (s *Store) CreatePosition(ctx context.Context, companyID int64, p *models.PositionCreate) (*models.Position, error) {
	now := time.Now().UTC()
	var id int64
	err := s.db.QueryRowContext(ctx, s.rebind(`
		INSERT INTO positions (company_id, title, salary, location, days_in_person, description, residency_term, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING id
	`), companyID, p.Title, p.Salary, p.Location, p.DaysInPerson, p.Description, p.ResidencyTerm, now).Scan(&id)
	if err != nil {
		return nil, err
	}

	return &models.Position{
		ID:            id,
		CompanyID:     companyID,
		Title:         p.Title,
		Salary:        p.Salary,
		Location:      p.Location,
		DaysInPerson:  p.DaysInPerson,
		Description:   p.Description,
		ResidencyTerm: p.ResidencyTerm,
		CreatedAt:     now,
	}, nil
}

// GetPositions returns job postings with their company name, optionally for one term
func (s *Store) GetPositions(ctx context.Context, term string) ([]models.Position, error) {
	var rows *sql.Rows
	var err error

	const base = `
		SELECT p.id, p.company_id, c.name, p.title, p.salary, p.location,
		       p.days_in_person, p.description, p.residency_term, p.created_at
		FROM positions p JOIN companies c ON c.id = p.company_id`
	if term != "" {
		rows, err = s.db.QueryContext(ctx, s.rebind(base+` WHERE p.residency_term = ? ORDER BY p.id`), term)
	} else {
		rows, err = s.db.QueryContext(ctx, base+` ORDER BY p.id`)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	positions := []models.Position{}
	for rows.Next() {
		var p models.Position
		err := rows.Scan(&p.ID, &p.CompanyID, &p.CompanyName, &p.Title, &p.Salary, &p.Location,
			&p.DaysInPerson, &p.Description, &p.ResidencyTerm, &p.CreatedAt)
		if err != nil {
			return nil, err
		}
		positions = append(positions, p)
	}
	return positions, rows.Err()
}

// BulkCreate seeds companies, their positions and students in one transaction
func (s *Store) BulkCreate(ctx context.Context, seed *models.Seed) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, c := range seed.Companies {
		var id int64
		err := tx.QueryRowContext(ctx, s.rebind(`
			INSERT INTO companies (name, email, address, created_at)
			VALUES (?, ?, ?, ?) RETURNING id
		`), c.Name, c.Email, c.Address, now).Scan(&id)
		if err != nil {
			return err
		}
		for _, p := range c.Positions {
			_, err := tx.ExecContext(ctx, s.rebind(`
				INSERT INTO positions (company_id, title, salary, location, days_in_person, description, residency_term, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			`), id, p.Title, p.Salary, p.Location, p.DaysInPerson, p.Description, p.ResidencyTerm, now)
			if err != nil {
				return err
			}
		}
	}

	stmt, err := tx.PrepareContext(ctx, s.rebind(`
		INSERT INTO students (first_name, surname, email, qca, year_of_study, github, linkedin, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, st := range seed.Students {
		_, err := stmt.ExecContext(ctx, st.FirstName, st.Surname, st.Email, st.QCA,
			st.YearOfStudy, st.GitHub, st.LinkedIn, now)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

package api

import (
	"net/http"
	"net/mail"
	"strings"

	"github.com/meur/residency/internal/models"
	"github.com/meur/residency/internal/storage"
)

// --- Companies ---

// handleGetCompanies returns all companies
func (s *Server) handleGetCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := s.store.GetCompanies(r.Context())
	if err != nil {
		s.internalError(w, r, "Failed to fetch companies", err)
		return
	}
	respondJSON(w, http.StatusOK, companies)
}

// handleGetCompany returns a single company by ID
func (s *Server) handleGetCompany(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid company id")
		return
	}

	company, err := s.store.GetCompany(r.Context(), id)
	if err != nil {
		s.internalError(w, r, "Failed to fetch company", err)
		return
	}
	if company == nil {
		respondError(w, http.StatusNotFound, "Company not found")
		return
	}

	respondJSON(w, http.StatusOK, company)
}

// handleCreateCompany registers a company
func (s *Server) handleCreateCompany(w http.ResponseWriter, r *http.Request) {
	var req models.CompanyCreate
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || !validEmail(req.Email) {
		respondError(w, http.StatusBadRequest, "name and a valid email are required")
		return
	}

	company, err := s.store.CreateCompany(r.Context(), &req)
	if storage.IsUniqueViolation(err) {
		respondError(w, http.StatusConflict, "A company with this email already exists")
		return
	}
	if err != nil {
		s.internalError(w, r, "Failed to create company", err)
		return
	}

	// students' initial boards list every company
	s.rankings.ForgetKind(models.KindStudentInitial)

	respondJSON(w, http.StatusCreated, company)
}

// handleCreatePosition posts a job for a company
func (s *Server) handleCreatePosition(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid company id")
		return
	}

	var req models.PositionCreate
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Title) == "" || !models.ValidTerm(req.ResidencyTerm) {
		respondError(w, http.StatusBadRequest, "title and a valid residency_term are required")
		return
	}
	if req.DaysInPerson < 0 || req.DaysInPerson > 5 {
		respondError(w, http.StatusBadRequest, "days_in_person must be between 0 and 5")
		return
	}

	company, err := s.store.GetCompany(r.Context(), id)
	if err != nil {
		s.internalError(w, r, "Failed to fetch company", err)
		return
	}
	if company == nil {
		respondError(w, http.StatusNotFound, "Company not found")
		return
	}

	position, err := s.store.CreatePosition(r.Context(), id, &req)
	if err != nil {
		s.internalError(w, r, "Failed to create position", err)
		return
	}
	position.CompanyName = company.Name

	// a company's first position sets its category on the initial boards
	s.rankings.ForgetKind(models.KindStudentInitial)

	respondJSON(w, http.StatusCreated, position)
}

// handleGetInterviewees returns the students a company interviews
func (s *Server) handleGetInterviewees(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid company id")
		return
	}

	students, err := s.store.GetInterviewees(r.Context(), id)
	if err != nil {
		s.internalError(w, r, "Failed to fetch interviewees", err)
		return
	}
	respondJSON(w, http.StatusOK, students)
}

// handleGetCompanyMatches returns the students placed with a company
func (s *Server) handleGetCompanyMatches(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid company id")
		return
	}

	students, err := s.store.GetMatchedStudents(r.Context(), id)
	if err != nil {
		s.internalError(w, r, "Failed to fetch matches", err)
		return
	}
	respondJSON(w, http.StatusOK, students)
}

// --- Students ---

func (s *Server) handleGetStudents(w http.ResponseWriter, r *http.Request) {
	students, err := s.store.GetStudents(r.Context())
	if err != nil {
		s.internalError(w, r, "Failed to fetch students", err)
		return
	}
	respondJSON(w, http.StatusOK, students)
}

func (s *Server) handleGetStudent(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid student id")
		return
	}

	student, err := s.store.GetStudent(r.Context(), id)
	if err != nil {
		s.internalError(w, r, "Failed to fetch student", err)
		return
	}
	if student == nil {
		respondError(w, http.StatusNotFound, "Student not found")
		return
	}
	respondJSON(w, http.StatusOK, student)
}

func (s *Server) handleCreateStudent(w http.ResponseWriter, r *http.Request) {
	var req models.StudentCreate
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.FirstName = strings.TrimSpace(req.FirstName)
	req.Surname = strings.TrimSpace(req.Surname)
	if req.FirstName == "" || req.Surname == "" || !validEmail(req.Email) {
		respondError(w, http.StatusBadRequest, "first_name, surname and a valid email are required")
		return
	}
	if req.QCA < 0 {
		respondError(w, http.StatusBadRequest, "qca must not be negative")
		return
	}

	student, err := s.store.CreateStudent(r.Context(), &req)
	if storage.IsUniqueViolation(err) {
		respondError(w, http.StatusConflict, "A student with this email already exists")
		return
	}
	if err != nil {
		s.internalError(w, r, "Failed to create student", err)
		return
	}
	respondJSON(w, http.StatusCreated, student)
}

// handleGetStudentInterviews returns the companies a student interviews with
func (s *Server) handleGetStudentInterviews(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid student id")
		return
	}

	companies, err := s.store.GetInterviewCompanies(r.Context(), id)
	if err != nil {
		s.internalError(w, r, "Failed to fetch interviews", err)
		return
	}
	respondJSON(w, http.StatusOK, companies)
}

// --- Positions ---

// handleGetPositions returns job postings, optionally for one term (?term=R2)
func (s *Server) handleGetPositions(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("term")
	if term != "" && !models.ValidTerm(term) {
		respondError(w, http.StatusBadRequest, "Unknown residency term")
		return
	}

	positions, err := s.store.GetPositions(r.Context(), term)
	if err != nil {
		s.internalError(w, r, "Failed to fetch positions", err)
		return
	}
	respondJSON(w, http.StatusOK, positions)
}

// handleGetJobsBoard returns postings grouped by residency term
func (s *Server) handleGetJobsBoard(w http.ResponseWriter, r *http.Request) {
	positions, err := s.store.GetPositions(r.Context(), "")
	if err != nil {
		s.internalError(w, r, "Failed to fetch positions", err)
		return
	}
	respondJSON(w, http.StatusOK, models.GroupByTerm(positions))
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

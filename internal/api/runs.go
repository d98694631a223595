package api

import (
	"net/http"

	"github.com/meur/residency/internal/models"
)

func (s *Server) handleGetAllocations(w http.ResponseWriter, r *http.Request) {
	allocations, err := s.store.GetAllocations(r.Context())
	if err != nil {
		s.internalError(w, r, "Failed to fetch allocations", err)
		return
	}
	respondJSON(w, http.StatusOK, allocations)
}

// handleAllocate assigns interviews from the submitted initial rankings
func (s *Server) handleAllocate(w http.ResponseWriter, r *http.Request) {
	summary, err := s.runner.AllocateInterviews(r.Context())
	if err != nil {
		s.internalError(w, r, "Failed to allocate interviews", err)
		return
	}

	// interview boards cached before the run have stale candidates
	s.rankings.ForgetKind(models.KindStudentInterview)
	s.rankings.ForgetKind(models.KindCompanyInterview)

	respondJSON(w, http.StatusOK, summary)
}

func (s *Server) handleGetMatches(w http.ResponseWriter, r *http.Request) {
	matches, err := s.store.GetFinalMatches(r.Context())
	if err != nil {
		s.internalError(w, r, "Failed to fetch matches", err)
		return
	}
	respondJSON(w, http.StatusOK, matches)
}

// handleMatch runs final matching from the interview rankings
func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	summary, err := s.runner.Match(r.Context())
	if err != nil {
		s.internalError(w, r, "Failed to run matching", err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

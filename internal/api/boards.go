package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/meur/residency/internal/board"
	"github.com/meur/residency/internal/models"
	"github.com/meur/residency/internal/rankings"
)

// boardResponse is the body of every board mutation
type boardResponse struct {
	Board   rankings.Snapshot `json:"board"`
	Outcome *board.Outcome    `json:"outcome,omitempty"`
	Rows    []board.RankRow   `json:"rows,omitempty"`
	Error   string            `json:"error,omitempty"`
}

// rearrangeRequest sets the full ranked order, best first
type rearrangeRequest struct {
	Ranked []int64 `json:"ranked"`
}

func boardParams(w http.ResponseWriter, r *http.Request) (models.RankingKind, int64, bool) {
	kind, ok := models.ParseKind(chi.URLParam(r, "kind"))
	if !ok {
		respondError(w, http.StatusNotFound, "Unknown ranking kind")
		return "", 0, false
	}
	ownerID, ok := idParam(r, "ownerID")
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid owner id")
		return "", 0, false
	}
	return kind, ownerID, true
}

// boardErrorStatus maps ranking errors to HTTP statuses
func boardErrorStatus(err error) int {
	var perr *board.PersistenceError
	switch {
	case board.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, board.ErrRankingLocked),
		errors.Is(err, board.ErrSubmitInProgress),
		errors.Is(err, board.ErrNotReady):
		return http.StatusConflict
	case errors.Is(err, rankings.ErrUnknownOwner):
		return http.StatusNotFound
	case errors.Is(err, rankings.ErrKindUnavailable):
		return http.StatusServiceUnavailable
	case errors.As(err, &perr):
		if perr.Timeout() {
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondBoardError answers a failed board call. Once the board has loaded its
// snapshot goes along so the client can render the error state.
func (s *Server) respondBoardError(w http.ResponseWriter, err error, snap *rankings.Snapshot) {
	status := boardErrorStatus(err)
	if status >= http.StatusInternalServerError {
		s.log.Sugar().Warnw("board request failed", "status", status, "error", err)
	}
	if snap == nil || snap.Status == "" {
		respondError(w, status, err.Error())
		return
	}
	respondJSON(w, status, boardResponse{Board: *snap, Error: err.Error()})
}

// handleGetBoard opens a board. Owners with nothing to rank get an empty board, not an error.
func (s *Server) handleGetBoard(w http.ResponseWriter, r *http.Request) {
	kind, ownerID, ok := boardParams(w, r)
	if !ok {
		return
	}

	snap, err := s.rankings.Snapshot(r.Context(), kind, ownerID)
	if err != nil {
		s.respondBoardError(w, err, nil)
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

// handleBoardEvent applies one drag-and-drop event
func (s *Server) handleBoardEvent(w http.ResponseWriter, r *http.Request) {
	kind, ownerID, ok := boardParams(w, r)
	if !ok {
		return
	}

	var ev board.Event
	if err := decodeJSON(r, &ev); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	out, snap, err := s.rankings.Apply(r.Context(), kind, ownerID, ev)
	if err != nil {
		s.respondBoardError(w, err, nil)
		return
	}
	respondJSON(w, http.StatusOK, boardResponse{Board: snap, Outcome: &out})
}

// handleRearrange replaces the ranked order, e.g. after keyboard reordering
func (s *Server) handleRearrange(w http.ResponseWriter, r *http.Request) {
	kind, ownerID, ok := boardParams(w, r)
	if !ok {
		return
	}

	var req rearrangeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	snap, err := s.rankings.Rearrange(r.Context(), kind, ownerID, req.Ranked)
	if err != nil {
		s.respondBoardError(w, err, nil)
		return
	}
	respondJSON(w, http.StatusOK, boardResponse{Board: snap})
}

// handleSetFilter changes the visible pool category. An empty category shows everything.
func (s *Server) handleSetFilter(w http.ResponseWriter, r *http.Request) {
	kind, ownerID, ok := boardParams(w, r)
	if !ok {
		return
	}

	var req models.FilterRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	snap, err := s.rankings.SetFilter(r.Context(), kind, ownerID, req.Category)
	if err != nil {
		s.respondBoardError(w, err, nil)
		return
	}
	respondJSON(w, http.StatusOK, boardResponse{Board: snap})
}

// handleSubmit saves the ranked list
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	kind, ownerID, ok := boardParams(w, r)
	if !ok {
		return
	}

	rows, snap, err := s.rankings.Submit(r.Context(), kind, ownerID)
	if err != nil {
		s.respondBoardError(w, err, &snap)
		return
	}
	respondJSON(w, http.StatusOK, boardResponse{Board: snap, Rows: rows})
}

// handleDiscardDraft drops unsaved changes and reloads the last submitted ranking
func (s *Server) handleDiscardDraft(w http.ResponseWriter, r *http.Request) {
	kind, ownerID, ok := boardParams(w, r)
	if !ok {
		return
	}

	snap, err := s.rankings.Discard(r.Context(), kind, ownerID)
	if err != nil {
		s.respondBoardError(w, err, nil)
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

// handleGetRanking returns the saved ranking rows
func (s *Server) handleGetRanking(w http.ResponseWriter, r *http.Request) {
	kind, ownerID, ok := boardParams(w, r)
	if !ok {
		return
	}
	if !kind.Persisted() {
		respondError(w, http.StatusBadRequest, "Demo rankings are not stored")
		return
	}

	rows, err := s.store.GetRanking(r.Context(), kind, ownerID)
	if err != nil {
		s.internalError(w, r, "Failed to fetch ranking", err)
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

package api

import (
	"context"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/meur/residency/internal/board"
	"github.com/meur/residency/internal/models"
	"github.com/meur/residency/internal/rankings"
)

// Client message types beyond the drag events
const (
	msgRearrange = "rearrange"
	msgFilter    = "filter"
	msgSubmit    = "submit"
)

// Server message types
const (
	msgBoard   = "board"
	msgOutcome = "outcome"
	msgError   = "error"
)

const socketWriteTimeout = 5 * time.Second

// socketRequest is one message from the browser. Drag events use the board.Event
// fields; rearrange, filter and submit use the extra ones.
type socketRequest struct {
	board.Event
	Ranked   []int64 `json:"ranked,omitempty"`
	Category string  `json:"category,omitempty"`
}

type socketResponse struct {
	Type    string             `json:"type"`
	Board   *rankings.Snapshot `json:"board,omitempty"`
	Outcome *board.Outcome     `json:"outcome,omitempty"`
	Rows    []board.RankRow    `json:"rows,omitempty"`
	Error   string             `json:"error,omitempty"`
}

func (s *Server) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
}

// checkOrigin accepts same-host requests, requests without an Origin header and the configured CORS origins
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err == nil && strings.EqualFold(u.Host, r.Host) {
		return true
	}
	return slices.Contains(s.opts.CORSOrigins, "*") || slices.Contains(s.opts.CORSOrigins, origin)
}

// handleBoardSocket streams drag events for one board. Each message is applied in
// order and answered before the next one is read.
// GET /api/boards/{kind}/{ownerID}/ws
func (s *Server) handleBoardSocket(w http.ResponseWriter, r *http.Request) {
	kind, ownerID, ok := boardParams(w, r)
	if !ok {
		return
	}

	// load before upgrading so failures are plain HTTP errors
	snap, err := s.rankings.Snapshot(r.Context(), kind, ownerID)
	if err != nil {
		s.respondBoardError(w, err, nil)
		return
	}

	conn, err := s.upgrader().Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("failed to upgrade websocket connection", zap.Error(err))
		return
	}

	connID := uuid.NewString()
	log := s.log.With(
		zap.String("conn_id", connID),
		zap.String("kind", string(kind)),
		zap.Int64("owner_id", ownerID),
	)
	log.Info("board socket opened")
	defer func() {
		conn.Close()
		log.Info("board socket closed")
	}()

	if err := writeSocket(conn, socketResponse{Type: msgBoard, Board: &snap}); err != nil {
		return
	}

	limiter := rate.NewLimiter(rate.Limit(s.opts.EventRate), int(s.opts.EventRate)+1)
	ctx := r.Context()

	for {
		var req socketRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("board socket closed unexpectedly", zap.Error(err))
			}
			return
		}

		if !limiter.Allow() {
			if err := writeSocket(conn, socketResponse{Type: msgError, Error: "too many events"}); err != nil {
				return
			}
			continue
		}

		if err := writeSocket(conn, s.handleSocketMessage(ctx, kind, ownerID, req)); err != nil {
			log.Debug("board socket write failed", zap.Error(err))
			return
		}
	}
}

func (s *Server) handleSocketMessage(ctx context.Context, kind models.RankingKind, ownerID int64, req socketRequest) socketResponse {
	switch string(req.Type) {
	case string(board.EventDragStart), string(board.EventDragOver), string(board.EventDrop):
		out, snap, err := s.rankings.Apply(ctx, kind, ownerID, req.Event)
		if err != nil {
			return socketResponse{Type: msgError, Error: err.Error()}
		}
		if req.Type == board.EventDragOver {
			return socketResponse{Type: msgOutcome, Outcome: &out}
		}
		return socketResponse{Type: msgOutcome, Outcome: &out, Board: &snap}

	case msgRearrange:
		snap, err := s.rankings.Rearrange(ctx, kind, ownerID, req.Ranked)
		if err != nil {
			return socketResponse{Type: msgError, Error: err.Error()}
		}
		return socketResponse{Type: msgBoard, Board: &snap}

	case msgFilter:
		snap, err := s.rankings.SetFilter(ctx, kind, ownerID, req.Category)
		if err != nil {
			return socketResponse{Type: msgError, Error: err.Error()}
		}
		return socketResponse{Type: msgBoard, Board: &snap}

	case msgSubmit:
		rows, snap, err := s.rankings.Submit(ctx, kind, ownerID)
		if err != nil {
			resp := socketResponse{Type: msgError, Error: err.Error()}
			if snap.Status != "" {
				resp.Board = &snap
			}
			return resp
		}
		return socketResponse{Type: msgBoard, Board: &snap, Rows: rows}
	}

	return socketResponse{Type: msgError, Error: "unknown message type"}
}

func writeSocket(conn *websocket.Conn, msg socketResponse) error {
	conn.SetWriteDeadline(time.Now().Add(socketWriteTimeout))
	return conn.WriteJSON(msg)
}

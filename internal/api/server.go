// Package api exposes the admin and participant operations over HTTP and
// hosts the websocket live sync endpoint.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/arukh89/bitcoin-block/internal/game"
	"github.com/arukh89/bitcoin-block/internal/oracle"

	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
)

// RecentBlockSource serves the informational recent-blocks view.
type RecentBlockSource interface {
	RecentBlocks(ctx context.Context) ([]oracle.BlockSummary, error)
}

type Server struct {
	svc        *game.Service
	blocks     RecentBlockSource
	ws         http.Handler
	adminToken string
	origins    []string
	log        *logrus.Logger
}

func NewServer(svc *game.Service, blocks RecentBlockSource, ws http.Handler, adminToken string, origins []string, log *logrus.Logger) *Server {
	return &Server{
		svc:        svc,
		blocks:     blocks,
		ws:         ws,
		adminToken: adminToken,
		origins:    origins,
		log:        log,
	}
}

// Handler builds the routing table. Admin commands are the only inputs that
// drive lifecycle transitions and sit behind the capability token check; the
// state machine itself carries no authorization logic.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/admin/rounds", s.requireAdmin(s.handleCreateRound))
	mux.HandleFunc("POST /api/admin/rounds/{id}/close", s.requireAdmin(s.handleCloseRound))
	mux.HandleFunc("POST /api/admin/rounds/{id}/resolve", s.requireAdmin(s.handleResolveRound))
	mux.HandleFunc("PUT /api/admin/prize-config", s.requireAdmin(s.handleSavePrizeConfig))

	mux.HandleFunc("POST /api/guesses", s.handleSubmitGuess)
	mux.HandleFunc("POST /api/chat", s.handlePostChat)
	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("GET /api/rounds", s.handleRounds)
	mux.HandleFunc("GET /api/rounds/{id}/guesses", s.handleGuessesForRound)
	mux.HandleFunc("GET /api/rounds/{id}/guesses/{address}", s.handleHasGuessed)
	mux.HandleFunc("GET /api/blocks/recent", s.handleRecentBlocks)
	if s.ws != nil {
		mux.Handle("GET /ws", s.ws)
	}

	c := cors.New(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut},
		AllowedHeaders: []string{"Content-Type", "X-Admin-Token"},
	})
	return c.Handler(mux)
}

func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.adminToken == "" || r.Header.Get("X-Admin-Token") != s.adminToken {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "admin token required", Kind: "unauthorized"})
			return
		}
		next(w, r)
	}
}

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	kind := game.KindOf(err)
	if kind == game.KindUnknown {
		s.log.WithError(err).Error("internal error")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error", Kind: "internal"})
		return
	}
	writeJSON(w, statusForKind(kind), errorBody{Error: err.Error(), Kind: kind.String()})
}

func statusForKind(kind game.Kind) int {
	switch kind {
	case game.KindInvalidInput, game.KindInvalidGuess:
		return http.StatusBadRequest
	case game.KindInvalidState, game.KindRoundLocked, game.KindDuplicateGuess:
		return http.StatusConflict
	case game.KindNoParticipants:
		return http.StatusUnprocessableEntity
	case game.KindOracleUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

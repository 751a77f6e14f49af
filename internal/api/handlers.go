package api

import (
	"net/http"
	"strconv"

	"github.com/arukh89/bitcoin-block/internal/models"

	"github.com/shopspring/decimal"
)

const chatHistoryLimit = 100

type createRoundRequest struct {
	RoundNumber     int    `json:"roundNumber"`
	BlockHeight     int64  `json:"blockHeight"`
	DurationMinutes int    `json:"durationMinutes"`
	PrizeLabel      string `json:"prizeLabel"`
}

func (s *Server) handleCreateRound(w http.ResponseWriter, r *http.Request) {
	var req createRoundRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "malformed request body", Kind: "invalid_input"})
		return
	}
	round, err := s.svc.CreateRound(r.Context(), req.RoundNumber, req.BlockHeight, req.DurationMinutes, req.PrizeLabel)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, round)
}

func (s *Server) handleCloseRound(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	closed, err := s.svc.CloseRound(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true, "changed": closed})
}

func (s *Server) handleResolveRound(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	result, err := s.svc.ResolveRound(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type prizeConfigRequest struct {
	Jackpot       decimal.Decimal `json:"jackpot"`
	FirstPlace    decimal.Decimal `json:"firstPlace"`
	SecondPlace   decimal.Decimal `json:"secondPlace"`
	Currency      string          `json:"currency"`
	TokenContract string          `json:"tokenContract"`
}

func (s *Server) handleSavePrizeConfig(w http.ResponseWriter, r *http.Request) {
	var req prizeConfigRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "malformed request body", Kind: "invalid_input"})
		return
	}
	cfg, err := s.svc.SavePrizeConfig(r.Context(), req.Jackpot, req.FirstPlace, req.SecondPlace, req.Currency, req.TokenContract)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

type submitGuessRequest struct {
	RoundID    uint   `json:"roundId"`
	Address    string `json:"address"`
	Username   string `json:"username"`
	GuessValue int    `json:"guessValue"`
	PfpURL     string `json:"pfpUrl"`
}

func (s *Server) handleSubmitGuess(w http.ResponseWriter, r *http.Request) {
	var req submitGuessRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "malformed request body", Kind: "invalid_input"})
		return
	}
	guess, err := s.svc.SubmitGuess(r.Context(), req.RoundID, req.Address, req.Username, req.GuessValue, req.PfpURL)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, guess)
}

type chatRequest struct {
	RoundID  uint   `json:"roundId"`
	Address  string `json:"address"`
	Username string `json:"username"`
	PfpURL   string `json:"pfpUrl"`
	Message  string `json:"message"`
}

func (s *Server) handlePostChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "malformed request body", Kind: "invalid_input"})
		return
	}
	msg, err := s.svc.PostChat(r.Context(), req.RoundID, req.Address, req.Username, req.PfpURL, req.Message)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

// StateResponse is the full snapshot late joiners fetch instead of relying on
// incremental websocket pushes.
type StateResponse struct {
	CurrentRound *models.Round        `json:"currentRound"`
	Rounds       []models.Round       `json:"rounds"`
	Guesses      []models.Guess       `json:"guesses"`
	PrizeConfig  *models.PrizeConfig  `json:"prizeConfig"`
	Chat         []models.ChatMessage `json:"chat"`
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	current, err := s.svc.CurrentRound(ctx)
	if err != nil {
		s.writeError(w, err)
		return
	}
	rounds, err := s.svc.Rounds(ctx)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var guesses []models.Guess
	if current != nil {
		if guesses, err = s.svc.GuessesForRound(ctx, current.ID); err != nil {
			s.writeError(w, err)
			return
		}
	}
	cfg, err := s.svc.PrizeConfig(ctx)
	if err != nil {
		s.writeError(w, err)
		return
	}
	chat, err := s.svc.ChatHistory(ctx, chatHistoryLimit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StateResponse{
		CurrentRound: current,
		Rounds:       rounds,
		Guesses:      guesses,
		PrizeConfig:  cfg,
		Chat:         chat,
	})
}

func (s *Server) handleRounds(w http.ResponseWriter, r *http.Request) {
	rounds, err := s.svc.Rounds(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rounds)
}

func (s *Server) handleGuessesForRound(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	guesses, err := s.svc.GuessesForRound(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if guesses == nil {
		guesses = []models.Guess{}
	}
	writeJSON(w, http.StatusOK, guesses)
}

func (s *Server) handleHasGuessed(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	guessed, err := s.svc.HasGuessed(r.Context(), id, r.PathValue("address"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"guessed": guessed})
}

func (s *Server) handleRecentBlocks(w http.ResponseWriter, r *http.Request) {
	blocks, err := s.blocks.RecentBlocks(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "block data unavailable", Kind: "oracle_unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, blocks)
}

func pathID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 32)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid round id", Kind: "invalid_input"})
		return 0, false
	}
	return uint(id), true
}

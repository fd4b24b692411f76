package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"chess-server/internal/game"
	"chess-server/internal/middleware"
	"chess-server/internal/models"
	"chess-server/internal/services"
)

type GameHandler struct {
	games      *services.GameService
	allowClear bool
}

func NewGameHandler(games *services.GameService, allowClear bool) *GameHandler {
	return &GameHandler{games: games, allowClear: allowClear}
}

type CreateGameRequest struct {
	GameName string `json:"gameName"`
}

type CreateGameResponse struct {
	SessionID string `json:"sessionId"`
}

type ListGamesResponse struct {
	Games []models.Summary `json:"games"`
}

type JoinGameRequest struct {
	PlayerColor string `json:"playerColor"`
}

// MakeMoveRequest accepts either a UCI string ("e7e8q") or the structured
// move.
type MakeMoveRequest struct {
	UCI  string     `json:"uci,omitempty"`
	Move *game.Move `json:"move,omitempty"`
}

type LegalMovesResponse struct {
	From  string      `json:"from"`
	Moves []game.Move `json:"moves"`
}

type HistoryResponse struct {
	Moves []models.Move `json:"moves"`
}

func (h *GameHandler) CreateGame(w http.ResponseWriter, r *http.Request) {
	var req CreateGameRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	g, err := h.games.CreateGame(r.Context(), req.GameName)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, CreateGameResponse{SessionID: g.SessionID})
}

func (h *GameHandler) ListGames(w http.ResponseWriter, r *http.Request) {
	games, err := h.games.ListGames(r.Context())
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, ListGamesResponse{Games: games})
}

func (h *GameHandler) GetGame(w http.ResponseWriter, r *http.Request) {
	view, err := h.games.GetGame(r.Context(), mux.Vars(r)["sessionId"])
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, view)
}

func (h *GameHandler) JoinGame(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUserFromContext(r.Context())

	var req JoinGameRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	view, err := h.games.JoinGame(r.Context(), mux.Vars(r)["sessionId"], user.Username, req.PlayerColor)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, view)
}

func (h *GameHandler) MakeMove(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUserFromContext(r.Context())

	var req MakeMoveRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var move game.Move
	switch {
	case req.Move != nil:
		move = *req.Move
	case req.UCI != "":
		m, err := game.ParseMove(req.UCI)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		move = m
	default:
		respondWithError(w, http.StatusBadRequest, "move is required")
		return
	}

	res, err := h.games.MakeMove(r.Context(), mux.Vars(r)["sessionId"], user.Username, move)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, res)
}

func (h *GameHandler) Resign(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUserFromContext(r.Context())

	g, err := h.games.Resign(r.Context(), mux.Vars(r)["sessionId"], user.Username)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, g)
}

func (h *GameHandler) Leave(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUserFromContext(r.Context())

	g, err := h.games.Leave(r.Context(), mux.Vars(r)["sessionId"], user.Username)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, g)
}

// LegalMoves answers GET /api/games/{id}/moves?from=e2.
func (h *GameHandler) LegalMoves(w http.ResponseWriter, r *http.Request) {
	from := r.URL.Query().Get("from")
	moves, err := h.games.LegalMoves(r.Context(), mux.Vars(r)["sessionId"], from)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, LegalMovesResponse{From: from, Moves: moves})
}

func (h *GameHandler) History(w http.ResponseWriter, r *http.Request) {
	moves, err := h.games.History(r.Context(), mux.Vars(r)["sessionId"])
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, HistoryResponse{Moves: moves})
}

// ClearDatabase wipes all data. It only exists when the config allows it.
func (h *GameHandler) ClearDatabase(w http.ResponseWriter, r *http.Request) {
	if !h.allowClear {
		respondWithError(w, http.StatusForbidden, "clearing the database is disabled")
		return
	}
	if err := h.games.Clear(r.Context()); err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, MessageResponse{Message: "Database cleared"})
}

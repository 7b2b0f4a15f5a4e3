package rest

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/rocketscienceinc/tictactoe-timetravel/internal/entity"
	"github.com/rocketscienceinc/tictactoe-timetravel/internal/usecase"
)

type errorResponse struct {
	Error string `json:"error"`
}

func (that *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	view, err := that.uGame.NewGame(r.Context())
	if err != nil {
		that.logger.Error("failed to create game", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to create game"})
		return
	}

	writeJSON(w, http.StatusCreated, view)
}

func (that *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	view, err := that.uGame.GetGame(r.Context(), chi.URLParam(r, "gameID"))
	that.writeView(w, view, err)
}

func (that *Server) handleClickCell(w http.ResponseWriter, r *http.Request) {
	cell, err := strconv.Atoi(chi.URLParam(r, "cell"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "cell must be a number"})
		return
	}

	view, err := that.uGame.ClickCell(r.Context(), chi.URLParam(r, "gameID"), cell)
	that.writeView(w, view, err)
}

func (that *Server) handleJumpTo(w http.ResponseWriter, r *http.Request) {
	step, err := strconv.Atoi(chi.URLParam(r, "step"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "step must be a number"})
		return
	}

	view, err := that.uGame.JumpTo(r.Context(), chi.URLParam(r, "gameID"), step)
	that.writeView(w, view, err)
}

func (that *Server) writeView(w http.ResponseWriter, view entity.View, err error) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, view)
	case usecase.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "game not found"})
	default:
		that.logger.Error("failed to process game request", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

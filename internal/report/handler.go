// Package report serves the read-side reporting view over HTTP. It only
// queries the historical store and never touches live session state.
package report

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"trivia-live-service/internal/history"
)

type Handler struct {
	reader history.Reader
}

func NewHandler(reader history.Reader) *Handler {
	return &Handler{reader: reader}
}

// Register mounts the reporting endpoints.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/games/recent", h.recentGames)
	mux.HandleFunc("/api/games/", h.gameDetails)
	mux.HandleFunc("/api/players/top", h.topPlayers)
}

func (h *Handler) recentGames(w http.ResponseWriter, r *http.Request) {
	games, err := h.reader.RecentGames(r.Context(), limitParam(r, 20))
	if err != nil {
		log.Printf("report: recent games: %v", err)
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, games)
}

func (h *Handler) gameDetails(w http.ResponseWriter, r *http.Request) {
	rawID := strings.TrimPrefix(r.URL.Path, "/api/games/")
	gameID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		http.Error(w, "invalid game id", http.StatusBadRequest)
		return
	}

	report, err := h.reader.GameDetails(r.Context(), gameID)
	if errors.Is(err, sql.ErrNoRows) {
		http.Error(w, "game not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Printf("report: game details: %v", err)
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, report)
}

func (h *Handler) topPlayers(w http.ResponseWriter, r *http.Request) {
	players, err := h.reader.TopPlayers(r.Context(), limitParam(r, 10))
	if err != nil {
		log.Printf("report: top players: %v", err)
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, players)
}

func limitParam(r *http.Request, fallback int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 || limit > 100 {
		return fallback
	}
	return limit
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("report: encode response: %v", err)
	}
}

// Package control exposes the games-master operations over HTTP so a
// host UI can drive the session without a broker connection.
package control

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"trivia-live-service/internal/domain"
	"trivia-live-service/internal/host"
)

type Handler struct {
	orchestrator *host.Orchestrator
}

func NewHandler(orchestrator *host.Orchestrator) *Handler {
	return &Handler{orchestrator: orchestrator}
}

// Register mounts the session control endpoints.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/session", h.snapshot)
	mux.HandleFunc("/api/session/configure", h.configure)
	mux.HandleFunc("/api/session/ask", h.op(h.orchestrator.AskNext))
	mux.HandleFunc("/api/session/close", h.op(h.orchestrator.CloseQuestion))
	mux.HandleFunc("/api/session/advance", h.op(h.orchestrator.Advance))
	mux.HandleFunc("/api/session/complete", h.op(h.orchestrator.Complete))
	mux.HandleFunc("/api/session/stop", h.op(h.orchestrator.Stop))
}

func (h *Handler) snapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.orchestrator.Snapshot(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	view := map[string]any{
		"state":            snap.State,
		"sessionId":        snap.SessionID,
		"questionCount":    snap.QuestionCount,
		"questionNumber":   snap.QuestionNumber,
		"players":          len(snap.Players),
		"answers":          snap.AnswerCount,
		"connectionStatus": snap.ConnectionStatus,
	}
	// The open question is host-side state; the correct index stays here.
	if snap.CurrentQuestion != nil {
		view["currentQuestion"] = snap.CurrentQuestion.Text
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(view); err != nil {
		log.Printf("control: encode snapshot: %v", err)
	}
}

func (h *Handler) configure(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	count, err := strconv.Atoi(r.URL.Query().Get("count"))
	if err != nil || count <= 0 {
		http.Error(w, "invalid question count", http.StatusBadRequest)
		return
	}
	h.respond(w, h.orchestrator.Configure(r.Context(), count))
}

func (h *Handler) op(fn func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.respond(w, fn(r.Context()))
	}
}

func (h *Handler) respond(w http.ResponseWriter, err error) {
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, domain.ErrSessionActive),
		errors.Is(err, domain.ErrSessionNotConfigured),
		errors.Is(err, domain.ErrRoundInProgress),
		errors.Is(err, domain.ErrQuestionNotOpen):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	}
}

package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"chase-duel-service/internal/app"
	"chase-duel-service/internal/domain"
)

// DuelHandler serves the REST side of the duel service.
type DuelHandler struct {
	service *app.DuelService
}

func NewDuelHandler(service *app.DuelService) *DuelHandler {
	return &DuelHandler{service: service}
}

type startRequest struct {
	Mode                domain.Mode        `json:"mode"`
	QuizID              string             `json:"quizId"`
	ContestantQuestions []domain.Question  `json:"contestantQuestions"`
	ChaserQuestions     []domain.Question  `json:"chaserQuestions"`
	Tier                domain.Tier        `json:"tier"`
	Control             domain.ControlMode `json:"control"`
	ContestantSeconds   int                `json:"contestantSeconds"`
	ChaserSeconds       int                `json:"chaserSeconds"`
	Seed                int64              `json:"seed"`
}

type answerRequest struct {
	Index *int `json:"index"`
}

func (h *DuelHandler) start(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	view, err := h.service.Start(r.Context(), app.StartRequest{
		Mode:                req.Mode,
		QuizID:              req.QuizID,
		ContestantQuestions: req.ContestantQuestions,
		ChaserQuestions:     req.ChaserQuestions,
		Tier:                req.Tier,
		Control:             req.Control,
		ContestantSeconds:   req.ContestantSeconds,
		ChaserSeconds:       req.ChaserSeconds,
		Seed:                req.Seed,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

type liveResponse struct {
	Duels []string `json:"duels"`
}

func (h *DuelHandler) live(w http.ResponseWriter, r *http.Request) {
	ids, err := h.service.Live(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, liveResponse{Duels: ids})
}

func (h *DuelHandler) snapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Snapshot(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *DuelHandler) answer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Index == nil {
		writeError(w, http.StatusBadRequest, "expected {\"index\": n}")
		return
	}
	if err := h.service.SubmitAnswer(r.Context(), chi.URLParam(r, "id"), *req.Index); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *DuelHandler) continueDuel(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Continue(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *DuelHandler) exit(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Exit(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// statusFor maps service errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrDuelNotFound), errors.Is(err, domain.ErrQuizNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidConfig),
		errors.Is(err, domain.ErrUnknownTier),
		errors.Is(err, domain.ErrUnknownMode),
		errors.Is(err, domain.ErrInvalidQuestion),
		errors.Is(err, domain.ErrNotEnoughQuestions):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeServiceError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("duel request failed")
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorPayload{Message: message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

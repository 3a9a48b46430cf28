package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"review-game-service/internal/app"
	"review-game-service/internal/domain"
)

type Handler struct {
	service  *app.GameService
	validate *validator.Validate
}

func NewHandler(service *app.GameService) *Handler {
	return &Handler{
		service:  service,
		validate: validator.New(),
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) IssueQuestions(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	questions, err := h.service.Issue(r.Context(), date)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"date": date, "questions": questions})
}

func (h *Handler) Questions(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	questions, err := h.service.Questions(r.Context(), date)
	if err != nil {
		writeError(w, err)
		return
	}
	if questions == nil {
		questions = []domain.Question{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"date": date, "questions": questions})
}

type submitRequest struct {
	UserID      string  `json:"userId" validate:"required"`
	DisplayName string  `json:"displayName"`
	Date        string  `json:"date" validate:"required,datetime=2006-01-02"`
	Step        int     `json:"step" validate:"required,min=1,max=6"`
	OptionID    string  `json:"optionId" validate:"required"`
	Confidence  float64 `json:"confidence" validate:"min=0,max=1"`
}

func (h *Handler) SubmitPrediction(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	result, err := h.service.Submit(r.Context(), app.SubmitRequest{
		UserID:      req.UserID,
		DisplayName: req.DisplayName,
		Date:        req.Date,
		Step:        domain.Step(req.Step),
		OptionID:    req.OptionID,
		Confidence:  req.Confidence,
	})
	if errors.Is(err, domain.ErrDuplicateSubmission) {
		// The earlier answer stands; nothing changed server-side.
		writeJSON(w, http.StatusOK, result)
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

type verifyRequest struct {
	Actual domain.ActualSnapshot `json:"actual"`
}

func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	report, err := h.service.Verify(r.Context(), date, req.Actual)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	top := queryInt(r, "top", 0)
	entries, err := h.service.Leaderboard(r.Context(), date, top)
	if err != nil {
		writeError(w, err)
		return
	}
	if entries == nil {
		entries = []domain.LeaderboardEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"date": date, "entries": entries})
}

func (h *Handler) AllTimeLeaderboard(w http.ResponseWriter, r *http.Request) {
	top := queryInt(r, "top", 0)
	entries, err := h.service.AllTime(r.Context(), top)
	if err != nil {
		writeError(w, err)
		return
	}
	if entries == nil {
		entries = []domain.AllTimeEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (h *Handler) UserProfile(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	profile, err := h.service.Profile(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidDate),
		errors.Is(err, domain.ErrInvalidOption),
		errors.Is(err, domain.ErrInvalidConfidence):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrUnknownQuestion),
		errors.Is(err, domain.ErrUserNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrDateVerified),
		errors.Is(err, domain.ErrAlreadyVerified):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrUnclassifiable):
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("request failed")
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("encode response")
	}
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}

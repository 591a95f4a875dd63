package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"lesson-progress-service/internal/app"
	"lesson-progress-service/internal/domain"
)

// UserHeader carries the caller's user id; authentication happens upstream.
const UserHeader = "X-User-ID"

// Handler serves the REST endpoints of the submission workflow.
type Handler struct {
	submissions *app.SubmissionService
	reports     *app.ReportService
}

func NewHandler(submissions *app.SubmissionService, reports *app.ReportService) *Handler {
	return &Handler{submissions: submissions, reports: reports}
}

// Register mounts every route on mux, including the leaderboard websocket.
func (h *Handler) Register(mux *http.ServeMux, ws *WSHandler) {
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("POST /answers", h.submitAnswer)
	mux.HandleFunc("GET /answers/{id}", h.getAnswer)
	mux.HandleFunc("GET /leaderboard", h.leaderboard)
	mux.HandleFunc("GET /leaderboard/{user_id}", h.leaderboardEntry)
	mux.HandleFunc("GET /progress", h.listProgress)
	mux.HandleFunc("GET /users/{user_id}/stats", h.userStats)
	mux.HandleFunc("GET /notifications", h.notifications)
	if ws != nil {
		mux.HandleFunc("GET /ws/leaderboard", ws.ServeLeaderboard)
	}
}

type submitRequest struct {
	QuestionID   string `json:"question_id"`
	SubmitAnswer string `json:"submit_answer"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) submitAnswer(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	result, err := h.submissions.SubmitAnswer(r.Context(), domain.AnswerSubmission{
		UserID:       r.Header.Get(UserHeader),
		QuestionID:   req.QuestionID,
		SubmitAnswer: req.SubmitAnswer,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result.Answer)
}

func (h *Handler) getAnswer(w http.ResponseWriter, r *http.Request) {
	answer, err := h.reports.Answer(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

func (h *Handler) leaderboard(w http.ResponseWriter, r *http.Request) {
	limit, err := intQuery(r, "limit", 0)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be an integer"})
		return
	}
	entries, err := h.reports.Leaderboard(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) leaderboardEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := h.reports.LeaderboardEntry(r.Context(), r.PathValue("user_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (h *Handler) listProgress(w http.ResponseWriter, r *http.Request) {
	min, errMin := floatQuery(r, "min_progress", 0)
	max, errMax := floatQuery(r, "max_progress", 100)
	if errMin != nil || errMax != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "min_progress and max_progress must be numbers"})
		return
	}
	userID := r.Header.Get(UserHeader)
	if userID == "" {
		writeError(w, domain.ErrMissingID)
		return
	}
	lessons, err := h.reports.ListProgress(r.Context(), userID, min, max)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lessons)
}

func (h *Handler) userStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.reports.UserStats(r.Context(), r.PathValue("user_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) notifications(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get(UserHeader)
	if userID == "" {
		writeError(w, domain.ErrMissingID)
		return
	}
	list, err := h.reports.Notifications(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrValidation):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	default:
		log.Printf("http: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("http: encode response: %v", err)
	}
}

func intQuery(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

func floatQuery(r *http.Request, name string, fallback float64) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	return strconv.ParseFloat(raw, 64)
}

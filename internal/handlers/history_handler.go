package handlers

import (
	"net/http"

	"deepfocus/internal/models"
	"deepfocus/internal/service"
)

// HistoryHandler serves the task history, daily aggregates and streaks
type HistoryHandler struct {
	historyService *service.HistoryService
}

// NewHistoryHandler creates a new history handler
func NewHistoryHandler(historyService *service.HistoryService) *HistoryHandler {
	return &HistoryHandler{historyService: historyService}
}

// Tasks lists history entries. Filters: task_id, event_type, since and until
// (inclusive YYYY-MM-DD), limit, offset.
func (h *HistoryHandler) Tasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.HistoryFilter{
		TaskID:    queryInt64(r, "task_id"),
		EventType: models.HistoryEvent(q.Get("event_type")),
		Limit:     queryInt(r, "limit", 100),
		Offset:    queryInt(r, "offset", 0),
	}
	if s := q.Get("since"); s != "" {
		since, err := models.ParseDate(s)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid since date", "", nil)
			return
		}
		filter.Since = &since
	}
	if s := q.Get("until"); s != "" {
		until, err := models.ParseDate(s)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid until date", "", nil)
			return
		}
		until = until.AddDate(0, 0, 1)
		filter.Until = &until
	}

	entries, err := h.historyService.TaskHistory(r.Context(), currentUserID(r), filter)
	if err != nil {
		handleServiceError(w, err, "Failed to list task history")
		return
	}
	if entries == nil {
		entries = []models.TaskHistory{}
	}
	respondJSON(w, http.StatusOK, entries)
}

// DailyStats returns one row per active day between from and to
func (h *HistoryHandler) DailyStats(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rows, err := h.historyService.DailyStats(r.Context(), currentUserID(r), q.Get("from"), q.Get("to"))
	if err != nil {
		handleServiceError(w, err, "Failed to list daily stats")
		return
	}
	if rows == nil {
		rows = []models.DailyStats{}
	}
	respondJSON(w, http.StatusOK, rows)
}

func (h *HistoryHandler) Streak(w http.ResponseWriter, r *http.Request) {
	details, err := h.historyService.Streak(r.Context(), currentUserID(r))
	if err != nil {
		handleServiceError(w, err, "Failed to get streak")
		return
	}
	respondJSON(w, http.StatusOK, details)
}

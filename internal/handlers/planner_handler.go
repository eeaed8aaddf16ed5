package handlers

import (
	"net/http"

	"deepfocus/internal/models"
	"deepfocus/internal/service"
)

// PlannerHandler exposes the overdue rescheduler
type PlannerHandler struct {
	plannerService *service.PlannerService
}

// NewPlannerHandler creates a new planner handler
func NewPlannerHandler(plannerService *service.PlannerService) *PlannerHandler {
	return &PlannerHandler{plannerService: plannerService}
}

type overdueCount struct {
	Overdue int `json:"overdue"`
}

// RescheduleOverdue moves every unfinished past-due task to today and
// returns the moved tasks
func (h *PlannerHandler) RescheduleOverdue(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.plannerService.RescheduleOverdue(r.Context(), currentUserID(r))
	if err != nil {
		handleServiceError(w, err, "Failed to reschedule overdue tasks")
		return
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	respondJSON(w, http.StatusOK, tasks)
}

func (h *PlannerHandler) OverdueCount(w http.ResponseWriter, r *http.Request) {
	n, err := h.plannerService.CountOverdue(r.Context(), currentUserID(r))
	if err != nil {
		handleServiceError(w, err, "Failed to count overdue tasks")
		return
	}
	respondJSON(w, http.StatusOK, overdueCount{Overdue: n})
}

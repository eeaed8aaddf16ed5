package handlers

import (
	"net/http"

	"deepfocus/internal/models"
	"deepfocus/internal/service"
)

// PlanHandler serves daily plans, addressed by their YYYY-MM-DD date
type PlanHandler struct {
	planService *service.PlanService
}

// NewPlanHandler creates a new plan handler
func NewPlanHandler(planService *service.PlanService) *PlanHandler {
	return &PlanHandler{planService: planService}
}

func (h *PlanHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	plans, err := h.planService.List(r.Context(), currentUserID(r), q.Get("from"), q.Get("to"), queryInt(r, "limit", 100), queryInt(r, "offset", 0))
	if err != nil {
		handleServiceError(w, err, "Failed to list plans")
		return
	}
	if plans == nil {
		plans = []models.Plan{}
	}
	respondJSON(w, http.StatusOK, plans)
}

func (h *PlanHandler) Get(w http.ResponseWriter, r *http.Request) {
	plan, err := h.planService.Get(r.Context(), currentUserID(r), r.PathValue("date"))
	if err != nil {
		handleServiceError(w, err, "Failed to get plan")
		return
	}
	respondJSON(w, http.StatusOK, plan)
}

// Create adds a plan; an omitted date means today
func (h *PlanHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in service.PlanInput
	if !decodeJSON(w, r, &in) {
		return
	}
	plan, err := h.planService.Create(r.Context(), currentUserID(r), in)
	if err != nil {
		handleServiceError(w, err, "Failed to create plan")
		return
	}
	respondJSON(w, http.StatusCreated, plan)
}

func (h *PlanHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in service.PlanUpdate
	if !decodeJSON(w, r, &in) {
		return
	}
	plan, err := h.planService.Update(r.Context(), currentUserID(r), r.PathValue("date"), in)
	if err != nil {
		handleServiceError(w, err, "Failed to update plan")
		return
	}
	respondJSON(w, http.StatusOK, plan)
}

func (h *PlanHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.planService.Delete(r.Context(), currentUserID(r), r.PathValue("date")); err != nil {
		handleServiceError(w, err, "Failed to delete plan")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package handlers

import (
	"fmt"
	"log"
	"net/http"

	"deepfocus/internal/models"
	"deepfocus/internal/service"
)

// AccountHandler serves billing, the audit trail and data export
type AccountHandler struct {
	billingService *service.BillingService
	auditService   *service.AuditService
	exportService  *service.ExportService
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(billingService *service.BillingService, auditService *service.AuditService, exportService *service.ExportService) *AccountHandler {
	return &AccountHandler{
		billingService: billingService,
		auditService:   auditService,
		exportService:  exportService,
	}
}

type subscriptionView struct {
	Subscription *models.Subscription `json:"subscription"`
	Limits       models.PlanLimits    `json:"limits"`
}

// Subscription returns the caller's effective plan and its quotas
func (h *AccountHandler) Subscription(w http.ResponseWriter, r *http.Request) {
	sub, err := h.billingService.Subscription(r.Context(), currentUserID(r))
	if err != nil {
		handleServiceError(w, err, "Failed to get subscription")
		return
	}
	respondJSON(w, http.StatusOK, subscriptionView{
		Subscription: sub,
		Limits:       h.billingService.Limits(sub.PlanID),
	})
}

func (h *AccountHandler) AuditLog(w http.ResponseWriter, r *http.Request) {
	entries, err := h.auditService.List(r.Context(), currentUserID(r), queryInt(r, "limit", 100))
	if err != nil {
		handleServiceError(w, err, "Failed to list audit log")
		return
	}
	if entries == nil {
		entries = []models.AuditLog{}
	}
	respondJSON(w, http.StatusOK, entries)
}

// Export streams the caller's data as a JSON attachment
func (h *AccountHandler) Export(w http.ResponseWriter, r *http.Request) {
	userID := currentUserID(r)
	data, err := h.exportService.Collect(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err, "Failed to export data")
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="deepfocus-export-%d.json"`, userID))
	respondJSON(w, http.StatusOK, data)
	log.Printf("Exported data for user %d", userID)
}

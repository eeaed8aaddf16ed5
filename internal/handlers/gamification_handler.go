package handlers

import (
	"net/http"

	"deepfocus/internal/models"
	"deepfocus/internal/service"
)

// GamificationHandler serves stats, achievements and focus sessions
type GamificationHandler struct {
	gamificationService *service.GamificationService
}

// NewGamificationHandler creates a new gamification handler
func NewGamificationHandler(gamificationService *service.GamificationService) *GamificationHandler {
	return &GamificationHandler{gamificationService: gamificationService}
}

func (h *GamificationHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.gamificationService.Stats(r.Context(), currentUserID(r))
	if err != nil {
		handleServiceError(w, err, "Failed to get stats")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// Achievements lists unlocked achievements, or the whole catalogue with
// ?include_locked=true
func (h *GamificationHandler) Achievements(w http.ResponseWriter, r *http.Request) {
	achievements, err := h.gamificationService.Achievements(r.Context(), currentUserID(r), queryBool(r, "include_locked"))
	if err != nil {
		handleServiceError(w, err, "Failed to list achievements")
		return
	}
	if achievements == nil {
		achievements = []models.AchievementStatus{}
	}
	respondJSON(w, http.StatusOK, achievements)
}

func (h *GamificationHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.gamificationService.ListSessions(r.Context(), currentUserID(r), queryInt(r, "limit", 50))
	if err != nil {
		handleServiceError(w, err, "Failed to list sessions")
		return
	}
	if sessions == nil {
		sessions = []models.FocusSession{}
	}
	respondJSON(w, http.StatusOK, sessions)
}

func (h *GamificationHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathID(w, r, "sessionID")
	if !ok {
		return
	}
	session, err := h.gamificationService.GetSession(r.Context(), currentUserID(r), sessionID)
	if err != nil {
		handleServiceError(w, err, "Failed to get session")
		return
	}
	respondJSON(w, http.StatusOK, session)
}

func (h *GamificationHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	var in service.SessionInput
	if !decodeJSON(w, r, &in) {
		return
	}
	session, err := h.gamificationService.StartSession(r.Context(), currentUserID(r), in)
	if err != nil {
		handleServiceError(w, err, "Failed to start session")
		return
	}
	respondJSON(w, http.StatusCreated, session)
}

// UpdateSession records the outcome of a session; completing it awards XP once
func (h *GamificationHandler) UpdateSession(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathID(w, r, "sessionID")
	if !ok {
		return
	}
	var in service.SessionUpdate
	if !decodeJSON(w, r, &in) {
		return
	}
	session, err := h.gamificationService.UpdateSession(r.Context(), currentUserID(r), sessionID, in)
	if err != nil {
		handleServiceError(w, err, "Failed to update session")
		return
	}
	respondJSON(w, http.StatusOK, session)
}

func (h *GamificationHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.gamificationService.Summary(r.Context(), currentUserID(r))
	if err != nil {
		handleServiceError(w, err, "Failed to build summary")
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

package handlers

import (
	"net/http"

	"deepfocus/internal/models"
	"deepfocus/internal/service"
)

// TeamHandler serves teams and their rosters
type TeamHandler struct {
	teamService *service.TeamService
}

// NewTeamHandler creates a new team handler
func NewTeamHandler(teamService *service.TeamService) *TeamHandler {
	return &TeamHandler{teamService: teamService}
}

type createTeamRequest struct {
	Name string `json:"name"`
}

func (h *TeamHandler) List(w http.ResponseWriter, r *http.Request) {
	teams, err := h.teamService.List(r.Context(), currentUserID(r))
	if err != nil {
		handleServiceError(w, err, "Failed to list teams")
		return
	}
	if teams == nil {
		teams = []models.Team{}
	}
	respondJSON(w, http.StatusOK, teams)
}

func (h *TeamHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in createTeamRequest
	if !decodeJSON(w, r, &in) {
		return
	}
	team, err := h.teamService.Create(r.Context(), currentUserID(r), in.Name)
	if err != nil {
		handleServiceError(w, err, "Failed to create team")
		return
	}
	respondJSON(w, http.StatusCreated, team)
}

func (h *TeamHandler) Get(w http.ResponseWriter, r *http.Request) {
	teamID, ok := pathID(w, r, "teamID")
	if !ok {
		return
	}
	team, err := h.teamService.Get(r.Context(), currentUserID(r), teamID)
	if err != nil {
		handleServiceError(w, err, "Failed to get team")
		return
	}
	respondJSON(w, http.StatusOK, team)
}

// AddMember adds a user by id or email; owners only
func (h *TeamHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	teamID, ok := pathID(w, r, "teamID")
	if !ok {
		return
	}
	var in service.AddMemberInput
	if !decodeJSON(w, r, &in) {
		return
	}
	member, err := h.teamService.AddMember(r.Context(), currentUserID(r), teamID, in)
	if err != nil {
		handleServiceError(w, err, "Failed to add team member")
		return
	}
	respondJSON(w, http.StatusCreated, member)
}

// RemoveMember removes a member; owners may remove anyone, members themselves
func (h *TeamHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	teamID, ok := pathID(w, r, "teamID")
	if !ok {
		return
	}
	userID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}
	if err := h.teamService.RemoveMember(r.Context(), currentUserID(r), teamID, userID); err != nil {
		handleServiceError(w, err, "Failed to remove team member")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

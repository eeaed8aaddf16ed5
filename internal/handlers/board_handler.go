package handlers

import (
	"net/http"

	"deepfocus/internal/models"
	"deepfocus/internal/service"
)

// BoardHandler serves boards and their groups
type BoardHandler struct {
	boardService *service.BoardService
}

// NewBoardHandler creates a new board handler
func NewBoardHandler(boardService *service.BoardService) *BoardHandler {
	return &BoardHandler{boardService: boardService}
}

func (h *BoardHandler) List(w http.ResponseWriter, r *http.Request) {
	boards, err := h.boardService.List(r.Context(), currentUserID(r), queryInt(r, "limit", 100), queryInt(r, "offset", 0))
	if err != nil {
		handleServiceError(w, err, "Failed to list boards")
		return
	}
	if boards == nil {
		boards = []models.Board{}
	}
	respondJSON(w, http.StatusOK, boards)
}

func (h *BoardHandler) Get(w http.ResponseWriter, r *http.Request) {
	boardID, ok := pathID(w, r, "boardID")
	if !ok {
		return
	}
	board, err := h.boardService.Get(r.Context(), currentUserID(r), boardID)
	if err != nil {
		handleServiceError(w, err, "Failed to get board")
		return
	}
	respondJSON(w, http.StatusOK, board)
}

// Create adds a board, subject to the caller's plan quota
func (h *BoardHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in service.BoardInput
	if !decodeJSON(w, r, &in) {
		return
	}
	board, err := h.boardService.Create(r.Context(), currentUserID(r), in)
	if err != nil {
		handleServiceError(w, err, "Failed to create board")
		return
	}
	respondJSON(w, http.StatusCreated, board)
}

func (h *BoardHandler) Update(w http.ResponseWriter, r *http.Request) {
	boardID, ok := pathID(w, r, "boardID")
	if !ok {
		return
	}
	var in service.BoardUpdate
	if !decodeJSON(w, r, &in) {
		return
	}
	board, err := h.boardService.Update(r.Context(), currentUserID(r), boardID, in)
	if err != nil {
		handleServiceError(w, err, "Failed to update board")
		return
	}
	respondJSON(w, http.StatusOK, board)
}

func (h *BoardHandler) Delete(w http.ResponseWriter, r *http.Request) {
	boardID, ok := pathID(w, r, "boardID")
	if !ok {
		return
	}
	if err := h.boardService.Delete(r.Context(), currentUserID(r), boardID); err != nil {
		handleServiceError(w, err, "Failed to delete board")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListGroups returns the groups of a board
func (h *BoardHandler) ListGroups(w http.ResponseWriter, r *http.Request) {
	boardID, ok := pathID(w, r, "boardID")
	if !ok {
		return
	}
	board, err := h.boardService.Get(r.Context(), currentUserID(r), boardID)
	if err != nil {
		handleServiceError(w, err, "Failed to list groups")
		return
	}
	groups := board.Groups
	if groups == nil {
		groups = []models.Group{}
	}
	respondJSON(w, http.StatusOK, groups)
}

func (h *BoardHandler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	boardID, ok := pathID(w, r, "boardID")
	if !ok {
		return
	}
	var in service.GroupInput
	if !decodeJSON(w, r, &in) {
		return
	}
	group, err := h.boardService.CreateGroup(r.Context(), currentUserID(r), boardID, in)
	if err != nil {
		handleServiceError(w, err, "Failed to create group")
		return
	}
	respondJSON(w, http.StatusCreated, group)
}

func (h *BoardHandler) UpdateGroup(w http.ResponseWriter, r *http.Request) {
	groupID, ok := pathID(w, r, "groupID")
	if !ok {
		return
	}
	var in service.GroupUpdate
	if !decodeJSON(w, r, &in) {
		return
	}
	group, err := h.boardService.UpdateGroup(r.Context(), currentUserID(r), groupID, in)
	if err != nil {
		handleServiceError(w, err, "Failed to update group")
		return
	}
	respondJSON(w, http.StatusOK, group)
}

func (h *BoardHandler) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	groupID, ok := pathID(w, r, "groupID")
	if !ok {
		return
	}
	if err := h.boardService.DeleteGroup(r.Context(), currentUserID(r), groupID); err != nil {
		handleServiceError(w, err, "Failed to delete group")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

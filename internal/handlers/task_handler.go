package handlers

import (
	"net/http"

	"deepfocus/internal/models"
	"deepfocus/internal/service"
)

// TaskHandler serves tasks and their subtasks
type TaskHandler struct {
	taskService *service.TaskService
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(taskService *service.TaskService) *TaskHandler {
	return &TaskHandler{taskService: taskService}
}

// List returns the caller's tasks. Filters: status, priority, due_date,
// due_from, due_to, group_id, limit, offset.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.TaskFilter{
		DueDate: q.Get("due_date"),
		DueFrom: q.Get("due_from"),
		DueTo:   q.Get("due_to"),
		GroupID: queryInt64(r, "group_id"),
		Limit:   queryInt(r, "limit", 100),
		Offset:  queryInt(r, "offset", 0),
	}
	if s := q.Get("status"); s != "" {
		filter.Status = models.Status(s)
	}
	if p := q.Get("priority"); p != "" {
		if !models.ValidPriority(models.Priority(p)) {
			respondWithError(w, http.StatusBadRequest, "Invalid priority", "", nil)
			return
		}
		filter.Priority = models.Priority(p)
	}

	tasks, err := h.taskService.List(r.Context(), currentUserID(r), filter)
	if err != nil {
		handleServiceError(w, err, "Failed to list tasks")
		return
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	respondJSON(w, http.StatusOK, tasks)
}

// Get returns one task with its subtasks and progress
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	taskID, ok := pathID(w, r, "taskID")
	if !ok {
		return
	}
	task, err := h.taskService.Get(r.Context(), currentUserID(r), taskID)
	if err != nil {
		handleServiceError(w, err, "Failed to get task")
		return
	}
	respondJSON(w, http.StatusOK, task)
}

// Create adds a task
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in service.TaskInput
	if !decodeJSON(w, r, &in) {
		return
	}
	task, err := h.taskService.Create(r.Context(), currentUserID(r), in)
	if err != nil {
		handleServiceError(w, err, "Failed to create task")
		return
	}
	respondJSON(w, http.StatusCreated, task)
}

// Update applies a partial update
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	taskID, ok := pathID(w, r, "taskID")
	if !ok {
		return
	}
	var in service.TaskUpdate
	if !decodeJSON(w, r, &in) {
		return
	}
	task, err := h.taskService.Update(r.Context(), currentUserID(r), taskID, in)
	if err != nil {
		handleServiceError(w, err, "Failed to update task")
		return
	}
	respondJSON(w, http.StatusOK, task)
}

// Delete removes a task
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	taskID, ok := pathID(w, r, "taskID")
	if !ok {
		return
	}
	if err := h.taskService.Delete(r.Context(), currentUserID(r), taskID); err != nil {
		handleServiceError(w, err, "Failed to delete task")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListSubtasks returns a task's checklist
func (h *TaskHandler) ListSubtasks(w http.ResponseWriter, r *http.Request) {
	taskID, ok := pathID(w, r, "taskID")
	if !ok {
		return
	}
	subtasks, err := h.taskService.ListSubtasks(r.Context(), currentUserID(r), taskID)
	if err != nil {
		handleServiceError(w, err, "Failed to list subtasks")
		return
	}
	if subtasks == nil {
		subtasks = []models.Subtask{}
	}
	respondJSON(w, http.StatusOK, subtasks)
}

// CreateSubtask appends a subtask
func (h *TaskHandler) CreateSubtask(w http.ResponseWriter, r *http.Request) {
	taskID, ok := pathID(w, r, "taskID")
	if !ok {
		return
	}
	var in service.SubtaskInput
	if !decodeJSON(w, r, &in) {
		return
	}
	subtask, err := h.taskService.AddSubtask(r.Context(), currentUserID(r), taskID, in)
	if err != nil {
		handleServiceError(w, err, "Failed to create subtask")
		return
	}
	respondJSON(w, http.StatusCreated, subtask)
}

// UpdateSubtask applies a partial update to a subtask
func (h *TaskHandler) UpdateSubtask(w http.ResponseWriter, r *http.Request) {
	taskID, ok := pathID(w, r, "taskID")
	if !ok {
		return
	}
	subtaskID, ok := pathID(w, r, "subtaskID")
	if !ok {
		return
	}
	var in service.SubtaskUpdate
	if !decodeJSON(w, r, &in) {
		return
	}
	subtask, err := h.taskService.UpdateSubtask(r.Context(), currentUserID(r), taskID, subtaskID, in)
	if err != nil {
		handleServiceError(w, err, "Failed to update subtask")
		return
	}
	respondJSON(w, http.StatusOK, subtask)
}

// DeleteSubtask removes a subtask
func (h *TaskHandler) DeleteSubtask(w http.ResponseWriter, r *http.Request) {
	taskID, ok := pathID(w, r, "taskID")
	if !ok {
		return
	}
	subtaskID, ok := pathID(w, r, "subtaskID")
	if !ok {
		return
	}
	if err := h.taskService.DeleteSubtask(r.Context(), currentUserID(r), taskID, subtaskID); err != nil {
		handleServiceError(w, err, "Failed to delete subtask")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

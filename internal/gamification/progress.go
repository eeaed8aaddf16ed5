// Package gamification holds the pure progress, XP, level, streak and
// achievement rules. Nothing here touches storage or reads the clock.
package gamification

import (
	"math"

	"deepfocus/internal/models"
)

// PartProgress is 1 for the terminal status and 0 for everything else.
func PartProgress(status models.Status) float64 {
	if status.IsTerminal() {
		return 1
	}
	return 0
}

// SubtaskProgress is the mean part progress. An empty slice yields 0; callers
// that want the subtask's own status to count must substitute it themselves.
func SubtaskProgress(parts []models.Status) float64 {
	if len(parts) == 0 {
		return 0
	}
	var sum float64
	for _, p := range parts {
		sum += PartProgress(p)
	}
	return sum / float64(len(parts))
}

// SubtaskParts pairs a subtask's own status with the statuses of its parts.
type SubtaskParts struct {
	Status models.Status
	Parts  []models.Status
}

// Progress uses the parts mean when parts exist, otherwise the subtask's own status.
func (s SubtaskParts) Progress() float64 {
	if len(s.Parts) == 0 {
		return PartProgress(s.Status)
	}
	return SubtaskProgress(s.Parts)
}

// MainTaskProgress is the mean of each subtask's progress, 0 for no subtasks.
func MainTaskProgress(subtasks []SubtaskParts) float64 {
	if len(subtasks) == 0 {
		return 0
	}
	var sum float64
	for _, s := range subtasks {
		sum += s.Progress()
	}
	return sum / float64(len(subtasks))
}

// TaskProgress computes a task's progress from its subtasks, falling back to
// the task's own status when it has none.
func TaskProgress(task *models.Task, subtasks []models.Subtask) float64 {
	if len(subtasks) == 0 {
		return PartProgress(task.Status)
	}
	pairs := make([]SubtaskParts, len(subtasks))
	for i := range subtasks {
		pairs[i] = SubtaskParts{Status: subtasks[i].Status()}
	}
	return MainTaskProgress(pairs)
}

// CompletionRate is the percentage of done tasks among those due on a day,
// rounded to the nearest integer. A day with nothing due scores 0.
func CompletionRate(done, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(done) * 100 / float64(total)))
}

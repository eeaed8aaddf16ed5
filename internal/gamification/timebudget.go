package gamification

import (
	"math"

	"deepfocus/internal/models"
)

// Budget works out how much of a day's waking, non-commute time is taken up
// by work hours and by the estimates of tasks due that day.
func Budget(plan models.Plan, taskMinutes int) models.TimeBudget {
	available := int(math.Round((24 - plan.SleepTime - plan.CommuteTime) * 60))
	if available < 0 {
		available = 0
	}
	planned := int(math.Round(plan.WorkTime*60)) + taskMinutes
	wasted := available - planned
	if wasted < 0 {
		wasted = 0
	}
	return models.TimeBudget{
		AvailableMinutes: available,
		PlannedMinutes:   planned,
		WastedMinutes:    wasted,
	}
}

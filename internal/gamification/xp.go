package gamification

const (
	SessionBaseXP         = 10
	TaskCompletionBonusXP = 20
	DefaultFlowRating     = 3
	FlowRatingMultiplier  = 2
	MinFlowRating         = 1
	MaxFlowRating         = 5
)

// SessionXP is the award for a completed focus session.
func SessionXP(taskCompletedInSession bool, flowRating *int) int {
	xp := SessionBaseXP
	if taskCompletedInSession {
		xp += TaskCompletionBonusXP
	}
	flow := DefaultFlowRating
	if flowRating != nil {
		flow = *flowRating
	}
	return xp + flow*FlowRatingMultiplier
}

// ShouldAwardSessionXP guards the award so it fires once per session: the
// session must be completed and must not have earned anything yet.
func ShouldAwardSessionXP(wasCompleted bool, xpEarned int) bool {
	return wasCompleted && xpEarned == 0
}

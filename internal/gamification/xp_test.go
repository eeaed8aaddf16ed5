package gamification

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func intPtr(v int) *int { return &v }

func TestSessionXP(t *testing.T) {
	tests := []struct {
		name          string
		taskCompleted bool
		flow          *int
		want          int
	}{
		{"task completed with top flow", true, intPtr(5), 40},
		{"no task, default flow", false, nil, 16},
		{"task completed, default flow", true, nil, 36},
		{"no task, lowest flow", false, intPtr(1), 12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SessionXP(tt.taskCompleted, tt.flow))
		})
	}
}

func TestShouldAwardSessionXP(t *testing.T) {
	assert.True(t, ShouldAwardSessionXP(true, 0))
	assert.False(t, ShouldAwardSessionXP(true, 40), "already awarded")
	assert.False(t, ShouldAwardSessionXP(false, 0), "not completed")
}

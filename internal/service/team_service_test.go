package service

import (
	"context"
	"testing"

	"deepfocus/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTeamMembership(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	ownerID := env.user(t, "lead@example.com")
	memberID := env.user(t, "dev@example.com")
	outsiderID := env.user(t, "outsider@example.com")

	team, err := env.teams.Create(ctx, ownerID, "  Core  ")
	require.NoError(t, err)
	assert.Equal(t, "Core", team.Name)
	require.Len(t, team.Members, 1)
	assert.Equal(t, models.RoleOwner, team.Members[0].Role)

	member, err := env.teams.AddMember(ctx, ownerID, team.ID, AddMemberInput{Email: "DEV@example.com"})
	require.NoError(t, err)
	assert.Equal(t, memberID, member.UserID)
	assert.Equal(t, models.RoleMember, member.Role)

	t.Run("duplicate member conflicts", func(t *testing.T) {
		_, err := env.teams.AddMember(ctx, ownerID, team.ID, AddMemberInput{UserID: memberID})
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("only the owner adds members", func(t *testing.T) {
		_, err := env.teams.AddMember(ctx, memberID, team.ID, AddMemberInput{UserID: outsiderID})
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := env.teams.AddMember(ctx, ownerID, team.ID, AddMemberInput{Email: "ghost@example.com"})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("invalid role", func(t *testing.T) {
		_, err := env.teams.AddMember(ctx, ownerID, team.ID, AddMemberInput{UserID: outsiderID, Role: "emperor"})
		assert.Error(t, err)
	})

	t.Run("outsiders cannot see the team", func(t *testing.T) {
		_, err := env.teams.Get(ctx, outsiderID, team.ID)
		assert.ErrorIs(t, err, ErrNotFound)

		teams, err := env.teams.List(ctx, outsiderID)
		require.NoError(t, err)
		assert.Empty(t, teams)
	})

	t.Run("members see the roster", func(t *testing.T) {
		got, err := env.teams.Get(ctx, memberID, team.ID)
		require.NoError(t, err)
		assert.Len(t, got.Members, 2)

		teams, err := env.teams.List(ctx, memberID)
		require.NoError(t, err)
		require.Len(t, teams, 1)
		assert.Equal(t, team.ID, teams[0].ID)
	})

	t.Run("the last owner cannot leave", func(t *testing.T) {
		err := env.teams.RemoveMember(ctx, ownerID, team.ID, ownerID)
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("members may leave", func(t *testing.T) {
		require.NoError(t, env.teams.RemoveMember(ctx, memberID, team.ID, memberID))
		_, err := env.teams.Get(ctx, memberID, team.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

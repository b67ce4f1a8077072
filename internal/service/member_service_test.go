package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Marga-Ghale/ora-members-backend/internal/apperr"
	"github.com/Marga-Ghale/ora-members-backend/internal/repository"
)

func newMemberSvc(env *testEnv) MemberService {
	return NewMemberService(env.members, &fakeWorkspaceRepo{workspaces: map[string]*repository.Workspace{
		testWorkspaceID: {ID: testWorkspaceID, Name: "Acme", Slug: "acme"},
	}}, env.activity)
}

func TestListMembers(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, false)
	svc := newMemberSvc(env)

	t.Run("any live member may read the roster", func(t *testing.T) {
		members, err := svc.ListMembers(ctx, testWorkspaceID, testPlainID)
		require.NoError(t, err)
		require.Len(t, members, 2)
		assert.Equal(t, "admin@acme.test", members[0].Email)
		require.NotNil(t, members[0].User)
		assert.Equal(t, testAdminID, members[0].User.ID)
	})

	t.Run("removed members disappear from the roster", func(t *testing.T) {
		resp, err := env.svc.InviteByEmail(ctx, testWorkspaceID, testAdminID, "new@acme.test")
		require.NoError(t, err)

		members, err := svc.ListMembers(ctx, testWorkspaceID, testAdminID)
		require.NoError(t, err)
		assert.Len(t, members, 3)

		_, err = env.svc.RemoveMember(ctx, testWorkspaceID, testAdminID, resp.MemberID)
		require.NoError(t, err)

		members, err = svc.ListMembers(ctx, testWorkspaceID, testAdminID)
		require.NoError(t, err)
		assert.Len(t, members, 2)
	})

	t.Run("outsiders are rejected", func(t *testing.T) {
		_, err := svc.ListMembers(ctx, testWorkspaceID, "user-outsider")
		assert.True(t, apperr.IsKind(err, apperr.KindForbidden), "got %v", err)
	})
}

func TestListActivity(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, false)
	svc := newMemberSvc(env)

	_, err := env.svc.InviteByEmail(ctx, testWorkspaceID, testAdminID, "new@acme.test")
	require.NoError(t, err)

	entries, err := svc.ListActivity(ctx, testWorkspaceID, testAdminID, 50)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, repository.ActivityMemberInvited, entries[0].Action)
	require.NotNil(t, entries[0].Subject)
	assert.Equal(t, "new@acme.test", *entries[0].Subject)

	// Admin only, unlike the roster.
	_, err = svc.ListActivity(ctx, testWorkspaceID, testPlainID, 50)
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden), "got %v", err)
}

package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Marga-Ghale/ora-members-backend/internal/apperr"
	"github.com/Marga-Ghale/ora-members-backend/internal/models"
	"github.com/Marga-Ghale/ora-members-backend/internal/repository"
)

// ============================================
// In-memory fakes
// ============================================

type fakeMemberRepo struct {
	seq     int64
	members []*repository.Member
}

func (r *fakeMemberRepo) liveByEmail(workspaceID, email string) *repository.Member {
	for _, m := range r.members {
		if m.WorkspaceID == workspaceID && m.DeletedAt == nil &&
			strings.EqualFold(m.Email, email) {
			return m
		}
	}
	return nil
}

func (r *fakeMemberRepo) Create(ctx context.Context, member *repository.Member) error {
	if r.liveByEmail(member.WorkspaceID, member.Email) != nil {
		return repository.ErrDuplicateMember
	}
	r.seq++
	member.ID = r.seq
	member.PublicID = uuid.New().String()
	member.CreatedAt = time.Now()
	cp := *member
	r.members = append(r.members, &cp)
	return nil
}

func (r *fakeMemberRepo) FindByPublicID(ctx context.Context, publicID string) (*repository.Member, error) {
	for _, m := range r.members {
		if m.PublicID == publicID {
			cp := *m
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeMemberRepo) FindLiveByEmail(ctx context.Context, workspaceID, email string) (*repository.Member, error) {
	if m := r.liveByEmail(workspaceID, email); m != nil {
		cp := *m
		return &cp, nil
	}
	return nil, nil
}

func (r *fakeMemberRepo) FindLiveByUser(ctx context.Context, workspaceID, userID string) (*repository.Member, error) {
	for _, m := range r.members {
		if m.WorkspaceID == workspaceID && m.DeletedAt == nil &&
			m.UserID != nil && *m.UserID == userID {
			cp := *m
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeMemberRepo) ListLive(ctx context.Context, workspaceID string) ([]*repository.MemberWithUser, error) {
	var out []*repository.MemberWithUser
	for _, m := range r.members {
		if m.WorkspaceID == workspaceID && m.DeletedAt == nil {
			out = append(out, &repository.MemberWithUser{Member: *m})
		}
	}
	return out, nil
}

func (r *fakeMemberRepo) SoftDelete(ctx context.Context, id int64, deletedBy string) (bool, error) {
	for _, m := range r.members {
		if m.ID == id && m.DeletedAt == nil {
			now := time.Now()
			m.DeletedAt = &now
			m.DeletedBy = &deletedBy
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeMemberRepo) Activate(ctx context.Context, publicID, userID string) (bool, error) {
	for _, m := range r.members {
		if m.PublicID == publicID && m.DeletedAt == nil && m.Status == models.MemberStatusInvited {
			m.Status = models.MemberStatusActive
			m.UserID = &userID
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeMemberRepo) CountLiveActive(ctx context.Context, workspaceID string) (int, error) {
	n := 0
	for _, m := range r.members {
		if m.WorkspaceID == workspaceID && m.DeletedAt == nil && m.Status == models.MemberStatusActive {
			n++
		}
	}
	return n, nil
}

type fakeLinkRepo struct {
	seq     int64
	links   []*repository.InviteLink
	members *fakeMemberRepo
}

func (r *fakeLinkRepo) Create(ctx context.Context, link *repository.InviteLink) error {
	for _, l := range r.links {
		if l.InviteCode == link.InviteCode {
			return repository.ErrDuplicateCode
		}
	}
	r.seq++
	link.ID = r.seq
	link.CreatedAt = time.Now()
	cp := *link
	r.links = append(r.links, &cp)
	return nil
}

func (r *fakeLinkRepo) FindByCode(ctx context.Context, code string) (*repository.InviteLink, error) {
	for _, l := range r.links {
		if l.InviteCode == code {
			cp := *l
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeLinkRepo) FindByID(ctx context.Context, id int64) (*repository.InviteLink, error) {
	for _, l := range r.links {
		if l.ID == id {
			cp := *l
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeLinkRepo) ListRedeemable(ctx context.Context, workspaceID string, now time.Time) ([]*repository.InviteLink, error) {
	var out []*repository.InviteLink
	for _, l := range r.links {
		if l.WorkspaceID == workspaceID && !l.IsUsed && !now.After(l.ExpiresAt) {
			cp := *l
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeLinkRepo) Delete(ctx context.Context, id int64) (bool, error) {
	for i, l := range r.links {
		if l.ID == id {
			r.links = append(r.links[:i], r.links[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeLinkRepo) Redeem(ctx context.Context, linkID int64, userID string, member *repository.Member) error {
	var link *repository.InviteLink
	for _, l := range r.links {
		if l.ID == linkID {
			link = l
			break
		}
	}
	if link == nil || link.IsUsed {
		return repository.ErrLinkUsed
	}
	if err := r.members.Create(ctx, member); err != nil {
		return err
	}
	now := time.Now()
	link.IsUsed = true
	link.UsedAt = &now
	link.UsedBy = &userID
	return nil
}

type fakeWorkspaceRepo struct {
	workspaces map[string]*repository.Workspace
}

func (r *fakeWorkspaceRepo) FindByID(ctx context.Context, id string) (*repository.Workspace, error) {
	return r.workspaces[id], nil
}

func (r *fakeWorkspaceRepo) FindBySlug(ctx context.Context, slug string) (*repository.Workspace, error) {
	for _, ws := range r.workspaces {
		if ws.Slug == slug {
			return ws, nil
		}
	}
	return nil, nil
}

func (r *fakeWorkspaceRepo) ListIDs(ctx context.Context) ([]string, error) {
	var ids []string
	for id := range r.workspaces {
		ids = append(ids, id)
	}
	return ids, nil
}

type fakeUserRepo struct {
	users map[string]*repository.User
}

func (r *fakeUserRepo) FindByID(ctx context.Context, id string) (*repository.User, error) {
	return r.users[id], nil
}

func (r *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*repository.User, error) {
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, nil
}

type fakeActivityRepo struct {
	entries []*repository.MembershipActivity
}

func (r *fakeActivityRepo) Log(ctx context.Context, a *repository.MembershipActivity) error {
	a.ID = int64(len(r.entries) + 1)
	a.CreatedAt = time.Now()
	r.entries = append(r.entries, a)
	return nil
}

func (r *fakeActivityRepo) ListByWorkspace(ctx context.Context, workspaceID string, limit int) ([]*repository.MembershipActivity, error) {
	var out []*repository.MembershipActivity
	for _, e := range r.entries {
		if e.WorkspaceID == workspaceID {
			out = append(out, e)
		}
	}
	return out, nil
}

// fakeBilling serves both the subscription read side and the seat write side.
type fakeBilling struct {
	subs       map[string][]models.SubscriptionView
	subsErr    error
	incErr     error
	decErr     error
	seatDeltas map[string]int
}

func (b *fakeBilling) GetSubscriptions(ctx context.Context, workspaceID string) ([]models.SubscriptionView, error) {
	if b.subsErr != nil {
		return nil, b.subsErr
	}
	return b.subs[workspaceID], nil
}

func (b *fakeBilling) IncrementSeats(ctx context.Context, subscriptionID string, delta int) error {
	if b.incErr != nil {
		return b.incErr
	}
	b.seatDeltas[subscriptionID] += delta
	return nil
}

func (b *fakeBilling) DecrementSeats(ctx context.Context, subscriptionID string, delta int) error {
	if b.decErr != nil {
		return b.decErr
	}
	b.seatDeltas[subscriptionID] -= delta
	return nil
}

type fakeMailer struct {
	sendErr error
	sent    []string
}

func (m *fakeMailer) SendMagicLink(workspaceName, to, invitedBy, memberPublicID string) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, to)
	return nil
}

// ============================================
// Test environment
// ============================================

const (
	testWorkspaceID = "ws-1"
	testAdminID     = "user-admin"
	testPlainID     = "user-plain"
	testSubID       = "sub_ext_1"
)

type testEnv struct {
	svc        InvitationService
	members    *fakeMemberRepo
	links      *fakeLinkRepo
	workspaces *fakeWorkspaceRepo
	billing    *fakeBilling
	mailer     *fakeMailer
	activity   *fakeActivityRepo
	users      *fakeUserRepo
}

func newTestEnv(t *testing.T, seatLimited bool) *testEnv {
	t.Helper()

	adminID := testAdminID
	plainID := testPlainID

	members := &fakeMemberRepo{}
	links := &fakeLinkRepo{members: members}
	workspaces := &fakeWorkspaceRepo{workspaces: map[string]*repository.Workspace{
		testWorkspaceID: {ID: testWorkspaceID, Name: "Acme", Slug: "acme"},
	}}
	users := &fakeUserRepo{users: map[string]*repository.User{
		adminID: {ID: adminID, Email: "admin@acme.test", Name: "Ada Admin"},
		plainID: {ID: plainID, Email: "plain@acme.test", Name: "Pat Plain"},
	}}
	activity := &fakeActivityRepo{}
	bill := &fakeBilling{
		subs: map[string][]models.SubscriptionView{
			testWorkspaceID: {{
				ID:         "sub-1",
				PlanTier:   models.PlanTierTeam,
				Status:     "active",
				SeatCount:  2,
				ExternalID: testSubID,
			}},
		},
		seatDeltas: map[string]int{},
	}
	mailer := &fakeMailer{}

	require.NoError(t, members.Create(context.Background(), &repository.Member{
		WorkspaceID: testWorkspaceID,
		Email:       "admin@acme.test",
		UserID:      &adminID,
		Role:        models.MemberRoleAdmin,
		Status:      models.MemberStatusActive,
	}))
	require.NoError(t, members.Create(context.Background(), &repository.Member{
		WorkspaceID: testWorkspaceID,
		Email:       "plain@acme.test",
		UserID:      &plainID,
		Role:        models.MemberRoleMember,
		Status:      models.MemberStatusActive,
	}))

	svc := NewInvitationService(
		members, links, workspaces, users, activity,
		bill, bill, mailer, nil,
		seatLimited, "https://app.acme.test/",
	)

	return &testEnv{
		svc:        svc,
		members:    members,
		links:      links,
		workspaces: workspaces,
		billing:    bill,
		mailer:     mailer,
		activity:   activity,
		users:      users,
	}
}

// ============================================
// Email invite flow
// ============================================

func TestInviteByEmail(t *testing.T) {
	ctx := context.Background()

	t.Run("creates invited member, reserves seat and sends mail", func(t *testing.T) {
		env := newTestEnv(t, true)

		resp, err := env.svc.InviteByEmail(ctx, testWorkspaceID, testAdminID, "New@Acme.Test")
		require.NoError(t, err)
		require.NotEmpty(t, resp.MemberID)

		member, err := env.members.FindByPublicID(ctx, resp.MemberID)
		require.NoError(t, err)
		require.NotNil(t, member)
		assert.Equal(t, "new@acme.test", member.Email)
		assert.Equal(t, models.MemberRoleMember, member.Role)
		assert.Equal(t, models.MemberStatusInvited, member.Status)

		assert.Equal(t, 1, env.billing.seatDeltas[testSubID])
		assert.Equal(t, []string{"new@acme.test"}, env.mailer.sent)
	})

	t.Run("rejects duplicate live email with conflict", func(t *testing.T) {
		env := newTestEnv(t, true)

		_, err := env.svc.InviteByEmail(ctx, testWorkspaceID, testAdminID, "new@acme.test")
		require.NoError(t, err)

		_, err = env.svc.InviteByEmail(ctx, testWorkspaceID, testAdminID, "NEW@acme.test")
		assert.True(t, apperr.IsKind(err, apperr.KindConflict), "got %v", err)
	})

	t.Run("allows re-invite after removal", func(t *testing.T) {
		env := newTestEnv(t, true)

		first, err := env.svc.InviteByEmail(ctx, testWorkspaceID, testAdminID, "new@acme.test")
		require.NoError(t, err)
		_, err = env.svc.RemoveMember(ctx, testWorkspaceID, testAdminID, first.MemberID)
		require.NoError(t, err)

		second, err := env.svc.InviteByEmail(ctx, testWorkspaceID, testAdminID, "new@acme.test")
		require.NoError(t, err)
		assert.NotEqual(t, first.MemberID, second.MemberID)
	})

	t.Run("rejects non-admin inviter", func(t *testing.T) {
		env := newTestEnv(t, true)

		_, err := env.svc.InviteByEmail(ctx, testWorkspaceID, testPlainID, "new@acme.test")
		assert.True(t, apperr.IsKind(err, apperr.KindForbidden), "got %v", err)
	})

	t.Run("rejects invite without a paid plan", func(t *testing.T) {
		env := newTestEnv(t, true)
		env.billing.subs[testWorkspaceID] = []models.SubscriptionView{
			{ID: "sub-1", PlanTier: models.PlanTierFree, Status: "active"},
		}

		_, err := env.svc.InviteByEmail(ctx, testWorkspaceID, testAdminID, "new@acme.test")
		assert.True(t, apperr.IsKind(err, apperr.KindForbidden), "got %v", err)
	})

	t.Run("fails closed when the seat increment fails", func(t *testing.T) {
		env := newTestEnv(t, true)
		env.billing.incErr = errors.New("billing down")

		_, err := env.svc.InviteByEmail(ctx, testWorkspaceID, testAdminID, "new@acme.test")
		assert.True(t, apperr.IsKind(err, apperr.KindInternal), "got %v", err)

		member, err := env.members.FindLiveByEmail(ctx, testWorkspaceID, "new@acme.test")
		require.NoError(t, err)
		assert.Nil(t, member, "no member row may exist after a failed seat reservation")
		assert.Empty(t, env.mailer.sent)
	})

	t.Run("rolls back member and seat when mail dispatch fails", func(t *testing.T) {
		env := newTestEnv(t, true)
		env.mailer.sendErr = errors.New("smtp refused")

		_, err := env.svc.InviteByEmail(ctx, testWorkspaceID, testAdminID, "new@acme.test")
		assert.True(t, apperr.IsKind(err, apperr.KindInternal), "got %v", err)

		member, err := env.members.FindLiveByEmail(ctx, testWorkspaceID, "new@acme.test")
		require.NoError(t, err)
		assert.Nil(t, member, "ghost invite must be rolled back")
		assert.Equal(t, 0, env.billing.seatDeltas[testSubID], "reserved seat must be released")
	})

	t.Run("skips billing entirely when seat limiting is off", func(t *testing.T) {
		env := newTestEnv(t, false)
		env.billing.subsErr = errors.New("billing unreachable")

		_, err := env.svc.InviteByEmail(ctx, testWorkspaceID, testAdminID, "new@acme.test")
		require.NoError(t, err)
		assert.Empty(t, env.billing.seatDeltas)
	})

	t.Run("unknown workspace is not found", func(t *testing.T) {
		env := newTestEnv(t, true)

		_, err := env.svc.InviteByEmail(ctx, "ws-missing", testAdminID, "new@acme.test")
		assert.True(t, apperr.IsKind(err, apperr.KindNotFound), "got %v", err)
	})
}

func TestActivateMember(t *testing.T) {
	ctx := context.Background()

	newUserID := "user-new"
	inviteNewMember := func(t *testing.T) (*testEnv, string) {
		t.Helper()
		env := newTestEnv(t, true)
		env.users.users[newUserID] = &repository.User{
			ID: newUserID, Email: "new@acme.test", Name: "Nia New",
		}
		resp, err := env.svc.InviteByEmail(ctx, testWorkspaceID, testAdminID, "new@acme.test")
		require.NoError(t, err)
		return env, resp.MemberID
	}

	t.Run("the invitee completes the invite exactly once", func(t *testing.T) {
		env, memberID := inviteNewMember(t)

		require.NoError(t, env.svc.ActivateMember(ctx, memberID, newUserID))

		member, err := env.members.FindByPublicID(ctx, memberID)
		require.NoError(t, err)
		assert.Equal(t, models.MemberStatusActive, member.Status)
		require.NotNil(t, member.UserID)
		assert.Equal(t, newUserID, *member.UserID)

		// The transition is one-shot.
		err = env.svc.ActivateMember(ctx, memberID, newUserID)
		assert.True(t, apperr.IsKind(err, apperr.KindConflict), "got %v", err)

		err = env.svc.ActivateMember(ctx, uuid.New().String(), newUserID)
		assert.True(t, apperr.IsKind(err, apperr.KindNotFound), "got %v", err)
	})

	t.Run("email matching is case-insensitive", func(t *testing.T) {
		env, memberID := inviteNewMember(t)
		env.users.users[newUserID].Email = "New@Acme.Test"

		require.NoError(t, env.svc.ActivateMember(ctx, memberID, newUserID))
	})

	t.Run("a different account cannot claim the invite", func(t *testing.T) {
		env := newTestEnv(t, true)

		// bob has no account yet, so the member row carries no user id.
		resp, err := env.svc.InviteByEmail(ctx, testWorkspaceID, testAdminID, "bob@acme.test")
		require.NoError(t, err)

		// plain@acme.test is a live member who can read the invited member's
		// public id off the roster. That id alone must not let them bind
		// their own account to the invite.
		err = env.svc.ActivateMember(ctx, resp.MemberID, testPlainID)
		assert.True(t, apperr.IsKind(err, apperr.KindForbidden), "got %v", err)

		member, findErr := env.members.FindByPublicID(ctx, resp.MemberID)
		require.NoError(t, findErr)
		assert.Equal(t, models.MemberStatusInvited, member.Status, "invite must stay pending")
		assert.Nil(t, member.UserID)
	})

	t.Run("a member bound to an account rejects other callers", func(t *testing.T) {
		env, memberID := inviteNewMember(t)

		// The invitee already had an account when invited, so the member row
		// carries their user id. An impostor with the same email domain but a
		// different account must be turned away even before the email check.
		imposterID := "user-imposter"
		env.users.users[imposterID] = &repository.User{
			ID: imposterID, Email: "new@acme.test", Name: "Ira Imposter",
		}

		member, err := env.members.FindByPublicID(ctx, memberID)
		require.NoError(t, err)
		require.NotNil(t, member.UserID, "invitee account was linked at invite time")

		err = env.svc.ActivateMember(ctx, memberID, imposterID)
		assert.True(t, apperr.IsKind(err, apperr.KindForbidden), "got %v", err)
	})

	t.Run("unknown caller is not found", func(t *testing.T) {
		env, memberID := inviteNewMember(t)

		err := env.svc.ActivateMember(ctx, memberID, "user-ghost")
		assert.True(t, apperr.IsKind(err, apperr.KindNotFound), "got %v", err)
	})
}

func TestRemoveMember(t *testing.T) {
	ctx := context.Background()

	t.Run("soft-deletes and releases the seat", func(t *testing.T) {
		env := newTestEnv(t, true)
		resp, err := env.svc.InviteByEmail(ctx, testWorkspaceID, testAdminID, "new@acme.test")
		require.NoError(t, err)

		removed, err := env.svc.RemoveMember(ctx, testWorkspaceID, testAdminID, resp.MemberID)
		require.NoError(t, err)
		assert.True(t, removed.Success)
		assert.True(t, removed.SeatReleased)
		assert.Equal(t, 0, env.billing.seatDeltas[testSubID])

		live, err := env.members.FindLiveByEmail(ctx, testWorkspaceID, "new@acme.test")
		require.NoError(t, err)
		assert.Nil(t, live)
	})

	t.Run("removal survives a failed seat decrement", func(t *testing.T) {
		env := newTestEnv(t, true)
		resp, err := env.svc.InviteByEmail(ctx, testWorkspaceID, testAdminID, "new@acme.test")
		require.NoError(t, err)

		env.billing.decErr = errors.New("billing down")
		removed, err := env.svc.RemoveMember(ctx, testWorkspaceID, testAdminID, resp.MemberID)
		require.NoError(t, err)
		assert.True(t, removed.Success)
		assert.False(t, removed.SeatReleased)

		live, err := env.members.FindLiveByEmail(ctx, testWorkspaceID, "new@acme.test")
		require.NoError(t, err)
		assert.Nil(t, live, "membership removal is authoritative even when billing fails")
	})

	t.Run("rejects non-admin caller", func(t *testing.T) {
		env := newTestEnv(t, true)
		resp, err := env.svc.InviteByEmail(ctx, testWorkspaceID, testAdminID, "new@acme.test")
		require.NoError(t, err)

		_, err = env.svc.RemoveMember(ctx, testWorkspaceID, testPlainID, resp.MemberID)
		assert.True(t, apperr.IsKind(err, apperr.KindForbidden), "got %v", err)
	})

	t.Run("unknown member is not found", func(t *testing.T) {
		env := newTestEnv(t, true)
		_, err := env.svc.RemoveMember(ctx, testWorkspaceID, testAdminID, uuid.New().String())
		assert.True(t, apperr.IsKind(err, apperr.KindNotFound), "got %v", err)
	})
}

// ============================================
// Shareable link flow
// ============================================

func TestGenerateInviteLink(t *testing.T) {
	ctx := context.Background()

	t.Run("returns url, code and expiry", func(t *testing.T) {
		env := newTestEnv(t, true)

		link, err := env.svc.GenerateInviteLink(ctx, testWorkspaceID, testAdminID, "", 0)
		require.NoError(t, err)
		assert.Equal(t, "https://app.acme.test/invite/"+link.Code, link.URL)
		assert.WithinDuration(t, time.Now().AddDate(0, 0, models.InviteLinkDefaultDays), link.ExpiresAt, time.Minute)

		stored, err := env.links.FindByCode(ctx, link.Code)
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.Equal(t, models.MemberRoleMember, stored.Role)
		assert.False(t, stored.IsUsed)
	})

	t.Run("rejects out-of-range expiry before writing", func(t *testing.T) {
		env := newTestEnv(t, true)

		for _, days := range []int{-1, 31, 365} {
			_, err := env.svc.GenerateInviteLink(ctx, testWorkspaceID, testAdminID, models.MemberRoleMember, days)
			assert.True(t, apperr.IsKind(err, apperr.KindBadRequest), "days=%d got %v", days, err)
		}
		assert.Empty(t, env.links.links)
	})

	t.Run("rejects guest role", func(t *testing.T) {
		env := newTestEnv(t, true)
		_, err := env.svc.GenerateInviteLink(ctx, testWorkspaceID, testAdminID, models.MemberRoleGuest, 7)
		assert.True(t, apperr.IsKind(err, apperr.KindBadRequest), "got %v", err)
	})

	t.Run("rejects non-admin caller", func(t *testing.T) {
		env := newTestEnv(t, true)
		_, err := env.svc.GenerateInviteLink(ctx, testWorkspaceID, testPlainID, models.MemberRoleMember, 7)
		assert.True(t, apperr.IsKind(err, apperr.KindForbidden), "got %v", err)
	})

	t.Run("requires a paid plan but consumes no seat", func(t *testing.T) {
		env := newTestEnv(t, true)

		_, err := env.svc.GenerateInviteLink(ctx, testWorkspaceID, testAdminID, models.MemberRoleAdmin, 7)
		require.NoError(t, err)
		assert.Empty(t, env.billing.seatDeltas, "link creation must not touch seats")

		env.billing.subs[testWorkspaceID] = nil
		_, err = env.svc.GenerateInviteLink(ctx, testWorkspaceID, testAdminID, models.MemberRoleMember, 7)
		assert.True(t, apperr.IsKind(err, apperr.KindForbidden), "got %v", err)
	})
}

func TestRedeemInviteLink(t *testing.T) {
	ctx := context.Background()

	joiner := "user-joiner"
	addJoiner := func(env *testEnv) {
		env.users.users[joiner] = &repository.User{ID: joiner, Email: "joiner@acme.test", Name: "Joe Joiner"}
	}

	t.Run("creates an active member and consumes the link", func(t *testing.T) {
		env := newTestEnv(t, true)
		addJoiner(env)

		link, err := env.svc.GenerateInviteLink(ctx, testWorkspaceID, testAdminID, models.MemberRoleMember, 7)
		require.NoError(t, err)

		resp, err := env.svc.RedeemInviteLink(ctx, link.Code, joiner)
		require.NoError(t, err)
		assert.True(t, resp.Success)
		assert.Equal(t, testWorkspaceID, resp.WorkspaceID)
		assert.Equal(t, "acme", resp.WorkspaceSlug)

		member, err := env.members.FindLiveByUser(ctx, testWorkspaceID, joiner)
		require.NoError(t, err)
		require.NotNil(t, member)
		assert.Equal(t, models.MemberStatusActive, member.Status, "link joiners skip the invited state")

		stored, err := env.links.FindByCode(ctx, link.Code)
		require.NoError(t, err)
		assert.True(t, stored.IsUsed)

		// No seat adjustment on this path.
		assert.Empty(t, env.billing.seatDeltas)
	})

	t.Run("second redemption fails like an unknown code", func(t *testing.T) {
		env := newTestEnv(t, true)
		addJoiner(env)
		env.users.users["user-late"] = &repository.User{ID: "user-late", Email: "late@acme.test", Name: "Lee Late"}

		link, err := env.svc.GenerateInviteLink(ctx, testWorkspaceID, testAdminID, models.MemberRoleMember, 7)
		require.NoError(t, err)

		_, err = env.svc.RedeemInviteLink(ctx, link.Code, joiner)
		require.NoError(t, err)

		_, err = env.svc.RedeemInviteLink(ctx, link.Code, "user-late")
		assert.True(t, apperr.IsKind(err, apperr.KindBadRequest), "got %v", err)
	})

	t.Run("expired link is rejected with the same message as unknown", func(t *testing.T) {
		env := newTestEnv(t, true)
		addJoiner(env)

		expired := &repository.InviteLink{
			WorkspaceID: testWorkspaceID,
			InviteCode:  "expired-code",
			Role:        models.MemberRoleMember,
			ExpiresAt:   time.Now().Add(-time.Hour),
		}
		require.NoError(t, env.links.Create(ctx, expired))

		_, errExpired := env.svc.RedeemInviteLink(ctx, "expired-code", joiner)
		_, errUnknown := env.svc.RedeemInviteLink(ctx, "no-such-code", joiner)

		require.Error(t, errExpired)
		require.Error(t, errUnknown)
		assert.True(t, apperr.IsKind(errExpired, apperr.KindBadRequest))
		assert.True(t, apperr.IsKind(errUnknown, apperr.KindBadRequest))
		assert.Equal(t, errUnknown.Error(), errExpired.Error(),
			"redemption must not reveal whether a code exists")
	})

	t.Run("existing member cannot redeem into the same workspace", func(t *testing.T) {
		env := newTestEnv(t, true)

		link, err := env.svc.GenerateInviteLink(ctx, testWorkspaceID, testAdminID, models.MemberRoleMember, 7)
		require.NoError(t, err)

		_, err = env.svc.RedeemInviteLink(ctx, link.Code, testPlainID)
		assert.True(t, apperr.IsKind(err, apperr.KindConflict), "got %v", err)

		stored, err := env.links.FindByCode(ctx, link.Code)
		require.NoError(t, err)
		assert.False(t, stored.IsUsed, "a rejected redemption must not consume the link")
	})

	t.Run("workspace deleted after link creation is not found", func(t *testing.T) {
		env := newTestEnv(t, true)
		addJoiner(env)

		link, err := env.svc.GenerateInviteLink(ctx, testWorkspaceID, testAdminID, models.MemberRoleMember, 7)
		require.NoError(t, err)

		delete(env.workspaces.workspaces, testWorkspaceID)

		_, err = env.svc.RedeemInviteLink(ctx, link.Code, joiner)
		assert.True(t, apperr.IsKind(err, apperr.KindNotFound), "got %v", err)

		stored, findErr := env.links.FindByCode(ctx, link.Code)
		require.NoError(t, findErr)
		assert.False(t, stored.IsUsed, "link must survive a failed redemption")
	})

	t.Run("unknown redeeming user is not found", func(t *testing.T) {
		env := newTestEnv(t, true)

		link, err := env.svc.GenerateInviteLink(ctx, testWorkspaceID, testAdminID, models.MemberRoleMember, 7)
		require.NoError(t, err)

		_, err = env.svc.RedeemInviteLink(ctx, link.Code, "user-ghost")
		assert.True(t, apperr.IsKind(err, apperr.KindNotFound), "got %v", err)

		stored, findErr := env.links.FindByCode(ctx, link.Code)
		require.NoError(t, findErr)
		assert.False(t, stored.IsUsed, "link must survive a failed redemption")
	})

	t.Run("link role carries onto the new member", func(t *testing.T) {
		env := newTestEnv(t, true)
		addJoiner(env)

		link, err := env.svc.GenerateInviteLink(ctx, testWorkspaceID, testAdminID, models.MemberRoleAdmin, 7)
		require.NoError(t, err)

		_, err = env.svc.RedeemInviteLink(ctx, link.Code, joiner)
		require.NoError(t, err)

		member, err := env.members.FindLiveByUser(ctx, testWorkspaceID, joiner)
		require.NoError(t, err)
		assert.Equal(t, models.MemberRoleAdmin, member.Role)
	})
}

func TestGetInviteInfo(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, true)

	link, err := env.svc.GenerateInviteLink(ctx, testWorkspaceID, testAdminID, models.MemberRoleMember, 7)
	require.NoError(t, err)

	info, err := env.svc.GetInviteInfo(ctx, link.Code)
	require.NoError(t, err)
	assert.Equal(t, "Acme", info.WorkspaceName)
	assert.Equal(t, "acme", info.WorkspaceSlug)
	require.NotNil(t, info.InviterName)
	assert.Equal(t, "Ada Admin", *info.InviterName)
	assert.False(t, info.IsExpired)
	assert.False(t, info.IsUsed)

	// Unlike redemption, the preview distinguishes expired from absent.
	expired := &repository.InviteLink{
		WorkspaceID: testWorkspaceID,
		InviteCode:  "expired-code",
		Role:        models.MemberRoleMember,
		ExpiresAt:   time.Now().Add(-time.Hour),
	}
	require.NoError(t, env.links.Create(ctx, expired))

	info, err = env.svc.GetInviteInfo(ctx, "expired-code")
	require.NoError(t, err)
	assert.True(t, info.IsExpired)

	_, err = env.svc.GetInviteInfo(ctx, "no-such-code")
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound), "got %v", err)
}

func TestListInviteLinks(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, true)

	live, err := env.svc.GenerateInviteLink(ctx, testWorkspaceID, testAdminID, models.MemberRoleMember, 7)
	require.NoError(t, err)

	expired := &repository.InviteLink{
		WorkspaceID: testWorkspaceID,
		InviteCode:  "expired-code",
		Role:        models.MemberRoleMember,
		ExpiresAt:   time.Now().Add(-time.Hour),
	}
	require.NoError(t, env.links.Create(ctx, expired))

	links, err := env.svc.ListInviteLinks(ctx, testWorkspaceID, testAdminID)
	require.NoError(t, err)
	require.Len(t, links, 1, "expired links are filtered at read time")
	assert.Equal(t, live.Code, links[0].Code)

	_, err = env.svc.ListInviteLinks(ctx, testWorkspaceID, testPlainID)
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden), "got %v", err)
}

func TestDeleteInviteLink(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, true)

	link, err := env.svc.GenerateInviteLink(ctx, testWorkspaceID, testAdminID, models.MemberRoleMember, 7)
	require.NoError(t, err)
	stored, err := env.links.FindByCode(ctx, link.Code)
	require.NoError(t, err)

	err = env.svc.DeleteInviteLink(ctx, testPlainID, stored.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden), "got %v", err)

	require.NoError(t, env.svc.DeleteInviteLink(ctx, testAdminID, stored.ID))

	gone, err := env.links.FindByCode(ctx, link.Code)
	require.NoError(t, err)
	assert.Nil(t, gone)

	err = env.svc.DeleteInviteLink(ctx, testAdminID, stored.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound), "got %v", err)
}

func TestGenerateInviteCodeUniqueness(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 64; i++ {
		code, err := generateInviteCode()
		require.NoError(t, err)
		assert.False(t, seen[code], "code %q repeated", code)
		assert.NotContains(t, code, "+")
		assert.NotContains(t, code, "/")
		seen[code] = true
	}
}

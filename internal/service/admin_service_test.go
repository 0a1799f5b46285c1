package service

import (
	"context"
	"testing"

	"github.com/aquawaran/Clon-Official/internal/models"
	"github.com/aquawaran/Clon-Official/internal/notifications"
	"github.com/aquawaran/Clon-Official/internal/repository"
	"github.com/aquawaran/Clon-Official/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAdminFixture(t *testing.T) (*services, *models.User, *models.User) {
	t.Helper()
	svc := newServices(t, "")
	creator := testutil.CreateUser(t, svc.db, "Creator")
	require.NoError(t, svc.db.Model(creator).Update("is_creator", true).Error)
	member := testutil.CreateUser(t, svc.db, "Member")
	return svc, creator, member
}

func TestAdmin_RequiresCreator(t *testing.T) {
	svc, _, member := newAdminFixture(t)
	ctx := context.Background()

	_, err := svc.admin.ListUsers(ctx, member.ID, repository.UserFilter{})
	assertCode(t, err, models.CodeForbidden)
	_, err = svc.admin.SetBan(ctx, member.ID, member.ID, true)
	assertCode(t, err, models.CodeForbidden)
	_, err = svc.admin.VerificationRequests(ctx, member.ID)
	assertCode(t, err, models.CodeForbidden)
	assertCode(t, svc.admin.ApproveVerification(ctx, member.ID, member.ID), models.CodeForbidden)
}

func TestAdmin_SetBan(t *testing.T) {
	svc, creator, member := newAdminFixture(t)
	ctx := context.Background()

	_, err := svc.admin.SetBan(ctx, creator.ID, creator.ID, true)
	assertCode(t, err, models.CodeValidation)

	user, err := svc.admin.SetBan(ctx, creator.ID, member.ID, true)
	require.NoError(t, err)
	assert.True(t, user.IsBanned)

	banned, err := svc.admin.ListUsers(ctx, creator.ID, repository.UserFilter{BannedOnly: true})
	require.NoError(t, err)
	require.Len(t, banned, 1)
	assert.Equal(t, member.ID, banned[0].ID)

	// Banned users cannot react or comment.
	post := testutil.CreatePost(t, svc.db, creator.ID, "rules")
	_, err = svc.posts.ToggleReaction(ctx, member.ID, post.ID, "like")
	assertCode(t, err, models.CodeForbidden)
	_, err = svc.posts.AddComment(ctx, member.ID, post.ID, "hi")
	assertCode(t, err, models.CodeForbidden)

	pushed := svc.events.OfKind(notifications.EventNotification)
	require.Len(t, pushed, 1)
	assert.Equal(t, member.ID, pushed[0].To)

	_, err = svc.admin.SetBan(ctx, creator.ID, "ghost", true)
	assertCode(t, err, models.CodeNotFound)
}

func TestAdmin_VerificationFlow(t *testing.T) {
	svc, creator, member := newAdminFixture(t)
	ctx := context.Background()

	assertCode(t, svc.admin.RequestVerification(ctx, member.ID, "  "), models.CodeValidation)
	require.NoError(t, svc.admin.RequestVerification(ctx, member.ID, "I am the real Member"))

	pending, err := svc.admin.VerificationRequests(ctx, creator.ID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, member.ID, pending[0].ID)

	require.NoError(t, svc.admin.ApproveVerification(ctx, creator.ID, member.ID))
	user, err := svc.users.Get(ctx, member.ID)
	require.NoError(t, err)
	assert.True(t, user.IsVerified)

	// Nothing pending any more.
	assertCode(t, svc.admin.RejectVerification(ctx, creator.ID, member.ID), models.CodeNotFound)
	assertCode(t, svc.admin.RequestVerification(ctx, member.ID, "again"), models.CodeConflict)

	list, err := svc.notifications.List(ctx, member.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.NotificationVerificationApproved, list[0].Type)
}

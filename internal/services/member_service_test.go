package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/clubworks/atrium/internal/database/testutil"
	"github.com/clubworks/atrium/internal/models"
)

func TestMemberServiceListActiveWithTags(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	svc, err := NewMemberService(db)
	require.NoError(t, err)

	ctx := context.Background()

	active := seedMember(t, db, "11111111-0000-0000-0000-000000000001", "Alice")
	seedMember(t, db, "11111111-0000-0000-0000-000000000002", "Bob")

	pending := models.Member{
		BaseModel:        models.BaseModel{ID: "11111111-0000-0000-0000-000000000003"},
		Name:             "Carol",
		MembershipStatus: models.MembershipStatusPending,
	}
	require.NoError(t, db.Create(&pending).Error)

	tag := seedTag(t, db, "22222222-0000-0000-0000-000000000001", "Technology", models.TagCategoryIndustry)
	assignTag(t, db, active.ID, tag.ID)

	members, err := svc.ListActiveWithTags(ctx)
	require.NoError(t, err)
	require.Len(t, members, 2, "pending members are not part of the pool")

	var alice *models.Member
	for i := range members {
		if members[i].ID == active.ID {
			alice = &members[i]
		}
	}
	require.NotNil(t, alice)
	require.Len(t, alice.Tags, 1)
	require.Equal(t, "Technology", alice.Tags[0].Name)
}

func TestMemberServiceListExcludesSoftDeleted(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	svc, err := NewMemberService(db)
	require.NoError(t, err)

	member := seedMember(t, db, "11111111-0000-0000-0000-000000000001", "Alice")
	require.NoError(t, db.Delete(&models.Member{}, "id = ?", member.ID).Error)

	members, err := svc.ListActiveWithTags(context.Background())
	require.NoError(t, err)
	require.Empty(t, members)
}

func TestMemberServiceQuota(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	svc, err := NewMemberService(db)
	require.NoError(t, err)

	ctx := context.Background()

	member := seedMember(t, db, "11111111-0000-0000-0000-000000000001", "Alice")

	quota, err := svc.Quota(ctx, member.ID)
	require.NoError(t, err)
	require.Equal(t, 2, quota.Quota)
	require.Equal(t, 0, quota.Used)
	require.False(t, quota.Exhausted())

	require.NoError(t, db.Model(&models.Member{}).Where("id = ?", member.ID).
		UpdateColumn("intros_used_this_month", 2).Error)

	quota, err = svc.Quota(ctx, member.ID)
	require.NoError(t, err)
	require.True(t, quota.Exhausted())

	_, err = svc.Quota(ctx, "11111111-0000-0000-0000-00000000dead")
	require.ErrorIs(t, err, ErrMemberNotFound)
}

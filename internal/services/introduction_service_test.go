package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/clubworks/atrium/internal/database/testutil"
	"github.com/clubworks/atrium/internal/models"
	apperrors "github.com/clubworks/atrium/pkg/errors"
)

func newIntroService(t *testing.T, db *gorm.DB, opts ...IntroductionServiceOption) *IntroductionService {
	t.Helper()

	svc, err := NewIntroductionService(db, opts...)
	require.NoError(t, err)
	return svc
}

func requireInvalidTransition(t *testing.T, err error) *apperrors.AppError {
	t.Helper()

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, apperrors.ErrInvalidTransition.Code, appErr.Code)
	return appErr
}

func TestIntroductionCreateCanonicalOrdering(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc := newIntroService(t, db)
	ctx := context.Background()

	alice := seedMember(t, db, "11111111-0000-0000-0000-000000000002", "Alice")
	bob := seedMember(t, db, "11111111-0000-0000-0000-000000000001", "Bob")

	// Supplied in the reverse of canonical order.
	intro, err := svc.Create(ctx, CreateIntroductionInput{MemberAID: alice.ID, MemberBID: bob.ID})
	require.NoError(t, err)
	require.Equal(t, bob.ID, intro.MemberAID)
	require.Equal(t, alice.ID, intro.MemberBID)
	require.Equal(t, models.IntroStatusSuggested, intro.Status)
	require.False(t, intro.SuggestedAt.IsZero())
}

func TestIntroductionCreateValidation(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc := newIntroService(t, db)
	ctx := context.Background()

	alice := seedMember(t, db, "11111111-0000-0000-0000-000000000001", "Alice")

	_, err := svc.Create(ctx, CreateIntroductionInput{MemberAID: alice.ID, MemberBID: alice.ID})
	require.Error(t, err)

	score := 1.5
	_, err = svc.Create(ctx, CreateIntroductionInput{
		MemberAID:  alice.ID,
		MemberBID:  "11111111-0000-0000-0000-000000000002",
		MatchScore: &score,
	})
	require.Error(t, err)

	// Both members must exist.
	_, err = svc.Create(ctx, CreateIntroductionInput{
		MemberAID: alice.ID,
		MemberBID: "11111111-0000-0000-0000-00000000dead",
	})
	require.ErrorIs(t, err, ErrMemberNotFound)
}

func TestIntroductionCreateDuplicatePair(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc := newIntroService(t, db)
	ctx := context.Background()

	alice := seedMember(t, db, "11111111-0000-0000-0000-000000000001", "Alice")
	bob := seedMember(t, db, "11111111-0000-0000-0000-000000000002", "Bob")

	_, err := svc.Create(ctx, CreateIntroductionInput{MemberAID: alice.ID, MemberBID: bob.ID})
	require.NoError(t, err)

	// Same pair in the opposite order is still a duplicate.
	_, err = svc.Create(ctx, CreateIntroductionInput{MemberAID: bob.ID, MemberBID: alice.ID})
	require.ErrorIs(t, err, apperrors.ErrDuplicatePair)
}

func TestIntroductionCreateAllowedAfterDecline(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc := newIntroService(t, db)
	ctx := context.Background()

	alice := seedMember(t, db, "11111111-0000-0000-0000-000000000001", "Alice")
	bob := seedMember(t, db, "11111111-0000-0000-0000-000000000002", "Bob")

	first, err := svc.Create(ctx, CreateIntroductionInput{MemberAID: alice.ID, MemberBID: bob.ID})
	require.NoError(t, err)

	_, err = svc.Decline(ctx, first.ID)
	require.NoError(t, err)

	second, err := svc.Create(ctx, CreateIntroductionInput{MemberAID: alice.ID, MemberBID: bob.ID})
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)
}

func TestIntroductionCreateIncrementsQuotaUsage(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc := newIntroService(t, db)
	ctx := context.Background()

	alice := seedMember(t, db, "11111111-0000-0000-0000-000000000001", "Alice")
	bob := seedMember(t, db, "11111111-0000-0000-0000-000000000002", "Bob")

	_, err := svc.Create(ctx, CreateIntroductionInput{MemberAID: alice.ID, MemberBID: bob.ID})
	require.NoError(t, err)

	for _, id := range []string{alice.ID, bob.ID} {
		var member models.Member
		require.NoError(t, db.First(&member, "id = ?", id).Error)
		require.Equal(t, 1, member.IntrosUsedThisMonth)
	}
}

func TestIntroductionFullLifecycle(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	frozen := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)
	svc := newIntroService(t, db, WithClock(func() time.Time { return frozen }))
	ctx := context.Background()

	alice := seedMember(t, db, "11111111-0000-0000-0000-000000000001", "Alice")
	bob := seedMember(t, db, "11111111-0000-0000-0000-000000000002", "Bob")

	intro, err := svc.Create(ctx, CreateIntroductionInput{MemberAID: alice.ID, MemberBID: bob.ID})
	require.NoError(t, err)
	require.Equal(t, frozen, intro.SuggestedAt.UTC())

	intro, err = svc.Approve(ctx, intro.ID, "admin-1")
	require.NoError(t, err)
	require.Equal(t, models.IntroStatusApproved, intro.Status)
	require.NotNil(t, intro.ApprovedAt)
	require.Equal(t, frozen, intro.ApprovedAt.UTC())
	require.NotNil(t, intro.ApprovedBy)
	require.Equal(t, "admin-1", *intro.ApprovedBy)

	intro, err = svc.MarkSent(ctx, intro.ID)
	require.NoError(t, err)
	require.Equal(t, models.IntroStatusSent, intro.Status)
	require.NotNil(t, intro.SentAt)

	intro, err = svc.Accept(ctx, intro.ID)
	require.NoError(t, err)
	require.Equal(t, models.IntroStatusAccepted, intro.Status)
	require.NotNil(t, intro.AcceptedAt)

	intro, err = svc.Complete(ctx, intro.ID)
	require.NoError(t, err)
	require.Equal(t, models.IntroStatusCompleted, intro.Status)
	require.True(t, intro.IsTerminal())
}

func TestIntroductionSkippingStagesRejected(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc := newIntroService(t, db)
	ctx := context.Background()

	alice := seedMember(t, db, "11111111-0000-0000-0000-000000000001", "Alice")
	bob := seedMember(t, db, "11111111-0000-0000-0000-000000000002", "Bob")

	intro, err := svc.Create(ctx, CreateIntroductionInput{MemberAID: alice.ID, MemberBID: bob.ID})
	require.NoError(t, err)

	// Suggested cannot jump straight to sent, accepted or completed.
	_, err = svc.MarkSent(ctx, intro.ID)
	requireInvalidTransition(t, err)
	_, err = svc.Accept(ctx, intro.ID)
	requireInvalidTransition(t, err)
	_, err = svc.Complete(ctx, intro.ID)
	requireInvalidTransition(t, err)
}

func TestIntroductionDeclineFromEveryNonTerminalState(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc := newIntroService(t, db)
	ctx := context.Background()

	members := make([]*models.Member, 0, 8)
	for i := 0; i < 8; i++ {
		id := "11111111-0000-0000-0000-00000000000" + string(rune('1'+i))
		members = append(members, seedMember(t, db, id, "Member"+string(rune('A'+i))))
	}

	advance := map[string][]func(context.Context, string) error{
		models.IntroStatusSuggested: nil,
		models.IntroStatusApproved: {
			func(ctx context.Context, id string) error { _, err := svc.Approve(ctx, id, ""); return err },
		},
		models.IntroStatusSent: {
			func(ctx context.Context, id string) error { _, err := svc.Approve(ctx, id, ""); return err },
			func(ctx context.Context, id string) error { _, err := svc.MarkSent(ctx, id); return err },
		},
		models.IntroStatusAccepted: {
			func(ctx context.Context, id string) error { _, err := svc.Approve(ctx, id, ""); return err },
			func(ctx context.Context, id string) error { _, err := svc.MarkSent(ctx, id); return err },
			func(ctx context.Context, id string) error { _, err := svc.Accept(ctx, id); return err },
		},
	}

	pair := 0
	for status, steps := range advance {
		intro, err := svc.Create(ctx, CreateIntroductionInput{
			MemberAID: members[pair*2].ID,
			MemberBID: members[pair*2+1].ID,
		})
		require.NoError(t, err)
		pair++

		for _, step := range steps {
			require.NoError(t, step(ctx, intro.ID))
		}

		declined, err := svc.Decline(ctx, intro.ID)
		require.NoError(t, err, "decline from %s", status)
		require.Equal(t, models.IntroStatusDeclined, declined.Status)
		require.True(t, declined.IsTerminal())
	}
}

func TestIntroductionTerminalStatesRejectAllEvents(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc := newIntroService(t, db)
	ctx := context.Background()

	alice := seedMember(t, db, "11111111-0000-0000-0000-000000000001", "Alice")
	bob := seedMember(t, db, "11111111-0000-0000-0000-000000000002", "Bob")

	intro, err := svc.Create(ctx, CreateIntroductionInput{MemberAID: alice.ID, MemberBID: bob.ID})
	require.NoError(t, err)
	_, err = svc.Decline(ctx, intro.ID)
	require.NoError(t, err)

	_, err = svc.Approve(ctx, intro.ID, "")
	appErr := requireInvalidTransition(t, err)
	require.Contains(t, appErr.Message, `"declined"`)
	require.Contains(t, appErr.Message, "approve")

	_, err = svc.Decline(ctx, intro.ID)
	requireInvalidTransition(t, err)
	_, err = svc.Complete(ctx, intro.ID)
	requireInvalidTransition(t, err)
}

func TestIntroductionDoubleApproveSecondFails(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc := newIntroService(t, db)
	ctx := context.Background()

	alice := seedMember(t, db, "11111111-0000-0000-0000-000000000001", "Alice")
	bob := seedMember(t, db, "11111111-0000-0000-0000-000000000002", "Bob")

	intro, err := svc.Create(ctx, CreateIntroductionInput{MemberAID: alice.ID, MemberBID: bob.ID})
	require.NoError(t, err)

	_, err = svc.Approve(ctx, intro.ID, "admin-1")
	require.NoError(t, err)

	_, err = svc.Approve(ctx, intro.ID, "admin-2")
	appErr := requireInvalidTransition(t, err)
	require.Contains(t, appErr.Message, `"approved"`)

	// The first approver's stamp survives.
	current, err := svc.Get(ctx, intro.ID)
	require.NoError(t, err)
	require.NotNil(t, current.ApprovedBy)
	require.Equal(t, "admin-1", *current.ApprovedBy)
}

func TestIntroductionConcurrentApproveSingleWinner(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	// Serialise SQLite access so racing callers interleave at the statement
	// level instead of tripping over file locks.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	svc := newIntroService(t, db)
	ctx := context.Background()

	alice := seedMember(t, db, "11111111-0000-0000-0000-000000000001", "Alice")
	bob := seedMember(t, db, "11111111-0000-0000-0000-000000000002", "Bob")

	intro, err := svc.Create(ctx, CreateIntroductionInput{MemberAID: alice.ID, MemberBID: bob.ID})
	require.NoError(t, err)

	const callers = 8
	errs := make([]error, callers)

	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = svc.Approve(ctx, intro.ID, "admin-1")
		}(i)
	}
	close(start)
	wg.Wait()

	// Exactly one caller advances the row; every loser sees the state the
	// winner left behind.
	wins := 0
	for _, callErr := range errs {
		if callErr == nil {
			wins++
			continue
		}
		appErr := requireInvalidTransition(t, callErr)
		require.Contains(t, appErr.Message, "approve")
	}
	require.Equal(t, 1, wins)

	current, err := svc.Get(ctx, intro.ID)
	require.NoError(t, err)
	require.Equal(t, models.IntroStatusApproved, current.Status)
	require.NotNil(t, current.ApprovedBy)
	require.Equal(t, "admin-1", *current.ApprovedBy)
}

func TestIntroductionTimestampsSetOnce(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	times := []time.Time{
		time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 11, 9, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 12, 9, 0, 0, 0, time.UTC),
	}
	calls := 0
	svc := newIntroService(t, db, WithClock(func() time.Time {
		now := times[calls%len(times)]
		calls++
		return now
	}))
	ctx := context.Background()

	alice := seedMember(t, db, "11111111-0000-0000-0000-000000000001", "Alice")
	bob := seedMember(t, db, "11111111-0000-0000-0000-000000000002", "Bob")

	intro, err := svc.Create(ctx, CreateIntroductionInput{MemberAID: alice.ID, MemberBID: bob.ID})
	require.NoError(t, err)

	intro, err = svc.Approve(ctx, intro.ID, "")
	require.NoError(t, err)
	approvedAt := *intro.ApprovedAt

	intro, err = svc.MarkSent(ctx, intro.ID)
	require.NoError(t, err)

	// Later transitions never rewrite earlier stamps.
	require.NotNil(t, intro.ApprovedAt)
	require.Equal(t, approvedAt.UTC(), intro.ApprovedAt.UTC())
	require.NotNil(t, intro.SentAt)
	require.NotEqual(t, intro.ApprovedAt.UTC(), intro.SentAt.UTC())
}

func TestIntroductionUpdateOutcome(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc := newIntroService(t, db)
	ctx := context.Background()

	alice := seedMember(t, db, "11111111-0000-0000-0000-000000000001", "Alice")
	bob := seedMember(t, db, "11111111-0000-0000-0000-000000000002", "Bob")

	intro, err := svc.Create(ctx, CreateIntroductionInput{MemberAID: alice.ID, MemberBID: bob.ID})
	require.NoError(t, err)

	outcome := "Met for coffee, exploring a joint venture"
	converted := true
	value := int64(250000)

	// Rejected before completion.
	_, err = svc.UpdateOutcome(ctx, intro.ID, OutcomeInput{Outcome: &outcome})
	requireInvalidTransition(t, err)

	_, err = svc.Approve(ctx, intro.ID, "")
	require.NoError(t, err)
	_, err = svc.MarkSent(ctx, intro.ID)
	require.NoError(t, err)
	_, err = svc.Accept(ctx, intro.ID)
	require.NoError(t, err)
	_, err = svc.Complete(ctx, intro.ID)
	require.NoError(t, err)

	updated, err := svc.UpdateOutcome(ctx, intro.ID, OutcomeInput{
		Outcome:             &outcome,
		BusinessConverted:   &converted,
		EstimatedValuePence: &value,
	})
	require.NoError(t, err)
	require.NotNil(t, updated.Outcome)
	require.Equal(t, outcome, *updated.Outcome)
	require.True(t, updated.BusinessConverted)
	require.NotNil(t, updated.EstimatedValuePence)
	require.Equal(t, value, *updated.EstimatedValuePence)

	// Outcome edits are repeatable.
	revised := "Joint venture signed"
	updated, err = svc.UpdateOutcome(ctx, intro.ID, OutcomeInput{Outcome: &revised})
	require.NoError(t, err)
	require.Equal(t, revised, *updated.Outcome)
	require.True(t, updated.BusinessConverted)
}

func TestIntroductionListAndFilter(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc := newIntroService(t, db)
	ctx := context.Background()

	alice := seedMember(t, db, "11111111-0000-0000-0000-000000000001", "Alice")
	bob := seedMember(t, db, "11111111-0000-0000-0000-000000000002", "Bob")
	carol := seedMember(t, db, "11111111-0000-0000-0000-000000000003", "Carol")

	first, err := svc.Create(ctx, CreateIntroductionInput{MemberAID: alice.ID, MemberBID: bob.ID})
	require.NoError(t, err)
	second, err := svc.Create(ctx, CreateIntroductionInput{MemberAID: alice.ID, MemberBID: carol.ID})
	require.NoError(t, err)
	_, err = svc.Decline(ctx, second.ID)
	require.NoError(t, err)

	all, err := svc.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)

	declined, err := svc.List(ctx, models.IntroStatusDeclined)
	require.NoError(t, err)
	require.Len(t, declined, 1)
	require.Equal(t, second.ID, declined[0].ID)

	_, err = svc.List(ctx, "abandoned")
	require.Error(t, err)

	involving, err := svc.ListInvolving(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, involving, 1)
	require.Equal(t, first.ID, involving[0].ID)

	_, err = svc.Get(ctx, "11111111-0000-0000-0000-00000000dead")
	require.ErrorIs(t, err, ErrIntroductionNotFound)
}

package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOrderPair(t *testing.T) {
	a, b := OrderPair("bbb", "aaa")
	require.Equal(t, "aaa", a)
	require.Equal(t, "bbb", b)

	a, b = OrderPair("aaa", "bbb")
	require.Equal(t, "aaa", a)
	require.Equal(t, "bbb", b)
}

func TestIntroductionTerminalStates(t *testing.T) {
	for status, terminal := range map[string]bool{
		IntroStatusSuggested: false,
		IntroStatusApproved:  false,
		IntroStatusSent:      false,
		IntroStatusAccepted:  false,
		IntroStatusCompleted: true,
		IntroStatusDeclined:  true,
	} {
		intro := &Introduction{Status: status}
		require.Equal(t, terminal, intro.IsTerminal(), "status %s", status)
	}
}

func TestIntroductionOtherMember(t *testing.T) {
	intro := &Introduction{MemberAID: "a", MemberBID: "b"}

	require.Equal(t, "b", intro.OtherMember("a"))
	require.Equal(t, "a", intro.OtherMember("b"))
	require.Equal(t, "", intro.OtherMember("c"))
	require.True(t, intro.Involves("a"))
	require.False(t, intro.Involves("c"))
}

func TestMemberQuotaExhausted(t *testing.T) {
	require.False(t, (&Member{MonthlyIntroQuota: 2, IntrosUsedThisMonth: 1}).QuotaExhausted())
	require.True(t, (&Member{MonthlyIntroQuota: 2, IntrosUsedThisMonth: 2}).QuotaExhausted())
	// A zero quota means unlimited rather than exhausted.
	require.False(t, (&Member{MonthlyIntroQuota: 0, IntrosUsedThisMonth: 10}).QuotaExhausted())
}

func TestEventBookable(t *testing.T) {
	require.True(t, (&Event{Status: EventStatusPublished}).Bookable())
	require.True(t, (&Event{Status: EventStatusLive}).Bookable())
	require.False(t, (&Event{Status: EventStatusDraft}).Bookable())
	require.False(t, (&Event{Status: EventStatusCancelled}).Bookable())
}

func TestValidTagCategory(t *testing.T) {
	for _, category := range []string{TagCategoryIndustry, TagCategoryInterest, TagCategoryNeed, TagCategoryService} {
		require.True(t, ValidTagCategory(category))
	}
	require.False(t, ValidTagCategory("region"))
}

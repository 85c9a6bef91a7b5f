package app_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ota_reviews/internal/app"
	"ota_reviews/internal/domain"
)

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 10, 30, 0, 0, time.UTC)
	return &t
}

func TestDedupe_CollapsesEquivalentText(t *testing.T) {
	in := []domain.Review{
		{Source: domain.SourceRakuten, Text: "とても 良いホテルでした", PostedAt: day(2024, 3, 1)},
		// Full-width space and surrounding whitespace, same calendar day.
		{Source: domain.SourceJalan, Text: " とても　良いホテルでした ", PostedAt: day(2024, 3, 1)},
	}

	out := app.Dedupe(in)
	require.Len(t, out, 1)
	require.NotEmpty(t, out[0].ID)
	require.Equal(t, out[0].ID, app.ReviewFingerprint(out[0]), "survivor carries its fingerprint as ID")
}

func TestDedupe_DifferentDaysStayApart(t *testing.T) {
	in := []domain.Review{
		{Text: "また泊まりたいです", PostedAt: day(2024, 3, 1)},
		{Text: "また泊まりたいです", PostedAt: day(2024, 4, 1)},
	}
	out := app.Dedupe(in)
	require.Len(t, out, 2)
	require.NotEqual(t, out[0].ID, out[1].ID)
}

func TestDedupe_UndatedAndDatedStayApart(t *testing.T) {
	in := []domain.Review{
		{Text: "また泊まりたいです"},
		{Text: "また泊まりたいです", PostedAt: day(2024, 3, 1)},
	}
	require.Len(t, app.Dedupe(in), 2)
}

func TestDedupe_MergePolicy(t *testing.T) {
	// Same day, same text length: the incumbent survives.
	later := time.Date(2024, 3, 1, 23, 59, 0, 0, time.UTC)
	out := app.Dedupe([]domain.Review{
		{Text: "また泊まりたいです", PostedAt: day(2024, 3, 1)},
		{Text: "また泊まりたいです", PostedAt: &later, Reviewer: "taro"},
	})
	require.Len(t, out, 1)
	require.Equal(t, "", out[0].Reviewer, "same day, same length: incumbent wins")

	// Same canonical form but richer raw text: the longer copy replaces
	// the incumbent.
	out = app.Dedupe([]domain.Review{
		{Text: "また 泊まりたいです"},
		{Text: "また  泊まりたいです", Reviewer: "jiro"},
	})
	require.Len(t, out, 1)
	require.Equal(t, "jiro", out[0].Reviewer)
}

func TestDedupe_Idempotent(t *testing.T) {
	in := []domain.Review{
		{Text: "とても良いホテルでした", PostedAt: day(2024, 3, 1)},
		{Text: "とても良いホテルでした", PostedAt: day(2024, 3, 1)},
		{Text: "スタッフの対応が悪い", PostedAt: day(2024, 3, 2)},
	}
	once := app.Dedupe(in)
	twice := app.Dedupe(once)
	require.Equal(t, once, twice)
	require.Len(t, once, 2)
}

func TestDedupe_PreservesFirstSeenOrder(t *testing.T) {
	in := []domain.Review{
		{Text: "aaa bbb"},
		{Text: "ccc ddd"},
		{Text: "aaa bbb"},
		{Text: "eee fff"},
	}
	out := app.Dedupe(in)
	require.Len(t, out, 3)
	require.Equal(t, "aaa bbb", out[0].Text)
	require.Equal(t, "ccc ddd", out[1].Text)
	require.Equal(t, "eee fff", out[2].Text)
}

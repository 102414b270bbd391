package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGenerateUUIDWithSuffix(t *testing.T) {
	module := "job"
	id := GenerateUUIDWithSuffix(module)
	assert.Contains(t, id, module+"_")
}

func TestResetIfNewDay(t *testing.T) {
	now := time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)
	account := &SocialAccount{
		DailyLimit: 10,
		UsedToday:  7,
		LastReset:  now.Add(-24 * time.Hour),
	}

	reset := account.ResetIfNewDay(now)
	assert.True(t, reset)
	assert.Equal(t, 0, account.UsedToday)
	assert.Equal(t, now, account.LastReset)

	// A second call within the same UTC day is a no-op.
	account.UsedToday = 3
	reset = account.ResetIfNewDay(now.Add(2 * time.Hour))
	assert.False(t, reset)
	assert.Equal(t, 3, account.UsedToday)
}

func TestResetIfNewDay_SameDay(t *testing.T) {
	now := time.Date(2025, 6, 2, 23, 59, 0, 0, time.UTC)
	account := &SocialAccount{
		DailyLimit: 5,
		UsedToday:  5,
		LastReset:  time.Date(2025, 6, 2, 0, 1, 0, 0, time.UTC),
	}

	assert.False(t, account.ResetIfNewDay(now))
	assert.Equal(t, 5, account.UsedToday)
}

func TestResetIfNewDay_UTCBoundary(t *testing.T) {
	// Reset fires on the first access after UTC midnight even when the
	// wall-clock gap is under an hour.
	account := &SocialAccount{
		DailyLimit: 10,
		UsedToday:  9,
		LastReset:  time.Date(2025, 6, 2, 23, 30, 0, 0, time.UTC),
	}

	assert.True(t, account.ResetIfNewDay(time.Date(2025, 6, 3, 0, 10, 0, 0, time.UTC)))
	assert.Equal(t, 0, account.UsedToday)
}

func TestAvailableQuota(t *testing.T) {
	account := &SocialAccount{DailyLimit: 10, UsedToday: 4}
	assert.Equal(t, 6, account.AvailableQuota())

	account.UsedToday = 12
	assert.Equal(t, 0, account.AvailableQuota())
}

func TestSelectionScore_ExactNicheWins(t *testing.T) {
	now := time.Now().UTC()
	base := SocialAccount{
		DailyLimit: 10,
		UsedToday:  5,
		CreatedAt:  now.Add(-60 * 24 * time.Hour),
	}

	exact := base
	exact.Niche = "finance"
	none := base
	none.Niche = "comedy"

	assert.Greater(t, exact.SelectionScore("finance", now), none.SelectionScore("finance", now))
}

func TestSelectionScore_SimilarNiche(t *testing.T) {
	now := time.Now().UTC()
	account := SocialAccount{
		Niche:      "tech",
		DailyLimit: 10,
		CreatedAt:  now.Add(-90 * 24 * time.Hour),
	}

	// finance is adjacent to tech; gardening is unrelated.
	similar := account.SelectionScore("finance", now)
	unrelated := account.SelectionScore("gardening", now)
	assert.Greater(t, similar, unrelated)
	assert.InDelta(t, 15, similar-unrelated, 0.001)
}

func TestSelectionScore_NoPreferenceIsNeutral(t *testing.T) {
	now := time.Now().UTC()
	account := SocialAccount{
		DailyLimit: 10,
		CreatedAt:  now.Add(-90 * 24 * time.Hour),
	}

	// quota 40 + neutral affinity 15 + stability 20 + load balance 10
	assert.InDelta(t, 85, account.SelectionScore("finance", now), 0.001)
}

func TestSelectionScore_StabilityCapped(t *testing.T) {
	now := time.Now().UTC()
	young := SocialAccount{DailyLimit: 10, CreatedAt: now.Add(-15 * 24 * time.Hour)}
	old := SocialAccount{DailyLimit: 10, CreatedAt: now.Add(-300 * 24 * time.Hour)}
	veryOld := SocialAccount{DailyLimit: 10, CreatedAt: now.Add(-600 * 24 * time.Hour)}

	assert.Less(t, young.SelectionScore("", now), old.SelectionScore("", now))
	assert.InDelta(t, old.SelectionScore("", now), veryOld.SelectionScore("", now), 0.001)
}

func TestSelectionScore_LoadBalancePrefersLessUsed(t *testing.T) {
	now := time.Now().UTC()
	lighter := SocialAccount{DailyLimit: 20, UsedToday: 2, CreatedAt: now.Add(-60 * 24 * time.Hour)}
	heavier := SocialAccount{DailyLimit: 20, UsedToday: 10, CreatedAt: now.Add(-60 * 24 * time.Hour)}

	assert.Greater(t, lighter.SelectionScore("", now), heavier.SelectionScore("", now))
}

func TestJobIsTerminal(t *testing.T) {
	job := &GenerationJob{Status: JobStatusGenerating}
	assert.False(t, job.IsTerminal())

	job.Status = JobStatusCompleted
	assert.True(t, job.IsTerminal())

	job.Status = JobStatusFailed
	assert.True(t, job.IsTerminal())
}

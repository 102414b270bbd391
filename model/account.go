package model

import (
	"time"
)

// Supported social platforms.
const (
	PlatformTikTok    = "tiktok"
	PlatformYouTube   = "youtube"
	PlatformInstagram = "instagram"
)

// SocialAccount is one connected platform identity available for posting.
// Quota mutation (UsedToday) is owned exclusively by the account pool;
// accounts are soft-deactivated, never hard-deleted.
type SocialAccount struct {
	ID         int64     `json:"-"`
	AccountID  string    `json:"account_id"`
	TenantID   string    `json:"tenant_id"`
	Platform   string    `json:"platform"`
	Username   string    `json:"username"`
	Niche      string    `json:"niche,omitempty"`
	Active     bool      `json:"active"`
	DailyLimit int       `json:"daily_limit"`
	UsedToday  int       `json:"used_today"`
	LastReset  time.Time `json:"last_reset"`
	CreatedAt  time.Time `json:"created_at"`
}

// AvailableQuota returns the remaining post capacity for the current day.
// Callers must apply ResetIfNewDay first so the math sees today's usage.
func (a *SocialAccount) AvailableQuota() int {
	available := a.DailyLimit - a.UsedToday
	if available < 0 {
		return 0
	}
	return available
}

// NeedsReset reports whether the account's quota window has crossed a UTC
// day boundary since the last reset.
func (a *SocialAccount) NeedsReset(now time.Time) bool {
	last := a.LastReset.UTC()
	nowUTC := now.UTC()
	return last.Year() != nowUTC.Year() || last.YearDay() != nowUTC.YearDay()
}

// ResetIfNewDay zeroes UsedToday on the first access after UTC midnight.
// It returns true when a reset occurred so callers can persist it. The
// reset is idempotent within a day: once LastReset is stamped, further
// calls in the same UTC day are no-ops.
func (a *SocialAccount) ResetIfNewDay(now time.Time) bool {
	if !a.NeedsReset(now) {
		return false
	}
	a.UsedToday = 0
	a.LastReset = now.UTC()
	return true
}

// similarNiches maps a niche to the set of niches considered adjacent for
// category-affinity scoring. The relation is symmetric by construction.
var similarNiches = map[string][]string{
	"finance":       {"tech", "news", "business"},
	"tech":          {"finance", "news", "education"},
	"news":          {"finance", "tech", "politics"},
	"business":      {"finance", "motivation"},
	"education":     {"tech", "science"},
	"science":       {"education"},
	"politics":      {"news"},
	"motivation":    {"business", "fitness"},
	"fitness":       {"health", "motivation"},
	"health":        {"fitness"},
	"comedy":        {"entertainment", "memes"},
	"memes":         {"comedy", "entertainment"},
	"entertainment": {"comedy", "memes"},
}

// categoryAffinityScore returns the affinity component of the selection
// score: 30 points for an exact niche match, 15 for a similar niche, and a
// neutral 15 when the account states no preference. An account with an
// unrelated niche scores 0.
func categoryAffinityScore(niche, category string) float64 {
	if niche == "" || category == "" {
		return 15
	}
	if niche == category {
		return 30
	}
	for _, similar := range similarNiches[niche] {
		if similar == category {
			return 15
		}
	}
	return 0
}

// SelectionScore computes the account-ranking score used by the pool:
// 40% available-quota ratio, 30% category affinity, 20% stability
// (account age capped at 30 days), 10% load balance. Higher is better.
func (a *SocialAccount) SelectionScore(category string, now time.Time) float64 {
	if a.DailyLimit <= 0 {
		return 0
	}

	quotaRatio := float64(a.AvailableQuota()) / float64(a.DailyLimit)

	ageDays := now.UTC().Sub(a.CreatedAt.UTC()).Hours() / 24
	stability := ageDays / 30
	if stability > 1 {
		stability = 1
	}
	if stability < 0 {
		stability = 0
	}

	loadBalance := 1 - float64(a.UsedToday)/float64(a.DailyLimit)
	if loadBalance < 0 {
		loadBalance = 0
	}

	return quotaRatio*40 + categoryAffinityScore(a.Niche, category) + stability*20 + loadBalance*10
}

// QuotaStats aggregates quota availability across a tenant's accounts for
// one platform.
type QuotaStats struct {
	Platform       string `json:"platform"`
	TenantID       string `json:"tenant_id"`
	TotalAccounts  int    `json:"total_accounts"`
	ActiveAccounts int    `json:"active_accounts"`
	TotalLimit     int    `json:"total_limit"`
	TotalUsed      int    `json:"total_used"`
	TotalAvailable int    `json:"total_available"`
}

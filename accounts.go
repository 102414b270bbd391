/*
Copyright 2025 ReelForge Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package reelforge

import (
	"context"
	"sort"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	redlock "github.com/reelforge/reelforge/internal/lock"
	"github.com/reelforge/reelforge/internal/notification"
	"github.com/reelforge/reelforge/model"
)

// AccountCriteria narrows the pool for account selection.
type AccountCriteria struct {
	TenantID     string `json:"tenant_id"`
	Platform     string `json:"platform"`
	Category     string `json:"category,omitempty"`
	MinimumQuota int    `json:"minimum_quota,omitempty"`
}

// CreateAccount registers a social account in the pool.
//
// Parameters:
// - ctx context.Context: The context for the operation.
// - account model.SocialAccount: The account to register. ID, daily limit, and timestamps are defaulted when unset.
//
// Returns:
// - model.SocialAccount: The persisted account.
// - error: An error if the account could not be persisted.
func (r *Reelforge) CreateAccount(ctx context.Context, account model.SocialAccount) (model.SocialAccount, error) {
	ctx, span := tracer.Start(ctx, "Creating social account")
	defer span.End()

	if account.AccountID == "" {
		account.AccountID = model.GenerateUUIDWithSuffix("acc")
	}
	if account.DailyLimit <= 0 {
		account.DailyLimit = 10
	}
	account.Active = true
	now := time.Now()
	if account.LastReset.IsZero() {
		account.LastReset = now.UTC()
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}

	account, err := r.datasource.CreateSocialAccount(ctx, account)
	if err != nil {
		logAndRecordError(span, err)
		return account, err
	}

	if err := r.queue.queueIndexData(account.AccountID, "accounts", account); err != nil {
		notification.NotifyError(err)
	}

	span.SetStatus(codes.Ok, "Social account created")
	return account, nil
}

// SelectAccount picks the best available account for the criteria, or nil
// when no account has capacity. Running out of capacity is an expected
// pool state, not an error.
//
// Each candidate gets a lazy daily reset before the availability check so
// yesterday's usage never hides today's capacity; a reset is persisted at
// most once per account per UTC day.
//
// Parameters:
// - ctx context.Context: The context for the operation.
// - criteria AccountCriteria: Tenant, platform, optional category, and minimum quota (default 1).
//
// Returns:
// - *model.SocialAccount: The highest-scoring account, or nil when none qualify.
// - error: An error if the pool could not be read.
func (r *Reelforge) SelectAccount(ctx context.Context, criteria AccountCriteria) (*model.SocialAccount, error) {
	candidates, err := r.selectCandidates(ctx, criteria)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	return candidates[0], nil
}

// SelectMultipleAccounts returns up to count accounts ranked best-first.
// Fewer (or none) come back when the pool lacks capacity.
func (r *Reelforge) SelectMultipleAccounts(ctx context.Context, criteria AccountCriteria, count int) ([]*model.SocialAccount, error) {
	candidates, err := r.selectCandidates(ctx, criteria)
	if err != nil {
		return nil, err
	}
	if count < len(candidates) {
		candidates = candidates[:count]
	}
	return candidates, nil
}

// selectCandidates applies the lazy reset, availability filter, and
// scoring shared by the selection entry points. The sort is stable so
// equal scores keep pool iteration order.
func (r *Reelforge) selectCandidates(ctx context.Context, criteria AccountCriteria) ([]*model.SocialAccount, error) {
	ctx, span := tracer.Start(ctx, "Selecting posting accounts", trace.WithAttributes(
		attribute.String("tenant.id", criteria.TenantID),
		attribute.String("platform", criteria.Platform),
	))
	defer span.End()

	accounts, err := r.datasource.GetAccountsForPlatform(ctx, criteria.TenantID, criteria.Platform)
	if err != nil {
		logAndRecordError(span, err)
		return nil, err
	}

	minQuota := criteria.MinimumQuota
	if minQuota <= 0 {
		minQuota = 1
	}

	now := time.Now()
	var candidates []*model.SocialAccount
	for _, account := range accounts {
		if account.ResetIfNewDay(now) {
			if err := r.datasource.UpdateAccountQuota(ctx, account); err != nil {
				logrus.Warnf("account %s: persisting quota reset: %v", account.AccountID, err)
			}
		}
		if account.AvailableQuota() >= minQuota {
			candidates = append(candidates, account)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].SelectionScore(criteria.Category, now) > candidates[j].SelectionScore(criteria.Category, now)
	})

	span.SetAttributes(attribute.Int("candidates.count", len(candidates)))
	span.SetStatus(codes.Ok, "Accounts selected")
	return candidates, nil
}

// ReserveQuota atomically claims one posting slot on the account. False
// means the account had no capacity left; the caller picks another
// account or records the post as failed.
func (r *Reelforge) ReserveQuota(ctx context.Context, accountID string) (bool, error) {
	return r.datasource.ReserveAccountQuota(ctx, accountID)
}

// ReleaseQuota returns a previously reserved slot after a failed post.
func (r *Reelforge) ReleaseQuota(ctx context.Context, accountID string) error {
	return r.datasource.ReleaseAccountQuota(ctx, accountID)
}

// GetTotalAvailableQuota aggregates remaining capacity across a tenant's
// active accounts on a platform, applying the lazy daily reset first.
func (r *Reelforge) GetTotalAvailableQuota(ctx context.Context, tenantID, platformName string) (*model.QuotaStats, error) {
	ctx, span := tracer.Start(ctx, "Aggregating quota stats")
	defer span.End()

	accounts, err := r.datasource.GetAccountsForPlatform(ctx, tenantID, platformName)
	if err != nil {
		logAndRecordError(span, err)
		return nil, err
	}

	stats := &model.QuotaStats{Platform: platformName, TenantID: tenantID}
	now := time.Now()
	for _, account := range accounts {
		if account.ResetIfNewDay(now) {
			if err := r.datasource.UpdateAccountQuota(ctx, account); err != nil {
				logrus.Warnf("account %s: persisting quota reset: %v", account.AccountID, err)
			}
		}
		stats.TotalAccounts++
		stats.ActiveAccounts++
		stats.TotalLimit += account.DailyLimit
		stats.TotalUsed += account.UsedToday
		stats.TotalAvailable += account.AvailableQuota()
	}

	span.SetStatus(codes.Ok, "Quota stats aggregated")
	return stats, nil
}

// ResetDailyQuotas zeroes the usage counters of every account whose last
// reset predates the current UTC day. Returns the number of accounts
// touched.
func (r *Reelforge) ResetDailyQuotas(ctx context.Context) (int64, error) {
	return r.datasource.ResetAllQuotas(ctx, time.Now())
}

// HandleQuotaReset is the scheduled quota:reset task handler. The redlock
// keeps the reset single-flight when several workers share the schedule;
// losing the lock race is a success, not an error.
func (r *Reelforge) HandleQuotaReset(ctx context.Context, _ *asynq.Task) error {
	locker := redlock.NewLocker(r.redis, "sweep:quota_reset", model.GenerateUUIDWithSuffix("lock"))
	if err := locker.Lock(ctx, 5*time.Minute); err != nil {
		logrus.Info("quota reset already running elsewhere, skipping")
		return nil
	}
	defer func() {
		if err := locker.Unlock(ctx); err != nil {
			logrus.Warnf("releasing quota reset lock: %v", err)
		}
	}()

	count, err := r.ResetDailyQuotas(ctx)
	if err != nil {
		notification.NotifyError(err)
		return err
	}
	logrus.Infof("daily quota reset complete, %d accounts reset", count)
	return nil
}

// GetAccount retrieves a social account by its ID.
//
// Parameters:
// - ctx context.Context: The context for the operation.
// - accountID string: The ID of the account to retrieve.
//
// Returns:
// - *model.SocialAccount: A pointer to the retrieved account.
// - error: An error if the account could not be retrieved.
func (r *Reelforge) GetAccount(ctx context.Context, accountID string) (*model.SocialAccount, error) {
	return r.datasource.GetSocialAccount(ctx, accountID)
}

// ListAccounts retrieves a tenant's active accounts for a platform.
func (r *Reelforge) ListAccounts(ctx context.Context, tenantID, platformName string) ([]*model.SocialAccount, error) {
	return r.datasource.GetAccountsForPlatform(ctx, tenantID, platformName)
}

// DeactivateAccount soft-deletes an account. Its post history stays; it
// just stops being a selection candidate.
func (r *Reelforge) DeactivateAccount(ctx context.Context, accountID string) error {
	return r.datasource.DeactivateSocialAccount(ctx, accountID)
}

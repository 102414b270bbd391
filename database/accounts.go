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
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/reelforge/reelforge/internal/apierror"
	"github.com/reelforge/reelforge/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// CreateSocialAccount inserts a new social account into the pool.
func (d Datasource) CreateSocialAccount(ctx context.Context, acc model.SocialAccount) (model.SocialAccount, error) {
	ctx, span := otel.Tracer("account.database").Start(ctx, "Saving social account to db")
	defer span.End()

	_, err := d.Conn.ExecContext(ctx,
		`INSERT INTO reelforge.social_accounts (account_id, tenant_id, platform, username, niche, active, daily_limit, used_today, last_reset, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		acc.AccountID, acc.TenantID, acc.Platform, acc.Username, acc.Niche, acc.Active, acc.DailyLimit, acc.UsedToday, acc.LastReset, acc.CreatedAt)
	if err != nil {
		span.RecordError(err)
		pqErr, ok := err.(*pq.Error)
		if ok && pqErr.Code == "23505" {
			return acc, apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("Social account with ID '%s' already exists", acc.AccountID), err)
		}
		return acc, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to create social account", err)
	}

	span.SetStatus(codes.Ok, "Social account saved to db")
	return acc, nil
}

// GetSocialAccount retrieves a social account by its ID.
func (d Datasource) GetSocialAccount(ctx context.Context, accountID string) (*model.SocialAccount, error) {
	ctx, span := otel.Tracer("account.database").Start(ctx, "Fetching social account from db", trace.WithAttributes(attribute.String("account.id", accountID)))
	defer span.End()

	row := d.Conn.QueryRowContext(ctx,
		`SELECT account_id, tenant_id, platform, username, niche, active, daily_limit, used_today, last_reset, created_at
		FROM reelforge.social_accounts WHERE account_id = $1`, accountID)

	acc := &model.SocialAccount{}
	err := row.Scan(&acc.AccountID, &acc.TenantID, &acc.Platform, &acc.Username, &acc.Niche, &acc.Active, &acc.DailyLimit, &acc.UsedToday, &acc.LastReset, &acc.CreatedAt)
	if err != nil {
		span.RecordError(err)
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Social account with ID '%s' not found", accountID), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve social account", err)
	}

	span.SetStatus(codes.Ok, "Social account retrieved")
	return acc, nil
}

// GetAccountsForPlatform lists the active accounts a tenant owns on a platform.
func (d Datasource) GetAccountsForPlatform(ctx context.Context, tenantID, platform string) ([]*model.SocialAccount, error) {
	ctx, span := otel.Tracer("account.database").Start(ctx, "Fetching accounts for platform", trace.WithAttributes(
		attribute.String("tenant.id", tenantID),
		attribute.String("platform", platform),
	))
	defer span.End()

	rows, err := d.Conn.QueryContext(ctx,
		`SELECT account_id, tenant_id, platform, username, niche, active, daily_limit, used_today, last_reset, created_at
		FROM reelforge.social_accounts WHERE tenant_id = $1 AND platform = $2 AND active = TRUE ORDER BY created_at ASC`, tenantID, platform)
	if err != nil {
		span.RecordError(err)
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve social accounts", err)
	}
	defer rows.Close()

	var accounts []*model.SocialAccount
	for rows.Next() {
		acc := &model.SocialAccount{}
		err := rows.Scan(&acc.AccountID, &acc.TenantID, &acc.Platform, &acc.Username, &acc.Niche, &acc.Active, &acc.DailyLimit, &acc.UsedToday, &acc.LastReset, &acc.CreatedAt)
		if err != nil {
			span.RecordError(err)
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan social account", err)
		}
		accounts = append(accounts, acc)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error iterating social accounts", err)
	}

	span.SetAttributes(attribute.Int("accounts.count", len(accounts)))
	span.SetStatus(codes.Ok, "Social accounts retrieved")
	return accounts, nil
}

// UpdateAccountQuota persists quota counters after a lazy daily reset.
func (d Datasource) UpdateAccountQuota(ctx context.Context, acc *model.SocialAccount) error {
	ctx, span := otel.Tracer("account.database").Start(ctx, "Updating account quota", trace.WithAttributes(attribute.String("account.id", acc.AccountID)))
	defer span.End()

	_, err := d.Conn.ExecContext(ctx,
		`UPDATE reelforge.social_accounts SET used_today = $2, daily_limit = $3, last_reset = $4 WHERE account_id = $1`,
		acc.AccountID, acc.UsedToday, acc.DailyLimit, acc.LastReset)
	if err != nil {
		span.RecordError(err)
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update account quota", err)
	}

	span.SetStatus(codes.Ok, "Account quota updated")
	return nil
}

// ReserveAccountQuota atomically claims one quota slot. The conditional
// increment guarantees used_today never exceeds daily_limit even under
// concurrent reservations. Returns false when the account is inactive,
// missing, or at its limit.
func (d Datasource) ReserveAccountQuota(ctx context.Context, accountID string) (bool, error) {
	ctx, span := otel.Tracer("account.database").Start(ctx, "Reserving account quota", trace.WithAttributes(attribute.String("account.id", accountID)))
	defer span.End()

	result, err := d.Conn.ExecContext(ctx,
		`UPDATE reelforge.social_accounts SET used_today = used_today + 1
		WHERE account_id = $1 AND active = TRUE AND used_today < daily_limit`, accountID)
	if err != nil {
		span.RecordError(err)
		return false, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to reserve account quota", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		span.RecordError(err)
		return false, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to get rows affected", err)
	}

	reserved := rowsAffected > 0
	span.SetAttributes(attribute.Bool("quota.reserved", reserved))
	span.SetStatus(codes.Ok, "Quota reservation attempted")
	return reserved, nil
}

// ReleaseAccountQuota returns one quota slot, clamping at zero.
func (d Datasource) ReleaseAccountQuota(ctx context.Context, accountID string) error {
	ctx, span := otel.Tracer("account.database").Start(ctx, "Releasing account quota", trace.WithAttributes(attribute.String("account.id", accountID)))
	defer span.End()

	_, err := d.Conn.ExecContext(ctx,
		`UPDATE reelforge.social_accounts SET used_today = GREATEST(used_today - 1, 0) WHERE account_id = $1`, accountID)
	if err != nil {
		span.RecordError(err)
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to release account quota", err)
	}

	span.SetStatus(codes.Ok, "Account quota released")
	return nil
}

// DeactivateSocialAccount removes an account from the selectable pool.
func (d Datasource) DeactivateSocialAccount(ctx context.Context, accountID string) error {
	ctx, span := otel.Tracer("account.database").Start(ctx, "Deactivating social account", trace.WithAttributes(attribute.String("account.id", accountID)))
	defer span.End()

	result, err := d.Conn.ExecContext(ctx,
		`UPDATE reelforge.social_accounts SET active = FALSE WHERE account_id = $1`, accountID)
	if err != nil {
		span.RecordError(err)
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to deactivate social account", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		span.RecordError(err)
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Social account with ID '%s' not found", accountID), nil)
	}

	span.SetStatus(codes.Ok, "Social account deactivated")
	return nil
}

// ResetAllQuotas zeroes used_today on every account whose last reset was
// before the current UTC day. Returns the number of accounts reset.
func (d Datasource) ResetAllQuotas(ctx context.Context, now time.Time) (int64, error) {
	ctx, span := otel.Tracer("account.database").Start(ctx, "Resetting daily quotas")
	defer span.End()

	result, err := d.Conn.ExecContext(ctx,
		`UPDATE reelforge.social_accounts SET used_today = 0, last_reset = $1
		WHERE date_trunc('day', last_reset AT TIME ZONE 'UTC') < date_trunc('day', $1::timestamp AT TIME ZONE 'UTC')`,
		now.UTC())
	if err != nil {
		span.RecordError(err)
		return 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to reset daily quotas", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		span.RecordError(err)
		return 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to get rows affected", err)
	}

	span.SetAttributes(attribute.Int64("accounts.reset", rowsAffected))
	span.SetStatus(codes.Ok, "Daily quotas reset")
	return rowsAffected, nil
}

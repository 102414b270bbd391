package database

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/reelforge/reelforge/internal/apierror"
	"github.com/reelforge/reelforge/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDatasource(t *testing.T) (Datasource, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return Datasource{Conn: db}, mock
}

func TestReserveAccountQuota(t *testing.T) {
	ds, mock := newTestDatasource(t)
	accountID := model.GenerateUUIDWithSuffix("acc")

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE reelforge.social_accounts SET used_today = used_today + 1
		WHERE account_id = $1 AND active = TRUE AND used_today < daily_limit`)).
		WithArgs(accountID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	reserved, err := ds.ReserveAccountQuota(context.Background(), accountID)
	assert.NoError(t, err)
	assert.True(t, reserved)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveAccountQuotaExhausted(t *testing.T) {
	ds, mock := newTestDatasource(t)
	accountID := model.GenerateUUIDWithSuffix("acc")

	// used_today == daily_limit: the conditional update matches no rows.
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE reelforge.social_accounts SET used_today = used_today + 1
		WHERE account_id = $1 AND active = TRUE AND used_today < daily_limit`)).
		WithArgs(accountID).
		WillReturnResult(sqlmock.NewResult(0, 0))

	reserved, err := ds.ReserveAccountQuota(context.Background(), accountID)
	assert.NoError(t, err)
	assert.False(t, reserved)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReleaseAccountQuota(t *testing.T) {
	ds, mock := newTestDatasource(t)
	accountID := model.GenerateUUIDWithSuffix("acc")

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE reelforge.social_accounts SET used_today = GREATEST(used_today - 1, 0) WHERE account_id = $1`)).
		WithArgs(accountID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := ds.ReleaseAccountQuota(context.Background(), accountID)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetSocialAccountNotFound(t *testing.T) {
	ds, mock := newTestDatasource(t)
	accountID := model.GenerateUUIDWithSuffix("acc")

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT account_id, tenant_id, platform, username, niche, active, daily_limit, used_today, last_reset, created_at
		FROM reelforge.social_accounts WHERE account_id = $1`)).
		WithArgs(accountID).
		WillReturnRows(sqlmock.NewRows(nil))

	_, err := ds.GetSocialAccount(context.Background(), accountID)
	require.Error(t, err)
	apiErr, ok := err.(apierror.APIError)
	require.True(t, ok)
	assert.Equal(t, apierror.ErrNotFound, apiErr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAccountsForPlatform(t *testing.T) {
	ds, mock := newTestDatasource(t)
	tenantID := gofakeit.UUID()
	now := time.Now()

	rows := sqlmock.NewRows([]string{"account_id", "tenant_id", "platform", "username", "niche", "active", "daily_limit", "used_today", "last_reset", "created_at"}).
		AddRow("acc_1", tenantID, model.PlatformTikTok, gofakeit.Username(), "finance", true, 10, 3, now, now).
		AddRow("acc_2", tenantID, model.PlatformTikTok, gofakeit.Username(), "tech", true, 10, 0, now, now)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM reelforge.social_accounts WHERE tenant_id = $1 AND platform = $2 AND active = TRUE`)).
		WithArgs(tenantID, model.PlatformTikTok).
		WillReturnRows(rows)

	accounts, err := ds.GetAccountsForPlatform(context.Background(), tenantID, model.PlatformTikTok)
	assert.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "acc_1", accounts[0].AccountID)
	assert.Equal(t, 3, accounts[0].UsedToday)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResetAllQuotas(t *testing.T) {
	ds, mock := newTestDatasource(t)
	now := time.Now()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE reelforge.social_accounts SET used_today = 0, last_reset = $1`)).
		WithArgs(now.UTC()).
		WillReturnResult(sqlmock.NewResult(0, 7))

	count, err := ds.ResetAllQuotas(context.Background(), now)
	assert.NoError(t, err)
	assert.Equal(t, int64(7), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeactivateSocialAccountNotFound(t *testing.T) {
	ds, mock := newTestDatasource(t)
	accountID := model.GenerateUUIDWithSuffix("acc")

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE reelforge.social_accounts SET active = FALSE WHERE account_id = $1`)).
		WithArgs(accountID).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := ds.DeactivateSocialAccount(context.Background(), accountID)
	require.Error(t, err)
	apiErr, ok := err.(apierror.APIError)
	require.True(t, ok)
	assert.Equal(t, apierror.ErrNotFound, apiErr.Code)
}

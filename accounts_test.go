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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/reelforge/reelforge/model"
)

func TestCreateAccountDefaults(t *testing.T) {
	service, ds, _ := newTestService(t)

	ds.On("CreateSocialAccount", mock.Anything, mock.MatchedBy(func(acc model.SocialAccount) bool {
		return acc.AccountID != "" &&
			acc.DailyLimit == 10 &&
			acc.Active &&
			!acc.LastReset.IsZero()
	})).Return(model.SocialAccount{AccountID: "acc_1", DailyLimit: 10, Active: true}, nil)

	created, err := service.CreateAccount(context.Background(), model.SocialAccount{
		TenantID: "tenant_1",
		Platform: model.PlatformTikTok,
		Username: "finance_daily",
	})
	require.NoError(t, err)
	assert.Equal(t, "acc_1", created.AccountID)
	ds.AssertExpectations(t)
}

func TestSelectAccountPrefersMatchingNiche(t *testing.T) {
	service, ds, _ := newTestService(t)

	now := time.Now()
	onNiche := poolAccount("acc_fin", "tenant_1", model.PlatformTikTok)
	onNiche.Niche = "finance"
	offNiche := poolAccount("acc_travel", "tenant_1", model.PlatformTikTok)
	offNiche.Niche = "travel"
	onNiche.CreatedAt = now.AddDate(0, -2, 0)
	offNiche.CreatedAt = now.AddDate(0, -2, 0)

	ds.On("GetAccountsForPlatform", mock.Anything, "tenant_1", model.PlatformTikTok).
		Return([]*model.SocialAccount{offNiche, onNiche}, nil)

	picked, err := service.SelectAccount(context.Background(), AccountCriteria{
		TenantID: "tenant_1",
		Platform: model.PlatformTikTok,
		Category: "finance",
	})
	require.NoError(t, err)
	require.NotNil(t, picked)
	assert.Equal(t, "acc_fin", picked.AccountID)
}

func TestSelectAccountAppliesLazyDailyReset(t *testing.T) {
	service, ds, _ := newTestService(t)

	stale := poolAccount("acc_stale", "tenant_1", model.PlatformTikTok)
	stale.UsedToday = 10
	stale.LastReset = time.Now().UTC().Add(-36 * time.Hour)

	ds.On("GetAccountsForPlatform", mock.Anything, "tenant_1", model.PlatformTikTok).
		Return([]*model.SocialAccount{stale}, nil)
	ds.On("UpdateAccountQuota", mock.Anything, mock.MatchedBy(func(acc *model.SocialAccount) bool {
		return acc.AccountID == "acc_stale" && acc.UsedToday == 0
	})).Return(nil)

	picked, err := service.SelectAccount(context.Background(), AccountCriteria{
		TenantID: "tenant_1",
		Platform: model.PlatformTikTok,
	})
	require.NoError(t, err)
	require.NotNil(t, picked, "yesterday's usage must not hide today's capacity")
	assert.Equal(t, 10, picked.AvailableQuota())
	ds.AssertExpectations(t)
}

func TestSelectAccountExhaustedPoolReturnsNil(t *testing.T) {
	service, ds, _ := newTestService(t)

	spent := poolAccount("acc_spent", "tenant_1", model.PlatformTikTok)
	spent.UsedToday = spent.DailyLimit

	ds.On("GetAccountsForPlatform", mock.Anything, "tenant_1", model.PlatformTikTok).
		Return([]*model.SocialAccount{spent}, nil)

	picked, err := service.SelectAccount(context.Background(), AccountCriteria{
		TenantID: "tenant_1",
		Platform: model.PlatformTikTok,
	})
	require.NoError(t, err)
	assert.Nil(t, picked, "an exhausted pool is a state, not an error")
}

func TestSelectMultipleAccountsBoundsCount(t *testing.T) {
	service, ds, _ := newTestService(t)

	accounts := []*model.SocialAccount{
		poolAccount("acc_1", "tenant_1", model.PlatformTikTok),
		poolAccount("acc_2", "tenant_1", model.PlatformTikTok),
		poolAccount("acc_3", "tenant_1", model.PlatformTikTok),
	}
	ds.On("GetAccountsForPlatform", mock.Anything, "tenant_1", model.PlatformTikTok).
		Return(accounts, nil)

	picked, err := service.SelectMultipleAccounts(context.Background(), AccountCriteria{
		TenantID: "tenant_1",
		Platform: model.PlatformTikTok,
	}, 2)
	require.NoError(t, err)
	assert.Len(t, picked, 2)
}

func TestSelectAccountHonorsMinimumQuota(t *testing.T) {
	service, ds, _ := newTestService(t)

	low := poolAccount("acc_low", "tenant_1", model.PlatformTikTok)
	low.UsedToday = 8 // 2 remaining

	ds.On("GetAccountsForPlatform", mock.Anything, "tenant_1", model.PlatformTikTok).
		Return([]*model.SocialAccount{low}, nil)

	picked, err := service.SelectAccount(context.Background(), AccountCriteria{
		TenantID:     "tenant_1",
		Platform:     model.PlatformTikTok,
		MinimumQuota: 5,
	})
	require.NoError(t, err)
	assert.Nil(t, picked)
}

func TestGetTotalAvailableQuota(t *testing.T) {
	service, ds, _ := newTestService(t)

	first := poolAccount("acc_1", "tenant_1", model.PlatformTikTok) // 10 limit, 2 used
	second := poolAccount("acc_2", "tenant_1", model.PlatformTikTok)
	second.UsedToday = 7

	ds.On("GetAccountsForPlatform", mock.Anything, "tenant_1", model.PlatformTikTok).
		Return([]*model.SocialAccount{first, second}, nil)

	stats, err := service.GetTotalAvailableQuota(context.Background(), "tenant_1", model.PlatformTikTok)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalAccounts)
	assert.Equal(t, 20, stats.TotalLimit)
	assert.Equal(t, 9, stats.TotalUsed)
	assert.Equal(t, 11, stats.TotalAvailable)
}

func TestHandleQuotaResetRunsSweep(t *testing.T) {
	service, ds, _ := newTestService(t)

	ds.On("ResetAllQuotas", mock.Anything, mock.Anything).Return(int64(12), nil)

	err := service.HandleQuotaReset(context.Background(), nil)
	require.NoError(t, err)
	ds.AssertExpectations(t)
}

func TestHandleQuotaResetSkipsWhenLockHeld(t *testing.T) {
	service, ds, mr := newTestService(t)
	require.NoError(t, mr.Set("sweep:quota_reset", "another-worker"))

	err := service.HandleQuotaReset(context.Background(), nil)
	require.NoError(t, err)
	ds.AssertNotCalled(t, "ResetAllQuotas", mock.Anything, mock.Anything)
}

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
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/reelforge/reelforge/model"
	"github.com/reelforge/reelforge/platform"
)

func poolAccount(accountID, tenantID, platformName string) *model.SocialAccount {
	now := time.Now()
	return &model.SocialAccount{
		AccountID:  accountID,
		TenantID:   tenantID,
		Platform:   platformName,
		Username:   "creator_" + accountID,
		Active:     true,
		DailyLimit: 10,
		UsedToday:  2,
		LastReset:  now.UTC(),
		CreatedAt:  now.AddDate(0, -2, 0),
	}
}

func TestProcessVideoReadyPlatformsAreIndependent(t *testing.T) {
	service, ds, mr := newTestService(t)

	tiktok := &fakePoster{name: model.PlatformTikTok}
	youtube := &fakePoster{name: model.PlatformYouTube, fail: true, reason: "upload rejected: quota_exceeded"}
	service.platforms = map[string]platform.PostingAdapter{
		model.PlatformTikTok:  tiktok,
		model.PlatformYouTube: youtube,
	}
	service.tokens = platform.StaticTokenSource{
		"acc_tt": "tt-token",
		"acc_yt": "yt-token",
	}

	ds.On("GetAccountsForPlatform", mock.Anything, "tenant_1", model.PlatformTikTok).
		Return([]*model.SocialAccount{poolAccount("acc_tt", "tenant_1", model.PlatformTikTok)}, nil)
	ds.On("GetAccountsForPlatform", mock.Anything, "tenant_1", model.PlatformYouTube).
		Return([]*model.SocialAccount{poolAccount("acc_yt", "tenant_1", model.PlatformYouTube)}, nil)
	ds.On("ReserveAccountQuota", mock.Anything, "acc_tt").Return(true, nil)
	ds.On("ReserveAccountQuota", mock.Anything, "acc_yt").Return(true, nil)
	// The failed youtube post gives its slot back.
	ds.On("ReleaseAccountQuota", mock.Anything, "acc_yt").Return(nil)

	var recorded []model.SocialPost
	ds.On("RecordSocialPost", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		recorded = append(recorded, args.Get(1).(model.SocialPost))
	}).Return(model.SocialPost{}, nil)

	err := service.ProcessVideoReady(context.Background(), &model.VideoReadyEvent{
		VideoID:   "job_vid",
		TenantID:  "tenant_1",
		Category:  "finance",
		Platforms: []string{model.PlatformTikTok, model.PlatformYouTube},
		Caption:   "Morning market brief",
		VideoURL:  "https://cdn.reelforge.dev/videos/job_vid.mp4",
	})
	require.NoError(t, err)

	require.Len(t, recorded, 2)
	byPlatform := map[string]model.SocialPost{}
	for _, p := range recorded {
		byPlatform[p.Platform] = p
	}
	assert.Equal(t, model.PostStatusPosted, byPlatform[model.PlatformTikTok].Status)
	assert.Equal(t, model.PostStatusFailed, byPlatform[model.PlatformYouTube].Status)
	assert.Contains(t, byPlatform[model.PlatformYouTube].ErrorMessage, "quota_exceeded")

	assert.Len(t, tiktok.requests, 1)
	assert.Len(t, youtube.requests, 1)

	// One platform succeeded, so the analytics scrape is scheduled.
	found := false
	for _, key := range mr.Keys() {
		if strings.Contains(key, "analytics") {
			found = true
		}
	}
	assert.True(t, found, "expected an analytics:scrape task in redis")
	ds.AssertExpectations(t)
	ds.AssertNotCalled(t, "ReleaseAccountQuota", mock.Anything, "acc_tt")
}

func TestProcessVideoReadyNoAccountCapacity(t *testing.T) {
	service, ds, mr := newTestService(t)
	service.platforms = map[string]platform.PostingAdapter{
		model.PlatformTikTok: &fakePoster{name: model.PlatformTikTok},
	}

	ds.On("GetAccountsForPlatform", mock.Anything, "tenant_1", model.PlatformTikTok).Return(nil, nil)

	var recorded model.SocialPost
	ds.On("RecordSocialPost", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		recorded = args.Get(1).(model.SocialPost)
	}).Return(model.SocialPost{}, nil)

	err := service.ProcessVideoReady(context.Background(), &model.VideoReadyEvent{
		VideoID:   "job_vid",
		TenantID:  "tenant_1",
		Platforms: []string{model.PlatformTikTok},
		VideoURL:  "https://cdn.reelforge.dev/videos/job_vid.mp4",
	})
	require.NoError(t, err)

	assert.Equal(t, model.PostStatusFailed, recorded.Status)
	assert.Equal(t, "no account capacity", recorded.ErrorMessage)
	ds.AssertNotCalled(t, "ReserveAccountQuota", mock.Anything, mock.Anything)

	for _, key := range mr.Keys() {
		assert.NotContains(t, key, "analytics")
	}
}

func TestProcessVideoReadyReleasesQuotaOnTokenFailure(t *testing.T) {
	service, ds, _ := newTestService(t)
	service.platforms = map[string]platform.PostingAdapter{
		model.PlatformTikTok: &fakePoster{name: model.PlatformTikTok},
	}
	// The static source has no entry for the account, so token resolution
	// fails after the quota slot was taken.
	service.tokens = platform.StaticTokenSource{}

	ds.On("GetAccountsForPlatform", mock.Anything, "tenant_1", model.PlatformTikTok).
		Return([]*model.SocialAccount{poolAccount("acc_tt", "tenant_1", model.PlatformTikTok)}, nil)
	ds.On("ReserveAccountQuota", mock.Anything, "acc_tt").Return(true, nil)
	ds.On("ReleaseAccountQuota", mock.Anything, "acc_tt").Return(nil)
	ds.On("RecordSocialPost", mock.Anything, mock.MatchedBy(func(p model.SocialPost) bool {
		return p.Status == model.PostStatusFailed && strings.Contains(p.ErrorMessage, "token unavailable")
	})).Return(model.SocialPost{}, nil)

	err := service.ProcessVideoReady(context.Background(), &model.VideoReadyEvent{
		VideoID:   "job_vid",
		TenantID:  "tenant_1",
		Platforms: []string{model.PlatformTikTok},
		VideoURL:  "https://cdn.reelforge.dev/videos/job_vid.mp4",
	})
	require.NoError(t, err)
	ds.AssertExpectations(t)
}

func TestProcessVideoReadyUnsupportedPlatform(t *testing.T) {
	service, ds, _ := newTestService(t)

	ds.On("RecordSocialPost", mock.Anything, mock.MatchedBy(func(p model.SocialPost) bool {
		return p.Platform == "myspace" && p.ErrorMessage == "unsupported platform"
	})).Return(model.SocialPost{}, nil)

	err := service.ProcessVideoReady(context.Background(), &model.VideoReadyEvent{
		VideoID:   "job_vid",
		TenantID:  "tenant_1",
		Platforms: []string{"myspace"},
	})
	require.NoError(t, err)
	ds.AssertExpectations(t)
}

func TestRetriedPostAppendsNewRecord(t *testing.T) {
	service, ds, _ := newTestService(t)
	poster := &fakePoster{name: model.PlatformTikTok, fail: true, reason: "upload rejected: spam_risk"}
	service.platforms = map[string]platform.PostingAdapter{
		model.PlatformTikTok: poster,
	}
	service.tokens = platform.StaticTokenSource{"acc_tt": "tt-token"}

	ds.On("GetAccountsForPlatform", mock.Anything, "tenant_1", model.PlatformTikTok).
		Return([]*model.SocialAccount{poolAccount("acc_tt", "tenant_1", model.PlatformTikTok)}, nil)
	ds.On("ReserveAccountQuota", mock.Anything, "acc_tt").Return(true, nil)
	ds.On("ReleaseAccountQuota", mock.Anything, "acc_tt").Return(nil)

	var recorded []model.SocialPost
	ds.On("RecordSocialPost", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		recorded = append(recorded, args.Get(1).(model.SocialPost))
	}).Return(model.SocialPost{}, nil)

	event := &model.VideoReadyEvent{
		VideoID:   "job_vid",
		TenantID:  "tenant_1",
		Platforms: []string{model.PlatformTikTok},
		VideoURL:  "https://cdn.reelforge.dev/videos/job_vid.mp4",
	}

	// First attempt fails, the retry succeeds. Each attempt writes its
	// own row; the failed record is never mutated.
	require.NoError(t, service.ProcessVideoReady(context.Background(), event))
	poster.fail = false
	require.NoError(t, service.ProcessVideoReady(context.Background(), event))

	require.Len(t, recorded, 2)
	assert.Equal(t, model.PostStatusFailed, recorded[0].Status)
	assert.Contains(t, recorded[0].ErrorMessage, "spam_risk")
	assert.Equal(t, model.PostStatusPosted, recorded[1].Status)
	assert.Empty(t, recorded[1].ErrorMessage)
	assert.NotEqual(t, recorded[0].PostID, recorded[1].PostID)
}

func TestRetryFailedPostsReEmitsReadyEvents(t *testing.T) {
	service, ds, mr := newTestService(t)

	ds.On("GetFailedPostsSince", mock.Anything, mock.Anything, 25).Return([]*model.SocialPost{
		{PostID: "post_1", VideoID: "job_vid", Platform: model.PlatformTikTok, Status: model.PostStatusFailed},
		{PostID: "post_2", VideoID: "job_vid", Platform: model.PlatformYouTube, Status: model.PostStatusFailed},
	}, nil)
	ds.On("GetGenerationJob", mock.Anything, "job_vid").Return(&model.GenerationJob{
		JobID:    "job_vid",
		TenantID: "tenant_1",
		Category: "finance",
		Platform: model.PlatformTikTok,
		Prompt:   "market recap",
		Status:   model.JobStatusCompleted,
		CdnURL:   "https://cdn.reelforge.dev/videos/job_vid.mp4",
	}, nil)

	err := service.RetryFailedPosts(context.Background())
	require.NoError(t, err)

	found := false
	for _, key := range mr.Keys() {
		if strings.Contains(key, "video_ready") {
			found = true
		}
	}
	assert.True(t, found, "expected the rebuilt video:ready task in redis")
	ds.AssertExpectations(t)
}

func TestRetryFailedPostsDeduplicatesPlatforms(t *testing.T) {
	service, ds, mr := newTestService(t)

	// Two append-only failures for the same video+platform collapse into
	// one platform entry in the re-emitted event.
	ds.On("GetFailedPostsSince", mock.Anything, mock.Anything, 25).Return([]*model.SocialPost{
		{PostID: "post_1", VideoID: "job_vid", Platform: model.PlatformTikTok, Status: model.PostStatusFailed},
		{PostID: "post_2", VideoID: "job_vid", Platform: model.PlatformTikTok, Status: model.PostStatusFailed},
	}, nil)
	ds.On("GetGenerationJob", mock.Anything, "job_vid").Return(&model.GenerationJob{
		JobID:    "job_vid",
		TenantID: "tenant_1",
		Category: "finance",
		Prompt:   "market recap",
		Status:   model.JobStatusCompleted,
		CdnURL:   "https://cdn.reelforge.dev/videos/job_vid.mp4",
	}, nil)

	require.NoError(t, service.RetryFailedPosts(context.Background()))

	var payloads string
	for _, key := range mr.Keys() {
		if strings.Contains(key, "video_ready") && strings.Contains(key, ":t:") {
			payloads += mr.HGet(key, "msg")
		}
	}
	require.NotEmpty(t, payloads, "expected a rebuilt video:ready task in redis")
	assert.Equal(t, 1, strings.Count(payloads, model.PlatformTikTok))
	ds.AssertExpectations(t)
}

func TestRetryFailedPostsSkipsWhenLockHeld(t *testing.T) {
	service, ds, mr := newTestService(t)
	require.NoError(t, mr.Set("sweep:post_retry", "another-worker"))

	err := service.RetryFailedPosts(context.Background())
	require.NoError(t, err)
	ds.AssertNotCalled(t, "GetFailedPostsSince", mock.Anything, mock.Anything, mock.Anything)
}

func TestRetryFailedPostsSkipsVideosWithoutJob(t *testing.T) {
	service, ds, mr := newTestService(t)

	ds.On("GetFailedPostsSince", mock.Anything, mock.Anything, 25).Return([]*model.SocialPost{
		{PostID: "post_1", VideoID: "job_gone", Platform: model.PlatformTikTok, Status: model.PostStatusFailed},
	}, nil)
	ds.On("GetGenerationJob", mock.Anything, "job_gone").
		Return(nil, assert.AnError)

	err := service.RetryFailedPosts(context.Background())
	require.NoError(t, err)

	for _, key := range mr.Keys() {
		assert.NotContains(t, key, "video_ready")
	}
}

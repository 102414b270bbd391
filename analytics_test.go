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

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/reelforge/reelforge/model"
)

func TestProcessAnalyticsScrapeOnlyCoversLivePosts(t *testing.T) {
	service, ds, _ := newTestService(t)

	ds.On("GetPostsByVideo", mock.Anything, "job_vid").Return([]*model.SocialPost{
		{PostID: "post_1", VideoID: "job_vid", Platform: model.PlatformTikTok, Status: model.PostStatusPosted, RemoteID: "tt_1"},
		{PostID: "post_2", VideoID: "job_vid", Platform: model.PlatformYouTube, Status: model.PostStatusFailed},
	}, nil)

	err := service.ProcessAnalyticsScrape(context.Background(), &model.AnalyticsScrapeEvent{
		VideoID:   "job_vid",
		TenantID:  "tenant_1",
		Platforms: []string{model.PlatformTikTok, model.PlatformYouTube},
	})
	require.NoError(t, err)
	ds.AssertExpectations(t)
}

func TestProcessAnalyticsScrapePropagatesReadErrors(t *testing.T) {
	service, ds, _ := newTestService(t)

	ds.On("GetPostsByVideo", mock.Anything, "job_gone").Return(nil, context.DeadlineExceeded)

	err := service.ProcessAnalyticsScrape(context.Background(), &model.AnalyticsScrapeEvent{
		VideoID: "job_gone",
	})
	require.Error(t, err)
}

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
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/reelforge/reelforge/config"
	redlock "github.com/reelforge/reelforge/internal/lock"
	"github.com/reelforge/reelforge/internal/notification"
	"github.com/reelforge/reelforge/model"
	"github.com/reelforge/reelforge/platform"
)

// retrySweepWindow bounds how far back the sweep looks for failed posts.
const retrySweepWindow = 24 * time.Hour

// ProcessVideoReady posts a completed video to each requested platform.
// Platforms are handled independently: one platform failing never stops
// the others. When at least one post succeeds an analytics scrape is
// scheduled with the configured delay, listing only the platforms that
// made it.
//
// Parameters:
// - ctx context.Context: The context for the operation.
// - event *model.VideoReadyEvent: The ready event carrying the asset URL and target platforms.
//
// Returns:
// - error: Always nil; per-platform failures are recorded as failed posts, not surfaced to the queue.
func (r *Reelforge) ProcessVideoReady(ctx context.Context, event *model.VideoReadyEvent) error {
	ctx, span := tracer.Start(ctx, "Posting completed video", trace.WithAttributes(
		attribute.String("video.id", event.VideoID),
		attribute.Int("platforms.count", len(event.Platforms)),
	))
	defer span.End()

	var succeeded []string
	for _, platformName := range event.Platforms {
		if r.postToPlatform(ctx, event, platformName) {
			succeeded = append(succeeded, platformName)
		}
	}

	if len(succeeded) > 0 {
		delay := analyticsDelay()
		err := r.queue.ScheduleAnalyticsScrape(ctx, &model.AnalyticsScrapeEvent{
			VideoID:     event.VideoID,
			TenantID:    event.TenantID,
			Platforms:   succeeded,
			ScheduledAt: time.Now().Add(delay),
		}, delay)
		if err != nil {
			notification.NotifyError(err)
		}
	}

	span.SetAttributes(attribute.Int("platforms.succeeded", len(succeeded)))
	span.SetStatus(codes.Ok, "Video posting processed")
	return nil
}

// postToPlatform runs the post lifecycle for one platform: select an
// account, reserve quota, resolve the token, upload. A reserved slot is
// released on any failure after the reservation so a failed post never
// burns capacity.
func (r *Reelforge) postToPlatform(ctx context.Context, event *model.VideoReadyEvent, platformName string) bool {
	adapter, ok := r.platforms[platformName]
	if !ok {
		r.recordPost(ctx, event, platformName, "", nil, "unsupported platform")
		return false
	}

	account, err := r.SelectAccount(ctx, AccountCriteria{
		TenantID: event.TenantID,
		Platform: platformName,
		Category: event.Category,
	})
	if err != nil {
		r.recordPost(ctx, event, platformName, "", nil, fmt.Sprintf("selecting account: %v", err))
		return false
	}
	if account == nil {
		r.recordPost(ctx, event, platformName, "", nil, "no account capacity")
		return false
	}

	reserved, err := r.ReserveQuota(ctx, account.AccountID)
	if err != nil || !reserved {
		r.recordPost(ctx, event, platformName, account.AccountID, nil, "no account capacity")
		return false
	}

	token, err := r.tokens.AccessToken(ctx, account.AccountID)
	if err != nil {
		r.releaseQuotaQuietly(ctx, account.AccountID)
		r.recordPost(ctx, event, platformName, account.AccountID, nil, fmt.Sprintf("token unavailable: %v", err))
		return false
	}

	result := adapter.UploadVideo(ctx, account, token, platform.PostRequest{
		VideoID:  event.VideoID,
		VideoURL: event.VideoURL,
		Caption:  event.Caption,
		Hashtags: event.Hashtags,
	})
	if !result.Success {
		r.releaseQuotaQuietly(ctx, account.AccountID)
		r.recordPost(ctx, event, platformName, account.AccountID, nil, result.Err)
		return false
	}

	r.recordPost(ctx, event, platformName, account.AccountID, result, "")
	logrus.Infof("video %s posted to %s via %s (%s)", event.VideoID, platformName, account.AccountID, result.RemoteID)
	return true
}

func (r *Reelforge) releaseQuotaQuietly(ctx context.Context, accountID string) {
	if err := r.ReleaseQuota(ctx, accountID); err != nil {
		logrus.Errorf("account %s: releasing quota: %v", accountID, err)
	}
}

// recordPost persists the outcome of a posting attempt. Rows are
// append-only: every attempt writes its own record, so the posting history
// of a video is a full audit trail. The sweep stays bounded through the
// failed-post query's batch limit, not through row reuse.
func (r *Reelforge) recordPost(ctx context.Context, event *model.VideoReadyEvent, platformName, accountID string, result *platform.PostResult, errMessage string) {
	status := model.PostStatusFailed
	remoteID, remoteURL := "", ""
	if result != nil && result.Success {
		status = model.PostStatusPosted
		remoteID = result.RemoteID
		remoteURL = result.RemoteURL
	}

	post := model.SocialPost{
		PostID:       model.GenerateUUIDWithSuffix("post"),
		VideoID:      event.VideoID,
		AccountID:    accountID,
		TenantID:     event.TenantID,
		Platform:     platformName,
		Status:       status,
		RemoteID:     remoteID,
		RemoteURL:    remoteURL,
		ErrorMessage: errMessage,
		PostedAt:     time.Now(),
	}
	if _, err := r.datasource.RecordSocialPost(ctx, post); err != nil {
		logrus.Errorf("video %s: recording %s post: %v", event.VideoID, platformName, err)
		return
	}
	if err := r.queue.queueIndexData(post.PostID, "posts", post); err != nil {
		notification.NotifyError(err)
	}
}

// RetryFailedPosts is the periodic sweep for posts that failed in the
// last day. It groups failures by video, rebuilds a ready event for the
// failed platform set, and re-emits it. The batch is capped so one sweep
// never monopolizes a worker; the redlock keeps concurrent workers from
// double-sweeping.
//
// Parameters:
// - ctx context.Context: The context for the operation.
//
// Returns:
// - error: An error if the failed posts could not be read.
func (r *Reelforge) RetryFailedPosts(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Sweeping failed posts")
	defer span.End()

	locker := redlock.NewLocker(r.redis, "sweep:post_retry", model.GenerateUUIDWithSuffix("lock"))
	if err := locker.Lock(ctx, 5*time.Minute); err != nil {
		logrus.Info("post retry sweep already running elsewhere, skipping")
		span.SetStatus(codes.Ok, "Sweep skipped, lock held")
		return nil
	}
	defer func() {
		if err := locker.Unlock(ctx); err != nil {
			logrus.Warnf("releasing sweep lock: %v", err)
		}
	}()

	batchSize := 25
	if conf, err := config.Fetch(); err == nil && conf.Posting.RetrySweepBatchSize > 0 {
		batchSize = conf.Posting.RetrySweepBatchSize
	}

	failed, err := r.datasource.GetFailedPostsSince(ctx, time.Now().Add(-retrySweepWindow), batchSize)
	if err != nil {
		logAndRecordError(span, err)
		return err
	}
	if len(failed) == 0 {
		span.SetStatus(codes.Ok, "No failed posts to retry")
		return nil
	}

	// Group the failures by video so one re-emitted event covers every
	// platform that failed for it. Posts are append-only, so a platform
	// can show up in several failed rows for the same video.
	platformsByVideo := make(map[string][]string)
	seen := make(map[string]bool)
	for _, post := range failed {
		key := post.VideoID + ":" + post.Platform
		if seen[key] {
			continue
		}
		seen[key] = true
		platformsByVideo[post.VideoID] = append(platformsByVideo[post.VideoID], post.Platform)
	}

	retried := 0
	for videoID, platforms := range platformsByVideo {
		job, err := r.datasource.GetGenerationJob(ctx, videoID)
		if err != nil {
			logrus.Warnf("sweep: video %s has no job record, skipping: %v", videoID, err)
			continue
		}

		event := &model.VideoReadyEvent{
			VideoID:   job.JobID,
			TenantID:  job.TenantID,
			ConceptID: job.ConceptID,
			Category:  job.Category,
			Platforms: platforms,
			Caption:   captionForJob(job),
			Hashtags:  hashtagsForJob(job),
			VideoURL:  job.CdnURL,
		}
		if err := r.queue.EnqueueVideoReady(ctx, event); err != nil {
			logrus.Errorf("sweep: re-enqueueing video %s: %v", videoID, err)
			continue
		}
		retried++
	}

	logrus.Infof("post retry sweep re-enqueued %d videos covering %d failed posts", retried, len(failed))
	span.SetAttributes(attribute.Int("videos.retried", retried))
	span.SetStatus(codes.Ok, "Sweep complete")
	return nil
}

// GetPostsByVideo retrieves the posting history of a video across all
// platforms.
func (r *Reelforge) GetPostsByVideo(ctx context.Context, videoID string) ([]*model.SocialPost, error) {
	return r.datasource.GetPostsByVideo(ctx, videoID)
}

// GetPostsByTenant retrieves a tenant's most recent posts, capped at
// limit rows.
func (r *Reelforge) GetPostsByTenant(ctx context.Context, tenantID string, limit int) ([]*model.SocialPost, error) {
	if limit <= 0 {
		limit = 50
	}
	return r.datasource.GetPostsByTenant(ctx, tenantID, limit)
}

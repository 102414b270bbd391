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
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/reelforge/reelforge/internal/notification"
	"github.com/reelforge/reelforge/model"
)

// AnalyticsSnapshot is the indexed record of a scheduled scrape: which
// posts of a video were live when the scrape fired. Engagement numbers
// come from a separate ingestion pipeline; this snapshot anchors them to
// the video and its remote post IDs.
type AnalyticsSnapshot struct {
	PostID    string    `json:"post_id"`
	VideoID   string    `json:"video_id"`
	TenantID  string    `json:"tenant_id"`
	Platform  string    `json:"platform"`
	RemoteID  string    `json:"remote_id"`
	RemoteURL string    `json:"remote_url"`
	ScrapedAt time.Time `json:"scraped_at"`
}

// ProcessAnalyticsScrape handles a delayed analytics:scrape task. It
// resolves the video's live posts on the platforms the event names and
// indexes one snapshot per post.
//
// Parameters:
// - ctx context.Context: The context for the operation.
// - event *model.AnalyticsScrapeEvent: The scrape event scheduled after posting.
//
// Returns:
// - error: An error if the post records could not be read.
func (r *Reelforge) ProcessAnalyticsScrape(ctx context.Context, event *model.AnalyticsScrapeEvent) error {
	ctx, span := tracer.Start(ctx, "Scraping post analytics", trace.WithAttributes(
		attribute.String("video.id", event.VideoID),
	))
	defer span.End()

	posts, err := r.datasource.GetPostsByVideo(ctx, event.VideoID)
	if err != nil {
		logAndRecordError(span, err)
		return err
	}

	wanted := make(map[string]bool, len(event.Platforms))
	for _, p := range event.Platforms {
		wanted[p] = true
	}

	scraped := 0
	now := time.Now()
	for _, post := range posts {
		if post.Status != model.PostStatusPosted || !wanted[post.Platform] {
			continue
		}
		snapshot := AnalyticsSnapshot{
			PostID:    post.PostID,
			VideoID:   post.VideoID,
			TenantID:  post.TenantID,
			Platform:  post.Platform,
			RemoteID:  post.RemoteID,
			RemoteURL: post.RemoteURL,
			ScrapedAt: now,
		}
		if err := r.queue.queueIndexData(post.PostID, "analytics", snapshot); err != nil {
			notification.NotifyError(err)
		}
		scraped++
	}

	logrus.Infof("analytics scrape for video %s covered %d posts", event.VideoID, scraped)
	span.SetAttributes(attribute.Int("posts.scraped", scraped))
	span.SetStatus(codes.Ok, "Analytics scrape processed")
	return nil
}

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

// RecordSocialPost inserts a posting attempt into the history table.
func (d Datasource) RecordSocialPost(ctx context.Context, p model.SocialPost) (model.SocialPost, error) {
	ctx, span := otel.Tracer("post.database").Start(ctx, "Saving social post to db")
	defer span.End()

	_, err := d.Conn.ExecContext(ctx,
		`INSERT INTO reelforge.social_posts (post_id, video_id, account_id, tenant_id, platform, status, remote_id, remote_url, error_message, posted_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		p.PostID, p.VideoID, p.AccountID, p.TenantID, p.Platform, p.Status, p.RemoteID, p.RemoteURL, p.ErrorMessage, p.PostedAt)
	if err != nil {
		span.RecordError(err)
		pqErr, ok := err.(*pq.Error)
		if ok && pqErr.Code == "23505" {
			return p, apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("Social post with ID '%s' already exists", p.PostID), err)
		}
		return p, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to record social post", err)
	}

	span.SetStatus(codes.Ok, "Social post saved to db")
	return p, nil
}

// GetPostsByVideo lists every posting attempt made for a video.
func (d Datasource) GetPostsByVideo(ctx context.Context, videoID string) ([]*model.SocialPost, error) {
	ctx, span := otel.Tracer("post.database").Start(ctx, "Fetching posts for video", trace.WithAttributes(attribute.String("video.id", videoID)))
	defer span.End()

	rows, err := d.Conn.QueryContext(ctx,
		`SELECT post_id, video_id, account_id, tenant_id, platform, status, remote_id, remote_url, error_message, posted_at
		FROM reelforge.social_posts WHERE video_id = $1 ORDER BY posted_at ASC`, videoID)
	if err != nil {
		span.RecordError(err)
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve social posts", err)
	}
	defer rows.Close()

	posts, err := scanPostRows(rows)
	if err != nil {
		span.RecordError(err)
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan social posts", err)
	}

	span.SetAttributes(attribute.Int("posts.count", len(posts)))
	span.SetStatus(codes.Ok, "Social posts retrieved")
	return posts, nil
}

// GetFailedPostsSince lists failed posts newer than the cutoff, oldest first,
// bounded so a retry sweep cannot monopolize a worker.
func (d Datasource) GetFailedPostsSince(ctx context.Context, since time.Time, limit int) ([]*model.SocialPost, error) {
	ctx, span := otel.Tracer("post.database").Start(ctx, "Fetching failed posts for retry sweep")
	defer span.End()

	rows, err := d.Conn.QueryContext(ctx,
		`SELECT post_id, video_id, account_id, tenant_id, platform, status, remote_id, remote_url, error_message, posted_at
		FROM reelforge.social_posts WHERE status = 'failed' AND posted_at >= $1 ORDER BY posted_at ASC LIMIT $2`, since, limit)
	if err != nil {
		span.RecordError(err)
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve failed posts", err)
	}
	defer rows.Close()

	posts, err := scanPostRows(rows)
	if err != nil {
		span.RecordError(err)
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan failed posts", err)
	}

	span.SetAttributes(attribute.Int("posts.count", len(posts)))
	span.SetStatus(codes.Ok, "Failed posts retrieved")
	return posts, nil
}

// GetPostsByTenant lists a tenant's posting history, newest first.
func (d Datasource) GetPostsByTenant(ctx context.Context, tenantID string, limit int) ([]*model.SocialPost, error) {
	ctx, span := otel.Tracer("post.database").Start(ctx, "Fetching posts for tenant", trace.WithAttributes(attribute.String("tenant.id", tenantID)))
	defer span.End()

	rows, err := d.Conn.QueryContext(ctx,
		`SELECT post_id, video_id, account_id, tenant_id, platform, status, remote_id, remote_url, error_message, posted_at
		FROM reelforge.social_posts WHERE tenant_id = $1 ORDER BY posted_at DESC LIMIT $2`, tenantID, limit)
	if err != nil {
		span.RecordError(err)
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve social posts", err)
	}
	defer rows.Close()

	posts, err := scanPostRows(rows)
	if err != nil {
		span.RecordError(err)
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan social posts", err)
	}

	span.SetStatus(codes.Ok, "Social posts retrieved")
	return posts, nil
}

func scanPostRows(rows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}) ([]*model.SocialPost, error) {
	var posts []*model.SocialPost
	for rows.Next() {
		p := &model.SocialPost{}
		err := rows.Scan(&p.PostID, &p.VideoID, &p.AccountID, &p.TenantID, &p.Platform, &p.Status, &p.RemoteID, &p.RemoteURL, &p.ErrorMessage, &p.PostedAt)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

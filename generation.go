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
	"github.com/reelforge/reelforge/internal/apierror"
	"github.com/reelforge/reelforge/internal/notification"
	"github.com/reelforge/reelforge/model"
	"github.com/reelforge/reelforge/quality"
)

// logAndRecordError logs an error and records it on the active span.
func logAndRecordError(span trace.Span, err error) {
	logrus.Error(err)
	span.RecordError(err)
}

// QueueGeneration accepts a generation request, persists the job in
// pending status, and enqueues it for the workers. This is the entry
// point the API layer calls.
//
// Parameters:
// - ctx context.Context: The context for the operation.
// - req *model.GenerationRequest: The generation request. A missing job ID, attempt, or platform is defaulted.
//
// Returns:
// - *model.GenerationJob: The persisted job in pending status.
// - error: An error if the job could not be persisted or enqueued.
func (r *Reelforge) QueueGeneration(ctx context.Context, req *model.GenerationRequest) (*model.GenerationJob, error) {
	ctx, span := tracer.Start(ctx, "Queuing generation job")
	defer span.End()

	if req.JobID == "" {
		req.JobID = model.GenerateUUIDWithSuffix("job")
	}
	if req.Attempt <= 0 {
		req.Attempt = 1
	}
	if req.Platform == "" {
		req.Platform = model.PlatformTikTok
	}
	span.SetAttributes(attribute.String("job.id", req.JobID))

	estimatedProvider, estimatedCost, tier := r.router.EstimateCost(req.Category, 0)
	logrus.Infof("job %s: %s tier, provider %s preferred, estimated cost %s",
		req.JobID, tier, estimatedProvider, estimatedCost)

	job := model.GenerationJob{
		JobID:     req.JobID,
		TenantID:  req.TenantID,
		ConceptID: req.ConceptID,
		Category:  req.Category,
		Platform:  req.Platform,
		Prompt:    req.Prompt,
		Provider:  req.Provider,
		Priority:  req.Priority,
		Attempt:   req.Attempt,
		Status:    model.JobStatusPending,
		Cost:      estimatedCost,
		MetaData:  req.MetaData,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	job, err := r.datasource.CreateGenerationJob(ctx, job)
	if err != nil {
		logAndRecordError(span, err)
		return nil, err
	}

	if err := r.queue.EnqueueGeneration(ctx, req, 0); err != nil {
		logAndRecordError(span, err)
		return nil, err
	}

	go func() {
		if err := SendWebhook(NewWebhook{Event: getEventFromJobStatus(job.Status), Payload: job}); err != nil {
			notification.NotifyError(err)
		}
	}()
	if err := r.queue.queueIndexData(job.JobID, "videos", job); err != nil {
		notification.NotifyError(err)
	}

	span.SetStatus(codes.Ok, "Generation job queued")
	return &job, nil
}

// ProcessGeneration runs one generation attempt end to end: route to a
// provider, copy the asset into durable storage, validate it, and mark
// the job completed. Every transition is persisted before the next step
// starts, so a crashed worker resumes from the job record instead of
// repeating side effects. Jobs already in a terminal status are skipped,
// which makes redelivery of the same event harmless.
//
// A failed attempt never returns an error to the queue: the retry
// coordinator owns the retry schedule, so this method records the
// failure, emits a video:failed event, and reports success to asynq.
//
// Parameters:
// - ctx context.Context: The context for the operation.
// - req *model.GenerationRequest: The generation request being attempted.
//
// Returns:
// - error: An error only for infrastructure faults where redelivery helps (e.g. the job row is unreachable).
func (r *Reelforge) ProcessGeneration(ctx context.Context, req *model.GenerationRequest) error {
	ctx, span := tracer.Start(ctx, "Processing generation job", trace.WithAttributes(
		attribute.String("job.id", req.JobID),
		attribute.Int("job.attempt", req.Attempt),
	))
	defer span.End()

	job, err := r.loadOrCreateJob(ctx, req)
	if err != nil {
		logAndRecordError(span, err)
		return err
	}

	if job.IsTerminal() {
		logrus.Infof("job %s already %s, skipping redelivered attempt %d", job.JobID, job.Status, req.Attempt)
		span.SetStatus(codes.Ok, "Job already terminal")
		return nil
	}

	if req.Attempt > job.Attempt {
		job.Attempt = req.Attempt
	}

	// generating
	if err := r.datasource.UpdateGenerationJobStatus(ctx, job.JobID, model.JobStatusGenerating); err != nil {
		logAndRecordError(span, err)
		return err
	}

	result := r.router.Route(ctx, job)
	if !result.Success {
		span.AddEvent("generation failed", trace.WithAttributes(attribute.String("error", result.Err)))
		return r.failGenerationAttempt(ctx, job, result.Provider, result.Err)
	}
	job.Provider = result.Provider
	job.DurationSec = result.DurationSec
	job.Cost = result.Cost

	// uploading
	if err := r.datasource.UpdateGenerationJobStatus(ctx, job.JobID, model.JobStatusUploading); err != nil {
		logAndRecordError(span, err)
		return err
	}

	s3URL, cdnURL, err := r.uploader.Upload(ctx, result.VideoURL, job.JobID+".mp4", map[string]string{
		"tenant_id": job.TenantID,
		"job_id":    job.JobID,
		"provider":  job.Provider,
	})
	if err != nil {
		span.AddEvent("upload failed", trace.WithAttributes(attribute.String("error", err.Error())))
		return r.failGenerationAttempt(ctx, job, job.Provider, fmt.Sprintf("storing asset: %v", err))
	}
	job.VideoURL = s3URL
	job.CdnURL = cdnURL

	// validating. Issues are advisory: they annotate the record and never
	// stop the job from completing.
	if err := r.datasource.UpdateGenerationJobStatus(ctx, job.JobID, model.JobStatusValidating); err != nil {
		logAndRecordError(span, err)
		return err
	}

	sizeBytes, probeErr := r.validator.ProbeSize(ctx, job.CdnURL)
	if probeErr != nil {
		logrus.Warnf("job %s: size probe failed, skipping size check: %v", job.JobID, probeErr)
	}
	check := r.validator.Validate(job.Platform, quality.AssetMetadata{
		DurationSec:   job.DurationSec,
		FileSizeBytes: sizeBytes,
		HasAudio:      true,
	})
	job.QualityIssues = check.Issues
	if !check.Valid {
		logrus.Infof("job %s completed with quality issues: %v", job.JobID, check.Issues)
	}

	// completed
	job.Status = model.JobStatusCompleted
	job.ErrorMessage = ""
	if err := r.datasource.UpdateGenerationJob(ctx, job); err != nil {
		logAndRecordError(span, err)
		return err
	}

	ready := &model.VideoReadyEvent{
		VideoID:   job.JobID,
		TenantID:  job.TenantID,
		ConceptID: job.ConceptID,
		Category:  job.Category,
		Platforms: []string{job.Platform},
		Caption:   captionForJob(job),
		Hashtags:  hashtagsForJob(job),
		VideoURL:  job.CdnURL,
	}
	if err := r.queue.EnqueueVideoReady(ctx, ready); err != nil {
		logAndRecordError(span, err)
		return err
	}

	go func() {
		if err := SendWebhook(NewWebhook{Event: getEventFromJobStatus(job.Status), Payload: job}); err != nil {
			notification.NotifyError(err)
		}
	}()
	if err := r.queue.queueIndexData(job.JobID, "videos", job); err != nil {
		notification.NotifyError(err)
	}

	span.SetStatus(codes.Ok, "Generation job completed")
	return nil
}

// loadOrCreateJob fetches the job record, creating it in pending status
// when the event arrived before (or without) a persisted job.
func (r *Reelforge) loadOrCreateJob(ctx context.Context, req *model.GenerationRequest) (*model.GenerationJob, error) {
	job, err := r.datasource.GetGenerationJob(ctx, req.JobID)
	if err == nil {
		return job, nil
	}

	apiErr, ok := err.(apierror.APIError)
	if !ok || apiErr.Code != apierror.ErrNotFound {
		return nil, err
	}

	attempt := req.Attempt
	if attempt <= 0 {
		attempt = 1
	}
	platformName := req.Platform
	if platformName == "" {
		platformName = model.PlatformTikTok
	}
	_, estimatedCost, _ := r.router.EstimateCost(req.Category, 0)

	created, err := r.datasource.CreateGenerationJob(ctx, model.GenerationJob{
		JobID:     req.JobID,
		TenantID:  req.TenantID,
		ConceptID: req.ConceptID,
		Category:  req.Category,
		Platform:  platformName,
		Prompt:    req.Prompt,
		Provider:  req.Provider,
		Priority:  req.Priority,
		Attempt:   attempt,
		Status:    model.JobStatusPending,
		Cost:      estimatedCost,
		MetaData:  req.MetaData,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// failGenerationAttempt records a failed attempt and hands the job to the
// retry coordinator. The job goes back to pending rather than failed:
// only the coordinator decides when a failure is permanent.
func (r *Reelforge) failGenerationAttempt(ctx context.Context, job *model.GenerationJob, providerName, reason string) error {
	job.Status = model.JobStatusPending
	job.ErrorMessage = reason
	if err := r.datasource.UpdateGenerationJob(ctx, job); err != nil {
		logrus.Errorf("job %s: persisting failed attempt: %v", job.JobID, err)
	}

	return r.queue.EnqueueJobFailed(ctx, &model.JobFailedEvent{
		JobID:     job.JobID,
		TenantID:  job.TenantID,
		Error:     reason,
		Provider:  providerName,
		Attempt:   job.Attempt,
		ConceptID: job.ConceptID,
		Category:  job.Category,
		Platform:  job.Platform,
		Prompt:    job.Prompt,
	})
}

// captionForJob prefers an explicit caption in the job metadata and falls
// back to the prompt, trimmed to a length every platform accepts.
func captionForJob(job *model.GenerationJob) string {
	if caption, ok := job.MetaData["caption"].(string); ok && caption != "" {
		return caption
	}
	// Trim on rune boundaries so a multi-byte character is never split
	// into invalid UTF-8.
	caption := []rune(job.Prompt)
	if len(caption) > 100 {
		caption = caption[:100]
	}
	return string(caption)
}

func hashtagsForJob(job *model.GenerationJob) []string {
	raw, ok := job.MetaData["hashtags"].([]interface{})
	if !ok {
		return nil
	}
	var tags []string
	for _, entry := range raw {
		if tag, ok := entry.(string); ok && tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// analyticsDelay resolves the configured hold-back for analytics scrapes.
func analyticsDelay() time.Duration {
	conf, err := config.Fetch()
	if err != nil {
		return 6 * time.Hour
	}
	return time.Duration(conf.Posting.AnalyticsDelayHours) * time.Hour
}

// GetGenerationJob retrieves a generation job by its ID.
//
// Parameters:
// - ctx context.Context: The context for the operation.
// - jobID string: The ID of the job to retrieve.
//
// Returns:
// - *model.GenerationJob: A pointer to the retrieved job.
// - error: An error if the job could not be retrieved.
func (r *Reelforge) GetGenerationJob(ctx context.Context, jobID string) (*model.GenerationJob, error) {
	return r.datasource.GetGenerationJob(ctx, jobID)
}

// ListGenerationJobsByStatus retrieves jobs in the given status, capped at
// limit rows.
func (r *Reelforge) ListGenerationJobsByStatus(ctx context.Context, status string, limit int) ([]*model.GenerationJob, error) {
	if limit <= 0 {
		limit = 50
	}
	return r.datasource.GetGenerationJobsByStatus(ctx, status, limit)
}

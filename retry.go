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

	"github.com/reelforge/reelforge/internal/notification"
	"github.com/reelforge/reelforge/model"
)

// retryBaseDelay is the hold-back before the second attempt; each further
// attempt doubles it (5s, 10s, 20s).
const retryBaseDelay = 5 * time.Second

// RetryBackoff returns how long to wait before re-running a job that
// failed on the given attempt.
func RetryBackoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return retryBaseDelay * time.Duration(1<<(attempt-1))
}

// HandleJobFailed is the retry coordinator. It consumes video:failed
// events and either schedules the next attempt with exponential backoff
// or, once the attempt cap is reached, marks the job permanently failed
// and notifies the tenant's webhook.
//
// Parameters:
// - ctx context.Context: The context for the operation.
// - event *model.JobFailedEvent: The failure event. Missing optional fields are defaulted.
//
// Returns:
// - error: An error if the next attempt could not be scheduled or the permanent failure not persisted.
func (r *Reelforge) HandleJobFailed(ctx context.Context, event *model.JobFailedEvent) error {
	ctx, span := tracer.Start(ctx, "Handling failed generation job", trace.WithAttributes(
		attribute.String("job.id", event.JobID),
		attribute.Int("job.attempt", event.Attempt),
	))
	defer span.End()

	attempt := event.Attempt
	if attempt <= 0 {
		attempt = 1
	}

	if attempt >= model.MaxGenerationAttempts {
		return r.failJobPermanently(ctx, span, event, attempt)
	}

	platformName := event.Platform
	if platformName == "" {
		platformName = model.PlatformTikTok
	}

	next := &model.GenerationRequest{
		JobID:     event.JobID,
		TenantID:  event.TenantID,
		ConceptID: event.ConceptID,
		Category:  event.Category,
		Platform:  platformName,
		Prompt:    event.Prompt,
		Attempt:   attempt + 1,
	}

	delay := RetryBackoff(attempt)
	if err := r.queue.EnqueueGeneration(ctx, next, delay); err != nil {
		logAndRecordError(span, err)
		return err
	}

	logrus.Infof("job %s: attempt %d failed (%s), retry %d scheduled in %s", event.JobID, attempt, event.Error, attempt+1, delay)
	span.SetStatus(codes.Ok, "Retry scheduled")
	return nil
}

func (r *Reelforge) failJobPermanently(ctx context.Context, span trace.Span, event *model.JobFailedEvent, attempt int) error {
	message := fmt.Sprintf("generation failed after %d attempts: %s", attempt, event.Error)

	job, err := r.datasource.GetGenerationJob(ctx, event.JobID)
	if err != nil {
		logAndRecordError(span, err)
		return err
	}
	job.Status = model.JobStatusFailed
	job.ErrorMessage = message
	if err := r.datasource.UpdateGenerationJob(ctx, job); err != nil {
		logAndRecordError(span, err)
		return err
	}

	go func() {
		if err := SendWebhook(NewWebhook{Event: getEventFromJobStatus(model.JobStatusFailed), Payload: job}); err != nil {
			notification.NotifyError(err)
		}
	}()
	if err := r.queue.queueIndexData(job.JobID, "videos", job); err != nil {
		notification.NotifyError(err)
	}

	logrus.Errorf("job %s permanently failed: %s", event.JobID, message)
	span.SetStatus(codes.Ok, "Job permanently failed")
	return nil
}

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

func TestRetryBackoff(t *testing.T) {
	assert.Equal(t, 5*time.Second, RetryBackoff(1))
	assert.Equal(t, 10*time.Second, RetryBackoff(2))
	assert.Equal(t, 20*time.Second, RetryBackoff(3))
	assert.Equal(t, 5*time.Second, RetryBackoff(0))
}

func TestHandleJobFailedSchedulesNextAttempt(t *testing.T) {
	service, ds, mr := newTestService(t)

	err := service.HandleJobFailed(context.Background(), &model.JobFailedEvent{
		JobID:    "job_retry",
		TenantID: "tenant_1",
		Error:    "provider sora: rendering failed",
		Provider: "sora",
		Attempt:  1,
		Category: "finance",
		Platform: model.PlatformTikTok,
		Prompt:   "retry me",
	})
	require.NoError(t, err)

	// The next attempt sits in the scheduled set until the backoff lapses.
	assert.NotEmpty(t, mr.Keys(), "expected the retry task in redis")
	ds.AssertNotCalled(t, "UpdateGenerationJob", mock.Anything, mock.Anything)

	req, lookupErr := service.queue.GetGenerationRequestFromQueue("job_retry", 2)
	require.NoError(t, lookupErr)
	require.NotNil(t, req)
	assert.Equal(t, 2, req.Attempt)
	assert.Equal(t, "finance", req.Category)
}

func TestHandleJobFailedMarksJobPermanentlyFailed(t *testing.T) {
	service, ds, _ := newTestService(t)

	job := &model.GenerationJob{
		JobID:    "job_dead",
		TenantID: "tenant_1",
		Status:   model.JobStatusPending,
		Attempt:  model.MaxGenerationAttempts,
	}
	ds.On("GetGenerationJob", mock.Anything, "job_dead").Return(job, nil)

	var saved *model.GenerationJob
	ds.On("UpdateGenerationJob", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		saved = args.Get(1).(*model.GenerationJob)
	}).Return(nil)

	err := service.HandleJobFailed(context.Background(), &model.JobFailedEvent{
		JobID:    "job_dead",
		TenantID: "tenant_1",
		Error:    "provider luma: prompt rejected",
		Attempt:  model.MaxGenerationAttempts,
	})
	require.NoError(t, err)

	require.NotNil(t, saved)
	assert.Equal(t, model.JobStatusFailed, saved.Status)
	assert.Contains(t, saved.ErrorMessage, "generation failed after 3 attempts")
	assert.Contains(t, saved.ErrorMessage, "prompt rejected")
}

func TestHandleJobFailedDefaultsMissingAttempt(t *testing.T) {
	service, _, _ := newTestService(t)

	// Attempt 0 is treated as the first attempt, so a retry is scheduled
	// rather than the job being written off.
	err := service.HandleJobFailed(context.Background(), &model.JobFailedEvent{
		JobID:    "job_zero",
		TenantID: "tenant_1",
		Error:    "worker crashed mid-flight",
	})
	require.NoError(t, err)

	req, lookupErr := service.queue.GetGenerationRequestFromQueue("job_zero", 2)
	require.NoError(t, lookupErr)
	require.NotNil(t, req)
	assert.Equal(t, model.PlatformTikTok, req.Platform)
}

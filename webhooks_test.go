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
	"encoding/json"
	"net/http"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelforge/reelforge/config"
	"github.com/reelforge/reelforge/model"
)

func TestGetEventFromJobStatus(t *testing.T) {
	assert.Equal(t, "video.queued", getEventFromJobStatus(model.JobStatusPending))
	assert.Equal(t, "video.generating", getEventFromJobStatus(model.JobStatusGenerating))
	assert.Equal(t, "video.uploading", getEventFromJobStatus(model.JobStatusUploading))
	assert.Equal(t, "video.validating", getEventFromJobStatus(model.JobStatusValidating))
	assert.Equal(t, "video.completed", getEventFromJobStatus(model.JobStatusCompleted))
	assert.Equal(t, "video.failed", getEventFromJobStatus(model.JobStatusFailed))
	assert.Equal(t, "video.unknown", getEventFromJobStatus("something else"))
}

func TestSendWebhookSkipsWithoutURL(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	config.MockConfig(&config.Configuration{
		Redis: config.RedisConfig{Dns: mr.Addr()},
	})

	err = SendWebhook(NewWebhook{Event: "video.completed", Payload: map[string]string{"job_id": "job_1"}})
	require.NoError(t, err)
	assert.Empty(t, mr.Keys())
}

func TestSendWebhookEnqueuesTask(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	mockConfig := &config.Configuration{
		Redis: config.RedisConfig{Dns: mr.Addr()},
	}
	mockConfig.Notification.Webhook.Url = "https://hooks.tenant.example/reelforge"
	config.MockConfig(mockConfig)

	err = SendWebhook(NewWebhook{Event: "video.completed", Payload: map[string]string{"job_id": "job_1"}})
	require.NoError(t, err)
	assert.NotEmpty(t, mr.Keys(), "expected the webhook task in redis")
}

func TestProcessWebhookDeliversPayload(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	mockConfig := &config.Configuration{
		Redis: config.RedisConfig{Dns: mr.Addr()},
	}
	mockConfig.Notification.Webhook.Url = "https://hooks.tenant.example/reelforge"
	mockConfig.Notification.Webhook.Headers = map[string]string{"X-ReelForge-Signature": "test"}
	config.MockConfig(mockConfig)

	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	var received NewWebhook
	httpmock.RegisterResponder("POST", "https://hooks.tenant.example/reelforge",
		func(req *http.Request) (*http.Response, error) {
			if err := json.NewDecoder(req.Body).Decode(&received); err != nil {
				return httpmock.NewStringResponse(400, ""), nil
			}
			return httpmock.NewJsonResponse(200, map[string]string{"status": "ok"})
		})

	payload, err := json.Marshal(NewWebhook{Event: "video.failed", Payload: map[string]string{"job_id": "job_1"}})
	require.NoError(t, err)

	err = ProcessWebhook(context.Background(), asynq.NewTask("new:webhook", payload))
	require.NoError(t, err)
	assert.Equal(t, "video.failed", received.Event)
}

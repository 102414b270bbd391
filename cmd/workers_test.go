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

package main

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelforge/reelforge/config"
	"github.com/reelforge/reelforge/model"
)

func TestInitializeQueuesCoversEveryConsumer(t *testing.T) {
	cnf := &config.Configuration{}
	config.MockConfig(cnf)

	queues := initializeQueues()
	require.NotNil(t, queues)

	for i := 1; i <= cnf.Queue.NumberOfQueues; i++ {
		assert.Contains(t, queues, fmt.Sprintf("%s_%d", cnf.Queue.GenerateQueue, i))
	}
	assert.Contains(t, queues, cnf.Queue.ReadyQueue)
	assert.Contains(t, queues, cnf.Queue.FailedQueue)
	assert.Contains(t, queues, cnf.Queue.AnalyticsQueue)
	assert.Contains(t, queues, cnf.Queue.WebhookQueue)
	assert.Contains(t, queues, cnf.Queue.IndexQueue)
	assert.Contains(t, queues, cnf.Queue.SweepQueue)
}

func TestVideoReadyPayloadRoundTrip(t *testing.T) {
	payload, err := json.Marshal(&model.VideoReadyEvent{
		VideoID:   "job_1",
		TenantID:  "tenant_1",
		Platforms: []string{model.PlatformTikTok},
	})
	require.NoError(t, err)

	var event model.VideoReadyEvent
	require.NoError(t, json.Unmarshal(payload, &event))
	assert.Equal(t, "job_1", event.VideoID)
	assert.Equal(t, []string{model.PlatformTikTok}, event.Platforms)
}

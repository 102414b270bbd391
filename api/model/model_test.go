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
package model

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/reelforge/reelforge/model"
)

func TestValidateQueueVideo(t *testing.T) {
	valid := QueueVideo{
		TenantID: "tenant_1",
		Category: "finance",
		Platform: model.PlatformTikTok,
		Prompt:   "30 seconds on index funds",
	}
	assert.NoError(t, valid.ValidateQueueVideo())

	missingPrompt := valid
	missingPrompt.Prompt = ""
	assert.Error(t, missingPrompt.ValidateQueueVideo())

	badPlatform := valid
	badPlatform.Platform = "myspace"
	assert.Error(t, badPlatform.ValidateQueueVideo())

	badProvider := valid
	badProvider.Provider = "dalle"
	assert.Error(t, badProvider.ValidateQueueVideo())

	// Platform is optional; the service defaults it.
	noPlatform := valid
	noPlatform.Platform = ""
	assert.NoError(t, noPlatform.ValidateQueueVideo())
}

func TestValidateCreateSocialAccount(t *testing.T) {
	valid := CreateSocialAccount{
		TenantID:   "tenant_1",
		Platform:   model.PlatformYouTube,
		Username:   "finance_daily",
		DailyLimit: 10,
	}
	assert.NoError(t, valid.ValidateCreateSocialAccount())

	missingUser := valid
	missingUser.Username = ""
	assert.Error(t, missingUser.ValidateCreateSocialAccount())

	overLimit := valid
	overLimit.DailyLimit = 500
	assert.Error(t, overLimit.ValidateCreateSocialAccount())
}

func TestToGenerationRequest(t *testing.T) {
	dto := QueueVideo{
		TenantID: "tenant_1",
		Category: "tech",
		Prompt:   "explain RISC-V in a minute",
		Provider: "veo",
		Priority: 3,
		MetaData: map[string]interface{}{"caption": "RISC-V in 60s"},
	}
	req := dto.ToGenerationRequest()
	assert.Equal(t, "tech", req.Category)
	assert.Equal(t, "veo", req.Provider)
	assert.Equal(t, "RISC-V in 60s", req.MetaData["caption"])
}

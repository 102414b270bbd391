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
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/reelforge/reelforge/model"
)

var supportedPlatforms = []interface{}{
	model.PlatformTikTok,
	model.PlatformYouTube,
	model.PlatformInstagram,
}

var knownProviders = []interface{}{"sora", "veo", "runway", "luma", ""}

func (v *QueueVideo) ValidateQueueVideo() error {
	return validation.ValidateStruct(v,
		validation.Field(&v.TenantID, validation.Required),
		validation.Field(&v.Prompt, validation.Required, validation.Length(1, 2000)),
		validation.Field(&v.Category, validation.Required),
		validation.Field(&v.Platform, validation.When(v.Platform != "", validation.In(supportedPlatforms...))),
		validation.Field(&v.Provider, validation.In(knownProviders...)),
		validation.Field(&v.Priority, validation.Min(0), validation.Max(10)),
	)
}

func (a *CreateSocialAccount) ValidateCreateSocialAccount() error {
	return validation.ValidateStruct(a,
		validation.Field(&a.TenantID, validation.Required),
		validation.Field(&a.Platform, validation.Required, validation.In(supportedPlatforms...)),
		validation.Field(&a.Username, validation.Required),
		validation.Field(&a.DailyLimit, validation.Min(0), validation.Max(100)),
	)
}

func (v *QueueVideo) ToGenerationRequest() *model.GenerationRequest {
	return &model.GenerationRequest{
		TenantID:  v.TenantID,
		ConceptID: v.ConceptID,
		Category:  v.Category,
		Platform:  v.Platform,
		Prompt:    v.Prompt,
		Provider:  v.Provider,
		Priority:  v.Priority,
		MetaData:  v.MetaData,
	}
}

func (a *CreateSocialAccount) ToAccount() model.SocialAccount {
	return model.SocialAccount{
		TenantID:   a.TenantID,
		Platform:   a.Platform,
		Username:   a.Username,
		Niche:      a.Niche,
		DailyLimit: a.DailyLimit,
	}
}

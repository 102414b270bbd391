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

package provider

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/reelforge/reelforge/config"
	"github.com/reelforge/reelforge/internal/request"
	"github.com/reelforge/reelforge/model"
	"github.com/shopspring/decimal"
)

var lumaRate = decimal.NewFromFloat(0.12)

// LumaAdapter drives the Luma Dream Machine API. Economy tier.
type LumaAdapter struct {
	cfg config.ProviderConfig
}

func NewLumaAdapter(cfg config.ProviderConfig) *LumaAdapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.lumalabs.ai/dream-machine/v1"
	}
	return &LumaAdapter{cfg: cfg}
}

func (l *LumaAdapter) Name() string    { return "luma" }
func (l *LumaAdapter) Available() bool { return true }

func (l *LumaAdapter) EstimateCost(seconds float64) decimal.Decimal {
	return decimal.NewFromFloat(seconds).Mul(lumaRate)
}

type lumaGeneration struct {
	ID            string `json:"id"`
	State         string `json:"state"`
	FailureReason string `json:"failure_reason"`
	Assets        struct {
		Video string `json:"video"`
	} `json:"assets"`
}

func (l *LumaAdapter) Generate(ctx context.Context, job *model.GenerationJob) *model.ProviderResult {
	payload := map[string]interface{}{
		"model":        "ray-2",
		"prompt":       job.Prompt,
		"resolution":   "720p",
		"duration":     "9s",
		"aspect_ratio": "9:16",
	}

	build := func() (*http.Request, error) {
		body, err := request.ToJsonReq(payload)
		if err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.cfg.BaseURL+"/generations", body)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+l.cfg.APIKey)
		return req, nil
	}

	var gen lumaGeneration
	if _, err := request.CallWithRetry(build, &gen, time.Duration(l.cfg.RequestTimeout)*time.Second); err != nil {
		return failure(l.Name(), "submit failed: %v", err)
	}
	if gen.ID == "" {
		return failure(l.Name(), "submit rejected: %s", gen.FailureReason)
	}

	return awaitCompletion(ctx, l, gen.ID, l.cfg)
}

func (l *LumaAdapter) fetchGeneration(ctx context.Context, generationID string) (*lumaGeneration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.cfg.BaseURL+"/generations/"+generationID, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+l.cfg.APIKey)

	var gen lumaGeneration
	resp, err := request.Call(req, &gen)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("generation fetch returned %d", resp.StatusCode)
	}
	return &gen, nil
}

func (l *LumaAdapter) CheckStatus(ctx context.Context, remoteID string) (*GenerationStatus, error) {
	gen, err := l.fetchGeneration(ctx, remoteID)
	if err != nil {
		return nil, err
	}

	switch gen.State {
	case "completed":
		return &GenerationStatus{State: StateSucceeded, DurationSec: 9}, nil
	case "failed":
		return &GenerationStatus{State: StateFailed, Reason: gen.FailureReason}, nil
	case "dreaming":
		return &GenerationStatus{State: StateProcessing}, nil
	default:
		return &GenerationStatus{State: StateQueued}, nil
	}
}

func (l *LumaAdapter) GetVideo(ctx context.Context, remoteID string) (string, error) {
	gen, err := l.fetchGeneration(ctx, remoteID)
	if err != nil {
		return "", err
	}
	if gen.Assets.Video == "" {
		return "", fmt.Errorf("generation %s completed without a video asset", remoteID)
	}
	return gen.Assets.Video, nil
}

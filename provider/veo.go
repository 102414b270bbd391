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

var veoRate = decimal.NewFromFloat(0.35)

// veoClipSeconds is the fixed clip length the model renders.
const veoClipSeconds = 8

// VeoAdapter drives Google's Veo long-running operations API.
type VeoAdapter struct {
	cfg config.ProviderConfig
}

func NewVeoAdapter(cfg config.ProviderConfig) *VeoAdapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	return &VeoAdapter{cfg: cfg}
}

func (v *VeoAdapter) Name() string    { return "veo" }
func (v *VeoAdapter) Available() bool { return true }

func (v *VeoAdapter) EstimateCost(seconds float64) decimal.Decimal {
	return decimal.NewFromFloat(seconds).Mul(veoRate)
}

type veoOperation struct {
	Name  string `json:"name"`
	Done  bool   `json:"done"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
	Response struct {
		GenerateVideoResponse struct {
			GeneratedSamples []struct {
				Video struct {
					URI string `json:"uri"`
				} `json:"video"`
			} `json:"generatedSamples"`
		} `json:"generateVideoResponse"`
	} `json:"response"`
}

func (v *VeoAdapter) Generate(ctx context.Context, job *model.GenerationJob) *model.ProviderResult {
	payload := map[string]interface{}{
		"instances": []map[string]interface{}{
			{"prompt": job.Prompt},
		},
		"parameters": map[string]interface{}{
			"aspectRatio": "9:16",
		},
	}

	build := func() (*http.Request, error) {
		body, err := request.ToJsonReq(payload)
		if err != nil {
			return nil, err
		}
		url := v.cfg.BaseURL + "/models/veo-3.0-generate-001:predictLongRunning"
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
		if err != nil {
			return nil, err
		}
		req.Header.Set("x-goog-api-key", v.cfg.APIKey)
		return req, nil
	}

	var op veoOperation
	if _, err := request.CallWithRetry(build, &op, time.Duration(v.cfg.RequestTimeout)*time.Second); err != nil {
		return failure(v.Name(), "submit failed: %v", err)
	}
	if op.Name == "" {
		return failure(v.Name(), "submit rejected: %s", op.Error.Message)
	}

	return awaitCompletion(ctx, v, op.Name, v.cfg)
}

func (v *VeoAdapter) fetchOperation(ctx context.Context, name string) (*veoOperation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.cfg.BaseURL+"/"+name, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-goog-api-key", v.cfg.APIKey)

	var op veoOperation
	resp, err := request.Call(req, &op)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("operation fetch returned %d", resp.StatusCode)
	}
	return &op, nil
}

func (v *VeoAdapter) CheckStatus(ctx context.Context, remoteID string) (*GenerationStatus, error) {
	op, err := v.fetchOperation(ctx, remoteID)
	if err != nil {
		return nil, err
	}

	if !op.Done {
		return &GenerationStatus{State: StateProcessing}, nil
	}
	if op.Error.Message != "" {
		return &GenerationStatus{State: StateFailed, Reason: op.Error.Message}, nil
	}
	return &GenerationStatus{State: StateSucceeded, DurationSec: veoClipSeconds}, nil
}

func (v *VeoAdapter) GetVideo(ctx context.Context, remoteID string) (string, error) {
	op, err := v.fetchOperation(ctx, remoteID)
	if err != nil {
		return "", err
	}

	samples := op.Response.GenerateVideoResponse.GeneratedSamples
	if len(samples) == 0 || samples[0].Video.URI == "" {
		return "", fmt.Errorf("operation %s completed without a video", remoteID)
	}
	return samples[0].Video.URI, nil
}

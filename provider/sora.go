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
	"strconv"
	"time"

	"github.com/reelforge/reelforge/config"
	"github.com/reelforge/reelforge/internal/request"
	"github.com/reelforge/reelforge/model"
	"github.com/shopspring/decimal"
)

var soraRate = decimal.NewFromFloat(0.50)

// SoraAdapter drives OpenAI's video generation API. Premium tier.
type SoraAdapter struct {
	cfg config.ProviderConfig
}

func NewSoraAdapter(cfg config.ProviderConfig) *SoraAdapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	return &SoraAdapter{cfg: cfg}
}

func (s *SoraAdapter) Name() string    { return "sora" }
func (s *SoraAdapter) Available() bool { return true }

func (s *SoraAdapter) EstimateCost(seconds float64) decimal.Decimal {
	return decimal.NewFromFloat(seconds).Mul(soraRate)
}

type soraVideo struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Seconds string `json:"seconds"`
	Error   struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (s *SoraAdapter) Generate(ctx context.Context, job *model.GenerationJob) *model.ProviderResult {
	payload := map[string]interface{}{
		"model":   "sora-2",
		"prompt":  job.Prompt,
		"size":    "720x1280",
		"seconds": "12",
	}

	build := func() (*http.Request, error) {
		body, err := request.ToJsonReq(payload)
		if err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+"/videos", body)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
		return req, nil
	}

	var submitted soraVideo
	if _, err := request.CallWithRetry(build, &submitted, time.Duration(s.cfg.RequestTimeout)*time.Second); err != nil {
		return failure(s.Name(), "submit failed: %v", err)
	}
	if submitted.ID == "" {
		return failure(s.Name(), "submit rejected: %s", submitted.Error.Message)
	}

	return awaitCompletion(ctx, s, submitted.ID, s.cfg)
}

func (s *SoraAdapter) CheckStatus(ctx context.Context, remoteID string) (*GenerationStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.BaseURL+"/videos/"+remoteID, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)

	var video soraVideo
	resp, err := request.Call(req, &video)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("status check returned %d", resp.StatusCode)
	}

	seconds, _ := strconv.ParseFloat(video.Seconds, 64)
	switch video.Status {
	case "completed":
		return &GenerationStatus{State: StateSucceeded, DurationSec: seconds}, nil
	case "failed":
		return &GenerationStatus{State: StateFailed, Reason: video.Error.Message}, nil
	case "in_progress":
		return &GenerationStatus{State: StateProcessing}, nil
	default:
		return &GenerationStatus{State: StateQueued}, nil
	}
}

// GetVideo returns the authenticated content endpoint for the rendered
// asset. The storage uploader streams it from there.
func (s *SoraAdapter) GetVideo(ctx context.Context, remoteID string) (string, error) {
	return s.cfg.BaseURL + "/videos/" + remoteID + "/content", nil
}

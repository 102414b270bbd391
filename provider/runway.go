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

var runwayRate = decimal.NewFromFloat(0.25)

const runwayAPIVersion = "2024-11-06"

// RunwayAdapter drives the Runway task API. Standard tier workhorse.
type RunwayAdapter struct {
	cfg config.ProviderConfig
}

func NewRunwayAdapter(cfg config.ProviderConfig) *RunwayAdapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.dev.runwayml.com/v1"
	}
	return &RunwayAdapter{cfg: cfg}
}

func (r *RunwayAdapter) Name() string    { return "runway" }
func (r *RunwayAdapter) Available() bool { return true }

func (r *RunwayAdapter) EstimateCost(seconds float64) decimal.Decimal {
	return decimal.NewFromFloat(seconds).Mul(runwayRate)
}

type runwayTask struct {
	ID      string   `json:"id"`
	Status  string   `json:"status"`
	Failure string   `json:"failure"`
	Output  []string `json:"output"`
}

func (r *RunwayAdapter) headers(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+r.cfg.APIKey)
	req.Header.Set("X-Runway-Version", runwayAPIVersion)
}

func (r *RunwayAdapter) Generate(ctx context.Context, job *model.GenerationJob) *model.ProviderResult {
	payload := map[string]interface{}{
		"model":      "gen4_turbo",
		"promptText": job.Prompt,
		"ratio":      "720:1280",
		"duration":   10,
	}

	build := func() (*http.Request, error) {
		body, err := request.ToJsonReq(payload)
		if err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.cfg.BaseURL+"/text_to_video", body)
		if err != nil {
			return nil, err
		}
		r.headers(req)
		return req, nil
	}

	var task runwayTask
	if _, err := request.CallWithRetry(build, &task, time.Duration(r.cfg.RequestTimeout)*time.Second); err != nil {
		return failure(r.Name(), "submit failed: %v", err)
	}
	if task.ID == "" {
		return failure(r.Name(), "submit rejected: empty task id")
	}

	return awaitCompletion(ctx, r, task.ID, r.cfg)
}

func (r *RunwayAdapter) fetchTask(ctx context.Context, taskID string) (*runwayTask, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.cfg.BaseURL+"/tasks/"+taskID, nil)
	if err != nil {
		return nil, err
	}
	r.headers(req)

	var task runwayTask
	resp, err := request.Call(req, &task)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("task fetch returned %d", resp.StatusCode)
	}
	return &task, nil
}

func (r *RunwayAdapter) CheckStatus(ctx context.Context, remoteID string) (*GenerationStatus, error) {
	task, err := r.fetchTask(ctx, remoteID)
	if err != nil {
		return nil, err
	}

	switch task.Status {
	case "SUCCEEDED":
		return &GenerationStatus{State: StateSucceeded, DurationSec: 10}, nil
	case "FAILED":
		return &GenerationStatus{State: StateFailed, Reason: task.Failure}, nil
	case "RUNNING":
		return &GenerationStatus{State: StateProcessing}, nil
	default:
		return &GenerationStatus{State: StateQueued}, nil
	}
}

func (r *RunwayAdapter) GetVideo(ctx context.Context, remoteID string) (string, error) {
	task, err := r.fetchTask(ctx, remoteID)
	if err != nil {
		return "", err
	}
	if len(task.Output) == 0 {
		return "", fmt.Errorf("task %s succeeded without output", remoteID)
	}
	return task.Output[0], nil
}

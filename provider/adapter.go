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

// Package provider contains the adapters for the video-generation backends
// and the router that picks between them. Adapters normalize every backend
// into the same submit/poll/fetch shape and fold errors into the result
// instead of returning them, so callers handle exactly one outcome type.
package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/reelforge/reelforge/config"
	"github.com/reelforge/reelforge/model"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Generation states reported by CheckStatus, normalized across backends.
const (
	StateQueued     = "queued"
	StateProcessing = "processing"
	StateSucceeded  = "succeeded"
	StateFailed     = "failed"
)

// GenerationStatus is a point-in-time view of a remote generation task.
type GenerationStatus struct {
	State       string  `json:"state"`
	DurationSec float64 `json:"duration_sec,omitempty"`
	Reason      string  `json:"reason,omitempty"`
}

// Adapter is implemented once per video-generation backend. Generate never
// returns a Go error; failures of any kind come back as an unsuccessful
// ProviderResult so the router's fallback walk stays uniform.
type Adapter interface {
	Name() string
	Available() bool
	Generate(ctx context.Context, job *model.GenerationJob) *model.ProviderResult
	CheckStatus(ctx context.Context, remoteID string) (*GenerationStatus, error)
	GetVideo(ctx context.Context, remoteID string) (string, error)
	EstimateCost(seconds float64) decimal.Decimal
}

func failure(name, format string, args ...interface{}) *model.ProviderResult {
	return &model.ProviderResult{
		Success:  false,
		Provider: name,
		Cost:     decimal.Zero,
		Err:      fmt.Sprintf(format, args...),
	}
}

// awaitCompletion polls CheckStatus on a fixed interval until the remote
// task settles, then fetches the asset URL. The poll count is hard-capped;
// hitting the cap produces a distinct timeout result so the retry
// coordinator can tell a slow render from a rejected one. Transient poll
// errors are logged and consume an attempt rather than aborting the job.
func awaitCompletion(ctx context.Context, a Adapter, remoteID string, cfg config.ProviderConfig) *model.ProviderResult {
	ticker := time.NewTicker(time.Duration(cfg.PollIntervalSec) * time.Second)
	defer ticker.Stop()

	for polls := 0; polls < cfg.PollMaxAttempts; polls++ {
		select {
		case <-ctx.Done():
			return failure(a.Name(), "generation cancelled: %v", ctx.Err())
		case <-ticker.C:
		}

		status, err := a.CheckStatus(ctx, remoteID)
		if err != nil {
			logrus.Warnf("provider %s: status check for %s failed: %v", a.Name(), remoteID, err)
			continue
		}

		switch status.State {
		case StateFailed:
			return failure(a.Name(), "generation failed: %s", status.Reason)
		case StateSucceeded:
			videoURL, err := a.GetVideo(ctx, remoteID)
			if err != nil {
				return failure(a.Name(), "fetching rendered video: %v", err)
			}
			return &model.ProviderResult{
				Success:     true,
				Provider:    a.Name(),
				VideoURL:    videoURL,
				DurationSec: status.DurationSec,
				Cost:        a.EstimateCost(status.DurationSec),
			}
		}
	}

	return failure(a.Name(), "generation timed out after %d polls", cfg.PollMaxAttempts)
}

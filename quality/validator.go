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

// Package quality validates rendered assets against per-platform
// constraints. Findings are advisory: they annotate the job record and
// never block completion, since a slightly long clip is still worth
// posting.
package quality

import (
	"context"
	"fmt"
	"net/http"

	"github.com/reelforge/reelforge/model"
)

// Constraints are the publishing limits one platform enforces.
type Constraints struct {
	MaxDurationSec float64
	AspectRatio    string
	MaxFileBytes   int64
}

var platformConstraints = map[string]Constraints{
	model.PlatformTikTok:    {MaxDurationSec: 180, AspectRatio: "9:16", MaxFileBytes: 287 << 20},
	model.PlatformYouTube:   {MaxDurationSec: 180, AspectRatio: "9:16", MaxFileBytes: 256 << 20},
	model.PlatformInstagram: {MaxDurationSec: 90, AspectRatio: "9:16", MaxFileBytes: 100 << 20},
}

// AssetMetadata describes a rendered video as reported by the provider,
// supplemented with a size probe of the asset URL.
type AssetMetadata struct {
	DurationSec    float64
	Width          int
	Height         int
	FileSizeBytes  int64
	HasAudio       bool
	HasBlackFrames bool
}

type Validator struct {
	httpClient *http.Client
}

func NewValidator() *Validator {
	return &Validator{httpClient: &http.Client{}}
}

// Validate checks an asset against the constraints of the target
// platform. Unknown platforms get the tiktok limits, the strictest of
// the short-form set. The result is Valid exactly when no issues were
// found.
func (v *Validator) Validate(platform string, meta AssetMetadata) *model.QualityCheckResult {
	constraints, ok := platformConstraints[platform]
	if !ok {
		constraints = platformConstraints[model.PlatformTikTok]
	}

	aspect := aspectRatio(meta.Width, meta.Height)
	var issues []string

	if meta.DurationSec > constraints.MaxDurationSec {
		issues = append(issues, fmt.Sprintf("duration %.1fs exceeds %s limit of %.0fs", meta.DurationSec, platform, constraints.MaxDurationSec))
	}
	if aspect != "" && aspect != constraints.AspectRatio {
		issues = append(issues, fmt.Sprintf("aspect ratio %s does not match required %s", aspect, constraints.AspectRatio))
	}
	if meta.FileSizeBytes > constraints.MaxFileBytes {
		issues = append(issues, fmt.Sprintf("file size %d bytes exceeds %s limit of %d", meta.FileSizeBytes, platform, constraints.MaxFileBytes))
	}
	if !meta.HasAudio {
		issues = append(issues, "no audio track")
	}
	if meta.HasBlackFrames {
		issues = append(issues, "black frames detected")
	}

	return &model.QualityCheckResult{
		Valid:          len(issues) == 0,
		DurationSec:    meta.DurationSec,
		AspectRatio:    aspect,
		FileSizeBytes:  meta.FileSizeBytes,
		HasAudio:       meta.HasAudio,
		HasBlackFrames: meta.HasBlackFrames,
		Issues:         issues,
	}
}

// ProbeSize issues a HEAD request against the asset URL and returns the
// advertised content length. Probe failures return 0 with the error so
// the caller can skip the size check instead of failing the job.
func (v *Validator) ProbeSize(ctx context.Context, url string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return 0, err
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return 0, fmt.Errorf("size probe returned %d", resp.StatusCode)
	}
	if resp.ContentLength < 0 {
		return 0, nil
	}
	return resp.ContentLength, nil
}

func aspectRatio(width, height int) string {
	if width <= 0 || height <= 0 {
		return ""
	}
	divisor := gcd(width, height)
	return fmt.Sprintf("%d:%d", width/divisor, height/divisor)
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

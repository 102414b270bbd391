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

// Package platform wraps the social-network publishing APIs behind one
// adapter interface. Each network has its own upload choreography; the
// adapters hide it and report a single normalized outcome so the posting
// orchestrator treats every platform identically.
package platform

import (
	"context"
	"fmt"
	"strings"

	"github.com/reelforge/reelforge/model"
)

// PostRequest carries everything needed to publish one video.
type PostRequest struct {
	VideoID  string   `json:"video_id"`
	VideoURL string   `json:"video_url"`
	Caption  string   `json:"caption"`
	Hashtags []string `json:"hashtags,omitempty"`
}

// Title renders the caption with hashtags appended, the form every
// network accepts.
func (r PostRequest) Title() string {
	if len(r.Hashtags) == 0 {
		return r.Caption
	}
	tags := make([]string, 0, len(r.Hashtags))
	for _, tag := range r.Hashtags {
		tags = append(tags, "#"+strings.TrimPrefix(tag, "#"))
	}
	return strings.TrimSpace(r.Caption + " " + strings.Join(tags, " "))
}

// PostResult is the normalized outcome of one publish attempt. Adapters
// fold every failure into it rather than returning errors, mirroring the
// provider adapters.
type PostResult struct {
	Success   bool   `json:"success"`
	RemoteID  string `json:"remote_id,omitempty"`
	RemoteURL string `json:"remote_url,omitempty"`
	Err       string `json:"error,omitempty"`
}

// PostingAdapter publishes a video through one account on one platform.
type PostingAdapter interface {
	Platform() string
	UploadVideo(ctx context.Context, account *model.SocialAccount, accessToken string, req PostRequest) *PostResult
}

func postFailure(format string, args ...interface{}) *PostResult {
	return &PostResult{Success: false, Err: fmt.Sprintf(format, args...)}
}

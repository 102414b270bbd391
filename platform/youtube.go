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

package platform

import (
	"context"
	"net/http"

	"github.com/reelforge/reelforge/internal/request"
	"github.com/reelforge/reelforge/model"
)

// YouTubeAdapter publishes Shorts through the data API. A single insert
// call with the source URL is enough; YouTube handles the transfer.
type YouTubeAdapter struct {
	baseURL string
}

func NewYouTubeAdapter() *YouTubeAdapter {
	return &YouTubeAdapter{baseURL: "https://www.googleapis.com/youtube/v3"}
}

func (y *YouTubeAdapter) Platform() string { return model.PlatformYouTube }

func (y *YouTubeAdapter) UploadVideo(ctx context.Context, account *model.SocialAccount, accessToken string, req PostRequest) *PostResult {
	payload := map[string]interface{}{
		"snippet": map[string]interface{}{
			"title":       req.Title(),
			"description": req.Caption,
			"tags":        req.Hashtags,
		},
		"status": map[string]interface{}{
			"privacyStatus":           "public",
			"selfDeclaredMadeForKids": false,
		},
		"sourceUrl": req.VideoURL,
	}

	body, err := request.ToJsonReq(payload)
	if err != nil {
		return postFailure("encoding post payload: %v", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, y.baseURL+"/videos?part=snippet,status", body)
	if err != nil {
		return postFailure("building insert request: %v", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+accessToken)

	var insertResp struct {
		ID    string `json:"id"`
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	resp, err := request.Call(httpReq, &insertResp)
	if err != nil {
		return postFailure("youtube insert failed: %v", err)
	}
	if resp.StatusCode >= 400 || insertResp.ID == "" {
		return postFailure("youtube rejected post: %s", insertResp.Error.Message)
	}

	return &PostResult{
		Success:   true,
		RemoteID:  insertResp.ID,
		RemoteURL: "https://www.youtube.com/shorts/" + insertResp.ID,
	}
}

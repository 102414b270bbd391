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

// TikTokAdapter publishes through the TikTok content posting API: init
// the post with a pull-from-URL source, then the platform fetches the
// asset itself.
type TikTokAdapter struct {
	baseURL string
}

func NewTikTokAdapter() *TikTokAdapter {
	return &TikTokAdapter{baseURL: "https://open.tiktokapis.com/v2"}
}

func (t *TikTokAdapter) Platform() string { return model.PlatformTikTok }

func (t *TikTokAdapter) UploadVideo(ctx context.Context, account *model.SocialAccount, accessToken string, req PostRequest) *PostResult {
	payload := map[string]interface{}{
		"post_info": map[string]interface{}{
			"title":           req.Title(),
			"privacy_level":   "PUBLIC_TO_EVERYONE",
			"disable_duet":    false,
			"disable_comment": false,
		},
		"source_info": map[string]interface{}{
			"source":    "PULL_FROM_URL",
			"video_url": req.VideoURL,
		},
	}

	body, err := request.ToJsonReq(payload)
	if err != nil {
		return postFailure("encoding post payload: %v", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/post/publish/video/init/", body)
	if err != nil {
		return postFailure("building init request: %v", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+accessToken)

	var initResp struct {
		Data struct {
			PublishID string `json:"publish_id"`
		} `json:"data"`
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	resp, err := request.Call(httpReq, &initResp)
	if err != nil {
		return postFailure("tiktok init failed: %v", err)
	}
	if resp.StatusCode >= 400 || (initResp.Error.Code != "" && initResp.Error.Code != "ok") {
		return postFailure("tiktok rejected post: %s %s", initResp.Error.Code, initResp.Error.Message)
	}
	if initResp.Data.PublishID == "" {
		return postFailure("tiktok init returned no publish id")
	}

	return &PostResult{
		Success:   true,
		RemoteID:  initResp.Data.PublishID,
		RemoteURL: "https://www.tiktok.com/@" + account.Username,
	}
}

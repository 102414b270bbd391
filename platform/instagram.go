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
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/reelforge/reelforge/internal/request"
	"github.com/reelforge/reelforge/model"
)

// Instagram's graph API publishes reels in two steps: create a media
// container pointing at the video URL, wait for the container to finish
// processing, then publish it.
type InstagramAdapter struct {
	baseURL      string
	pollInterval time.Duration
	maxPolls     int
}

func NewInstagramAdapter() *InstagramAdapter {
	return &InstagramAdapter{
		baseURL:      "https://graph.facebook.com/v21.0",
		pollInterval: 5 * time.Second,
		maxPolls:     24,
	}
}

func (i *InstagramAdapter) Platform() string { return model.PlatformInstagram }

func (i *InstagramAdapter) UploadVideo(ctx context.Context, account *model.SocialAccount, accessToken string, req PostRequest) *PostResult {
	containerID, err := i.createContainer(ctx, account, accessToken, req)
	if err != nil {
		return postFailure("instagram container: %v", err)
	}

	if err := i.awaitContainer(ctx, containerID, accessToken); err != nil {
		return postFailure("instagram container %s: %v", containerID, err)
	}

	mediaID, err := i.publish(ctx, account, containerID, accessToken)
	if err != nil {
		return postFailure("instagram publish: %v", err)
	}

	return &PostResult{
		Success:   true,
		RemoteID:  mediaID,
		RemoteURL: "https://www.instagram.com/reel/" + mediaID,
	}
}

func (i *InstagramAdapter) createContainer(ctx context.Context, account *model.SocialAccount, accessToken string, req PostRequest) (string, error) {
	params := url.Values{}
	params.Set("media_type", "REELS")
	params.Set("video_url", req.VideoURL)
	params.Set("caption", req.Title())
	params.Set("access_token", accessToken)

	endpoint := fmt.Sprintf("%s/%s/media?%s", i.baseURL, account.Username, params.Encode())
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return "", err
	}

	var created struct {
		ID    string `json:"id"`
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	resp, err := request.Call(httpReq, &created)
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= 400 || created.ID == "" {
		return "", fmt.Errorf("container creation rejected: %s", created.Error.Message)
	}
	return created.ID, nil
}

func (i *InstagramAdapter) awaitContainer(ctx context.Context, containerID, accessToken string) error {
	ticker := time.NewTicker(i.pollInterval)
	defer ticker.Stop()

	for polls := 0; polls < i.maxPolls; polls++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		endpoint := fmt.Sprintf("%s/%s?fields=status_code&access_token=%s", i.baseURL, containerID, url.QueryEscape(accessToken))
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}

		var status struct {
			StatusCode string `json:"status_code"`
		}
		if _, err := request.Call(httpReq, &status); err != nil {
			continue
		}

		switch status.StatusCode {
		case "FINISHED":
			return nil
		case "ERROR":
			return fmt.Errorf("processing failed")
		}
	}
	return fmt.Errorf("processing timed out")
}

func (i *InstagramAdapter) publish(ctx context.Context, account *model.SocialAccount, containerID, accessToken string) (string, error) {
	params := url.Values{}
	params.Set("creation_id", containerID)
	params.Set("access_token", accessToken)

	endpoint := fmt.Sprintf("%s/%s/media_publish?%s", i.baseURL, account.Username, params.Encode())
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return "", err
	}

	var published struct {
		ID    string `json:"id"`
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	resp, err := request.Call(httpReq, &published)
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= 400 || published.ID == "" {
		return "", fmt.Errorf("publish rejected: %s", published.Error.Message)
	}
	return published.ID, nil
}

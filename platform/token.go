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
	"time"

	"github.com/reelforge/reelforge/internal/cache"
	"github.com/reelforge/reelforge/internal/request"
)

// TokenSource resolves the OAuth access token for a social account.
type TokenSource interface {
	AccessToken(ctx context.Context, accountID string) (string, error)
}

// refreshGrace is subtracted from a token's lifetime when caching so a
// token close to expiry is refreshed instead of used.
const refreshGrace = 60 * time.Second

// RefreshTokenSource fetches tokens from the token-refresh endpoint and
// caches them in Redis for their remaining lifetime.
type RefreshTokenSource struct {
	cache      cache.Cache
	refreshURL string
}

func NewRefreshTokenSource(c cache.Cache, refreshURL string) *RefreshTokenSource {
	return &RefreshTokenSource{cache: c, refreshURL: refreshURL}
}

func tokenCacheKey(accountID string) string {
	return "token:" + accountID
}

func (r *RefreshTokenSource) AccessToken(ctx context.Context, accountID string) (string, error) {
	var cached string
	if r.cache != nil {
		if err := r.cache.Get(ctx, tokenCacheKey(accountID), &cached); err == nil && cached != "" {
			return cached, nil
		}
	}

	if r.refreshURL == "" {
		return "", fmt.Errorf("no token refresh endpoint configured")
	}

	payload := map[string]string{"account_id": accountID}
	body, err := request.ToJsonReq(payload)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.refreshURL, body)
	if err != nil {
		return "", err
	}

	var refreshed struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	resp, err := request.Call(httpReq, &refreshed)
	if err != nil {
		return "", fmt.Errorf("token refresh failed: %w", err)
	}
	if resp.StatusCode >= 400 || refreshed.AccessToken == "" {
		return "", fmt.Errorf("token refresh for %s returned %d", accountID, resp.StatusCode)
	}

	if r.cache != nil && refreshed.ExpiresIn > 0 {
		ttl := time.Duration(refreshed.ExpiresIn)*time.Second - refreshGrace
		if ttl > 0 {
			_ = r.cache.Set(ctx, tokenCacheKey(accountID), refreshed.AccessToken, ttl)
		}
	}
	return refreshed.AccessToken, nil
}

// StaticTokenSource returns fixed tokens keyed by account. Test helper
// and escape hatch for self-managed deployments.
type StaticTokenSource map[string]string

func (s StaticTokenSource) AccessToken(ctx context.Context, accountID string) (string, error) {
	token, ok := s[accountID]
	if !ok || token == "" {
		return "", fmt.Errorf("no token for account %s", accountID)
	}
	return token, nil
}

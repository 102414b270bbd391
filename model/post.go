package model

import (
	"encoding/json"
	"time"
)

// Social post statuses.
const (
	PostStatusPending = "pending"
	PostStatusPosted  = "posted"
	PostStatusFailed  = "failed"
)

// SocialPost records one attempt to publish a video to one platform via
// one account. A failed post keeps its row; the retry sweep updates it
// in place when a later attempt succeeds.
type SocialPost struct {
	ID           int64     `json:"-"`
	PostID       string    `json:"post_id"`
	VideoID      string    `json:"video_id"`
	AccountID    string    `json:"account_id"`
	TenantID     string    `json:"tenant_id"`
	Platform     string    `json:"platform"`
	Status       string    `json:"status"`
	RemoteID     string    `json:"remote_id,omitempty"`
	RemoteURL    string    `json:"remote_url,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	PostedAt     time.Time `json:"posted_at"`
}

func (p *SocialPost) ToJSON() ([]byte, error) {
	return json.Marshal(p)
}

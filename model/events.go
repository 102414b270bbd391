package model

import "time"

// Event names carried over the queue. Payloads are JSON; delivery is
// at-least-once, so every consumer must be idempotent on the job id.
const (
	EventVideoGenerate   = "video:generate"
	EventVideoFailed     = "video:failed"
	EventVideoReady      = "video:ready"
	EventAnalyticsScrape = "analytics:scrape"
	EventPostRetrySweep  = "post:retry_sweep"
	EventQuotaReset      = "quota:reset"
	EventSearchIndex     = "search:index"
)

// GenerationRequest is the payload of a video:generate event. Provider is
// an optional explicit override; when set and registered it is tried
// before the tier's fallback chain.
type GenerationRequest struct {
	JobID     string                 `json:"job_id"`
	TenantID  string                 `json:"tenant_id"`
	ConceptID string                 `json:"concept_id"`
	Category  string                 `json:"category"`
	Platform  string                 `json:"platform"`
	Prompt    string                 `json:"prompt"`
	Provider  string                 `json:"provider,omitempty"`
	Priority  int                    `json:"priority"`
	Attempt   int                    `json:"attempt"`
	MetaData  map[string]interface{} `json:"meta_data,omitempty"`
}

// JobFailedEvent is the payload of a video:failed event, consumed by the
// retry coordinator.
type JobFailedEvent struct {
	JobID    string `json:"job_id"`
	TenantID string `json:"tenant_id"`
	Error    string `json:"error"`
	Provider string `json:"provider,omitempty"`
	Attempt  int    `json:"attempt"`

	// Original request fields carried along so a retry does not need to
	// re-query the job record. Optional; missing values fall back to safe
	// defaults on the retry path.
	ConceptID string `json:"concept_id,omitempty"`
	Category  string `json:"category,omitempty"`
	Platform  string `json:"platform,omitempty"`
	Prompt    string `json:"prompt,omitempty"`
}

// VideoReadyEvent is the payload of a video:ready event. It carries
// everything the posting orchestrator needs so it never has to call back
// into the generation pipeline.
type VideoReadyEvent struct {
	VideoID   string   `json:"video_id"`
	TenantID  string   `json:"tenant_id"`
	ConceptID string   `json:"concept_id"`
	Category  string   `json:"category"`
	Platforms []string `json:"platforms"`
	Caption   string   `json:"caption"`
	Hashtags  []string `json:"hashtags"`
	VideoURL  string   `json:"video_url"`
}

// AnalyticsScrapeEvent is dispatched with a long delay after at least one
// platform post succeeds; it lists only the platforms that succeeded.
type AnalyticsScrapeEvent struct {
	VideoID     string    `json:"video_id"`
	TenantID    string    `json:"tenant_id"`
	Platforms   []string  `json:"platforms"`
	ScheduledAt time.Time `json:"scheduled_at"`
}

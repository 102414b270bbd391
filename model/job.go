package model

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Generation job statuses. Transitions are monotonic: a job never leaves
// StatusCompleted or StatusFailed once it reaches either.
const (
	JobStatusPending    = "pending"
	JobStatusGenerating = "generating"
	JobStatusUploading  = "uploading"
	JobStatusValidating = "validating"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

// MaxGenerationAttempts is the hard cap on generation attempts per job.
// Once a job fails at this attempt the retry coordinator marks it
// permanently failed.
const MaxGenerationAttempts = 3

// GenerationJob represents one request to turn a text prompt into a
// finished, validated video asset.
type GenerationJob struct {
	ID            int64                  `json:"-"`
	JobID         string                 `json:"job_id"`
	TenantID      string                 `json:"tenant_id"`
	ConceptID     string                 `json:"concept_id"`
	Category      string                 `json:"category"`
	Platform      string                 `json:"platform"`
	Prompt        string                 `json:"prompt"`
	Provider      string                 `json:"provider,omitempty"`
	Priority      int                    `json:"priority"`
	Attempt       int                    `json:"attempt"`
	Status        string                 `json:"status"`
	VideoURL      string                 `json:"video_url,omitempty"`
	CdnURL        string                 `json:"cdn_url,omitempty"`
	DurationSec   float64                `json:"duration_sec,omitempty"`
	Cost          decimal.Decimal        `json:"cost"`
	QualityIssues []string               `json:"quality_issues,omitempty"`
	ErrorMessage  string                 `json:"error_message,omitempty"`
	MetaData      map[string]interface{} `json:"meta_data,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
}

// IsTerminal reports whether the job has reached a final status.
func (j *GenerationJob) IsTerminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

func (j *GenerationJob) ToJSON() ([]byte, error) {
	return json.Marshal(j)
}

// ProviderResult is the normalized outcome of one provider adapter
// invocation. It is ephemeral; the orchestrator folds it into the job
// record and never persists it independently.
type ProviderResult struct {
	Success     bool            `json:"success"`
	Provider    string          `json:"provider"`
	VideoURL    string          `json:"video_url,omitempty"`
	DurationSec float64         `json:"duration_sec,omitempty"`
	Cost        decimal.Decimal `json:"cost"`
	Err         string          `json:"error,omitempty"`
}

// QualityCheckResult is the outcome of validating a rendered asset
// against platform constraints. Valid is true exactly when Issues is
// empty; issues are advisory and never block job completion.
type QualityCheckResult struct {
	Valid          bool     `json:"valid"`
	DurationSec    float64  `json:"duration_sec"`
	AspectRatio    string   `json:"aspect_ratio"`
	FileSizeBytes  int64    `json:"file_size_bytes"`
	HasAudio       bool     `json:"has_audio"`
	HasBlackFrames bool     `json:"has_black_frames"`
	Issues         []string `json:"issues,omitempty"`
}

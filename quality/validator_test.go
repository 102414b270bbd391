package quality

import (
	"context"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/reelforge/reelforge/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cleanAsset() AssetMetadata {
	return AssetMetadata{
		DurationSec:   45,
		Width:         720,
		Height:        1280,
		FileSizeBytes: 20 << 20,
		HasAudio:      true,
	}
}

func TestValidateCleanAsset(t *testing.T) {
	v := NewValidator()

	result := v.Validate(model.PlatformTikTok, cleanAsset())
	assert.True(t, result.Valid)
	assert.Empty(t, result.Issues)
	assert.Equal(t, "9:16", result.AspectRatio)
}

func TestValidateCollectsAllIssues(t *testing.T) {
	v := NewValidator()

	meta := AssetMetadata{
		DurationSec:    200,
		Width:          1920,
		Height:         1080,
		FileSizeBytes:  300 << 20,
		HasAudio:       false,
		HasBlackFrames: true,
	}

	result := v.Validate(model.PlatformTikTok, meta)
	assert.False(t, result.Valid)
	assert.Len(t, result.Issues, 5)
	assert.Contains(t, result.Issues[0], "exceeds tiktok limit")
	assert.Contains(t, result.Issues[1], "aspect ratio 16:9")
}

func TestValidateInstagramDurationStricter(t *testing.T) {
	v := NewValidator()
	meta := cleanAsset()
	meta.DurationSec = 120

	assert.True(t, v.Validate(model.PlatformTikTok, meta).Valid)

	result := v.Validate(model.PlatformInstagram, meta)
	assert.False(t, result.Valid)
	require.Len(t, result.Issues, 1)
	assert.Contains(t, result.Issues[0], "instagram limit of 90s")
}

func TestValidateUnknownPlatformUsesDefaults(t *testing.T) {
	v := NewValidator()
	meta := cleanAsset()
	meta.DurationSec = 179

	result := v.Validate("threads", meta)
	assert.True(t, result.Valid)
}

func TestValidateMissingDimensionsSkipsAspectCheck(t *testing.T) {
	v := NewValidator()
	meta := cleanAsset()
	meta.Width = 0
	meta.Height = 0

	result := v.Validate(model.PlatformTikTok, meta)
	assert.True(t, result.Valid)
	assert.Equal(t, "", result.AspectRatio)
}

func TestProbeSize(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("HEAD", "https://cdn.example.com/video.mp4",
		func(req *http.Request) (*http.Response, error) {
			resp := httpmock.NewStringResponse(200, "")
			resp.ContentLength = 1048576
			return resp, nil
		})

	v := NewValidator()
	size, err := v.ProbeSize(context.Background(), "https://cdn.example.com/video.mp4")
	require.NoError(t, err)
	assert.Equal(t, int64(1048576), size)
}

func TestProbeSizeError(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("HEAD", "https://cdn.example.com/missing.mp4",
		httpmock.NewStringResponder(404, ""))

	v := NewValidator()
	_, err := v.ProbeSize(context.Background(), "https://cdn.example.com/missing.mp4")
	assert.Error(t, err)
}

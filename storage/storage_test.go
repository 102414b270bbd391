package storage

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	lastInput *s3.PutObjectInput
	body      []byte
	err       error
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.lastInput = params
	f.body, _ = io.ReadAll(params.Body)
	return &s3.PutObjectOutput{}, nil
}

func TestUpload(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", "https://provider.example.com/render/abc.mp4",
		func(req *http.Request) (*http.Response, error) {
			resp := httpmock.NewStringResponse(200, "fake-video-bytes")
			resp.Header.Set("Content-Type", "video/mp4")
			return resp, nil
		})

	fake := &fakeS3{}
	u := &Uploader{
		client:     fake,
		httpClient: &http.Client{},
		bucket:     "reelforge-assets",
		region:     "us-east-1",
		cdnBaseURL: "https://cdn.reelforge.dev",
	}

	s3URL, cdnURL, err := u.Upload(context.Background(), "https://provider.example.com/render/abc.mp4", "job_123.mp4", map[string]string{"tenant_id": "t1"})
	require.NoError(t, err)

	assert.Contains(t, s3URL, "https://reelforge-assets.s3.us-east-1.amazonaws.com/videos/")
	assert.Contains(t, s3URL, "/job_123.mp4")
	assert.Contains(t, cdnURL, "https://cdn.reelforge.dev/videos/")
	assert.Equal(t, "fake-video-bytes", string(fake.body))
	assert.Equal(t, "t1", fake.lastInput.Metadata["tenant_id"])
}

func TestUploadNoCdnFallsBackToS3URL(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", "https://provider.example.com/render/xyz.mp4",
		httpmock.NewStringResponder(200, "bytes"))

	u := &Uploader{
		client:     &fakeS3{},
		httpClient: &http.Client{},
		bucket:     "reelforge-assets",
		region:     "eu-west-1",
	}

	s3URL, cdnURL, err := u.Upload(context.Background(), "https://provider.example.com/render/xyz.mp4", "job_9.mp4", nil)
	require.NoError(t, err)
	assert.Equal(t, s3URL, cdnURL)
}

func TestUploadRemoteGone(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", "https://provider.example.com/render/gone.mp4",
		httpmock.NewStringResponder(404, ""))

	u := &Uploader{client: &fakeS3{}, httpClient: &http.Client{}, bucket: "b", region: "r"}

	_, _, err := u.Upload(context.Background(), "https://provider.example.com/render/gone.mp4", "f.mp4", nil)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

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

package reelforge

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/reelforge/reelforge/config"
	"github.com/reelforge/reelforge/database/mocks"
	"github.com/reelforge/reelforge/model"
	"github.com/reelforge/reelforge/platform"
	"github.com/reelforge/reelforge/provider"
	"github.com/reelforge/reelforge/quality"
)

// newTestService wires a Reelforge instance against miniredis and a mock
// datasource. The provider router starts with mock adapters for all four
// backends; tests swap in failing ones where needed.
func newTestService(t *testing.T) (*Reelforge, *mocks.MockDataSource, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cnf := &config.Configuration{
		Redis: config.RedisConfig{Dns: mr.Addr()},
	}
	config.MockConfig(cnf)

	router := provider.NewRouter(cnf)
	for _, name := range []string{"sora", "veo", "runway", "luma"} {
		router.Register(provider.NewMockAdapter(name))
	}

	ds := new(mocks.MockDataSource)
	service := &Reelforge{
		queue:      NewQueue(cnf),
		redis:      redis.NewClient(&redis.Options{Addr: mr.Addr()}),
		datasource: ds,
		router:     router,
		validator:  quality.NewValidator(),
		uploader:   &fakeUploader{},
		tokens:     platform.StaticTokenSource{},
		platforms:  map[string]platform.PostingAdapter{},
	}
	return service, ds, mr
}

// fakeUploader stands in for the S3 uploader and records what it copied.
type fakeUploader struct {
	err       error
	remoteURL string
	metadata  map[string]string
}

func (f *fakeUploader) Upload(_ context.Context, remoteURL, fileName string, metadata map[string]string) (string, string, error) {
	if f.err != nil {
		return "", "", f.err
	}
	f.remoteURL = remoteURL
	f.metadata = metadata
	return "https://reelforge-media.s3.us-east-1.amazonaws.com/videos/" + fileName,
		"https://cdn.reelforge.dev/videos/" + fileName, nil
}

// fakePoster is an in-memory posting adapter.
type fakePoster struct {
	name     string
	fail     bool
	reason   string
	requests []platform.PostRequest
}

func (f *fakePoster) Platform() string { return f.name }

func (f *fakePoster) UploadVideo(_ context.Context, _ *model.SocialAccount, _ string, req platform.PostRequest) *platform.PostResult {
	f.requests = append(f.requests, req)
	if f.fail {
		return &platform.PostResult{Success: false, Err: f.reason}
	}
	return &platform.PostResult{
		Success:   true,
		RemoteID:  f.name + "_remote_1",
		RemoteURL: "https://" + f.name + ".example/" + req.VideoID,
	}
}

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
package mocks

import (
	"context"
	"time"

	"github.com/reelforge/reelforge/model"
	"github.com/stretchr/testify/mock"
)

// MockDataSource is a mock implementation of the IDataSource interface
type MockDataSource struct {
	mock.Mock
}

// Generation job methods

func (m *MockDataSource) CreateGenerationJob(ctx context.Context, job model.GenerationJob) (model.GenerationJob, error) {
	args := m.Called(ctx, job)
	return args.Get(0).(model.GenerationJob), args.Error(1)
}

func (m *MockDataSource) GetGenerationJob(ctx context.Context, jobID string) (*model.GenerationJob, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.GenerationJob), args.Error(1)
}

func (m *MockDataSource) UpdateGenerationJobStatus(ctx context.Context, jobID string, status string) error {
	args := m.Called(ctx, jobID, status)
	return args.Error(0)
}

func (m *MockDataSource) UpdateGenerationJob(ctx context.Context, job *model.GenerationJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *MockDataSource) GetGenerationJobsByStatus(ctx context.Context, status string, limit int) ([]*model.GenerationJob, error) {
	args := m.Called(ctx, status, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.GenerationJob), args.Error(1)
}

// Social account methods

func (m *MockDataSource) CreateSocialAccount(ctx context.Context, acc model.SocialAccount) (model.SocialAccount, error) {
	args := m.Called(ctx, acc)
	return args.Get(0).(model.SocialAccount), args.Error(1)
}

func (m *MockDataSource) GetSocialAccount(ctx context.Context, accountID string) (*model.SocialAccount, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SocialAccount), args.Error(1)
}

func (m *MockDataSource) GetAccountsForPlatform(ctx context.Context, tenantID, platform string) ([]*model.SocialAccount, error) {
	args := m.Called(ctx, tenantID, platform)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.SocialAccount), args.Error(1)
}

func (m *MockDataSource) UpdateAccountQuota(ctx context.Context, acc *model.SocialAccount) error {
	args := m.Called(ctx, acc)
	return args.Error(0)
}

func (m *MockDataSource) ReserveAccountQuota(ctx context.Context, accountID string) (bool, error) {
	args := m.Called(ctx, accountID)
	return args.Bool(0), args.Error(1)
}

func (m *MockDataSource) ReleaseAccountQuota(ctx context.Context, accountID string) error {
	args := m.Called(ctx, accountID)
	return args.Error(0)
}

func (m *MockDataSource) DeactivateSocialAccount(ctx context.Context, accountID string) error {
	args := m.Called(ctx, accountID)
	return args.Error(0)
}

func (m *MockDataSource) ResetAllQuotas(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

// Social post methods

func (m *MockDataSource) RecordSocialPost(ctx context.Context, p model.SocialPost) (model.SocialPost, error) {
	args := m.Called(ctx, p)
	return args.Get(0).(model.SocialPost), args.Error(1)
}

func (m *MockDataSource) GetPostsByVideo(ctx context.Context, videoID string) ([]*model.SocialPost, error) {
	args := m.Called(ctx, videoID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.SocialPost), args.Error(1)
}

func (m *MockDataSource) GetFailedPostsSince(ctx context.Context, since time.Time, limit int) ([]*model.SocialPost, error) {
	args := m.Called(ctx, since, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.SocialPost), args.Error(1)
}

func (m *MockDataSource) GetPostsByTenant(ctx context.Context, tenantID string, limit int) ([]*model.SocialPost, error) {
	args := m.Called(ctx, tenantID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.SocialPost), args.Error(1)
}

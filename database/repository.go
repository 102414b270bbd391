package database

import (
	"context"
	"time"

	"github.com/reelforge/reelforge/model"
)

type IDataSource interface {
	job
	account
	post
}

type job interface {
	CreateGenerationJob(ctx context.Context, job model.GenerationJob) (model.GenerationJob, error)
	GetGenerationJob(ctx context.Context, jobID string) (*model.GenerationJob, error)
	UpdateGenerationJobStatus(ctx context.Context, jobID string, status string) error
	UpdateGenerationJob(ctx context.Context, job *model.GenerationJob) error
	GetGenerationJobsByStatus(ctx context.Context, status string, limit int) ([]*model.GenerationJob, error)
}

type account interface {
	CreateSocialAccount(ctx context.Context, acc model.SocialAccount) (model.SocialAccount, error)
	GetSocialAccount(ctx context.Context, accountID string) (*model.SocialAccount, error)
	GetAccountsForPlatform(ctx context.Context, tenantID, platform string) ([]*model.SocialAccount, error)
	UpdateAccountQuota(ctx context.Context, acc *model.SocialAccount) error
	ReserveAccountQuota(ctx context.Context, accountID string) (bool, error)
	ReleaseAccountQuota(ctx context.Context, accountID string) error
	DeactivateSocialAccount(ctx context.Context, accountID string) error
	ResetAllQuotas(ctx context.Context, now time.Time) (int64, error)
}

type post interface {
	RecordSocialPost(ctx context.Context, p model.SocialPost) (model.SocialPost, error)
	GetPostsByVideo(ctx context.Context, videoID string) ([]*model.SocialPost, error)
	GetFailedPostsSince(ctx context.Context, since time.Time, limit int) ([]*model.SocialPost, error)
	GetPostsByTenant(ctx context.Context, tenantID string, limit int) ([]*model.SocialPost, error)
}

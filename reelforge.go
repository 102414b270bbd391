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
	"embed"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/typesense/typesense-go/typesense/api"
	"go.opentelemetry.io/otel"

	"github.com/reelforge/reelforge/config"
	"github.com/reelforge/reelforge/database"
	"github.com/reelforge/reelforge/internal/cache"
	redis_db "github.com/reelforge/reelforge/internal/redis-db"
	"github.com/reelforge/reelforge/internal/search"
	"github.com/reelforge/reelforge/model"
	"github.com/reelforge/reelforge/platform"
	"github.com/reelforge/reelforge/provider"
	"github.com/reelforge/reelforge/quality"
	"github.com/reelforge/reelforge/storage"
)

var tracer = otel.Tracer("reelforge")

//go:embed sql/*.sql
var SQLFiles embed.FS

// BlobUploader copies a provider asset into durable storage and returns
// the canonical and CDN URLs.
type BlobUploader interface {
	Upload(ctx context.Context, remoteURL, fileName string, metadata map[string]string) (string, string, error)
}

// Reelforge is the main service struct: the generation pipeline, account
// pool, and posting orchestrator all hang off it.
type Reelforge struct {
	queue      *Queue
	search     *search.TypesenseClient
	redis      redis.UniversalClient
	datasource database.IDataSource
	router     *provider.Router
	validator  *quality.Validator
	uploader   BlobUploader
	tokens     platform.TokenSource
	platforms  map[string]platform.PostingAdapter
}

// New initializes a new instance of Reelforge with the provided database
// datasource. It fetches the configuration and wires the Redis client,
// queue, search client, provider router, storage uploader, and the
// platform posting adapters.
//
// Parameters:
// - db database.IDataSource: The datasource for database operations.
//
// Returns:
// - *Reelforge: A pointer to the newly created Reelforge instance.
// - error: An error if any of the initialization steps fail.
func New(db database.IDataSource) (*Reelforge, error) {
	configuration, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	redisClient, err := redis_db.NewRedisClient([]string{fmt.Sprintf("redis://%s", configuration.Redis.Dns)}, configuration.Redis.SkipTLSVerify)
	if err != nil {
		return nil, err
	}

	uploader, err := storage.NewUploader(configuration)
	if err != nil {
		return nil, err
	}

	tokenCache, err := cache.NewCache()
	if err != nil {
		return nil, err
	}

	newSearch := search.NewTypesenseClient(configuration.TypeSenseKey, []string{configuration.TypeSense.Dns})
	service := &Reelforge{
		queue:      NewQueue(configuration),
		search:     newSearch,
		redis:      redisClient.Client(),
		datasource: db,
		router:     provider.NewRouter(configuration),
		validator:  quality.NewValidator(),
		uploader:   uploader,
		tokens:     platform.NewRefreshTokenSource(tokenCache, configuration.Posting.TokenRefreshURL),
		platforms: map[string]platform.PostingAdapter{
			model.PlatformTikTok:    platform.NewTikTokAdapter(),
			model.PlatformYouTube:   platform.NewYouTubeAdapter(),
			model.PlatformInstagram: platform.NewInstagramAdapter(),
		},
	}
	return service, nil
}

// Search performs a search on the specified collection using the provided
// query parameters.
//
// Parameters:
// - collection string: The name of the collection to search.
// - query *api.SearchCollectionParams: The search query parameters.
//
// Returns:
// - interface{}: The search results.
// - error: An error if the search operation fails.
func (r *Reelforge) Search(collection string, query *api.SearchCollectionParams) (interface{}, error) {
	return r.search.Search(context.Background(), collection, query)
}

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

package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/typesense/typesense-go/typesense"
	"github.com/typesense/typesense-go/typesense/api"
)

const (
	CollectionVideos    = "videos"
	CollectionPosts     = "posts"
	CollectionAccounts  = "accounts"
	CollectionAnalytics = "analytics"
)

// CollectionConfig holds configuration for a specific collection.
type CollectionConfig struct {
	Schema     *api.CollectionSchema
	IDField    string
	TimeFields []string
}

var collectionConfigs map[string]CollectionConfig

func init() {
	collectionConfigs = map[string]CollectionConfig{
		CollectionVideos: {
			Schema:     getVideoSchema(),
			IDField:    "job_id",
			TimeFields: []string{"created_at"},
		},
		CollectionPosts: {
			Schema:     getPostSchema(),
			IDField:    "post_id",
			TimeFields: []string{"posted_at"},
		},
		CollectionAccounts: {
			Schema:     getAccountSchema(),
			IDField:    "account_id",
			TimeFields: []string{"created_at"},
		},
		CollectionAnalytics: {
			Schema:     getAnalyticsSchema(),
			IDField:    "post_id",
			TimeFields: []string{"scraped_at"},
		},
	}
}

// TypesenseClient wraps the Typesense client for dashboard search over
// generated videos, posts, and accounts.
type TypesenseClient struct {
	Client *typesense.Client
}

// NewTypesenseClient initializes and returns a new Typesense client instance.
func NewTypesenseClient(apiKey string, hosts []string) *TypesenseClient {
	client := typesense.NewClient(
		typesense.WithServer(hosts[0]),
		typesense.WithAPIKey(apiKey),
		typesense.WithConnectionTimeout(5*time.Second),
		typesense.WithCircuitBreakerMaxRequests(50),
		typesense.WithCircuitBreakerInterval(2*time.Minute),
		typesense.WithCircuitBreakerTimeout(1*time.Minute),
	)
	return &TypesenseClient{Client: client}
}

// EnsureCollectionsExist creates any missing collections from the latest
// schemas.
func (t *TypesenseClient) EnsureCollectionsExist(ctx context.Context) error {
	for name, config := range collectionConfigs {
		if _, err := t.CreateCollection(ctx, config.Schema); err != nil {
			return fmt.Errorf("failed to create collection %s: %w", name, err)
		}
	}
	return nil
}

func (t *TypesenseClient) CreateCollection(ctx context.Context, schema *api.CollectionSchema) (*api.CollectionResponse, error) {
	resp, err := t.Client.Collections().Create(ctx, schema)
	if err != nil {
		if strings.Contains(err.Error(), "already exists") {
			return nil, nil
		}
		return nil, err
	}
	return resp, nil
}

// Search performs a search query on a specific collection.
func (t *TypesenseClient) Search(ctx context.Context, collection string, searchParams *api.SearchCollectionParams) (*api.SearchResult, error) {
	return t.Client.Collection(collection).Documents().Search(ctx, searchParams)
}

func (t *TypesenseClient) MultiSearch(ctx context.Context, searchRequests api.MultiSearchSearchesParameter) (*api.MultiSearchResult, error) {
	return t.Client.MultiSearch.Perform(ctx, &api.MultiSearchParams{}, searchRequests)
}

// HandleNotification normalizes an indexing payload for one table and
// upserts it into Typesense.
func (t *TypesenseClient) HandleNotification(ctx context.Context, table string, data map[string]interface{}) error {
	config, ok := collectionConfigs[table]
	if !ok {
		return fmt.Errorf("unknown collection: %s", table)
	}

	if err := t.processMetadata(data); err != nil {
		return err
	}
	t.ensureSchemaFields(config, data)
	t.normalizeTimeFields(config, data)

	return t.upsertDocument(ctx, table, data)
}

// processMetadata handles metadata field normalization for object schemas.
func (t *TypesenseClient) processMetadata(data map[string]interface{}) error {
	if metaData, ok := data["meta_data"]; ok {
		if metaData == nil {
			data["meta_data"] = make(map[string]interface{})
		} else if metaDataMap, ok := metaData.(map[string]interface{}); ok {
			data["meta_data"] = metaDataMap
		} else {
			jsonString, err := json.Marshal(metaData)
			if err != nil {
				return fmt.Errorf("failed to marshal meta_data: %w", err)
			}
			data["meta_data"] = string(jsonString)
		}
	}
	return nil
}

// ensureSchemaFields fills required schema fields with defaults and drops
// empty optional strings.
func (t *TypesenseClient) ensureSchemaFields(config CollectionConfig, data map[string]interface{}) {
	latestSchema := config.Schema

	optionalFieldMap := make(map[string]bool)
	for _, field := range latestSchema.Fields {
		if field.Optional != nil && *field.Optional {
			optionalFieldMap[field.Name] = true
		}
	}

	for _, field := range latestSchema.Fields {
		if _, ok := data[field.Name]; !ok {
			isOptional := field.Optional != nil && *field.Optional
			if !isOptional {
				data[field.Name] = getDefaultValue(field.Type)
			}
		}
	}

	for key, value := range data {
		if optionalFieldMap[key] {
			if strVal, ok := value.(string); ok && strVal == "" {
				delete(data, key)
			}
		}
	}
}

// normalizeTimeFields converts time fields to Unix timestamps.
func (t *TypesenseClient) normalizeTimeFields(config CollectionConfig, data map[string]interface{}) {
	for _, field := range config.TimeFields {
		if fieldValue, ok := data[field]; ok {
			switch v := fieldValue.(type) {
			case time.Time:
				data[field] = v.Unix()
			case int64:
				// Time already in Unix format, no action needed
			case string:
				if parsed, err := time.Parse(time.RFC3339, v); err == nil {
					data[field] = parsed.Unix()
				} else {
					data[field] = time.Now().Unix()
				}
			default:
				data[field] = time.Now().Unix()
			}
		}
	}
}

func (t *TypesenseClient) getIDField(table string) string {
	if config, ok := collectionConfigs[table]; ok {
		return config.IDField
	}
	return ""
}

// upsertDocument handles the final upsert operation to Typesense.
func (t *TypesenseClient) upsertDocument(ctx context.Context, table string, data map[string]interface{}) error {
	idField := t.getIDField(table)

	if idField != "" {
		if id, ok := data[idField].(string); ok && id != "" {
			data["id"] = id
		}
	}

	_, err := t.Client.Collection(table).Documents().Upsert(ctx, data)
	if err != nil {
		return fmt.Errorf("failed to upsert document in Typesense: %w", err)
	}
	return nil
}

// MigrateTypeSenseSchema adds new fields from the latest schema to the
// existing collection schema in Typesense.
func (t *TypesenseClient) MigrateTypeSenseSchema(ctx context.Context, collectionName string) error {
	collection := t.Client.Collection(collectionName)

	currentSchemaResponse, err := collection.Retrieve(ctx)
	if err != nil {
		return fmt.Errorf("failed to retrieve current schema: %w", err)
	}

	currentSchema := &api.CollectionSchema{
		Name:   currentSchemaResponse.Name,
		Fields: currentSchemaResponse.Fields,
	}

	config, ok := collectionConfigs[collectionName]
	if !ok {
		return fmt.Errorf("unknown collection: %s", collectionName)
	}

	newFields := compareSchemas(currentSchema, config.Schema)

	for _, field := range newFields {
		updateSchema := &api.CollectionUpdateSchema{
			Fields: []api.Field{field},
		}

		_, err := collection.Update(ctx, updateSchema)
		if err != nil {
			return fmt.Errorf("failed to add field %s: %w", field.Name, err)
		}
		logrus.Infof("Added new field %s to collection %s", field.Name, collectionName)
	}

	return nil
}

// getAnalyticsSchema returns the schema for the "analytics" collection.
func getAnalyticsSchema() *api.CollectionSchema {
	facet := true
	sortBy := "scraped_at"
	enableNested := true
	return &api.CollectionSchema{
		Name: "analytics",
		Fields: []api.Field{
			{Name: "post_id", Type: "string", Facet: &facet},
			{Name: "video_id", Type: "string", Facet: &facet},
			{Name: "tenant_id", Type: "string", Facet: &facet},
			{Name: "platform", Type: "string", Facet: &facet},
			{Name: "remote_id", Type: "string", Optional: &enableNested},
			{Name: "remote_url", Type: "string", Optional: &enableNested},
			{Name: "scraped_at", Type: "int64", Facet: &facet},
		},
		DefaultSortingField: &sortBy,
		EnableNestedFields:  &enableNested,
	}
}

// compareSchemas returns fields present in the new schema but missing from
// the old one.
func compareSchemas(oldSchema, newSchema *api.CollectionSchema) []api.Field {
	var newFields []api.Field
	oldFieldMap := make(map[string]bool)

	for _, field := range oldSchema.Fields {
		oldFieldMap[field.Name] = true
	}

	for _, field := range newSchema.Fields {
		if !oldFieldMap[field.Name] {
			newFields = append(newFields, field)
		}
	}

	return newFields
}

// getDefaultValue returns the default value for a given field type in Typesense.
func getDefaultValue(fieldType string) interface{} {
	switch fieldType {
	case "string":
		return ""
	case "int32", "int64":
		return int64(0)
	case "float":
		return float64(0)
	case "bool":
		return false
	case "string[]":
		return []string{}
	default:
		return nil
	}
}

// getVideoSchema returns the schema for the "videos" collection.
func getVideoSchema() *api.CollectionSchema {
	facet := true
	sortBy := "created_at"
	enableNested := true
	return &api.CollectionSchema{
		Name: "videos",
		Fields: []api.Field{
			{Name: "job_id", Type: "string", Facet: &facet},
			{Name: "tenant_id", Type: "string", Facet: &facet},
			{Name: "concept_id", Type: "string", Facet: &facet, Optional: &enableNested},
			{Name: "category", Type: "string", Facet: &facet},
			{Name: "platform", Type: "string", Facet: &facet},
			{Name: "prompt", Type: "string", Optional: &enableNested},
			{Name: "provider", Type: "string", Facet: &facet, Optional: &enableNested},
			{Name: "status", Type: "string", Facet: &facet},
			{Name: "video_url", Type: "string", Optional: &enableNested},
			{Name: "cdn_url", Type: "string", Optional: &enableNested},
			{Name: "duration_sec", Type: "float", Facet: &facet},
			{Name: "quality_issues", Type: "string[]", Optional: &enableNested},
			{Name: "created_at", Type: "int64", Facet: &facet},
			{Name: "meta_data", Type: "object", Facet: &facet, Optional: &enableNested},
		},
		DefaultSortingField: &sortBy,
		EnableNestedFields:  &enableNested,
	}
}

// getPostSchema returns the schema for the "posts" collection.
func getPostSchema() *api.CollectionSchema {
	facet := true
	sortBy := "posted_at"
	enableNested := true
	return &api.CollectionSchema{
		Name: "posts",
		Fields: []api.Field{
			{Name: "post_id", Type: "string", Facet: &facet},
			{Name: "video_id", Type: "string", Facet: &facet},
			{Name: "account_id", Type: "string", Facet: &facet},
			{Name: "tenant_id", Type: "string", Facet: &facet},
			{Name: "platform", Type: "string", Facet: &facet},
			{Name: "status", Type: "string", Facet: &facet},
			{Name: "remote_id", Type: "string", Optional: &enableNested},
			{Name: "remote_url", Type: "string", Optional: &enableNested},
			{Name: "error_message", Type: "string", Optional: &enableNested},
			{Name: "posted_at", Type: "int64", Facet: &facet},
		},
		DefaultSortingField: &sortBy,
		EnableNestedFields:  &enableNested,
	}
}

// getAccountSchema returns the schema for the "accounts" collection.
func getAccountSchema() *api.CollectionSchema {
	facet := true
	sortBy := "created_at"
	enableNested := true
	return &api.CollectionSchema{
		Name: "accounts",
		Fields: []api.Field{
			{Name: "account_id", Type: "string", Facet: &facet},
			{Name: "tenant_id", Type: "string", Facet: &facet},
			{Name: "platform", Type: "string", Facet: &facet},
			{Name: "username", Type: "string", Facet: &facet},
			{Name: "niche", Type: "string", Facet: &facet, Optional: &enableNested},
			{Name: "active", Type: "bool", Facet: &facet},
			{Name: "daily_limit", Type: "int32", Facet: &facet},
			{Name: "used_today", Type: "int32", Facet: &facet},
			{Name: "created_at", Type: "int64", Facet: &facet},
		},
		DefaultSortingField: &sortBy,
		EnableNestedFields:  &enableNested,
	}
}

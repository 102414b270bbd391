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
	"encoding/json"
	"fmt"
	"hash/fnv"
	"log"
	"time"

	"github.com/hibiken/asynq"
	"github.com/reelforge/reelforge/config"
	redis_db "github.com/reelforge/reelforge/internal/redis-db"
	"github.com/reelforge/reelforge/model"
)

// Queue wraps the asynq client and inspector that carry every pipeline
// event between the API process and the workers.
type Queue struct {
	Client    *asynq.Client
	Inspector *asynq.Inspector
}

// NewQueue initializes a new Queue instance with the provided configuration.
//
// Parameters:
// - conf *config.Configuration: The configuration for the queue.
//
// Returns:
// - *Queue: A pointer to the newly created Queue instance.
func NewQueue(conf *config.Configuration) *Queue {
	redisOption, err := redis_db.ParseRedisURL(conf.Redis.Dns, conf.Redis.SkipTLSVerify)
	if err != nil {
		log.Fatalf("Error parsing Redis URL: %v", err)
	}

	queueOptions := asynq.RedisClientOpt{Addr: redisOption.Addr, Password: redisOption.Password, DB: redisOption.DB, TLSConfig: redisOption.TLSConfig}
	client := asynq.NewClient(queueOptions)
	inspector := asynq.NewInspector(queueOptions)
	return &Queue{
		Client:    client,
		Inspector: inspector,
	}
}

// EnqueueGeneration enqueues a video:generate event, optionally delayed.
// Generate queues are sharded by tenant so one tenant's jobs are processed
// serially and cannot starve the others. The task ID encodes job and
// attempt, making redelivery of the same attempt a no-op while still
// letting the retry coordinator schedule the next attempt.
//
// Parameters:
// - ctx context.Context: The context for the operation.
// - req *model.GenerationRequest: The generation request to enqueue.
// - delay time.Duration: How long to hold the task before it runs; zero means immediately.
//
// Returns:
// - error: An error if the task could not be enqueued.
func (q *Queue) EnqueueGeneration(ctx context.Context, req *model.GenerationRequest, delay time.Duration) error {
	ctx, span := tracer.Start(ctx, "Adding Generation Job To Redis Queue")
	defer span.End()

	cfg, err := config.Fetch()
	if err != nil {
		return err
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return err
	}

	queueIndex := hashTenantID(req.TenantID) % cfg.Queue.NumberOfQueues
	queueName := fmt.Sprintf("%s_%d", cfg.Queue.GenerateQueue, queueIndex+1)

	taskOptions := []asynq.Option{
		asynq.TaskID(generationTaskID(req.JobID, req.Attempt)),
		asynq.Queue(queueName),
	}
	if delay > 0 {
		taskOptions = append(taskOptions, asynq.ProcessIn(delay))
	}

	task := asynq.NewTask(queueName, payload, taskOptions...)
	info, err := q.Client.EnqueueContext(ctx, task)
	if err != nil {
		log.Println(err, info)
		return err
	}
	log.Printf(" [*] Successfully enqueued generation job: %s attempt %d", req.JobID, req.Attempt)
	return nil
}

// EnqueueJobFailed publishes a video:failed event for the retry
// coordinator.
func (q *Queue) EnqueueJobFailed(ctx context.Context, event *model.JobFailedEvent) error {
	cfg, err := config.Fetch()
	if err != nil {
		return err
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	taskOptions := []asynq.Option{
		asynq.TaskID(generationTaskID(event.JobID, event.Attempt) + "_failed"),
		asynq.Queue(cfg.Queue.FailedQueue),
	}
	task := asynq.NewTask(cfg.Queue.FailedQueue, payload, taskOptions...)
	info, err := q.Client.EnqueueContext(ctx, task)
	if err != nil {
		log.Println(err, info)
		return err
	}
	log.Printf(" [*] Successfully enqueued failure event: %s attempt %d", event.JobID, event.Attempt)
	return nil
}

// EnqueueVideoReady publishes a video:ready event for the posting
// orchestrator. No task ID is set: the retry sweep legitimately re-emits
// ready events for the same video with a different platform set.
func (q *Queue) EnqueueVideoReady(ctx context.Context, event *model.VideoReadyEvent) error {
	cfg, err := config.Fetch()
	if err != nil {
		return err
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	task := asynq.NewTask(cfg.Queue.ReadyQueue, payload, asynq.Queue(cfg.Queue.ReadyQueue))
	info, err := q.Client.EnqueueContext(ctx, task)
	if err != nil {
		log.Println(err, info)
		return err
	}
	log.Printf(" [*] Successfully enqueued ready event: %s", event.VideoID)
	return nil
}

// ScheduleAnalyticsScrape enqueues an analytics:scrape event held back by
// the configured delay, so metrics are collected after the posts have had
// time to accumulate views.
func (q *Queue) ScheduleAnalyticsScrape(ctx context.Context, event *model.AnalyticsScrapeEvent, delay time.Duration) error {
	cfg, err := config.Fetch()
	if err != nil {
		return err
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	taskOptions := []asynq.Option{
		asynq.TaskID("analytics_" + event.VideoID),
		asynq.Queue(cfg.Queue.AnalyticsQueue),
		asynq.ProcessIn(delay),
	}
	task := asynq.NewTask(cfg.Queue.AnalyticsQueue, payload, taskOptions...)
	info, err := q.Client.EnqueueContext(ctx, task)
	if err != nil {
		log.Println(err, info)
		return err
	}
	log.Printf(" [*] Successfully scheduled analytics scrape: %s in %s", event.VideoID, delay)
	return nil
}

// queueIndexData enqueues a task to index data in a specified collection.
//
// Parameters:
// - id string: The ID of the data to index.
// - collection string: The name of the collection to index the data in.
// - data interface{}: The data to be indexed.
//
// Returns:
// - error: An error if the task could not be enqueued.
func (q *Queue) queueIndexData(id string, collection string, data interface{}) error {
	cfg, err := config.Fetch()
	if err != nil {
		return err
	}

	if cfg.TypeSense.Dns == "" {
		return nil
	}

	payload := map[string]interface{}{
		"collection": collection,
		"payload":    data,
	}

	IPayload, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	taskOptions := []asynq.Option{asynq.Queue(cfg.Queue.IndexQueue)}
	task := asynq.NewTask(cfg.Queue.IndexQueue, IPayload, taskOptions...)
	info, err := q.Client.Enqueue(task)
	if err != nil {
		log.Println(err, info)
		return err
	}
	log.Printf(" [*] Successfully enqueued index data: %+v", id)
	return nil
}

func generationTaskID(jobID string, attempt int) string {
	return fmt.Sprintf("%s_attempt_%d", jobID, attempt)
}

// hashTenantID returns a consistent hash value for a tenant ID.
//
// Parameters:
// - tenantID string: The tenant ID to hash.
//
// Returns:
// - int: The hash value of the tenant ID.
func hashTenantID(tenantID string) int {
	hasher := fnv.New32a()
	_, _ = hasher.Write([]byte(tenantID))
	return int(hasher.Sum32())
}

// GetGenerationRequestFromQueue retrieves a pending generation request
// from the sharded generate queues by job ID and attempt.
//
// Parameters:
// - jobID string: The ID of the job to look up.
// - attempt int: The attempt number the task was enqueued with.
//
// Returns:
// - *model.GenerationRequest: A pointer to the request if found.
// - error: An error if the lookup failed.
func (q *Queue) GetGenerationRequestFromQueue(jobID string, attempt int) (*model.GenerationRequest, error) {
	cfg, err := config.Fetch()
	if err != nil {
		return nil, err
	}

	taskID := generationTaskID(jobID, attempt)
	for i := 1; i <= cfg.Queue.NumberOfQueues; i++ {
		queueName := fmt.Sprintf("%s_%d", cfg.Queue.GenerateQueue, i)
		task, err := q.Inspector.GetTaskInfo(queueName, taskID)
		if err == nil && task != nil {
			var req model.GenerationRequest
			if err := json.Unmarshal(task.Payload, &req); err != nil {
				return nil, err
			}
			return &req, nil
		}
	}
	return nil, nil // Not found in any queue shard.
}

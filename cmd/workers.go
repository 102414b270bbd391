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

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.elastic.co/apm/module/apmlogrus/v2"
	"go.opentelemetry.io/otel"

	"github.com/reelforge/reelforge"
	"github.com/reelforge/reelforge/config"
	redis_db "github.com/reelforge/reelforge/internal/redis-db"
	"github.com/reelforge/reelforge/internal/search"
	"github.com/reelforge/reelforge/model"

	"github.com/hibiken/asynq"
	"github.com/hibiken/asynqmon"
)

// Periodic task types routed to the sweep queue by the scheduler.
const (
	taskPostRetrySweep = "post:retry_sweep"
	taskQuotaReset     = "quota:reset"
)

// indexData represents the data structure used for indexing data in the system.
// It includes the collection name and the payload which is the data to be indexed.
type indexData struct {
	Collection string                 `json:"collection"`
	Payload    map[string]interface{} `json:"payload"`
}

func init() {
	logrus.AddHook(&apmlogrus.Hook{})
}

// processGeneration runs one generation attempt pulled from a sharded
// generate queue. Provider failures are absorbed inside the service (it
// re-enqueues a failure event), so a non-nil error here means the attempt
// itself could not be executed and asynq should redeliver the task.
func (b *reelforgeInstance) processGeneration(ctx context.Context, t *asynq.Task) error {
	ctx, span := otel.Tracer("reelforge.generation.worker").Start(ctx, "Process Generation From Redis Queue")
	defer span.End()

	var req model.GenerationRequest
	if err := json.Unmarshal(t.Payload(), &req); err != nil {
		logrus.Error(err)
		return err
	}

	if err := b.service.ProcessGeneration(ctx, &req); err != nil {
		logrus.Infof("Generation %s pushed back for retry due to error: %v", req.JobID, err)
		return err
	}

	log.Println(" [*] Generation Processed", req.JobID)
	return nil
}

// handleJobFailed schedules the next generation attempt for a failed job,
// or marks the job permanently failed once attempts are exhausted.
func (b *reelforgeInstance) handleJobFailed(ctx context.Context, t *asynq.Task) error {
	var event model.JobFailedEvent
	if err := json.Unmarshal(t.Payload(), &event); err != nil {
		logrus.Error(err)
		return err
	}

	if err := b.service.HandleJobFailed(ctx, &event); err != nil {
		return err
	}

	log.Println(" [*] Failure Handled", event.JobID)
	return nil
}

// processVideoReady fans a completed video out to its target platforms.
func (b *reelforgeInstance) processVideoReady(ctx context.Context, t *asynq.Task) error {
	var event model.VideoReadyEvent
	if err := json.Unmarshal(t.Payload(), &event); err != nil {
		logrus.Error(err)
		return err
	}

	if err := b.service.ProcessVideoReady(ctx, &event); err != nil {
		return err
	}

	log.Println(" [*] Video Posted", event.VideoID)
	return nil
}

// processAnalyticsScrape indexes analytics snapshots for a video's live posts.
func (b *reelforgeInstance) processAnalyticsScrape(ctx context.Context, t *asynq.Task) error {
	var event model.AnalyticsScrapeEvent
	if err := json.Unmarshal(t.Payload(), &event); err != nil {
		logrus.Error(err)
		return err
	}

	return b.service.ProcessAnalyticsScrape(ctx, &event)
}

// processRetrySweep re-emits posting work for recently failed posts.
func (b *reelforgeInstance) processRetrySweep(ctx context.Context, _ *asynq.Task) error {
	return b.service.RetryFailedPosts(ctx)
}

// indexData indexes data into TypeSense for searchability.
// It fetches the collection name and payload from the task, ensures the collections exist,
// and sends the payload to the appropriate TypeSense collection for indexing.
func (b *reelforgeInstance) indexData(ctx context.Context, t *asynq.Task) error {
	var data indexData

	if err := json.Unmarshal(t.Payload(), &data); err != nil {
		logrus.Error(err)
		return err
	}

	collection := data.Collection
	payload := data.Payload

	newSearch := search.NewTypesenseClient(b.cnf.TypeSenseKey, []string{b.cnf.TypeSense.Dns})
	err := newSearch.EnsureCollectionsExist(ctx)
	if err != nil {
		log.Printf("Failed to ensure collections exist: %v", err)
		return err
	}

	err = newSearch.HandleNotification(ctx, collection, payload)
	if err != nil {
		log.Println("Error indexing data", err)
		return err
	}

	log.Println(" [*] Data indexed", collection)
	return nil
}

func initializeQueues() map[string]int {
	cfg, err := config.Fetch()
	if err != nil {
		log.Printf("Error fetching config, using defaults: %v", err)
		return nil
	}

	queues := make(map[string]int)
	queues[cfg.Queue.WebhookQueue] = 3
	queues[cfg.Queue.IndexQueue] = 1
	queues[cfg.Queue.FailedQueue] = 3
	queues[cfg.Queue.ReadyQueue] = 2
	queues[cfg.Queue.AnalyticsQueue] = 1
	queues[cfg.Queue.SweepQueue] = 1

	for i := 1; i <= cfg.Queue.NumberOfQueues; i++ {
		queueName := fmt.Sprintf("%s_%d", cfg.Queue.GenerateQueue, i)
		queues[queueName] = 1
	}
	return queues
}

func initializeWorkerServer(conf *config.Configuration, queues map[string]int) (*asynq.Server, error) {
	redisOption, err := redis_db.ParseRedisURL(conf.Redis.Dns, conf.Redis.SkipTLSVerify)
	if err != nil {
		return nil, fmt.Errorf("error parsing Redis URL: %v", err)
	}

	return asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:      redisOption.Addr,
			Password:  redisOption.Password,
			DB:        redisOption.DB,
			TLSConfig: redisOption.TLSConfig,
		},
		asynq.Config{
			Concurrency: 1,
			Queues:      queues,
		},
	), nil
}

func initializeTaskHandlers(b *reelforgeInstance, mux *asynq.ServeMux) {
	cfg, err := config.Fetch()
	if err != nil {
		log.Printf("Error fetching config, using defaults: %v", err)
		return
	}

	// Register handlers for the sharded generate queues
	for i := 1; i <= cfg.Queue.NumberOfQueues; i++ {
		queueName := fmt.Sprintf("%s_%d", cfg.Queue.GenerateQueue, i)
		mux.HandleFunc(queueName, b.processGeneration)
	}

	// Register handlers for other task types
	mux.HandleFunc(cfg.Queue.FailedQueue, b.handleJobFailed)
	mux.HandleFunc(cfg.Queue.ReadyQueue, b.processVideoReady)
	mux.HandleFunc(cfg.Queue.AnalyticsQueue, b.processAnalyticsScrape)
	mux.HandleFunc(cfg.Queue.IndexQueue, b.indexData)
	mux.HandleFunc(cfg.Queue.WebhookQueue, reelforge.ProcessWebhook)
	mux.HandleFunc(taskPostRetrySweep, b.processRetrySweep)
	mux.HandleFunc(taskQuotaReset, b.service.HandleQuotaReset)
}

// startScheduler runs the periodic sweeps: the posting retry sweep every two
// hours and the daily quota reset at midnight UTC. Both sweeps take a
// distributed lock inside the service, so running the scheduler on several
// workers is safe.
func startScheduler(conf *config.Configuration) (*asynq.Scheduler, error) {
	redisOption, err := redis_db.ParseRedisURL(conf.Redis.Dns, conf.Redis.SkipTLSVerify)
	if err != nil {
		return nil, fmt.Errorf("error parsing Redis URL: %v", err)
	}

	scheduler := asynq.NewScheduler(
		asynq.RedisClientOpt{
			Addr:      redisOption.Addr,
			Password:  redisOption.Password,
			DB:        redisOption.DB,
			TLSConfig: redisOption.TLSConfig,
		},
		&asynq.SchedulerOpts{Location: time.UTC},
	)

	if _, err := scheduler.Register("0 */2 * * *",
		asynq.NewTask(taskPostRetrySweep, nil),
		asynq.Queue(conf.Queue.SweepQueue)); err != nil {
		return nil, err
	}
	if _, err := scheduler.Register("0 0 * * *",
		asynq.NewTask(taskQuotaReset, nil),
		asynq.Queue(conf.Queue.SweepQueue)); err != nil {
		return nil, err
	}

	if err := scheduler.Start(); err != nil {
		return nil, err
	}
	return scheduler, nil
}

// workerCommands defines the "workers" command to start worker processes.
// The workers listen to the generation, posting, analytics, indexing, and
// webhook queues, and run the periodic sweep scheduler.
func workerCommands(b *reelforgeInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workers",
		Short: "start reelforge workers",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()

			conf, err := config.Fetch()
			if err != nil {
				log.Fatal("Error fetching config:", err)
			}

			phClient, shutdown, err := initializeObservability(ctx, conf)
			if err != nil {
				log.Fatal(err)
			}
			if shutdown != nil {
				defer func() {
					if err := shutdown(ctx); err != nil {
						log.Printf("Error during shutdown: %v", err)
					}
				}()
			}
			if phClient != nil {
				defer phClient.Close()
			}

			queues := initializeQueues()

			srv, err := initializeWorkerServer(conf, queues)
			if err != nil {
				log.Fatal(err)
			}

			mux := asynq.NewServeMux()
			initializeTaskHandlers(b, mux)

			scheduler, err := startScheduler(conf)
			if err != nil {
				log.Fatal(err)
			}
			defer scheduler.Shutdown()

			// Start asynqmon server for health checks and monitoring
			redisOption, _ := redis_db.ParseRedisURL(conf.Redis.Dns, conf.Redis.SkipTLSVerify)
			h := asynqmon.New(asynqmon.Options{
				RootPath: "/monitoring", //  Optional: if you want to serve asynqmon under a sub-path.
				RedisConnOpt: asynq.RedisClientOpt{
					Addr:      redisOption.Addr,
					Password:  redisOption.Password,
					DB:        redisOption.DB,
					TLSConfig: redisOption.TLSConfig,
				},
			})

			// Start asynqmon HTTP server in a new goroutine
			go func() {
				monitoringAddr := fmt.Sprintf(":%s", conf.Queue.MonitoringPort)
				log.Printf("Asynqmon server listening on %s/monitoring", monitoringAddr)
				if err := http.ListenAndServe(monitoringAddr, h); err != nil {
					log.Fatalf("could not start asynqmon server: %v", err)
				}
			}()

			if err := srv.Run(mux); err != nil {
				log.Fatalf("could not run server: %v", err)
			}
		},
	}

	return cmd
}

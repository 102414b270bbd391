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

package config

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"strings"
	"sync/atomic"

	"github.com/kelseyhightower/envconfig"

	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_PORT = "5001"
)

var ConfigStore atomic.Value

type ServerConfig struct {
	SSL       bool   `json:"ssl" envconfig:"REELFORGE_SERVER_SSL"`
	Secure    bool   `json:"secure" envconfig:"REELFORGE_SERVER_SECURE"`
	SecretKey string `json:"secret_key" envconfig:"REELFORGE_SERVER_SECRET_KEY"`
	Domain    string `json:"domain" envconfig:"REELFORGE_SERVER_SSL_DOMAIN"`
	Email     string `json:"ssl_email" envconfig:"REELFORGE_SERVER_SSL_EMAIL"`
	Port      string `json:"port" envconfig:"REELFORGE_SERVER_PORT"`
}

type DataSourceConfig struct {
	Dns string `json:"dns" envconfig:"REELFORGE_DATA_SOURCE_DNS"`
}

type RedisConfig struct {
	Dns           string `json:"dns" envconfig:"REELFORGE_REDIS_DNS"`
	SkipTLSVerify bool   `json:"skip_tls_verify" envconfig:"REELFORGE_REDIS_SKIP_TLS_VERIFY"`
}

type TypeSenseConfig struct {
	Dns string `json:"dns" envconfig:"REELFORGE_TYPESENSE_DNS"`
}

// QueueConfig holds the queue names and retry policy for the event bus.
// Generate queues are sharded; the shard for a job is picked by hashing
// its tenant ID so one tenant's jobs stay in one queue.
type QueueConfig struct {
	GenerateQueue    string `json:"generate_queue" envconfig:"REELFORGE_QUEUE_GENERATE"`
	ReadyQueue       string `json:"ready_queue" envconfig:"REELFORGE_QUEUE_READY"`
	FailedQueue      string `json:"failed_queue" envconfig:"REELFORGE_QUEUE_FAILED"`
	AnalyticsQueue   string `json:"analytics_queue" envconfig:"REELFORGE_QUEUE_ANALYTICS"`
	WebhookQueue     string `json:"webhook_queue" envconfig:"REELFORGE_QUEUE_WEBHOOK"`
	IndexQueue       string `json:"index_queue" envconfig:"REELFORGE_QUEUE_INDEX"`
	SweepQueue       string `json:"sweep_queue" envconfig:"REELFORGE_QUEUE_SWEEP"`
	NumberOfQueues   int    `json:"number_of_queues" envconfig:"REELFORGE_NUMBER_OF_QUEUES"`
	MaxRetryAttempts int    `json:"max_retry_attempts" envconfig:"REELFORGE_MAX_RETRY_ATTEMPTS"`
	MonitoringPort   string `json:"monitoring_port" envconfig:"REELFORGE_QUEUE_MONITORING_PORT"`
}

// ProviderConfig configures one video-generation backend. An adapter with
// no API key is registered as unavailable at startup and always reports
// failure, which keeps the router's fallback walk uniform.
type ProviderConfig struct {
	APIKey          string `json:"api_key"`
	BaseURL         string `json:"base_url"`
	PollIntervalSec int    `json:"poll_interval_sec"`
	PollMaxAttempts int    `json:"poll_max_attempts"`
	RequestTimeout  int    `json:"request_timeout_sec"`
}

type ProvidersConfig struct {
	Sora   ProviderConfig `json:"sora"`
	Veo    ProviderConfig `json:"veo"`
	Runway ProviderConfig `json:"runway"`
	Luma   ProviderConfig `json:"luma"`
}

// StorageConfig configures the S3 bucket completed assets are copied into.
type StorageConfig struct {
	S3Endpoint         string `json:"s3_endpoint"`
	S3BucketName       string `json:"s3_bucket_name"`
	S3Region           string `json:"s3_region"`
	AwsAccessKeyId     string `json:"aws_access_key_id"`
	AwsSecretAccessKey string `json:"aws_secret_access_key"`
	CdnBaseURL         string `json:"cdn_base_url"`
}

// PostingConfig tunes the posting orchestrator and its periodic sweeps.
type PostingConfig struct {
	AnalyticsDelayHours int    `json:"analytics_delay_hours" envconfig:"REELFORGE_ANALYTICS_DELAY_HOURS"`
	RetrySweepBatchSize int    `json:"retry_sweep_batch_size" envconfig:"REELFORGE_RETRY_SWEEP_BATCH"`
	TokenRefreshURL     string `json:"token_refresh_url"`
}

type RateLimitConfig struct {
	RequestsPerSecond  *float64 `json:"requests_per_second" envconfig:"REELFORGE_RATE_LIMIT_RPS"`
	Burst              *int     `json:"burst" envconfig:"REELFORGE_RATE_LIMIT_BURST"`
	CleanupIntervalSec *int     `json:"cleanup_interval_sec" envconfig:"REELFORGE_RATE_LIMIT_CLEANUP_INTERVAL_SEC"`
}

type SlackWebhook struct {
	WebhookUrl string `json:"webhook_url"`
}

type Notification struct {
	Slack   SlackWebhook `json:"slack"`
	Webhook struct {
		Url     string            `json:"url"`
		Headers map[string]string `json:"headers"`
	} `json:"webhook"`
}

type Configuration struct {
	ProjectName     string           `json:"project_name" envconfig:"REELFORGE_PROJECT_NAME"`
	BackupDir       string           `json:"backup_dir" envconfig:"REELFORGE_BACKUP_DIR"`
	EnableTelemetry bool             `json:"enable_telemetry" envconfig:"REELFORGE_ENABLE_TELEMETRY"`
	Server          ServerConfig     `json:"server"`
	DataSource      DataSourceConfig `json:"data_source"`
	Redis           RedisConfig      `json:"redis"`
	TypeSense       TypeSenseConfig  `json:"typesense"`
	TypeSenseKey    string           `json:"type_sense_key"`
	Queue           QueueConfig      `json:"queue"`
	Providers       ProvidersConfig  `json:"providers"`
	Storage         StorageConfig    `json:"storage"`
	Posting         PostingConfig    `json:"posting"`
	Notification    Notification     `json:"notification"`
	RateLimit       RateLimitConfig  `json:"rate_limit"`
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		err = json.NewDecoder(f).Decode(&cnf)
		if err != nil {
			return err
		}

	} else if errors.Is(err, os.ErrNotExist) {
		log.Println("config json not passed, will use env variables")
	}

	// override config from environment variables
	err = envconfig.Process("reelforge", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return err
}

func InitConfig(configFile string) error {
	logger()
	return loadConfigFromFile(configFile)
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded from file. Create a json file called reelforge.json with your config ❌")
	}
	return c, nil
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		log.Println("Warning: Project name is empty. Setting a default name.")
		cnf.ProjectName = "ReelForge Server"
	}

	if cnf.TypeSense.Dns == "" {
		cnf.TypeSense.Dns = "http://typesense:8108"
	}

	if cnf.DataSource.Dns == "" {
		log.Println("Error: Data source DNS is empty. It's a required field.")
		return errors.New("data source DNS is required")
	}

	if cnf.Redis.Dns == "" {
		log.Println("Error: Redis DNS is empty. It's a required field.")
		return errors.New("redis DNS is required")
	}

	// Trim white spaces from fields
	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)
	cnf.Server.Port = strings.TrimSpace(cnf.Server.Port)
	cnf.DataSource.Dns = strings.TrimSpace(cnf.DataSource.Dns)
	cnf.Redis.Dns = strings.TrimSpace(cnf.Redis.Dns)

	// Set default value for Port if it's empty
	if cnf.Server.Port == "" {
		cnf.Server.Port = DEFAULT_PORT
		log.Printf("Warning: Port not specified in config. Setting default port: %s", DEFAULT_PORT)
	}

	if cnf.BackupDir == "" {
		cnf.BackupDir = "backups"
	}

	cnf.Queue.applyDefaults()
	cnf.Providers.applyDefaults()
	cnf.Posting.applyDefaults()

	// Rate limiting is disabled by default (when both RPS and Burst are nil)
	if cnf.RateLimit.RequestsPerSecond != nil && cnf.RateLimit.Burst == nil {
		defaultBurst := 2 * int(*cnf.RateLimit.RequestsPerSecond)
		cnf.RateLimit.Burst = &defaultBurst
		log.Printf("Warning: Rate limit burst not specified. Setting default value: %d", defaultBurst)
	}
	if cnf.RateLimit.RequestsPerSecond == nil && cnf.RateLimit.Burst != nil {
		defaultRPS := float64(*cnf.RateLimit.Burst) / 2
		cnf.RateLimit.RequestsPerSecond = &defaultRPS
		log.Printf("Warning: Rate limit RPS not specified. Setting default value: %.2f", defaultRPS)
	}
	if cnf.RateLimit.CleanupIntervalSec == nil {
		defaultCleanup := 10800 // 3 hours in seconds
		cnf.RateLimit.CleanupIntervalSec = &defaultCleanup
	}

	return nil
}

func (q *QueueConfig) applyDefaults() {
	if q.GenerateQueue == "" {
		q.GenerateQueue = "new:generate"
	}
	if q.ReadyQueue == "" {
		q.ReadyQueue = "new:video_ready"
	}
	if q.FailedQueue == "" {
		q.FailedQueue = "new:video_failed"
	}
	if q.AnalyticsQueue == "" {
		q.AnalyticsQueue = "new:analytics"
	}
	if q.WebhookQueue == "" {
		q.WebhookQueue = "new:webhook"
	}
	if q.IndexQueue == "" {
		q.IndexQueue = "new:index"
	}
	if q.SweepQueue == "" {
		q.SweepQueue = "new:sweep"
	}
	if q.NumberOfQueues <= 0 {
		q.NumberOfQueues = 4
	}
	if q.MaxRetryAttempts <= 0 {
		q.MaxRetryAttempts = 3
	}
	if q.MonitoringPort == "" {
		q.MonitoringPort = "5004"
	}
}

func (p *ProvidersConfig) applyDefaults() {
	for _, provider := range []*ProviderConfig{&p.Sora, &p.Veo, &p.Runway, &p.Luma} {
		if provider.PollIntervalSec <= 0 {
			provider.PollIntervalSec = 10
		}
		if provider.PollMaxAttempts <= 0 {
			provider.PollMaxAttempts = 60
		}
		if provider.RequestTimeout <= 0 {
			provider.RequestTimeout = 30
		}
	}
}

func (p *PostingConfig) applyDefaults() {
	if p.AnalyticsDelayHours <= 0 {
		p.AnalyticsDelayHours = 6
	}
	if p.RetrySweepBatchSize <= 0 {
		p.RetrySweepBatchSize = 25
	}
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	mockConfig.Queue.applyDefaults()
	mockConfig.Providers.applyDefaults()
	mockConfig.Posting.applyDefaults()
	ConfigStore.Store(mockConfig)
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}

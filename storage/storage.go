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

// Package storage copies rendered assets off the providers' short-lived
// URLs into durable S3 storage before they are posted anywhere.
package storage

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/reelforge/reelforge/config"
)

type s3PutAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Uploader streams provider downloads into the configured bucket.
type Uploader struct {
	client     s3PutAPI
	httpClient *http.Client
	bucket     string
	region     string
	cdnBaseURL string
}

func NewUploader(conf *config.Configuration) (*Uploader, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithRegion(conf.Storage.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(conf.Storage.AwsAccessKeyId, conf.Storage.AwsSecretAccessKey, "")),
	)
	if err != nil {
		return nil, err
	}

	return &Uploader{
		client:     s3.NewFromConfig(awsCfg),
		httpClient: &http.Client{},
		bucket:     conf.Storage.S3BucketName,
		region:     conf.Storage.S3Region,
		cdnBaseURL: conf.Storage.CdnBaseURL,
	}, nil
}

// Upload fetches the asset at remoteURL and writes it to S3 under a
// date-partitioned key. Returns the canonical S3 URL and the CDN URL;
// when no CDN base is configured both are the S3 URL. Provider URLs
// expire, so the download streams straight into PutObject without
// touching disk.
func (u *Uploader) Upload(ctx context.Context, remoteURL, fileName string, metadata map[string]string) (string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, remoteURL, nil)
	if err != nil {
		return "", "", err
	}

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("fetching asset: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", "", fmt.Errorf("asset fetch returned %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "video/mp4"
	}

	key := fmt.Sprintf("videos/%s/%s", time.Now().UTC().Format("2006/01/02"), fileName)
	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        resp.Body,
		ContentType: aws.String(contentType),
		Metadata:    metadata,
	})
	if err != nil {
		return "", "", fmt.Errorf("uploading to s3: %w", err)
	}

	s3URL := fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", u.bucket, u.region, key)
	cdnURL := s3URL
	if u.cdnBaseURL != "" {
		cdnURL = strings.TrimSuffix(u.cdnBaseURL, "/") + "/" + key
	}
	return s3URL, cdnURL, nil
}

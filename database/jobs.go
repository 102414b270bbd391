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
package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"
	"github.com/reelforge/reelforge/internal/apierror"
	"github.com/reelforge/reelforge/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// CreateGenerationJob inserts a new generation job into the database.
func (d Datasource) CreateGenerationJob(ctx context.Context, job model.GenerationJob) (model.GenerationJob, error) {
	ctx, span := otel.Tracer("job.database").Start(ctx, "Saving generation job to db")
	defer span.End()

	metaDataJSON, err := json.Marshal(job.MetaData)
	if err != nil {
		span.RecordError(err)
		return job, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal metadata", err)
	}

	_, err = d.Conn.ExecContext(ctx,
		`INSERT INTO reelforge.generation_jobs (job_id, tenant_id, concept_id, category, platform, prompt, provider, priority, attempt, status, video_url, cdn_url, duration_sec, cost, quality_issues, error_message, meta_data, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)`,
		job.JobID, job.TenantID, job.ConceptID, job.Category, job.Platform, job.Prompt, job.Provider, job.Priority, job.Attempt, job.Status, job.VideoURL, job.CdnURL, job.DurationSec, job.Cost, pq.Array(job.QualityIssues), job.ErrorMessage, metaDataJSON, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		span.RecordError(err)
		pqErr, ok := err.(*pq.Error)
		if ok && pqErr.Code == "23505" {
			return job, apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("Generation job with ID '%s' already exists", job.JobID), err)
		}
		return job, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to create generation job", err)
	}

	span.SetStatus(codes.Ok, "Generation job saved to db")
	return job, nil
}

// GetGenerationJob retrieves a generation job by its ID.
func (d Datasource) GetGenerationJob(ctx context.Context, jobID string) (*model.GenerationJob, error) {
	ctx, span := otel.Tracer("job.database").Start(ctx, "Fetching generation job from db", trace.WithAttributes(attribute.String("job.id", jobID)))
	defer span.End()

	row := d.Conn.QueryRowContext(ctx,
		`SELECT job_id, tenant_id, concept_id, category, platform, prompt, provider, priority, attempt, status, video_url, cdn_url, duration_sec, cost, quality_issues, error_message, meta_data, created_at, updated_at
		FROM reelforge.generation_jobs WHERE job_id = $1`, jobID)

	job, err := scanJobRow(row)
	if err != nil {
		span.RecordError(err)
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Generation job with ID '%s' not found", jobID), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve generation job", err)
	}

	span.SetStatus(codes.Ok, "Generation job retrieved")
	return job, nil
}

// UpdateGenerationJobStatus transitions a job to a new status. Jobs already in
// a terminal status (completed, failed) are left untouched.
func (d Datasource) UpdateGenerationJobStatus(ctx context.Context, jobID string, status string) error {
	ctx, span := otel.Tracer("job.database").Start(ctx, "Updating generation job status", trace.WithAttributes(
		attribute.String("job.id", jobID),
		attribute.String("job.status", status),
	))
	defer span.End()

	result, err := d.Conn.ExecContext(ctx,
		`UPDATE reelforge.generation_jobs SET status = $2, updated_at = NOW() WHERE job_id = $1 AND status NOT IN ('completed', 'failed')`,
		jobID, status)
	if err != nil {
		span.RecordError(err)
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update generation job status", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		span.RecordError(err)
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		span.AddEvent("no rows updated, job missing or terminal")
	}

	span.SetStatus(codes.Ok, "Generation job status updated")
	return nil
}

// UpdateGenerationJob persists the mutable fields of a job.
func (d Datasource) UpdateGenerationJob(ctx context.Context, job *model.GenerationJob) error {
	ctx, span := otel.Tracer("job.database").Start(ctx, "Updating generation job", trace.WithAttributes(attribute.String("job.id", job.JobID)))
	defer span.End()

	metaDataJSON, err := json.Marshal(job.MetaData)
	if err != nil {
		span.RecordError(err)
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal metadata", err)
	}

	_, err = d.Conn.ExecContext(ctx,
		`UPDATE reelforge.generation_jobs
		SET provider = $2, attempt = $3, status = $4, video_url = $5, cdn_url = $6, duration_sec = $7, cost = $8, quality_issues = $9, error_message = $10, meta_data = $11, updated_at = NOW()
		WHERE job_id = $1`,
		job.JobID, job.Provider, job.Attempt, job.Status, job.VideoURL, job.CdnURL, job.DurationSec, job.Cost, pq.Array(job.QualityIssues), job.ErrorMessage, metaDataJSON)
	if err != nil {
		span.RecordError(err)
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update generation job", err)
	}

	span.SetStatus(codes.Ok, "Generation job updated")
	return nil
}

// GetGenerationJobsByStatus lists jobs in a given status, newest first.
func (d Datasource) GetGenerationJobsByStatus(ctx context.Context, status string, limit int) ([]*model.GenerationJob, error) {
	ctx, span := otel.Tracer("job.database").Start(ctx, "Fetching generation jobs by status", trace.WithAttributes(attribute.String("job.status", status)))
	defer span.End()

	rows, err := d.Conn.QueryContext(ctx,
		`SELECT job_id, tenant_id, concept_id, category, platform, prompt, provider, priority, attempt, status, video_url, cdn_url, duration_sec, cost, quality_issues, error_message, meta_data, created_at, updated_at
		FROM reelforge.generation_jobs WHERE status = $1 ORDER BY created_at DESC LIMIT $2`, status, limit)
	if err != nil {
		span.RecordError(err)
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve generation jobs", err)
	}
	defer rows.Close()

	var jobs []*model.GenerationJob
	for rows.Next() {
		job, err := scanJobRow(rows)
		if err != nil {
			span.RecordError(err)
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan generation job", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error iterating generation jobs", err)
	}

	span.SetAttributes(attribute.Int("jobs.count", len(jobs)))
	span.SetStatus(codes.Ok, "Generation jobs retrieved")
	return jobs, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJobRow(row rowScanner) (*model.GenerationJob, error) {
	job := &model.GenerationJob{}
	var metaDataJSON []byte
	err := row.Scan(
		&job.JobID, &job.TenantID, &job.ConceptID, &job.Category, &job.Platform,
		&job.Prompt, &job.Provider, &job.Priority, &job.Attempt, &job.Status,
		&job.VideoURL, &job.CdnURL, &job.DurationSec, &job.Cost,
		pq.Array(&job.QualityIssues), &job.ErrorMessage, &metaDataJSON,
		&job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(metaDataJSON) > 0 {
		if err := json.Unmarshal(metaDataJSON, &job.MetaData); err != nil {
			return nil, err
		}
	}
	return job, nil
}

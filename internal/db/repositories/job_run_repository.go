package repositories

import (
	"context"
	"time"

	"infinite-experiment/keydrop/internal/models/gorm"

	gormlib "gorm.io/gorm"
)

const (
	JobStatusRunning   = "running"
	JobStatusSucceeded = "succeeded"
	JobStatusFailed    = "failed"
)

// JobRunRepo handles background job history
type JobRunRepo struct {
	db *gormlib.DB
}

// NewJobRunRepo creates a new job history repository
func NewJobRunRepo(db *gormlib.DB) *JobRunRepo {
	return &JobRunRepo{db: db}
}

// Start records a run in progress
func (r *JobRunRepo) Start(ctx context.Context, job string, at time.Time) (*gorm.JobRun, error) {
	run := gorm.JobRun{
		Job:       job,
		Status:    JobStatusRunning,
		StartedAt: at,
	}
	if err := r.db.WithContext(ctx).Create(&run).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

// Finish closes a run with its outcome
func (r *JobRunRepo) Finish(ctx context.Context, run *gorm.JobRun, status string, processed, flagged int, at time.Time) error {
	run.Status = status
	run.Processed = processed
	run.Flagged = flagged
	run.FinishedAt = &at
	return r.db.WithContext(ctx).Save(run).Error
}

// GetLastSuccessful retrieves the most recent successful run of a job
// Used to skip the initial run on restart when one happened recently
func (r *JobRunRepo) GetLastSuccessful(ctx context.Context, job string) (*gorm.JobRun, error) {
	var run gorm.JobRun

	err := r.db.WithContext(ctx).
		Where("job = ? AND status = ?", job, JobStatusSucceeded).
		Order("started_at DESC").
		First(&run).Error

	if err != nil {
		if err == gormlib.ErrRecordNotFound {
			return nil, nil // No history
		}
		return nil, err
	}

	return &run, nil
}

package storage

import (
	"context"
	"time"

	"feedjam/internal/model"

	"gorm.io/gorm"
)

// Jobs persists orchestrated work and its status.
type Jobs struct {
	db *gorm.DB
}

func NewJobs(db *gorm.DB) *Jobs {
	return &Jobs{db: db}
}

// Create stores job as pending and fills in its id.
func (s *Jobs) Create(ctx context.Context, job *model.Job) error {
	job.ID = 0
	job.Status = model.JobPending
	return s.db.WithContext(ctx).Create(job).Error
}

func (s *Jobs) Get(ctx context.Context, id uint) (model.Job, error) {
	var j model.Job
	if err := s.db.WithContext(ctx).First(&j, id).Error; err != nil {
		return model.Job{}, notFound(err)
	}
	return j, nil
}

// Pending returns up to limit pending jobs, oldest first.
func (s *Jobs) Pending(ctx context.Context, limit int) ([]model.Job, error) {
	var out []model.Job
	err := s.db.WithContext(ctx).Where("status = ?", model.JobPending).Order("id").Limit(limit).Find(&out).Error
	return out, err
}

// Recent lists the latest jobs, newest first.
func (s *Jobs) Recent(ctx context.Context, limit int) ([]model.Job, error) {
	var out []model.Job
	err := s.db.WithContext(ctx).Order("id DESC").Limit(limit).Find(&out).Error
	return out, err
}

// Claim moves a pending job to running. It reports false when another
// worker got there first.
func (s *Jobs) Claim(ctx context.Context, id uint, at time.Time) (bool, error) {
	res := s.db.WithContext(ctx).Model(&model.Job{}).
		Where("id = ? AND status = ?", id, model.JobPending).
		Updates(map[string]any{"status": model.JobRunning, "started_at": at})
	return res.RowsAffected == 1, res.Error
}

// Finish records a terminal status.
func (s *Jobs) Finish(ctx context.Context, id uint, status model.JobStatus, errMsg string, at time.Time) error {
	return s.db.WithContext(ctx).Model(&model.Job{}).Where("id = ?", id).Updates(map[string]any{
		"status":      status,
		"error":       errMsg,
		"finished_at": at,
	}).Error
}

// HasOpen reports whether a pending or running job of the given type
// targets the subscription or user.
func (s *Jobs) HasOpen(ctx context.Context, jobType model.JobType, subscriptionID, userID *uint) (bool, error) {
	q := s.db.WithContext(ctx).Model(&model.Job{}).
		Where("job_type = ? AND status IN ?", jobType, []model.JobStatus{model.JobPending, model.JobRunning})
	if subscriptionID != nil {
		q = q.Where("subscription_id = ?", *subscriptionID)
	}
	if userID != nil {
		q = q.Where("user_id = ?", *userID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

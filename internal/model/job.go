package model

import "time"

// JobType names a unit of orchestrated work.
type JobType string

const (
	JobFetchSubscription     JobType = "fetch-one-subscription"
	JobFetchAllSubscriptions JobType = "fetch-all-subscriptions"
	JobGenerateUserFeed      JobType = "generate-one-user-feed"
	JobGenerateAllUserFeeds  JobType = "generate-all-user-feeds"
)

// Valid reports whether t is a known job type.
func (t JobType) Valid() bool {
	switch t {
	case JobFetchSubscription, JobFetchAllSubscriptions, JobGenerateUserFeed, JobGenerateAllUserFeeds:
		return true
	}
	return false
}

// JobStatus moves pending -> running -> success|failed.
type JobStatus string

const (
	JobPending JobStatus = "pending"
	JobRunning JobStatus = "running"
	JobSuccess JobStatus = "success"
	JobFailed  JobStatus = "failed"
)

// Job is a persisted, observable unit of work.
type Job struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	Type           JobType    `gorm:"column:job_type;not null;index" json:"job_type"`
	Status         JobStatus  `gorm:"not null;index" json:"status"`
	SubscriptionID *uint      `gorm:"index" json:"subscription_id,omitempty"`
	UserID         *uint      `gorm:"index" json:"user_id,omitempty"`
	Error          string     `json:"error,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
}

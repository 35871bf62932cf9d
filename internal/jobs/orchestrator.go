// Package jobs persists and executes fetch and generation work.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"feedjam/internal/model"
	"feedjam/internal/storage"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// ErrInvalidJob is returned for unknown job types or targets that do not
// match the type.
var ErrInvalidJob = errors.New("invalid job")

type Parser interface {
	Parse(ctx context.Context, src model.Source) ([]model.RawItem, error)
}

type Ingester interface {
	IngestAndEnrich(ctx context.Context, src model.Source, raw []model.RawItem) error
}

type Generator interface {
	GenerateUserFeed(ctx context.Context, userID uint) error
}

type Config struct {
	Workers         int
	BatchSize       int
	RefreshInterval time.Duration
}

// Orchestrator turns jobs into fetches and feed generations.
type Orchestrator struct {
	Jobs          *storage.Jobs
	Subscriptions *storage.Subscriptions
	Sources       *storage.Sources
	Users         *storage.Users
	Parser        Parser
	Ingester      Ingester
	Generator     Generator
	Config        Config
	Now           func() time.Time
}

func New(db *gorm.DB, p Parser, in Ingester, gen Generator, cfg Config) *Orchestrator {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = 4 * time.Hour
	}
	return &Orchestrator{
		Jobs:          storage.NewJobs(db),
		Subscriptions: storage.NewSubscriptions(db),
		Sources:       storage.NewSources(db),
		Users:         storage.NewUsers(db),
		Parser:        p,
		Ingester:      in,
		Generator:     gen,
		Config:        cfg,
		Now:           func() time.Time { return time.Now().UTC() },
	}
}

func validate(t model.JobType, subscriptionID, userID *uint) error {
	if !t.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidJob, t)
	}
	switch t {
	case model.JobFetchSubscription:
		if subscriptionID == nil || userID != nil {
			return fmt.Errorf("%w: %s needs a subscription id only", ErrInvalidJob, t)
		}
	case model.JobGenerateUserFeed:
		if userID == nil || subscriptionID != nil {
			return fmt.Errorf("%w: %s needs a user id only", ErrInvalidJob, t)
		}
	default:
		if subscriptionID != nil || userID != nil {
			return fmt.Errorf("%w: %s takes no target", ErrInvalidJob, t)
		}
	}
	return nil
}

// Enqueue stores a pending job and returns its id.
func (o *Orchestrator) Enqueue(ctx context.Context, t model.JobType, subscriptionID, userID *uint) (uint, error) {
	if err := validate(t, subscriptionID, userID); err != nil {
		return 0, err
	}
	job := model.Job{Type: t, SubscriptionID: subscriptionID, UserID: userID}
	if err := o.Jobs.Create(ctx, &job); err != nil {
		return 0, fmt.Errorf("enqueue %s: %w", t, err)
	}
	return job.ID, nil
}

// Status returns the job with its current status.
func (o *Orchestrator) Status(ctx context.Context, id uint) (model.Job, error) {
	return o.Jobs.Get(ctx, id)
}

// ProcessPending claims and runs one batch of pending jobs on the worker
// pool and returns how many it ran. Job failures are recorded on the job;
// only storage errors are returned.
func (o *Orchestrator) ProcessPending(ctx context.Context) (int, error) {
	pending, err := o.Jobs.Pending(ctx, o.Config.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("list pending jobs: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	var ran atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.Config.Workers)
	for _, j := range pending {
		j := j
		g.Go(func() error {
			claimed, err := o.run(gctx, j)
			if claimed {
				ran.Add(1)
			}
			return err
		})
	}
	err = g.Wait()
	slog.Info("jobs: processed batch", "listed", len(pending), "ran", ran.Load())
	return int(ran.Load()), err
}

// RunNow claims and runs the given jobs one after another, in order. It
// returns the failures of every job it ran.
func (o *Orchestrator) RunNow(ctx context.Context, ids ...uint) error {
	var errs []error
	for _, id := range ids {
		job, err := o.Jobs.Get(ctx, id)
		if err != nil {
			return fmt.Errorf("job %d: %w", id, err)
		}
		claimed, err := o.run(ctx, job)
		if err != nil {
			return err
		}
		if !claimed {
			errs = append(errs, fmt.Errorf("job %d is %s, not pending", id, job.Status))
			continue
		}
		done, err := o.Jobs.Get(ctx, id)
		if err != nil {
			return err
		}
		if done.Status == model.JobFailed {
			errs = append(errs, fmt.Errorf("job %d (%s): %s", id, done.Type, done.Error))
		}
	}
	return errors.Join(errs...)
}

// run claims job and executes it if the claim succeeds.
func (o *Orchestrator) run(ctx context.Context, job model.Job) (bool, error) {
	claimed, err := o.Jobs.Claim(ctx, job.ID, o.Now())
	if err != nil {
		return false, fmt.Errorf("claim job %d: %w", job.ID, err)
	}
	if !claimed {
		return false, nil
	}

	start := time.Now()
	execErr := o.execute(ctx, job)
	status, msg := model.JobSuccess, ""
	if execErr != nil {
		status, msg = model.JobFailed, execErr.Error()
		slog.Warn("jobs: job failed", "id", job.ID, "type", job.Type, "err", execErr)
	} else {
		slog.Info("jobs: job done", "id", job.ID, "type", job.Type, "took", time.Since(start).Round(time.Millisecond))
	}
	// Record the outcome even if ctx was cancelled mid-run.
	if err := o.Jobs.Finish(context.WithoutCancel(ctx), job.ID, status, msg, o.Now()); err != nil {
		return true, fmt.Errorf("finish job %d: %w", job.ID, err)
	}
	return true, nil
}

func (o *Orchestrator) execute(ctx context.Context, job model.Job) error {
	if err := validate(job.Type, job.SubscriptionID, job.UserID); err != nil {
		return err
	}
	switch job.Type {
	case model.JobFetchSubscription:
		return o.FetchSubscription(ctx, *job.SubscriptionID)
	case model.JobGenerateUserFeed:
		return o.GenerateUserFeed(ctx, *job.UserID)
	case model.JobFetchAllSubscriptions:
		_, err := o.FetchAll(ctx)
		return err
	case model.JobGenerateAllUserFeeds:
		_, err := o.GenerateAll(ctx)
		return err
	}
	return fmt.Errorf("%w: %q", ErrInvalidJob, job.Type)
}

// FetchAll enqueues a fetch for every active subscription that is due and
// has no open fetch job. It returns how many jobs it created.
func (o *Orchestrator) FetchAll(ctx context.Context) (int, error) {
	due, err := o.Subscriptions.Due(ctx, o.Now(), o.Config.RefreshInterval)
	if err != nil {
		return 0, fmt.Errorf("list due subscriptions: %w", err)
	}
	n := 0
	for _, sub := range due {
		id := sub.ID
		open, err := o.Jobs.HasOpen(ctx, model.JobFetchSubscription, &id, nil)
		if err != nil {
			return n, err
		}
		if open {
			continue
		}
		if _, err := o.Enqueue(ctx, model.JobFetchSubscription, &id, nil); err != nil {
			return n, err
		}
		n++
	}
	slog.Info("jobs: fan-out fetch", "due", len(due), "enqueued", n)
	return n, nil
}

// GenerateAll enqueues a generation for every active user without an open
// generation job.
func (o *Orchestrator) GenerateAll(ctx context.Context) (int, error) {
	users, err := o.Users.Active(ctx)
	if err != nil {
		return 0, fmt.Errorf("list active users: %w", err)
	}
	n := 0
	for _, u := range users {
		id := u.ID
		open, err := o.Jobs.HasOpen(ctx, model.JobGenerateUserFeed, nil, &id)
		if err != nil {
			return n, err
		}
		if open {
			continue
		}
		if _, err := o.Enqueue(ctx, model.JobGenerateUserFeed, nil, &id); err != nil {
			return n, err
		}
		n++
	}
	slog.Info("jobs: fan-out generate", "users", len(users), "enqueued", n)
	return n, nil
}

// FetchSubscription parses the subscription's source and ingests the
// result, recording the outcome on the subscription.
func (o *Orchestrator) FetchSubscription(ctx context.Context, subscriptionID uint) error {
	sub, err := o.Subscriptions.Get(ctx, subscriptionID)
	if err != nil {
		return fmt.Errorf("subscription %d: %w", subscriptionID, err)
	}
	src, err := o.Sources.Get(ctx, sub.SourceID)
	if err != nil {
		return fmt.Errorf("source %d: %w", sub.SourceID, err)
	}
	if !src.IsActive {
		slog.Info("jobs: skipping inactive source", "subscription", sub.ID, "source", src.Name)
		return nil
	}

	now := o.Now()
	raw, err := o.Parser.Parse(ctx, src)
	if err == nil {
		err = o.Ingester.IngestAndEnrich(ctx, src, raw)
	}
	if err != nil {
		if rerr := o.Subscriptions.RecordFailure(context.WithoutCancel(ctx), sub.ID, now, err); rerr != nil {
			return errors.Join(err, rerr)
		}
		return err
	}
	return o.Subscriptions.RecordSuccess(ctx, sub.ID, now, len(raw))
}

func (o *Orchestrator) GenerateUserFeed(ctx context.Context, userID uint) error {
	return o.Generator.GenerateUserFeed(ctx, userID)
}

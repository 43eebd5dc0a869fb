package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/luismarin-dev/ordena-backend/pkg/logger"
)

const defaultStaleClaimAge = 15 * time.Minute

// txRunner abstracts pkg/db.Client transactional execution for jobs.
type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type staleClaimRepo interface {
	DeleteStaleUnsynced(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

// StaleClaimJobParams configure the stale claim sweeper.
type StaleClaimJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository staleClaimRepo
	MaxAge     time.Duration
}

// NewStaleClaimJob builds the job that sweeps claims orphaned by a crash
// between the local insert and the remote status sync. A claim that never
// synced blocks its order for every other worker, so it is released after
// MaxAge.
func NewStaleClaimJob(params StaleClaimJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("assignments repository required")
	}
	maxAge := params.MaxAge
	if maxAge <= 0 {
		maxAge = defaultStaleClaimAge
	}
	return &staleClaimJob{
		logg:   params.Logger,
		db:     params.DB,
		repo:   params.Repository,
		maxAge: maxAge,
		now:    time.Now,
	}, nil
}

type staleClaimJob struct {
	logg   *logger.Logger
	db     txRunner
	repo   staleClaimRepo
	maxAge time.Duration
	now    func() time.Time
}

func (j *staleClaimJob) Name() string { return "stale-claim-sweep" }

func (j *staleClaimJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.maxAge)
	var deleted int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := j.repo.DeleteStaleUnsynced(ctx, tx, cutoff)
		if err != nil {
			return err
		}
		deleted = rows
		return nil
	})
	if err != nil {
		return fmt.Errorf("stale claim sweep: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"max_age":      j.maxAge.String(),
		"rows_deleted": deleted,
	})
	j.logg.Info(logCtx, "stale claim sweep complete")
	return nil
}

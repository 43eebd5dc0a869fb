package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/luismarin-dev/ordena-backend/pkg/logger"
)

const priorityRetentionDays = 30

type priorityRetentionRepo interface {
	DeleteClaimedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

// PriorityRetentionJobParams configure the priority registry pruner.
type PriorityRetentionJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository priorityRetentionRepo
	Retention  int
}

// NewPriorityRetentionJob builds the job that prunes old registry entries
// whose order has already been claimed. Unclaimed entries stay, regardless
// of age, so they keep their rank.
func NewPriorityRetentionJob(params PriorityRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("priority repository required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = priorityRetentionDays
	}
	return &priorityRetentionJob{
		logg:      params.Logger,
		db:        params.DB,
		repo:      params.Repository,
		retention: retention,
		now:       time.Now,
	}, nil
}

type priorityRetentionJob struct {
	logg      *logger.Logger
	db        txRunner
	repo      priorityRetentionRepo
	retention int
	now       func() time.Time
}

func (j *priorityRetentionJob) Name() string { return "priority-retention" }

func (j *priorityRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-time.Duration(j.retention) * 24 * time.Hour)
	var deleted int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := j.repo.DeleteClaimedBefore(ctx, tx, cutoff)
		if err != nil {
			return err
		}
		deleted = rows
		return nil
	})
	if err != nil {
		return fmt.Errorf("priority retention: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"retention_days": j.retention,
		"rows_deleted":   deleted,
	})
	j.logg.Info(logCtx, "priority retention cleanup complete")
	return nil
}

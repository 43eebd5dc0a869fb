package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/luismarin-dev/ordena-backend/pkg/logger"
)

func TestStaleClaimJobUsesConfiguredCutoff(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	repo := &fakeStaleClaimRepo{}
	job := newStaleClaimJob(t, repo)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	expectedCutoff := now.UTC().Add(-defaultStaleClaimAge)
	if !repo.lastCutoff.Equal(expectedCutoff) {
		t.Fatalf("expected cutoff %s, got %s", expectedCutoff, repo.lastCutoff)
	}
	if repo.called != 1 {
		t.Fatalf("expected repo called once, got %d", repo.called)
	}
}

func TestStaleClaimJobPropagatesError(t *testing.T) {
	repo := &fakeStaleClaimRepo{err: errors.New("boom")}
	job := newStaleClaimJob(t, repo)

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func newStaleClaimJob(t *testing.T, repo *fakeStaleClaimRepo) *staleClaimJob {
	t.Helper()
	jobIface, err := NewStaleClaimJob(StaleClaimJobParams{
		Logger:     logger.New(logger.Options{ServiceName: "test"}),
		DB:         passthroughTxRunner{},
		Repository: repo,
	})
	if err != nil {
		t.Fatalf("NewStaleClaimJob: %v", err)
	}
	job, ok := jobIface.(*staleClaimJob)
	if !ok {
		t.Fatalf("expected staleClaimJob, got %T", jobIface)
	}
	return job
}

type fakeStaleClaimRepo struct {
	lastCutoff time.Time
	called     int
	err        error
}

func (f *fakeStaleClaimRepo) DeleteStaleUnsynced(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
	f.called++
	f.lastCutoff = cutoff
	if f.err != nil {
		return 0, f.err
	}
	return 3, nil
}

type passthroughTxRunner struct{}

func (passthroughTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

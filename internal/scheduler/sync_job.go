package scheduler

import (
	"context"
	"fmt"

	"rentledger/internal/domain/account"
	"rentledger/internal/domain/sync"
)

// SyncJob runs one bank feed sync for a linked account through the sync
// service. It implements the Job interface.
type SyncJob struct {
	acct    *account.LinkedAccount
	service *sync.Service
}

// NewSyncJob creates a new sync job for the given linked account.
func NewSyncJob(acct *account.LinkedAccount, service *sync.Service) *SyncJob {
	return &SyncJob{
		acct:    acct,
		service: service,
	}
}

// Execute runs the sync job.
func (j *SyncJob) Execute(ctx context.Context) error {
	if _, err := j.service.SyncAccount(ctx, j.acct.ID); err != nil {
		return fmt.Errorf("scheduled sync failed: %w", err)
	}
	return nil
}

// AccountID returns the linked account ID for this job.
func (j *SyncJob) AccountID() string {
	return j.acct.ID
}

// Description returns a human-readable description of this job.
func (j *SyncJob) Description() string {
	return "bank feed sync"
}

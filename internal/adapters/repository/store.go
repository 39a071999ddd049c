// Package repository persists creative jobs.
//
// Every store serializes writers per job: Update hands the callback a private
// copy and only persists it if nobody else wrote the job in between.
package repository

import (
	"context"

	"github.com/okian/adcraft/internal/domain/model"
)

// UpdateFunc mutates a job in place. Returning an error aborts the update and
// the error is returned unchanged from Update.
type UpdateFunc func(job *model.CreativeJob) error

// Store provides read/write access to jobs. Returned jobs are copies.
type Store interface {
	// Create inserts a new job. Returns ErrExists if the id is taken.
	Create(ctx context.Context, job *model.CreativeJob) error

	// Get returns the job. Returns ErrNotFound if it is unknown or deleted.
	Get(ctx context.Context, id string) (*model.CreativeJob, error)

	// Update applies fn under the store's concurrency control and returns the
	// stored result.
	Update(ctx context.Context, id string, fn UpdateFunc) (*model.CreativeJob, error)

	// Delete removes the job. Returns ErrNotFound if it is unknown.
	Delete(ctx context.Context, id string) error

	// ListByStatus returns jobs in status, oldest first.
	ListByStatus(ctx context.Context, status model.JobStatus) ([]*model.CreativeJob, error)

	// CountByStatus returns the number of jobs per status.
	CountByStatus(ctx context.Context) (map[model.JobStatus]int, error)

	// Name identifies the backend in logs and metrics.
	Name() string

	// Close releases the store's resources.
	Close() error
}

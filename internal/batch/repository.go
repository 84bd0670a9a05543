package batch

import (
	"context"

	"gorm.io/gorm"

	"github.com/pitabwire/frame/datastore/pool"
)

// JobStore is the persistence surface the processor and API need.
type JobStore interface {
	Create(ctx context.Context, job *Job) error
	Update(ctx context.Context, job *Job) error
	GetByRequestID(ctx context.Context, requestID string) (*Job, error)
	ListBySession(ctx context.Context, sessionID string) ([]Job, error)
}

// Repository provides CRUD operations for batch jobs.
type Repository struct {
	pool pool.Pool
}

// NewRepository creates a new job repository.
func NewRepository(pool pool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) db(ctx context.Context, readOnly bool) *gorm.DB {
	return r.pool.DB(ctx, readOnly)
}

// Migrate creates or updates the jobs table.
func (r *Repository) Migrate(ctx context.Context) error {
	return r.db(ctx, false).AutoMigrate(&Job{})
}

// Create persists a new job.
func (r *Repository) Create(ctx context.Context, job *Job) error {
	return r.db(ctx, false).Create(job).Error
}

// Update persists changes to a job.
func (r *Repository) Update(ctx context.Context, job *Job) error {
	return r.db(ctx, false).Save(job).Error
}

// GetByRequestID returns the job with the given request id.
func (r *Repository) GetByRequestID(ctx context.Context, requestID string) (*Job, error) {
	var job Job
	err := r.db(ctx, true).Where("request_id = ?", requestID).First(&job).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// ListBySession returns a session's jobs, newest first.
func (r *Repository) ListBySession(ctx context.Context, sessionID string) ([]Job, error) {
	var jobs []Job
	err := r.db(ctx, true).
		Where("session_id = ?", sessionID).
		Order("created_at DESC").
		Find(&jobs).Error
	return jobs, err
}

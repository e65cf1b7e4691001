package repository

import (
	"context"

	"pipenet/internal/domain"
)

// Repository defines the interface for design run persistence
type Repository interface {
	// Write operations
	SaveRun(ctx context.Context, run *domain.DesignRun) error
	DeleteRun(ctx context.Context, id string) error

	// Read operations
	GetRun(ctx context.Context, id string) (*domain.DesignRun, error)
	ListRuns(ctx context.Context, limit int) ([]domain.RunInfo, error)

	// Close releases resources
	Close() error
}

package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/opsdesk/ticket-workflow/internal/domain"
	"github.com/opsdesk/ticket-workflow/internal/repository"
	apperrors "github.com/opsdesk/ticket-workflow/pkg/util"
)

// CatalogService exposes the read-only workflow/department catalog. The
// engine never mutates catalog data through this service.
type CatalogService struct {
	catalog repository.CatalogRepository
}

// NewCatalogService constructs the service.
func NewCatalogService(catalog repository.CatalogRepository) *CatalogService {
	return &CatalogService{catalog: catalog}
}

// GetWorkflow fetches a workflow by id.
func (s *CatalogService) GetWorkflow(ctx context.Context, id string) (*domain.Workflow, error) {
	wf, err := s.catalog.GetWorkflow(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("workflow", map[string]any{"workflow_id": id})
		}
		return nil, err
	}
	return wf, nil
}

// ListWorkflows lists all workflow definitions.
func (s *CatalogService) ListWorkflows(ctx context.Context) ([]domain.Workflow, error) {
	return s.catalog.ListWorkflows(ctx)
}

// ListDepartments lists all departments with their ticket types.
func (s *CatalogService) ListDepartments(ctx context.Context) ([]domain.Department, error) {
	return s.catalog.ListDepartments(ctx)
}

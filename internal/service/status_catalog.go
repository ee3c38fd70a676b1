package service

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// StatusLookup exposes the classified status catalog to business rules, so
// transition logic never hard-codes catalog identifiers.
type StatusLookup interface {
	Class(statusID int64) domain.StatusClass
	StatusByID(statusID int64) (domain.Status, bool)
	FirstByClass(class domain.StatusClass) (domain.Status, bool)
	IDsByClass(classes ...domain.StatusClass) []int64
}

// StatusCatalog caches the status catalog and its name-derived
// classification. The catalog is small and changes rarely; Refresh reloads
// it on demand.
type StatusCatalog struct {
	statuses repository.StatusRepository
	logger   *zap.Logger

	mu      sync.RWMutex
	byID    map[int64]domain.Status
	byClass map[domain.StatusClass][]int64
	ordered []domain.Status
}

// NewStatusCatalog builds the catalog cache; call Refresh before first use.
func NewStatusCatalog(statuses repository.StatusRepository, logger *zap.Logger) *StatusCatalog {
	return &StatusCatalog{
		statuses: statuses,
		logger:   logger,
		byID:     make(map[int64]domain.Status),
		byClass:  make(map[domain.StatusClass][]int64),
	}
}

// Refresh reloads the catalog and recomputes classifications.
func (c *StatusCatalog) Refresh(ctx context.Context) error {
	list, err := c.statuses.List(ctx)
	if err != nil {
		return apperrors.MapError(err)
	}

	byID := make(map[int64]domain.Status, len(list))
	byClass := make(map[domain.StatusClass][]int64)
	for _, status := range list {
		byID[status.ID] = status
		class := status.Class()
		byClass[class] = append(byClass[class], status.ID)
		if class == domain.StatusClassUnknown {
			c.logger.Warn("status name did not classify", zap.Int64("status_id", status.ID), zap.String("name", status.Name))
		}
	}

	c.mu.Lock()
	c.byID = byID
	c.byClass = byClass
	c.ordered = list
	c.mu.Unlock()
	return nil
}

// Class returns the lifecycle class for a status id.
func (c *StatusCatalog) Class(statusID int64) domain.StatusClass {
	c.mu.RLock()
	defer c.mu.RUnlock()
	status, ok := c.byID[statusID]
	if !ok {
		return domain.StatusClassUnknown
	}
	return status.Class()
}

// StatusByID returns the catalog entry for an id.
func (c *StatusCatalog) StatusByID(statusID int64) (domain.Status, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	status, ok := c.byID[statusID]
	return status, ok
}

// FirstByClass returns the lowest-id catalog entry of the given class, e.g.
// the "assigned" status forced onto newly assigned tickets.
func (c *StatusCatalog) FirstByClass(class domain.StatusClass) (domain.Status, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := c.byClass[class]
	if len(ids) == 0 {
		return domain.Status{}, false
	}
	return c.byID[ids[0]], true
}

// IDsByClass returns the status ids belonging to any of the given classes.
func (c *StatusCatalog) IDsByClass(classes ...domain.StatusClass) []int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var ids []int64
	for _, class := range classes {
		ids = append(ids, c.byClass[class]...)
	}
	return ids
}

// All returns the cached catalog entries in id order.
func (c *StatusCatalog) All() []domain.Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.Status, len(c.ordered))
	copy(out, c.ordered)
	return out
}

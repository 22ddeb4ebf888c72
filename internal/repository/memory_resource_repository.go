package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/Keviin77777/Gestor-php-sub003/internal/domain"
	"github.com/Keviin77777/Gestor-php-sub003/internal/scope"
)

// MemoryResourceRepository is an in-process ResourceRepository for development and tests
type MemoryResourceRepository struct {
	mu   sync.RWMutex
	rows map[domain.ResourceKind]map[string]domain.Resource
}

// NewMemoryResourceRepository creates an empty repository
func NewMemoryResourceRepository() *MemoryResourceRepository {
	rows := make(map[domain.ResourceKind]map[string]domain.Resource, len(resourceTables))
	for kind := range resourceTables {
		rows[kind] = make(map[string]domain.Resource)
	}
	return &MemoryResourceRepository{rows: rows}
}

// Put inserts or replaces a row
func (r *MemoryResourceRepository) Put(res domain.Resource) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	table, ok := r.rows[res.Kind]
	if !ok {
		return domain.ErrUnknownResource
	}
	table[res.ID] = res
	return nil
}

func (r *MemoryResourceRepository) List(ctx context.Context, kind domain.ResourceKind, pred scope.Predicate, limit, offset int) ([]*domain.Resource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	table, ok := r.rows[kind]
	if !ok {
		return nil, domain.ErrUnknownResource
	}
	limit, offset = ClampPage(limit, offset)

	matched := make([]*domain.Resource, 0)
	for _, res := range table {
		if pred.Matches(res.ResellerID) {
			res := res
			matched = append(matched, &res)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if offset >= len(matched) {
		return []*domain.Resource{}, nil
	}
	end := min(offset+limit, len(matched))
	return matched[offset:end], nil
}

func (r *MemoryResourceRepository) GetByID(ctx context.Context, kind domain.ResourceKind, id string, pred scope.Predicate) (*domain.Resource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	table, ok := r.rows[kind]
	if !ok {
		return nil, domain.ErrUnknownResource
	}
	res, ok := table[id]
	if !ok || !pred.Matches(res.ResellerID) {
		return nil, domain.ErrResourceNotFound
	}
	return &res, nil
}

func (r *MemoryResourceRepository) OwnerOf(ctx context.Context, kind domain.ResourceKind, id string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	table, ok := r.rows[kind]
	if !ok {
		return "", domain.ErrUnknownResource
	}
	res, ok := table[id]
	if !ok {
		return "", domain.ErrResourceNotFound
	}
	return res.ResellerID, nil
}

func (r *MemoryResourceRepository) Delete(ctx context.Context, kind domain.ResourceKind, id string, pred scope.Predicate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	table, ok := r.rows[kind]
	if !ok {
		return domain.ErrUnknownResource
	}
	if res, ok := table[id]; !ok || !pred.Matches(res.ResellerID) {
		return domain.ErrResourceNotFound
	}
	delete(table, id)
	return nil
}

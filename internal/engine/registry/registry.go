// Package registry holds the catalog of provider resources grouped by
// category. The catalog is an immutable snapshot swapped atomically on
// reload, so readers never observe a partially mutated table.
package registry

import (
	"fmt"
	"sync/atomic"

	"github.com/vietddude/aggregator/internal/core/domain"
)

type snapshot struct {
	byCategory map[domain.Category][]domain.Resource
	byID       map[string]domain.Resource
	categories []domain.Category
}

// Registry is the read-mostly catalog of resources. Safe for concurrent use;
// in-flight fetches keep working against the snapshot they started with.
type Registry struct {
	current atomic.Pointer[snapshot]
}

// New builds a registry from the given resources.
func New(resources []domain.Resource) (*Registry, error) {
	snap, err := build(resources)
	if err != nil {
		return nil, err
	}
	r := &Registry{}
	r.current.Store(snap)
	return r, nil
}

// Swap atomically replaces the catalog. Used for hot reload; returns an error
// and leaves the old table in place when the new set is invalid.
func (r *Registry) Swap(resources []domain.Resource) error {
	snap, err := build(resources)
	if err != nil {
		return err
	}
	r.current.Store(snap)
	return nil
}

func build(resources []domain.Resource) (*snapshot, error) {
	snap := &snapshot{
		byCategory: make(map[domain.Category][]domain.Resource),
		byID:       make(map[string]domain.Resource),
	}
	for _, res := range resources {
		if res.ID == "" {
			return nil, fmt.Errorf("resource with empty id")
		}
		if _, dup := snap.byID[res.ID]; dup {
			return nil, fmt.Errorf("duplicate resource id %q", res.ID)
		}
		if res.Category == "" {
			return nil, fmt.Errorf("resource %q has no category", res.ID)
		}
		snap.byID[res.ID] = res
		if _, seen := snap.byCategory[res.Category]; !seen {
			snap.categories = append(snap.categories, res.Category)
		}
		snap.byCategory[res.Category] = append(snap.byCategory[res.Category], res)
	}
	return snap, nil
}

// List returns all resources in a category, in declaration order. The
// returned slice is a copy; callers may reorder it freely.
func (r *Registry) List(category domain.Category) []domain.Resource {
	snap := r.current.Load()
	src := snap.byCategory[category]
	out := make([]domain.Resource, len(src))
	copy(out, src)
	return out
}

// Get returns the resource with the given id.
func (r *Registry) Get(id string) (domain.Resource, bool) {
	snap := r.current.Load()
	res, ok := snap.byID[id]
	return res, ok
}

// Categories returns the categories that have at least one resource.
func (r *Registry) Categories() []domain.Category {
	snap := r.current.Load()
	out := make([]domain.Category, len(snap.categories))
	copy(out, snap.categories)
	return out
}

// Len returns the total number of resources.
func (r *Registry) Len() int {
	return len(r.current.Load().byID)
}

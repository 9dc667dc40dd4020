// internal/common/taxonomy/store.go
package taxonomy

import (
	"sync/atomic"

	"wandersure-workers/internal/common/metrics"
)

// snapshot is one immutable catalog generation. Products keep their file
// order; the index maps id to position for O(1) lookups.
type snapshot struct {
	products []Product
	index    map[string]int
	version  string
}

// Store serves catalog snapshots to concurrent readers. Readers always see
// a complete generation; Refresh swaps the pointer atomically so in-flight
// jobs finish on the snapshot they started with.
type Store struct {
	current atomic.Pointer[snapshot]
}

// NewStore builds a store around an initial catalog.
func NewStore(catalog *Catalog) *Store {
	s := &Store{}
	s.swap(catalog)
	return s
}

// NewStoreFromFile loads the catalog at path and wraps it in a store.
func NewStoreFromFile(path string) (*Store, error) {
	catalog, err := LoadCatalog(path)
	if err != nil {
		return nil, err
	}
	return NewStore(catalog), nil
}

// Refresh replaces the active snapshot. A failed load leaves the previous
// snapshot serving.
func (s *Store) Refresh(path string) error {
	catalog, err := LoadCatalog(path)
	if err != nil {
		return err
	}
	s.swap(catalog)
	return nil
}

func (s *Store) swap(catalog *Catalog) {
	idx := make(map[string]int, len(catalog.Products))
	for i, p := range catalog.Products {
		idx[p.ID] = i
	}
	s.current.Store(&snapshot{
		products: catalog.Products,
		index:    idx,
		version:  catalog.Version,
	})
	metrics.CatalogProducts.Set(float64(len(catalog.Products)))
}

// Products returns all products in catalog order.
func (s *Store) Products() []Product {
	snap := s.current.Load()
	out := make([]Product, len(snap.products))
	copy(out, snap.products)
	return out
}

// Get looks up one product by id.
func (s *Store) Get(id string) (Product, bool) {
	snap := s.current.Load()
	i, ok := snap.index[id]
	if !ok {
		return Product{}, false
	}
	return snap.products[i], true
}

// Rank returns the catalog position of a product, used as the final
// deterministic tie-breaker in ranking. Unknown ids sort last.
func (s *Store) Rank(id string) int {
	snap := s.current.Load()
	if i, ok := snap.index[id]; ok {
		return i
	}
	return len(snap.products)
}

// Count returns the number of products in the active snapshot.
func (s *Store) Count() int {
	return len(s.current.Load().products)
}

// Version returns the active catalog version string.
func (s *Store) Version() string {
	return s.current.Load().version
}

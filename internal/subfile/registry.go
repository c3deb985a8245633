package subfile

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Registry holds the Store of every subfile control on a page, in the order
// the controls were registered. It lives as long as the page it was built
// for and is owned by that page's controller.
type Registry struct {
	order    []string
	stores   map[string]*Store
	validate *validator.Validate
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		stores:   make(map[string]*Store),
		validate: validator.New(),
	}
}

// Register validates init and stores a fresh Store for it. A control that is
// already registered is replaced in place and keeps its position.
func (r *Registry) Register(init InitData) (*Store, error) {
	if err := r.validate.Struct(init); err != nil {
		return nil, fmt.Errorf("invalid subfile config %q: %w", init.Name, err)
	}
	s := newStore(init)
	if _, exists := r.stores[init.Name]; !exists {
		r.order = append(r.order, init.Name)
	}
	r.stores[init.Name] = s
	return s, nil
}

// Get returns the store registered under name.
func (r *Registry) Get(name string) (*Store, bool) {
	s, ok := r.stores[name]
	return s, ok
}

// Names returns the registered control names in insertion order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// First returns the first registered store.
func (r *Registry) First() (*Store, bool) {
	if len(r.order) == 0 {
		return nil, false
	}
	return r.stores[r.order[0]], true
}

// Len returns the number of registered stores.
func (r *Registry) Len() int {
	return len(r.order)
}

// MinRRN returns the lowest top record number across all stores, or 0 when
// nothing is registered.
func (r *Registry) MinRRN() int {
	if len(r.order) == 0 {
		return 0
	}
	min := r.stores[r.order[0]].Current.TopRrn
	for _, name := range r.order[1:] {
		if top := r.stores[name].Current.TopRrn; top < min {
			min = top
		}
	}
	return min
}

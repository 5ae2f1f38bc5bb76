package repo

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrDuplicateName = errors.New("repository name already registered")
	ErrNilRepository = errors.New("repository is nil")
	ErrEmptyName     = errors.New("repository name is empty")
)

// Registry is an ordered collection of records, indexed by name. It is
// rebuilt on every configuration load and not mutated during a cycle.
type Registry struct {
	items  []*Repository
	byName map[string]*Repository
}

// NewRegistry builds a registry preserving the given order.
func NewRegistry(repos ...*Repository) (*Registry, error) {
	r := &Registry{byName: make(map[string]*Repository, len(repos))}
	for _, rp := range repos {
		if err := r.add(rp); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) add(rp *Repository) error {
	if rp == nil {
		return ErrNilRepository
	}
	name := strings.TrimSpace(rp.Name)
	if name == "" {
		return ErrEmptyName
	}
	if _, ok := r.byName[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateName, name)
	}
	r.items = append(r.items, rp)
	r.byName[name] = rp
	return nil
}

// Find returns the record with the given name.
func (r *Registry) Find(name string) (*Repository, bool) {
	if r == nil {
		return nil, false
	}
	rp, ok := r.byName[strings.TrimSpace(name)]
	return rp, ok
}

// All returns the records in configuration order.
func (r *Registry) All() []*Repository {
	if r == nil {
		return nil
	}
	out := make([]*Repository, len(r.items))
	copy(out, r.items)
	return out
}

// Len returns the number of records.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.items)
}

// SyncableNames lists enabled records with a remote, in order. Used for
// shell completion of on-demand commands.
func (r *Registry) SyncableNames() []string {
	var names []string
	for _, rp := range r.All() {
		if rp.Syncable() {
			names = append(names, rp.Name)
		}
	}
	return names
}

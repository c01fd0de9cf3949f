package ml

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Loader opens the classifier stored at path.
type Loader func(path string) (Classifier, error)

// Registry memoizes loaded classifiers by artifact path. A model is loaded on
// first access and then shared; cached models are never mutated.
type Registry struct {
	load  Loader
	cache *lru.Cache[string, Classifier]
	mu    sync.Mutex // serializes loads on a miss
}

func NewRegistry(size int, load Loader) (*Registry, error) {
	if size <= 0 {
		size = 1
	}
	cache, err := lru.New[string, Classifier](size)
	if err != nil {
		return nil, err
	}
	return &Registry{load: load, cache: cache}, nil
}

// Get returns the cached classifier for path, loading it if needed. Failed
// loads are not cached.
func (r *Registry) Get(path string) (Classifier, error) {
	if model, ok := r.cache.Get(path); ok {
		return model, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if model, ok := r.cache.Get(path); ok {
		return model, nil
	}
	model, err := r.load(path)
	if err != nil {
		return nil, err
	}
	r.cache.Add(path, model)
	return model, nil
}

// Source binds the registry to one artifact path.
func (r *Registry) Source(path string) func() (Classifier, error) {
	return func() (Classifier, error) {
		return r.Get(path)
	}
}

func (r *Registry) Len() int {
	return r.cache.Len()
}

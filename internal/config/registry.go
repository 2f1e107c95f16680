package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/commanalyz/commanalyz/pkg/provider/emotion"
	"github.com/commanalyz/commanalyz/pkg/provider/llm"
	"github.com/commanalyz/commanalyz/pkg/provider/stt"
)

// ErrProviderNotRegistered is returned by Create* methods when no factory has
// been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Registry maps provider names to their constructor functions for each
// provider type. It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	llm     map[string]func(ProviderEntry) (llm.Provider, error)
	stt     map[string]func(ProviderEntry) (stt.Transcriber, error)
	emotion map[string]func(ProviderEntry) (emotion.Classifier, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		llm:     make(map[string]func(ProviderEntry) (llm.Provider, error)),
		stt:     make(map[string]func(ProviderEntry) (stt.Transcriber, error)),
		emotion: make(map[string]func(ProviderEntry) (emotion.Classifier, error)),
	}
}

// RegisterLLM registers a generative backend factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterLLM(name string, factory func(ProviderEntry) (llm.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.llm[name] = factory
}

// RegisterSTT registers a transcriber factory under name.
func (r *Registry) RegisterSTT(name string, factory func(ProviderEntry) (stt.Transcriber, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stt[name] = factory
}

// RegisterEmotion registers an emotion classifier factory under name.
func (r *Registry) RegisterEmotion(name string, factory func(ProviderEntry) (emotion.Classifier, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.emotion[name] = factory
}

// CreateLLM instantiates a generative backend using the factory registered
// under entry.Name. Returns [ErrProviderNotRegistered] if no factory has been
// registered for that name.
func (r *Registry) CreateLLM(entry ProviderEntry) (llm.Provider, error) {
	r.mu.RLock()
	factory, ok := r.llm[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: llm/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateSTT instantiates a transcriber using the factory registered under entry.Name.
func (r *Registry) CreateSTT(entry ProviderEntry) (stt.Transcriber, error) {
	r.mu.RLock()
	factory, ok := r.stt[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: stt/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateEmotion instantiates an emotion classifier using the factory
// registered under entry.Name.
func (r *Registry) CreateEmotion(entry ProviderEntry) (emotion.Classifier, error) {
	r.mu.RLock()
	factory, ok := r.emotion[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: emotion/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/poiesic/sanket/core"
	"github.com/poiesic/sanket/storage"
)

// Manager owns the vector store and the active-namespace register.
type Manager struct {
	store    storage.VectorStore
	state    storage.StateRepository
	register Register
	// mu serializes Activate and Retire.
	mu sync.Mutex
	// sealed holds namespaces that have been activated and not yet
	// retired. Only these may be queried by name.
	sealedMu sync.RWMutex
	sealed   map[core.Namespace]struct{}
	logger   *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) error {
		if logger == nil {
			logger = slog.Default()
		}
		m.logger = logger
		return nil
	}
}

// New creates a Manager and restores the active namespace from persisted state.
func New(ctx context.Context, store storage.VectorStore, state storage.StateRepository, opts ...Option) (*Manager, error) {
	if store == nil {
		return nil, ErrVectorStoreRequired
	}
	if state == nil {
		return nil, ErrStateRepositoryRequired
	}

	m := &Manager{
		store:  store,
		state:  state,
		sealed: make(map[core.Namespace]struct{}),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	m.logger = m.logger.With("component", "index")

	persisted, err := state.LoadState(ctx)
	if err != nil {
		return nil, fmt.Errorf("load pipeline state: %w", err)
	}
	if persisted != nil && persisted.ActiveNamespace != "" {
		m.seal(persisted.ActiveNamespace)
		m.register.Swap(persisted.ActiveNamespace)
		m.logger.Info("restored active namespace", "namespace", persisted.ActiveNamespace)
	}
	return m, nil
}

// Active returns the active namespace, or "" if none.
func (m *Manager) Active() core.Namespace {
	return m.register.Load()
}

// Metric returns the similarity metric of the underlying store.
func (m *Manager) Metric() core.Metric {
	return m.store.Metric()
}

// Upsert writes entries into ns. Writing to the active namespace is refused.
func (m *Manager) Upsert(ctx context.Context, ns core.Namespace, entries []core.IndexEntry) error {
	if err := ns.Validate(); err != nil {
		return err
	}
	if ns == m.register.Load() {
		return fmt.Errorf("upsert %s: %w", ns, core.ErrNamespaceActive)
	}
	for i := range entries {
		if err := core.ValidateChunk(&entries[i].Chunk); err != nil {
			return err
		}
	}
	if err := m.store.Upsert(ctx, ns, entries); err != nil {
		return mapStoreError(ns, err)
	}
	return nil
}

// Query returns at most k hits from ns. An empty ns reads the active
// namespace once, so a concurrent activation cannot split one query
// across two generations. A named ns must have been activated and not
// yet retired; namespaces still being built are reported as not found.
func (m *Manager) Query(ctx context.Context, ns core.Namespace, vector []float32, k int) (*core.RetrievalResult, error) {
	if ns == "" {
		ns = m.register.Load()
		if ns == "" {
			return nil, core.ErrNoActiveNamespace
		}
	} else {
		if err := ns.Validate(); err != nil {
			return nil, err
		}
		if !m.isSealed(ns) {
			return nil, fmt.Errorf("%w: %s", core.ErrNamespaceNotFound, ns)
		}
	}

	hits, err := m.store.Query(ctx, ns, vector, k)
	if err != nil {
		return nil, mapStoreError(ns, err)
	}
	return &core.RetrievalResult{Namespace: ns, Hits: hits}, nil
}

// Activate persists ns as the active namespace together with state and then
// swaps the register. It returns the previously active namespace.
func (m *Manager) Activate(ctx context.Context, ns core.Namespace, state core.PipelineState) (core.Namespace, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	exists, err := m.store.Exists(ctx, ns)
	if err != nil {
		return "", mapStoreError(ns, err)
	}
	if !exists {
		return "", fmt.Errorf("activate %s: %w", ns, core.ErrNamespaceNotFound)
	}

	state.ActiveNamespace = ns
	if err := m.state.SaveState(ctx, &state); err != nil {
		return "", fmt.Errorf("persist active namespace: %w", err)
	}
	m.seal(ns)
	previous := m.register.Swap(ns)
	m.logger.Info("namespace activated", "namespace", ns, "previous", previous)
	return previous, nil
}

// Retire deletes a namespace that is not active.
func (m *Manager) Retire(ctx context.Context, ns core.Namespace) error {
	if err := ns.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if ns == m.register.Load() {
		return fmt.Errorf("retire %s: %w", ns, core.ErrNamespaceActive)
	}
	m.unseal(ns)
	if err := m.store.DeleteNamespace(ctx, ns); err != nil {
		return mapStoreError(ns, err)
	}
	m.logger.Info("namespace retired", "namespace", ns)
	return nil
}

func (m *Manager) seal(ns core.Namespace) {
	m.sealedMu.Lock()
	m.sealed[ns] = struct{}{}
	m.sealedMu.Unlock()
}

func (m *Manager) unseal(ns core.Namespace) {
	m.sealedMu.Lock()
	delete(m.sealed, ns)
	m.sealedMu.Unlock()
}

func (m *Manager) isSealed(ns core.Namespace) bool {
	m.sealedMu.RLock()
	defer m.sealedMu.RUnlock()
	_, ok := m.sealed[ns]
	return ok
}

// Namespaces lists every namespace in the store, active or not.
func (m *Manager) Namespaces(ctx context.Context) ([]core.Namespace, error) {
	namespaces, err := m.store.Namespaces(ctx)
	if err != nil {
		return nil, mapStoreError("", err)
	}
	return namespaces, nil
}

// Count returns the number of chunks in ns.
func (m *Manager) Count(ctx context.Context, ns core.Namespace) (int, error) {
	count, err := m.store.Count(ctx, ns)
	if err != nil {
		return 0, mapStoreError(ns, err)
	}
	return count, nil
}

// mapStoreError translates storage errors into the domain taxonomy.
// Caller mistakes pass through; anything else means the store is unreachable.
func mapStoreError(ns core.Namespace, err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return fmt.Errorf("%w: %s", core.ErrNamespaceNotFound, ns)
	case errors.Is(err, storage.ErrInvalidQuery),
		errors.Is(err, storage.ErrDimensionMismatch),
		errors.Is(err, core.ErrInvalidNamespace),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return fmt.Errorf("%w: %w", core.ErrIndexUnavailable, err)
}

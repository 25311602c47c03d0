// Package core runs the worker's long-lived modules.
package core

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
)

// ErrStarted is returned when modules are added or started twice.
var ErrStarted = errors.New("actions: manager already started")

// Module is a unit of the worker with its own connections and goroutines.
type Module interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context)
}

// Manager starts modules in registration order and stops them in reverse.
// Only modules whose Start succeeded are ever stopped.
type Manager struct {
	mu      sync.Mutex
	pending []Module
	running []Module
	started bool
}

func NewManager(mods ...Module) *Manager {
	m := &Manager{}
	for _, mod := range mods {
		if mod != nil {
			m.pending = append(m.pending, mod)
		}
	}
	return m
}

// Add registers a module. It fails once the manager has started.
func (m *Manager) Add(mod Module) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return ErrStarted
	}
	if mod != nil {
		m.pending = append(m.pending, mod)
	}
	return nil
}

// Start starts every module. On the first failure the modules already
// running are stopped and the manager can be started again.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return ErrStarted
	}

	for _, mod := range m.pending {
		if err := mod.Start(ctx); err != nil {
			log.Printf("actions: module %s failed to start: %v", mod.Name(), err)
			m.stopRunning(ctx)
			return fmt.Errorf("module %s failed: %w", mod.Name(), err)
		}
		log.Printf("actions: module %s started", mod.Name())
		m.running = append(m.running, mod)
	}

	m.started = true
	return nil
}

// Running lists the names of started modules.
func (m *Manager) Running() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, len(m.running))
	for i, mod := range m.running {
		names[i] = mod.Name()
	}
	return names
}

// Stop stops running modules in reverse start order.
func (m *Manager) Stop(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopRunning(ctx)
	m.started = false
}

func (m *Manager) stopRunning(ctx context.Context) {
	for i := len(m.running) - 1; i >= 0; i-- {
		m.running[i].Stop(ctx)
		log.Printf("actions: module %s stopped", m.running[i].Name())
	}
	m.running = nil
}

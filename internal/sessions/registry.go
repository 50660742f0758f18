// Package sessions keeps the mounted selection sessions of one process.
package sessions

import (
	"errors"
	"fmt"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mohammed-shakir/farm-selector/internal/core/observability"
	"github.com/mohammed-shakir/farm-selector/internal/logger"
	"github.com/mohammed-shakir/farm-selector/internal/selection"
)

var ErrNotFound = errors.New("session not found")

// Factory fills in the collaborators shared by every session.
type Factory func(id, stateName string) (*selection.Session, error)

// Registry is a bounded LRU; evicting a session unmounts it.
type Registry struct {
	log     *slog.Logger
	factory Factory
	lru     *lru.Cache[string, *selection.Session]
}

func New(size int, factory Factory, log *slog.Logger) (*Registry, error) {
	if factory == nil {
		return nil, errors.New("sessions: factory is required")
	}
	if log == nil {
		log = slog.Default()
	}
	r := &Registry{log: log, factory: factory}
	c, err := lru.NewWithEvict[string, *selection.Session](size, r.onEvict)
	if err != nil {
		return nil, fmt.Errorf("sessions: %w", err)
	}
	r.lru = c
	return r, nil
}

// Mount creates a session for stateName, as when a map view is opened.
func (r *Registry) Mount(stateName string) (*selection.Session, error) {
	s, err := r.factory(logger.NewID(), stateName)
	if err != nil {
		return nil, err
	}
	r.lru.Add(s.ID(), s)
	observability.SetActiveSessions(r.lru.Len())
	r.log.Debug("session mounted", "session_id", s.ID(), "state_name", stateName)
	return s, nil
}

func (r *Registry) Get(id string) (*selection.Session, error) {
	s, ok := r.lru.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Unmount removes the session; the eviction callback releases it.
func (r *Registry) Unmount(id string) error {
	if !r.lru.Remove(id) {
		return ErrNotFound
	}
	observability.SetActiveSessions(r.lru.Len())
	return nil
}

func (r *Registry) Len() int { return r.lru.Len() }

// Close unmounts every session.
func (r *Registry) Close() {
	r.lru.Purge()
	observability.SetActiveSessions(0)
}

func (r *Registry) onEvict(id string, s *selection.Session) {
	s.Unmount()
	r.log.Debug("session released", "session_id", id)
}

// Package navigation hands a successful submission off to the results view.
package navigation

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/mohammed-shakir/farm-selector/internal/core/observability"
)

const (
	resultsPrefix = "/farm-view/"
	// HandoffParam is the query parameter carrying a handoff token.
	HandoffParam = "handoff"
)

var ErrNotFound = errors.New("handoff not found")

// State travels with the navigation to the results view.
type State struct {
	Latitude  float64         `json:"latitude"`
	Longitude float64         `json:"longitude"`
	Data      json.RawMessage `json:"data"`
}

// Navigator transitions to route carrying state and returns the location to open.
type Navigator interface {
	Navigate(ctx context.Context, route string, state State) (string, error)
}

// Revoker withdraws a location a Navigator issued before anyone opened it.
type Revoker interface {
	Revoke(ctx context.Context, location string) error
}

// ResultsRoute is the results view path for a region name.
func ResultsRoute(stateName string) string {
	return resultsPrefix + url.PathEscape(stateName)
}

type Handoff struct {
	Route string `json:"route"`
	State State  `json:"state"`
}

// Store keeps handoffs until they are taken once or expire.
type Store interface {
	Put(ctx context.Context, token string, h Handoff, ttl time.Duration) error
	Take(ctx context.Context, token string) (Handoff, error)
	Discard(ctx context.Context, token string) error
}

// HandoffNavigator parks the state under a one-time token instead of encoding it in the URL.
type HandoffNavigator struct {
	store Store
	ttl   time.Duration
}

func NewHandoffNavigator(store Store, ttl time.Duration) *HandoffNavigator {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &HandoffNavigator{store: store, ttl: ttl}
}

func (n *HandoffNavigator) Navigate(ctx context.Context, route string, state State) (string, error) {
	token := newToken()
	err := n.store.Put(ctx, token, Handoff{Route: route, State: state}, n.ttl)
	observability.ObserveHandoff("put", err)
	if err != nil {
		return "", fmt.Errorf("store handoff: %w", err)
	}
	return route + "?" + url.Values{HandoffParam: {token}}.Encode(), nil
}

// Resolve consumes the handoff for token, checking it was issued for route.
func (n *HandoffNavigator) Resolve(ctx context.Context, route, token string) (State, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return State{}, ErrNotFound
	}
	h, err := n.store.Take(ctx, token)
	observability.ObserveHandoff("take", err)
	if err != nil {
		return State{}, err
	}
	if h.Route != route {
		return State{}, ErrNotFound
	}
	return h.State, nil
}

// Revoke drops the handoff behind location; an unknown or already consumed token is not an error.
func (n *HandoffNavigator) Revoke(ctx context.Context, location string) error {
	u, err := url.Parse(location)
	if err != nil {
		return fmt.Errorf("parse location: %w", err)
	}
	token := strings.TrimSpace(u.Query().Get(HandoffParam))
	if token == "" {
		return nil
	}
	err = n.store.Discard(ctx, token)
	observability.ObserveHandoff("discard", err)
	return err
}

// WriterNavigator prints the handoff as a JSON line; the CLI uses it.
type WriterNavigator struct {
	mu  sync.Mutex
	out io.Writer
}

func NewWriterNavigator(out io.Writer) *WriterNavigator {
	return &WriterNavigator{out: out}
}

func (n *WriterNavigator) Navigate(_ context.Context, route string, state State) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := json.NewEncoder(n.out).Encode(Handoff{Route: route, State: state}); err != nil {
		return "", fmt.Errorf("write handoff: %w", err)
	}
	return route, nil
}

func newToken() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

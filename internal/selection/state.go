package selection

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/mohammed-shakir/farm-selector/internal/core/model"
	"github.com/mohammed-shakir/farm-selector/internal/mapview"
)

type State int

const (
	Idle State = iota
	RegionSelected
	Submitting
	Navigated
	Failed
)

var stateNames = [...]string{
	Idle:           "idle",
	RegionSelected: "region_selected",
	Submitting:     "submitting",
	Navigated:      "navigated",
	Failed:         "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

var (
	ErrNoRegion       = errors.New("no region selected")
	ErrSubmitInFlight = errors.New("submission already in flight")
	ErrNavigated      = errors.New("selection already navigated to results")
	ErrUnmounted      = errors.New("selection session unmounted")
	// ErrStale is returned by a submission whose result was discarded because
	// a newer region, submission or unmount superseded it.
	ErrStale = errors.New("submission superseded")
)

// Outcome results reported to an Observer.
const (
	OutcomeNavigated = "navigated"
	OutcomeFailed    = "failed"
	OutcomeStale     = "stale"
)

// Outcome describes how one submission attempt ended.
type Outcome struct {
	SessionID string
	StateName string
	Token     uint64
	Result    string
	Centroid  model.LatLng
	Area      float64
	Location  string
	Error     string
	At        time.Time
}

// Snapshot is a point-in-time view of a session.
type Snapshot struct {
	ID        string        `json:"id"`
	StateName string        `json:"state_name"`
	State     State         `json:"state"`
	Region    *model.Region `json:"region,omitempty"`
	Centroid  *model.LatLng `json:"centroid,omitempty"`
	Cell      string        `json:"cell,omitempty"`
	Loading   bool          `json:"loading"`
	CanSubmit bool          `json:"can_submit"`
	Error     string        `json:"error,omitempty"`
	Location  string        `json:"location,omitempty"`
	View      mapview.View  `json:"view"`
}

func (s Snapshot) String() string {
	b, _ := json.Marshal(s)
	return string(b)
}

// ObserverFunc adapts a plain function to Observer.
type ObserverFunc func(ctx context.Context, o Outcome)

func (f ObserverFunc) Observe(ctx context.Context, o Outcome) { f(ctx, o) }

// Observers fans an outcome out to each non-nil observer in order.
type Observers []Observer

func (m Observers) Observe(ctx context.Context, o Outcome) {
	for _, obs := range m {
		if obs != nil {
			obs.Observe(ctx, o)
		}
	}
}

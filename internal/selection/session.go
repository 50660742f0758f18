// Package selection tracks one map selection from the first drawn rectangle
// to the hand-off into the results view.
package selection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mohammed-shakir/farm-selector/internal/core/model"
	"github.com/mohammed-shakir/farm-selector/internal/h3cell"
	"github.com/mohammed-shakir/farm-selector/internal/logger"
	"github.com/mohammed-shakir/farm-selector/internal/mapview"
	"github.com/mohammed-shakir/farm-selector/internal/navigation"
)

const revokeTimeout = 2 * time.Second

type Submitter interface {
	Submit(ctx context.Context, lat, lng, area float64) (json.RawMessage, error)
}

type Observer interface {
	Observe(ctx context.Context, o Outcome)
}

type Options struct {
	ID        string
	StateName string
	// Area is sent with every submission.
	Area      float64
	Submitter Submitter
	Navigator navigation.Navigator
	Observer  Observer
	Logger    *slog.Logger
	// CellRes is the H3 resolution used to label the centroid; negative disables it.
	CellRes int
	Now     func() time.Time
}

type Session struct {
	id        string
	stateName string
	area      float64
	cellRes   int
	sub       Submitter
	nav       navigation.Navigator
	obs       Observer
	log       *slog.Logger
	now       func() time.Time
	viewport  *mapview.Viewport
	ref       *mapview.Ref

	mu        sync.Mutex
	state     State
	region    *model.Region
	loading   bool
	lastErr   string
	location  string
	token     uint64
	cancel    context.CancelFunc
	unmounted bool
}

func New(opts Options) (*Session, error) {
	if opts.Submitter == nil {
		return nil, errors.New("selection: submitter is required")
	}
	if opts.Navigator == nil {
		return nil, errors.New("selection: navigator is required")
	}
	if opts.ID == "" {
		opts.ID = logger.NewID()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	vp := mapview.ForState(opts.StateName)
	return &Session{
		id:        opts.ID,
		stateName: opts.StateName,
		area:      opts.Area,
		cellRes:   opts.CellRes,
		sub:       opts.Submitter,
		nav:       opts.Navigator,
		obs:       opts.Observer,
		log:       opts.Logger.With("session_id", opts.ID, "state_name", opts.StateName),
		now:       opts.Now,
		viewport:  vp,
		ref:       mapview.NewRef(vp),
		state:     Idle,
	}, nil
}

func (s *Session) ID() string        { return s.id }
func (s *Session) StateName() string { return s.stateName }

// OnRegionDrawn handles the draw tool's shape-created event. Only rectangles
// are accepted; the new region replaces any earlier one and supersedes an
// in-flight submission.
func (s *Session) OnRegionDrawn(shape model.Shape) error {
	r, err := shape.Region()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.unmounted:
		return ErrUnmounted
	case s.state == Navigated:
		return ErrNavigated
	}

	if s.state == Submitting {
		s.invalidateLocked()
		s.log.Info("in-flight submission superseded by new region")
	}
	s.region = &r
	s.state = RegionSelected
	s.lastErr = ""
	c := r.Centroid()
	s.log.Debug("region selected",
		"southwest", r.SouthWest.String(),
		"northeast", r.NorthEast.String(),
		"centroid", c.String())
	return nil
}

// Submit is the "view farm" action: one request for the latest region's
// centroid, then navigation to the results route on success.
func (s *Session) Submit(ctx context.Context) (string, error) {
	s.mu.Lock()
	switch {
	case s.unmounted:
		s.mu.Unlock()
		return "", ErrUnmounted
	case s.state == Navigated:
		s.mu.Unlock()
		return "", ErrNavigated
	case s.state == Submitting:
		s.mu.Unlock()
		return "", ErrSubmitInFlight
	case s.region == nil:
		s.mu.Unlock()
		return "", ErrNoRegion
	}

	centroid := s.region.Centroid()
	s.token++
	token := s.token
	ctx, cancel := context.WithCancel(logger.WithSessionID(ctx, s.id))
	s.cancel = cancel
	s.state = Submitting
	s.loading = true
	s.lastErr = ""
	s.mu.Unlock()
	defer cancel()

	s.log.InfoContext(ctx, "submitting location",
		"latitude", centroid.Lat, "longitude", centroid.Lng, "area", s.area, "token", token)
	data, err := s.sub.Submit(ctx, centroid.Lat, centroid.Lng, s.area)

	o := Outcome{
		SessionID: s.id,
		StateName: s.stateName,
		Token:     token,
		Centroid:  centroid,
		Area:      s.area,
	}
	if s.superseded(token) {
		return "", s.discard(ctx, o, "")
	}

	var loc string
	if err == nil {
		// runs unlocked; Unmount or a new draw cancels ctx
		route := navigation.ResultsRoute(s.stateName)
		loc, err = s.nav.Navigate(ctx, route, navigation.State{
			Latitude:  centroid.Lat,
			Longitude: centroid.Lng,
			Data:      data,
		})
		if err != nil {
			err = fmt.Errorf("navigate to %s: %w", route, err)
		}
	}

	s.mu.Lock()
	if s.unmounted || token != s.token {
		s.mu.Unlock()
		return "", s.discard(ctx, o, loc)
	}
	s.cancel = nil
	s.loading = false
	o.At = s.now()
	if err != nil {
		s.state = Failed
		s.lastErr = err.Error()
		o.Result = OutcomeFailed
		o.Error = s.lastErr
	} else {
		s.state = Navigated
		s.location = loc
		o.Result = OutcomeNavigated
		o.Location = loc
	}
	s.mu.Unlock()

	s.observe(ctx, o)
	if err != nil {
		s.log.WarnContext(ctx, "submission failed", "err", err, "token", token)
		return "", err
	}
	s.log.InfoContext(ctx, "navigated to results", "location", loc, "token", token)
	return loc, nil
}

func (s *Session) superseded(token uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unmounted || token != s.token
}

// discard reports a superseded attempt as stale and revokes any handoff it already issued.
func (s *Session) discard(ctx context.Context, o Outcome, loc string) error {
	if loc != "" {
		if r, ok := s.nav.(navigation.Revoker); ok {
			rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), revokeTimeout)
			if err := r.Revoke(rctx, loc); err != nil {
				s.log.WarnContext(ctx, "revoke superseded handoff", "err", err, "location", loc)
			}
			cancel()
		}
	}
	o.Result = OutcomeStale
	o.At = s.now()
	s.observe(ctx, o)
	s.log.DebugContext(ctx, "discarding superseded submission result", "token", o.Token)
	return ErrStale
}

// GoTo handles manual coordinate entry. Text that is not a valid coordinate
// is ignored without an error; the return reports whether the map moved.
func (s *Session) GoTo(latText, lngText string) bool {
	p, ok := mapview.ParseCoordinates(latText, lngText)
	if !ok {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unmounted {
		return false
	}
	if !s.ref.Center(p, mapview.DefaultZoom) {
		return false
	}
	s.viewport.SetMarker(p)
	return true
}

// SetMarker handles a plain map click.
func (s *Session) SetMarker(p model.LatLng) error {
	if !p.Valid() {
		return fmt.Errorf("%w: marker %s", model.ErrBadCoordinate, p)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unmounted {
		return ErrUnmounted
	}
	s.viewport.SetMarker(p)
	return nil
}

// Unmount cancels any in-flight submission and releases the map; it is idempotent.
func (s *Session) Unmount() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unmounted {
		return
	}
	s.unmounted = true
	s.invalidateLocked()
	s.ref.Release()
	s.log.Debug("selection unmounted", "state", s.state.String())
}

func (s *Session) Unmounted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unmounted
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	snap := Snapshot{
		ID:        s.id,
		StateName: s.stateName,
		State:     s.state,
		Loading:   s.loading,
		Error:     s.lastErr,
		Location:  s.location,
		View:      s.viewport.View(),
		CanSubmit: !s.unmounted && s.region != nil && (s.state == RegionSelected || s.state == Failed),
	}
	if s.region != nil {
		r := *s.region
		c := r.Centroid()
		snap.Region = &r
		snap.Centroid = &c
	}
	s.mu.Unlock()

	if snap.Centroid != nil && s.cellRes >= 0 {
		if cell, err := h3cell.Cell(*snap.Centroid, s.cellRes); err == nil {
			snap.Cell = cell
		}
	}
	return snap
}

// invalidateLocked drops the in-flight request token so its completion is ignored.
func (s *Session) invalidateLocked() {
	s.token++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.loading = false
}

func (s *Session) observe(ctx context.Context, o Outcome) {
	if s.obs != nil {
		s.obs.Observe(ctx, o)
	}
}

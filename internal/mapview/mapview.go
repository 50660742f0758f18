// Package mapview models the map widget boundary: an injected "center view"
// capability plus the viewport state a selection session owns.
package mapview

import (
	"strconv"
	"strings"
	"sync"

	"github.com/mohammed-shakir/farm-selector/internal/core/model"
)

const DefaultZoom = 5.5

var (
	usCenter = model.LatLng{Lat: 39.8283, Lng: -98.5795}

	stateCenters = map[string]model.LatLng{
		"California": {Lat: 36.7783, Lng: -119.4179},
		"Texas":      {Lat: 31.9686, Lng: -99.9018},
		"New York":   {Lat: 42.1657, Lng: -74.9481},
		"Illinois":   {Lat: 40.0417, Lng: -89.1965},
	}
)

// StateCenter returns the initial map center for a state; unknown names get the US center.
func StateCenter(name string) (model.LatLng, bool) {
	if c, ok := stateCenters[name]; ok {
		return c, true
	}
	return usCenter, false
}

// Viewer is implemented by whatever renders the map.
type Viewer interface {
	SetView(center model.LatLng, zoom float64)
}

// Ref scopes a Viewer to one session; after Release every call is a no-op.
type Ref struct {
	mu sync.Mutex
	v  Viewer
}

func NewRef(v Viewer) *Ref { return &Ref{v: v} }

// Center recenters the map and reports whether a viewer was still attached.
func (r *Ref) Center(center model.LatLng, zoom float64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.v == nil {
		return false
	}
	r.v.SetView(center, zoom)
	return true
}

func (r *Ref) Release() {
	r.mu.Lock()
	r.v = nil
	r.mu.Unlock()
}

type View struct {
	Center model.LatLng `json:"center"`
	Zoom   float64      `json:"zoom"`
	Marker model.LatLng `json:"marker"`
}

// Viewport is the in-process Viewer backing a headless session.
type Viewport struct {
	mu   sync.RWMutex
	view View
}

func NewViewport(center model.LatLng, zoom float64) *Viewport {
	return &Viewport{view: View{Center: center, Zoom: zoom, Marker: center}}
}

// ForState opens the viewport on the state's center at DefaultZoom.
func ForState(name string) *Viewport {
	c, _ := StateCenter(name)
	return NewViewport(c, DefaultZoom)
}

func (v *Viewport) SetView(center model.LatLng, zoom float64) {
	v.mu.Lock()
	v.view.Center = center
	v.view.Zoom = zoom
	v.mu.Unlock()
}

func (v *Viewport) SetMarker(p model.LatLng) {
	v.mu.Lock()
	v.view.Marker = p
	v.mu.Unlock()
}

func (v *Viewport) View() View {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.view
}

// ParseCoordinates parses the manual entry text fields. ok is false unless both
// fields are finite numbers forming an in-range coordinate.
func ParseCoordinates(latText, lngText string) (model.LatLng, bool) {
	lat, err := strconv.ParseFloat(strings.TrimSpace(latText), 64)
	if err != nil {
		return model.LatLng{}, false
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(lngText), 64)
	if err != nil {
		return model.LatLng{}, false
	}
	p := model.LatLng{Lat: lat, Lng: lng}
	if !p.Valid() {
		return model.LatLng{}, false
	}
	return p, true
}

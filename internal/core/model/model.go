// Package model defines core domain types shared across the service.
package model

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ShapeRectangle is the only draw-tool shape type a selection accepts.
const ShapeRectangle = "rectangle"

var (
	ErrNotRectangle    = errors.New("shape is not a rectangle")
	ErrMalformedRegion = errors.New("malformed region")
	ErrBadCoordinate   = errors.New("invalid coordinate")
)

type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (p LatLng) String() string {
	return fmt.Sprintf("%.6f,%.6f", p.Lat, p.Lng)
}

// Valid reports whether p is a finite coordinate inside lat [-90,90] and lng [-180,180].
func (p LatLng) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lng, 0) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// Region is a user-drawn rectangle given by its two corners.
type Region struct {
	SouthWest LatLng `json:"southwest"`
	NorthEast LatLng `json:"northeast"`
}

// NewRegion builds a well-formed region from two opposite corners in any order.
func NewRegion(a, b LatLng) Region {
	return Region{
		SouthWest: LatLng{Lat: math.Min(a.Lat, b.Lat), Lng: math.Min(a.Lng, b.Lng)},
		NorthEast: LatLng{Lat: math.Max(a.Lat, b.Lat), Lng: math.Max(a.Lng, b.Lng)},
	}
}

func (r Region) Validate() error {
	if !r.SouthWest.Valid() || !r.NorthEast.Valid() {
		return fmt.Errorf("%w: corner out of range", ErrMalformedRegion)
	}
	if r.SouthWest.Lat > r.NorthEast.Lat || r.SouthWest.Lng > r.NorthEast.Lng {
		return fmt.Errorf("%w: southwest %s is not below-left of northeast %s",
			ErrMalformedRegion, r.SouthWest, r.NorthEast)
	}
	return nil
}

// Centroid is the midpoint of the region on both axes.
func (r Region) Centroid() LatLng { return ComputeCentroid(r) }

// ComputeCentroid returns the arithmetic mean of the corners per axis.
func ComputeCentroid(r Region) LatLng {
	return LatLng{
		Lat: (r.SouthWest.Lat + r.NorthEast.Lat) / 2,
		Lng: (r.SouthWest.Lng + r.NorthEast.Lng) / 2,
	}
}

// Shape is the payload of a draw tool's "shape created" event.
type Shape struct {
	Type   string `json:"type"`
	Bounds Region `json:"bounds"`
}

// Region extracts a well-formed region from a rectangle shape.
func (s Shape) Region() (Region, error) {
	if !strings.EqualFold(strings.TrimSpace(s.Type), ShapeRectangle) {
		return Region{}, fmt.Errorf("%w: got %q", ErrNotRectangle, s.Type)
	}
	r := NewRegion(s.Bounds.SouthWest, s.Bounds.NorthEast)
	if err := r.Validate(); err != nil {
		return Region{}, err
	}
	return r, nil
}

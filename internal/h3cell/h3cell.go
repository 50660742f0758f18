// Package h3cell labels coordinates with their H3 cell.
package h3cell

import (
	"fmt"

	h3 "github.com/uber/h3-go/v4"

	"github.com/mohammed-shakir/farm-selector/internal/core/model"
)

// Cell returns the H3 cell containing p at res.
func Cell(p model.LatLng, res int) (string, error) {
	if err := validateRes(res); err != nil {
		return "", err
	}
	if !p.Valid() {
		return "", fmt.Errorf("invalid coordinate %s", p)
	}
	c, err := h3.LatLngToCell(h3.LatLng{Lat: p.Lat, Lng: p.Lng}, res)
	if err != nil {
		return "", fmt.Errorf("h3 latlng to cell: %w", err)
	}
	return c.String(), nil
}

func validateRes(res int) error {
	if res < 0 || res > 15 {
		return fmt.Errorf("invalid H3 resolution %d (must be 0..15)", res)
	}
	return nil
}

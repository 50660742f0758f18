package h3cell

import (
	"testing"

	h3 "github.com/uber/h3-go/v4"

	"github.com/mohammed-shakir/farm-selector/internal/core/model"
)

func TestCell_MatchesLibrary(t *testing.T) {
	p := model.LatLng{Lat: 34.1, Lng: -118.4}
	got, err := Cell(p, 8)
	if err != nil {
		t.Fatalf("Cell: %v", err)
	}
	want, err := h3.LatLngToCell(h3.LatLng{Lat: 34.1, Lng: -118.4}, 8)
	if err != nil {
		t.Fatalf("LatLngToCell: %v", err)
	}
	if got != want.String() {
		t.Fatalf("cell=%s want %s", got, want.String())
	}

	// neighbouring point in the same cell
	if again, _ := Cell(model.LatLng{Lat: 34.1000001, Lng: -118.4}, 8); again != got {
		t.Fatalf("nearby point cell=%s want %s", again, got)
	}
}

func TestCell_RejectsBadInput(t *testing.T) {
	if _, err := Cell(model.LatLng{Lat: 1, Lng: 1}, 16); err == nil {
		t.Fatal("expected error for res 16")
	}
	if _, err := Cell(model.LatLng{Lat: 91, Lng: 1}, 8); err == nil {
		t.Fatal("expected error for out-of-range latitude")
	}
}

package mapview

import (
	"testing"

	"github.com/mohammed-shakir/farm-selector/internal/core/model"
)

func TestStateCenter(t *testing.T) {
	c, ok := StateCenter("Texas")
	if !ok || c != (model.LatLng{Lat: 31.9686, Lng: -99.9018}) {
		t.Fatalf("Texas=%+v ok=%v", c, ok)
	}
	c, ok = StateCenter("Atlantis")
	if ok || c != usCenter {
		t.Fatalf("unknown state=%+v ok=%v want US center", c, ok)
	}
}

func TestForState_InitialView(t *testing.T) {
	v := ForState("California").View()
	want := model.LatLng{Lat: 36.7783, Lng: -119.4179}
	if v.Center != want || v.Marker != want || v.Zoom != DefaultZoom {
		t.Fatalf("view=%+v", v)
	}
}

func TestRef_ReleaseStopsRecentering(t *testing.T) {
	vp := NewViewport(model.LatLng{}, 3)
	ref := NewRef(vp)

	target := model.LatLng{Lat: 10, Lng: 20}
	if !ref.Center(target, 7) {
		t.Fatal("Center on live ref returned false")
	}
	if got := vp.View(); got.Center != target || got.Zoom != 7 {
		t.Fatalf("view=%+v", got)
	}

	ref.Release()
	if ref.Center(model.LatLng{Lat: 1, Lng: 1}, 1) {
		t.Fatal("Center after Release returned true")
	}
	if got := vp.View(); got.Center != target {
		t.Fatalf("released ref still moved the map: %+v", got)
	}
}

func TestParseCoordinates(t *testing.T) {
	p, ok := ParseCoordinates(" 34.1 ", "-118.4")
	if !ok || p != (model.LatLng{Lat: 34.1, Lng: -118.4}) {
		t.Fatalf("got %+v ok=%v", p, ok)
	}

	bad := [][2]string{
		{"abc", "1"},
		{"", ""},
		{"1", ""},
		{"NaN", "1"},
		{"Inf", "1"},
		{"91", "0"},
		{"0", "181"},
		{"100", "10"},
	}
	for _, in := range bad {
		if _, ok := ParseCoordinates(in[0], in[1]); ok {
			t.Fatalf("ParseCoordinates(%q,%q) accepted", in[0], in[1])
		}
	}
}

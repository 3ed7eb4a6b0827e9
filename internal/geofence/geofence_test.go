package geofence

import (
	"math"
	"testing"
)

func TestDistanceIdentity(t *testing.T) {
	p := Point{Lat: 37.5361, Lng: 126.8333}
	d, err := DistanceMeters(p, p)
	if err != nil {
		t.Fatalf("distance: %v", err)
	}
	if d != 0 {
		t.Fatalf("expected 0 for identical points, got %v", d)
	}
}

func TestDistanceSymmetry(t *testing.T) {
	a := Point{Lat: 37.5361, Lng: 126.8333}
	b := Point{Lat: 37.50, Lng: 126.90}
	d1, err := DistanceMeters(a, b)
	if err != nil {
		t.Fatalf("distance a→b: %v", err)
	}
	d2, err := DistanceMeters(b, a)
	if err != nil {
		t.Fatalf("distance b→a: %v", err)
	}
	if math.Abs(d1-d2) > 1e-9 {
		t.Fatalf("asymmetric distance: %v vs %v", d1, d2)
	}
}

func TestIsInsideKnownDistances(t *testing.T) {
	center := Point{Lat: 37.5361, Lng: 126.8333}

	// 約34.4km → 半径500kmの内側
	inside, d, err := IsInside(Point{Lat: 37.50, Lng: 126.90}, center, 500000)
	if err != nil {
		t.Fatalf("isInside: %v", err)
	}
	if !inside {
		t.Fatalf("expected inside, distance=%v", d)
	}
	if d < 30000 || d > 40000 {
		t.Fatalf("expected ~34.4km, got %vm", d)
	}

	// 500kmを大きく超える → 外側
	inside, _, err = IsInside(Point{Lat: 40.0, Lng: 140.0}, center, 500000)
	if err != nil {
		t.Fatalf("isInside: %v", err)
	}
	if inside {
		t.Fatalf("expected outside")
	}
}

func TestBoundaryIsInside(t *testing.T) {
	center := Point{Lat: 0, Lng: 0}
	d, err := DistanceMeters(Point{Lat: 0, Lng: 0.01}, center)
	if err != nil {
		t.Fatalf("distance: %v", err)
	}
	inside, _, err := IsInside(Point{Lat: 0, Lng: 0.01}, center, d)
	if err != nil {
		t.Fatalf("isInside: %v", err)
	}
	if !inside {
		t.Fatalf("expected boundary point to count as inside")
	}
}

func TestInvalidCoordinates(t *testing.T) {
	center := Point{Lat: 0, Lng: 0}
	bad := []Point{
		{Lat: math.NaN(), Lng: 0},
		{Lat: 0, Lng: math.NaN()},
		{Lat: 91, Lng: 0},
		{Lat: -91, Lng: 0},
		{Lat: 0, Lng: 181},
		{Lat: 0, Lng: -181},
	}
	for _, p := range bad {
		if _, err := DistanceMeters(p, center); err == nil {
			t.Fatalf("expected error for %+v", p)
		}
		if _, err := DistanceMeters(center, p); err == nil {
			t.Fatalf("expected error for second arg %+v", p)
		}
	}
}

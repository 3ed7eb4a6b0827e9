package geofence

import (
	"errors"
	"fmt"
	"math"
)

// 地球半径 [m]
const earthRadiusMeters = 6371000.0

var ErrInvalidCoordinate = errors.New("invalid coordinate")

type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (p Point) Validate() error {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) {
		return fmt.Errorf("%w: NaN", ErrInvalidCoordinate)
	}
	if p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("%w: lat=%v", ErrInvalidCoordinate, p.Lat)
	}
	if p.Lng < -180 || p.Lng > 180 {
		return fmt.Errorf("%w: lng=%v", ErrInvalidCoordinate, p.Lng)
	}
	return nil
}

// DistanceMeters: haversine による大円距離
func DistanceMeters(a, b Point) (float64, error) {
	if err := a.Validate(); err != nil {
		return 0, err
	}
	if err := b.Validate(); err != nil {
		return 0, err
	}

	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusMeters * c, nil
}

// IsInside: 距離 <= radius で判定（境界上は内側扱い）
func IsInside(p, center Point, radiusMeters float64) (bool, float64, error) {
	d, err := DistanceMeters(p, center)
	if err != nil {
		return false, 0, err
	}
	return d <= radiusMeters, d, nil
}

package model

import (
	"errors"
	"fmt"
)

// PointType is the only geometry type a listing carries.
const PointType = "Point"

var ErrInvalidCoordinates = errors.New("invalid coordinates")

// GeoPoint is a GeoJSON point: Coordinates is [longitude, latitude].
type GeoPoint struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

// NewGeoPoint validates the ranges and builds a point.
func NewGeoPoint(lon, lat float64) (GeoPoint, error) {
	if lon < -180 || lon > 180 {
		return GeoPoint{}, fmt.Errorf("%w: longitude %v out of range", ErrInvalidCoordinates, lon)
	}
	if lat < -90 || lat > 90 {
		return GeoPoint{}, fmt.Errorf("%w: latitude %v out of range", ErrInvalidCoordinates, lat)
	}
	return GeoPoint{Type: PointType, Coordinates: [2]float64{lon, lat}}, nil
}

func (p GeoPoint) Lon() float64 { return p.Coordinates[0] }
func (p GeoPoint) Lat() float64 { return p.Coordinates[1] }

// Validate checks the type tag and coordinate ranges.
func (p GeoPoint) Validate() error {
	if p.Type != PointType {
		return fmt.Errorf("%w: unexpected geometry type %q", ErrInvalidCoordinates, p.Type)
	}
	_, err := NewGeoPoint(p.Lon(), p.Lat())
	return err
}

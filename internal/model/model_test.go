package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewGeoPoint(t *testing.T) {
	tests := []struct {
		name    string
		lon     float64
		lat     float64
		wantErr bool
	}{
		{name: "new delhi", lon: 77.2090, lat: 28.6139},
		{name: "bounds inclusive", lon: -180, lat: 90},
		{name: "longitude too large", lon: 180.5, lat: 0, wantErr: true},
		{name: "latitude too small", lon: 0, lat: -90.01, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewGeoPoint(tt.lon, tt.lat)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidCoordinates)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, PointType, p.Type)
			assert.Equal(t, tt.lon, p.Lon())
			assert.Equal(t, tt.lat, p.Lat())
		})
	}
}

func TestGeoPointValidate(t *testing.T) {
	assert.NoError(t, GeoPoint{Type: "Point", Coordinates: [2]float64{10, 10}}.Validate())
	assert.Error(t, GeoPoint{Type: "Polygon", Coordinates: [2]float64{10, 10}}.Validate())
	assert.Error(t, GeoPoint{Type: "Point", Coordinates: [2]float64{10, 100}}.Validate())
}

func TestIDs(t *testing.T) {
	id := NewID()
	assert.Len(t, id, 24)
	assert.True(t, IsValidID(id))
	assert.True(t, IsValidID("000000000000000000000000"))
	assert.False(t, IsValidID("not-an-id"))
	assert.False(t, IsValidID(""))
}

func TestEmptyInputs(t *testing.T) {
	var nilFields *ListingFields
	assert.True(t, nilFields.Empty())
	assert.True(t, (&ListingFields{}).Empty())

	title := "Cabin"
	assert.False(t, (&ListingFields{Title: &title}).Empty())

	var nilPatch *ListingPatch
	assert.True(t, nilPatch.Empty())
	assert.False(t, (&ListingPatch{Image: &ImageDescriptor{URL: "u", Filename: "f"}}).Empty())
}

func TestImageDescriptorValid(t *testing.T) {
	assert.True(t, ImageDescriptor{URL: "https://x/y.jpg", Filename: "listings/y.jpg"}.Valid())
	assert.False(t, ImageDescriptor{URL: "https://x/y.jpg"}.Valid())
	assert.False(t, ImageDescriptor{Filename: "listings/y.jpg"}.Valid())
}

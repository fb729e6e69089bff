// Package geocoding resolves free-text locations to map coordinates.
package geocoding

import (
	"context"
	"errors"

	"wanderlust/internal/model"
)

// Kind classifies a geocoding outcome.
type Kind int

const (
	Found Kind = iota + 1
	NoResult
	ServiceError
)

func (k Kind) String() string {
	switch k {
	case Found:
		return "found"
	case NoResult:
		return "no_result"
	case ServiceError:
		return "service_error"
	default:
		return "unknown"
	}
}

// Outcome is the result of one forward geocode. Point is set only when Kind is
// Found; Err only when Kind is ServiceError.
type Outcome struct {
	Kind  Kind
	Point model.GeoPoint
	Err   error
}

var ErrNotConfigured = errors.New("geocoding access token is not configured")

// Client performs forward geocoding. Implementations never return a Found outcome
// with an invalid point.
type Client interface {
	ForwardGeocode(ctx context.Context, query string, limit int) Outcome
}

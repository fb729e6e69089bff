package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"wanderlust/internal/config"
	"wanderlust/internal/model"
)

// Mapbox talks to the Mapbox forward geocoding endpoint.
type Mapbox struct {
	baseURL    string
	token      string
	client     *http.Client
	timeout    time.Duration
	maxRetries int
	newBackOff func() backoff.BackOff
	outcomes   *prometheus.CounterVec
}

type Option func(*Mapbox)

// WithHTTPClient replaces the instrumented default client.
func WithHTTPClient(c *http.Client) Option {
	return func(m *Mapbox) { m.client = c }
}

// WithMetrics counts outcomes in geocoding_requests_total registered on reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(m *Mapbox) {
		cv := prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "geocoding_requests_total",
			Help: "Forward geocoding calls by outcome.",
		}, []string{"outcome"})
		if err := reg.Register(cv); err != nil {
			if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
				cv = are.ExistingCollector.(*prometheus.CounterVec)
			} else {
				return
			}
		}
		m.outcomes = cv
	}
}

func NewMapbox(cfg config.GeocodingConfig, opts ...Option) *Mapbox {
	timeout := time.Duration(cfg.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	m := &Mapbox{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.AccessToken,
		client:     &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		timeout:    timeout,
		maxRetries: max(cfg.MaxRetries, 0),
		newBackOff: func() backoff.BackOff { return backoff.NewExponentialBackOff() },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

var _ Client = (*Mapbox)(nil)

type featureCollection struct {
	Features []struct {
		PlaceName string `json:"place_name"`
		Geometry  struct {
			Type        string    `json:"type"`
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"features"`
}

// retryableStatus reports server-side failures worth another attempt.
func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

func (m *Mapbox) endpoint(query string, limit int) string {
	v := url.Values{}
	v.Set("limit", strconv.Itoa(limit))
	v.Set("access_token", m.token)
	return m.baseURL + "/geocoding/v5/mapbox.places/" + url.PathEscape(query) + ".json?" + v.Encode()
}

// ForwardGeocode returns the first feature with a valid point geometry.
func (m *Mapbox) ForwardGeocode(ctx context.Context, query string, limit int) Outcome {
	out := m.forward(ctx, query, limit)
	if m.outcomes != nil {
		m.outcomes.WithLabelValues(out.Kind.String()).Inc()
	}
	return out
}

func (m *Mapbox) forward(ctx context.Context, query string, limit int) Outcome {
	if m.token == "" {
		return Outcome{Kind: ServiceError, Err: ErrNotConfigured}
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return Outcome{Kind: NoResult}
	}
	if limit <= 0 {
		limit = 1
	}

	var fc featureCollection
	attempt := func() error {
		return m.do(ctx, m.endpoint(query, limit), &fc)
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(m.newBackOff(), uint64(m.maxRetries)), ctx)
	if err := backoff.Retry(attempt, policy); err != nil {
		return Outcome{Kind: ServiceError, Err: err}
	}

	for _, f := range fc.Features {
		if f.Geometry.Type != model.PointType || len(f.Geometry.Coordinates) != 2 {
			continue
		}
		p, err := model.NewGeoPoint(f.Geometry.Coordinates[0], f.Geometry.Coordinates[1])
		if err != nil {
			continue
		}
		return Outcome{Kind: Found, Point: p}
	}
	return Outcome{Kind: NoResult}
}

func (m *Mapbox) do(ctx context.Context, target string, dst *featureCollection) error {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		// Strip the URL so the access token never ends up in logs.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return fmt.Errorf("geocoding request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		err := fmt.Errorf("geocoding service returned status %d", resp.StatusCode)
		if retryableStatus(resp.StatusCode) {
			return err
		}
		return backoff.Permanent(err)
	}

	*dst = featureCollection{}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return backoff.Permanent(fmt.Errorf("decode geocoding response: %w", err))
	}
	return nil
}

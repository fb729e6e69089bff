package service

import (
	"context"
	"errors"
	"sync"

	"wanderlust/internal/events"
	"wanderlust/internal/geocoding"
	"wanderlust/internal/imaging"
	"wanderlust/internal/model"
	"wanderlust/internal/repository"
)

// memListings is an in-memory ListingRepository used for lifecycle tests.
type memListings struct {
	mu        sync.Mutex
	items     map[string]model.Listing
	order     []string
	insertErr error
	// afterLoad runs after FindPopulated has read the row.
	afterLoad func()
}

func newMemListings() *memListings {
	return &memListings{items: map[string]model.Listing{}}
}

func (m *memListings) Insert(_ context.Context, l *model.Listing) (*model.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return nil, m.insertErr
	}
	m.items[l.ID] = *l
	m.order = append(m.order, l.ID)
	out := *l
	return &out, nil
}

func (m *memListings) FindByID(_ context.Context, id string) (*model.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &l, nil
}

func (m *memListings) FindPopulated(ctx context.Context, id string) (*model.Listing, error) {
	l, err := m.FindByID(ctx, id)
	if m.afterLoad != nil {
		m.afterLoad()
	}
	return l, err
}

func (m *memListings) FindAll(context.Context) ([]model.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Listing, 0, len(m.order))
	for _, id := range m.order {
		if l, ok := m.items[id]; ok {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *memListings) UpdateByID(_ context.Context, id string, p model.ListingPatch) (*model.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if p.Title != nil {
		l.Title = *p.Title
	}
	if p.Description != nil {
		l.Description = *p.Description
	}
	if p.Price != nil {
		l.Price = *p.Price
	}
	if p.Location != nil {
		l.Location = *p.Location
	}
	if p.Country != nil {
		l.Country = *p.Country
	}
	if p.Image != nil {
		img := *p.Image
		l.Image = &img
	}
	if p.Geometry != nil {
		g := *p.Geometry
		l.Geometry = &g
	}
	m.items[id] = l
	return &l, nil
}

func (m *memListings) DeleteByID(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.items, id)
	return nil
}

type fakeImages struct {
	uploadErr error
	uploaded  []model.ImageDescriptor
	discarded []model.ImageDescriptor
	next      model.ImageDescriptor
}

func (f *fakeImages) Upload(_ context.Context, up *imaging.Upload) (model.ImageDescriptor, error) {
	if f.uploadErr != nil {
		return model.ImageDescriptor{}, f.uploadErr
	}
	d := f.next
	if !d.Valid() {
		d = model.ImageDescriptor{
			URL:      "https://res.cloudinary.com/demo/image/upload/v1/listings/" + up.Filename,
			Filename: "listings/" + up.Filename,
		}
	}
	f.uploaded = append(f.uploaded, d)
	return d, nil
}

func (f *fakeImages) Discard(_ context.Context, d model.ImageDescriptor) error {
	f.discarded = append(f.discarded, d)
	return nil
}

type fakeGeocoder struct {
	outcome geocoding.Outcome
	queries []string
}

func (f *fakeGeocoder) ForwardGeocode(_ context.Context, q string, _ int) geocoding.Outcome {
	f.queries = append(f.queries, q)
	return f.outcome
}

func found(lon, lat float64) geocoding.Outcome {
	p, err := model.NewGeoPoint(lon, lat)
	if err != nil {
		panic(err)
	}
	return geocoding.Outcome{Kind: geocoding.Found, Point: p}
}

var serviceDown = geocoding.Outcome{Kind: geocoding.ServiceError, Err: errors.New("503 from geocoder")}

type publishedEvent struct {
	action    events.Action
	listingID string
	ownerID   string
}

type recordingPublisher struct {
	events []publishedEvent
	err    error
}

func (r *recordingPublisher) PublishListing(_ context.Context, a events.Action, listingID, ownerID string) error {
	r.events = append(r.events, publishedEvent{a, listingID, ownerID})
	return r.err
}

type memCache struct {
	items   map[string]model.Listing
	gens    map[string]int64
	deleted []string
	getErr  error
}

func newMemCache() *memCache {
	return &memCache{items: map[string]model.Listing{}, gens: map[string]int64{}}
}

func (c *memCache) Get(_ context.Context, id string) (*model.Listing, error) {
	if c.getErr != nil {
		return nil, c.getErr
	}
	l, ok := c.items[id]
	if !ok {
		return nil, nil
	}
	return &l, nil
}

func (c *memCache) Generation(_ context.Context, id string) (int64, error) {
	return c.gens[id], nil
}

func (c *memCache) Set(_ context.Context, l *model.Listing, gen int64) error {
	if c.gens[l.ID] != gen {
		return nil
	}
	c.items[l.ID] = *l
	return nil
}

func (c *memCache) Delete(_ context.Context, id string) error {
	c.gens[id]++
	delete(c.items, id)
	c.deleted = append(c.deleted, id)
	return nil
}

func ptr[T any](v T) *T { return &v }

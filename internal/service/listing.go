package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"wanderlust/internal/events"
	"wanderlust/internal/geocoding"
	"wanderlust/internal/imaging"
	"wanderlust/internal/model"
	"wanderlust/internal/repository"
	"wanderlust/internal/repository/cache"
)

// Edit form thumbnail size.
const (
	EditThumbWidth  = 250
	EditThumbHeight = 300
)

// ImageManager stores and removes listing images.
type ImageManager interface {
	Upload(ctx context.Context, up *imaging.Upload) (model.ImageDescriptor, error)
	Discard(ctx context.Context, d model.ImageDescriptor) error
}

// EditView is what the edit form needs: the listing and a reduced preview of its image.
type EditView struct {
	Listing          *model.Listing `json:"listing"`
	OriginalImageURL string         `json:"original_image_url,omitempty"`
}

// ListingService defines the listing lifecycle use cases. Every mutation checks
// ownership itself regardless of upstream middleware.
type ListingService interface {
	// List returns all listings in store order.
	List(ctx context.Context) ([]model.Listing, error)

	// Get returns the listing with owner and reviews resolved.
	Get(ctx context.Context, id string) (*model.Listing, error)

	// EditView returns the owner-only edit form data.
	EditView(ctx context.Context, id string, actor *model.Actor) (*EditView, error)

	// Create validates, enriches (image, geocoding) and persists a new listing owned by actor.
	// Enrichment failures become warnings; an image stored before a failed insert is discarded.
	Create(ctx context.Context, fields *model.ListingFields, actor *model.Actor, upload *imaging.Upload) (*MutationResult, error)

	// Update merges the supplied fields into the listing. The owner never changes.
	Update(ctx context.Context, id string, fields *model.ListingFields, actor *model.Actor, upload *imaging.Upload) (*MutationResult, error)

	// Destroy deletes the listing and its reviews.
	Destroy(ctx context.Context, id string, actor *model.Actor) error
}

// ListingDeps are the collaborators of the listing service. Images, Cache, Events
// and Logger may be left nil.
type ListingDeps struct {
	Listings repository.ListingRepository
	Images   ImageManager
	Geocoder geocoding.Client
	Cache    cache.ListingCache
	Events   events.Publisher
	Logger   *zap.Logger
	// Fallback is assigned as geometry when geocoding yields nothing. Nil disables it.
	Fallback *model.GeoPoint
}

type listingService struct {
	listings repository.ListingRepository
	images   ImageManager
	geocoder geocoding.Client
	cache    cache.ListingCache
	events   events.Publisher
	log      *zap.Logger
	fallback *model.GeoPoint
}

// NewListingService constructs a new ListingService.
func NewListingService(d ListingDeps) ListingService {
	s := &listingService{
		listings: d.Listings,
		images:   d.Images,
		geocoder: d.Geocoder,
		cache:    d.Cache,
		events:   d.Events,
		log:      d.Logger,
		fallback: d.Fallback,
	}
	if s.cache == nil {
		s.cache = cache.Noop{}
	}
	if s.events == nil {
		s.events = events.Noop{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

func persistenceErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}

func notFound(id string) error {
	return fmt.Errorf("%w: listing %s", ErrNotFound, id)
}

func authenticated(actor *model.Actor) bool {
	return actor != nil && actor.ID != ""
}

func (s *listingService) List(ctx context.Context) ([]model.Listing, error) {
	items, err := s.listings.FindAll(ctx)
	if err != nil {
		s.log.Error("list listings failed", zap.Error(err))
		return nil, persistenceErr("list listings", err)
	}
	return items, nil
}

func (s *listingService) Get(ctx context.Context, id string) (*model.Listing, error) {
	if !model.IsValidID(id) {
		return nil, notFound(id)
	}

	cached, err := s.cache.Get(ctx, id)
	if err != nil {
		s.log.Warn("listing cache read failed", zap.String("listing_id", id), zap.Error(err))
	}
	if cached != nil {
		return cached, nil
	}

	// Read before loading so an invalidation during the load voids the fill.
	gen, genErr := s.cache.Generation(ctx, id)
	if genErr != nil {
		s.log.Warn("listing cache generation read failed", zap.String("listing_id", id), zap.Error(genErr))
	}

	l, err := s.listings.FindPopulated(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound(id)
		}
		s.log.Error("get listing failed", zap.String("listing_id", id), zap.Error(err))
		return nil, persistenceErr("get listing", err)
	}

	if genErr == nil {
		if err := s.cache.Set(ctx, l, gen); err != nil {
			s.log.Warn("listing cache write failed", zap.String("listing_id", id), zap.Error(err))
		}
	}
	return l, nil
}

// loadOwned resolves the listing and checks that actor owns it.
func (s *listingService) loadOwned(ctx context.Context, id string, actor *model.Actor) (*model.Listing, error) {
	if !model.IsValidID(id) {
		return nil, notFound(id)
	}
	l, err := s.listings.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound(id)
		}
		s.log.Error("load listing failed", zap.String("listing_id", id), zap.Error(err))
		return nil, persistenceErr("load listing", err)
	}
	if !authenticated(actor) {
		return nil, ErrUnauthenticated
	}
	if l.OwnerID != actor.ID {
		return nil, fmt.Errorf("%w: listing %s is not owned by %s", ErrForbidden, id, actor.ID)
	}
	return l, nil
}

func (s *listingService) EditView(ctx context.Context, id string, actor *model.Actor) (*EditView, error) {
	l, err := s.loadOwned(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	view := &EditView{Listing: l}
	if l.Image != nil {
		view.OriginalImageURL = imaging.ThumbnailURL(*l.Image, EditThumbWidth, EditThumbHeight)
	}
	return view, nil
}

func validTitle(t *string) bool {
	return t != nil && strings.TrimSpace(*t) != ""
}

func validPrice(p *float64) bool {
	return p == nil || (*p >= 0 && !math.IsNaN(*p) && !math.IsInf(*p, 0))
}

func validateCreate(f *model.ListingFields) error {
	if f.Empty() {
		return &ValidationError{Field: "listing", Reason: "listing data is required"}
	}
	if !validTitle(f.Title) {
		return &ValidationError{Field: "title", Reason: "title is required"}
	}
	if !validPrice(f.Price) {
		return &ValidationError{Field: "price", Reason: "price must be a non-negative number"}
	}
	return nil
}

func validateUpdate(f *model.ListingFields, hasUpload bool) error {
	if f.Empty() {
		if hasUpload {
			return nil
		}
		return &ValidationError{Field: "listing", Reason: "listing data is required"}
	}
	if f.Title != nil && !validTitle(f.Title) {
		return &ValidationError{Field: "title", Reason: "title cannot be empty"}
	}
	if !validPrice(f.Price) {
		return &ValidationError{Field: "price", Reason: "price must be a non-negative number"}
	}
	return nil
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

const (
	outcomeSavedWithoutImage = "saved without image"
	outcomeUnchanged         = "listing left unchanged"
)

// storeImage uploads the file; failures degrade to a warning. outcome tells the
// client what happened to the rest of the write.
func (s *listingService) storeImage(ctx context.Context, up *imaging.Upload, outcome string, log *zap.Logger) (*model.ImageDescriptor, *EnrichmentWarning) {
	if up == nil {
		return nil, nil
	}
	if s.images == nil {
		log.Warn("image upload ignored, no image store configured")
		return nil, &EnrichmentWarning{Step: StepImage, Message: "image uploads are not available; " + outcome}
	}
	d, err := s.images.Upload(ctx, up)
	if err != nil {
		log.Warn("image upload failed", zap.String("step", StepImage), zap.Error(err))
		msg := "image could not be stored; " + outcome
		if errors.Is(err, imaging.ErrUnsupportedType) {
			msg = "only image files can be attached; " + outcome
		}
		return nil, &EnrichmentWarning{Step: StepImage, Message: msg}
	}
	return &d, nil
}

// discard removes an uploaded image whose listing never got persisted.
func (s *listingService) discard(ctx context.Context, d *model.ImageDescriptor, log *zap.Logger) {
	if d == nil || s.images == nil {
		return
	}
	if err := s.images.Discard(context.WithoutCancel(ctx), *d); err != nil {
		log.Error("orphaned image left in storage", zap.String("filename", d.Filename), zap.Error(err))
	}
}

// geocode never fails: a missing point comes back with a warning.
func (s *listingService) geocode(ctx context.Context, location string, log *zap.Logger) (*model.GeoPoint, *EnrichmentWarning) {
	if s.geocoder == nil {
		return nil, &EnrichmentWarning{Step: StepGeocoding, Message: "map location is not available"}
	}
	out := s.geocoder.ForwardGeocode(ctx, location, 1)
	switch out.Kind {
	case geocoding.Found:
		p := out.Point
		return &p, nil
	case geocoding.NoResult:
		log.Warn("geocoding returned no result", zap.String("step", StepGeocoding), zap.String("location", location))
		return nil, &EnrichmentWarning{Step: StepGeocoding, Message: "location could not be found on the map"}
	default:
		log.Warn("geocoding service failed", zap.String("step", StepGeocoding), zap.String("location", location), zap.Error(out.Err))
		return nil, &EnrichmentWarning{Step: StepGeocoding, Message: "map service is unavailable; location not mapped"}
	}
}

func (s *listingService) publish(ctx context.Context, action events.Action, l *model.Listing) {
	if err := s.events.PublishListing(context.WithoutCancel(ctx), action, l.ID, l.OwnerID); err != nil {
		s.log.Warn("publish listing event failed", zap.String("listing_id", l.ID), zap.String("action", string(action)), zap.Error(err))
	}
}

func (s *listingService) invalidate(ctx context.Context, id string) {
	if err := s.cache.Delete(context.WithoutCancel(ctx), id); err != nil {
		s.log.Warn("listing cache invalidation failed", zap.String("listing_id", id), zap.Error(err))
	}
}

func (s *listingService) Create(ctx context.Context, fields *model.ListingFields, actor *model.Actor, upload *imaging.Upload) (*MutationResult, error) {
	if err := validateCreate(fields); err != nil {
		return nil, err
	}
	if !authenticated(actor) {
		return nil, ErrUnauthenticated
	}

	l := &model.Listing{
		ID:          model.NewID(),
		Title:       *fields.Title,
		Description: deref(fields.Description),
		Price:       deref(fields.Price),
		Location:    deref(fields.Location),
		Country:     deref(fields.Country),
		OwnerID:     actor.ID,
		ReviewIDs:   []string{},
	}
	log := s.log.With(zap.String("listing_id", l.ID), zap.String("actor_id", actor.ID))
	res := &MutationResult{ID: l.ID}

	img, warn := s.storeImage(ctx, upload, outcomeSavedWithoutImage, log)
	if warn != nil {
		res.Warnings = append(res.Warnings, *warn)
	}
	if img != nil {
		if err := imaging.Attach(l, *img); err != nil {
			log.Warn("image attach failed", zap.Error(err))
			res.Warnings = append(res.Warnings, EnrichmentWarning{Step: StepImage, Message: "image could not be attached; saved without image"})
			s.discard(ctx, img, log)
			img = nil
		}
	}

	if loc := strings.TrimSpace(l.Location); loc != "" {
		point, warn := s.geocode(ctx, loc, log)
		if warn != nil {
			res.Warnings = append(res.Warnings, *warn)
			if s.fallback != nil {
				fb := *s.fallback
				point = &fb
			}
		}
		l.Geometry = point
	}

	if _, err := s.listings.Insert(ctx, l); err != nil {
		log.Error("insert listing failed", zap.Error(err))
		s.discard(ctx, img, log)
		return nil, persistenceErr("insert listing", err)
	}

	log.Info("listing created", zap.Int("warnings", len(res.Warnings)))
	s.publish(ctx, events.Created, l)
	return res, nil
}

func (s *listingService) Update(ctx context.Context, id string, fields *model.ListingFields, actor *model.Actor, upload *imaging.Upload) (*MutationResult, error) {
	current, err := s.loadOwned(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if fields == nil {
		fields = &model.ListingFields{}
	}
	if err := validateUpdate(fields, upload != nil); err != nil {
		return nil, err
	}

	log := s.log.With(zap.String("listing_id", id), zap.String("actor_id", actor.ID))
	res := &MutationResult{ID: id}
	patch := model.ListingPatch{
		Title:       fields.Title,
		Description: fields.Description,
		Price:       fields.Price,
		Location:    fields.Location,
		Country:     fields.Country,
	}

	outcome := outcomeSavedWithoutImage
	if fields.Empty() {
		outcome = outcomeUnchanged
	}
	img, warn := s.storeImage(ctx, upload, outcome, log)
	if warn != nil {
		res.Warnings = append(res.Warnings, *warn)
	}
	if img != nil {
		// The previous image object is not deleted.
		patch.Image = img
	}

	if fields.Location != nil {
		next := strings.TrimSpace(*fields.Location)
		if next != "" && next != strings.TrimSpace(current.Location) {
			point, warn := s.geocode(ctx, next, log)
			if warn != nil {
				res.Warnings = append(res.Warnings, *warn)
			}
			patch.Geometry = point
		}
	}

	if patch.Empty() {
		res.Unchanged = true
		return res, nil
	}

	if _, err := s.listings.UpdateByID(ctx, id, patch); err != nil {
		s.discard(ctx, img, log)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound(id)
		}
		log.Error("update listing failed", zap.Error(err))
		return nil, persistenceErr("update listing", err)
	}

	log.Info("listing updated", zap.Int("warnings", len(res.Warnings)))
	s.invalidate(ctx, id)
	s.publish(ctx, events.Updated, current)
	return res, nil
}

func (s *listingService) Destroy(ctx context.Context, id string, actor *model.Actor) error {
	l, err := s.loadOwned(ctx, id, actor)
	if err != nil {
		return err
	}
	if err := s.listings.DeleteByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(id)
		}
		s.log.Error("delete listing failed", zap.String("listing_id", id), zap.Error(err))
		return persistenceErr("delete listing", err)
	}

	s.log.Info("listing deleted", zap.String("listing_id", id), zap.String("actor_id", actor.ID), zap.Int("reviews", len(l.ReviewIDs)))
	s.invalidate(ctx, id)
	s.publish(ctx, events.Deleted, l)
	return nil
}

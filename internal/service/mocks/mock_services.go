package mocks

import (
	"context"

	"wanderlust/internal/imaging"
	"wanderlust/internal/model"
	"wanderlust/internal/service"

	"github.com/stretchr/testify/mock"
)

type MockListingService struct {
	mock.Mock
}

var _ service.ListingService = (*MockListingService)(nil)

func (m *MockListingService) List(ctx context.Context) ([]model.Listing, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Listing), args.Error(1)
}

func (m *MockListingService) Get(ctx context.Context, id string) (*model.Listing, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Listing), args.Error(1)
}

func (m *MockListingService) EditView(ctx context.Context, id string, actor *model.Actor) (*service.EditView, error) {
	args := m.Called(ctx, id, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.EditView), args.Error(1)
}

func (m *MockListingService) Create(ctx context.Context, fields *model.ListingFields, actor *model.Actor, upload *imaging.Upload) (*service.MutationResult, error) {
	args := m.Called(ctx, fields, actor, upload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.MutationResult), args.Error(1)
}

func (m *MockListingService) Update(ctx context.Context, id string, fields *model.ListingFields, actor *model.Actor, upload *imaging.Upload) (*service.MutationResult, error) {
	args := m.Called(ctx, id, fields, actor, upload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.MutationResult), args.Error(1)
}

func (m *MockListingService) Destroy(ctx context.Context, id string, actor *model.Actor) error {
	args := m.Called(ctx, id, actor)
	return args.Error(0)
}

type MockReviewService struct {
	mock.Mock
}

var _ service.ReviewService = (*MockReviewService)(nil)

func (m *MockReviewService) Create(ctx context.Context, listingID string, actor *model.Actor, in service.ReviewInput) (*model.Review, error) {
	args := m.Called(ctx, listingID, actor, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Review), args.Error(1)
}

func (m *MockReviewService) Delete(ctx context.Context, listingID, reviewID string, actor *model.Actor) error {
	args := m.Called(ctx, listingID, reviewID, actor)
	return args.Error(0)
}

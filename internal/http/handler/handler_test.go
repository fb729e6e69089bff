package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"wanderlust/internal/auth"
	"wanderlust/internal/imaging"
	"wanderlust/internal/model"
	"wanderlust/internal/service"
	serviceMocks "wanderlust/internal/service/mocks"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	actorID   = "64b7f0c2a1b2c3d4e5f60001"
	listingID = "64b7f0c2a1b2c3d4e5f60718"
	reviewID  = "64b7f0c2a1b2c3d4e5f60999"
)

type testApp struct {
	app      *fiber.App
	listings *serviceMocks.MockListingService
	reviews  *serviceMocks.MockReviewService
	token    string
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	v, err := auth.NewTokenVerifier("test-secret")
	require.NoError(t, err)
	token, err := v.Issue(actorID, time.Hour)
	require.NoError(t, err)

	ta := &testApp{
		app:      fiber.New(fiber.Config{ErrorHandler: ErrorHandler()}),
		listings: new(serviceMocks.MockListingService),
		reviews:  new(serviceMocks.MockReviewService),
		token:    token,
	}
	RegisterRoutes(ta.app, Deps{
		Store:         db,
		Listings:      ta.listings,
		Reviews:       ta.reviews,
		Verifier:      v,
		SessionCookie: "session",
	})
	return ta
}

func (ta *testApp) do(t *testing.T, req *http.Request, authed bool) *http.Response {
	t.Helper()
	if authed {
		req.Header.Set("Authorization", "Bearer "+ta.token)
	}
	resp, err := ta.app.Test(req)
	require.NoError(t, err)
	return resp
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeError(t *testing.T, resp *http.Response) errorPayload {
	t.Helper()
	var body errorPayload
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

var isActor = mock.MatchedBy(func(a *model.Actor) bool { return a != nil && a.ID == actorID })

func TestHealthCheck(t *testing.T) {
	db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	app := fiber.New()
	app.Get("/health", HealthCheck(db))

	t.Run("healthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(nil)

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]string
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "healthy", body["status"])
	})

	t.Run("unhealthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(errors.New("db error"))

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

		var body errorPayload
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "SERVICE_UNAVAILABLE", body.Error.Code)
	})
}

func TestLivenessProbe(t *testing.T) {
	app := fiber.New()
	app.Get("/healthz", LivenessProbe())

	resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestListListings(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		ta := newTestApp(t)
		ta.listings.On("List", mock.Anything).Return([]model.Listing{{ID: listingID, Title: "Beach Hut"}}, nil).Once()

		resp := ta.do(t, httptest.NewRequest(http.MethodGet, "/listings", nil), false)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body listResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		require.Len(t, body.Data, 1)
		assert.Equal(t, "Beach Hut", body.Data[0].Title)
		assert.Empty(t, body.Notices)
		ta.listings.AssertExpectations(t)
	})

	t.Run("store unavailable degrades to empty list", func(t *testing.T) {
		ta := newTestApp(t)
		ta.listings.On("List", mock.Anything).Return(nil, fmt.Errorf("%w: boom", service.ErrPersistence)).Once()

		resp := ta.do(t, httptest.NewRequest(http.MethodGet, "/listings", nil), false)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body listResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.NotNil(t, body.Data)
		assert.Empty(t, body.Data)
		require.Len(t, body.Notices, 1)
		assert.Equal(t, levelWarning, body.Notices[0].Level)
	})
}

func TestShowListing(t *testing.T) {
	ta := newTestApp(t)
	ta.listings.On("Get", mock.Anything, listingID).Return(&model.Listing{ID: listingID, OwnerID: actorID}, nil).Once()
	ta.listings.On("Get", mock.Anything, "missing").Return(nil, service.ErrNotFound).Once()

	resp := ta.do(t, httptest.NewRequest(http.MethodGet, "/listings/"+listingID, nil), false)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var l model.Listing
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&l))
	assert.Equal(t, actorID, l.OwnerID)

	resp = ta.do(t, httptest.NewRequest(http.MethodGet, "/listings/missing", nil), false)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	body := decodeError(t, resp)
	assert.Equal(t, "NOT_FOUND", body.Error.Code)
	assert.Equal(t, "/listings", body.Error.Redirect)
	ta.listings.AssertExpectations(t)
}

func TestEditListing(t *testing.T) {
	ta := newTestApp(t)
	view := &service.EditView{
		Listing:          &model.Listing{ID: listingID},
		OriginalImageURL: "https://img/upload/h_300,w_250/a.jpg",
	}
	ta.listings.On("EditView", mock.Anything, listingID, isActor).Return(view, nil).Once()

	resp := ta.do(t, httptest.NewRequest(http.MethodGet, "/listings/"+listingID+"/edit", nil), true)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var got service.EditView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, view.OriginalImageURL, got.OriginalImageURL)

	resp = ta.do(t, httptest.NewRequest(http.MethodGet, "/listings/"+listingID+"/edit", nil), false)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	ta.listings.AssertExpectations(t)
}

func TestCreateListing(t *testing.T) {
	t.Run("json success with warning", func(t *testing.T) {
		ta := newTestApp(t)
		ta.listings.On("Create", mock.Anything, mock.MatchedBy(func(f *model.ListingFields) bool {
			return f.Title != nil && *f.Title == "Beach Hut" && f.Price != nil && *f.Price == 1200
		}), isActor, (*imaging.Upload)(nil)).Return(&service.MutationResult{
			ID:       listingID,
			Warnings: []service.EnrichmentWarning{{Step: service.StepGeocoding, Message: "location could not be found on the map"}},
		}, nil).Once()

		req := jsonRequest(http.MethodPost, "/listings", `{"listing":{"title":"Beach Hut","price":1200,"location":"Goa"}}`)
		resp := ta.do(t, req, true)
		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		var body mutationResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, listingID, body.ID)
		assert.Equal(t, "/listings", body.Redirect)
		require.Len(t, body.Notices, 2)
		assert.Equal(t, levelSuccess, body.Notices[0].Level)
		assert.Equal(t, levelWarning, body.Notices[1].Level)
		ta.listings.AssertExpectations(t)
	})

	t.Run("multipart with image", func(t *testing.T) {
		ta := newTestApp(t)
		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)
		writer.WriteField("listing[title]", "Cabin")
		writer.WriteField("listing[price]", "80.5")
		writer.WriteField("listing[country]", "Norway")
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="listing[image]"; filename="cabin.jpg"`)
		h.Set("Content-Type", "image/jpeg")
		part, _ := writer.CreatePart(h)
		part.Write([]byte("jpegdata"))
		writer.Close()

		ta.listings.On("Create", mock.Anything, mock.MatchedBy(func(f *model.ListingFields) bool {
			return *f.Title == "Cabin" && *f.Price == 80.5 && *f.Country == "Norway" && f.Location == nil
		}), isActor, mock.MatchedBy(func(up *imaging.Upload) bool {
			return up != nil && up.Filename == "cabin.jpg" && up.ContentType == "image/jpeg" &&
				up.Size == int64(len("jpegdata")) && up.Body != nil
		})).Return(&service.MutationResult{ID: listingID}, nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/listings", body)
		req.Header.Set("Content-Type", writer.FormDataContentType())
		resp := ta.do(t, req, true)
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		ta.listings.AssertExpectations(t)
	})

	t.Run("non numeric price", func(t *testing.T) {
		ta := newTestApp(t)
		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)
		writer.WriteField("listing[title]", "Cabin")
		writer.WriteField("listing[price]", "cheap")
		writer.Close()

		req := httptest.NewRequest(http.MethodPost, "/listings", body)
		req.Header.Set("Content-Type", writer.FormDataContentType())
		resp := ta.do(t, req, true)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "VALIDATION_ERROR", decodeError(t, resp).Error.Code)
		ta.listings.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("validation error message", func(t *testing.T) {
		ta := newTestApp(t)
		ta.listings.On("Create", mock.Anything, mock.Anything, isActor, mock.Anything).
			Return(nil, &service.ValidationError{Field: "title", Reason: "title is required"}).Once()

		resp := ta.do(t, jsonRequest(http.MethodPost, "/listings", `{"listing":{"price":10}}`), true)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		body := decodeError(t, resp)
		assert.Equal(t, "VALIDATION_ERROR", body.Error.Code)
		assert.Equal(t, "title is required", body.Error.Message)
	})

	t.Run("anonymous", func(t *testing.T) {
		ta := newTestApp(t)
		resp := ta.do(t, jsonRequest(http.MethodPost, "/listings", `{"listing":{"title":"x"}}`), false)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		body := decodeError(t, resp)
		assert.Equal(t, "UNAUTHENTICATED", body.Error.Code)
		assert.Equal(t, "/login", body.Error.Redirect)
	})

	t.Run("persistence failure", func(t *testing.T) {
		ta := newTestApp(t)
		ta.listings.On("Create", mock.Anything, mock.Anything, isActor, mock.Anything).
			Return(nil, fmt.Errorf("%w: insert listing: dial tcp 10.0.0.5:5432", service.ErrPersistence)).Once()

		resp := ta.do(t, jsonRequest(http.MethodPost, "/listings", `{"listing":{"title":"x"}}`), true)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		body := decodeError(t, resp)
		assert.Equal(t, "PERSISTENCE_ERROR", body.Error.Code)
		assert.NotContains(t, body.Error.Message, "10.0.0.5")
	})
}

func TestUpdateListingNothingSaved(t *testing.T) {
	ta := newTestApp(t)
	ta.listings.On("Update", mock.Anything, listingID, mock.Anything, isActor, mock.Anything).Return(&service.MutationResult{
		ID:        listingID,
		Unchanged: true,
		Warnings:  []service.EnrichmentWarning{{Step: service.StepImage, Message: "image could not be stored; listing left unchanged"}},
	}, nil).Once()

	resp := ta.do(t, jsonRequest(http.MethodPut, "/listings/"+listingID, `{"listing":{"price":950}}`), true)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body mutationResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Notices, 2)
	assert.Equal(t, "No changes saved.", body.Notices[0].Message)
	assert.Equal(t, "image could not be stored; listing left unchanged", body.Notices[1].Message)
	ta.listings.AssertExpectations(t)
}

func TestUpdateListing(t *testing.T) {
	ta := newTestApp(t)
	ta.listings.On("Update", mock.Anything, listingID, mock.MatchedBy(func(f *model.ListingFields) bool {
		return f.Price != nil && *f.Price == 950 && f.Title == nil
	}), isActor, (*imaging.Upload)(nil)).Return(&service.MutationResult{ID: listingID}, nil).Once()
	ta.listings.On("Update", mock.Anything, "64b7f0c2a1b2c3d4e5f60719", mock.Anything, isActor, mock.Anything).
		Return(nil, service.ErrForbidden).Once()

	resp := ta.do(t, jsonRequest(http.MethodPut, "/listings/"+listingID, `{"listing":{"price":950}}`), true)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body mutationResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "/listings/"+listingID, body.Redirect)

	assert.Equal(t, "Listing Updated!", body.Notices[0].Message)

	resp = ta.do(t, jsonRequest(http.MethodPut, "/listings/64b7f0c2a1b2c3d4e5f60719", `{"listing":{"price":1}}`), true)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	errBody := decodeError(t, resp)
	assert.Equal(t, "FORBIDDEN", errBody.Error.Code)
	assert.Equal(t, "/listings/64b7f0c2a1b2c3d4e5f60719", errBody.Error.Redirect)
	ta.listings.AssertExpectations(t)
}

func TestDeleteListing(t *testing.T) {
	ta := newTestApp(t)
	ta.listings.On("Destroy", mock.Anything, listingID, isActor).Return(nil).Once()
	ta.listings.On("Destroy", mock.Anything, "gone", isActor).Return(service.ErrNotFound).Once()

	resp := ta.do(t, httptest.NewRequest(http.MethodDelete, "/listings/"+listingID, nil), true)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = ta.do(t, httptest.NewRequest(http.MethodDelete, "/listings/gone", nil), true)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	ta.listings.AssertExpectations(t)
}

func TestCreateReview(t *testing.T) {
	ta := newTestApp(t)
	ta.reviews.On("Create", mock.Anything, listingID, isActor, service.ReviewInput{Rating: 4, Comment: "Cozy"}).
		Return(&model.Review{ID: reviewID, ListingID: listingID, Rating: 4, Comment: "Cozy"}, nil).Once()

	resp := ta.do(t, jsonRequest(http.MethodPost, "/listings/"+listingID+"/reviews", `{"review":{"rating":4,"comment":"Cozy"}}`), true)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	var body reviewResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, reviewID, body.Review.ID)
	assert.Equal(t, "/listings/"+listingID, body.Redirect)

	resp = ta.do(t, jsonRequest(http.MethodPost, "/listings/"+listingID+"/reviews", `{}`), true)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	ta.reviews.AssertExpectations(t)
}

func TestDeleteReview(t *testing.T) {
	ta := newTestApp(t)
	ta.reviews.On("Delete", mock.Anything, listingID, reviewID, isActor).Return(nil).Once()

	resp := ta.do(t, httptest.NewRequest(http.MethodDelete, "/listings/"+listingID+"/reviews/"+reviewID, nil), true)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = ta.do(t, httptest.NewRequest(http.MethodDelete, "/listings/"+listingID+"/reviews/"+reviewID, nil), false)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	ta.reviews.AssertExpectations(t)
}

func TestSessionCookieIdentity(t *testing.T) {
	ta := newTestApp(t)
	ta.listings.On("Destroy", mock.Anything, listingID, isActor).Return(nil).Once()

	req := httptest.NewRequest(http.MethodDelete, "/listings/"+listingID, nil)
	req.Header.Set("Cookie", "session="+ta.token)
	resp := ta.do(t, req, false)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestErrorHandler(t *testing.T) {
	ta := newTestApp(t)
	resp := ta.do(t, httptest.NewRequest(http.MethodGet, "/nowhere", nil), false)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", decodeError(t, resp).Error.Code)
}

func TestWriteServiceErrorUnclassified(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return writeServiceError(c, errors.New("pq: relation does not exist"), "")
	})
	resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	body := decodeError(t, resp)
	assert.Equal(t, "INTERNAL_ERROR", body.Error.Code)
	assert.Equal(t, msgInternal, body.Error.Message)
}

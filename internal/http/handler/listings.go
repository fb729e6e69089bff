package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"wanderlust/internal/http/middleware"
	"wanderlust/internal/model"
	"wanderlust/internal/service"
)

const (
	levelSuccess = "success"
	levelWarning = "warning"
)

type notice struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

type listResponse struct {
	Data    []model.Listing `json:"data"`
	Notices []notice        `json:"notices"`
}

type mutationResponse struct {
	ID       string   `json:"id"`
	Notices  []notice `json:"notices"`
	Redirect string   `json:"redirect"`
}

func mutationNotices(success string, warnings []service.EnrichmentWarning) []notice {
	out := []notice{{Level: levelSuccess, Message: success}}
	for _, w := range warnings {
		out = append(out, notice{Level: levelWarning, Message: w.Message})
	}
	return out
}

// ListListings godoc
// @Summary List all listings
// @Tags listings
// @Produce json
// @Success 200 {object} listResponse
// @Router /listings [get]
func ListListings(svc service.ListingService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		items, err := svc.List(c.UserContext())
		if err != nil {
			if errors.Is(err, service.ErrPersistence) {
				return c.JSON(listResponse{
					Data:    []model.Listing{},
					Notices: []notice{{Level: levelWarning, Message: "Listings are temporarily unavailable"}},
				})
			}
			return writeServiceError(c, err, "")
		}
		if items == nil {
			items = []model.Listing{}
		}
		return c.JSON(listResponse{Data: items, Notices: []notice{}})
	}
}

// ShowListing godoc
// @Summary Get a listing with owner and reviews
// @Tags listings
// @Produce json
// @Param id path string true "Listing ID"
// @Success 200 {object} model.Listing
// @Failure 404 {object} errorPayload
// @Router /listings/{id} [get]
func ShowListing(svc service.ListingService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		l, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err, id)
		}
		return c.JSON(l)
	}
}

// EditListing godoc
// @Summary Owner-only edit form data
// @Tags listings
// @Produce json
// @Param id path string true "Listing ID"
// @Success 200 {object} service.EditView
// @Failure 403 {object} errorPayload
// @Router /listings/{id}/edit [get]
func EditListing(svc service.ListingService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		view, err := svc.EditView(c.UserContext(), id, middleware.ActorFrom(c))
		if err != nil {
			return writeServiceError(c, err, id)
		}
		return c.JSON(view)
	}
}

// CreateListing godoc
// @Summary Create a listing
// @Description JSON {"listing":{...}} or multipart listing[title], ... with optional file listing[image].
// @Tags listings
// @Accept json,mpfd
// @Produce json
// @Success 201 {object} mutationResponse
// @Failure 400 {object} errorPayload
// @Failure 401 {object} errorPayload
// @Router /listings [post]
func CreateListing(svc service.ListingService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fields, err := parseListingFields(c)
		if err != nil {
			return writeServiceError(c, err, "")
		}
		upload, done, err := parseUpload(c)
		if err != nil {
			return writeServiceError(c, err, "")
		}
		defer done()

		res, err := svc.Create(c.UserContext(), fields, middleware.ActorFrom(c), upload)
		if err != nil {
			return writeServiceError(c, err, "")
		}
		return c.Status(fiber.StatusCreated).JSON(mutationResponse{
			ID:       res.ID,
			Notices:  mutationNotices("New Listing Created!", res.Warnings),
			Redirect: listingsPath,
		})
	}
}

// UpdateListing godoc
// @Summary Update a listing (merge of supplied fields)
// @Tags listings
// @Accept json,mpfd
// @Produce json
// @Param id path string true "Listing ID"
// @Success 200 {object} mutationResponse
// @Failure 403 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Router /listings/{id} [put]
func UpdateListing(svc service.ListingService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		fields, err := parseListingFields(c)
		if err != nil {
			return writeServiceError(c, err, id)
		}
		upload, done, err := parseUpload(c)
		if err != nil {
			return writeServiceError(c, err, id)
		}
		defer done()

		res, err := svc.Update(c.UserContext(), id, fields, middleware.ActorFrom(c), upload)
		if err != nil {
			return writeServiceError(c, err, id)
		}
		headline := "Listing Updated!"
		if res.Unchanged {
			headline = "No changes saved."
		}
		return c.JSON(mutationResponse{
			ID:       res.ID,
			Notices:  mutationNotices(headline, res.Warnings),
			Redirect: listingPath(id),
		})
	}
}

// DeleteListing godoc
// @Summary Delete a listing and its reviews
// @Tags listings
// @Param id path string true "Listing ID"
// @Success 204
// @Failure 403 {object} errorPayload
// @Router /listings/{id} [delete]
func DeleteListing(svc service.ListingService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if err := svc.Destroy(c.UserContext(), id, middleware.ActorFrom(c)); err != nil {
			return writeServiceError(c, err, id)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

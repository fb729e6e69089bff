package handler

import (
	"github.com/gofiber/fiber/v2"

	"wanderlust/internal/http/middleware"
	"wanderlust/internal/model"
	"wanderlust/internal/service"
)

type reviewResponse struct {
	Review   *model.Review `json:"review"`
	Notices  []notice      `json:"notices"`
	Redirect string        `json:"redirect"`
}

// CreateReview godoc
// @Summary Review a listing
// @Tags reviews
// @Accept json
// @Produce json
// @Param id path string true "Listing ID"
// @Success 201 {object} reviewResponse
// @Failure 400 {object} errorPayload
// @Router /listings/{id}/reviews [post]
func CreateReview(svc service.ReviewService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		in, err := parseReview(c)
		if err != nil {
			return writeServiceError(c, err, id)
		}
		r, err := svc.Create(c.UserContext(), id, middleware.ActorFrom(c), in)
		if err != nil {
			return writeServiceError(c, err, id)
		}
		return c.Status(fiber.StatusCreated).JSON(reviewResponse{
			Review:   r,
			Notices:  []notice{{Level: levelSuccess, Message: "New Review Created!"}},
			Redirect: listingPath(id),
		})
	}
}

// DeleteReview godoc
// @Summary Delete a review (author only)
// @Tags reviews
// @Param id path string true "Listing ID"
// @Param reviewId path string true "Review ID"
// @Success 204
// @Router /listings/{id}/reviews/{reviewId} [delete]
func DeleteReview(svc service.ReviewService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if err := svc.Delete(c.UserContext(), id, c.Params("reviewId"), middleware.ActorFrom(c)); err != nil {
			return writeServiceError(c, err, id)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

package handler

import (
	"github.com/gofiber/fiber/v2"

	"wanderlust/internal/database"
	"wanderlust/internal/http/middleware"
	"wanderlust/internal/service"
)

// Deps carries what RegisterRoutes wires into handlers.
type Deps struct {
	Store         database.Pinger
	Listings      service.ListingService
	Reviews       service.ReviewService
	Verifier      middleware.TokenVerifier
	SessionCookie string
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
func RegisterRoutes(app *fiber.App, d Deps) {
	app.Get("/health", HealthCheck(d.Store))
	app.Get("/healthz", LivenessProbe())

	auth := middleware.RequireActor()

	listings := app.Group("/listings", middleware.Identity(d.Verifier, d.SessionCookie))
	listings.Get("/", ListListings(d.Listings))
	listings.Post("/", auth, CreateListing(d.Listings))
	listings.Get("/:id", ShowListing(d.Listings))
	listings.Get("/:id/edit", auth, EditListing(d.Listings))
	listings.Put("/:id", auth, UpdateListing(d.Listings))
	listings.Delete("/:id", auth, DeleteListing(d.Listings))

	listings.Post("/:id/reviews", auth, CreateReview(d.Reviews))
	listings.Delete("/:id/reviews/:reviewId", auth, DeleteReview(d.Reviews))
}

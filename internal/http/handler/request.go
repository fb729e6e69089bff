package handler

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"wanderlust/internal/imaging"
	"wanderlust/internal/model"
	"wanderlust/internal/service"
)

const (
	listingsPath = "/listings"
	loginPath    = "/login"

	imageField = "listing[image]"
)

func listingPath(id string) string {
	if id == "" {
		return listingsPath
	}
	return listingsPath + "/" + id
}

type listingBody struct {
	Listing *model.ListingFields `json:"listing"`
}

type reviewBody struct {
	Review *service.ReviewInput `json:"review"`
}

func isJSON(c *fiber.Ctx) bool {
	return strings.HasPrefix(strings.ToLower(c.Get(fiber.HeaderContentType)), fiber.MIMEApplicationJSON)
}

// formValue reports the value of a multipart or urlencoded field and whether it was sent.
func formValue(c *fiber.Ctx, key string) (string, bool) {
	if form, err := c.MultipartForm(); err == nil {
		vs, ok := form.Value[key]
		if !ok || len(vs) == 0 {
			return "", false
		}
		return vs[0], true
	}
	args := c.Request().PostArgs()
	if !args.Has(key) {
		return "", false
	}
	return string(args.Peek(key)), true
}

func formString(c *fiber.Ctx, key string) *string {
	v, ok := formValue(c, key)
	if !ok {
		return nil
	}
	return &v
}

// parseListingFields reads {"listing":{...}} from JSON bodies or listing[...] from forms.
func parseListingFields(c *fiber.Ctx) (*model.ListingFields, error) {
	if isJSON(c) {
		var body listingBody
		if err := c.BodyParser(&body); err != nil {
			return nil, &service.ValidationError{Field: "listing", Reason: "malformed request body"}
		}
		if body.Listing == nil {
			return &model.ListingFields{}, nil
		}
		return body.Listing, nil
	}

	f := &model.ListingFields{
		Title:       formString(c, "listing[title]"),
		Description: formString(c, "listing[description]"),
		Location:    formString(c, "listing[location]"),
		Country:     formString(c, "listing[country]"),
	}
	if raw, ok := formValue(c, "listing[price]"); ok && strings.TrimSpace(raw) != "" {
		p, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, &service.ValidationError{Field: "price", Reason: "price must be a number"}
		}
		f.Price = &p
	}
	return f, nil
}

// parseUpload returns the attached image, or nil when the request carries none.
// The returned closer must be called once the service has consumed the upload.
func parseUpload(c *fiber.Ctx) (*imaging.Upload, func(), error) {
	noop := func() {}
	if isJSON(c) {
		return nil, noop, nil
	}
	fh, err := c.FormFile(imageField)
	if err != nil {
		return nil, noop, nil
	}
	f, err := fh.Open()
	if err != nil {
		return nil, noop, &service.ValidationError{Field: "image", Reason: "cannot open uploaded file"}
	}
	ct := fh.Header.Get(fiber.HeaderContentType)
	if ct == "" {
		ct = "application/octet-stream"
	}
	return &imaging.Upload{Filename: fh.Filename, ContentType: ct, Size: fh.Size, Body: f}, func() { f.Close() }, nil
}

func parseReview(c *fiber.Ctx) (service.ReviewInput, error) {
	if isJSON(c) {
		var body reviewBody
		if err := c.BodyParser(&body); err != nil || body.Review == nil {
			return service.ReviewInput{}, &service.ValidationError{Field: "review", Reason: "review data is required"}
		}
		return *body.Review, nil
	}

	in := service.ReviewInput{}
	if raw, ok := formValue(c, "review[rating]"); ok {
		r, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return in, &service.ValidationError{Field: "rating", Reason: "rating must be a whole number"}
		}
		in.Rating = r
	}
	in.Comment, _ = formValue(c, "review[comment]")
	return in, nil
}

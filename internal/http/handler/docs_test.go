package handler

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wanderlust/docs"
)

func TestSwaggerHost(t *testing.T) {
	assert.Equal(t, "api.example.com", swaggerHost("api.example.com", "localhost:8080"))
	assert.Equal(t, "localhost:8080", swaggerHost("", "localhost:8080"))
	assert.Equal(t, "localhost:8080", swaggerHost("  ", "localhost:8080"))
}

func TestSwaggerDocs(t *testing.T) {
	app := fiber.New()
	app.Get("/swagger/*", SwaggerDocs("localhost:8080"))

	req := httptest.NewRequest("GET", "/swagger/doc.json", nil)
	req.Header.Set("X-Forwarded-Proto", "https, http")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "/listings")
	assert.Equal(t, "example.com", docs.SwaggerInfo.Host)
	assert.Equal(t, []string{"https"}, docs.SwaggerInfo.Schemes)
}

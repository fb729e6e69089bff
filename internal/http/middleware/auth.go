package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"wanderlust/internal/model"
)

// ActorLocalKey is the Fiber locals key holding the authenticated *model.Actor.
const ActorLocalKey = "actor"

// TokenVerifier turns a bearer or session token into an actor.
type TokenVerifier interface {
	Verify(token string) (model.Actor, error)
}

// Identity resolves the caller from "Authorization: Bearer <jwt>" or the session
// cookie. Missing or invalid credentials leave the request anonymous.
func Identity(v TokenVerifier, cookieName string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := ""
		if h := c.Get(fiber.HeaderAuthorization); len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
			token = strings.TrimSpace(h[7:])
		} else if cookieName != "" {
			token = c.Cookies(cookieName)
		}
		if token != "" {
			if actor, err := v.Verify(token); err == nil {
				c.Locals(ActorLocalKey, &actor)
			}
		}
		return c.Next()
	}
}

// RequireActor rejects anonymous requests with 401.
func RequireActor() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if ActorFrom(c) == nil {
			return fiber.ErrUnauthorized
		}
		return c.Next()
	}
}

// ActorFrom returns the actor stored by Identity, or nil.
func ActorFrom(c *fiber.Ctx) *model.Actor {
	a, _ := c.Locals(ActorLocalKey).(*model.Actor)
	return a
}

package middleware

import (
	"errors"

	"ibc-intranet/internal/adapters/session"
	"ibc-intranet/internal/config"
	"ibc-intranet/internal/core/domain"
	"ibc-intranet/internal/core/services"
	"ibc-intranet/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const sessionKey = "session"

// Session loads the session named by the cookie, exposes it to handlers and
// writes the cookie back when the handler changed the session ID.
func Session(store session.Store, cfg config.SessionConfig, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		incoming := c.Cookies(cfg.CookieName)

		sess := &domain.Session{}
		if incoming != "" {
			loaded, err := store.Get(c.UserContext(), incoming)
			switch {
			case err == nil:
				sess = loaded
			case errors.Is(err, domain.ErrSessionNotFound):
			default:
				// unreadable store: continue anonymous, auth checks will refuse
				logger.Error("failed to load session", zap.String("path", c.Path()), zap.Error(err))
			}
		}
		c.Locals(sessionKey, sess)

		err := c.Next()

		switch {
		case sess.ID == "" && incoming != "":
			c.ClearCookie(cfg.CookieName)
		case sess.ID != "" && sess.ID != incoming:
			c.Cookie(sessionCookie(cfg, sess.ID))
		}
		return err
	}
}

func sessionCookie(cfg config.SessionConfig, id string) *fiber.Cookie {
	return &fiber.Cookie{
		Name:     cfg.CookieName,
		Value:    id,
		Path:     "/",
		Domain:   cfg.Domain,
		Secure:   cfg.Secure,
		HTTPOnly: true,
		SameSite: cfg.SameSite,
	}
}

// SessionFrom returns the request session. It is never nil once Session ran.
func SessionFrom(c *fiber.Ctx) *domain.Session {
	if sess, ok := c.Locals(sessionKey).(*domain.Session); ok {
		return sess
	}
	return &domain.Session{}
}

// ActorFrom returns the authenticated caller
func ActorFrom(c *fiber.Ctx) domain.Actor {
	return domain.ActorFromSession(SessionFrom(c))
}

// RequireAuth rejects requests without a live session and refreshes its activity
func RequireAuth(auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess := SessionFrom(c)
		if !auth.Check(c.UserContext(), sess) {
			return response.Unauthorized(c, domain.ErrSessionExpired.Code, "Authentication required")
		}

		c.Locals("userID", sess.UserID)
		c.Locals("role", sess.Role)
		return c.Next()
	}
}

// RequirePermission allows roles ranked at least the permission's minimum role.
// Must run after RequireAuth.
func RequirePermission(perm domain.Permission) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, ok := c.Locals("role").(domain.Role)
		if !ok {
			return response.Unauthorized(c, domain.ErrSessionExpired.Code, "Authentication required")
		}
		if !domain.Grants(role, perm) {
			return response.Forbidden(c, domain.ErrForbidden.Code, "You don't have permission to access this resource")
		}
		return c.Next()
	}
}

// RequireRole allows exactly the given role, independent of rank.
// Must run after RequireAuth.
func RequireRole(required domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, ok := c.Locals("role").(domain.Role)
		if !ok {
			return response.Unauthorized(c, domain.ErrSessionExpired.Code, "Authentication required")
		}
		if !domain.ExactMatch(role, required) {
			return response.Forbidden(c, domain.ErrForbidden.Code, "You don't have permission to access this resource")
		}
		return c.Next()
	}
}

// CSRF verifies the anti-forgery token on state-changing requests.
// The token comes from the X-CSRF-Token header or the csrf_token form field.
func CSRF(csrf *services.CSRFService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		switch c.Method() {
		case fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions:
			return c.Next()
		}

		token := c.Get("X-CSRF-Token")
		if token == "" {
			token = c.FormValue("csrf_token")
		}
		if err := csrf.VerifyToken(SessionFrom(c), token); err != nil {
			return response.Forbidden(c, domain.ErrCSRFMismatch.Code, "Invalid or missing CSRF token")
		}
		return c.Next()
	}
}

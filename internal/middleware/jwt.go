package middleware // reusable HTTP middleware for the API

import (
	"errors" // errors.Is distinguishes expired tokens from other failures

	"github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

	"github.com/iliyamo/speaknote/internal/apierr" // typed API errors rendered by the central handler
	"github.com/iliyamo/speaknote/internal/utils"  // token parsing and verification helpers
)

// JWTAuth returns an Echo middleware that validates a Bearer token and
// stores the authenticated user id (int64) in the context under userIDKey.
// The secret must match the one used when issuing tokens. Failures are
// returned as *apierr.Error so the central error handler renders them.
func JWTAuth(secret string) echo.MiddlewareFunc {
	// Echo calls the outer function once when the middleware is registered.
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		// The returned handler runs for every request on a protected route.
		return func(c echo.Context) error {
			// Pull the raw token out of "Authorization: Bearer <token>".
			// A missing header or wrong scheme is reported as unauthenticated.
			raw, err := utils.BearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if err != nil {
				return apierr.Unauthenticated("missing bearer token")
			}

			// Verify signature, algorithm and expiry, and read the subject.
			id, err := utils.VerifyToken(secret, raw)
			switch {
			case err == nil:
			case errors.Is(err, utils.ErrTokenExpired):
				// expired tokens get their own code so clients can re-login
				return apierr.TokenExpired(err)
			default:
				return apierr.InvalidToken(err)
			}

			// Handlers read the caller through UserID(c).
			c.Set(userIDKey, id)
			// Continue down the chain.
			return next(c)
		}
	}
}

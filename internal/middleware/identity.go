package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const userIDKey = "user_id"

// UserID returns the id stored by JWTAuth. ok is false on unauthenticated
// routes.
func UserID(c echo.Context) (int64, bool) {
	switch v := c.Get(userIDKey).(type) {
	case int64:
		return v, v > 0
	case int:
		return int64(v), v > 0
	default:
		return 0, false
	}
}

// SetUserID is used by tests and by handlers that authenticate inline.
func SetUserID(c echo.Context, id int64) { c.Set(userIDKey, id) }

// userKey renders the user id for cache and rate-limit keys; "anon" when
// the request is unauthenticated.
func userKey(c echo.Context) string {
	if id, ok := UserID(c); ok {
		return strconv.FormatInt(id, 10)
	}
	return "anon"
}

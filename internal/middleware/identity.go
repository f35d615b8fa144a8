package middleware

// identity.go holds the accessors for the identity JWTAuth stores in the
// Echo context.

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// UserID returns the authenticated user id.
func UserID(c echo.Context) (uint64, bool) {
	switch v := c.Get(CtxUserID).(type) {
	case uint64:
		return v, v != 0
	case int64:
		return uint64(v), v > 0
	case float64:
		return uint64(v), v > 0
	case string:
		n, err := strconv.ParseUint(v, 10, 64)
		return n, err == nil && n != 0
	}
	return 0, false
}

// Role returns the authenticated role.
func Role(c echo.Context) (string, bool) {
	r, ok := c.Get(CtxRole).(string)
	return r, ok && r != ""
}

// identityKey identifies the caller in cache and rate limit keys.  It
// returns "anon" when no user is authenticated.
func identityKey(c echo.Context) string {
	if id, ok := UserID(c); ok {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}

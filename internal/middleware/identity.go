package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/slms/leave-service/internal/model"
)

// Context keys set by Guard.Require.
const (
	UserKey  = "user"
	TokenKey = "token"
)

// CurrentUser returns the user bound by the guard.
func CurrentUser(c echo.Context) (*model.User, bool) {
	u, ok := c.Get(UserKey).(*model.User)
	return u, ok && u != nil
}

// CurrentToken returns the bearer token the guard accepted.
func CurrentToken(c echo.Context) string {
	s, _ := c.Get(TokenKey).(string)
	return s
}

// userID is the request owner as used in rate limit keys and logs; "guest"
// before authentication.
func userID(c echo.Context) string {
	if u, ok := CurrentUser(c); ok {
		return strconv.FormatUint(u.ID, 10)
	}
	return "guest"
}

package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/slms/leave-service/internal/apperr"
	"github.com/slms/leave-service/internal/model"
	"github.com/slms/leave-service/internal/session"
)

// TokenVerifier resolves a bearer token to the id of the user it was
// issued to.
type TokenVerifier interface {
	Verify(raw string) (uint64, error)
}

// Guard authenticates requests against the session store.  A token is
// accepted only while it is the one cached for its user, so removing the
// entry revokes it even though the signature is still valid.
type Guard struct {
	verifier TokenVerifier
	sessions session.Store
	log      logrus.FieldLogger
}

func NewGuard(verifier TokenVerifier, sessions session.Store, log logrus.FieldLogger) *Guard {
	return &Guard{verifier: verifier, sessions: sessions, log: log}
}

// Require admits active users whose role is one of roles.  With no roles
// any authenticated user passes.  The user and the raw token are bound
// to the echo context under UserKey and TokenKey.
func (g *Guard) Require(roles ...model.Role) echo.MiddlewareFunc {
	allowed := make(map[model.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearer(c.Request())
			if !ok {
				return deny(c, apperr.Unauthorized(apperr.MsgSessionExpired), "missing bearer token")
			}
			id, err := g.verifier.Verify(raw)
			if err != nil {
				return deny(c, apperr.Unauthorized(apperr.MsgSessionExpired), err.Error())
			}
			e, found, err := g.sessions.Get(c.Request().Context(), id)
			if err != nil {
				g.log.WithError(err).WithField("user_id", id).Error("session lookup failed")
				return deny(c, apperr.Internal(err), "session store unavailable")
			}
			if !found || e.Token != raw || e.User == nil {
				return deny(c, apperr.Unauthorized(apperr.MsgSessionExpired), "no active session")
			}
			if !e.User.IsActive() {
				return deny(c, apperr.Unauthorized(apperr.MsgAccountInactive), "account inactive")
			}
			if len(allowed) > 0 && !allowed[e.User.Role] {
				return deny(c, apperr.Forbidden(apperr.MsgUnauthorized), "role not allowed")
			}
			c.Set(UserKey, e.User)
			c.Set(TokenKey, raw)
			return next(c)
		}
	}
}

func bearer(r *http.Request) (string, bool) {
	h := r.Header.Get(echo.HeaderAuthorization)
	const prefix = "Bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	raw := strings.TrimSpace(h[len(prefix):])
	return raw, raw != ""
}

// deny writes the guard's own body shape; it never reaches the echo error
// handler.
func deny(c echo.Context, e *apperr.Error, cause string) error {
	return c.JSON(e.Status, echo.Map{"message": e.Message, "error": cause})
}

package middleware

import (
	"net/http"
	"strings"

	"domain-auction/internal/domain"
	"domain-auction/pkg/apperrors"
	"domain-auction/pkg/logger"

	"github.com/labstack/echo/v4"
)

const callerIDKey = "caller_id"

// BearerAuth resolves the Authorization header to a caller identity before
// any handler runs. Requests without a valid token never reach the handler.
func BearerAuth(authn domain.Authenticator, log logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing bearer token"})
			}

			callerID, err := authn.Authenticate(c.Request().Context(), token)
			if err != nil {
				log.Debug("Rejected bearer token", "path", c.Path(), "error", err)
				return c.JSON(apperrors.HTTPStatus(err), map[string]string{"error": apperrors.PublicMessage(err)})
			}

			c.Set(callerIDKey, callerID)
			return next(c)
		}
	}
}

// CallerID returns the identity set by BearerAuth, or "".
func CallerID(c echo.Context) string {
	id, _ := c.Get(callerIDKey).(string)
	return id
}

func bearerToken(header string) (string, bool) {
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}

package middleware

import (
	"net/http"
	"strings"

	"github.com/vibast-solutions/ms-go-desk-lookup/app/service"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

type sessionTokenValidator interface {
	ValidateSessionToken(tokenString string) (*service.SessionClaims, error)
}

type SessionMiddleware struct {
	sessionService sessionTokenValidator
}

func NewSessionMiddleware(sessionService sessionTokenValidator) *SessionMiddleware {
	return &SessionMiddleware{sessionService: sessionService}
}

func (m *SessionMiddleware) RequireSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			logrus.Debug("Missing authorization header")
			return c.JSON(http.StatusUnauthorized, map[string]string{
				"error": "missing authorization header",
			})
		}

		parts := strings.Fields(authHeader)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			logrus.Debug("Invalid authorization header format")
			return c.JSON(http.StatusUnauthorized, map[string]string{
				"error": "invalid authorization header format",
			})
		}

		claims, err := m.sessionService.ValidateSessionToken(parts[1])
		if err != nil {
			logrus.Debug("Invalid or expired session token")
			return c.JSON(http.StatusUnauthorized, map[string]string{
				"error": "invalid or expired token",
			})
		}

		c.Set("session_id", claims.TokenID)

		return next(c)
	}
}

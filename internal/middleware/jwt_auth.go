package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
)

// EventAudience is the audience pushed event tokens must carry.
const EventAudience = "cockatiel-companion-events"

// EventTokenMiddleware guards event push endpoints. Publishers sign a short-lived HS256 token
// with the shared secret and send it as a bearer token.
func EventTokenMiddleware(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			scheme, tokenString, ok := strings.Cut(c.Request().Header.Get(echo.HeaderAuthorization), " ")
			if !ok || !strings.EqualFold(scheme, "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "Missing event token")
			}

			claims := &jwt.RegisteredClaims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, errors.New("unexpected signing method")
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid event token").SetInternal(err)
			}
			if !claims.VerifyAudience(EventAudience, true) {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid event token audience")
			}
			if claims.ExpiresAt == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Event token must expire")
			}
			return next(c)
		}
	}
}

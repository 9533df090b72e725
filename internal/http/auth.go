package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	v1 "github.com/fyrsmithlabs/chunkopt/pkg/api/v1"

	"github.com/fyrsmithlabs/chunkopt/internal/config"
)

// HeaderAPIKey carries the API key. A bearer token in Authorization is also
// accepted.
const HeaderAPIKey = "X-API-Key"

// keyAuth returns middleware that accepts requests carrying key.
func keyAuth(key config.Secret) echo.MiddlewareFunc {
	return middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
		KeyLookup: "header:" + HeaderAPIKey + ",header:" + echo.HeaderAuthorization + ":Bearer ",
		Validator: func(candidate string, _ echo.Context) (bool, error) {
			return key.Matches(candidate), nil
		},
		ErrorHandler: func(error, echo.Context) error {
			return echo.NewHTTPError(http.StatusUnauthorized, v1.ErrUnauthorized.Error())
		},
	})
}

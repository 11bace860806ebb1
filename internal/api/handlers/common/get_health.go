package common

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github/chapool/relayer/internal/api"
)

// GetHealthRoute returns the operator address, the home chain and the liveness of every chain.
func GetHealthRoute(s *api.Server) *echo.Route {
	return s.Router.Management.GET("/health", getHealthHandler(s))
}

func getHealthHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), s.Config.Management.ProbeTimeout)
		defer cancel()

		return c.JSON(http.StatusOK, s.Relayer.Health(ctx))
	}
}

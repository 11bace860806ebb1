package common

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github/chapool/relayer/internal/api"
	"github/chapool/relayer/internal/api/httperrors"
	"github/chapool/relayer/internal/util"
)

func GetReadyRoute(s *api.Server) *echo.Route {
	return s.Router.Management.GET("/ready", getReadyHandler(s))
}

// getReadyHandler reports ready once every component is set up and every configured chain
// answers within the probe timeout.
func getReadyHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !s.Ready() {
			return c.String(httperrors.ErrNotReady.Code, httperrors.ErrNotReady.Title)
		}

		ctx, cancel := context.WithTimeout(c.Request().Context(), s.Config.Management.ProbeTimeout)
		defer cancel()

		for _, res := range s.Chains.Probe(ctx) {
			if !res.Reachable {
				util.LogFromContext(ctx).Warn().
					Int64("chain_id", res.ChainID).
					Str("error", res.Error).
					Msg("Readiness probe failed")
				return c.String(httperrors.ErrNotReady.Code, httperrors.ErrNotReady.Title)
			}
		}

		return c.String(http.StatusOK, "Ready.")
	}
}

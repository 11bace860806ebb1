package handlers

import (
	"github.com/labstack/echo/v4"
	"github/chapool/relayer/internal/api"
	"github/chapool/relayer/internal/api/handlers/common"
)

func AttachAllRoutes(s *api.Server) {
	// attach our routes
	s.Router.Routes = []*echo.Route{
		common.GetHealthyRoute(s),
		common.GetReadyRoute(s),
		common.GetHealthRoute(s),
		common.GetVersionRoute(s),
		common.GetMetricsRoute(s),
	}
}

package router

import (
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"
	"github/chapool/relayer/internal/api"
	"github/chapool/relayer/internal/api/handlers"
	"github/chapool/relayer/internal/api/httperrors"
)

func Init(s *api.Server) {
	s.Echo = echo.New()

	s.Echo.Debug = false
	s.Echo.HideBanner = true
	s.Echo.HidePort = true
	s.Echo.HTTPErrorHandler = HTTPErrorHandler

	s.Echo.Pre(echoMiddleware.RemoveTrailingSlash())
	s.Echo.Use(echoMiddleware.Recover())
	s.Echo.Use(echoMiddleware.RequestID())
	s.Echo.Use(echoMiddleware.RequestLoggerWithConfig(echoMiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogRequestID: true,
		LogLatency:   true,
		LogValuesFunc: func(_ echo.Context, v echoMiddleware.RequestLoggerValues) error {
			log.Debug().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Str("request_id", v.RequestID).
				Dur("latency", v.Latency).
				Msg("Request")
			return nil
		},
	}))

	s.Router = &api.Router{
		Routes:     nil, // will be populated by handlers.AttachAllRoutes(s)
		Root:       s.Echo.Group(""),
		Management: s.Echo.Group("/-"),
	}

	handlers.AttachAllRoutes(s)
}

// HTTPErrorHandler renders every error as httperrors.HTTPError JSON.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	httpErr := httperrors.FromError(err)
	if httpErr.Code >= 500 {
		log.Error().Err(err).Str("uri", c.Request().RequestURI).Msg("Request failed")
	}

	if err := c.JSON(httpErr.Code, httpErr); err != nil {
		log.Error().Err(err).Msg("Failed to render error")
	}
}

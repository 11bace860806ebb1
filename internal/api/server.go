package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/dropbox/godropbox/time2"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github/chapool/relayer/internal/config"
	"github/chapool/relayer/internal/metrics"
	"github/chapool/relayer/internal/relayer"
	"github/chapool/relayer/internal/relayer/chain"
	"github/chapool/relayer/internal/relayer/nonce"
	"github/chapool/relayer/internal/relayer/signer"
	"github/chapool/relayer/internal/util"
)

type Router struct {
	Routes     []*echo.Route
	Root       *echo.Group
	Management *echo.Group
}

// Server is a central struct keeping all the dependencies.
// It is initialized with wire, which handles making the new instances of the components
// in the right order. To add a new component, 3 steps are required:
// - declaring it in this struct
// - adding a provider function in providers.go
// - adding the provider's function name to the arguments of wire.Build() in wire.go
//
// Components labeled as `wire:"-"` will be skipped and have to be initialized after the InitNewServer* call.
// For more information about wire refer to https://pkg.go.dev/github.com/google/wire
type Server struct {
	// skip wire:
	// -> initialized with router.Init(s) function
	Echo   *echo.Echo `wire:"-"`
	Router *Router    `wire:"-"`

	Config  config.Server
	Clock   time2.Clock
	Metrics *metrics.Service
	Locker  nonce.Locker
	Chains  chain.Registry
	Signer  signer.Signer
	Relayer relayer.Service
}

// newServerWithComponents is used by wire to initialize the server components.
// Components not listed here won't be handled by wire and should be initialized separately.
// Components which shouldn't be handled must be labeled `wire:"-"` in Server struct.
func newServerWithComponents(
	cfg config.Server,
	clock time2.Clock,
	metrics *metrics.Service,
	locker nonce.Locker,
	chains chain.Registry,
	signer signer.Signer,
	relayer relayer.Service,
) *Server {
	return &Server{
		Config:  cfg,
		Clock:   clock,
		Metrics: metrics,
		Locker:  locker,
		Chains:  chains,
		Signer:  signer,
		Relayer: relayer,
	}
}

func NewServer(config config.Server) *Server {
	s := &Server{
		Config: config,
	}

	return s
}

func (s *Server) Ready() bool {
	if err := util.IsStructInitialized(s); err != nil {
		log.Debug().Err(err).Msg("Server is not fully initialized")
		return false
	}

	return true
}

func (s *Server) Start() error {
	if !s.Ready() {
		return errors.New("server is not ready")
	}

	if err := s.Echo.Start(s.Config.Management.ListenAddress); err != nil {
		return fmt.Errorf("failed to start echo server: %w", err)
	}

	return nil
}

func (s *Server) Shutdown(ctx context.Context) []error {
	log.Warn().Msg("Shutting down server")

	var errs []error

	if s.Echo != nil {
		log.Debug().Msg("Shutting down echo server")

		if err := s.Echo.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Failed to shutdown echo server")
			errs = append(errs, err)
		}
	}

	if s.Chains != nil {
		log.Debug().Msg("Closing chain connections")
		s.Chains.Close()
	}

	if c, ok := s.Locker.(io.Closer); ok {
		log.Debug().Msg("Closing nonce lock backend")

		if err := c.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close nonce lock backend")
			errs = append(errs, err)
		}
	}

	return errs
}

package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"golang.org/x/net/netutil"
	"golang.org/x/sync/errgroup"

	"github.com/worksuite/identity-api/config"
	domainauth "github.com/worksuite/identity-api/internal/domain/auth"
	httpx "github.com/worksuite/identity-api/internal/http"
	"github.com/worksuite/identity-api/internal/service"
)

// HTTPServerConfig contains dependencies for the HTTP server.
type HTTPServerConfig struct {
	Config *config.AppConfig
	Auth   *service.AuthService
	Logger *slog.Logger
}

// RunHTTPServer builds the handler stack, starts listening, and blocks until
// ctx is canceled or the listener fails. On cancellation it drains in-flight
// requests within the configured shutdown timeout.
func RunHTTPServer(ctx context.Context, cfg *HTTPServerConfig) error {
	if cfg == nil || cfg.Config == nil {
		return errors.New("http server config is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	httpCfg := cfg.Config.HTTP
	server := &http.Server{
		Addr:         httpCfg.Addr,
		Handler:      buildHTTPHandler(cfg, logger),
		ReadTimeout:  httpCfg.ReadTimeout,
		WriteTimeout: httpCfg.WriteTimeout,
		IdleTimeout:  httpCfg.IdleTimeout,
	}
	if server.Addr == "" {
		server.Addr = ":8080"
	}

	listener, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", server.Addr, err)
	}
	if httpCfg.MaxConns > 0 {
		logger.Info("limiting concurrent connections", "max_conns", httpCfg.MaxConns)
		listener = netutil.LimitListener(listener, httpCfg.MaxConns)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting HTTP server", "addr", server.Addr)
		if serveErr := server.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", serveErr)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), httpCfg.ShutdownTimeout)
		defer cancel()

		if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
			return fmt.Errorf("shutdown http server: %w", shutdownErr)
		}
		logger.Info("HTTP server stopped")
		return nil
	})

	return g.Wait()
}

func buildHTTPHandler(cfg *HTTPServerConfig, logger *slog.Logger) http.Handler {
	router := httpx.NewRouter(httpx.RouterServices{
		Auth:         cfg.Auth,
		Routes:       domainauth.DefaultRouteTable(),
		CookieDomain: cfg.Config.HTTP.CookieDomain,
		SSOEnabled:   cfg.Config.Auth.SSOEnabled(),
		Logger:       logger,
	})

	// Order: Recover -> Logging -> Router
	h := httpx.Logging(logger)(router)
	h = httpx.Recover(logger)(h)
	return h
}

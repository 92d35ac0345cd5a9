package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"fintrack/internal/shared/config"
	applog "fintrack/internal/shared/log"
	"fintrack/internal/shared/middleware"
)

type ServerConfig struct {
	Handler      http.Handler
	Addr         string
	TLSEnabled   bool
	CertPath     string
	KeyPath      string
	RedirectHTTP bool
	AllowedHosts []string
}

func newHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// StartServers starts the API server and, with TLS redirect enabled, a plain
// HTTP server on :80 that redirects to HTTPS. A fatal error from the API
// server is delivered on the returned channel.
func StartServers(scfg ServerConfig, logger zerolog.Logger) (*http.Server, *http.Server, <-chan error) {
	logger = applog.Component(logger, applog.ComponentHTTP)
	srv := newHTTPServer(scfg.Addr, scfg.Handler)
	errs := make(chan error, 1)

	var redirectSrv *http.Server
	if scfg.TLSEnabled && scfg.RedirectHTTP {
		redirectSrv = newHTTPServer(":80", redirectHandler(scfg.AllowedHosts))
		go func() {
			logger.Info().Str("addr", redirectSrv.Addr).Msg("HTTP redirect server starting")
			if err := redirectSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("HTTP redirect server error")
			}
		}()
	}

	go func() {
		var err error
		if scfg.TLSEnabled {
			logger.Info().Str("addr", scfg.Addr).Msg("HTTPS server starting")
			err = srv.ListenAndServeTLS(scfg.CertPath, scfg.KeyPath)
		} else {
			logger.Info().Str("addr", scfg.Addr).Msg("HTTP server starting")
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()

	return srv, redirectSrv, errs
}

func GracefulShutdown(srv, redirectSrv *http.Server, timeout time.Duration, logger zerolog.Logger) {
	logger.Info().Msg("server shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if redirectSrv != nil {
		if err := redirectSrv.Shutdown(ctx); err != nil {
			logger.Error().Err(err).Msg("error shutting down HTTP redirect server")
		}
	}
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("error shutting down server")
	}

	logger.Info().Msg("server stopped")
}

func redirectHandler(allowedHosts []string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host := r.Header.Get("X-Forwarded-Host")
		if host == "" {
			host = r.Host
		}

		if !middleware.IsHostAllowed(host, allowedHosts) {
			http.Error(w, "Invalid host", http.StatusBadRequest)
			return
		}

		if h, _, err := net.SplitHostPort(host); err == nil {
			host = h
		}
		http.Redirect(w, r, "https://"+host+r.RequestURI, http.StatusMovedPermanently)
	})
}

func NewServerConfigFromConfig(handler http.Handler, cfg *config.Config) ServerConfig {
	return ServerConfig{
		Handler:      handler,
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		TLSEnabled:   cfg.TLS.Enabled,
		CertPath:     cfg.TLS.CertPath,
		KeyPath:      cfg.TLS.KeyPath,
		RedirectHTTP: cfg.TLS.RedirectHTTP,
		AllowedHosts: cfg.Server.AllowedHosts,
	}
}

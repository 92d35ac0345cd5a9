package main

import (
	"net/http"

	"github.com/rs/zerolog"

	"fintrack/internal/shared/config"
	"fintrack/internal/shared/middleware"
)

// SetupRoutes configures all HTTP routes and returns the final handler with middleware.
func SetupRoutes(deps *Dependencies, cfg *config.Config, logger zerolog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", deps.HealthHandler.HandleHealth)

	// Public auth routes
	mux.HandleFunc("/api/auth/register", deps.AuthHandler.HandleRegister)
	mux.HandleFunc("/api/auth/login", deps.AuthHandler.HandleLogin)
	mux.HandleFunc("/api/auth/logout", deps.AuthHandler.HandleLogout)

	// Protected routes
	authMiddleware := middleware.Auth(deps.JWT)
	protect := func(h http.HandlerFunc) http.Handler {
		return authMiddleware(h)
	}

	mux.Handle("/api/users/me", protect(deps.UserHandler.HandleMe))
	mux.Handle("/api/accounts", protect(deps.AccountHandler.HandleAccounts))
	mux.Handle("/api/accounts/{id}", protect(deps.AccountHandler.HandleAccountByID))
	mux.Handle("/api/categories", protect(deps.CategoryHandler.HandleCategories))
	mux.Handle("/api/categories/{id}", protect(deps.CategoryHandler.HandleCategoryByID))
	mux.Handle("/api/transactions", protect(deps.TransactionHandler.HandleTransactions))
	mux.Handle("/api/transactions/{id}", protect(deps.TransactionHandler.HandleTransactionByID))
	mux.Handle("/api/recurring", protect(deps.RecurringHandler.HandleRecurring))
	mux.Handle("/api/recurring/materialize", protect(deps.RecurringHandler.HandleMaterialize))
	mux.Handle("/api/recurring/{id}", protect(deps.RecurringHandler.HandleRecurringByID))

	handler := middleware.CORS(cfg.Server.AllowedHosts)(mux)
	handler = middleware.Logging(logger)(handler)

	if cfg.TLS.Enabled {
		handler = middleware.HSTS(middleware.SecureCookies(handler))
		logger.Info().Msg("TLS security middleware enabled (HSTS + SecureCookies)")
	}

	if cfg.Telemetry.Enabled {
		handler = middleware.Telemetry(cfg.Telemetry.ServiceName)(handler)
	}

	return handler
}

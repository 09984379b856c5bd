package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/cards-api/internal/api"
	apiMiddleware "github.com/phrazzld/cards-api/internal/api/middleware"
	"github.com/phrazzld/cards-api/internal/domain"
)

// setupRouter creates and configures the application router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.NewTraceMiddleware(app.logger))

	authHandler := api.NewAuthHandler(app.sessions, app.logger)
	cardHandler := api.NewCardHandler(app.cardService, app.ledger, app.logger)
	userHandler := api.NewUserHandler(app.userService, app.logger)
	authMiddleware := apiMiddleware.NewAuthMiddleware(app.sessions, app.userService)

	r.Route("/api", func(r chi.Router) {
		// Authentication endpoints (public)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/logout", authHandler.Logout)
		r.Post("/auth/refresh-tokens", authHandler.RefreshTokens)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			// Card holder endpoints
			r.Get("/cards/me", cardHandler.ListMyCards)
			r.Post("/cards/me/block-request", cardHandler.RequestBlock)
			r.Post("/cards/me/balance", cardHandler.GetBalance)
			r.Post("/cards/me/transfers", cardHandler.Transfer)

			// Administration endpoints
			r.Group(func(r chi.Router) {
				r.Use(apiMiddleware.RequireRole(domain.RoleAdmin))

				r.Post("/cards", cardHandler.CreateCard)
				r.Delete("/cards", cardHandler.DeleteCard)
				r.Get("/cards", cardHandler.ListCards)
				r.Put("/cards/status", cardHandler.ChangeCardStatus)
				r.Get("/cards/block-requests", cardHandler.ListBlockRequests)

				r.Post("/users", userHandler.CreateUser)
				r.Put("/users/status", userHandler.ChangeUserStatus)
			})
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})

	return r
}

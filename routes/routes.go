package routes

import (
	"github.com/bekarys-dev/championship-system/handlers"
	"github.com/bekarys-dev/championship-system/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware" // Alias to avoid conflict
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
)

func SetupRoutes(
	router *chi.Mux,
	jwtSecret string,
	authHandler *handlers.AuthHandler,
	sessionHandler *handlers.SessionHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Post("/auth/admin", authHandler.Login)

	router.Get("/ws/sessions/{sessionID}", webSocketHandler.ServeWs)

	router.Route("/sessions", func(r chi.Router) {
		// Публичные маршруты для зрителей
		r.Get("/{sessionID}", sessionHandler.GetSession)
		r.Get("/{sessionID}/results", sessionHandler.ListResults)
		r.Post("/{sessionID}/register", sessionHandler.Register)

		// Защищенные маршруты только для администратора
		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate([]byte(jwtSecret)))
			r.Use(middleware.RequireAdmin)

			r.Post("/", sessionHandler.CreateSession)
			r.Post("/{sessionID}/qualification", sessionHandler.StartQualification)
			r.Patch("/{sessionID}/qualification/{participantID}/score", sessionHandler.SetScore)
			r.Post("/{sessionID}/bracket", sessionHandler.GenerateBracket)
			r.Post("/{sessionID}/matches/{matchID}/winner", sessionHandler.SetMatchWinner)
			r.Post("/{sessionID}/championship", sessionHandler.ReturnToChampionship)
			r.Post("/{sessionID}/reset", sessionHandler.ResetSeason)
		})
	})

	router.Get("/swagger/*", httpSwagger.WrapHandler)
}

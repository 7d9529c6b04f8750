package main

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/hmaged/tutorbase/internal/config"
	"github.com/hmaged/tutorbase/internal/database"
	"github.com/hmaged/tutorbase/internal/group"
	"github.com/hmaged/tutorbase/internal/notification"
	"github.com/hmaged/tutorbase/internal/request"
	"github.com/hmaged/tutorbase/internal/subscription"
	"github.com/hmaged/tutorbase/internal/user"
	mw "github.com/hmaged/tutorbase/pkg/middleware"
)

// @title        Tutorbase API
// @version      1.0
// @description  Tutoring-center back-office API: groups, membership, requests, packages.
func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg := config.Load()

	// Initialize database connection
	db, err := database.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to apply schema: %v", err)
	}

	log.Println("Connected to database successfully")

	// User feature (also backs the session middleware)
	userRepo := user.NewRepository(db)
	userService := user.NewService(userRepo)
	userHandler := user.NewHandler(userService)

	// Group feature: catalog + membership ledger
	groupRepo := group.NewRepository(db)
	groupService := group.NewService(groupRepo, userService)
	groupHandler := group.NewHandler(groupService)

	// Notifications (fed by the request workflow)
	notificationRepo := notification.NewRepository(db)
	notificationService := notification.NewService(notificationRepo, groupService)
	notificationHandler := notification.NewHandler(notificationService)

	// Request workflow (consumes the membership ledger on approval)
	requestRepo := request.NewRepository(db)
	requestService := request.NewService(requestRepo, groupService, notificationService)
	requestHandler := request.NewHandler(requestService)

	// Package subscriptions
	subscriptionRepo := subscription.NewRepository(db)
	subscriptionService := subscription.NewService(subscriptionRepo, userService)
	subscriptionHandler := subscription.NewHandler(subscriptionService)

	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	// Authenticated API routes
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(userService))

		r.Route("/users", userHandler.Register)
		r.Route("/packages", subscriptionHandler.Register)
		r.Route("/notifications", notificationHandler.Register)
		r.Route("/groups", func(r chi.Router) {
			groupHandler.Register(r)
			requestHandler.Register(r)
		})
	})

	// Start server
	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s", port)
	if err := http.ListenAndServe(":"+port, r); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}

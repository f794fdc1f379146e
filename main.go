package main

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"github.com/avery-hart/librarysysbackend/config"
	"github.com/avery-hart/librarysysbackend/database"
	"github.com/avery-hart/librarysysbackend/handlers"
	"github.com/avery-hart/librarysysbackend/models"
	"github.com/avery-hart/librarysysbackend/permissions"
	"github.com/avery-hart/librarysysbackend/repository"
	"github.com/avery-hart/librarysysbackend/services"
)

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Printf("Info: No .env file found or error loading: %v", err)
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	gormDB, err := database.InitGormDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize database: %v", err)
	}
	if err := database.AutoMigrateModels(gormDB); err != nil {
		log.Fatalf("FATAL: Failed to run database migrations: %v", err)
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		log.Fatalf("FATAL: Failed to access database handle: %v", err)
	}
	defer sqlDB.Close()

	userRepo := repository.NewGormUserRepository(gormDB)
	bookRepo := repository.NewGormBookRepository(gormDB)
	borrowRepo := repository.NewGormBorrowRepository(gormDB)
	borrowService := services.NewBorrowService(borrowRepo, bookRepo)
	reportStore := database.NewReportStore(sqlDB)

	ensureFirstSuperuser(userRepo, cfg)

	log.Printf("Using database: %s", cfg.DatabasePath)

	r := chi.NewRouter()

	corsOptions := cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	corsHandler := cors.New(corsOptions)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(corsHandler.Handler)

	authHandler := &handlers.AuthHandler{UserRepo: userRepo, Cfg: cfg}
	userHandler := &handlers.UserHandler{UserRepo: userRepo, Cfg: cfg}
	permissionHandler := &handlers.PermissionHandler{UserRepo: userRepo}
	bookHandler := &handlers.BookHandler{BookRepo: bookRepo, Cfg: cfg}
	borrowHandler := &handlers.BorrowHandler{Service: borrowService, Cfg: cfg}
	reportHandler := &handlers.ReportHandler{Reports: reportStore}

	requireAuth := handlers.AuthMiddleware(userRepo, cfg)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/login/access-token", authHandler.LoginAccessToken)
		r.With(requireAuth).Post("/login/test-token", authHandler.TestToken)

		r.Post("/users/signup", userHandler.SignUp)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Route("/users", func(r chi.Router) {
				r.Route("/me", func(r chi.Router) {
					r.Get("/", userHandler.GetMe)
					r.Patch("/", userHandler.UpdateMe)
					r.Patch("/password", userHandler.UpdateMyPassword)
					r.Delete("/", userHandler.DeleteMe)
				})

				r.With(handlers.RequireSuperuser).Get("/", userHandler.ListUsers)
				r.With(handlers.RequireSuperuser).Post("/", userHandler.CreateUser)

				r.Route("/{user_id}", func(r chi.Router) {
					// self-or-superuser is enforced inside the handler
					r.Get("/", userHandler.GetUser)
					r.With(handlers.RequireSuperuser).Patch("/", userHandler.UpdateUser)
					r.With(handlers.RequireSuperuser).Delete("/", userHandler.DeleteUser)

					r.Get("/permissions", permissionHandler.GetUserEffectivePermissions)
					r.Route("/permissions/overrides", func(r chi.Router) {
						r.Use(handlers.RequireSuperuser)
						r.Get("/", permissionHandler.ListOverrides)
						r.Post("/", permissionHandler.CreateOverride)
						r.Delete("/{override_id}", permissionHandler.DeleteOverride)
					})
				})
			})

			r.Get("/permissions", permissionHandler.GetPermissionCatalog)

			r.Route("/books", func(r chi.Router) {
				r.With(handlers.RequirePermissions(permissions.BooksCreate)).Post("/", bookHandler.CreateBook)
				r.With(handlers.RequirePermissions(permissions.BooksRead)).Get("/", bookHandler.ListBooks)
				r.Route("/{book_id}", func(r chi.Router) {
					r.With(handlers.RequirePermissions(permissions.BooksRead)).Get("/", bookHandler.GetBook)
					r.With(handlers.RequirePermissions(permissions.BooksUpdate)).Patch("/", bookHandler.UpdateBook)
					r.With(handlers.RequirePermissions(permissions.BooksDelete)).Delete("/", bookHandler.DeleteBook)
				})
			})

			r.Route("/borrows", func(r chi.Router) {
				r.With(handlers.RequirePermissions(permissions.BorrowsCreate)).Post("/", borrowHandler.BorrowBook)
				r.With(handlers.RequirePermissions(permissions.BorrowsRead)).Get("/me", borrowHandler.ListMyBorrows)
				r.With(handlers.RequirePermissions(permissions.BorrowsReadAll)).Get("/", borrowHandler.ListAllBorrows)
				r.Route("/{borrow_id}", func(r chi.Router) {
					r.With(handlers.RequireAnyPermission(permissions.BorrowsRead, permissions.BorrowsReadAll)).
						Get("/", borrowHandler.GetBorrow)
					r.With(handlers.RequirePermissions(permissions.BorrowsReturn)).
						Post("/return", borrowHandler.ReturnBook)
				})
			})

			r.Route("/reports", func(r chi.Router) {
				r.With(handlers.RequirePermissions(permissions.BorrowsReadAll)).Get("/overview", reportHandler.Overview)
				r.With(handlers.RequirePermissions(permissions.BooksRead)).Get("/catalog", reportHandler.Catalog)
			})
		})
	})

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	fmt.Printf("Server starting on http://localhost:%d\n", cfg.Port)
	log.Printf("Server listening on %s", serverAddr)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	log.Fatal(server.ListenAndServe())
}

// ensureFirstSuperuser creates the bootstrap superuser on startup when both
// FIRST_SUPERUSER variables are set and no account with that email exists
func ensureFirstSuperuser(userRepo repository.UserRepository, cfg config.Config) {
	if cfg.FirstSuperuserEmail == "" || cfg.FirstSuperuserPassword == "" {
		return
	}

	_, err := userRepo.GetByEmail(cfg.FirstSuperuserEmail)
	if err == nil {
		log.Printf("First superuser %s already exists, skipping seed", cfg.FirstSuperuserEmail)
		return
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		log.Fatalf("FATAL: Failed to check for first superuser: %v", err)
	}

	user := &models.User{
		Email:       cfg.FirstSuperuserEmail,
		IsActive:    true,
		IsSuperuser: true,
		Role:        permissions.RoleLibrarian,
	}
	if err := user.SetPassword(cfg.FirstSuperuserPassword); err != nil {
		log.Fatalf("FATAL: Failed to hash first superuser password: %v", err)
	}
	if err := userRepo.Create(user); err != nil {
		log.Fatalf("FATAL: Failed to create first superuser: %v", err)
	}
	log.Printf("Created first superuser %s", cfg.FirstSuperuserEmail)
}

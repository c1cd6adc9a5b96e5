package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/misbahzulfiqar/AppwriteBookStore/config"
	"github.com/misbahzulfiqar/AppwriteBookStore/handlers"
	"github.com/misbahzulfiqar/AppwriteBookStore/middleware"
	"github.com/misbahzulfiqar/AppwriteBookStore/service"
	"github.com/misbahzulfiqar/AppwriteBookStore/store"
)

func main() {
	_ = godotenv.Load()
	config.ValidateEnv()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("config", "err", err)
	}

	ctx := context.Background()
	db, err := store.NewMongoDB(ctx, cfg.MongoURI, cfg.DBName)
	if err != nil {
		log.Fatal("mongodb", "err", err)
	}
	defer func() {
		if err := db.Disconnect(context.Background()); err != nil {
			log.Error("mongodb disconnect", "err", err)
		}
	}()

	files, err := service.NewS3Storage(ctx, cfg.S3Bucket, cfg.S3Region, cfg.S3AccessKeyID, cfg.S3SecretKey,
		time.Duration(cfg.URLExpiryMinutes)*time.Minute)
	if err != nil {
		log.Fatal("s3", "err", err)
	}

	books := service.NewBookService(db, files, log.Default())

	authHandler := &handlers.AuthHandler{
		DB:           db,
		JWTSecret:    cfg.JWTSecret,
		DefaultEmail: cfg.AuthEmail,
		DefaultPass:  cfg.AuthPass,
	}
	booksHandler := &handlers.BooksHandler{
		Svc:      books,
		MaxBytes: cfg.MaxUploadMB * 1024 * 1024,
	}

	r := chi.NewRouter()
	r.Use(middleware.AllowAll())
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWTSecret))
			r.Get("/books", booksHandler.List)
			r.Post("/books", booksHandler.Create)
			r.Post("/books/migrate-public", booksHandler.MigratePublic)
			r.Get("/books/{id}", booksHandler.Get)
			r.Patch("/books/{id}", booksHandler.Update)
			r.Delete("/books/{id}", booksHandler.Delete)
			r.Post("/books/{id}/cover", booksHandler.UploadCover)
			r.Put("/books/{id}/progress", booksHandler.Progress)
			r.Patch("/books/{id}/visibility", booksHandler.Visibility)
			r.Get("/books/{id}/view-url", booksHandler.ViewURL)
			r.Get("/books/{id}/download-url", booksHandler.DownloadURL)
		})
	})

	server := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		log.Info("server listening", "addr", ":"+cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server", "err", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", "err", err)
	}
}

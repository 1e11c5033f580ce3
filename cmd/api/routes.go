package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"booknotes/internal/book"
	"booknotes/internal/config"
	"booknotes/internal/httpx"
)

func newRouter(ctx context.Context, cfg config.Config, service *book.Service, log *slog.Logger) http.Handler {
	bookHandler := book.NewHTTPHandler(service, log)

	router := http.NewServeMux()

	router.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		pingCtx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		if err := service.Ping(pingCtx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	router.HandleFunc("GET /books", bookHandler.List)
	router.HandleFunc("POST /books", bookHandler.Create)
	router.HandleFunc("POST /books/create", bookHandler.CreateLegacy)
	router.HandleFunc("GET /books/{id}", bookHandler.Get)
	router.HandleFunc("PUT /books/{id}", bookHandler.Replace)
	router.HandleFunc("PATCH /books/{id}", bookHandler.Patch)
	router.HandleFunc("DELETE /books/{id}", bookHandler.Delete)
	router.HandleFunc("POST /books/{id}/tags", bookHandler.AddTag)
	router.HandleFunc("DELETE /books/{id}/tags/{tag}", bookHandler.RemoveTag)

	rateLimiter := httpx.NewRateLimitMiddleware(ctx, cfg.RateLimitRPS, cfg.RateLimitBurst)

	return httpx.Chain(router,
		httpx.RequestIDMiddleware,
		httpx.AccessLogMiddleware(log),
		httpx.RecoveryMiddleware(log),
		httpx.SecurityHeadersMiddleware(cfg.EnableHSTS),
		httpx.CORSMiddleware(cfg.CORSAllowedOrigins),
		httpx.RequestSizeLimitMiddleware(cfg.MaxBodyBytes),
		rateLimiter.Middleware,
	)
}

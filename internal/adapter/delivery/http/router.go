// Package http provides the HTTP delivery layer of the shortener: the public
// redirect endpoint and the JSON API used by the UI.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/go-playground/validator/v10"
	"github.com/vadimbarashkov/shortlink/docs"
	"github.com/vadimbarashkov/shortlink/pkg/middleware/recoverer"

	httpSwagger "github.com/swaggo/http-swagger"
)

// NewRouter initializes a chi router with middleware and routes. jwtSecret
// verifies caller tokens on the API; nil keeps every caller anonymous.
func NewRouter(logger *httplog.Logger, useCase linkUseCase, jwtSecret []byte) *chi.Mux {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Accept", "Authorization"},
		AllowCredentials: false,
		MaxAge:           86400,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httplog.RequestLogger(logger))
	r.Use(recoverer.New(logger.Logger))

	h := newLinkHandler(useCase, validator.New())

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/swagger.yml"),
	))

	r.Get("/docs/swagger.yml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		w.Write(docs.Swagger)
	})

	r.Get("/s", h.redirect)
	r.Get("/s/", h.redirect)
	r.Get("/s/{slug}", h.redirect)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(identify(jwtSecret))

		r.Get("/ping", handlePing)
		r.Post("/shorten", h.shortenURL)

		r.Route("/links", func(r chi.Router) {
			r.Get("/", h.listLinks)
			r.Get("/{slug}", h.getLinkStats)
		})
	})

	return r
}

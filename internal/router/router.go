package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "github.com/FACorreiaa/go-coffee-finder/docs"
	"github.com/FACorreiaa/go-coffee-finder/internal/api/discovery"
	"github.com/FACorreiaa/go-coffee-finder/internal/api/search"
	"github.com/FACorreiaa/go-coffee-finder/internal/api/shop"
)

// Config contains dependencies needed for the router setup
type Config struct {
	ShopHandler            *shop.HandlerImpl
	SearchHandler          *search.HandlerImpl
	DiscoveryHandler       *discovery.HandlerImpl
	AuthenticateMiddleware func(http.Handler) http.Handler
	AllowedOrigins         []string
}

// SetupRouter initializes and configures the main application router.
// Server-wide middleware (request id, logging, recovery) is applied in main.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:3000"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.Route("/api/v1/coffee-shops", func(r chi.Router) {
		r.Get("/", cfg.SearchHandler.Search)
		r.Get("/autocomplete/search", cfg.SearchHandler.Autocomplete)
		r.Get("/{id}", cfg.ShopHandler.GetShop)

		// provider-backed writes
		r.Group(func(r chi.Router) {
			if cfg.AuthenticateMiddleware != nil {
				r.Use(cfg.AuthenticateMiddleware)
			}
			r.Post("/discover", cfg.DiscoveryHandler.Discover)
			r.Post("/discover-by-location", cfg.DiscoveryHandler.DiscoverByLocation)
			r.Post("/{id}/refresh", cfg.DiscoveryHandler.Refresh)
		})
	})

	return r
}

package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/MrJamesThe3rd/stockbook/internal/http/invoice"
	"github.com/MrJamesThe3rd/stockbook/internal/http/product"
	"github.com/MrJamesThe3rd/stockbook/internal/http/purchase"
	"github.com/MrJamesThe3rd/stockbook/internal/http/registry"
	"github.com/MrJamesThe3rd/stockbook/internal/http/setup"
)

// Options configures the middleware stack in front of the API routes.
type Options struct {
	AllowedOrigins []string
	// RateLimit uses the limiter format, e.g. "300-M". Empty disables limiting.
	RateLimit string
	// JWTSecret enables the bearer token gate when set.
	JWTSecret string
}

func New(
	opts Options,
	productsV1 *product.Handler,
	invoicesV1 *invoice.Handler,
	purchaseOrdersV1 *purchase.Handler,
	registryV1 *registry.Handler,
	setupV1 *setup.Handler,
) (http.Handler, error) {
	router := chi.NewRouter()

	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	if opts.RateLimit != "" {
		limit, err := rateLimit(opts.RateLimit)
		if err != nil {
			return nil, err
		}

		router.Use(limit)
	}

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(operator(opts.JWTSecret))

		r.Route("/setup", setupV1.Routes)

		r.Route("/products", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			productsV1.Routes(r)
		})

		r.Route("/categories", registryV1.CategoryRoutes)
		r.Route("/customers", registryV1.CustomerRoutes)
		r.Route("/suppliers", registryV1.SupplierRoutes)

		r.Route("/invoices", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			invoicesV1.Routes(r)
		})

		r.Route("/purchase-orders", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			purchaseOrdersV1.Routes(r)
		})
	})

	return router, nil
}

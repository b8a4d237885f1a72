package router

import (
	"net/http"

	"shopfront/internal/handler"
	"shopfront/internal/middleware"

	"github.com/rs/zerolog"
)

// Handlers groups the HTTP handlers mounted by the router.
type Handlers struct {
	Health   *handler.HealthHandler
	Auth     *handler.AuthHandler
	Category *handler.CategoryHandler
	Product  *handler.ProductHandler
	Order    *handler.OrderHandler
}

// Options configures authentication and static media serving.
type Options struct {
	APIKey   string
	Tokens   middleware.TokenVerifier
	MediaDir string
	MediaURL string
}

// New creates a new HTTP router with all routes and middleware configured.
func New(h Handlers, opts Options, logger zerolog.Logger) http.Handler {
	mux := http.NewServeMux()

	user := middleware.JWTAuth(opts.Tokens, logger)
	admin := middleware.APIKeyAuth(opts.APIKey, logger)

	// Public
	mux.HandleFunc("GET /health", h.Health.Check)
	mux.HandleFunc("POST /register/{$}", h.Auth.Register)
	mux.HandleFunc("POST /login/{$}", h.Auth.Login)
	mux.HandleFunc("POST /token/refresh/{$}", h.Auth.Refresh)
	mux.HandleFunc("GET /categories/{$}", h.Category.List)
	mux.HandleFunc("GET /categories/{id}/", h.Category.GetByID)
	mux.HandleFunc("GET /products/{$}", h.Product.List)
	mux.HandleFunc("GET /products/{id}/", h.Product.GetByID)

	// Bearer token
	mux.Handle("POST /categories/{$}", user(http.HandlerFunc(h.Category.Create)))
	mux.Handle("PUT /categories/{id}/", user(http.HandlerFunc(h.Category.Update)))
	mux.Handle("PATCH /categories/{id}/", user(http.HandlerFunc(h.Category.Patch)))
	mux.Handle("DELETE /categories/{id}/", user(http.HandlerFunc(h.Category.Delete)))
	mux.Handle("POST /products/{$}", user(http.HandlerFunc(h.Product.Create)))
	mux.Handle("PUT /products/{id}/", user(http.HandlerFunc(h.Product.Update)))
	mux.Handle("PATCH /products/{id}/", user(http.HandlerFunc(h.Product.Patch)))
	mux.Handle("DELETE /products/{id}/", user(http.HandlerFunc(h.Product.Delete)))
	mux.Handle("PUT /products/{id}/image/", user(http.HandlerFunc(h.Product.UploadImage)))
	mux.Handle("POST /orders/{$}", user(http.HandlerFunc(h.Order.Checkout)))
	mux.Handle("GET /orders/{$}", user(http.HandlerFunc(h.Order.ListMine)))
	mux.Handle("GET /orders/{id}/", user(http.HandlerFunc(h.Order.GetMine)))

	// API key
	mux.Handle("GET /admin/orders/{$}", admin(http.HandlerFunc(h.Order.List)))
	mux.Handle("GET /admin/orders/{id}/", admin(http.HandlerFunc(h.Order.Get)))
	mux.Handle("POST /admin/orders/{id}/items/", admin(http.HandlerFunc(h.Order.AddItem)))
	mux.Handle("POST /admin/orders/{id}/recalculate/", admin(http.HandlerFunc(h.Order.Recalculate)))
	mux.Handle("PATCH /admin/orders/{id}/status/", admin(http.HandlerFunc(h.Order.UpdateStatus)))
	mux.Handle("POST /admin/products/{id}/reduce-stock/", admin(http.HandlerFunc(h.Product.ReduceStock)))
	mux.Handle("GET /admin/categories/{$}", admin(http.HandlerFunc(h.Category.ListWithCounts)))

	if opts.MediaDir != "" && opts.MediaURL != "" {
		mux.Handle("GET "+opts.MediaURL, http.StripPrefix(opts.MediaURL, http.FileServer(http.Dir(opts.MediaDir))))
	}

	// Apply middleware in order: Recovery -> Logging -> CORS
	var handler http.Handler = mux
	handler = middleware.CORS(handler)
	handler = middleware.Logging(logger)(handler)
	handler = middleware.Recovery(logger)(handler)

	return handler
}

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/mokabook/bookstore/internal/api/handlers"
	"github.com/mokabook/bookstore/internal/api/middleware"
	"github.com/mokabook/bookstore/internal/metrics"
	"github.com/mokabook/bookstore/internal/session"
)

type Deps struct {
	Checkout handlers.Checkout
	Catalog  handlers.Catalog
	Cart     handlers.Cart
	Orders   handlers.Orders
	Reviews  handlers.Reviews
	Wishlist handlers.Wishlist
	Profiles handlers.Profiles

	Sessions       session.Store
	SessionOptions middleware.SessionOptions
	Metrics        *metrics.Metrics
	// CheckoutLimiter guards /checkout; nil disables limiting.
	CheckoutLimiter *middleware.RateLimiter
	RequestTimeout  time.Duration
	Debug           bool
	Log             zerolog.Logger
}

// NewRouter builds the HTTP router for the bookstore service
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(d.Log))
	r.Use(chimw.Recoverer)
	r.Use(middleware.Metrics(d.Metrics))
	r.Use(middleware.Identity)

	checkoutHandler := handlers.NewCheckoutHandler(d.Checkout, d.Sessions, d.Log)
	bookHandler := handlers.NewBookHandler(d.Catalog, d.Log)
	cartHandler := handlers.NewCartHandler(d.Cart, d.Log)
	orderHandler := handlers.NewOrderHandler(d.Orders, d.Log)
	reviewHandler := handlers.NewReviewHandler(d.Reviews, d.Log)
	wishlistHandler := handlers.NewWishlistHandler(d.Wishlist, d.Log)
	profileHandler := handlers.NewProfileHandler(d.Profiles, d.Log)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", d.Metrics.Handler())

	r.Group(func(r chi.Router) {
		if d.RequestTimeout > 0 {
			r.Use(chimw.Timeout(d.RequestTimeout))
		}
		r.Use(middleware.Sessions(d.Sessions, d.SessionOptions, d.Log))

		// Public catalog
		r.Get("/books", bookHandler.List)
		r.Get("/books/home", bookHandler.Home)
		r.Get("/books/{id}", bookHandler.Detail)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireUser)

			r.Route("/checkout", func(r chi.Router) {
				if d.CheckoutLimiter != nil {
					r.Use(d.CheckoutLimiter.Handler)
				}
				r.Post("/pay", checkoutHandler.Pay)
				r.Get("/verify", checkoutHandler.Verify)
				r.Get("/cancelled", checkoutHandler.Cancelled)
			})

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartHandler.View)
				r.Post("/items/{bookID}", cartHandler.Add)
				r.Post("/items/{bookID}/decrease", cartHandler.Decrease)
				r.Delete("/items/{bookID}", cartHandler.Remove)
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/confirmation", orderHandler.Confirmation)
				r.Get("/receipt", orderHandler.Receipt)
			})

			r.Post("/books/{id}/reviews", reviewHandler.Create)
			r.Put("/reviews/{id}", reviewHandler.Update)
			r.Delete("/reviews/{id}", reviewHandler.Delete)

			r.Route("/wishlist", func(r chi.Router) {
				r.Get("/", wishlistHandler.List)
				r.Post("/{bookID}/toggle", wishlistHandler.Toggle)
			})

			r.Route("/me", func(r chi.Router) {
				r.Get("/", profileHandler.Get)
				r.Put("/", profileHandler.Update)
				r.Get("/books", orderHandler.PurchasedBooks)
				r.Get("/reviews", reviewHandler.ListMine)
			})

			if d.Debug {
				r.Post("/debug/mock-payment", checkoutHandler.MockPayment)
			}
		})

		// Admin endpoints
		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAdmin)
			r.Post("/books", bookHandler.Create)
			r.Put("/books/{id}", bookHandler.Update)
			r.Delete("/books/{id}", bookHandler.Delete)
		})
	})

	return r
}

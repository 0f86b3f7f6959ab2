// Package handler exposes the storefront over HTTP.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/ShreyanshuGhosh/nitebite/internal/domain/auth"
	"github.com/ShreyanshuGhosh/nitebite/internal/domain/coupon"
	"github.com/ShreyanshuGhosh/nitebite/internal/domain/order"
	"github.com/ShreyanshuGhosh/nitebite/internal/domain/product"
	"github.com/ShreyanshuGhosh/nitebite/internal/session"
	"github.com/ShreyanshuGhosh/nitebite/pkg/httpmiddleware"
)

// FeaturedLimit caps the featured products strip.
const FeaturedLimit = 10

// Sessions resolves browser sessions. *session.Registry implements it.
type Sessions interface {
	Get(ctx context.Context, id string) (*session.Session, error)
}

// Coupons validates coupon codes. *coupon.Service implements it.
type Coupons interface {
	ValidateAndApply(ctx context.Context, code, userID string, amount decimal.Decimal) (coupon.Result, error)
}

// Orders places orders. *order.Service implements it.
type Orders interface {
	PlaceOrder(ctx context.Context, c order.Cart, req order.PlaceOrderRequest) (*order.PlaceOrderResult, error)
}

// Authenticator verifies bearer tokens. *auth.Signer implements it.
type Authenticator interface {
	Verify(token string) (auth.User, error)
}

var (
	_ Sessions      = (*session.Registry)(nil)
	_ Coupons       = (*coupon.Service)(nil)
	_ Orders        = (*order.Service)(nil)
	_ Authenticator = (*auth.Signer)(nil)
)

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// ImageBaseURL is prepended to root-relative image paths. When empty,
	// image paths are returned as stored.
	ImageBaseURL string
	// SessionTTL is the lifetime of the session cookie.
	SessionTTL time.Duration
	// SecureCookies marks the session cookie Secure.
	SecureCookies bool
}

// Deps are the collaborators of the Handler.
type Deps struct {
	Catalog  product.Catalog
	Sessions Sessions
	Coupons  Coupons
	Orders   Orders
	Auth     Authenticator
	Meter    metric.Meter
}

// Handler serves the storefront API.
type Handler struct {
	cfg      Config
	catalog  product.Catalog
	sessions Sessions
	coupons  Coupons
	orders   Orders
	auth     Authenticator

	placed metric.Int64Counter
}

// New creates a Handler.
func New(cfg Config, deps Deps) (*Handler, error) {
	if deps.Meter == nil {
		deps.Meter = noop.NewMeterProvider().Meter("")
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 30 * 24 * time.Hour
	}
	placed, err := deps.Meter.Int64Counter("storefront.orders.placed")
	if err != nil {
		return nil, err
	}
	return &Handler{
		cfg:      cfg,
		catalog:  deps.Catalog,
		sessions: deps.Sessions,
		coupons:  deps.Coupons,
		orders:   deps.Orders,
		auth:     deps.Auth,
		placed:   placed,
	}, nil
}

// Routes returns the /api router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(
		httpmiddleware.LogRequests(),
		httpmiddleware.Labeler(),
		h.authenticate,
	)

	r.Route("/api", func(r chi.Router) {
		r.Get("/products", h.listProducts)
		r.Get("/products/featured", h.listFeatured)
		r.Get("/products/{id}", h.getProduct)
		r.Get("/categories", h.listCategories)

		r.Group(func(r chi.Router) {
			r.Use(h.withSession, collectNotices)

			r.Get("/cart", h.getCart)
			r.Delete("/cart", h.clearCart)
			r.Post("/cart/items", h.addCartItem)
			r.Put("/cart/items/{id}", h.updateCartItem)
			r.Delete("/cart/items/{id}", h.removeCartItem)
			r.Post("/cart/coupon", h.applyCoupon)
			r.Delete("/cart/coupon", h.removeCoupon)

			r.Get("/box", h.getBox)
			r.Post("/box/items", h.addBoxItem)
			r.Put("/box/items/{id}", h.updateBoxItem)
			r.Delete("/box/items/{id}", h.removeBoxItem)
			r.Post("/box/commit", h.commitBox)

			r.Post("/orders", h.placeOrder)
		})
	})
	return r
}

package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ShreyanshuGhosh/nitebite/internal/domain/auth"
	"github.com/ShreyanshuGhosh/nitebite/internal/domain/cart"
	"github.com/ShreyanshuGhosh/nitebite/internal/domain/coupon"
)

type addItemRequest struct {
	ProductID string `json:"productId"`
	// Quantity defaults to 1.
	Quantity *int `json:"quantity"`
}

type quantityRequest struct {
	Quantity int `json:"quantity"`
}

type couponRequest struct {
	Code string `json:"code"`
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.cartResponse(sessionFrom(r.Context()), r))
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r.Context())
	s.Cart.Clear(r.Context())
	writeJSON(w, http.StatusOK, h.cartResponse(s, r))
}

func (h *Handler) addCartItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}
	if qty < 1 || qty > cart.MaxQuantity {
		writeError(w, r, cart.ErrInvalidQuantity)
		return
	}

	p, err := h.catalog.GetProduct(r.Context(), req.ProductID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s := sessionFrom(r.Context())
	if err := s.Cart.Add(r.Context(), cart.FromCatalog(*p), qty); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.cartResponse(s, r))
}

func (h *Handler) updateCartItem(w http.ResponseWriter, r *http.Request) {
	var req quantityRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	s := sessionFrom(r.Context())
	if err := s.Cart.UpdateQuantity(r.Context(), chi.URLParam(r, "id"), req.Quantity); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.cartResponse(s, r))
}

func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r.Context())
	if err := s.Cart.Remove(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.cartResponse(s, r))
}

// applyCoupon validates the code against the current subtotal. A rejected
// code is answered with 422 and the reason; the cart is left untouched.
func (h *Handler) applyCoupon(w http.ResponseWriter, r *http.Request) {
	var req couponRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	var userID string
	if u, ok := auth.UserFrom(r.Context()); ok {
		userID = u.ID
	}

	s := sessionFrom(r.Context())
	res, err := h.coupons.ValidateAndApply(r.Context(), req.Code, userID, s.Cart.Subtotal())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !res.Valid {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Code:    http.StatusUnprocessableEntity,
			Message: res.Message,
		})
		return
	}
	if err := s.Cart.ApplyCoupon(r.Context(), coupon.NormalizeCode(req.Code), res.Discount); err != nil {
		writeError(w, r, err)
		return
	}
	resp := h.cartResponse(s, r)
	resp.Message = res.Message
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) removeCoupon(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r.Context())
	s.Cart.RemoveCoupon(r.Context())
	writeJSON(w, http.StatusOK, h.cartResponse(s, r))
}

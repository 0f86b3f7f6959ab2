package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ShreyanshuGhosh/nitebite/internal/domain/cart"
)

type boxItemRequest struct {
	ProductID string `json:"productId"`
}

func (h *Handler) getBox(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.boxResponse(sessionFrom(r.Context()).Box))
}

func (h *Handler) addBoxItem(w http.ResponseWriter, r *http.Request) {
	var req boxItemRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.catalog.GetProduct(r.Context(), req.ProductID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	b := sessionFrom(r.Context()).Box
	b.Add(*p)
	writeJSON(w, http.StatusOK, h.boxResponse(b))
}

// updateBoxItem sets a line's quantity; zero or less removes the line.
func (h *Handler) updateBoxItem(w http.ResponseWriter, r *http.Request) {
	var req quantityRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Quantity > cart.MaxQuantity {
		writeError(w, r, cart.ErrInvalidQuantity)
		return
	}
	b := sessionFrom(r.Context()).Box
	id := chi.URLParam(r, "id")
	if req.Quantity <= 0 {
		b.Remove(id)
		writeJSON(w, http.StatusOK, h.boxResponse(b))
		return
	}
	p, err := h.catalog.GetProduct(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	b.SetQuantity(*p, req.Quantity)
	writeJSON(w, http.StatusOK, h.boxResponse(b))
}

func (h *Handler) removeBoxItem(w http.ResponseWriter, r *http.Request) {
	b := sessionFrom(r.Context()).Box
	b.Remove(chi.URLParam(r, "id"))
	writeJSON(w, http.StatusOK, h.boxResponse(b))
}

type commitResponse struct {
	Box  boxResponse  `json:"box"`
	Cart cartResponse `json:"cart"`
}

func (h *Handler) commitBox(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r.Context())
	if _, err := s.Box.Commit(r.Context(), s.Cart); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, commitResponse{
		Box:  h.boxResponse(s.Box),
		Cart: h.cartResponse(s, r),
	})
}


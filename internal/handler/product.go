package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ShreyanshuGhosh/nitebite/internal/domain/product"
)

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.ListProducts(r.Context(), product.Filter{
		Category: r.URL.Query().Get("category"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.writeProducts(w, products)
}

func (h *Handler) listFeatured(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.ListFeatured(r.Context(), FeaturedLimit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.writeProducts(w, products)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.catalog.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.productDTO(*p))
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.catalog.ListCategories(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]categoryDTO, len(cats))
	for i, c := range cats {
		out[i] = categoryDTO{ID: c.ID, Name: c.Name, Slug: c.Slug, Description: c.Description}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) writeProducts(w http.ResponseWriter, products []product.Product) {
	out := make([]productDTO, len(products))
	for i, p := range products {
		out[i] = h.productDTO(p)
	}
	writeJSON(w, http.StatusOK, out)
}

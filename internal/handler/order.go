package handler

import (
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/ShreyanshuGhosh/nitebite/internal/domain/auth"
	"github.com/ShreyanshuGhosh/nitebite/internal/domain/order"
)

type placeOrderRequest struct {
	Delivery      deliveryDTO `json:"delivery"`
	PaymentMethod string      `json:"paymentMethod"`
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	u, ok := auth.UserFrom(r.Context())
	if !ok {
		writeError(w, r, order.ErrUnauthenticated)
		return
	}

	s := sessionFrom(r.Context())
	res, err := h.orders.PlaceOrder(r.Context(), s.Cart, order.PlaceOrderRequest{
		UserID: u.ID,
		Delivery: order.Delivery{
			PhoneNumber:  req.Delivery.PhoneNumber,
			HostelNumber: req.Delivery.HostelNumber,
			RoomNumber:   req.Delivery.RoomNumber,
		},
		PaymentMethod: order.PaymentMethod(req.PaymentMethod),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.placed.Add(r.Context(), 1, metric.WithAttributes(
		attribute.String("payment_method", string(res.Order.PaymentMethod)),
	))
	writeJSON(w, http.StatusCreated, orderResponseFrom(res))
}

package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/ShreyanshuGhosh/nitebite/internal/domain/auth"
	"github.com/ShreyanshuGhosh/nitebite/internal/domain/box"
	"github.com/ShreyanshuGhosh/nitebite/internal/domain/cart"
	"github.com/ShreyanshuGhosh/nitebite/internal/domain/order"
	"github.com/ShreyanshuGhosh/nitebite/internal/domain/product"
	"github.com/ShreyanshuGhosh/nitebite/internal/session"
)

const maxBodyBytes = 64 << 10

var errBadRequest = errors.New("malformed request body")

type errorResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Notices []noticeDTO `json:"notices,omitempty"`
}

type noticeDTO struct {
	Kind    string `json:"kind"`
	Level   string `json:"level"`
	ItemID  string `json:"itemId,omitempty"`
	Message string `json:"message"`
}

func noticeDTOs(notices []cart.Notice) []noticeDTO {
	out := make([]noticeDTO, len(notices))
	for i, n := range notices {
		out[i] = noticeDTO{
			Kind:    string(n.Kind),
			Level:   string(n.Level),
			ItemID:  n.ItemID,
			Message: n.Message,
		}
	}
	return out
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Wrap(errBadRequest, err.Error())
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors to status codes. Unexpected errors are
// logged and hidden behind a 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := classify(err)
	if status == http.StatusInternalServerError {
		zctx.From(r.Context()).Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	writeJSON(w, status, errorResponse{
		Code:    status,
		Message: msg,
		Notices: noticeDTOs(noticesFrom(r.Context())),
	})
}

func classify(err error) (int, string) {
	var (
		missing  *order.MissingFieldError
		rejected *order.CouponRejectedError
	)
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, "malformed request body"
	case errors.As(err, &missing):
		return http.StatusBadRequest, capitalize(missing.Error())
	case errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, cart.ErrEmptyCouponCode),
		errors.Is(err, order.ErrInvalidPhone),
		errors.Is(err, order.ErrInvalidHostel),
		errors.Is(err, order.ErrInvalidPaymentMethod),
		errors.Is(err, session.ErrInvalidID):
		return http.StatusBadRequest, capitalize(rootMessage(err))
	case errors.Is(err, auth.ErrUnauthorized), errors.Is(err, order.ErrUnauthenticated):
		return http.StatusUnauthorized, capitalize(rootMessage(err))
	case errors.Is(err, product.ErrNotFound):
		return http.StatusNotFound, "Product not found"
	case errors.Is(err, cart.ErrOutOfStock), errors.Is(err, cart.ErrInsufficientStock):
		return http.StatusConflict, capitalize(rootMessage(err))
	case errors.As(err, &rejected):
		return http.StatusUnprocessableEntity, "Your coupon is no longer valid and was removed"
	case errors.Is(err, order.ErrEmptyCart),
		errors.Is(err, box.ErrEmptyBox),
		errors.Is(err, box.ErrNotEnoughCategories):
		return http.StatusUnprocessableEntity, capitalize(rootMessage(err))
	case errors.Is(err, cart.ErrStockUnavailable):
		return http.StatusServiceUnavailable, "Could not check stock, please try again"
	case errors.Is(err, session.ErrUnavailable):
		return http.StatusServiceUnavailable, "Could not load your box, please try again"
	default:
		return http.StatusInternalServerError, "Something went wrong"
	}
}

// rootMessage returns the message of the innermost wrapped error.
func rootMessage(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

type productDTO struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Price         float64  `json:"price"`
	Image         string   `json:"image"`
	Images        []string `json:"images"`
	Category      string   `json:"category,omitempty"`
	CategoryID    string   `json:"categoryId,omitempty"`
	Description   string   `json:"description,omitempty"`
	StockQuantity *int     `json:"stockQuantity,omitempty"`
	InStock       bool     `json:"inStock"`
	IsFeatured    bool     `json:"isFeatured"`
}

type categoryDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description,omitempty"`
}

type cartItemDTO struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Price         float64         `json:"price"`
	Quantity      int             `json:"quantity"`
	LineTotal     float64         `json:"lineTotal"`
	Image         string          `json:"image"`
	Images        []string        `json:"images"`
	Category      string          `json:"category,omitempty"`
	CategoryID    string          `json:"categoryId,omitempty"`
	Description   string          `json:"description,omitempty"`
	StockQuantity *int            `json:"stockQuantity,omitempty"`
	Contents      []bundleLineDTO `json:"contents,omitempty"`
}

type bundleLineDTO struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Category  string  `json:"category,omitempty"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
}

type couponDTO struct {
	Code     string  `json:"code"`
	Discount float64 `json:"discount"`
}

type summaryDTO struct {
	Subtotal             float64 `json:"subtotal"`
	DeliveryFee          float64 `json:"deliveryFee"`
	ConvenienceFee       float64 `json:"convenienceFee"`
	Discount             float64 `json:"discount"`
	Total                float64 `json:"total"`
	ItemCount            int     `json:"itemCount"`
	AmountToFreeDelivery float64 `json:"amountToFreeDelivery"`
}

type cartResponse struct {
	Items   []cartItemDTO `json:"items"`
	Coupon  *couponDTO    `json:"coupon"`
	Summary summaryDTO    `json:"summary"`
	Message string        `json:"message,omitempty"`
	Notices []noticeDTO   `json:"notices"`
}

type boxLineDTO struct {
	Product  productDTO `json:"product"`
	Quantity int        `json:"quantity"`
	Total    float64    `json:"total"`
}

type boxResponse struct {
	Lines         []boxLineDTO `json:"lines"`
	TotalItems    int          `json:"totalItems"`
	Subtotal      float64      `json:"subtotal"`
	Categories    []string     `json:"categories"`
	MinCategories int          `json:"minCategories"`
	CanCheckout   bool         `json:"canCheckout"`
}

type orderDTO struct {
	ID             string            `json:"id"`
	Items          []order.OrderItem `json:"items"`
	Subtotal       float64           `json:"subtotal"`
	DeliveryFee    float64           `json:"deliveryFee"`
	ConvenienceFee float64           `json:"convenienceFee"`
	Discount       float64           `json:"discount"`
	Amount         float64           `json:"amount"`
	CouponCode     string            `json:"couponCode,omitempty"`
	Delivery       deliveryDTO       `json:"delivery"`
	PaymentMethod  string            `json:"paymentMethod"`
	PaymentStatus  string            `json:"paymentStatus"`
	CreatedAt      time.Time         `json:"createdAt"`
}

type deliveryDTO struct {
	PhoneNumber  string `json:"phoneNumber"`
	HostelNumber string `json:"hostelNumber"`
	RoomNumber   string `json:"roomNumber"`
}

type orderResponse struct {
	Order       orderDTO `json:"order"`
	PaymentLink string   `json:"paymentLink,omitempty"`
}

func (h *Handler) imageURL(ref string) string {
	if h.cfg.ImageBaseURL != "" && strings.HasPrefix(ref, "/") {
		return strings.TrimSuffix(h.cfg.ImageBaseURL, "/") + ref
	}
	return ref
}

func (h *Handler) imageURLs(images product.Images) []string {
	out := make([]string, len(images))
	for i, ref := range images {
		out[i] = h.imageURL(ref)
	}
	return out
}

func (h *Handler) productDTO(p product.Product) productDTO {
	return productDTO{
		ID:            p.ID,
		Name:          p.Name,
		Price:         p.Price.InexactFloat64(),
		Image:         h.imageURL(p.Images.Primary()),
		Images:        h.imageURLs(p.Images),
		Category:      p.Category,
		CategoryID:    p.CategoryID,
		Description:   p.Description,
		StockQuantity: p.StockQuantity,
		InStock:       p.InStock(),
		IsFeatured:    p.IsFeatured,
	}
}

func (h *Handler) cartResponse(s *session.Session, r *http.Request) cartResponse {
	items := s.Cart.Items()
	resp := cartResponse{
		Items:   make([]cartItemDTO, len(items)),
		Notices: noticeDTOs(noticesFrom(r.Context())),
	}
	for i, it := range items {
		dto := cartItemDTO{
			ID:            it.ID,
			Name:          it.Name,
			Price:         it.Price.InexactFloat64(),
			Quantity:      it.Quantity,
			LineTotal:     it.LineTotal().InexactFloat64(),
			Image:         h.imageURL(it.PrimaryImage()),
			Images:        h.imageURLs(it.Images),
			Category:      it.Category,
			CategoryID:    it.CategoryID,
			Description:   it.Description,
			StockQuantity: it.StockQuantity,
		}
		for _, c := range it.Contents {
			dto.Contents = append(dto.Contents, bundleLineDTO{
				ProductID: c.ProductID,
				Name:      c.Name,
				Category:  c.Category,
				Price:     c.Price.InexactFloat64(),
				Quantity:  c.Quantity,
			})
		}
		resp.Items[i] = dto
	}
	if c, ok := s.Cart.Coupon(); ok {
		resp.Coupon = &couponDTO{Code: c.Code, Discount: c.Discount.InexactFloat64()}
	}

	b := s.Cart.Summary()
	resp.Summary = summaryDTO{
		Subtotal:             b.Subtotal.InexactFloat64(),
		DeliveryFee:          b.DeliveryFee.InexactFloat64(),
		ConvenienceFee:       b.ConvenienceFee.InexactFloat64(),
		Discount:             b.Discount.InexactFloat64(),
		Total:                b.Total.InexactFloat64(),
		ItemCount:            b.ItemCount,
		AmountToFreeDelivery: b.AmountToFreeDelivery.InexactFloat64(),
	}
	return resp
}

func (h *Handler) boxResponse(b *box.Builder) boxResponse {
	lines := b.Lines()
	resp := boxResponse{
		Lines:         make([]boxLineDTO, len(lines)),
		TotalItems:    b.TotalItems(),
		Subtotal:      b.Subtotal().InexactFloat64(),
		Categories:    b.CategoriesRepresented(),
		MinCategories: box.MinCategories,
		CanCheckout:   b.CanCheckout(),
	}
	for i, l := range lines {
		resp.Lines[i] = boxLineDTO{
			Product:  h.productDTO(l.Product),
			Quantity: l.Quantity,
			Total:    l.Total().InexactFloat64(),
		}
	}
	if resp.Categories == nil {
		resp.Categories = []string{}
	}
	return resp
}

func orderResponseFrom(res *order.PlaceOrderResult) orderResponse {
	o := res.Order
	return orderResponse{
		Order: orderDTO{
			ID:             o.ID,
			Items:          o.Items,
			Subtotal:       o.Subtotal.InexactFloat64(),
			DeliveryFee:    o.DeliveryFee.InexactFloat64(),
			ConvenienceFee: o.ConvenienceFee.InexactFloat64(),
			Discount:       o.Discount.InexactFloat64(),
			Amount:         o.Amount.InexactFloat64(),
			CouponCode:     o.CouponCode,
			Delivery: deliveryDTO{
				PhoneNumber:  o.Delivery.PhoneNumber,
				HostelNumber: o.Delivery.HostelNumber,
				RoomNumber:   o.Delivery.RoomNumber,
			},
			PaymentMethod: string(o.PaymentMethod),
			PaymentStatus: string(o.PaymentStatus),
			CreatedAt:     o.CreatedAt,
		},
		PaymentLink: res.PaymentLink,
	}
}

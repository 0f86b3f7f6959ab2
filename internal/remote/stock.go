package remote

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/ShreyanshuGhosh/nitebite/internal/domain/cart"
	"github.com/ShreyanshuGhosh/nitebite/internal/domain/product"
)

// StockSource reads live stock. product.Catalog implements it.
type StockSource interface {
	GetStock(ctx context.Context, id string) (int, error)
}

var _ cart.StockChecker = (*StockGuard)(nil)

// StockGuard implements cart.StockChecker. Concurrent lookups of the same
// product share one catalog query.
type StockGuard struct {
	src   StockSource
	group singleflight.Group
	cb    *gobreaker.CircuitBreaker[int]
}

// NewStockGuard wraps src.
func NewStockGuard(src StockSource, cfg BreakerConfig, lg *zap.Logger) *StockGuard {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &StockGuard{
		src: src,
		cb: newBreaker[int]("catalog-stock", cfg, lg, func(err error) bool {
			return errors.Is(err, product.ErrNotFound)
		}),
	}
}

// Stock returns the live stock of productID.
func (g *StockGuard) Stock(ctx context.Context, productID string) (int, error) {
	v, err, _ := g.group.Do(productID, func() (any, error) {
		return g.cb.Execute(func() (int, error) {
			return g.src.GetStock(ctx, productID)
		})
	})
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

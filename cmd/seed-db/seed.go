package main

import (
	"encoding/json"
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"

	"github.com/ShreyanshuGhosh/nitebite/internal/domain/coupon"
	"github.com/ShreyanshuGhosh/nitebite/internal/domain/product"
)

type seed struct {
	Categories []categoryJSON `json:"categories"`
	Products   []productJSON  `json:"products"`
	Coupons    []couponJSON   `json:"coupons"`
}

type categoryJSON struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
}

type productJSON struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	// Category is the category slug.
	Category      string   `json:"category"`
	Description   string   `json:"description"`
	Images        []string `json:"images"`
	StockQuantity int      `json:"stockQuantity"`
	IsFeatured    bool     `json:"isFeatured"`
}

func (p productJSON) toProduct(categoryID string) product.Product {
	stock := p.StockQuantity
	return product.Product{
		ID:            p.ID,
		Name:          p.Name,
		Price:         p.Price,
		Images:        product.NormalizeImages(p.Images...),
		CategoryID:    categoryID,
		Description:   p.Description,
		StockQuantity: &stock,
		IsFeatured:    p.IsFeatured,
	}
}

type couponJSON struct {
	Code           string          `json:"code"`
	DiscountType   string          `json:"discountType"`
	Value          decimal.Decimal `json:"value"`
	MinOrderAmount decimal.Decimal `json:"minOrderAmount"`
	MaxDiscount    decimal.Decimal `json:"maxDiscount"`
	Description    string          `json:"description"`
	ValidFrom      *time.Time      `json:"validFrom"`
	ValidUntil     *time.Time      `json:"validUntil"`
	MaxUses        int             `json:"maxUses"`
	MaxUsesPerUser int             `json:"maxUsesPerUser"`
}

func (c couponJSON) toRule() coupon.Rule {
	return coupon.Rule{
		Code:           coupon.NormalizeCode(c.Code),
		DiscountType:   coupon.DiscountType(c.DiscountType),
		Value:          c.Value,
		MinOrderAmount: c.MinOrderAmount,
		MaxDiscount:    c.MaxDiscount,
		Description:    c.Description,
		ValidFrom:      c.ValidFrom,
		ValidUntil:     c.ValidUntil,
		MaxUses:        c.MaxUses,
		MaxUsesPerUser: c.MaxUsesPerUser,
	}
}

// readSeed reads a seed file, decompressing it when the name ends in .gz.
func readSeed(path string) (*seed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open seed file")
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrap(err, "open gzip stream")
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}
	return decodeSeed(r)
}

func decodeSeed(r io.Reader) (*seed, error) {
	var s seed
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, errors.Wrap(err, "parse seed")
	}
	return &s, nil
}

func (s *seed) validate() error {
	slugs := make(map[string]bool, len(s.Categories))
	for _, c := range s.Categories {
		if c.Slug == "" || c.Name == "" {
			return errors.Errorf("category %q: name and slug are required", c.Name)
		}
		slugs[c.Slug] = true
	}
	for _, p := range s.Products {
		switch {
		case p.Name == "":
			return errors.New("product without a name")
		case !p.Price.IsPositive():
			return errors.Errorf("product %q: price must be positive", p.Name)
		case p.StockQuantity < 0:
			return errors.Errorf("product %q: stock must not be negative", p.Name)
		case p.Category != "" && !slugs[p.Category]:
			return errors.Errorf("product %q: unknown category %q", p.Name, p.Category)
		}
	}
	for _, c := range s.Coupons {
		switch coupon.DiscountType(c.DiscountType) {
		case coupon.DiscountPercentage, coupon.DiscountFixed:
		default:
			return errors.Errorf("coupon %q: unsupported discount type %q", c.Code, c.DiscountType)
		}
		if coupon.NormalizeCode(c.Code) == "" {
			return errors.New("coupon without a code")
		}
	}
	return nil
}

package cart

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/ShreyanshuGhosh/nitebite/internal/domain/product"
)

// StorageKey names the persisted cart slot.
const StorageKey = "nitebite-cart"

const snapshotVersion = 1

// Snapshot is the serialized form of a cart.
type Snapshot struct {
	Items  []Item
	Coupon *AppliedCoupon
}

// Encode writes the snapshot as JSON. Money is written as decimal strings so
// a round trip is lossless.
func (s Snapshot) Encode() []byte {
	discount := decimal.Zero
	if s.Coupon != nil {
		discount = s.Coupon.Discount
	}

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("version")
	e.Int(snapshotVersion)

	e.FieldStart("items")
	e.ArrStart()
	for _, item := range s.Items {
		encodeItem(&e, item)
	}
	e.ArrEnd()

	e.FieldStart("couponDiscount")
	e.Str(discount.String())
	e.FieldStart("couponCode")
	if s.Coupon != nil {
		e.Str(s.Coupon.Code)
	} else {
		e.Null()
	}
	e.ObjEnd()
	return e.Bytes()
}

func encodeItem(e *jx.Encoder, item Item) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(item.ID)
	e.FieldStart("name")
	e.Str(item.Name)
	e.FieldStart("price")
	e.Str(item.Price.String())
	e.FieldStart("quantity")
	e.Int(item.Quantity)

	e.FieldStart("images")
	e.ArrStart()
	for _, img := range item.Images {
		e.Str(img)
	}
	e.ArrEnd()

	if item.Category != "" {
		e.FieldStart("category")
		e.Str(item.Category)
	}
	if item.CategoryID != "" {
		e.FieldStart("categoryId")
		e.Str(item.CategoryID)
	}
	if item.Description != "" {
		e.FieldStart("description")
		e.Str(item.Description)
	}
	if item.StockQuantity != nil {
		e.FieldStart("stockQuantity")
		e.Int(*item.StockQuantity)
	}
	if len(item.Contents) > 0 {
		e.FieldStart("contents")
		e.ArrStart()
		for _, line := range item.Contents {
			e.ObjStart()
			e.FieldStart("productId")
			e.Str(line.ProductID)
			e.FieldStart("name")
			e.Str(line.Name)
			e.FieldStart("category")
			e.Str(line.Category)
			e.FieldStart("price")
			e.Str(line.Price.String())
			e.FieldStart("quantity")
			e.Int(line.Quantity)
			e.ObjEnd()
		}
		e.ArrEnd()
	}
	e.ObjEnd()
}

// DecodeSnapshot parses a serialized cart and checks that it describes a
// valid cart: unique ids, positive quantities and a consistent coupon.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	var (
		s        Snapshot
		version  int
		discount = decimal.Zero
		code     string
	)
	d := jx.DecodeBytes(data)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "version":
			v, err := d.Int()
			if err != nil {
				return errors.Wrap(err, "version")
			}
			version = v
		case "items":
			return d.Arr(func(d *jx.Decoder) error {
				item, err := decodeItem(d)
				if err != nil {
					return err
				}
				s.Items = append(s.Items, item)
				return nil
			})
		case "couponDiscount":
			v, err := decodeDecimal(d)
			if err != nil {
				return errors.Wrap(err, "couponDiscount")
			}
			discount = v
		case "couponCode":
			if d.Next() == jx.Null {
				return d.Null()
			}
			v, err := d.Str()
			if err != nil {
				return errors.Wrap(err, "couponCode")
			}
			code = v
		default:
			return d.Skip()
		}
		return nil
	}); err != nil {
		return Snapshot{}, errors.Wrap(err, "decode snapshot")
	}

	if version != snapshotVersion {
		return Snapshot{}, errors.Errorf("unsupported snapshot version %d", version)
	}
	switch {
	case code == "" && discount.IsZero():
	case code != "" && discount.IsPositive():
		s.Coupon = &AppliedCoupon{Code: code, Discount: discount}
	default:
		return Snapshot{}, errors.Errorf("inconsistent coupon %q with discount %s", code, discount)
	}

	seen := make(map[string]struct{}, len(s.Items))
	for _, item := range s.Items {
		if item.ID == "" {
			return Snapshot{}, errors.New("item without id")
		}
		if item.Quantity < 1 {
			return Snapshot{}, errors.Errorf("item %q: quantity %d", item.ID, item.Quantity)
		}
		if item.Price.IsNegative() {
			return Snapshot{}, errors.Errorf("item %q: negative price", item.ID)
		}
		if _, dup := seen[item.ID]; dup {
			return Snapshot{}, errors.Errorf("duplicate item %q", item.ID)
		}
		seen[item.ID] = struct{}{}
	}
	return s, nil
}

func decodeItem(d *jx.Decoder) (Item, error) {
	var item Item
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			item.ID, err = d.Str()
		case "name":
			item.Name, err = d.Str()
		case "price":
			item.Price, err = decodeDecimal(d)
		case "quantity":
			item.Quantity, err = d.Int()
		case "images":
			var refs []string
			err = d.Arr(func(d *jx.Decoder) error {
				ref, err := d.Str()
				if err != nil {
					return err
				}
				refs = append(refs, ref)
				return nil
			})
			item.Images = product.NormalizeImages(refs...)
		case "category":
			item.Category, err = d.Str()
		case "categoryId":
			item.CategoryID, err = d.Str()
		case "description":
			item.Description, err = d.Str()
		case "stockQuantity":
			if d.Next() == jx.Null {
				return d.Null()
			}
			n, err := d.Int()
			if err != nil {
				return errors.Wrap(err, "stockQuantity")
			}
			item.StockQuantity = &n
		case "contents":
			err = d.Arr(func(d *jx.Decoder) error {
				line, err := decodeBundleLine(d)
				if err != nil {
					return err
				}
				item.Contents = append(item.Contents, line)
				return nil
			})
		default:
			return d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, key)
		}
		return nil
	})
	if err != nil {
		return Item{}, errors.Wrap(err, "item")
	}
	if item.Images == nil {
		item.Images = product.NormalizeImages()
	}
	return item, nil
}

func decodeBundleLine(d *jx.Decoder) (BundleLine, error) {
	var line BundleLine
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "productId":
			line.ProductID, err = d.Str()
		case "name":
			line.Name, err = d.Str()
		case "category":
			line.Category, err = d.Str()
		case "price":
			line.Price, err = decodeDecimal(d)
		case "quantity":
			line.Quantity, err = d.Int()
		default:
			return d.Skip()
		}
		return err
	})
	return line, err
}

// decodeDecimal accepts both string and number encodings.
func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(s)
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(n.String())
	default:
		return decimal.Zero, errors.Errorf("unexpected %s for decimal", d.Next())
	}
}

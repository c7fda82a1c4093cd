package cart

import (
	"context"
	"encoding/json"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/simplestore/storefront/app/session"
	"github.com/simplestore/storefront/models"
)

// SessionKey is where the cart lives in the visitor's session.
const SessionKey = "cart"

// Items maps product id to requested quantity. A normalized cart never holds
// a zero or negative quantity.
type Items map[uint]int

// Count is the total number of units in the cart.
func (items Items) Count() int {
	total := 0
	for _, qty := range items {
		total += qty
	}
	return total
}

// IDs returns the product ids in ascending order.
func (items Items) IDs() []uint {
	ids := make([]uint, 0, len(items))
	for id := range items {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

type ProductProvider interface {
	GetActiveByID(ctx context.Context, id uint) (*models.Product, error)
	FindActiveByIDs(ctx context.Context, ids []uint) ([]models.Product, error)
}

// Get reads the cart from the session. Whatever was stored is normalized:
// unparseable keys and quantities are dropped and negative quantities clamp
// to zero, which removes the entry.
func Get(sess *session.Session) Items {
	raw, _ := sess.Get(SessionKey)
	return normalize(raw)
}

// Add puts one more unit of an active product in the cart. The cart is left
// untouched when the product is missing or inactive.
func Add(ctx context.Context, sess *session.Session, products ProductProvider, id uint) (*models.Product, error) {
	product, err := products.GetActiveByID(ctx, id)
	if err != nil {
		return nil, err
	}

	items := Get(sess)
	items[product.ID]++
	save(sess, items)
	return product, nil
}

// RemoveOne takes one unit of a product out of the cart. It reports whether
// the product was in the cart at all.
func RemoveOne(sess *session.Session, id uint) bool {
	items := Get(sess)
	qty, ok := items[id]
	if !ok {
		return false
	}

	if qty <= 1 {
		delete(items, id)
	} else {
		items[id] = qty - 1
	}
	save(sess, items)
	return true
}

func Clear(sess *session.Session) {
	save(sess, Items{})
}

func save(sess *session.Session, items Items) {
	stored := make(map[string]int, len(items))
	for id, qty := range items {
		if qty > 0 {
			stored[strconv.FormatUint(uint64(id), 10)] = qty
		}
	}
	sess.Set(SessionKey, stored)
}

func normalize(raw any) Items {
	items := Items{}

	add := func(key string, value any) {
		id, ok := parseID(key)
		if !ok {
			return
		}
		qty, ok := parseQuantity(value)
		if !ok || qty <= 0 {
			return
		}
		items[id] += qty
	}

	switch stored := raw.(type) {
	case map[string]int:
		for k, v := range stored {
			add(k, v)
		}
	case map[string]any:
		for k, v := range stored {
			add(k, v)
		}
	}
	return items
}

func parseID(key string) (uint, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(key), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return uint(id), true
}

func parseQuantity(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) > math.MaxInt32 {
			return 0, false
		}
		return int(v), true
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n), true
		}
		f, err := v.Float64()
		if err != nil {
			return 0, false
		}
		return parseQuantity(f)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, false
		}
		return n, true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// Line is one resolved cart entry.
type Line struct {
	Product   models.Product
	Quantity  int
	LineTotal decimal.Decimal
}

// Resolve pairs cart entries with their active products, in product id
// order. Entries whose product is not in products are skipped.
func Resolve(items Items, products []models.Product) ([]Line, decimal.Decimal) {
	byID := make(map[uint]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	lines := make([]Line, 0, len(items))
	subtotal := decimal.Zero
	for _, id := range items.IDs() {
		product, ok := byID[id]
		if !ok {
			continue
		}
		qty := items[id]
		lineTotal := product.Price.Mul(decimal.NewFromInt(int64(qty)))
		subtotal = subtotal.Add(lineTotal)
		lines = append(lines, Line{Product: product, Quantity: qty, LineTotal: lineTotal})
	}
	return lines, subtotal
}

// Lines loads the active products in the cart and resolves it.
func Lines(ctx context.Context, products ProductProvider, items Items) ([]Line, decimal.Decimal, error) {
	found, err := products.FindActiveByIDs(ctx, items.IDs())
	if err != nil {
		return nil, decimal.Zero, err
	}
	lines, subtotal := Resolve(items, found)
	return lines, subtotal, nil
}

package api

import (
	"net/http"
	"strconv"

	"github.com/simplestore/storefront/models"
)

// Product is the public view of a catalog product.
type Product struct {
	ID          uint    `json:"id"`
	Name        string  `json:"name"`
	Slug        string  `json:"slug"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	ImageURL    string  `json:"image_url,omitempty"`
}

func NewProduct(p models.Product) Product {
	return Product{
		ID:          p.ID,
		Name:        p.Name,
		Slug:        p.Slug,
		Description: p.Description,
		Price:       p.Price.InexactFloat64(),
		ImageURL:    p.ImageURL,
	}
}

// PathID parses a positive numeric path value.
func PathID(r *http.Request, name string) (uint, bool) {
	id, err := strconv.ParseUint(r.PathValue(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

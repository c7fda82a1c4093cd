package catalog

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/simplestore/storefront/app/api"
	"github.com/simplestore/storefront/app/cart"
	"github.com/simplestore/storefront/app/logger"
	"github.com/simplestore/storefront/app/session"
	"github.com/simplestore/storefront/models"
)

type Response struct {
	cart.Page
	Total    int           `json:"total"`
	Products []api.Product `json:"products"`
}

type ProductResponse struct {
	cart.Page
	Product   api.Product `json:"product"`
	QtyInCart int         `json:"qty_in_cart"`
}

type ProductProvider interface {
	ListActive(ctx context.Context) ([]models.Product, error)
	GetActiveByID(ctx context.Context, id uint) (*models.Product, error)
}

type CatalogHandler struct {
	repo ProductProvider
}

func NewCatalogHandler(r ProductProvider) *CatalogHandler {
	return &CatalogHandler{
		repo: r,
	}
}

// HandleGet lists active products by name.
func (h *CatalogHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	res, err := h.repo.ListActive(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("failed to get products", zap.Error(err))
		api.ErrorResponse(w, http.StatusInternalServerError, "failed to get products")
		return
	}

	products := make([]api.Product, len(res))
	for i, p := range res {
		products[i] = api.NewProduct(p)
	}

	api.OKResponse(w, Response{
		Page:     cart.NewPage(session.FromContext(r.Context())),
		Total:    len(products),
		Products: products,
	})
}

// HandleGetProduct shows one active product. Inactive and unknown ids are
// both reported as not found.
func (h *CatalogHandler) HandleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := api.PathID(r, "id")
	if !ok {
		api.ErrorResponse(w, http.StatusNotFound, "Product not found")
		return
	}

	product, err := h.repo.GetActiveByID(r.Context(), id)
	if errors.Is(err, models.ErrProductNotFound) {
		api.ErrorResponse(w, http.StatusNotFound, "Product not found")
		return
	}
	if err != nil {
		logger.FromContext(r.Context()).Error("failed to retrieve product", zap.Uint("product_id", id), zap.Error(err))
		api.ErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve product")
		return
	}

	sess := session.FromContext(r.Context())
	api.OKResponse(w, ProductResponse{
		Page:      cart.NewPage(sess),
		Product:   api.NewProduct(*product),
		QtyInCart: cart.Get(sess)[product.ID],
	})
}

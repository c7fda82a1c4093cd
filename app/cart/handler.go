package cart

import (
	"errors"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/simplestore/storefront/app/api"
	"github.com/simplestore/storefront/app/logger"
	"github.com/simplestore/storefront/app/session"
	"github.com/simplestore/storefront/models"
)

type Item struct {
	Product   api.Product `json:"product"`
	Quantity  int         `json:"quantity"`
	LineTotal float64     `json:"line_total"`
}

type Response struct {
	Page
	Items    []Item  `json:"items"`
	Subtotal float64 `json:"subtotal"`
}

type CartHandler struct {
	repo ProductProvider
}

func NewCartHandler(r ProductProvider) *CartHandler {
	return &CartHandler{
		repo: r,
	}
}

func (h *CartHandler) HandleView(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())

	lines, subtotal, err := Lines(r.Context(), h.repo, Get(sess))
	if err != nil {
		logger.FromContext(r.Context()).Error("failed to load cart", zap.Error(err))
		api.ErrorResponse(w, http.StatusInternalServerError, "failed to load cart")
		return
	}

	items := make([]Item, len(lines))
	for i, line := range lines {
		items[i] = Item{
			Product:   api.NewProduct(line.Product),
			Quantity:  line.Quantity,
			LineTotal: line.LineTotal.InexactFloat64(),
		}
	}

	api.OKResponse(w, Response{
		Page:     NewPage(sess),
		Items:    items,
		Subtotal: subtotal.InexactFloat64(),
	})
}

func (h *CartHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	id, ok := api.PathID(r, "id")
	if !ok {
		api.ErrorResponse(w, http.StatusNotFound, "Product not found")
		return
	}

	sess := session.FromContext(r.Context())
	product, err := Add(r.Context(), sess, h.repo, id)
	if errors.Is(err, models.ErrProductNotFound) {
		api.ErrorResponse(w, http.StatusNotFound, "Product not found")
		return
	}
	if err != nil {
		logger.FromContext(r.Context()).Error("failed to add product to cart", zap.Uint("product_id", id), zap.Error(err))
		api.ErrorResponse(w, http.StatusInternalServerError, "failed to add product to cart")
		return
	}

	sess.AddFlash(session.LevelSuccess, "Added "+product.Name+" to cart.")
	api.Redirect(w, r, nextURL(r))
}

func (h *CartHandler) HandleRemove(w http.ResponseWriter, r *http.Request) {
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
		logger.FromContext(r.Context()).Error("failed to remove product from cart", zap.Uint("product_id", id), zap.Error(err))
		api.ErrorResponse(w, http.StatusInternalServerError, "failed to remove product from cart")
		return
	}

	sess := session.FromContext(r.Context())
	if RemoveOne(sess, product.ID) {
		sess.AddFlash(session.LevelInfo, "Removed 1 × "+product.Name+".")
	}
	api.Redirect(w, r, "/cart/")
}

// nextURL picks where to send the visitor after adding to the cart: an
// explicit next value, then the referring page on this site, then the cart.
func nextURL(r *http.Request) string {
	if next := r.FormValue("next"); next != "" {
		return api.LocalPath(next, "/cart/")
	}

	if ref, err := url.Parse(r.Referer()); err == nil && ref.Path != "" {
		if ref.Host == "" || ref.Host == r.Host {
			return api.LocalPath(ref.RequestURI(), "/cart/")
		}
	}
	return "/cart/"
}

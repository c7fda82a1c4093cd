package orders

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/simplestore/storefront/app/api"
	"github.com/simplestore/storefront/app/cart"
	"github.com/simplestore/storefront/app/logger"
	"github.com/simplestore/storefront/app/session"
	"github.com/simplestore/storefront/models"
)

type Item struct {
	Product   api.Product `json:"product"`
	Quantity  int         `json:"quantity"`
	UnitPrice float64     `json:"unit_price"`
	LineTotal float64     `json:"line_total"`
}

type Order struct {
	ID        uint      `json:"id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	Address   string    `json:"address"`
	Items     []Item    `json:"items"`
	Total     float64   `json:"total"`
}

type Response struct {
	cart.Page
	Order Order `json:"order"`
}

type OrderProvider interface {
	GetForUser(ctx context.Context, id, userID uint) (*models.Order, error)
}

type OrdersHandler struct {
	repo OrderProvider
}

func NewOrdersHandler(r OrderProvider) *OrdersHandler {
	return &OrdersHandler{
		repo: r,
	}
}

// HandleGet shows one of the visitor's own orders. Orders of other users
// are answered exactly like ids that do not exist.
func (h *OrdersHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	userID, ok := sess.UserID()
	if !ok {
		api.ErrorResponse(w, http.StatusNotFound, "Order not found")
		return
	}

	id, ok := api.PathID(r, "id")
	if !ok {
		api.ErrorResponse(w, http.StatusNotFound, "Order not found")
		return
	}

	order, err := h.repo.GetForUser(r.Context(), id, userID)
	if errors.Is(err, models.ErrOrderNotFound) {
		api.ErrorResponse(w, http.StatusNotFound, "Order not found")
		return
	}
	if err != nil {
		logger.FromContext(r.Context()).Error("failed to retrieve order", zap.Uint("order_id", id), zap.Error(err))
		api.ErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve order")
		return
	}

	items := make([]Item, len(order.Items))
	for i, item := range order.Items {
		items[i] = Item{
			Product:   api.NewProduct(item.Product),
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice.InexactFloat64(),
			LineTotal: item.LineTotal().InexactFloat64(),
		}
	}

	api.OKResponse(w, Response{
		Page: cart.NewPage(sess),
		Order: Order{
			ID:        order.ID,
			Status:    string(order.Status),
			CreatedAt: order.CreatedAt,
			FullName:  order.FullName,
			Email:     order.Email,
			Address:   order.Address,
			Items:     items,
			Total:     order.Total().InexactFloat64(),
		},
	})
}

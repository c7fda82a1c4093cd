package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/simplestore/storefront/app/api"
	"github.com/simplestore/storefront/app/cart"
	"github.com/simplestore/storefront/app/logger"
	"github.com/simplestore/storefront/app/session"
	"github.com/simplestore/storefront/models"
)

type Response struct {
	cart.Page
	Form     Form    `json:"form"`
	Subtotal float64 `json:"subtotal"`
}

type OrderPlacer interface {
	PlaceOrder(ctx context.Context, userID uint, items cart.Items, form Form) (*models.Order, error)
}

type UserProvider interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
}

type CheckoutHandler struct {
	orders   OrderPlacer
	products cart.ProductProvider
	users    UserProvider
	validate *validator.Validate
}

func NewCheckoutHandler(o OrderPlacer, p cart.ProductProvider, u UserProvider) *CheckoutHandler {
	return &CheckoutHandler{
		orders:   o,
		products: p,
		users:    u,
		validate: api.NewValidator(),
	}
}

// HandleGet returns the shipping form pre-filled from the account.
func (h *CheckoutHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	log := logger.FromContext(r.Context())

	userID, ok := sess.UserID()
	if !ok {
		redirectToLogin(w, r)
		return
	}

	items := cart.Get(sess)
	if items.Count() == 0 {
		emptyCart(w, r, sess)
		return
	}

	user, err := h.users.GetByID(r.Context(), userID)
	if errors.Is(err, models.ErrUserNotFound) {
		sess.Logout()
		redirectToLogin(w, r)
		return
	}
	if err != nil {
		log.Error("failed to load user", zap.Uint("user_id", userID), zap.Error(err))
		api.ErrorResponse(w, http.StatusInternalServerError, "failed to load checkout")
		return
	}

	_, subtotal, err := cart.Lines(r.Context(), h.products, items)
	if err != nil {
		log.Error("failed to load cart", zap.Error(err))
		api.ErrorResponse(w, http.StatusInternalServerError, "failed to load checkout")
		return
	}

	fullName := user.FullName()
	if fullName == "" {
		fullName = user.Username
	}

	api.OKResponse(w, Response{
		Page:     cart.NewPage(sess),
		Form:     Form{FullName: fullName, Email: user.Email},
		Subtotal: subtotal.InexactFloat64(),
	})
}

// HandlePost places the order and clears the cart.
func (h *CheckoutHandler) HandlePost(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	log := logger.FromContext(r.Context())

	userID, ok := sess.UserID()
	if !ok {
		redirectToLogin(w, r)
		return
	}

	items := cart.Get(sess)
	if items.Count() == 0 {
		emptyCart(w, r, sess)
		return
	}

	var form Form
	if err := api.Bind(r, &form); err != nil {
		api.ErrorResponse(w, http.StatusBadRequest, "invalid form data")
		return
	}
	form.FullName = strings.TrimSpace(form.FullName)
	form.Email = strings.TrimSpace(form.Email)
	form.Address = strings.TrimSpace(form.Address)

	if err := h.validate.Struct(form); err != nil {
		api.ValidationErrorResponse(w, api.FieldErrors(err), form)
		return
	}

	order, err := h.orders.PlaceOrder(r.Context(), userID, items, form)
	switch {
	case errors.Is(err, ErrEmptyCart):
		emptyCart(w, r, sess)
		return
	case errors.Is(err, ErrNoValidItems):
		sess.AddFlash(session.LevelError, "No valid items to checkout.")
		api.Redirect(w, r, "/cart/")
		return
	case err != nil:
		log.Error("failed to create order", zap.Uint("user_id", userID), zap.Error(err))
		api.ErrorResponse(w, http.StatusInternalServerError, "failed to create order")
		return
	}

	log.Info("order created",
		zap.Uint("order_id", order.ID),
		zap.Uint("user_id", userID),
		zap.Int("items", len(order.Items)),
		zap.String("total", order.Total().StringFixed(2)),
	)

	cart.Clear(sess)
	sess.AddFlash(session.LevelSuccess, fmt.Sprintf("Order #%d created.", order.ID))
	api.Redirect(w, r, fmt.Sprintf("/orders/%d/", order.ID))
}

func emptyCart(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	sess.AddFlash(session.LevelWarning, "Your cart is empty.")
	api.Redirect(w, r, "/cart/")
}

func redirectToLogin(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/login/?next=%2Fcheckout%2F", http.StatusFound)
}

package accounts

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/simplestore/storefront/app/api"
	"github.com/simplestore/storefront/app/cart"
	"github.com/simplestore/storefront/app/logger"
	"github.com/simplestore/storefront/app/session"
	"github.com/simplestore/storefront/models"
)

const invalidLogin = "Please enter a correct username and password. Note that both fields may be case-sensitive."

type FormResponse struct {
	cart.Page
	Form any    `json:"form"`
	Next string `json:"next,omitempty"`
}

type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	TouchLastLogin(ctx context.Context, id uint, at time.Time) error
}

type AccountsHandler struct {
	users    UserStore
	validate *validator.Validate
	now      func() time.Time
}

func NewAccountsHandler(u UserStore) *AccountsHandler {
	return &AccountsHandler{
		users:    u,
		validate: newValidator(),
		now:      time.Now,
	}
}

func (h *AccountsHandler) HandleRegisterForm(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	if _, ok := sess.UserID(); ok {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	api.OKResponse(w, FormResponse{
		Page: cart.NewPage(sess),
		Form: RegisterForm{}.public(),
	})
}

// HandleRegister creates the account and signs the visitor in.
func (h *AccountsHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	log := logger.FromContext(r.Context())

	if _, ok := sess.UserID(); ok {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	var form RegisterForm
	if err := api.Bind(r, &form); err != nil {
		api.ErrorResponse(w, http.StatusBadRequest, "invalid form data")
		return
	}
	form.Username = strings.TrimSpace(form.Username)
	form.Email = strings.TrimSpace(form.Email)

	if err := h.validate.Struct(form); err != nil {
		api.ValidationErrorResponse(w, api.FieldErrors(err), form.public())
		return
	}

	user := &models.User{
		Username: form.Username,
		Email:    form.Email,
		IsActive: true,
	}
	if err := user.SetPassword(form.Password1); err != nil {
		log.Error("failed to hash password", zap.Error(err))
		api.ErrorResponse(w, http.StatusInternalServerError, "failed to create account")
		return
	}

	err := h.users.Create(r.Context(), user)
	if errors.Is(err, models.ErrUsernameTaken) {
		api.ValidationErrorResponse(w, map[string]string{
			"username": "A user with that username already exists.",
		}, form.public())
		return
	}
	if err != nil {
		log.Error("failed to create user", zap.String("username", form.Username), zap.Error(err))
		api.ErrorResponse(w, http.StatusInternalServerError, "failed to create account")
		return
	}

	h.login(r.Context(), sess, user)
	log.Info("user registered", zap.Uint("user_id", user.ID))
	sess.AddFlash(session.LevelSuccess, "Account created. You're now logged in.")
	api.Redirect(w, r, "/")
}

func (h *AccountsHandler) HandleLoginForm(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	api.OKResponse(w, FormResponse{
		Page: cart.NewPage(sess),
		Form: map[string]string{"username": ""},
		Next: api.LocalPath(r.URL.Query().Get("next"), ""),
	})
}

// HandleLogin checks the credentials and binds the session to the user.
// The cart carries over.
func (h *AccountsHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	log := logger.FromContext(r.Context())

	var form LoginForm
	if err := api.Bind(r, &form); err != nil {
		api.ErrorResponse(w, http.StatusBadRequest, "invalid form data")
		return
	}
	form.Username = strings.TrimSpace(form.Username)
	if form.Next == "" {
		form.Next = r.URL.Query().Get("next")
	}
	echo := map[string]string{"username": form.Username}

	if err := h.validate.Struct(form); err != nil {
		api.ValidationErrorResponse(w, api.FieldErrors(err), echo)
		return
	}

	user, err := h.users.GetByUsername(r.Context(), form.Username)
	if err != nil && !errors.Is(err, models.ErrUserNotFound) {
		log.Error("failed to look up user", zap.Error(err))
		api.ErrorResponse(w, http.StatusInternalServerError, "failed to log in")
		return
	}
	if user == nil {
		models.CheckMissingUserPassword(form.Password)
	}
	if user == nil || !user.CheckPassword(form.Password) || !user.IsActive {
		api.JSON(w, http.StatusBadRequest, api.ValidationError{
			Error:  invalidLogin,
			Fields: map[string]string{},
			Form:   echo,
		})
		return
	}

	h.login(r.Context(), sess, user)
	api.Redirect(w, r, api.LocalPath(form.Next, "/"))
}

func (h *AccountsHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	session.FromContext(r.Context()).Logout()
	api.Redirect(w, r, "/")
}

func (h *AccountsHandler) login(ctx context.Context, sess *session.Session, user *models.User) {
	sess.Login(user.ID)
	if err := h.users.TouchLastLogin(ctx, user.ID, h.now()); err != nil {
		logger.FromContext(ctx).Warn("failed to record last login", zap.Uint("user_id", user.ID), zap.Error(err))
	}
}

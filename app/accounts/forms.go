package accounts

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/simplestore/storefront/app/api"
)

var usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)

type RegisterForm struct {
	Username  string `json:"username" validate:"required,max=150,username"`
	Email     string `json:"email" validate:"required,email,max=254"`
	Password1 string `json:"password1" validate:"required,min=8,passwordbytes=72,notnumeric"`
	Password2 string `json:"password2" validate:"required,eqfield=Password1"`
}

// public drops the passwords before the form is echoed back.
func (f RegisterForm) public() map[string]string {
	return map[string]string{"username": f.Username, "email": f.Email}
}

type LoginForm struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
	Next     string `json:"next"`
}

func newValidator() *validator.Validate {
	v := api.NewValidator()
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	// bcrypt only accepts passwords up to 72 bytes
	_ = v.RegisterValidation("passwordbytes", func(fl validator.FieldLevel) bool {
		limit, err := strconv.Atoi(fl.Param())
		if err != nil {
			return false
		}
		return len(fl.Field().String()) <= limit
	})
	_ = v.RegisterValidation("notnumeric", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return strings.TrimFunc(s, func(r rune) bool { return r >= '0' && r <= '9' }) != ""
	})
	return v
}

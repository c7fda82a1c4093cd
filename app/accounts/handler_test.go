package accounts

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simplestore/storefront/app/api"
	"github.com/simplestore/storefront/app/cart"
	"github.com/simplestore/storefront/app/session"
	"github.com/simplestore/storefront/models"
)

// --- Mock Repo ---

type MockUserRepo struct {
	Users     []*models.User
	Err       error
	TouchErr  error
	touchedID uint
}

func (m *MockUserRepo) Create(_ context.Context, user *models.User) error {
	if m.Err != nil {
		return m.Err
	}
	for _, u := range m.Users {
		if strings.EqualFold(u.Username, user.Username) {
			return models.ErrUsernameTaken
		}
	}
	user.ID = uint(len(m.Users) + 1)
	m.Users = append(m.Users, user)
	return nil
}

func (m *MockUserRepo) GetByUsername(_ context.Context, username string) (*models.User, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	for _, u := range m.Users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, models.ErrUserNotFound
}

func (m *MockUserRepo) TouchLastLogin(_ context.Context, id uint, _ time.Time) error {
	m.touchedID = id
	return m.TouchErr
}

// --- Helpers ---

func postForm(target string, form url.Values, sess *session.Session) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req.WithContext(session.NewContext(req.Context(), sess))
}

func existingUser(t *testing.T, username, password string, active bool) *models.User {
	t.Helper()
	user := &models.User{ID: 1, Username: username, Email: username + "@example.com", IsActive: active}
	require.NoError(t, user.SetPassword(password))
	return user
}

// --- Tests ---

func TestHandleRegister(t *testing.T) {
	valid := url.Values{
		"username":  {"ada"},
		"email":     {"ada@example.com"},
		"password1": {"s3cure-pass"},
		"password2": {"s3cure-pass"},
	}
	with := func(key, value string) url.Values {
		form := url.Values{}
		for k, v := range valid {
			form[k] = v
		}
		form.Set(key, value)
		return form
	}

	testCases := []struct {
		name               string
		form               url.Values
		mockRepoSetup      func() *MockUserRepo
		expectedStatusCode int
		expectedFields     map[string]string
	}{
		{
			name:               "Success",
			form:               valid,
			mockRepoSetup:      func() *MockUserRepo { return &MockUserRepo{} },
			expectedStatusCode: http.StatusSeeOther,
		},
		{
			name:               "Missing fields",
			form:               url.Values{},
			mockRepoSetup:      func() *MockUserRepo { return &MockUserRepo{} },
			expectedStatusCode: http.StatusBadRequest,
			expectedFields: map[string]string{
				"username":  "This field is required.",
				"email":     "This field is required.",
				"password1": "This field is required.",
				"password2": "This field is required.",
			},
		},
		{
			name:               "Invalid username characters",
			form:               with("username", "ada lovelace!"),
			mockRepoSetup:      func() *MockUserRepo { return &MockUserRepo{} },
			expectedStatusCode: http.StatusBadRequest,
			expectedFields: map[string]string{
				"username": "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters.",
			},
		},
		{
			name:               "Username too long",
			form:               with("username", strings.Repeat("a", 151)),
			mockRepoSetup:      func() *MockUserRepo { return &MockUserRepo{} },
			expectedStatusCode: http.StatusBadRequest,
			expectedFields: map[string]string{
				"username": "Ensure this value has at most 150 characters.",
			},
		},
		{
			name:               "Invalid email",
			form:               with("email", "nope"),
			mockRepoSetup:      func() *MockUserRepo { return &MockUserRepo{} },
			expectedStatusCode: http.StatusBadRequest,
			expectedFields:     map[string]string{"email": "Enter a valid email address."},
		},
		{
			name: "Numeric password",
			form: func() url.Values {
				f := with("password1", "12345678")
				f.Set("password2", "12345678")
				return f
			}(),
			mockRepoSetup:      func() *MockUserRepo { return &MockUserRepo{} },
			expectedStatusCode: http.StatusBadRequest,
			expectedFields:     map[string]string{"password1": "This password is entirely numeric."},
		},
		{
			name: "Password longer than bcrypt accepts",
			form: func() url.Values {
				f := with("password1", strings.Repeat("a", 80))
				f.Set("password2", strings.Repeat("a", 80))
				return f
			}(),
			mockRepoSetup:      func() *MockUserRepo { return &MockUserRepo{} },
			expectedStatusCode: http.StatusBadRequest,
			expectedFields:     map[string]string{"password1": "Ensure this value has at most 72 bytes."},
		},
		{
			name: "Multibyte password over the byte limit",
			form: func() url.Values {
				f := with("password1", strings.Repeat("é", 40))
				f.Set("password2", strings.Repeat("é", 40))
				return f
			}(),
			mockRepoSetup:      func() *MockUserRepo { return &MockUserRepo{} },
			expectedStatusCode: http.StatusBadRequest,
			expectedFields:     map[string]string{"password1": "Ensure this value has at most 72 bytes."},
		},
		{
			name:               "Passwords differ",
			form:               with("password2", "something-else"),
			mockRepoSetup:      func() *MockUserRepo { return &MockUserRepo{} },
			expectedStatusCode: http.StatusBadRequest,
			expectedFields:     map[string]string{"password2": "The two password fields didn't match."},
		},
		{
			name: "Username taken ignoring case",
			form: with("username", "ADA"),
			mockRepoSetup: func() *MockUserRepo {
				return &MockUserRepo{Users: []*models.User{{ID: 1, Username: "ada"}}}
			},
			expectedStatusCode: http.StatusBadRequest,
			expectedFields:     map[string]string{"username": "A user with that username already exists."},
		},
		{
			name:               "Repository error",
			form:               valid,
			mockRepoSetup:      func() *MockUserRepo { return &MockUserRepo{Err: assert.AnError} },
			expectedStatusCode: http.StatusInternalServerError,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			repo := tc.mockRepoSetup()
			handler := NewAccountsHandler(repo)
			sess := session.New()
			sess.Set(cart.SessionKey, map[string]int{"3": 1})
			rec := httptest.NewRecorder()

			handler.HandleRegister(rec, postForm("/register/", tc.form, sess))

			assert.Equal(t, tc.expectedStatusCode, rec.Code)

			if tc.expectedStatusCode == http.StatusSeeOther {
				assert.Equal(t, "/", rec.Header().Get("Location"))
				userID, ok := sess.UserID()
				assert.True(t, ok, "registration logs the user in")
				assert.Equal(t, repo.Users[len(repo.Users)-1].ID, userID)
				assert.Equal(t, userID, repo.touchedID)
				assert.True(t, repo.Users[len(repo.Users)-1].CheckPassword("s3cure-pass"))
				assert.Equal(t, cart.Items{3: 1}, cart.Get(sess), "cart survives login")
				assert.Equal(t, []session.Message{{
					Level: session.LevelSuccess,
					Text:  "Account created. You're now logged in.",
				}}, sess.Flashes())
				return
			}

			_, ok := sess.UserID()
			assert.False(t, ok)

			if tc.expectedFields != nil {
				var resp api.ValidationError
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
				for field, msg := range tc.expectedFields {
					assert.Equal(t, msg, resp.Fields[field], field)
				}
				form, _ := resp.Form.(map[string]any)
				assert.NotContains(t, form, "password1")
			}
		})
	}
}

func TestHandleRegister_AlreadyAuthenticated(t *testing.T) {
	handler := NewAccountsHandler(&MockUserRepo{})
	sess := session.New()
	sess.Login(4)

	rec := httptest.NewRecorder()
	handler.HandleRegisterForm(rec, postForm("/register/", nil, sess))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	rec = httptest.NewRecorder()
	handler.HandleRegister(rec, postForm("/register/", url.Values{"username": {"x"}}, sess))
	assert.Equal(t, http.StatusFound, rec.Code)
}

func TestHandleRegisterForm(t *testing.T) {
	handler := NewAccountsHandler(&MockUserRepo{})
	req := httptest.NewRequest(http.MethodGet, "/register/", nil)
	req = req.WithContext(session.NewContext(req.Context(), session.New()))
	rec := httptest.NewRecorder()

	handler.HandleRegisterForm(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp FormResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, map[string]any{"username": "", "email": ""}, resp.Form)
}

func TestHandleLogin(t *testing.T) {
	active := existingUser(t, "grace", "correct-horse", true)
	inactive := existingUser(t, "linus", "correct-horse", false)
	inactive.ID = 2

	testCases := []struct {
		name               string
		target             string
		form               url.Values
		mockRepoSetup      func() *MockUserRepo
		expectedStatusCode int
		expectedLocation   string
		expectLoggedIn     bool
	}{
		{
			name:               "Success",
			target:             "/login/",
			form:               url.Values{"username": {"grace"}, "password": {"correct-horse"}},
			mockRepoSetup:      func() *MockUserRepo { return &MockUserRepo{Users: []*models.User{active}} },
			expectedStatusCode: http.StatusSeeOther,
			expectedLocation:   "/",
			expectLoggedIn:     true,
		},
		{
			name:               "Honors next from query",
			target:             "/login/?next=" + url.QueryEscape("/checkout/"),
			form:               url.Values{"username": {"grace"}, "password": {"correct-horse"}},
			mockRepoSetup:      func() *MockUserRepo { return &MockUserRepo{Users: []*models.User{active}} },
			expectedStatusCode: http.StatusSeeOther,
			expectedLocation:   "/checkout/",
			expectLoggedIn:     true,
		},
		{
			name:               "Rejects foreign next",
			target:             "/login/",
			form:               url.Values{"username": {"grace"}, "password": {"correct-horse"}, "next": {"//evil.example/"}},
			mockRepoSetup:      func() *MockUserRepo { return &MockUserRepo{Users: []*models.User{active}} },
			expectedStatusCode: http.StatusSeeOther,
			expectedLocation:   "/",
			expectLoggedIn:     true,
		},
		{
			name:               "Wrong password",
			target:             "/login/",
			form:               url.Values{"username": {"grace"}, "password": {"nope"}},
			mockRepoSetup:      func() *MockUserRepo { return &MockUserRepo{Users: []*models.User{active}} },
			expectedStatusCode: http.StatusBadRequest,
		},
		{
			name:               "Unknown user",
			target:             "/login/",
			form:               url.Values{"username": {"nobody"}, "password": {"correct-horse"}},
			mockRepoSetup:      func() *MockUserRepo { return &MockUserRepo{Users: []*models.User{active}} },
			expectedStatusCode: http.StatusBadRequest,
		},
		{
			name:               "Inactive user",
			target:             "/login/",
			form:               url.Values{"username": {"linus"}, "password": {"correct-horse"}},
			mockRepoSetup:      func() *MockUserRepo { return &MockUserRepo{Users: []*models.User{inactive}} },
			expectedStatusCode: http.StatusBadRequest,
		},
		{
			name:               "Missing fields",
			target:             "/login/",
			form:               url.Values{},
			mockRepoSetup:      func() *MockUserRepo { return &MockUserRepo{} },
			expectedStatusCode: http.StatusBadRequest,
		},
		{
			name:               "Repository error",
			target:             "/login/",
			form:               url.Values{"username": {"grace"}, "password": {"correct-horse"}},
			mockRepoSetup:      func() *MockUserRepo { return &MockUserRepo{Err: assert.AnError} },
			expectedStatusCode: http.StatusInternalServerError,
		},
		{
			name:   "Last login failure does not block login",
			target: "/login/",
			form:   url.Values{"username": {"grace"}, "password": {"correct-horse"}},
			mockRepoSetup: func() *MockUserRepo {
				return &MockUserRepo{Users: []*models.User{active}, TouchErr: assert.AnError}
			},
			expectedStatusCode: http.StatusSeeOther,
			expectedLocation:   "/",
			expectLoggedIn:     true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			handler := NewAccountsHandler(tc.mockRepoSetup())
			sess := session.New()
			sess.Set(cart.SessionKey, map[string]int{"1": 2})
			rec := httptest.NewRecorder()

			handler.HandleLogin(rec, postForm(tc.target, tc.form, sess))

			assert.Equal(t, tc.expectedStatusCode, rec.Code)
			assert.Equal(t, tc.expectedLocation, rec.Header().Get("Location"))

			userID, ok := sess.UserID()
			assert.Equal(t, tc.expectLoggedIn, ok)
			if tc.expectLoggedIn {
				assert.Equal(t, active.ID, userID)
			}
			assert.Equal(t, cart.Items{1: 2}, cart.Get(sess))

			if tc.expectedStatusCode == http.StatusBadRequest && len(tc.form) > 0 {
				var resp api.ValidationError
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
				assert.Equal(t, invalidLogin, resp.Error)
			}
		})
	}
}

func TestHandleLogin_OtherUserStartsClean(t *testing.T) {
	alice := existingUser(t, "alice", "correct-horse", true)
	bob := existingUser(t, "bob", "battery-staple", true)
	bob.ID = 2
	handler := NewAccountsHandler(&MockUserRepo{Users: []*models.User{alice, bob}})

	sess := session.New()
	sess.Login(alice.ID)
	sess.Set(cart.SessionKey, map[string]int{"5": 3})
	sess.AddFlash(session.LevelInfo, "Added Coffee Mug to cart.")

	rec := httptest.NewRecorder()
	handler.HandleLogin(rec, postForm("/login/", url.Values{"username": {"bob"}, "password": {"battery-staple"}}, sess))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	userID, ok := sess.UserID()
	assert.True(t, ok)
	assert.Equal(t, bob.ID, userID)
	assert.Empty(t, cart.Get(sess))
	assert.Empty(t, sess.Flashes())
}

func TestHandleLoginForm(t *testing.T) {
	handler := NewAccountsHandler(&MockUserRepo{})
	req := httptest.NewRequest(http.MethodGet, "/login/?next="+url.QueryEscape("/orders/1/"), nil)
	req = req.WithContext(session.NewContext(req.Context(), session.New()))
	rec := httptest.NewRecorder()

	handler.HandleLoginForm(rec, req)

	var resp FormResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "/orders/1/", resp.Next)
}

func TestHandleLogout(t *testing.T) {
	handler := NewAccountsHandler(&MockUserRepo{})
	sess := session.New()
	sess.Login(1)
	sess.Set(cart.SessionKey, map[string]int{"1": 2})

	rec := httptest.NewRecorder()
	handler.HandleLogout(rec, postForm("/logout/", nil, sess))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	_, ok := sess.UserID()
	assert.False(t, ok)
	assert.Empty(t, cart.Get(sess))
}

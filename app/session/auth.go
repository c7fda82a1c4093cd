package session

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
)

const authUserKey = "_auth_user_id"

// Login binds the session to a user. The id is cycled so a token captured
// before login cannot be reused after it. An anonymous cart survives, but a
// session that belonged to another user is flushed first.
func (s *Session) Login(userID uint) {
	if current, ok := s.UserID(); ok && current != userID {
		s.Flush()
	} else {
		s.CycleID()
	}
	s.Set(authUserKey, userID)
}

// Logout drops all session state, cart included.
func (s *Session) Logout() {
	s.Flush()
}

// UserID returns the authenticated user's id, if any.
func (s *Session) UserID() (uint, bool) {
	raw, ok := s.values[authUserKey]
	if !ok {
		return 0, false
	}

	var id int64
	switch v := raw.(type) {
	case uint:
		id = int64(v)
	case int:
		id = int64(v)
	case int64:
		id = v
	case float64:
		id = int64(v)
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		id = n
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, false
		}
		id = n
	default:
		return 0, false
	}

	if id <= 0 {
		return 0, false
	}
	return uint(id), true
}

// RequireLogin redirects anonymous visitors to loginURL, carrying the
// requested path in the next parameter.
func RequireLogin(loginURL string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := FromContext(r.Context()).UserID(); !ok {
				target := loginURL + "?" + url.Values{"next": {r.URL.RequestURI()}}.Encode()
				http.Redirect(w, r, target, http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Package session keeps per-visitor state on the server. The browser only
// holds a signed token naming the session; the values live in a Store.
package session

import (
	"context"
	"maps"

	"github.com/google/uuid"
)

// Session is the state bag of one visitor. It is not safe for concurrent
// use; each request gets its own copy.
type Session struct {
	id       string
	values   map[string]any
	isNew    bool
	modified bool
	// staleID is a previous id whose stored state must be removed on commit.
	staleID string
}

// New returns an empty session with a fresh id.
func New() *Session {
	return &Session{
		id:     uuid.NewString(),
		values: map[string]any{},
		isNew:  true,
	}
}

func load(id string, values map[string]any) *Session {
	if values == nil {
		values = map[string]any{}
	}
	return &Session{id: id, values: values}
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Get(key string) (any, bool) {
	v, ok := s.values[key]
	return v, ok
}

func (s *Session) Set(key string, value any) {
	s.values[key] = value
	s.modified = true
}

func (s *Session) Delete(key string) {
	if _, ok := s.values[key]; ok {
		delete(s.values, key)
		s.modified = true
	}
}

// Values returns a copy of the stored values.
func (s *Session) Values() map[string]any {
	return maps.Clone(s.values)
}

func (s *Session) Modified() bool {
	return s.modified
}

// CycleID moves the values to a new id and schedules the old state for removal.
func (s *Session) CycleID() {
	if !s.isNew && s.staleID == "" {
		s.staleID = s.id
	}
	s.id = uuid.NewString()
	s.modified = true
}

// Flush drops every value and moves the session to a new id.
func (s *Session) Flush() {
	s.values = map[string]any{}
	s.CycleID()
}

type contextKey struct{}

// NewContext returns a copy of ctx carrying sess.
func NewContext(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, sess)
}

// FromContext returns the request's session. Outside the middleware it
// returns a detached empty session that is never persisted.
func FromContext(ctx context.Context) *Session {
	if sess, ok := ctx.Value(contextKey{}).(*Session); ok {
		return sess
	}
	return New()
}

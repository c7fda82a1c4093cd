package session

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/simplestore/storefront/app/logger"
)

type Options struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
}

// Manager loads the visitor's session before a handler runs and persists it
// before the response headers go out.
type Manager struct {
	store      Store
	signer     *TokenSigner
	cookieName string
	ttl        time.Duration
	secure     bool
	logger     *zap.Logger
}

func NewManager(store Store, secret string, opts Options, log *zap.Logger) *Manager {
	if opts.CookieName == "" {
		opts.CookieName = "sessionid"
	}
	if opts.TTL <= 0 {
		opts.TTL = 14 * 24 * time.Hour
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		store:      store,
		signer:     NewTokenSigner(secret, opts.TTL),
		cookieName: opts.CookieName,
		ttl:        opts.TTL,
		secure:     opts.Secure,
		logger:     log,
	}
}

func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := m.load(r)
		ctx := NewContext(r.Context(), sess)

		cw := &commitWriter{ResponseWriter: w}
		cw.commit = func() { m.commit(ctx, w, sess) }

		next.ServeHTTP(cw, r.WithContext(ctx))
		cw.flush()
	})
}

func (m *Manager) load(r *http.Request) *Session {
	cookie, err := r.Cookie(m.cookieName)
	if err != nil {
		return New()
	}

	id, err := m.signer.Parse(cookie.Value)
	if err != nil {
		return New()
	}

	values, err := m.store.Load(r.Context(), id)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			logger.FromContext(r.Context()).Warn("failed to load session", zap.Error(err))
		}
		return New()
	}
	return load(id, values)
}

func (m *Manager) commit(ctx context.Context, w http.ResponseWriter, sess *Session) {
	log := logger.FromContext(ctx)

	if sess.staleID != "" {
		if err := m.store.Delete(ctx, sess.staleID); err != nil {
			log.Warn("failed to delete rotated session", zap.Error(err))
		}
		sess.staleID = ""
	}

	if !sess.modified {
		return
	}

	if len(sess.values) == 0 {
		if !sess.isNew {
			if err := m.store.Delete(ctx, sess.id); err != nil {
				log.Warn("failed to delete empty session", zap.Error(err))
			}
			http.SetCookie(w, m.cookie("", -1))
		}
		return
	}

	if err := m.store.Save(ctx, sess.id, sess.values, m.ttl); err != nil {
		log.Error("failed to save session", zap.Error(err))
		return
	}

	token, err := m.signer.Issue(sess.id)
	if err != nil {
		log.Error("failed to sign session token", zap.Error(err))
		return
	}
	http.SetCookie(w, m.cookie(token, int(m.ttl.Seconds())))
}

func (m *Manager) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     m.cookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// commitWriter runs commit exactly once, before the first byte of the
// response is written, so the session cookie can still be set.
type commitWriter struct {
	http.ResponseWriter
	commit    func()
	committed bool
}

func (w *commitWriter) flush() {
	if !w.committed {
		w.committed = true
		w.commit()
	}
}

func (w *commitWriter) WriteHeader(status int) {
	w.flush()
	w.ResponseWriter.WriteHeader(status)
}

func (w *commitWriter) Write(b []byte) (int, error) {
	w.flush()
	return w.ResponseWriter.Write(b)
}

func (w *commitWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

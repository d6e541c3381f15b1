package middleware

import (
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/mokabook/bookstore/internal/session"
)

type SessionOptions struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
}

// Sessions loads the session named by the cookie, or starts a new one and sets
// the cookie. New sessions are persisted by whoever first changes them.
func Sessions(store session.Store, opts SessionOptions, log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var sess *session.Session
			if c, err := r.Cookie(opts.CookieName); err == nil && c.Value != "" {
				s, err := store.Get(r.Context(), c.Value)
				switch {
				case err == nil:
					sess = s
				case errors.Is(err, session.ErrNotFound):
				default:
					log.Error().Err(err).Msg("load session")
					writeError(w, http.StatusServiceUnavailable, "session_unavailable", "session store unavailable")
					return
				}
			}

			if sess == nil {
				sess = session.New()
				http.SetCookie(w, &http.Cookie{
					Name:     opts.CookieName,
					Value:    sess.ID,
					Path:     "/",
					MaxAge:   int(opts.TTL.Seconds()),
					HttpOnly: true,
					Secure:   opts.Secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			next.ServeHTTP(w, r.WithContext(session.WithSession(r.Context(), sess)))
		})
	}
}

package handler

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/ShreyanshuGhosh/nitebite/internal/domain/auth"
	"github.com/ShreyanshuGhosh/nitebite/internal/domain/cart"
	"github.com/ShreyanshuGhosh/nitebite/internal/session"
)

const (
	// HeaderSessionID carries the session id for clients without cookies.
	HeaderSessionID = "X-Session-ID"
	// SessionCookie is the session cookie name.
	SessionCookie = "nitebite_session"
)

type sessionKey struct{}

func sessionFrom(ctx context.Context) *session.Session {
	s, _ := ctx.Value(sessionKey{}).(*session.Session)
	return s
}

// withSession resolves the caller's session, issuing a new one when the
// request carries none.
func (h *Handler) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderSessionID)
		if id == "" {
			if c, err := r.Cookie(SessionCookie); err == nil {
				id = c.Value
			}
		}
		if _, err := uuid.Parse(id); err != nil {
			id = session.NewID()
		}

		s, err := h.sessions.Get(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookie,
			Value:    s.ID,
			Path:     "/",
			MaxAge:   int(h.cfg.SessionTTL.Seconds()),
			HttpOnly: true,
			Secure:   h.cfg.SecureCookies,
			SameSite: http.SameSiteLaxMode,
		})
		w.Header().Set(HeaderSessionID, s.ID)

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, s)))
	})
}

// authenticate resolves the bearer token, if any. Requests without a token
// continue anonymously; a bad token is rejected.
func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" || h.auth == nil {
			next.ServeHTTP(w, r)
			return
		}
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			writeError(w, r, auth.ErrUnauthorized)
			return
		}
		u, err := h.auth.Verify(strings.TrimSpace(token))
		if err != nil {
			writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), u)))
	})
}

type noticeKey struct{}

type noticeBuffer struct {
	mu      sync.Mutex
	notices []cart.Notice
}

func (b *noticeBuffer) add(n cart.Notice) {
	b.mu.Lock()
	b.notices = append(b.notices, n)
	b.mu.Unlock()
}

func (b *noticeBuffer) drain() []cart.Notice {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.notices
	b.notices = nil
	return out
}

// NoticeSink is the cart.Notifier for stores served by the Handler. Notices
// raised while handling a request are returned in its response.
var NoticeSink cart.Notifier = cart.NotifierFunc(func(ctx context.Context, n cart.Notice) {
	if b, ok := ctx.Value(noticeKey{}).(*noticeBuffer); ok {
		b.add(n)
	}
})

func collectNotices(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), noticeKey{}, &noticeBuffer{})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func noticesFrom(ctx context.Context) []cart.Notice {
	if b, ok := ctx.Value(noticeKey{}).(*noticeBuffer); ok {
		return b.drain()
	}
	return nil
}

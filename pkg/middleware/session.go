package middleware

import (
	"context"
	"crypto/sha256"
	"net/http"

	"github.com/gorilla/sessions"

	"github.com/moevm/nosql1h25-mldata/pkg/models"
)

// SessionName is the name of the identity session cookie.
const SessionName = "mldata-session"

// Session value keys.
const (
	sessionKeyName  = "name"
	sessionKeyLogin = "login"
)

type actorContextKey struct{}

// SessionActor resolves the acting user from the signed session
// cookie into the request context. Requests without a usable session
// proceed as the anonymous actor; authentication itself is handled by
// an external collaborator that populates the session.
type SessionActor struct {
	store *sessions.CookieStore
}

// NewSessionActor builds the session middleware. The secret signs
// session cookies; it can be any passphrase and is SHA-256 hashed to
// derive a consistent 32-byte key.
func NewSessionActor(secret string) *SessionActor {
	key := sha256.Sum256([]byte(secret))

	store := sessions.NewCookieStore(key[:])
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return &SessionActor{store: store}
}

// Handler wraps the whole route tree so the actor identity is
// available via ActorFromContext in every handler.
func (m *SessionActor) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := models.AnonymousActor

		if session, err := m.store.Get(r, SessionName); err == nil {
			if name, ok := session.Values[sessionKeyName].(string); ok && name != "" {
				actor.Name = name
			}
			if login, ok := session.Values[sessionKeyLogin].(string); ok && login != "" {
				actor.Login = login
			}
		}

		ctx := context.WithValue(r.Context(), actorContextKey{}, actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ActorFromContext returns the actor resolved by the session
// middleware, or the anonymous actor when none was resolved.
func ActorFromContext(ctx context.Context) models.Actor {
	if actor, ok := ctx.Value(actorContextKey{}).(models.Actor); ok {
		return actor
	}
	return models.AnonymousActor
}

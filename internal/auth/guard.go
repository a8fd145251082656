package auth

import (
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/operate360/operate360/internal/platform/httpx"
	"github.com/operate360/operate360/internal/shared"
)

// EventRecorder counts auth outcomes. observability.Metrics satisfies it.
type EventRecorder interface {
	RecordAuthEvent(event, outcome string)
}

// Guard admits requests carrying a valid, unrevoked bearer token.
type Guard struct {
	tokens      *TokenCodec
	revocations RevocationRegistry
	logger      *slog.Logger
	events      EventRecorder
}

// NewGuard constructs a Guard. logger and events may be nil.
func NewGuard(tokens *TokenCodec, revocations RevocationRegistry, logger *slog.Logger, events EventRecorder) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{tokens: tokens, revocations: revocations, logger: logger, events: events}
}

// Authenticate is the middleware placed in front of protected routes.
//
//	no bearer token         -> 401 Unauthorized
//	bad signature / expired -> 403 Invalid token
//	revoked                 -> 403 Invalid token
//	registry failure        -> 500
//	otherwise the principal is attached to the request context.
func (g *Guard) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := BearerToken(r)
		if token == "" {
			g.record("unauthorized")
			httpx.Message(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		claims, err := g.tokens.Verify(token)
		if err != nil {
			g.record("invalid")
			httpx.Message(w, http.StatusForbidden, "Invalid token")
			return
		}
		revoked, err := g.revocations.IsRevoked(r.Context(), token)
		if err != nil {
			g.record("error")
			g.logger.Error("check token revocation", slog.Any("error", err))
			httpx.RespondError(w, shared.Internal("auth: guard revocation", err))
			return
		}
		if revoked {
			g.record("revoked")
			httpx.Message(w, http.StatusForbidden, "Invalid token")
			return
		}
		g.record("admitted")
		ctx := shared.ContextWithPrincipal(r.Context(), claims.Principal())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (g *Guard) record(outcome string) {
	if g.events != nil {
		g.events.RecordAuthEvent("guard", outcome)
	}
}

// RequireRoles rejects principals whose role is not listed. Place it after Authenticate.
func RequireRoles(roleIDs ...int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := shared.PrincipalFromContext(r.Context())
			if !ok {
				httpx.Message(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			if !slices.Contains(roleIDs, p.RoleID) {
				httpx.Message(w, http.StatusForbidden, "Forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// BearerToken extracts the token from "Authorization: Bearer <token>".
// It returns "" when the header is missing or uses another scheme.
func BearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

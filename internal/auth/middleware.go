package auth

import (
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"
)

// SessionParam is the route parameter holding the session ID
const SessionParam = "id"

// TokenFromRequest extracts a bearer token from the Authorization header,
// falling back to the token query parameter used by browser WebSocket clients.
func TokenFromRequest(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
		return ""
	}
	return r.URL.Query().Get("token")
}

// RequireSession only lets a request through when it carries a valid token
// issued for the session named in the route.
func (s *Service) RequireSession(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		tokenString := TokenFromRequest(r)
		if tokenString == "" {
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}

		sessionID, err := s.ValidateToken(tokenString)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
		if want := ps.ByName(SessionParam); want != "" && want != sessionID {
			http.Error(w, ErrSessionMismatch.Error(), http.StatusForbidden)
			return
		}

		ctx := SetSessionIDInContext(r.Context(), sessionID)
		next(w, r.WithContext(ctx), ps)
	}
}

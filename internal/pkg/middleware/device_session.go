package middleware

import (
	"net/http"
	"strings"

	"github.com/tsel-ticketmaster/tm-gate/internal/pkg/jwt"
	"github.com/tsel-ticketmaster/tm-gate/internal/pkg/session"
	"github.com/tsel-ticketmaster/tm-gate/pkg/response"
	"github.com/tsel-ticketmaster/tm-gate/pkg/status"
)

type DeviceSession struct {
	jsonWebToken *jwt.JSONWebToken
	store        session.Store
}

func NewDeviceSessionMiddleware(jsonWebToken *jwt.JSONWebToken, store session.Store) *DeviceSession {
	return &DeviceSession{
		jsonWebToken: jsonWebToken,
		store:        store,
	}
}

// Verify authenticates the device bearer token and loads its session
// onto the request context.
func (m *DeviceSession) Verify(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		bearer := r.Header.Get("Authorization")
		tokenString, found := strings.CutPrefix(bearer, "Bearer ")
		if !found || tokenString == "" {
			response.JSON(w, http.StatusUnauthorized, response.RESTEnvelope{
				Status:  status.UNAUTHORIZED,
				Message: "missing bearer token",
			})

			return
		}

		claims, err := m.jsonWebToken.Parse(tokenString)
		if err != nil {
			response.JSON(w, http.StatusUnauthorized, response.RESTEnvelope{
				Status:  status.UNAUTHORIZED,
				Message: "invalid bearer token",
			})

			return
		}

		acc, err := m.store.Get(ctx, claims.DeviceID)
		if err != nil || !acc.Active {
			response.JSON(w, http.StatusUnauthorized, response.RESTEnvelope{
				Status:  status.UNAUTHORIZED,
				Message: "device is not registered or inactive",
			})

			return
		}

		next(w, r.WithContext(session.ContextWithAccount(ctx, acc)))
	}
}

package httpapi

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"careflow/audit"
)

// actorFromRequest resolves who initiated the request for audit attribution.
// A valid bearer token contributes its subject claim; anything else falls
// back to the system actor so automated callers keep working. This is
// attribution only, not access control.
func actorFromRequest(r *http.Request, secret []byte) string {
	header := r.Header.Get("Authorization")
	raw, found := strings.CutPrefix(header, "Bearer ")
	if !found || raw == "" || len(secret) == 0 {
		return audit.PerformedBySystem
	}

	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return audit.PerformedBySystem
	}

	subject, err := token.Claims.GetSubject()
	if err != nil || subject == "" {
		return audit.PerformedBySystem
	}
	return subject
}

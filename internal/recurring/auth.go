package recurring

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// BearerToken extracts the credential from an Authorization header, or ""
// when none is attached.
func BearerToken(header string) string {
	if header == "" {
		return ""
	}

	parts := strings.Split(header, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}

	return parts[1]
}

// TokenSubject pulls the user claim out of a JWT for logging. The signature
// is not verified here; the task API owns verification.
func TokenSubject(token string) string {
	parser := jwt.NewParser()
	parsed, _, err := parser.ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return ""
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return ""
	}

	if sub, ok := claims["sub"].(string); ok {
		return sub
	}
	if uid, ok := claims["user_id"].(string); ok {
		return uid
	}
	return ""
}

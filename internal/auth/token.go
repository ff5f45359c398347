package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"ms-pos/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

// ExtractTokenFromRequest extracts a bearer token from the Authorization
// header.
func ExtractTokenFromRequest(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", errors.New("authorization header is missing")
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("authorization header format must be 'Bearer {token}'")
	}

	return parts[1], nil
}

// VerifyHMAC validates a staff token signed with the shared secret and
// resolves the acting user from its claims.
func VerifyHMAC(tokenString, secret string) (*models.ActingUser, error) {
	if tokenString == "" {
		return nil, errors.New("empty token")
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}

	return userFromClaims(map[string]interface{}(claims))
}

// userFromClaims maps the issuer's claims onto the acting user attached
// to each request.
func userFromClaims(claims map[string]interface{}) (*models.ActingUser, error) {
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, errors.New("subject claim not found in token")
	}

	user := &models.ActingUser{
		ID:   sub,
		Role: models.RoleEmployee,
	}
	if username, ok := claims["preferred_username"].(string); ok {
		user.Username = username
	}
	if role, ok := claims["role"].(string); ok {
		user.Role = strings.ToUpper(role)
	}
	if parent, ok := claims["parent_user"].(string); ok {
		user.ParentUser = parent
	}

	if user.Role != models.RoleAdmin && user.Role != models.RoleEmployee {
		return nil, fmt.Errorf("unknown role %q", user.Role)
	}
	if user.Role == models.RoleEmployee && user.ParentUser == "" {
		return nil, errors.New("employee token missing parent_user claim")
	}
	return user, nil
}

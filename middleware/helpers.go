package middleware

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/golang-jwt/jwt/v4"

	"github.com/Dosada05/tournament-engine/models"
)

// JWT claim names, shared with the handler that issues tokens.
const (
	ClaimOrganizerID = "user_id"
	ClaimRole        = "role"
	ClaimName        = "name"
)

var errNoClaims = errors.New("organizer claims not found in context")

func claimsFrom(ctx context.Context) (jwt.MapClaims, error) {
	claims, ok := ctx.Value(claimsContextKey).(jwt.MapClaims)
	if !ok {
		return nil, errNoClaims
	}
	return claims, nil
}

// WithClaims returns a context carrying claims, as Authenticate would store them.
func WithClaims(ctx context.Context, claims jwt.MapClaims) context.Context {
	return context.WithValue(ctx, claimsContextKey, claims)
}

func OrganizerIDFromContext(ctx context.Context) (int, error) {
	claims, err := claimsFrom(ctx)
	if err != nil {
		return 0, err
	}

	raw, ok := claims[ClaimOrganizerID]
	if !ok {
		return 0, fmt.Errorf("missing '%s' claim in token", ClaimOrganizerID)
	}

	var id int
	switch v := raw.(type) {
	case float64:
		if v != float64(int(v)) {
			return 0, fmt.Errorf("'%s' claim is not an integer: %f", ClaimOrganizerID, v)
		}
		id = int(v)
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid '%s' claim %q: %w", ClaimOrganizerID, v, err)
		}
		id = n
	default:
		return 0, fmt.Errorf("invalid type for '%s' claim: expected float64 or string, got %T", ClaimOrganizerID, raw)
	}
	if id <= 0 {
		return 0, fmt.Errorf("invalid organizer ID value in '%s' claim: %d", ClaimOrganizerID, id)
	}
	return id, nil
}

func RoleFromContext(ctx context.Context) (models.OrganizerRole, error) {
	claims, err := claimsFrom(ctx)
	if err != nil {
		return "", err
	}
	s, ok := claims[ClaimRole].(string)
	if !ok {
		return "", fmt.Errorf("missing or invalid '%s' claim", ClaimRole)
	}

	role := models.OrganizerRole(s)
	switch role {
	case models.RoleAdmin, models.RoleOrganizer:
		return role, nil
	default:
		return "", fmt.Errorf("invalid role value in claim: %q", s)
	}
}

// Actor names the caller for audit fields: the token's name, else "organizer:<id>".
func Actor(ctx context.Context) string {
	claims, err := claimsFrom(ctx)
	if err != nil {
		return ""
	}
	if name, ok := claims[ClaimName].(string); ok && name != "" {
		return name
	}
	if id, err := OrganizerIDFromContext(ctx); err == nil {
		return "organizer:" + strconv.Itoa(id)
	}
	return ""
}

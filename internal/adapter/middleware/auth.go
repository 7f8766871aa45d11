package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"samanvay/internal/domain/access"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// Claims carry the actor; Subject is the user id.
type Claims struct {
	Role     string `json:"role"`
	State    string `json:"state,omitempty"`
	AgencyID string `json:"agencyId,omitempty"`
	jwt.RegisteredClaims
}

var errBadClaims = errors.New("invalid token claims")

// SignToken issues an HS256 token for a, valid for ttl from now.
func SignToken(secret string, a access.Actor, ttl time.Duration, now time.Time) (string, error) {
	claims := Claims{
		Role:     string(a.Role),
		State:    a.State,
		AgencyID: a.AgencyID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   a.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseToken verifies raw and returns the actor it names. Role-specific
// claims must be present: officers need a state, agencies an agency id.
func ParseToken(secret, raw string) (access.Actor, error) {
	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return access.Actor{}, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return access.Actor{}, errBadClaims
	}
	a := access.Actor{
		Subject:  claims.Subject,
		Role:     access.Role(claims.Role),
		State:    claims.State,
		AgencyID: claims.AgencyID,
	}
	switch {
	case a.Subject == "" || !a.Role.Valid():
		return access.Actor{}, errBadClaims
	case a.Role == access.RoleStateOfficer && a.State == "":
		return access.Actor{}, errBadClaims
	case a.Role == access.RoleAgency && a.AgencyID == "":
		return access.Actor{}, errBadClaims
	}
	return a, nil
}

// Auth requires "Authorization: Bearer <jwt>" and puts the actor on the
// request context.
func Auth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			raw, found := strings.CutPrefix(header, "Bearer ")
			if !found || strings.TrimSpace(raw) == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing bearer token"})
			}
			a, err := ParseToken(secret, strings.TrimSpace(raw))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid token"})
			}
			req := c.Request()
			c.SetRequest(req.WithContext(access.WithActor(req.Context(), a)))
			return next(c)
		}
	}
}

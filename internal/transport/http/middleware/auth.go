package middleware

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sakashimaa/marketplace/internal/domain"
)

const PrincipalKey = "principal"

// Claims issued by the identity provider. Role defaults to customer when
// the token predates role support.
type Claims struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

func NewAuthMiddleware(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"message": "Unauthorized: missed header",
			})
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"message": "Unauthorized: Invalid header format",
			})
		}

		claims, err := parseToken(parts[1], secret)
		if err != nil || claims.UserID == 0 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"message": "Unauthorized: Invalid token",
			})
		}

		role := domain.Role(claims.Role)
		if role != domain.RoleVendor && role != domain.RoleAdmin {
			role = domain.RoleCustomer
		}

		c.Locals(PrincipalKey, domain.Principal{
			UserID: claims.UserID,
			Role:   role,
			Email:  claims.Email,
		})

		return c.Next()
	}
}

// PrincipalFromCtx returns the caller stored by NewAuthMiddleware.
func PrincipalFromCtx(c *fiber.Ctx) (domain.Principal, bool) {
	principal, ok := c.Locals(PrincipalKey).(domain.Principal)
	return principal, ok
}

func parseToken(tokenString string, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	return claims, nil
}

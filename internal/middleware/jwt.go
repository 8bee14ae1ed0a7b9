package middleware // middleware contains reusable HTTP middleware functions

import (
    "net/http" // HTTP status codes for responses
    "strings"  // string utilities for prefix checking and trimming

    "github.com/golang-jwt/jwt/v5" // JWT library for parsing and validating tokens
    "github.com/labstack/echo/v4"  // Echo framework used for defining middleware and handlers
)

// JWTAuth returns an Echo middleware that validates a Bearer access
// token and injects the token's subject and role claims into the
// request context. Token issuance lives in a separate auth service;
// this API only verifies. The provided secret must match the one the
// issuer signs with. Handlers behind this middleware read the
// authenticated user via c.Get("user_id") and c.Get("role").
func JWTAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            // A valid Authorization header is "Bearer <jwt>". Anything
            // else is rejected before touching the parser.
            auth := c.Request().Header.Get("Authorization")
            if !strings.HasPrefix(auth, "Bearer ") {
                return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "missing bearer token"})
            }
            raw := strings.TrimPrefix(auth, "Bearer ")

            // Parse with HS256 and our secret. The key callback also
            // pins the signing method so an attacker cannot downgrade
            // to "none" or swap in an asymmetric algorithm.
            tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
                if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
                    return nil, echo.ErrUnauthorized
                }
                return []byte(secret), nil
            })
            if err != nil || !tok.Valid {
                return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "invalid token"})
            }

            claims, ok := tok.Claims.(jwt.MapClaims)
            if !ok {
                return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "invalid claims"})
            }

            // Expose subject (user ID) and role to handlers and to the
            // rate limiter's key builder. Type assertions are left to
            // downstream consumers.
            c.Set("user_id", claims["sub"])
            c.Set("role", claims["role"])
            return next(c)
        }
    }
}

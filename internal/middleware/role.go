package middleware

import (
    "net/http"

    "github.com/labstack/echo/v4"
)

// RequireRole returns a middleware that enforces that the
// authenticated user has one of the specified roles. The roles
// correspond to the values stored in the JWT's "role" claim: DRIVER
// for regular users and OPERATOR for station operators. If the user's
// role is not in the allowed set, the request is aborted with a 403
// response. It assumes JWTAuth has already stored the role in the
// context under the key "role".
func RequireRole(roles ...string) echo.MiddlewareFunc {
    // Build a set of allowed roles for constant-time lookups.
    allowed := make(map[string]bool, len(roles))
    for _, r := range roles {
        allowed[r] = true
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            v := c.Get("role")
            role, ok := v.(string)
            if !ok || !allowed[role] {
                return c.JSON(http.StatusForbidden, echo.Map{"success": false, "message": "forbidden"})
            }
            return next(c)
        }
    }
}

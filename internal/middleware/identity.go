package middleware

// identity.go holds helpers shared across middleware files. The rate
// limiter keys buckets by caller identity, so it needs the user ID as
// a string without caring about the claim's concrete type.

import (
    "fmt"

    "github.com/labstack/echo/v4"
)

// currentUserID returns a string form of the authenticated user's ID
// from the context, or "anon" when the request is unauthenticated.
func currentUserID(c echo.Context) string {
    v := c.Get("user_id")
    if v == nil {
        return "anon"
    }
    switch t := v.(type) {
    case string:
        if t != "" {
            return t
        }
    case float64:
        return fmt.Sprintf("%.0f", t)
    case uint64, int64, int:
        return fmt.Sprint(t)
    }
    return "anon"
}

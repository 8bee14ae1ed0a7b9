package handler // handler defines http handlers

import (
    "errors"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"
)

// timeRFC3339 is the timestamp layout used in every response body.
const timeRFC3339 = time.RFC3339

// Every endpoint answers with the same envelope:
//
//	{ "success": bool, "message": string (optional), "data": object (optional) }
//
// respond and fail build the two shapes so handlers never assemble the
// envelope by hand.

// respond writes a success envelope with the given payload.
func respond(c echo.Context, status int, data interface{}) error {
    if data == nil {
        return c.JSON(status, echo.Map{"success": true})
    }
    return c.JSON(status, echo.Map{"success": true, "data": data})
}

// respondMsg writes a success envelope carrying both a message and a payload.
func respondMsg(c echo.Context, status int, msg string, data interface{}) error {
    return c.JSON(status, echo.Map{"success": true, "message": msg, "data": data})
}

// fail writes a failure envelope with a message and no payload.
func fail(c echo.Context, status int, msg string) error {
    return c.JSON(status, echo.Map{"success": false, "message": msg})
}

// failInternal hides unexpected errors behind a generic 500 so internals
// never leak to clients.
func failInternal(c echo.Context) error {
    return fail(c, http.StatusInternalServerError, "internal error")
}

// getUserID extracts the user_id stored by the JWT middleware and
// converts it to uint64. JWT numeric claims decode as float64, so a
// few representations are accepted.
func getUserID(c echo.Context) (uint64, error) {
    v := c.Get("user_id")
    switch t := v.(type) {
    case uint64:
        return t, nil
    case int:
        return uint64(t), nil
    case int64:
        return uint64(t), nil
    case float64:
        return uint64(t), nil
    case string:
        if n, err := strconv.ParseUint(t, 10, 64); err == nil {
            return n, nil
        }
    }
    return 0, errors.New("invalid user_id in context")
}

// pathID parses the :id path parameter. A zero or malformed value is
// reported as an error so handlers can answer 400 uniformly.
func pathID(c echo.Context) (uint64, error) {
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || id == 0 {
        return 0, errors.New("invalid id")
    }
    return id, nil
}

// queryInt parses an integer query parameter, falling back to def when
// absent or malformed.
func queryInt(c echo.Context, name string, def int) int {
    if s := c.QueryParam(name); s != "" {
        if n, err := strconv.Atoi(s); err == nil {
            return n
        }
    }
    return def
}

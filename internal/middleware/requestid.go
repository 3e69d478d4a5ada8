package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	requestIDHeader = "X-Request-ID"
	maxRequestIDLen = 64
)

// RequestID tags every request with an id and echoes it on the response. A
// well-formed inbound X-Request-ID is kept so client and server logs line up.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(requestIDHeader)
		if !validRequestID(id) {
			id = uuid.NewString()
		}
		c.Locals(requestIDHeader, id)
		c.Set(requestIDHeader, id)
		return c.Next()
	}
}

// RequestIDFrom returns the id assigned by RequestID, or "".
func RequestIDFrom(c *fiber.Ctx) string {
	id, _ := c.Locals(requestIDHeader).(string)
	return id
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		switch b := id[i]; {
		case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9', b == '-', b == '_', b == '.':
		default:
			return false
		}
	}
	return true
}

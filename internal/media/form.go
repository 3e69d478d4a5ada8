package media

import (
	"encoding/json"
	"mime/multipart"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// ParseBody decodes the request into out. Multipart requests carry the JSON
// document in the "body" field and are returned for file access; other
// requests are parsed as plain bodies and return a nil form.
func ParseBody(c *fiber.Ctx, out any) (*multipart.Form, error) {
	if !strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		if err := c.BodyParser(out); err != nil {
			return nil, fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return nil, nil
	}
	form, err := c.MultipartForm()
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if raw := form.Value["body"]; len(raw) > 0 && raw[0] != "" {
		if err := json.Unmarshal([]byte(raw[0]), out); err != nil {
			return nil, fiber.NewError(fiber.StatusBadRequest, "invalid body: "+err.Error())
		}
	}
	return form, nil
}

// Files returns the uploads under field, or nil for non-multipart requests.
func Files(form *multipart.Form, field string) []*multipart.FileHeader {
	if form == nil {
		return nil
	}
	return form.File[field]
}

package handlers

import (
	"github.com/gofiber/fiber/v2"

	"tauritavern/internal/domain"
)

// respondError maps the domain error taxonomy to the four wire kinds:
// BadRequest, NotFound, Unauthorized, InternalServerError.
func respondError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch domain.KindOf(err) {
	case domain.KindNotFound:
		status = fiber.StatusNotFound
	case domain.KindInvalidData:
		status = fiber.StatusBadRequest
	case domain.KindAuthentication, domain.KindPermissionDenied:
		status = fiber.StatusUnauthorized
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

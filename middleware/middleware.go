package middleware

import (
	"errors"
	"strings"

	"github.com/VBK-2102/CryptoPay/model"
	"github.com/VBK-2102/CryptoPay/service/token"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

const identityKey = "identity"

// JsonResponse writes the uniform response envelope: a success flag,
// a message (or error) and any extra top-level fields.
func JsonResponse(c *fiber.Ctx, status int, success bool, message string, data fiber.Map) error {
	resp := fiber.Map{"success": success}

	if success {
		if message != "" {
			resp["message"] = message
		}
	} else {
		resp["error"] = message
	}

	for k, v := range data {
		resp[k] = v
	}

	return c.Status(status).JSON(resp)
}

// ErrorResponse maps a domain error onto its HTTP status. Unexpected
// failures are logged and surface as a generic 500.
func ErrorResponse(c *fiber.Ctx, err error) error {
	var insufficient *model.InsufficientBalanceError
	if errors.As(err, &insufficient) {
		return JsonResponse(c, fiber.StatusBadRequest, false, insufficient.Error(), nil)
	}

	switch {
	case errors.Is(err, model.ErrUnauthorized):
		return JsonResponse(c, fiber.StatusUnauthorized, false, err.Error(), nil)
	case errors.Is(err, model.ErrForbidden):
		return JsonResponse(c, fiber.StatusForbidden, false, err.Error(), nil)
	case errors.Is(err, model.ErrUserNotFound),
		errors.Is(err, model.ErrTransactionNotFound):
		return JsonResponse(c, fiber.StatusNotFound, false, err.Error(), nil)
	case errors.Is(err, model.ErrInvalidAmount),
		errors.Is(err, model.ErrInvalidInput),
		errors.Is(err, model.ErrUnknownCurrency),
		errors.Is(err, model.ErrDuplicateEmail),
		errors.Is(err, model.ErrInsufficientFunds):
		return JsonResponse(c, fiber.StatusBadRequest, false, err.Error(), nil)
	}

	log.Error().Err(err).Str("path", c.Path()).Msg("request failed")
	return JsonResponse(c, fiber.StatusInternalServerError, false, "internal error", nil)
}

// RequireAuth verifies the bearer token and stores the caller's
// identity in request locals.
func RequireAuth(tokens *token.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		auth := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(auth, "Bearer ") {
			return JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized", nil)
		}

		ident, err := tokens.Verify(strings.TrimPrefix(auth, "Bearer "))
		if err != nil {
			return JsonResponse(c, fiber.StatusUnauthorized, false, "Invalid token", nil)
		}

		c.Locals(identityKey, ident)
		return c.Next()
	}
}

// RequireAdmin gates a route on the admin claim. Must run after
// RequireAuth.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !Identity(c).IsAdmin {
			return JsonResponse(c, fiber.StatusForbidden, false, "Admin access required", nil)
		}
		return c.Next()
	}
}

// Identity returns the verified caller stored by RequireAuth.
func Identity(c *fiber.Ctx) token.Identity {
	ident, _ := c.Locals(identityKey).(token.Identity)
	return ident
}

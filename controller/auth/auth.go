package auth

import (
	"errors"

	"github.com/VBK-2102/CryptoPay/middleware"
	"github.com/VBK-2102/CryptoPay/model"
	"github.com/VBK-2102/CryptoPay/service/token"
	"github.com/VBK-2102/CryptoPay/storage"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

var validate = validator.New()

func New(users storage.UserStore, tokens *token.Service) *Controller {
	return &Controller{users: users, tokens: tokens}
}

type Controller struct {
	users  storage.UserStore
	tokens *token.Service
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	FullName string `json:"fullName" validate:"required"`
}

// Login godoc
//
//	@Summary		Log in
//	@Description	exchange email+password for a bearer token
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Success		200	{object}	map[string]interface{}
//	@Failure		401	{object}	map[string]interface{}
//	@Router			/auth/login [post]
func (a *Controller) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Email and password are required", nil)
	}
	if err := validate.Struct(&req); err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Email and password are required", nil)
	}

	user, err := a.users.UserByEmail(c.Context(), req.Email)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Invalid email or password", nil)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Invalid email or password", nil)
	}

	signed, err := a.tokens.Issue(user)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "", fiber.Map{
		"token": signed,
		"user":  user,
	})
}

// Register godoc
//
//	@Summary		Register
//	@Description	create an account and return a bearer token
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Success		200	{object}	map[string]interface{}
//	@Failure		400	{object}	map[string]interface{}
//	@Router			/auth/register [post]
func (a *Controller) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Email, password, and full name are required", nil)
	}
	if err := validate.Struct(&req); err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Email, password, and full name are required", nil)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}

	user, err := a.users.CreateUser(c.Context(), req.Email, string(hash), req.FullName)
	if err != nil {
		if errors.Is(err, model.ErrDuplicateEmail) {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "User already exists", nil)
		}
		return middleware.ErrorResponse(c, err)
	}

	log.Debug().Str("email", user.Email).Int64("id", user.ID).Msg("registered user")

	signed, err := a.tokens.Issue(user)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "", fiber.Map{
		"token": signed,
		"user":  user,
	})
}

package users

import (
	"github.com/VBK-2102/CryptoPay/middleware"
	"github.com/VBK-2102/CryptoPay/storage"
	"github.com/gofiber/fiber/v2"
)

const searchLimit = 10

func New(users storage.UserStore) *Controller {
	return &Controller{users: users}
}

type Controller struct {
	users storage.UserStore
}

// Search godoc
//
//	@Summary		Search registered users
//	@Description	name/email substring match, excludes the caller, capped at 10
//	@Tags			users
//	@Param			q	query	string	true	"search query"
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	map[string]interface{}
//	@Router			/users/search [get]
func (u *Controller) Search(c *fiber.Ctx) error {
	ident := middleware.Identity(c)

	matches, err := u.users.SearchUsers(c.Context(), c.Query("q"), ident.UserID, searchLimit)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}

	results := make([]fiber.Map, 0, len(matches))
	for _, m := range matches {
		results = append(results, fiber.Map{
			"id":       m.ID,
			"email":    m.Email,
			"fullName": m.FullName,
		})
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "", fiber.Map{
		"data": results,
	})
}

package wallet

import (
	"github.com/VBK-2102/CryptoPay/middleware"
	"github.com/VBK-2102/CryptoPay/service/settlement"
	"github.com/VBK-2102/CryptoPay/storage"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

func New(wallets storage.WalletLedger, engine *settlement.Engine) *Controller {
	return &Controller{wallets: wallets, engine: engine}
}

type Controller struct {
	wallets storage.WalletLedger
	engine  *settlement.Engine
}

// Balances godoc
//
//	@Summary	Current wallet balances
//	@Tags		wallet
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	map[string]interface{}
//	@Router		/wallet/balances [get]
func (w *Controller) Balances(c *fiber.Ctx) error {
	ident := middleware.Identity(c)

	balances, err := w.wallets.Balances(c.Context(), ident.UserID)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "", fiber.Map{
		"balances": balances,
	})
}

type withdrawRequest struct {
	Amount   float64 `json:"amount" validate:"required,gt=0"`
	Currency string  `json:"currency" validate:"required"`
}

// Withdraw godoc
//
//	@Summary	Withdraw from the wallet
//	@Tags		wallet
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	map[string]interface{}
//	@Failure	400	{object}	map[string]interface{}
//	@Router		/wallet/withdraw [post]
func (w *Controller) Withdraw(c *fiber.Ctx) error {
	var req withdrawRequest
	if err := c.BodyParser(&req); err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid amount", nil)
	}
	if err := validate.Struct(&req); err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid amount", nil)
	}

	ident := middleware.Identity(c)

	res, err := w.engine.Withdraw(c.Context(), ident.UserID, req.Amount, req.Currency)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Withdrawal completed", fiber.Map{
		"transactionId": res.TransactionID,
		"newBalances":   res.Balances,
	})
}

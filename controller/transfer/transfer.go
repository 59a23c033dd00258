package transfer

import (
	"fmt"

	"github.com/VBK-2102/CryptoPay/middleware"
	"github.com/VBK-2102/CryptoPay/model"
	"github.com/VBK-2102/CryptoPay/service/settlement"
	"github.com/VBK-2102/CryptoPay/storage"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

func New(engine *settlement.Engine, users storage.UserStore, ledger storage.TransactionLedger) *Controller {
	return &Controller{engine: engine, users: users, ledger: ledger}
}

type Controller struct {
	engine *settlement.Engine
	users  storage.UserStore
	ledger storage.TransactionLedger
}

type sendRequest struct {
	RecipientID int64   `json:"recipientId" validate:"required"`
	Amount      float64 `json:"amount" validate:"required,gt=0"`
	Currency    string  `json:"currency"`
	Note        string  `json:"note"`
}

// Send godoc
//
//	@Summary		Send fiat to another user
//	@Tags			transactions
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	map[string]interface{}
//	@Failure		400	{object}	map[string]interface{}
//	@Router			/transactions/send [post]
func (t *Controller) Send(c *fiber.Ctx) error {
	var req sendRequest
	if err := c.BodyParser(&req); err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid recipient or amount", nil)
	}
	if err := validate.Struct(&req); err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid recipient or amount", nil)
	}
	if req.Currency == "" {
		req.Currency = model.BaseFiat
	}

	ident := middleware.Identity(c)

	recipient, err := t.users.UserByID(c.Context(), req.RecipientID)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}

	res, err := t.engine.SendFiat(c.Context(), ident.UserID, req.RecipientID, req.Amount, req.Currency, req.Note)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true,
		fmt.Sprintf("%v %s sent successfully to %s", req.Amount, req.Currency, recipient.FullName), fiber.Map{
			"transactionId": res.TransactionID,
			"newBalances":   res.SenderBalances,
		})
}

type sendCryptoRequest struct {
	RecipientID       int64   `json:"recipientId" validate:"required"`
	CryptoAmount      float64 `json:"cryptoAmount" validate:"required"`
	CryptoSymbol      string  `json:"cryptoSymbol" validate:"required"`
	RecipientCurrency string  `json:"recipientCurrency" validate:"required"`
	Note              string  `json:"note"`
}

// SendCrypto godoc
//
//	@Summary		Send crypto, settled to fiat for the recipient
//	@Description	draws down direct crypto first, then fiat in INR, USD, EUR, GBP order
//	@Tags			transactions
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	map[string]interface{}
//	@Failure		400	{object}	map[string]interface{}
//	@Router			/transactions/send-crypto [post]
func (t *Controller) SendCrypto(c *fiber.Ctx) error {
	var req sendCryptoRequest
	if err := c.BodyParser(&req); err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid transaction parameters", nil)
	}
	if err := validate.Struct(&req); err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid transaction parameters", nil)
	}

	ident := middleware.Identity(c)

	res, err := t.engine.SendCrypto(c.Context(), settlement.CryptoSendInput{
		SenderID:          ident.UserID,
		RecipientID:       req.RecipientID,
		CryptoAmount:      req.CryptoAmount,
		CryptoSymbol:      req.CryptoSymbol,
		RecipientCurrency: req.RecipientCurrency,
		Note:              req.Note,
	})
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true,
		fmt.Sprintf("%.8f %s sent successfully", req.CryptoAmount, req.CryptoSymbol), fiber.Map{
			"transactionId":        res.TransactionID,
			"sendingMethod":        res.Method,
			"senderNewBalances":    res.SenderBalances,
			"recipientNewBalances": res.RecipientBalances,
			"conversionDetails":    res.Conversion,
		})
}

// History godoc
//
//	@Summary	Caller's transaction history, newest first
//	@Tags		transactions
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	map[string]interface{}
//	@Router		/transactions [get]
func (t *Controller) History(c *fiber.Ctx) error {
	ident := middleware.Identity(c)

	records, err := t.ledger.ListForUser(c.Context(), ident.UserID)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "", fiber.Map{
		"data": records,
	})
}

package converter

import (
	"time"

	"github.com/VBK-2102/CryptoPay/middleware"
	"github.com/VBK-2102/CryptoPay/model"
	"github.com/VBK-2102/CryptoPay/storage"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

const (
	FiatToCrypto = "fiat-to-crypto"
	CryptoToFiat = "crypto-to-fiat"
)

type convertRequest struct {
	Amount       float64 `json:"amount" validate:"required,gt=0"`
	FromCurrency string  `json:"fromCurrency" validate:"required"`
	ToCurrency   string  `json:"toCurrency" validate:"required"`
	Type         string  `json:"type" validate:"required,oneof=fiat-to-crypto crypto-to-fiat"`
}

func New(cache storage.RateCache) *Controller {
	return &Controller{cache: cache, validate: validator.New()}
}

type Controller struct {
	cache    storage.RateCache
	validate *validator.Validate
}

// Convert godoc
//
//	@Summary	Convert between fiat and crypto at current rates
//	@Tags		crypto
//	@Accept		json
//	@Produce	json
//	@Param		request	body		convertRequest	true	"conversion request"
//	@Success	200		{object}	map[string]interface{}
//	@Failure	400		{object}	map[string]interface{}
//	@Router		/crypto/convert [post]
func (cv *Controller) Convert(c *fiber.Ctx) error {
	req := convertRequest{}
	if err := c.BodyParser(&req); err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body", nil)
	}
	if err := cv.validate.Struct(req); err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "amount, fromCurrency, toCurrency and type are required", nil)
	}

	var converted float64
	switch req.Type {
	case FiatToCrypto:
		if !model.IsFiat(req.FromCurrency) || !model.IsCrypto(req.ToCurrency) {
			return middleware.ErrorResponse(c, model.ErrUnknownCurrency)
		}
		quote, err := cv.cache.Quote(c.Context(), req.ToCurrency)
		if err != nil {
			return middleware.ErrorResponse(c, err)
		}
		price, ok := quote.In(req.FromCurrency)
		if !ok || price <= 0 {
			return middleware.ErrorResponse(c, model.ErrUnknownCurrency)
		}
		converted = req.Amount / price

	case CryptoToFiat:
		if !model.IsCrypto(req.FromCurrency) || !model.IsFiat(req.ToCurrency) {
			return middleware.ErrorResponse(c, model.ErrUnknownCurrency)
		}
		quote, err := cv.cache.Quote(c.Context(), req.FromCurrency)
		if err != nil {
			return middleware.ErrorResponse(c, err)
		}
		price, ok := quote.In(req.ToCurrency)
		if !ok {
			return middleware.ErrorResponse(c, model.ErrUnknownCurrency)
		}
		converted = req.Amount * price
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "", fiber.Map{
		"data": fiber.Map{
			"originalAmount":  req.Amount,
			"convertedAmount": converted,
			"fromCurrency":    req.FromCurrency,
			"toCurrency":      req.ToCurrency,
			"type":            req.Type,
			"timestamp":       time.Now(),
		},
	})
}

package payment

import (
	"fmt"
	"net/url"
	"time"

	"github.com/VBK-2102/CryptoPay/middleware"
	"github.com/VBK-2102/CryptoPay/model"
	"github.com/VBK-2102/CryptoPay/storage"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// external renderer the QR payload is delegated to
const qrRenderURL = "https://api.qrserver.com/v1/create-qr-code/?size=300x300&data="

var validate = validator.New()

func New(wallets storage.WalletLedger, ledger storage.TransactionLedger) *Controller {
	return &Controller{wallets: wallets, ledger: ledger}
}

type Controller struct {
	wallets storage.WalletLedger
	ledger  storage.TransactionLedger
}

type generateQRRequest struct {
	Amount   float64 `json:"amount" validate:"required,gt=0"`
	Currency string  `json:"currency" validate:"required"`
}

// GenerateQR godoc
//
//	@Summary		Start a deposit
//	@Description	creates a pending deposit and returns its payment QR payload
//	@Tags			payment
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	map[string]interface{}
//	@Failure		400	{object}	map[string]interface{}
//	@Router			/payment/generate-qr [post]
func (p *Controller) GenerateQR(c *fiber.Ctx) error {
	var req generateQRRequest
	if err := c.BodyParser(&req); err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid amount", nil)
	}
	if err := validate.Struct(&req); err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid amount", nil)
	}
	if _, ok := model.Lookup(req.Currency); !ok {
		return middleware.ErrorResponse(c, model.ErrUnknownCurrency)
	}

	ident := middleware.Identity(c)
	reference := fmt.Sprintf("TXN%d", time.Now().UnixMilli())

	upiPayload := fmt.Sprintf(
		"upi://pay?pa=merchant@paytm&pn=CryptoPay&am=%v&cu=INR&tn=Payment%%20for%%20%s",
		req.Amount, reference,
	)

	rec := model.TransferRecord{
		UserID:    ident.UserID,
		Kind:      model.TxDeposit,
		Amount:    req.Amount,
		Currency:  req.Currency,
		Status:    model.StatusPending,
		Method:    "UPI",
		Reference: reference,
	}

	if _, err := p.ledger.Append(c.Context(), rec); err != nil {
		return middleware.ErrorResponse(c, err)
	}

	log.Debug().Str("reference", reference).Float64("amount", req.Amount).Msg("deposit pending")

	return middleware.JsonResponse(c, fiber.StatusOK, true, "", fiber.Map{
		"transactionId": reference,
		"qrCode":        qrRenderURL + url.QueryEscape(upiPayload),
		"amount":        req.Amount,
		"currency":      req.Currency,
		"status":        model.StatusPending,
	})
}

type confirmRequest struct {
	TransactionID string `json:"transactionId" validate:"required"`
}

// Confirm godoc
//
//	@Summary		Complete a pending deposit
//	@Description	transitions the deposit to completed and credits the wallet, exactly once
//	@Tags			payment
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	map[string]interface{}
//	@Failure		404	{object}	map[string]interface{}
//	@Router			/payment/confirm [post]
func (p *Controller) Confirm(c *fiber.Ctx) error {
	var req confirmRequest
	if err := c.BodyParser(&req); err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Transaction ID required", nil)
	}
	if err := validate.Struct(&req); err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Transaction ID required", nil)
	}

	ident := middleware.Identity(c)

	rec, err := p.ledger.CompletePendingDeposit(c.Context(), req.TransactionID, ident.UserID)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}

	if err := p.wallets.Credit(c.Context(), ident.UserID, rec.Currency, rec.Amount); err != nil {
		return middleware.ErrorResponse(c, err)
	}

	balances, err := p.wallets.Balances(c.Context(), ident.UserID)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true,
		fmt.Sprintf("%s %v added successfully", rec.Currency, rec.Amount), fiber.Map{
			"newBalances": balances,
			"transaction": rec,
		})
}

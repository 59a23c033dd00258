package transfer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/VBK-2102/CryptoPay/middleware"
	"github.com/VBK-2102/CryptoPay/model"
	"github.com/VBK-2102/CryptoPay/service/settlement"
	"github.com/VBK-2102/CryptoPay/service/token"
	"github.com/VBK-2102/CryptoPay/storage"
	"github.com/VBK-2102/CryptoPay/storage/memstore"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRates struct{}

func (stubRates) Snapshot(context.Context) model.PriceSnapshot {
	return model.PriceSnapshot{Source: model.SourceFallback}
}

func (stubRates) Quote(_ context.Context, symbol string) (model.PriceQuote, error) {
	if symbol != "BTC" {
		return model.PriceQuote{}, model.ErrUnknownCurrency
	}
	return model.PriceQuote{Symbol: "BTC", PriceUSD: 42000, PriceINR: 3507000}, nil
}

func (stubRates) Status() storage.CacheStatus { return storage.CacheStatus{} }

type testEnv struct {
	app       *fiber.App
	store     *memstore.Store
	bearer    string
	sender    model.User
	recipient model.User
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()

	store := memstore.New()
	sender, err := store.CreateUser(context.Background(), "alice@example.com", "hash", "Alice")
	require.NoError(t, err)
	recipient, err := store.CreateUser(context.Background(), "bob@example.com", "hash", "Bob")
	require.NoError(t, err)

	tokens := token.New("test-secret")
	raw, err := tokens.Issue(sender)
	require.NoError(t, err)

	engine := settlement.New(store, store, store, stubRates{})
	controller := New(engine, store, store)

	app := fiber.New()
	authed := app.Group("", middleware.RequireAuth(tokens))
	authed.Post("/transactions/send", controller.Send)
	authed.Post("/transactions/send-crypto", controller.SendCrypto)
	authed.Get("/transactions", controller.History)

	return &testEnv{app: app, store: store, bearer: "Bearer " + raw, sender: sender, recipient: recipient}
}

func (e *testEnv) request(t *testing.T, method, path, body string) (*http.Response, map[string]interface{}) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	req.Header.Set(fiber.HeaderAuthorization, e.bearer)

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)

	var payload map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	return resp, payload
}

func TestSend(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	require.NoError(t, e.store.Credit(context.Background(), e.sender.ID, "INR", 1000))

	resp, payload := e.request(t, http.MethodPost, "/transactions/send",
		`{"recipientId":2,"amount":400,"note":"rent"}`)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	// currency defaults to the base fiat
	assert.Equal(t, "400 INR sent successfully to Bob", payload["message"])

	balances := payload["newBalances"].(map[string]interface{})
	assert.EqualValues(t, 600, balances["INR"])
}

func TestSend_InsufficientBalance(t *testing.T) {
	t.Parallel()

	e := newEnv(t)

	resp, payload := e.request(t, http.MethodPost, "/transactions/send",
		`{"recipientId":2,"amount":400,"currency":"INR"}`)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, false, payload["success"])
}

func TestSend_UnknownRecipient(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	require.NoError(t, e.store.Credit(context.Background(), e.sender.ID, "INR", 1000))

	resp, _ := e.request(t, http.MethodPost, "/transactions/send",
		`{"recipientId":99,"amount":400,"currency":"INR"}`)

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSendCrypto(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	require.NoError(t, e.store.Credit(context.Background(), e.sender.ID, "BTC", 1))

	resp, payload := e.request(t, http.MethodPost, "/transactions/send-crypto",
		`{"recipientId":2,"cryptoAmount":0.5,"cryptoSymbol":"BTC","recipientCurrency":"INR"}`)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "0.50000000 BTC sent successfully", payload["message"])
	assert.Equal(t, "crypto_direct", payload["sendingMethod"])

	conversion := payload["conversionDetails"].(map[string]interface{})
	assert.EqualValues(t, 0.5*3507000, conversion["receivedFiatAmount"])
	assert.Equal(t, "INR", conversion["receivedFiatCurrency"])

	recipientBalances := payload["recipientNewBalances"].(map[string]interface{})
	assert.EqualValues(t, 0.5*3507000, recipientBalances["INR"])
}

func TestSendCrypto_InsufficientBalance(t *testing.T) {
	t.Parallel()

	e := newEnv(t)

	resp, payload := e.request(t, http.MethodPost, "/transactions/send-crypto",
		`{"recipientId":2,"cryptoAmount":0.5,"cryptoSymbol":"BTC","recipientCurrency":"INR"}`)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	errMsg, ok := payload["error"].(string)
	require.True(t, ok)
	assert.Contains(t, errMsg, "insufficient balance. Available:")
	assert.Contains(t, errMsg, "BTC")
}

func TestHistory(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	require.NoError(t, e.store.Credit(context.Background(), e.sender.ID, "INR", 1000))

	_, send := e.request(t, http.MethodPost, "/transactions/send",
		`{"recipientId":2,"amount":100,"currency":"INR"}`)
	require.Equal(t, true, send["success"])

	resp, payload := e.request(t, http.MethodGet, "/transactions", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	records, ok := payload["data"].([]interface{})
	require.True(t, ok)
	require.Len(t, records, 1)

	rec := records[0].(map[string]interface{})
	assert.Equal(t, "transfer_out", rec["type"])
	assert.EqualValues(t, 100, rec["amount"])
}

package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/VBK-2102/CryptoPay/middleware"
	"github.com/VBK-2102/CryptoPay/model"
	"github.com/VBK-2102/CryptoPay/service/token"
	"github.com/VBK-2102/CryptoPay/storage/memstore"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	app         *fiber.App
	store       *memstore.Store
	adminBearer string
	userBearer  string
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := memstore.NewSeeded()
	require.NoError(t, err)

	tokens := token.New("test-secret")

	adminUser, err := store.UserByEmail(context.Background(), "admin@cryptopay.com")
	require.NoError(t, err)
	adminToken, err := tokens.Issue(adminUser)
	require.NoError(t, err)

	demoUser, err := store.UserByEmail(context.Background(), "user@example.com")
	require.NoError(t, err)
	userToken, err := tokens.Issue(demoUser)
	require.NoError(t, err)

	controller := New(store, store, store)

	app := fiber.New()
	adminAPI := app.Group("/admin", middleware.RequireAuth(tokens), middleware.RequireAdmin())
	adminAPI.Get("/users", controller.Users)
	adminAPI.Get("/transactions", controller.Transactions)
	adminAPI.Get("/stats", controller.Stats)

	return &testEnv{
		app:         app,
		store:       store,
		adminBearer: "Bearer " + adminToken,
		userBearer:  "Bearer " + userToken,
	}
}

func (e *testEnv) get(t *testing.T, path, bearer string) (*http.Response, map[string]interface{}) {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set(fiber.HeaderAuthorization, bearer)

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)

	var payload map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	return resp, payload
}

func TestAdminRoutes_RequireAdmin(t *testing.T) {
	t.Parallel()

	e := newEnv(t)

	for _, path := range []string{"/admin/users", "/admin/transactions", "/admin/stats"} {
		resp, payload := e.get(t, path, e.userBearer)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		assert.Equal(t, "Admin access required", payload["error"])
	}
}

func TestUsers(t *testing.T) {
	t.Parallel()

	e := newEnv(t)

	resp, payload := e.get(t, "/admin/users", e.adminBearer)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	usersList := payload["data"].([]interface{})
	require.Len(t, usersList, 2)

	first := usersList[0].(map[string]interface{})
	assert.Equal(t, "admin@cryptopay.com", first["email"])
	assert.Contains(t, first, "balances")
}

func TestTransactions(t *testing.T) {
	t.Parallel()

	e := newEnv(t)

	_, err := e.store.Append(context.Background(), model.TransferRecord{
		UserID: 2, Kind: model.TxDeposit, Amount: 100, Currency: "INR",
		Status: model.StatusCompleted, Reference: "TXN1",
	})
	require.NoError(t, err)

	resp, payload := e.get(t, "/admin/transactions", e.adminBearer)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, payload["data"].([]interface{}), 1)
}

func TestStats(t *testing.T) {
	t.Parallel()

	e := newEnv(t)

	records := []model.TransferRecord{
		{UserID: 2, Kind: model.TxDeposit, Amount: 1000, Currency: "INR", Status: model.StatusCompleted, Reference: "A"},
		{UserID: 2, Kind: model.TxDeposit, Amount: 500, Currency: "INR", Status: model.StatusCompleted, Reference: "B"},
		{UserID: 2, Kind: model.TxWithdrawal, Amount: 200, Currency: "INR", Status: model.StatusPending, Reference: "C"},
	}
	for _, rec := range records {
		_, err := e.store.Append(context.Background(), rec)
		require.NoError(t, err)
	}
	require.NoError(t, e.store.Credit(context.Background(), 2, "INR", 1300))

	resp, payload := e.get(t, "/admin/stats", e.adminBearer)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	assert.EqualValues(t, 2, payload["totalUsers"])
	assert.EqualValues(t, 3, payload["totalTransactions"])
	assert.EqualValues(t, 1700, payload["totalVolume"])
	// 2 of 3 completed, rounded to a whole percentage
	assert.EqualValues(t, 67, payload["successRate"])
	assert.EqualValues(t, 3, payload["recentTransactions"])
	assert.InDelta(t, 1700.0/3, payload["averageTransactionValue"].(float64), 1e-9)

	types := payload["transactionTypes"].(map[string]interface{})
	assert.EqualValues(t, 2, types["deposit"])
	assert.EqualValues(t, 1, types["withdrawal"])

	monthly := payload["monthlyVolume"].([]interface{})
	require.Len(t, monthly, 6)
	latest := monthly[5].(map[string]interface{})
	assert.EqualValues(t, 1500, latest["volume"])
	assert.EqualValues(t, 2, latest["transactions"])

	topUsers := payload["topUsers"].([]interface{})
	require.NotEmpty(t, topUsers)
	richest := topUsers[0].(map[string]interface{})
	assert.Equal(t, "John Doe", richest["name"])
	assert.EqualValues(t, 1300, richest["balance"])
}

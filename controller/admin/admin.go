package admin

import (
	"math"
	"sort"
	"time"

	"github.com/VBK-2102/CryptoPay/middleware"
	"github.com/VBK-2102/CryptoPay/model"
	"github.com/VBK-2102/CryptoPay/storage"
	"github.com/gofiber/fiber/v2"
)

func New(users storage.UserStore, wallets storage.WalletLedger, ledger storage.TransactionLedger) *Controller {
	return &Controller{users: users, wallets: wallets, ledger: ledger}
}

type Controller struct {
	users   storage.UserStore
	wallets storage.WalletLedger
	ledger  storage.TransactionLedger
}

// Users godoc
//
//	@Summary	All registered users with balances
//	@Tags		admin
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	map[string]interface{}
//	@Failure	403	{object}	map[string]interface{}
//	@Router		/admin/users [get]
func (a *Controller) Users(c *fiber.Ctx) error {
	all, err := a.users.AllUsers(c.Context())
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}

	out := make([]fiber.Map, 0, len(all))
	for _, u := range all {
		balances, err := a.wallets.Balances(c.Context(), u.ID)
		if err != nil {
			return middleware.ErrorResponse(c, err)
		}
		out = append(out, fiber.Map{
			"id":         u.ID,
			"email":      u.Email,
			"fullName":   u.FullName,
			"isAdmin":    u.IsAdmin,
			"created_at": u.CreatedAt,
			"balances":   balances,
		})
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "", fiber.Map{
		"data": out,
	})
}

// Transactions godoc
//
//	@Summary	Full transaction ledger, newest first
//	@Tags		admin
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	map[string]interface{}
//	@Failure	403	{object}	map[string]interface{}
//	@Router		/admin/transactions [get]
func (a *Controller) Transactions(c *fiber.Ctx) error {
	records, err := a.ledger.ListAll(c.Context())
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "", fiber.Map{
		"data": records,
	})
}

// Stats godoc
//
//	@Summary	Aggregate platform statistics
//	@Tags		admin
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	map[string]interface{}
//	@Failure	403	{object}	map[string]interface{}
//	@Router		/admin/stats [get]
func (a *Controller) Stats(c *fiber.Ctx) error {
	allUsers, err := a.users.AllUsers(c.Context())
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	records, err := a.ledger.ListAll(c.Context())
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}

	var totalVolume float64
	var completed int
	types := map[model.TxKind]int{}
	for _, r := range records {
		totalVolume += r.Amount
		if r.Status == model.StatusCompleted {
			completed++
		}
		types[r.Kind]++
	}

	successRate := 0
	if len(records) > 0 {
		successRate = int(math.Round(float64(completed) / float64(len(records)) * 100))
	}

	yesterday := time.Now().AddDate(0, 0, -1)
	recentTx, recentUsers := 0, 0
	for _, r := range records {
		if r.CreatedAt.After(yesterday) {
			recentTx++
		}
	}
	for _, u := range allUsers {
		if u.CreatedAt.After(yesterday) {
			recentUsers++
		}
	}

	avg := 0.0
	if len(records) > 0 {
		avg = totalVolume / float64(len(records))
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "", fiber.Map{
		"totalUsers":              len(allUsers),
		"totalTransactions":       len(records),
		"totalVolume":             totalVolume,
		"successRate":             successRate,
		"recentTransactions":      recentTx,
		"recentUsers":             recentUsers,
		"transactionTypes":        types,
		"monthlyVolume":           a.monthlyVolume(records),
		"averageTransactionValue": avg,
		"topUsers":                a.topUsers(c, allUsers),
	})
}

// monthlyVolume buckets completed records into the last six calendar
// months, oldest first.
func (a *Controller) monthlyVolume(records []model.TransferRecord) []fiber.Map {
	now := time.Now()
	out := make([]fiber.Map, 0, 6)

	for i := 5; i >= 0; i-- {
		ref := now.AddDate(0, -i, 0)
		start := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, ref.Location())
		end := start.AddDate(0, 1, 0)

		var volume float64
		count := 0
		for _, r := range records {
			if r.Status == model.StatusCompleted && !r.CreatedAt.Before(start) && r.CreatedAt.Before(end) {
				volume += r.Amount
				count++
			}
		}

		out = append(out, fiber.Map{
			"month":        start.Format("Jan 2006"),
			"volume":       volume,
			"transactions": count,
		})
	}

	return out
}

// topUsers ranks by base-unit wallet valuation, top five.
func (a *Controller) topUsers(c *fiber.Ctx, allUsers []model.User) []fiber.Map {
	type valued struct {
		user  model.User
		total float64
	}

	ranked := make([]valued, 0, len(allUsers))
	for _, u := range allUsers {
		balances, err := a.wallets.Balances(c.Context(), u.ID)
		if err != nil {
			continue
		}
		ranked = append(ranked, valued{user: u, total: balances.TotalINR()})
	}

	sort.Slice(ranked, func(i, j int) bool { return ranked[i].total > ranked[j].total })

	if len(ranked) > 5 {
		ranked = ranked[:5]
	}

	out := make([]fiber.Map, 0, len(ranked))
	for _, v := range ranked {
		out = append(out, fiber.Map{
			"id":      v.user.ID,
			"name":    v.user.FullName,
			"email":   v.user.Email,
			"balance": v.total,
		})
	}

	return out
}

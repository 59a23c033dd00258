package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"

	"github.com/VBK-2102/CryptoPay/controller/admin"
	"github.com/VBK-2102/CryptoPay/controller/auth"
	"github.com/VBK-2102/CryptoPay/controller/converter"
	"github.com/VBK-2102/CryptoPay/controller/payment"
	"github.com/VBK-2102/CryptoPay/controller/prices"
	"github.com/VBK-2102/CryptoPay/controller/transfer"
	"github.com/VBK-2102/CryptoPay/controller/users"
	"github.com/VBK-2102/CryptoPay/controller/wallet"
	_ "github.com/VBK-2102/CryptoPay/docs"
	"github.com/VBK-2102/CryptoPay/middleware"
	"github.com/VBK-2102/CryptoPay/service"
	"github.com/VBK-2102/CryptoPay/service/binance"
	"github.com/VBK-2102/CryptoPay/service/coingecko"
	"github.com/VBK-2102/CryptoPay/service/settlement"
	"github.com/VBK-2102/CryptoPay/service/token"
	"github.com/VBK-2102/CryptoPay/storage"
	"github.com/VBK-2102/CryptoPay/storage/cache"
	"github.com/VBK-2102/CryptoPay/storage/memstore"
	"github.com/VBK-2102/CryptoPay/storage/persistence"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

//	@title			CryptoPay Gateway
//	@version		1.0
//	@description	Multi-currency wallet with crypto sends settled as fiat

//	@host		localhost:8080
//	@BasePath	/api

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file, relying on config.yaml and environment")
	}

	content, err := os.ReadFile("config.yaml")
	if err != nil {
		log.Error().Err(err).Msg("unable to read configuration file")
		os.Exit(1)
	}

	cfg := Config{}
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		log.Error().Err(err).Msg("unable to parse configuration file")
		os.Exit(1)
	}
	cfg.applyEnv()

	if err := New(cfg); err != nil {
		log.Error().Err(err).Msg("unable to initialize application")
		os.Exit(1)
	}
}

func New(cfg Config) error {
	a := Application{cfg: cfg}
	return a.init()
}

type Application struct {
	cfg      Config                     // application configuration
	fiberApp *fiber.App                 // underlying fiber application
	dbConn   *sql.DB                    // postgres connection, nil for the memory driver
	users    storage.UserStore          // account registry
	wallets  storage.WalletLedger       // balance ledger
	ledger   storage.TransactionLedger  // transfer history
	rates    storage.RateCache          // cached crypto prices
	engine   *settlement.Engine         // transfer sequencing and crypto settlement
	tokens   *token.Service             // bearer token issue/verify
	exchange *binance.Client            // signed exchange account access
	stopC    chan os.Signal             // handle interrupt for clean up(close connections, etc)
}

func (a *Application) init() error {
	a.fiberApp = fiber.New()
	a.stopC = make(chan os.Signal, 1)
	signal.Notify(a.stopC, os.Interrupt)

	if err := a.initStorage(); err != nil {
		return err
	}

	exchangeClient, err := binance.New(a.cfg.BinanceAPIKey, a.cfg.BinanceSecret)
	if err != nil {
		log.Error().Err(err).Msg("unable to create exchange client")
		return err
	}
	a.exchange = exchangeClient

	geckoClient, err := coingecko.New()
	if err != nil {
		log.Error().Err(err).Msg("unable to create coingecko client")
		return err
	}

	a.rates = cache.New([]service.PriceFeed{exchangeClient, geckoClient}...)
	a.engine = settlement.New(a.users, a.wallets, a.ledger, a.rates)
	a.tokens = token.New(a.cfg.JWTSecret)

	a.buildRoutes()
	go a.stop()
	log.Debug().Str("port", a.cfg.HTTPPort).Msg("preparing fiber http server")

	if err := a.fiberApp.Listen(a.cfg.HTTPPort); err != nil {
		log.Error().Err(err).Msg("unable to start http server")
		return err
	}

	return nil
}

func (a *Application) initStorage() error {
	if a.cfg.StorageDriver == "postgres" {
		connStr := fmt.Sprintf("postgresql://%s:%s@%s:%s/%s?sslmode=disable",
			a.cfg.DBUsername,
			a.cfg.DBPassword,
			a.cfg.DBHost,
			a.cfg.DBPort,
			a.cfg.DBName,
		)
		log.Debug().Str("host", a.cfg.DBHost).Str("db", a.cfg.DBName).Msg("initialize db connection")

		dbConn, err := sql.Open("postgres", connStr)
		if err != nil {
			log.Error().Err(err).Msg("unable to connect to db")
			return err
		}

		db := persistence.New(dbConn)
		if err := db.Migrate(context.Background()); err != nil {
			log.Error().Err(err).Msg("unable to migrate schema")
			return err
		}

		a.dbConn = dbConn
		a.users, a.wallets, a.ledger = db, db, db
		return nil
	}

	store, err := memstore.NewSeeded()
	if err != nil {
		log.Error().Err(err).Msg("unable to seed demo accounts")
		return err
	}

	a.users, a.wallets, a.ledger = store, store, store
	return nil
}

func (a *Application) buildRoutes() {
	a.fiberApp.Get("/swagger/*", swagger.HandlerDefault)

	api := a.fiberApp.Group("/api")

	authController := auth.New(a.users, a.tokens)
	api.Post("/auth/login", authController.Login)
	api.Post("/auth/register", authController.Register)

	priceController := prices.New(a.rates, a.exchange)
	api.Get("/crypto/live-prices", priceController.Live)
	api.Get("/crypto/prices", priceController.Prices)
	api.Get("/crypto/wallet-balances", priceController.WalletBalances)
	api.Post("/crypto/convert", converter.New(a.rates).Convert)

	authed := api.Group("", middleware.RequireAuth(a.tokens))

	walletController := wallet.New(a.wallets, a.engine)
	authed.Get("/wallet/balances", walletController.Balances)
	authed.Post("/wallet/withdraw", walletController.Withdraw)

	paymentController := payment.New(a.wallets, a.ledger)
	authed.Post("/payment/generate-qr", paymentController.GenerateQR)
	authed.Post("/payment/confirm", paymentController.Confirm)

	authed.Get("/users/search", users.New(a.users).Search)

	transferController := transfer.New(a.engine, a.users, a.ledger)
	authed.Post("/transactions/send", transferController.Send)
	authed.Post("/transactions/send-crypto", transferController.SendCrypto)
	authed.Get("/transactions", transferController.History)

	adminController := admin.New(a.users, a.wallets, a.ledger)
	adminAPI := authed.Group("/admin", middleware.RequireAdmin())
	adminAPI.Get("/users", adminController.Users)
	adminAPI.Get("/transactions", adminController.Transactions)
	adminAPI.Get("/stats", adminController.Stats)
}

func (a *Application) stop() {
	<-a.stopC
	a.fiberApp.Shutdown()
	if a.dbConn != nil {
		a.dbConn.Close()
	}
	os.Exit(0)
}

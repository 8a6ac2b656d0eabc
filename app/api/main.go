package main

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/viper"

	"github.com/auctionx/goapi/base/ctx"
	"github.com/auctionx/goapi/base/database/mongoclient"
	"github.com/auctionx/goapi/base/database/redisclient"
	"github.com/auctionx/goapi/base/log"
	"github.com/auctionx/goapi/base/metrics"
	bValidator "github.com/auctionx/goapi/base/validator"
	"github.com/auctionx/goapi/domain"
	"github.com/auctionx/goapi/domain/auction"
	mmiddleware "github.com/auctionx/goapi/middleware"
	"github.com/auctionx/goapi/service/cache"
	"github.com/auctionx/goapi/service/cache/provider"
	"github.com/auctionx/goapi/service/cache/provider/compound"
	"github.com/auctionx/goapi/service/cache/provider/primitive"
	redisCacheProvider "github.com/auctionx/goapi/service/cache/provider/redis"
	"github.com/auctionx/goapi/service/query"
	"github.com/auctionx/goapi/service/redis"
	account_delivery "github.com/auctionx/goapi/stores/account/delivery/http"
	account_repository "github.com/auctionx/goapi/stores/account/repository"
	account_usecase "github.com/auctionx/goapi/stores/account/usecase"
	auction_delivery "github.com/auctionx/goapi/stores/auction/delivery/http"
	auction_repository "github.com/auctionx/goapi/stores/auction/repository"
	auction_usecase "github.com/auctionx/goapi/stores/auction/usecase"
	auth_delivery "github.com/auctionx/goapi/stores/auth/delivery/http"
	auth_middleware "github.com/auctionx/goapi/stores/auth/delivery/http/middleware"
	auth_usecase "github.com/auctionx/goapi/stores/auth/usecase"
	bank_delivery "github.com/auctionx/goapi/stores/bank/delivery/http"
	bank_repository "github.com/auctionx/goapi/stores/bank/repository"
	bank_usecase "github.com/auctionx/goapi/stores/bank/usecase"
	hc_delivery "github.com/auctionx/goapi/stores/healthcheck/delivery/http"
	hc_repo "github.com/auctionx/goapi/stores/healthcheck/repository"
	hc_usecase "github.com/auctionx/goapi/stores/healthcheck/usecase"
	registry_delivery "github.com/auctionx/goapi/stores/registry/delivery/http"
	registry_repository "github.com/auctionx/goapi/stores/registry/repository"
	registry_usecase "github.com/auctionx/goapi/stores/registry/usecase"
)

func init() {
	viper.SetConfigType("yaml")
	viper.SetConfigFile(`infra/configs/config.yaml`)
	err := viper.ReadInConfig()
	if err != nil {
		panic(err)
	}

	if viper.GetBool(`debug`) {
		log.Log().Info("Service RUN on DEBUG mode")
	}
}

func main() {
	// init echo
	e := echo.New()
	e.Use(middleware.Recover())
	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{}))
	e.Use(middleware.RequestID())
	middL := mmiddleware.InitMiddleware()
	e.Use(middL.ResponseLogger())
	e.Use(middL.AddContext())
	e.Use(middleware.CORS())
	e.Validator = bValidator.NewCustomValidator(validator.New())

	context := ctx.Background()

	// init mongo client
	context.Info("init mongo")
	uri := viper.GetString("mongo.uri")
	authDBName := viper.GetString("mongo.authDBName")
	dbName := viper.GetString("mongo.dbName")
	enableSSL := viper.GetBool("mongo.enableSSL")
	checkIndex := viper.GetBool("mongo.checkIndex")
	mongoClient := mongoclient.MustConnectMongoClient(uri, authDBName, dbName, enableSSL, true, 2)
	q := query.New(mongoClient, checkIndex)

	// init Redis service
	context.Info("init redis cache")
	redisCacheName := viper.GetString("redis_cache.name")
	redisCacheURI := viper.GetString("redis_cache.uri")
	redisCachePwd := viper.GetString("redis_cache.password")
	redisCachePoolMultiplier := viper.GetFloat64("redis_cache.poolMultiplier")
	redisCachePool := redisclient.MustConnectRedis(redisCacheURI, redisCachePwd, redisclient.RedisParam{
		PoolMultiplier: redisCachePoolMultiplier,
		Retry:          true,
	})
	redisCache := redis.New(redisCacheName, metrics.New(redisCacheName), &redis.Pools{
		Src: redisCachePool,
	})

	escrowAccount := domain.Address(viper.GetString("engine.escrowAccount")).ToLower()

	defaults := auction.Defaults{
		BidIncreaseBps:         viper.GetInt64("engine.defaultBidIncreaseBps"),
		MinSettableIncreaseBps: viper.GetInt64("engine.minSettableIncreaseBps"),
		BidPeriod:              viper.GetDuration("engine.defaultBidPeriod"),
		SnipeWindow:            viper.GetDuration("engine.snipeWindow"),
	}

	ownerCache := cache.New(cache.ServiceConfig{
		Ttl: 10 * time.Minute,
		Pfx: "holdingOwner",
		Cache: compound.NewCompound([]provider.Provider{
			primitive.NewPrimitive("holdingOwner", 128),
			redisCacheProvider.NewRedis(redisCache),
		}),
	})

	// construct repository, usecase and delivery
	hcRepo := hc_repo.New(mongoClient, redisCache)
	accountRepo := account_repository.New(q, redisCache)
	auctionRepo := auction_repository.NewAuctionRepo(q)
	bankRepo := bank_repository.NewBankRepo(q)
	registryRepo := registry_repository.NewRegistryRepo(q)

	hc := hc_usecase.New(hcRepo)
	account := account_usecase.New(&account_usecase.AccountUseCaseCfg{
		Repo:         accountRepo,
		SignatureMsg: viper.GetString("auth.signatureMsg"),
	})
	auth := auth_usecase.New(viper.GetString("auth.jwtSecret"), account)
	bank := bank_usecase.New(&bank_usecase.BankUseCaseCfg{
		BankRepo:      bankRepo,
		EscrowAccount: escrowAccount,
	})
	registry := registry_usecase.New(&registry_usecase.RegistryUseCaseCfg{
		RegistryRepo:  registryRepo,
		EscrowAccount: escrowAccount,
		OwnerCache:    ownerCache,
	})
	auctionUC := auction_usecase.New(&auction_usecase.AuctionUseCaseCfg{
		AuctionRepo: auctionRepo,
		Custody:     registry,
		Payments:    bank,
		Defaults:    defaults,
	})

	adminAddresses := viper.GetStringSlice("admin.addresses")
	auth_middleware := auth_middleware.New(auth, adminAddresses)

	hc_delivery.New(e, hc)
	auth_delivery.New(e, auth, viper.GetString("auth.signatureMsg"))
	account_delivery.New(e, account, auth_middleware)
	auction_delivery.New(e, auctionUC, auth_middleware)
	bank_delivery.New(e, bank, auth_middleware)
	registry_delivery.New(e, registry, auth_middleware)

	e.GET("/check", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"address": c.Get("address").(domain.Address),
		})
	}, auth_middleware.Auth())

	go func() {
		if err := e.Start(viper.GetString("server.address")); err != nil && err != http.ErrServerClosed {
			log.Log().WithField("err", err).Error("shutting down the server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server with a timeout of 10 seconds.
	// Use a buffered channel to avoid missing signals as recommended for signal.Notify
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	sig := <-quit
	log.Log().WithField("signal", sig).Info("received signal")
	ctx, cancel := ctx.WithTimeout(context, 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Log().WithField("err", err).Error("shutting down the server")
	} else {
		log.Log().Info("shutdown server successfully")
	}
}

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"foodorder/internal/config"
	"foodorder/internal/event"
	"foodorder/internal/handler"
	"foodorder/internal/infra/cache"
	"foodorder/internal/infra/db"
	infraRepo "foodorder/internal/infra/repository"
	"foodorder/internal/logger"
	"foodorder/internal/metrics"
	"foodorder/internal/payment"
	"foodorder/internal/server"
	"foodorder/internal/usecase"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func main() {
	//金額はJSONで数値として返す
	decimal.MarshalJSONWithoutQuotes = true

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zl, err := logger.New(cfg.LogLevel, cfg.GoEnv)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	if err := run(cfg, zl); err != nil {
		zl.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, zl *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//DB接続
	gormDB, err := db.Connect(cfg)
	if err != nil {
		return err
	}
	if err := db.Migrate(gormDB); err != nil {
		return err
	}
	txm := infraRepo.NewTxManagerGorm(gormDB)

	//メトリクス
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	//決済
	gateway, err := payment.NewStripeGateway(payment.StripeGatewayConfig{
		APIKey: cfg.Payment.StripeSecretKey,
		Logger: zl.Named("stripe"),
	})
	if err != nil {
		return err
	}
	verifier := payment.NewWebhookVerifier(cfg.Payment.StripeWebhookSecret)
	if cfg.Payment.StripeWebhookSecret == "" {
		zl.Warn("STRIPE_WEBHOOK_SECRET not set, webhook endpoint disabled")
	}

	//イベント（ブローカー未設定なら送らない）
	var publisher event.Publisher = event.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		kp := event.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaOrderTopic)
		defer func() { _ = kp.Close() }()
		publisher = kp
		zl.Info("kafka publisher enabled", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaOrderTopic))
	}

	//Usecase生成
	orderUC := usecase.NewOrderUsecase(txm, gateway, publisher, m, zl.Named("order"), usecase.OrderOptions{
		FrontendURL:       cfg.FrontendURL,
		Currency:          cfg.Payment.Currency,
		DeliveryFee:       cfg.Payment.DeliveryFee,
		VerifyWithGateway: cfg.Payment.VerifyWithGateway,
		StrictStatus:      cfg.OrderStatusStrict,
	})
	if cfg.RedisAddr != "" {
		rdb := cache.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		defer func() { _ = rdb.Close() }()
		orderUC.WithEventDeduper(cache.NewEventDedupRedis(rdb, cache.DefaultEventTTL))
		zl.Info("webhook event dedup enabled", zap.String("redis", cfg.RedisAddr))
	}
	cartUC := usecase.NewCartUsecase(txm, zl.Named("cart"))

	//Handler生成
	e := server.New(server.Handlers{
		Order:   handler.NewOrderHandler(orderUC),
		Cart:    handler.NewCartHandler(cartUC),
		Webhook: handler.NewWebhookHandler(verifier, orderUC, zl.Named("webhook")),
	}, server.Options{
		JWTSecret: cfg.JWTSecret,
		Logger:    zl.Named("http"),
		Metrics:   m,
		Gatherer:  reg,
	})

	//Server起動
	return server.Start(ctx, e, cfg.Addr(), zl)
}

package main

import (
	"context"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bigmove/backend/internal/audit"
	"github.com/bigmove/backend/internal/config"
	"github.com/bigmove/backend/internal/db"
	"github.com/bigmove/backend/internal/delivery"
	"github.com/bigmove/backend/internal/draft"
	"github.com/bigmove/backend/internal/geo"
	"github.com/bigmove/backend/internal/health"
	"github.com/bigmove/backend/internal/kafka"
	"github.com/bigmove/backend/internal/logger"
	"github.com/bigmove/backend/internal/notify"
	"github.com/bigmove/backend/internal/options"
	"github.com/bigmove/backend/internal/payment"
	taskprocessor "github.com/bigmove/backend/internal/processor"
	"github.com/bigmove/backend/internal/repository"
	"github.com/bigmove/backend/internal/server"
	"github.com/bigmove/backend/internal/service"
)

func main() {
	cfg := config.LoadConfig()
	logger.Init(cfg.LogLevel)

	if err := run(cfg); err != nil {
		slog.Error("service stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := db.NewDB(ctx, cfg.DSN, cfg.MigrationsDir)
	if err != nil {
		return err
	}
	defer database.Close()

	loc := cfg.Location()

	auditCtx, auditCancel := context.WithCancel(context.Background())
	auditPool := audit.NewAuditWorkerPool(
		audit.AuditPoolConfig{BatchSize: 5, Timeout: 500 * time.Millisecond, ChannelSize: 1000},
		audit.NewDBProcessor(database),
		&audit.LogProcessor{Filter: cfg.FilterWord, Logger: slog.Default()},
	)
	auditPool.Start(auditCtx, 2)
	defer auditPool.Shutdown(auditCancel)

	orderRepo := repository.NewOrderRepository(database)
	taskRepo := repository.NewPostgresTaskRepository(database)

	slotSource := delivery.NewBookingSource(repository.NewBookingRepository(database), loc, time.Now)
	// Serves the public calendar only; checkout sessions own their resolvers.
	calendar := delivery.NewResolverWithTTL(slotSource, time.Minute, time.Now)

	kakao := geo.NewKakaoClient(cfg.KakaoRESTKey, cfg.KakaoGeocodeURL, cfg.KakaoDirectionsURL)
	distance := geo.NewCalculator(kakao, kakao, geo.DefaultRetryPolicy)

	drafts := draft.NewRedisPersister(cfg.RedisAddr, cfg.DraftTTL)
	defer drafts.Close()

	orders := service.NewOrderService(orderRepo, auditPool, loc)
	catalog := options.NewCatalog()
	checkout := service.NewCheckout(service.CheckoutDeps{
		Persister: drafts,
		Creator:   orders,
		Slots:     slotSource,
		Catalog:   catalog,
		Searcher:  kakao,
		Distance:  distance,
		IdleTTL:   time.Hour,
	})

	payments := payment.NewService(orderRepo, payment.NewTossClient(cfg.TossSecretKey, cfg.TossConfirmURL), auditPool)

	producer, err := kafka.NewSaramaProducer(cfg.KafkaBrokers)
	if err != nil {
		return err
	}
	defer producer.Close()

	tasks := taskprocessor.NewTaskProcessor(taskRepo, producer, cfg.KafkaTopic, time.Second, 50)
	notifier := notify.NewOrderNotifier(notify.NewSendGridMailer(cfg.SendGridAPIKey, ""), cfg.MailFrom, cfg.MailTo)

	srv := server.NewServer(cfg, server.Deps{
		Items:    repository.NewItemRepository(database),
		Slots:    calendar,
		Options:  catalog,
		Orders:   orders,
		Payments: payments,
		Distance: distance,
		Checkout: checkout,
		Audit:    auditPool,
	})

	hs := health.NewServer()
	lis, err := net.Listen("tcp", cfg.GRPCAddr())
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx) })
	g.Go(func() error { return hs.Serve(lis) })
	g.Go(func() error {
		<-gctx.Done()
		hs.Shutdown()
		return nil
	})
	g.Go(func() error {
		return kafka.StartSaramaConsumer(gctx, kafka.NewConsumerConfig(), cfg.KafkaBrokers, cfg.KafkaGroupID, []string{cfg.KafkaTopic}, notifier)
	})
	g.Go(func() error {
		tasks.Start(gctx)
		return nil
	})
	g.Go(func() error {
		calendar.StartAutoPurge(gctx, time.Minute)
		return nil
	})
	g.Go(func() error {
		checkout.StartEviction(gctx, 5*time.Minute)
		return nil
	})
	g.Go(func() error {
		hs.Watch(gctx, 10*time.Second, database, health.PingFunc(drafts.Ping))
		return nil
	})

	slog.Info("bigmove backend started", "http", cfg.Addr(), "grpc", cfg.GRPCAddr())
	return g.Wait()
}

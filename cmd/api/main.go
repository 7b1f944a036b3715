package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"bookmarket/internal/cart"
	"bookmarket/internal/catalog"
	"bookmarket/internal/checkout"
	"bookmarket/internal/config"
	"bookmarket/internal/dispatch"
	"bookmarket/internal/events"
	"bookmarket/internal/httpx"
	kafkax "bookmarket/internal/kafka"
	"bookmarket/internal/ledger"
	"bookmarket/internal/notify"
	"bookmarket/internal/orders"
	"bookmarket/internal/postgres"
	"bookmarket/internal/redisx"
	"bookmarket/internal/reservation"
	"bookmarket/internal/users"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers, one per topic
	pOrders := kafkax.NewProducer(cfg.KafkaBrokers, events.TopicOrderPlaced, 1024)
	pOrders.Start(ctx)
	pStatus := kafkax.NewProducer(cfg.KafkaBrokers, events.TopicOrderStatusChanged, 1024)
	pStatus.Start(ctx)
	pNotes := kafkax.NewProducer(cfg.KafkaBrokers, events.TopicNotifications, 1024)
	pNotes.Start(ctx)

	// Repos
	userRepo := &users.Repo{DB: db}
	productRepo := &catalog.Repo{DB: db}
	cartRepo := &cart.Repo{DB: db}
	walletRepo := &ledger.Repo{DB: db}
	orderRepo := &orders.Repo{DB: db}
	noteRepo := &notify.Repo{DB: db}
	deliveryRepo := &dispatch.Repo{DB: db, Orders: orderRepo}
	reservationRepo := &reservation.Repo{DB: db, Products: productRepo}

	// Services
	notifier := &notify.Notifier{Repo: noteRepo, Producer: pNotes, Service: cfg.ServiceName}
	walletSvc := ledger.NewService(walletRepo)
	checkoutSvc := checkout.NewService(&checkout.PGStore{
		Pool:       db,
		Carts:      cartRepo,
		Wallets:    walletRepo,
		Products:   productRepo,
		Orders:     orderRepo,
		Notes:      noteRepo,
		Deliveries: deliveryRepo,
	})
	dispatchSvc := dispatch.NewService(deliveryRepo, userRepo, orderRepo, notifier)

	// HTTP
	router := httpx.NewRouter()
	(&httpx.WalletHandler{Ledger: walletSvc}).Register(router)
	(&httpx.CatalogHandler{Products: productRepo}).Register(router)
	(&httpx.CartHandler{Carts: cartRepo}).Register(router)
	(&httpx.CheckoutHandler{
		Checkout: checkoutSvc,
		Redis:    rdb,
		Producer: pOrders,
		Service:  cfg.ServiceName,
	}).Register(router)
	(&httpx.OrdersHandler{
		Orders:   orderRepo,
		Users:    userRepo,
		Dispatch: dispatchSvc,
		Notifier: notifier,
		Redis:    rdb,
		Producer: pStatus,
		Service:  cfg.ServiceName,
	}).Register(router)
	(&httpx.DeliveryHandler{Dispatch: dispatchSvc, Redis: rdb}).Register(router)
	(&httpx.ReservationHandler{Reservations: reservationRepo}).Register(router)
	(&httpx.NotificationsHandler{Notes: noteRepo}).Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)

	cancel()
	pOrders.WaitClosed()
	pStatus.WaitClosed()
	pNotes.WaitClosed()
}

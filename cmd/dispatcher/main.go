package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"bookmarket/internal/config"
	"bookmarket/internal/dispatch"
	"bookmarket/internal/events"
	kafkax "bookmarket/internal/kafka"
	"bookmarket/internal/notify"
	"bookmarket/internal/orders"
	"bookmarket/internal/postgres"
	"bookmarket/internal/redisx"
	"bookmarket/internal/users"
)

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func mustAtoi(s, def string) int {
	if s == "" {
		s = def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 1
	}
	return i
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	pNotes := kafkax.NewProducer(cfg.KafkaBrokers, events.TopicNotifications, 1024)
	pNotes.Start(ctx)

	orderRepo := &orders.Repo{DB: db}
	notifier := &notify.Notifier{
		Repo:     &notify.Repo{DB: db},
		Producer: pNotes,
		Service:  cfg.ServiceName + "-dispatcher",
	}
	svc := dispatch.NewService(
		&dispatch.Repo{DB: db, Orders: orderRepo},
		&users.Repo{DB: db},
		orderRepo,
		notifier,
	)

	group := getenv("DISPATCHER_GROUP", "dispatcher-svc")
	workers := mustAtoi(os.Getenv("DISPATCHER_WORKERS"), "8")
	handler := &dispatch.StatusConsumer{Service: svc, RDB: rdb, Group: group}
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, events.TopicOrderStatusChanged, workers)

	go func() {
		log.Printf("dispatcher consumer started: group=%s topic=%s workers=%d",
			group, events.TopicOrderStatusChanged, workers)
		if err := cons.Start(ctx, handler.Handle); err != nil {
			log.Printf("consumer exit: %v", err)
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down consumer...")
	cancel()
	time.Sleep(500 * time.Millisecond)
	pNotes.WaitClosed()
}

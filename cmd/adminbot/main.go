package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/imrishuroy/shop-orderflow/internal/aws"
	"github.com/imrishuroy/shop-orderflow/internal/backends"
	"github.com/imrishuroy/shop-orderflow/internal/bot"
	"github.com/imrishuroy/shop-orderflow/internal/config"
	"github.com/imrishuroy/shop-orderflow/internal/events"
	"github.com/imrishuroy/shop-orderflow/internal/logging"
)

func main() {
	logger := logging.New("admin-bot")

	if err := config.LoadDotEnv(); err != nil {
		logger.Warn("load env file", "error", err)
	}
	cfg, err := config.LoadBot()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clients, err := aws.NewAWSClients(ctx)
	if err != nil {
		logger.Error("failed to init aws clients", "error", err)
		os.Exit(1)
	}

	repo, closeStore, err := backends.OpenStore(ctx, cfg.Store, clients.DynamoDB, logger)
	if err != nil {
		logger.Error("open order store", "driver", cfg.Store.Driver, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		logger.Error("connect telegram", "error", err)
		os.Exit(1)
	}
	logger.Info("authorized", "bot", api.Self.UserName)

	mirror := bot.NewMirror()
	if err := mirror.Reload(ctx, repo); err != nil {
		logger.Error("initial order load", "error", err)
	} else {
		logger.Info("orders loaded", "count", mirror.Len())
	}
	b := bot.New(api, repo, mirror, cfg.AdminID, logger, cfg.Location)

	var newOrders chan events.NewOrder
	if cfg.Events.Driver != config.EventsNone {
		newOrders = make(chan events.NewOrder)
		go func() {
			if err := backends.Consume(ctx, cfg.Events, clients.SQS, bot.Forward(newOrders), logger); err != nil {
				logger.Error("new-order consumer stopped", "driver", cfg.Events.Driver, "error", err)
			}
		}()
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = cfg.PollTimeout
	updates := api.GetUpdatesChan(u)
	go func() {
		<-ctx.Done()
		api.StopReceivingUpdates()
	}()

	logger.Info("admin bot started", "admin_id", cfg.AdminID)
	if err := b.Run(ctx, updates, newOrders); err != nil && !errors.Is(ctx.Err(), context.Canceled) {
		logger.Error("bot stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("admin bot stopped")
}

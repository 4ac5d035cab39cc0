package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	lambdaevents "github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/shop-orderflow/internal/aws"
	"github.com/imrishuroy/shop-orderflow/internal/backends"
	"github.com/imrishuroy/shop-orderflow/internal/config"
	"github.com/imrishuroy/shop-orderflow/internal/handlers"
	"github.com/imrishuroy/shop-orderflow/internal/idempotency"
	"github.com/imrishuroy/shop-orderflow/internal/logging"
	"github.com/imrishuroy/shop-orderflow/internal/telegram"
)

func setupRouter(cfg handlers.HandlerConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.HandleMethodNotAllowed = true
	r.NoMethod(handlers.MethodNotAllowed)

	// health
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	handlers.RegisterOrdersRoutes(r, cfg)

	return r
}

func main() {
	logger := logging.New("orders-api")
	slog.SetDefault(logger)

	if err := config.LoadDotEnv(); err != nil {
		logger.Warn("load env file", "error", err)
	}
	cfg, err := config.LoadAPI()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	clients, err := aws.NewAWSClients(ctx)
	if err != nil {
		logger.Error("failed to init aws clients", "error", err)
		os.Exit(1)
	}

	hcfg := handlers.HandlerConfig{
		Notifier: telegram.NewNotifier(cfg.TelegramToken, cfg.TelegramChatID),
		Logger:   logger,
		Location: cfg.Location,
	}
	if !cfg.TelegramConfigured() {
		logger.Warn("telegram not configured (TELEGRAM_BOT_TOKEN or TELEGRAM_CHAT_ID)")
	}

	repo, closeStore, err := backends.OpenStore(ctx, cfg.Store, clients.DynamoDB, logger)
	if err != nil {
		logger.Warn("order store not configured", "driver", cfg.Store.Driver, "error", err)
	} else {
		hcfg.Orders = repo
	}
	defer closeStore()

	publisher, closePublisher, err := backends.OpenPublisher(cfg.Events, clients.SQS, logger)
	if err != nil {
		logger.Warn("new-order events disabled", "driver", cfg.Events.Driver, "error", err)
	} else {
		hcfg.Events = publisher
	}
	defer closePublisher()

	if cfg.MetricsNamespace != "" {
		hcfg.Metrics = aws.NewMetrics(clients.CloudWatch, cfg.MetricsNamespace)
	}
	if cfg.IdempotencyTable != "" {
		hcfg.Idempotency = idempotency.NewStore(clients.DynamoDB, cfg.IdempotencyTable, cfg.IdempotencyTTL)
	}

	r := setupRouter(hcfg)

	// if environment variable RUN_LOCAL is set to "true", run local HTTP server for development.
	if cfg.RunLocal {
		logger.Info("running local server", "addr", cfg.HTTPAddr)
		if err := r.Run(cfg.HTTPAddr); err != nil {
			logger.Error("failed to run local server", "error", err)
			os.Exit(1)
		}
		return
	}

	// lambda adapter
	adapter := ginadapter.New(r)

	lambda.Start(func(ctx context.Context, req lambdaevents.APIGatewayProxyRequest) (lambdaevents.APIGatewayProxyResponse, error) {
		return adapter.ProxyWithContext(ctx, req)
	})
}

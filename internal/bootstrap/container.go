package bootstrap

import (
	"context"

	"smartshop-be/internal/config"
	"smartshop-be/internal/controller"
	"smartshop-be/internal/handler"
	"smartshop-be/internal/metrics"
	"smartshop-be/internal/pkg/logger"
	"smartshop-be/internal/pkg/serverutils"
	"smartshop-be/internal/repository/memory"
	"smartshop-be/internal/service"
	"smartshop-be/internal/websocket"
	"smartshop-be/pkg/agent"
	"smartshop-be/pkg/events"
	pktNats "smartshop-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gorm.io/gorm"
)

const sessionMemorySize = 10

type Container struct {
	Core *Core

	// Controllers
	ChatController  controller.IChatController
	AdminController controller.IAdminController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService
	UsageService    service.IUsageService
	AdminService    service.IAdminService

	// WebSockets
	ChatSocketHandler *handler.ChatSocketHandler
	WebSocketHub      *websocket.Hub

	Registry *prometheus.Registry

	natsPub *pktNats.Publisher
	natsSub *pktNats.Subscriber
	pubSub  *gochannel.GoChannel
}

func NewContainer(ctx context.Context, db *gorm.DB, cfg *config.Config) (*Container, error) {
	// 1. Core
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	core, err := NewCore(ctx, cfg, db, sysLogger)
	if err != nil {
		return nil, err
	}
	c := &Container{Core: core}

	// 2. Event Bus
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		sysLogger.Warn(bootModule, "Failed to connect to NATS Publisher", map[string]interface{}{"error": err.Error()})
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		sysLogger.Warn(bootModule, "Failed to connect to NATS Subscriber", map[string]interface{}{"error": err.Error()})
	}
	c.natsPub, c.natsSub = natsPub, natsSub

	var publisher events.Publisher
	if natsPub != nil {
		publisher = natsPub
	}

	c.pubSub = gochannel.NewGoChannel(gochannel.Config{}, watermill.NewStdLogger(false, false))

	// 3. Sessions and metrics
	sessions := memory.NewSessionRepository(cfg.App.SessionTTL, sessionMemorySize)

	c.Registry = prometheus.NewRegistry()
	c.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(c.Registry, sessions.Count)

	// 4. Services
	c.UsageService = service.NewUsageService(publisher, c.natsSub, sysLogger)
	orchestrator := core.NewOrchestrator(
		agent.WithUsageRecorder(c.UsageService),
		agent.WithObserver(m),
	)

	c.ConsumerService = service.NewConsumerService(c.pubSub, cfg.Retrieval.IndexTopic, core.Engine, core.Catalog, sysLogger,
		service.WithRetry(cfg.Retrieval.IndexMaxRetries, cfg.Retrieval.IndexRetryInterval),
	)
	publisherService := service.NewPublisherService(cfg.Retrieval.IndexTopic, c.pubSub)
	modelService := service.NewModelService(core.BuildChatProvider, core.LLM, cfg.Ai.LLMModel, sysLogger, orchestrator, core.Router)
	c.AdminService = service.NewAdminService(publisherService, core.Engine, c.UsageService, modelService, sysLogger, sysLogger)

	chatService := service.NewChatService(sessions, orchestrator, core.Catalog, publisher, sysLogger, service.ChatServiceInfo{
		LLMProvider: core.LLM.Name(),
		VectorStore: cfg.Retrieval.VectorStore,
	})

	// 5. WebSockets
	wsLogger := logger.NewIsolatedLogger(cfg.App.SocketLogFilePath)
	c.WebSocketHub = websocket.NewHub(core.Redis, wsLogger)
	go c.WebSocketHub.Run()
	c.ChatSocketHandler = handler.NewChatSocketHandler(chatService, c.WebSocketHub, wsLogger)

	// 6. Controllers
	c.ChatController = controller.NewChatController(chatService)
	c.AdminController = controller.NewAdminController(c.AdminService, serverutils.NewJwtMiddleware(cfg.App.AdminJWTSecret))

	return c, nil
}

// Close releases background resources in reverse start order.
func (c *Container) Close() {
	c.WebSocketHub.Stop()
	if c.natsSub != nil {
		c.natsSub.Close()
	}
	if c.natsPub != nil {
		c.natsPub.Close()
	}
	_ = c.pubSub.Close()
	c.Core.Close()
}

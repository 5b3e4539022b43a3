package container

import (
	"context"
	"fmt"
	"log"

	"openpayflow/internal/config"
	eventjob "openpayflow/internal/domains/event/job"
	eventRepo "openpayflow/internal/domains/event/repository"
	eventService "openpayflow/internal/domains/event/service"
	merchantRepo "openpayflow/internal/domains/merchant/repository"
	merchantService "openpayflow/internal/domains/merchant/service"
	"openpayflow/internal/domains/payment/gateway"
	mockgw "openpayflow/internal/domains/payment/gateway/mock"
	"openpayflow/internal/domains/payment/gateway/razorpay"
	"openpayflow/internal/domains/payment/gateway/stripe"
	paymentHandler "openpayflow/internal/domains/payment/handler"
	paymentmodel "openpayflow/internal/domains/payment/model"
	paymentRepo "openpayflow/internal/domains/payment/repository"
	paymentService "openpayflow/internal/domains/payment/service"
	webhookHandler "openpayflow/internal/domains/webhook/handler"
	webhookjob "openpayflow/internal/domains/webhook/job"
	webhookRepo "openpayflow/internal/domains/webhook/repository"
	webhookService "openpayflow/internal/domains/webhook/service"
	infraCache "openpayflow/internal/infrastructure/cache"
	"openpayflow/internal/infrastructure/database"
	"openpayflow/internal/infrastructure/queue"
	"openpayflow/pkg/cache"
)

// ========================================
// CONTAINER STRUCT
// ========================================

// Container holds the whole dependency graph. Everything in it is a
// singleton built once at startup, in dependency order.
type Container struct {
	// ========================================
	// INFRASTRUCTURE LAYER
	// ========================================

	Config        *config.Config
	DB            *database.PostgresDB
	Cache         cache.Cache
	DeliveryQueue *queue.DeliveryQueue

	// ========================================
	// REPOSITORY LAYER
	// ========================================

	MerchantRepo merchantRepo.MerchantRepoInterface
	PaymentRepo  paymentRepo.PaymentRepoInterface
	AttemptRepo  paymentRepo.AttemptRepoInterface
	RefundRepo   paymentRepo.RefundRepoInterface
	TxManager    paymentRepo.TransactionManager
	OutboxRepo   eventRepo.OutboxRepoInterface
	EventRepo    eventRepo.EventRepoInterface
	EndpointRepo webhookRepo.EndpointRepoInterface
	DeliveryRepo webhookRepo.DeliveryRepoInterface

	// ========================================
	// GATEWAY ADAPTERS
	// ========================================

	Gateways map[string]gateway.PaymentGateway

	// ========================================
	// SERVICE LAYER
	// ========================================

	MerchantService merchantService.MerchantService
	PaymentService  paymentService.PaymentServiceInterface
	RefundService   paymentService.RefundServiceInterface
	DrainerService  eventService.DrainerServiceInterface
	SenderService   webhookService.SenderServiceInterface
	EndpointService webhookService.EndpointServiceInterface

	// ========================================
	// HANDLER LAYER (HTTP)
	// ========================================

	PaymentHandler  *paymentHandler.PaymentHandler
	RefundHandler   *paymentHandler.RefundHandler
	EndpointHandler *webhookHandler.EndpointHandler

	// ========================================
	// JOB HANDLERS (WORKER)
	// ========================================

	DrainOutboxJob     *eventjob.DrainOutboxHandler
	PurgeOutboxJob     *eventjob.PurgeOutboxHandler
	PurgeEventsJob     *eventjob.PurgeEventsHandler
	RetrySweepJob      *webhookjob.RetrySweepHandler
	PurgeDeliveriesJob *webhookjob.PurgeDeliveriesHandler
}

// ========================================
// CONSTRUCTOR: BUILD CONTAINER
// ========================================

// NewContainer builds the full graph. Order matters:
// config, then infrastructure, then repositories, then gateways,
// then services, then handlers.
func NewContainer() (*Container, error) {
	log.Println("Initializing DI container...")

	c := &Container{}

	// STEP 1: Configuration
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	c.Config = cfg
	log.Printf("Config loaded (environment: %s)", cfg.App.Environment)

	// STEP 2: Database
	c.DB = database.NewPostgresDB(&cfg.Database)
	if err := c.DB.Connect(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Println("PostgreSQL connected")

	// STEP 3: Redis cache + work queue
	redisCache := infraCache.NewRedisCache(cfg.Redis.URL, cfg.Redis.Password, cfg.Redis.DB)
	c.Cache = redisCache
	if rc, ok := redisCache.(*infraCache.RedisCache); ok {
		if err := rc.Connect(context.Background()); err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		c.DeliveryQueue = queue.NewDeliveryQueue(rc.Client())
	} else {
		return nil, fmt.Errorf("unexpected cache implementation")
	}
	log.Println("Redis connected")

	// STEP 4: Repositories
	pool := c.DB.Pool
	c.MerchantRepo = merchantRepo.NewMerchantRepository(pool)
	c.PaymentRepo = paymentRepo.NewPaymentRepository(pool)
	c.AttemptRepo = paymentRepo.NewAttemptRepository(pool)
	c.RefundRepo = paymentRepo.NewRefundRepository(pool)
	c.TxManager = paymentRepo.NewTransactionManager(pool)
	c.OutboxRepo = eventRepo.NewOutboxRepository(pool)
	c.EventRepo = eventRepo.NewEventRepository(pool)
	c.EndpointRepo = webhookRepo.NewEndpointRepository(pool)
	c.DeliveryRepo = webhookRepo.NewDeliveryRepository(pool)

	// STEP 5: Gateway adapters, keyed by the names the API accepts
	gateways, err := buildGateways(cfg)
	if err != nil {
		return nil, err
	}
	c.Gateways = gateways

	// STEP 6: Services
	c.MerchantService = merchantService.NewMerchantService(c.MerchantRepo, c.Cache)
	c.PaymentService = paymentService.NewPaymentService(
		c.PaymentRepo, c.AttemptRepo, c.RefundRepo, c.OutboxRepo,
		c.TxManager, c.Gateways, c.Cache,
	)
	c.RefundService = paymentService.NewRefundService(
		c.PaymentRepo, c.RefundRepo, c.OutboxRepo, c.TxManager, c.Gateways,
	)
	c.DrainerService = eventService.NewDrainerService(
		pool, c.OutboxRepo, c.EventRepo, c.EndpointRepo, c.DeliveryRepo, c.DeliveryQueue,
	)
	c.SenderService = webhookService.NewSenderService(
		c.DeliveryRepo, c.EndpointRepo, c.EventRepo, c.DeliveryQueue, cfg.Webhook,
	)
	c.EndpointService = webhookService.NewEndpointService(c.EndpointRepo, c.DeliveryRepo)

	// STEP 7: HTTP handlers
	c.PaymentHandler = paymentHandler.NewPaymentHandler(c.PaymentService, c.MerchantService)
	c.RefundHandler = paymentHandler.NewRefundHandler(c.RefundService, c.MerchantService)
	c.EndpointHandler = webhookHandler.NewEndpointHandler(c.EndpointService, c.MerchantService)

	// STEP 8: Job handlers
	c.DrainOutboxJob = eventjob.NewDrainOutboxHandler(c.DrainerService, cfg.Jobs)
	c.PurgeOutboxJob = eventjob.NewPurgeOutboxHandler(c.OutboxRepo, cfg.Jobs)
	c.PurgeEventsJob = eventjob.NewPurgeEventsHandler(c.EventRepo, cfg.Jobs)
	c.RetrySweepJob = webhookjob.NewRetrySweepHandler(c.SenderService, cfg.Jobs)
	c.PurgeDeliveriesJob = webhookjob.NewPurgeDeliveriesHandler(c.DeliveryRepo, cfg.Jobs)

	log.Println("DI container initialized")
	return c, nil
}

func buildGateways(cfg *config.Config) (map[string]gateway.PaymentGateway, error) {
	gateways := make(map[string]gateway.PaymentGateway)

	if cfg.Gateways.EnableMock {
		gateways[paymentmodel.GatewayMock] = mockgw.NewGateway(cfg.Gateways.Mock)
	}

	if cfg.Gateways.EnableStripe {
		client, err := stripe.NewClient(&stripe.Config{
			SecretKey: cfg.Gateways.Stripe.SecretKey,
			APIURL:    cfg.Gateways.Stripe.APIURL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to init stripe gateway: %w", err)
		}
		gateways[paymentmodel.GatewayStripe] = client
	}

	if cfg.Gateways.EnableRazorpay {
		client, err := razorpay.NewClient(&razorpay.Config{
			KeyID:     cfg.Gateways.Razorpay.KeyID,
			KeySecret: cfg.Gateways.Razorpay.KeySecret,
			APIURL:    cfg.Gateways.Razorpay.APIURL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to init razorpay gateway: %w", err)
		}
		gateways[paymentmodel.GatewayRazorpay] = client
	}

	if len(gateways) == 0 {
		return nil, fmt.Errorf("no payment gateway enabled")
	}

	return gateways, nil
}

// Close releases infrastructure connections in reverse order.
func (c *Container) Close() {
	if rc, ok := c.Cache.(*infraCache.RedisCache); ok {
		if err := rc.Close(); err != nil {
			log.Printf("Failed to close redis: %v", err)
		}
	}
	if c.DB != nil {
		c.DB.Close()
	}
	log.Println("DI container closed")
}

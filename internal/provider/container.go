package provider

import (
	"context"
	"strings"
	"time"

	"github.com/dealmint/internal/cache"
	"github.com/dealmint/internal/config"
	"github.com/dealmint/internal/constants"
	"github.com/dealmint/internal/events"
	"github.com/dealmint/internal/issuance"
	"github.com/dealmint/internal/logger"
	"github.com/dealmint/internal/metrics"
	"github.com/dealmint/internal/models"
	"github.com/dealmint/internal/oracle"
	"github.com/dealmint/internal/oracle/eth"
	"github.com/dealmint/internal/oracle/solana"
	"github.com/dealmint/internal/queue"
	"github.com/dealmint/internal/repository"
	"github.com/dealmint/internal/service"
	"github.com/dealmint/internal/ticket"

	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

// Dependencies 可替换的外部依赖，零值按配置构建
type Dependencies struct {
	DB        *gorm.DB
	Oracle    oracle.Oracle
	Issuer    issuance.Issuer
	Publisher events.Publisher
	Codec     *ticket.Codec
	Now       func() time.Time
}

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client
	Metrics     *metrics.Recorder
	Publisher   events.Publisher
	Oracle      oracle.Oracle

	// Repositories
	PromotionRepo  repository.PromotionRepository
	ClaimRepo      repository.ClaimRepository
	NonceRepo      repository.RedemptionNonceRepository
	RedemptionRepo repository.RedemptionRepository

	// Services
	ClaimService        *service.ClaimService
	RedemptionService   *service.RedemptionService
	PromotionService    *service.PromotionService
	MerchantAuthService *service.MerchantAuthService

	closers []func()
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}
	return Build(cfg, Dependencies{DB: models.DB})
}

// Build 按配置与注入依赖组装容器
func Build(cfg *config.Config, deps Dependencies) *Container {
	// 初始化队列客户端
	queueClient, err := queue.NewClient(&cfg.Queue)
	if err != nil {
		logger.Errorw("provider_init_queue_client_failed", "error", err)
		queueClient = nil
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
		Metrics:     metrics.NewRecorder(prometheus.NewRegistry()),
	}
	if queueClient != nil {
		c.closers = append(c.closers, func() { _ = queueClient.Close() })
	}

	// 1. 初始化 Repositories
	c.initRepositories(deps.DB)

	// 2. 初始化外部适配器
	c.initAdapters(deps)

	// 3. 初始化 Services
	c.initServices(deps)

	return c
}

func (c *Container) initRepositories(db *gorm.DB) {
	c.PromotionRepo = repository.NewPromotionRepository(db)
	c.ClaimRepo = repository.NewClaimRepository(db)
	c.NonceRepo = repository.NewRedemptionNonceRepository(db)
	c.RedemptionRepo = repository.NewRedemptionRepository(db)
}

func (c *Container) initAdapters(deps Dependencies) {
	c.Publisher = deps.Publisher
	if c.Publisher == nil {
		c.Publisher = buildPublisher(c.Config.Events)
	}
	c.closers = append(c.closers, func() { _ = c.Publisher.Close() })

	c.Oracle = deps.Oracle
	if c.Oracle == nil {
		var closeOracle func()
		c.Oracle, closeOracle = buildOracle(c.Config.Oracle)
		if closeOracle != nil {
			c.closers = append(c.closers, closeOracle)
		}
	}
	c.Oracle = oracle.WithTimeout(c.Oracle, c.Config.Oracle.Timeout())
}

func (c *Container) initServices(deps Dependencies) {
	codec := deps.Codec
	if codec == nil {
		opts := []ticket.Option{ticket.WithNonceBytes(c.Config.Ticket.NonceBytes)}
		if deps.Now != nil {
			opts = append(opts, ticket.WithClock(deps.Now))
		}
		codec = ticket.NewCodec(opts...)
	}

	issuer := deps.Issuer
	if issuer == nil {
		issuer = buildIssuer(c.Config.Issuance)
	}

	c.ClaimService = service.NewClaimService(service.ClaimServiceOptions{
		PromotionRepo: c.PromotionRepo,
		ClaimRepo:     c.ClaimRepo,
		NonceRepo:     c.NonceRepo,
		Codec:         codec,
		TicketTTL:     c.Config.Ticket.TTL(),
		Publisher:     c.Publisher,
		Metrics:       c.Metrics,
	})
	c.RedemptionService = service.NewRedemptionService(service.RedemptionServiceOptions{
		PromotionRepo:  c.PromotionRepo,
		NonceRepo:      c.NonceRepo,
		RedemptionRepo: c.RedemptionRepo,
		Oracle:         c.Oracle,
		Publisher:      c.Publisher,
		Metrics:        c.Metrics,
		Now:            deps.Now,
	})
	c.PromotionService = service.NewPromotionService(service.PromotionServiceOptions{
		PromotionRepo: c.PromotionRepo,
		Issuer:        issuer,
		Queue:         c.QueueClient,
		CacheTTL:      time.Duration(c.Config.Promotion.CacheTTLSeconds) * time.Second,
		Now:           deps.Now,
	})
	c.MerchantAuthService = service.NewMerchantAuthService(c.Config.MerchantJWT)
}

// Close 释放外部连接
func (c *Container) Close() {
	if c == nil {
		return
	}
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

func buildPublisher(cfg config.EventsConfig) events.Publisher {
	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		return events.NoopPublisher{}
	}
	return events.NewKafkaPublisher(cfg.Brokers, cfg.Topic)
}

func buildIssuer(cfg config.IssuanceConfig) issuance.Issuer {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil
	}
	issuer, err := issuance.NewHTTPIssuer(issuance.Config{
		Endpoint: cfg.Endpoint,
		Token:    cfg.Token,
		Timeout:  time.Duration(cfg.TimeoutMS) * time.Millisecond,
	})
	if err != nil {
		logger.Errorw("provider_init_issuer_failed", "error", err)
		return nil
	}
	return issuer
}

// buildOracle 按驱动连接链上节点，连接失败时所有校验返回不可用
func buildOracle(cfg config.OracleConfig) (oracle.Oracle, func()) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout())
	defer cancel()

	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	switch driver {
	case constants.OracleDriverEth:
		o, err := eth.Dial(ctx, cfg.RPCURL)
		if err == nil {
			return o, o.Close
		}
		logger.Errorw("provider_dial_oracle_failed", "driver", driver, "error", err)
	case constants.OracleDriverSolana:
		o, err := solana.Dial(ctx, cfg.RPCURL, cfg.Commitment)
		if err == nil {
			return o, o.Close
		}
		logger.Errorw("provider_dial_oracle_failed", "driver", driver, "error", err)
	default:
		logger.Errorw("provider_unknown_oracle_driver", "driver", cfg.Driver)
	}
	return unavailableOracle(driver), nil
}

func unavailableOracle(driver string) oracle.Oracle {
	return oracle.Func(func(ctx context.Context, principal, assetRef string) (bool, error) {
		return false, oracle.Unavailable(driver, nil)
	})
}
